package model

import (
	"encoding/json"
	"testing"
)

func TestParseCents(t *testing.T) {
	cases := map[string]Cents{
		"0":      0,
		"150.00": 15000,
		"150":    15000,
		"0.01":   1,
		"19.99":  1999,
		"-5.25":  -525,
	}
	for in, want := range cases {
		got, err := ParseCents(in)
		if err != nil {
			t.Errorf("ParseCents(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseCents(%q) = %d, want %d", in, got, want)
		}
	}

	if _, err := ParseCents("abc"); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestCents_JSON(t *testing.T) {
	data, err := json.Marshal(Cents(15000))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "150.00" {
		t.Errorf("marshaled %s, want 150.00", data)
	}

	var c Cents
	if err := json.Unmarshal([]byte("19.99"), &c); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if c != 1999 {
		t.Errorf("unmarshaled %d, want 1999", c)
	}
}

func TestParseIntegral(t *testing.T) {
	cases := map[string]int64{
		"3":   3,
		"3.0": 3,
		"2.6": 3,
		"0":   0,
	}
	for in, want := range cases {
		got, err := ParseIntegral(in)
		if err != nil {
			t.Errorf("ParseIntegral(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseIntegral(%q) = %d, want %d", in, got, want)
		}
	}
	if _, err := ParseIntegral("N/A"); err == nil {
		t.Error("expected error for N/A")
	}
}

func TestNewDrug_TruncatesName(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'X'
	}
	d := NewDrug("123", string(long), "", "", "")
	if got := len([]rune(d.DrugName)); got != 250 {
		t.Errorf("drug name length = %d, want 250", got)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate after truncation: %v", err)
	}
}

func TestDrug_HasName(t *testing.T) {
	if NewDrug("1", "-", "", "", "").HasName() {
		t.Error("HasName() = true for placeholder name")
	}
	if NewDrug("1", "", "", "", "").HasName() {
		t.Error("HasName() = true for empty name")
	}
	if !NewDrug("1", "LIPITOR", "", "", "").HasName() {
		t.Error("HasName() = false for real name")
	}
}
