package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestClaim_Key(t *testing.T) {
	c := &Claim{ClaimNumber: "C9", MemberNumber: "M1"}
	if got := c.Key(); got != "M1-C9" {
		t.Errorf("Key() = %q", got)
	}
}

func TestClaim_MaybeAddDiagnosis_Dedupes(t *testing.T) {
	c := &Claim{ClaimNumber: "C9", MemberNumber: "M1"}
	c.MaybeAddDiagnosis("E11.9", "ICD10")
	c.MaybeAddDiagnosis("E11.9", "ICD10")
	c.MaybeAddDiagnosis("", "ICD10")
	if len(c.Diagnoses) != 1 {
		t.Fatalf("diagnoses = %d, want 1", len(c.Diagnoses))
	}
	d := c.Diagnoses[0]
	if d.ClaimNumber != "C9" || d.MemberNumber != "M1" || d.Code != "E11.9" {
		t.Errorf("diagnosis = %+v", d)
	}
}

func TestClaim_MergeCodesFrom(t *testing.T) {
	a := &Claim{ClaimNumber: "C9", MemberNumber: "M1"}
	a.MaybeAddDiagnosis("E11.9", "ICD10")
	a.MaybeAddProcedure("99213")

	b := &Claim{ClaimNumber: "C9", MemberNumber: "M1"}
	b.MaybeAddDiagnosis("E11.9", "ICD10")
	b.MaybeAddDiagnosis("I10", "ICD10")
	b.MaybeAddProcedure("99214")

	a.MergeCodesFrom(b)
	if len(a.Diagnoses) != 2 {
		t.Errorf("diagnoses = %d, want 2", len(a.Diagnoses))
	}
	if len(a.Procedures) != 2 {
		t.Errorf("procedures = %d, want 2", len(a.Procedures))
	}
}

func TestClaim_SetMemberNumber_FansOut(t *testing.T) {
	c := &Claim{ClaimNumber: "C9", MemberNumber: "M1"}
	c.MaybeAddDiagnosis("E11.9", "ICD10")
	c.MaybeAddProcedure("99213")
	c.DrugFills = append(c.DrugFills, DrugFill{ClaimNumber: "C9", MemberNumber: "M1", NDC: "1"})

	c.SetMemberNumber("M2")
	if c.MemberNumber != "M2" || c.Diagnoses[0].MemberNumber != "M2" ||
		c.Procedures[0].MemberNumber != "M2" || c.DrugFills[0].MemberNumber != "M2" {
		t.Errorf("member number not propagated: %+v", c)
	}
}

func TestClaim_HospitalFieldsAbsentFromJSON(t *testing.T) {
	c := &Claim{ClaimNumber: "C9", ClaimType: "medical", MemberNumber: "M1"}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, field := range []string{"admission_date", "revenue_code", "drg_code", "hcg_code", "plan_name"} {
		if strings.Contains(string(data), field) {
			t.Errorf("unsupplied hospital field %q present in JSON", field)
		}
	}

	code := "012"
	c.DRGCode = &code
	data, _ = json.Marshal(c)
	if !strings.Contains(string(data), `"drg_code":"012"`) {
		t.Errorf("supplied drg_code missing from JSON: %s", data)
	}
}

func TestClaim_Validate_Bounds(t *testing.T) {
	c := &Claim{ClaimNumber: "C9", ClaimType: "medical", MemberNumber: "M1"}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	long := strings.Repeat("9", 5)
	c.RevenueCode = &long
	if err := c.Validate(); err == nil {
		t.Error("expected error for 5-char revenue code")
	}
	c.RevenueCode = nil

	c.ClaimNumber = strings.Repeat("C", 51)
	if err := c.Validate(); err == nil {
		t.Error("expected error for over-long claim number")
	}
}
