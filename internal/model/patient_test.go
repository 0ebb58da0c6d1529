package model

import (
	"testing"
	"time"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func completePatient() *Patient {
	return &Patient{
		MemberNumber: "M1",
		PlanID:       7,
		FirstName:    "ANA",
		LastName:     "SMITH",
		Gender:       GenderFemale,
		DateOfBirth:  datePtr(1950, 1, 2),
		Provider: &Provider{
			NPI:          "123",
			MedicalGroup: NewMedicalGroup("456", "Canyon Medical"),
		},
	}
}

func TestPatient_Shape(t *testing.T) {
	if got := completePatient().Shape(); got != ShapeComplete {
		t.Errorf("complete patient shape = %v", got)
	}

	claimsOnly := &Patient{MemberNumber: "M1", PlanID: 7}
	if got := claimsOnly.Shape(); got != ShapeClaimsOnly {
		t.Errorf("claims-only shape = %v", got)
	}

	partial := completePatient()
	partial.Gender = ""
	if got := partial.Shape(); got != ShapeInvalid {
		t.Errorf("partial patient shape = %v", got)
	}

	mgAttributed := completePatient()
	mgAttributed.Provider = nil
	mgAttributed.AttributedMedicalGroup = NewMedicalGroup("456", "Canyon Medical")
	if got := mgAttributed.Shape(); got != ShapeComplete {
		t.Errorf("medical-group attributed shape = %v", got)
	}
}

func TestPatient_MissingSomeFields(t *testing.T) {
	if missing := completePatient().MissingSomeFields(); missing != nil {
		t.Errorf("complete patient missing = %v", missing)
	}

	claimsOnly := &Patient{MemberNumber: "M1", PlanID: 7}
	if missing := claimsOnly.MissingSomeFields(); missing != nil {
		t.Errorf("claims-only missing = %v, want nil (exempt)", missing)
	}

	// Any demographic field present pulls in the whole requirement.
	partial := &Patient{MemberNumber: "M1", PlanID: 7, FirstName: "ANA"}
	missing := partial.MissingSomeFields()
	want := map[string]bool{
		"last_name": true, "gender": true, "date_of_birth": true, "provider": true,
	}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v", missing)
	}
	for _, f := range missing {
		if !want[f] {
			t.Errorf("unexpected missing field %q", f)
		}
	}

	// Member number and plan gaps are always reported.
	empty := &Patient{}
	missing = empty.MissingSomeFields()
	if len(missing) != 2 || missing[0] != "member_number" || missing[1] != "plan_id" {
		t.Errorf("missing = %v", missing)
	}
}

func TestPatient_ForcedTIN(t *testing.T) {
	p := completePatient()
	p.RestrictToTIN = "456"
	if p.AttributedTINDifferentThanForcedTIN() {
		t.Error("conflict reported for matching TIN")
	}
	p.RestrictToTIN = "789"
	if !p.AttributedTINDifferentThanForcedTIN() {
		t.Error("no conflict reported for differing TIN")
	}
	claimsOnly := &Patient{MemberNumber: "M1", PlanID: 7, RestrictToTIN: "789"}
	if claimsOnly.AttributedTINDifferentThanForcedTIN() {
		t.Error("conflict reported with no attribution")
	}
}

func TestPatient_MakeOrphan(t *testing.T) {
	p := completePatient()
	p.Address = &Address{State: "AZ", Zip: "85001"}
	p.LineOfBusiness = "MA"
	p.MakeOrphan()

	if !p.IsOrphan() {
		t.Error("IsOrphan() = false after MakeOrphan")
	}
	if p.FirstName != "" || p.LastName != "" || p.Gender != "" ||
		p.DateOfBirth != nil || p.Address != nil || p.LineOfBusiness != "" {
		t.Errorf("demographics not cleared: %+v", p)
	}
	if p.MemberNumber != "M1" || p.PlanID != 7 {
		t.Error("identity fields must survive MakeOrphan")
	}
}

func TestPatient_AttributedAccessors(t *testing.T) {
	p := completePatient()
	if p.AttributedTIN() != "456" {
		t.Errorf("AttributedTIN = %q", p.AttributedTIN())
	}
	if p.NPI() != "123" {
		t.Errorf("NPI = %q", p.NPI())
	}
	if p.MedicalGroupName() != "Canyon Medical" {
		t.Errorf("MedicalGroupName = %q", p.MedicalGroupName())
	}

	orphan := &Patient{MemberNumber: "M1", PlanID: 7}
	if orphan.AttributedTIN() != "" || orphan.NPI() != "" {
		t.Error("orphan accessors must return empty strings")
	}
}

func TestProvider_Name(t *testing.T) {
	p := &Provider{NPI: "123"}
	if got := p.Name(); got != "- -" {
		t.Errorf("Name() = %q, want \"- -\"", got)
	}
	p.FirstName = "JO"
	if got := p.Name(); got != "JO " {
		t.Errorf("Name() = %q", got)
	}
}

func TestPatient_Validate_Bounds(t *testing.T) {
	p := completePatient()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	p.MedicareStatusCode = "ABC"
	if err := p.Validate(); err == nil {
		t.Error("expected error for over-long medicare_status_code")
	}
}
