package reconcile

import (
	"testing"
	"time"

	"github.com/stellarhealth/feedload/internal/model"
)

func dob(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func providerPatient(member, npi, tin string) *model.Patient {
	return &model.Patient{
		MemberNumber: member,
		PlanID:       7,
		FirstName:    "ANA",
		LastName:     "SMITH",
		Gender:       "F",
		DateOfBirth:  dob(1950, time.January, 2),
		Provider: &model.Provider{
			NPI:          npi,
			MedicalGroup: model.NewMedicalGroup(tin, "Westside Medical"),
		},
	}
}

func groupPatient(member, tin string) *model.Patient {
	p := providerPatient(member, "", tin)
	p.Provider = nil
	p.AttributedMedicalGroup = model.NewMedicalGroup(tin, "Westside Medical")
	return p
}

func orphanPatient(member string) *model.Patient {
	p := providerPatient(member, "", "")
	p.Provider = nil
	return p
}

func TestClassifyNew(t *testing.T) {
	c := Classify(providerPatient("M1", "123", "456"), nil)
	if !c.New {
		t.Fatal("nil stored record not classified as new")
	}
	if c.Unchanged || c.DemographicsChanged || c.PlanChanged {
		t.Errorf("new record raised other signals: %+v", c)
	}
}

func TestClassifyUnchanged(t *testing.T) {
	incoming := providerPatient("M1", "123", "456")
	stored := providerPatient("M1", "123", "456")
	c := Classify(incoming, stored)
	if !c.Unchanged {
		t.Errorf("identical records not unchanged: %+v", c)
	}
	if c.DemographicsChanged || c.PlanChanged || c.ForcedTINConflict {
		t.Errorf("identical records raised change signals: %+v", c)
	}
}

func TestClassifyDemographicsChanged(t *testing.T) {
	incoming := providerPatient("M1", "123", "456")
	incoming.LastName = "SMITH-JONES"
	c := Classify(incoming, providerPatient("M1", "123", "456"))
	if !c.DemographicsChanged || c.Unchanged {
		t.Errorf("renamed record = %+v", c)
	}
}

func TestClassifyPlanChanged(t *testing.T) {
	incoming := providerPatient("M1", "123", "456")
	incoming.PlanID = 8
	c := Classify(incoming, providerPatient("M1", "123", "456"))
	if !c.PlanChanged || c.Unchanged {
		t.Errorf("plan move = %+v", c)
	}
}

func TestMedicalGroupUnchanged(t *testing.T) {
	incoming := groupPatient("M1", "456")
	stored := groupPatient("M1", "456")
	c := Classify(incoming, stored)
	if !c.MedicalGroupUnchanged {
		t.Errorf("steady group attribution = %+v", c)
	}
	if !c.Unchanged {
		t.Errorf("steady group attribution should read as unchanged: %+v", c)
	}

	// A provider on either side defeats the group-only predicate.
	if AttributedToMedicalGroupUnchanged(providerPatient("M1", "123", "456"), stored) {
		t.Error("incoming provider should not satisfy the group-only predicate")
	}
	moved := groupPatient("M1", "999")
	if AttributedToMedicalGroupUnchanged(moved, stored) {
		t.Error("different TINs should not satisfy the predicate")
	}
}

func TestMovedBetweenProviderAndMedicalGroup(t *testing.T) {
	withProvider := providerPatient("M1", "123", "456")
	withGroup := groupPatient("M1", "456")

	if !MovedFromProviderToMedicalGroup(withGroup, withProvider) {
		t.Error("provider then group should match P-to-MG")
	}
	if MovedFromMedicalGroupToProvider(withGroup, withProvider) {
		t.Error("P-to-MG pair must not also match MG-to-P")
	}

	if !MovedFromMedicalGroupToProvider(withProvider, withGroup) {
		t.Error("group then provider should match MG-to-P")
	}
	if MovedFromProviderToMedicalGroup(withProvider, withGroup) {
		t.Error("MG-to-P pair must not also match P-to-MG")
	}

	// Both signals off when attribution style held steady.
	if MovedFromProviderToMedicalGroup(withProvider, withProvider) ||
		MovedFromMedicalGroupToProvider(withGroup, withGroup) {
		t.Error("steady attribution matched a move predicate")
	}
}

func TestDeorphaned(t *testing.T) {
	orphan := orphanPatient("M1")

	if !DeorphanedToMedicalGroup(groupPatient("M1", "456"), orphan) {
		t.Error("orphan then group should match")
	}
	if !DeorphanedToProvider(providerPatient("M1", "123", "456"), orphan) {
		t.Error("orphan then provider should match")
	}
	if DeorphanedToMedicalGroup(providerPatient("M1", "123", "456"), orphan) {
		t.Error("provider arrival must not match the group deorphan")
	}
	if DeorphanedToProvider(orphanPatient("M1"), orphan) {
		t.Error("orphan staying orphan matched a deorphan predicate")
	}
	if DeorphanedToProvider(providerPatient("M1", "123", "456"), providerPatient("M1", "123", "456")) {
		t.Error("non-orphan stored record matched a deorphan predicate")
	}
}

func TestProviderChangedSameMedicalGroup(t *testing.T) {
	stored := providerPatient("M1", "123", "456")
	stored.AttributedMedicalGroup = nil

	changed := providerPatient("M1", "999", "456")
	if !ProviderChangedSameMedicalGroup(changed, stored) {
		t.Error("same group different NPI should match")
	}
	if ProviderChangedSameMedicalGroup(providerPatient("M1", "123", "456"), stored) {
		t.Error("same NPI must not match")
	}
}

func TestClassifyForcedTINConflict(t *testing.T) {
	incoming := providerPatient("M1", "123", "456")
	incoming.RestrictToTIN = "999"
	c := Classify(incoming, providerPatient("M1", "123", "456"))
	if !c.ForcedTINConflict {
		t.Errorf("attributed 456 under forced 999 = %+v", c)
	}

	agreeing := providerPatient("M1", "123", "456")
	agreeing.RestrictToTIN = "456"
	if Classify(agreeing, providerPatient("M1", "123", "456")).ForcedTINConflict {
		t.Error("agreeing forced TIN raised a conflict")
	}
}

func TestSameIdentityAndMemberNumberChanged(t *testing.T) {
	a := providerPatient("M1", "123", "456")
	b := providerPatient("M2", "999", "888")
	if !SameIdentity(a, b) {
		t.Error("matching demographics should be the same identity")
	}
	if !MemberNumberChanged(a, b) {
		t.Error("same identity under a different member number should flag")
	}
	if MemberNumberChanged(a, providerPatient("M1", "123", "456")) {
		t.Error("same member number flagged as changed")
	}

	c := providerPatient("M3", "123", "456")
	c.DateOfBirth = dob(1951, time.January, 2)
	if SameIdentity(a, c) {
		t.Error("different birth dates should not be the same identity")
	}

	// Same calendar date in different locations is still the same person.
	la, _ := time.LoadLocation("America/Los_Angeles")
	d := providerPatient("M4", "123", "456")
	shifted := time.Date(1950, time.January, 2, 23, 0, 0, 0, la)
	d.DateOfBirth = &shifted
	if !SameIdentity(a, d) {
		t.Error("same calendar date compared unequal")
	}

	// Feeds disagree on name casing; identity matching must not.
	e := providerPatient("M5", "123", "456")
	e.FirstName = "Ana"
	e.LastName = "Smith"
	if !SameIdentity(a, e) {
		t.Error("name casing broke identity matching")
	}
	if !MemberNumberChanged(a, e) {
		t.Error("cased name variant not flagged as a member number change")
	}
}
