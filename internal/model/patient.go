package model

import (
	"time"
)

// Gender codes used on the wire. Partner sentinel values are decoded into
// these single-letter codes by the mappings.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderNone   = "-"
)

// Shape classifies what kind of patient record a feed row produced. The
// classification is always computed from the fields, never stored.
type Shape int

const (
	// ShapeComplete means all demographic fields plus an attribution point
	// are present.
	ShapeComplete Shape = iota
	// ShapeClaimsOnly means member number and plan id only; all demographic
	// and attribution fields are empty.
	ShapeClaimsOnly
	// ShapeInvalid means partially filled: some demographics present, some
	// missing. Rejected by the update endpoint.
	ShapeInvalid
)

func (s Shape) String() string {
	switch s {
	case ShapeComplete:
		return "complete"
	case ShapeClaimsOnly:
		return "claims-only"
	default:
		return "invalid"
	}
}

// Patient is the canonical record posted to the patient update endpoint.
//
// There are two kinds of data we accept: patient-with-demographics, where
// the demographic fields and an attribution point (provider or attributed
// medical group) are all present, and claims-only, where only member number
// and plan id are set. Anything in between is invalid.
type Patient struct {
	MemberNumber string `json:"member_number"`
	PlanID       int64  `json:"plan_id"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Gender    string `json:"gender,omitempty"`

	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty"`

	Address *Address `json:"address,omitempty"`

	// Provider and AttributedMedicalGroup are the two attribution paths.
	// Patients attributed straight to a medical group have no provider but
	// carry all the other demographics data.
	Provider               *Provider     `json:"provider,omitempty"`
	AttributedMedicalGroup *MedicalGroup `json:"attributed_medical_group,omitempty"`

	// RestrictToTIN is an ETL-asserted constraint: when set, the patient
	// must belong to this medical group TIN when imported.
	RestrictToTIN string `json:"restrict_to_tin,omitempty"`

	// LineOfBusiness is the plan line under which the patient was assigned
	// to this doctor.
	LineOfBusiness string `json:"line_of_business,omitempty"`

	Claims []Claim `json:"claims"`

	MedicareStatusCode            string `json:"medicare_status_code,omitempty"`
	DualStatusCode                string `json:"dual_status_code,omitempty"`
	OriginalEntitlementStatusCode string `json:"original_entitlement_status_code,omitempty"`
}

// DataComplete reports whether every demographics field plus a provider
// attribution is present.
func (p *Patient) DataComplete() bool {
	return p.MemberNumber != "" && p.PlanID != 0 && p.Provider != nil &&
		p.FirstName != "" && p.LastName != "" && p.Gender != "" &&
		p.DateOfBirth != nil
}

// DataCompleteForMedicalGroupAttribution is DataComplete with the provider
// replaced by a direct medical-group attribution.
func (p *Patient) DataCompleteForMedicalGroupAttribution() bool {
	return p.MemberNumber != "" && p.PlanID != 0 &&
		p.AttributedMedicalGroup != nil &&
		p.FirstName != "" && p.LastName != "" && p.Gender != "" &&
		p.DateOfBirth != nil
}

// OnlyClaims reports whether member number and plan id are set but
// everything else is empty or missing.
func (p *Patient) OnlyClaims() bool {
	return p.MemberNumber != "" && p.PlanID != 0 &&
		p.Provider == nil && p.LineOfBusiness == "" &&
		p.FirstName == "" && p.LastName == "" &&
		p.Gender == "" && p.DateOfBirth == nil && p.Address == nil
}

// Shape computes the record's shape from its fields.
func (p *Patient) Shape() Shape {
	switch {
	case p.DataComplete() || p.DataCompleteForMedicalGroupAttribution():
		return ShapeComplete
	case p.OnlyClaims():
		return ShapeClaimsOnly
	default:
		return ShapeInvalid
	}
}

// MissingSomeFields enforces the all-or-nothing completeness rule. If any
// demographic field or attribution point is present then member number,
// plan id, the four demographic fields, and an attribution point must all
// be present; every gap is reported by field name. A record with none of
// the optional fields set is claims-only and exempt.
//
// When the record is not complete for medical-group attribution the rule
// falls back to requiring a provider: provider attribution is the primary
// path and medical-group-only feeds are expected to satisfy the
// medical-group completeness check first.
func (p *Patient) MissingSomeFields() []string {
	var missing []string

	if p.MemberNumber == "" {
		missing = append(missing, "member_number")
	}
	if p.PlanID == 0 {
		missing = append(missing, "plan_id")
	}

	anyDemographics := p.Provider != nil || p.FirstName != "" ||
		p.LastName != "" || p.Gender != "" || p.DateOfBirth != nil
	if !anyDemographics {
		if p.MemberNumber != "" && p.PlanID != 0 {
			return nil
		}
		return missing
	}

	if p.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if p.LastName == "" {
		missing = append(missing, "last_name")
	}
	if p.Gender == "" {
		missing = append(missing, "gender")
	}
	if p.DateOfBirth == nil {
		missing = append(missing, "date_of_birth")
	}

	if p.DataCompleteForMedicalGroupAttribution() {
		if p.AttributedMedicalGroup == nil {
			missing = append(missing, "attributed_medical_group")
		}
	} else if p.Provider == nil {
		missing = append(missing, "provider")
	}

	return missing
}

// AttributedTIN returns the TIN of the medical group the patient's provider
// belongs to, or empty when the provider path is not populated.
func (p *Patient) AttributedTIN() string {
	if p.Provider == nil || p.Provider.MedicalGroup == nil {
		return ""
	}
	return p.Provider.MedicalGroup.TIN
}

// AttributedTINDifferentThanForcedTIN reports whether an ETL forced a TIN
// and the record's attributed TIN disagrees with it. Returns false when
// either side is unset (claims-only patients have no attribution).
func (p *Patient) AttributedTINDifferentThanForcedTIN() bool {
	attributed := p.AttributedTIN()
	return attributed != "" && p.RestrictToTIN != "" && attributed != p.RestrictToTIN
}

// MedicalGroupName returns the name of the provider's medical group, or
// empty.
func (p *Patient) MedicalGroupName() string {
	if p.Provider == nil || p.Provider.MedicalGroup == nil {
		return ""
	}
	return p.Provider.MedicalGroup.Name
}

// NPI returns the attributed provider's NPI, or empty.
func (p *Patient) NPI() string {
	if p.Provider == nil {
		return ""
	}
	return p.Provider.NPI
}

// ProviderName returns the attributed provider's display name, or empty.
func (p *Patient) ProviderName() string {
	if p.Provider == nil {
		return ""
	}
	return p.Provider.Name()
}

// IsOrphan reports whether the patient has no attributed provider and no
// attributed medical group.
func (p *Patient) IsOrphan() bool {
	return p.Provider == nil && p.AttributedMedicalGroup == nil
}

// MakeOrphan clears the provider and the demographic fields. The update
// endpoint expects either all demographic data or none of it, and does not
// yet support orphaned patients that keep demographics, so placeholder
// imports drop them.
func (p *Patient) MakeOrphan() {
	p.Provider = nil
	p.FirstName = ""
	p.LastName = ""
	p.Gender = ""
	p.DateOfBirth = nil
	p.Address = nil
	p.LineOfBusiness = ""
}

// Validate enforces the boundary field bounds for the patient and
// everything it owns.
func (p *Patient) Validate() error {
	if err := required("patient.member_number", p.MemberNumber); err != nil {
		return err
	}
	if err := maxLen("patient.member_number", p.MemberNumber, 200); err != nil {
		return err
	}
	if err := maxLen("patient.first_name", p.FirstName, 200); err != nil {
		return err
	}
	if err := maxLen("patient.last_name", p.LastName, 200); err != nil {
		return err
	}
	if err := maxLen("patient.gender", p.Gender, 10); err != nil {
		return err
	}
	if err := maxLen("patient.medicare_status_code", p.MedicareStatusCode, 2); err != nil {
		return err
	}
	if err := maxLen("patient.original_entitlement_status_code", p.OriginalEntitlementStatusCode, 1); err != nil {
		return err
	}
	if p.Address != nil {
		if err := p.Address.Validate(); err != nil {
			return err
		}
	}
	if p.Provider != nil {
		if err := p.Provider.Validate(); err != nil {
			return err
		}
	}
	if p.AttributedMedicalGroup != nil {
		if err := p.AttributedMedicalGroup.Validate(); err != nil {
			return err
		}
	}
	for i := range p.Claims {
		if err := p.Claims[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
