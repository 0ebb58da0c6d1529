package model

import (
	"time"
)

// ClaimTypeUnknown marks claims from feeds that carry no claim type and
// configure no default.
const ClaimTypeUnknown = "UNK"

// Diagnosis is one diagnosis code on a claim. Uniqueness within a claim is
// by code.
type Diagnosis struct {
	ClaimNumber  string `json:"claim_number"`
	MemberNumber string `json:"member_number"`
	Code         string `json:"code"`
	CodeType     string `json:"code_type"`
}

// Validate enforces the boundary field bounds.
func (d *Diagnosis) Validate() error {
	if err := required("diagnosis.claim_number", d.ClaimNumber); err != nil {
		return err
	}
	if err := maxLen("diagnosis.claim_number", d.ClaimNumber, 50); err != nil {
		return err
	}
	if err := required("diagnosis.member_number", d.MemberNumber); err != nil {
		return err
	}
	if err := maxLen("diagnosis.member_number", d.MemberNumber, 200); err != nil {
		return err
	}
	if err := required("diagnosis.code", d.Code); err != nil {
		return err
	}
	return maxLen("diagnosis.code_type", d.CodeType, 20)
}

// Procedure is one procedure code on a claim.
type Procedure struct {
	ClaimNumber  string `json:"claim_number"`
	MemberNumber string `json:"member_number"`
	Code         string `json:"code"`
}

// Validate enforces the boundary field bounds.
func (p *Procedure) Validate() error {
	if err := required("procedure.claim_number", p.ClaimNumber); err != nil {
		return err
	}
	if err := maxLen("procedure.claim_number", p.ClaimNumber, 50); err != nil {
		return err
	}
	if err := required("procedure.member_number", p.MemberNumber); err != nil {
		return err
	}
	if err := maxLen("procedure.member_number", p.MemberNumber, 200); err != nil {
		return err
	}
	if err := required("procedure.code", p.Code); err != nil {
		return err
	}
	return maxLen("procedure.code", p.Code, 34)
}

// Claim is one adjudicated claim for a member. Procedure claims carry the
// performing provider NPI and medical group TIN; pharmacy claims instead
// carry the filling pharmacy and the prescribing provider. The type does not
// enforce the exclusivity because some feeds blur it.
//
// The hospital-only fields (admission/discharge dates, revenue code, DRG,
// HCG, status code, plan name) are pointers serialized with omitempty so
// that "never supplied" is distinguishable from an explicit empty value and
// stays off the wire entirely.
type Claim struct {
	ClaimNumber  string `json:"claim_number"`
	ClaimType    string `json:"claim_type"`
	MemberNumber string `json:"member_number"`

	FromDate *time.Time `json:"from_date"`
	ThruDate *time.Time `json:"thru_date"`

	ProviderNPI     *string `json:"provider_npi,omitempty"`
	MedicalGroupTIN *string `json:"medical_group_tin,omitempty"`

	Setting *string `json:"setting,omitempty"`

	Diagnoses  []Diagnosis `json:"diagnoses"`
	Procedures []Procedure `json:"procedures"`

	// PharmacyNPI is the pharmacy that filled the prescription. For a drug
	// fill claim the pharmacy is the one considered to have performed the
	// claim; ProviderNPI stays nil and PrescribingNPI holds the provider
	// that prescribed the drugs.
	PharmacyNPI  *string `json:"pharmacy_npi,omitempty"`
	PharmacyName *string `json:"pharmacy_name,omitempty"`

	PrescribingNPI *string `json:"prescribing_npi,omitempty"`
	PrescribingTIN *string `json:"prescribing_tin,omitempty"`

	DrugFills []DrugFill `json:"drug_fills"`

	AmountGross Cents `json:"amount_gross"`
	AmountPaid  Cents `json:"amount_paid"`

	// Hospital claims might have these.
	AdmissionDate *time.Time `json:"admission_date,omitempty"`
	DischargeDate *time.Time `json:"discharge_date,omitempty"`

	// RevenueCode is a hospital revenue code, up to 4 digits.
	RevenueCode *string `json:"revenue_code,omitempty"`

	// DRGCode/DRGType classify by Diagnosis Related Group.
	DRGCode *string `json:"drg_code,omitempty"`
	DRGType *string `json:"drg_type,omitempty"`

	// HCGCode is a Health Cost Guidelines code.
	HCGCode *string `json:"hcg_code,omitempty"`

	StatusCode *string `json:"status_code,omitempty"`
	PlanName   *string `json:"plan_name,omitempty"`
}

// Key identifies the claim within a batch. Some feeds reuse claim numbers
// across members, so the member number is part of the identity.
func (c *Claim) Key() string {
	return c.MemberNumber + "-" + c.ClaimNumber
}

// HasDiagnosisCode reports whether the claim already carries the code.
func (c *Claim) HasDiagnosisCode(code string) bool {
	for i := range c.Diagnoses {
		if c.Diagnoses[i].Code == code {
			return true
		}
	}
	return false
}

// MaybeAddDiagnosis appends a diagnosis unless the code is already present.
func (c *Claim) MaybeAddDiagnosis(code, codeType string) {
	if code == "" || c.HasDiagnosisCode(code) {
		return
	}
	c.Diagnoses = append(c.Diagnoses, Diagnosis{
		ClaimNumber:  c.ClaimNumber,
		MemberNumber: c.MemberNumber,
		Code:         code,
		CodeType:     codeType,
	})
}

// HasProcedureCode reports whether the claim already carries the code.
func (c *Claim) HasProcedureCode(code string) bool {
	for i := range c.Procedures {
		if c.Procedures[i].Code == code {
			return true
		}
	}
	return false
}

// MaybeAddProcedure appends a procedure unless the code is already present.
func (c *Claim) MaybeAddProcedure(code string) {
	if code == "" || c.HasProcedureCode(code) {
		return
	}
	c.Procedures = append(c.Procedures, Procedure{
		ClaimNumber:  c.ClaimNumber,
		MemberNumber: c.MemberNumber,
		Code:         code,
	})
}

// MergeCodesFrom folds another claim's diagnosis and procedure codes into
// this one, keeping per-code uniqueness.
func (c *Claim) MergeCodesFrom(other *Claim) {
	for i := range other.Diagnoses {
		c.MaybeAddDiagnosis(other.Diagnoses[i].Code, other.Diagnoses[i].CodeType)
	}
	for i := range other.Procedures {
		c.MaybeAddProcedure(other.Procedures[i].Code)
	}
}

// SetMemberNumber rewrites the member number on the claim and all its owned
// diagnoses, procedures and drug fills.
func (c *Claim) SetMemberNumber(memberNumber string) {
	c.MemberNumber = memberNumber
	for i := range c.Diagnoses {
		c.Diagnoses[i].MemberNumber = memberNumber
	}
	for i := range c.Procedures {
		c.Procedures[i].MemberNumber = memberNumber
	}
	for i := range c.DrugFills {
		c.DrugFills[i].MemberNumber = memberNumber
	}
}

// Validate enforces the boundary field bounds for the claim and everything
// it owns.
func (c *Claim) Validate() error {
	if err := required("claim.claim_number", c.ClaimNumber); err != nil {
		return err
	}
	if err := maxLen("claim.claim_number", c.ClaimNumber, 50); err != nil {
		return err
	}
	if err := required("claim.claim_type", c.ClaimType); err != nil {
		return err
	}
	if err := maxLen("claim.claim_type", c.ClaimType, 16); err != nil {
		return err
	}
	if err := required("claim.member_number", c.MemberNumber); err != nil {
		return err
	}
	if err := maxLen("claim.member_number", c.MemberNumber, 200); err != nil {
		return err
	}
	if err := maxLenPtr("claim.pharmacy_name", c.PharmacyName, 250); err != nil {
		return err
	}
	if err := maxLenPtr("claim.revenue_code", c.RevenueCode, 4); err != nil {
		return err
	}
	if err := maxLenPtr("claim.drg_code", c.DRGCode, 3); err != nil {
		return err
	}
	if err := maxLenPtr("claim.drg_type", c.DRGType, 50); err != nil {
		return err
	}
	if err := maxLenPtr("claim.hcg_code", c.HCGCode, 10); err != nil {
		return err
	}
	if err := maxLenPtr("claim.status_code", c.StatusCode, 10); err != nil {
		return err
	}
	if err := maxLenPtr("claim.plan_name", c.PlanName, 200); err != nil {
		return err
	}
	for i := range c.Diagnoses {
		if err := c.Diagnoses[i].Validate(); err != nil {
			return err
		}
	}
	for i := range c.Procedures {
		if err := c.Procedures[i].Validate(); err != nil {
			return err
		}
	}
	for i := range c.DrugFills {
		if err := c.DrugFills[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
