package model

import "time"

// drugNameLimit is the one place where an over-long value is truncated
// instead of failing validation. Partner drug files routinely exceed it.
const drugNameLimit = 250

// Drug describes the dispensed drug on a pharmacy claim. Always build one
// through NewDrug so the name truncation happens at construction, not at
// validation time.
type Drug struct {
	// NDC is the National Drug Code.
	NDC      string `json:"ndc"`
	DrugName string `json:"drug_name"`

	// GPI is the Generic Product Identifier.
	GPI string `json:"gpi"`
	// GCN is the Generic Code Number, the generic formulation of the drug.
	GCN string `json:"gcn"`
	// BrandFlag identifies whether the fill was paid at brand or generic.
	BrandFlag string `json:"brand_flag"`
}

// NewDrug builds a Drug with the name truncated to 250 characters.
func NewDrug(ndc, name, gpi, gcn, brandFlag string) *Drug {
	return &Drug{
		NDC:       ndc,
		DrugName:  truncate(name, drugNameLimit),
		GPI:       gpi,
		GCN:       gcn,
		BrandFlag: brandFlag,
	}
}

// HasName reports whether the name carries real data rather than the `-`
// placeholder partners use.
func (d *Drug) HasName() bool {
	return d.DrugName != "" && d.DrugName != "-"
}

// Validate enforces the boundary field bounds.
func (d *Drug) Validate() error {
	if err := required("drug.ndc", d.NDC); err != nil {
		return err
	}
	if err := maxLen("drug.ndc", d.NDC, 20); err != nil {
		return err
	}
	if err := maxLen("drug.drug_name", d.DrugName, drugNameLimit); err != nil {
		return err
	}
	if err := maxLen("drug.gpi", d.GPI, 200); err != nil {
		return err
	}
	if err := maxLen("drug.gcn", d.GCN, 200); err != nil {
		return err
	}
	return maxLen("drug.brand_flag", d.BrandFlag, 20)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// DrugFill records one fill of a prescription against a pharmacy claim.
type DrugFill struct {
	ClaimNumber  string `json:"claim_number"`
	MemberNumber string `json:"member_number"`

	NDC string `json:"ndc"`

	// RefillNumber tells how many times this prescription has been filled
	// so far; RefillsAuthorized how many fills the script allows.
	RefillNumber      int64  `json:"refill_number"`
	RefillsAuthorized *int64 `json:"refills_authorized,omitempty"`
	DaysSupply        int64  `json:"days_supply"`
	QuantityDispensed int64  `json:"quantity_dispensed"`

	ScriptWrittenDate *time.Time `json:"script_written_date,omitempty"`
	FillDate          *time.Time `json:"fill_date,omitempty"`

	Drug *Drug `json:"drug,omitempty"`
}

// Validate enforces the boundary field bounds.
func (f *DrugFill) Validate() error {
	if err := required("drug_fill.claim_number", f.ClaimNumber); err != nil {
		return err
	}
	if err := maxLen("drug_fill.claim_number", f.ClaimNumber, 50); err != nil {
		return err
	}
	if err := required("drug_fill.member_number", f.MemberNumber); err != nil {
		return err
	}
	if err := maxLen("drug_fill.member_number", f.MemberNumber, 200); err != nil {
		return err
	}
	if err := required("drug_fill.ndc", f.NDC); err != nil {
		return err
	}
	if err := maxLen("drug_fill.ndc", f.NDC, 20); err != nil {
		return err
	}
	if f.Drug != nil {
		return f.Drug.Validate()
	}
	return nil
}
