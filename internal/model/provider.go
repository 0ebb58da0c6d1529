package model

// Provider is a clinical provider identified by NPI. The attached medical
// group is the one the provider was practicing at when the data was
// ingested; individual claims may have happened under a different NPI/TIN
// association.
type Provider struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	NPI string `json:"npi"`

	MedicalGroup *MedicalGroup `json:"medical_group,omitempty"`

	SupportedOfficeUIDs []string `json:"supported_offices_uids"`
}

// Name returns the provider's display name, or "- -" when both name fields
// are absent.
func (p *Provider) Name() string {
	if p.FirstName != "" || p.LastName != "" {
		return p.FirstName + " " + p.LastName
	}
	return "- -"
}

// Validate enforces the boundary field bounds.
func (p *Provider) Validate() error {
	if err := required("provider.npi", p.NPI); err != nil {
		return err
	}
	if err := maxLen("provider.npi", p.NPI, 20); err != nil {
		return err
	}
	if err := maxLen("provider.first_name", p.FirstName, 200); err != nil {
		return err
	}
	if err := maxLen("provider.last_name", p.LastName, 200); err != nil {
		return err
	}
	if p.MedicalGroup != nil {
		return p.MedicalGroup.Validate()
	}
	return nil
}
