// Package model holds the canonical, validated representations of the
// entities extracted from partner feeds. The model is a tree: claims own
// their diagnoses, procedures and drug fills by value, patients own their
// claims, and a provider references at most one medical group.
package model

import "fmt"

// Address is a mailing address plus contact phones. State and zip are the
// only fields that must be non-empty for the address to be considered set;
// all others may be blank strings.
type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`

	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`

	PhoneNumber          string `json:"phone_number"`
	SecondaryPhoneNumber string `json:"secondary_phone_number"`
}

// IsSet reports whether the address carries enough data to be usable.
func (a *Address) IsSet() bool {
	return a != nil && a.State != "" && a.Zip != ""
}

// Validate enforces the boundary field bounds.
func (a *Address) Validate() error {
	if a.State == "" {
		return fmt.Errorf("address: state is required")
	}
	if a.Zip == "" {
		return fmt.Errorf("address: zip is required")
	}
	if err := maxLen("address.state", a.State, 50); err != nil {
		return err
	}
	if err := maxLen("address.zip", a.Zip, 50); err != nil {
		return err
	}
	if err := maxLen("address.phone_number", a.PhoneNumber, 20); err != nil {
		return err
	}
	return maxLen("address.secondary_phone_number", a.SecondaryPhoneNumber, 20)
}
