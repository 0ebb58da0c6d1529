package model

import "strings"

// MedicalGroup is a billing entity identified by its Tax Identification
// Number. The TIN is normalized by stripping hyphens at construction.
type MedicalGroup struct {
	TIN  string `json:"tin"`
	Name string `json:"name"`

	Address *Address `json:"address,omitempty"`
	Offices []Office `json:"offices"`
}

// NewMedicalGroup builds a medical group with a normalized TIN.
func NewMedicalGroup(tin, name string) *MedicalGroup {
	return &MedicalGroup{TIN: NormalizeTIN(tin), Name: name}
}

// NormalizeTIN strips the hyphens partners format TINs with.
func NormalizeTIN(tin string) string {
	return strings.ReplaceAll(tin, "-", "")
}

// SetTIN replaces the TIN, applying the same normalization as construction.
func (m *MedicalGroup) SetTIN(tin string) {
	m.TIN = NormalizeTIN(tin)
}

// NameMissing reports whether the group's name is effectively absent. Most
// feeds set the name as '-', and missing names are sometimes populated with
// the TIN behind a '-' prefix, so any '-'-prefixed value counts as missing
// alongside the empty string.
func (m *MedicalGroup) NameMissing() bool {
	if m == nil || m.Name == "" {
		return true
	}
	return strings.HasPrefix(m.Name, "-")
}

// Office returns the office with the given uid, or nil.
func (m *MedicalGroup) Office(uid string) *Office {
	for i := range m.Offices {
		if m.Offices[i].UID == uid {
			return &m.Offices[i]
		}
	}
	return nil
}

// DataComplete reports whether the group has a real name, a set address and
// a TIN.
func (m *MedicalGroup) DataComplete() bool {
	return !m.NameMissing() && m.Address.IsSet() && m.TIN != ""
}

// Validate enforces the boundary field bounds.
func (m *MedicalGroup) Validate() error {
	if err := required("medical_group.tin", m.TIN); err != nil {
		return err
	}
	if err := maxLen("medical_group.tin", m.TIN, 20); err != nil {
		return err
	}
	if err := required("medical_group.name", m.Name); err != nil {
		return err
	}
	if err := maxLen("medical_group.name", m.Name, 200); err != nil {
		return err
	}
	if m.Address != nil {
		if err := m.Address.Validate(); err != nil {
			return err
		}
	}
	for i := range m.Offices {
		if err := m.Offices[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Office is a practice location owned by exactly one medical group.
type Office struct {
	UID  string `json:"uid"`
	Name string `json:"name"`

	Address *Address `json:"address,omitempty"`
}

// Validate enforces the boundary field bounds.
func (o *Office) Validate() error {
	if err := maxLen("office.uid", o.UID, 50); err != nil {
		return err
	}
	if err := maxLen("office.name", o.Name, 200); err != nil {
		return err
	}
	if o.Address != nil {
		return o.Address.Validate()
	}
	return nil
}
