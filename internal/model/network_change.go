package model

// NetworkChange describes one provider's attribution transition inside the
// network: the medical group the provider is moving to, the one it came
// from, and whether the provider is new to the network entirely.
//
// When FromMedicalGroupTIN equals ToMedicalGroupTIN nothing material has
// changed. The engine records the transition anyway; suppressing no-op
// changes is a policy choice that belongs to the caller.
type NetworkChange struct {
	ProviderNPI  string `json:"provider_npi"`
	ProviderName string `json:"provider_name"`

	ProviderNewToNetwork bool `json:"provider_new_to_network"`

	ToMedicalGroupTIN  string `json:"to_medical_group_tin"`
	ToMedicalGroupName string `json:"to_medical_group_name"`

	FromMedicalGroupTIN  string `json:"from_medical_group_tin"`
	FromMedicalGroupName string `json:"from_medical_group_name"`
}

// Material reports whether the transition changes the provider's group.
func (n *NetworkChange) Material() bool {
	return n.FromMedicalGroupTIN != n.ToMedicalGroupTIN
}
