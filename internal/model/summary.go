package model

import "time"

// PatientUpdateSummary captures what data would change for a patient batch
// update. The update endpoint returns one per call; the aggregator merges
// them across an arbitrarily large batch.
type PatientUpdateSummary struct {
	NumValidPatients int64 `json:"num_valid_patients"`

	NumNewPatients         int64 `json:"num_new_patients"`
	NumExistingPatients    int64 `json:"num_existing_patients"`
	NumDroppedPatients     int64 `json:"num_dropped_patients"`
	NumPlaceholderPatients int64 `json:"num_placeholder_patients"`

	NumAttributedToProviderPatients     int64 `json:"num_attributed_to_provider_patients"`
	NumAttributedToMedicalGroupPatients int64 `json:"num_attributed_to_medical_group_patients"`

	// NumChangedMemberNumber counts the tricky situation where an existing
	// [first name, last name, gender, date of birth] identity shows up with
	// a different member number.
	NumChangedMemberNumber int64 `json:"num_changed_member_number"`
	NumChangedProvider     int64 `json:"num_changed_provider"`

	NewNetworkNPIs []string `json:"new_network_npis"`
	NewNetworkTINs []string `json:"new_network_tins"`

	NumChangedDemographics int64 `json:"num_changed_demographics"`
	NumChangedPlan         int64 `json:"num_changed_plan"`

	NumNewClaims             int64 `json:"num_new_claims"`
	NumPatientsWithNewClaims int64 `json:"num_patients_with_new_claims"`

	NewClaimsMinDate *time.Time `json:"new_claims_min_date,omitempty"`
	NewClaimsMaxDate *time.Time `json:"new_claims_max_date,omitempty"`

	NumClaimsWithNewProcedures int64 `json:"num_claims_with_new_procedures"`
	NumClaimsWithNewDiagnoses  int64 `json:"num_claims_with_new_diagnoses"`
	NumClaimsWithNewDrugFills  int64 `json:"num_claims_with_new_drug_fills"`

	// Details holds the ordered human-readable anomaly log, one coded
	// entry per non-fatal problem encountered during the batch.
	Details []string `json:"details"`

	NetworkChanges []NetworkChange `json:"network_changes"`

	AllMemberNumbers                       []string `json:"all_member_numbers"`
	AttributedToProviderMemberNumbers      []string `json:"attributed_to_provider_member_numbers"`
	AttributedToMedicalGroupMemberNumbers  []string `json:"attributed_to_medical_group_member_numbers"`
	OrphanedMemberNumbers                  []string `json:"orphaned_member_numbers"`
	OrphanedCount                          int64    `json:"orphaned_count"`

	NumICD9Diagnoses      int64            `json:"num_icd9_diagnoses"`
	NumICD10Diagnoses     int64            `json:"num_icd10_diagnoses"`
	NumInvalidDiagnoses   int64            `json:"num_invalid_diagnoses"`
	NumUncertainDiagnoses int64            `json:"num_uncertain_diagnoses"`
	InvalidDiagnoses      map[string]int64 `json:"invalid_diagnoses,omitempty"`
	UncertainDiagnoses    map[string]int64 `json:"uncertain_diagnoses,omitempty"`

	PatientsPerPlan map[string]int64 `json:"patients_per_plan,omitempty"`
}

// Merge folds another summary into this one. Counters add, so merging is
// associative and commutative for them; detail lists and network changes
// concatenate in arrival order.
func (s *PatientUpdateSummary) Merge(other *PatientUpdateSummary) {
	s.NumValidPatients += other.NumValidPatients
	s.NumNewPatients += other.NumNewPatients
	s.NumExistingPatients += other.NumExistingPatients
	s.NumDroppedPatients += other.NumDroppedPatients
	s.NumPlaceholderPatients += other.NumPlaceholderPatients
	s.NumAttributedToProviderPatients += other.NumAttributedToProviderPatients
	s.NumAttributedToMedicalGroupPatients += other.NumAttributedToMedicalGroupPatients
	s.NumChangedMemberNumber += other.NumChangedMemberNumber
	s.NumChangedProvider += other.NumChangedProvider
	s.NumChangedDemographics += other.NumChangedDemographics
	s.NumChangedPlan += other.NumChangedPlan
	s.NumNewClaims += other.NumNewClaims
	s.NumPatientsWithNewClaims += other.NumPatientsWithNewClaims
	s.NumClaimsWithNewProcedures += other.NumClaimsWithNewProcedures
	s.NumClaimsWithNewDiagnoses += other.NumClaimsWithNewDiagnoses
	s.NumClaimsWithNewDrugFills += other.NumClaimsWithNewDrugFills
	s.NumICD9Diagnoses += other.NumICD9Diagnoses
	s.NumICD10Diagnoses += other.NumICD10Diagnoses
	s.NumInvalidDiagnoses += other.NumInvalidDiagnoses
	s.NumUncertainDiagnoses += other.NumUncertainDiagnoses
	s.OrphanedCount += other.OrphanedCount

	s.NewClaimsMinDate = minDate(s.NewClaimsMinDate, other.NewClaimsMinDate)
	s.NewClaimsMaxDate = maxDate(s.NewClaimsMaxDate, other.NewClaimsMaxDate)

	s.NewNetworkNPIs = append(s.NewNetworkNPIs, other.NewNetworkNPIs...)
	s.NewNetworkTINs = append(s.NewNetworkTINs, other.NewNetworkTINs...)
	s.Details = append(s.Details, other.Details...)
	s.NetworkChanges = append(s.NetworkChanges, other.NetworkChanges...)
	s.AllMemberNumbers = append(s.AllMemberNumbers, other.AllMemberNumbers...)
	s.AttributedToProviderMemberNumbers = append(
		s.AttributedToProviderMemberNumbers, other.AttributedToProviderMemberNumbers...)
	s.AttributedToMedicalGroupMemberNumbers = append(
		s.AttributedToMedicalGroupMemberNumbers, other.AttributedToMedicalGroupMemberNumbers...)
	s.OrphanedMemberNumbers = append(s.OrphanedMemberNumbers, other.OrphanedMemberNumbers...)

	s.InvalidDiagnoses = mergeCounts(s.InvalidDiagnoses, other.InvalidDiagnoses)
	s.UncertainDiagnoses = mergeCounts(s.UncertainDiagnoses, other.UncertainDiagnoses)
	s.PatientsPerPlan = mergeCounts(s.PatientsPerPlan, other.PatientsPerPlan)
}

// AbsorbRoster folds a roster update's results into the patient summary.
func (s *PatientUpdateSummary) AbsorbRoster(r *RosterUpdateSummary) {
	s.AllMemberNumbers = append(s.AllMemberNumbers, r.AllMemberNumbers...)
	s.OrphanedMemberNumbers = append(s.OrphanedMemberNumbers, r.OrphanedMemberNumbers...)
	s.OrphanedCount += r.OrphanedCount
	s.PatientsPerPlan = mergeCounts(s.PatientsPerPlan, r.PatientsPerPlan)
	s.Details = append(s.Details, r.Details...)
}

// RosterUpdateSummary carries the results of a plan roster update.
type RosterUpdateSummary struct {
	AllMemberNumbers      []string         `json:"all_member_numbers"`
	OrphanedMemberNumbers []string         `json:"orphaned_member_numbers"`
	OrphanedCount         int64            `json:"orphaned_count"`
	PatientsPerPlan       map[string]int64 `json:"patients_per_plan,omitempty"`
	Details               []string         `json:"details"`
}

// ADTUpdateSummary summarizes inserting a batch of ADT events.
type ADTUpdateSummary struct {
	NumValidEvents    int64 `json:"num_valid_events"`
	NumNewEvents      int64 `json:"num_new_events"`
	NumExistingEvents int64 `json:"num_existing_events"`
	NumDroppedEvents  int64 `json:"num_dropped_events"`

	NewEventsMinDate *time.Time `json:"new_events_min_date,omitempty"`
	NewEventsMaxDate *time.Time `json:"new_events_max_date,omitempty"`

	Details []string `json:"details"`
}

// Merge folds another ADT summary into this one.
func (s *ADTUpdateSummary) Merge(other *ADTUpdateSummary) {
	s.NumValidEvents += other.NumValidEvents
	s.NumNewEvents += other.NumNewEvents
	s.NumExistingEvents += other.NumExistingEvents
	s.NumDroppedEvents += other.NumDroppedEvents
	s.NewEventsMinDate = minDate(s.NewEventsMinDate, other.NewEventsMinDate)
	s.NewEventsMaxDate = maxDate(s.NewEventsMaxDate, other.NewEventsMaxDate)
	s.Details = append(s.Details, other.Details...)
}

// AppointmentUpdateSummary summarizes inserting a batch of external
// appointments.
type AppointmentUpdateSummary struct {
	NumValidAppointments    int64 `json:"num_valid_appointments"`
	NumNewAppointments      int64 `json:"num_new_appointments"`
	NumExistingAppointments int64 `json:"num_existing_appointments"`
	NumDroppedAppointments  int64 `json:"num_dropped_appointments"`

	Details []string `json:"details"`
}

// Merge folds another appointment summary into this one.
func (s *AppointmentUpdateSummary) Merge(other *AppointmentUpdateSummary) {
	s.NumValidAppointments += other.NumValidAppointments
	s.NumNewAppointments += other.NumNewAppointments
	s.NumExistingAppointments += other.NumExistingAppointments
	s.NumDroppedAppointments += other.NumDroppedAppointments
	s.Details = append(s.Details, other.Details...)
}

// PCORUpdateSummary summarizes a PCOR patient batch update. It is decoded
// from the PCOR update endpoint's envelope; PCOR measure ingestion itself
// runs elsewhere.
type PCORUpdateSummary struct {
	NumValidPatients       int64 `json:"num_valid_patients"`
	NumNewPatients         int64 `json:"num_new_patients"`
	NumExistingPatients    int64 `json:"num_existing_patients"`
	NumDroppedPatients     int64 `json:"num_dropped_patients"`
	NumPlaceholderPatients int64 `json:"num_placeholder_patients"`

	NumCreatedSuspectedMedicalConditions  int64 `json:"num_created_suspected_medical_conditions"`
	NumExistingSuspectedMedicalConditions int64 `json:"num_existing_suspected_medical_conditions"`
	NumCreatedMedicationAdherenceStatuses int64 `json:"num_created_medication_adherence_statuses"`
	NumExistingMedicationAdherenceStatuses int64 `json:"num_existing_medication_adherence_statuses"`
	NumCreatedPCORValues                  int64 `json:"num_created_pcor_values"`
	NumExistingPCORValues                 int64 `json:"num_existing_pcor_values"`

	Details        []string        `json:"details"`
	NetworkChanges []NetworkChange `json:"network_changes"`
}

// Merge folds another PCOR summary into this one.
func (s *PCORUpdateSummary) Merge(other *PCORUpdateSummary) {
	s.NumValidPatients += other.NumValidPatients
	s.NumNewPatients += other.NumNewPatients
	s.NumExistingPatients += other.NumExistingPatients
	s.NumDroppedPatients += other.NumDroppedPatients
	s.NumPlaceholderPatients += other.NumPlaceholderPatients
	s.NumCreatedSuspectedMedicalConditions += other.NumCreatedSuspectedMedicalConditions
	s.NumExistingSuspectedMedicalConditions += other.NumExistingSuspectedMedicalConditions
	s.NumCreatedMedicationAdherenceStatuses += other.NumCreatedMedicationAdherenceStatuses
	s.NumExistingMedicationAdherenceStatuses += other.NumExistingMedicationAdherenceStatuses
	s.NumCreatedPCORValues += other.NumCreatedPCORValues
	s.NumExistingPCORValues += other.NumExistingPCORValues
	s.Details = append(s.Details, other.Details...)
	s.NetworkChanges = append(s.NetworkChanges, other.NetworkChanges...)
}

func mergeCounts(dst, src map[string]int64) map[string]int64 {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]int64, len(src))
	}
	for k, v := range src {
		dst[k] += v
	}
	return dst
}

func minDate(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

func maxDate(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
