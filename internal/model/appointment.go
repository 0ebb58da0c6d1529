package model

import (
	"strings"
	"time"
)

// ExternalAppointment is a provider visit schedule event from a partner
// system of record. Gender and date of birth travel with the record purely
// to raise patient-matching confidence; they are never persisted downstream.
type ExternalAppointment struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Gender      string     `json:"gender,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`

	AppointmentDate     *time.Time `json:"appointment_date"`
	AppointmentTime     string     `json:"appointment_time"`
	AppointmentTimezone string     `json:"appointment_timezone"`
	AppointmentType     string     `json:"appointment_type"`
	AppointmentStatus   string     `json:"appointment_status"`

	ScheduledProviderNPI string `json:"scheduled_provider_npi"`

	MemberNumber        string `json:"member_number,omitempty"`
	MedicalMemberNumber string `json:"medical_member_number,omitempty"`

	ExternalAppointmentID string `json:"external_appointment_id,omitempty"`
	AppointmentLocationID string `json:"appointment_location_id,omitempty"`

	ExternalLastModifiedDate string     `json:"external_last_modified_date,omitempty"`
	ExternalCreatedDate      *time.Time `json:"external_created_date,omitempty"`

	PlanID int64 `json:"plan_id"`

	ExtraData map[string]string `json:"extra_data,omitempty"`
}

// NewExternalAppointment normalizes the scheduling fields the way the
// update endpoint expects them: type and status lower-cased at construction.
func NewExternalAppointment(a ExternalAppointment) *ExternalAppointment {
	a.AppointmentType = strings.ToLower(a.AppointmentType)
	a.AppointmentStatus = strings.ToLower(a.AppointmentStatus)
	return &a
}

// PersistenceFields returns the fields the downstream store should keep.
// Gender and date of birth are excluded: they add no value to the stored
// appointment and are only used for matching confidence.
func (a *ExternalAppointment) PersistenceFields() map[string]any {
	fields := map[string]any{
		"first_name":             a.FirstName,
		"last_name":              a.LastName,
		"appointment_date":       a.AppointmentDate,
		"appointment_time":       a.AppointmentTime,
		"appointment_timezone":   a.AppointmentTimezone,
		"appointment_type":       a.AppointmentType,
		"appointment_status":     a.AppointmentStatus,
		"scheduled_provider_npi": a.ScheduledProviderNPI,
		"member_number":          a.MemberNumber,
		"medical_member_number":  a.MedicalMemberNumber,
		"appointment_location_id": a.AppointmentLocationID,
		"plan_id":                a.PlanID,
	}
	if a.ExternalAppointmentID != "" {
		fields["external_appointment_id"] = a.ExternalAppointmentID
	}
	return fields
}

// Validate enforces the boundary field bounds.
func (a *ExternalAppointment) Validate() error {
	if err := required("appointment.first_name", a.FirstName); err != nil {
		return err
	}
	if err := maxLen("appointment.first_name", a.FirstName, 200); err != nil {
		return err
	}
	if err := required("appointment.last_name", a.LastName); err != nil {
		return err
	}
	if err := maxLen("appointment.last_name", a.LastName, 200); err != nil {
		return err
	}
	if err := maxLen("appointment.gender", a.Gender, 1); err != nil {
		return err
	}
	if err := required("appointment.scheduled_provider_npi", a.ScheduledProviderNPI); err != nil {
		return err
	}
	if err := maxLen("appointment.scheduled_provider_npi", a.ScheduledProviderNPI, 20); err != nil {
		return err
	}
	if err := maxLen("appointment.appointment_type", a.AppointmentType, 30); err != nil {
		return err
	}
	if err := maxLen("appointment.appointment_status", a.AppointmentStatus, 10); err != nil {
		return err
	}
	if err := maxLen("appointment.member_number", a.MemberNumber, 200); err != nil {
		return err
	}
	if err := maxLen("appointment.medical_member_number", a.MedicalMemberNumber, 200); err != nil {
		return err
	}
	if err := maxLen("appointment.external_appointment_id", a.ExternalAppointmentID, 200); err != nil {
		return err
	}
	return maxLen("appointment.appointment_location_id", a.AppointmentLocationID, 20)
}
