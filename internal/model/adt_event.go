package model

import (
	"fmt"
	"time"
)

// ADTEvent is an admission/discharge/transfer event as ingested from a data
// feed.
type ADTEvent struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth"`

	MemberNumber string `json:"member_number,omitempty"`
	PlanID       int64  `json:"plan_id,omitempty"`

	// FacilityName tells us where this happened. Missing facility is
	// flagged as a warning during ingestion, not a validation failure.
	FacilityName string `json:"facility_name"`

	// FacilityType and MedicalGroupTIN are optional because the data feeds
	// are poor and they might not show up there at all.
	FacilityType    string `json:"facility_type,omitempty"`
	MedicalGroupTIN string `json:"medical_group_tin,omitempty"`

	EventType     string     `json:"event_type"`
	EventDate     *time.Time `json:"event_date"`
	EventTime     *time.Time `json:"event_time,omitempty"`
	EventDays     int64      `json:"event_days"`
	DischargeDate *time.Time `json:"discharge_date,omitempty"`

	DiagnosisCodes []string `json:"diagnosis_codes"`

	Note string `json:"note,omitempty"`

	// Hash overrides the derived event hash when the feed supplies one.
	Hash string `json:"event_hash,omitempty"`
}

// EventTimestamp combines the event date and time, defaulting the time to
// midnight when the feed did not provide one.
func (e *ADTEvent) EventTimestamp() time.Time {
	if e.EventDate == nil {
		return time.Time{}
	}
	d := *e.EventDate
	if e.EventTime == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	}
	t := *e.EventTime
	return time.Date(d.Year(), d.Month(), d.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, d.Location())
}

// EventHash is the event's identity. When the feed did not supply one it is
// derived deterministically from the patient identity, event type and
// timestamp so that re-ingesting the same feed produces the same hash.
func (e *ADTEvent) EventHash() string {
	if e.Hash != "" {
		return e.Hash
	}
	dob := ""
	if e.DateOfBirth != nil {
		dob = e.DateOfBirth.Format("2006-01-02")
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		e.FirstName, e.LastName, dob, e.EventType,
		e.EventTimestamp().Format("2006-01-02-15:04:05"))
}

// Validate enforces the required fields for an event.
func (e *ADTEvent) Validate() error {
	if err := required("adt_event.first_name", e.FirstName); err != nil {
		return err
	}
	if err := required("adt_event.last_name", e.LastName); err != nil {
		return err
	}
	if e.DateOfBirth == nil {
		return fmt.Errorf("adt_event.date_of_birth is required")
	}
	if err := required("adt_event.event_type", e.EventType); err != nil {
		return err
	}
	if e.EventDate == nil {
		return fmt.Errorf("adt_event.event_date is required")
	}
	return nil
}
