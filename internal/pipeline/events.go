package pipeline

import (
	"fmt"

	"github.com/stellarhealth/feedload/internal/etlerr"
	"github.com/stellarhealth/feedload/internal/mapping"
	"github.com/stellarhealth/feedload/internal/model"
	"github.com/stellarhealth/feedload/internal/tabular"
)

// buildADTEvents assembles ADT events, deduplicating by event hash so a
// feed that repeats an encounter does not double-report it. The second
// return value is false when the file crossed the row-error threshold.
func buildADTEvents(spec *mapping.Spec, table *tabular.Table, planID int64, fileName string, acc *Accumulator) ([]*model.ADTEvent, bool) {
	var events []*model.ADTEvent
	seen := make(map[string]struct{}, table.Len())

	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		if row.IsEmpty() {
			continue
		}
		e, err := mapping.ADTEventFromRow(spec, row, planID)
		if err != nil {
			if !acc.RowError(etlerr.E039ADTEventDataDropped.Display(err.Error(), etlerr.WithScope(fileName))) {
				acc.Detail(etlerr.TooManyErrors(fileName))
				return events, false
			}
			continue
		}
		if e.FacilityName == "" {
			acc.Detail(etlerr.W065ADTFacilityNameMissing.Display(
				fmt.Sprintf("event %s", e.EventHash()), etlerr.WithScope(fileName)))
		}
		if err := e.Validate(); err != nil {
			if !acc.RowError(etlerr.E039ADTEventDataDropped.Display(err.Error(), etlerr.WithScope(fileName))) {
				acc.Detail(etlerr.TooManyErrors(fileName))
				return events, false
			}
			continue
		}
		hash := e.EventHash()
		if _, dup := seen[hash]; dup {
			acc.Detail(etlerr.W018DuplicateEvents.Display(
				fmt.Sprintf("event %s", hash), etlerr.WithScope(fileName)))
			continue
		}
		seen[hash] = struct{}{}
		events = append(events, e)
	}
	return events, true
}

// buildAppointments assembles external appointments. Rows missing the
// matching-confidence demographics still import, with a warning that
// downstream matching is uncertain.
func buildAppointments(spec *mapping.Spec, table *tabular.Table, planID int64, fileName string, acc *Accumulator) ([]*model.ExternalAppointment, bool) {
	var appts []*model.ExternalAppointment

	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		if row.IsEmpty() {
			continue
		}
		a, err := mapping.AppointmentFromRow(spec, row, planID)
		if err != nil {
			if !acc.RowError(etlerr.E066ExternalAppointmentDropped.Display(err.Error(), etlerr.WithScope(fileName))) {
				acc.Detail(etlerr.TooManyErrors(fileName))
				return appts, false
			}
			continue
		}
		if err := a.Validate(); err != nil {
			if !acc.RowError(etlerr.E066ExternalAppointmentDropped.Display(err.Error(), etlerr.WithScope(fileName))) {
				acc.Detail(etlerr.TooManyErrors(fileName))
				return appts, false
			}
			continue
		}
		if a.Gender == "" || a.DateOfBirth == nil {
			acc.Detail(etlerr.W069UncertainAppointmentDemographicData.Display(
				fmt.Sprintf("%s %s", a.FirstName, a.LastName), etlerr.WithScope(fileName)))
		}
		appts = append(appts, a)
	}
	return appts, true
}
