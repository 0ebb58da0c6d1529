package pipeline

import (
	"github.com/stellarhealth/feedload/internal/etlerr"
	"github.com/stellarhealth/feedload/internal/mapping"
	"github.com/stellarhealth/feedload/internal/model"
	"github.com/stellarhealth/feedload/internal/tabular"
)

// buildClaims assembles claims from a medical- or pharmacy-claims table.
// Feeds carry one row per claim line, so rows sharing a claim key merge
// their diagnosis and procedure codes into the first occurrence. The second
// return value is false when the file crossed the row-error threshold.
func buildClaims(spec *mapping.Spec, table *tabular.Table, fileName string, acc *Accumulator) ([]*model.Claim, bool) {
	dropCode := etlerr.E007ClaimDataDropped
	build := mapping.ClaimFromRow
	if spec.Kind == mapping.KindRxClaims {
		dropCode = etlerr.E025RxClaimDataDropped
		build = mapping.RxClaimFromRow
	}

	var claims []*model.Claim
	byKey := make(map[string]*model.Claim, table.Len())

	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		if row.IsEmpty() {
			continue
		}
		c, err := build(spec, row)
		if err != nil {
			if !acc.RowError(dropCode.Display(err.Error(), etlerr.WithScope(fileName))) {
				acc.Detail(etlerr.TooManyErrors(fileName))
				return claims, false
			}
			continue
		}
		if prev, ok := byKey[c.Key()]; ok {
			prev.MergeCodesFrom(c)
			prev.DrugFills = append(prev.DrugFills, c.DrugFills...)
			continue
		}
		if err := c.Validate(); err != nil {
			if !acc.RowError(dropCode.Display(err.Error(), etlerr.WithScope(fileName))) {
				acc.Detail(etlerr.TooManyErrors(fileName))
				return claims, false
			}
			continue
		}
		byKey[c.Key()] = c
		claims = append(claims, c)
	}
	return claims, true
}

// patientsFromClaims groups claims into claims-only patient stubs, one per
// member, preserving first-seen member order.
func patientsFromClaims(claims []*model.Claim, planID int64) []*model.Patient {
	var patients []*model.Patient
	byMember := make(map[string]*model.Patient)
	for _, c := range claims {
		p, ok := byMember[c.MemberNumber]
		if !ok {
			p = &model.Patient{MemberNumber: c.MemberNumber, PlanID: planID}
			byMember[c.MemberNumber] = p
			patients = append(patients, p)
		}
		p.Claims = append(p.Claims, *c)
	}
	return patients
}
