package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stellarhealth/feedload/internal/etlerr"
	"github.com/stellarhealth/feedload/internal/mapping"
	"github.com/stellarhealth/feedload/internal/model"
	"github.com/stellarhealth/feedload/internal/reconcile"
	"github.com/stellarhealth/feedload/internal/tabular"
)

// buildPatients assembles one patient per demographics row. Repeated member
// numbers keep the first row; later rows are skipped with a warning. The
// second return value is false when the file crossed the row-error
// threshold and was abandoned.
func buildPatients(spec *mapping.Spec, table *tabular.Table, planID int64, restrictTIN, fileName string, acc *Accumulator) ([]*model.Patient, bool) {
	var patients []*model.Patient
	seen := make(map[string]struct{}, table.Len())

	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		if row.IsEmpty() {
			continue
		}
		p, err := mapping.PatientFromRow(spec, row, planID)
		if err != nil {
			if !acc.RowError(etlerr.E004PatientDataDropped.Display(err.Error(), etlerr.WithScope(fileName))) {
				acc.Detail(etlerr.TooManyErrors(fileName))
				return patients, false
			}
			continue
		}
		if _, dup := seen[p.MemberNumber]; dup {
			acc.Detail(etlerr.E012PatientSecondRowSkipped.Display(
				fmt.Sprintf("member %s appears more than once", p.MemberNumber),
				etlerr.WithScope(fileName)))
			continue
		}
		seen[p.MemberNumber] = struct{}{}
		p.RestrictToTIN = model.NormalizeTIN(restrictTIN)
		patients = append(patients, p)
	}
	return patients, true
}

// identityKey indexes stored patients by demographic identity for
// member-number change detection.
func identityKey(p *model.Patient) string {
	dob := ""
	if p.DateOfBirth != nil {
		dob = p.DateOfBirth.Format("2006-01-02")
	}
	return strings.ToUpper(p.FirstName) + "|" + strings.ToUpper(p.LastName) + "|" + p.Gender + "|" + dob
}

// reconcilePatients classifies each patient against the stored state and
// folds the results into one summary. Policy decisions live here: an
// incomplete record or a forced-TIN conflict is imported as a placeholder
// rather than dropped, and an invalid record is dropped with a coded
// detail.
func reconcilePatients(patients []*model.Patient, stored map[string]*model.Patient, fileName string, acc *Accumulator) (*model.PatientUpdateSummary, []*model.Patient) {
	summary := &model.PatientUpdateSummary{
		PatientsPerPlan: make(map[string]int64),
	}

	identities := make(map[string]*model.Patient, len(stored))
	for _, sp := range stored {
		if sp.FirstName != "" || sp.LastName != "" {
			identities[identityKey(sp)] = sp
		}
	}

	var accepted []*model.Patient
	for _, p := range patients {
		if missing := p.MissingSomeFields(); len(missing) > 0 {
			if p.MemberNumber == "" || p.PlanID == 0 {
				acc.RowError(etlerr.E004PatientDataDropped.Display(
					fmt.Sprintf("missing %s", strings.Join(missing, ", ")),
					etlerr.WithScope(fileName)))
				summary.NumDroppedPatients++
				continue
			}
			acc.Detail(etlerr.I039PatientImportedAsPlaceholder.Display(
				fmt.Sprintf("member %s missing %s", p.MemberNumber, strings.Join(missing, ", ")),
				etlerr.WithScope(fileName)))
			p.MakeOrphan()
			summary.NumPlaceholderPatients++
		}

		if p.AttributedTINDifferentThanForcedTIN() {
			acc.Detail(etlerr.I039PatientImportedAsPlaceholder.Display(
				fmt.Sprintf("member %s attributed to TIN %s, expected %s",
					p.MemberNumber, p.AttributedTIN(), p.RestrictToTIN),
				etlerr.WithScope(fileName)))
			p.MakeOrphan()
			summary.NumPlaceholderPatients++
		}

		if err := p.Validate(); err != nil {
			acc.RowError(etlerr.E004PatientDataDropped.Display(err.Error(), etlerr.WithScope(fileName)))
			summary.NumDroppedPatients++
			continue
		}

		if p.Shape() == model.ShapeComplete && p.Address == nil {
			acc.Detail(etlerr.W011PatientAddressMissing.Display(
				fmt.Sprintf("member %s", p.MemberNumber), etlerr.WithScope(fileName)))
		}

		prev := stored[p.MemberNumber]
		if p.OnlyClaims() {
			// A claims-only stub carries no demographics or attribution to
			// compare, so it merges into whatever is on file without the
			// change detection a demographics row gets.
			if prev == nil {
				summary.NumNewPatients++
			} else {
				summary.NumExistingPatients++
			}
		} else {
			c := reconcile.Classify(p, prev)
			countClassification(summary, acc, fileName, p, prev, c)

			if c.New {
				if twin, ok := identities[identityKey(p)]; ok && reconcile.MemberNumberChanged(p, twin) {
					acc.Detail(etlerr.W041MemberNumberChange.Display(
						fmt.Sprintf("member %s was previously %s", p.MemberNumber, twin.MemberNumber),
						etlerr.WithScope(fileName)))
					summary.NumChangedMemberNumber++
				}
			}
		}

		countClaims(summary, p)

		summary.NumValidPatients++
		summary.AllMemberNumbers = append(summary.AllMemberNumbers, p.MemberNumber)
		summary.PatientsPerPlan[strconv.FormatInt(p.PlanID, 10)]++
		accepted = append(accepted, p)
	}
	return summary, accepted
}

func countClassification(summary *model.PatientUpdateSummary, acc *Accumulator, fileName string, p, prev *model.Patient, c reconcile.Classification) {
	if c.New {
		summary.NumNewPatients++
	} else {
		summary.NumExistingPatients++
	}

	switch {
	case p.Provider != nil:
		summary.NumAttributedToProviderPatients++
		summary.AttributedToProviderMemberNumbers = append(
			summary.AttributedToProviderMemberNumbers, p.MemberNumber)
	case p.AttributedMedicalGroup != nil:
		summary.NumAttributedToMedicalGroupPatients++
		summary.AttributedToMedicalGroupMemberNumbers = append(
			summary.AttributedToMedicalGroupMemberNumbers, p.MemberNumber)
	}

	if c.MovedProviderToMedicalGroup {
		acc.Detail(etlerr.W042AttributionFromProviderToMG.Display(
			fmt.Sprintf("member %s", p.MemberNumber), etlerr.WithScope(fileName)))
	}
	if c.MovedMedicalGroupToProvider {
		acc.Detail(etlerr.W043AttributionFromMGToProvider.Display(
			fmt.Sprintf("member %s", p.MemberNumber), etlerr.WithScope(fileName)))
	}
	if c.DeorphanedToMedicalGroup {
		acc.Detail(etlerr.W044AttributionDeOrphanToMG.Display(
			fmt.Sprintf("member %s", p.MemberNumber), etlerr.WithScope(fileName)))
	}
	if c.DeorphanedToProvider {
		acc.Detail(etlerr.W045AttributionDeOrphan.Display(
			fmt.Sprintf("member %s", p.MemberNumber), etlerr.WithScope(fileName)))
	}
	if c.ProviderChangedSameMedicalGroup {
		acc.Detail(etlerr.W046AttributedProviderChanged.Display(
			fmt.Sprintf("member %s now with NPI %s", p.MemberNumber, p.NPI()),
			etlerr.WithScope(fileName)))
		summary.NumChangedProvider++
	}
	if c.DemographicsChanged {
		acc.Detail(etlerr.W048PatientDemographicsChanged.Display(
			fmt.Sprintf("member %s", p.MemberNumber), etlerr.WithScope(fileName)))
		summary.NumChangedDemographics++
	}
	if c.PlanChanged {
		acc.Detail(etlerr.W047PatientPlanChanged.Display(
			fmt.Sprintf("member %s moved to plan %d", p.MemberNumber, p.PlanID),
			etlerr.WithScope(fileName)))
		summary.NumChangedPlan++
	}

	if nc := reconcile.NetworkChangeFor(p, prev); nc != nil {
		summary.NetworkChanges = append(summary.NetworkChanges, *nc)
		if nc.ProviderNewToNetwork {
			if nc.ProviderNPI != "" {
				summary.NewNetworkNPIs = append(summary.NewNetworkNPIs, nc.ProviderNPI)
			}
			if nc.ToMedicalGroupTIN != "" {
				summary.NewNetworkTINs = append(summary.NewNetworkTINs, nc.ToMedicalGroupTIN)
			}
		}
	}
}

func countClaims(summary *model.PatientUpdateSummary, p *model.Patient) {
	if len(p.Claims) == 0 {
		return
	}
	summary.NumPatientsWithNewClaims++
	for i := range p.Claims {
		c := &p.Claims[i]
		summary.NumNewClaims++
		if len(c.Procedures) > 0 {
			summary.NumClaimsWithNewProcedures++
		}
		if len(c.Diagnoses) > 0 {
			summary.NumClaimsWithNewDiagnoses++
		}
		if len(c.DrugFills) > 0 {
			summary.NumClaimsWithNewDrugFills++
		}
		if c.FromDate != nil {
			summary.NewClaimsMinDate = earliest(summary.NewClaimsMinDate, c.FromDate)
			summary.NewClaimsMaxDate = latest(summary.NewClaimsMaxDate, c.FromDate)
		}
		for j := range c.Diagnoses {
			countDiagnosis(summary, &c.Diagnoses[j])
		}
	}
}

func earliest(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.Before(*a)) {
		return b
	}
	return a
}

func latest(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.After(*a)) {
		return b
	}
	return a
}

// countDiagnosis tracks diagnosis code quality. Feeds are expected to label
// codes ICD9 or ICD10; an unlabeled code is merely uncertain while an
// unrecognized label is invalid.
func countDiagnosis(summary *model.PatientUpdateSummary, d *model.Diagnosis) {
	switch strings.ToUpper(strings.TrimSpace(d.CodeType)) {
	case "ICD9", "ICD-9", "09":
		summary.NumICD9Diagnoses++
	case "ICD10", "ICD-10", "10":
		summary.NumICD10Diagnoses++
	case "":
		summary.NumUncertainDiagnoses++
		if summary.UncertainDiagnoses == nil {
			summary.UncertainDiagnoses = make(map[string]int64)
		}
		summary.UncertainDiagnoses[d.Code]++
	default:
		summary.NumInvalidDiagnoses++
		if summary.InvalidDiagnoses == nil {
			summary.InvalidDiagnoses = make(map[string]int64)
		}
		summary.InvalidDiagnoses[d.Code]++
	}
}
