// Package pipeline drives a feed file through the phases: detect the
// mapping, read the table, build canonical structs, reconcile against the
// previously-known state, submit, and persist the new state.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stellarhealth/feedload/internal/config"
	"github.com/stellarhealth/feedload/internal/etlerr"
	"github.com/stellarhealth/feedload/internal/mapping"
	"github.com/stellarhealth/feedload/internal/model"
	"github.com/stellarhealth/feedload/internal/reconcile"
	"github.com/stellarhealth/feedload/internal/statestore"
	"github.com/stellarhealth/feedload/internal/submit"
	"github.com/stellarhealth/feedload/internal/tabular"
)

// submitBatchSize is how many patients go into one update call. Submissions
// fan out across batches, each with its own retry state.
const submitBatchSize = 500

// Result summarizes one feed run.
type Result struct {
	RunID    string
	FilePath string
	FileType string

	RowsRead  int
	Skipped   bool
	Committed bool

	Details []string

	Patients     *model.PatientUpdateSummary
	PCOR         *model.PCORUpdateSummary
	ADT          *model.ADTUpdateSummary
	Appointments *model.AppointmentUpdateSummary

	DurationTotal time.Duration
}

// datasetForKind ties each mapping kind to the dataset type it feeds.
func datasetForKind(k mapping.Kind) string {
	switch k {
	case mapping.KindADT:
		return config.DatasetADT
	case mapping.KindAppointments:
		return config.DatasetAppointments
	default:
		return config.DatasetPatients
	}
}

// Run executes the full pipeline for one file: detect → read → build →
// reconcile → submit → persist state.
func Run(ctx context.Context, store *statestore.Store, client *submit.Client, log zerolog.Logger, cfg *config.Config, specs []*mapping.Spec) (*Result, error) {
	totalStart := time.Now()
	fileName := filepath.Base(cfg.FilePath)
	runID := uuid.New().String()
	log = log.With().Str("run_id", runID).Logger()
	acc := &Accumulator{}
	result := &Result{RunID: runID, FilePath: cfg.FilePath}

	raw, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		return nil, &PipelineError{Phase: "read", Err: err}
	}
	contents := string(raw)

	// Phase 1: Detect which mapping the file matches.
	spec := detect(specs, contents, cfg.DatasetType, acc, fileName)
	if spec == nil {
		result.Skipped = true
		result.Details = acc.Details()
		result.DurationTotal = time.Since(totalStart)
		log.Warn().Str("file", fileName).Msg("no mapping matched, file skipped")
		return result, nil
	}
	result.FileType = spec.FileType
	log.Info().Str("file", fileName).Str("file_type", spec.FileType).Msg("mapping detected")

	// PCOR runs consume patient-shaped files through the PCOR endpoint.
	wantDataset := cfg.DatasetType
	if wantDataset == config.DatasetPCOR {
		wantDataset = config.DatasetPatients
	}
	if datasetForKind(spec.Kind) != wantDataset {
		acc.Detail(etlerr.DataSetSkipped(fmt.Sprintf(
			"file %s matched %s, which does not feed dataset type %s",
			fileName, spec.FileType, cfg.DatasetType)))
		result.Skipped = true
		result.Details = acc.Details()
		result.DurationTotal = time.Since(totalStart)
		return result, nil
	}

	// Phase 2: Read the table.
	var table *tabular.Table
	if len(spec.FixedWidths) > 0 {
		table, err = tabular.ReadFixedWidth(ctx, contents, spec.FixedWidths, spec.ReadOptions())
	} else {
		table, err = tabular.ReadDelimited(ctx, contents, spec.ReadOptions())
	}
	if err != nil {
		return nil, &PipelineError{Phase: "read", Err: err}
	}
	result.RowsRead = table.Len()
	log.Info().Int("rows", table.Len()).Msg("table read")

	// Phases 3-6 depend on what kind of data the file holds.
	switch spec.Kind {
	case mapping.KindDemographics, mapping.KindClaims, mapping.KindRxClaims:
		if cfg.DatasetType == config.DatasetPCOR {
			err = runPCOR(ctx, store, client, log, cfg, spec, table, fileName, acc, result)
		} else {
			err = runPatients(ctx, store, client, log, cfg, spec, table, fileName, acc, result)
		}
	case mapping.KindADT:
		err = runADT(ctx, client, log, cfg, spec, table, fileName, acc, result)
	case mapping.KindAppointments:
		err = runAppointments(ctx, client, log, cfg, spec, table, fileName, acc, result)
	case mapping.KindRoster:
		err = runRoster(ctx, store, client, log, cfg, spec, contents, fileName, acc, result)
	default:
		err = &PipelineError{Phase: "build", Err: fmt.Errorf("unsupported mapping kind %q", spec.Kind)}
	}
	if err != nil {
		return nil, err
	}

	result.Details = acc.Details()
	result.DurationTotal = time.Since(totalStart)
	log.Info().
		Str("file_type", result.FileType).
		Int("rows_read", result.RowsRead).
		Bool("committed", result.Committed).
		Int("details", len(result.Details)).
		Str("total_duration", result.DurationTotal.String()).
		Msg("pipeline complete")
	return result, nil
}

// detect picks the mapping for the file. Delimited files match by header;
// headerless fixed-width layouts fall back to the dataset type they feed.
func detect(specs []*mapping.Spec, contents, datasetType string, acc *Accumulator, fileName string) *mapping.Spec {
	for _, s := range specs {
		if len(s.FixedWidths) > 0 {
			continue
		}
		if header, err := tabular.Header(contents, s.Sep()); err == nil && s.MatchesHeader(header) {
			return s
		}
	}
	for _, s := range specs {
		if len(s.FixedWidths) > 0 && datasetForKind(s.Kind) == datasetType {
			return s
		}
	}
	acc.Detail(etlerr.E061UnknownFile.Display(
		fmt.Sprintf("file %s matched no known mapping", fileName),
		etlerr.WithAction("file skipped")))
	return nil
}

// decideCommit applies the dry-run flag and, for auto-committed dataset
// types, the blocking-error allow-list.
func decideCommit(cfg *config.Config, acc *Accumulator) bool {
	if cfg.DryRun {
		return false
	}
	if !cfg.AutoCommit {
		return true
	}
	blocked := etlerr.AutoCommitBlockingErrors(cfg.DatasetType, acc.Details())
	if len(blocked) > 0 {
		acc.Detail(etlerr.DataSetSkipped(fmt.Sprintf(
			"auto-commit blocked by %v", blocked)))
		return false
	}
	return true
}

func runPatients(ctx context.Context, store *statestore.Store, client *submit.Client, log zerolog.Logger, cfg *config.Config, spec *mapping.Spec, table *tabular.Table, fileName string, acc *Accumulator, result *Result) error {
	var drafts []*model.Patient
	switch spec.Kind {
	case mapping.KindDemographics:
		drafts, _ = buildPatients(spec, table, cfg.PlanID, cfg.RestrictToTIN, fileName, acc)
	default:
		claims, _ := buildClaims(spec, table, fileName, acc)
		drafts = patientsFromClaims(claims, cfg.PlanID)
	}
	log.Info().Int("patients", len(drafts)).Msg("patients built")

	stored, err := store.LoadPatients(ctx, cfg.PlanID)
	if err != nil {
		return &PipelineError{Phase: "reconcile", Err: err}
	}

	summary, accepted := reconcilePatients(drafts, stored, fileName, acc)
	commit := decideCommit(cfg, acc)

	submitted, err := submitPatientBatches(ctx, client, accepted, commit)
	if err != nil {
		acc.Detail(etlerr.E005PatientUpdateEndpointFailed.Display(err.Error(), etlerr.WithScope(fileName)))
		return &PipelineError{Phase: "submit", Err: err}
	}
	summary.Merge(submitted)

	if spec.Kind == mapping.KindDemographics {
		if err := updateRoster(ctx, store, client, cfg, accepted, commit, fileName, acc, summary); err != nil {
			return err
		}
	}

	if commit {
		for _, p := range accepted {
			stored[p.MemberNumber] = p
		}
		merged := make([]*model.Patient, 0, len(stored))
		for _, p := range stored {
			merged = append(merged, p)
		}
		if err := store.ReplacePatients(ctx, cfg.PlanID, merged); err != nil {
			return &PipelineError{Phase: "persist", Err: err}
		}
	}

	result.Patients = summary
	result.Committed = commit
	return nil
}

// runPCOR drives a patient-shaped file through the PCOR update endpoint.
// The classification and placeholder policy match the patients path; the
// endpoint additionally reconciles the attached PCOR measures, so the
// summary shape differs and no roster pass runs.
func runPCOR(ctx context.Context, store *statestore.Store, client *submit.Client, log zerolog.Logger, cfg *config.Config, spec *mapping.Spec, table *tabular.Table, fileName string, acc *Accumulator, result *Result) error {
	var drafts []*model.Patient
	switch spec.Kind {
	case mapping.KindDemographics:
		drafts, _ = buildPatients(spec, table, cfg.PlanID, cfg.RestrictToTIN, fileName, acc)
	default:
		claims, _ := buildClaims(spec, table, fileName, acc)
		drafts = patientsFromClaims(claims, cfg.PlanID)
	}
	log.Info().Int("patients", len(drafts)).Msg("pcor patients built")

	stored, err := store.LoadPatients(ctx, cfg.PlanID)
	if err != nil {
		return &PipelineError{Phase: "reconcile", Err: err}
	}

	_, accepted := reconcilePatients(drafts, stored, fileName, acc)
	commit := decideCommit(cfg, acc)

	merged := &model.PCORUpdateSummary{}
	for start := 0; start < len(accepted); start += submitBatchSize {
		end := start + submitBatchSize
		if end > len(accepted) {
			end = len(accepted)
		}
		summary, err := client.UpdatePCORPatients(ctx, accepted[start:end], commit)
		if err != nil {
			acc.Detail(etlerr.E036SummaryEndpointFailed.Display(err.Error(), etlerr.WithScope(fileName)))
			return &PipelineError{Phase: "submit", Err: err}
		}
		merged.Merge(summary)
	}

	result.PCOR = merged
	result.Committed = commit
	return nil
}

// updateRoster runs the orphaning pass against a demographics feed's full
// member set. An empty feed set short-circuits: a failed parse must never
// read as "everyone left".
func updateRoster(ctx context.Context, store *statestore.Store, client *submit.Client, cfg *config.Config, accepted []*model.Patient, commit bool, fileName string, acc *Accumulator, summary *model.PatientUpdateSummary) error {
	feed := make(map[string]struct{}, len(accepted))
	var members []string
	for _, p := range accepted {
		if _, ok := feed[p.MemberNumber]; !ok {
			feed[p.MemberNumber] = struct{}{}
			members = append(members, p.MemberNumber)
		}
	}
	if len(feed) == 0 {
		acc.Detail(etlerr.W033RosterOrphaningSkipped.Display(
			"no members extracted from feed", etlerr.WithScope(fileName)))
		return nil
	}

	var candidates []string
	if cfg.RestrictToTIN != "" {
		known, err := store.PatientsForTIN(ctx, cfg.PlanID, model.NormalizeTIN(cfg.RestrictToTIN))
		if err != nil {
			return &PipelineError{Phase: "roster", Err: err}
		}
		candidates = reconcile.RosterDiffForTIN(feed, known, model.NormalizeTIN(cfg.RestrictToTIN))
	} else {
		known, err := store.KnownMemberNumbers(ctx, cfg.PlanID)
		if err != nil {
			return &PipelineError{Phase: "roster", Err: err}
		}
		candidates = reconcile.RosterDiff(feed, known)
	}

	summary.OrphanedCount += int64(len(candidates))
	summary.OrphanedMemberNumbers = append(summary.OrphanedMemberNumbers, candidates...)
	acc.Detail(etlerr.I038RosterUsed.Display(
		fmt.Sprintf("%d members in roster, %d orphan candidates", len(feed), len(candidates)),
		etlerr.WithScope(fileName), etlerr.WithAction("roster applied")))

	if commit {
		rosterSummary, err := client.UpdateRoster(ctx, members, commit)
		if err != nil {
			acc.Detail(etlerr.E034OrphaningFailed.Display(err.Error(), etlerr.WithScope(fileName)))
			return &PipelineError{Phase: "roster", Err: err}
		}
		summary.AbsorbRoster(rosterSummary)
		if err := store.ReplaceRoster(ctx, cfg.PlanID, feed); err != nil {
			return &PipelineError{Phase: "roster", Err: err}
		}
	}
	return nil
}

// submitPatientBatches fans the batch out across independent update calls
// and merges the returned summaries in arrival order.
func submitPatientBatches(ctx context.Context, client *submit.Client, patients []*model.Patient, commit bool) (*model.PatientUpdateSummary, error) {
	merged := &model.PatientUpdateSummary{}
	if len(patients) == 0 {
		return merged, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	for start := 0; start < len(patients); start += submitBatchSize {
		end := start + submitBatchSize
		if end > len(patients) {
			end = len(patients)
		}
		batch := patients[start:end]
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := client.UpdatePatients(ctx, batch, commit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			merged.Merge(summary)
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

func runADT(ctx context.Context, client *submit.Client, log zerolog.Logger, cfg *config.Config, spec *mapping.Spec, table *tabular.Table, fileName string, acc *Accumulator, result *Result) error {
	events, ok := buildADTEvents(spec, table, cfg.PlanID, fileName, acc)
	if !ok {
		acc.Detail(etlerr.E015ADTFileSkipped.Display(
			"too many row errors", etlerr.WithScope(fileName)))
	}
	log.Info().Int("events", len(events)).Msg("adt events built")

	commit := decideCommit(cfg, acc)
	summary, err := client.UpdateADTEvents(ctx, events, commit)
	if err != nil {
		acc.Detail(etlerr.E006ADTEndpointFailed.Display(err.Error(), etlerr.WithScope(fileName)))
		return &PipelineError{Phase: "submit", Err: err}
	}
	result.ADT = summary
	result.Committed = commit
	return nil
}

func runAppointments(ctx context.Context, client *submit.Client, log zerolog.Logger, cfg *config.Config, spec *mapping.Spec, table *tabular.Table, fileName string, acc *Accumulator, result *Result) error {
	appts, ok := buildAppointments(spec, table, cfg.PlanID, fileName, acc)
	if !ok {
		acc.Detail(etlerr.E068AppointmentsFileSkipped.Display(
			"too many row errors", etlerr.WithScope(fileName)))
	}
	log.Info().Int("appointments", len(appts)).Msg("appointments built")

	commit := decideCommit(cfg, acc)
	summary, err := client.UpdateAppointments(ctx, appts, commit)
	if err != nil {
		acc.Detail(etlerr.E067AppointmentEndpointFailed.Display(err.Error(), etlerr.WithScope(fileName)))
		return &PipelineError{Phase: "submit", Err: err}
	}
	result.Appointments = summary
	result.Committed = commit
	return nil
}

// runRoster handles a bare roster file: a delimited list of the member
// numbers currently valid for the plan, with no demographics to import.
func runRoster(ctx context.Context, store *statestore.Store, client *submit.Client, log zerolog.Logger, cfg *config.Config, spec *mapping.Spec, contents, fileName string, acc *Accumulator, result *Result) error {
	memberColumn := spec.Column(mapping.FieldMemberNumber)
	feed, err := tabular.ValuesFromColumn(ctx, contents, memberColumn, spec.Sep())
	if err != nil {
		return &PipelineError{Phase: "read", Err: err}
	}
	delete(feed, "")
	log.Info().Int("members", len(feed)).Msg("roster read")

	summary := &model.PatientUpdateSummary{}
	commit := decideCommit(cfg, acc)
	members := make([]*model.Patient, 0, len(feed))
	for m := range feed {
		members = append(members, &model.Patient{MemberNumber: m, PlanID: cfg.PlanID})
	}
	if err := updateRoster(ctx, store, client, cfg, members, commit, fileName, acc, summary); err != nil {
		return err
	}

	result.Patients = summary
	result.Committed = commit
	return nil
}
