package statestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/stellarhealth/feedload/internal/model"
)

// Store reads and writes the previously-known state for a plan.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New wraps a pool.
func New(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{pool: pool, log: log.With().Str("component", "statestore").Logger()}
}

// LoadPatients returns the stored snapshot for every member of the plan.
func (s *Store) LoadPatients(ctx context.Context, planID int64) (map[string]*model.Patient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT snapshot FROM patient_snapshots WHERE plan_id = $1`, planID)
	if err != nil {
		return nil, fmt.Errorf("query patient snapshots: %w", err)
	}
	defer rows.Close()

	patients := make(map[string]*model.Patient)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan patient snapshot: %w", err)
		}
		var p model.Patient
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode patient snapshot: %w", err)
		}
		patients[p.MemberNumber] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read patient snapshots: %w", err)
	}
	return patients, nil
}

// LoadPatient returns the stored snapshot for one member, or nil when the
// member was never seen.
func (s *Store) LoadPatient(ctx context.Context, planID int64, memberNumber string) (*model.Patient, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM patient_snapshots WHERE plan_id = $1 AND member_number = $2`,
		planID, memberNumber).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query patient snapshot: %w", err)
	}
	var p model.Patient
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode patient snapshot: %w", err)
	}
	return &p, nil
}

// ReplacePatients replaces the plan's snapshots with the batch, streaming
// the rows through COPY. The channel gives natural backpressure between
// snapshot encoding and the COPY writer.
func (s *Store) ReplacePatients(ctx context.Context, planID int64, patients []*model.Patient) error {
	// CopyFrom can stop consuming on error; cancelling on return unblocks
	// the producer so a failed load does not strand its goroutine.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM patient_snapshots WHERE plan_id = $1`, planID); err != nil {
		return fmt.Errorf("clear patient snapshots: %w", err)
	}

	ch := make(chan []any, 64)
	errc := make(chan error, 1)
	go func() {
		defer close(ch)
		for _, p := range patients {
			raw, err := json.Marshal(p)
			if err != nil {
				errc <- fmt.Errorf("encode patient snapshot %s: %w", p.MemberNumber, err)
				return
			}
			select {
			case ch <- []any{planID, p.MemberNumber, p.NPI(), p.AttributedTIN(), raw}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- nil
	}()

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"patient_snapshots"},
		[]string{"plan_id", "member_number", "attributed_npi", "attributed_tin", "snapshot"},
		NewChannelSource(ch))
	if err != nil {
		return fmt.Errorf("copy patient snapshots: %w", err)
	}
	if err := <-errc; err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot replace: %w", err)
	}

	s.log.Info().Int64("plan_id", planID).Int64("rows", n).Msg("patient snapshots replaced")
	return nil
}

// KnownMemberNumbers returns the roster stored for the plan from the last
// run.
func (s *Store) KnownMemberNumbers(ctx context.Context, planID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT member_number FROM plan_rosters WHERE plan_id = $1 ORDER BY member_number`, planID)
	if err != nil {
		return nil, fmt.Errorf("query plan roster: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan roster member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read plan roster: %w", err)
	}
	return members, nil
}

// ReplaceRoster replaces the plan's stored roster with the given member
// set. An empty set is a no-op: a feed that failed to enumerate its roster
// must not wipe the stored one.
func (s *Store) ReplaceRoster(ctx context.Context, planID int64, members map[string]struct{}) error {
	if len(members) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin roster replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM plan_rosters WHERE plan_id = $1`, planID); err != nil {
		return fmt.Errorf("clear plan roster: %w", err)
	}

	ch := make(chan []any, 64)
	go func() {
		defer close(ch)
		for m := range members {
			select {
			case ch <- []any{planID, m}:
			case <-ctx.Done():
				return
			}
		}
	}()

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"plan_rosters"},
		[]string{"plan_id", "member_number"},
		NewChannelSource(ch)); err != nil {
		return fmt.Errorf("copy plan roster: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit roster replace: %w", err)
	}
	return nil
}

// PatientsForTIN returns the stored snapshots for members attributed to one
// TIN, for roster updates scoped to a single medical group.
func (s *Store) PatientsForTIN(ctx context.Context, planID int64, tin string) ([]*model.Patient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT snapshot FROM patient_snapshots WHERE plan_id = $1 AND attributed_tin = $2`,
		planID, tin)
	if err != nil {
		return nil, fmt.Errorf("query snapshots for tin: %w", err)
	}
	defer rows.Close()

	var patients []*model.Patient
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan patient snapshot: %w", err)
		}
		var p model.Patient
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode patient snapshot: %w", err)
		}
		patients = append(patients, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read snapshots for tin: %w", err)
	}
	return patients, nil
}
