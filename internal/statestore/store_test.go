package statestore_test

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stellarhealth/feedload/internal/logging"
	"github.com/stellarhealth/feedload/internal/model"
	"github.com/stellarhealth/feedload/internal/statestore"
)

const (
	testPort     = 15432
	testDB       = "feedtest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var (
	testDSN string
	pg      *embeddedpostgres.EmbeddedPostgres
)

func TestMain(m *testing.M) {
	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg = embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30*time.Second),
	)

	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}

	os.Exit(code)
}

// setupStore creates a connection pool against a clean schema and applies
// migrations.
func setupStore(t *testing.T) *statestore.Store {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	for _, table := range []string{"patient_snapshots", "plan_rosters"} {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			t.Fatalf("drop table %s: %v", table, err)
		}
	}

	log := logging.Setup("text")
	if err := statestore.ApplyMigrations(ctx, pool, log); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return statestore.New(pool, log)
}

func storedPatient(member, npi, tin string) *model.Patient {
	dob := time.Date(1950, time.January, 2, 0, 0, 0, 0, time.UTC)
	return &model.Patient{
		MemberNumber: member,
		PlanID:       7,
		FirstName:    "ANA",
		LastName:     "SMITH",
		Gender:       "F",
		DateOfBirth:  &dob,
		Provider: &model.Provider{
			NPI:          npi,
			MedicalGroup: model.NewMedicalGroup(tin, "Westside Medical"),
		},
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	setupStore(t)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Running migrations again over an existing schema must not fail.
	if err := statestore.ApplyMigrations(ctx, pool, logging.Setup("text")); err != nil {
		t.Fatalf("second ApplyMigrations: %v", err)
	}
}

func TestReplacePatients_FailedCopyReleasesProducer(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// A duplicate member number violates the primary key mid-COPY. The
	// batch is far larger than the feed channel's buffer, so the producer
	// still holds unsent rows when the copy aborts.
	batch := make([]*model.Patient, 0, 300)
	for i := 0; i < 300; i++ {
		batch = append(batch, storedPatient(fmt.Sprintf("M%03d", i), "123", "456"))
	}

	// Warm the pool so its per-connection goroutines exist before the
	// baseline is taken.
	if err := store.ReplacePatients(ctx, 7, batch[:2]); err != nil {
		t.Fatalf("warm-up ReplacePatients: %v", err)
	}
	batch[1].MemberNumber = batch[0].MemberNumber

	before := runtime.NumGoroutine()
	if err := store.ReplacePatients(ctx, 7, batch); err == nil {
		t.Fatal("duplicate member numbers should fail the copy")
	}

	deadline := time.Now().Add(5 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := runtime.NumGoroutine(); got > before {
		t.Errorf("goroutines = %d after failed copy, want <= %d", got, before)
	}

	// The transaction rolled back and the pool is still serviceable.
	batch[1].MemberNumber = "M001"
	if err := store.ReplacePatients(ctx, 7, batch); err != nil {
		t.Fatalf("ReplacePatients after failed copy: %v", err)
	}
	stored, err := store.LoadPatients(ctx, 7)
	if err != nil {
		t.Fatalf("LoadPatients: %v", err)
	}
	if len(stored) != 300 {
		t.Errorf("stored %d patients, want 300", len(stored))
	}
}

func TestReplaceAndLoadPatients(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	batch := []*model.Patient{
		storedPatient("M1", "123", "456"),
		storedPatient("M2", "124", "456"),
		storedPatient("M3", "125", "999"),
	}
	if err := store.ReplacePatients(ctx, 7, batch); err != nil {
		t.Fatalf("ReplacePatients: %v", err)
	}

	loaded, err := store.LoadPatients(ctx, 7)
	if err != nil {
		t.Fatalf("LoadPatients: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded %d patients, want 3", len(loaded))
	}
	m1 := loaded["M1"]
	if m1 == nil || m1.FirstName != "ANA" || m1.NPI() != "123" {
		t.Errorf("M1 round trip = %+v", m1)
	}
	if m1.DateOfBirth == nil || m1.DateOfBirth.Year() != 1950 {
		t.Errorf("M1 date of birth = %v", m1.DateOfBirth)
	}

	// A second replace fully supersedes the first.
	if err := store.ReplacePatients(ctx, 7, batch[:1]); err != nil {
		t.Fatalf("second ReplacePatients: %v", err)
	}
	loaded, err = store.LoadPatients(ctx, 7)
	if err != nil {
		t.Fatalf("LoadPatients: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("loaded %d patients after replace, want 1", len(loaded))
	}

	// Other plans are untouched and read back empty.
	other, err := store.LoadPatients(ctx, 8)
	if err != nil {
		t.Fatalf("LoadPatients plan 8: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("plan 8 has %d patients, want 0", len(other))
	}
}

func TestLoadPatient(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.ReplacePatients(ctx, 7, []*model.Patient{storedPatient("M1", "123", "456")}); err != nil {
		t.Fatalf("ReplacePatients: %v", err)
	}

	p, err := store.LoadPatient(ctx, 7, "M1")
	if err != nil {
		t.Fatalf("LoadPatient: %v", err)
	}
	if p == nil || p.MemberNumber != "M1" {
		t.Errorf("LoadPatient = %+v", p)
	}

	missing, err := store.LoadPatient(ctx, 7, "NOPE")
	if err != nil {
		t.Fatalf("LoadPatient missing member: %v", err)
	}
	if missing != nil {
		t.Errorf("unknown member = %+v, want nil", missing)
	}
}

func TestPatientsForTIN(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	batch := []*model.Patient{
		storedPatient("M1", "123", "456"),
		storedPatient("M2", "124", "456"),
		storedPatient("M3", "125", "999"),
	}
	if err := store.ReplacePatients(ctx, 7, batch); err != nil {
		t.Fatalf("ReplacePatients: %v", err)
	}

	scoped, err := store.PatientsForTIN(ctx, 7, "456")
	if err != nil {
		t.Fatalf("PatientsForTIN: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("got %d patients for TIN 456, want 2", len(scoped))
	}
	for _, p := range scoped {
		if p.AttributedTIN() != "456" {
			t.Errorf("member %s attributed to %q", p.MemberNumber, p.AttributedTIN())
		}
	}
}

func TestReplaceAndReadRoster(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	members := map[string]struct{}{"M1": {}, "M2": {}, "M3": {}}
	if err := store.ReplaceRoster(ctx, 7, members); err != nil {
		t.Fatalf("ReplaceRoster: %v", err)
	}

	known, err := store.KnownMemberNumbers(ctx, 7)
	if err != nil {
		t.Fatalf("KnownMemberNumbers: %v", err)
	}
	if len(known) != 3 || known[0] != "M1" || known[2] != "M3" {
		t.Errorf("roster = %v", known)
	}

	// An empty set must not wipe the stored roster.
	if err := store.ReplaceRoster(ctx, 7, nil); err != nil {
		t.Fatalf("empty ReplaceRoster: %v", err)
	}
	known, err = store.KnownMemberNumbers(ctx, 7)
	if err != nil {
		t.Fatalf("KnownMemberNumbers: %v", err)
	}
	if len(known) != 3 {
		t.Errorf("empty replace wiped the roster: %v", known)
	}

	// A smaller set supersedes.
	if err := store.ReplaceRoster(ctx, 7, map[string]struct{}{"M2": {}}); err != nil {
		t.Fatalf("ReplaceRoster: %v", err)
	}
	known, err = store.KnownMemberNumbers(ctx, 7)
	if err != nil {
		t.Fatalf("KnownMemberNumbers: %v", err)
	}
	if len(known) != 1 || known[0] != "M2" {
		t.Errorf("roster = %v", known)
	}
}

func TestNewPool(t *testing.T) {
	pool, err := statestore.NewPool(context.Background(), testDSN)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	var timeout string
	if err := pool.QueryRow(context.Background(), "SHOW statement_timeout").Scan(&timeout); err != nil {
		t.Fatalf("show statement_timeout: %v", err)
	}
	if timeout != "0" {
		t.Errorf("statement_timeout = %q, want 0", timeout)
	}
}
