package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
	"github.com/incidentops/itsm-kpi-pipeline/internal/testutil/containers"
)

// TestDB provisions an isolated PostgreSQL instance for a test: one
// container per test, schema applied from migrations/.
type TestDB struct {
	t         *testing.T
	db        *sql.DB
	container *containers.PostgresContainer
}

// NewTestDB starts a postgres container, applies all migrations and
// registers cleanup. Requires a Docker daemon.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := containers.NewPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", container.ConnectionString)
	require.NoError(t, err)

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	require.NoError(t, db.Ping())

	tdb := &TestDB{
		t:         t,
		db:        db,
		container: container,
	}

	t.Cleanup(func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	tdb.MigrateUp()

	return tdb
}

// DB returns the underlying database connection.
func (tdb *TestDB) DB() *sql.DB {
	return tdb.db
}

// ConnectionString returns the DSN for callers that need their own pool.
func (tdb *TestDB) ConnectionString() string {
	return tdb.container.ConnectionString
}

// MigrateUp applies every migration in migrations/.
func (tdb *TestDB) MigrateUp() {
	tdb.t.Helper()

	driver, err := migratepg.WithInstance(tdb.db, &migratepg.Config{})
	require.NoError(tdb.t, err)

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath(), "postgres", driver)
	require.NoError(tdb.t, err)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		tdb.t.Fatalf("apply migrations: %v", err)
	}
}

// migrationsPath locates the repository's migrations directory relative to
// this file so tests pass regardless of which package they run from.
func migrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// TruncateTables clears every pipeline table for test isolation.
func (tdb *TestDB) TruncateTables() {
	tdb.t.Helper()

	ctx := context.Background()
	tables := []string{
		"group_performance",
		"daily_kpis",
		"incident_summary",
		"itsm_raw_tickets",
	}

	for _, table := range tables {
		_, err := tdb.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(tdb.t, err)
	}
}

// SeedData is a generic interface for seeding test data.
type SeedData interface {
	TableName() string
	InsertQuery() string
	Values() []interface{}
}

// Seed inserts test data into the database.
func (tdb *TestDB) Seed(data ...SeedData) {
	tdb.t.Helper()

	ctx := context.Background()
	for _, d := range data {
		_, err := tdb.db.ExecContext(ctx, d.InsertQuery(), d.Values()...)
		require.NoError(tdb.t, err, "failed to seed %s", d.TableName())
	}
}

// RawTicket adapts a raw incident row for Seed. Empty strings become NULLs,
// matching how the extract loader leaves absent fields.
type RawTicket struct {
	Row incident.Raw
}

func (r RawTicket) TableName() string {
	return "itsm_raw_tickets"
}

func (r RawTicket) InsertQuery() string {
	return `INSERT INTO itsm_raw_tickets (
		inc_number, inc_priority, inc_state,
		inc_sys_created_on, inc_resolved_at, inc_sla_due,
		inc_assignment_group, inc_assigned_to, inc_category,
		inc_business_service, inc_cmdb_ci, inc_caller_id,
		inc_short_description, inc_close_code, inc_close_notes,
		resolution_time_hours
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
}

func (r RawTicket) Values() []interface{} {
	return []interface{}{
		nullString(r.Row.Number), nullString(r.Row.Priority), nullString(r.Row.State),
		r.Row.CreatedAt, r.Row.ResolvedAt, r.Row.SLADue,
		nullString(r.Row.AssignmentGroup), nullString(r.Row.AssignedTo), nullString(r.Row.Category),
		nullString(r.Row.BusinessService), nullString(r.Row.ConfigurationItem), nullString(r.Row.CallerID),
		nullString(r.Row.ShortDescription), nullString(r.Row.CloseCode), nullString(r.Row.CloseNotes),
		r.Row.ResolutionHours,
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SeedRawTickets inserts raw rows into the staging table.
func (tdb *TestDB) SeedRawTickets(rows ...incident.Raw) {
	tdb.t.Helper()

	for _, row := range rows {
		tdb.Seed(RawTicket{Row: row})
	}
}

// AssertRowCount asserts the number of rows in a table.
func (tdb *TestDB) AssertRowCount(table string, expected int) {
	tdb.t.Helper()

	var count int
	err := tdb.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	require.NoError(tdb.t, err)
	require.Equal(tdb.t, expected, count, "expected %d rows in %s, got %d", expected, table, count)
}

// WithTransaction executes fn inside a transaction that is always rolled
// back, so nothing the function does persists.
func WithTransaction(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			t.Errorf("failed to rollback transaction: %v", rbErr)
		}
	}()

	fn(tx)
}
