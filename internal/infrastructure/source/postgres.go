package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/incidentops/itsm-kpi-pipeline/internal/domain/errors"
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
)

// PostgreSQL error codes that mean the extract table no longer matches the
// contract rather than a transient failure.
const (
	pgUndefinedColumn = "42703"
	pgUndefinedTable  = "42P01"
)

// PostgresSource reads the raw extract table. Columns are selected by name
// so a renamed or dropped column surfaces as a schema error instead of
// misaligned data.
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSource creates a source reading from the given extract table.
func NewPostgresSource(pool *pgxpool.Pool, table string) *PostgresSource {
	return &PostgresSource{pool: pool, table: table}
}

func (s *PostgresSource) Name() string {
	return "postgres"
}

func (s *PostgresSource) Fetch(ctx context.Context) ([]incident.Raw, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(rawColumns, ", "), s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, s.classify(err)
	}
	defer rows.Close()

	var out []incident.Raw
	for rows.Next() {
		var (
			number, priority, state            *string
			createdAt, resolvedAt, slaDue      *time.Time
			group, assignedTo, category        *string
			service, ci, caller                *string
			description, closeCode, closeNotes *string
			resolutionHours                    *float64
		)
		if err := rows.Scan(
			&number, &priority, &state,
			&createdAt, &resolvedAt, &slaDue,
			&group, &assignedTo, &category,
			&service, &ci, &caller,
			&description, &closeCode, &closeNotes,
			&resolutionHours,
		); err != nil {
			return nil, s.classify(err)
		}

		out = append(out, incident.Raw{
			Number:            deref(number),
			Priority:          deref(priority),
			State:             deref(state),
			CreatedAt:         createdAt,
			ResolvedAt:        resolvedAt,
			SLADue:            slaDue,
			AssignmentGroup:   deref(group),
			AssignedTo:        deref(assignedTo),
			Category:          deref(category),
			BusinessService:   deref(service),
			ConfigurationItem: deref(ci),
			CallerID:          deref(caller),
			ShortDescription:  deref(description),
			CloseCode:         deref(closeCode),
			CloseNotes:        deref(closeNotes),
			ResolutionHours:   resolutionHours,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(err)
	}

	return out, nil
}

func (s *PostgresSource) classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUndefinedColumn, pgUndefinedTable:
			return apperrors.NewSchemaError("SOURCE_SCHEMA_MISMATCH",
				fmt.Sprintf("extract table %s does not match the expected columns", s.table)).
				WithCause(err).
				WithDetails(map[string]interface{}{"table": s.table, "pg_code": pgErr.Code})
		}
	}
	return apperrors.NewInfrastructureError("postgres_source", "query failed").WithCause(err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
