package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	apperrors "github.com/incidentops/itsm-kpi-pipeline/internal/domain/errors"
)

const (
	pgUndefinedColumn = "42703"
	pgUndefinedTable  = "42P01"
)

// PostgresSink materializes relations as tables. Each write truncates and
// reloads the table inside one transaction, so readers never observe a
// half-replaced relation.
type PostgresSink struct {
	pool   *pgxpool.Pool
	tables map[Relation]string
	logger *zap.Logger
}

// NewPostgresSink creates a sink writing to the warehouse pool. tables maps
// relations to table names; relations without an entry use the relation
// name as the table name.
func NewPostgresSink(pool *pgxpool.Pool, tables map[Relation]string, logger *zap.Logger) (*PostgresSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &PostgresSink{pool: pool, tables: tables, logger: logger}, nil
}

func (s *PostgresSink) tableFor(rel Relation) string {
	if name, ok := s.tables[rel]; ok && name != "" {
		return name
	}
	return string(rel)
}

func (s *PostgresSink) Name() string {
	return "postgres"
}

func (s *PostgresSink) Materialize(ctx context.Context, ds Dataset) error {
	start := time.Now()

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		table := pgx.Identifier{s.tableFor(ds.Relation)}
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+table.Sanitize()); err != nil {
			return err
		}
		if len(ds.Rows) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx, table, ds.Columns, pgx.CopyFromRows(ds.Rows))
		return err
	})
	if err != nil {
		s.logger.Error("materialization failed",
			zap.String("relation", string(ds.Relation)),
			zap.Error(err))
		return s.classify(err, ds.Relation)
	}

	s.logger.Info("relation materialized",
		zap.String("relation", string(ds.Relation)),
		zap.Int("rows", len(ds.Rows)),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}

func (s *PostgresSink) classify(err error, rel Relation) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUndefinedTable, pgUndefinedColumn:
			return apperrors.NewSchemaError("SINK_SCHEMA_MISMATCH",
				fmt.Sprintf("relation %s does not match the migrated schema", rel)).
				WithCause(err).
				WithDetails(map[string]interface{}{"relation": string(rel), "pg_code": pgErr.Code})
		}
	}
	return apperrors.NewInfrastructureError("postgres_sink",
		fmt.Sprintf("materializing %s failed", rel)).WithCause(err)
}
