package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/incidentops/itsm-kpi-pipeline/internal/service/staging"
)

// StageResult records one executed stage.
type StageResult struct {
	Name     string        `json:"name"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
}

// RunReport summarizes one pipeline run. ReferenceTime is the clock value
// every derivation used, so replaying the same input with the same
// reference time reproduces the report's row counts exactly.
type RunReport struct {
	RunID         uuid.UUID      `json:"run_id"`
	ReferenceTime time.Time      `json:"reference_time"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at"`
	DryRun        bool           `json:"dry_run,omitempty"`
	Stages        []StageResult  `json:"stages"`
	Staging       staging.Report `json:"staging"`
	Materialized  []string       `json:"materialized,omitempty"`
}

// Duration is the wall time of the whole run.
func (r *RunReport) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
