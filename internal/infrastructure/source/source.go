// Package source provides the raw incident extract for a pipeline run.
// Every source returns the full dataset: runs are full refreshes, never
// increments.
package source

import (
	"context"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
)

// RawSource fetches raw incident rows. Implementations must enforce the
// column contract strictly and fail fast with a schema error on drift; a
// source never silently reshapes data.
type RawSource interface {
	Fetch(ctx context.Context) ([]incident.Raw, error)
	Name() string
}

// Raw extract columns, in canonical order. This is the contract both
// sources enforce.
var rawColumns = []string{
	"inc_number",
	"inc_priority",
	"inc_state",
	"inc_sys_created_on",
	"inc_resolved_at",
	"inc_sla_due",
	"inc_assignment_group",
	"inc_assigned_to",
	"inc_category",
	"inc_business_service",
	"inc_cmdb_ci",
	"inc_caller_id",
	"inc_short_description",
	"inc_close_code",
	"inc_close_notes",
	"resolution_time_hours",
}
