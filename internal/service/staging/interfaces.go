package staging

import (
	"context"
	"fmt"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/values"
)

// Service turns raw source rows into canonical staged incidents.
type Service interface {
	Stage(ctx context.Context, rows []incident.Raw) (*Result, error)
}

// NegativeResolutionPolicy decides what happens to a negative resolution
// time. The row itself always survives; the policy only governs the value.
type NegativeResolutionPolicy string

const (
	// NegativePolicyExclude drops the value so the row reads as unresolved
	// for SLA, FCR and statistics purposes.
	NegativePolicyExclude NegativeResolutionPolicy = "exclude"
	// NegativePolicyClamp floors the value at zero.
	NegativePolicyClamp NegativeResolutionPolicy = "clamp"
)

// ParseNegativeResolutionPolicy maps a config string to a policy.
func ParseNegativeResolutionPolicy(s string) (NegativeResolutionPolicy, error) {
	switch NegativeResolutionPolicy(s) {
	case NegativePolicyExclude:
		return NegativePolicyExclude, nil
	case NegativePolicyClamp:
		return NegativePolicyClamp, nil
	default:
		return "", fmt.Errorf("unknown negative resolution policy %q", s)
	}
}

// Config carries the tunable staging rules.
type Config struct {
	SLAPolicy             values.SLAPolicy
	NegativePolicy        NegativeResolutionPolicy
	OutlierThresholdHours float64
	Workers               int
}

// Result is the staged dataset plus the quality accounting for the run.
type Result struct {
	Incidents []incident.Canonical
	Report    Report
}

// Report counts what staging did to the input. Exclusions here are routine
// data quality, not errors: the run proceeds and the counts surface in the
// run report.
type Report struct {
	InputRows           int `json:"input_rows"`
	StagedRows          int `json:"staged_rows"`
	DroppedIncomplete   int `json:"dropped_incomplete"`
	DroppedDuplicates   int `json:"dropped_duplicates"`
	NegativeResolutions int `json:"negative_resolutions"`
	OutlierResolutions  int `json:"outlier_resolutions"`
}

// Dropped returns the total rows removed from the dataset.
func (r Report) Dropped() int {
	return r.DroppedIncomplete + r.DroppedDuplicates
}
