package incident

import (
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/values"
)

// SLAStatus is the outcome of checking resolution time against the SLA
// threshold for the incident's priority band.
type SLAStatus int

const (
	SLAUnknown SLAStatus = iota
	SLAMet
	SLAMissed
)

func (s SLAStatus) String() string {
	switch s {
	case SLAMet:
		return "Met"
	case SLAMissed:
		return "Missed"
	default:
		return "Unknown"
	}
}

// EvaluateSLA checks resolution time against the policy threshold for the
// priority band. Unresolved incidents and unknown priorities have no
// threshold to check, so both evaluate to SLAUnknown rather than Missed.
func EvaluateSLA(p Priority, resolutionHours *float64, policy values.SLAPolicy) SLAStatus {
	if resolutionHours == nil {
		return SLAUnknown
	}
	limit, ok := policy.ThresholdHours(p.Rank())
	if !ok {
		return SLAUnknown
	}
	if *resolutionHours <= limit {
		return SLAMet
	}
	return SLAMissed
}
