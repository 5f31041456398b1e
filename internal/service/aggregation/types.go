package aggregation

import (
	"time"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/values"
)

// DailyKPI is one row of the daily mart, keyed by the UTC calendar date the
// incidents were created on.
type DailyKPI struct {
	Date                   time.Time              `json:"date"`
	IncidentsCreated       int                    `json:"incidents_created"`
	IncidentsClosed        int                    `json:"incidents_closed"`
	CriticalIncidents      int                    `json:"critical_incidents"`
	HighPriorityIncidents  int                    `json:"high_priority_incidents"`
	BusinessHoursIncidents int                    `json:"business_hours_incidents"`
	WeekendIncidents       int                    `json:"weekend_incidents"`
	SLAMet                 int                    `json:"sla_met"`
	SLAMissed              int                    `json:"sla_missed"`
	FCRIncidents           int                    `json:"fcr_incidents"`
	SameDayResolutions     int                    `json:"same_day_resolutions"`
	SLACompliancePct       values.Percentage      `json:"sla_compliance_pct"`
	FCRRatePct             values.Percentage      `json:"fcr_rate_pct"`
	SameDayResolutionPct   values.Percentage      `json:"same_day_resolution_pct"`
	BusinessHoursPct       values.Percentage      `json:"business_hours_pct"`
	Resolution             values.ResolutionStats `json:"resolution"`
}

// GroupPerformance is one row of the assignment-group mart.
type GroupPerformance struct {
	Group             string                 `json:"assignment_group"`
	AssignedIncidents int                    `json:"assigned_incidents"`
	OpenIncidents     int                    `json:"open_incidents"`
	ClosedIncidents   int                    `json:"closed_incidents"`
	CriticalIncidents int                    `json:"critical_incidents"`
	SLAMet            int                    `json:"sla_met"`
	SLAMissed         int                    `json:"sla_missed"`
	FCRIncidents      int                    `json:"fcr_incidents"`
	BacklogPct        values.Percentage      `json:"backlog_pct"`
	SLACompliancePct  values.Percentage      `json:"sla_compliance_pct"`
	FCRRatePct        values.Percentage      `json:"fcr_rate_pct"`
	Resolution        values.ResolutionStats `json:"resolution"`
	AvgDaysOpen       *float64               `json:"avg_days_open,omitempty"`
	VolumeRank        int                    `json:"volume_rank"`
	SpeedRank         int                    `json:"speed_rank"`
	SLARank           int                    `json:"sla_rank"`
	FCRRank           int                    `json:"fcr_rank"`
	Tier              PerformanceTier        `json:"performance_tier"`
}

// PerformanceTier is the qualitative label assigned to a group by the
// tiering cascade.
type PerformanceTier int

const (
	TierNeedsImprovement PerformanceTier = iota
	TierAverage
	TierGood
	TierHigh
)

func (t PerformanceTier) String() string {
	switch t {
	case TierHigh:
		return "High Performer"
	case TierGood:
		return "Good Performer"
	case TierAverage:
		return "Average Performer"
	default:
		return "Needs Improvement"
	}
}

// MarshalJSON emits the human-readable label, which is what the marts store.
func (t PerformanceTier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}
