package sink

import (
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
	"github.com/incidentops/itsm-kpi-pipeline/internal/service/aggregation"
)

// IncidentSummaryDataset flattens enriched incidents into the detail
// relation. Enum columns store their display labels, matching what the
// dashboards group by.
func IncidentSummaryDataset(rows []incident.Enriched) Dataset {
	ds := Dataset{
		Relation:  RelationIncidentSummary,
		KeyColumn: "number",
		Columns: []string{
			"number", "priority", "priority_rank", "state",
			"created_at", "resolved_at", "sla_due",
			"assignment_group", "assigned_to", "category",
			"business_service", "configuration_item", "caller_id",
			"short_description", "close_code",
			"resolution_hours", "sla_status", "resolution_timeframe",
			"resolution_bucket", "fcr_flag", "is_business_hours",
			"is_weekend", "days_open", "aging_bucket",
		},
		Rows: make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, []interface{}{
			r.Number, r.Priority.String(), r.Priority.Rank(), r.State.String(),
			r.CreatedAt, r.ResolvedAt, r.SLADue,
			r.AssignmentGroup, r.AssignedTo, r.Category,
			r.BusinessService, r.ConfigurationItem, r.CallerID,
			r.ShortDescription, r.CloseCode,
			r.ResolutionHours, r.SLAStatus.String(), r.Timeframe.String(),
			r.ResolutionBucket.String(), r.FirstContact.String(), r.BusinessHours,
			r.Weekend, r.DaysOpen, r.AgingBucket.String(),
		})
	}
	return ds
}

// DailyKPIDataset flattens the daily mart.
func DailyKPIDataset(rows []aggregation.DailyKPI) Dataset {
	ds := Dataset{
		Relation:  RelationDailyKPIs,
		KeyColumn: "kpi_date",
		Columns: []string{
			"kpi_date", "incidents_created", "incidents_closed",
			"critical_incidents", "high_priority_incidents",
			"business_hours_incidents", "weekend_incidents",
			"sla_met", "sla_missed", "fcr_incidents", "same_day_resolutions",
			"sla_compliance_pct", "fcr_rate_pct", "same_day_resolution_pct",
			"business_hours_pct",
			"avg_resolution_hours", "median_resolution_hours",
			"p90_resolution_hours", "min_resolution_hours", "max_resolution_hours",
		},
		Rows: make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, []interface{}{
			r.Date.Format(dateLayout), r.IncidentsCreated, r.IncidentsClosed,
			r.CriticalIncidents, r.HighPriorityIncidents,
			r.BusinessHoursIncidents, r.WeekendIncidents,
			r.SLAMet, r.SLAMissed, r.FCRIncidents, r.SameDayResolutions,
			r.SLACompliancePct.Float64(), r.FCRRatePct.Float64(), r.SameDayResolutionPct.Float64(),
			r.BusinessHoursPct.Float64(),
			r.Resolution.Mean, r.Resolution.Median,
			r.Resolution.P90, r.Resolution.Min, r.Resolution.Max,
		})
	}
	return ds
}

// GroupPerformanceDataset flattens the assignment-group mart.
func GroupPerformanceDataset(rows []aggregation.GroupPerformance) Dataset {
	ds := Dataset{
		Relation:  RelationGroupPerformance,
		KeyColumn: "assignment_group",
		Columns: []string{
			"assignment_group", "assigned_incidents", "open_incidents",
			"closed_incidents", "critical_incidents",
			"sla_met", "sla_missed", "fcr_incidents",
			"backlog_pct", "sla_compliance_pct", "fcr_rate_pct",
			"avg_resolution_hours", "median_resolution_hours",
			"p90_resolution_hours", "min_resolution_hours", "max_resolution_hours",
			"avg_days_open",
			"volume_rank", "speed_rank", "sla_rank", "fcr_rank",
			"performance_tier",
		},
		Rows: make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, []interface{}{
			r.Group, r.AssignedIncidents, r.OpenIncidents,
			r.ClosedIncidents, r.CriticalIncidents,
			r.SLAMet, r.SLAMissed, r.FCRIncidents,
			r.BacklogPct.Float64(), r.SLACompliancePct.Float64(), r.FCRRatePct.Float64(),
			r.Resolution.Mean, r.Resolution.Median,
			r.Resolution.P90, r.Resolution.Min, r.Resolution.Max,
			r.AvgDaysOpen,
			r.VolumeRank, r.SpeedRank, r.SLARank, r.FCRRank,
			r.Tier.String(),
		})
	}
	return ds
}

const dateLayout = "2006-01-02"
