package aggregation

import (
	"context"
	"sort"
	"time"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/values"
)

// Service folds enriched incidents into the two KPI marts. Both operations
// are deterministic: partitions are emitted in key order and rankings break
// ties by group name.
type Service interface {
	DailyKPIs(ctx context.Context, rows []incident.Enriched) ([]DailyKPI, error)
	GroupPerformance(ctx context.Context, rows []incident.Enriched) ([]GroupPerformance, error)
}

// Config carries the tunable aggregation rules.
type Config struct {
	// MinGroupVolume drops groups with fewer assigned incidents from the
	// group mart. Zero disables the floor.
	MinGroupVolume int
}

// Tiering cascade thresholds. The cascade is evaluated top down and the
// first matching rule wins.
const (
	tierHighSLAPct   = 90.0
	tierHighFCRPct   = 20.0
	tierHighAvgHours = 48.0
	tierGoodSLAPct   = 80.0
	tierGoodAvgHours = 72.0
	tierAveragePct   = 70.0
)

type service struct {
	cfg Config
}

// NewService creates a new aggregation service.
func NewService(cfg Config) Service {
	if cfg.MinGroupVolume < 0 {
		cfg.MinGroupVolume = 0
	}
	return &service{cfg: cfg}
}

// DailyKPIs partitions incidents by UTC creation date and summarizes each
// day. Days appear in ascending order; a day with no incidents simply has
// no row.
func (s *service) DailyKPIs(ctx context.Context, rows []incident.Enriched) ([]DailyKPI, error) {
	buckets := make(map[time.Time][]incident.Enriched)
	for _, row := range rows {
		day := dateOf(row.CreatedAt)
		buckets[day] = append(buckets[day], row)
	}

	days := make([]time.Time, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]DailyKPI, 0, len(days))
	for _, day := range days {
		out = append(out, buildDailyKPI(day, buckets[day]))
	}
	return out, nil
}

func buildDailyKPI(day time.Time, rows []incident.Enriched) DailyKPI {
	kpi := DailyKPI{Date: day, IncidentsCreated: len(rows)}

	var closedHours []float64
	for _, r := range rows {
		if r.State.IsClosed() {
			kpi.IncidentsClosed++
			if r.ResolutionHours != nil {
				closedHours = append(closedHours, *r.ResolutionHours)
			}
		}
		switch r.Priority {
		case incident.PriorityCritical:
			kpi.CriticalIncidents++
		case incident.PriorityHigh:
			kpi.HighPriorityIncidents++
		}
		if r.BusinessHours {
			kpi.BusinessHoursIncidents++
		}
		if r.Weekend {
			kpi.WeekendIncidents++
		}
		switch r.SLAStatus {
		case incident.SLAMet:
			kpi.SLAMet++
		case incident.SLAMissed:
			kpi.SLAMissed++
		}
		if r.FirstContact == incident.FCRYes {
			kpi.FCRIncidents++
		}
		if r.Timeframe == incident.TimeframeSameDay {
			kpi.SameDayResolutions++
		}
	}

	kpi.SLACompliancePct = values.NewPercentageFromCounts(kpi.SLAMet, kpi.SLAMet+kpi.SLAMissed)
	kpi.FCRRatePct = values.NewPercentageFromCounts(kpi.FCRIncidents, kpi.IncidentsClosed)
	kpi.SameDayResolutionPct = values.NewPercentageFromCounts(kpi.SameDayResolutions, kpi.IncidentsClosed)
	kpi.BusinessHoursPct = values.NewPercentageFromCounts(kpi.BusinessHoursIncidents, kpi.IncidentsCreated)
	kpi.Resolution = values.NewResolutionStats(closedHours)

	return kpi
}

// GroupPerformance partitions incidents by assignment group, summarizes and
// ranks every group, then applies the volume floor. Ranking runs over the
// full population on purpose: dropping a small group must not renumber the
// groups that stay.
func (s *service) GroupPerformance(ctx context.Context, rows []incident.Enriched) ([]GroupPerformance, error) {
	buckets := make(map[string][]incident.Enriched)
	for _, row := range rows {
		if row.AssignmentGroup == "" {
			continue
		}
		buckets[row.AssignmentGroup] = append(buckets[row.AssignmentGroup], row)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]GroupPerformance, 0, len(names))
	for _, name := range names {
		groups = append(groups, buildGroupRow(name, buckets[name]))
	}

	rankGroups(groups)
	for i := range groups {
		groups[i].Tier = deriveTier(groups[i])
	}

	out := make([]GroupPerformance, 0, len(groups))
	for _, g := range groups {
		if g.AssignedIncidents >= s.cfg.MinGroupVolume {
			out = append(out, g)
		}
	}
	return out, nil
}

func buildGroupRow(name string, rows []incident.Enriched) GroupPerformance {
	g := GroupPerformance{Group: name, AssignedIncidents: len(rows)}

	var closedHours, openDays []float64
	for _, r := range rows {
		if r.State.IsOpen() {
			g.OpenIncidents++
		}
		if r.State.IsClosed() {
			g.ClosedIncidents++
			if r.ResolutionHours != nil {
				closedHours = append(closedHours, *r.ResolutionHours)
			}
		}
		if r.Priority == incident.PriorityCritical {
			g.CriticalIncidents++
		}
		switch r.SLAStatus {
		case incident.SLAMet:
			g.SLAMet++
		case incident.SLAMissed:
			g.SLAMissed++
		}
		if r.FirstContact == incident.FCRYes {
			g.FCRIncidents++
		}
		if r.DaysOpen != nil {
			openDays = append(openDays, *r.DaysOpen)
		}
	}

	g.BacklogPct = values.NewPercentageFromCounts(g.OpenIncidents, g.AssignedIncidents)
	g.SLACompliancePct = values.NewPercentageFromCounts(g.SLAMet, g.SLAMet+g.SLAMissed)
	g.FCRRatePct = values.NewPercentageFromCounts(g.FCRIncidents, g.ClosedIncidents)
	g.Resolution = values.NewResolutionStats(closedHours)
	if len(openDays) > 0 {
		avg := mean(openDays)
		g.AvgDaysOpen = &avg
	}

	return g
}

// rankSpec describes one ranking dimension. value returns false when the
// group has no measurable value on the dimension; those groups share the
// trailing rank.
type rankSpec struct {
	value  func(g *GroupPerformance) (float64, bool)
	asc    bool
	assign func(g *GroupPerformance, rank int)
}

func rankGroups(groups []GroupPerformance) {
	specs := []rankSpec{
		{
			value:  func(g *GroupPerformance) (float64, bool) { return float64(g.AssignedIncidents), true },
			assign: func(g *GroupPerformance, r int) { g.VolumeRank = r },
		},
		{
			value: func(g *GroupPerformance) (float64, bool) {
				if g.Resolution.Mean == nil {
					return 0, false
				}
				return *g.Resolution.Mean, true
			},
			asc:    true,
			assign: func(g *GroupPerformance, r int) { g.SpeedRank = r },
		},
		{
			value:  func(g *GroupPerformance) (float64, bool) { return g.SLACompliancePct.Float64(), true },
			assign: func(g *GroupPerformance, r int) { g.SLARank = r },
		},
		{
			value:  func(g *GroupPerformance) (float64, bool) { return g.FCRRatePct.Float64(), true },
			assign: func(g *GroupPerformance, r int) { g.FCRRank = r },
		},
	}

	for _, spec := range specs {
		denseRank(groups, spec)
	}
}

// denseRank assigns 1-based dense ranks: equal values share a rank and the
// next distinct value gets the next integer, with no gaps. Ties iterate in
// group-name order, which matters only for traversal, never for the rank a
// group receives.
func denseRank(groups []GroupPerformance, spec rankSpec) {
	idx := make([]int, len(groups))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ga, gb := &groups[idx[a]], &groups[idx[b]]
		va, oka := spec.value(ga)
		vb, okb := spec.value(gb)
		if oka != okb {
			return oka
		}
		if oka && va != vb {
			if spec.asc {
				return va < vb
			}
			return va > vb
		}
		return ga.Group < gb.Group
	})

	rank := 0
	var prev float64
	prevOK := false
	for pos, i := range idx {
		v, ok := spec.value(&groups[i])
		if pos == 0 || ok != prevOK || (ok && v != prev) {
			rank++
		}
		spec.assign(&groups[i], rank)
		prev, prevOK = v, ok
	}
}

func deriveTier(g GroupPerformance) PerformanceTier {
	avg := g.Resolution.Mean
	switch {
	case g.SLACompliancePct.AtLeast(tierHighSLAPct) &&
		g.FCRRatePct.AtLeast(tierHighFCRPct) &&
		avg != nil && *avg <= tierHighAvgHours:
		return TierHigh
	case g.SLACompliancePct.AtLeast(tierGoodSLAPct) &&
		avg != nil && *avg <= tierGoodAvgHours:
		return TierGood
	case g.SLACompliancePct.AtLeast(tierAveragePct):
		return TierAverage
	default:
		return TierNeedsImprovement
	}
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func mean(samples []float64) float64 {
	sum := 0.0
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}
