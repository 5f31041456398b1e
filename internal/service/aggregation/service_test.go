package aggregation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/values"
)

var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestDailyKPIsSingleDay(t *testing.T) {
	svc := NewService(Config{})

	rows := []incident.Enriched{
		// Critical, closed in 2h during office hours.
		closedDaily(monday.Add(9*time.Hour), incident.PriorityCritical, 2,
			incident.SLAMet, incident.FCRNo, incident.TimeframeSameDay, true, false),
		// High, blew the 24h deadline.
		closedDaily(monday.Add(10*time.Hour), incident.PriorityHigh, 30,
			incident.SLAMissed, incident.FCRNo, incident.TimeframeMultiDay, true, false),
		// Moderate, still in progress late at night.
		openDaily(monday.Add(22*time.Hour), incident.PriorityModerate, 0.5),
		// Low, a quick same-day fix before midnight.
		closedDaily(monday.Add(23*time.Hour+30*time.Minute), incident.PriorityLow, 0.5,
			incident.SLAMet, incident.FCRYes, incident.TimeframeSameDay, false, false),
	}

	kpis, err := svc.DailyKPIs(context.Background(), rows)

	require.NoError(t, err)
	require.Len(t, kpis, 1)

	day := kpis[0]
	assert.Equal(t, monday, day.Date)
	assert.Equal(t, 4, day.IncidentsCreated)
	assert.Equal(t, 3, day.IncidentsClosed)
	assert.Equal(t, 1, day.CriticalIncidents)
	assert.Equal(t, 1, day.HighPriorityIncidents)
	assert.Equal(t, 2, day.BusinessHoursIncidents)
	assert.Equal(t, 0, day.WeekendIncidents)
	assert.Equal(t, 2, day.SLAMet)
	assert.Equal(t, 1, day.SLAMissed)
	assert.Equal(t, 1, day.FCRIncidents)
	assert.Equal(t, 2, day.SameDayResolutions)

	assert.Equal(t, "66.67", day.SLACompliancePct.String())
	assert.Equal(t, "33.33", day.FCRRatePct.String())
	assert.Equal(t, "66.67", day.SameDayResolutionPct.String())
	assert.Equal(t, "50.00", day.BusinessHoursPct.String())

	// Closed resolutions sorted: 0.5, 2, 30.
	require.Equal(t, 3, day.Resolution.SampleCount)
	assert.InDelta(t, 10.833333, *day.Resolution.Mean, 1e-5)
	assert.InDelta(t, 2.0, *day.Resolution.Median, 1e-9)
	assert.InDelta(t, 24.4, *day.Resolution.P90, 1e-9)
	assert.Equal(t, 0.5, *day.Resolution.Min)
	assert.Equal(t, 30.0, *day.Resolution.Max)
}

func TestDailyKPIsPartitionsByUTCDate(t *testing.T) {
	svc := NewService(Config{})

	rows := []incident.Enriched{
		openDaily(monday.Add(23*time.Hour+59*time.Minute), incident.PriorityLow, 0),
		openDaily(monday.Add(24*time.Hour), incident.PriorityLow, 0),
		// 01:00 +02:00 on the 11th is 23:00 UTC on the 10th.
		openDaily(time.Date(2025, 3, 11, 1, 0, 0, 0, time.FixedZone("EET", 2*3600)), incident.PriorityLow, 0),
	}

	kpis, err := svc.DailyKPIs(context.Background(), rows)

	require.NoError(t, err)
	require.Len(t, kpis, 2)
	assert.Equal(t, monday, kpis[0].Date)
	assert.Equal(t, 2, kpis[0].IncidentsCreated)
	assert.Equal(t, monday.AddDate(0, 0, 1), kpis[1].Date)
	assert.Equal(t, 1, kpis[1].IncidentsCreated)
}

func TestDailyKPIsDayWithoutClosures(t *testing.T) {
	svc := NewService(Config{})

	kpis, err := svc.DailyKPIs(context.Background(), []incident.Enriched{
		openDaily(monday.Add(9*time.Hour), incident.PriorityModerate, 1),
		openDaily(monday.Add(11*time.Hour), incident.PriorityModerate, 1),
	})

	require.NoError(t, err)
	require.Len(t, kpis, 1)

	day := kpis[0]
	assert.Zero(t, day.IncidentsClosed)
	assert.True(t, day.Resolution.IsEmpty(), "no closures means nil statistics, not zeros")
	assert.Nil(t, day.Resolution.Mean)
	assert.True(t, day.SLACompliancePct.IsZero())
	assert.True(t, day.FCRRatePct.IsZero())
}

func TestDailyKPIsEmptyInput(t *testing.T) {
	svc := NewService(Config{})

	kpis, err := svc.DailyKPIs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, kpis)
}

func TestGroupPerformanceCountsAndRates(t *testing.T) {
	svc := NewService(Config{})

	groups, err := svc.GroupPerformance(context.Background(), groupScenario())

	require.NoError(t, err)
	require.Len(t, groups, 3)

	alpha := groups[0]
	assert.Equal(t, "Alpha", alpha.Group)
	assert.Equal(t, 3, alpha.AssignedIncidents)
	assert.Equal(t, 1, alpha.OpenIncidents)
	assert.Equal(t, 2, alpha.ClosedIncidents)
	assert.Equal(t, "33.33", alpha.BacklogPct.String())
	assert.Equal(t, "100.00", alpha.SLACompliancePct.String())
	assert.Equal(t, "50.00", alpha.FCRRatePct.String())
	require.NotNil(t, alpha.Resolution.Mean)
	assert.InDelta(t, 15.0, *alpha.Resolution.Mean, 1e-9)
	require.NotNil(t, alpha.AvgDaysOpen)
	assert.InDelta(t, 4.0, *alpha.AvgDaysOpen, 1e-9)

	bravo := groups[1]
	assert.Equal(t, "Bravo", bravo.Group)
	assert.Equal(t, 3, bravo.AssignedIncidents)
	assert.Zero(t, bravo.OpenIncidents)
	assert.Equal(t, "0.00", bravo.BacklogPct.String())
	assert.Equal(t, "33.33", bravo.SLACompliancePct.String())
	assert.Equal(t, "0.00", bravo.FCRRatePct.String())
	assert.InDelta(t, 30.0, *bravo.Resolution.Mean, 1e-9)
	assert.Nil(t, bravo.AvgDaysOpen)

	charlie := groups[2]
	assert.Equal(t, "Charlie", charlie.Group)
	assert.Equal(t, 2, charlie.AssignedIncidents)
	assert.Equal(t, 2, charlie.OpenIncidents)
	assert.Equal(t, "100.00", charlie.BacklogPct.String())
	assert.True(t, charlie.Resolution.IsEmpty())
}

func TestGroupPerformanceDenseRanks(t *testing.T) {
	svc := NewService(Config{})

	groups, err := svc.GroupPerformance(context.Background(), groupScenario())

	require.NoError(t, err)
	require.Len(t, groups, 3)
	byName := indexByName(groups)

	// Volume: Alpha and Bravo tie at 3 assigned, Charlie trails with 2.
	assert.Equal(t, 1, byName["Alpha"].VolumeRank)
	assert.Equal(t, 1, byName["Bravo"].VolumeRank)
	assert.Equal(t, 2, byName["Charlie"].VolumeRank, "dense ranking leaves no gap after a tie")

	// Speed: ascending mean resolution; Charlie has no closures and ranks last.
	assert.Equal(t, 1, byName["Alpha"].SpeedRank)
	assert.Equal(t, 2, byName["Bravo"].SpeedRank)
	assert.Equal(t, 3, byName["Charlie"].SpeedRank)

	// SLA compliance: 100 > 33.33 > 0.
	assert.Equal(t, 1, byName["Alpha"].SLARank)
	assert.Equal(t, 2, byName["Bravo"].SLARank)
	assert.Equal(t, 3, byName["Charlie"].SLARank)

	// FCR: Bravo and Charlie tie at zero.
	assert.Equal(t, 1, byName["Alpha"].FCRRank)
	assert.Equal(t, 2, byName["Bravo"].FCRRank)
	assert.Equal(t, 2, byName["Charlie"].FCRRank)
}

func TestGroupPerformanceVolumeFloorAppliesAfterRanking(t *testing.T) {
	svc := NewService(Config{MinGroupVolume: 3})

	groups, err := svc.GroupPerformance(context.Background(), groupScenario())

	require.NoError(t, err)
	require.Len(t, groups, 2, "Charlie is under the volume floor")
	byName := indexByName(groups)

	// Ranks were computed over all three groups, so the survivors keep the
	// positions they earned against the full population.
	assert.Equal(t, 1, byName["Alpha"].VolumeRank)
	assert.Equal(t, 1, byName["Bravo"].VolumeRank)
	assert.Equal(t, 2, byName["Bravo"].SpeedRank)
}

func TestGroupPerformanceSkipsBlankGroups(t *testing.T) {
	svc := NewService(Config{})

	rows := append(groupScenario(), openGroup("", 1))
	groups, err := svc.GroupPerformance(context.Background(), rows)

	require.NoError(t, err)
	assert.Len(t, groups, 3, "unassigned incidents belong to no group row")
}

func TestGroupPerformanceTiers(t *testing.T) {
	svc := NewService(Config{})

	groups, err := svc.GroupPerformance(context.Background(), groupScenario())

	require.NoError(t, err)
	byName := indexByName(groups)

	assert.Equal(t, TierHigh, byName["Alpha"].Tier)
	assert.Equal(t, TierNeedsImprovement, byName["Bravo"].Tier)
	assert.Equal(t, TierNeedsImprovement, byName["Charlie"].Tier)
}

func TestDeriveTierCascade(t *testing.T) {
	tests := []struct {
		name     string
		slaPct   float64
		fcrPct   float64
		avgHours *float64
		expected PerformanceTier
	}{
		{
			name:     "every high bar cleared",
			slaPct:   95,
			fcrPct:   25,
			avgHours: hoursPtr(40),
			expected: TierHigh,
		},
		{
			name:     "slow resolution drops high to good",
			slaPct:   95,
			fcrPct:   25,
			avgHours: hoursPtr(50),
			expected: TierGood,
		},
		{
			name:     "good performer",
			slaPct:   85,
			fcrPct:   10,
			avgHours: hoursPtr(60),
			expected: TierGood,
		},
		{
			name:     "sla boundary for high",
			slaPct:   90,
			fcrPct:   20,
			avgHours: hoursPtr(48),
			expected: TierHigh,
		},
		{
			name:     "average performer on compliance alone",
			slaPct:   75,
			fcrPct:   0,
			avgHours: hoursPtr(100),
			expected: TierAverage,
		},
		{
			name:     "sla boundary for average",
			slaPct:   70,
			fcrPct:   0,
			avgHours: nil,
			expected: TierAverage,
		},
		{
			name:     "below every bar",
			slaPct:   60,
			fcrPct:   30,
			avgHours: hoursPtr(10),
			expected: TierNeedsImprovement,
		},
		{
			name:     "no closures cannot clear time-based bars",
			slaPct:   95,
			fcrPct:   25,
			avgHours: nil,
			expected: TierAverage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GroupPerformance{
				SLACompliancePct: pctOf(tt.slaPct),
				FCRRatePct:       pctOf(tt.fcrPct),
			}
			if tt.avgHours != nil {
				g.Resolution.Mean = tt.avgHours
				g.Resolution.SampleCount = 1
			}
			assert.Equal(t, tt.expected, deriveTier(g))
		})
	}
}

func TestPerformanceTierString(t *testing.T) {
	assert.Equal(t, "High Performer", TierHigh.String())
	assert.Equal(t, "Good Performer", TierGood.String())
	assert.Equal(t, "Average Performer", TierAverage.String())
	assert.Equal(t, "Needs Improvement", TierNeedsImprovement.String())
}

func TestGroupPerformanceEmptyInput(t *testing.T) {
	svc := NewService(Config{MinGroupVolume: 5})

	groups, err := svc.GroupPerformance(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, groups)
}

// groupScenario builds three groups with hand-checkable numbers:
//
//	Alpha:   3 assigned, closed 0.5h+29.5h (both met, one FCR), 1 open for 4 days
//	Bravo:   3 assigned, closed 20h+30h+40h (one met), nothing open
//	Charlie: 2 assigned, both open, no closures at all
func groupScenario() []incident.Enriched {
	return []incident.Enriched{
		closedGroup("Alpha", incident.PriorityLow, 0.5, incident.SLAMet, incident.FCRYes),
		closedGroup("Alpha", incident.PriorityLow, 29.5, incident.SLAMet, incident.FCRNo),
		openGroup("Alpha", 4),
		closedGroup("Bravo", incident.PriorityHigh, 20, incident.SLAMet, incident.FCRNo),
		closedGroup("Bravo", incident.PriorityHigh, 30, incident.SLAMissed, incident.FCRNo),
		closedGroup("Bravo", incident.PriorityHigh, 40, incident.SLAMissed, incident.FCRNo),
		openGroup("Charlie", 2),
		openGroup("Charlie", 9),
	}
}

var seq int

func nextNumber() string {
	seq++
	return fmt.Sprintf("INC%07d", seq)
}

func closedDaily(createdAt time.Time, p incident.Priority, hours float64, sla incident.SLAStatus,
	fcr incident.FCRFlag, tf incident.Timeframe, businessHours, weekend bool) incident.Enriched {
	resolved := createdAt.Add(time.Duration(hours * float64(time.Hour)))
	return incident.Enriched{
		Canonical: incident.Canonical{
			Number:          nextNumber(),
			Priority:        p,
			State:           incident.StateClosed,
			CreatedAt:       createdAt,
			ResolvedAt:      &resolved,
			ResolutionHours: &hours,
			SLAStatus:       sla,
		},
		Timeframe:        tf,
		ResolutionBucket: incident.DeriveResolutionBucket(&hours),
		FirstContact:     fcr,
		BusinessHours:    businessHours,
		Weekend:          weekend,
	}
}

func openDaily(createdAt time.Time, p incident.Priority, daysOpen float64) incident.Enriched {
	return incident.Enriched{
		Canonical: incident.Canonical{
			Number:    nextNumber(),
			Priority:  p,
			State:     incident.StateInProgress,
			CreatedAt: createdAt,
			SLAStatus: incident.SLAUnknown,
		},
		Timeframe:        incident.TimeframeUnresolved,
		ResolutionBucket: incident.BucketUnresolved,
		DaysOpen:         &daysOpen,
		AgingBucket:      incident.DeriveAgingBucket(&daysOpen),
	}
}

func closedGroup(group string, p incident.Priority, hours float64, sla incident.SLAStatus, fcr incident.FCRFlag) incident.Enriched {
	row := closedDaily(monday.Add(9*time.Hour), p, hours, sla, fcr, incident.TimeframeSameDay, true, false)
	row.AssignmentGroup = group
	return row
}

func openGroup(group string, daysOpen float64) incident.Enriched {
	row := openDaily(monday.Add(9*time.Hour), incident.PriorityModerate, daysOpen)
	row.AssignmentGroup = group
	return row
}

func indexByName(groups []GroupPerformance) map[string]GroupPerformance {
	byName := make(map[string]GroupPerformance, len(groups))
	for _, g := range groups {
		byName[g.Group] = g
	}
	return byName
}

func pctOf(v float64) values.Percentage {
	return values.NewPercentageFromFloat(v)
}

func hoursPtr(v float64) *float64 {
	return &v
}
