package fixtures

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
)

// BaseTime is the canonical creation instant for fixtures: a Monday at
// 09:00 UTC, inside the default business window. Scenarios that need
// weekends or after-hours shift from here.
var BaseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

var sequence atomic.Int64

func nextNumber() string {
	return fmt.Sprintf("INC%07d", sequence.Add(1))
}

// IncidentBuilder builds raw incident rows for tests. The default is a
// moderate-priority incident created at BaseTime and resolved in two hours.
type IncidentBuilder struct {
	t *testing.T

	number    string
	priority  string
	state     string
	createdAt *time.Time
	resolveIn *time.Duration
	hours     *float64
	slaDue    *time.Time

	group      string
	assignedTo string
	category   string
	service    string
	ci         string
	caller     string
	desc       string
	closeCode  string
	closeNotes string
}

// NewIncidentBuilder creates a builder with defaults.
func NewIncidentBuilder(t *testing.T) *IncidentBuilder {
	t.Helper()

	created := BaseTime
	resolveIn := 2 * time.Hour

	return &IncidentBuilder{
		t:          t,
		number:     nextNumber(),
		priority:   "3 - Moderate",
		state:      "Closed",
		createdAt:  &created,
		resolveIn:  &resolveIn,
		group:      "Service Desk",
		assignedTo: "alex.rivera",
		category:   "software",
		service:    "Email",
		ci:         "mail-gw-01",
		caller:     "dana.smith",
		desc:       "Cannot access mailbox",
		closeCode:  "Solved (Permanently)",
	}
}

// WithNumber sets the incident number.
func (b *IncidentBuilder) WithNumber(number string) *IncidentBuilder {
	b.number = number
	return b
}

// WithoutNumber clears the incident number, producing a row staging drops.
func (b *IncidentBuilder) WithoutNumber() *IncidentBuilder {
	b.number = ""
	return b
}

// WithPriority sets the raw priority label, e.g. "1 - Critical".
func (b *IncidentBuilder) WithPriority(priority string) *IncidentBuilder {
	b.priority = priority
	return b
}

// WithState sets the raw state label.
func (b *IncidentBuilder) WithState(state string) *IncidentBuilder {
	b.state = state
	return b
}

// WithCreatedAt sets the creation time. Resolution offsets stay relative.
func (b *IncidentBuilder) WithCreatedAt(created time.Time) *IncidentBuilder {
	b.createdAt = &created
	return b
}

// WithoutCreatedAt clears the creation time, producing a row staging drops.
func (b *IncidentBuilder) WithoutCreatedAt() *IncidentBuilder {
	b.createdAt = nil
	return b
}

// ResolvedIn marks the incident resolved after d and closes it.
func (b *IncidentBuilder) ResolvedIn(d time.Duration) *IncidentBuilder {
	b.resolveIn = &d
	b.state = "Closed"
	return b
}

// Unresolved clears resolution fields and leaves the incident in progress.
func (b *IncidentBuilder) Unresolved() *IncidentBuilder {
	b.resolveIn = nil
	b.hours = nil
	b.state = "In Progress"
	return b
}

// WithResolutionHours overrides the resolution_time_hours column, letting
// the source column disagree with the timestamps.
func (b *IncidentBuilder) WithResolutionHours(hours float64) *IncidentBuilder {
	b.hours = &hours
	return b
}

// WithSLADue sets the SLA due timestamp from the source system.
func (b *IncidentBuilder) WithSLADue(due time.Time) *IncidentBuilder {
	b.slaDue = &due
	return b
}

// WithGroup sets the assignment group.
func (b *IncidentBuilder) WithGroup(group string) *IncidentBuilder {
	b.group = group
	return b
}

// WithAssignee sets the assigned technician.
func (b *IncidentBuilder) WithAssignee(assignee string) *IncidentBuilder {
	b.assignedTo = assignee
	return b
}

// WithCategory sets the incident category.
func (b *IncidentBuilder) WithCategory(category string) *IncidentBuilder {
	b.category = category
	return b
}

// WithCloseCode sets the close code.
func (b *IncidentBuilder) WithCloseCode(code string) *IncidentBuilder {
	b.closeCode = code
	return b
}

// Build assembles the raw row.
func (b *IncidentBuilder) Build() incident.Raw {
	raw := incident.Raw{
		Number:            b.number,
		Priority:          b.priority,
		State:             b.state,
		CreatedAt:         b.createdAt,
		SLADue:            b.slaDue,
		AssignmentGroup:   b.group,
		AssignedTo:        b.assignedTo,
		Category:          b.category,
		BusinessService:   b.service,
		ConfigurationItem: b.ci,
		CallerID:          b.caller,
		ShortDescription:  b.desc,
		CloseCode:         b.closeCode,
		CloseNotes:        b.closeNotes,
	}

	if b.resolveIn != nil && b.createdAt != nil {
		resolved := b.createdAt.Add(*b.resolveIn)
		hours := b.resolveIn.Hours()
		raw.ResolvedAt = &resolved
		raw.ResolutionHours = &hours
	}
	if b.hours != nil {
		raw.ResolutionHours = b.hours
	}

	return raw
}

// IncidentScenarios provides common incident test scenarios.
type IncidentScenarios struct {
	t *testing.T
}

// NewIncidentScenarios creates a new IncidentScenarios helper.
func NewIncidentScenarios(t *testing.T) *IncidentScenarios {
	t.Helper()
	return &IncidentScenarios{t: t}
}

// CriticalWithinSLA resolves a critical incident inside its four hours.
func (s *IncidentScenarios) CriticalWithinSLA() incident.Raw {
	return NewIncidentBuilder(s.t).
		WithPriority("1 - Critical").
		ResolvedIn(3 * time.Hour).
		Build()
}

// CriticalMissedSLA blows the four-hour critical threshold.
func (s *IncidentScenarios) CriticalMissedSLA() incident.Raw {
	return NewIncidentBuilder(s.t).
		WithPriority("1 - Critical").
		ResolvedIn(6 * time.Hour).
		Build()
}

// FirstContactResolution resolves within the one-hour FCR threshold.
func (s *IncidentScenarios) FirstContactResolution() incident.Raw {
	return NewIncidentBuilder(s.t).
		ResolvedIn(30 * time.Minute).
		Build()
}

// OpenAging creates an unresolved incident opened daysAgo before BaseTime.
func (s *IncidentScenarios) OpenAging(daysAgo int) incident.Raw {
	return NewIncidentBuilder(s.t).
		WithCreatedAt(BaseTime.AddDate(0, 0, -daysAgo)).
		Unresolved().
		Build()
}

// NegativeResolution carries an hours column the source computed backwards.
func (s *IncidentScenarios) NegativeResolution() incident.Raw {
	return NewIncidentBuilder(s.t).
		ResolvedIn(2 * time.Hour).
		WithResolutionHours(-2).
		Build()
}

// OutlierResolution closes after more than thirty days.
func (s *IncidentScenarios) OutlierResolution() incident.Raw {
	return NewIncidentBuilder(s.t).
		ResolvedIn(800 * time.Hour).
		Build()
}

// WeekendIncident is created on a Saturday.
func (s *IncidentScenarios) WeekendIncident() incident.Raw {
	return NewIncidentBuilder(s.t).
		WithCreatedAt(time.Date(2025, 3, 15, 11, 0, 0, 0, time.UTC)).
		Build()
}
