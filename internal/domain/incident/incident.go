package incident

import (
	"time"
)

// Raw is one incident row exactly as extracted from the source, before any
// normalization. String fields carry the source labels verbatim; pointer
// fields are nil when the source column was NULL or blank.
type Raw struct {
	Number            string     `json:"inc_number"`
	Priority          string     `json:"inc_priority"`
	State             string     `json:"inc_state"`
	CreatedAt         *time.Time `json:"inc_sys_created_on"`
	ResolvedAt        *time.Time `json:"inc_resolved_at"`
	SLADue            *time.Time `json:"inc_sla_due"`
	AssignmentGroup   string     `json:"inc_assignment_group"`
	AssignedTo        string     `json:"inc_assigned_to"`
	Category          string     `json:"inc_category"`
	BusinessService   string     `json:"inc_business_service"`
	ConfigurationItem string     `json:"inc_cmdb_ci"`
	CallerID          string     `json:"inc_caller_id"`
	ShortDescription  string     `json:"inc_short_description"`
	CloseCode         string     `json:"inc_close_code"`
	CloseNotes        string     `json:"inc_close_notes"`
	ResolutionHours   *float64   `json:"resolution_time_hours"`
}

// Canonical is a staged incident: validated, deduplicated, with labels
// normalized into typed enums and resolution time settled. CreatedAt is
// always present; staging drops rows without it.
type Canonical struct {
	Number            string     `json:"number"`
	Priority          Priority   `json:"priority"`
	State             State      `json:"state"`
	CreatedAt         time.Time  `json:"created_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	SLADue            *time.Time `json:"sla_due,omitempty"`
	AssignmentGroup   string     `json:"assignment_group"`
	AssignedTo        string     `json:"assigned_to"`
	Category          string     `json:"category"`
	BusinessService   string     `json:"business_service"`
	ConfigurationItem string     `json:"configuration_item"`
	CallerID          string     `json:"caller_id"`
	ShortDescription  string     `json:"short_description"`
	CloseCode         string     `json:"close_code"`
	ResolutionHours   *float64   `json:"resolution_hours,omitempty"`
	SLAStatus         SLAStatus  `json:"sla_status"`
}

// HasResolution reports whether the incident carries usable resolution time.
func (c Canonical) HasResolution() bool {
	return c.ResolutionHours != nil
}

// Enriched is a canonical incident plus the derived analytics columns. All
// derivations are pure functions of the canonical row and the run's
// reference time.
type Enriched struct {
	Canonical

	Timeframe        Timeframe        `json:"resolution_timeframe"`
	ResolutionBucket ResolutionBucket `json:"resolution_bucket"`
	FirstContact     FCRFlag          `json:"fcr_flag"`
	BusinessHours    bool             `json:"is_business_hours"`
	Weekend          bool             `json:"is_weekend"`
	DaysOpen         *float64         `json:"days_open,omitempty"`
	AgingBucket      AgingBucket      `json:"aging_bucket"`
}
