package staging

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/values"
)

// defaultOutlierThresholdHours is 30 days, the point past which a resolution
// time is suspicious enough to flag.
const defaultOutlierThresholdHours = 720

// service implements the Service interface
type service struct {
	cfg Config
}

// NewService creates a new staging service. Zero-value config fields fall
// back to safe defaults, including the standard SLA policy.
func NewService(cfg Config) Service {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.OutlierThresholdHours <= 0 {
		cfg.OutlierThresholdHours = defaultOutlierThresholdHours
	}
	if cfg.NegativePolicy == "" {
		cfg.NegativePolicy = NegativePolicyExclude
	}
	if cfg.SLAPolicy.IsZero() {
		cfg.SLAPolicy = values.DefaultSLAPolicy()
	}
	return &service{cfg: cfg}
}

// Stage normalizes rows in parallel, then deduplicates in input order. The
// per-row pass is pure, so the fan-out cannot change the outcome; only the
// dedup fold cares about order, and it always sees rows as the source
// delivered them.
func (s *service) Stage(ctx context.Context, rows []incident.Raw) (*Result, error) {
	staged := make([]stagedRow, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range rows {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			staged[i] = s.stageRow(rows[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Incidents: make([]incident.Canonical, 0, len(rows)),
		Report:    Report{InputRows: len(rows)},
	}
	seen := make(map[string]struct{}, len(rows))
	for _, row := range staged {
		if row.incomplete {
			result.Report.DroppedIncomplete++
			continue
		}
		if _, dup := seen[row.incident.Number]; dup {
			result.Report.DroppedDuplicates++
			continue
		}
		seen[row.incident.Number] = struct{}{}
		if row.negative {
			result.Report.NegativeResolutions++
		}
		if row.outlier {
			result.Report.OutlierResolutions++
		}
		result.Incidents = append(result.Incidents, row.incident)
	}
	result.Report.StagedRows = len(result.Incidents)

	return result, nil
}

type stagedRow struct {
	incident   incident.Canonical
	incomplete bool
	negative   bool
	outlier    bool
}

func (s *service) stageRow(raw incident.Raw) stagedRow {
	number := strings.TrimSpace(raw.Number)
	if number == "" || raw.CreatedAt == nil {
		return stagedRow{incomplete: true}
	}

	hours := resolutionHours(raw)
	negative := hours != nil && *hours < 0
	if negative {
		switch s.cfg.NegativePolicy {
		case NegativePolicyClamp:
			zero := 0.0
			hours = &zero
		default:
			hours = nil
		}
	}
	outlier := hours != nil && *hours > s.cfg.OutlierThresholdHours

	priority := incident.ParsePriority(raw.Priority)

	c := incident.Canonical{
		Number:            number,
		Priority:          priority,
		State:             incident.ParseState(raw.State),
		CreatedAt:         raw.CreatedAt.UTC(),
		ResolvedAt:        normalizeTime(raw.ResolvedAt),
		SLADue:            normalizeTime(raw.SLADue),
		AssignmentGroup:   strings.TrimSpace(raw.AssignmentGroup),
		AssignedTo:        strings.TrimSpace(raw.AssignedTo),
		Category:          strings.TrimSpace(raw.Category),
		BusinessService:   strings.TrimSpace(raw.BusinessService),
		ConfigurationItem: strings.TrimSpace(raw.ConfigurationItem),
		CallerID:          strings.TrimSpace(raw.CallerID),
		ShortDescription:  raw.ShortDescription,
		CloseCode:         strings.TrimSpace(raw.CloseCode),
		ResolutionHours:   hours,
		SLAStatus:         incident.EvaluateSLA(priority, hours, s.cfg.SLAPolicy),
	}

	return stagedRow{incident: c, negative: negative, outlier: outlier}
}

// resolutionHours prefers the precomputed source column and falls back to
// the timestamp delta when the column is absent.
func resolutionHours(raw incident.Raw) *float64 {
	if raw.ResolutionHours != nil {
		h := *raw.ResolutionHours
		return &h
	}
	if raw.ResolvedAt == nil || raw.CreatedAt == nil {
		return nil
	}
	h := raw.ResolvedAt.Sub(*raw.CreatedAt).Hours()
	return &h
}

func normalizeTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
