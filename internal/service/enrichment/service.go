package enrichment

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/values"
)

// Service derives the analytics columns for staged incidents. Every
// derivation is a pure function of the row and the run's reference time, so
// a rerun with the same asOf reproduces the dataset exactly.
type Service interface {
	Enrich(ctx context.Context, rows []incident.Canonical, asOf time.Time) ([]incident.Enriched, error)
}

// Config carries the tunable enrichment rules.
type Config struct {
	FCRThresholdHours float64
	Window            values.BusinessWindow
	Workers           int
}

// defaultFCRThresholdHours treats anything resolved within an hour as a
// first-contact resolution.
const defaultFCRThresholdHours = 1

type service struct {
	cfg Config
}

// NewService creates a new enrichment service.
func NewService(cfg Config) Service {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.FCRThresholdHours <= 0 {
		cfg.FCRThresholdHours = defaultFCRThresholdHours
	}
	if cfg.Window.IsZero() {
		cfg.Window = values.DefaultBusinessWindow()
	}
	return &service{cfg: cfg}
}

func (s *service) Enrich(ctx context.Context, rows []incident.Canonical, asOf time.Time) ([]incident.Enriched, error) {
	asOf = asOf.UTC()
	enriched := make([]incident.Enriched, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range rows {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			enriched[i] = s.enrichRow(rows[i], asOf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return enriched, nil
}

func (s *service) enrichRow(c incident.Canonical, asOf time.Time) incident.Enriched {
	daysOpen := incident.DeriveDaysOpen(c.State, c.CreatedAt, asOf)

	return incident.Enriched{
		Canonical:        c,
		Timeframe:        incident.DeriveTimeframe(c.CreatedAt, c.ResolvedAt),
		ResolutionBucket: incident.DeriveResolutionBucket(c.ResolutionHours),
		FirstContact:     incident.DeriveFCR(c.ResolutionHours, s.cfg.FCRThresholdHours),
		BusinessHours:    s.cfg.Window.Contains(c.CreatedAt),
		Weekend:          !s.cfg.Window.IsBusinessDay(c.CreatedAt),
		DaysOpen:         daysOpen,
		AgingBucket:      incident.DeriveAgingBucket(daysOpen),
	}
}
