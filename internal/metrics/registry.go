package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Exclusion reasons and quality-warning kinds recorded by staging.
const (
	ReasonMissingFields = "missing_fields"
	ReasonDuplicate     = "duplicate"

	KindNegativeResolution = "negative_resolution"
	KindOutlierResolution  = "outlier_resolution"

	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Registry holds the pipeline metrics. A nil *Registry is a valid no-op
// recorder, so callers that run without telemetry skip the wiring entirely.
type Registry struct {
	meter metric.Meter

	// Stage metrics
	StageDuration metric.Float64Histogram
	RowsProcessed metric.Int64Counter

	// Data quality metrics
	RowsExcluded    metric.Int64Counter
	QualityWarnings metric.Int64Counter

	// Sink metrics
	SinkWriteDuration metric.Float64Histogram
	SinkRowsWritten   metric.Int64Counter

	// Run metrics
	RunCounter      metric.Int64Counter
	LastRunRows     metric.Int64ObservableGauge
	LastSuccessUnix metric.Float64ObservableGauge

	// State for observable metrics
	mu              sync.RWMutex
	lastRunRows     int64
	lastSuccessTime time.Time
}

// NewRegistry creates a registry with all pipeline metrics registered on
// the named meter.
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initStageMetrics(); err != nil {
		return nil, err
	}
	if err := r.initQualityMetrics(); err != nil {
		return nil, err
	}
	if err := r.initSinkMetrics(); err != nil {
		return nil, err
	}
	if err := r.initRunMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) initStageMetrics() error {
	var err error

	r.StageDuration, err = r.meter.Float64Histogram(
		"itsm.pipeline.stage_duration",
		metric.WithDescription("Duration of one pipeline stage in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300),
	)
	if err != nil {
		return err
	}

	r.RowsProcessed, err = r.meter.Int64Counter(
		"itsm.pipeline.rows_processed",
		metric.WithDescription("Rows emitted by each pipeline stage"),
	)
	return err
}

func (r *Registry) initQualityMetrics() error {
	var err error

	r.RowsExcluded, err = r.meter.Int64Counter(
		"itsm.pipeline.rows_excluded",
		metric.WithDescription("Rows excluded during staging, by reason"),
	)
	if err != nil {
		return err
	}

	r.QualityWarnings, err = r.meter.Int64Counter(
		"itsm.pipeline.quality_warnings",
		metric.WithDescription("Rows flagged but kept during staging, by kind"),
	)
	return err
}

func (r *Registry) initSinkMetrics() error {
	var err error

	r.SinkWriteDuration, err = r.meter.Float64Histogram(
		"itsm.sink.write_duration",
		metric.WithDescription("Duration of one relation materialization in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60),
	)
	if err != nil {
		return err
	}

	r.SinkRowsWritten, err = r.meter.Int64Counter(
		"itsm.sink.rows_written",
		metric.WithDescription("Rows written per sink and relation"),
	)
	return err
}

func (r *Registry) initRunMetrics() error {
	var err error

	r.RunCounter, err = r.meter.Int64Counter(
		"itsm.pipeline.runs",
		metric.WithDescription("Completed pipeline runs, by outcome"),
	)
	if err != nil {
		return err
	}

	r.LastRunRows, err = r.meter.Int64ObservableGauge(
		"itsm.pipeline.last_run_rows",
		metric.WithDescription("Staged rows in the most recent successful run"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.lastRunRows)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.LastSuccessUnix, err = r.meter.Float64ObservableGauge(
		"itsm.pipeline.last_success_timestamp",
		metric.WithDescription("Unix time of the most recent successful run"),
		metric.WithUnit("s"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			if !r.lastSuccessTime.IsZero() {
				o.Observe(float64(r.lastSuccessTime.Unix()))
			}
			return nil
		}),
	)
	return err
}

// RecordStage records the duration and output row count of one stage.
func (r *Registry) RecordStage(ctx context.Context, stage string, duration time.Duration, rows int) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	r.StageDuration.Record(ctx, duration.Seconds(), attrs)
	r.RowsProcessed.Add(ctx, int64(rows), attrs)
}

// RecordExclusions records rows dropped during staging.
func (r *Registry) RecordExclusions(ctx context.Context, reason string, count int) {
	if r == nil || count == 0 {
		return
	}
	r.RowsExcluded.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordQualityWarnings records rows flagged but kept during staging.
func (r *Registry) RecordQualityWarnings(ctx context.Context, kind string, count int) {
	if r == nil || count == 0 {
		return
	}
	r.QualityWarnings.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordSinkWrite records one materialized relation.
func (r *Registry) RecordSinkWrite(ctx context.Context, sinkName, relation string, duration time.Duration, rows int) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("sink", sinkName),
		attribute.String("relation", relation),
	)
	r.SinkWriteDuration.Record(ctx, duration.Seconds(), attrs)
	r.SinkRowsWritten.Add(ctx, int64(rows), attrs)
}

// RecordRunSucceeded marks a successful run and updates the freshness gauges.
func (r *Registry) RecordRunSucceeded(ctx context.Context, stagedRows int) {
	if r == nil {
		return
	}
	r.RunCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", OutcomeSucceeded)))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRunRows = int64(stagedRows)
	r.lastSuccessTime = time.Now()
}

// RecordRunFailed marks a failed run.
func (r *Registry) RecordRunFailed(ctx context.Context) {
	if r == nil {
		return
	}
	r.RunCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", OutcomeFailed)))
}
