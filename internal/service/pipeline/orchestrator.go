package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/errors"
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
	"github.com/incidentops/itsm-kpi-pipeline/internal/infrastructure/sink"
	"github.com/incidentops/itsm-kpi-pipeline/internal/infrastructure/source"
	"github.com/incidentops/itsm-kpi-pipeline/internal/infrastructure/telemetry"
	"github.com/incidentops/itsm-kpi-pipeline/internal/metrics"
	"github.com/incidentops/itsm-kpi-pipeline/internal/service/aggregation"
	"github.com/incidentops/itsm-kpi-pipeline/internal/service/enrichment"
	"github.com/incidentops/itsm-kpi-pipeline/internal/service/staging"
)

// Deps wires the orchestrator. Source, Stager, Enricher, Aggregator and
// Logger are required; a nil Clock falls back to the system clock and a
// nil Metrics registry disables recording.
type Deps struct {
	Source     source.RawSource
	Stager     staging.Service
	Enricher   enrichment.Service
	Aggregator aggregation.Service
	Sinks      []sink.Sink
	Clock      incident.Clock
	Logger     *slog.Logger
	Metrics    *metrics.Registry
}

// Orchestrator executes one full-refresh run: extract, stage, enrich,
// aggregate, materialize. Each stage consumes the previous stage's whole
// output, so a run either replaces every mart or none of them.
type Orchestrator struct {
	deps   Deps
	tracer trace.Tracer
	dryRun bool
}

// New validates the wiring. Dry runs skip materialization, so they are the
// only runs allowed to have no sinks.
func New(deps Deps, dryRun bool) (*Orchestrator, error) {
	if deps.Source == nil {
		return nil, errors.NewConfigurationError("PIPELINE_DEPS", "raw source is required")
	}
	if deps.Stager == nil {
		return nil, errors.NewConfigurationError("PIPELINE_DEPS", "staging service is required")
	}
	if deps.Enricher == nil {
		return nil, errors.NewConfigurationError("PIPELINE_DEPS", "enrichment service is required")
	}
	if deps.Aggregator == nil {
		return nil, errors.NewConfigurationError("PIPELINE_DEPS", "aggregation service is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewConfigurationError("PIPELINE_DEPS", "logger is required")
	}
	if len(deps.Sinks) == 0 && !dryRun {
		return nil, errors.NewConfigurationError("PIPELINE_DEPS", "at least one sink is required unless running dry")
	}
	if deps.Clock == nil {
		deps.Clock = incident.RealClock{}
	}
	return &Orchestrator{
		deps:   deps,
		tracer: telemetry.Tracer("itsm.pipeline"),
		dryRun: dryRun,
	}, nil
}

// runState carries stage outputs through one run.
type runState struct {
	raw      []incident.Raw
	staged   []incident.Canonical
	enriched []incident.Enriched
	daily    []aggregation.DailyKPI
	groups   []aggregation.GroupPerformance
}

// Run executes the pipeline once and reports what happened. The returned
// error is the first stage failure; the marts are untouched past the last
// completed materialization.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:         uuid.New(),
		ReferenceTime: o.deps.Clock.Now().UTC(),
		StartedAt:     time.Now().UTC(),
		DryRun:        o.dryRun,
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run_id", report.RunID.String()),
			attribute.Bool("dry_run", o.dryRun),
		))
	defer span.End()

	logger := o.deps.Logger.With(slog.String("run_id", report.RunID.String()))
	logger.InfoContext(ctx, "run_started",
		slog.Time("reference_time", report.ReferenceTime),
		slog.String("source", o.deps.Source.Name()),
		slog.Bool("dry_run", o.dryRun),
	)

	st := &runState{}
	ordered, err := order(o.stages(st, report))
	if err != nil {
		o.deps.Metrics.RecordRunFailed(ctx)
		telemetry.RecordError(span, err)
		return nil, err
	}

	for _, stage := range ordered {
		stageCtx, stageSpan := o.tracer.Start(ctx, "pipeline."+stage.Name)
		start := time.Now()
		rows, err := stage.Run(stageCtx)
		elapsed := time.Since(start)
		if err != nil {
			telemetry.RecordError(stageSpan, err)
			stageSpan.End()
			o.deps.Metrics.RecordRunFailed(ctx)
			telemetry.RecordError(span, err)
			logger.ErrorContext(ctx, "stage_failed",
				slog.String("stage", stage.Name),
				slog.Duration("duration", elapsed),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		stageSpan.SetAttributes(attribute.Int("rows", rows))
		stageSpan.End()

		report.Stages = append(report.Stages, StageResult{
			Name:     stage.Name,
			Rows:     rows,
			Duration: elapsed,
		})
		o.deps.Metrics.RecordStage(ctx, stage.Name, elapsed, rows)
		logger.InfoContext(ctx, "stage_completed",
			slog.String("stage", stage.Name),
			slog.Int("rows", rows),
			slog.Duration("duration", elapsed),
		)
	}

	report.CompletedAt = time.Now().UTC()
	o.deps.Metrics.RecordRunSucceeded(ctx, report.Staging.StagedRows)

	logger.InfoContext(ctx, "run_completed",
		slog.Int("staged_rows", report.Staging.StagedRows),
		slog.Int("dropped_rows", report.Staging.Dropped()),
		slog.String("materialized", strings.Join(report.Materialized, ",")),
		slog.Duration("duration", report.Duration()),
	)

	return report, nil
}

func (o *Orchestrator) stages(st *runState, report *RunReport) []Stage {
	return []Stage{
		{
			Name: "extract",
			Run: func(ctx context.Context) (int, error) {
				rows, err := o.deps.Source.Fetch(ctx)
				if err != nil {
					return 0, err
				}
				st.raw = rows
				return len(rows), nil
			},
		},
		{
			Name:      "stage",
			DependsOn: []string{"extract"},
			Run: func(ctx context.Context) (int, error) {
				res, err := o.deps.Stager.Stage(ctx, st.raw)
				if err != nil {
					return 0, err
				}
				st.staged = res.Incidents
				report.Staging = res.Report
				o.deps.Metrics.RecordExclusions(ctx, metrics.ReasonMissingFields, res.Report.DroppedIncomplete)
				o.deps.Metrics.RecordExclusions(ctx, metrics.ReasonDuplicate, res.Report.DroppedDuplicates)
				o.deps.Metrics.RecordQualityWarnings(ctx, metrics.KindNegativeResolution, res.Report.NegativeResolutions)
				o.deps.Metrics.RecordQualityWarnings(ctx, metrics.KindOutlierResolution, res.Report.OutlierResolutions)
				return len(res.Incidents), nil
			},
		},
		{
			Name:      "enrich",
			DependsOn: []string{"stage"},
			Run: func(ctx context.Context) (int, error) {
				rows, err := o.deps.Enricher.Enrich(ctx, st.staged, report.ReferenceTime)
				if err != nil {
					return 0, err
				}
				st.enriched = rows
				return len(rows), nil
			},
		},
		{
			Name:      "aggregate_daily",
			DependsOn: []string{"enrich"},
			Run: func(ctx context.Context) (int, error) {
				rows, err := o.deps.Aggregator.DailyKPIs(ctx, st.enriched)
				if err != nil {
					return 0, err
				}
				st.daily = rows
				return len(rows), nil
			},
		},
		{
			Name:      "aggregate_groups",
			DependsOn: []string{"enrich"},
			Run: func(ctx context.Context) (int, error) {
				rows, err := o.deps.Aggregator.GroupPerformance(ctx, st.enriched)
				if err != nil {
					return 0, err
				}
				st.groups = rows
				return len(rows), nil
			},
		},
		{
			Name:      "materialize",
			DependsOn: []string{"aggregate_daily", "aggregate_groups"},
			Run: func(ctx context.Context) (int, error) {
				return o.materialize(ctx, st, report)
			},
		},
	}
}

func (o *Orchestrator) materialize(ctx context.Context, st *runState, report *RunReport) (int, error) {
	if o.dryRun {
		o.deps.Logger.InfoContext(ctx, "materialization_skipped", slog.Bool("dry_run", true))
		return 0, nil
	}

	datasets := []sink.Dataset{
		sink.IncidentSummaryDataset(st.enriched),
		sink.DailyKPIDataset(st.daily),
		sink.GroupPerformanceDataset(st.groups),
	}

	total := 0
	for _, target := range o.deps.Sinks {
		for _, ds := range datasets {
			start := time.Now()
			if err := target.Materialize(ctx, ds); err != nil {
				return 0, err
			}
			o.deps.Metrics.RecordSinkWrite(ctx, target.Name(), string(ds.Relation), time.Since(start), len(ds.Rows))
			total += len(ds.Rows)
		}
		report.Materialized = append(report.Materialized, target.Name())
	}
	return total, nil
}
