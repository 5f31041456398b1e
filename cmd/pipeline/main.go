package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	apperrors "github.com/incidentops/itsm-kpi-pipeline/internal/domain/errors"
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
	"github.com/incidentops/itsm-kpi-pipeline/internal/infrastructure/config"
	"github.com/incidentops/itsm-kpi-pipeline/internal/infrastructure/database"
	"github.com/incidentops/itsm-kpi-pipeline/internal/infrastructure/sink"
	"github.com/incidentops/itsm-kpi-pipeline/internal/infrastructure/source"
	"github.com/incidentops/itsm-kpi-pipeline/internal/infrastructure/telemetry"
	"github.com/incidentops/itsm-kpi-pipeline/internal/metrics"
	"github.com/incidentops/itsm-kpi-pipeline/internal/service/aggregation"
	"github.com/incidentops/itsm-kpi-pipeline/internal/service/enrichment"
	"github.com/incidentops/itsm-kpi-pipeline/internal/service/pipeline"
	"github.com/incidentops/itsm-kpi-pipeline/internal/service/staging"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// Command-line flags
var (
	configPath  = flag.String("config", "", "Path to configuration file")
	asOf        = flag.String("as-of", "", "Reference time for the run in RFC3339 (default: now)")
	sourceKind  = flag.String("source", "", "Override the configured source: postgres or csv")
	dryRun      = flag.Bool("dry-run", false, "Run every stage but skip sink writes")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(exitCode(err))
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.ErrorContext(ctx, "pipeline_failed", slog.String("error", err.Error()))
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceVersion = version
	telCfg.Environment = cfg.Environment
	telCfg.Enabled = cfg.Telemetry.Enabled
	telCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	telCfg.SamplingRate = cfg.Telemetry.SamplingRate

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telCfg)
	if err != nil {
		return err
	}
	defer func() {
		// The run context is likely canceled or expired by now.
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	if *metricsAddr != "" {
		stop := serveMetrics(*metricsAddr, logger)
		defer stop()
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		return err
	}

	srcKind := cfg.Pipeline.Source
	if *sourceKind != "" {
		srcKind = *sourceKind
	}

	var pool *pgxpool.Pool
	needsPool := srcKind == "postgres" || (!*dryRun && cfg.Pipeline.Sinks.Postgres.Enabled)
	if needsPool {
		pool, err = database.NewPool(ctx, &cfg.Database, zlog)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var src source.RawSource
	switch srcKind {
	case "postgres":
		src = source.NewPostgresSource(pool, cfg.Pipeline.RawTable)
	case "csv":
		if cfg.Pipeline.CSVPath == "" {
			return apperrors.NewConfigurationError("PIPELINE_SOURCE", "csv source requires pipeline.csv_path")
		}
		src = source.NewCSVSource(cfg.Pipeline.CSVPath)
	default:
		return apperrors.NewConfigurationError("PIPELINE_SOURCE", fmt.Sprintf("unknown source %q", srcKind))
	}

	var sinks []sink.Sink
	if !*dryRun {
		if cfg.Pipeline.Sinks.Postgres.Enabled {
			pgSink, err := sink.NewPostgresSink(pool, map[sink.Relation]string{
				sink.RelationIncidentSummary:  cfg.Pipeline.Sinks.Postgres.IncidentSummaryTable,
				sink.RelationDailyKPIs:        cfg.Pipeline.Sinks.Postgres.DailyKPIsTable,
				sink.RelationGroupPerformance: cfg.Pipeline.Sinks.Postgres.GroupPerformanceTable,
			}, zlog)
			if err != nil {
				return err
			}
			sinks = append(sinks, pgSink)
		}
		if cfg.Pipeline.Sinks.Redis.Enabled {
			redisSink, err := sink.NewRedisSink(&cfg.Redis, zlog)
			if err != nil {
				return err
			}
			defer redisSink.Close()
			sinks = append(sinks, redisSink)
		}
	}

	clock := incident.Clock(incident.RealClock{})
	if *asOf != "" {
		ref, err := time.Parse(time.RFC3339, *asOf)
		if err != nil {
			return apperrors.NewValidationError("AS_OF_FORMAT", "as-of must be an RFC3339 timestamp").WithCause(err)
		}
		clock = incident.NewFixedClock(ref)
	}

	slaPolicy, err := cfg.Pipeline.SLAPolicy()
	if err != nil {
		return err
	}
	window, err := cfg.Pipeline.BusinessWindow()
	if err != nil {
		return err
	}
	negPolicy, err := staging.ParseNegativeResolutionPolicy(cfg.Pipeline.NegativeResolutionPolicy)
	if err != nil {
		return apperrors.NewConfigurationError("PIPELINE_NEGATIVE_POLICY", err.Error())
	}

	registry, err := metrics.NewRegistry("itsm.pipeline")
	if err != nil {
		return err
	}

	orch, err := pipeline.New(pipeline.Deps{
		Source: src,
		Stager: staging.NewService(staging.Config{
			SLAPolicy:             slaPolicy,
			NegativePolicy:        negPolicy,
			OutlierThresholdHours: cfg.Pipeline.OutlierThresholdHours,
			Workers:               cfg.Pipeline.Workers,
		}),
		Enricher: enrichment.NewService(enrichment.Config{
			FCRThresholdHours: cfg.Pipeline.FCRThresholdHours,
			Window:            window,
			Workers:           cfg.Pipeline.Workers,
		}),
		Aggregator: aggregation.NewService(aggregation.Config{
			MinGroupVolume: cfg.Pipeline.MinGroupVolume,
		}),
		Sinks:   sinks,
		Clock:   clock,
		Logger:  logger,
		Metrics: registry,
	}, *dryRun)
	if err != nil {
		return err
	}

	report, runErr := orch.Run(ctx)
	recordRunMetrics(report, runErr)
	if runErr != nil {
		return runErr
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return nil
}

// exitCode maps the error taxonomy onto shell conventions so schedulers can
// tell a bad config from a flaky database.
func exitCode(err error) int {
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeConfiguration),
		apperrors.IsType(err, apperrors.ErrorTypeValidation):
		return 2
	case apperrors.IsType(err, apperrors.ErrorTypeInfrastructure):
		return 3
	default:
		return 1
	}
}
