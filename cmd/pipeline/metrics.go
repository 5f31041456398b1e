package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/incidentops/itsm-kpi-pipeline/internal/metrics"
	"github.com/incidentops/itsm-kpi-pipeline/internal/service/pipeline"
)

// Metric definitions for the pipeline binary

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "itsm",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"outcome"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "itsm",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms to ~160s
		},
		[]string{"stage"},
	)

	stageRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "itsm",
			Subsystem: "pipeline",
			Name:      "stage_rows_total",
			Help:      "Rows produced per stage",
		},
		[]string{"stage"},
	)

	rowsExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "itsm",
			Subsystem: "staging",
			Name:      "rows_excluded_total",
			Help:      "Rows excluded during staging",
		},
		[]string{"reason"},
	)

	qualityWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "itsm",
			Subsystem: "staging",
			Name:      "quality_warnings_total",
			Help:      "Data quality warnings raised during staging",
		},
		[]string{"kind"},
	)

	lastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "itsm",
			Subsystem: "pipeline",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		},
	)
)

// recordRunMetrics mirrors the run report into the Prometheus registry so a
// scrape during the run window sees the same numbers the OTLP export carries.
// Label values are shared with the internal registry.
func recordRunMetrics(report *pipeline.RunReport, runErr error) {
	if runErr != nil {
		runsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return
	}

	runsTotal.WithLabelValues(metrics.OutcomeSucceeded).Inc()
	lastSuccessTimestamp.Set(float64(report.CompletedAt.Unix()))

	for _, stage := range report.Stages {
		stageDuration.WithLabelValues(stage.Name).Observe(stage.Duration.Seconds())
		stageRows.WithLabelValues(stage.Name).Add(float64(stage.Rows))
	}

	sr := report.Staging
	rowsExcluded.WithLabelValues(metrics.ReasonMissingFields).Add(float64(sr.DroppedIncomplete))
	rowsExcluded.WithLabelValues(metrics.ReasonDuplicate).Add(float64(sr.DroppedDuplicates))
	qualityWarnings.WithLabelValues(metrics.KindNegativeResolution).Add(float64(sr.NegativeResolutions))
	qualityWarnings.WithLabelValues(metrics.KindOutlierResolution).Add(float64(sr.OutlierResolutions))
}

// serveMetrics exposes /metrics until the returned stop function runs. The
// listener lives only as long as the run.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_listener_failed", slog.String("error", err.Error()))
		}
	}()
	logger.Info("metrics_listener_started", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
