package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// SetupLogger creates the process-wide structured logger. Records are JSON on
// stdout and carry the active trace context, so a batch run's log lines can be
// correlated with its pipeline spans.
func SetupLogger(level string) (*slog.Logger, error) {
	return NewLogger(os.Stdout, level), nil
}

// NewLogger builds a trace-aware JSON logger writing to w. Split out from
// SetupLogger so tests can capture output.
func NewLogger(w io.Writer, level string) *slog.Logger {
	logLevel := ParseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	handler := &TracedHandler{
		Handler: slog.NewJSONHandler(w, opts),
	}

	return slog.New(handler)
}

// ParseLevel maps a config level string to a slog level. Unknown values fall
// back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TracedHandler is a slog handler that stamps each record with the
// OpenTelemetry trace context found on the logging context.
type TracedHandler struct {
	slog.Handler
}

// Handle adds trace_id, span_id and the sampled flag to the record when the
// context carries a valid span.
func (h *TracedHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)

		if span.SpanContext().IsSampled() {
			r.AddAttrs(slog.Bool("sampled", true))
		}
	}

	return h.Handler.Handle(ctx, r)
}

// WithAttrs keeps derived handlers trace-aware. Without this override,
// logger.With(...) would unwrap to the plain JSON handler.
func (h *TracedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracedHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup keeps derived handlers trace-aware.
func (h *TracedHandler) WithGroup(name string) slog.Handler {
	return &TracedHandler{Handler: h.Handler.WithGroup(name)}
}
