package app

import (
	"context"
	"log/slog"
)

// LogRecorder is a MetricsRecorder that writes samples to the structured
// log at debug level. Used in local development where no metrics backend is
// wired; production relies on the OTLP pipeline configured in observability.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder creates a LogRecorder writing to logger.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record logs one dispatch sample. Never blocks and never fails the caller.
func (r *LogRecorder) Record(ctx context.Context, s Sample) {
	r.logger.DebugContext(ctx, "dispatch sample",
		slog.String("endpoint_key", s.EndpointKey),
		slog.String("tenant_id", s.TenantID),
		slog.String("status_class", s.StatusClass),
		slog.Int64("latency_ms", s.LatencyMs),
		slog.Bool("cached", s.Cached),
		slog.Int64("quota_consumed", s.QuotaConsumed),
	)
}

var _ MetricsRecorder = (*LogRecorder)(nil)
