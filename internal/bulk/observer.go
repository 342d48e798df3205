package bulk

import (
	"context"

	"go.uber.org/zap"

	"github.com/pitabwire/tabula/internal/observability"
)

// MetricsObserver records dispatch outcomes in Prometheus.
type MetricsObserver struct {
	metrics *observability.Metrics
}

// NewMetricsObserver creates an observer over m.
func NewMetricsObserver(m *observability.Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

// OnBulkDispatched implements Observer.
func (o *MetricsObserver) OnBulkDispatched(_ context.Context, e Event) {
	status := "success"
	if !e.Success {
		status = "failure"
	}
	o.metrics.RecordBulkDispatch(e.TableID, e.ActionID, status, e.Duration)
}

// LogObserver writes one structured log line per dispatch.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates an observer that logs to logger.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// OnBulkDispatched implements Observer. Failures are logged at warn level.
func (o *LogObserver) OnBulkDispatched(ctx context.Context, e Event) {
	logger := observability.RequestLogger(ctx, o.logger)
	fields := []zap.Field{
		zap.String("table_id", e.TableID),
		zap.String("action_id", e.ActionID),
		zap.Int("count", e.Count),
		zap.Duration("duration", e.Duration),
	}
	if !e.Success {
		logger.Warn("bulk dispatch failed", append(fields, zap.String("error", e.Error))...)
		return
	}
	logger.Info("bulk dispatch completed", fields...)
}
