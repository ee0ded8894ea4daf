package dashboard

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// LoggerTelemetry writes every event as a debug log line.
type LoggerTelemetry struct {
	logger *zap.Logger
}

// NewLoggerTelemetry returns telemetry backed by logger.
func NewLoggerTelemetry(logger *zap.Logger) *LoggerTelemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerTelemetry{logger: logger.Named("telemetry")}
}

// Record implements Telemetry.
func (t *LoggerTelemetry) Record(ctx context.Context, event string, payload map[string]any) {
	fields := make([]zap.Field, 0, len(payload)+1)
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, payload[k]))
	}
	if meta := activityContextFrom(ctx); meta.UserID != "" {
		fields = append(fields, zap.String("user_id", meta.UserID))
	}
	t.logger.Debug(event, fields...)
}
