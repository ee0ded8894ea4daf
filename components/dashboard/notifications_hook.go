package dashboard

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// HookChain fans an event out to several hooks. Every hook runs; their
// errors are joined.
type HookChain []RefreshHook

// DashboardUpdated implements RefreshHook.
func (c HookChain) DashboardUpdated(ctx context.Context, event DashboardEvent) error {
	var errs error
	for _, hook := range c {
		if hook == nil {
			continue
		}
		if err := hook.DashboardUpdated(ctx, event); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// LoggingHook writes every dashboard event to a logger.
type LoggingHook struct {
	Logger *zap.Logger
}

// DashboardUpdated implements RefreshHook.
func (h LoggingHook) DashboardUpdated(_ context.Context, event DashboardEvent) error {
	if h.Logger == nil {
		return nil
	}
	fields := []zap.Field{zap.String("reason", event.Reason)}
	for key, value := range eventPayload(event) {
		if key == "reason" {
			continue
		}
		fields = append(fields, zap.Any(key, value))
	}
	if event.Error != "" {
		h.Logger.Warn("dashboard event", append(fields, zap.String("error", event.Error))...)
		return nil
	}
	h.Logger.Info("dashboard event", fields...)
	return nil
}
