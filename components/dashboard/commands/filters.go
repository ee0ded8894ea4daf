package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

type filterService interface {
	AddFilter(ctx context.Context, req dashboard.AddFilterRequest) error
	RemoveFilter(ctx context.Context, req dashboard.RemoveFilterRequest) error
}

// AddFilterCommand adds a dashboard filter. Adding an existing id is a no-op.
type AddFilterCommand struct {
	service   filterService
	telemetry Telemetry
}

// NewAddFilterCommand creates the command.
func NewAddFilterCommand(service filterService, telemetry Telemetry) *AddFilterCommand {
	return &AddFilterCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.AddFilterRequest] = (*AddFilterCommand)(nil)

func (c *AddFilterCommand) Execute(ctx context.Context, msg dashboard.AddFilterRequest) error {
	if c.service == nil {
		return missingService("add filter")
	}
	if err := c.service.AddFilter(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.filter.add", map[string]any{
		"dashboard_id": msg.DashboardID,
		"filter_id":    msg.Filter.ID,
		"type":         string(msg.Filter.Type),
	})
	return nil
}

// RemoveFilterCommand drops a dashboard filter and every widget mapping to it.
type RemoveFilterCommand struct {
	service   filterService
	telemetry Telemetry
}

// NewRemoveFilterCommand creates the command.
func NewRemoveFilterCommand(service filterService, telemetry Telemetry) *RemoveFilterCommand {
	return &RemoveFilterCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.RemoveFilterRequest] = (*RemoveFilterCommand)(nil)

func (c *RemoveFilterCommand) Execute(ctx context.Context, msg dashboard.RemoveFilterRequest) error {
	if c.service == nil {
		return missingService("remove filter")
	}
	if err := c.service.RemoveFilter(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.filter.remove", map[string]any{
		"dashboard_id": msg.DashboardID,
		"filter_id":    msg.FilterID,
	})
	return nil
}
