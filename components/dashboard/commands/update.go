package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

type updateService interface {
	ResizeWidget(ctx context.Context, req dashboard.ResizeWidgetRequest) error
	RenameDashboard(ctx context.Context, req dashboard.RenameDashboardRequest) error
}

// ResizeWidgetCommand changes a widget footprint.
type ResizeWidgetCommand struct {
	service   updateService
	telemetry Telemetry
}

// NewResizeWidgetCommand creates the command.
func NewResizeWidgetCommand(service updateService, telemetry Telemetry) *ResizeWidgetCommand {
	return &ResizeWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.ResizeWidgetRequest] = (*ResizeWidgetCommand)(nil)

// Execute resizes the widget. At least one of width and height is required.
func (c *ResizeWidgetCommand) Execute(ctx context.Context, msg dashboard.ResizeWidgetRequest) error {
	if c.service == nil {
		return missingService("resize")
	}
	if msg.Width == nil && msg.Height == nil {
		return errors.New("resize command requires width or height")
	}
	if err := c.service.ResizeWidget(ctx, msg); err != nil {
		return err
	}
	payload := map[string]any{"widget_id": msg.WidgetID}
	if msg.Width != nil {
		payload["w"] = *msg.Width
	}
	if msg.Height != nil {
		payload["h"] = *msg.Height
	}
	c.telemetry.Record(ctx, "dashboard.widget.resize", payload)
	return nil
}

// RenameDashboardCommand updates dashboard metadata.
type RenameDashboardCommand struct {
	service   updateService
	telemetry Telemetry
}

// NewRenameDashboardCommand creates the command.
func NewRenameDashboardCommand(service updateService, telemetry Telemetry) *RenameDashboardCommand {
	return &RenameDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.RenameDashboardRequest] = (*RenameDashboardCommand)(nil)

func (c *RenameDashboardCommand) Execute(ctx context.Context, msg dashboard.RenameDashboardRequest) error {
	if c.service == nil {
		return missingService("rename")
	}
	if err := c.service.RenameDashboard(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.rename", map[string]any{"dashboard_id": msg.DashboardID})
	return nil
}
