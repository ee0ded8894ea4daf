package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

type saveWidgetService interface {
	SaveWidget(ctx context.Context, req dashboard.SaveWidgetRequest) error
}

// SaveWidgetCommand stores a widget built in the widget builder, inserting it
// or replacing the widget with the same id.
type SaveWidgetCommand struct {
	service   saveWidgetService
	telemetry Telemetry
}

// NewSaveWidgetCommand creates a command instance.
func NewSaveWidgetCommand(service saveWidgetService, telemetry Telemetry) *SaveWidgetCommand {
	return &SaveWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.SaveWidgetRequest] = (*SaveWidgetCommand)(nil)

// Execute delegates to the dashboard service.
func (c *SaveWidgetCommand) Execute(ctx context.Context, msg dashboard.SaveWidgetRequest) error {
	if c.service == nil {
		return missingService("save widget")
	}
	if err := c.service.SaveWidget(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.save", map[string]any{
		"dashboard_id": msg.DashboardID,
		"chart_type":   string(msg.Widget.Type),
		"filters":      len(msg.Filters),
	})
	return nil
}
