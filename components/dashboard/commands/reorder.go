package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

type reorderService interface {
	ReorderWidgets(ctx context.Context, req dashboard.ReorderWidgetsRequest) error
	MoveWidget(ctx context.Context, req dashboard.MoveWidgetRequest) error
	ShiftWidget(ctx context.Context, req dashboard.ShiftWidgetRequest) error
}

// ReorderWidgetsCommand applies an explicit widget order to a dashboard.
type ReorderWidgetsCommand struct {
	service   reorderService
	telemetry Telemetry
}

// NewReorderWidgetsCommand creates the command.
func NewReorderWidgetsCommand(service reorderService, telemetry Telemetry) *ReorderWidgetsCommand {
	return &ReorderWidgetsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.ReorderWidgetsRequest] = (*ReorderWidgetsCommand)(nil)

// Execute reorders widgets.
func (c *ReorderWidgetsCommand) Execute(ctx context.Context, msg dashboard.ReorderWidgetsRequest) error {
	if c.service == nil {
		return missingService("reorder")
	}
	if msg.DashboardID == "" {
		return errors.New("reorder command requires dashboard id")
	}
	if err := c.service.ReorderWidgets(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.reorder", map[string]any{
		"dashboard_id": msg.DashboardID,
		"count":        len(msg.WidgetIDs),
	})
	return nil
}

// MoveWidgetCommand is the drag-and-drop variant: the widget at From lands on To.
type MoveWidgetCommand struct {
	service   reorderService
	telemetry Telemetry
}

// NewMoveWidgetCommand creates the command.
func NewMoveWidgetCommand(service reorderService, telemetry Telemetry) *MoveWidgetCommand {
	return &MoveWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.MoveWidgetRequest] = (*MoveWidgetCommand)(nil)

func (c *MoveWidgetCommand) Execute(ctx context.Context, msg dashboard.MoveWidgetRequest) error {
	if c.service == nil {
		return missingService("move")
	}
	if err := c.service.MoveWidget(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.move", map[string]any{
		"dashboard_id": msg.DashboardID,
		"from":         msg.From,
		"to":           msg.To,
	})
	return nil
}

// ShiftWidgetCommand swaps a widget with its neighbour.
type ShiftWidgetCommand struct {
	service   reorderService
	telemetry Telemetry
}

// NewShiftWidgetCommand creates the command.
func NewShiftWidgetCommand(service reorderService, telemetry Telemetry) *ShiftWidgetCommand {
	return &ShiftWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.ShiftWidgetRequest] = (*ShiftWidgetCommand)(nil)

func (c *ShiftWidgetCommand) Execute(ctx context.Context, msg dashboard.ShiftWidgetRequest) error {
	if c.service == nil {
		return missingService("shift")
	}
	if err := c.service.ShiftWidget(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.shift", map[string]any{
		"widget_id": msg.WidgetID,
		"direction": string(msg.Direction),
	})
	return nil
}
