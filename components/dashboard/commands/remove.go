package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

type removeService interface {
	DeleteWidget(ctx context.Context, req dashboard.DeleteWidgetRequest) error
	DeleteDashboard(ctx context.Context, req dashboard.DeleteDashboardRequest) error
	DeleteWorkspace(ctx context.Context, req dashboard.DeleteWorkspaceRequest) error
}

// DeleteWidgetCommand removes a widget once the operator confirmed it.
type DeleteWidgetCommand struct {
	service   removeService
	telemetry Telemetry
}

// NewDeleteWidgetCommand creates the command.
func NewDeleteWidgetCommand(service removeService, telemetry Telemetry) *DeleteWidgetCommand {
	return &DeleteWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.DeleteWidgetRequest] = (*DeleteWidgetCommand)(nil)

// Execute deletes the widget.
func (c *DeleteWidgetCommand) Execute(ctx context.Context, msg dashboard.DeleteWidgetRequest) error {
	if c.service == nil {
		return missingService("delete widget")
	}
	if err := c.service.DeleteWidget(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.remove", map[string]any{
		"dashboard_id": msg.DashboardID,
		"widget_id":    msg.WidgetID,
	})
	return nil
}

// DeleteDashboardCommand removes a dashboard.
type DeleteDashboardCommand struct {
	service   removeService
	telemetry Telemetry
}

// NewDeleteDashboardCommand creates the command.
func NewDeleteDashboardCommand(service removeService, telemetry Telemetry) *DeleteDashboardCommand {
	return &DeleteDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.DeleteDashboardRequest] = (*DeleteDashboardCommand)(nil)

func (c *DeleteDashboardCommand) Execute(ctx context.Context, msg dashboard.DeleteDashboardRequest) error {
	if c.service == nil {
		return missingService("delete dashboard")
	}
	if err := c.service.DeleteDashboard(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.delete", map[string]any{"dashboard_id": msg.DashboardID})
	return nil
}

// DeleteWorkspaceCommand removes a workspace and everything it owns.
type DeleteWorkspaceCommand struct {
	service   removeService
	telemetry Telemetry
}

// NewDeleteWorkspaceCommand creates the command.
func NewDeleteWorkspaceCommand(service removeService, telemetry Telemetry) *DeleteWorkspaceCommand {
	return &DeleteWorkspaceCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.DeleteWorkspaceRequest] = (*DeleteWorkspaceCommand)(nil)

func (c *DeleteWorkspaceCommand) Execute(ctx context.Context, msg dashboard.DeleteWorkspaceRequest) error {
	if c.service == nil {
		return missingService("delete workspace")
	}
	if err := c.service.DeleteWorkspace(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.workspace.delete", map[string]any{"workspace_id": msg.WorkspaceID})
	return nil
}
