package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

type workspaceService interface {
	AddWorkspace(ctx context.Context, req dashboard.AddWorkspaceRequest) (dashboard.Workspace, error)
	AddDashboard(ctx context.Context, req dashboard.AddDashboardRequest) (dashboard.Dashboard, error)
}

// AddWorkspaceInput creates a workspace. Result receives it when non-nil.
type AddWorkspaceInput struct {
	dashboard.AddWorkspaceRequest
	Result *dashboard.Workspace `json:"-"`
}

// AddWorkspaceCommand creates a workspace.
type AddWorkspaceCommand struct {
	service   workspaceService
	telemetry Telemetry
}

// NewAddWorkspaceCommand creates the command.
func NewAddWorkspaceCommand(service workspaceService, telemetry Telemetry) *AddWorkspaceCommand {
	return &AddWorkspaceCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AddWorkspaceInput] = (*AddWorkspaceCommand)(nil)

func (c *AddWorkspaceCommand) Execute(ctx context.Context, msg AddWorkspaceInput) error {
	if c.service == nil {
		return missingService("add workspace")
	}
	ws, err := c.service.AddWorkspace(ctx, msg.AddWorkspaceRequest)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = ws
	}
	c.telemetry.Record(ctx, "dashboard.workspace.add", map[string]any{"workspace_id": ws.ID})
	return nil
}

// AddDashboardInput creates a dashboard. Result receives it when non-nil.
type AddDashboardInput struct {
	dashboard.AddDashboardRequest
	Result *dashboard.Dashboard `json:"-"`
}

// AddDashboardCommand creates an empty dashboard.
type AddDashboardCommand struct {
	service   workspaceService
	telemetry Telemetry
}

// NewAddDashboardCommand creates the command.
func NewAddDashboardCommand(service workspaceService, telemetry Telemetry) *AddDashboardCommand {
	return &AddDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AddDashboardInput] = (*AddDashboardCommand)(nil)

func (c *AddDashboardCommand) Execute(ctx context.Context, msg AddDashboardInput) error {
	if c.service == nil {
		return missingService("add dashboard")
	}
	dash, err := c.service.AddDashboard(ctx, msg.AddDashboardRequest)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = dash
	}
	c.telemetry.Record(ctx, "dashboard.add", map[string]any{
		"workspace_id": dash.WorkspaceID,
		"dashboard_id": dash.ID,
	})
	return nil
}
