package httpapi

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-insight/components/dashboard"
	"github.com/goliatone/go-insight/components/dashboard/commands"
	"github.com/goliatone/go-insight/components/dashboard/queries"
)

// Executor is the transport-neutral surface shared by the net/http handlers
// and the go-router adapter.
type Executor interface {
	Workspaces(ctx context.Context) ([]dashboard.Workspace, error)
	AddWorkspace(ctx context.Context, req dashboard.AddWorkspaceRequest) (dashboard.Workspace, error)
	DeleteWorkspace(ctx context.Context, req dashboard.DeleteWorkspaceRequest) error

	Dashboards(ctx context.Context, workspaceID string) ([]dashboard.Dashboard, error)
	AddDashboard(ctx context.Context, req dashboard.AddDashboardRequest) (dashboard.Dashboard, error)
	RenameDashboard(ctx context.Context, req dashboard.RenameDashboardRequest) error
	DeleteDashboard(ctx context.Context, req dashboard.DeleteDashboardRequest) error
	View(ctx context.Context, input queries.DashboardViewInput) (dashboard.DashboardView, error)

	SaveWidget(ctx context.Context, req dashboard.SaveWidgetRequest) error
	DeleteWidget(ctx context.Context, req dashboard.DeleteWidgetRequest) error
	ReorderWidgets(ctx context.Context, req dashboard.ReorderWidgetsRequest) error
	MoveWidget(ctx context.Context, req dashboard.MoveWidgetRequest) error
	ShiftWidget(ctx context.Context, req dashboard.ShiftWidgetRequest) error
	ResizeWidget(ctx context.Context, req dashboard.ResizeWidgetRequest) error
	Export(ctx context.Context, input queries.ExportWidgetInput) (queries.ExportedFile, error)
	DrillDown(ctx context.Context, input queries.DrillDownInput) (dashboard.Row, error)

	AddFilter(ctx context.Context, req dashboard.AddFilterRequest) error
	RemoveFilter(ctx context.Context, req dashboard.RemoveFilterRequest) error

	DataSources(ctx context.Context, workspaceID string) ([]dashboard.DataSource, error)
	AddDataSource(ctx context.Context, req dashboard.AddDataSourceRequest) (dashboard.DataSource, error)
	UpdateSchedule(ctx context.Context, req dashboard.UpdateScheduleRequest) error
	RefreshDataSource(ctx context.Context, id string) error

	SavedQueries(ctx context.Context, workspaceID string) ([]dashboard.SavedQuery, error)
	SaveQuery(ctx context.Context, req dashboard.SaveQueryRequest) (dashboard.SavedQuery, error)

	AuditLogs(ctx context.Context, limit int) ([]dashboard.AuditLog, error)

	Preview(ctx context.Context, req dashboard.PreviewRequest) (dashboard.PreviewResult, error)
}

// CommandExecutor routes every Executor call through a go-command
// commander or querier.
type CommandExecutor struct {
	AddWorkspaceCommander    gocommand.Commander[commands.AddWorkspaceInput]
	DeleteWorkspaceCommander gocommand.Commander[dashboard.DeleteWorkspaceRequest]
	AddDashboardCommander    gocommand.Commander[commands.AddDashboardInput]
	RenameCommander          gocommand.Commander[dashboard.RenameDashboardRequest]
	DeleteDashboardCommander gocommand.Commander[dashboard.DeleteDashboardRequest]
	SaveWidgetCommander      gocommand.Commander[dashboard.SaveWidgetRequest]
	DeleteWidgetCommander    gocommand.Commander[dashboard.DeleteWidgetRequest]
	ReorderCommander         gocommand.Commander[dashboard.ReorderWidgetsRequest]
	MoveCommander            gocommand.Commander[dashboard.MoveWidgetRequest]
	ShiftCommander           gocommand.Commander[dashboard.ShiftWidgetRequest]
	ResizeCommander          gocommand.Commander[dashboard.ResizeWidgetRequest]
	AddFilterCommander       gocommand.Commander[dashboard.AddFilterRequest]
	RemoveFilterCommander    gocommand.Commander[dashboard.RemoveFilterRequest]
	AddSourceCommander       gocommand.Commander[commands.AddDataSourceInput]
	ScheduleCommander        gocommand.Commander[dashboard.UpdateScheduleRequest]
	RefreshCommander         gocommand.Commander[commands.RefreshDataSourceInput]
	SaveQueryCommander       gocommand.Commander[commands.SaveQueryInput]

	WorkspacesQuerier   gocommand.Querier[struct{}, []dashboard.Workspace]
	DashboardsQuerier   gocommand.Querier[queries.WorkspaceScope, []dashboard.Dashboard]
	SourcesQuerier      gocommand.Querier[queries.WorkspaceScope, []dashboard.DataSource]
	SavedQueriesQuerier gocommand.Querier[queries.WorkspaceScope, []dashboard.SavedQuery]
	AuditQuerier        gocommand.Querier[queries.AuditLogInput, []dashboard.AuditLog]
	ViewQuerier         gocommand.Querier[queries.DashboardViewInput, dashboard.DashboardView]
	ExportQuerier       gocommand.Querier[queries.ExportWidgetInput, queries.ExportedFile]
	DrillDownQuerier    gocommand.Querier[queries.DrillDownInput, dashboard.Row]
	PreviewQuerier      gocommand.Querier[dashboard.PreviewRequest, dashboard.PreviewResult]

	service *dashboard.Service
}

var _ Executor = (*CommandExecutor)(nil)

// NewCommandExecutor wires the default commands and queries around a service.
func NewCommandExecutor(service *dashboard.Service, telemetry commands.Telemetry) *CommandExecutor {
	controller := dashboard.NewController(service)
	return &CommandExecutor{
		AddWorkspaceCommander:    commands.NewAddWorkspaceCommand(service, telemetry),
		DeleteWorkspaceCommander: commands.NewDeleteWorkspaceCommand(service, telemetry),
		AddDashboardCommander:    commands.NewAddDashboardCommand(service, telemetry),
		RenameCommander:          commands.NewRenameDashboardCommand(service, telemetry),
		DeleteDashboardCommander: commands.NewDeleteDashboardCommand(service, telemetry),
		SaveWidgetCommander:      commands.NewSaveWidgetCommand(service, telemetry),
		DeleteWidgetCommander:    commands.NewDeleteWidgetCommand(service, telemetry),
		ReorderCommander:         commands.NewReorderWidgetsCommand(service, telemetry),
		MoveCommander:            commands.NewMoveWidgetCommand(service, telemetry),
		ShiftCommander:           commands.NewShiftWidgetCommand(service, telemetry),
		ResizeCommander:          commands.NewResizeWidgetCommand(service, telemetry),
		AddFilterCommander:       commands.NewAddFilterCommand(service, telemetry),
		RemoveFilterCommander:    commands.NewRemoveFilterCommand(service, telemetry),
		AddSourceCommander:       commands.NewAddDataSourceCommand(service, telemetry),
		ScheduleCommander:        commands.NewUpdateScheduleCommand(service, telemetry),
		RefreshCommander:         commands.NewRefreshDataSourceCommand(service, telemetry),
		SaveQueryCommander:       commands.NewSaveQueryCommand(service, telemetry),

		WorkspacesQuerier:   queries.NewWorkspacesQuery(service),
		DashboardsQuerier:   queries.NewDashboardsQuery(service),
		SourcesQuerier:      queries.NewDataSourcesQuery(service),
		SavedQueriesQuerier: queries.NewSavedQueriesQuery(service),
		AuditQuerier:        queries.NewAuditLogQuery(service),
		ViewQuerier:         queries.NewDashboardViewQuery(controller),
		ExportQuerier:       queries.NewExportWidgetQuery(service),
		DrillDownQuerier:    queries.NewDrillDownQuery(service),

		service: service,
	}
}

// WithResolver enables previews backed by resolver. Edit previews load saved
// widgets from the service the executor was built around.
func (e *CommandExecutor) WithResolver(resolver dashboard.RowResolver) *CommandExecutor {
	if resolver == nil {
		return e
	}
	if e.service != nil {
		e.PreviewQuerier = queries.NewPreviewQuery(resolver, e.service)
	} else {
		e.PreviewQuerier = queries.NewPreviewQuery(resolver, nil)
	}
	return e
}

func (e *CommandExecutor) Workspaces(ctx context.Context) ([]dashboard.Workspace, error) {
	return e.WorkspacesQuerier.Query(ctx, struct{}{})
}

func (e *CommandExecutor) AddWorkspace(ctx context.Context, req dashboard.AddWorkspaceRequest) (dashboard.Workspace, error) {
	var ws dashboard.Workspace
	err := e.AddWorkspaceCommander.Execute(ctx, commands.AddWorkspaceInput{AddWorkspaceRequest: req, Result: &ws})
	return ws, err
}

func (e *CommandExecutor) DeleteWorkspace(ctx context.Context, req dashboard.DeleteWorkspaceRequest) error {
	return e.DeleteWorkspaceCommander.Execute(ctx, req)
}

func (e *CommandExecutor) Dashboards(ctx context.Context, workspaceID string) ([]dashboard.Dashboard, error) {
	return e.DashboardsQuerier.Query(ctx, queries.WorkspaceScope{WorkspaceID: workspaceID})
}

func (e *CommandExecutor) AddDashboard(ctx context.Context, req dashboard.AddDashboardRequest) (dashboard.Dashboard, error) {
	var dash dashboard.Dashboard
	err := e.AddDashboardCommander.Execute(ctx, commands.AddDashboardInput{AddDashboardRequest: req, Result: &dash})
	return dash, err
}

func (e *CommandExecutor) RenameDashboard(ctx context.Context, req dashboard.RenameDashboardRequest) error {
	return e.RenameCommander.Execute(ctx, req)
}

func (e *CommandExecutor) DeleteDashboard(ctx context.Context, req dashboard.DeleteDashboardRequest) error {
	return e.DeleteDashboardCommander.Execute(ctx, req)
}

func (e *CommandExecutor) View(ctx context.Context, input queries.DashboardViewInput) (dashboard.DashboardView, error) {
	return e.ViewQuerier.Query(ctx, input)
}

func (e *CommandExecutor) SaveWidget(ctx context.Context, req dashboard.SaveWidgetRequest) error {
	return e.SaveWidgetCommander.Execute(ctx, req)
}

func (e *CommandExecutor) DeleteWidget(ctx context.Context, req dashboard.DeleteWidgetRequest) error {
	return e.DeleteWidgetCommander.Execute(ctx, req)
}

func (e *CommandExecutor) ReorderWidgets(ctx context.Context, req dashboard.ReorderWidgetsRequest) error {
	return e.ReorderCommander.Execute(ctx, req)
}

func (e *CommandExecutor) MoveWidget(ctx context.Context, req dashboard.MoveWidgetRequest) error {
	return e.MoveCommander.Execute(ctx, req)
}

func (e *CommandExecutor) ShiftWidget(ctx context.Context, req dashboard.ShiftWidgetRequest) error {
	return e.ShiftCommander.Execute(ctx, req)
}

func (e *CommandExecutor) ResizeWidget(ctx context.Context, req dashboard.ResizeWidgetRequest) error {
	return e.ResizeCommander.Execute(ctx, req)
}

func (e *CommandExecutor) Export(ctx context.Context, input queries.ExportWidgetInput) (queries.ExportedFile, error) {
	return e.ExportQuerier.Query(ctx, input)
}

func (e *CommandExecutor) DrillDown(ctx context.Context, input queries.DrillDownInput) (dashboard.Row, error) {
	return e.DrillDownQuerier.Query(ctx, input)
}

func (e *CommandExecutor) AddFilter(ctx context.Context, req dashboard.AddFilterRequest) error {
	return e.AddFilterCommander.Execute(ctx, req)
}

func (e *CommandExecutor) RemoveFilter(ctx context.Context, req dashboard.RemoveFilterRequest) error {
	return e.RemoveFilterCommander.Execute(ctx, req)
}

func (e *CommandExecutor) DataSources(ctx context.Context, workspaceID string) ([]dashboard.DataSource, error) {
	return e.SourcesQuerier.Query(ctx, queries.WorkspaceScope{WorkspaceID: workspaceID})
}

func (e *CommandExecutor) AddDataSource(ctx context.Context, req dashboard.AddDataSourceRequest) (dashboard.DataSource, error) {
	var ds dashboard.DataSource
	err := e.AddSourceCommander.Execute(ctx, commands.AddDataSourceInput{AddDataSourceRequest: req, Result: &ds})
	return ds, err
}

func (e *CommandExecutor) UpdateSchedule(ctx context.Context, req dashboard.UpdateScheduleRequest) error {
	return e.ScheduleCommander.Execute(ctx, req)
}

func (e *CommandExecutor) RefreshDataSource(ctx context.Context, id string) error {
	return e.RefreshCommander.Execute(ctx, commands.RefreshDataSourceInput{DataSourceID: id})
}

func (e *CommandExecutor) SavedQueries(ctx context.Context, workspaceID string) ([]dashboard.SavedQuery, error) {
	return e.SavedQueriesQuerier.Query(ctx, queries.WorkspaceScope{WorkspaceID: workspaceID})
}

func (e *CommandExecutor) SaveQuery(ctx context.Context, req dashboard.SaveQueryRequest) (dashboard.SavedQuery, error) {
	var q dashboard.SavedQuery
	err := e.SaveQueryCommander.Execute(ctx, commands.SaveQueryInput{SaveQueryRequest: req, Result: &q})
	return q, err
}

func (e *CommandExecutor) AuditLogs(ctx context.Context, limit int) ([]dashboard.AuditLog, error) {
	return e.AuditQuerier.Query(ctx, queries.AuditLogInput{Limit: limit})
}

func (e *CommandExecutor) Preview(ctx context.Context, req dashboard.PreviewRequest) (dashboard.PreviewResult, error) {
	if e.PreviewQuerier == nil {
		return dashboard.PreviewResult{}, ErrPreviewUnavailable
	}
	return e.PreviewQuerier.Query(ctx, req)
}
