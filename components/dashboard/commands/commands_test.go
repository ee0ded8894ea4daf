package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

const seedYAML = `
version: "1"
workspaces:
  - name: Analytics
    data_sources:
      - name: Sales
        connection:
          type: SAMPLE
          settings:
            dataset: sales
    dashboards:
      - name: Overview
        widgets:
          - title: Revenue
            type: BAR
            source: Sales
            x_axis: month
            value: revenue
`

type rowsResolver struct{}

func (rowsResolver) Resolve(context.Context, dashboard.SourceRef) (dashboard.Dataset, error) {
	return dashboard.NewDataset([]string{"month", "revenue"}, []dashboard.Row{
		{"month": "Jan", "revenue": 4000},
		{"month": "Feb", "revenue": 3000},
	}), nil
}

func newService(t *testing.T) *dashboard.Service {
	t.Helper()
	svc := dashboard.NewService(dashboard.Options{
		Store:  dashboard.NewMemoryStore(),
		Syncer: dashboard.DelaySyncer{},
	})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	return svc
}

func TestSeedWorkspaceCommand(t *testing.T) {
	svc := newService(t)
	doc, err := dashboard.DecodeManifest(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("DecodeManifest returned error: %v", err)
	}
	telemetry := &stubTelemetry{}
	var report dashboard.SeedReport
	cmd := NewSeedWorkspaceCommand(svc, rowsResolver{}, telemetry)
	if err := cmd.Execute(context.Background(), SeedWorkspaceInput{Manifest: doc, Report: &report}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if report.Widgets != 1 || report.Dashboards != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if telemetry.calls == 0 {
		t.Fatalf("expected telemetry to record events")
	}
	if err := cmd.Execute(context.Background(), SeedWorkspaceInput{}); err == nil {
		t.Fatalf("expected error without manifest")
	}
}

func TestWorkspaceLifecycleCommands(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	var ws dashboard.Workspace
	if err := NewAddWorkspaceCommand(svc, nil).Execute(ctx, AddWorkspaceInput{
		AddWorkspaceRequest: dashboard.AddWorkspaceRequest{Name: "Ops"},
		Result:              &ws,
	}); err != nil {
		t.Fatalf("add workspace: %v", err)
	}
	var dash dashboard.Dashboard
	if err := NewAddDashboardCommand(svc, nil).Execute(ctx, AddDashboardInput{
		AddDashboardRequest: dashboard.AddDashboardRequest{WorkspaceID: ws.ID, Name: "Board"},
		Result:              &dash,
	}); err != nil {
		t.Fatalf("add dashboard: %v", err)
	}
	if dash.WorkspaceID != ws.ID {
		t.Fatalf("expected dashboard in workspace %s, got %s", ws.ID, dash.WorkspaceID)
	}

	var ds dashboard.DataSource
	if err := NewAddDataSourceCommand(svc, nil).Execute(ctx, AddDataSourceInput{
		AddDataSourceRequest: dashboard.AddDataSourceRequest{
			WorkspaceID: ws.ID,
			Name:        "Demo",
			Type:        dashboard.SourceSample,
			Connection:  dashboard.ConnectionConfig{Sample: &dashboard.SampleSettings{Dataset: "sales"}},
		},
		Result: &ds,
	}); err != nil {
		t.Fatalf("add data source: %v", err)
	}
	if err := NewUpdateScheduleCommand(svc, nil).Execute(ctx, dashboard.UpdateScheduleRequest{
		DataSourceID: ds.ID, Mode: dashboard.ScheduleAuto, Interval: dashboard.Interval15m,
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := NewRefreshDataSourceCommand(svc, nil).Execute(ctx, RefreshDataSourceInput{DataSourceID: ds.ID}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got, _ := svc.DataSource(ds.ID)
	if got.Schedule.LastSyncedAt == nil {
		t.Fatalf("expected refresh to record last sync")
	}

	var q dashboard.SavedQuery
	if err := NewSaveQueryCommand(svc, nil).Execute(ctx, SaveQueryInput{
		SaveQueryRequest: dashboard.SaveQueryRequest{WorkspaceID: ws.ID, Name: "All", SQL: "select * from sales"},
		Result:           &q,
	}); err != nil {
		t.Fatalf("save query: %v", err)
	}
	if q.ID == "" {
		t.Fatalf("expected saved query id")
	}

	filter := dashboard.DashboardFilter{ID: "status", Label: "Status", Type: dashboard.FilterSelect}
	if err := NewAddFilterCommand(svc, nil).Execute(ctx, dashboard.AddFilterRequest{DashboardID: dash.ID, Filter: filter}); err != nil {
		t.Fatalf("add filter: %v", err)
	}
	if err := NewRemoveFilterCommand(svc, nil).Execute(ctx, dashboard.RemoveFilterRequest{DashboardID: dash.ID, FilterID: "status"}); err != nil {
		t.Fatalf("remove filter: %v", err)
	}
	if err := NewRenameDashboardCommand(svc, nil).Execute(ctx, dashboard.RenameDashboardRequest{DashboardID: dash.ID, Name: "Renamed"}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	err := NewDeleteWorkspaceCommand(svc, nil).Execute(ctx, dashboard.DeleteWorkspaceRequest{WorkspaceID: ws.ID})
	if !errors.Is(err, dashboard.ErrConfirmationRequired) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if err := NewDeleteWorkspaceCommand(svc, nil).Execute(ctx, dashboard.DeleteWorkspaceRequest{WorkspaceID: ws.ID, Confirmed: true}); err != nil {
		t.Fatalf("delete workspace: %v", err)
	}
	if len(svc.Dashboards("")) != 0 {
		t.Fatalf("expected cascade to remove dashboards")
	}
}

func TestWidgetCommands(t *testing.T) {
	service := &stubService{}
	ctx := context.Background()
	telemetry := &stubTelemetry{}

	if err := NewSaveWidgetCommand(service, telemetry).Execute(ctx, dashboard.SaveWidgetRequest{DashboardID: "d"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := NewDeleteWidgetCommand(service, telemetry).Execute(ctx, dashboard.DeleteWidgetRequest{DashboardID: "d", WidgetID: "w", Confirmed: true}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := NewReorderWidgetsCommand(service, telemetry).Execute(ctx, dashboard.ReorderWidgetsRequest{DashboardID: "d", WidgetIDs: []string{"w1", "w2"}}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if err := NewMoveWidgetCommand(service, telemetry).Execute(ctx, dashboard.MoveWidgetRequest{DashboardID: "d", From: 0, To: 1}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := NewShiftWidgetCommand(service, telemetry).Execute(ctx, dashboard.ShiftWidgetRequest{DashboardID: "d", WidgetID: "w", Direction: dashboard.DirectionUp}); err != nil {
		t.Fatalf("shift: %v", err)
	}
	width := 2
	if err := NewResizeWidgetCommand(service, telemetry).Execute(ctx, dashboard.ResizeWidgetRequest{DashboardID: "d", WidgetID: "w", Width: &width}); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if err := NewNotifyDashboardCommand(service, telemetry).Execute(ctx, NotifyDashboardInput{Event: dashboard.DashboardEvent{Reason: "widget.saved"}}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if service.calls != 7 {
		t.Fatalf("expected 7 service calls, got %d", service.calls)
	}
	if telemetry.calls != 7 {
		t.Fatalf("expected 7 telemetry events, got %d", telemetry.calls)
	}
}

func TestCommandsValidateInput(t *testing.T) {
	ctx := context.Background()
	service := &stubService{}
	if err := NewResizeWidgetCommand(service, nil).Execute(ctx, dashboard.ResizeWidgetRequest{WidgetID: "w"}); err == nil {
		t.Fatalf("expected error without dimensions")
	}
	if err := NewReorderWidgetsCommand(service, nil).Execute(ctx, dashboard.ReorderWidgetsRequest{}); err == nil {
		t.Fatalf("expected error without dashboard id")
	}
	if err := NewSaveWidgetCommand(nil, nil).Execute(ctx, dashboard.SaveWidgetRequest{}); err == nil {
		t.Fatalf("expected error without service")
	}
	if service.calls != 0 {
		t.Fatalf("expected no service calls, got %d", service.calls)
	}
}

func TestCommandPropagatesServiceError(t *testing.T) {
	boom := errors.New("boom")
	service := &stubService{err: boom}
	telemetry := &stubTelemetry{}
	err := NewDeleteWidgetCommand(service, telemetry).Execute(context.Background(), dashboard.DeleteWidgetRequest{DashboardID: "d", WidgetID: "w"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected service error, got %v", err)
	}
	if telemetry.calls != 0 {
		t.Fatalf("expected no telemetry on failure")
	}
}

type stubService struct {
	calls int
	err   error
}

func (s *stubService) record() error {
	s.calls++
	return s.err
}

func (s *stubService) SaveWidget(context.Context, dashboard.SaveWidgetRequest) error {
	return s.record()
}

func (s *stubService) DeleteWidget(context.Context, dashboard.DeleteWidgetRequest) error {
	return s.record()
}

func (s *stubService) DeleteDashboard(context.Context, dashboard.DeleteDashboardRequest) error {
	return s.record()
}

func (s *stubService) DeleteWorkspace(context.Context, dashboard.DeleteWorkspaceRequest) error {
	return s.record()
}

func (s *stubService) ReorderWidgets(context.Context, dashboard.ReorderWidgetsRequest) error {
	return s.record()
}

func (s *stubService) MoveWidget(context.Context, dashboard.MoveWidgetRequest) error {
	return s.record()
}

func (s *stubService) ShiftWidget(context.Context, dashboard.ShiftWidgetRequest) error {
	return s.record()
}

func (s *stubService) ResizeWidget(context.Context, dashboard.ResizeWidgetRequest) error {
	return s.record()
}

func (s *stubService) RenameDashboard(context.Context, dashboard.RenameDashboardRequest) error {
	return s.record()
}

func (s *stubService) NotifyDashboardUpdated(context.Context, dashboard.DashboardEvent) error {
	return s.record()
}

type stubTelemetry struct {
	calls int
}

func (s *stubTelemetry) Record(context.Context, string, map[string]any) {
	s.calls++
}
