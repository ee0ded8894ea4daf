package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-insight/components/dashboard"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "insight.db")
	store, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	_, path := openStore(t)
	assert.NoError(t, RunMigrations(path, nil))
}

func TestStoreWorkspaceCascade(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	require.NoError(t, store.CreateWorkspace(ctx, dashboard.Workspace{ID: "a", Name: "A"}))
	require.NoError(t, store.CreateWorkspace(ctx, dashboard.Workspace{ID: "b", Name: "B", OwnerID: "u1"}))
	assert.Error(t, store.CreateWorkspace(ctx, dashboard.Workspace{ID: "a"}))

	require.NoError(t, store.CreateDashboard(ctx, dashboard.Dashboard{ID: "d1", WorkspaceID: "a"}))
	require.NoError(t, store.CreateDashboard(ctx, dashboard.Dashboard{ID: "d2", WorkspaceID: "b"}))
	require.NoError(t, store.CreateDataSource(ctx, dashboard.DataSource{ID: "s1", WorkspaceID: "a"}))
	require.NoError(t, store.CreateSavedQuery(ctx, dashboard.SavedQuery{ID: "q1", WorkspaceID: "a"}))

	require.NoError(t, store.DeleteWorkspace(ctx, "a"))
	assert.ErrorIs(t, store.DeleteWorkspace(ctx, "a"), dashboard.ErrNotFound)

	workspaces, err := store.ListWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.Equal(t, "u1", workspaces[0].OwnerID)

	dashboards, err := store.ListDashboards(ctx)
	require.NoError(t, err)
	require.Len(t, dashboards, 1)
	assert.Equal(t, "d2", dashboards[0].ID)

	sources, _ := store.ListDataSources(ctx)
	assert.Empty(t, sources)
	queries, _ := store.ListSavedQueries(ctx)
	assert.Empty(t, queries)
}

func TestStoreSaveRequiresExisting(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)
	assert.ErrorIs(t, store.SaveDashboard(ctx, dashboard.Dashboard{ID: "x"}), dashboard.ErrNotFound)
	assert.ErrorIs(t, store.SaveDataSource(ctx, dashboard.DataSource{ID: "x"}), dashboard.ErrNotFound)
	assert.ErrorIs(t, store.DeleteDashboard(ctx, "x"), dashboard.ErrNotFound)
}

func TestStoreRoundTripsDocuments(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	dash := dashboard.Dashboard{
		ID:          "d",
		WorkspaceID: "w",
		Name:        "Overview",
		Widgets: []dashboard.Widget{{
			ID:    "w1",
			Type:  dashboard.ChartBar,
			Title: "Revenue",
			Data: dashboard.NewDataset([]string{"month", "revenue"}, []dashboard.Row{
				{"month": "Jan", "revenue": 4000.0},
			}),
			Config: dashboard.Configuration{XAxis: "month", DataKeys: []string{"revenue"}},
			Layout: dashboard.Layout{Width: 2, Height: 300},
		}},
		Filters: []dashboard.DashboardFilter{{ID: "status", Label: "Status", Type: dashboard.FilterSelect, Options: []string{"Active"}}},
	}
	require.NoError(t, store.CreateDashboard(ctx, dash))

	dash.Name = "Renamed"
	require.NoError(t, store.SaveDashboard(ctx, dash))

	list, err := store.ListDashboards(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, dash, list[0])

	conn, err := dashboard.NewConnection(dashboard.SourceSQLite, dashboard.SQLiteSettings{Path: "./data.db", Query: "select 1"})
	require.NoError(t, err)
	next := time.Date(2024, 3, 15, 10, 15, 0, 0, time.UTC)
	ds := dashboard.DataSource{
		ID:          "s",
		WorkspaceID: "w",
		Name:        "Local",
		Type:        dashboard.SourceSQLite,
		Connection:  conn,
		Status:      dashboard.StatusConnected,
		Schedule:    dashboard.Schedule{Mode: dashboard.ScheduleAuto, Interval: dashboard.Interval15m, NextSyncAt: &next},
	}
	require.NoError(t, store.CreateDataSource(ctx, ds))
	ds.Status = dashboard.StatusError
	ds.LastErrorMessage = "boom"
	require.NoError(t, store.SaveDataSource(ctx, ds))

	sources, err := store.ListDataSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, dashboard.StatusError, sources[0].Status)
	require.NotNil(t, sources[0].Connection.SQLite)
	assert.Equal(t, "./data.db", sources[0].Connection.SQLite.Path)
	require.NotNil(t, sources[0].Schedule.NextSyncAt)
	assert.True(t, next.Equal(*sources[0].Schedule.NextSyncAt))
}

func TestStoreRecentAuditLogs(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendAuditLog(ctx, dashboard.AuditLog{
			ID:        fmt.Sprint(i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			User:      "admin",
			Action:    dashboard.ActionCreateDashboard,
		}))
	}
	logs, err := store.RecentAuditLogs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "4", logs[0].ID)
	assert.Equal(t, "2", logs[2].ID)
	assert.True(t, base.Add(4*time.Minute).Equal(logs[0].Timestamp))

	all, err := store.RecentAuditLogs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestServiceSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "insight.db")

	store, err := Open(path, nil)
	require.NoError(t, err)
	svc := dashboard.NewService(dashboard.Options{Store: store, Syncer: dashboard.DelaySyncer{}})
	require.NoError(t, svc.Start(ctx))
	ws, err := svc.AddWorkspace(ctx, dashboard.AddWorkspaceRequest{Name: "Analytics"})
	require.NoError(t, err)
	dash, err := svc.AddDashboard(ctx, dashboard.AddDashboardRequest{WorkspaceID: ws.ID, Name: "Board"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	again := dashboard.NewService(dashboard.Options{Store: reopened, Syncer: dashboard.DelaySyncer{}})
	require.NoError(t, again.Start(ctx))

	got, err := again.Dashboard(dash.ID)
	require.NoError(t, err)
	assert.Equal(t, "Board", got.Name)
	assert.NotEmpty(t, again.AuditLogs())
}
