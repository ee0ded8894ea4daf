package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

// WorkspaceScope narrows a listing to one workspace; empty lists everything.
type WorkspaceScope struct {
	WorkspaceID string
}

type catalogService interface {
	Workspaces() []dashboard.Workspace
	Dashboards(workspaceID string) []dashboard.Dashboard
	DataSources(workspaceID string) []dashboard.DataSource
	SavedQueries(workspaceID string) []dashboard.SavedQuery
	AuditLogs() []dashboard.AuditLog
}

// WorkspacesQuery lists workspaces.
type WorkspacesQuery struct {
	service catalogService
}

// NewWorkspacesQuery builds the query.
func NewWorkspacesQuery(service catalogService) *WorkspacesQuery {
	return &WorkspacesQuery{service: service}
}

var _ gocommand.Querier[struct{}, []dashboard.Workspace] = (*WorkspacesQuery)(nil)

func (q *WorkspacesQuery) Query(context.Context, struct{}) ([]dashboard.Workspace, error) {
	return q.service.Workspaces(), nil
}

// DashboardsQuery lists dashboards in a workspace.
type DashboardsQuery struct {
	service catalogService
}

// NewDashboardsQuery builds the query.
func NewDashboardsQuery(service catalogService) *DashboardsQuery {
	return &DashboardsQuery{service: service}
}

var _ gocommand.Querier[WorkspaceScope, []dashboard.Dashboard] = (*DashboardsQuery)(nil)

func (q *DashboardsQuery) Query(_ context.Context, scope WorkspaceScope) ([]dashboard.Dashboard, error) {
	return q.service.Dashboards(scope.WorkspaceID), nil
}

// DataSourcesQuery lists data sources in a workspace.
type DataSourcesQuery struct {
	service catalogService
}

// NewDataSourcesQuery builds the query.
func NewDataSourcesQuery(service catalogService) *DataSourcesQuery {
	return &DataSourcesQuery{service: service}
}

var _ gocommand.Querier[WorkspaceScope, []dashboard.DataSource] = (*DataSourcesQuery)(nil)

func (q *DataSourcesQuery) Query(_ context.Context, scope WorkspaceScope) ([]dashboard.DataSource, error) {
	return q.service.DataSources(scope.WorkspaceID), nil
}

// SavedQueriesQuery lists saved SQL queries in a workspace.
type SavedQueriesQuery struct {
	service catalogService
}

// NewSavedQueriesQuery builds the query.
func NewSavedQueriesQuery(service catalogService) *SavedQueriesQuery {
	return &SavedQueriesQuery{service: service}
}

var _ gocommand.Querier[WorkspaceScope, []dashboard.SavedQuery] = (*SavedQueriesQuery)(nil)

func (q *SavedQueriesQuery) Query(_ context.Context, scope WorkspaceScope) ([]dashboard.SavedQuery, error) {
	return q.service.SavedQueries(scope.WorkspaceID), nil
}

// AuditLogInput caps the number of entries returned; zero means all kept.
type AuditLogInput struct {
	Limit int
}

// AuditLogQuery returns the audit trail, newest first.
type AuditLogQuery struct {
	service catalogService
}

// NewAuditLogQuery builds the query.
func NewAuditLogQuery(service catalogService) *AuditLogQuery {
	return &AuditLogQuery{service: service}
}

var _ gocommand.Querier[AuditLogInput, []dashboard.AuditLog] = (*AuditLogQuery)(nil)

func (q *AuditLogQuery) Query(_ context.Context, input AuditLogInput) ([]dashboard.AuditLog, error) {
	logs := q.service.AuditLogs()
	if input.Limit > 0 && len(logs) > input.Limit {
		logs = logs[:input.Limit]
	}
	return logs, nil
}
