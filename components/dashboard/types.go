package dashboard

import (
	"context"
	"time"
)

// WorkspaceStore persists workspaces. DeleteWorkspace cascades to every
// dashboard, data source and saved query owned by the workspace.
type WorkspaceStore interface {
	ListWorkspaces(ctx context.Context) ([]Workspace, error)
	CreateWorkspace(ctx context.Context, ws Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error
}

// DashboardStore persists dashboards together with their widgets and filters.
type DashboardStore interface {
	ListDashboards(ctx context.Context) ([]Dashboard, error)
	CreateDashboard(ctx context.Context, dash Dashboard) error
	SaveDashboard(ctx context.Context, dash Dashboard) error
	DeleteDashboard(ctx context.Context, id string) error
}

// DataSourceStore persists data sources and their sync schedule.
type DataSourceStore interface {
	ListDataSources(ctx context.Context) ([]DataSource, error)
	CreateDataSource(ctx context.Context, ds DataSource) error
	SaveDataSource(ctx context.Context, ds DataSource) error
}

// QueryStore persists saved SQL queries.
type QueryStore interface {
	ListSavedQueries(ctx context.Context) ([]SavedQuery, error)
	CreateSavedQuery(ctx context.Context, q SavedQuery) error
}

// AuditStore appends to and reads from the audit trail.
type AuditStore interface {
	AppendAuditLog(ctx context.Context, entry AuditLog) error
	RecentAuditLogs(ctx context.Context, limit int) ([]AuditLog, error)
}

// Store is the remote persistence boundary used by the Service.
type Store interface {
	WorkspaceStore
	DashboardStore
	DataSourceStore
	QueryStore
	AuditStore
}

// RowResolver materializes the raw rows behind a data source or saved query.
type RowResolver interface {
	Resolve(ctx context.Context, ref SourceRef) (Dataset, error)
}

// Syncer performs the fetch step of a data source refresh.
type Syncer interface {
	Sync(ctx context.Context, ds DataSource) error
}

// ProviderRegistry stores widget definitions/providers discoverable via hooks or manifests.
type ProviderRegistry interface {
	RegisterDefinition(def WidgetDefinition) error
	RegisterProvider(code string, provider Provider) error
	Definition(code string) (WidgetDefinition, bool)
	Provider(code string) (Provider, bool)
	Definitions() []WidgetDefinition
}

// RefreshHook notifies transports (REST/WebSocket) about dashboard changes.
type RefreshHook interface {
	DashboardUpdated(ctx context.Context, event DashboardEvent) error
}

// ChartType identifies how a widget renders its rows.
type ChartType string

const (
	ChartBar       ChartType = "BAR"
	ChartLine      ChartType = "LINE"
	ChartPie       ChartType = "PIE"
	ChartArea      ChartType = "AREA"
	ChartScatter   ChartType = "SCATTER"
	ChartHeatmap   ChartType = "HEATMAP"
	ChartTable     ChartType = "TABLE"
	ChartHTML      ChartType = "HTML"
	ChartIndicator ChartType = "INDICATOR"
)

// ChartTypes lists every supported chart type in display order.
func ChartTypes() []ChartType {
	return []ChartType{
		ChartBar, ChartLine, ChartPie, ChartArea, ChartScatter,
		ChartHeatmap, ChartTable, ChartHTML, ChartIndicator,
	}
}

// Valid reports whether t is a known chart type.
func (t ChartType) Valid() bool {
	for _, known := range ChartTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// AggregationType selects the reducer applied to grouped values.
type AggregationType string

const (
	AggregateNone  AggregationType = "NONE"
	AggregateSum   AggregationType = "SUM"
	AggregateAvg   AggregationType = "AVG"
	AggregateMin   AggregationType = "MIN"
	AggregateMax   AggregationType = "MAX"
	AggregateCount AggregationType = "COUNT"
)

// Valid reports whether a is a known aggregation.
func (a AggregationType) Valid() bool {
	switch a {
	case AggregateNone, AggregateSum, AggregateAvg, AggregateMin, AggregateMax, AggregateCount:
		return true
	}
	return false
}

// FilterType defines how a dashboard filter matches rows.
type FilterType string

const (
	FilterSelect    FilterType = "SELECT"
	FilterDateRange FilterType = "DATE_RANGE"
	FilterText      FilterType = "TEXT"
)

// DataSourceType tags the connection settings variant of a data source.
type DataSourceType string

const (
	SourcePostgres DataSourceType = "POSTGRES"
	SourceMySQL    DataSourceType = "MYSQL"
	SourceSQLite   DataSourceType = "SQLITE"
	SourceCSV      DataSourceType = "CSV"
	SourceJSON     DataSourceType = "JSON"
	SourceREST     DataSourceType = "REST_API"
	SourceMongo    DataSourceType = "MONGO"
	SourceSample   DataSourceType = "SAMPLE"
)

// SourceStatus is the connection health of a data source.
type SourceStatus string

const (
	StatusConnected SourceStatus = "connected"
	StatusError     SourceStatus = "error"
	StatusPending   SourceStatus = "pending"
)

// ScheduleMode selects manual or automatic refresh.
type ScheduleMode string

const (
	ScheduleManual ScheduleMode = "MANUAL"
	ScheduleAuto   ScheduleMode = "AUTO"
)

// SyncInterval is the refresh cadence of an AUTO schedule.
type SyncInterval string

const (
	Interval15m      SyncInterval = "15m"
	Interval30m      SyncInterval = "30m"
	Interval1h       SyncInterval = "1h"
	IntervalMidnight SyncInterval = "midnight"
)

// Workspace is the tenant boundary that owns dashboards, sources and queries.
type Workspace struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	OwnerID     string `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
}

// Layout is the widget footprint: width in grid units (1..3) and height in pixels.
type Layout struct {
	Width  int `json:"w" yaml:"w"`
	Height int `json:"h" yaml:"h"`
}

// Configuration captures the field mapping and presentation options of a widget.
type Configuration struct {
	XAxis         string            `json:"x_axis,omitempty" yaml:"x_axis,omitempty"`
	DataKeys      []string          `json:"data_keys,omitempty" yaml:"data_keys,omitempty"`
	Aggregation   AggregationType   `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Colors        []string          `json:"colors,omitempty" yaml:"colors,omitempty"`
	HTMLContent   string            `json:"html_content,omitempty" yaml:"html_content,omitempty"`
	QueryID       string            `json:"query_id,omitempty" yaml:"query_id,omitempty"`
	FilterMapping map[string]string `json:"filter_mapping,omitempty" yaml:"filter_mapping,omitempty"`
}

// Widget is a saved chart with a materialized snapshot of its preview rows.
type Widget struct {
	ID     string        `json:"id" yaml:"id"`
	Type   ChartType     `json:"type" yaml:"type"`
	Title  string        `json:"title" yaml:"title"`
	Data   Dataset       `json:"data" yaml:"data"`
	Config Configuration `json:"config" yaml:"config"`
	Layout Layout        `json:"layout" yaml:"layout"`
}

// DashboardFilter is a dashboard-level control mapped onto widget fields.
type DashboardFilter struct {
	ID           string       `json:"id" yaml:"id"`
	Label        string       `json:"label" yaml:"label"`
	Type         FilterType   `json:"type" yaml:"type"`
	Options      []string     `json:"options,omitempty" yaml:"options,omitempty"`
	DefaultValue *FilterValue `json:"default_value,omitempty" yaml:"default_value,omitempty"`
}

// Dashboard is an ordered page of widgets plus its filter bar.
type Dashboard struct {
	ID          string            `json:"id" yaml:"id"`
	WorkspaceID string            `json:"workspace_id" yaml:"workspace_id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Widgets     []Widget          `json:"widgets" yaml:"widgets"`
	Filters     []DashboardFilter `json:"filters" yaml:"filters"`
}

// Schedule drives automatic refreshes. NextSyncAt is set iff Mode is AUTO.
type Schedule struct {
	Mode         ScheduleMode `json:"mode" yaml:"mode"`
	Interval     SyncInterval `json:"interval,omitempty" yaml:"interval,omitempty"`
	LastSyncedAt *time.Time   `json:"last_synced_at,omitempty" yaml:"last_synced_at,omitempty"`
	NextSyncAt   *time.Time   `json:"next_sync_at,omitempty" yaml:"next_sync_at,omitempty"`
	IsSyncing    bool         `json:"is_syncing" yaml:"-"`
}

// DataSource is a connection the workspace pulls rows from.
type DataSource struct {
	ID               string           `json:"id" yaml:"id"`
	WorkspaceID      string           `json:"workspace_id" yaml:"workspace_id"`
	Name             string           `json:"name" yaml:"name"`
	Type             DataSourceType   `json:"type" yaml:"type"`
	Connection       ConnectionConfig `json:"connection" yaml:"connection"`
	Status           SourceStatus     `json:"status" yaml:"status"`
	LastErrorMessage string           `json:"last_error_message,omitempty" yaml:"last_error_message,omitempty"`
	Schedule         Schedule         `json:"schedule" yaml:"schedule"`
}

// SavedQuery is a named SQL statement. DataSourceID selects where it runs.
type SavedQuery struct {
	ID           string     `json:"id" yaml:"id"`
	WorkspaceID  string     `json:"workspace_id" yaml:"workspace_id"`
	Name         string     `json:"name" yaml:"name"`
	SQL          string     `json:"sql" yaml:"sql"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	DataSourceID string     `json:"data_source_id,omitempty" yaml:"data_source_id,omitempty"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty" yaml:"last_run_at,omitempty"`
}

// AuditLog is an append-only record of a user-visible mutation.
type AuditLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// ViewerContext captures the active user needed to render dashboards.
type ViewerContext struct {
	UserID string
	Roles  []string
}

// DashboardEvent describes changes that transports might care about.
type DashboardEvent struct {
	Reason       string `json:"reason"`
	WorkspaceID  string `json:"workspace_id,omitempty"`
	DashboardID  string `json:"dashboard_id,omitempty"`
	WidgetID     string `json:"widget_id,omitempty"`
	DataSourceID string `json:"data_source_id,omitempty"`
	Error        string `json:"error,omitempty"`
}
