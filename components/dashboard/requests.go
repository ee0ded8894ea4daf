package dashboard

// AddWorkspaceRequest creates a workspace.
type AddWorkspaceRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
}

// DeleteWorkspaceRequest removes a workspace and everything it owns.
type DeleteWorkspaceRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
	Confirmed   bool   `json:"confirmed"`
}

// AddDashboardRequest creates an empty dashboard.
type AddDashboardRequest struct {
	WorkspaceID string            `json:"workspace_id" validate:"required"`
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description"`
	Filters     []DashboardFilter `json:"filters"`
}

// RenameDashboardRequest updates dashboard metadata.
type RenameDashboardRequest struct {
	DashboardID string `json:"dashboard_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// DeleteDashboardRequest removes a dashboard.
type DeleteDashboardRequest struct {
	DashboardID string `json:"dashboard_id" validate:"required"`
	Confirmed   bool   `json:"confirmed"`
}

// SaveWidgetRequest inserts or replaces a widget. Filters lists dashboard
// filters created while building the widget; existing ids are left alone.
type SaveWidgetRequest struct {
	DashboardID string            `json:"dashboard_id" validate:"required"`
	Widget      Widget            `json:"widget"`
	Filters     []DashboardFilter `json:"filters"`
}

// DeleteWidgetRequest removes a widget from a dashboard.
type DeleteWidgetRequest struct {
	DashboardID string `json:"dashboard_id" validate:"required"`
	WidgetID    string `json:"widget_id" validate:"required"`
	Confirmed   bool   `json:"confirmed"`
}

// ReorderWidgetsRequest applies an explicit widget order.
type ReorderWidgetsRequest struct {
	DashboardID string   `json:"dashboard_id" validate:"required"`
	WidgetIDs   []string `json:"widget_ids" validate:"required,min=1"`
}

// MoveWidgetRequest drags the widget at From onto the slot at To.
type MoveWidgetRequest struct {
	DashboardID string `json:"dashboard_id" validate:"required"`
	From        int    `json:"from" validate:"min=0"`
	To          int    `json:"to" validate:"min=0"`
}

// ShiftWidgetRequest swaps a widget with its neighbour.
type ShiftWidgetRequest struct {
	DashboardID string    `json:"dashboard_id" validate:"required"`
	WidgetID    string    `json:"widget_id" validate:"required"`
	Direction   Direction `json:"direction" validate:"required,oneof=UP DOWN"`
}

// ResizeWidgetRequest changes a widget footprint. Width is clamped to 1..3
// and height to at least 150px; nil fields are left unchanged.
type ResizeWidgetRequest struct {
	DashboardID string `json:"dashboard_id" validate:"required"`
	WidgetID    string `json:"widget_id" validate:"required"`
	Width       *int   `json:"w,omitempty"`
	Height      *int   `json:"h,omitempty"`
}

// AddFilterRequest adds a dashboard filter unless its id already exists.
type AddFilterRequest struct {
	DashboardID string          `json:"dashboard_id" validate:"required"`
	Filter      DashboardFilter `json:"filter"`
}

// RemoveFilterRequest drops a dashboard filter and every widget mapping to it.
type RemoveFilterRequest struct {
	DashboardID string `json:"dashboard_id" validate:"required"`
	FilterID    string `json:"filter_id" validate:"required"`
}

// AddDataSourceRequest registers a data source.
type AddDataSourceRequest struct {
	WorkspaceID string           `json:"workspace_id" validate:"required"`
	Name        string           `json:"name" validate:"required"`
	Type        DataSourceType   `json:"type" validate:"required"`
	Connection  ConnectionConfig `json:"connection"`
}

// UpdateScheduleRequest replaces the refresh schedule of a data source.
type UpdateScheduleRequest struct {
	DataSourceID string       `json:"data_source_id" validate:"required"`
	Mode         ScheduleMode `json:"mode" validate:"required,oneof=MANUAL AUTO"`
	Interval     SyncInterval `json:"interval"`
}

// SaveQueryRequest stores a SQL query.
type SaveQueryRequest struct {
	WorkspaceID  string `json:"workspace_id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	SQL          string `json:"sql" validate:"required"`
	Description  string `json:"description"`
	DataSourceID string `json:"data_source_id"`
}

// PreviewRequest describes a widget configuration to preview without saving.
// Source uses the builder selector form: "sq-<id>" for saved queries. Setting
// WidgetID previews an edit of that saved widget; the other fields then
// override its configuration when set.
type PreviewRequest struct {
	DashboardID string          `json:"dashboard_id" validate:"required_with=WidgetID"`
	WidgetID    string          `json:"widget_id"`
	Source      string          `json:"source" validate:"required_without=WidgetID"`
	Type        ChartType       `json:"type" validate:"required_without=WidgetID"`
	XAxis       string          `json:"x_axis"`
	Value       string          `json:"value"`
	Columns     []string        `json:"columns"`
	Aggregation AggregationType `json:"aggregation"`
}
