package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

// DashboardViewInput identifies a dashboard render for a viewer.
type DashboardViewInput struct {
	Viewer      dashboard.ViewerContext
	DashboardID string
	Filters     dashboard.FilterValues
}

type viewService interface {
	View(ctx context.Context, viewer dashboard.ViewerContext, dashboardID string, values dashboard.FilterValues) (dashboard.DashboardView, error)
}

// DashboardViewQuery renders a dashboard with live filter values.
type DashboardViewQuery struct {
	service viewService
}

// NewDashboardViewQuery builds the query.
func NewDashboardViewQuery(service viewService) *DashboardViewQuery {
	return &DashboardViewQuery{service: service}
}

var _ gocommand.Querier[DashboardViewInput, dashboard.DashboardView] = (*DashboardViewQuery)(nil)

// Query resolves the dashboard view for the viewer.
func (q *DashboardViewQuery) Query(ctx context.Context, input DashboardViewInput) (dashboard.DashboardView, error) {
	if input.DashboardID == "" {
		return dashboard.DashboardView{}, errors.New("view query requires dashboard id")
	}
	return q.service.View(ctx, input.Viewer, input.DashboardID, input.Filters)
}

// ExportWidgetInput selects the widget to export under the given filters.
type ExportWidgetInput struct {
	DashboardID string
	WidgetID    string
	Filters     dashboard.FilterValues
}

// ExportedFile is a CSV download.
type ExportedFile struct {
	Filename string
	Body     []byte
}

type exportService interface {
	ExportWidget(dashboardID, widgetID string, values dashboard.FilterValues) (string, []byte, error)
}

// ExportWidgetQuery builds the CSV for a widget's filtered rows.
type ExportWidgetQuery struct {
	service exportService
}

// NewExportWidgetQuery builds the query.
func NewExportWidgetQuery(service exportService) *ExportWidgetQuery {
	return &ExportWidgetQuery{service: service}
}

var _ gocommand.Querier[ExportWidgetInput, ExportedFile] = (*ExportWidgetQuery)(nil)

func (q *ExportWidgetQuery) Query(_ context.Context, input ExportWidgetInput) (ExportedFile, error) {
	name, body, err := q.service.ExportWidget(input.DashboardID, input.WidgetID, input.Filters)
	if err != nil {
		return ExportedFile{}, err
	}
	return ExportedFile{Filename: name, Body: body}, nil
}

// DrillDownInput picks one rendered data point of a widget.
type DrillDownInput struct {
	DashboardID string
	WidgetID    string
	Index       int
	Filters     dashboard.FilterValues
}

type drillDownService interface {
	DrillDown(dashboardID, widgetID string, index int, values dashboard.FilterValues) (dashboard.Row, error)
}

// DrillDownQuery returns the full row behind a data point.
type DrillDownQuery struct {
	service drillDownService
}

// NewDrillDownQuery builds the query.
func NewDrillDownQuery(service drillDownService) *DrillDownQuery {
	return &DrillDownQuery{service: service}
}

var _ gocommand.Querier[DrillDownInput, dashboard.Row] = (*DrillDownQuery)(nil)

func (q *DrillDownQuery) Query(_ context.Context, input DrillDownInput) (dashboard.Row, error) {
	if input.DashboardID == "" || input.WidgetID == "" {
		return nil, errors.New("drill-down query requires dashboard and widget ids")
	}
	return q.service.DrillDown(input.DashboardID, input.WidgetID, input.Index, input.Filters)
}
