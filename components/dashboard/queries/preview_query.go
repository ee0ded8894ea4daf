package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

type widgetLookup interface {
	Widget(dashboardID, widgetID string) (dashboard.Widget, error)
}

// PreviewQuery derives widget rows for an unsaved configuration, or for an
// edit of a saved widget when the request names one.
type PreviewQuery struct {
	resolver dashboard.RowResolver
	widgets  widgetLookup
}

// NewPreviewQuery builds the query over resolver. widgets may be nil, which
// disables edit previews.
func NewPreviewQuery(resolver dashboard.RowResolver, widgets widgetLookup) *PreviewQuery {
	return &PreviewQuery{resolver: resolver, widgets: widgets}
}

var _ gocommand.Querier[dashboard.PreviewRequest, dashboard.PreviewResult] = (*PreviewQuery)(nil)

func (q *PreviewQuery) Query(ctx context.Context, req dashboard.PreviewRequest) (dashboard.PreviewResult, error) {
	if q.resolver == nil {
		return dashboard.PreviewResult{}, errors.New("preview query requires a row resolver")
	}
	if req.WidgetID == "" {
		return dashboard.Preview(ctx, q.resolver, req)
	}
	if q.widgets == nil {
		return dashboard.PreviewResult{}, errors.New("preview query cannot load saved widgets")
	}
	w, err := q.widgets.Widget(req.DashboardID, req.WidgetID)
	if err != nil {
		return dashboard.PreviewResult{}, err
	}
	return dashboard.PreviewEdit(ctx, q.resolver, w, req)
}
