package dashboard

import (
	"context"
	"fmt"
)

// RenderedWidget pairs a filtered widget with its provider payload. Error is
// set when the provider failed; the rest of the page still renders.
type RenderedWidget struct {
	Widget Widget     `json:"widget"`
	Data   WidgetData `json:"data,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// DashboardView is what a surface needs to draw one dashboard.
type DashboardView struct {
	Dashboard Dashboard        `json:"dashboard"`
	Filters   FilterValues     `json:"filters"`
	Widgets   []RenderedWidget `json:"widgets"`
}

// Controller renders dashboards for viewers.
type Controller struct {
	service *Service
}

// NewController wires the service into a controller.
func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// View applies the filter values, falling back to each filter's default, and
// runs every widget through its provider.
func (c *Controller) View(ctx context.Context, viewer ViewerContext, dashboardID string, values FilterValues) (DashboardView, error) {
	if c.service == nil {
		return DashboardView{}, ErrNotStarted
	}
	dash, err := c.service.Dashboard(dashboardID)
	if err != nil {
		return DashboardView{}, err
	}
	live := DefaultFilterValues(dash.Filters)
	for id, v := range values {
		live[id] = v
	}
	live = live.ResolvePresets(c.service.now())
	widgets, err := c.service.ViewWidgets(dashboardID, live)
	if err != nil {
		return DashboardView{}, err
	}
	view := DashboardView{Dashboard: dash, Filters: live, Widgets: make([]RenderedWidget, len(widgets))}
	registry := c.service.Providers()
	for i, w := range widgets {
		rendered := RenderedWidget{Widget: w}
		provider, ok := registry.Provider(string(w.Type))
		if !ok {
			rendered.Error = fmt.Sprintf("no provider for %s", w.Type)
			view.Widgets[i] = rendered
			continue
		}
		data, err := provider.Fetch(ctx, WidgetContext{Widget: w, Viewer: viewer})
		if err != nil {
			rendered.Error = err.Error()
		} else {
			rendered.Data = data
		}
		view.Widgets[i] = rendered
	}
	return view, nil
}
