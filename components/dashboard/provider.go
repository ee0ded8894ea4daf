package dashboard

import "context"

// Provider turns a widget snapshot into the payload a surface renders.
type Provider interface {
	Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, meta WidgetContext) (WidgetData, error)

// Fetch implements Provider.
func (f ProviderFunc) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	return f(ctx, meta)
}

// WidgetContext carries the widget, with filters already applied to its rows,
// and the viewer it is rendered for.
type WidgetContext struct {
	Widget Widget
	Viewer ViewerContext
}

// WidgetData is an opaque payload passed to the rendering surface.
type WidgetData map[string]any
