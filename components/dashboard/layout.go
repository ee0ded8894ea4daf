package dashboard

const (
	defaultWidgetHeight = 300
	minWidgetHeight     = 150
	minWidgetWidth      = 1
	maxWidgetWidth      = 3
)

// Direction moves a widget one slot up or down the dashboard.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// applyOrderOverride sorts widgets by the given id order. Widgets missing from
// order keep their relative position at the end.
func applyOrderOverride(widgets []Widget, order []string) []Widget {
	if len(order) == 0 {
		return widgets
	}
	index := make(map[string]Widget, len(widgets))
	for _, w := range widgets {
		index[w.ID] = w
	}
	result := make([]Widget, 0, len(widgets))
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if w, ok := index[id]; ok {
			if _, dup := seen[id]; dup {
				continue
			}
			result = append(result, w)
			seen[id] = struct{}{}
		}
	}
	for _, w := range widgets {
		if _, ok := seen[w.ID]; !ok {
			result = append(result, w)
		}
	}
	return result
}

// moveWidget removes the widget at from and reinserts it at to.
func moveWidget(widgets []Widget, from, to int) ([]Widget, bool) {
	if from < 0 || from >= len(widgets) || to < 0 || to >= len(widgets) || from == to {
		return widgets, false
	}
	out := make([]Widget, 0, len(widgets))
	out = append(out, widgets[:from]...)
	out = append(out, widgets[from+1:]...)
	moved := widgets[from]
	out = append(out[:to], append([]Widget{moved}, out[to:]...)...)
	return out, true
}

// shiftWidget swaps the widget at index with its neighbour.
func shiftWidget(widgets []Widget, index int, dir Direction) ([]Widget, bool) {
	target := index - 1
	if dir == DirectionDown {
		target = index + 1
	}
	if index < 0 || index >= len(widgets) || target < 0 || target >= len(widgets) {
		return widgets, false
	}
	out := append([]Widget(nil), widgets...)
	out[index], out[target] = out[target], out[index]
	return out, true
}

func clampWidth(w int) int {
	if w < minWidgetWidth {
		return minWidgetWidth
	}
	if w > maxWidgetWidth {
		return maxWidgetWidth
	}
	return w
}

func clampHeight(h int) int {
	if h < minWidgetHeight {
		return minWidgetHeight
	}
	return h
}

func widgetIndex(widgets []Widget, id string) int {
	for i, w := range widgets {
		if w.ID == id {
			return i
		}
	}
	return -1
}
