package dashboard

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SavedQueryPrefix marks source selections that refer to saved queries.
const SavedQueryPrefix = "sq-"

var (
	ErrUnknownSlot  = errors.New("dashboard: unknown slot")
	ErrEmptyField   = errors.New("dashboard: field name is required")
	ErrUnknownField = errors.New("dashboard: field not found in source")
)

// DefaultPalette is applied to new widgets.
var DefaultPalette = []string{"#3b82f6", "#10b981", "#f59e0b", "#8b5cf6", "#ef4444"}

// DefaultHTMLContent seeds new HTML widgets.
const DefaultHTMLContent = `<div class="p-4">Edit HTML content</div>`

// Options offered by filters created from a dropped field.
var droppedFilterOptions = []string{"Option A", "Option B", "Option C"}

// SourceKind distinguishes data sources from saved queries.
type SourceKind string

const (
	SourceKindDataSource SourceKind = "source"
	SourceKindQuery      SourceKind = "query"
)

// SourceRef identifies where a widget reads its raw rows from.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
}

// DataSourceRef references a data source.
func DataSourceRef(id string) SourceRef { return SourceRef{Kind: SourceKindDataSource, ID: id} }

// QueryRef references a saved query.
func QueryRef(id string) SourceRef { return SourceRef{Kind: SourceKindQuery, ID: id} }

// ParseSourceRef decodes the selector form used by builders: saved queries
// carry the "sq-" prefix, everything else is a data source id.
func ParseSourceRef(value string) SourceRef {
	if id, ok := strings.CutPrefix(value, SavedQueryPrefix); ok {
		return QueryRef(id)
	}
	return DataSourceRef(value)
}

// String encodes the ref in selector form.
func (r SourceRef) String() string {
	if r.Kind == SourceKindQuery {
		return SavedQueryPrefix + r.ID
	}
	return r.ID
}

// IsZero reports whether no source is selected.
func (r SourceRef) IsZero() bool { return r.ID == "" }

// Slot is a widget configuration target a field can be assigned to.
type Slot string

const (
	SlotXAxis   Slot = "x_axis"
	SlotValue   Slot = "value"
	SlotColumns Slot = "columns"
	SlotFilter  Slot = "filter"
)

// Draft is the in-progress configuration edited in the widget builder.
type Draft struct {
	WidgetID      string            `json:"widget_id,omitempty"`
	Title         string            `json:"title"`
	Type          ChartType         `json:"type"`
	Source        SourceRef         `json:"source"`
	XField        string            `json:"x_field,omitempty"`
	ValueField    string            `json:"value_field,omitempty"`
	Columns       []string          `json:"columns,omitempty"`
	Aggregation   AggregationType   `json:"aggregation,omitempty"`
	FilterMapping map[string]string `json:"filter_mapping,omitempty"`
	HTMLContent   string            `json:"html_content,omitempty"`
}

// NewDraft returns the builder defaults: a bar chart summing its values.
func NewDraft() Draft {
	return Draft{
		Type:          ChartBar,
		Aggregation:   AggregateSum,
		FilterMapping: map[string]string{},
	}
}

// DraftFromWidget reopens a saved widget for editing. fallback is used when
// the widget does not reference a saved query.
func DraftFromWidget(w Widget, fallback SourceRef) Draft {
	d := Draft{
		WidgetID:      w.ID,
		Title:         w.Title,
		Type:          w.Type,
		XField:        w.Config.XAxis,
		Aggregation:   w.Config.Aggregation,
		FilterMapping: cloneMapping(w.Config.FilterMapping),
		HTMLContent:   w.Config.HTMLContent,
		Source:        fallback,
	}
	if d.Aggregation == "" {
		d.Aggregation = AggregateSum
	}
	if w.Type == ChartTable {
		d.Columns = append([]string(nil), w.Config.DataKeys...)
	} else if len(w.Config.DataKeys) > 0 {
		d.ValueField = w.Config.DataKeys[0]
	}
	if w.Config.QueryID != "" {
		d.Source = QueryRef(w.Config.QueryID)
	}
	return d
}

// Assign binds field to slot. Assigning to the filter slot maps a dashboard
// filter onto the field and returns the filter to create when none of the
// existing filters has the derived id.
func (d *Draft) Assign(slot Slot, field string, existing []DashboardFilter) (*DashboardFilter, error) {
	if strings.TrimSpace(field) == "" {
		return nil, ErrEmptyField
	}
	switch slot {
	case SlotXAxis:
		d.XField = field
	case SlotValue:
		d.ValueField = field
	case SlotColumns:
		for _, col := range d.Columns {
			if col == field {
				return nil, nil
			}
		}
		d.Columns = append(d.Columns, field)
	case SlotFilter:
		id := FilterIDForField(field)
		if d.FilterMapping == nil {
			d.FilterMapping = map[string]string{}
		}
		d.FilterMapping[id] = field
		for _, f := range existing {
			if f.ID == id {
				return nil, nil
			}
		}
		return &DashboardFilter{
			ID:      id,
			Label:   capitalize(field),
			Type:    FilterSelect,
			Options: append([]string(nil), droppedFilterOptions...),
		}, nil
	default:
		return nil, ErrUnknownSlot
	}
	return nil, nil
}

// RemoveColumn drops field from the table column set.
func (d *Draft) RemoveColumn(field string) {
	out := d.Columns[:0]
	for _, col := range d.Columns {
		if col != field {
			out = append(out, col)
		}
	}
	d.Columns = out
}

// Missing lists the configuration the chart type still needs before it can
// render. Title is not included.
func (d Draft) Missing() []string {
	var missing []string
	switch d.Type {
	case ChartHTML:
	case ChartTable:
		if len(d.Columns) == 0 {
			missing = append(missing, "columns")
		}
	case ChartIndicator:
		if d.ValueField == "" {
			missing = append(missing, "value")
		}
	default:
		if d.XField == "" {
			missing = append(missing, "x_axis")
		}
		if d.ValueField == "" {
			missing = append(missing, "value")
		}
	}
	return missing
}

// CanSave reports whether the draft has a title and every required field.
func (d Draft) CanSave() bool {
	return strings.TrimSpace(d.Title) != "" && len(d.Missing()) == 0
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FilterIDForField derives the dashboard filter id used when a field is
// dropped on the filter slot: the field lowercased with every whitespace run
// replaced by an underscore. Case boundaries are not split, so orderDate
// becomes orderdate.
func FilterIDForField(field string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(field), "_")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func cloneMapping(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
