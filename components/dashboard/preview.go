package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
)

const tablePreviewRows = 5

var (
	ErrIncompleteConfiguration = errors.New("dashboard: widget configuration is incomplete")
	errMissingResolver         = errors.New("dashboard: row resolver not configured")
)

// BuildPreview derives the chart-ready rows for a draft from the raw rows of
// its source. A draft missing a required field yields an empty preview.
func BuildPreview(d Draft, raw Dataset) Dataset {
	empty := Dataset{Rows: []Row{}}
	switch d.Type {
	case ChartHTML:
		return empty
	case ChartTable:
		if len(d.Columns) == 0 {
			return raw.Head(tablePreviewRows)
		}
		return projectColumns(raw, d.Columns)
	case ChartIndicator:
		if d.ValueField == "" {
			return empty
		}
		return Indicator(raw, d.ValueField, d.Aggregation)
	default:
		if d.XField == "" || d.ValueField == "" {
			return empty
		}
		return Aggregate(raw, d.XField, d.ValueField, d.Aggregation)
	}
}

func projectColumns(raw Dataset, columns []string) Dataset {
	rows := make([]Row, len(raw.Rows))
	for i, src := range raw.Rows {
		row := make(Row, len(columns))
		for _, col := range columns {
			v := src[col]
			if !isScalar(v) || isBlank(v) {
				v = ""
			}
			row[col] = v
		}
		rows[i] = row
	}
	return Dataset{Fields: append([]string(nil), columns...), Rows: rows}
}

// Session is the live preview engine behind the widget builder. Every edit
// re-derives the preview; raw rows are only resolved again when the selected
// source changes.
type Session struct {
	mu       sync.Mutex
	resolver RowResolver
	filters  []DashboardFilter
	base     *Widget
	draft    Draft
	raw      Dataset
	rawRef   SourceRef
	preview  Dataset
	created  []DashboardFilter
	newID    func() string
}

// NewSession starts a builder for a new widget on a dashboard with the given
// filters.
func NewSession(resolver RowResolver, filters []DashboardFilter) *Session {
	return &Session{
		resolver: resolver,
		filters:  append([]DashboardFilter(nil), filters...),
		draft:    NewDraft(),
		preview:  Dataset{Rows: []Row{}},
		newID:    func() string { return "w-" + uuid.NewString() },
	}
}

// Edit reopens a saved widget. fallback is the source used when the widget
// does not reference a saved query.
func (s *Session) Edit(ctx context.Context, w Widget, fallback SourceRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := w
	s.base = &base
	s.draft = DraftFromWidget(w, fallback)
	return s.reload(ctx)
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	d.Columns = append([]string(nil), d.Columns...)
	d.FilterMapping = cloneMapping(d.FilterMapping)
	return d
}

// Preview returns the current preview rows.
func (s *Session) Preview() Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// Fields lists the fields of the selected source.
func (s *Session) Fields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.raw.Fields...)
}

// CreatedFilters lists filters produced by filter slot assignments.
func (s *Session) CreatedFilters() []DashboardFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DashboardFilter(nil), s.created...)
}

// SelectSource switches the raw rows the preview is derived from.
func (s *Session) SelectSource(ctx context.Context, ref SourceRef) (Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Source = ref
	if err := s.reload(ctx); err != nil {
		return s.preview, err
	}
	return s.preview, nil
}

// SetTitle updates the widget title.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Title = title
}

// SetHTMLContent updates the markup of an HTML widget.
func (s *Session) SetHTMLContent(markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.HTMLContent = markup
}

// SetChartType switches the chart type. Chosen fields are kept.
func (s *Session) SetChartType(t ChartType) Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Type = t
	return s.recompute()
}

// SetAggregation switches the reducer.
func (s *Session) SetAggregation(op AggregationType) Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Aggregation = op
	return s.recompute()
}

// Assign binds a source field to a slot. Fields unknown to the selected
// source are rejected with the closest known field as a suggestion.
func (s *Session) Assign(slot Slot, field string) (Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.raw.Fields) > 0 && !s.raw.HasField(field) {
		if suggestion := closestField(field, s.raw.Fields); suggestion != "" {
			return s.preview, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownField, field, suggestion)
		}
		return s.preview, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	known := append(append([]DashboardFilter(nil), s.filters...), s.created...)
	created, err := s.draft.Assign(slot, field, known)
	if err != nil {
		return s.preview, err
	}
	if created != nil {
		s.created = append(s.created, *created)
	}
	return s.recompute(), nil
}

// MapFilter wires an existing dashboard filter onto a source field. An empty
// field removes the mapping.
func (s *Session) MapFilter(filterID, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := false
	for _, f := range append(append([]DashboardFilter(nil), s.filters...), s.created...) {
		if f.ID == filterID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: filter %s", ErrNotFound, filterID)
	}
	if s.draft.FilterMapping == nil {
		s.draft.FilterMapping = map[string]string{}
	}
	if field == "" {
		delete(s.draft.FilterMapping, filterID)
		return nil
	}
	s.draft.FilterMapping[filterID] = field
	return nil
}

// RemoveColumn drops a table column.
func (s *Session) RemoveColumn(field string) Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.RemoveColumn(field)
	return s.recompute()
}

// Save snapshots the current preview into a widget. Editing merges the new
// configuration over the existing widget.
func (s *Session) Save() (Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draft.CanSave() {
		return Widget{}, ErrIncompleteConfiguration
	}
	d := s.draft

	var w Widget
	if s.base != nil {
		w = *s.base
	} else {
		w = Widget{
			ID:     s.newID(),
			Layout: defaultLayout(d.Type),
		}
	}
	w.Type = d.Type
	w.Title = d.Title
	w.Data = s.preview.Clone()

	cfg := w.Config
	cfg.XAxis = d.XField
	cfg.Aggregation = d.Aggregation
	if d.Type == ChartTable || d.Type == ChartIndicator {
		cfg.XAxis = ""
	}
	if d.Type == ChartTable {
		cfg.DataKeys = append([]string(nil), d.Columns...)
		cfg.Aggregation = ""
	} else if d.ValueField != "" {
		cfg.DataKeys = []string{d.ValueField}
	} else {
		cfg.DataKeys = nil
	}
	if len(cfg.Colors) == 0 {
		cfg.Colors = append([]string(nil), DefaultPalette...)
	}
	if d.Type == ChartHTML {
		switch {
		case d.HTMLContent != "":
			cfg.HTMLContent = d.HTMLContent
		case cfg.HTMLContent == "":
			cfg.HTMLContent = DefaultHTMLContent
		}
	}
	cfg.FilterMapping = cloneMapping(d.FilterMapping)
	cfg.QueryID = ""
	if d.Source.Kind == SourceKindQuery {
		cfg.QueryID = d.Source.ID
	}
	w.Config = cfg
	return w, nil
}

func (s *Session) reload(ctx context.Context) error {
	if s.draft.Source.IsZero() {
		s.raw = Dataset{}
		s.rawRef = SourceRef{}
		s.recompute()
		return nil
	}
	if s.draft.Source == s.rawRef && s.raw.Rows != nil {
		s.recompute()
		return nil
	}
	if s.resolver == nil {
		return errMissingResolver
	}
	raw, err := s.resolver.Resolve(ctx, s.draft.Source)
	if err != nil {
		s.raw = Dataset{}
		s.rawRef = SourceRef{}
		s.recompute()
		return fmt.Errorf("dashboard: resolve %s: %w", s.draft.Source, err)
	}
	s.raw = raw
	s.rawRef = s.draft.Source
	s.recompute()
	return nil
}

func (s *Session) recompute() Dataset {
	s.preview = BuildPreview(s.draft, s.raw)
	return s.preview
}

func defaultLayout(t ChartType) Layout {
	width := 1
	if t == ChartTable {
		width = 3
	}
	return Layout{Width: width, Height: defaultWidgetHeight}
}

func closestField(field string, candidates []string) string {
	best := ""
	bestDistance := -1
	for _, candidate := range candidates {
		d := levenshtein.ComputeDistance(field, candidate)
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	if bestDistance > len(field)/2+1 {
		return ""
	}
	return best
}

// PreviewResult carries the fields of the selected source and the rows the
// widget would render.
type PreviewResult struct {
	Fields  []string `json:"fields"`
	Data    Dataset  `json:"data"`
	Missing []string `json:"missing,omitempty"`
}

// Preview runs req through a throwaway builder session.
func Preview(ctx context.Context, resolver RowResolver, req PreviewRequest) (PreviewResult, error) {
	s := NewSession(resolver, nil)
	if _, err := s.SelectSource(ctx, ParseSourceRef(req.Source)); err != nil {
		return PreviewResult{}, err
	}
	return runPreview(s, req)
}

// PreviewEdit reopens w in a throwaway builder session and applies req over
// it. A request source replaces the widget's source.
func PreviewEdit(ctx context.Context, resolver RowResolver, w Widget, req PreviewRequest) (PreviewResult, error) {
	s := NewSession(resolver, nil)
	ref := ParseSourceRef(req.Source)
	if err := s.Edit(ctx, w, ref); err != nil {
		return PreviewResult{}, err
	}
	if !ref.IsZero() && s.Draft().Source != ref {
		if _, err := s.SelectSource(ctx, ref); err != nil {
			return PreviewResult{}, err
		}
	}
	return runPreview(s, req)
}

func runPreview(s *Session, req PreviewRequest) (PreviewResult, error) {
	if req.Type != "" {
		s.SetChartType(req.Type)
	}
	if req.Aggregation != "" {
		s.SetAggregation(req.Aggregation)
	}
	assign := func(slot Slot, field string) error {
		if field == "" {
			return nil
		}
		_, err := s.Assign(slot, field)
		return err
	}
	if err := assign(SlotXAxis, req.XAxis); err != nil {
		return PreviewResult{}, err
	}
	if err := assign(SlotValue, req.Value); err != nil {
		return PreviewResult{}, err
	}
	for _, col := range req.Columns {
		if err := assign(SlotColumns, col); err != nil {
			return PreviewResult{}, err
		}
	}
	return PreviewResult{
		Fields:  s.Fields(),
		Data:    s.Preview(),
		Missing: s.Draft().Missing(),
	}, nil
}
