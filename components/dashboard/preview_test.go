package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	sets  map[SourceRef]Dataset
	calls int
}

func (r *stubResolver) Resolve(_ context.Context, ref SourceRef) (Dataset, error) {
	r.calls++
	ds, ok := r.sets[ref]
	if !ok {
		return Dataset{}, errors.New("no such source")
	}
	return ds, nil
}

func newStubResolver() *stubResolver {
	return &stubResolver{sets: map[SourceRef]Dataset{
		DataSourceRef("sales"): salesRows(),
		QueryRef("q1"): NewDataset([]string{"region", "total"}, []Row{
			{"region": "EU", "total": 10},
			{"region": "US", "total": 20},
		}),
	}}
}

func TestSessionBuildsBarPreview(t *testing.T) {
	resolver := newStubResolver()
	s := NewSession(resolver, nil)

	_, err := s.SelectSource(context.Background(), DataSourceRef("sales"))
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "revenue", "status", "category", "date"}, s.Fields())

	preview, err := s.Assign(SlotXAxis, "category")
	require.NoError(t, err)
	assert.Empty(t, preview.Rows)
	assert.Equal(t, []string{"value"}, s.Draft().Missing())

	preview, err = s.Assign(SlotValue, "revenue")
	require.NoError(t, err)
	require.Len(t, preview.Rows, 3)
	assert.Equal(t, 6000.0, preview.Rows[0]["revenue"])

	preview = s.SetAggregation(AggregateCount)
	assert.Equal(t, 2.0, preview.Rows[0]["revenue"])

	assert.False(t, s.Draft().CanSave())
	s.SetTitle("Revenue by category")
	assert.True(t, s.Draft().CanSave())

	w, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, ChartBar, w.Type)
	assert.Equal(t, "category", w.Config.XAxis)
	assert.Equal(t, []string{"revenue"}, w.Config.DataKeys)
	assert.Equal(t, AggregateCount, w.Config.Aggregation)
	assert.Equal(t, DefaultPalette, w.Config.Colors)
	assert.Equal(t, Layout{Width: 1, Height: 300}, w.Layout)
	assert.Contains(t, w.ID, "w-")
	assert.Len(t, w.Data.Rows, 3)
	assert.Equal(t, 1, resolver.calls)
}

func TestSessionSaveRequiresCompleteDraft(t *testing.T) {
	s := NewSession(newStubResolver(), nil)
	s.SetTitle("Untitled")
	_, err := s.Save()
	assert.ErrorIs(t, err, ErrIncompleteConfiguration)
}

func TestSessionSuggestsClosestField(t *testing.T) {
	s := NewSession(newStubResolver(), nil)
	_, err := s.SelectSource(context.Background(), DataSourceRef("sales"))
	require.NoError(t, err)

	_, err = s.Assign(SlotValue, "revenu")
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Contains(t, err.Error(), `did you mean "revenue"`)

	_, err = s.Assign(SlotValue, "zzzzzzzzzz")
	require.ErrorIs(t, err, ErrUnknownField)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestBuildPreviewOverMonthlySales(t *testing.T) {
	ds := monthlySales()

	table := BuildPreview(Draft{Type: ChartTable}, ds)
	assert.Equal(t, ds.Rows[:5], table.Rows)

	bar := BuildPreview(Draft{Type: ChartBar, XField: "month", ValueField: "churn", Aggregation: AggregateSum}, ds)
	require.Len(t, bar.Rows, 7)
	for i, row := range bar.Rows {
		assert.Equal(t, ds.Rows[i]["month"], row["month"])
		assert.Equal(t, ds.Rows[i]["churn"], row["churn"])
	}

	indicator := BuildPreview(Draft{Type: ChartIndicator, ValueField: "revenue", Aggregation: AggregateSum},
		NewDataset(nil, []Row{{"revenue": 4000}, {"revenue": 3000}, {"revenue": 2000}}))
	assert.Equal(t, []Row{{"revenue": 9000.0}}, indicator.Rows)
}

func TestSessionTableKeepsColumnsAndLimitsPreview(t *testing.T) {
	s := NewSession(newStubResolver(), nil)
	s.SetChartType(ChartTable)
	_, err := s.SelectSource(context.Background(), DataSourceRef("sales"))
	require.NoError(t, err)
	assert.Len(t, s.Preview().Rows, 4)

	_, err = s.Assign(SlotColumns, "month")
	require.NoError(t, err)
	_, err = s.Assign(SlotColumns, "status")
	require.NoError(t, err)
	_, err = s.Assign(SlotColumns, "month")
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "status"}, s.Draft().Columns)

	preview := s.RemoveColumn("status")
	assert.Equal(t, []string{"month"}, preview.Fields)
	assert.Equal(t, Row{"month": "Jan"}, preview.Rows[0])

	s.SetTitle("Months")
	w, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, []string{"month"}, w.Config.DataKeys)
	assert.Empty(t, w.Config.XAxis)
	assert.Empty(t, w.Config.Aggregation)
	assert.Equal(t, 3, w.Layout.Width)
}

func TestSessionIndicatorAndHTML(t *testing.T) {
	s := NewSession(newStubResolver(), nil)
	_, err := s.SelectSource(context.Background(), QueryRef("q1"))
	require.NoError(t, err)
	s.SetChartType(ChartIndicator)
	_, err = s.Assign(SlotValue, "total")
	require.NoError(t, err)
	s.SetTitle("Total")
	w, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, []Row{{"total": 30.0}}, w.Data.Rows)
	assert.Equal(t, "q1", w.Config.QueryID)

	html := NewSession(nil, nil)
	html.SetChartType(ChartHTML)
	html.SetTitle("Banner")
	hw, err := html.Save()
	require.NoError(t, err)
	assert.Equal(t, DefaultHTMLContent, hw.Config.HTMLContent)
	assert.Empty(t, hw.Data.Rows)
}

func TestSessionFilterSlotCreatesFilterOnce(t *testing.T) {
	existing := []DashboardFilter{{ID: "status", Label: "Status", Type: FilterSelect}}
	s := NewSession(newStubResolver(), existing)
	_, err := s.SelectSource(context.Background(), DataSourceRef("sales"))
	require.NoError(t, err)

	_, err = s.Assign(SlotFilter, "status")
	require.NoError(t, err)
	assert.Empty(t, s.CreatedFilters())

	_, err = s.Assign(SlotFilter, "category")
	require.NoError(t, err)
	_, err = s.Assign(SlotFilter, "category")
	require.NoError(t, err)

	created := s.CreatedFilters()
	require.Len(t, created, 1)
	assert.Equal(t, "category", created[0].ID)
	assert.Equal(t, "Category", created[0].Label)
	assert.Equal(t, FilterSelect, created[0].Type)
	assert.Equal(t, map[string]string{"status": "status", "category": "category"}, s.Draft().FilterMapping)
}

func TestSessionMapFilter(t *testing.T) {
	s := NewSession(newStubResolver(), []DashboardFilter{{ID: "period", Type: FilterDateRange}})
	require.NoError(t, s.MapFilter("period", "date"))
	assert.Equal(t, "date", s.Draft().FilterMapping["period"])

	require.NoError(t, s.MapFilter("period", ""))
	assert.NotContains(t, s.Draft().FilterMapping, "period")

	assert.ErrorIs(t, s.MapFilter("unknown", "date"), ErrNotFound)
}

func TestSessionEditMergesOverExistingWidget(t *testing.T) {
	existing := barWidget("w-42", "Revenue")
	existing.Config.Colors = []string{"#000000"}
	existing.Layout = Layout{Width: 2, Height: 400}

	s := NewSession(newStubResolver(), nil)
	require.NoError(t, s.Edit(context.Background(), existing, DataSourceRef("sales")))
	assert.Equal(t, "month", s.Draft().XField)

	s.SetChartType(ChartLine)
	w, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, "w-42", w.ID)
	assert.Equal(t, ChartLine, w.Type)
	assert.Equal(t, []string{"#000000"}, w.Config.Colors)
	assert.Equal(t, Layout{Width: 2, Height: 400}, w.Layout)
	assert.Len(t, w.Data.Rows, 4)
}

func TestSessionResolveFailureClearsPreview(t *testing.T) {
	s := NewSession(newStubResolver(), nil)
	_, err := s.SelectSource(context.Background(), DataSourceRef("missing"))
	require.Error(t, err)
	assert.Empty(t, s.Fields())

	s = NewSession(nil, nil)
	_, err = s.SelectSource(context.Background(), DataSourceRef("sales"))
	assert.ErrorIs(t, err, errMissingResolver)
}

func TestDraftAssignRejectsBlankAndUnknownSlot(t *testing.T) {
	d := NewDraft()
	_, err := d.Assign(SlotValue, " ", nil)
	assert.ErrorIs(t, err, ErrEmptyField)
	_, err = d.Assign("legend", "x", nil)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestDraftFromWidget(t *testing.T) {
	w := Widget{ID: "w", Type: ChartTable, Title: "T", Config: Configuration{DataKeys: []string{"a", "b"}, QueryID: "q9"}}
	d := DraftFromWidget(w, DataSourceRef("fallback"))
	assert.Equal(t, []string{"a", "b"}, d.Columns)
	assert.Equal(t, QueryRef("q9"), d.Source)
	assert.Equal(t, AggregateSum, d.Aggregation)
}

func TestParseSourceRef(t *testing.T) {
	assert.Equal(t, QueryRef("42"), ParseSourceRef("sq-42"))
	assert.Equal(t, DataSourceRef("abc"), ParseSourceRef("abc"))
	assert.Equal(t, "sq-42", QueryRef("42").String())
}

func TestFilterIDForField(t *testing.T) {
	cases := map[string]string{
		"OrderDate":        "orderdate",
		"orderDate":        "orderdate",
		"route type":       "route_type",
		"Delivery \t Zone": "delivery_zone",
		"status":           "status",
	}
	for field, want := range cases {
		assert.Equal(t, want, FilterIDForField(field), field)
	}
}

func TestPreviewRunsRequestThroughSession(t *testing.T) {
	resolver := newStubResolver()
	out, err := Preview(context.Background(), resolver, PreviewRequest{
		Source: "sales",
		Type:   ChartPie,
		XAxis:  "status",
		Value:  "revenue",
	})
	require.NoError(t, err)
	assert.Empty(t, out.Missing)
	require.Len(t, out.Data.Rows, 2)
	assert.Equal(t, 9000.0, out.Data.Rows[0]["revenue"])
	assert.Contains(t, out.Fields, "category")

	table, err := Preview(context.Background(), resolver, PreviewRequest{Source: "sq-q1", Type: ChartTable})
	require.NoError(t, err)
	assert.Equal(t, []string{"columns"}, table.Missing)
	assert.Len(t, table.Data.Rows, 2)
}

func TestPreviewRejectsUnknownFieldsAndSources(t *testing.T) {
	resolver := newStubResolver()
	_, err := Preview(context.Background(), resolver, PreviewRequest{Source: "sales", Type: ChartBar, XAxis: "monht"})
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = Preview(context.Background(), resolver, PreviewRequest{Source: "missing", Type: ChartBar})
	assert.Error(t, err)
}

func TestPreviewEditStartsFromSavedWidget(t *testing.T) {
	resolver := newStubResolver()
	saved := Widget{
		ID:     "w-1",
		Type:   ChartBar,
		Title:  "By region",
		Config: Configuration{XAxis: "region", DataKeys: []string{"total"}, Aggregation: AggregateSum, QueryID: "q1"},
	}

	out, err := PreviewEdit(context.Background(), resolver, saved, PreviewRequest{WidgetID: "w-1"})
	require.NoError(t, err)
	assert.Empty(t, out.Missing)
	require.Len(t, out.Data.Rows, 2)
	assert.Equal(t, 10.0, out.Data.Rows[0]["total"])

	out, err = PreviewEdit(context.Background(), resolver, saved, PreviewRequest{
		WidgetID: "w-1",
		Source:   "sales",
		XAxis:    "status",
		Value:    "revenue",
	})
	require.NoError(t, err)
	require.Len(t, out.Data.Rows, 2)
	assert.Equal(t, 9000.0, out.Data.Rows[0]["revenue"])
	assert.Contains(t, out.Fields, "category")

	_, err = PreviewEdit(context.Background(), resolver, saved, PreviewRequest{WidgetID: "w-1", Source: "missing"})
	assert.Error(t, err)
}
