package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-insight/components/dashboard"
	"github.com/goliatone/go-insight/pkg/config"
	"github.com/goliatone/go-insight/pkg/insight"
)

const salesCSV = `month,revenue,status
Jan,4000,Active
Jan,1000,Inactive
Feb,3000,Active
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestWriteListingShowsSeededWidgets(t *testing.T) {
	app, err := insight.New(&config.Config{
		Server: config.ServerConfig{Addr: ":0", BasePath: "/insight"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	require.NoError(t, app.Start(context.Background(), true))

	var out bytes.Buffer
	require.NoError(t, writeListing(&out, app.Service(), ""))
	assert.Contains(t, out.String(), "Revenue Trends")
	assert.Contains(t, out.String(), "Logistics Ops")

	ws := app.Service().Workspaces()[1]
	out.Reset()
	require.NoError(t, writeListing(&out, app.Service(), ws.ID))
	assert.NotContains(t, out.String(), "Executive Overview")
	assert.Contains(t, out.String(), "Delivery Routes Efficiency")
}

func TestParseFilterValues(t *testing.T) {
	values := parseFilterValues(map[string]string{
		"status": "Active",
		"period": "2024-01-01..2024-03-31",
	})
	assert.Equal(t, dashboard.TextValue("Active"), values["status"])
	assert.Equal(t, dashboard.RangeValue("2024-01-01", "2024-03-31"), values["period"])
}

func TestPreviewRendersChartFile(t *testing.T) {
	input := writeFile(t, "sales.csv", salesCSV)
	dir := t.TempDir()
	cmd := &previewCmd{
		File:        input,
		Type:        "bar",
		X:           "month",
		Value:       "revenue",
		Aggregation: "sum",
		HTML:        dir,
		Title:       "Revenue by Month",
	}
	require.NoError(t, cmd.Run(context.Background()))

	body, err := os.ReadFile(filepath.Join(dir, "revenue-by-month.html"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "echarts")
}

func TestPreviewRequiresFields(t *testing.T) {
	input := writeFile(t, "sales.csv", salesCSV)
	cmd := &previewCmd{File: input, Type: "TABLE", Aggregation: "NONE"}
	err := cmd.Run(context.Background())
	assert.ErrorIs(t, err, dashboard.ErrIncompleteConfiguration)
}

func TestReadRows(t *testing.T) {
	ds, err := readRows(writeFile(t, "sales.csv", salesCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	ds, err = readRows(writeFile(t, "items.json", `[{"a":1},{"a":2}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	_, err = readRows(writeFile(t, "notes.txt", "hello"))
	assert.Error(t, err)
}

func TestNextSyncRejectsBadReference(t *testing.T) {
	cmd := &nextSyncCmd{Interval: "1h", From: "yesterday"}
	assert.Error(t, cmd.Run())
	cmd = &nextSyncCmd{Interval: "weekly"}
	assert.ErrorIs(t, cmd.Run(), dashboard.ErrInvalidInterval)
}
