package sources

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-insight/components/dashboard"
)

func sampleConn(name string) dashboard.ConnectionConfig {
	return dashboard.ConnectionConfig{Type: dashboard.SourceSample, Sample: &dashboard.SampleSettings{Dataset: name}}
}

func TestSampleDatasets(t *testing.T) {
	sales := SalesData()
	require.Len(t, sales.Rows, 7)
	assert.Equal(t, "Jan", sales.Rows[0]["month"])
	assert.Equal(t, []string{"month", "revenue", "profit", "churn", "status", "category", "date"}, sales.Fields)

	scatter := ScatterData()
	require.Len(t, scatter.Rows, 50)
	assert.Equal(t, "Express", scatter.Rows[0]["route_type"])
	assert.Equal(t, "Standard", scatter.Rows[1]["route_type"])
	assert.Equal(t, scatter.Rows, ScatterData().Rows)

	_, ok := SampleDataset("weather")
	assert.False(t, ok)
}

func TestSampleConnectorRunsQuery(t *testing.T) {
	ds, err := SampleConnector{}.Fetch(context.Background(), sampleConn(SampleSales),
		"select month, revenue from sales where status = 'Inactive' order by month")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, []string{"month", "revenue"}, ds.Fields)
	assert.Equal(t, "Apr", ds.Rows[0]["month"])
	assert.Equal(t, 2780.0, ds.Rows[0]["revenue"])

	_, err = SampleConnector{}.Fetch(context.Background(), sampleConn("weather"), "")
	assert.ErrorIs(t, err, dashboard.ErrInvalidConnection)
}

func TestQueryDatasetAggregates(t *testing.T) {
	ds, err := QueryDataset(context.Background(), SalesData(),
		"select category, sum(revenue) as total from source group by category order by category")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, "Clothing", ds.Rows[0]["category"])
	assert.Equal(t, 5170.0, ds.Rows[0]["total"])

	_, err = QueryDataset(context.Background(), SalesData(), "select * from nowhere")
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("month, revenue,status\nJan,4000,Active\nFeb,3000.5,\"Inactive, late\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "revenue", "status"}, ds.Fields)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, 4000.0, ds.Rows[0]["revenue"])
	assert.Equal(t, 3000.5, ds.Rows[1]["revenue"])
	assert.Equal(t, "Inactive, late", ds.Rows[1]["status"])

	empty, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestFileConnectors(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "campaigns.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,clicks\nspring,10\nsummer,30\n"), 0o600))
	jsonPath := filepath.Join(dir, "fleet.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"data":[{"truck":"A","km":12},{"truck":"B","km":40}]}`), 0o600))

	csvConn := dashboard.ConnectionConfig{Type: dashboard.SourceCSV, File: &dashboard.FileSettings{Path: csvPath}}
	ds, err := CSVConnector{}.Fetch(context.Background(), csvConn, "select name from campaigns where clicks > 20")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "summer", ds.Rows[0]["name"])

	jsonConn := dashboard.ConnectionConfig{Type: dashboard.SourceJSON, File: &dashboard.FileSettings{Path: jsonPath}}
	ds, err = JSONConnector{}.Fetch(context.Background(), jsonConn, "")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, []string{"km", "truck"}, ds.Fields)

	missing := dashboard.ConnectionConfig{Type: dashboard.SourceCSV, File: &dashboard.FileSettings{Path: filepath.Join(dir, "nope.csv")}}
	_, err = CSVConnector{}.Fetch(context.Background(), missing, "")
	assert.Error(t, err)
}

func TestRESTConnector(t *testing.T) {
	var auth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		if r.URL.Path == "/fail" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"route":"north","eta":12},{"route":"south","eta":30}]`))
	}))
	defer server.Close()

	connector := NewRESTConnector(WithHTTPClient(server.Client()))
	conn := dashboard.ConnectionConfig{Type: dashboard.SourceREST, REST: &dashboard.RESTSettings{URL: server.URL + "/rows", APIKey: "secret"}}
	ds, err := connector.Fetch(context.Background(), conn, "")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "Bearer secret", auth.Load())

	conn.REST.URL = server.URL + "/fail"
	_, err = connector.Fetch(context.Background(), conn, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSQLConnectorSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`create table trips (route text, km real)`)
	require.NoError(t, err)
	_, err = db.Exec(`insert into trips values ('north', 12), ('south', 40)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	conn := dashboard.ConnectionConfig{Type: dashboard.SourceSQLite, SQLite: &dashboard.SQLiteSettings{Path: path, Query: "select * from trips order by km"}}
	ds, err := SQLConnector{Driver: "sqlite"}.Fetch(context.Background(), conn, "")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "north", ds.Rows[0]["route"])

	ds, err = SQLConnector{Driver: "sqlite"}.Fetch(context.Background(), conn, "select route from trips where km > 20")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)

	conn.SQLite.Query = ""
	_, err = SQLConnector{Driver: "sqlite"}.Fetch(context.Background(), conn, "")
	assert.ErrorIs(t, err, ErrNoQuery)
}

func TestRegistryFetch(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Fetch(context.Background(), sampleConn(SampleSales), "")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = reg.Fetch(context.Background(), dashboard.ConnectionConfig{Type: dashboard.SourceMongo}, "")
	assert.ErrorIs(t, err, dashboard.ErrInvalidConnection)

	reg.Register(dashboard.SourceSample, ConnectorFunc(func(context.Context, dashboard.ConnectionConfig, string) (dashboard.Dataset, error) {
		return dashboard.NewDataset(nil, []dashboard.Row{{"a": 1}}), nil
	}))
	ds, err := reg.Fetch(context.Background(), sampleConn(SampleSales), "")
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 1)

	_, ok := DefaultRegistry().Connector(dashboard.SourcePostgres)
	assert.True(t, ok)
}

type stubCatalog struct {
	sources map[string]dashboard.DataSource
	queries map[string]dashboard.SavedQuery
}

func (c stubCatalog) DataSource(id string) (dashboard.DataSource, error) {
	if ds, ok := c.sources[id]; ok {
		return ds, nil
	}
	return dashboard.DataSource{}, dashboard.ErrNotFound
}

func (c stubCatalog) SavedQuery(id string) (dashboard.SavedQuery, error) {
	if q, ok := c.queries[id]; ok {
		return q, nil
	}
	return dashboard.SavedQuery{}, dashboard.ErrNotFound
}

func TestResolverResolvesSourcesAndQueries(t *testing.T) {
	catalog := stubCatalog{
		sources: map[string]dashboard.DataSource{
			"s1": {ID: "s1", Name: "Sales", Type: dashboard.SourceSample, Connection: sampleConn(SampleSales)},
		},
		queries: map[string]dashboard.SavedQuery{
			"q1": {ID: "q1", SQL: "select month from sales where status = 'Active'", DataSourceID: "s1"},
			"q2": {ID: "q2", SQL: "select count(*) as n from sales"},
		},
	}
	r := NewResolver(catalog, nil)

	ds, err := r.Resolve(context.Background(), dashboard.DataSourceRef("s1"))
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 7)

	ds, err = r.Resolve(context.Background(), dashboard.QueryRef("q1"))
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 5)

	ds, err = r.Resolve(context.Background(), dashboard.QueryRef("q2"))
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.EqualValues(t, 7, ds.Rows[0]["n"])

	_, err = r.Resolve(context.Background(), dashboard.DataSourceRef("missing"))
	assert.ErrorIs(t, err, dashboard.ErrNotFound)
}

func TestResolverSyncCachesRows(t *testing.T) {
	var calls atomic.Int32
	fail := errors.New("offline")
	reg := NewRegistry()
	reg.Register(dashboard.SourceSample, ConnectorFunc(func(context.Context, dashboard.ConnectionConfig, string) (dashboard.Dataset, error) {
		if calls.Add(1) > 1 {
			return dashboard.Dataset{}, fail
		}
		return dashboard.NewDataset(nil, []dashboard.Row{{"v": 1.0}}), nil
	}))
	source := dashboard.DataSource{ID: "s1", Type: dashboard.SourceSample, Connection: sampleConn(SampleSales)}
	r := NewResolver(nil, reg)
	r.SetCatalog(stubCatalog{sources: map[string]dashboard.DataSource{"s1": source}})

	require.NoError(t, r.Sync(context.Background(), source))
	assert.ErrorIs(t, r.Sync(context.Background(), source), fail)

	ds, err := r.Resolve(context.Background(), dashboard.DataSourceRef("s1"))
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 1)
	assert.EqualValues(t, 2, calls.Load())

	r.Forget("s1")
	_, err = r.Resolve(context.Background(), dashboard.DataSourceRef("s1"))
	assert.ErrorIs(t, err, fail)
}

func TestResolverDropsCacheOnWorkspaceDelete(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry()
	reg.Register(dashboard.SourceSample, ConnectorFunc(func(context.Context, dashboard.ConnectionConfig, string) (dashboard.Dataset, error) {
		calls.Add(1)
		return dashboard.NewDataset(nil, []dashboard.Row{{"v": 1.0}}), nil
	}))
	kept := dashboard.DataSource{ID: "s1", WorkspaceID: "ws-1", Type: dashboard.SourceSample, Connection: sampleConn(SampleSales)}
	gone := dashboard.DataSource{ID: "s2", WorkspaceID: "ws-2", Type: dashboard.SourceSample, Connection: sampleConn(SampleSales)}
	catalog := stubCatalog{sources: map[string]dashboard.DataSource{"s1": kept, "s2": gone}}
	r := NewResolver(catalog, reg)
	ctx := context.Background()
	require.NoError(t, r.Sync(ctx, kept))
	require.NoError(t, r.Sync(ctx, gone))

	require.NoError(t, r.DashboardUpdated(ctx, dashboard.DashboardEvent{Reason: "dashboard.renamed"}))
	_, ok := r.cached("s2")
	assert.True(t, ok, "unrelated events keep the cache")

	delete(catalog.sources, "s2")
	require.NoError(t, r.DashboardUpdated(ctx, dashboard.DashboardEvent{Reason: "workspace.deleted", WorkspaceID: "ws-2"}))

	_, ok = r.cached("s2")
	assert.False(t, ok)
	_, ok = r.cached("s1")
	assert.True(t, ok)

	_, err := r.Resolve(ctx, dashboard.DataSourceRef("s2"))
	assert.ErrorIs(t, err, dashboard.ErrNotFound)
	assert.EqualValues(t, 2, calls.Load())
}

func TestResolverWithoutCatalog(t *testing.T) {
	_, err := NewResolver(nil, NewRegistry()).Resolve(context.Background(), dashboard.DataSourceRef("s1"))
	assert.Error(t, err)
}
