// Package sources fetches rows for data sources and saved queries.
package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-insight/components/dashboard"
)

var (
	// ErrUnsupported is returned when no connector handles a source type.
	ErrUnsupported = errors.New("sources: unsupported data source type")
	// ErrNoQuery is returned when a SQL connector has neither a saved query nor a default query.
	ErrNoQuery = errors.New("sources: no query to run")
)

// Connector fetches the rows of one kind of data source. query is the SQL of
// a saved query, or empty to read the source as configured.
type Connector interface {
	Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error)
}

// ConnectorFunc adapts a function into a Connector.
type ConnectorFunc func(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error)

func (f ConnectorFunc) Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error) {
	return f(ctx, conn, query)
}

// Registry maps data source types to connectors.
type Registry struct {
	mu         sync.RWMutex
	connectors map[dashboard.DataSourceType]Connector
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{connectors: map[dashboard.DataSourceType]Connector{}}
}

// DefaultRegistry registers a connector for every built-in source type.
func DefaultRegistry(opts ...RESTOption) *Registry {
	r := NewRegistry()
	r.Register(dashboard.SourcePostgres, PostgresConnector{})
	r.Register(dashboard.SourceMySQL, SQLConnector{Driver: "mysql"})
	r.Register(dashboard.SourceSQLite, SQLConnector{Driver: "sqlite"})
	r.Register(dashboard.SourceCSV, CSVConnector{})
	r.Register(dashboard.SourceJSON, JSONConnector{})
	r.Register(dashboard.SourceREST, NewRESTConnector(opts...))
	r.Register(dashboard.SourceMongo, MongoConnector{})
	r.Register(dashboard.SourceSample, SampleConnector{})
	return r
}

// Register binds a connector, replacing any previous one for the type.
func (r *Registry) Register(kind dashboard.DataSourceType, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[kind] = c
}

// Connector returns the connector for kind.
func (r *Registry) Connector(kind dashboard.DataSourceType) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[kind]
	return c, ok
}

// Fetch validates the connection and runs the matching connector.
func (r *Registry) Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error) {
	if err := conn.Validate(); err != nil {
		return dashboard.Dataset{}, err
	}
	c, ok := r.Connector(conn.Type)
	if !ok {
		return dashboard.Dataset{}, fmt.Errorf("%w: %s", ErrUnsupported, conn.Type)
	}
	return c.Fetch(ctx, conn, query)
}
