package sources

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-insight/components/dashboard"
)

// DefaultQueryTimeout bounds a single source query.
const DefaultQueryTimeout = 30 * time.Second

// SQLConnector runs queries through database/sql. Driver is "mysql" or
// "sqlite"; the DSN comes from the matching connection settings.
type SQLConnector struct {
	Driver  string
	Timeout time.Duration
}

func (c SQLConnector) Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error) {
	dsn, fallback, err := sqlTarget(conn)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	if query == "" {
		query = fallback
	}
	if query == "" {
		return dashboard.Dataset{}, fmt.Errorf("%w: %s source", ErrNoQuery, conn.Type)
	}

	db, err := sql.Open(c.Driver, dsn)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: open %s: %w", c.Driver, err)
	}
	defer db.Close()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: ping %s: %w", c.Driver, err)
	}
	return queryDB(ctx, db, query)
}

func sqlTarget(conn dashboard.ConnectionConfig) (dsn, query string, err error) {
	switch conn.Type {
	case dashboard.SourceMySQL:
		return conn.MySQL.DSN, conn.MySQL.Query, nil
	case dashboard.SourceSQLite:
		return conn.SQLite.Path, conn.SQLite.Query, nil
	}
	return "", "", fmt.Errorf("%w: %s is not a database/sql source", ErrUnsupported, conn.Type)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryDB scans every row into a map keyed by column name.
func queryDB(ctx context.Context, db queryer, query string, args ...any) (dashboard.Dataset, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return dashboard.Dataset{}, err
	}
	var out []dashboard.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range columns {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return dashboard.Dataset{}, err
		}
		row := make(dashboard.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return dashboard.Dataset{}, err
	}
	return dashboard.NewDataset(columns, out), nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.DateOnly)
	}
	return v
}
