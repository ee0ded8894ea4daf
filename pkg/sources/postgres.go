package sources

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/goliatone/go-insight/components/dashboard"
)

// PostgresConnector queries Postgres through a short-lived pgx connection.
type PostgresConnector struct{}

func (PostgresConnector) Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error) {
	if conn.Postgres == nil {
		return dashboard.Dataset{}, fmt.Errorf("%w: postgres settings missing", dashboard.ErrInvalidConnection)
	}
	if query == "" {
		query = conn.Postgres.Query
	}
	if query == "" {
		return dashboard.Dataset{}, fmt.Errorf("%w: postgres source", ErrNoQuery)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	cfg, err := pgx.ParseConfig(conn.Postgres.DSN)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: parse postgres dsn: %w", err)
	}
	db, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: connect postgres: %w", err)
	}
	defer db.Close(context.Background())

	rows, err := db.Query(ctx, query)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: query: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	fields := make([]string, len(descs))
	for i, d := range descs {
		fields[i] = d.Name
	}
	var out []dashboard.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return dashboard.Dataset{}, err
		}
		row := make(dashboard.Row, len(fields))
		for i, f := range fields {
			row[f] = pgValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return dashboard.Dataset{}, err
	}
	return dashboard.NewDataset(fields, out), nil
}

// pgValue turns NUMERIC into float64 so aggregations can sum it.
func pgValue(v any) any {
	if n, ok := v.(pgtype.Numeric); ok {
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return normalizeValue(v)
}
