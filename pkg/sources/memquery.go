package sources

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ettle/strcase"

	"github.com/goliatone/go-insight/components/dashboard"
)

// SourceTable is the table name rows are loaded under when a saved query runs
// against a non-SQL source.
const SourceTable = "source"

// withQuery runs query over ds by loading it into an in-memory SQLite table.
// The table is reachable as "source" and as the snake-cased source name.
// An empty query returns ds unchanged.
func withQuery(ctx context.Context, query, name string, ds dashboard.Dataset) (dashboard.Dataset, error) {
	if strings.TrimSpace(query) == "" {
		return ds, nil
	}
	return QueryDataset(ctx, ds, query, tableAlias(name))
}

// QueryDataset executes SQL over the rows of ds.
func QueryDataset(ctx context.Context, ds dashboard.Dataset, query string, aliases ...string) (dashboard.Dataset, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: open memory db: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := loadTable(ctx, db, SourceTable, ds); err != nil {
		return dashboard.Dataset{}, err
	}
	for _, alias := range aliases {
		if alias == "" || alias == SourceTable {
			continue
		}
		stmt := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s", quoteIdent(alias), SourceTable)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return dashboard.Dataset{}, fmt.Errorf("sources: alias %s: %w", alias, err)
		}
	}
	return queryDB(ctx, db, query)
}

func loadTable(ctx context.Context, db *sql.DB, table string, ds dashboard.Dataset) error {
	fields := ds.Fields
	if len(fields) == 0 {
		fields = dashboard.NewDataset(nil, ds.Rows).Fields
	}
	if len(fields) == 0 {
		_, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (_empty)", quoteIdent(table)))
		return err
	}
	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quoteIdent(f)
		marks[i] = "?"
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("sources: create table: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), strings.Join(marks, ", ")))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, row := range ds.Rows {
		args := make([]any, len(fields))
		for i, f := range fields {
			args[i] = sqliteArg(row[f])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sources: load row: %w", err)
		}
	}
	return tx.Commit()
}

func sqliteArg(v any) any {
	switch t := v.(type) {
	case nil, string, float64, float32, int, int32, int64, bool:
		return t
	}
	return fmt.Sprint(v)
}

func tableAlias(name string) string {
	return strcase.ToSnake(name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
