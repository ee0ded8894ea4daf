// Package sqlite persists dashboard state in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-insight/components/dashboard"
)

// Store implements dashboard.Store. Dashboards, data sources and saved
// queries are kept as JSON documents; list order is insertion order.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ dashboard.Store = (*Store)(nil)

// Open migrates the database at path and returns a store over it.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := RunMigrations(path, logger); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *Store) ListWorkspaces(ctx context.Context) ([]dashboard.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, owner_id FROM workspaces ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dashboard.Workspace
	for rows.Next() {
		var ws dashboard.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.OwnerID); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

func (s *Store) CreateWorkspace(ctx context.Context, ws dashboard.Workspace) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, description, owner_id) VALUES (?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.Description, ws.OwnerID)
	if err != nil {
		return fmt.Errorf("sqlite: create workspace %s: %w", ws.ID, err)
	}
	return nil
}

// DeleteWorkspace removes the workspace and everything it owns in one
// transaction.
func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range []string{
		`DELETE FROM dashboards WHERE workspace_id = ?`,
		`DELETE FROM data_sources WHERE workspace_id = ?`,
		`DELETE FROM saved_queries WHERE workspace_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("sqlite: cascade workspace %s: %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res, "workspace", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListDashboards(ctx context.Context) ([]dashboard.Dashboard, error) {
	return listDocs[dashboard.Dashboard](ctx, s.db, "dashboards")
}

func (s *Store) CreateDashboard(ctx context.Context, dash dashboard.Dashboard) error {
	return s.insertDoc(ctx, "dashboards", dash.ID, dash.WorkspaceID, dash)
}

func (s *Store) SaveDashboard(ctx context.Context, dash dashboard.Dashboard) error {
	return s.updateDoc(ctx, "dashboards", "dashboard", dash.ID, dash)
}

func (s *Store) DeleteDashboard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dashboards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "dashboard", id)
}

func (s *Store) ListDataSources(ctx context.Context) ([]dashboard.DataSource, error) {
	return listDocs[dashboard.DataSource](ctx, s.db, "data_sources")
}

func (s *Store) CreateDataSource(ctx context.Context, ds dashboard.DataSource) error {
	return s.insertDoc(ctx, "data_sources", ds.ID, ds.WorkspaceID, ds)
}

func (s *Store) SaveDataSource(ctx context.Context, ds dashboard.DataSource) error {
	return s.updateDoc(ctx, "data_sources", "data source", ds.ID, ds)
}

func (s *Store) ListSavedQueries(ctx context.Context) ([]dashboard.SavedQuery, error) {
	return listDocs[dashboard.SavedQuery](ctx, s.db, "saved_queries")
}

func (s *Store) CreateSavedQuery(ctx context.Context, q dashboard.SavedQuery) error {
	return s.insertDoc(ctx, "saved_queries", q.ID, q.WorkspaceID, q)
}

func (s *Store) AppendAuditLog(ctx context.Context, entry dashboard.AuditLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, ts, user_name, action, details) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC().Format(time.RFC3339Nano), entry.User, entry.Action, entry.Details)
	if err != nil {
		return fmt.Errorf("sqlite: append audit log: %w", err)
	}
	return nil
}

// RecentAuditLogs returns the newest entries first. limit <= 0 returns all.
func (s *Store) RecentAuditLogs(ctx context.Context, limit int) ([]dashboard.AuditLog, error) {
	query := `SELECT id, ts, user_name, action, details FROM audit_logs ORDER BY ts DESC, seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dashboard.AuditLog
	for rows.Next() {
		var (
			entry dashboard.AuditLog
			ts    string
		)
		if err := rows.Scan(&entry.ID, &ts, &entry.User, &entry.Action, &entry.Details); err != nil {
			return nil, err
		}
		if entry.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("sqlite: audit log %s timestamp: %w", entry.ID, err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) insertDoc(ctx context.Context, table, id, workspaceID string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, workspace_id, body) VALUES (?, ?, ?)`, id, workspaceID, string(body))
	if err != nil {
		return fmt.Errorf("sqlite: insert %s %s: %w", table, id, err)
	}
	return nil
}

func (s *Store) updateDoc(ctx context.Context, table, kind, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET body = ? WHERE id = ?`, string(body), id)
	if err != nil {
		return fmt.Errorf("sqlite: update %s %s: %w", kind, id, err)
	}
	return requireRow(res, kind, id)
}

func listDocs[T any](ctx context.Context, db *sql.DB, table string) ([]T, error) {
	rows, err := db.QueryContext(ctx, `SELECT body FROM `+table+` ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var doc T
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("sqlite: decode %s row: %w", table, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", dashboard.ErrNotFound, kind, id)
	}
	return nil
}
