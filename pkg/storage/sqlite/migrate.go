package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies pending migrations to the database at path. It is
// idempotent. The migration connection is separate from the store's and is
// closed on return.
func RunMigrations(path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return fmt.Errorf("sqlite: open for migrations: %w", err)
	}
	driver, err := msqlite.WithInstance(db, &msqlite.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Debug("no migrations to apply", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("sqlite: run migrations: %w", err)
	}
	version, _, _ := m.Version()
	logger.Info("applied migrations", zap.String("path", path), zap.Uint("version", version))
	return nil
}
