package database

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
)

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT NOW()
	)`

// RunMigrations applies every .sql file in fsys, ordered by file name, that is
// not yet recorded in schema_migrations. Each file runs in its own
// transaction together with its bookkeeping row.
func (db *DB) RunMigrations(ctx context.Context, fsys fs.FS) error {
	logger := slog.With("component", "migrations", "operation", "run")
	logger.Info("Starting database migrations")

	if _, err := db.ExecContext(ctx, migrationsTable); err != nil {
		logger.Error("Failed to create migrations table", "error", err)
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := migrationFiles(fsys)
	if err != nil {
		logger.Error("Failed to list migration files", "error", err)
		return fmt.Errorf("failed to list migration files: %w", err)
	}
	logger.Info("Found migration files", "count", len(files))

	applied := 0
	for _, file := range files {
		ran, err := db.runMigration(ctx, fsys, file)
		if err != nil {
			logger.Error("Failed to run migration", "migration", file, "error", err)
			return fmt.Errorf("failed to run migration %s: %w", file, err)
		}
		if ran {
			applied++
		}
	}

	logger.Info("Migrations completed", "applied", applied, "skipped", len(files)-applied)
	return nil
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && path.Ext(p) == ".sql" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(files, func(a, b string) int {
		if c := cmp.Compare(path.Base(a), path.Base(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return files, nil
}

// runMigration reports whether the file was applied now; already recorded
// versions are skipped.
func (db *DB) runMigration(ctx context.Context, fsys fs.FS, file string) (bool, error) {
	version := path.Base(file)
	logger := slog.With("component", "migrations", "operation", "run_migration", "migration", version)

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	if exists {
		logger.Debug("Migration already applied, skipping")
		return false, nil
	}

	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return false, fmt.Errorf("failed to read migration: %w", err)
	}

	logger.Info("Running migration", "size_bytes", len(content))

	tx, err := db.BeginTxContext(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return false, fmt.Errorf("failed to execute migration: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return false, fmt.Errorf("failed to record migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit migration: %w", err)
	}

	logger.Info("Migration applied")
	return true, nil
}
