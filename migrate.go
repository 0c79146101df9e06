// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqliteboot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// migrationScript represents a single migration file.
type migrationScript struct {
	ID      int
	Comment string
	Path    string
}

// reMigrationFile matches YYYYMMDDHHMMSS_comment.sql
var reMigrationFile = regexp.MustCompile(`^(\d{14})_(.+)\.sql$`)

const (
	markerUp   = "-- +migrate Up"
	markerDown = "-- +migrate Down"
)

// Runner applies the init schema and application migrations to an open
// database. It implements Migrator.
type Runner struct {
	db         *sql.DB
	migrations fs.FS
	appVersion string
	logger     *slog.Logger
	metrics    *Metrics
}

// NewRunner returns a Runner for db using the Migrations, AppVersion,
// Logger, and Metrics from cfg.
func NewRunner(db *sql.DB, cfg Config) *Runner {
	cfg = cfg.defaults()
	return &Runner{
		db:         db,
		migrations: cfg.Migrations,
		appVersion: cfg.AppVersion,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Migrate applies pending migrations to the database.
func (r *Runner) Migrate(ctx context.Context) error {
	if err := r.migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *Runner) migrate(ctx context.Context) error {
	r.logger.Debug("starting migration")

	version, err := fetchSchemaVersion(ctx, r.db)
	if err != nil {
		return err
	}

	// If uninitialized, apply the package's schema first
	if version == nil {
		r.logger.Debug("initializing schema")
		if err := r.applySchemaInit(ctx); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
		r.metrics.migrationApplied()
	}

	if r.migrations == nil {
		return nil
	}

	scripts, err := listMigrationFiles(r.migrations, r.logger)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	if len(scripts) == 0 {
		r.logger.Debug("no user migrations to apply")
		return nil
	}

	applied, err := fetchAppliedMigrations(ctx, r.db)
	if err != nil {
		return fmt.Errorf("fetch applied: %w", err)
	}

	appliedPaths := make(map[string]bool, len(applied))
	for _, a := range applied {
		appliedPaths[a.Path] = true
	}

	now := time.Now().UTC()
	for _, s := range scripts {
		if appliedPaths[s.Path] {
			continue
		}

		r.logger.Debug("applying migration", "path", s.Path)
		if err := r.applyMigration(ctx, s, now); err != nil {
			return fmt.Errorf("apply %s: %w", s.Path, err)
		}
		r.metrics.migrationApplied()
	}

	return nil
}

// applySchemaInit applies the package's internal schema initialization script.
func (r *Runner) applySchemaInit(ctx context.Context) error {
	sqlBytes, err := fs.ReadFile(schemaFS, "schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("exec schema.sql: %w", err)
	}

	// Record the init as migration ID 0
	ts := time.Now().UTC().Unix()
	if err := recordMigration(ctx, tx, migrationScript{ID: 0, Comment: "init", Path: "schema.sql"}, ts); err != nil {
		return err
	}

	if r.appVersion != "" {
		_, err = ExecWrite(ctx, tx, "set app.version", `UPDATE config SET value = ?, updated_at = ? WHERE key = 'app.version'`, r.appVersion, ts)
		if err != nil {
			return err
		}
		_, err = ExecWrite(ctx, tx, "set db.created_at", `UPDATE config SET value = ?, updated_at = ? WHERE key = 'db.created_at'`, strconv.FormatInt(ts, 10), ts)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// applyMigration applies a single user migration script.
func (r *Runner) applyMigration(ctx context.Context, s migrationScript, now time.Time) error {
	sqlBytes, err := fs.ReadFile(r.migrations, s.Path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if up := ExtractUpMigration(string(sqlBytes)); strings.TrimSpace(up) != "" {
		if _, err := tx.ExecContext(ctx, up); err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	ts := now.Unix()
	if err := recordMigration(ctx, tx, s, ts); err != nil {
		return err
	}

	res, err := ExecWrite(ctx, tx, "update schema.version", `
		UPDATE config SET value = ?, updated_at = ? WHERE key = 'schema.version'
	`, strconv.Itoa(s.ID), ts)
	if err != nil {
		return err
	}

	// Verify the update succeeded
	rows, err := res.RowsAffected()
	if err == nil && rows != 1 {
		return fmt.Errorf("schema.version update affected %d rows, expected 1", rows)
	}

	return tx.Commit()
}

// recordMigration inserts s into schema_migrations. A duplicate row means
// another process recorded the same migration first.
func recordMigration(ctx context.Context, tx *sql.Tx, s migrationScript, ts int64) error {
	_, err := ExecWrite(ctx, tx, "record "+s.Path, `
		INSERT INTO schema_migrations (id, comment, path, applied_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.Comment, s.Path, ts, ts, ts)
	if errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("%s: migration already recorded: %w", s.Path, err)
	}
	return err
}

// ExtractUpMigration returns the SQL in the "-- +migrate Up" section of a
// script. Scripts without the marker are returned whole.
func ExtractUpMigration(content string) string {
	upIdx := strings.Index(content, markerUp)
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, markerDown)
	if downIdx == -1 || downIdx < upIdx {
		return content[upIdx+len(markerUp):]
	}
	return content[upIdx+len(markerUp) : downIdx]
}

// listMigrationFiles reads migration scripts from the filesystem.
// Returns scripts sorted in lexicographic order by path.
func listMigrationFiles(migrationsFS fs.FS, logger *slog.Logger) ([]migrationScript, error) {
	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return nil, err
	}

	var scripts []migrationScript
	seenIDs := make(map[int]string)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := e.Name()
		matches := reMigrationFile.FindStringSubmatch(name)
		if matches == nil {
			logger.Debug("skipping non-migration file", "name", name)
			continue
		}

		id, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration id in %q: %w", name, err)
		}

		if existing, ok := seenIDs[id]; ok {
			return nil, fmt.Errorf("duplicate migration ID %d: %q and %q", id, existing, name)
		}
		seenIDs[id] = name

		scripts = append(scripts, migrationScript{
			ID:      id,
			Comment: matches[2],
			Path:    name,
		})
	}

	// Sort by path (lexicographic order is part of the contract)
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Path < scripts[j].Path
	})

	return scripts, nil
}
