// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqliteboot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Connection describes the store a bootstrap prepares.
type Connection interface {
	// FileBacked is false for in-memory or networked stores.
	FileBacked() bool
	// DataSource is the path of the database file, possibly relative.
	DataSource() string
}

// Migrator applies pending schema migrations.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// MigratorFunc adapts an ordinary function to a Migrator.
type MigratorFunc func(ctx context.Context) error

func (f MigratorFunc) Migrate(ctx context.Context) error {
	return f(ctx)
}

// Bootstrap prepares the filesystem for a connection and then runs its
// migrations. The zero value uses the host platform and working directory.
type Bootstrap struct {
	// Platform used to parse the data source. Zero means PosixLike, so
	// callers that want host detection should use DetectPlatform.
	Platform HostPlatform

	// Getwd returns the directory relative data sources are resolved
	// against. Defaults to os.Getwd.
	Getwd func() (string, error)

	// Logger for operational logging. Uses slog.Default() if nil.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics
}

func (b Bootstrap) defaults() Bootstrap {
	if b.Getwd == nil {
		b.Getwd = os.Getwd
	}
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
	return b
}

// Prepare ensures the directory for a file-backed connection exists and then
// calls m.Migrate exactly once. Directory preparation ignores ctx; it either
// finishes or fails before the migration starts. An error from m is returned
// as is.
func (b Bootstrap) Prepare(ctx context.Context, conn Connection, m Migrator) error {
	b = b.defaults()

	if conn.FileBacked() {
		if err := b.prepareDirectory(conn.DataSource()); err != nil {
			return err
		}
	} else {
		b.Logger.Debug("skipping directory preparation", "reason", "not file backed")
	}

	start := time.Now()
	err := m.Migrate(ctx)
	b.Metrics.migrationFinished(start, err)
	return err
}

func (b Bootstrap) prepareDirectory(dataSource string) error {
	cwd, err := b.Getwd()
	if err != nil {
		b.Metrics.directoryFailed()
		return &DirectoryCreationError{Path: dataSource, Err: fmt.Errorf("getwd: %w", err)}
	}

	dir, err := EnsureDirectory(dataSource, b.Platform, cwd)
	if err != nil {
		b.Metrics.directoryFailed()
		return err
	}
	if dir == "" {
		b.Logger.Debug("data source has no directory component", "dataSource", dataSource)
		return nil
	}

	b.Metrics.directoryEnsured()
	b.Logger.Debug("resolved data source directory", "dataSource", dataSource, "dir", dir, "platform", b.Platform)
	return nil
}

// Prepare runs a Bootstrap for the host platform and working directory.
func Prepare(ctx context.Context, conn Connection, m Migrator) error {
	return Bootstrap{Platform: DetectPlatform()}.Prepare(ctx, conn, m)
}
