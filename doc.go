// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package sqliteboot prepares an embedded, file-backed SQLite store for first
// use and classifies the engine's unique constraint failures.
//
// The package covers three concerns:
//   - Path resolution: a configured data source, relative or absolute, POSIX
//     or drive-letter style, is resolved into the directory that must exist
//     before SQLite can create its file (ResolveDirectory, EnsureDirectory).
//   - Bootstrap: directory preparation followed by a single migration run
//     (Bootstrap.Prepare, Runner).
//   - Constraint classification: IsUniqueConstraintViolation and ErrDuplicate
//     separate duplicate inserts from every other write failure.
//
// # Basic Usage
//
//	//go:embed migrations/*.sql
//	var migrationsFS embed.FS
//
//	func main() {
//	    migrations, _ := fs.Sub(migrationsFS, "migrations")
//	    err := sqliteboot.Create(ctx, sqliteboot.Config{
//	        Path:       "data/app.db",
//	        Migrations: migrations,
//	    })
//	}
//
// Create makes "data" under the working directory before the database file
// is opened. Open and Status expect the file to exist.
//
// # Path Rules
//
// The HostPlatform argument decides how a data source is read:
//   - "/data/app.db" is used as-is on PosixLike hosts and is placed on the
//     working directory's drive on WindowsLike hosts (C:\data).
//   - "C:\data\app.db" is used as-is on WindowsLike hosts.
//   - Anything else is relative and is joined onto the working directory.
//   - A bare file name such as "app.db" needs no directory.
//
// # Driver Support
//
// This package supports two SQLite drivers via build tags:
//   - modernc.org/sqlite (default, pure Go, no CGO)
//   - github.com/mattn/go-sqlite3 (CGO, use -tags mattn)
//
// The driver is imported by the package; applications do not need a blank import.
//
// # Migration Files
//
// Migration files must be named YYYYMMDDHHMMSS_comment.sql and are applied
// in lexicographic order. A script may hold "-- +migrate Up" and
// "-- +migrate Down" sections; only the Up section is executed. The package
// owns the init script that creates infrastructure tables
// (schema_migrations, config); users provide only their application-specific
// migrations.
package sqliteboot
