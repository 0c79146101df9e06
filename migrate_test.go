// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqliteboot_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/mdhender/sqliteboot"
)

// TestExtractUpMigration tests Up/Down section handling.
func TestExtractUpMigration(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		want    string
	}{
		{"no markers", "CREATE TABLE a (id INTEGER);", "CREATE TABLE a (id INTEGER);"},
		{"up only", "-- +migrate Up\nCREATE TABLE a (id INTEGER);", "CREATE TABLE a (id INTEGER);"},
		{"up and down", "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;", "CREATE TABLE a (id INTEGER);"},
		{"down first", "-- +migrate Down\nDROP TABLE a;\n-- +migrate Up\nCREATE TABLE a (id INTEGER);", "CREATE TABLE a (id INTEGER);"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := strings.TrimSpace(sqliteboot.ExtractUpMigration(tc.content))
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

// TestRunner_Idempotent tests that a second run applies nothing new.
func TestRunner_Idempotent(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteboot.Config{Path: ":memory:", Migrations: validMigrations()}

	db, err := sqliteboot.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := sqliteboot.NewRunner(db, cfg).Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("query migrations count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 migrations after re-run, got %d", count)
	}
}

// TestRunner_FailedScriptNotRecorded tests that a failing script leaves no record.
func TestRunner_FailedScriptNotRecorded(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteboot.Config{
		Path: ":memory:",
		Migrations: fstest.MapFS{
			"20240101000000_ok.sql":     &fstest.MapFile{Data: []byte("CREATE TABLE ok (id INTEGER);")},
			"20240102000000_broken.sql": &fstest.MapFile{Data: []byte("CREATE TABLE broken (id INTEGER")},
		},
		SkipMigrations: true,
	}

	db, err := sqliteboot.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	err = sqliteboot.NewRunner(db, cfg).Migrate(ctx)
	if err == nil {
		t.Fatal("expected migration error")
	}
	if !strings.HasPrefix(err.Error(), "migrate: ") {
		t.Errorf("expected migrate: prefix, got %q", err)
	}
	if !strings.Contains(err.Error(), "20240102000000_broken.sql") {
		t.Errorf("expected failing script in error, got %q", err)
	}

	var paths []string
	rows, err := db.QueryContext(ctx, `SELECT path FROM schema_migrations ORDER BY id`)
	if err != nil {
		t.Fatalf("query migrations: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	if got := strings.Join(paths, ","); got != "schema.sql,20240101000000_ok.sql" {
		t.Errorf("unexpected applied migrations %q", got)
	}
}
