// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqliteboot_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/mdhender/sqliteboot"
)

// TestResolveDirectory tests directory resolution for both platforms.
func TestResolveDirectory(t *testing.T) {
	for _, tc := range []struct {
		name       string
		dataSource string
		platform   sqliteboot.HostPlatform
		cwd        string
		want       string
		wantOK     bool
	}{
		{"posix root", "/var/lib/app/app.db", sqliteboot.PosixLike, "/home/user", "/var/lib/app", true},
		{"posix root ignores cwd", "/var/lib/app/app.db", sqliteboot.PosixLike, "/elsewhere", "/var/lib/app", true},
		{"posix root file", "/app.db", sqliteboot.PosixLike, "/home/user", "/", true},
		{"posix relative", "data/app.db", sqliteboot.PosixLike, "/srv/app", "/srv/app/data", true},
		{"posix relative nested", "data/sqlite/app.db", sqliteboot.PosixLike, "/srv/app", "/srv/app/data/sqlite", true},
		{"posix relative dot", "./data/app.db", sqliteboot.PosixLike, "/srv/app", "/srv/app/data", true},
		{"posix relative parent", "../shared/app.db", sqliteboot.PosixLike, "/srv/app", "/srv/shared", true},
		{"posix bare file", "app.db", sqliteboot.PosixLike, "/srv/app", "", false},
		{"posix empty", "", sqliteboot.PosixLike, "/srv/app", "", false},
		{"posix drive letter is relative", "C:/data/app.db", sqliteboot.PosixLike, "/srv/app", "/srv/app/C:/data", true},
		{"posix drive letter backslashes", `C:\data\app.db`, sqliteboot.PosixLike, "/srv/app", "", false},

		{"windows drive letter", `C:\foo\bar.db`, sqliteboot.WindowsLike, `D:\work`, `C:\foo`, true},
		{"windows drive letter lower case", `c:\foo\bar.db`, sqliteboot.WindowsLike, `D:\work`, `c:\foo`, true},
		{"windows drive letter forward slashes", `C:/foo/sub/bar.db`, sqliteboot.WindowsLike, `D:\work`, `C:\foo\sub`, true},
		{"windows drive root file", `C:\bar.db`, sqliteboot.WindowsLike, `D:\work`, `C:\`, true},
		{"windows posix root", "/data/app.db", sqliteboot.WindowsLike, `C:\Users\me`, `C:\data`, true},
		{"windows posix root other drive", "/data/sqlite/app.db", sqliteboot.WindowsLike, `E:\srv`, `E:\data\sqlite`, true},
		{"windows posix root unc", "/data/app.db", sqliteboot.WindowsLike, `\\server\share\app`, `\\server\share\data`, true},
		{"windows relative", `data\app.db`, sqliteboot.WindowsLike, `C:\srv\app`, `C:\srv\app\data`, true},
		{"windows relative forward slashes", "data/sqlite/app.db", sqliteboot.WindowsLike, `C:\srv\app`, `C:\srv\app\data\sqlite`, true},
		{"windows relative trailing separator cwd", `data\app.db`, sqliteboot.WindowsLike, `C:\srv\app\`, `C:\srv\app\data`, true},
		{"windows bare file", "app.db", sqliteboot.WindowsLike, `C:\srv\app`, "", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := sqliteboot.ResolveDirectory(tc.dataSource, tc.platform, tc.cwd)
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("ResolveDirectory(%q, %s, %q) = (%q, %v), want (%q, %v)",
					tc.dataSource, tc.platform, tc.cwd, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

// TestResolveDirectory_Concurrent tests that resolution has no shared state.
func TestResolveDirectory_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _ := sqliteboot.ResolveDirectory("/data/app.db", sqliteboot.WindowsLike, `C:\srv`)
			if got != `C:\data` {
				t.Errorf("got %q", got)
			}
		}()
	}
	wg.Wait()
}

// TestParsePlatform tests platform names accepted from configuration.
func TestParsePlatform(t *testing.T) {
	for in, want := range map[string]sqliteboot.HostPlatform{
		"posix":   sqliteboot.PosixLike,
		"Linux":   sqliteboot.PosixLike,
		"windows": sqliteboot.WindowsLike,
		"":        sqliteboot.DetectPlatform(),
		"auto":    sqliteboot.DetectPlatform(),
	} {
		got, err := sqliteboot.ParsePlatform(in)
		if err != nil {
			t.Errorf("ParsePlatform(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParsePlatform(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := sqliteboot.ParsePlatform("plan9"); err == nil {
		t.Error("ParsePlatform should reject unknown platforms")
	}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("exercises PosixLike paths on the real filesystem")
	}
}

// TestEnsureDirectory_PosixRoot tests that an absolute source ignores cwd.
func TestEnsureDirectory_PosixRoot(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	source := filepath.Join(root, "a", "b", "app.db")

	dir, err := sqliteboot.EnsureDirectory(source, sqliteboot.PosixLike, "/nonexistent/cwd")
	if err != nil {
		t.Fatalf("EnsureDirectory failed: %v", err)
	}
	if want := filepath.Join(root, "a", "b"); dir != want {
		t.Errorf("expected %q, got %q", want, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("directory should exist: %v", err)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Error("database file must not be created")
	}
}

// TestEnsureDirectory_Relative tests that a relative source is created under cwd.
func TestEnsureDirectory_Relative(t *testing.T) {
	skipOnWindows(t)
	cwd := t.TempDir()

	dir, err := sqliteboot.EnsureDirectory("data/sqlite/app.db", sqliteboot.PosixLike, cwd)
	if err != nil {
		t.Fatalf("EnsureDirectory failed: %v", err)
	}
	if want := filepath.Join(cwd, "data", "sqlite"); dir != want {
		t.Errorf("expected %q, got %q", want, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("directory should exist: %v", err)
	}
}

// TestEnsureDirectory_Idempotent tests that a second call changes nothing.
func TestEnsureDirectory_Idempotent(t *testing.T) {
	skipOnWindows(t)
	cwd := t.TempDir()

	dir, err := sqliteboot.EnsureDirectory("data/app.db", sqliteboot.PosixLike, cwd)
	if err != nil {
		t.Fatalf("first EnsureDirectory failed: %v", err)
	}
	marker := filepath.Join(dir, "app.db")
	if err := os.WriteFile(marker, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}
	before, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}

	again, err := sqliteboot.EnsureDirectory("data/app.db", sqliteboot.PosixLike, cwd)
	if err != nil {
		t.Fatalf("second EnsureDirectory failed: %v", err)
	}
	if again != dir {
		t.Errorf("expected %q on second call, got %q", dir, again)
	}

	after, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("directory should not be modified by the second call")
	}
	data, err := os.ReadFile(marker)
	if err != nil || string(data) != "existing" {
		t.Errorf("existing file should be untouched, got %q, %v", data, err)
	}
}

// TestEnsureDirectory_BareFile tests that a bare file name touches nothing.
func TestEnsureDirectory_BareFile(t *testing.T) {
	cwd := t.TempDir()

	dir, err := sqliteboot.EnsureDirectory("app.db", sqliteboot.DetectPlatform(), cwd)
	if err != nil {
		t.Fatalf("EnsureDirectory failed: %v", err)
	}
	if dir != "" {
		t.Errorf("expected no directory, got %q", dir)
	}

	entries, err := os.ReadDir(cwd)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected cwd to stay empty, found %d entries", len(entries))
	}
}

// TestEnsureDirectory_Blocked tests that a file in the way is reported, not replaced.
func TestEnsureDirectory_Blocked(t *testing.T) {
	skipOnWindows(t)
	cwd := t.TempDir()
	blocker := filepath.Join(cwd, "data")
	if err := os.WriteFile(blocker, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := sqliteboot.EnsureDirectory("data/sub/app.db", sqliteboot.PosixLike, cwd)
	var dirErr *sqliteboot.DirectoryCreationError
	if !errors.As(err, &dirErr) {
		t.Fatalf("expected DirectoryCreationError, got %v", err)
	}
	if dirErr.Path != filepath.Join(cwd, "data", "sub") {
		t.Errorf("unexpected error path %q", dirErr.Path)
	}

	data, err := os.ReadFile(blocker)
	if err != nil || string(data) != "keep" {
		t.Errorf("blocking file should be untouched, got %q, %v", data, err)
	}
}
