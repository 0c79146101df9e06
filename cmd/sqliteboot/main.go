// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package main implements the sqliteboot CLI, which prepares the directory
// for a SQLite database and applies its migrations.
//
// Usage:
//
//	sqliteboot resolve [data-source]   Print the directory a data source needs
//	sqliteboot migrate                 Create or open the database and migrate it
//	sqliteboot status                  Show applied and pending migrations
//	sqliteboot version                 Show version and exit
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/mdhender/sqliteboot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitInput
	}

	var err error
	switch args[0] {
	case "resolve":
		err = runResolve(args[1:], stdout, stderr)
	case "migrate":
		err = runMigrate(ctx, args[1:], stdout, stderr)
	case "status":
		err = runStatus(ctx, args[1:], stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "sqliteboot %s\n", versionString())
	case "help", "-h", "--help":
		usage(stdout)
	default:
		err = inputError(fmt.Sprintf("unknown command %q", args[0]), "Run: sqliteboot help", nil)
	}

	if errors.Is(err, flag.ErrHelp) {
		return exitSuccess
	}
	if err != nil {
		printError(stderr, err)
		return exitCode(err)
	}
	return exitSuccess
}

func usage(w io.Writer) {
	fmt.Fprint(w, `sqliteboot - prepare and migrate SQLite databases

Usage:
  sqliteboot <command> [options]

Commands:
  resolve [data-source]  Print the directory a data source needs
  migrate                Create or open the database and apply migrations
  status                 Show applied and pending migrations
  version                Show version and exit

Common Options:
  --config     Path to sqliteboot.yaml
  --no-color   Disable colored output

Environment Variables:
  SQLITEBOOT_DB_PATH, SQLITEBOOT_MIGRATIONS, SQLITEBOOT_PLATFORM,
  SQLITEBOOT_LOG_LEVEL, SQLITEBOOT_APP_VERSION, SQLITEBOOT_MIGRATION_TIMEOUT

For command help: sqliteboot <command> --help
`)
}

func versionString() string {
	v := sqliteboot.Version()
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// commonFlags are registered on every command.
type commonFlags struct {
	configPath string
	noColor    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to sqliteboot.yaml")
	fs.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
}

// load applies --no-color and reads the configuration.
func (c *commonFlags) load() (*Config, error) {
	if c.noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return nil, configError("Cannot load configuration", "Check --config and SQLITEBOOT_* variables", err)
	}
	return cfg, nil
}

func newFlagSet(name, synopsis string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: sqliteboot %s\n\nOptions:\n", synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args into fs. flag.ErrHelp is passed through for run.
func parseFlags(fs *flag.FlagSet, args []string, name string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return inputError("Invalid arguments", "Run: sqliteboot "+name+" --help", err)
}

// runResolve prints the directory that must exist for a data source,
// creating it with --create.
func runResolve(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("resolve", "resolve [options] [data-source]", stderr)
	var common commonFlags
	common.register(fs)
	platformName := fs.String("platform", "", "Path conventions: posix, windows, or auto (default from config)")
	cwd := fs.String("cwd", "", "Directory relative data sources are resolved against (default: working directory)")
	create := fs.Bool("create", false, "Create the directory")
	if err := parseFlags(fs, args, "resolve"); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *platformName != "" {
		cfg.Platform = *platformName
	}
	platform, err := cfg.HostPlatform()
	if err != nil {
		return inputError("Invalid platform", "Use --platform posix, windows, or auto", err)
	}

	dataSource := cfg.Database.Path
	if fs.NArg() > 0 {
		dataSource = fs.Arg(0)
	}
	store := sqliteboot.Config{Path: dataSource}
	if !store.FileBacked() {
		fmt.Fprintf(stdout, "%s is not file backed; no directory needed\n", dataSource)
		return nil
	}

	if *cwd == "" {
		if *cwd, err = os.Getwd(); err != nil {
			return configError("Cannot determine working directory", "Pass --cwd", err)
		}
	}

	if !*create {
		dir, ok := sqliteboot.ResolveDirectory(store.DataSource(), platform, *cwd)
		if !ok {
			fmt.Fprintln(stdout, "no directory needed")
			return nil
		}
		fmt.Fprintln(stdout, dir)
		return nil
	}

	dir, err := sqliteboot.EnsureDirectory(store.DataSource(), platform, *cwd)
	if err != nil {
		return databaseError("Cannot create database directory", err)
	}
	if dir == "" {
		fmt.Fprintln(stdout, "no directory needed")
		return nil
	}
	green.Fprint(stdout, "ready ")
	fmt.Fprintln(stdout, dir)
	return nil
}

// storeFlags override database settings from the command line.
type storeFlags struct {
	path       string
	migrations string
}

func (s *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.path, "db", "", "Database path (overrides database.path)")
	fs.StringVar(&s.migrations, "migrations", "", "Directory of migration scripts (overrides database.migrations)")
}

func (s *storeFlags) apply(cfg *Config) {
	if s.path != "" {
		cfg.Database.Path = s.path
	}
	if s.migrations != "" {
		cfg.Database.Migrations = s.migrations
	}
}

// runMigrate creates the database if needed and applies pending migrations.
func runMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("migrate", "migrate [options]", stderr)
	var common commonFlags
	var sf storeFlags
	common.register(fs)
	sf.register(fs)
	if err := parseFlags(fs, args, "migrate"); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	sf.apply(cfg)
	logger, err := cfg.Logger()
	if err != nil {
		return configError("Invalid log level", "Use debug, info, warn, or error", err)
	}
	store := cfg.Store(logger)

	if store.FileBacked() {
		if _, statErr := os.Stat(store.DataSource()); statErr != nil {
			if err := sqliteboot.Create(ctx, store); err != nil {
				return databaseError("Cannot create database", err)
			}
			green.Fprint(stdout, "created ")
			fmt.Fprintln(stdout, store.DataSource())
			return printStatus(ctx, stdout, store)
		}
	}

	db, err := sqliteboot.Open(ctx, store)
	if err != nil {
		return databaseError("Cannot migrate database", err)
	}
	if err := db.Close(); err != nil {
		return databaseError("Cannot close database", err)
	}
	green.Fprint(stdout, "migrated ")
	fmt.Fprintln(stdout, store.DataSource())

	if !store.FileBacked() {
		return nil
	}
	return printStatus(ctx, stdout, store)
}

// runStatus shows the migration state of a database file.
func runStatus(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("status", "status [options]", stderr)
	var common commonFlags
	var sf storeFlags
	common.register(fs)
	sf.register(fs)
	if err := parseFlags(fs, args, "status"); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	sf.apply(cfg)
	logger, err := cfg.Logger()
	if err != nil {
		return configError("Invalid log level", "Use debug, info, warn, or error", err)
	}
	store := cfg.Store(logger)
	if !store.FileBacked() {
		return inputError("Status needs a database file", "Set database.path or pass --db", nil)
	}
	return printStatus(ctx, stdout, store)
}

func printStatus(ctx context.Context, w io.Writer, store sqliteboot.Config) error {
	status, err := sqliteboot.Status(ctx, store)
	if err != nil {
		return databaseError("Cannot read migration status", err)
	}

	bold.Fprintln(w, "Database: "+store.DataSource())
	if !status.IsInitialized {
		yellow.Fprintln(w, "  not initialized")
		return nil
	}
	fmt.Fprintf(w, "  schema version: %d\n", status.SchemaVersion)
	fmt.Fprintf(w, "  applied:        %d\n", len(status.Applied))
	for _, m := range status.Applied {
		dim.Fprintf(w, "    %s  %s\n", m.AppliedAt.Format("2006-01-02 15:04:05"), m.Path)
	}
	fmt.Fprintf(w, "  pending:        %d\n", len(status.Pending))
	for _, p := range status.Pending {
		yellow.Fprintf(w, "    %s\n", p)
	}
	return nil
}
