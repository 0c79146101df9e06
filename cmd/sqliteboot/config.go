// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mdhender/sqliteboot"
)

// Config is the sqliteboot.yaml file. Every field can be overridden by its
// environment variable, and selected fields again by command flags.
type Config struct {
	Database DatabaseConfig `yaml:"database"`

	// Platform is posix, windows, or auto.
	Platform string `yaml:"platform" env:"SQLITEBOOT_PLATFORM"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level" env:"SQLITEBOOT_LOG_LEVEL"`
}

// DatabaseConfig maps onto sqliteboot.Config.
type DatabaseConfig struct {
	Path                    string        `yaml:"path" env:"SQLITEBOOT_DB_PATH"`
	Migrations              string        `yaml:"migrations" env:"SQLITEBOOT_MIGRATIONS"`
	AppVersion              string        `yaml:"app_version" env:"SQLITEBOOT_APP_VERSION"`
	MigrationTimeout        time.Duration `yaml:"migration_timeout" env:"SQLITEBOOT_MIGRATION_TIMEOUT"`
	RequiredSchemaVersion   int           `yaml:"required_schema_version" env:"SQLITEBOOT_REQUIRED_SCHEMA_VERSION"`
	AllowMemoryInProduction bool          `yaml:"allow_memory_in_production" env:"SQLITEBOOT_ALLOW_MEMORY_IN_PRODUCTION"`
}

// LoadConfig reads path (if not empty) and applies environment overrides
// from the process environment.
func LoadConfig(path string) (*Config, error) {
	return loadConfig(path, nil)
}

// loadConfig is LoadConfig with an explicit environment. A nil environ
// means the process environment.
func loadConfig(path string, environ map[string]string) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{Path: ":memory:"},
		Platform: "auto",
		LogLevel: "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	var err error
	if environ == nil {
		err = env.Parse(cfg)
	} else {
		err = env.ParseWithOptions(cfg, env.Options{Environment: environ})
	}
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// HostPlatform returns the configured platform.
func (c *Config) HostPlatform() (sqliteboot.HostPlatform, error) {
	return sqliteboot.ParsePlatform(c.Platform)
}

// Logger returns a text logger on stderr at the configured level.
func (c *Config) Logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// Store converts the file settings into a sqliteboot.Config.
func (c *Config) Store(logger *slog.Logger) sqliteboot.Config {
	var migrations fs.FS
	if c.Database.Migrations != "" {
		migrations = os.DirFS(c.Database.Migrations)
	}
	return sqliteboot.Config{
		Path:                    c.Database.Path,
		Migrations:              migrations,
		Logger:                  logger,
		AllowMemoryInProduction: c.Database.AllowMemoryInProduction,
		MigrationTimeout:        c.Database.MigrationTimeout,
		AppVersion:              c.Database.AppVersion,
		RequiredSchemaVersion:   c.Database.RequiredSchemaVersion,
	}
}
