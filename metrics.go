// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqliteboot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for the bootstrap path.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	directoriesEnsured prometheus.Counter
	directoryFailures  prometheus.Counter
	migrationsApplied  prometheus.Counter
	migrationFailures  prometheus.Counter
	migrationDuration  prometheus.Histogram
}

// NewMetrics creates the bootstrap collectors and registers them with reg.
// Pass nil to create unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		directoriesEnsured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqliteboot_directories_ensured_total",
			Help: "Data source directories resolved and ensured before opening a database",
		}),
		directoryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqliteboot_directory_failures_total",
			Help: "Data source directories that could not be created",
		}),
		migrationsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqliteboot_migrations_applied_total",
			Help: "Migration scripts applied, including the init schema",
		}),
		migrationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqliteboot_migration_failures_total",
			Help: "Migration runs that returned an error",
		}),
		migrationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sqliteboot_migration_duration_seconds",
			Help:    "Wall time of a migration run",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.directoriesEnsured,
			m.directoryFailures,
			m.migrationsApplied,
			m.migrationFailures,
			m.migrationDuration,
		)
	}
	return m
}

func (m *Metrics) directoryEnsured() {
	if m != nil {
		m.directoriesEnsured.Inc()
	}
}

func (m *Metrics) directoryFailed() {
	if m != nil {
		m.directoryFailures.Inc()
	}
}

func (m *Metrics) migrationApplied() {
	if m != nil {
		m.migrationsApplied.Inc()
	}
}

func (m *Metrics) migrationFinished(start time.Time, err error) {
	if m == nil {
		return
	}
	m.migrationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.migrationFailures.Inc()
	}
}
