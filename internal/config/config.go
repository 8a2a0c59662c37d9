// Package config defines service configuration and its loading.
package config

import (
	"context"
	"runtime"
	"time"

	"github.com/gogobubbles/leadops/internal/domain/rules"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// QueueSize bounds the in-memory intervention queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of settlement workers.
	WorkerCount int `koanf:"worker_count"`
	// LedgerSize bounds the settlement ledger; 0 means unbounded.
	LedgerSize int `koanf:"ledger_size"`

	// LookbackDays limits how much history is read per evaluation.
	LookbackDays int `koanf:"lookback_days"`
	// EvaluationConcurrency bounds parallel lead evaluations in roster requests.
	EvaluationConcurrency int `koanf:"evaluation_concurrency"`

	StoreDriver string `koanf:"store_driver"`
	DatabaseURL string `koanf:"database_url"`

	// NATSURL enables event publishing when set.
	NATSURL   string `koanf:"nats_url"`
	NATSToken string `koanf:"nats_token"`

	// Rules is the full business rule table. Only settable from the YAML file.
	Rules rules.Rules `koanf:"rules"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		ShutdownTimeout:       10 * time.Second,
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		LedgerSize:            500_000,
		LookbackDays:          90,
		EvaluationConcurrency: runtime.NumCPU(),
		StoreDriver:           StoreMemory,
		Rules:                 rules.Default(),
	}
}
