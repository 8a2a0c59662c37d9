// Package loadgen drives a running leadops service with synthetic
// interventions and checks that every job is settled exactly once.
package loadgen

import (
	"errors"
	"time"

	"github.com/gogobubbles/leadops/internal/domain/rules"
)

var (
	// ErrUnhealthy is returned when the target service fails its health check.
	ErrUnhealthy = errors.New("loadgen: service unhealthy")
	// ErrMismatch is returned when a settlement disagrees with the local engine.
	ErrMismatch = errors.New("loadgen: settlement mismatch")
	// ErrUnsettled is returned when jobs are still unsettled after the wait budget.
	ErrUnsettled = errors.New("loadgen: jobs left unsettled")
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL  string        // service base URL
	Jobs     int           // distinct interventions to generate
	Copies   int           // times each intervention is submitted
	Leads    int           // leads the jobs are spread across
	Workers  int           // concurrent HTTP submitters
	Timeout  time.Duration // per-request timeout
	Settle   time.Duration // how long to wait for settlements
	Seed     uint64        // generator seed; equal seeds give equal runs
	Rules    rules.Rules   // rules the service is expected to run with
	Output   string        // optional file for the generated events
	Interval time.Duration // poll interval while waiting for settlements
}

// Stats holds run statistics.
type Stats struct {
	Generated  int           `json:"generated"`
	Submitted  int           `json:"submitted"`
	Accepted   int           `json:"accepted"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Settled    int           `json:"settled"`
	Uncovered  int           `json:"uncovered"` // settled with a compensation error
	Mismatched int           `json:"mismatched"`
	Duration   time.Duration `json:"duration"`
}

func (c *Config) withDefaults() {
	if c.Copies < 1 {
		c.Copies = 1
	}
	if c.Leads < 1 {
		c.Leads = 1
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 30 * time.Second
	}
	if c.Interval <= 0 {
		c.Interval = 100 * time.Millisecond
	}
}
