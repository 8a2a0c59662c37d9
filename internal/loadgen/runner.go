package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
	"github.com/gogobubbles/leadops/pkg/logger"
)

// Run generates interventions, submits every copy concurrently, then waits
// for the service to settle each job and compares the settlements with the
// local engine.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	cfg.withDefaults()
	log := logger.Named("loadgen")
	start := time.Now()
	var stats Stats

	c := newClient(strings.TrimRight(cfg.BaseURL, "/"), &cfg)
	if err := c.healthy(ctx); err != nil {
		return stats, err
	}

	events := Generate(cfg.Jobs, cfg.Leads, cfg.Seed)
	stats.Generated = len(events)
	log.Info(ctx, "generated interventions",
		logger.Int("jobs", len(events)),
		logger.Int("copies", cfg.Copies),
		logger.Int("workers", cfg.Workers))

	if cfg.Output != "" {
		if err := save(cfg.Output, events); err != nil {
			log.Warn(ctx, "failed to save events", logger.String("file", cfg.Output), logger.Error(err))
		}
	}

	submitAll(ctx, c, &cfg, events, &stats)
	log.Info(ctx, "submission finished",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed))

	err := verify(ctx, c, &cfg, events, &stats)
	stats.Duration = time.Since(start)
	log.Info(ctx, "run finished",
		logger.Int("settled", stats.Settled),
		logger.Int("uncovered", stats.Uncovered),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration))
	return stats, err
}

func submitAll(ctx context.Context, c *client, cfg *Config, events []model.JobInterventionEvent, stats *Stats) {
	var accepted, duplicates, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for range cfg.Copies {
		for _, e := range events {
			g.Go(func() error {
				switch c.submit(gctx, e) {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeDuplicate:
					duplicates.Add(1)
				default:
					failed.Add(1)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	stats.Accepted = int(accepted.Load())
	stats.Duplicates = int(duplicates.Load())
	stats.Failed = int(failed.Load())
	stats.Submitted = stats.Accepted + stats.Duplicates + stats.Failed
}

// verify polls until every job has a settlement or the wait budget runs out.
func verify(ctx context.Context, c *client, cfg *Config, events []model.JobInterventionEvent, stats *Stats) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Settle)
	defer cancel()

	pending := make(map[string]model.JobInterventionEvent, len(events))
	for _, e := range events {
		pending[e.JobID] = e
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		batch := make([]model.JobInterventionEvent, 0, len(pending))
		for _, e := range pending {
			batch = append(batch, e)
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for _, e := range batch {
			id := e.JobID
			g.Go(func() error {
				st, err := c.settlement(gctx, id)
				if err != nil {
					return nil
				}
				mu.Lock()
				defer mu.Unlock()
				delete(pending, id)
				stats.Settled++
				if st.Error != "" {
					stats.Uncovered++
				}
				if !matches(cfg, e, st) {
					stats.Mismatched++
				}
				return nil
			})
		}
		_ = g.Wait()

		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d of %d", ErrUnsettled, len(pending), len(events))
		case <-ticker.C:
		}
	}

	if stats.Mismatched > 0 {
		return fmt.Errorf("%w: %d settlements", ErrMismatch, stats.Mismatched)
	}
	return nil
}

func matches(cfg *Config, e model.JobInterventionEvent, st model.Settlement) bool {
	category, want, err := takeover.Settle(cfg.Rules, &e)
	if st.Category != category {
		return false
	}
	if err != nil {
		return st.Error != ""
	}
	return st.Error == "" && st.Compensation == want
}

func save(path string, events []model.JobInterventionEvent) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
