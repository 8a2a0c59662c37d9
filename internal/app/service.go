// Package service wires the takeover engine to the queue, worker pool,
// record store and event publisher, and implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogobubbles/leadops/internal/adapters/mq/queue"
	"github.com/gogobubbles/leadops/internal/adapters/mq/worker"
	"github.com/gogobubbles/leadops/internal/adapters/notify"
	"github.com/gogobubbles/leadops/internal/adapters/repository"
	"github.com/gogobubbles/leadops/internal/domain/bonus"
	"github.com/gogobubbles/leadops/internal/domain/evaluation"
	"github.com/gogobubbles/leadops/internal/domain/ledger"
	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/patterns"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/internal/domain/staffing"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
	"github.com/gogobubbles/leadops/pkg/logger"
	"github.com/gogobubbles/leadops/pkg/metrics"
)

// SubmitStatus is the outcome of submitting an intervention.
type SubmitStatus string

// Submit outcomes.
const (
	StatusAccepted  SubmitStatus = "accepted"
	StatusDuplicate SubmitStatus = "duplicate"
)

// Service implements the API dependencies for the takeover engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	publisher notify.Publisher
	ledger    ledger.Ledger
	queue     *queue.InMemoryQueue
	pool      *worker.Pool

	// Configuration
	rules           rules.Rules
	workerCount     int
	queueSize       int
	ledgerSize      int
	lookbackDays    int
	evalConcurrency int
	now             func() time.Time

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rules:           rules.Default(),
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10_000,
		ledgerSize:      500_000,
		lookbackDays:    90,
		evalConcurrency: runtime.NumCPU(),
		now:             time.Now,
		publisher:       notify.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := s.rules.Validate(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	s.logger.Info(ctx, "starting takeover service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx, repository.WithLogger(s.logger.Named("store")))
		s.logger.Info(ctx, "using in-memory store")
	}
	s.ledger = ledger.NewMemoryLedger(ledger.WithMaxSize(s.ledgerSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store, s.rules,
		worker.WithLogger(s.logger),
		worker.WithClock(s.now),
		worker.WithObserver(worker.ObserverFunc(s.onSettled)),
		worker.WithOnFailure(s.onFailed),
	)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "takeover service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("ledgerSize", s.ledgerSize),
	)
	return nil
}

// Stop drains queued interventions, then closes the store and publisher.
// Interventions still queued when ctx ends are dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping takeover service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.publisher.Close()

	s.started = false
	s.logger.Info(ctx, "takeover service stopped")
	return errors.Join(errs...)
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// at returns t, or the current time when t is zero.
func (s *Service) at(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t
}

func (s *Service) since(now time.Time) time.Time {
	return now.AddDate(0, 0, -s.lookbackDays)
}

// Submit validates an intervention and queues it for settlement. A job that
// is already settled or in flight is reported as a duplicate; when the queue
// is full the claim is released and ErrBackpressure is returned.
func (s *Service) Submit(ctx context.Context, e model.JobInterventionEvent) (SubmitStatus, error) { //nolint:gocritic // hugeParam: events are values throughout
	if err := s.ready(); err != nil {
		return "", err
	}
	metrics.RecordInterventionReceived()
	if err := takeover.ValidateEvent(&e); err != nil {
		return "", err
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now().UTC()
	}

	if _, err := s.store.Settlement(ctx, e.JobID); err == nil {
		metrics.RecordInterventionDuplicate()
		return StatusDuplicate, nil
	}
	if !s.ledger.Claim(ctx, e.JobID) {
		metrics.RecordInterventionDuplicate()
		s.logger.Debug(ctx, "duplicate intervention", logger.String("job_id", e.JobID))
		return StatusDuplicate, nil
	}
	metrics.UpdateLedgerSize(s.ledger.Size())

	if !s.queue.Enqueue(ctx, e) {
		s.ledger.Release(ctx, e.JobID)
		metrics.UpdateLedgerSize(s.ledger.Size())
		return "", ErrBackpressure
	}
	return StatusAccepted, nil
}

// Classify validates an intervention and returns its category.
func (s *Service) Classify(_ context.Context, e model.JobInterventionEvent) (model.Category, error) { //nolint:gocritic // hugeParam
	if err := takeover.ValidateEvent(&e); err != nil {
		return "", err
	}
	return takeover.Classify(s.rules, takeover.SignalsOf(&e)), nil
}

// Compensate classifies and prices an intervention without storing it.
func (s *Service) Compensate(_ context.Context, e model.JobInterventionEvent) (model.CompensationResult, error) { //nolint:gocritic // hugeParam
	if err := takeover.ValidateEvent(&e); err != nil {
		return model.CompensationResult{}, err
	}
	_, res, err := takeover.Settle(s.rules, &e)
	return res, err
}

// Settlement returns the stored settlement for a job.
func (s *Service) Settlement(ctx context.Context, jobID string) (model.Settlement, error) {
	if err := s.ready(); err != nil {
		return model.Settlement{}, err
	}
	return s.store.Settlement(ctx, jobID)
}

// RecordJob stores a completed job. Jobs a lead intervened on are checked
// for takeover patterns, and new flags touching the job are published.
func (s *Service) RecordJob(ctx context.Context, job model.CompletedJobRecord) error { //nolint:gocritic // hugeParam
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("save job %s: %w", job.JobID, err)
	}
	if job.LeadID != "" {
		s.flagJob(ctx, &job)
	}
	return nil
}

// RecordCheckIn stores a lead check-in.
func (s *Service) RecordCheckIn(ctx context.Context, c model.CheckInRecord) error { //nolint:gocritic // hugeParam
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.SaveCheckIn(ctx, c)
}

// RecordLeadRating stores bubbler feedback about a lead.
func (s *Service) RecordLeadRating(ctx context.Context, r model.LeadRating) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.SaveLeadRating(ctx, r)
}

// EvaluationInput gathers the lookback window of records for one lead.
func (s *Service) EvaluationInput(ctx context.Context, leadID string, now time.Time) (evaluation.Input, error) {
	if err := s.ready(); err != nil {
		return evaluation.Input{}, err
	}
	now = s.at(now)
	since := s.since(now)
	in := evaluation.Input{LeadID: leadID, Now: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.OversightJobs, err = s.store.JobsByLead(gctx, leadID, since)
		return err
	})
	g.Go(func() error {
		var err error
		in.CheckIns, err = s.store.CheckInsByLead(gctx, leadID, since)
		return err
	})
	g.Go(func() error {
		var err error
		in.LeadRatings, err = s.store.LeadRatings(gctx, leadID, since)
		return err
	})
	g.Go(func() error {
		var err error
		in.PersonalJobs, err = s.store.JobsByWorker(gctx, leadID, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return evaluation.Input{}, fmt.Errorf("load records for lead %s: %w", leadID, err)
	}
	return in, nil
}

// Evaluate scores one lead as of now.
func (s *Service) Evaluate(ctx context.Context, leadID string, now time.Time) (model.LeadEvaluation, error) {
	in, err := s.EvaluationInput(ctx, leadID, now)
	if err != nil {
		return model.LeadEvaluation{}, err
	}
	ev := evaluation.Evaluate(s.rules, in)

	metrics.RecordEvaluation(string(ev.Status))
	for _, st := range ev.Strikes {
		metrics.RecordStrike(string(st.Severity))
	}
	s.logger.Debug(ctx, "lead evaluated",
		logger.String("lead_id", leadID),
		logger.Int("score", ev.OverallScore),
		logger.String("status", string(ev.Status)),
	)
	return ev, nil
}

// Roster evaluates every known lead, ordered by lead ID.
func (s *Service) Roster(ctx context.Context, now time.Time) ([]model.LeadEvaluation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	now = s.at(now)
	leads, err := s.store.Leads(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	out := make([]model.LeadEvaluation, len(leads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.evalConcurrency)
	for i, id := range leads {
		g.Go(func() error {
			ev, err := s.Evaluate(gctx, id, now)
			if err != nil {
				return err
			}
			out[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Bonus runs the bonus accelerator over the jobs a lead oversaw, so any
// full or partial takeover under the lead blocks the bonus.
func (s *Service) Bonus(ctx context.Context, leadID, period string, now time.Time) (bonus.Result, error) {
	if err := s.ready(); err != nil {
		return bonus.Result{}, err
	}
	now = s.at(now)
	jobs, err := s.store.JobsByLead(ctx, leadID, s.since(now))
	if err != nil {
		return bonus.Result{}, fmt.Errorf("load jobs for lead %s: %w", leadID, err)
	}
	res := bonus.Accelerate(s.rules, bonus.Input{RecentJobs: jobs, Period: period}, now)
	if res.Eligible {
		metrics.RecordBonusAward(strconv.Itoa(res.Tier))
	}
	return res, nil
}

// Patterns runs every detector over the jobs a lead oversaw.
func (s *Service) Patterns(ctx context.Context, leadID string, now time.Time) (patterns.Report, error) {
	if err := s.ready(); err != nil {
		return patterns.Report{}, err
	}
	now = s.at(now)
	jobs, err := s.store.JobsByLead(ctx, leadID, s.since(now))
	if err != nil {
		return patterns.Report{}, fmt.Errorf("load jobs for lead %s: %w", leadID, err)
	}
	return patterns.Detect(s.rules, jobs, now), nil
}

// Quote sizes and prices a job.
func (s *Service) Quote(_ context.Context, in staffing.QuoteInput) (staffing.Estimate, error) {
	est, err := staffing.Quote(s.rules, in)
	if err != nil {
		return staffing.Estimate{}, err
	}
	metrics.RecordQuote(string(est.Tier))
	return est, nil
}

// onSettled publishes every stored settlement.
func (s *Service) onSettled(ctx context.Context, st model.Settlement) { //nolint:gocritic // hugeParam
	if err := s.publisher.PublishSettlement(ctx, st); err != nil {
		s.logger.Warn(ctx, "failed to publish settlement",
			logger.String("job_id", st.Event.JobID),
			logger.Error(err),
		)
	}
}

// onFailed releases the claim on a job whose settlement was never stored so
// it can be submitted again.
func (s *Service) onFailed(ctx context.Context, e model.JobInterventionEvent, err error) { //nolint:gocritic // hugeParam
	s.ledger.Release(ctx, e.JobID)
	metrics.UpdateLedgerSize(s.ledger.Size())
	s.logger.Warn(ctx, "settlement failed, claim released",
		logger.String("job_id", e.JobID),
		logger.Error(err),
	)
}

// flagJob publishes the detector flags that include job. Lead-scoped
// detectors run over the lead's jobs; repeat takeovers over the worker's.
func (s *Service) flagJob(ctx context.Context, job *model.CompletedJobRecord) {
	now := s.at(job.CompletedAt)
	since := s.since(now)

	leadJobs, err := s.store.JobsByLead(ctx, job.LeadID, since)
	if err != nil {
		s.logger.Warn(ctx, "pattern check skipped", logger.String("job_id", job.JobID), logger.Error(err))
		return
	}
	flags := patterns.LightAssistanceAbuse(s.rules, leadJobs)
	flags = append(flags, patterns.ComplaintCorrelation(s.rules, leadJobs)...)

	workerID := job.WorkerID
	if workerID == "" {
		workerID = job.OriginalBubblerID
	}
	if workerJobs, err := s.store.JobsByWorker(ctx, workerID, since); err == nil {
		flags = append(flags, patterns.RepeatTakeovers(s.rules, workerJobs, now)...)
	}

	for _, f := range flags {
		if !slices.Contains(f.JobIDs, job.JobID) {
			continue
		}
		metrics.RecordPatternFlag(string(f.Kind))
		s.logger.Info(ctx, "takeover pattern flagged",
			logger.String("kind", string(f.Kind)),
			logger.String("lead_id", f.LeadID),
			logger.String("worker_id", f.WorkerID),
			logger.Int("count", f.Count),
		)
		if err := s.publisher.PublishFlag(ctx, f); err != nil {
			s.logger.Warn(ctx, "failed to publish flag", logger.String("kind", string(f.Kind)), logger.Error(err))
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"ledgerSize":   s.ledgerSize,
		"lookbackDays": s.lookbackDays,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["ledgerClaims"] = s.ledger.Size()
		if counts, err := s.store.Counts(ctx); err == nil {
			stats["records"] = counts
		}
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
