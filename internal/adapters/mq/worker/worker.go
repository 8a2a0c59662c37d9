// Package worker settles queued intervention events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gogobubbles/leadops/internal/adapters/mq/queue"
	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
	"github.com/gogobubbles/leadops/pkg/logger"
	"github.com/gogobubbles/leadops/pkg/metrics"
)

// Store persists settlements.
type Store interface {
	SaveSettlement(ctx context.Context, s model.Settlement) error
}

// Observer is notified after a settlement is stored.
type Observer interface {
	Settled(ctx context.Context, s model.Settlement)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, s model.Settlement)

// Settled calls f.
func (f ObserverFunc) Settled(ctx context.Context, s model.Settlement) { f(ctx, s) }

// FailureFunc is called when an event could not be settled and nothing was
// stored for it.
type FailureFunc func(ctx context.Context, event queue.Event, err error)

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker settles events until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker settles events read from a Queue.
type InMemoryWorker struct {
	queue     Queue
	store     Store
	rules     rules.Rules
	observers []Observer
	onFailure []FailureFunc
	now       func() time.Time
	name      string
	active    *atomic.Int64

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, store Store, r rules.Rules, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		store:    store,
		rules:    r,
		now:      time.Now,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, event); err != nil {
				w.logger.Error(ctx, "error settling event", logger.String("job_id", event.JobID), logger.Error(err))
				for _, f := range w.onFailure {
					f(ctx, event, err)
				}
			}
		}
	}
}

// Shutdown stops the worker and waits for its loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Done is closed when the worker loop has exited.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// process classifies, compensates and stores one event, then notifies observers.
func (w *InMemoryWorker) process(ctx context.Context, event queue.Event) error { //nolint:gocritic // hugeParam: events are passed by value through the channel
	start := time.Now()
	if w.active != nil {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
		defer func() { metrics.UpdateWorkerActiveCount(int(w.active.Add(-1))) }()
	}
	defer func() {
		ms := float64(time.Since(start).Microseconds()) / 1000
		metrics.RecordWorkerProcessingLatency(ms)
		metrics.RecordSettlementLatency(ms)
	}()

	category, comp, err := takeover.Settle(w.rules, &event)
	st := model.Settlement{
		ID:           uuid.New(),
		Event:        event,
		Category:     category,
		Compensation: comp,
		SettledAt:    w.now().UTC(),
	}
	switch {
	case errors.Is(err, takeover.ErrNoCompensationTier):
		st.Error = err.Error()
		metrics.RecordCompensationError("no_compensation_tier")
		w.logger.Warn(ctx, "takeover has no compensation tier",
			logger.String("job_id", event.JobID),
			logger.Float64("percent_completed", event.PercentCompleted),
		)
	case err != nil:
		metrics.RecordCompensationError("other")
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "compensation")
		return fmt.Errorf("settle job %s: %w", event.JobID, err)
	default:
		metrics.RecordTakeover(string(category))
		metrics.RecordPayout("lead", comp.LeadPayout)
		metrics.RecordPayout("original", comp.OriginalBubblerPayout)
		if comp.Bonus > 0 {
			metrics.RecordPayout("bonus", comp.Bonus)
		}
	}

	if err := w.store.SaveSettlement(ctx, st); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store")
		return fmt.Errorf("store settlement for job %s: %w", event.JobID, err)
	}
	w.logger.Debug(ctx, "settled",
		logger.String("job_id", event.JobID),
		logger.String("category", string(category)),
		logger.Float64("lead_payout", comp.LeadPayout),
	)

	for _, o := range w.observers {
		o.Settled(ctx, st)
	}
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing q. Options apply to every worker.
func NewPool(workerCount int, q Queue, store Store, r rules.Rules, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	base := &InMemoryWorker{}
	for _, opt := range opts {
		opt(base)
	}
	if base.logger != nil {
		p.logger = base.logger.Named("worker-pool")
	}

	for i := range p.workers {
		workerOpts := append([]Option{}, opts...)
		workerOpts = append(workerOpts, WithName("worker-"+strconv.Itoa(i)))
		w := NewInMemoryWorker(q, store, r, workerOpts...)
		w.active = &p.active
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets workers drain it, and stops any worker
// still running when ctx ends. On timeout the queue is stopped too so no
// dequeue goroutine is left holding an undelivered event.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var timedOut int
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			w.stop()
			timedOut++
		}
	}
	if timedOut > 0 {
		if stopper, ok := p.queue.(interface{ Stop() }); ok {
			stopper.Stop()
		}
		p.logger.Warn(ctx, "workers stopped before draining", logger.Int("workers", timedOut))
		return fmt.Errorf("%d workers stopped before draining: %w", timedOut, ctx.Err())
	}
	return nil
}
