package service

import (
	"time"

	"github.com/gogobubbles/leadops/internal/adapters/notify"
	"github.com/gogobubbles/leadops/internal/adapters/repository"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of settlement workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the intervention queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLedgerSize bounds the settlement ledger.
func WithLedgerSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.ledgerSize = size
		}
	}
}

// WithLookbackDays sets how much history is loaded for evaluations and pattern checks.
func WithLookbackDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.lookbackDays = days
		}
	}
}

// WithEvaluationConcurrency bounds concurrent lead evaluations in a roster run.
func WithEvaluationConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.evalConcurrency = n
		}
	}
}

// WithRules replaces the default business rules.
func WithRules(r rules.Rules) Option {
	return func(s *Service) {
		s.rules = r
	}
}

// WithStore sets the record store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublisher sets the event publisher. The service closes it on Stop.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock overrides the time source used when a request carries no time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
