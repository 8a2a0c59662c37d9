package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/pkg/logger"
	"github.com/gogobubbles/leadops/pkg/metrics"
)

// MemoryStore is a mutex-protected in-memory Store.
type MemoryStore struct {
	mu          sync.RWMutex
	jobs        map[string]model.CompletedJobRecord
	checkIns    []model.CheckInRecord
	ratings     []model.LeadRating
	settlements map[string]model.Settlement

	metricsUpdateInterval time.Duration
	log                   logger.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryStore constructs an empty store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		jobs:                  make(map[string]model.CompletedJobRecord),
		settlements:           make(map[string]model.Settlement),
		metricsUpdateInterval: 10 * time.Second,
		log:                   logger.Nop(),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				c, _ := s.Counts(ctx)
				updateRecordGauges(c)
			}
		}
	}()
}

func updateRecordGauges(c Counts) {
	metrics.UpdateStoreRecords("jobs", c.Jobs)
	metrics.UpdateStoreRecords("check_ins", c.CheckIns)
	metrics.UpdateStoreRecords("lead_ratings", c.LeadRatings)
	metrics.UpdateStoreRecords("settlements", c.Settlements)
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func (s *MemoryStore) SaveJob(ctx context.Context, job model.CompletedJobRecord) error {
	defer observe("save_job", time.Now())
	if job.JobID == "" {
		return fmt.Errorf("%w: job_id is required", ErrInvalidInput)
	}
	if job.WorkerID == "" {
		job.WorkerID = job.OriginalBubblerID
	}
	s.mu.Lock()
	s.jobs[job.JobID] = job
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SaveCheckIn(ctx context.Context, c model.CheckInRecord) error {
	defer observe("save_check_in", time.Now())
	if c.LeadID == "" {
		return fmt.Errorf("%w: lead_id is required", ErrInvalidInput)
	}
	s.mu.Lock()
	s.checkIns = append(s.checkIns, c)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SaveLeadRating(ctx context.Context, r model.LeadRating) error {
	defer observe("save_lead_rating", time.Now())
	if r.LeadID == "" {
		return fmt.Errorf("%w: lead_id is required", ErrInvalidInput)
	}
	s.mu.Lock()
	s.ratings = append(s.ratings, r)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SaveSettlement(ctx context.Context, st model.Settlement) error {
	defer observe("save_settlement", time.Now())
	jobID := st.Event.JobID
	if jobID == "" {
		return fmt.Errorf("%w: settlement without job_id", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settlements[jobID]; ok {
		s.log.Debug(ctx, "settlement already stored", logger.String("job_id", jobID))
		return nil
	}
	s.settlements[jobID] = st
	return nil
}

func (s *MemoryStore) Settlement(ctx context.Context, jobID string) (model.Settlement, error) {
	defer observe("settlement", time.Now())
	s.mu.RLock()
	st, ok := s.settlements[jobID]
	s.mu.RUnlock()
	if !ok {
		return model.Settlement{}, fmt.Errorf("settlement %s: %w", jobID, ErrNotFound)
	}
	return st, nil
}

func (s *MemoryStore) JobsByLead(ctx context.Context, leadID string, since time.Time) ([]model.CompletedJobRecord, error) {
	defer observe("jobs_by_lead", time.Now())
	return s.filterJobs(since, func(j *model.CompletedJobRecord) bool { return j.LeadID == leadID }), nil
}

func (s *MemoryStore) JobsByWorker(ctx context.Context, workerID string, since time.Time) ([]model.CompletedJobRecord, error) {
	defer observe("jobs_by_worker", time.Now())
	return s.filterJobs(since, func(j *model.CompletedJobRecord) bool { return j.WorkerID == workerID }), nil
}

func (s *MemoryStore) filterJobs(since time.Time, match func(*model.CompletedJobRecord) bool) []model.CompletedJobRecord {
	s.mu.RLock()
	out := make([]model.CompletedJobRecord, 0)
	for id := range s.jobs {
		j := s.jobs[id]
		if match(&j) && !j.CompletedAt.Before(since) {
			out = append(out, j)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		if out[a].CompletedAt.Equal(out[b].CompletedAt) {
			return out[a].JobID < out[b].JobID
		}
		return out[a].CompletedAt.Before(out[b].CompletedAt)
	})
	return out
}

func (s *MemoryStore) CheckInsByLead(ctx context.Context, leadID string, since time.Time) ([]model.CheckInRecord, error) {
	defer observe("check_ins_by_lead", time.Now())
	s.mu.RLock()
	out := make([]model.CheckInRecord, 0)
	for _, c := range s.checkIns {
		if c.LeadID == leadID && !c.CheckInDate.Before(since) {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(a, b int) bool { return out[a].CheckInDate.Before(out[b].CheckInDate) })
	return out, nil
}

func (s *MemoryStore) LeadRatings(ctx context.Context, leadID string, since time.Time) ([]model.LeadRating, error) {
	defer observe("lead_ratings", time.Now())
	s.mu.RLock()
	out := make([]model.LeadRating, 0)
	for _, r := range s.ratings {
		if r.LeadID == leadID && !r.SubmittedAt.Before(since) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(a, b int) bool { return out[a].SubmittedAt.Before(out[b].SubmittedAt) })
	return out, nil
}

func (s *MemoryStore) Leads(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]struct{})
	for _, j := range s.jobs {
		if j.LeadID != "" {
			seen[j.LeadID] = struct{}{}
		}
	}
	for _, c := range s.checkIns {
		seen[c.LeadID] = struct{}{}
	}
	for _, r := range s.ratings {
		seen[r.LeadID] = struct{}{}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Jobs:        len(s.jobs),
		CheckIns:    len(s.checkIns),
		LeadRatings: len(s.ratings),
		Settlements: len(s.settlements),
	}, nil
}
