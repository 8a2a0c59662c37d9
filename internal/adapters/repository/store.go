// Package repository persists job history, check-ins, lead ratings and
// takeover settlements.
package repository

import (
	"context"
	"time"

	"github.com/gogobubbles/leadops/internal/domain/model"
)

// Counts is the number of records held per kind.
type Counts struct {
	Jobs        int `json:"jobs"`
	CheckIns    int `json:"check_ins"`
	LeadRatings int `json:"lead_ratings"`
	Settlements int `json:"settlements"`
}

// Store provides read/write access to the records the engine evaluates.
// Range queries return records at or after since, oldest first.
type Store interface {
	// SaveJob inserts or replaces a job record keyed by its job ID.
	SaveJob(ctx context.Context, job model.CompletedJobRecord) error
	SaveCheckIn(ctx context.Context, c model.CheckInRecord) error
	SaveLeadRating(ctx context.Context, r model.LeadRating) error
	// SaveSettlement stores the settlement for a job. A second settlement for
	// the same job is ignored.
	SaveSettlement(ctx context.Context, s model.Settlement) error

	// Settlement returns ErrNotFound if the job was never settled.
	Settlement(ctx context.Context, jobID string) (model.Settlement, error)

	// JobsByLead returns jobs the lead oversaw.
	JobsByLead(ctx context.Context, leadID string, since time.Time) ([]model.CompletedJobRecord, error)
	// JobsByWorker returns jobs the worker performed.
	JobsByWorker(ctx context.Context, workerID string, since time.Time) ([]model.CompletedJobRecord, error)
	CheckInsByLead(ctx context.Context, leadID string, since time.Time) ([]model.CheckInRecord, error)
	LeadRatings(ctx context.Context, leadID string, since time.Time) ([]model.LeadRating, error)

	// Leads lists every lead ID seen in jobs, check-ins or ratings, sorted.
	Leads(ctx context.Context) ([]string, error)
	Counts(ctx context.Context) (Counts, error)

	Close() error
}
