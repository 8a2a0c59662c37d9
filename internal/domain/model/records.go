package model

import (
	"time"

	"github.com/google/uuid"
)

// Timeliness values for job starts.
const (
	TimelinessOnTime = "on_time"
	TimelinessLate   = "late"
)

// Completion states for a finished job.
const (
	CompletionCompleted  = "completed"
	CompletionIncomplete = "incomplete"
	CompletionCancelled  = "cancelled"
)

// Complaint is a customer complaint attached to a job or check-in.
type Complaint struct {
	Severity int    `json:"severity"` // 1-5
	Note     string `json:"note,omitempty"`
}

// CompletedJobRecord is the historical record of a finished job. Jobs that
// had a lead intervention carry the intervention signals and, usually, a
// Category. LeadID alone only names the overseeing lead.
type CompletedJobRecord struct {
	JobInterventionEvent

	// Intervened marks a takeover whose signals are all zero, e.g. a job
	// abandoned before it started.
	Intervened        bool       `json:"intervened,omitempty"`
	WorkerID          string     `json:"worker_id"`
	ServiceType       string     `json:"service_type,omitempty"`
	Category          Category   `json:"category,omitempty"`
	CustomerRating    float64    `json:"customer_rating"`
	BubblerRating     *float64   `json:"bubbler_rating,omitempty"`
	CompletedAt       time.Time  `json:"completed_at"`
	CustomerComplaint *Complaint `json:"customer_complaint,omitempty"`
	QualityUplift     bool       `json:"quality_uplift"`
	Timeliness        string     `json:"timeliness"`
	CompletionStatus  string     `json:"completion_status"`
	LeftEarly         bool       `json:"left_early"`
}

// HasIntervention reports whether a lead intervened on the job: a stored
// category, the Intervened mark, or any non-zero intervention signal. A
// completion percentage counts only strictly between 0 and 100.
func (r *CompletedJobRecord) HasIntervention() bool {
	if r.Category != "" || r.Intervened {
		return true
	}
	t := r.TasksRedone
	switch {
	case t.Minor > 0 || t.Moderate > 0 || t.Major > 0:
		return true
	case r.AssistanceTimeMinutes > 0 || r.BubblerLeftSite:
		return true
	}
	return r.PercentCompleted > 0 && r.PercentCompleted < 100
}

// CheckInRecord is a lead's recorded check-in on a bubbler's job.
type CheckInRecord struct {
	LeadID            string     `json:"lead_id"`
	BubblerID         string     `json:"bubbler_id"`
	JobID             string     `json:"job_id,omitempty"`
	CheckInDate       time.Time  `json:"check_in_date"`
	CustomerRating    float64    `json:"customer_rating"`
	TakeoverType      Category   `json:"takeover_type,omitempty"`
	CustomerComplaint *Complaint `json:"customer_complaint,omitempty"`
}

// LeadRating is feedback a bubbler gives the lead overseeing them.
type LeadRating struct {
	LeadID      string    `json:"lead_id"`
	BubblerID   string    `json:"bubbler_id"`
	Rating      float64   `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Settlement is the stored outcome of one processed intervention event.
// Error is set when the event was classified but could not be compensated.
type Settlement struct {
	ID           uuid.UUID            `json:"id"`
	Event        JobInterventionEvent `json:"event"`
	Category     Category             `json:"category"`
	Compensation CompensationResult   `json:"compensation"`
	Error        string               `json:"error,omitempty"`
	SettledAt    time.Time            `json:"settled_at"`
}
