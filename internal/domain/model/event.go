// Package model contains domain models passed between layers.
package model

import "time"

// Category is the intervention severity derived from a takeover event.
type Category string

// Takeover categories, most severe first. The empty Category means no
// intervention was recorded for a job.
const (
	CategoryFull    Category = "full"
	CategoryPartial Category = "partial"
	CategoryLight   Category = "light"
)

// Valid reports whether c is one of the three takeover categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFull, CategoryPartial, CategoryLight:
		return true
	default:
		return false
	}
}

// TasksRedone counts the tasks a lead had to redo, bucketed by effort.
type TasksRedone struct {
	Minor    int `json:"minor"`
	Moderate int `json:"moderate"`
	Major    int `json:"major"`
}

// JobInterventionEvent is one instance of a lead engaging with an in-progress job.
type JobInterventionEvent struct {
	JobID                 string      `json:"job_id"`
	OriginalBubblerID     string      `json:"original_bubbler_id"`
	LeadID                string      `json:"lead_id"`
	PercentCompleted      float64     `json:"percent_completed"`       // 0-100, completion when the lead stepped in
	TasksRedone           TasksRedone `json:"tasks_redone"`            // rework performed by the lead
	AssistanceTimeMinutes float64     `json:"assistance_time_minutes"` // time the lead spent on site
	BubblerLeftSite       bool        `json:"bubbler_left_site"`
	JobAmount             float64     `json:"job_amount"` // 0 means the base payout applies
	OccurredAt            time.Time   `json:"occurred_at"`
}
