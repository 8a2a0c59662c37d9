package api

import (
	"time"

	"github.com/gogobubbles/leadops/internal/domain/model"
)

// interventionRequest mirrors the OpenAPI schema for an intervention event.
type interventionRequest struct {
	JobID                 string             `json:"job_id" validate:"required"`
	OriginalBubblerID     string             `json:"original_bubbler_id" validate:"required"`
	LeadID                string             `json:"lead_id" validate:"required"`
	PercentCompleted      float64            `json:"percent_completed" validate:"gte=0,lte=100"`
	TasksRedone           tasksRedoneRequest `json:"tasks_redone"`
	AssistanceTimeMinutes float64            `json:"assistance_time_minutes" validate:"gte=0"`
	BubblerLeftSite       bool               `json:"bubbler_left_site"`
	JobAmount             float64            `json:"job_amount" validate:"gte=0"`
	OccurredAt            time.Time          `json:"occurred_at"`
}

type tasksRedoneRequest struct {
	Minor    int `json:"minor" validate:"gte=0"`
	Moderate int `json:"moderate" validate:"gte=0"`
	Major    int `json:"major" validate:"gte=0"`
}

func (r *interventionRequest) event() model.JobInterventionEvent {
	return model.JobInterventionEvent{
		JobID:             r.JobID,
		OriginalBubblerID: r.OriginalBubblerID,
		LeadID:            r.LeadID,
		PercentCompleted:  r.PercentCompleted,
		TasksRedone: model.TasksRedone{
			Minor:    r.TasksRedone.Minor,
			Moderate: r.TasksRedone.Moderate,
			Major:    r.TasksRedone.Major,
		},
		AssistanceTimeMinutes: r.AssistanceTimeMinutes,
		BubblerLeftSite:       r.BubblerLeftSite,
		JobAmount:             r.JobAmount,
		OccurredAt:            r.OccurredAt,
	}
}

type complaintRequest struct {
	Severity int    `json:"severity" validate:"min=1,max=5"`
	Note     string `json:"note"`
}

func (c *complaintRequest) complaint() *model.Complaint {
	if c == nil {
		return nil
	}
	return &model.Complaint{Severity: c.Severity, Note: c.Note}
}

// jobRequest is a completed job. Intervention fields are set only when a
// lead stepped in.
type jobRequest struct {
	JobID                 string             `json:"job_id" validate:"required"`
	WorkerID              string             `json:"worker_id" validate:"required_without=OriginalBubblerID"`
	OriginalBubblerID     string             `json:"original_bubbler_id"`
	LeadID                string             `json:"lead_id"`
	ServiceType           string             `json:"service_type"`
	Category              string             `json:"category" validate:"omitempty,oneof=full partial light"`
	Intervened            bool               `json:"intervened"`
	PercentCompleted      float64            `json:"percent_completed" validate:"gte=0,lte=100"`
	TasksRedone           tasksRedoneRequest `json:"tasks_redone"`
	AssistanceTimeMinutes float64            `json:"assistance_time_minutes" validate:"gte=0"`
	BubblerLeftSite       bool               `json:"bubbler_left_site"`
	JobAmount             float64            `json:"job_amount" validate:"gte=0"`
	OccurredAt            time.Time          `json:"occurred_at"`
	CustomerRating        float64            `json:"customer_rating" validate:"gte=0,lte=5"`
	BubblerRating         *float64           `json:"bubbler_rating" validate:"omitempty,gte=0,lte=5"`
	CompletedAt           time.Time          `json:"completed_at" validate:"required"`
	CustomerComplaint     *complaintRequest  `json:"customer_complaint"`
	QualityUplift         bool               `json:"quality_uplift"`
	Timeliness            string             `json:"timeliness" validate:"omitempty,oneof=on_time late"`
	CompletionStatus      string             `json:"completion_status" validate:"omitempty,oneof=completed incomplete cancelled"`
	LeftEarly             bool               `json:"left_early"`
}

func (r *jobRequest) record() model.CompletedJobRecord {
	ir := interventionRequest{
		JobID:                 r.JobID,
		OriginalBubblerID:     r.OriginalBubblerID,
		LeadID:                r.LeadID,
		PercentCompleted:      r.PercentCompleted,
		TasksRedone:           r.TasksRedone,
		AssistanceTimeMinutes: r.AssistanceTimeMinutes,
		BubblerLeftSite:       r.BubblerLeftSite,
		JobAmount:             r.JobAmount,
		OccurredAt:            r.OccurredAt,
	}
	return model.CompletedJobRecord{
		JobInterventionEvent: ir.event(),
		WorkerID:             r.WorkerID,
		ServiceType:          r.ServiceType,
		Category:             model.Category(r.Category),
		Intervened:           r.Intervened,
		CustomerRating:       r.CustomerRating,
		BubblerRating:        r.BubblerRating,
		CompletedAt:          r.CompletedAt,
		CustomerComplaint:    r.CustomerComplaint.complaint(),
		QualityUplift:        r.QualityUplift,
		Timeliness:           r.Timeliness,
		CompletionStatus:     r.CompletionStatus,
		LeftEarly:            r.LeftEarly,
	}
}

type checkInRequest struct {
	LeadID            string            `json:"lead_id" validate:"required"`
	BubblerID         string            `json:"bubbler_id" validate:"required"`
	JobID             string            `json:"job_id"`
	CheckInDate       time.Time         `json:"check_in_date" validate:"required"`
	CustomerRating    float64           `json:"customer_rating" validate:"gte=0,lte=5"`
	TakeoverType      string            `json:"takeover_type" validate:"omitempty,oneof=full partial light"`
	CustomerComplaint *complaintRequest `json:"customer_complaint"`
}

func (r *checkInRequest) record() model.CheckInRecord {
	return model.CheckInRecord{
		LeadID:            r.LeadID,
		BubblerID:         r.BubblerID,
		JobID:             r.JobID,
		CheckInDate:       r.CheckInDate,
		CustomerRating:    r.CustomerRating,
		TakeoverType:      model.Category(r.TakeoverType),
		CustomerComplaint: r.CustomerComplaint.complaint(),
	}
}

type leadRatingRequest struct {
	LeadID      string    `json:"lead_id" validate:"required"`
	BubblerID   string    `json:"bubbler_id" validate:"required"`
	Rating      float64   `json:"rating" validate:"gte=1,lte=5"`
	Comment     string    `json:"comment" validate:"max=2000"`
	SubmittedAt time.Time `json:"submitted_at" validate:"required"`
}

func (r *leadRatingRequest) record() model.LeadRating {
	return model.LeadRating{
		LeadID:      r.LeadID,
		BubblerID:   r.BubblerID,
		Rating:      r.Rating,
		Comment:     r.Comment,
		SubmittedAt: r.SubmittedAt,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type classifyResponse struct {
	JobID    string         `json:"job_id"`
	Category model.Category `json:"category"`
}

type createdResponse struct {
	Status string `json:"status"`
}
