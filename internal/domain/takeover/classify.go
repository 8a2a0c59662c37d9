// Package takeover classifies lead interventions and computes the payout
// split that follows from the classification.
package takeover

import (
	"fmt"
	"strings"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
)

// Signals are the raw intervention measurements the classifier looks at.
type Signals struct {
	PercentCompleted      float64
	TasksRedone           model.TasksRedone
	AssistanceTimeMinutes float64
	BubblerLeftSite       bool
}

// SignalsOf extracts classifier signals from an intervention event.
func SignalsOf(e *model.JobInterventionEvent) Signals {
	return Signals{
		PercentCompleted:      e.PercentCompleted,
		TasksRedone:           e.TasksRedone,
		AssistanceTimeMinutes: e.AssistanceTimeMinutes,
		BubblerLeftSite:       e.BubblerLeftSite,
	}
}

// Classify maps intervention signals to a category. The first matching rule
// wins: abandonment (low completion, or a long assist after the bubbler left)
// always outranks rework volume.
//
// Classify does not validate its input; run ValidateEvent first.
func Classify(r rules.Rules, s Signals) model.Category {
	c := r.Classifier
	if s.PercentCompleted <= c.FullMaxPercent {
		return model.CategoryFull
	}
	if s.AssistanceTimeMinutes > c.AbandonAssistMinutes && s.BubblerLeftSite {
		return model.CategoryFull
	}

	t := s.TasksRedone
	if t.Moderate >= c.PartialMinModerate || t.Minor >= c.PartialMinMinor || t.Major >= c.PartialMinMajor {
		return model.CategoryPartial
	}
	return model.CategoryLight
}

// CategoryOf returns the category stored on a job record, deriving it from
// the intervention signals when none was stored. Jobs without an
// intervention return "".
func CategoryOf(r rules.Rules, j *model.CompletedJobRecord) model.Category {
	if j.Category != "" {
		return j.Category
	}
	if !j.HasIntervention() {
		return ""
	}
	return Classify(r, SignalsOf(&j.JobInterventionEvent))
}

// ValidateEvent rejects events the engine cannot price: out-of-range
// percentages, negative counts or amounts, and missing identifiers.
func ValidateEvent(e *model.JobInterventionEvent) error {
	switch {
	case strings.TrimSpace(e.JobID) == "":
		return fmt.Errorf("%w: missing job_id", ErrInvalidEvent)
	case strings.TrimSpace(e.LeadID) == "":
		return fmt.Errorf("%w: missing lead_id", ErrInvalidEvent)
	case strings.TrimSpace(e.OriginalBubblerID) == "":
		return fmt.Errorf("%w: missing original_bubbler_id", ErrInvalidEvent)
	case e.PercentCompleted < 0 || e.PercentCompleted > 100:
		return fmt.Errorf("%w: percent_completed %.2f outside 0-100", ErrInvalidEvent, e.PercentCompleted)
	case e.TasksRedone.Minor < 0 || e.TasksRedone.Moderate < 0 || e.TasksRedone.Major < 0:
		return fmt.Errorf("%w: negative tasks_redone count", ErrInvalidEvent)
	case e.AssistanceTimeMinutes < 0:
		return fmt.Errorf("%w: negative assistance_time_minutes", ErrInvalidEvent)
	case e.JobAmount < 0:
		return fmt.Errorf("%w: negative job_amount", ErrInvalidEvent)
	}
	return nil
}
