// Package staffing sizes job crews and prices task payouts.
package staffing

import (
	"fmt"
	"math"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
)

// Multiplier reasons on an Estimate.
const (
	MultiplierNone          = "none"
	MultiplierLargeProperty = "large_property"
	MultiplierCrew          = "crew"
)

// Job describes the work to be staffed.
type Job struct {
	ServiceType      string  `json:"service_type" validate:"required"`
	EstimatedMinutes float64 `json:"estimated_minutes" validate:"gte=0"`
	Bedrooms         int     `json:"bedrooms" validate:"gte=0"`
	Bathrooms        int     `json:"bathrooms" validate:"gte=0"`
}

// TaskRequest is one task line of a quote request. Zero quantity means one.
type TaskRequest struct {
	Task     string `json:"task" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// QuoteInput is a job plus the tasks to price.
type QuoteInput struct {
	Job
	HasPets bool          `json:"has_pets"`
	Tasks   []TaskRequest `json:"tasks" validate:"required,min=1,dive"`
}

// Line is a priced task.
type Line struct {
	Task        string  `json:"task"`
	Quantity    int     `json:"quantity"`
	BaseRate    float64 `json:"base_rate"`
	PetAdjusted bool    `json:"pet_adjusted"`
	Amount      float64 `json:"amount"`
}

// Estimate is the priced crew payout for a job.
type Estimate struct {
	Tier             model.StaffingTier `json:"tier"`
	Headcount        int                `json:"headcount"`
	Lines            []Line             `json:"lines"`
	Subtotal         float64            `json:"subtotal"`
	Multiplier       float64            `json:"multiplier"`
	MultiplierReason string             `json:"multiplier_reason"`
	Total            float64            `json:"total"`
	PerWorker        float64            `json:"per_worker"`
}

// LargeProperty reports whether the job's property counts as large.
func LargeProperty(r rules.Rules, j Job) bool {
	return j.Bedrooms >= r.Staffing.LargeBedrooms || j.Bathrooms >= r.Staffing.LargeBathrooms
}

// Tier selects the crew size for a job from its estimated duration.
func Tier(r rules.Rules, j Job) model.StaffingTier {
	s := r.Staffing
	soloMax := s.SoloMaxMinutes
	if LargeProperty(r, j) {
		soloMax = s.LargeSoloMaxMinutes
	}
	switch {
	case j.EstimatedMinutes <= soloMax:
		return model.StaffingSolo
	case j.EstimatedMinutes <= s.DualMaxMinutes:
		return model.StaffingDual
	default:
		return model.StaffingTeam
	}
}

// Headcount is the number of workers sharing a payout for a tier.
func Headcount(r rules.Rules, t model.StaffingTier) int {
	switch t {
	case model.StaffingDual:
		return 2
	case model.StaffingTeam:
		return r.Staffing.TeamSize
	default:
		return 1
	}
}

// Quote prices every task line, applies the pet adjustment per line and at
// most one job multiplier, and splits the total across the crew.
func Quote(r rules.Rules, in QuoteInput) (Estimate, error) {
	s := r.Staffing
	tier := Tier(r, in.Job)
	q := Estimate{
		Tier:             tier,
		Headcount:        Headcount(r, tier),
		Lines:            make([]Line, 0, len(in.Tasks)),
		Multiplier:       1,
		MultiplierReason: MultiplierNone,
	}

	for _, t := range in.Tasks {
		rate, ok := s.TaskRates[t.Task]
		if !ok {
			return Estimate{}, fmt.Errorf("task %q: %w", t.Task, ErrUnknownTask)
		}
		qty := t.Quantity
		if qty == 0 {
			qty = 1
		}
		amount := rate * float64(qty)
		petAdjusted := in.HasPets && !s.PetExempt(t.Task)
		if petAdjusted {
			amount *= s.PetMultiplier
		}
		amount = roundCents(amount)
		q.Lines = append(q.Lines, Line{
			Task:        t.Task,
			Quantity:    qty,
			BaseRate:    rate,
			PetAdjusted: petAdjusted,
			Amount:      amount,
		})
		q.Subtotal += amount
	}
	q.Subtotal = roundCents(q.Subtotal)

	switch {
	case s.PropertyBased(in.ServiceType) && LargeProperty(r, in.Job):
		q.Multiplier = s.LargePropertyMultiplier
		q.MultiplierReason = MultiplierLargeProperty
	case tier != model.StaffingSolo:
		q.Multiplier = s.CrewMultiplier
		q.MultiplierReason = MultiplierCrew
	}

	q.Total = roundCents(q.Subtotal * q.Multiplier)
	q.PerWorker = roundCents(q.Total / float64(q.Headcount))
	return q, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
