// Package bonus evaluates rolling job windows for periodic leadership bonuses.
package bonus

import (
	"time"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
)

// Reasons reported on a Result.
const (
	ReasonEligible        = "eligible"
	ReasonUnknownPeriod   = "unknown_period"
	ReasonInsufficient    = "insufficient_jobs"
	ReasonTakeoverInRange = "takeover_in_window"
	ReasonRatingTooLow    = "rating_below_threshold"
)

// ratingEpsilon absorbs float noise when comparing averages with thresholds.
const ratingEpsilon = 1e-9

// Input is the job window to evaluate and the period to evaluate it over.
type Input struct {
	RecentJobs []model.CompletedJobRecord `json:"recent_jobs"`
	Period     string                     `json:"period"`
}

// Result is the accelerator outcome. Ineligible results are not errors; the
// reason explains which gate failed.
type Result struct {
	Eligible      bool    `json:"eligible"`
	Tier          int     `json:"tier,omitempty"`
	Amount        float64 `json:"amount"`
	Period        string  `json:"period"`
	AverageRating float64 `json:"average_rating"`
	JobsCompleted int     `json:"jobs_completed"`
	Reason        string  `json:"reason"`
}

// Accelerate grants the highest bonus tier the trailing window qualifies for.
// The period window must hold its minimum job count and no full or partial
// takeover; each tier is then checked against its own trailing window.
func Accelerate(r rules.Rules, in Input, now time.Time) Result {
	res := Result{Period: in.Period}
	period, ok := r.Bonus.Period(in.Period)
	if !ok {
		res.Reason = ReasonUnknownPeriod
		return res
	}

	window := jobsIn(in.RecentJobs, now, period.WindowDays)
	res.JobsCompleted = len(window)
	res.AverageRating = averageRating(window)

	if len(window) < period.MinJobs {
		res.Reason = ReasonInsufficient
		return res
	}
	for i := range window {
		if c := takeover.CategoryOf(r, &window[i]); c == model.CategoryFull || c == model.CategoryPartial {
			res.Reason = ReasonTakeoverInRange
			return res
		}
	}

	for _, tier := range r.Bonus.Tiers {
		if tier.WindowDays > period.WindowDays {
			continue
		}
		jobs := jobsIn(window, now, tier.WindowDays)
		if len(jobs) < tier.MinJobs {
			continue
		}
		avg := averageRating(jobs)
		if avg+ratingEpsilon < tier.MinRating {
			continue
		}
		res.Eligible = true
		res.Tier = tier.Level
		res.Amount = tier.Amount
		res.AverageRating = avg
		res.Reason = ReasonEligible
		return res
	}

	res.Reason = ReasonRatingTooLow
	return res
}

func jobsIn(jobs []model.CompletedJobRecord, now time.Time, days int) []model.CompletedJobRecord {
	var out []model.CompletedJobRecord
	for i := range jobs {
		if model.InWindow(jobs[i].CompletedAt, now, days) {
			out = append(out, jobs[i])
		}
	}
	return out
}

func averageRating(jobs []model.CompletedJobRecord) float64 {
	if len(jobs) == 0 {
		return 0
	}
	var sum float64
	for i := range jobs {
		sum += jobs[i].CustomerRating
	}
	return sum / float64(len(jobs))
}
