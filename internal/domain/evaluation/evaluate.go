// Package evaluation aggregates leadership and personal performance into a
// scored, status-ranked lead evaluation.
package evaluation

import (
	"fmt"
	"math"
	"time"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
)

// Strike types.
const (
	StrikeLeadershipRating = "leadership_rating"
	StrikePersonalRating   = "personal_rating"
	StrikeComplaints       = "customer_complaints"
	StrikeCheckIns         = "check_in_shortfall"
	StrikeBubblerFeedback  = "bubbler_feedback"
)

// Input is everything known about one lead at evaluation time.
type Input struct {
	LeadID        string                     `json:"lead_id"`
	Now           time.Time                  `json:"now"`
	OversightJobs []model.CompletedJobRecord `json:"oversight_jobs"`
	CheckIns      []model.CheckInRecord      `json:"check_ins"`
	LeadRatings   []model.LeadRating         `json:"lead_ratings"`
	PersonalJobs  []model.CompletedJobRecord `json:"personal_jobs"`
}

// Evaluate scores a lead, assigns strikes and status, and lists
// recommendations. It is pure: the same input always yields the same result.
func Evaluate(r rules.Rules, in Input) model.LeadEvaluation {
	lead := Leadership(r, in.Now, in.OversightJobs, in.CheckIns, in.LeadRatings)
	personal := Personal(r, in.Now, in.PersonalJobs)

	overall := lead.Score*r.Evaluation.LeadershipWeight + personal.Score*r.Evaluation.PersonalWeight
	ev := model.LeadEvaluation{
		LeadID:       in.LeadID,
		EvaluatedAt:  in.Now,
		Leadership:   lead,
		Personal:     personal,
		OverallScore: int(math.Round(overall)),
	}
	ev.Strikes = Strikes(r, lead, personal)
	ev.Status = StatusOf(r, ev.OverallScore, ev.Strikes)
	ev.Recommendations = Recommendations(r, lead, personal)

	ev.Leadership.Score = round2(lead.Score)
	ev.Personal.Score = round2(personal.Score)
	return ev
}

// Strikes applies each violation rule independently. The result is never nil.
func Strikes(r rules.Rules, lead model.LeadershipMetrics, personal model.PersonalMetrics) []model.Strike {
	e := r.Evaluation
	strikes := []model.Strike{}

	if lead.RatedCheckIns > 0 && lead.AverageRating < e.LeadershipRatingFloor {
		strikes = append(strikes, model.Strike{
			Type:     StrikeLeadershipRating,
			Reason:   fmt.Sprintf("leadership rating %.2f below %.2f", lead.AverageRating, e.LeadershipRatingFloor),
			Severity: model.SeverityWarning,
		})
	}
	if personal.JobsConsidered > 0 && personal.AverageRating < e.PersonalRatingFloor {
		strikes = append(strikes, model.Strike{
			Type:     StrikePersonalRating,
			Reason:   fmt.Sprintf("personal rating %.2f below %.2f", personal.AverageRating, e.PersonalRatingFloor),
			Severity: model.SeverityReview,
		})
	}
	if personal.FlaggedComplaints >= e.FlaggedComplaintLimit {
		strikes = append(strikes, model.Strike{
			Type:     StrikeComplaints,
			Reason:   fmt.Sprintf("%d flagged complaints in %d days", personal.FlaggedComplaints, e.ComplaintWindowDays),
			Severity: model.SeveritySuspension,
		})
	}
	if minimum := e.CheckInTarget - e.CheckInShortfall; lead.WeeklyCheckIns < minimum {
		strikes = append(strikes, model.Strike{
			Type:     StrikeCheckIns,
			Reason:   fmt.Sprintf("%d check-ins this week, minimum %d", lead.WeeklyCheckIns, minimum),
			Severity: model.SeverityWarning,
		})
	}
	if lead.LowBubblerRatings >= e.LowBubblerRatingLimit {
		strikes = append(strikes, model.Strike{
			Type:     StrikeBubblerFeedback,
			Reason:   fmt.Sprintf("%d bubbler ratings below %.1f in %d days", lead.LowBubblerRatings, e.LowBubblerRating, e.BubblerRatingWindowDays),
			Severity: model.SeverityWarning,
		})
	}
	return strikes
}

// StatusOf ranks a lead. Strikes outrank the score.
func StatusOf(r rules.Rules, score int, strikes []model.Strike) model.Status {
	for _, s := range strikes {
		if s.Severity == model.SeveritySuspension {
			return model.StatusSuspended
		}
	}
	e := r.Evaluation
	switch {
	case len(strikes) >= e.DemotionStrikes:
		return model.StatusDemoted
	case len(strikes) > 0:
		return model.StatusWarning
	case score >= e.ExcellentScore:
		return model.StatusExcellent
	case score >= e.GoodScore:
		return model.StatusGood
	case score >= e.SatisfactoryScore:
		return model.StatusSatisfactory
	default:
		return model.StatusNeedsImprovement
	}
}

// Recommendations lists one action per missed threshold, in a fixed order.
func Recommendations(r rules.Rules, lead model.LeadershipMetrics, personal model.PersonalMetrics) []string {
	e := r.Evaluation
	recs := []string{}
	add := func(cond bool, format string, args ...any) {
		if cond {
			recs = append(recs, fmt.Sprintf(format, args...))
		}
	}

	add(lead.RatedCheckIns > 0 && lead.AverageRating < e.LeadershipRatingFloor,
		"Raise the average customer rating on overseen jobs to %.1f or higher", e.LeadershipRatingFloor)
	add(personal.JobsConsidered > 0 && personal.AverageRating < e.PersonalRatingFloor,
		"Raise the average customer rating on personal jobs to %.1f or higher", e.PersonalRatingFloor)
	add(personal.Complaints30d > 0,
		"Resolve the causes of %d customer complaints from the last %d days", personal.Complaints30d, e.ComplaintWindowDays)
	add(lead.WeeklyCheckIns < e.CheckInTarget,
		"Complete at least %d check-ins per week", e.CheckInTarget)
	add(lead.BubblerRatingCount > 0 && (lead.BubblerRating < e.BubblerRatingGoal || lead.LowBubblerRatings > 0),
		"Follow up on bubbler feedback to lift the team rating to %.1f or higher", e.BubblerRatingGoal)
	add(lead.TakeoversAvoided == 0,
		"Coach bubblers through light assists to avoid full takeovers")
	add(personal.JobsConsidered > 0 && personal.OnTimeRate < e.OnTimeGoal,
		"Start at least %.0f%% of personal jobs on time", e.OnTimeGoal)
	add(personal.JobsConsidered > 0 && personal.CompletionRate < e.CompletionGoal,
		"Complete at least %.0f%% of personal jobs without leaving early", e.CompletionGoal)
	return recs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
