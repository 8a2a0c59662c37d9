package evaluation

import (
	"math"
	"sort"
	"time"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
)

// Personal computes the metrics and score of the jobs a lead performed
// personally. Rates use the most recent jobs completed at or before now;
// complaints use the whole complaint window.
func Personal(r rules.Rules, now time.Time, jobs []model.CompletedJobRecord) model.PersonalMetrics {
	e := r.Evaluation
	var m model.PersonalMetrics

	recent := make([]model.CompletedJobRecord, 0, len(jobs))
	for i := range jobs {
		if !jobs[i].CompletedAt.After(now) {
			recent = append(recent, jobs[i])
		}
		if c := jobs[i].CustomerComplaint; c != nil && model.InWindow(jobs[i].CompletedAt, now, e.ComplaintWindowDays) {
			m.Complaints30d++
			if c.Severity >= e.FlaggedComplaintSeverity {
				m.FlaggedComplaints++
			}
		}
	}
	sort.SliceStable(recent, func(a, b int) bool {
		return recent[a].CompletedAt.After(recent[b].CompletedAt)
	})
	if len(recent) > e.PersonalJobCount {
		recent = recent[:e.PersonalJobCount]
	}

	m.JobsConsidered = len(recent)
	if m.JobsConsidered > 0 {
		var ratingSum float64
		var onTime, completed int
		for i := range recent {
			ratingSum += recent[i].CustomerRating
			if recent[i].Timeliness == model.TimelinessOnTime {
				onTime++
			}
			if recent[i].CompletionStatus == model.CompletionCompleted && !recent[i].LeftEarly {
				completed++
			}
		}
		n := float64(m.JobsConsidered)
		m.AverageRating = ratingSum / n
		m.OnTimeRate = float64(onTime) / n * 100
		m.CompletionRate = float64(completed) / n * 100
	}

	w := e.Personal
	score := w.Rating.Apply(m.AverageRating) +
		w.OnTime.Apply(m.OnTimeRate) +
		w.Completion.Apply(m.CompletionRate) -
		w.ComplaintPenalty.Apply(float64(m.Complaints30d))
	m.Score = math.Max(score, 0)
	return m
}
