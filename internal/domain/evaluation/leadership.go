package evaluation

import (
	"time"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
)

// Leadership computes the oversight metrics and leadership score of a lead.
func Leadership(r rules.Rules, now time.Time, oversight []model.CompletedJobRecord, checkIns []model.CheckInRecord, ratings []model.LeadRating) model.LeadershipMetrics {
	e := r.Evaluation
	m := model.LeadershipMetrics{CheckInTarget: e.CheckInTarget}

	var ratingSum float64
	for i := range checkIns {
		at := checkIns[i].CheckInDate
		if model.InWindow(at, now, e.RatingWindowDays) {
			m.CheckIns14d++
			if checkIns[i].CustomerRating > 0 {
				ratingSum += checkIns[i].CustomerRating
				m.RatedCheckIns++
			}
		}
		if model.InWindow(at, now, e.WeeklyWindowDays) {
			m.WeeklyCheckIns++
		}
		if model.InWindow(at, now, e.BubblerRatingWindowDays) {
			m.CheckIns30d++
		}
	}
	if m.RatedCheckIns > 0 {
		m.AverageRating = ratingSum / float64(m.RatedCheckIns)
	}

	var uplifted int
	for i := range oversight {
		j := &oversight[i]
		if !model.InWindow(j.CompletedAt, now, e.RatingWindowDays) {
			continue
		}
		m.OversightJobs++
		if j.QualityUplift {
			uplifted++
			if takeover.CategoryOf(r, j) == model.CategoryLight {
				m.TakeoversAvoided++
			}
		}
	}
	if m.OversightJobs > 0 {
		m.QualityUpliftPct = float64(uplifted) / float64(m.OversightJobs) * 100
	}

	var leadSum float64
	for i := range ratings {
		if !model.InWindow(ratings[i].SubmittedAt, now, e.BubblerRatingWindowDays) {
			continue
		}
		leadSum += ratings[i].Rating
		m.BubblerRatingCount++
		if ratings[i].Rating < e.LowBubblerRating {
			m.LowBubblerRatings++
		}
	}
	if m.BubblerRatingCount > 0 {
		m.BubblerRating = leadSum / float64(m.BubblerRatingCount)
	}

	w := e.Leadership
	m.Score = w.Rating.Apply(m.AverageRating) +
		w.TakeoversAvoided.Apply(float64(m.TakeoversAvoided)) +
		w.QualityUplift.Apply(m.QualityUpliftPct) +
		w.CheckIns.Apply(float64(m.WeeklyCheckIns)/float64(e.CheckInTarget)) +
		w.BubblerRating.Apply(m.BubblerRating)
	return m
}
