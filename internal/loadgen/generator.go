package loadgen

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/gogobubbles/leadops/internal/domain/model"
)

const bubblersPerLead = 8

// Generate builds n interventions spread over the given number of leads.
// The mix covers full, partial and light takeovers, including full
// takeovers past the highest compensation tier.
func Generate(n, leads int, seed uint64) []model.JobInterventionEvent {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ns := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "leadops-loadgen-%d", seed))
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	events := make([]model.JobInterventionEvent, n)
	for i := range events {
		lead := rng.IntN(leads)
		e := model.JobInterventionEvent{
			JobID:             uuid.NewSHA1(ns, fmt.Appendf(nil, "%d", i)).String(),
			LeadID:            fmt.Sprintf("lead-%03d", lead),
			OriginalBubblerID: fmt.Sprintf("bubbler-%03d-%d", lead, rng.IntN(bubblersPerLead)),
			PercentCompleted:  float64(rng.IntN(101)),
			JobAmount:         float64(30 + rng.IntN(91)),
			OccurredAt:        base.Add(time.Duration(i) * time.Minute),
		}
		switch rng.IntN(3) {
		case 0: // abandoned or long assist
			e.BubblerLeftSite = rng.IntN(2) == 0
			e.AssistanceTimeMinutes = float64(20 + rng.IntN(60))
		case 1: // rework
			e.TasksRedone = model.TasksRedone{
				Minor:    rng.IntN(5),
				Moderate: rng.IntN(3),
				Major:    rng.IntN(2),
			}
			e.AssistanceTimeMinutes = float64(5 + rng.IntN(25))
		default: // quick touch-up
			e.AssistanceTimeMinutes = float64(rng.IntN(15))
		}
		events[i] = e
	}
	return events
}
