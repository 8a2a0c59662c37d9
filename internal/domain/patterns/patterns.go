// Package patterns detects takeover anomalies across historical jobs:
// light-assistance padding, complaints after light assists, and repeated
// full takeovers of the same worker.
package patterns

import (
	"fmt"
	"sort"
	"time"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
)

// Kind names a detector.
type Kind string

// Detector kinds.
const (
	KindLightAssistanceAbuse Kind = "light_assistance_abuse"
	KindComplaintCorrelation Kind = "complaint_correlation"
	KindRepeatTakeover       Kind = "repeat_takeover"
)

// Flag is one detected anomaly.
type Flag struct {
	Kind            Kind           `json:"kind"`
	Severity        model.Severity `json:"severity"`
	LeadID          string         `json:"lead_id,omitempty"`
	WorkerID        string         `json:"worker_id,omitempty"`
	JobIDs          []string       `json:"job_ids"`
	Count           int            `json:"count"`
	HoldSharedScore bool           `json:"hold_shared_score,omitempty"`
	Reason          string         `json:"reason"`
}

// Report collects the output of every detector.
type Report struct {
	Flags []Flag `json:"flags"`
	// HoldSharedScore is set while any flag asks for the shared
	// performance score to be withheld pending review.
	HoldSharedScore bool `json:"hold_shared_score"`
}

// Detect runs all detectors over jobs.
func Detect(r rules.Rules, jobs []model.CompletedJobRecord, now time.Time) Report {
	var flags []Flag
	flags = append(flags, LightAssistanceAbuse(r, jobs)...)
	flags = append(flags, ComplaintCorrelation(r, jobs)...)
	flags = append(flags, RepeatTakeovers(r, jobs, now)...)

	rep := Report{Flags: flags}
	for _, f := range flags {
		if f.HoldSharedScore {
			rep.HoldSharedScore = true
			break
		}
	}
	if rep.Flags == nil {
		rep.Flags = []Flag{}
	}
	return rep
}

// LightAssistanceAbuse flags leads who repeatedly log light assists at exactly
// the light-assistance ceiling, which keeps them under the partial threshold.
// One flag per lead, ordered by lead ID.
func LightAssistanceAbuse(r rules.Rules, jobs []model.CompletedJobRecord) []Flag {
	p := r.Patterns
	byLead := map[string][]string{}
	for i := range jobs {
		j := &jobs[i]
		if j.AssistanceTimeMinutes != p.LightAbuseAssistMinutes {
			continue
		}
		if takeover.CategoryOf(r, j) != model.CategoryLight {
			continue
		}
		byLead[j.LeadID] = append(byLead[j.LeadID], j.JobID)
	}

	var flags []Flag
	for _, lead := range sortedKeys(byLead) {
		ids := byLead[lead]
		if len(ids) < p.LightAbuseMinOccurrences {
			continue
		}
		flags = append(flags, Flag{
			Kind:     KindLightAssistanceAbuse,
			Severity: model.SeverityReview,
			LeadID:   lead,
			JobIDs:   ids,
			Count:    len(ids),
			Reason: fmt.Sprintf("%d light assists logged at exactly %.0f minutes",
				len(ids), p.LightAbuseAssistMinutes),
		})
	}
	return flags
}

// ComplaintCorrelation flags every light takeover whose job later drew a
// customer complaint at or above the configured severity. These flags hold
// the shared performance score until resolved.
func ComplaintCorrelation(r rules.Rules, jobs []model.CompletedJobRecord) []Flag {
	var flags []Flag
	for i := range jobs {
		j := &jobs[i]
		if j.CustomerComplaint == nil || j.CustomerComplaint.Severity < r.Patterns.ComplaintMinSeverity {
			continue
		}
		if takeover.CategoryOf(r, j) != model.CategoryLight {
			continue
		}
		flags = append(flags, Flag{
			Kind:            KindComplaintCorrelation,
			Severity:        model.SeverityReview,
			LeadID:          j.LeadID,
			WorkerID:        j.OriginalBubblerID,
			JobIDs:          []string{j.JobID},
			Count:           1,
			HoldSharedScore: true,
			Reason: fmt.Sprintf("severity %d complaint after a light takeover",
				j.CustomerComplaint.Severity),
		})
	}
	return flags
}

// RepeatTakeovers flags workers who had more than the allowed number of full
// takeovers in the trailing window. This points at training or pairing, not
// at the worker alone, so the severity is a warning.
func RepeatTakeovers(r rules.Rules, jobs []model.CompletedJobRecord, now time.Time) []Flag {
	p := r.Patterns
	byWorker := map[string][]string{}
	for i := range jobs {
		j := &jobs[i]
		if takeover.CategoryOf(r, j) != model.CategoryFull {
			continue
		}
		if !model.InWindow(occurredAt(j), now, p.RepeatWindowDays) {
			continue
		}
		byWorker[j.OriginalBubblerID] = append(byWorker[j.OriginalBubblerID], j.JobID)
	}

	var flags []Flag
	for _, worker := range sortedKeys(byWorker) {
		ids := byWorker[worker]
		if len(ids) <= p.RepeatMaxFullTakeovers {
			continue
		}
		flags = append(flags, Flag{
			Kind:     KindRepeatTakeover,
			Severity: model.SeverityWarning,
			WorkerID: worker,
			JobIDs:   ids,
			Count:    len(ids),
			Reason:   fmt.Sprintf("%d full takeovers in %d days", len(ids), p.RepeatWindowDays),
		})
	}
	return flags
}

func occurredAt(j *model.CompletedJobRecord) time.Time {
	if !j.OccurredAt.IsZero() {
		return j.OccurredAt
	}
	return j.CompletedAt
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
