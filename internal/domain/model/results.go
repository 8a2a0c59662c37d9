package model

import "time"

// CompensationResult is the payout split produced for one takeover.
// Currency amounts are rounded to cents.
type CompensationResult struct {
	Category              Category `json:"category"`
	JobAmount             float64  `json:"job_amount"`
	LeadPayout            float64  `json:"lead_payout"`
	Bonus                 float64  `json:"bonus"`
	OverrideHourly        bool     `json:"override_hourly"`
	OriginalBubblerPayout float64  `json:"original_bubbler_payout"`
	TotalCompanyCost      float64  `json:"total_company_cost"`
	CompanyBonusCost      float64  `json:"company_bonus_cost"`
	PenaltyTransfer       float64  `json:"penalty_transfer"`

	// Partial takeovers only: the original worker's share before the
	// transfer and the lead's share of the remaining work.
	OriginalPayout float64 `json:"original_payout,omitempty"`
	LeadBasePayout float64 `json:"lead_base_payout,omitempty"`
}

// Severity grades a strike.
type Severity string

// Strike severities, least to most serious.
const (
	SeverityWarning    Severity = "warning"
	SeverityReview     Severity = "review"
	SeveritySuspension Severity = "suspension"
)

// Strike is one recorded performance violation.
type Strike struct {
	Type     string   `json:"type"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

// Status is the disciplinary or performance standing of a lead.
type Status string

// Lead statuses. Strike-driven statuses take precedence over score-driven ones.
const (
	StatusSuspended        Status = "suspended"
	StatusDemoted          Status = "demoted"
	StatusWarning          Status = "warning"
	StatusExcellent        Status = "excellent"
	StatusGood             Status = "good"
	StatusSatisfactory     Status = "satisfactory"
	StatusNeedsImprovement Status = "needs_improvement"
)

// LeadershipMetrics aggregates a lead's oversight performance.
type LeadershipMetrics struct {
	AverageRating      float64 `json:"average_rating"` // customer rating over check-ins, 14d
	RatedCheckIns      int     `json:"rated_check_ins"`
	TakeoversAvoided   int     `json:"takeovers_avoided"` // light saves with quality uplift, 14d
	QualityUpliftPct   float64 `json:"quality_uplift_pct"`
	OversightJobs      int     `json:"oversight_jobs"`
	WeeklyCheckIns     int     `json:"weekly_check_ins"`
	CheckInTarget      int     `json:"check_in_target"`
	CheckIns14d        int     `json:"check_ins_14d"`
	CheckIns30d        int     `json:"check_ins_30d"`
	BubblerRating      float64 `json:"bubbler_rating"` // bubbler-to-lead average, 30d
	BubblerRatingCount int     `json:"bubbler_rating_count"`
	LowBubblerRatings  int     `json:"low_bubbler_ratings"`
	Score              float64 `json:"score"`
}

// PersonalMetrics aggregates a lead's own job performance.
type PersonalMetrics struct {
	JobsConsidered    int     `json:"jobs_considered"`
	AverageRating     float64 `json:"average_rating"`
	OnTimeRate        float64 `json:"on_time_rate"`    // percent
	CompletionRate    float64 `json:"completion_rate"` // percent, early departures excluded
	Complaints30d     int     `json:"complaints_30d"`
	FlaggedComplaints int     `json:"flagged_complaints"`
	Score             float64 `json:"score"`
}

// LeadEvaluation is the full evaluation of one lead at one point in time.
type LeadEvaluation struct {
	LeadID          string            `json:"lead_id"`
	EvaluatedAt     time.Time         `json:"evaluated_at"`
	Leadership      LeadershipMetrics `json:"leadership"`
	Personal        PersonalMetrics   `json:"personal"`
	OverallScore    int               `json:"overall_score"`
	Strikes         []Strike          `json:"strikes"`
	Status          Status            `json:"status"`
	Recommendations []string          `json:"recommendations"`
}

// StaffingTier is the crew size selected for a job.
type StaffingTier string

// Staffing tiers.
const (
	StaffingSolo StaffingTier = "solo"
	StaffingDual StaffingTier = "dual"
	StaffingTeam StaffingTier = "team"
)
