// Package rules holds the immutable rule tables that drive the takeover,
// bonus, evaluation and staffing engines.
//
// A Rules value is passed by value into every engine function. Engine code
// never writes to it; callers that need an alternate table build one with
// Default() and override fields before use.
package rules

import (
	"fmt"
	"math"
)

// Full takeover overflow policies.
const (
	OverflowReject = "reject"
	OverflowClamp  = "clamp"
)

// Bonus periods.
const (
	PeriodWeek     = "week"
	PeriodTwoWeeks = "2weeks"
)

// Rules is the complete rule set for one deployment.
type Rules struct {
	Classifier   ClassifierRules   `koanf:"classifier" json:"classifier"`
	Compensation CompensationRules `koanf:"compensation" json:"compensation"`
	Patterns     PatternRules      `koanf:"patterns" json:"patterns"`
	Bonus        BonusRules        `koanf:"bonus" json:"bonus"`
	Evaluation   EvaluationRules   `koanf:"evaluation" json:"evaluation"`
	Staffing     StaffingRules     `koanf:"staffing" json:"staffing"`
}

// ClassifierRules are the thresholds separating full, partial and light takeovers.
type ClassifierRules struct {
	FullMaxPercent       float64 `koanf:"full_max_percent" json:"full_max_percent"`
	AbandonAssistMinutes float64 `koanf:"abandon_assist_minutes" json:"abandon_assist_minutes"`
	PartialMinMinor      int     `koanf:"partial_min_minor" json:"partial_min_minor"`
	PartialMinModerate   int     `koanf:"partial_min_moderate" json:"partial_min_moderate"`
	PartialMinMajor      int     `koanf:"partial_min_major" json:"partial_min_major"`
}

// FullTier is one inclusive completion range of the full takeover pay table.
type FullTier struct {
	MinPercent float64 `koanf:"min_percent" json:"min_percent"`
	MaxPercent float64 `koanf:"max_percent" json:"max_percent"`
	LeadPay    float64 `koanf:"lead_pay" json:"lead_pay"`
	Bonus      float64 `koanf:"bonus" json:"bonus"`
}

// CompensationRules drive the payout split for each category.
type CompensationRules struct {
	BasePayout       float64    `koanf:"base_payout" json:"base_payout"`
	FullTiers        []FullTier `koanf:"full_tiers" json:"full_tiers"`
	FullOverflow     string     `koanf:"full_overflow" json:"full_overflow"`
	PartialBonusRate float64    `koanf:"partial_bonus_rate" json:"partial_bonus_rate"`
	PartialBonusMin  float64    `koanf:"partial_bonus_min" json:"partial_bonus_min"`
	PartialBonusMax  float64    `koanf:"partial_bonus_max" json:"partial_bonus_max"`
}

// FullTier returns the tier whose inclusive range contains percent.
func (c CompensationRules) FullTier(percent float64) (FullTier, bool) {
	for _, t := range c.FullTiers {
		if percent >= t.MinPercent && percent <= t.MaxPercent {
			return t, true
		}
	}
	return FullTier{}, false
}

// PatternRules are the anomaly detector thresholds.
type PatternRules struct {
	LightAbuseAssistMinutes  float64 `koanf:"light_abuse_assist_minutes" json:"light_abuse_assist_minutes"`
	LightAbuseMinOccurrences int     `koanf:"light_abuse_min_occurrences" json:"light_abuse_min_occurrences"`
	ComplaintMinSeverity     int     `koanf:"complaint_min_severity" json:"complaint_min_severity"`
	RepeatWindowDays         int     `koanf:"repeat_window_days" json:"repeat_window_days"`
	RepeatMaxFullTakeovers   int     `koanf:"repeat_max_full_takeovers" json:"repeat_max_full_takeovers"`
}

// BonusPeriod is an evaluation window for the bonus accelerator.
type BonusPeriod struct {
	Name       string `koanf:"name" json:"name"`
	WindowDays int    `koanf:"window_days" json:"window_days"`
	MinJobs    int    `koanf:"min_jobs" json:"min_jobs"`
}

// BonusTier is one leadership bonus level.
type BonusTier struct {
	Level      int     `koanf:"level" json:"level"`
	Amount     float64 `koanf:"amount" json:"amount"`
	MinRating  float64 `koanf:"min_rating" json:"min_rating"`
	WindowDays int     `koanf:"window_days" json:"window_days"`
	MinJobs    int     `koanf:"min_jobs" json:"min_jobs"`
}

// BonusRules lists periods and tiers. Tiers are ordered highest value first.
type BonusRules struct {
	Periods []BonusPeriod `koanf:"periods" json:"periods"`
	Tiers   []BonusTier   `koanf:"tiers" json:"tiers"`
}

// Period looks up a bonus period by name.
func (b BonusRules) Period(name string) (BonusPeriod, bool) {
	for _, p := range b.Periods {
		if p.Name == name {
			return p, true
		}
	}
	return BonusPeriod{}, false
}

// Component is one capped term of a weighted score: min(value*Factor, Cap).
type Component struct {
	Factor float64 `koanf:"factor" json:"factor"`
	Cap    float64 `koanf:"cap" json:"cap"`
}

// Apply returns value*Factor capped at Cap.
func (c Component) Apply(value float64) float64 {
	return math.Min(value*c.Factor, c.Cap)
}

// LeadershipWeights are the terms of the leadership score.
type LeadershipWeights struct {
	Rating           Component `koanf:"rating" json:"rating"`
	TakeoversAvoided Component `koanf:"takeovers_avoided" json:"takeovers_avoided"`
	QualityUplift    Component `koanf:"quality_uplift" json:"quality_uplift"`
	CheckIns         Component `koanf:"check_ins" json:"check_ins"`
	BubblerRating    Component `koanf:"bubbler_rating" json:"bubbler_rating"`
}

// PersonalWeights are the terms of the personal score.
type PersonalWeights struct {
	Rating           Component `koanf:"rating" json:"rating"`
	OnTime           Component `koanf:"on_time" json:"on_time"`
	Completion       Component `koanf:"completion" json:"completion"`
	ComplaintPenalty Component `koanf:"complaint_penalty" json:"complaint_penalty"`
}

// EvaluationRules drive the lead evaluation aggregator.
type EvaluationRules struct {
	LeadershipWeight float64 `koanf:"leadership_weight" json:"leadership_weight"`
	PersonalWeight   float64 `koanf:"personal_weight" json:"personal_weight"`

	RatingWindowDays        int `koanf:"rating_window_days" json:"rating_window_days"`
	WeeklyWindowDays        int `koanf:"weekly_window_days" json:"weekly_window_days"`
	BubblerRatingWindowDays int `koanf:"bubbler_rating_window_days" json:"bubbler_rating_window_days"`
	ComplaintWindowDays     int `koanf:"complaint_window_days" json:"complaint_window_days"`
	PersonalJobCount        int `koanf:"personal_job_count" json:"personal_job_count"`

	CheckInTarget            int     `koanf:"check_in_target" json:"check_in_target"`
	CheckInShortfall         int     `koanf:"check_in_shortfall" json:"check_in_shortfall"`
	LowBubblerRating         float64 `koanf:"low_bubbler_rating" json:"low_bubbler_rating"`
	LowBubblerRatingLimit    int     `koanf:"low_bubbler_rating_limit" json:"low_bubbler_rating_limit"`
	FlaggedComplaintSeverity int     `koanf:"flagged_complaint_severity" json:"flagged_complaint_severity"`
	FlaggedComplaintLimit    int     `koanf:"flagged_complaint_limit" json:"flagged_complaint_limit"`
	LeadershipRatingFloor    float64 `koanf:"leadership_rating_floor" json:"leadership_rating_floor"`
	PersonalRatingFloor      float64 `koanf:"personal_rating_floor" json:"personal_rating_floor"`
	DemotionStrikes          int     `koanf:"demotion_strikes" json:"demotion_strikes"`

	ExcellentScore    int     `koanf:"excellent_score" json:"excellent_score"`
	GoodScore         int     `koanf:"good_score" json:"good_score"`
	SatisfactoryScore int     `koanf:"satisfactory_score" json:"satisfactory_score"`
	BubblerRatingGoal float64 `koanf:"bubbler_rating_goal" json:"bubbler_rating_goal"`
	OnTimeGoal        float64 `koanf:"on_time_goal" json:"on_time_goal"`
	CompletionGoal    float64 `koanf:"completion_goal" json:"completion_goal"`

	Leadership LeadershipWeights `koanf:"leadership" json:"leadership"`
	Personal   PersonalWeights   `koanf:"personal" json:"personal"`
}

// StaffingRules drive crew sizing and task payouts.
type StaffingRules struct {
	SoloMaxMinutes          float64            `koanf:"solo_max_minutes" json:"solo_max_minutes"`
	LargeSoloMaxMinutes     float64            `koanf:"large_solo_max_minutes" json:"large_solo_max_minutes"`
	DualMaxMinutes          float64            `koanf:"dual_max_minutes" json:"dual_max_minutes"`
	LargeBedrooms           int                `koanf:"large_bedrooms" json:"large_bedrooms"`
	LargeBathrooms          int                `koanf:"large_bathrooms" json:"large_bathrooms"`
	TeamSize                int                `koanf:"team_size" json:"team_size"`
	PetMultiplier           float64            `koanf:"pet_multiplier" json:"pet_multiplier"`
	LargePropertyMultiplier float64            `koanf:"large_property_multiplier" json:"large_property_multiplier"`
	CrewMultiplier          float64            `koanf:"crew_multiplier" json:"crew_multiplier"`
	TaskRates               map[string]float64 `koanf:"task_rates" json:"task_rates"`
	PetExemptTasks          []string           `koanf:"pet_exempt_tasks" json:"pet_exempt_tasks"`
	PropertyServices        []string           `koanf:"property_services" json:"property_services"`
}

// PetExempt reports whether the pet multiplier is skipped for task.
func (s StaffingRules) PetExempt(task string) bool {
	return contains(s.PetExemptTasks, task)
}

// PropertyBased reports whether the service type is priced by property size.
func (s StaffingRules) PropertyBased(serviceType string) bool {
	return contains(s.PropertyServices, serviceType)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Validate checks the internal consistency of the rule set.
func (r Rules) Validate() error {
	c := r.Compensation
	if len(c.FullTiers) == 0 {
		return fmt.Errorf("%w: no full takeover tiers", ErrInvalidRules)
	}
	for i, t := range c.FullTiers {
		if t.MinPercent > t.MaxPercent {
			return fmt.Errorf("%w: full tier %d has min %.2f above max %.2f", ErrInvalidRules, i, t.MinPercent, t.MaxPercent)
		}
		if t.LeadPay < 0 || t.Bonus < 0 {
			return fmt.Errorf("%w: full tier %d has negative pay", ErrInvalidRules, i)
		}
		if i > 0 && t.MinPercent <= c.FullTiers[i-1].MaxPercent {
			return fmt.Errorf("%w: full tier %d overlaps tier %d", ErrInvalidRules, i, i-1)
		}
	}
	if c.FullOverflow != OverflowReject && c.FullOverflow != OverflowClamp {
		return fmt.Errorf("%w: unknown full_overflow %q", ErrInvalidRules, c.FullOverflow)
	}
	if c.BasePayout <= 0 {
		return fmt.Errorf("%w: base_payout must be positive", ErrInvalidRules)
	}
	if c.PartialBonusMin > c.PartialBonusMax {
		return fmt.Errorf("%w: partial bonus min above max", ErrInvalidRules)
	}

	for _, name := range []string{PeriodWeek, PeriodTwoWeeks} {
		if _, ok := r.Bonus.Period(name); !ok {
			return fmt.Errorf("%w: missing bonus period %q", ErrInvalidRules, name)
		}
	}
	for i := 1; i < len(r.Bonus.Tiers); i++ {
		if r.Bonus.Tiers[i].Amount > r.Bonus.Tiers[i-1].Amount {
			return fmt.Errorf("%w: bonus tiers must be ordered highest value first", ErrInvalidRules)
		}
	}

	e := r.Evaluation
	if math.Abs(e.LeadershipWeight+e.PersonalWeight-1) > 1e-9 {
		return fmt.Errorf("%w: evaluation weights must sum to 1", ErrInvalidRules)
	}
	if e.CheckInTarget <= 0 || e.PersonalJobCount <= 0 {
		return fmt.Errorf("%w: check_in_target and personal_job_count must be positive", ErrInvalidRules)
	}

	s := r.Staffing
	if s.LargeSoloMaxMinutes > s.SoloMaxMinutes || s.SoloMaxMinutes > s.DualMaxMinutes {
		return fmt.Errorf("%w: staffing thresholds must satisfy large_solo <= solo <= dual", ErrInvalidRules)
	}
	if s.TeamSize < 2 {
		return fmt.Errorf("%w: team_size must be at least 2", ErrInvalidRules)
	}
	if len(s.TaskRates) == 0 {
		return fmt.Errorf("%w: no task rates", ErrInvalidRules)
	}
	return nil
}
