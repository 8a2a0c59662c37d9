package takeover

import (
	"fmt"
	"math"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
)

// Compensate computes the payout split for a classified takeover. A
// non-positive jobAmount falls back to the configured base payout.
func Compensate(r rules.Rules, category model.Category, percent, jobAmount float64) (model.CompensationResult, error) {
	if jobAmount <= 0 {
		jobAmount = r.Compensation.BasePayout
	}

	switch category {
	case model.CategoryFull:
		return compensateFull(r.Compensation, percent, jobAmount)
	case model.CategoryPartial:
		return compensatePartial(r.Compensation, percent, jobAmount), nil
	case model.CategoryLight:
		return model.CompensationResult{
			Category:              model.CategoryLight,
			JobAmount:             roundCents(jobAmount),
			OriginalBubblerPayout: roundCents(jobAmount),
		}, nil
	default:
		return model.CompensationResult{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
}

// compensateFull pays the lead a fixed tier amount out of the job and has the
// company fund the hustle bonus on top. Tiers are keyed by whole percent.
func compensateFull(c rules.CompensationRules, percent, jobAmount float64) (model.CompensationResult, error) {
	percent = math.Floor(percent)
	tier, ok := c.FullTier(percent)
	if !ok {
		n := len(c.FullTiers)
		if n == 0 || c.FullOverflow != rules.OverflowClamp || percent < c.FullTiers[n-1].MaxPercent {
			return model.CompensationResult{}, fmt.Errorf("%w: full takeover at %.0f%% complete", ErrNoCompensationTier, percent)
		}
		tier = c.FullTiers[n-1]
	}

	leadPay := math.Min(tier.LeadPay, jobAmount)
	return model.CompensationResult{
		Category:              model.CategoryFull,
		JobAmount:             roundCents(jobAmount),
		LeadPayout:            roundCents(leadPay),
		Bonus:                 roundCents(tier.Bonus),
		OverrideHourly:        true,
		OriginalBubblerPayout: roundCents(jobAmount - leadPay),
		TotalCompanyCost:      roundCents(tier.Bonus),
		CompanyBonusCost:      roundCents(tier.Bonus),
	}, nil
}

// compensatePartial splits the job by completion and charges the bonus to the
// original worker's share. PenaltyTransfer reports the full bonus charged;
// the lead only receives what the original worker actually earned, so the
// job amount is never overspent.
func compensatePartial(c rules.CompensationRules, percent, jobAmount float64) model.CompensationResult {
	bonus := clamp(jobAmount*c.PartialBonusRate, c.PartialBonusMin, c.PartialBonusMax)
	originalPayout := jobAmount * percent / 100
	leadBase := jobAmount - originalPayout
	finalOriginal := math.Max(originalPayout-bonus, 0)

	return model.CompensationResult{
		Category:              model.CategoryPartial,
		JobAmount:             roundCents(jobAmount),
		LeadPayout:            roundCents(leadBase + originalPayout - finalOriginal),
		Bonus:                 roundCents(bonus),
		OriginalBubblerPayout: roundCents(finalOriginal),
		PenaltyTransfer:       roundCents(bonus),
		OriginalPayout:        roundCents(originalPayout),
		LeadBasePayout:        roundCents(leadBase),
	}
}

// Settle classifies an event and prices it in one step.
func Settle(r rules.Rules, e *model.JobInterventionEvent) (model.Category, model.CompensationResult, error) {
	category := Classify(r, SignalsOf(e))
	result, err := Compensate(r, category, e.PercentCompleted, e.JobAmount)
	if err != nil {
		return category, model.CompensationResult{}, err
	}
	return category, result, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
