package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// normalizeFilter trims a filter value; blank means wildcard.
func normalizeFilter(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// ValidateRule checks a rule definition before it is stored.
func ValidateRule(in CreateRuleInput) error {
	if !in.Type.Valid() {
		return failf(ErrInvalidRule, "unknown rule type %q", in.Type)
	}
	if in.Value.IsNegative() {
		return failf(ErrInvalidRule, "rule value cannot be negative")
	}
	if in.Type != RuleFixed && in.Value.GreaterThan(hundred) {
		return failf(ErrInvalidRule, "percentage value cannot exceed 100")
	}
	if in.EffectiveFrom.IsZero() {
		return failf(ErrInvalidRule, "effective_from is required")
	}
	if in.EffectiveUntil != nil && in.EffectiveUntil.Before(in.EffectiveFrom) {
		return failf(ErrInvalidRule, "effective_until is before effective_from")
	}
	if in.MinAmount != nil && in.MinAmount.IsNegative() {
		return failf(ErrInvalidRule, "min_amount cannot be negative")
	}
	if in.MinAmount != nil && in.MaxAmount != nil && in.MinAmount.GreaterThan(*in.MaxAmount) {
		return failf(ErrInvalidRule, "min_amount %s exceeds max_amount %s", in.MinAmount.String(), in.MaxAmount.String())
	}
	if len(in.Tiers) > 0 && in.Type != RuleTiered {
		return failf(ErrInvalidRule, "only tiered rules may define tiers")
	}
	return validateTiers(in.Tiers)
}

// validateTiers requires strictly ascending thresholds and non-decreasing
// rates, which keeps the payout non-decreasing in the booking amount.
func validateTiers(tiers []RuleTier) error {
	for i, t := range tiers {
		if t.Threshold.IsNegative() {
			return failf(ErrInvalidRule, "tier %d threshold cannot be negative", i+1)
		}
		if t.Rate.IsNegative() || t.Rate.GreaterThan(hundred) {
			return failf(ErrInvalidRule, "tier %d rate must be between 0 and 100", i+1)
		}
		if i > 0 {
			prev := tiers[i-1]
			if !t.Threshold.GreaterThan(prev.Threshold) {
				return failf(ErrInvalidRule, "tier thresholds must be strictly ascending")
			}
			if t.Rate.LessThan(prev.Rate) {
				return failf(ErrInvalidRule, "tier rates must not decrease as thresholds rise")
			}
		}
	}
	return nil
}

// Specificity counts the filter dimensions a rule pins down.
func Specificity(r *CommissionRule) int {
	n := 0
	if r.AgencyID != nil {
		n++
	}
	if r.ProductCategory != nil {
		n++
	}
	if r.Destination != nil {
		n++
	}
	return n
}

// RuleMatches reports whether r applies to booking b at time now.
func RuleMatches(r *CommissionRule, b BookingInput, now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if now.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveUntil != nil && now.After(*r.EffectiveUntil) {
		return false
	}
	if r.AgencyID != nil && *r.AgencyID != b.AgencyID {
		return false
	}
	if r.ProductCategory != nil && (b.ProductCategory == nil || *b.ProductCategory != *r.ProductCategory) {
		return false
	}
	if r.Destination != nil && (b.Destination == nil || *b.Destination != *r.Destination) {
		return false
	}
	if r.Type != RuleFixed {
		if r.MinAmount != nil && b.Amount.LessThan(*r.MinAmount) {
			return false
		}
		if r.MaxAmount != nil && b.Amount.GreaterThan(*r.MaxAmount) {
			return false
		}
	}
	return true
}

// ResolveRule picks the single best rule for b: most matched dimensions
// first, then latest effective_from, then highest id.
func ResolveRule(rules []CommissionRule, b BookingInput, now time.Time) (*CommissionRule, bool) {
	var candidates []*CommissionRule
	for i := range rules {
		if RuleMatches(&rules[i], b, now) {
			candidates = append(candidates, &rules[i])
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, c := candidates[i], candidates[j]
		if sa, sc := Specificity(a), Specificity(c); sa != sc {
			return sa > sc
		}
		if !a.EffectiveFrom.Equal(c.EffectiveFrom) {
			return a.EffectiveFrom.After(c.EffectiveFrom)
		}
		return a.ID > c.ID
	})
	return candidates[0], true
}

// TierRate returns the rate of the highest tier whose threshold is at most
// amount, or zero when amount is below every tier.
func TierRate(tiers []RuleTier, amount decimal.Decimal) decimal.Decimal {
	rate := decimal.Zero
	for _, t := range tiers {
		if amount.LessThan(t.Threshold) {
			break
		}
		rate = t.Rate
	}
	return rate
}

// ComputeCommission evaluates rule r on a booking amount, rounded to cents.
func ComputeCommission(r *CommissionRule, amount decimal.Decimal) decimal.Decimal {
	var v decimal.Decimal
	switch r.Type {
	case RulePercentage:
		v = amount.Mul(r.Value).Div(hundred)
	case RuleFixed:
		v = clampAmount(r.Value, r.MinAmount, r.MaxAmount)
	case RuleTiered:
		rate := r.Value
		if len(r.Tiers) > 0 {
			rate = TierRate(r.Tiers, amount)
		}
		v = amount.Mul(rate).Div(hundred)
	}
	return v.Round(2)
}

// DefaultCommission applies an agency's fallback percentage.
func DefaultCommission(rate, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(2)
}

func clampAmount(v decimal.Decimal, min, max *decimal.Decimal) decimal.Decimal {
	if min != nil && v.LessThan(*min) {
		v = *min
	}
	if max != nil && v.GreaterThan(*max) {
		v = *max
	}
	return v
}
