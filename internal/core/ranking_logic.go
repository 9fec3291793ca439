package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validate checks window, tier ordering and weights.
func (c RankingConfig) Validate() error {
	if c.WindowMonths <= 0 {
		return failf(ErrValidation, "ranking window must be at least one month")
	}
	if len(c.Tiers) == 0 {
		return failf(ErrValidation, "at least one ranking tier is required")
	}
	for i, t := range c.Tiers {
		if strings.TrimSpace(t.Name) == "" {
			return failf(ErrValidation, "ranking tier %d has no name", i+1)
		}
		if i > 0 && !t.Threshold.GreaterThan(c.Tiers[i-1].Threshold) {
			return failf(ErrValidation, "ranking tier thresholds must be strictly ascending")
		}
	}
	w := c.Weights
	for _, v := range []decimal.Decimal{w.Revenue, w.Volume, w.Conversion, w.Recency} {
		if v.IsNegative() {
			return failf(ErrValidation, "ranking weights cannot be negative")
		}
	}
	if !w.total().IsPositive() {
		return failf(ErrValidation, "ranking weights must not all be zero")
	}
	return nil
}

// PeriodStart returns the start of the trailing window ending at asOf.
func (c RankingConfig) PeriodStart(asOf time.Time) time.Time {
	return asOf.AddDate(0, -c.WindowMonths, 0)
}

// TierFor returns the highest band whose threshold the score reaches. Scores
// below every band fall into the lowest one.
func (c RankingConfig) TierFor(score decimal.Decimal) string {
	if len(c.Tiers) == 0 {
		return ""
	}
	tier := c.Tiers[0].Name
	for _, t := range c.Tiers {
		if score.LessThan(t.Threshold) {
			break
		}
		tier = t.Name
	}
	return tier
}

// ratio returns n/d, or zero when d is zero.
func ratio(n, d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return n.Div(d)
}

// ScoreAgencies ranks activity rows as of asOf. Revenue and volume are scaled
// against the best agency in the cohort, conversion is confirmed over total
// bookings, and recency decays linearly to zero across the window. The
// result is ordered by score descending then agency code, ranks from 1.
func ScoreAgencies(acts []AgencyActivity, cfg RankingConfig, asOf time.Time) []AgencyRanking {
	start := cfg.PeriodStart(asOf)
	windowDays := decimal.NewFromInt(int64(DaysOverdue(start, asOf)))

	maxRevenue, maxVolume := decimal.Zero, decimal.Zero
	for _, a := range acts {
		if a.Revenue.GreaterThan(maxRevenue) {
			maxRevenue = a.Revenue
		}
		if v := decimal.NewFromInt(int64(a.Confirmed)); v.GreaterThan(maxVolume) {
			maxVolume = v
		}
	}

	w := cfg.Weights
	weightTotal := w.total()
	out := make([]AgencyRanking, 0, len(acts))
	for _, a := range acts {
		confirmed := decimal.NewFromInt(int64(a.Confirmed))
		conversion := ratio(confirmed, decimal.NewFromInt(int64(a.Bookings)))

		recency := decimal.Zero
		if a.LastBookingAt != nil && windowDays.IsPositive() {
			days := decimal.NewFromInt(int64(DaysOverdue(*a.LastBookingAt, asOf)))
			recency = decimal.Max(decimal.Zero, decimal.NewFromInt(1).Sub(days.Div(windowDays)))
		}

		weighted := w.Revenue.Mul(ratio(a.Revenue, maxRevenue)).
			Add(w.Volume.Mul(ratio(confirmed, maxVolume))).
			Add(w.Conversion.Mul(conversion)).
			Add(w.Recency.Mul(recency))
		score := ratio(weighted, weightTotal).Mul(hundred).Round(2)

		out = append(out, AgencyRanking{
			AgencyID:        a.AgencyID,
			AgencyCode:      a.AgencyCode,
			AgencyName:      a.AgencyName,
			Score:           score,
			Tier:            cfg.TierFor(score),
			Revenue:         a.Revenue,
			BookingCount:    a.Bookings,
			ConfirmedCount:  a.Confirmed,
			ConversionRate:  conversion.Round(4),
			CommissionTotal: a.CommissionTotal,
			LastBookingAt:   a.LastBookingAt,
			PeriodStart:     start,
			PeriodEnd:       asOf,
			CalculatedAt:    asOf,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Score.Cmp(out[j].Score); c != 0 {
			return c > 0
		}
		return out[i].AgencyCode < out[j].AgencyCode
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// summarizeRankings builds the report projection over a snapshot set.
func summarizeRankings(rows []AgencyRanking, cfg RankingConfig) *RankingReport {
	report := &RankingReport{
		AgencyCount:      len(rows),
		TotalRevenue:     decimal.Zero,
		TierDistribution: make(map[string]int, len(cfg.Tiers)),
		Rankings:         rows,
	}
	for _, t := range cfg.Tiers {
		report.TierDistribution[t.Name] = 0
	}
	for _, r := range rows {
		report.TierDistribution[r.Tier]++
		report.TotalRevenue = report.TotalRevenue.Add(r.Revenue)
		if report.CalculatedAt == nil {
			at := r.CalculatedAt
			report.CalculatedAt = &at
		}
	}
	if report.Rankings == nil {
		report.Rankings = []AgencyRanking{}
	}
	return report
}
