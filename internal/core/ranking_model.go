package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TierBand names the tier reached once a score is at least Threshold.
type TierBand struct {
	Name      string          `json:"name"`
	Threshold decimal.Decimal `json:"threshold"`
}

// RankingWeights weight the score components. They need not sum to one;
// the score is normalised by their total.
type RankingWeights struct {
	Revenue    decimal.Decimal `json:"revenue"`
	Volume     decimal.Decimal `json:"volume"`
	Conversion decimal.Decimal `json:"conversion"`
	Recency    decimal.Decimal `json:"recency"`
}

func (w RankingWeights) total() decimal.Decimal {
	return w.Revenue.Add(w.Volume).Add(w.Conversion).Add(w.Recency)
}

// RankingConfig parameterises the ranking calculation.
type RankingConfig struct {
	WindowMonths int
	Tiers        []TierBand // ascending by threshold
	Weights      RankingWeights
}

// DefaultRankingConfig is a 12 month window with bronze/silver/gold/platinum bands.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		WindowMonths: 12,
		Tiers: []TierBand{
			{Name: "bronze", Threshold: decimal.Zero},
			{Name: "silver", Threshold: decimal.NewFromInt(40)},
			{Name: "gold", Threshold: decimal.NewFromInt(60)},
			{Name: "platinum", Threshold: decimal.NewFromInt(80)},
		},
		Weights: RankingWeights{
			Revenue:    decimal.RequireFromString("0.40"),
			Volume:     decimal.RequireFromString("0.25"),
			Conversion: decimal.RequireFromString("0.20"),
			Recency:    decimal.RequireFromString("0.15"),
		},
	}
}

// AgencyActivity is one agency's aggregated booking activity in the window.
type AgencyActivity struct {
	AgencyID        int
	AgencyCode      string
	AgencyName      string
	Revenue         decimal.Decimal
	Bookings        int
	Confirmed       int
	CommissionTotal decimal.Decimal
	LastBookingAt   *time.Time
}

// AgencyRanking is one row of the ranking snapshot.
type AgencyRanking struct {
	AgencyID        int             `json:"agency_id"`
	AgencyCode      string          `json:"agency_code"`
	AgencyName      string          `json:"agency_name"`
	Rank            int             `json:"rank"`
	Score           decimal.Decimal `json:"score"`
	Tier            string          `json:"tier"`
	Revenue         decimal.Decimal `json:"revenue"`
	BookingCount    int             `json:"booking_count"`
	ConfirmedCount  int             `json:"confirmed_count"`
	ConversionRate  decimal.Decimal `json:"conversion_rate"`
	CommissionTotal decimal.Decimal `json:"commission_total"`
	LastBookingAt   *time.Time      `json:"last_booking_at,omitempty"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	CalculatedAt    time.Time       `json:"calculated_at"`
}

// RankingReport summarises the current snapshot set.
type RankingReport struct {
	CalculatedAt     *time.Time      `json:"calculated_at,omitempty"`
	AgencyCount      int             `json:"agency_count"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TierDistribution map[string]int  `json:"tier_distribution"`
	Rankings         []AgencyRanking `json:"rankings"`
}
