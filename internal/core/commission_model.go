package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RulePercentage RuleType = "percentage"
	RuleFixed      RuleType = "fixed"
	RuleTiered     RuleType = "tiered"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	return t == RulePercentage || t == RuleFixed || t == RuleTiered
}

// CommissionRule maps bookings to a commission. Nil AgencyID, ProductCategory
// or Destination act as wildcards.
//
// MinAmount/MaxAmount clamp the payout of a fixed rule. For percentage and
// tiered rules they are the booking-amount window the rule applies to.
type CommissionRule struct {
	ID              int              `json:"id"`
	AgencyID        *int             `json:"agency_id,omitempty"`
	ProductCategory *string          `json:"product_category,omitempty"`
	Destination     *string          `json:"destination,omitempty"`
	Type            RuleType         `json:"type"`
	Value           decimal.Decimal  `json:"value"`
	EffectiveFrom   time.Time        `json:"effective_from"`
	EffectiveUntil  *time.Time       `json:"effective_until,omitempty"`
	MinAmount       *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount       *decimal.Decimal `json:"max_amount,omitempty"`
	Tiers           []RuleTier       `json:"tiers,omitempty"`
	IsActive        bool             `json:"is_active"`
	CreatedBy       *int             `json:"created_by,omitempty"`
	UpdatedBy       *int             `json:"updated_by,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// RuleTier is one bracket of a tiered rule: bookings of at least Threshold
// earn Rate percent.
type RuleTier struct {
	Threshold decimal.Decimal `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

// CreateRuleInput is the input for a new commission rule.
type CreateRuleInput struct {
	AgencyID        *int
	ProductCategory *string
	Destination     *string
	Type            RuleType
	Value           decimal.Decimal
	EffectiveFrom   time.Time
	EffectiveUntil  *time.Time
	MinAmount       *decimal.Decimal
	MaxAmount       *decimal.Decimal
	Tiers           []RuleTier
	CreatedBy       *int
}

// RuleUpdate carries optional rule changes. Tiers, when non-nil, replaces the
// full tier set. Filters (agency, category, destination) are not updatable;
// create a new rule instead.
type RuleUpdate struct {
	Value          *decimal.Decimal
	EffectiveFrom  *time.Time
	EffectiveUntil *time.Time
	MinAmount      *decimal.Decimal
	MaxAmount      *decimal.Decimal
	IsActive       *bool
	Tiers          []RuleTier
}

type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "pending"
	CommissionApproved  CommissionStatus = "approved"
	CommissionPaid      CommissionStatus = "paid"
	CommissionCancelled CommissionStatus = "cancelled"
)

var commissionTransitions = map[CommissionStatus][]CommissionStatus{
	CommissionPending:   {CommissionApproved, CommissionCancelled},
	CommissionApproved:  {CommissionPaid, CommissionCancelled},
	CommissionPaid:      nil,
	CommissionCancelled: nil,
}

// CanTransitionTo reports whether s → next is allowed.
func (s CommissionStatus) CanTransitionTo(next CommissionStatus) bool {
	for _, allowed := range commissionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Commission sources.
const (
	SourceRule          = "rule"
	SourceAgencyDefault = "agency_default"
)

// Commission is the commission owed to an agency for a booking.
type Commission struct {
	ID          int              `json:"id"`
	BookingRef  string           `json:"booking_ref"`
	AgencyID    int              `json:"agency_id"`
	RuleID      *int             `json:"rule_id,omitempty"`
	RuleType    RuleType         `json:"rule_type"`
	Source      string           `json:"source"`
	Specificity int              `json:"specificity"`
	BaseAmount  decimal.Decimal  `json:"base_amount"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency"`
	Status      CommissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ApprovedAt  *time.Time       `json:"approved_at,omitempty"`
	PaidAt      *time.Time       `json:"paid_at,omitempty"`
	CancelledAt *time.Time       `json:"cancelled_at,omitempty"`
}

// BookingInput describes the booking a commission is computed for.
type BookingInput struct {
	BookingRef      string
	AgencyID        int
	Amount          decimal.Decimal
	ProductCategory *string
	Destination     *string
	Currency        string
}
