package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgencyStatus is the agency lifecycle state. Agencies are never hard-deleted;
// Deleted is a terminal state.
type AgencyStatus string

const (
	AgencyPending   AgencyStatus = "pending"
	AgencyActive    AgencyStatus = "active"
	AgencySuspended AgencyStatus = "suspended"
	AgencyInactive  AgencyStatus = "inactive"
	AgencyDeleted   AgencyStatus = "deleted"
)

var agencyTransitions = map[AgencyStatus][]AgencyStatus{
	AgencyPending:   {AgencyActive, AgencyInactive, AgencyDeleted},
	AgencyActive:    {AgencySuspended, AgencyInactive, AgencyDeleted},
	AgencySuspended: {AgencyActive, AgencyInactive, AgencyDeleted},
	AgencyInactive:  {AgencyActive, AgencyDeleted},
	AgencyDeleted:   nil,
}

// Valid reports whether s is a known lifecycle state.
func (s AgencyStatus) Valid() bool {
	_, ok := agencyTransitions[s]
	return ok
}

// CanTransitionTo reports whether s → next is an allowed lifecycle move.
func (s AgencyStatus) CanTransitionTo(next AgencyStatus) bool {
	for _, allowed := range agencyTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RevokesAccess reports whether entering s must deactivate the agency's users
// and drop their sessions.
func (s AgencyStatus) RevokesAccess() bool {
	return s == AgencySuspended || s == AgencyInactive || s == AgencyDeleted
}

// Agency is a travel agency account holder. CommissionRate is the fallback
// percentage used when no commission rule matches; nil or zero means no default.
type Agency struct {
	ID             int             `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Status         AgencyStatus    `json:"status"`
	CreatedBy      *int            `json:"created_by,omitempty"`
	UpdatedBy      *int            `json:"updated_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AgencyUser is a login belonging to an agency. Credentials live with the
// authentication layer; this core only tracks membership and activation.
type AgencyUser struct {
	ID        int       `json:"id"`
	AgencyID  int       `json:"agency_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAgencyInput is an agency application.
type CreateAgencyInput struct {
	Code           string
	Name           string
	Email          string
	CommissionRate *decimal.Decimal
	CreditLimit    decimal.Decimal
	CreatedBy      *int
}

// AgencyTermsUpdate carries optional changes to commercial terms.
type AgencyTermsUpdate struct {
	Name           *string
	Email          *string
	CommissionRate *decimal.Decimal
	CreditLimit    *decimal.Decimal
}
