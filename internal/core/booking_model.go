package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus mirrors the booking subsystem's status for a reservation.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingPaid      BookingStatus = "paid"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingPaid, BookingCancelled:
		return true
	}
	return false
}

// Confirmed reports whether the booking counts as a conversion.
func (s BookingStatus) Confirmed() bool {
	return s == BookingConfirmed || s == BookingPaid
}

// Booking is the ledger's copy of a reservation, kept for commissions and rankings.
type Booking struct {
	ID              int             `json:"id"`
	BookingRef      string          `json:"booking_ref"`
	AgencyID        int             `json:"agency_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ProductCategory *string         `json:"product_category,omitempty"`
	Destination     *string         `json:"destination,omitempty"`
	Status          BookingStatus   `json:"status"`
	BookedAt        time.Time       `json:"booked_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BookingRecord is a booking fact pushed by the booking subsystem.
type BookingRecord struct {
	BookingRef      string
	AgencyID        int
	Amount          decimal.Decimal
	Currency        string
	ProductCategory *string
	Destination     *string
	Status          BookingStatus
	BookedAt        time.Time
}

// CommissionInput derives the commission request for this booking.
func (r BookingRecord) CommissionInput() BookingInput {
	return BookingInput{
		BookingRef:      r.BookingRef,
		AgencyID:        r.AgencyID,
		Amount:          r.Amount,
		ProductCategory: r.ProductCategory,
		Destination:     r.Destination,
		Currency:        r.Currency,
	}
}

// commissionFollowUp returns the commission status a booking status implies
// and whether the current commission status may move there.
func commissionFollowUp(booking BookingStatus, current CommissionStatus) (CommissionStatus, bool) {
	switch {
	case booking.Confirmed() && current == CommissionPending:
		return CommissionApproved, true
	case booking == BookingCancelled && current.CanTransitionTo(CommissionCancelled):
		return CommissionCancelled, true
	}
	return "", false
}
