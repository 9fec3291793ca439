package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// BookingService keeps the booking mirror used by commissions and rankings.
type BookingService interface {
	// RecordBooking inserts or refreshes a booking by its reference.
	RecordBooking(ctx context.Context, r BookingRecord) (*Booking, error)
	GetBooking(ctx context.Context, bookingRef string) (*Booking, error)
	// OnBookingStatusChanged stores the new status and moves the booking's
	// commission along: confirmed or paid approves a pending commission,
	// cancelled cancels an unpaid one.
	OnBookingStatusChanged(ctx context.Context, bookingRef string, status BookingStatus) (*Booking, error)
}

type bookingService struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewBookingService(pool *pgxpool.Pool, log *zap.Logger) BookingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &bookingService{pool: pool, log: log}
}

func (s *bookingService) RecordBooking(ctx context.Context, r BookingRecord) (*Booking, error) {
	r.BookingRef = strings.TrimSpace(r.BookingRef)
	if r.BookingRef == "" {
		return nil, observeRejection(failf(ErrValidation, "booking reference is required"))
	}
	if r.Amount.IsNegative() {
		return nil, observeRejection(failf(ErrInvalidAmount, "booking amount cannot be negative"))
	}
	if r.Status == "" {
		r.Status = BookingPending
	}
	if !r.Status.Valid() {
		return nil, observeRejection(failf(ErrInvalidBookingStatus, "unknown booking status %q", r.Status))
	}
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if _, err := getAgency(ctx, s.pool, r.AgencyID, false); err != nil {
		return nil, observeRejection(err)
	}

	// booked_at falls back to NOW() and is never overwritten by a refresh.
	var bookedAt any
	if !r.BookedAt.IsZero() {
		bookedAt = r.BookedAt
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bookings (booking_ref, agency_id, amount, currency, product_category, destination, status, booked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8::timestamptz, NOW()))
		ON CONFLICT (booking_ref) DO UPDATE
		SET agency_id = EXCLUDED.agency_id,
		    amount = EXCLUDED.amount,
		    currency = EXCLUDED.currency,
		    product_category = EXCLUDED.product_category,
		    destination = EXCLUDED.destination,
		    status = EXCLUDED.status,
		    updated_at = NOW()
	`, r.BookingRef, r.AgencyID, r.Amount, r.Currency, normalizeFilter(r.ProductCategory),
		normalizeFilter(r.Destination), string(r.Status), bookedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record booking %s: %w", r.BookingRef, err)
	}
	return s.GetBooking(ctx, r.BookingRef)
}

const bookingSelect = `
	SELECT id, booking_ref, agency_id, amount, currency, product_category, destination, status, booked_at, updated_at
	FROM bookings`

func getBooking(ctx context.Context, q querier, ref string, forUpdate bool) (*Booking, error) {
	sql := bookingSelect + " WHERE booking_ref = $1"
	if forUpdate {
		sql += " FOR UPDATE"
	}
	var b Booking
	var status string
	err := q.QueryRow(ctx, sql, ref).Scan(&b.ID, &b.BookingRef, &b.AgencyID, &b.Amount, &b.Currency,
		&b.ProductCategory, &b.Destination, &status, &b.BookedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, failf(ErrBookingNotFound, "booking %s not found", ref)
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", ref, err)
	}
	b.Status = BookingStatus(status)
	return &b, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingRef string) (*Booking, error) {
	return getBooking(ctx, s.pool, strings.TrimSpace(bookingRef), false)
}

func (s *bookingService) OnBookingStatusChanged(ctx context.Context, bookingRef string, status BookingStatus) (*Booking, error) {
	bookingRef = strings.TrimSpace(bookingRef)
	if !status.Valid() {
		return nil, observeRejection(failf(ErrInvalidBookingStatus, "unknown booking status %q", status))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := getBooking(ctx, tx, bookingRef, true); err != nil {
		return nil, observeRejection(err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE bookings SET status = $1, updated_at = NOW() WHERE booking_ref = $2",
		string(status), bookingRef); err != nil {
		return nil, fmt.Errorf("failed to update booking %s: %w", bookingRef, err)
	}

	var commissionID int
	var current string
	err = tx.QueryRow(ctx,
		"SELECT id, status FROM commissions WHERE booking_ref = $1 FOR UPDATE", bookingRef).Scan(&commissionID, &current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// No commission recorded yet; nothing to follow.
	case err != nil:
		return nil, fmt.Errorf("failed to lock commission for booking %s: %w", bookingRef, err)
	default:
		if next, ok := commissionFollowUp(status, CommissionStatus(current)); ok {
			if err := setCommissionStatus(ctx, tx, commissionID, next); err != nil {
				return nil, err
			}
			s.log.Info("commission follows booking",
				zap.String("booking_ref", bookingRef),
				zap.String("booking_status", string(status)),
				zap.String("commission_status", string(next)))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetBooking(ctx, bookingRef)
}
