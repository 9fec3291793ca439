package app

import (
	"fmt"
	"strings"
	"time"

	"agency-ledger/internal/core"

	"github.com/shopspring/decimal"
)

// Requests carry primitive values (ISO dates, decimal strings) as they arrive
// from the HTTP or CLI layer. Actor is the authenticated user id and is never
// read from the request body.

// CreateAccountRequest is the input for CreateAccount.
type CreateAccountRequest struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ParentCode string `json:"parent_code"`
	Actor      *int   `json:"-"`
}

// EntryRequest is one journal line; exactly one of Debit/Credit is set.
type EntryRequest struct {
	AccountCode string `json:"account_code"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
}

// CreateTransactionRequest is the input for CreateTransaction.
type CreateTransactionRequest struct {
	Date        string         `json:"date"` // YYYY-MM-DD
	Description string         `json:"description"`
	Reference   string         `json:"reference"`
	Entries     []EntryRequest `json:"entries"`
	Post        bool           `json:"post"`
	Actor       *int           `json:"-"`
}

// InvoiceLineRequest is one invoice line.
type InvoiceLineRequest struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// CreateInvoiceRequest is the input for CreateInvoice.
type CreateInvoiceRequest struct {
	AgencyID  int                  `json:"agency_id"`
	IssueDate string               `json:"issue_date"`
	DueDate   string               `json:"due_date"`
	Lines     []InvoiceLineRequest `json:"lines"`
	Notes     string               `json:"notes"`
	AutoPost  bool                 `json:"auto_post"`
	Actor     *int                 `json:"-"`
}

// RecordPaymentRequest is the input for RecordPayment.
type RecordPaymentRequest struct {
	InvoiceID int    `json:"invoice_id"`
	Amount    string `json:"amount"`
	Method    string `json:"method"`
	Date      string `json:"date"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
	Actor     *int   `json:"-"`
}

// CreateAgencyRequest is an agency application.
type CreateAgencyRequest struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	CommissionRate string `json:"commission_rate"` // empty means no default rate
	CreditLimit    string `json:"credit_limit"`
	Actor          *int   `json:"-"`
}

// UpdateAgencyTermsRequest changes only the fields that are set.
type UpdateAgencyTermsRequest struct {
	AgencyID       int     `json:"-"`
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	CommissionRate *string `json:"commission_rate"`
	CreditLimit    *string `json:"credit_limit"`
	Actor          *int    `json:"-"`
}

// TierRequest is one bracket of a tiered rule.
type TierRequest struct {
	Threshold string `json:"threshold"`
	Rate      string `json:"rate"`
}

// CreateRuleRequest is the input for CreateRule.
type CreateRuleRequest struct {
	AgencyID        *int          `json:"agency_id"`
	ProductCategory string        `json:"product_category"`
	Destination     string        `json:"destination"`
	Type            string        `json:"type"`
	Value           string        `json:"value"`
	EffectiveFrom   string        `json:"effective_from"`
	EffectiveUntil  string        `json:"effective_until"`
	MinAmount       string        `json:"min_amount"`
	MaxAmount       string        `json:"max_amount"`
	Tiers           []TierRequest `json:"tiers"`
	Actor           *int          `json:"-"`
}

// UpdateRuleRequest changes only the fields that are set. A non-nil Tiers
// replaces the whole tier set.
type UpdateRuleRequest struct {
	RuleID         int           `json:"-"`
	Value          *string       `json:"value"`
	EffectiveFrom  *string       `json:"effective_from"`
	EffectiveUntil *string       `json:"effective_until"`
	MinAmount      *string       `json:"min_amount"`
	MaxAmount      *string       `json:"max_amount"`
	IsActive       *bool         `json:"is_active"`
	Tiers          []TierRequest `json:"tiers"`
	Actor          *int          `json:"-"`
}

// BookingRequest describes a booking for commission calculation or recording.
type BookingRequest struct {
	BookingRef      string `json:"booking_ref"`
	AgencyID        int    `json:"agency_id"`
	Amount          string `json:"amount"`
	ProductCategory string `json:"product_category"`
	Destination     string `json:"destination"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	BookedAt        string `json:"booked_at"` // RFC 3339 or YYYY-MM-DD
}

// ── Parsing ───────────────────────────────────────────────────────────────────

func invalid(format string, args ...any) error {
	return reject(core.ErrValidation, format, args...)
}

// reject builds a business error carrying base's kind and code.
func reject(base *core.Error, format string, args ...any) error {
	return &core.Error{Kind: base.Kind, Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, invalid("%s must be a YYYY-MM-DD date, got %q", field, s)
	}
	return t, nil
}

// parseOptionalDate returns nil for an empty string.
func parseOptionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseTimestamp accepts RFC 3339 or a bare date (midnight UTC).
func parseTimestamp(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, invalid("%s must be an RFC 3339 timestamp or YYYY-MM-DD date, got %q", field, s)
}

func parseOptionalTimestamp(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseTimestamp(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, invalid("%s must be a decimal number, got %q", field, s)
	}
	return d, nil
}

// parseAmountOrZero treats an empty string as zero.
func parseAmountOrZero(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return parseAmount(field, s)
}

func parseOptionalAmount(field, s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parseAmount(field, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func optionalString(s string) *string {
	if t := strings.TrimSpace(s); t != "" {
		return &t
	}
	return nil
}

func parseTiers(in []TierRequest) ([]core.RuleTier, error) {
	if in == nil {
		return nil, nil
	}
	tiers := make([]core.RuleTier, len(in))
	for i, t := range in {
		threshold, err := parseAmount(fmt.Sprintf("tiers[%d].threshold", i), t.Threshold)
		if err != nil {
			return nil, err
		}
		rate, err := parseAmount(fmt.Sprintf("tiers[%d].rate", i), t.Rate)
		if err != nil {
			return nil, err
		}
		tiers[i] = core.RuleTier{Threshold: threshold, Rate: rate}
	}
	return tiers, nil
}

func (r CreateTransactionRequest) toInput() (core.CreateTransactionInput, error) {
	date, err := parseDate("date", r.Date)
	if err != nil {
		return core.CreateTransactionInput{}, err
	}
	entries := make([]core.EntryInput, len(r.Entries))
	for i, e := range r.Entries {
		debit, err := parseAmountOrZero(fmt.Sprintf("entries[%d].debit", i), e.Debit)
		if err != nil {
			return core.CreateTransactionInput{}, err
		}
		credit, err := parseAmountOrZero(fmt.Sprintf("entries[%d].credit", i), e.Credit)
		if err != nil {
			return core.CreateTransactionInput{}, err
		}
		entries[i] = core.EntryInput{AccountCode: strings.TrimSpace(e.AccountCode), Debit: debit, Credit: credit}
	}
	return core.CreateTransactionInput{
		Date:        date,
		Description: r.Description,
		Reference:   r.Reference,
		Entries:     entries,
		CreatedBy:   r.Actor,
	}, nil
}

func (r CreateInvoiceRequest) toInput() (core.CreateInvoiceInput, error) {
	issue, err := parseDate("issue_date", r.IssueDate)
	if err != nil {
		return core.CreateInvoiceInput{}, err
	}
	due, err := parseDate("due_date", r.DueDate)
	if err != nil {
		return core.CreateInvoiceInput{}, err
	}
	lines := make([]core.InvoiceLineInput, len(r.Lines))
	for i, l := range r.Lines {
		qty, err := parseAmount(fmt.Sprintf("lines[%d].quantity", i), l.Quantity)
		if err != nil {
			return core.CreateInvoiceInput{}, err
		}
		price, err := parseAmount(fmt.Sprintf("lines[%d].unit_price", i), l.UnitPrice)
		if err != nil {
			return core.CreateInvoiceInput{}, err
		}
		lines[i] = core.InvoiceLineInput{Description: l.Description, Quantity: qty, UnitPrice: price}
	}
	return core.CreateInvoiceInput{
		AgencyID:  r.AgencyID,
		IssueDate: issue,
		DueDate:   due,
		Lines:     lines,
		Notes:     r.Notes,
		AutoPost:  r.AutoPost,
		CreatedBy: r.Actor,
	}, nil
}

// toInput leaves method and date checks to the core so that the amount is
// validated first, then the method, then the date.
func (r RecordPaymentRequest) toInput() (core.RecordPaymentInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return core.RecordPaymentInput{}, reject(core.ErrInvalidAmount, "amount must be a decimal number, got %q", r.Amount)
	}
	var date time.Time
	if strings.TrimSpace(r.Date) != "" {
		if date, err = parseDate("date", r.Date); err != nil {
			return core.RecordPaymentInput{}, err
		}
	}
	return core.RecordPaymentInput{
		InvoiceID: r.InvoiceID,
		Amount:    amount,
		Method:    core.PaymentMethod(strings.ToLower(strings.TrimSpace(r.Method))),
		Date:      date,
		Reference: r.Reference,
		Notes:     r.Notes,
		CreatedBy: r.Actor,
	}, nil
}

func (r CreateAgencyRequest) toInput() (core.CreateAgencyInput, error) {
	rate, err := parseOptionalAmount("commission_rate", r.CommissionRate)
	if err != nil {
		return core.CreateAgencyInput{}, err
	}
	limit, err := parseAmountOrZero("credit_limit", r.CreditLimit)
	if err != nil {
		return core.CreateAgencyInput{}, err
	}
	return core.CreateAgencyInput{
		Code:           r.Code,
		Name:           r.Name,
		Email:          r.Email,
		CommissionRate: rate,
		CreditLimit:    limit,
		CreatedBy:      r.Actor,
	}, nil
}

func (r UpdateAgencyTermsRequest) toUpdate() (core.AgencyTermsUpdate, error) {
	upd := core.AgencyTermsUpdate{Name: r.Name, Email: r.Email}
	if r.CommissionRate != nil {
		d, err := parseAmount("commission_rate", *r.CommissionRate)
		if err != nil {
			return upd, err
		}
		upd.CommissionRate = &d
	}
	if r.CreditLimit != nil {
		d, err := parseAmount("credit_limit", *r.CreditLimit)
		if err != nil {
			return upd, err
		}
		upd.CreditLimit = &d
	}
	return upd, nil
}

func (r CreateRuleRequest) toInput() (core.CreateRuleInput, error) {
	var in core.CreateRuleInput
	value, err := parseAmount("value", r.Value)
	if err != nil {
		return in, err
	}
	from, err := parseTimestamp("effective_from", r.EffectiveFrom)
	if err != nil {
		return in, err
	}
	until, err := parseOptionalTimestamp("effective_until", r.EffectiveUntil)
	if err != nil {
		return in, err
	}
	minAmt, err := parseOptionalAmount("min_amount", r.MinAmount)
	if err != nil {
		return in, err
	}
	maxAmt, err := parseOptionalAmount("max_amount", r.MaxAmount)
	if err != nil {
		return in, err
	}
	tiers, err := parseTiers(r.Tiers)
	if err != nil {
		return in, err
	}
	return core.CreateRuleInput{
		AgencyID:        r.AgencyID,
		ProductCategory: optionalString(r.ProductCategory),
		Destination:     optionalString(r.Destination),
		Type:            core.RuleType(strings.ToLower(strings.TrimSpace(r.Type))),
		Value:           value,
		EffectiveFrom:   from,
		EffectiveUntil:  until,
		MinAmount:       minAmt,
		MaxAmount:       maxAmt,
		Tiers:           tiers,
		CreatedBy:       r.Actor,
	}, nil
}

func (r UpdateRuleRequest) toUpdate() (core.RuleUpdate, error) {
	upd := core.RuleUpdate{IsActive: r.IsActive}
	var err error
	amt := func(field string, s *string) (*decimal.Decimal, error) {
		if s == nil {
			return nil, nil
		}
		d, err := parseAmount(field, *s)
		return &d, err
	}
	ts := func(field string, s *string) (*time.Time, error) {
		if s == nil {
			return nil, nil
		}
		t, err := parseTimestamp(field, *s)
		return &t, err
	}
	if upd.Value, err = amt("value", r.Value); err != nil {
		return upd, err
	}
	if upd.MinAmount, err = amt("min_amount", r.MinAmount); err != nil {
		return upd, err
	}
	if upd.MaxAmount, err = amt("max_amount", r.MaxAmount); err != nil {
		return upd, err
	}
	if upd.EffectiveFrom, err = ts("effective_from", r.EffectiveFrom); err != nil {
		return upd, err
	}
	if upd.EffectiveUntil, err = ts("effective_until", r.EffectiveUntil); err != nil {
		return upd, err
	}
	if upd.Tiers, err = parseTiers(r.Tiers); err != nil {
		return upd, err
	}
	return upd, nil
}

func (r BookingRequest) toRecord() (core.BookingRecord, error) {
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return core.BookingRecord{}, err
	}
	var bookedAt time.Time
	if strings.TrimSpace(r.BookedAt) != "" {
		if bookedAt, err = parseTimestamp("booked_at", r.BookedAt); err != nil {
			return core.BookingRecord{}, err
		}
	}
	return core.BookingRecord{
		BookingRef:      r.BookingRef,
		AgencyID:        r.AgencyID,
		Amount:          amount,
		Currency:        r.Currency,
		ProductCategory: optionalString(r.ProductCategory),
		Destination:     optionalString(r.Destination),
		Status:          core.BookingStatus(strings.ToLower(strings.TrimSpace(r.Status))),
		BookedAt:        bookedAt,
	}, nil
}
