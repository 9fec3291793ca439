package app

import (
	"errors"
	"testing"
	"time"

	"agency-ledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestRecordPaymentRequestErrorOrder(t *testing.T) {
	_, err := RecordPaymentRequest{Amount: "abc", Method: "barter", Date: "yesterday"}.toInput()
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("amount is checked first, got %v", err)
	}

	in, err := RecordPaymentRequest{InvoiceID: 9, Amount: "12.50", Method: " Card ", Date: "2025-02-01"}.toInput()
	if err != nil {
		t.Fatal(err)
	}
	if in.Method != core.PaymentCard || in.InvoiceID != 9 || !in.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("input = %+v", in)
	}

	in, err = RecordPaymentRequest{Amount: "1", Method: "cash"}.toInput()
	if err != nil || !in.Date.IsZero() {
		t.Errorf("a missing date is left for the core to reject: %+v %v", in, err)
	}
}

func TestCreateRuleRequest(t *testing.T) {
	agency := 4
	in, err := CreateRuleRequest{
		AgencyID:       &agency,
		Destination:    "  ",
		Type:           "Tiered",
		Value:          "0",
		EffectiveFrom:  "2025-01-01",
		EffectiveUntil: "2025-12-31T23:59:59Z",
		Tiers:          []TierRequest{{Threshold: "0", Rate: "3"}, {Threshold: "1000", Rate: "5"}},
	}.toInput()
	if err != nil {
		t.Fatal(err)
	}
	if in.Type != core.RuleTiered || in.Destination != nil || len(in.Tiers) != 2 {
		t.Errorf("input = %+v", in)
	}
	if in.EffectiveUntil == nil || in.EffectiveUntil.Hour() != 23 {
		t.Errorf("effective_until = %v", in.EffectiveUntil)
	}

	_, err = CreateRuleRequest{Type: "fixed", Value: "5", EffectiveFrom: "2025-01-01",
		Tiers: []TierRequest{{Threshold: "x", Rate: "1"}}}.toInput()
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("bad tier threshold: %v", err)
	}
}

func TestUpdateRuleRequestOnlySetsGivenFields(t *testing.T) {
	value := "7.25"
	active := false
	upd, err := UpdateRuleRequest{Value: &value, IsActive: &active}.toUpdate()
	if err != nil {
		t.Fatal(err)
	}
	if upd.Value == nil || !upd.Value.Equal(decimal.RequireFromString("7.25")) {
		t.Errorf("value = %v", upd.Value)
	}
	if upd.MinAmount != nil || upd.EffectiveFrom != nil || upd.Tiers != nil {
		t.Errorf("unset fields leaked: %+v", upd)
	}
	if upd.IsActive == nil || *upd.IsActive {
		t.Errorf("is_active = %v", upd.IsActive)
	}
}

func TestBookingRequestTimestamps(t *testing.T) {
	rec, err := BookingRequest{BookingRef: "BK-1", AgencyID: 1, Amount: "99", Status: "CONFIRMED", BookedAt: "2025-05-05"}.toRecord()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != core.BookingConfirmed || !rec.BookedAt.Equal(time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("record = %+v", rec)
	}
	if _, err := (BookingRequest{Amount: "1", BookedAt: "last week"}).toRecord(); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateAgencyRequestOptionalRate(t *testing.T) {
	in, err := CreateAgencyRequest{Code: "A", Name: "A"}.toInput()
	if err != nil {
		t.Fatal(err)
	}
	if in.CommissionRate != nil || !in.CreditLimit.IsZero() {
		t.Errorf("input = %+v", in)
	}
	in, err = CreateAgencyRequest{Code: "A", Name: "A", CommissionRate: "4.5", CreditLimit: "2500"}.toInput()
	if err != nil || in.CommissionRate == nil || !in.CreditLimit.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("input = %+v err=%v", in, err)
	}
}

func TestWrap(t *testing.T) {
	env := Wrap(map[string]int{"n": 1}, nil)
	if !env.Success || env.Error != nil {
		t.Errorf("success envelope = %+v", env)
	}

	env = Wrap(nil, &core.Error{Kind: core.KindConflict, Code: "OverPayment", Message: "too much"})
	if env.Success || env.Error.Code != "OverPayment" || env.Error.Kind != core.KindConflict || env.Error.Message != "too much" {
		t.Errorf("business envelope = %+v", env.Error)
	}

	env = Wrap(nil, errors.New("pq: connection refused"))
	if env.Error.Kind != KindInternal || env.Error.Message != "internal error" {
		t.Errorf("internal errors must not leak details: %+v", env.Error)
	}
}
