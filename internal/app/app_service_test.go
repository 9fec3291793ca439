package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"agency-ledger/internal/core"

	"github.com/shopspring/decimal"
)

type fakeLedger struct {
	core.LedgerService
	posted, drafted int
}

func (f *fakeLedger) CreateTransaction(_ context.Context, in core.CreateTransactionInput) (*core.Transaction, error) {
	f.drafted++
	return &core.Transaction{ID: 1, Status: core.TransactionDraft}, nil
}

func (f *fakeLedger) CreateAndPost(_ context.Context, in core.CreateTransactionInput) (*core.Transaction, error) {
	f.posted++
	return &core.Transaction{ID: 2, Status: core.TransactionPosted}, nil
}

type fakeCommissions struct {
	core.CommissionEngine
	calls []string
	input core.BookingInput
}

func (f *fakeCommissions) ApproveCommission(_ context.Context, id int) (*core.Commission, error) {
	f.calls = append(f.calls, "approve")
	return &core.Commission{ID: id, Status: core.CommissionApproved}, nil
}

func (f *fakeCommissions) MarkCommissionPaid(_ context.Context, id int) (*core.Commission, error) {
	f.calls = append(f.calls, "paid")
	return &core.Commission{ID: id, Status: core.CommissionPaid}, nil
}

func (f *fakeCommissions) CancelCommission(_ context.Context, id int) (*core.Commission, error) {
	f.calls = append(f.calls, "cancel")
	return &core.Commission{ID: id, Status: core.CommissionCancelled}, nil
}

func (f *fakeCommissions) CalculateCommissionForBooking(_ context.Context, b core.BookingInput) (*core.Commission, error) {
	f.input = b
	return &core.Commission{AgencyID: b.AgencyID, BaseAmount: b.Amount}, nil
}

type fakeInvoices struct {
	core.InvoiceService
	asOf time.Time
}

func (f *fakeInvoices) GetAccountsReceivableReport(_ context.Context, asOf time.Time) (*core.ReceivablesReport, error) {
	f.asOf = asOf
	return &core.ReceivablesReport{AsOf: asOf}, nil
}

func TestCreateTransactionPostFlag(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewAppService(Services{Ledger: ledger})
	req := CreateTransactionRequest{
		Date:    "2025-03-01",
		Entries: []EntryRequest{{AccountCode: "1100", Debit: "10"}, {AccountCode: "4000", Credit: "10"}},
	}

	res, err := svc.CreateTransaction(context.Background(), req)
	if err != nil || res.Posted || ledger.drafted != 1 {
		t.Fatalf("draft: res=%+v err=%v drafted=%d", res, err, ledger.drafted)
	}

	req.Post = true
	res, err = svc.CreateTransaction(context.Background(), req)
	if err != nil || !res.Posted || ledger.posted != 1 {
		t.Fatalf("post: res=%+v err=%v posted=%d", res, err, ledger.posted)
	}
}

func TestChangeCommissionStatusDispatch(t *testing.T) {
	comm := &fakeCommissions{}
	svc := NewAppService(Services{Commissions: comm})
	ctx := context.Background()

	for _, status := range []string{"approved", " PAID ", "cancelled"} {
		if _, err := svc.ChangeCommissionStatus(ctx, 5, status); err != nil {
			t.Fatalf("%q: %v", status, err)
		}
	}
	want := []string{"approve", "paid", "cancel"}
	if fmt.Sprint(comm.calls) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", comm.calls, want)
	}

	if _, err := svc.ChangeCommissionStatus(ctx, 5, "pending"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCalculateCommissionParsesBooking(t *testing.T) {
	comm := &fakeCommissions{}
	svc := NewAppService(Services{Commissions: comm})

	_, err := svc.CalculateCommission(context.Background(), BookingRequest{
		AgencyID: 3, Amount: "1250.50", ProductCategory: " cruise ", Destination: "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !comm.input.Amount.Equal(decimal.RequireFromString("1250.50")) {
		t.Errorf("amount = %s", comm.input.Amount)
	}
	if comm.input.ProductCategory == nil || *comm.input.ProductCategory != "cruise" || comm.input.Destination != nil {
		t.Errorf("filters = %v / %v", comm.input.ProductCategory, comm.input.Destination)
	}

	_, err = svc.CalculateCommission(context.Background(), BookingRequest{AgencyID: 3, Amount: "lots"})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAccountsReceivableDefaultsToToday(t *testing.T) {
	inv := &fakeInvoices{}
	fixed := time.Date(2025, 7, 4, 9, 30, 0, 0, time.UTC)
	svc := &appService{Services: Services{Invoices: inv}, now: func() time.Time { return fixed }}

	if _, err := svc.GetAccountsReceivable(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if !inv.asOf.Equal(fixed) {
		t.Errorf("as of = %s, want %s", inv.asOf, fixed)
	}

	if _, err := svc.GetAccountsReceivable(context.Background(), "2025-01-31"); err != nil {
		t.Fatal(err)
	}
	if inv.asOf.Format(time.DateOnly) != "2025-01-31" {
		t.Errorf("as of = %s", inv.asOf)
	}

	if _, err := svc.GetAccountsReceivable(context.Background(), "31/01/2025"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestStatusStringsValidated(t *testing.T) {
	svc := NewAppService(Services{})
	ctx := context.Background()
	if _, err := svc.ListInvoices(ctx, nil, "void"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("ListInvoices: %v", err)
	}
	if _, err := svc.ListAgencies(ctx, "archived"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("ListAgencies: %v", err)
	}
	if _, err := svc.ChangeAgencyStatus(ctx, 1, "gone", nil); !errors.Is(err, core.ErrValidation) {
		t.Errorf("ChangeAgencyStatus: %v", err)
	}
	if _, err := svc.GetIncomeStatement(ctx, "2025-01-01", "soon"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("GetIncomeStatement: %v", err)
	}
}
