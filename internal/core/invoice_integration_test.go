package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agency-ledger/internal/core"
)

var (
	issueDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	dueDate   = time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
)

func createPackageInvoice(t *testing.T, svc testServices, agencyID int) *core.Invoice {
	t.Helper()
	inv, err := svc.invoices.CreateInvoice(context.Background(), core.CreateInvoiceInput{
		AgencyID:  agencyID,
		IssueDate: issueDate,
		DueDate:   dueDate,
		Lines:     []core.InvoiceLineInput{{Description: "Lisbon city break", Quantity: d("2"), UnitPrice: d("945.00")}},
		AutoPost:  true,
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return inv
}

func TestInvoice_PaymentFlow(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()
	agency := activeAgency(t, svc.agencies, "SUNNY", nil)

	inv := createPackageInvoice(t, svc, agency.ID)
	if inv.Number != "INV-2025-00001" {
		t.Errorf("number = %s, want INV-2025-00001", inv.Number)
	}
	if !inv.Total.Equal(d("1890")) || inv.Status != core.InvoiceOpen || inv.TransactionID == nil {
		t.Errorf("invoice = %+v", inv)
	}
	if got := balanceOf(t, svc.ledger, "1100"); !got.Equal(d("1890")) {
		t.Errorf("receivables = %s, want 1890", got)
	}

	receipt, err := svc.invoices.RecordPayment(ctx, core.RecordPaymentInput{
		InvoiceID: inv.ID, Amount: d("1000.00"), Method: core.PaymentTransfer, Date: dueDate,
	})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if receipt.Invoice.Status != core.InvoicePartiallyPaid || !receipt.Invoice.PaidAmount.Equal(d("1000")) {
		t.Errorf("after first payment: %+v", receipt.Invoice)
	}

	report, err := svc.invoices.GetAccountsReceivableReport(ctx, dueDate.AddDate(0, 0, 40))
	if err != nil {
		t.Fatalf("receivables report: %v", err)
	}
	if !report.Total.Equal(d("890")) || !report.Buckets[core.Bucket31To60].Equal(d("890")) {
		t.Errorf("report total=%s buckets=%v", report.Total, report.Buckets)
	}

	_, err = svc.invoices.RecordPayment(ctx, core.RecordPaymentInput{
		InvoiceID: inv.ID, Amount: d("890.01"), Method: core.PaymentCard, Date: dueDate,
	})
	if !errors.Is(err, core.ErrOverPayment) {
		t.Fatalf("expected OverPayment, got %v", err)
	}

	receipt, err = svc.invoices.RecordPayment(ctx, core.RecordPaymentInput{
		InvoiceID: inv.ID, Amount: d("890.00"), Method: core.PaymentCard, Date: dueDate,
	})
	if err != nil {
		t.Fatalf("final payment: %v", err)
	}
	if receipt.Invoice.Status != core.InvoicePaid || len(receipt.Invoice.Payments) != 2 {
		t.Errorf("after final payment: %+v", receipt.Invoice)
	}

	if got := balanceOf(t, svc.ledger, "1100"); !got.IsZero() {
		t.Errorf("receivables = %s, want 0", got)
	}
	if got := balanceOf(t, svc.ledger, "1000"); !got.Equal(d("1890")) {
		t.Errorf("cash = %s, want 1890", got)
	}
	a, err := svc.agencies.GetAgency(ctx, agency.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !a.CurrentBalance.IsZero() {
		t.Errorf("agency balance = %s, want 0", a.CurrentBalance)
	}
}

func TestInvoice_Validation(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()
	agency := activeAgency(t, svc.agencies, "VAL", nil)

	_, err := svc.invoices.CreateInvoice(ctx, core.CreateInvoiceInput{AgencyID: agency.ID, IssueDate: issueDate, DueDate: dueDate})
	if !errors.Is(err, core.ErrEmptyInvoice) {
		t.Errorf("expected EmptyInvoice, got %v", err)
	}

	_, err = svc.invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		AgencyID: agency.ID, IssueDate: dueDate, DueDate: issueDate,
		Lines: []core.InvoiceLineInput{{Description: "x", Quantity: d("1"), UnitPrice: d("1")}},
	})
	if !errors.Is(err, core.ErrInvalidDates) {
		t.Errorf("expected InvalidDates, got %v", err)
	}

	_, err = svc.invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		AgencyID: 999999, IssueDate: issueDate, DueDate: dueDate,
		Lines: []core.InvoiceLineInput{{Description: "x", Quantity: d("1"), UnitPrice: d("1")}},
	})
	if !errors.Is(err, core.ErrAgencyNotFound) {
		t.Errorf("expected AgencyNotFound, got %v", err)
	}

	_, err = svc.invoices.RecordPayment(ctx, core.RecordPaymentInput{InvoiceID: 999999, Amount: d("1"), Method: core.PaymentCash, Date: dueDate})
	if !errors.Is(err, core.ErrInvoiceNotFound) {
		t.Errorf("expected InvoiceNotFound, got %v", err)
	}

	_, err = svc.invoices.RecordPayment(ctx, core.RecordPaymentInput{InvoiceID: 1, Amount: d("1"), Method: "barter", Date: dueDate})
	if !errors.Is(err, core.ErrInvalidPaymentMethod) {
		t.Errorf("expected InvalidPaymentMethod, got %v", err)
	}
}

func TestInvoice_ConcurrentPaymentsNeverOverpay(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()
	agency := activeAgency(t, svc.agencies, "RUSH", nil)
	inv := createPackageInvoice(t, svc, agency.ID)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.invoices.RecordPayment(ctx, core.RecordPaymentInput{
				InvoiceID: inv.ID, Amount: d("300.00"), Method: core.PaymentTransfer, Date: dueDate,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, core.ErrOverPayment):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 6 || rejected != 4 {
		t.Errorf("succeeded=%d rejected=%d, want 6 and 4", succeeded, rejected)
	}

	got, err := svc.invoices.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.PaidAmount.Equal(d("1800")) || got.Status != core.InvoicePartiallyPaid {
		t.Errorf("invoice paid=%s status=%s", got.PaidAmount, got.Status)
	}
}
