package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"agency-ledger/internal/core"
)

func TestReporting_StatementsFromPostedActivity(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	march := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC)

	post := func(date time.Time, entries ...core.EntryInput) {
		t.Helper()
		if _, err := svc.ledger.CreateAndPost(ctx, core.CreateTransactionInput{Date: date, Entries: entries}); err != nil {
			t.Fatalf("CreateAndPost: %v", err)
		}
	}
	post(march, core.Debit("1000", d("5000")), core.Credit("3000", d("5000")))
	post(march, core.Debit("1100", d("1890")), core.Credit("4000", d("1890")))
	post(april, core.Debit("5000", d("350")), core.Credit("2000", d("350")))

	// A draft must never reach a report.
	if _, err := svc.ledger.CreateTransaction(ctx, core.CreateTransactionInput{
		Date:    march,
		Entries: []core.EntryInput{core.Debit("1000", d("999")), core.Credit("4000", d("999"))},
	}); err != nil {
		t.Fatal(err)
	}

	is, err := svc.reports.GetIncomeStatement(ctx, march, march.AddDate(0, 0, 25))
	if err != nil {
		t.Fatalf("GetIncomeStatement: %v", err)
	}
	if !is.TotalRevenue.Equal(d("1890")) || !is.TotalExpense.IsZero() || !is.NetIncome.Equal(d("1890")) {
		t.Errorf("march income statement = %+v", is)
	}

	if _, err := svc.reports.GetIncomeStatement(ctx, april, march); !errors.Is(err, core.ErrInvalidDates) {
		t.Errorf("expected InvalidDates, got %v", err)
	}

	asOf := april
	bs, err := svc.reports.GetBalanceSheet(ctx, &asOf)
	if err != nil {
		t.Fatalf("GetBalanceSheet: %v", err)
	}
	if !bs.TotalAssets.Equal(d("6890")) || !bs.TotalLiabilities.Equal(d("350")) || !bs.CurrentEarnings.Equal(d("1540")) {
		t.Errorf("balance sheet = %+v", bs)
	}
	if !bs.IsBalanced {
		t.Error("balance sheet should balance")
	}

	earlier := march.AddDate(0, 0, -1)
	bs, err = svc.reports.GetBalanceSheet(ctx, &earlier)
	if err != nil {
		t.Fatal(err)
	}
	if !bs.TotalAssets.IsZero() {
		t.Errorf("nothing posted before March, assets = %s", bs.TotalAssets)
	}

	tb, err := svc.reports.GetTrialBalance(ctx)
	if err != nil {
		t.Fatalf("GetTrialBalance: %v", err)
	}
	if !tb.IsBalanced || !tb.TotalDebit.Equal(d("7240")) {
		t.Errorf("trial balance = %+v", tb)
	}

	lines, err := svc.reports.GetAccountStatement(ctx, "1000", nil, nil)
	if err != nil {
		t.Fatalf("GetAccountStatement: %v", err)
	}
	if len(lines) != 1 || !lines[0].RunningBalance.Equal(d("5000")) {
		t.Errorf("statement = %+v", lines)
	}
	if _, err := svc.reports.GetAccountStatement(ctx, "9999", nil, nil); !errors.Is(err, core.ErrAccountNotFound) {
		t.Errorf("expected AccountNotFound, got %v", err)
	}
}
