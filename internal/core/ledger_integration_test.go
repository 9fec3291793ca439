package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"agency-ledger/internal/core"
)

var postingDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestLedger_PostUpdatesBalances(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	draft, err := svc.ledger.CreateTransaction(ctx, core.CreateTransactionInput{
		Date:        postingDate,
		Description: "Booking billed",
		Entries:     []core.EntryInput{core.Debit("1100", d("1000.00")), core.Credit("4000", d("1000.00"))},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if draft.Status != core.TransactionDraft || draft.Reference == "" {
		t.Errorf("draft = %+v", draft)
	}
	if got := balanceOf(t, svc.ledger, "1100"); !got.IsZero() {
		t.Errorf("drafts must not move balances, 1100 = %s", got)
	}

	posted, err := svc.ledger.PostTransaction(ctx, draft.ID, nil)
	if err != nil {
		t.Fatalf("PostTransaction: %v", err)
	}
	if posted.Status != core.TransactionPosted || posted.PostedAt == nil {
		t.Errorf("posted = %+v", posted)
	}
	if got := balanceOf(t, svc.ledger, "1100"); !got.Equal(d("1000")) {
		t.Errorf("1100 balance = %s, want 1000", got)
	}
	if got := balanceOf(t, svc.ledger, "4000"); !got.Equal(d("1000")) {
		t.Errorf("4000 balance = %s, want 1000", got)
	}

	if _, err := svc.ledger.PostTransaction(ctx, draft.ID, nil); !errors.Is(err, core.ErrAlreadyPosted) {
		t.Errorf("second post: expected AlreadyPosted, got %v", err)
	}
}

func TestLedger_RejectsUnbalanced(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	if _, err := svc.ledger.CreateAndPost(ctx, core.CreateTransactionInput{
		Date:        postingDate,
		Description: "Booking billed",
		Entries:     []core.EntryInput{core.Debit("1100", d("1000.00")), core.Credit("4000", d("1000.00"))},
	}); err != nil {
		t.Fatalf("CreateAndPost: %v", err)
	}

	_, err := svc.ledger.CreateTransaction(ctx, core.CreateTransactionInput{
		Date:    postingDate,
		Entries: []core.EntryInput{core.Debit("1100", d("500.00")), core.Credit("4000", d("400.00"))},
	})
	if !errors.Is(err, core.ErrUnbalancedTransaction) {
		t.Fatalf("expected UnbalancedTransaction, got %v", err)
	}

	for _, code := range []string{"1100", "4000"} {
		if got := balanceOf(t, svc.ledger, code); !got.Equal(d("1000.00")) {
			t.Errorf("%s balance = %s, want 1000.00 after the rejected transaction", code, got)
		}
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("transactions = %d, want only the first posting", count)
	}
}

func TestLedger_UnknownAccount(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)

	_, err := svc.ledger.CreateAndPost(context.Background(), core.CreateTransactionInput{
		Date:    postingDate,
		Entries: []core.EntryInput{core.Debit("9999", d("10")), core.Credit("4000", d("10"))},
	})
	if !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected AccountNotFound, got %v", err)
	}
}

func TestLedger_AccountLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	acct, err := svc.ledger.CreateAccount(ctx, core.CreateAccountInput{Code: "1010", Name: "Petty Cash", Type: core.Asset, ParentCode: "1000"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acct.ParentCode == nil || *acct.ParentCode != "1000" {
		t.Errorf("parent = %v", acct.ParentCode)
	}

	if _, err := svc.ledger.CreateAccount(ctx, core.CreateAccountInput{Code: "1010", Name: "Again", Type: core.Asset}); !errors.Is(err, core.ErrDuplicateAccountCode) {
		t.Errorf("expected DuplicateAccountCode, got %v", err)
	}
	if _, err := svc.ledger.CreateAccount(ctx, core.CreateAccountInput{Code: "1020", Name: "Odd", Type: "income"}); !errors.Is(err, core.ErrInvalidAccountType) {
		t.Errorf("expected InvalidAccountType, got %v", err)
	}

	if _, err := svc.ledger.CreateAndPost(ctx, core.CreateTransactionInput{
		Date:    postingDate,
		Entries: []core.EntryInput{core.Debit("1010", d("50")), core.Credit("3000", d("50"))},
	}); err != nil {
		t.Fatalf("CreateAndPost: %v", err)
	}
	if err := svc.ledger.DeactivateAccount(ctx, "1010", nil); !errors.Is(err, core.ErrAccountHasBalance) {
		t.Errorf("expected AccountHasBalance, got %v", err)
	}

	if _, err := svc.ledger.CreateAndPost(ctx, core.CreateTransactionInput{
		Date:    postingDate,
		Entries: []core.EntryInput{core.Debit("3000", d("50")), core.Credit("1010", d("50"))},
	}); err != nil {
		t.Fatalf("reversal: %v", err)
	}
	if err := svc.ledger.DeactivateAccount(ctx, "1010", nil); err != nil {
		t.Fatalf("DeactivateAccount: %v", err)
	}

	_, err = svc.ledger.CreateTransaction(ctx, core.CreateTransactionInput{
		Date:    postingDate,
		Entries: []core.EntryInput{core.Debit("1010", d("5")), core.Credit("3000", d("5"))},
	})
	if !errors.Is(err, core.ErrAccountInactive) {
		t.Errorf("expected AccountInactive, got %v", err)
	}
}
