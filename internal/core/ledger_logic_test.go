package core_test

import (
	"errors"
	"testing"

	"agency-ledger/internal/core"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []core.EntryInput
		wantErr *core.Error
	}{
		{
			name:    "balanced pair",
			entries: []core.EntryInput{core.Debit("1100", d("1000.00")), core.Credit("4000", d("1000.00"))},
		},
		{
			name: "balanced split",
			entries: []core.EntryInput{
				core.Debit("1100", d("1000.00")),
				core.Credit("4000", d("800.00")),
				core.Credit("2000", d("200.00")),
			},
		},
		{
			name:    "single entry",
			entries: []core.EntryInput{core.Debit("1100", d("10"))},
			wantErr: core.ErrInsufficientEntries,
		},
		{
			name:    "unbalanced",
			entries: []core.EntryInput{core.Debit("1100", d("500.00")), core.Credit("4000", d("400.00"))},
			wantErr: core.ErrUnbalancedTransaction,
		},
		{
			name:    "both sides on one entry",
			entries: []core.EntryInput{{AccountCode: "1100", Debit: d("5"), Credit: d("5")}, core.Credit("4000", d("0"))},
			wantErr: core.ErrInvalidEntry,
		},
		{
			name:    "neither side",
			entries: []core.EntryInput{{AccountCode: "1100"}, core.Credit("4000", d("5"))},
			wantErr: core.ErrInvalidEntry,
		},
		{
			name:    "negative amount",
			entries: []core.EntryInput{core.Debit("1100", d("-5")), core.Credit("4000", d("-5"))},
			wantErr: core.ErrInvalidEntry,
		},
		{
			name:    "missing account code",
			entries: []core.EntryInput{core.Debit("", d("5")), core.Credit("4000", d("5"))},
			wantErr: core.ErrInvalidEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debits, credits, err := core.ValidateEntries(tt.entries)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %s, got %v", tt.wantErr.Code, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !debits.Equal(credits) {
				t.Errorf("debits %s != credits %s", debits, credits)
			}
		})
	}
}

func TestNormalizeEntries(t *testing.T) {
	entries := []core.EntryInput{core.Debit(" 1100 ", d("1")), core.Credit("4000\t", d("1"))}
	core.NormalizeEntries(entries)
	if entries[0].AccountCode != "1100" || entries[1].AccountCode != "4000" {
		t.Errorf("codes not trimmed: %q %q", entries[0].AccountCode, entries[1].AccountCode)
	}
}

func TestBalanceDelta(t *testing.T) {
	tests := []struct {
		typ           core.AccountType
		debit, credit string
		want          string
	}{
		{core.Asset, "100", "0", "100"},
		{core.Asset, "0", "40", "-40"},
		{core.Expense, "25", "0", "25"},
		{core.Revenue, "0", "1000", "1000"},
		{core.Revenue, "10", "0", "-10"},
		{core.Liability, "0", "60", "60"},
		{core.Equity, "0", "500", "500"},
	}
	for _, tt := range tests {
		got := core.BalanceDelta(tt.typ, d(tt.debit), d(tt.credit))
		if !got.Equal(d(tt.want)) {
			t.Errorf("BalanceDelta(%s, %s, %s) = %s, want %s", tt.typ, tt.debit, tt.credit, got, tt.want)
		}
	}
}

func TestAccountTypeValid(t *testing.T) {
	for _, typ := range []core.AccountType{core.Asset, core.Liability, core.Equity, core.Revenue, core.Expense} {
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if core.AccountType("income").Valid() {
		t.Error("income should not be a valid account type")
	}
}

func TestFormatDocumentNumber(t *testing.T) {
	if got := core.FormatDocumentNumber(core.SeriesInvoice, 2025, 42); got != "INV-2025-00042" {
		t.Errorf("got %q", got)
	}
	if got := core.FormatDocumentNumber(core.SeriesJournal, 2026, 123456); got != "JE-2026-123456" {
		t.Errorf("got %q", got)
	}
}

func TestErrorMatching(t *testing.T) {
	wrapped := errorsJoin(t)
	if !errors.Is(wrapped, core.ErrOverPayment) {
		t.Error("wrapped error should match its sentinel")
	}
	if errors.Is(wrapped, core.ErrInvalidAmount) {
		t.Error("different codes must not match")
	}
	e, ok := core.AsError(wrapped)
	if !ok || e.Kind != core.KindConflict || e.Message == "" {
		t.Errorf("AsError = %+v, %v", e, ok)
	}
	if _, ok := core.AsError(errors.New("connection reset")); ok {
		t.Error("plain errors are not business errors")
	}
}

func errorsJoin(t *testing.T) error {
	t.Helper()
	_, _, err := core.ApplyPayment(d("100"), d("90"), d("20"))
	if err == nil {
		t.Fatal("expected over payment")
	}
	return errors.Join(errors.New("record payment"), err)
}
