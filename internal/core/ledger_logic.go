package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeEntries trims account codes in place.
func NormalizeEntries(entries []EntryInput) {
	for i := range entries {
		entries[i].AccountCode = strings.TrimSpace(entries[i].AccountCode)
	}
}

// ValidateEntries enforces the double-entry rules on a set of entries and
// returns the debit and credit totals. Every entry carries exactly one
// positive side; a transaction needs at least two entries and equal totals.
func ValidateEntries(entries []EntryInput) (debits, credits decimal.Decimal, err error) {
	if len(entries) < 2 {
		return decimal.Zero, decimal.Zero, failf(ErrInsufficientEntries, "transaction must have at least 2 entries, got %d", len(entries))
	}

	for i, e := range entries {
		if e.AccountCode == "" {
			return decimal.Zero, decimal.Zero, failf(ErrInvalidEntry, "entry %d has no account code", i+1)
		}
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return decimal.Zero, decimal.Zero, failf(ErrInvalidEntry, "entry %d for account %s has a negative amount", i+1, e.AccountCode)
		}
		hasDebit, hasCredit := e.Debit.IsPositive(), e.Credit.IsPositive()
		switch {
		case hasDebit && hasCredit:
			return decimal.Zero, decimal.Zero, failf(ErrInvalidEntry, "entry %d for account %s has both debit and credit", i+1, e.AccountCode)
		case !hasDebit && !hasCredit:
			return decimal.Zero, decimal.Zero, failf(ErrInvalidEntry, "entry %d for account %s has neither debit nor credit", i+1, e.AccountCode)
		}
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}

	if !debits.Equal(credits) {
		return debits, credits, failf(ErrUnbalancedTransaction, "debits %s != credits %s", debits.StringFixed(2), credits.StringFixed(2))
	}
	return debits, credits, nil
}

// BalanceDelta is the change a debit/credit pair makes to a running balance
// kept on the account's normal side.
func BalanceDelta(t AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}
