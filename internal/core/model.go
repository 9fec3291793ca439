package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Revenue   AccountType = "revenue"
	Expense   AccountType = "expense"
)

// Valid reports whether t is one of the five fixed account types.
func (t AccountType) Valid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// DebitNormal reports whether a debit increases accounts of this type.
func (t AccountType) DebitNormal() bool {
	return t == Asset || t == Expense
}

// Account is a node in the chart of accounts. Balance is kept on the
// account's normal side, so a revenue account credited 100 shows 100.
type Account struct {
	ID         int             `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Type       AccountType     `json:"type"`
	ParentID   *int            `json:"parent_id,omitempty"`
	ParentCode *string         `json:"parent_code,omitempty"`
	IsActive   bool            `json:"is_active"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedBy  *int            `json:"created_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type TransactionStatus string

const (
	TransactionDraft  TransactionStatus = "draft"
	TransactionPosted TransactionStatus = "posted"
)

// Transaction is a journal transaction. It is created as draft and moves to
// posted exactly once; there is no way back.
type Transaction struct {
	ID          int               `json:"id"`
	Date        time.Time         `json:"date"`
	Reference   string            `json:"reference"`
	Description string            `json:"description"`
	Status      TransactionStatus `json:"status"`
	Entries     []Entry           `json:"entries"`
	CreatedBy   *int              `json:"created_by,omitempty"`
	PostedBy    *int              `json:"posted_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	PostedAt    *time.Time        `json:"posted_at,omitempty"`
}

// Entry is one debit or credit line of a transaction. Exactly one of Debit
// and Credit is non-zero.
type Entry struct {
	ID            int             `json:"id"`
	TransactionID int             `json:"transaction_id"`
	LineNumber    int             `json:"line_number"`
	AccountID     int             `json:"account_id"`
	AccountCode   string          `json:"account_code"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

// EntryInput is a requested entry, addressed by account code.
type EntryInput struct {
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// Debit builds a debit EntryInput.
func Debit(code string, amount decimal.Decimal) EntryInput {
	return EntryInput{AccountCode: code, Debit: amount}
}

// Credit builds a credit EntryInput.
func Credit(code string, amount decimal.Decimal) EntryInput {
	return EntryInput{AccountCode: code, Credit: amount}
}

// AccountBalance is a trial balance row.
type AccountBalance struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Type    AccountType     `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
