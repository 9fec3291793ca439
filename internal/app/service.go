package app

import (
	"context"

	"agency-ledger/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It turns primitive request values into core inputs and contains no
// transport or display logic. Business failures come back as *core.Error;
// adapters report results through Wrap.
type ApplicationService interface {
	// ── Ledger ────────────────────────────────────────────────────────────────
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*core.Account, error)
	GetAccount(ctx context.Context, code string) (*core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	RenameAccount(ctx context.Context, code, name string, actor *int) (*core.Account, error)
	DeactivateAccount(ctx context.Context, code string, actor *int) (*core.Account, error)

	// CreateTransaction stores a draft, or drafts and posts atomically when req.Post is set.
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*TransactionResult, error)
	PostTransaction(ctx context.Context, id int, actor *int) (*core.Transaction, error)
	GetTransaction(ctx context.Context, id int) (*core.Transaction, error)
	GetTrialBalance(ctx context.Context) (*TrialBalanceResult, error)

	// ── Invoices & payments ──────────────────────────────────────────────────
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*core.PaymentReceipt, error)
	GetInvoice(ctx context.Context, id int) (*core.Invoice, error)
	// ListInvoices filters by agency and status when given; status "" means any.
	ListInvoices(ctx context.Context, agencyID *int, status string) ([]core.Invoice, error)
	// GetAccountsReceivable reports aging as of asOf (YYYY-MM-DD, empty = today).
	GetAccountsReceivable(ctx context.Context, asOf string) (*core.ReceivablesReport, error)

	// ── Agencies ─────────────────────────────────────────────────────────────
	CreateAgency(ctx context.Context, req CreateAgencyRequest) (*core.Agency, error)
	GetAgency(ctx context.Context, id int) (*core.Agency, error)
	ListAgencies(ctx context.Context, status string) ([]core.Agency, error)
	UpdateAgencyTerms(ctx context.Context, req UpdateAgencyTermsRequest) (*core.Agency, error)
	// ChangeAgencyStatus applies a lifecycle move: active (approve/reactivate),
	// suspended, inactive or deleted.
	ChangeAgencyStatus(ctx context.Context, id int, status string, actor *int) (*core.Agency, error)
	AddAgencyUser(ctx context.Context, agencyID int, username, email string) (*core.AgencyUser, error)
	ListAgencyUsers(ctx context.Context, agencyID int) (*AgencyUsersResult, error)

	// ── Commissions ──────────────────────────────────────────────────────────
	CreateRule(ctx context.Context, req CreateRuleRequest) (*core.CommissionRule, error)
	UpdateRule(ctx context.Context, req UpdateRuleRequest) (*core.CommissionRule, error)
	DeactivateRule(ctx context.Context, id int, actor *int) (*core.CommissionRule, error)
	ListRules(ctx context.Context, agencyID *int) ([]core.CommissionRule, error)
	CalculateCommission(ctx context.Context, req BookingRequest) (*core.Commission, error)
	RecordCommission(ctx context.Context, req BookingRequest) (*core.Commission, error)
	GetCommission(ctx context.Context, id int) (*core.Commission, error)
	ListCommissions(ctx context.Context, agencyID *int, status string) ([]core.Commission, error)
	// ChangeCommissionStatus moves a commission to approved, paid or cancelled.
	ChangeCommissionStatus(ctx context.Context, id int, status string) (*core.Commission, error)

	// ── Bookings ─────────────────────────────────────────────────────────────
	RecordBooking(ctx context.Context, req BookingRequest) (*core.Booking, error)
	BookingStatusChanged(ctx context.Context, bookingRef, status string) (*core.Booking, error)

	// ── Rankings ─────────────────────────────────────────────────────────────
	CalculateAgencyRankings(ctx context.Context) (*RankingsResult, error)
	GetTopPerformingAgencies(ctx context.Context, limit int) (*RankingsResult, error)
	GetAgencyRankingReport(ctx context.Context) (*core.RankingReport, error)

	// ── Reports ──────────────────────────────────────────────────────────────
	GetBalanceSheet(ctx context.Context, asOf string) (*core.BalanceSheet, error)
	GetIncomeStatement(ctx context.Context, start, end string) (*core.IncomeStatement, error)
	GetAccountStatement(ctx context.Context, accountCode, from, to string) ([]core.StatementLine, error)
}
