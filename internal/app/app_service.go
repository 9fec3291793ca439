package app

import (
	"context"
	"strings"
	"time"

	"agency-ledger/internal/core"
)

// Services bundles the core services the application layer orchestrates.
type Services struct {
	Ledger      core.LedgerService
	Invoices    core.InvoiceService
	Agencies    core.AgencyService
	Commissions core.CommissionEngine
	Bookings    core.BookingService
	Rankings    core.RankingService
	Reports     core.ReportingService
}

type appService struct {
	Services
	now func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(s Services) ApplicationService {
	return &appService{Services: s, now: time.Now}
}

// ── Ledger ────────────────────────────────────────────────────────────────────

func (s *appService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*core.Account, error) {
	return s.Ledger.CreateAccount(ctx, core.CreateAccountInput{
		Code:       req.Code,
		Name:       req.Name,
		Type:       core.AccountType(strings.ToLower(strings.TrimSpace(req.Type))),
		ParentCode: req.ParentCode,
		CreatedBy:  req.Actor,
	})
}

func (s *appService) GetAccount(ctx context.Context, code string) (*core.Account, error) {
	return s.Ledger.GetAccount(ctx, strings.TrimSpace(code))
}

func (s *appService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.Ledger.ListAccounts(ctx)
}

func (s *appService) RenameAccount(ctx context.Context, code, name string, actor *int) (*core.Account, error) {
	return s.Ledger.RenameAccount(ctx, strings.TrimSpace(code), name, actor)
}

func (s *appService) DeactivateAccount(ctx context.Context, code string, actor *int) (*core.Account, error) {
	code = strings.TrimSpace(code)
	if err := s.Ledger.DeactivateAccount(ctx, code, actor); err != nil {
		return nil, err
	}
	return s.Ledger.GetAccount(ctx, code)
}

func (s *appService) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*TransactionResult, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	if req.Post {
		t, err := s.Ledger.CreateAndPost(ctx, in)
		if err != nil {
			return nil, err
		}
		return &TransactionResult{Transaction: t, Posted: true}, nil
	}
	t, err := s.Ledger.CreateTransaction(ctx, in)
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: t}, nil
}

func (s *appService) PostTransaction(ctx context.Context, id int, actor *int) (*core.Transaction, error) {
	return s.Ledger.PostTransaction(ctx, id, actor)
}

func (s *appService) GetTransaction(ctx context.Context, id int) (*core.Transaction, error) {
	return s.Ledger.GetTransaction(ctx, id)
}

func (s *appService) GetTrialBalance(ctx context.Context) (*TrialBalanceResult, error) {
	balances, err := s.Ledger.GetBalances(ctx)
	if err != nil {
		return nil, err
	}
	tb, err := s.Reports.GetTrialBalance(ctx)
	if err != nil {
		return nil, err
	}
	return &TrialBalanceResult{Accounts: balances, TrialBalance: tb}, nil
}

// ── Invoices & payments ───────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.Invoices.CreateInvoice(ctx, in)
}

func (s *appService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*core.PaymentReceipt, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.Invoices.RecordPayment(ctx, in)
}

func (s *appService) GetInvoice(ctx context.Context, id int) (*core.Invoice, error) {
	return s.Invoices.GetInvoice(ctx, id)
}

func (s *appService) ListInvoices(ctx context.Context, agencyID *int, status string) ([]core.Invoice, error) {
	filter := core.InvoiceFilter{AgencyID: agencyID}
	if status = strings.ToLower(strings.TrimSpace(status)); status != "" {
		st := core.InvoiceStatus(status)
		if !st.Valid() {
			return nil, invalid("unknown invoice status %q", status)
		}
		filter.Status = &st
	}
	return s.Invoices.ListInvoices(ctx, filter)
}

func (s *appService) GetAccountsReceivable(ctx context.Context, asOf string) (*core.ReceivablesReport, error) {
	date := s.now()
	if d, err := parseOptionalDate("as_of", asOf); err != nil {
		return nil, err
	} else if d != nil {
		date = *d
	}
	return s.Invoices.GetAccountsReceivableReport(ctx, date)
}

// ── Agencies ──────────────────────────────────────────────────────────────────

func (s *appService) CreateAgency(ctx context.Context, req CreateAgencyRequest) (*core.Agency, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.Agencies.CreateAgency(ctx, in)
}

func (s *appService) GetAgency(ctx context.Context, id int) (*core.Agency, error) {
	return s.Agencies.GetAgency(ctx, id)
}

func (s *appService) ListAgencies(ctx context.Context, status string) ([]core.Agency, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return s.Agencies.ListAgencies(ctx, nil)
	}
	st := core.AgencyStatus(status)
	if !st.Valid() {
		return nil, invalid("unknown agency status %q", status)
	}
	return s.Agencies.ListAgencies(ctx, &st)
}

func (s *appService) UpdateAgencyTerms(ctx context.Context, req UpdateAgencyTermsRequest) (*core.Agency, error) {
	upd, err := req.toUpdate()
	if err != nil {
		return nil, err
	}
	return s.Agencies.UpdateTerms(ctx, req.AgencyID, upd, req.Actor)
}

func (s *appService) ChangeAgencyStatus(ctx context.Context, id int, status string, actor *int) (*core.Agency, error) {
	st := core.AgencyStatus(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, invalid("unknown agency status %q", status)
	}
	return s.Agencies.ChangeStatus(ctx, id, st, actor)
}

func (s *appService) AddAgencyUser(ctx context.Context, agencyID int, username, email string) (*core.AgencyUser, error) {
	return s.Agencies.AddUser(ctx, agencyID, username, email)
}

func (s *appService) ListAgencyUsers(ctx context.Context, agencyID int) (*AgencyUsersResult, error) {
	users, err := s.Agencies.ListUsers(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	return &AgencyUsersResult{AgencyID: agencyID, Users: users}, nil
}

// ── Commissions ───────────────────────────────────────────────────────────────

func (s *appService) CreateRule(ctx context.Context, req CreateRuleRequest) (*core.CommissionRule, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.Commissions.CreateRule(ctx, in)
}

func (s *appService) UpdateRule(ctx context.Context, req UpdateRuleRequest) (*core.CommissionRule, error) {
	upd, err := req.toUpdate()
	if err != nil {
		return nil, err
	}
	return s.Commissions.UpdateRule(ctx, req.RuleID, upd, req.Actor)
}

func (s *appService) DeactivateRule(ctx context.Context, id int, actor *int) (*core.CommissionRule, error) {
	return s.Commissions.DeactivateRule(ctx, id, actor)
}

func (s *appService) ListRules(ctx context.Context, agencyID *int) ([]core.CommissionRule, error) {
	return s.Commissions.ListRules(ctx, agencyID)
}

func (s *appService) CalculateCommission(ctx context.Context, req BookingRequest) (*core.Commission, error) {
	rec, err := req.toRecord()
	if err != nil {
		return nil, err
	}
	return s.Commissions.CalculateCommissionForBooking(ctx, rec.CommissionInput())
}

func (s *appService) RecordCommission(ctx context.Context, req BookingRequest) (*core.Commission, error) {
	rec, err := req.toRecord()
	if err != nil {
		return nil, err
	}
	return s.Commissions.RecordCommission(ctx, rec.CommissionInput())
}

func (s *appService) GetCommission(ctx context.Context, id int) (*core.Commission, error) {
	return s.Commissions.GetCommission(ctx, id)
}

func (s *appService) ListCommissions(ctx context.Context, agencyID *int, status string) ([]core.Commission, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return s.Commissions.ListCommissions(ctx, agencyID, nil)
	}
	st := core.CommissionStatus(status)
	return s.Commissions.ListCommissions(ctx, agencyID, &st)
}

func (s *appService) ChangeCommissionStatus(ctx context.Context, id int, status string) (*core.Commission, error) {
	switch core.CommissionStatus(strings.ToLower(strings.TrimSpace(status))) {
	case core.CommissionApproved:
		return s.Commissions.ApproveCommission(ctx, id)
	case core.CommissionPaid:
		return s.Commissions.MarkCommissionPaid(ctx, id)
	case core.CommissionCancelled:
		return s.Commissions.CancelCommission(ctx, id)
	}
	return nil, invalid("commission status must be approved, paid or cancelled, got %q", status)
}

// ── Bookings ──────────────────────────────────────────────────────────────────

func (s *appService) RecordBooking(ctx context.Context, req BookingRequest) (*core.Booking, error) {
	rec, err := req.toRecord()
	if err != nil {
		return nil, err
	}
	return s.Bookings.RecordBooking(ctx, rec)
}

func (s *appService) BookingStatusChanged(ctx context.Context, bookingRef, status string) (*core.Booking, error) {
	return s.Bookings.OnBookingStatusChanged(ctx, bookingRef, core.BookingStatus(strings.ToLower(strings.TrimSpace(status))))
}

// ── Rankings ──────────────────────────────────────────────────────────────────

func (s *appService) CalculateAgencyRankings(ctx context.Context) (*RankingsResult, error) {
	rankings, err := s.Rankings.CalculateAgencyRankings(ctx)
	if err != nil {
		return nil, err
	}
	return &RankingsResult{Count: len(rankings), Rankings: rankings}, nil
}

func (s *appService) GetTopPerformingAgencies(ctx context.Context, limit int) (*RankingsResult, error) {
	rankings, err := s.Rankings.GetTopPerformingAgencies(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &RankingsResult{Count: len(rankings), Rankings: rankings}, nil
}

func (s *appService) GetAgencyRankingReport(ctx context.Context) (*core.RankingReport, error) {
	return s.Rankings.GetAgencyRankingReport(ctx)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) GetBalanceSheet(ctx context.Context, asOf string) (*core.BalanceSheet, error) {
	date, err := parseOptionalDate("as_of", asOf)
	if err != nil {
		return nil, err
	}
	return s.Reports.GetBalanceSheet(ctx, date)
}

func (s *appService) GetIncomeStatement(ctx context.Context, start, end string) (*core.IncomeStatement, error) {
	from, err := parseDate("start", start)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("end", end)
	if err != nil {
		return nil, err
	}
	return s.Reports.GetIncomeStatement(ctx, from, to)
}

func (s *appService) GetAccountStatement(ctx context.Context, accountCode, from, to string) ([]core.StatementLine, error) {
	fromDate, err := parseOptionalDate("from", from)
	if err != nil {
		return nil, err
	}
	toDate, err := parseOptionalDate("to", to)
	if err != nil {
		return nil, err
	}
	return s.Reports.GetAccountStatement(ctx, strings.TrimSpace(accountCode), fromDate, toDate)
}
