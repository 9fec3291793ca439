package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// StatementLine is one posted entry in an account statement.
// RunningBalance is the cumulative net-debit position after this line
// (positive = net debit, negative = net credit).
type StatementLine struct {
	Date           time.Time       `json:"date"`
	Reference      string          `json:"reference"`
	Description    string          `json:"description"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// AccountLine is a single account in an income statement or balance sheet,
// expressed on the account's normal side:
//   - Revenue, liability, equity: positive = net credit
//   - Asset, expense:             positive = net debit
type AccountLine struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// IncomeStatement covers posted revenue and expense activity in [Start, End].
type IncomeStatement struct {
	Start        time.Time       `json:"start"`
	End          time.Time       `json:"end"`
	Revenue      []AccountLine   `json:"revenue"`
	Expenses     []AccountLine   `json:"expenses"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetIncome    decimal.Decimal `json:"net_income"`
}

// BalanceSheet is the position as of AsOf. Revenue minus expense to date is
// not closed to a retained earnings account, so it is reported as
// CurrentEarnings inside equity; IsBalanced then holds for any posted ledger.
type BalanceSheet struct {
	AsOf             time.Time       `json:"as_of"`
	Assets           []AccountLine   `json:"assets"`
	Liabilities      []AccountLine   `json:"liabilities"`
	Equity           []AccountLine   `json:"equity"`
	CurrentEarnings  decimal.Decimal `json:"current_earnings"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	IsBalanced       bool            `json:"is_balanced"`
}

// TrialBalanceLine places an account's running balance in the debit or credit column.
type TrialBalanceLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Type   AccountType     `json:"type"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

type TrialBalance struct {
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	IsBalanced  bool               `json:"is_balanced"`
}

// accountTotals is the raw debit and credit sum of posted entries for one account.
type accountTotals struct {
	Code   string
	Name   string
	Type   AccountType
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// normalBalance returns the balance on the account type's normal side.
func (t accountTotals) normalBalance() decimal.Decimal {
	return BalanceDelta(t.Type, t.Debit, t.Credit)
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only financial statements. Every figure is
// derived from posted transactions; drafts never contribute.
type ReportingService interface {
	// GetBalanceSheet sums posted activity dated on or before asOf.
	// A nil asOf means today.
	GetBalanceSheet(ctx context.Context, asOf *time.Time) (*BalanceSheet, error)

	// GetIncomeStatement sums revenue and expense entries posted within [start, end].
	GetIncomeStatement(ctx context.Context, start, end time.Time) (*IncomeStatement, error)

	// GetTrialBalance lists every account's running balance by debit/credit column.
	GetTrialBalance(ctx context.Context) (*TrialBalance, error)

	// GetAccountStatement returns posted entries for an account, oldest first.
	// from and to are optional bounds.
	GetAccountStatement(ctx context.Context, accountCode string, from, to *time.Time) ([]StatementLine, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	pool   *pgxpool.Pool
	ledger LedgerService
	now    func() time.Time
}

// NewReportingService constructs a ReportingService backed by the given pool.
func NewReportingService(pool *pgxpool.Pool, ledger LedgerService) ReportingService {
	return &reportingService{pool: pool, ledger: ledger, now: time.Now}
}

// postedTotals aggregates posted entries per account, filtered by the
// optional date bounds and account types.
func (s *reportingService) postedTotals(ctx context.Context, from, to *time.Time, types ...AccountType) ([]accountTotals, error) {
	var (
		conds []string
		args  []any
	)
	if from != nil {
		args = append(args, civilDate(*from))
		conds = append(conds, fmt.Sprintf("t.txn_date >= $%d::date", len(args)))
	}
	if to != nil {
		args = append(args, civilDate(*to))
		conds = append(conds, fmt.Sprintf("t.txn_date <= $%d::date", len(args)))
	}
	filter := ""
	if len(conds) > 0 {
		filter = " AND " + strings.Join(conds, " AND ")
	}
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}
	args = append(args, typeNames)

	// Subquery aggregates only posted lines in range; accounts without activity report zero.
	q := fmt.Sprintf(`
		SELECT a.code, a.name, a.type,
		       COALESCE(s.debit_total,  0),
		       COALESCE(s.credit_total, 0)
		FROM accounts a
		LEFT JOIN (
		    SELECT e.account_id,
		           SUM(e.debit)  AS debit_total,
		           SUM(e.credit) AS credit_total
		    FROM entries e
		    JOIN transactions t ON t.id = e.transaction_id
		    WHERE t.status = 'posted'%s
		    GROUP BY e.account_id
		) s ON s.account_id = a.id
		WHERE a.type = ANY($%d)
		ORDER BY a.type, a.code`, filter, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account totals: %w", err)
	}
	defer rows.Close()

	var out []accountTotals
	for rows.Next() {
		var t accountTotals
		var accType string
		if err := rows.Scan(&t.Code, &t.Name, &accType, &t.Debit, &t.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan account totals: %w", err)
		}
		t.Type = AccountType(accType)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("account totals iteration error: %w", err)
	}
	return out, nil
}

// ── GetBalanceSheet ───────────────────────────────────────────────────────────

func (s *reportingService) GetBalanceSheet(ctx context.Context, asOf *time.Time) (*BalanceSheet, error) {
	date := civilDate(s.now())
	if asOf != nil {
		date = civilDate(*asOf)
	}
	totals, err := s.postedTotals(ctx, nil, &date, Asset, Liability, Equity, Revenue, Expense)
	if err != nil {
		return nil, err
	}
	return buildBalanceSheet(totals, date), nil
}

func buildBalanceSheet(totals []accountTotals, asOf time.Time) *BalanceSheet {
	bs := &BalanceSheet{
		AsOf:             asOf,
		Assets:           []AccountLine{},
		Liabilities:      []AccountLine{},
		Equity:           []AccountLine{},
		CurrentEarnings:  decimal.Zero,
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
	}
	for _, t := range totals {
		bal := t.normalBalance()
		line := AccountLine{Code: t.Code, Name: t.Name, Balance: bal}
		switch t.Type {
		case Asset:
			bs.Assets = append(bs.Assets, line)
			bs.TotalAssets = bs.TotalAssets.Add(bal)
		case Liability:
			bs.Liabilities = append(bs.Liabilities, line)
			bs.TotalLiabilities = bs.TotalLiabilities.Add(bal)
		case Equity:
			bs.Equity = append(bs.Equity, line)
			bs.TotalEquity = bs.TotalEquity.Add(bal)
		case Revenue:
			bs.CurrentEarnings = bs.CurrentEarnings.Add(bal)
		case Expense:
			bs.CurrentEarnings = bs.CurrentEarnings.Sub(bal)
		}
	}
	bs.TotalEquity = bs.TotalEquity.Add(bs.CurrentEarnings)
	bs.IsBalanced = bs.TotalAssets.Equal(bs.TotalLiabilities.Add(bs.TotalEquity))
	return bs
}

// ── GetIncomeStatement ────────────────────────────────────────────────────────

func (s *reportingService) GetIncomeStatement(ctx context.Context, start, end time.Time) (*IncomeStatement, error) {
	start, end = civilDate(start), civilDate(end)
	if end.Before(start) {
		return nil, observeRejection(failf(ErrInvalidDates, "end date %s is before start date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly)))
	}
	totals, err := s.postedTotals(ctx, &start, &end, Revenue, Expense)
	if err != nil {
		return nil, err
	}
	return buildIncomeStatement(totals, start, end), nil
}

func buildIncomeStatement(totals []accountTotals, start, end time.Time) *IncomeStatement {
	is := &IncomeStatement{
		Start:        start,
		End:          end,
		Revenue:      []AccountLine{},
		Expenses:     []AccountLine{},
		TotalRevenue: decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, t := range totals {
		bal := t.normalBalance()
		line := AccountLine{Code: t.Code, Name: t.Name, Balance: bal}
		switch t.Type {
		case Revenue:
			is.Revenue = append(is.Revenue, line)
			is.TotalRevenue = is.TotalRevenue.Add(bal)
		case Expense:
			is.Expenses = append(is.Expenses, line)
			is.TotalExpense = is.TotalExpense.Add(bal)
		}
	}
	is.NetIncome = is.TotalRevenue.Sub(is.TotalExpense)
	return is
}

// ── GetTrialBalance ───────────────────────────────────────────────────────────

func (s *reportingService) GetTrialBalance(ctx context.Context) (*TrialBalance, error) {
	balances, err := s.ledger.GetBalances(ctx)
	if err != nil {
		return nil, err
	}
	return buildTrialBalance(balances), nil
}

func buildTrialBalance(balances []AccountBalance) *TrialBalance {
	tb := &TrialBalance{Lines: []TrialBalanceLine{}, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, b := range balances {
		line := TrialBalanceLine{Code: b.Code, Name: b.Name, Type: b.Type, Debit: decimal.Zero, Credit: decimal.Zero}
		// A negative normal balance belongs in the opposite column.
		debitSide := b.Type.DebitNormal() != b.Balance.IsNegative()
		if debitSide {
			line.Debit = b.Balance.Abs()
		} else {
			line.Credit = b.Balance.Abs()
		}
		tb.TotalDebit = tb.TotalDebit.Add(line.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(line.Credit)
		tb.Lines = append(tb.Lines, line)
	}
	tb.IsBalanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb
}

// ── GetAccountStatement ───────────────────────────────────────────────────────

func (s *reportingService) GetAccountStatement(ctx context.Context, accountCode string, from, to *time.Time) ([]StatementLine, error) {
	if _, err := s.ledger.GetAccount(ctx, accountCode); err != nil {
		return nil, err
	}

	q := `
		SELECT t.txn_date, COALESCE(t.reference, ''), t.description, e.debit, e.credit
		FROM entries e
		JOIN transactions t ON t.id = e.transaction_id
		JOIN accounts a     ON a.id = e.account_id
		WHERE t.status = 'posted'
		  AND a.code = $1`
	args := []any{accountCode}
	if from != nil {
		args = append(args, civilDate(*from))
		q += fmt.Sprintf(" AND t.txn_date >= $%d::date", len(args))
	}
	if to != nil {
		args = append(args, civilDate(*to))
		q += fmt.Sprintf(" AND t.txn_date <= $%d::date", len(args))
	}
	q += " ORDER BY t.txn_date ASC, t.id ASC, e.line_number ASC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account statement: %w", err)
	}
	defer rows.Close()

	lines := []StatementLine{}
	running := decimal.Zero
	for rows.Next() {
		var sl StatementLine
		if err := rows.Scan(&sl.Date, &sl.Reference, &sl.Description, &sl.Debit, &sl.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan statement line: %w", err)
		}
		running = running.Add(sl.Debit).Sub(sl.Credit)
		sl.RunningBalance = running
		lines = append(lines, sl)
	}
	return lines, rows.Err()
}
