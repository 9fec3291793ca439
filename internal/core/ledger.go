package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LedgerService interface {
	CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error)
	GetAccount(ctx context.Context, code string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	// RenameAccount changes the display name. The code is immutable.
	RenameAccount(ctx context.Context, code, name string, actor *int) (*Account, error)
	// DeactivateAccount blocks new entries against an account with a zero balance.
	DeactivateAccount(ctx context.Context, code string, actor *int) error

	// CreateTransaction validates and stores a draft transaction.
	CreateTransaction(ctx context.Context, in CreateTransactionInput) (*Transaction, error)
	// PostTransaction flips a draft to posted and applies its entries to account balances atomically.
	PostTransaction(ctx context.Context, id int, actor *int) (*Transaction, error)
	// CreateAndPost drafts and posts in one storage transaction.
	CreateAndPost(ctx context.Context, in CreateTransactionInput) (*Transaction, error)
	GetTransaction(ctx context.Context, id int) (*Transaction, error)
	GetBalances(ctx context.Context) ([]AccountBalance, error)

	// CreateAndPostTx creates and posts a transaction inside the caller's
	// transaction. Used when the caller owns the storage boundary (invoice auto-posting).
	CreateAndPostTx(ctx context.Context, tx pgx.Tx, in CreateTransactionInput) (*Transaction, error)
}

// CreateAccountInput is the input for adding an account to the chart.
type CreateAccountInput struct {
	Code       string
	Name       string
	Type       AccountType
	ParentCode string // optional
	CreatedBy  *int
}

// CreateTransactionInput is the input for a new draft transaction.
// Reference is optional; a JE number is allocated when empty.
type CreateTransactionInput struct {
	Date        time.Time
	Description string
	Reference   string
	Entries     []EntryInput
	CreatedBy   *int
}

type Ledger struct {
	pool      *pgxpool.Pool
	numbering NumberingService
	log       *zap.Logger
}

func NewLedger(pool *pgxpool.Pool, numbering NumberingService, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{pool: pool, numbering: numbering, log: log}
}

// ── Chart of accounts ────────────────────────────────────────────────────────

func (l *Ledger) CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" || in.Name == "" {
		return nil, observeRejection(failf(ErrValidation, "account code and name are required"))
	}
	if !in.Type.Valid() {
		return nil, observeRejection(failf(ErrInvalidAccountType, "unknown account type %q", in.Type))
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var parentID *int
	if p := strings.TrimSpace(in.ParentCode); p != "" {
		var id int
		if err := tx.QueryRow(ctx, "SELECT id FROM accounts WHERE code = $1", p).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, observeRejection(failf(ErrAccountNotFound, "parent account %s not found", p))
			}
			return nil, fmt.Errorf("failed to resolve parent account: %w", err)
		}
		parentID = &id
	}

	a := Account{Code: in.Code, Name: in.Name, Type: in.Type, ParentID: parentID, IsActive: true, CreatedBy: in.CreatedBy}
	err = tx.QueryRow(ctx, `
		INSERT INTO accounts (code, name, type, parent_id, created_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING
		RETURNING id, balance, created_at
	`, a.Code, a.Name, string(a.Type), parentID, in.CreatedBy).Scan(&a.ID, &a.Balance, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, observeRejection(failf(ErrDuplicateAccountCode, "account code %s already exists", a.Code))
		}
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	if parentID != nil {
		pc := strings.TrimSpace(in.ParentCode)
		a.ParentCode = &pc
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	l.log.Info("account created", zap.String("code", a.Code), zap.String("type", string(a.Type)))
	return &a, nil
}

const accountColumns = `
	a.id, a.code, a.name, a.type, a.parent_id, p.code, a.is_active, a.balance, a.created_by, a.created_at
	FROM accounts a
	LEFT JOIN accounts p ON p.id = a.parent_id`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var accType string
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &accType, &a.ParentID, &a.ParentCode,
		&a.IsActive, &a.Balance, &a.CreatedBy, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Type = AccountType(accType)
	return &a, nil
}

func (l *Ledger) GetAccount(ctx context.Context, code string) (*Account, error) {
	a, err := scanAccount(l.pool.QueryRow(ctx, "SELECT"+accountColumns+" WHERE a.code = $1", code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, failf(ErrAccountNotFound, "account %s not found", code)
		}
		return nil, fmt.Errorf("failed to fetch account %s: %w", code, err)
	}
	return a, nil
}

func (l *Ledger) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := l.pool.Query(ctx, "SELECT"+accountColumns+" ORDER BY a.code")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func (l *Ledger) RenameAccount(ctx context.Context, code, name string, actor *int) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, observeRejection(failf(ErrValidation, "account name is required"))
	}
	tag, err := l.pool.Exec(ctx,
		"UPDATE accounts SET name = $1, updated_by = $2, updated_at = NOW() WHERE code = $3",
		name, actor, code)
	if err != nil {
		return nil, fmt.Errorf("failed to rename account %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, observeRejection(failf(ErrAccountNotFound, "account %s not found", code))
	}
	return l.GetAccount(ctx, code)
}

func (l *Ledger) DeactivateAccount(ctx context.Context, code string, actor *int) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE code = $1 FOR UPDATE", code).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return observeRejection(failf(ErrAccountNotFound, "account %s not found", code))
		}
		return fmt.Errorf("failed to lock account %s: %w", code, err)
	}
	if !balance.IsZero() {
		return observeRejection(failf(ErrAccountHasBalance, "account %s has balance %s", code, balance.StringFixed(2)))
	}
	if _, err := tx.Exec(ctx,
		"UPDATE accounts SET is_active = false, updated_by = $1, updated_at = NOW() WHERE code = $2",
		actor, code); err != nil {
		return fmt.Errorf("failed to deactivate account %s: %w", code, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ── Transactions ─────────────────────────────────────────────────────────────

func (l *Ledger) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*Transaction, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := l.createTransactionTx(ctx, tx, in)
	if err != nil {
		return nil, observeRejection(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	l.log.Info("transaction drafted", zap.Int("transaction_id", t.ID), zap.String("reference", t.Reference))
	return t, nil
}

func (l *Ledger) PostTransaction(ctx context.Context, id int, actor *int) (*Transaction, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := l.postTransactionTx(ctx, tx, id, actor)
	if err != nil {
		return nil, observeRejection(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	transactionsPosted.Inc()
	l.log.Info("transaction posted", zap.Int("transaction_id", t.ID), zap.String("reference", t.Reference))
	return t, nil
}

func (l *Ledger) CreateAndPost(ctx context.Context, in CreateTransactionInput) (*Transaction, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := l.CreateAndPostTx(ctx, tx, in)
	if err != nil {
		return nil, observeRejection(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	l.log.Info("transaction posted", zap.Int("transaction_id", t.ID), zap.String("reference", t.Reference))
	return t, nil
}

func (l *Ledger) CreateAndPostTx(ctx context.Context, tx pgx.Tx, in CreateTransactionInput) (*Transaction, error) {
	t, err := l.createTransactionTx(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	posted, err := l.postTransactionTx(ctx, tx, t.ID, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	transactionsPosted.Inc()
	return posted, nil
}

func (l *Ledger) createTransactionTx(ctx context.Context, tx pgx.Tx, in CreateTransactionInput) (*Transaction, error) {
	entries := make([]EntryInput, len(in.Entries))
	copy(entries, in.Entries)
	NormalizeEntries(entries)

	if in.Date.IsZero() {
		return nil, failf(ErrValidation, "transaction date is required")
	}
	if _, _, err := ValidateEntries(entries); err != nil {
		return nil, err
	}

	accountIDs := make(map[string]int, len(entries))
	for _, e := range entries {
		if _, ok := accountIDs[e.AccountCode]; ok {
			continue
		}
		var id int
		var active bool
		err := tx.QueryRow(ctx, "SELECT id, is_active FROM accounts WHERE code = $1", e.AccountCode).Scan(&id, &active)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, failf(ErrAccountNotFound, "account code %s not found", e.AccountCode)
			}
			return nil, fmt.Errorf("failed to fetch account ID for code %s: %w", e.AccountCode, err)
		}
		if !active {
			return nil, failf(ErrAccountInactive, "account %s is inactive", e.AccountCode)
		}
		accountIDs[e.AccountCode] = id
	}

	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		num, err := l.numbering.NextNumberTx(ctx, tx, SeriesJournal, in.Date.Year())
		if err != nil {
			return nil, err
		}
		reference = num
	}

	t := Transaction{
		Date:        in.Date,
		Reference:   reference,
		Description: strings.TrimSpace(in.Description),
		Status:      TransactionDraft,
		CreatedBy:   in.CreatedBy,
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (txn_date, reference, description, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, t.Date, t.Reference, t.Description, string(TransactionDraft), t.CreatedBy).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	for i, e := range entries {
		entry := Entry{
			TransactionID: t.ID,
			LineNumber:    i + 1,
			AccountID:     accountIDs[e.AccountCode],
			AccountCode:   e.AccountCode,
			Debit:         e.Debit,
			Credit:        e.Credit,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO entries (transaction_id, line_number, account_id, debit, credit)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, entry.TransactionID, entry.LineNumber, entry.AccountID, entry.Debit, entry.Credit).Scan(&entry.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert entry: %w", err)
		}
		t.Entries = append(t.Entries, entry)
	}
	return &t, nil
}

func (l *Ledger) postTransactionTx(ctx context.Context, tx pgx.Tx, id int, actor *int) (*Transaction, error) {
	var status string
	err := tx.QueryRow(ctx, "SELECT status FROM transactions WHERE id = $1 FOR UPDATE", id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, failf(ErrTransactionNotFound, "transaction %d not found", id)
		}
		return nil, fmt.Errorf("failed to lock transaction %d: %w", id, err)
	}
	if TransactionStatus(status) == TransactionPosted {
		return nil, failf(ErrAlreadyPosted, "transaction %d is already posted", id)
	}

	rows, err := tx.Query(ctx, `
		SELECT e.account_id, a.code, a.type, e.debit, e.credit
		FROM entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE e.transaction_id = $1
		ORDER BY e.line_number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries for transaction %d: %w", id, err)
	}
	type stored struct {
		accountID int
		accType   AccountType
		input     EntryInput
	}
	var lines []stored
	for rows.Next() {
		var s stored
		var accType string
		if err := rows.Scan(&s.accountID, &s.input.AccountCode, &accType, &s.input.Debit, &s.input.Credit); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		s.accType = AccountType(accType)
		lines = append(lines, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	// Re-check against the stored rows, not the original request.
	inputs := make([]EntryInput, len(lines))
	for i, s := range lines {
		inputs[i] = s.input
	}
	if _, _, err := ValidateEntries(inputs); err != nil {
		return nil, err
	}

	deltas := make(map[int]decimal.Decimal)
	for _, s := range lines {
		deltas[s.accountID] = deltas[s.accountID].Add(BalanceDelta(s.accType, s.input.Debit, s.input.Credit))
	}
	// Fixed lock order across concurrent posters.
	ids := make([]int, 0, len(deltas))
	for accountID := range deltas {
		ids = append(ids, accountID)
	}
	sort.Ints(ids)
	for _, accountID := range ids {
		if _, err := tx.Exec(ctx,
			"UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2",
			deltas[accountID], accountID); err != nil {
			return nil, fmt.Errorf("failed to update balance of account %d: %w", accountID, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = $1, posted_at = NOW(), posted_by = $2
		WHERE id = $3
	`, string(TransactionPosted), actor, id); err != nil {
		return nil, fmt.Errorf("failed to mark transaction %d posted: %w", id, err)
	}

	return getTransaction(ctx, tx, id)
}

func (l *Ledger) GetTransaction(ctx context.Context, id int) (*Transaction, error) {
	return getTransaction(ctx, l.pool, id)
}

func getTransaction(ctx context.Context, q querier, id int) (*Transaction, error) {
	var t Transaction
	var status string
	err := q.QueryRow(ctx, `
		SELECT id, txn_date, reference, description, status, created_by, posted_by, created_at, posted_at
		FROM transactions WHERE id = $1
	`, id).Scan(&t.ID, &t.Date, &t.Reference, &t.Description, &status, &t.CreatedBy, &t.PostedBy, &t.CreatedAt, &t.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, failf(ErrTransactionNotFound, "transaction %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch transaction %d: %w", id, err)
	}
	t.Status = TransactionStatus(status)

	rows, err := q.Query(ctx, `
		SELECT e.id, e.transaction_id, e.line_number, e.account_id, a.code, e.debit, e.credit
		FROM entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE e.transaction_id = $1
		ORDER BY e.line_number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries for transaction %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.LineNumber, &e.AccountID, &e.AccountCode, &e.Debit, &e.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		t.Entries = append(t.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return &t, nil
}

func (l *Ledger) GetBalances(ctx context.Context) ([]AccountBalance, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT code, name, type, balance
		FROM accounts
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		var accType string
		if err := rows.Scan(&b.Code, &b.Name, &accType, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		b.Type = AccountType(accType)
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
