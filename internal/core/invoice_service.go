package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService bills agencies, applies payments and derives receivables.
type InvoiceService interface {
	// CreateInvoice stores an open invoice. With AutoPost it also posts
	// DR receivables / CR revenue in the same storage transaction.
	CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error)
	// RecordPayment applies a payment; the invoice row is locked while the
	// over-payment check and insert run.
	RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentReceipt, error)
	GetInvoice(ctx context.Context, id int) (*Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	// GetAccountsReceivableReport groups unpaid invoices by agency with aging as of asOf.
	GetAccountsReceivableReport(ctx context.Context, asOf time.Time) (*ReceivablesReport, error)
}

type invoiceService struct {
	pool      *pgxpool.Pool
	ledger    LedgerService
	numbering NumberingService
	accounts  PostingAccounts
	log       *zap.Logger
}

func NewInvoiceService(pool *pgxpool.Pool, ledger LedgerService, numbering NumberingService, accounts PostingAccounts, log *zap.Logger) InvoiceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &invoiceService{pool: pool, ledger: ledger, numbering: numbering, accounts: accounts, log: log}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	lines, total, err := BuildInvoiceLines(in.Lines)
	if err != nil {
		return nil, observeRejection(err)
	}
	if in.IssueDate.IsZero() || in.DueDate.IsZero() {
		return nil, observeRejection(failf(ErrInvalidDates, "issue date and due date are required"))
	}
	if civilDate(in.DueDate).Before(civilDate(in.IssueDate)) {
		return nil, observeRejection(failf(ErrInvalidDates, "due date %s is before issue date %s",
			in.DueDate.Format("2006-01-02"), in.IssueDate.Format("2006-01-02")))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	agency, err := getAgency(ctx, tx, in.AgencyID, false)
	if err != nil {
		return nil, observeRejection(err)
	}

	number, err := s.numbering.NextNumberTx(ctx, tx, SeriesInvoice, in.IssueDate.Year())
	if err != nil {
		return nil, err
	}

	var invoiceID int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (number, agency_id, issue_date, due_date, total, paid_amount, status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)
		RETURNING id
	`, number, agency.ID, in.IssueDate, in.DueDate, total, string(InvoiceOpen), strings.TrimSpace(in.Notes), in.CreatedBy).Scan(&invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO invoice_lines (invoice_id, line_number, description, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, invoiceID, l.LineNumber, l.Description, l.Quantity, l.UnitPrice, l.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to insert invoice line: %w", err)
		}
	}

	if in.AutoPost && total.IsPositive() {
		posted, err := s.ledger.CreateAndPostTx(ctx, tx, CreateTransactionInput{
			Date:        in.IssueDate,
			Reference:   number,
			Description: fmt.Sprintf("Invoice %s for agency %s", number, agency.Code),
			Entries: []EntryInput{
				Debit(s.accounts.Receivable, total),
				Credit(s.accounts.Revenue, total),
			},
			CreatedBy: in.CreatedBy,
		})
		if err != nil {
			return nil, observeRejection(err)
		}
		if _, err := tx.Exec(ctx, "UPDATE invoices SET transaction_id = $1 WHERE id = $2", posted.ID, invoiceID); err != nil {
			return nil, fmt.Errorf("failed to link invoice transaction: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE agencies SET current_balance = current_balance + $1, updated_at = NOW() WHERE id = $2",
		total, agency.ID); err != nil {
		return nil, fmt.Errorf("failed to update agency balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("invoice created",
		zap.Int("invoice_id", invoiceID),
		zap.String("number", number),
		zap.String("total", total.StringFixed(2)),
		zap.Bool("auto_post", in.AutoPost))
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentReceipt, error) {
	if !in.Amount.IsPositive() {
		return nil, observeRejection(failf(ErrInvalidAmount, "payment amount must be > 0, got %s", in.Amount.String()))
	}
	if !in.Method.Valid() {
		return nil, observeRejection(failf(ErrInvalidPaymentMethod, "unknown payment method %q", in.Method))
	}
	if in.Date.IsZero() {
		return nil, observeRejection(failf(ErrInvalidDates, "payment date is required"))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total decimal.Decimal
	var agencyID int
	var number string
	err = tx.QueryRow(ctx,
		"SELECT total, agency_id, number FROM invoices WHERE id = $1 FOR UPDATE", in.InvoiceID,
	).Scan(&total, &agencyID, &number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, observeRejection(failf(ErrInvoiceNotFound, "invoice %d not found", in.InvoiceID))
		}
		return nil, fmt.Errorf("failed to lock invoice %d: %w", in.InvoiceID, err)
	}

	// Sum the stored payments under the row lock rather than trusting a cached total.
	var alreadyPaid decimal.Decimal
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1", in.InvoiceID,
	).Scan(&alreadyPaid); err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	paid, status, err := ApplyPayment(total, alreadyPaid, in.Amount)
	if err != nil {
		return nil, observeRejection(err)
	}

	var transactionID *int
	if s.accounts.PostPayments {
		posted, err := s.ledger.CreateAndPostTx(ctx, tx, CreateTransactionInput{
			Date:        in.Date,
			Description: fmt.Sprintf("Payment received for invoice %s", number),
			Entries: []EntryInput{
				Debit(s.accounts.Cash, in.Amount),
				Credit(s.accounts.Receivable, in.Amount),
			},
			CreatedBy: in.CreatedBy,
		})
		if err != nil {
			return nil, observeRejection(err)
		}
		transactionID = &posted.ID
	}

	p := Payment{
		InvoiceID:     in.InvoiceID,
		Amount:        in.Amount,
		Method:        in.Method,
		PaymentDate:   in.Date,
		Reference:     strings.TrimSpace(in.Reference),
		Notes:         strings.TrimSpace(in.Notes),
		TransactionID: transactionID,
		CreatedBy:     in.CreatedBy,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, method, payment_date, reference, notes, transaction_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, p.InvoiceID, p.Amount, string(p.Method), p.PaymentDate, p.Reference, p.Notes, p.TransactionID, p.CreatedBy).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE invoices SET paid_amount = $1, status = $2, updated_at = NOW() WHERE id = $3",
		paid, string(status), in.InvoiceID); err != nil {
		return nil, fmt.Errorf("failed to update invoice status: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE agencies SET current_balance = current_balance - $1, updated_at = NOW() WHERE id = $2",
		in.Amount, agencyID); err != nil {
		return nil, fmt.Errorf("failed to update agency balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	paymentsRecorded.WithLabelValues(string(in.Method)).Inc()
	s.log.Info("payment recorded",
		zap.Int("invoice_id", in.InvoiceID),
		zap.String("amount", in.Amount.StringFixed(2)),
		zap.String("status", string(status)))

	inv, err := s.GetInvoice(ctx, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	return &PaymentReceipt{Payment: p, Invoice: *inv}, nil
}

const invoiceSelect = `
	SELECT i.id, i.number, i.agency_id, a.code, i.issue_date, i.due_date, i.total, i.paid_amount,
	       i.status, i.notes, i.transaction_id, i.created_by, i.created_at
	FROM invoices i
	JOIN agencies a ON a.id = i.agency_id`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var status string
	if err := row.Scan(&inv.ID, &inv.Number, &inv.AgencyID, &inv.AgencyCode, &inv.IssueDate, &inv.DueDate,
		&inv.Total, &inv.PaidAmount, &status, &inv.Notes, &inv.TransactionID, &inv.CreatedBy, &inv.CreatedAt); err != nil {
		return nil, err
	}
	inv.Status = InvoiceStatus(status)
	return &inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, invoiceSelect+" WHERE i.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, failf(ErrInvoiceNotFound, "invoice %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, line_number, description, quantity, unit_price, line_total
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice lines: %w", err)
	}
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.LineNumber, &l.Description, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice lines: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, invoice_id, amount, method, payment_date, reference, notes, transaction_id, created_by, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p Payment
		var method string
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &method, &p.PaymentDate, &p.Reference, &p.Notes,
			&p.TransactionID, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Method = PaymentMethod(method)
		inv.Payments = append(inv.Payments, p)
	}
	return inv, rows.Err()
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	q := invoiceSelect + " WHERE 1 = 1"
	var args []any
	if filter.AgencyID != nil {
		args = append(args, *filter.AgencyID)
		q += fmt.Sprintf(" AND i.agency_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		q += fmt.Sprintf(" AND i.status = $%d", len(args))
	}
	q += " ORDER BY i.issue_date DESC, i.id DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (s *invoiceService) GetAccountsReceivableReport(ctx context.Context, asOf time.Time) (*ReceivablesReport, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.code, a.name, i.id, i.number, i.issue_date, i.due_date, i.total, i.paid_amount
		FROM invoices i
		JOIN agencies a ON a.id = i.agency_id
		WHERE i.status <> $1
		  AND i.issue_date <= $2::date
		ORDER BY a.code, i.due_date, i.id
	`, string(InvoicePaid), asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query receivables: %w", err)
	}
	defer rows.Close()

	var data []receivableRow
	for rows.Next() {
		var r receivableRow
		if err := rows.Scan(&r.agencyID, &r.agencyCode, &r.agencyName,
			&r.invoice.InvoiceID, &r.invoice.Number, &r.invoice.IssueDate, &r.invoice.DueDate,
			&r.invoice.Total, &r.invoice.Paid); err != nil {
			return nil, fmt.Errorf("failed to scan receivable: %w", err)
		}
		data = append(data, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("receivables row iteration error: %w", err)
	}
	return buildReceivablesReport(data, asOf), nil
}
