package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
)

func (s InvoiceStatus) Valid() bool {
	return s == InvoiceOpen || s == InvoicePartiallyPaid || s == InvoicePaid
}

type PaymentMethod string

const (
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
	PaymentCash     PaymentMethod = "cash"
	PaymentCheck    PaymentMethod = "check"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentTransfer, PaymentCard, PaymentCash, PaymentCheck:
		return true
	}
	return false
}

// Invoice bills an agency. TransactionID is set when the invoice was
// auto-posted to the ledger.
type Invoice struct {
	ID            int             `json:"id"`
	Number        string          `json:"number"`
	AgencyID      int             `json:"agency_id"`
	AgencyCode    string          `json:"agency_code"`
	IssueDate     time.Time       `json:"issue_date"`
	DueDate       time.Time       `json:"due_date"`
	Total         decimal.Decimal `json:"total"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Status        InvoiceStatus   `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	TransactionID *int            `json:"transaction_id,omitempty"`
	Lines         []InvoiceLine   `json:"lines"`
	Payments      []Payment       `json:"payments,omitempty"`
	CreatedBy     *int            `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Outstanding is the unpaid remainder of the invoice.
func (inv *Invoice) Outstanding() decimal.Decimal {
	return inv.Total.Sub(inv.PaidAmount)
}

// InvoiceLine is one billed item.
type InvoiceLine struct {
	ID          int             `json:"id"`
	LineNumber  int             `json:"line_number"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// InvoiceLineInput is a requested invoice line.
type InvoiceLineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Payment is money received against an invoice.
type Payment struct {
	ID            int             `json:"id"`
	InvoiceID     int             `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	PaymentDate   time.Time       `json:"payment_date"`
	Reference     string          `json:"reference,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	TransactionID *int            `json:"transaction_id,omitempty"`
	CreatedBy     *int            `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentReceipt is the outcome of RecordPayment: the stored payment and the
// invoice state after applying it.
type PaymentReceipt struct {
	Payment Payment `json:"payment"`
	Invoice Invoice `json:"invoice"`
}

// CreateInvoiceInput is the input for billing an agency.
type CreateInvoiceInput struct {
	AgencyID  int
	IssueDate time.Time
	DueDate   time.Time
	Lines     []InvoiceLineInput
	Notes     string
	AutoPost  bool
	CreatedBy *int
}

// RecordPaymentInput is the input for applying a payment to an invoice.
type RecordPaymentInput struct {
	InvoiceID int
	Amount    decimal.Decimal
	Method    PaymentMethod
	Date      time.Time
	Reference string
	Notes     string
	CreatedBy *int
}

// InvoiceFilter narrows ListInvoices. Nil fields do not filter.
type InvoiceFilter struct {
	AgencyID *int
	Status   *InvoiceStatus
}

// PostingAccounts names the accounts used for automatic invoice and payment postings.
type PostingAccounts struct {
	Receivable   string
	Revenue      string
	Cash         string
	PostPayments bool
}

// ── Accounts receivable ───────────────────────────────────────────────────────

// ReceivableInvoice is one unpaid invoice in the receivables report.
type ReceivableInvoice struct {
	InvoiceID   int             `json:"invoice_id"`
	Number      string          `json:"number"`
	IssueDate   time.Time       `json:"issue_date"`
	DueDate     time.Time       `json:"due_date"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DaysOverdue int             `json:"days_overdue"`
	Bucket      string          `json:"bucket"`
}

// AgencyReceivables groups unpaid invoices for one agency.
type AgencyReceivables struct {
	AgencyID    int                        `json:"agency_id"`
	AgencyCode  string                     `json:"agency_code"`
	AgencyName  string                     `json:"agency_name"`
	Outstanding decimal.Decimal            `json:"outstanding"`
	Buckets     map[string]decimal.Decimal `json:"buckets"`
	Invoices    []ReceivableInvoice        `json:"invoices"`
}

// ReceivablesReport is the accounts-receivable aging view.
type ReceivablesReport struct {
	AsOf     time.Time                  `json:"as_of"`
	Agencies []AgencyReceivables        `json:"agencies"`
	Buckets  map[string]decimal.Decimal `json:"buckets"`
	Total    decimal.Decimal            `json:"total"`
}
