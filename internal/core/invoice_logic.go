package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Aging buckets, ordered.
const (
	BucketCurrent = "current"
	Bucket1To30   = "1-30"
	Bucket31To60  = "31-60"
	Bucket61To90  = "61-90"
	BucketOver90  = "90+"
)

var agingBuckets = []string{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

// BuildInvoiceLines validates requested lines and computes per-line totals
// and the invoice total, rounded to cents.
func BuildInvoiceLines(in []InvoiceLineInput) ([]InvoiceLine, decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, decimal.Zero, failf(ErrEmptyInvoice, "invoice must have at least one line")
	}
	lines := make([]InvoiceLine, len(in))
	total := decimal.Zero
	for i, l := range in {
		desc := strings.TrimSpace(l.Description)
		if desc == "" {
			return nil, decimal.Zero, failf(ErrInvalidInvoiceLine, "line %d has no description", i+1)
		}
		if !l.Quantity.IsPositive() {
			return nil, decimal.Zero, failf(ErrInvalidInvoiceLine, "line %d quantity must be > 0", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return nil, decimal.Zero, failf(ErrInvalidInvoiceLine, "line %d unit price cannot be negative", i+1)
		}
		lineTotal := l.Quantity.Mul(l.UnitPrice).Round(2)
		lines[i] = InvoiceLine{
			LineNumber:  i + 1,
			Description: desc,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   lineTotal,
		}
		total = total.Add(lineTotal)
	}
	return lines, total, nil
}

// ApplyPayment checks a payment against an invoice's total and what has
// already been paid, returning the new paid amount and status.
func ApplyPayment(total, alreadyPaid, amount decimal.Decimal) (decimal.Decimal, InvoiceStatus, error) {
	if !amount.IsPositive() {
		return alreadyPaid, "", failf(ErrInvalidAmount, "payment amount must be > 0, got %s", amount.String())
	}
	paid := alreadyPaid.Add(amount)
	if paid.GreaterThan(total) {
		return alreadyPaid, "", failf(ErrOverPayment, "payment of %s exceeds outstanding %s",
			amount.StringFixed(2), total.Sub(alreadyPaid).StringFixed(2))
	}
	return paid, PaymentStatus(total, paid), nil
}

// PaymentStatus derives the invoice status from its total and paid amount.
func PaymentStatus(total, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.IsZero():
		return InvoiceOpen
	case paid.GreaterThanOrEqual(total):
		return InvoicePaid
	default:
		return InvoicePartiallyPaid
	}
}

// DaysOverdue counts whole days past due; zero when not yet due.
func DaysOverdue(due, asOf time.Time) int {
	d := civilDate(asOf).Sub(civilDate(due)).Hours() / 24
	if d <= 0 {
		return 0
	}
	return int(d)
}

// AgingBucket places a days-overdue count into its aging bucket.
func AgingBucket(daysOverdue int) string {
	switch {
	case daysOverdue <= 0:
		return BucketCurrent
	case daysOverdue <= 30:
		return Bucket1To30
	case daysOverdue <= 60:
		return Bucket31To60
	case daysOverdue <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

func emptyBuckets() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(agingBuckets))
	for _, b := range agingBuckets {
		m[b] = decimal.Zero
	}
	return m
}

// receivableRow is one unpaid invoice joined with its agency.
type receivableRow struct {
	agencyID   int
	agencyCode string
	agencyName string
	invoice    ReceivableInvoice
}

// buildReceivablesReport groups rows (ordered by agency) into the aging report.
func buildReceivablesReport(rows []receivableRow, asOf time.Time) *ReceivablesReport {
	report := &ReceivablesReport{AsOf: asOf, Buckets: emptyBuckets(), Total: decimal.Zero}
	index := make(map[int]int)
	for _, r := range rows {
		inv := r.invoice
		inv.Outstanding = inv.Total.Sub(inv.Paid)
		inv.DaysOverdue = DaysOverdue(inv.DueDate, asOf)
		inv.Bucket = AgingBucket(inv.DaysOverdue)

		i, ok := index[r.agencyID]
		if !ok {
			report.Agencies = append(report.Agencies, AgencyReceivables{
				AgencyID:    r.agencyID,
				AgencyCode:  r.agencyCode,
				AgencyName:  r.agencyName,
				Outstanding: decimal.Zero,
				Buckets:     emptyBuckets(),
			})
			i = len(report.Agencies) - 1
			index[r.agencyID] = i
		}
		group := &report.Agencies[i]
		group.Invoices = append(group.Invoices, inv)
		group.Outstanding = group.Outstanding.Add(inv.Outstanding)
		group.Buckets[inv.Bucket] = group.Buckets[inv.Bucket].Add(inv.Outstanding)

		report.Buckets[inv.Bucket] = report.Buckets[inv.Bucket].Add(inv.Outstanding)
		report.Total = report.Total.Add(inv.Outstanding)
	}
	return report
}

// civilDate truncates t to midnight UTC of its calendar date.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
