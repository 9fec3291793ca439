package core_test

import (
	"context"
	"os"
	"testing"

	"agency-ledger/internal/core"
	"agency-ledger/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var testPosting = core.PostingAccounts{Receivable: "1100", Revenue: "4000", Cash: "1000", PostPayments: true}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Integration tests wipe every table; never point this at a live database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, zap.NewNop()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE ranking_snapshots, commissions, bookings, commission_rule_tiers, commission_rules,
			payments, invoice_lines, invoices, user_sessions, agency_users, agencies,
			entries, transactions, document_sequences, accounts
		RESTART IDENTITY CASCADE;

		INSERT INTO accounts (code, name, type) VALUES
			('1000', 'Cash and Bank', 'asset'),
			('1100', 'Accounts Receivable', 'asset'),
			('2000', 'Commissions Payable', 'liability'),
			('3000', 'Owner Equity', 'equity'),
			('4000', 'Booking Revenue', 'revenue'),
			('5000', 'Agency Commission Expense', 'expense');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}
	return pool
}

type testServices struct {
	ledger      *core.Ledger
	invoices    core.InvoiceService
	agencies    core.AgencyService
	commissions core.CommissionEngine
	bookings    core.BookingService
	reports     core.ReportingService
}

func newTestServices(pool *pgxpool.Pool) testServices {
	log := zap.NewNop()
	numbering := core.NewNumberingService()
	ledger := core.NewLedger(pool, numbering, log)
	return testServices{
		ledger:      ledger,
		invoices:    core.NewInvoiceService(pool, ledger, numbering, testPosting, log),
		agencies:    core.NewAgencyService(pool, log),
		commissions: core.NewCommissionEngine(pool, log),
		bookings:    core.NewBookingService(pool, log),
		reports:     core.NewReportingService(pool, ledger),
	}
}

// activeAgency creates and approves an agency. A nil rate leaves it without a default commission.
func activeAgency(t *testing.T, svc core.AgencyService, code string, rate *decimal.Decimal) *core.Agency {
	t.Helper()
	ctx := context.Background()
	a, err := svc.CreateAgency(ctx, core.CreateAgencyInput{
		Code:           code,
		Name:           "Agency " + code,
		Email:          code + "@example.com",
		CommissionRate: rate,
		CreditLimit:    decimal.NewFromInt(10000),
	})
	if err != nil {
		t.Fatalf("CreateAgency(%s): %v", code, err)
	}
	a, err = svc.ApproveAgency(ctx, a.ID, nil)
	if err != nil {
		t.Fatalf("ApproveAgency(%s): %v", code, err)
	}
	return a
}

func balanceOf(t *testing.T, ledger *core.Ledger, code string) decimal.Decimal {
	t.Helper()
	a, err := ledger.GetAccount(context.Background(), code)
	if err != nil {
		t.Fatalf("GetAccount(%s): %v", code, err)
	}
	return a.Balance
}
