package app

import (
	"fmt"

	"agency-ledger/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// WireServices builds every core service on top of one pool.
func WireServices(pool *pgxpool.Pool, posting core.PostingAccounts, ranking core.RankingConfig, log *zap.Logger) (Services, error) {
	numbering := core.NewNumberingService()
	ledger := core.NewLedger(pool, numbering, log)

	rankings, err := core.NewRankingService(pool, ranking, log)
	if err != nil {
		return Services{}, fmt.Errorf("failed to build ranking service: %w", err)
	}

	return Services{
		Ledger:      ledger,
		Invoices:    core.NewInvoiceService(pool, ledger, numbering, posting, log),
		Agencies:    core.NewAgencyService(pool, log),
		Commissions: core.NewCommissionEngine(pool, log),
		Bookings:    core.NewBookingService(pool, log),
		Rankings:    rankings,
		Reports:     core.NewReportingService(pool, ledger),
	}, nil
}
