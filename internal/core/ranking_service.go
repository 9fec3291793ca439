package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RankingService computes agency performance rankings and reads the snapshot.
type RankingService interface {
	// CalculateAgencyRankings scores every active agency and replaces the
	// whole ranking_snapshots set in one transaction.
	CalculateAgencyRankings(ctx context.Context) ([]AgencyRanking, error)
	GetTopPerformingAgencies(ctx context.Context, limit int) ([]AgencyRanking, error)
	GetAgencyRankingReport(ctx context.Context) (*RankingReport, error)
}

type rankingService struct {
	pool *pgxpool.Pool
	cfg  RankingConfig
	log  *zap.Logger
	now  func() time.Time
}

// NewRankingService constructs a RankingService. cfg is validated up front.
func NewRankingService(pool *pgxpool.Pool, cfg RankingConfig, log *zap.Logger) (RankingService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &rankingService{pool: pool, cfg: cfg, log: log, now: time.Now}, nil
}

var confirmedStatuses = []string{string(BookingConfirmed), string(BookingPaid)}

func (s *rankingService) CalculateAgencyRankings(ctx context.Context) ([]AgencyRanking, error) {
	started := time.Now()
	asOf := s.now().UTC()
	start := s.cfg.PeriodStart(asOf)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialise recomputations; readers keep seeing the previous set until commit.
	if _, err := tx.Exec(ctx, "LOCK TABLE ranking_snapshots IN EXCLUSIVE MODE"); err != nil {
		return nil, fmt.Errorf("failed to lock ranking snapshots: %w", err)
	}

	acts, err := loadActivity(ctx, tx, start, asOf)
	if err != nil {
		return nil, err
	}
	rankings := ScoreAgencies(acts, s.cfg, asOf)

	if _, err := tx.Exec(ctx, "DELETE FROM ranking_snapshots"); err != nil {
		return nil, fmt.Errorf("failed to clear ranking snapshots: %w", err)
	}
	rows := make([][]any, len(rankings))
	for i, r := range rankings {
		rows[i] = []any{r.AgencyID, r.Rank, r.Score, r.Tier, r.Revenue, r.BookingCount, r.ConfirmedCount,
			r.ConversionRate, r.CommissionTotal, r.LastBookingAt, r.PeriodStart, r.PeriodEnd, r.CalculatedAt}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"ranking_snapshots"}, snapshotColumns, pgx.CopyFromRows(rows)); err != nil {
		return nil, fmt.Errorf("failed to write ranking snapshots: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	rankingDuration.Observe(time.Since(started).Seconds())
	s.log.Info("agency rankings recomputed",
		zap.Int("agencies", len(rankings)),
		zap.Time("period_start", start),
		zap.Duration("took", time.Since(started)))
	return rankings, nil
}

var snapshotColumns = []string{
	"agency_id", "rank", "score", "tier", "revenue", "booking_count", "confirmed_count",
	"conversion_rate", "commission_total", "last_booking_at", "period_start", "period_end", "calculated_at",
}

// loadActivity aggregates bookings and commissions for active agencies in [start, end].
func loadActivity(ctx context.Context, q querier, start, end time.Time) ([]AgencyActivity, error) {
	rows, err := q.Query(ctx, `
		SELECT a.id, a.code, a.name,
		       COALESCE(SUM(b.amount) FILTER (WHERE b.status = ANY($3)), 0),
		       COUNT(b.id),
		       COUNT(b.id) FILTER (WHERE b.status = ANY($3)),
		       MAX(b.booked_at)
		FROM agencies a
		LEFT JOIN bookings b
		       ON b.agency_id = a.id AND b.booked_at >= $1 AND b.booked_at <= $2
		WHERE a.status = 'active'
		GROUP BY a.id, a.code, a.name
		ORDER BY a.code
	`, start, end, confirmedStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bookings: %w", err)
	}
	var acts []AgencyActivity
	index := make(map[int]int)
	for rows.Next() {
		a := AgencyActivity{CommissionTotal: decimal.Zero}
		if err := rows.Scan(&a.AgencyID, &a.AgencyCode, &a.AgencyName, &a.Revenue, &a.Bookings, &a.Confirmed, &a.LastBookingAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan agency activity: %w", err)
		}
		index[a.AgencyID] = len(acts)
		acts = append(acts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agency activity: %w", err)
	}

	crows, err := q.Query(ctx, `
		SELECT agency_id, COALESCE(SUM(amount), 0)
		FROM commissions
		WHERE status <> 'cancelled' AND created_at >= $1 AND created_at <= $2
		GROUP BY agency_id
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate commissions: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var agencyID int
		var total decimal.Decimal
		if err := crows.Scan(&agencyID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan commission total: %w", err)
		}
		if i, ok := index[agencyID]; ok {
			acts[i].CommissionTotal = total
		}
	}
	return acts, crows.Err()
}

const snapshotSelect = `
	SELECT s.agency_id, a.code, a.name, s.rank, s.score, s.tier, s.revenue, s.booking_count, s.confirmed_count,
	       s.conversion_rate, s.commission_total, s.last_booking_at, s.period_start, s.period_end, s.calculated_at
	FROM ranking_snapshots s
	JOIN agencies a ON a.id = s.agency_id
	ORDER BY s.rank`

func (s *rankingService) readSnapshot(ctx context.Context, limit int) ([]AgencyRanking, error) {
	q := snapshotSelect
	var args []any
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking snapshots: %w", err)
	}
	defer rows.Close()

	var out []AgencyRanking
	for rows.Next() {
		var r AgencyRanking
		if err := rows.Scan(&r.AgencyID, &r.AgencyCode, &r.AgencyName, &r.Rank, &r.Score, &r.Tier, &r.Revenue,
			&r.BookingCount, &r.ConfirmedCount, &r.ConversionRate, &r.CommissionTotal, &r.LastBookingAt,
			&r.PeriodStart, &r.PeriodEnd, &r.CalculatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ranking snapshot: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *rankingService) GetTopPerformingAgencies(ctx context.Context, limit int) ([]AgencyRanking, error) {
	if limit <= 0 {
		return nil, observeRejection(failf(ErrValidation, "limit must be positive"))
	}
	return s.readSnapshot(ctx, limit)
}

func (s *rankingService) GetAgencyRankingReport(ctx context.Context) (*RankingReport, error) {
	rows, err := s.readSnapshot(ctx, 0)
	if err != nil {
		return nil, err
	}
	return summarizeRankings(rows, s.cfg), nil
}
