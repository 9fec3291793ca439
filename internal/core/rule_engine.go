package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DefaultCurrency is used when a booking does not name one.
const DefaultCurrency = "EUR"

// CommissionEngine owns commission rules and computes and tracks agency commissions.
type CommissionEngine interface {
	CreateRule(ctx context.Context, in CreateRuleInput) (*CommissionRule, error)
	UpdateRule(ctx context.Context, id int, upd RuleUpdate, actor *int) (*CommissionRule, error)
	// DeactivateRule stops a rule from matching; the row is kept for history.
	DeactivateRule(ctx context.Context, id int, actor *int) (*CommissionRule, error)
	GetRule(ctx context.Context, id int) (*CommissionRule, error)
	// ListRules returns rules for an agency plus global rules; nil lists all.
	ListRules(ctx context.Context, agencyID *int) ([]CommissionRule, error)

	// CalculateCommissionForBooking resolves the best rule (or the agency
	// default rate) and returns an unsaved pending Commission.
	CalculateCommissionForBooking(ctx context.Context, b BookingInput) (*Commission, error)
	// RecordCommission calculates and stores a pending commission; one per booking.
	RecordCommission(ctx context.Context, b BookingInput) (*Commission, error)
	GetCommission(ctx context.Context, id int) (*Commission, error)
	ListCommissions(ctx context.Context, agencyID *int, status *CommissionStatus) ([]Commission, error)

	ApproveCommission(ctx context.Context, id int) (*Commission, error)
	MarkCommissionPaid(ctx context.Context, id int) (*Commission, error)
	CancelCommission(ctx context.Context, id int) (*Commission, error)
}

type commissionEngine struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	now  func() time.Time
}

// NewCommissionEngine constructs a CommissionEngine backed by the commission_rules table.
func NewCommissionEngine(pool *pgxpool.Pool, log *zap.Logger) CommissionEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &commissionEngine{pool: pool, log: log, now: time.Now}
}

// ── Rules ────────────────────────────────────────────────────────────────────

func (e *commissionEngine) CreateRule(ctx context.Context, in CreateRuleInput) (*CommissionRule, error) {
	in.ProductCategory = normalizeFilter(in.ProductCategory)
	in.Destination = normalizeFilter(in.Destination)
	if err := ValidateRule(in); err != nil {
		return nil, observeRejection(err)
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if in.AgencyID != nil {
		if _, err := getAgency(ctx, tx, *in.AgencyID, false); err != nil {
			return nil, observeRejection(err)
		}
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO commission_rules (agency_id, product_category, destination, rule_type, value,
		                              effective_from, effective_until, min_amount, max_amount, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id
	`, in.AgencyID, in.ProductCategory, in.Destination, string(in.Type), in.Value,
		in.EffectiveFrom, in.EffectiveUntil, in.MinAmount, in.MaxAmount, in.CreatedBy).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert commission rule: %w", err)
	}
	if err := insertTiers(ctx, tx, id, in.Tiers); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	e.log.Info("commission rule created", zap.Int("rule_id", id), zap.String("type", string(in.Type)))
	return e.GetRule(ctx, id)
}

func insertTiers(ctx context.Context, tx pgx.Tx, ruleID int, tiers []RuleTier) error {
	for _, t := range tiers {
		if _, err := tx.Exec(ctx,
			"INSERT INTO commission_rule_tiers (rule_id, threshold, rate) VALUES ($1, $2, $3)",
			ruleID, t.Threshold, t.Rate); err != nil {
			return fmt.Errorf("failed to insert rule tier: %w", err)
		}
	}
	return nil
}

func (e *commissionEngine) UpdateRule(ctx context.Context, id int, upd RuleUpdate, actor *int) (*CommissionRule, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rules, err := loadRules(ctx, tx, "WHERE r.id = $1 FOR UPDATE OF r", id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, observeRejection(failf(ErrRuleNotFound, "commission rule %d not found", id))
	}

	// Validate the merged result, not just the delta.
	current := rules[0]
	merged := CreateRuleInput{
		AgencyID: current.AgencyID, ProductCategory: current.ProductCategory, Destination: current.Destination,
		Type: current.Type, Value: current.Value, EffectiveFrom: current.EffectiveFrom, EffectiveUntil: current.EffectiveUntil,
		MinAmount: current.MinAmount, MaxAmount: current.MaxAmount, Tiers: current.Tiers,
	}
	if upd.Value != nil {
		merged.Value = *upd.Value
	}
	if upd.EffectiveFrom != nil {
		merged.EffectiveFrom = *upd.EffectiveFrom
	}
	if upd.EffectiveUntil != nil {
		merged.EffectiveUntil = upd.EffectiveUntil
	}
	if upd.MinAmount != nil {
		merged.MinAmount = upd.MinAmount
	}
	if upd.MaxAmount != nil {
		merged.MaxAmount = upd.MaxAmount
	}
	if upd.Tiers != nil {
		merged.Tiers = upd.Tiers
	}
	if err := ValidateRule(merged); err != nil {
		return nil, observeRejection(err)
	}

	u := newUpdate("commission_rules")
	setOpt(u, "value", upd.Value)
	setOpt(u, "effective_from", upd.EffectiveFrom)
	setOpt(u, "effective_until", upd.EffectiveUntil)
	setOpt(u, "min_amount", upd.MinAmount)
	setOpt(u, "max_amount", upd.MaxAmount)
	setOpt(u, "is_active", upd.IsActive)
	if !u.empty() || upd.Tiers != nil {
		u.set("updated_by", actor).setRaw("updated_at = NOW()")
		sql, args := u.build("id", id)
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return nil, fmt.Errorf("failed to update commission rule %d: %w", id, err)
		}
	}
	if upd.Tiers != nil {
		if _, err := tx.Exec(ctx, "DELETE FROM commission_rule_tiers WHERE rule_id = $1", id); err != nil {
			return nil, fmt.Errorf("failed to clear rule tiers: %w", err)
		}
		if err := insertTiers(ctx, tx, id, upd.Tiers); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return e.GetRule(ctx, id)
}

func (e *commissionEngine) DeactivateRule(ctx context.Context, id int, actor *int) (*CommissionRule, error) {
	tag, err := e.pool.Exec(ctx,
		"UPDATE commission_rules SET is_active = false, updated_by = $2, updated_at = NOW() WHERE id = $1",
		id, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate commission rule %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, observeRejection(failf(ErrRuleNotFound, "commission rule %d not found", id))
	}
	e.log.Info("commission rule deactivated", zap.Int("rule_id", id))
	return e.GetRule(ctx, id)
}

const ruleSelect = `
	SELECT r.id, r.agency_id, r.product_category, r.destination, r.rule_type, r.value,
	       r.effective_from, r.effective_until, r.min_amount, r.max_amount, r.is_active,
	       r.created_by, r.updated_by, r.created_at, r.updated_at
	FROM commission_rules r `

// loadRules runs ruleSelect with the given tail and attaches tiers.
func loadRules(ctx context.Context, q querier, tail string, args ...any) ([]CommissionRule, error) {
	rows, err := q.Query(ctx, ruleSelect+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commission rules: %w", err)
	}
	var rules []CommissionRule
	for rows.Next() {
		var r CommissionRule
		var ruleType string
		if err := rows.Scan(&r.ID, &r.AgencyID, &r.ProductCategory, &r.Destination, &ruleType, &r.Value,
			&r.EffectiveFrom, &r.EffectiveUntil, &r.MinAmount, &r.MaxAmount, &r.IsActive,
			&r.CreatedBy, &r.UpdatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan commission rule: %w", err)
		}
		r.Type = RuleType(ruleType)
		rules = append(rules, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commission rules: %w", err)
	}
	if len(rules) == 0 {
		return rules, nil
	}

	ids := make([]int, len(rules))
	byID := make(map[int]int, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
		byID[r.ID] = i
	}
	tierRows, err := q.Query(ctx, `
		SELECT rule_id, threshold, rate
		FROM commission_rule_tiers
		WHERE rule_id = ANY($1)
		ORDER BY rule_id, threshold
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule tiers: %w", err)
	}
	defer tierRows.Close()
	for tierRows.Next() {
		var ruleID int
		var t RuleTier
		if err := tierRows.Scan(&ruleID, &t.Threshold, &t.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan rule tier: %w", err)
		}
		i := byID[ruleID]
		rules[i].Tiers = append(rules[i].Tiers, t)
	}
	return rules, tierRows.Err()
}

func (e *commissionEngine) GetRule(ctx context.Context, id int) (*CommissionRule, error) {
	rules, err := loadRules(ctx, e.pool, "WHERE r.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, failf(ErrRuleNotFound, "commission rule %d not found", id)
	}
	return &rules[0], nil
}

func (e *commissionEngine) ListRules(ctx context.Context, agencyID *int) ([]CommissionRule, error) {
	if agencyID == nil {
		return loadRules(ctx, e.pool, "ORDER BY r.id")
	}
	return loadRules(ctx, e.pool, "WHERE r.agency_id IS NULL OR r.agency_id = $1 ORDER BY r.id", *agencyID)
}

// ── Calculation ──────────────────────────────────────────────────────────────

func (e *commissionEngine) CalculateCommissionForBooking(ctx context.Context, b BookingInput) (*Commission, error) {
	c, err := e.calculate(ctx, e.pool, b)
	if err != nil {
		return nil, observeRejection(err)
	}
	return c, nil
}

func (e *commissionEngine) calculate(ctx context.Context, q querier, b BookingInput) (*Commission, error) {
	if b.Amount.IsNegative() {
		return nil, failf(ErrInvalidAmount, "booking amount cannot be negative")
	}
	b.ProductCategory = normalizeFilter(b.ProductCategory)
	b.Destination = normalizeFilter(b.Destination)
	currency := strings.ToUpper(strings.TrimSpace(b.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	agency, err := getAgency(ctx, q, b.AgencyID, false)
	if err != nil {
		return nil, err
	}

	now := e.now()
	// Coarse SQL prefilter; ResolveRule applies the exact matching.
	rules, err := loadRules(ctx, q, `
		WHERE r.is_active
		  AND (r.agency_id IS NULL OR r.agency_id = $1)
		  AND r.effective_from <= $2
		  AND (r.effective_until IS NULL OR r.effective_until >= $2)
		ORDER BY r.id`, b.AgencyID, now)
	if err != nil {
		return nil, err
	}

	c := &Commission{
		BookingRef: strings.TrimSpace(b.BookingRef),
		AgencyID:   agency.ID,
		BaseAmount: b.Amount,
		Currency:   currency,
		Status:     CommissionPending,
	}
	if rule, ok := ResolveRule(rules, b, now); ok {
		id := rule.ID
		c.RuleID = &id
		c.RuleType = rule.Type
		c.Source = SourceRule
		c.Specificity = Specificity(rule)
		c.Amount = ComputeCommission(rule, b.Amount)
	} else {
		if agency.CommissionRate == nil || agency.CommissionRate.IsZero() {
			return nil, failf(ErrNoApplicableRule, "no commission rule matches agency %s and it has no default rate", agency.Code)
		}
		c.RuleType = RulePercentage
		c.Source = SourceAgencyDefault
		c.Amount = DefaultCommission(*agency.CommissionRate, b.Amount)
	}
	commissionsCalculated.WithLabelValues(c.Source).Inc()
	return c, nil
}

func (e *commissionEngine) RecordCommission(ctx context.Context, b BookingInput) (*Commission, error) {
	if strings.TrimSpace(b.BookingRef) == "" {
		return nil, observeRejection(failf(ErrValidation, "booking reference is required"))
	}
	c, err := e.calculate(ctx, e.pool, b)
	if err != nil {
		return nil, observeRejection(err)
	}

	err = e.pool.QueryRow(ctx, `
		INSERT INTO commissions (booking_ref, agency_id, rule_id, rule_type, source, base_amount, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (booking_ref) DO NOTHING
		RETURNING id, created_at
	`, c.BookingRef, c.AgencyID, c.RuleID, string(c.RuleType), c.Source, c.BaseAmount, c.Amount, c.Currency,
		string(c.Status)).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, observeRejection(failf(ErrDuplicateCommission, "commission for booking %s already exists", c.BookingRef))
		}
		return nil, fmt.Errorf("failed to insert commission: %w", err)
	}
	e.log.Info("commission recorded",
		zap.String("booking_ref", c.BookingRef),
		zap.Int("agency_id", c.AgencyID),
		zap.String("amount", c.Amount.StringFixed(2)),
		zap.String("source", c.Source))
	return c, nil
}

// ── Commission lifecycle ─────────────────────────────────────────────────────

const commissionSelect = `
	SELECT id, booking_ref, agency_id, rule_id, rule_type, source, base_amount, amount, currency, status,
	       created_at, approved_at, paid_at, cancelled_at
	FROM commissions`

func scanCommission(row pgx.Row) (*Commission, error) {
	var c Commission
	var ruleType, status string
	if err := row.Scan(&c.ID, &c.BookingRef, &c.AgencyID, &c.RuleID, &ruleType, &c.Source, &c.BaseAmount, &c.Amount,
		&c.Currency, &status, &c.CreatedAt, &c.ApprovedAt, &c.PaidAt, &c.CancelledAt); err != nil {
		return nil, err
	}
	c.RuleType = RuleType(ruleType)
	c.Status = CommissionStatus(status)
	return &c, nil
}

func (e *commissionEngine) GetCommission(ctx context.Context, id int) (*Commission, error) {
	c, err := scanCommission(e.pool.QueryRow(ctx, commissionSelect+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, failf(ErrCommissionNotFound, "commission %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch commission %d: %w", id, err)
	}
	return c, nil
}

func (e *commissionEngine) ListCommissions(ctx context.Context, agencyID *int, status *CommissionStatus) ([]Commission, error) {
	q := commissionSelect + " WHERE 1 = 1"
	var args []any
	if agencyID != nil {
		args = append(args, *agencyID)
		q += fmt.Sprintf(" AND agency_id = $%d", len(args))
	}
	if status != nil {
		args = append(args, string(*status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := e.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commissions: %w", err)
	}
	defer rows.Close()

	var out []Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commission: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (e *commissionEngine) ApproveCommission(ctx context.Context, id int) (*Commission, error) {
	return e.transition(ctx, id, CommissionApproved)
}

func (e *commissionEngine) MarkCommissionPaid(ctx context.Context, id int) (*Commission, error) {
	return e.transition(ctx, id, CommissionPaid)
}

func (e *commissionEngine) CancelCommission(ctx context.Context, id int) (*Commission, error) {
	return e.transition(ctx, id, CommissionCancelled)
}

func (e *commissionEngine) transition(ctx context.Context, id int, next CommissionStatus) (*Commission, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, "SELECT status FROM commissions WHERE id = $1 FOR UPDATE", id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, observeRejection(failf(ErrCommissionNotFound, "commission %d not found", id))
		}
		return nil, fmt.Errorf("failed to lock commission %d: %w", id, err)
	}
	current := CommissionStatus(status)
	if !current.CanTransitionTo(next) {
		return nil, observeRejection(failf(ErrInvalidTransition, "commission %d cannot move from %s to %s", id, current, next))
	}
	if err := setCommissionStatus(ctx, tx, id, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	e.log.Info("commission status changed", zap.Int("commission_id", id), zap.String("from", status), zap.String("to", string(next)))
	return e.GetCommission(ctx, id)
}

// setCommissionStatus writes the new status and its timestamp column.
func setCommissionStatus(ctx context.Context, tx pgx.Tx, id int, next CommissionStatus) error {
	u := newUpdate("commissions").set("status", string(next))
	switch next {
	case CommissionApproved:
		u.setRaw("approved_at = NOW()")
	case CommissionPaid:
		u.setRaw("paid_at = NOW()")
	case CommissionCancelled:
		u.setRaw("cancelled_at = NOW()")
	}
	sql, args := u.build("id", id)
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to update commission %d: %w", id, err)
	}
	return nil
}
