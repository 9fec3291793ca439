package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AgencyService manages agency applications and the agency lifecycle.
type AgencyService interface {
	// CreateAgency records an application; the agency starts pending.
	CreateAgency(ctx context.Context, in CreateAgencyInput) (*Agency, error)
	GetAgency(ctx context.Context, id int) (*Agency, error)
	ListAgencies(ctx context.Context, status *AgencyStatus) ([]Agency, error)
	UpdateTerms(ctx context.Context, id int, upd AgencyTermsUpdate, actor *int) (*Agency, error)

	// ChangeStatus moves the agency along its lifecycle. Leaving active
	// deactivates its users and drops their sessions in the same transaction.
	ChangeStatus(ctx context.Context, id int, next AgencyStatus, actor *int) (*Agency, error)
	ApproveAgency(ctx context.Context, id int, actor *int) (*Agency, error)

	AddUser(ctx context.Context, agencyID int, username, email string) (*AgencyUser, error)
	ListUsers(ctx context.Context, agencyID int) ([]AgencyUser, error)
}

type agencyService struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewAgencyService constructs an AgencyService backed by PostgreSQL.
func NewAgencyService(pool *pgxpool.Pool, log *zap.Logger) AgencyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &agencyService{pool: pool, log: log}
}

func (s *agencyService) CreateAgency(ctx context.Context, in CreateAgencyInput) (*Agency, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" || in.Name == "" {
		return nil, observeRejection(failf(ErrValidation, "agency code and name are required"))
	}
	if in.CommissionRate != nil && (in.CommissionRate.IsNegative() || in.CommissionRate.GreaterThan(decimal.NewFromInt(100))) {
		return nil, observeRejection(failf(ErrValidation, "commission rate must be between 0 and 100"))
	}
	if in.CreditLimit.IsNegative() {
		return nil, observeRejection(failf(ErrValidation, "credit limit cannot be negative"))
	}

	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO agencies (code, name, email, commission_rate, credit_limit, status, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (code) DO NOTHING
		RETURNING id
	`, in.Code, in.Name, strings.TrimSpace(in.Email), in.CommissionRate, in.CreditLimit, string(AgencyPending), in.CreatedBy).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, observeRejection(failf(ErrDuplicateAgency, "agency code %s already exists", in.Code))
		}
		return nil, fmt.Errorf("failed to create agency: %w", err)
	}
	s.log.Info("agency application created", zap.Int("agency_id", id), zap.String("code", in.Code))
	return s.GetAgency(ctx, id)
}

const agencySelect = `
	SELECT id, code, name, email, commission_rate, credit_limit, current_balance, status,
	       created_by, updated_by, created_at, updated_at
	FROM agencies`

func scanAgency(row pgx.Row) (*Agency, error) {
	var a Agency
	var status string
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Email, &a.CommissionRate, &a.CreditLimit, &a.CurrentBalance,
		&status, &a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = AgencyStatus(status)
	return &a, nil
}

func getAgency(ctx context.Context, q querier, id int, forUpdate bool) (*Agency, error) {
	sql := agencySelect + " WHERE id = $1"
	if forUpdate {
		sql += " FOR UPDATE"
	}
	a, err := scanAgency(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, failf(ErrAgencyNotFound, "agency %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch agency %d: %w", id, err)
	}
	return a, nil
}

func (s *agencyService) GetAgency(ctx context.Context, id int) (*Agency, error) {
	return getAgency(ctx, s.pool, id, false)
}

func (s *agencyService) ListAgencies(ctx context.Context, status *AgencyStatus) ([]Agency, error) {
	sql := agencySelect
	var args []any
	if status != nil {
		args = append(args, string(*status))
		sql += " WHERE status = $1"
	}
	sql += " ORDER BY code"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query agencies: %w", err)
	}
	defer rows.Close()

	var agencies []Agency
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agency: %w", err)
		}
		agencies = append(agencies, *a)
	}
	return agencies, rows.Err()
}

func (s *agencyService) UpdateTerms(ctx context.Context, id int, upd AgencyTermsUpdate, actor *int) (*Agency, error) {
	if upd.CommissionRate != nil && (upd.CommissionRate.IsNegative() || upd.CommissionRate.GreaterThan(decimal.NewFromInt(100))) {
		return nil, observeRejection(failf(ErrValidation, "commission rate must be between 0 and 100"))
	}
	if upd.CreditLimit != nil && upd.CreditLimit.IsNegative() {
		return nil, observeRejection(failf(ErrValidation, "credit limit cannot be negative"))
	}

	u := newUpdate("agencies")
	setOpt(u, "name", upd.Name)
	setOpt(u, "email", upd.Email)
	setOpt(u, "commission_rate", upd.CommissionRate)
	setOpt(u, "credit_limit", upd.CreditLimit)
	if u.empty() {
		return s.GetAgency(ctx, id)
	}
	u.set("updated_by", actor).setRaw("updated_at = NOW()")

	sql, args := u.build("id", id)
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update agency %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, observeRejection(failf(ErrAgencyNotFound, "agency %d not found", id))
	}
	return s.GetAgency(ctx, id)
}

func (s *agencyService) ApproveAgency(ctx context.Context, id int, actor *int) (*Agency, error) {
	return s.ChangeStatus(ctx, id, AgencyActive, actor)
}

func (s *agencyService) ChangeStatus(ctx context.Context, id int, next AgencyStatus, actor *int) (*Agency, error) {
	if !next.Valid() {
		return nil, observeRejection(failf(ErrValidation, "unknown agency status %q", next))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := getAgency(ctx, tx, id, true)
	if err != nil {
		return nil, observeRejection(err)
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, observeRejection(failf(ErrInvalidTransition, "agency %d cannot move from %s to %s", id, current.Status, next))
	}

	if _, err := tx.Exec(ctx,
		"UPDATE agencies SET status = $1, updated_by = $2, updated_at = NOW() WHERE id = $3",
		string(next), actor, id); err != nil {
		return nil, fmt.Errorf("failed to update agency status: %w", err)
	}

	var revoked int64
	if next.RevokesAccess() {
		if _, err := tx.Exec(ctx, `
			DELETE FROM user_sessions
			WHERE user_id IN (SELECT id FROM agency_users WHERE agency_id = $1)
		`, id); err != nil {
			return nil, fmt.Errorf("failed to revoke sessions for agency %d: %w", id, err)
		}
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, "UPDATE agency_users SET is_active = false WHERE agency_id = $1 AND is_active", id)
		if err != nil {
			return nil, fmt.Errorf("failed to deactivate users for agency %d: %w", id, err)
		}
		revoked = tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("agency status changed",
		zap.Int("agency_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next)),
		zap.Int64("users_deactivated", revoked))
	return s.GetAgency(ctx, id)
}

func (s *agencyService) AddUser(ctx context.Context, agencyID int, username, email string) (*AgencyUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, observeRejection(failf(ErrValidation, "username is required"))
	}
	agency, err := s.GetAgency(ctx, agencyID)
	if err != nil {
		return nil, observeRejection(err)
	}

	u := AgencyUser{AgencyID: agencyID, Username: username, Email: strings.TrimSpace(email)}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO agency_users (agency_id, username, email, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at
	`, u.AgencyID, u.Username, u.Email, agency.Status == AgencyActive).Scan(&u.ID, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create agency user: %w", err)
	}
	return &u, nil
}

func (s *agencyService) ListUsers(ctx context.Context, agencyID int) ([]AgencyUser, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, agency_id, username, email, is_active, created_at
		FROM agency_users
		WHERE agency_id = $1
		ORDER BY username
	`, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query agency users: %w", err)
	}
	defer rows.Close()

	var users []AgencyUser
	for rows.Next() {
		var u AgencyUser
		if err := rows.Scan(&u.ID, &u.AgencyID, &u.Username, &u.Email, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agency user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
