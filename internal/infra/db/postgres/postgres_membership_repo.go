package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
)

var _ repository.MembershipPlanRepository = (*membershipPlanRepo)(nil)

type membershipPlanRepo struct {
	pool *pgxpool.Pool
}

func NewMembershipPlanRepo(pool *pgxpool.Pool) repository.MembershipPlanRepository {
	return &membershipPlanRepo{pool: pool}
}

func (r *membershipPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.MembershipPlan) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `
INSERT INTO membership_plans (id, plan_code, name, level, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (plan_code) DO UPDATE SET
  name  = EXCLUDED.name,
  level = EXCLUDED.level;
`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.PlanCode, p.Name, p.Level, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (r *membershipPlanRepo) FindByPlanCode(ctx context.Context, tx repository.Tx, planCode string) (*model.MembershipPlan, error) {
	const q = `SELECT id, plan_code, name, level, created_at FROM membership_plans WHERE plan_code = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, planCode)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *membershipPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error) {
	const q = `SELECT id, plan_code, name, level, created_at FROM membership_plans WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *membershipPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.MembershipPlan, error) {
	const q = `SELECT id, plan_code, name, level, created_at FROM membership_plans ORDER BY level;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []*model.MembershipPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlan(row pgx.Row) (*model.MembershipPlan, error) {
	var p model.MembershipPlan
	if err := row.Scan(&p.ID, &p.PlanCode, &p.Name, &p.Level, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &p, nil
}

var _ repository.UserMembershipRepository = (*userMembershipRepo)(nil)

type userMembershipRepo struct {
	pool *pgxpool.Pool
}

func NewUserMembershipRepo(pool *pgxpool.Pool) repository.UserMembershipRepository {
	return &userMembershipRepo{pool: pool}
}

func (r *userMembershipRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserMembership, error) {
	const q = `
SELECT user_id, plan_id, status, starts_at, expires_at, notes
  FROM user_memberships WHERE user_id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var m model.UserMembership
	if err := row.Scan(&m.UserID, &m.PlanID, &m.Status, &m.StartsAt, &m.ExpiresAt, &m.Notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &m, nil
}

// Upsert keeps one membership row per user; a new grant overwrites the old
// assignment wholesale.
func (r *userMembershipRepo) Upsert(ctx context.Context, tx repository.Tx, m *model.UserMembership) error {
	const q = `
INSERT INTO user_memberships (user_id, plan_id, status, starts_at, expires_at, notes)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
  plan_id    = EXCLUDED.plan_id,
  status     = EXCLUDED.status,
  starts_at  = EXCLUDED.starts_at,
  expires_at = EXCLUDED.expires_at,
  notes      = EXCLUDED.notes,
  updated_at = NOW();
`
	_, err := execSQL(ctx, r.pool, tx, q, m.UserID, m.PlanID, m.Status, m.StartsAt, m.ExpiresAt, m.Notes)
	return err
}
