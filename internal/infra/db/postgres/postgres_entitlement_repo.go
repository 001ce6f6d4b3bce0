package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
)

var _ repository.EntitlementRepository = (*entitlementRepo)(nil)

type entitlementRepo struct {
	pool *pgxpool.Pool
}

func NewEntitlementRepo(pool *pgxpool.Pool) repository.EntitlementRepository {
	return &entitlementRepo{pool: pool}
}

const entitlementColumns = `
id, user_id, source_code_id, role_grant, membership_plan_code, feature_flags,
starts_at, expires_at, is_active`

// Upsert keys on (user_id, source_code_id): a re-grant replaces role, plan,
// flags and expiry in place instead of inserting a second row.
func (r *entitlementRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	flags, err := json.Marshal(orEmpty(e.FeatureFlags))
	if err != nil {
		return fmt.Errorf("marshal feature flags: %w", err)
	}
	const q = `
INSERT INTO user_code_entitlements (` + entitlementColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (user_id, source_code_id) DO UPDATE SET
  role_grant = EXCLUDED.role_grant,
  membership_plan_code = EXCLUDED.membership_plan_code,
  feature_flags = EXCLUDED.feature_flags,
  expires_at = EXCLUDED.expires_at,
  is_active = TRUE;
`
	_, err = execSQL(ctx, r.pool, tx, q,
		e.ID, e.UserID, e.SourceCodeID, e.RoleGrant, e.MembershipPlanCode, flags,
		e.StartsAt, e.ExpiresAt, e.IsActive,
	)
	return err
}

func (r *entitlementRepo) FindByUserAndCode(ctx context.Context, tx repository.Tx, userID, codeID string) (*model.Entitlement, error) {
	const q = `SELECT ` + entitlementColumns + ` FROM user_code_entitlements
 WHERE user_id = $1 AND source_code_id = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, codeID)
	if err != nil {
		return nil, err
	}
	return scanEntitlement(row)
}

func (r *entitlementRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Entitlement, error) {
	const q = `SELECT ` + entitlementColumns + ` FROM user_code_entitlements
 WHERE user_id = $1 AND is_active = TRUE
 ORDER BY starts_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	defer rows.Close()

	var out []*model.Entitlement
	for rows.Next() {
		e, err := scanEntitlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *entitlementRepo) DeactivateExpired(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `
UPDATE user_code_entitlements
   SET is_active = FALSE
 WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at < NOW();
`
	ct, err := execSQL(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func scanEntitlement(row pgx.Row) (*model.Entitlement, error) {
	var e model.Entitlement
	var flags []byte
	err := row.Scan(
		&e.ID, &e.UserID, &e.SourceCodeID, &e.RoleGrant, &e.MembershipPlanCode, &flags,
		&e.StartsAt, &e.ExpiresAt, &e.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &e.FeatureFlags); err != nil {
			return nil, fmt.Errorf("unmarshal feature flags: %w", err)
		}
	}
	return &e, nil
}
