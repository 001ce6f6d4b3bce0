package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.CodeRepository = (*codeRepo)(nil)

type codeRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRepo(pool *pgxpool.Pool) repository.CodeRepository {
	return &codeRepo{pool: pool}
}

const codeColumns = `
id, code_hash, code_hint, code_type, description, discount_type, discount_value,
membership_plan_code, membership_grant_mode, grant_duration_days, access_expires_at,
role_grant, feature_flags, valid_from, valid_until, max_uses, per_user_limit,
eligible_email, eligible_domain, used_count, is_active, stripe_coupon_id,
stripe_promo_code_id, metadata, created_by, created_at`

// Insert adds a code row. ON CONFLICT DO NOTHING on code_hash: a collision
// reports (false, nil) so the issuance loop can retry with a new candidate.
func (r *codeRepo) Insert(ctx context.Context, tx repository.Tx, c *model.Code) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	flags, err := json.Marshal(orEmpty(c.FeatureFlags))
	if err != nil {
		return false, fmt.Errorf("marshal feature flags: %w", err)
	}
	var meta []byte
	if len(c.Metadata) > 0 {
		if meta, err = json.Marshal(c.Metadata); err != nil {
			return false, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	const q = `
INSERT INTO codes (` + codeColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
ON CONFLICT (code_hash) DO NOTHING
RETURNING id;
`
	row, err := pickRow(ctx, r.pool, tx, q,
		c.ID, c.CodeHash, c.CodeHint, c.CodeType, c.Description, c.DiscountType, c.DiscountValue,
		c.MembershipPlanCode, c.GrantMode, c.GrantDurationDays, c.AccessExpiresAt,
		c.RoleGrant, flags, c.ValidFrom, c.ValidUntil, c.MaxUses, c.PerUserLimit,
		c.EligibleEmail, c.EligibleDomain, c.UsedCount, c.IsActive, c.StripeCouponID,
		c.StripePromoCodeID, meta, c.CreatedBy, c.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil // hash collision
		}
		return false, err
	}
	return true, nil
}

func (r *codeRepo) FindByHash(ctx context.Context, tx repository.Tx, codeHash string) (*model.Code, error) {
	const q = `SELECT ` + codeColumns + ` FROM codes WHERE code_hash = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, codeHash)
	if err != nil {
		return nil, err
	}
	return scanCode(row)
}

// FindByHashForUpdate takes the exclusive row lock that serializes
// concurrent redemptions of the same code. Must run on a transaction.
// Inactive codes are filtered out before the lock, so a disabled code is
// rejected without ever blocking on its row.
func (r *codeRepo) FindByHashForUpdate(ctx context.Context, tx repository.Tx, codeHash string) (*model.Code, error) {
	if tx == nil {
		return nil, domain.ErrInvalidExecContext
	}
	const q = `SELECT ` + codeColumns + ` FROM codes WHERE code_hash = $1 AND is_active = TRUE FOR UPDATE;`
	row, err := pickRow(ctx, r.pool, tx, q, codeHash)
	if err != nil {
		return nil, err
	}
	return scanCode(row)
}

func (r *codeRepo) IncrementUsage(ctx context.Context, tx repository.Tx, codeID string) error {
	const q = `UPDATE codes SET used_count = used_count + 1 WHERE id = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, codeID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *codeRepo) SetActive(ctx context.Context, tx repository.Tx, codeID string, active bool) error {
	const q = `UPDATE codes SET is_active = $2 WHERE id = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, codeID, active)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *codeRepo) List(ctx context.Context, tx repository.Tx, f repository.CodeListFilter) ([]*model.Code, error) {
	q := `SELECT ` + codeColumns + ` FROM codes`
	args := make([]interface{}, 0, 4)
	where := ""
	if f.CodeType != "" {
		args = append(args, f.CodeType)
		where = fmt.Sprintf(" WHERE code_type = $%d", len(args))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		if where == "" {
			where = fmt.Sprintf(" WHERE is_active = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND is_active = $%d", len(args))
		}
	}
	args = append(args, f.Limit, f.Offset)
	q += where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d;", len(args)-1, len(args))

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	var out []*model.Code
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCode(row pgx.Row) (*model.Code, error) {
	var c model.Code
	var flags, meta []byte
	err := row.Scan(
		&c.ID, &c.CodeHash, &c.CodeHint, &c.CodeType, &c.Description, &c.DiscountType, &c.DiscountValue,
		&c.MembershipPlanCode, &c.GrantMode, &c.GrantDurationDays, &c.AccessExpiresAt,
		&c.RoleGrant, &flags, &c.ValidFrom, &c.ValidUntil, &c.MaxUses, &c.PerUserLimit,
		&c.EligibleEmail, &c.EligibleDomain, &c.UsedCount, &c.IsActive, &c.StripeCouponID,
		&c.StripePromoCodeID, &meta, &c.CreatedBy, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &c.FeatureFlags); err != nil {
			return nil, fmt.Errorf("unmarshal feature flags: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &c, nil
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
