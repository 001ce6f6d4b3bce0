package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
)

var _ repository.RedemptionRepository = (*redemptionRepo)(nil)

type redemptionRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionRepo(pool *pgxpool.Pool) repository.RedemptionRepository {
	return &redemptionRepo{pool: pool}
}

func (r *redemptionRepo) Insert(ctx context.Context, tx repository.Tx, red *model.Redemption) error {
	var meta []byte
	if len(red.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(red.Metadata); err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}
	const q = `
INSERT INTO code_redemptions (id, code_id, user_id, order_id, metadata, redeemed_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := execSQL(ctx, r.pool, tx, q, red.ID, red.CodeID, red.UserID, red.OrderID, meta, red.RedeemedAt)
	return err
}

func (r *redemptionRepo) ExistsForUser(ctx context.Context, tx repository.Tx, codeID, userID string) (bool, error) {
	const q = `SELECT 1 FROM code_redemptions WHERE code_id = $1 AND user_id = $2 LIMIT 1;`
	return r.exists(ctx, tx, q, codeID, userID)
}

func (r *redemptionRepo) ExistsForOrder(ctx context.Context, tx repository.Tx, codeID, userID, orderID string) (bool, error) {
	const q = `SELECT 1 FROM code_redemptions WHERE code_id = $1 AND user_id = $2 AND order_id = $3 LIMIT 1;`
	return r.exists(ctx, tx, q, codeID, userID, orderID)
}

func (r *redemptionRepo) exists(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return false, err
	}
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
