package repository

import (
	"context"

	"access-code-service/internal/domain/model"
)

// RedemptionRepository is the port for redemption rows.
type RedemptionRepository interface {
	Insert(ctx context.Context, tx Tx, r *model.Redemption) error
	// ExistsForUser reports whether the user has any redemption of the code.
	ExistsForUser(ctx context.Context, tx Tx, codeID, userID string) (bool, error)
	// ExistsForOrder reports whether the (code, user, order) triple was
	// already redeemed. This is the caller-side idempotency guard.
	ExistsForOrder(ctx context.Context, tx Tx, codeID, userID, orderID string) (bool, error)
}
