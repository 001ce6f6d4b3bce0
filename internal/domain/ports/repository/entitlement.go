package repository

import (
	"context"

	"access-code-service/internal/domain/model"
)

// EntitlementRepository is the port for durable grants.
type EntitlementRepository interface {
	// Upsert inserts the entitlement or, when (user, source code) already
	// exists, replaces its role, plan, flags and expiry in place.
	Upsert(ctx context.Context, tx Tx, e *model.Entitlement) error
	FindByUserAndCode(ctx context.Context, tx Tx, userID, codeID string) (*model.Entitlement, error)
	ListActiveByUser(ctx context.Context, tx Tx, userID string) ([]*model.Entitlement, error)
	// DeactivateExpired flips is_active off for entitlements whose expiry has
	// passed and returns how many rows changed.
	DeactivateExpired(ctx context.Context, tx Tx) (int, error)
}
