package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
)

// EntitlementUseCase serves entitlement queries and the expiry sweep.
type EntitlementUseCase struct {
	ents repository.EntitlementRepository
	log  *zerolog.Logger
}

func NewEntitlementUseCase(ents repository.EntitlementRepository, logger *zerolog.Logger) *EntitlementUseCase {
	l := logger.With().Str("component", "EntitlementUC").Logger()
	return &EntitlementUseCase{ents: ents, log: &l}
}

// ListActive returns a user's currently active entitlements.
func (uc *EntitlementUseCase) ListActive(ctx context.Context, userID string) ([]*model.Entitlement, error) {
	return uc.ents.ListActiveByUser(ctx, nil, userID)
}

// SweepExpired deactivates entitlements past their expiry and returns the
// number of rows changed.
func (uc *EntitlementUseCase) SweepExpired(ctx context.Context) (int, error) {
	return uc.ents.DeactivateExpired(ctx, nil)
}
