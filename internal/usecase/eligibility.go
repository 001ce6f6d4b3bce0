package usecase

import (
	"context"
	"time"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
)

// EligibilityEvaluator runs the ordered eligibility checks. The static
// checks (1-5) are pure and usable outside a transaction for UI pre-checks;
// the duplicate-redemption checks (6-7) consult the redemption repo and are
// authoritative only under the redemption row lock.
type EligibilityEvaluator struct {
	redemptions repository.RedemptionRepository
}

func NewEligibilityEvaluator(redemptions repository.RedemptionRepository) *EligibilityEvaluator {
	return &EligibilityEvaluator{redemptions: redemptions}
}

// CheckStatic runs checks 1-5 against the code's own state and the identity's
// email. First failure short-circuits with its distinct reason.
func (e *EligibilityEvaluator) CheckStatic(code *model.Code, identity model.Identity, now time.Time) error {
	if !code.IsActive {
		return domain.NewEligibilityError(domain.ReasonInactive)
	}
	if code.ValidFrom != nil && now.Before(*code.ValidFrom) {
		return domain.NewEligibilityError(domain.ReasonNotYetValid)
	}
	if code.ValidUntil != nil && now.After(*code.ValidUntil) {
		return domain.NewEligibilityError(domain.ReasonExpired)
	}
	if code.MaxUses != nil && code.UsedCount >= *code.MaxUses {
		return domain.NewEligibilityError(domain.ReasonUsageLimitReached)
	}
	if code.EligibleEmail != "" {
		if identity.NormalizedEmail() != model.NormalizeEmail(code.EligibleEmail) {
			return domain.NewEligibilityError(domain.ReasonEmailNotEligible)
		}
	}
	if code.EligibleDomain != "" {
		if identity.EmailDomain() != model.NormalizeEmail(code.EligibleDomain) {
			return domain.NewEligibilityError(domain.ReasonDomainNotEligible)
		}
	}
	return nil
}

// Evaluate runs all seven checks in order. orderID may be empty. The static
// checks fail with an EligibilityError; the duplicate checks fail with the
// ConflictError sentinels.
func (e *EligibilityEvaluator) Evaluate(ctx context.Context, tx repository.Tx, code *model.Code, identity model.Identity, orderID string, now time.Time) error {
	if err := e.CheckStatic(code, identity, now); err != nil {
		return err
	}
	if code.PerUserLimit {
		used, err := e.redemptions.ExistsForUser(ctx, tx, code.ID, identity.UserID)
		if err != nil {
			return &domain.PersistenceError{Op: "check user redemption", Err: err}
		}
		if used {
			return domain.ErrAlreadyRedeemed
		}
	}
	if orderID != "" {
		used, err := e.redemptions.ExistsForOrder(ctx, tx, code.ID, identity.UserID, orderID)
		if err != nil {
			return &domain.PersistenceError{Op: "check order redemption", Err: err}
		}
		if used {
			return domain.ErrOrderAlreadyRedeemed
		}
	}
	return nil
}
