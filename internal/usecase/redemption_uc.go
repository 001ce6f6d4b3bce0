package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
	"access-code-service/internal/infra/metrics"
)

// RedemptionResult is returned on a committed redemption, for the payment
// flow and the caller's UI.
type RedemptionResult struct {
	CodeType            model.CodeType
	DiscountType        model.DiscountType
	DiscountValue       float64
	MembershipPlanCode  string
	RoleGrant           string
	FeatureFlags        []string
	AccessExpiresAt     *time.Time
	ExternalPromotionID string
}

// CodeTerms is the public, non-secret view of a code served by the
// validation pre-check.
type CodeTerms struct {
	ID                 string
	CodeType           model.CodeType
	Description        string
	DiscountType       model.DiscountType
	DiscountValue      float64
	MembershipPlanCode string
	RoleGrant          string
	FeatureFlags       []string
	GrantMode          model.GrantMode
	GrantDurationDays  *int
	AccessExpiresAt    *time.Time
	ExternalPromoID    string
}

// RedemptionUseCase drives the transactional redemption state machine:
// lookup under row lock, eligibility, entitlement application, redemption
// record, counter increment, commit.
type RedemptionUseCase struct {
	codes       repository.CodeRepository
	redemptions repository.RedemptionRepository
	eval        *EligibilityEvaluator
	applier     *EntitlementApplier
	txm         repository.TransactionManager
	prefixes    model.PrefixPolicy
	log         *zerolog.Logger
}

func NewRedemptionUseCase(
	codes repository.CodeRepository,
	redemptions repository.RedemptionRepository,
	eval *EligibilityEvaluator,
	applier *EntitlementApplier,
	txm repository.TransactionManager,
	prefixes model.PrefixPolicy,
	logger *zerolog.Logger,
) *RedemptionUseCase {
	l := logger.With().Str("component", "RedemptionUC").Logger()
	return &RedemptionUseCase{
		codes:       codes,
		redemptions: redemptions,
		eval:        eval,
		applier:     applier,
		txm:         txm,
		prefixes:    prefixes,
		log:         &l,
	}
}

// Redeem validates and applies a single redemption attempt in one
// transaction. Concurrent attempts on the same code serialize on the row
// lock; a locked-out attempt re-evaluates against the committed used_count.
func (uc *RedemptionUseCase) Redeem(ctx context.Context, plaintext string, identity model.Identity, orderID string, metadata map[string]any) (*RedemptionResult, error) {
	started := time.Now()
	normalized := model.NormalizeCode(plaintext)
	if normalized == "" {
		return nil, domain.NewValidationError("code", "required")
	}
	codeType, ok := uc.prefixes.TypeOf(normalized)
	if !ok {
		return nil, domain.NewValidationError("code", "invalid code prefix")
	}
	codeHash := model.HashCode(normalized)

	var result *RedemptionResult
	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now()

		code, err := uc.codes.FindByHashForUpdate(ctx, tx, codeHash)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrCodeNotFound
			}
			return &domain.PersistenceError{Op: "lock code", Err: err}
		}

		if err := uc.eval.Evaluate(ctx, tx, code, identity, orderID, now); err != nil {
			return err
		}

		grant, err := uc.applier.Apply(ctx, tx, code, identity, now)
		if err != nil {
			return err
		}

		var order *string
		if orderID != "" {
			order = &orderID
		}
		if err := uc.redemptions.Insert(ctx, tx, &model.Redemption{
			ID:         ulid.Make().String(),
			CodeID:     code.ID,
			UserID:     identity.UserID,
			OrderID:    order,
			Metadata:   metadata,
			RedeemedAt: now,
		}); err != nil {
			return &domain.PersistenceError{Op: "record redemption", Err: err}
		}

		if err := uc.codes.IncrementUsage(ctx, tx, code.ID); err != nil {
			return &domain.PersistenceError{Op: "increment usage", Err: err}
		}

		result = &RedemptionResult{
			CodeType:            code.CodeType,
			DiscountType:        code.DiscountType,
			DiscountValue:       code.DiscountValue,
			MembershipPlanCode:  grant.MembershipPlanCode,
			RoleGrant:           grant.RoleGrant,
			FeatureFlags:        grant.FeatureFlags,
			AccessExpiresAt:     grant.ExpiresAt,
			ExternalPromotionID: code.StripePromoCodeID,
		}
		return nil
	})
	if err != nil {
		metrics.ObserveRedemption(string(codeType), redemptionOutcome(err), time.Since(started))
		return nil, err
	}

	metrics.ObserveRedemption(string(codeType), "success", time.Since(started))
	uc.log.Info().Str("user_id", identity.UserID).Str("code_type", string(codeType)).Msg("code redeemed")
	return result, nil
}

// Validate is the non-transactional pre-check used by UI flows. It never
// mutates state and its answer is advisory; the authoritative check reruns
// under the row lock at redemption time.
func (uc *RedemptionUseCase) Validate(ctx context.Context, plaintext, email string, wantType model.CodeType) (*CodeTerms, error) {
	normalized := model.NormalizeCode(plaintext)
	if normalized == "" {
		return nil, domain.NewValidationError("code", "required")
	}
	codeType, ok := uc.prefixes.TypeOf(normalized)
	if !ok {
		return nil, domain.NewValidationError("code", "invalid code prefix")
	}
	if wantType != "" && codeType != wantType {
		return nil, domain.NewValidationError("codeType", "code is not of the requested type")
	}

	code, err := uc.codes.FindByHash(ctx, nil, model.HashCode(normalized))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, &domain.PersistenceError{Op: "find code", Err: err}
	}
	if (code.EligibleEmail != "" || code.EligibleDomain != "") && email == "" {
		return nil, domain.NewValidationError("email", "email required for this code")
	}
	if err := uc.eval.CheckStatic(code, model.Identity{Email: email}, time.Now()); err != nil {
		return nil, err
	}

	return &CodeTerms{
		ID:                 code.ID,
		CodeType:           code.CodeType,
		Description:        code.Description,
		DiscountType:       code.DiscountType,
		DiscountValue:      code.DiscountValue,
		MembershipPlanCode: code.MembershipPlanCode,
		RoleGrant:          code.RoleGrant,
		FeatureFlags:       code.FeatureFlags,
		GrantMode:          code.GrantMode,
		GrantDurationDays:  code.GrantDurationDays,
		AccessExpiresAt:    code.AccessExpiresAt,
		ExternalPromoID:    code.StripePromoCodeID,
	}, nil
}

func redemptionOutcome(err error) string {
	var elig *domain.EligibilityError
	var conflict *domain.ConflictError
	var validation *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrCodeNotFound):
		return "not_found"
	case errors.As(err, &elig):
		return string(elig.Reason)
	case errors.As(err, &conflict):
		if conflict.Reason != "" {
			return string(conflict.Reason)
		}
		return "conflict"
	case errors.As(err, &validation):
		return "invalid"
	default:
		return "error"
	}
}
