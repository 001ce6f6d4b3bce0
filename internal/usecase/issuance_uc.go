package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/adapter"
	"access-code-service/internal/domain/ports/repository"
	"access-code-service/internal/infra/metrics"
)

// attemptsPerCode caps the generation loop at count*attemptsPerCode to bound
// pathological collision storms.
const attemptsPerCode = 6

// IssueRequest is the full set of issuance terms for one batch.
type IssueRequest struct {
	CodeType  model.CodeType
	Count     int
	Prefix    string // optional; must agree with the derived prefix
	GroupSize int
	Groups    int

	Description   string
	DiscountType  model.DiscountType
	DiscountValue float64

	MembershipPlanCode string
	GrantMode          model.GrantMode
	GrantDurationDays  *int
	AccessExpiresAt    *time.Time
	RoleGrant          string
	FeatureFlags       []string

	MaxUses        *int
	PerUserLimit   *bool // default true
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	EligibleEmail  string
	EligibleDomain string

	Metadata  map[string]any
	CreatedBy string
}

// IssuedCode is returned once per created code. The plaintext appears here
// and nowhere else.
type IssuedCode struct {
	ID   string
	Code string
	Mask string
	Hint string
}

type IssueResult struct {
	Count int
	Codes []IssuedCode
}

// IssuanceUseCase orchestrates batch code creation: generation, optional
// coupon-provider registration, and all-or-nothing persistence.
type IssuanceUseCase struct {
	codes    repository.CodeRepository
	txm      repository.TransactionManager
	coupons  adapter.CouponProvider
	prefixes model.PrefixPolicy
	grants   model.GrantPolicy
	maxBatch int
	log      *zerolog.Logger
}

func NewIssuanceUseCase(
	codes repository.CodeRepository,
	txm repository.TransactionManager,
	coupons adapter.CouponProvider,
	prefixes model.PrefixPolicy,
	grants model.GrantPolicy,
	maxBatch int,
	logger *zerolog.Logger,
) *IssuanceUseCase {
	if maxBatch <= 0 {
		maxBatch = 500
	}
	l := logger.With().Str("component", "IssuanceUC").Logger()
	return &IssuanceUseCase{
		codes:    codes,
		txm:      txm,
		coupons:  coupons,
		prefixes: prefixes,
		grants:   grants,
		maxBatch: maxBatch,
		log:      &l,
	}
}

func (uc *IssuanceUseCase) validate(req *IssueRequest) error {
	switch req.CodeType {
	case model.CodeTypeInvite, model.CodeTypePromo:
	default:
		return domain.NewValidationError("codeType", "must be invite or promo")
	}
	expected := uc.prefixes.For(req.CodeType)
	if req.Prefix != "" && model.NormalizeCode(req.Prefix) != expected {
		return domain.NewValidationError("prefix", fmt.Sprintf("must be %s for %s codes", expected, req.CodeType))
	}
	if req.Count < 1 || req.Count > uc.maxBatch {
		return domain.NewValidationError("count", fmt.Sprintf("must be between 1 and %d", uc.maxBatch))
	}
	switch req.DiscountType {
	case "", model.DiscountPercent, model.DiscountFixed:
	default:
		return domain.NewValidationError("discountType", "must be percent or fixed")
	}
	if req.DiscountType != "" && req.DiscountValue <= 0 {
		return domain.NewValidationError("discountValue", "required and positive when discountType is set")
	}
	if req.DiscountType == "" && req.DiscountValue > 0 {
		return domain.NewValidationError("discountType", "required when discountValue is set")
	}
	if req.DiscountType != "" && req.CodeType != model.CodeTypePromo {
		return domain.NewValidationError("discountType", "discounts require promo code type")
	}
	if req.CodeType == model.CodeTypeInvite && (req.ValidFrom == nil || req.ValidUntil == nil) {
		return domain.NewValidationError("validFrom", "invite codes require both validFrom and validUntil")
	}
	switch req.GrantMode {
	case "", model.GrantModeFree, model.GrantModeUpgrade:
	default:
		return domain.NewValidationError("membershipGrantMode", "must be free or upgrade")
	}
	if req.CodeType == model.CodeTypePromo && req.MembershipPlanCode != "" &&
		req.AccessExpiresAt == nil && (req.GrantDurationDays == nil || *req.GrantDurationDays <= 0) {
		return domain.NewValidationError("grantDurationDays", "membership promos require a duration or expiry date")
	}
	if req.RoleGrant != "" && !uc.grants.Allows(req.RoleGrant) {
		return domain.NewValidationError("roleGrant", "role is not grantable")
	}
	return nil
}

// Issue creates req.Count unique codes inside one transaction. Hash
// collisions are skipped and retried up to count*6 attempts; a shortfall
// rolls the whole batch back so no partial batch is ever visible.
func (uc *IssuanceUseCase) Issue(ctx context.Context, req *IssueRequest) (*IssueResult, error) {
	if err := uc.validate(req); err != nil {
		return nil, err
	}

	prefix := uc.prefixes.For(req.CodeType)
	perUser := true
	if req.PerUserLimit != nil {
		perUser = *req.PerUserLimit
	}
	grantMode := req.GrantMode
	if grantMode == "" {
		grantMode = model.GrantModeFree
	}
	withCoupon := req.CodeType == model.CodeTypePromo && req.DiscountType != "" && uc.coupons != nil

	created := make([]IssuedCode, 0, req.Count)
	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		attempts := 0
		for len(created) < req.Count && attempts < req.Count*attemptsPerCode {
			attempts++
			gen, err := generateCode(prefix, req.GroupSize, req.Groups)
			if err != nil {
				return &domain.PersistenceError{Op: "generate code", Err: err}
			}

			var couponID, promoID string
			if withCoupon {
				couponID, err = uc.coupons.CreateCoupon(ctx, req.DiscountType, req.DiscountValue)
				if err != nil {
					uc.log.Warn().Err(err).Int("attempt", attempts).Msg("coupon creation failed, abandoning candidate")
					continue
				}
				promoID, err = uc.coupons.CreatePromotionCode(ctx, couponID, adapter.PromotionCodeTerms{
					Code:           gen.Code,
					MaxRedemptions: req.MaxUses,
					ExpiresAt:      req.ValidUntil,
				})
				if err != nil {
					uc.log.Warn().Err(err).Str("coupon_id", couponID).Msg("promotion code creation failed, abandoning candidate")
					continue
				}
			}

			code := &model.Code{
				CodeHash:           gen.Hash,
				CodeHint:           gen.Hint,
				CodeType:           req.CodeType,
				Description:        req.Description,
				DiscountType:       req.DiscountType,
				DiscountValue:      req.DiscountValue,
				MembershipPlanCode: req.MembershipPlanCode,
				GrantMode:          grantMode,
				GrantDurationDays:  req.GrantDurationDays,
				AccessExpiresAt:    req.AccessExpiresAt,
				RoleGrant:          req.RoleGrant,
				FeatureFlags:       req.FeatureFlags,
				ValidFrom:          req.ValidFrom,
				ValidUntil:         req.ValidUntil,
				MaxUses:            req.MaxUses,
				PerUserLimit:       perUser,
				EligibleEmail:      req.EligibleEmail,
				EligibleDomain:     req.EligibleDomain,
				IsActive:           true,
				StripeCouponID:     couponID,
				StripePromoCodeID:  promoID,
				Metadata:           req.Metadata,
				CreatedBy:          req.CreatedBy,
				CreatedAt:          time.Now(),
			}
			inserted, err := uc.codes.Insert(ctx, tx, code)
			if err != nil {
				return &domain.PersistenceError{Op: "insert code", Err: err}
			}
			if !inserted {
				// Hash collision; the provider-side coupon (if any) stays
				// orphaned and inert without a code row.
				metrics.IncIssuanceCollision(string(req.CodeType))
				if couponID != "" {
					uc.log.Warn().Str("coupon_id", couponID).Msg("orphaning coupon after hash collision")
				}
				continue
			}
			created = append(created, IssuedCode{ID: code.ID, Code: gen.Code, Mask: gen.Mask, Hint: gen.Hint})
		}
		if len(created) != req.Count {
			return domain.ErrBatchExhausted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AddCodesIssued(string(req.CodeType), len(created))
	uc.log.Info().Str("code_type", string(req.CodeType)).Int("count", len(created)).Msg("batch issued")
	return &IssueResult{Count: len(created), Codes: created}, nil
}

// List returns issued codes for the admin surface, newest first.
func (uc *IssuanceUseCase) List(ctx context.Context, filter repository.CodeListFilter) ([]*model.Code, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.codes.List(ctx, nil, filter)
}

// SetActive toggles a code's soft-disable flag.
func (uc *IssuanceUseCase) SetActive(ctx context.Context, codeID string, active bool) error {
	if codeID == "" {
		return domain.NewValidationError("id", "required")
	}
	return uc.codes.SetActive(ctx, nil, codeID, active)
}
