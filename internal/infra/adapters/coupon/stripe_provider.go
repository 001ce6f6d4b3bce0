package coupon

import (
	"context"
	"errors"
	"math"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/adapter"
)

var _ adapter.CouponProvider = (*StripeProvider)(nil)

// StripeProvider implements the coupon port against Stripe: one single-use
// coupon per issued code, exposed through a promotion code carrying the
// plaintext. IDs are recorded once at issuance and never mutated.
type StripeProvider struct {
	api      *client.API
	currency string
}

func NewStripeProvider(secretKey, currency string) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key empty")
	}
	if currency == "" {
		currency = "brl"
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api, currency: currency}, nil
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) CreateCoupon(ctx context.Context, discountType model.DiscountType, value float64) (string, error) {
	params := &stripe.CouponParams{
		Duration: stripe.String(string(stripe.CouponDurationOnce)),
	}
	params.Context = ctx
	switch discountType {
	case model.DiscountPercent:
		params.PercentOff = stripe.Float64(value)
	case model.DiscountFixed:
		params.AmountOff = stripe.Int64(int64(math.Round(value * 100)))
		params.Currency = stripe.String(p.currency)
	default:
		return "", domain.NewValidationError("discountType", "unsupported discount type")
	}

	c, err := p.api.Coupons.New(params)
	if err != nil {
		return "", &domain.ExternalProviderError{Provider: p.Name(), Err: err}
	}
	return c.ID, nil
}

func (p *StripeProvider) CreatePromotionCode(ctx context.Context, couponID string, terms adapter.PromotionCodeTerms) (string, error) {
	params := &stripe.PromotionCodeParams{
		Coupon: stripe.String(couponID),
		Code:   stripe.String(terms.Code),
	}
	params.Context = ctx
	if terms.MaxRedemptions != nil {
		params.MaxRedemptions = stripe.Int64(int64(*terms.MaxRedemptions))
	}
	if terms.ExpiresAt != nil {
		params.ExpiresAt = stripe.Int64(terms.ExpiresAt.Unix())
	}

	pc, err := p.api.PromotionCodes.New(params)
	if err != nil {
		return "", &domain.ExternalProviderError{Provider: p.Name(), Err: err}
	}
	return pc.ID, nil
}
