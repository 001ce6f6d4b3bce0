package adapter

import (
	"context"
	"time"

	"access-code-service/internal/domain/model"
)

// PromotionCodeTerms carries what the provider needs to create a redeemable
// promotion code bound to a coupon.
type PromotionCodeTerms struct {
	Code           string
	MaxRedemptions *int
	ExpiresAt      *time.Time
}

// CouponProvider is the hex port for the external payment platform. Only the
// two calls the issuance flow needs are modeled; everything else about the
// provider stays outside this system.
type CouponProvider interface {
	Name() string

	// CreateCoupon creates a single-use discount coupon and returns the
	// provider's coupon id.
	CreateCoupon(ctx context.Context, discountType model.DiscountType, value float64) (string, error)
	// CreatePromotionCode exposes the coupon under a customer-facing code
	// and returns the provider's promotion code id.
	CreatePromotionCode(ctx context.Context, couponID string, terms PromotionCodeTerms) (string, error)
}
