package coupon

import (
	"context"
	"fmt"
	"sync/atomic"

	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/adapter"
)

var _ adapter.CouponProvider = (*NoopProvider)(nil)

// NoopProvider stands in when no coupon provider is configured (dev mode).
// It hands out deterministic fake ids so issuance flows stay exercisable.
type NoopProvider struct {
	seq atomic.Int64
}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (p *NoopProvider) Name() string { return "noop" }

func (p *NoopProvider) CreateCoupon(_ context.Context, _ model.DiscountType, _ float64) (string, error) {
	return fmt.Sprintf("noop_coupon_%d", p.seq.Add(1)), nil
}

func (p *NoopProvider) CreatePromotionCode(_ context.Context, couponID string, _ adapter.PromotionCodeTerms) (string, error) {
	return fmt.Sprintf("noop_promo_%s", couponID), nil
}
