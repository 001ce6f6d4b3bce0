package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
	"access-code-service/internal/infra/metrics"
	red "access-code-service/internal/infra/redis"
)

var _ repository.MembershipPlanRepository = (*planRepoCacheDecorator)(nil)

// planRepoCacheDecorator caches the plan catalog in Redis. The catalog is
// read on every membership-bearing redemption and changes rarely.
type planRepoCacheDecorator struct {
	inner repository.MembershipPlanRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPlanRepoCacheDecorator(inner repository.MembershipPlanRepository, cache red.RedisClient, ttl time.Duration) repository.MembershipPlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &planRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *planRepoCacheDecorator) FindByPlanCode(ctx context.Context, tx repository.Tx, planCode string) (*model.MembershipPlan, error) {
	return d.cached(ctx, fmt.Sprintf("plan:code:%s", planCode), func() (*model.MembershipPlan, error) {
		return d.inner.FindByPlanCode(ctx, tx, planCode)
	})
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error) {
	return d.cached(ctx, fmt.Sprintf("plan:id:%s", id), func() (*model.MembershipPlan, error) {
		return d.inner.FindByID(ctx, tx, id)
	})
}

func (d *planRepoCacheDecorator) cached(ctx context.Context, key string, load func() (*model.MembershipPlan, error)) (*model.MembershipPlan, error) {
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var plan model.MembershipPlan
		if json.Unmarshal([]byte(val), &plan) == nil {
			metrics.IncCacheRequest("plan", "hit")
			return &plan, nil
		}
	} else if err != redis.Nil {
		// Redis being down must not break plan resolution; fall through.
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := load()
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(plan); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return plan, nil
}

// Writes invalidate both key shapes plus the full catalog.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.MembershipPlan) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("plan:code:%s", plan.PlanCode), fmt.Sprintf("plan:id:%s", plan.ID), "plans:all")
	return d.inner.Save(ctx, tx, plan)
}

func (d *planRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.MembershipPlan, error) {
	const key = "plans:all"
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var plans []*model.MembershipPlan
		if json.Unmarshal([]byte(val), &plans) == nil {
			metrics.IncCacheRequest("plan_list", "hit")
			return plans, nil
		}
	}

	metrics.IncCacheRequest("plan_list", "miss")
	plans, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(plans); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return plans, nil
}
