//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
	red "access-code-service/internal/infra/redis"
)

type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", redis.Nil
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrFunc != nil {
		return m.IncrFunc(ctx, key)
	}
	return 0, nil
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	if m.ExpireFunc != nil {
		return m.ExpireFunc(ctx, key, expiration)
	}
	return nil
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Close() error                   { return nil }

type mockInnerPlanRepo struct {
	SaveFunc           func(ctx context.Context, tx repository.Tx, plan *model.MembershipPlan) error
	FindByPlanCodeFunc func(ctx context.Context, tx repository.Tx, planCode string) (*model.MembershipPlan, error)
	FindByIDFunc       func(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error)
	ListAllFunc        func(ctx context.Context, tx repository.Tx) ([]*model.MembershipPlan, error)
}

var _ repository.MembershipPlanRepository = &mockInnerPlanRepo{}

func (m *mockInnerPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.MembershipPlan) error {
	return m.SaveFunc(ctx, tx, plan)
}
func (m *mockInnerPlanRepo) FindByPlanCode(ctx context.Context, tx repository.Tx, planCode string) (*model.MembershipPlan, error) {
	return m.FindByPlanCodeFunc(ctx, tx, planCode)
}
func (m *mockInnerPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.MembershipPlan, error) {
	return m.ListAllFunc(ctx, tx)
}

func TestPlanRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	plan := &model.MembershipPlan{ID: "plan-123", PlanCode: "plus", Name: "Plus", Level: 2}
	planJSON, _ := json.Marshal(plan)

	t.Run("FindByPlanCode returns from cache on hit", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return string(planJSON), nil
			},
		}
		innerCalled := false
		inner := &mockInnerPlanRepo{
			FindByPlanCodeFunc: func(ctx context.Context, tx repository.Tx, planCode string) (*model.MembershipPlan, error) {
				innerCalled = true
				return nil, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(inner, mockRedis, time.Minute)
		result, err := decorator.FindByPlanCode(ctx, nil, "plus")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerCalled {
			t.Error("inner repository should not be called on a cache hit")
		}
		if result == nil || result.PlanCode != "plus" {
			t.Errorf("wrong plan from cache: %+v", result)
		}
	})

	t.Run("cache miss loads from inner and fills the cache", func(t *testing.T) {
		var setKey string
		mockRedis := &mockRedisClient{
			SetFunc: func(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
				setKey = key
				return nil
			},
		}
		inner := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error) {
				cp := *plan
				return &cp, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(inner, mockRedis, time.Minute)
		result, err := decorator.FindByID(ctx, nil, "plan-123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.ID != "plan-123" {
			t.Errorf("wrong plan: %+v", result)
		}
		if setKey != "plan:id:plan-123" {
			t.Errorf("cache fill used key %q", setKey)
		}
	})

	t.Run("Save invalidates all key shapes", func(t *testing.T) {
		var deleted []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deleted = append(deleted, keys...)
				return nil
			},
		}
		inner := &mockInnerPlanRepo{
			SaveFunc: func(ctx context.Context, tx repository.Tx, p *model.MembershipPlan) error {
				return nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(inner, mockRedis, time.Minute)
		if err := decorator.Save(ctx, nil, plan); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(deleted) != 3 {
			t.Fatalf("expected 3 invalidated keys, got %d (%v)", len(deleted), deleted)
		}
	})
}
