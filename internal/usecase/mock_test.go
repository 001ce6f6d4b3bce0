//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/adapter"
	"access-code-service/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock TransactionManager ----

// MockTxManager serializes transactions behind a single mutex, which stands
// in for the row lock: concurrent redemptions of the same code observe each
// other's committed writes in order, exactly as they would under FOR UPDATE.
type MockTxManager struct {
	mu         sync.Mutex
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, nil)
}

// ---- Mock CodeRepository ----

type MockCodeRepo struct {
	mu     sync.Mutex
	byHash map[string]*model.Code

	InsertFunc         func(ctx context.Context, tx repository.Tx, code *model.Code) (bool, error)
	IncrementUsageFunc func(ctx context.Context, tx repository.Tx, codeID string) error
}

var _ repository.CodeRepository = (*MockCodeRepo)(nil)

func NewMockCodeRepo() *MockCodeRepo {
	return &MockCodeRepo{byHash: make(map[string]*model.Code)}
}

func (r *MockCodeRepo) Insert(ctx context.Context, tx repository.Tx, code *model.Code) (bool, error) {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byHash[code.CodeHash]; exists {
		return false, nil
	}
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	cp := *code
	r.byHash[code.CodeHash] = &cp
	return true, nil
}

func (r *MockCodeRepo) FindByHash(ctx context.Context, tx repository.Tx, codeHash string) (*model.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byHash[codeHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// FindByHashForUpdate mirrors the store query: inactive codes are invisible
// and never locked.
func (r *MockCodeRepo) FindByHashForUpdate(ctx context.Context, tx repository.Tx, codeHash string) (*model.Code, error) {
	c, err := r.FindByHash(ctx, tx, codeHash)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (r *MockCodeRepo) IncrementUsage(ctx context.Context, tx repository.Tx, codeID string) error {
	if r.IncrementUsageFunc != nil {
		return r.IncrementUsageFunc(ctx, tx, codeID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byHash {
		if c.ID == codeID {
			c.UsedCount++
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MockCodeRepo) SetActive(ctx context.Context, tx repository.Tx, codeID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byHash {
		if c.ID == codeID {
			c.IsActive = active
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MockCodeRepo) List(ctx context.Context, tx repository.Tx, filter repository.CodeListFilter) ([]*model.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Code, 0, len(r.byHash))
	for _, c := range r.byHash {
		if filter.CodeType != "" && c.CodeType != filter.CodeType {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get returns the stored code by hash for assertions.
func (r *MockCodeRepo) Get(codeHash string) *model.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byHash[codeHash]
}

// Put seeds a code directly, bypassing Insert.
func (r *MockCodeRepo) Put(code *model.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	cp := *code
	r.byHash[code.CodeHash] = &cp
}

// ---- Mock RedemptionRepository ----

type MockRedemptionRepo struct {
	mu   sync.Mutex
	rows []*model.Redemption

	InsertFunc func(ctx context.Context, tx repository.Tx, red *model.Redemption) error
}

var _ repository.RedemptionRepository = (*MockRedemptionRepo)(nil)

func NewMockRedemptionRepo() *MockRedemptionRepo {
	return &MockRedemptionRepo{}
}

func (r *MockRedemptionRepo) Insert(ctx context.Context, tx repository.Tx, red *model.Redemption) error {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, red)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *red
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MockRedemptionRepo) ExistsForUser(ctx context.Context, tx repository.Tx, codeID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.CodeID == codeID && row.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MockRedemptionRepo) ExistsForOrder(ctx context.Context, tx repository.Tx, codeID, userID, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.CodeID == codeID && row.UserID == userID && row.OrderID != nil && *row.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MockRedemptionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// ---- Mock EntitlementRepository ----

type MockEntitlementRepo struct {
	mu   sync.Mutex
	data map[string]*model.Entitlement // key userID:codeID

	UpsertFunc func(ctx context.Context, tx repository.Tx, e *model.Entitlement) error
}

var _ repository.EntitlementRepository = (*MockEntitlementRepo)(nil)

func NewMockEntitlementRepo() *MockEntitlementRepo {
	return &MockEntitlementRepo{data: make(map[string]*model.Entitlement)}
}

func entKey(userID, codeID string) string { return fmt.Sprintf("%s:%s", userID, codeID) }

func (r *MockEntitlementRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	if r.UpsertFunc != nil {
		return r.UpsertFunc(ctx, tx, e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.data[entKey(e.UserID, e.SourceCodeID)] = &cp
	return nil
}

func (r *MockEntitlementRepo) FindByUserAndCode(ctx context.Context, tx repository.Tx, userID, codeID string) (*model.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[entKey(userID, codeID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *MockEntitlementRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Entitlement
	for _, e := range r.data {
		if e.UserID == userID && e.IsActive {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockEntitlementRepo) DeactivateExpired(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.data {
		if e.IsActive && e.ExpiresAt != nil && e.ExpiresAt.Before(time.Now()) {
			e.IsActive = false
			n++
		}
	}
	return n, nil
}

// ---- Mock MembershipPlanRepository ----

type MockPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.MembershipPlan // by plan code
}

var _ repository.MembershipPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{plans: make(map[string]*model.MembershipPlan)}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.MembershipPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.plans[plan.PlanCode] = &cp
	return nil
}

func (r *MockPlanRepo) FindByPlanCode(ctx context.Context, tx repository.Tx, planCode string) (*model.MembershipPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planCode]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.MembershipPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.MembershipPlan, 0, len(r.plans))
	for _, p := range r.plans {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

// ---- Mock UserMembershipRepository ----

type MockMembershipRepo struct {
	mu   sync.Mutex
	data map[string]*model.UserMembership

	UpsertFunc func(ctx context.Context, tx repository.Tx, m *model.UserMembership) error
}

var _ repository.UserMembershipRepository = (*MockMembershipRepo)(nil)

func NewMockMembershipRepo() *MockMembershipRepo {
	return &MockMembershipRepo{data: make(map[string]*model.UserMembership)}
}

func (r *MockMembershipRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.data[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MockMembershipRepo) Upsert(ctx context.Context, tx repository.Tx, m *model.UserMembership) error {
	if r.UpsertFunc != nil {
		return r.UpsertFunc(ctx, tx, m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.data[m.UserID] = &cp
	return nil
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	UpdateRoleFunc func(ctx context.Context, tx repository.Tx, userID, role string) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: make(map[string]*model.User)}
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MockUserRepo) UpdateRole(ctx context.Context, tx repository.Tx, userID, role string) error {
	if r.UpdateRoleFunc != nil {
		return r.UpdateRoleFunc(ctx, tx, userID, role)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.Role = role
	} else {
		r.users[userID] = &model.User{ID: userID, Role: role}
	}
	return nil
}

// ---- Mock CouponProvider ----

type MockCouponProvider struct {
	mu      sync.Mutex
	coupons int
	promos  int

	CreateCouponFunc        func(ctx context.Context, discountType model.DiscountType, value float64) (string, error)
	CreatePromotionCodeFunc func(ctx context.Context, couponID string, terms adapter.PromotionCodeTerms) (string, error)
}

var _ adapter.CouponProvider = (*MockCouponProvider)(nil)

func NewMockCouponProvider() *MockCouponProvider {
	return &MockCouponProvider{}
}

func (p *MockCouponProvider) Name() string { return "mock" }

func (p *MockCouponProvider) CreateCoupon(ctx context.Context, discountType model.DiscountType, value float64) (string, error) {
	if p.CreateCouponFunc != nil {
		return p.CreateCouponFunc(ctx, discountType, value)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coupons++
	return fmt.Sprintf("cpn_%d", p.coupons), nil
}

func (p *MockCouponProvider) CreatePromotionCode(ctx context.Context, couponID string, terms adapter.PromotionCodeTerms) (string, error) {
	if p.CreatePromotionCodeFunc != nil {
		return p.CreatePromotionCodeFunc(ctx, couponID, terms)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.promos++
	return fmt.Sprintf("promo_%d", p.promos), nil
}

func (p *MockCouponProvider) CouponsCreated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coupons
}
