//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
	"access-code-service/internal/usecase"
)

func newIssuanceUC(codes *MockCodeRepo, coupons *MockCouponProvider) *usecase.IssuanceUseCase {
	return usecase.NewIssuanceUseCase(
		codes,
		NewMockTxManager(),
		coupons,
		model.DefaultPrefixPolicy(),
		model.DefaultGrantPolicy(),
		500,
		newTestLogger(),
	)
}

func inviteWindow() (*time.Time, *time.Time) {
	from := time.Now().Add(-time.Hour)
	until := time.Now().Add(30 * 24 * time.Hour)
	return &from, &until
}

func TestIssuanceUseCase_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the requested number of unique invite codes", func(t *testing.T) {
		codes := NewMockCodeRepo()
		uc := newIssuanceUC(codes, NewMockCouponProvider())
		from, until := inviteWindow()

		res, err := uc.Issue(ctx, &usecase.IssueRequest{
			CodeType:  model.CodeTypeInvite,
			Count:     25,
			ValidFrom: from, ValidUntil: until,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Count != 25 || len(res.Codes) != 25 {
			t.Fatalf("expected 25 codes, got %d", len(res.Codes))
		}
		seen := make(map[string]struct{})
		for _, c := range res.Codes {
			if !strings.HasPrefix(c.Code, "LTF-") {
				t.Errorf("invite code %q missing LTF prefix", c.Code)
			}
			if _, dup := seen[c.Code]; dup {
				t.Errorf("duplicate plaintext %q in batch", c.Code)
			}
			seen[c.Code] = struct{}{}
			stored := codes.Get(model.HashCode(c.Code))
			if stored == nil {
				t.Fatalf("code %q not persisted", c.Code)
			}
			if stored.CodeHash == c.Code {
				t.Error("plaintext stored as hash")
			}
			if !stored.IsActive {
				t.Error("new code should be active")
			}
		}
	})

	t.Run("retries hash collisions without failing the batch", func(t *testing.T) {
		codes := NewMockCodeRepo()
		collisions := 2
		codes.InsertFunc = fakeCollisions(codes, &collisions)
		uc := newIssuanceUC(codes, NewMockCouponProvider())
		from, until := inviteWindow()

		res, err := uc.Issue(ctx, &usecase.IssueRequest{
			CodeType:  model.CodeTypeInvite,
			Count:     3,
			ValidFrom: from, ValidUntil: until,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Count != 3 {
			t.Fatalf("expected 3 codes despite collisions, got %d", res.Count)
		}
	})

	t.Run("exhausted attempts abort the whole batch", func(t *testing.T) {
		codes := NewMockCodeRepo()
		codes.InsertFunc = func(ctx context.Context, tx repository.Tx, code *model.Code) (bool, error) {
			return false, nil // every candidate collides
		}
		uc := newIssuanceUC(codes, NewMockCouponProvider())
		from, until := inviteWindow()

		_, err := uc.Issue(ctx, &usecase.IssueRequest{
			CodeType:  model.CodeTypeInvite,
			Count:     2,
			ValidFrom: from, ValidUntil: until,
		})
		if !errors.Is(err, domain.ErrBatchExhausted) {
			t.Fatalf("expected ErrBatchExhausted, got %v", err)
		}
	})

	t.Run("discount promos register coupon and promotion code", func(t *testing.T) {
		codes := NewMockCodeRepo()
		coupons := NewMockCouponProvider()
		uc := newIssuanceUC(codes, coupons)
		maxUses := 100
		until := time.Now().Add(14 * 24 * time.Hour)

		res, err := uc.Issue(ctx, &usecase.IssueRequest{
			CodeType:      model.CodeTypePromo,
			Count:         1,
			DiscountType:  model.DiscountPercent,
			DiscountValue: 20,
			MaxUses:       &maxUses,
			ValidUntil:    &until,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if coupons.CouponsCreated() != 1 {
			t.Fatalf("expected 1 coupon created, got %d", coupons.CouponsCreated())
		}
		stored := codes.Get(model.HashCode(res.Codes[0].Code))
		if stored.StripeCouponID == "" || stored.StripePromoCodeID == "" {
			t.Errorf("expected provider ids on stored code, got %+v", stored)
		}
	})

	t.Run("provider failure abandons the candidate and keeps trying", func(t *testing.T) {
		codes := NewMockCodeRepo()
		coupons := NewMockCouponProvider()
		fails := 1
		coupons.CreateCouponFunc = func(ctx context.Context, dt model.DiscountType, v float64) (string, error) {
			if fails > 0 {
				fails--
				return "", errors.New("provider down")
			}
			return "cpn_ok", nil
		}
		uc := newIssuanceUC(codes, coupons)

		res, err := uc.Issue(ctx, &usecase.IssueRequest{
			CodeType:      model.CodeTypePromo,
			Count:         1,
			DiscountType:  model.DiscountFixed,
			DiscountValue: 10,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Count != 1 {
			t.Fatalf("expected 1 code, got %d", res.Count)
		}
	})
}

// fakeCollisions reports a hash collision for the first *remaining inserts,
// then falls through to the in-memory default.
func fakeCollisions(codes *MockCodeRepo, remaining *int) func(ctx context.Context, tx repository.Tx, code *model.Code) (bool, error) {
	return func(ctx context.Context, tx repository.Tx, code *model.Code) (bool, error) {
		if *remaining > 0 {
			*remaining--
			return false, nil
		}
		codes.InsertFunc = nil
		return codes.Insert(ctx, tx, code)
	}
}

func TestIssuanceUseCase_Validation(t *testing.T) {
	ctx := context.Background()
	from, until := inviteWindow()

	cases := []struct {
		name  string
		req   usecase.IssueRequest
		field string
	}{
		{
			name:  "unknown code type",
			req:   usecase.IssueRequest{CodeType: "gift", Count: 1},
			field: "codeType",
		},
		{
			name: "prefix must agree with type",
			req: usecase.IssueRequest{
				CodeType: model.CodeTypeInvite, Count: 1, Prefix: "CPN",
				ValidFrom: from, ValidUntil: until,
			},
			field: "prefix",
		},
		{
			name:  "count above batch cap",
			req:   usecase.IssueRequest{CodeType: model.CodeTypeInvite, Count: 501, ValidFrom: from, ValidUntil: until},
			field: "count",
		},
		{
			name: "discounts only on promo codes",
			req: usecase.IssueRequest{
				CodeType: model.CodeTypeInvite, Count: 1,
				DiscountType: model.DiscountPercent, DiscountValue: 10,
				ValidFrom: from, ValidUntil: until,
			},
			field: "discountType",
		},
		{
			name: "discount value required with type",
			req: usecase.IssueRequest{
				CodeType: model.CodeTypePromo, Count: 1,
				DiscountType: model.DiscountPercent,
			},
			field: "discountValue",
		},
		{
			name: "discount type required with value",
			req: usecase.IssueRequest{
				CodeType: model.CodeTypePromo, Count: 1,
				DiscountValue: 10,
			},
			field: "discountType",
		},
		{
			name:  "invite codes need a validity window",
			req:   usecase.IssueRequest{CodeType: model.CodeTypeInvite, Count: 1},
			field: "validFrom",
		},
		{
			name: "membership promo needs duration or expiry",
			req: usecase.IssueRequest{
				CodeType: model.CodeTypePromo, Count: 1,
				MembershipPlanCode: "plus",
			},
			field: "grantDurationDays",
		},
		{
			name: "role outside the allow-list",
			req: usecase.IssueRequest{
				CodeType: model.CodeTypeInvite, Count: 1, RoleGrant: "admin",
				ValidFrom: from, ValidUntil: until,
			},
			field: "roleGrant",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := newIssuanceUC(NewMockCodeRepo(), NewMockCouponProvider())
			_, err := uc.Issue(ctx, &tc.req)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}
