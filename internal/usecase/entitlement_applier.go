package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
)

// AppliedGrant is what a single redemption actually granted.
type AppliedGrant struct {
	MembershipPlanCode string
	RoleGrant          string
	FeatureFlags       []string
	ExpiresAt          *time.Time
}

// EntitlementApplier atomically mutates membership, role and feature-flag
// state for a validated code. All writes happen on the caller's transaction;
// any error unwinds the whole redemption.
type EntitlementApplier struct {
	plans       repository.MembershipPlanRepository
	memberships repository.UserMembershipRepository
	users       repository.UserRepository
	ents        repository.EntitlementRepository
	grants      model.GrantPolicy
	log         *zerolog.Logger
}

func NewEntitlementApplier(
	plans repository.MembershipPlanRepository,
	memberships repository.UserMembershipRepository,
	users repository.UserRepository,
	ents repository.EntitlementRepository,
	grants model.GrantPolicy,
	logger *zerolog.Logger,
) *EntitlementApplier {
	l := logger.With().Str("component", "EntitlementApplier").Logger()
	return &EntitlementApplier{
		plans:       plans,
		memberships: memberships,
		users:       users,
		ents:        ents,
		grants:      grants,
		log:         &l,
	}
}

// Apply resolves and writes every grant the code carries, then upserts the
// durable entitlement record. Re-applying the same code for the same user
// replaces the entitlement's expiry and flags; it never stacks.
func (a *EntitlementApplier) Apply(ctx context.Context, tx repository.Tx, code *model.Code, identity model.Identity, now time.Time) (*AppliedGrant, error) {
	expiry := code.GrantExpiry(now)
	grant := &AppliedGrant{FeatureFlags: code.FeatureFlags, ExpiresAt: expiry}

	if code.MembershipPlanCode != "" {
		plan, err := a.plans.FindByPlanCode(ctx, tx, code.MembershipPlanCode)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("membershipPlanCode", "membership plan not found")
			}
			return nil, &domain.PersistenceError{Op: "resolve plan", Err: err}
		}

		if code.GrantMode == model.GrantModeUpgrade {
			current, err := a.memberships.FindByUser(ctx, tx, identity.UserID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.PersistenceError{Op: "load membership", Err: err}
			}
			if current != nil {
				curPlan, err := a.plans.FindByID(ctx, tx, current.PlanID)
				if err != nil && !errors.Is(err, domain.ErrNotFound) {
					return nil, &domain.PersistenceError{Op: "load current plan", Err: err}
				}
				// Monotonic upgrade: the target must strictly exceed the
				// user's current level.
				if curPlan != nil && curPlan.Level >= plan.Level {
					return nil, domain.ErrPlanLevelNotExceeded
				}
			}
		}

		if err := a.memberships.Upsert(ctx, tx, &model.UserMembership{
			UserID:    identity.UserID,
			PlanID:    plan.ID,
			Status:    model.MembershipStatusActive,
			StartsAt:  now,
			ExpiresAt: expiry,
			Notes:     "granted by code redemption",
		}); err != nil {
			return nil, &domain.PersistenceError{Op: "assign membership", Err: err}
		}
		grant.MembershipPlanCode = plan.PlanCode
	}

	if code.RoleGrant != "" {
		role := strings.ToLower(strings.TrimSpace(code.RoleGrant))
		// Re-checked here even though issuance validates: a misconfigured or
		// tampered code row must not elevate privileges.
		if !a.grants.Allows(role) {
			return nil, domain.NewValidationError("roleGrant", "role grant not permitted")
		}
		if err := a.users.UpdateRole(ctx, tx, identity.UserID, role); err != nil {
			return nil, &domain.PersistenceError{Op: "update role", Err: err}
		}
		grant.RoleGrant = role
	}

	ent := &model.Entitlement{
		ID:                 ulid.Make().String(),
		UserID:             identity.UserID,
		SourceCodeID:       code.ID,
		RoleGrant:          grant.RoleGrant,
		MembershipPlanCode: grant.MembershipPlanCode,
		FeatureFlags:       code.FeatureFlags,
		StartsAt:           now,
		ExpiresAt:          expiry,
		IsActive:           true,
	}
	if err := a.ents.Upsert(ctx, tx, ent); err != nil {
		return nil, &domain.PersistenceError{Op: "record entitlement", Err: err}
	}
	return grant, nil
}
