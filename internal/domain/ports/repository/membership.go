package repository

import (
	"context"

	"access-code-service/internal/domain/model"
)

// MembershipPlanRepository is the port for the (mostly static) plan catalog.
type MembershipPlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.MembershipPlan) error
	FindByPlanCode(ctx context.Context, tx Tx, planCode string) (*model.MembershipPlan, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.MembershipPlan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.MembershipPlan, error)
}

// UserMembershipRepository is the port for a user's current plan assignment.
type UserMembershipRepository interface {
	// FindByUser returns the user's membership, or domain.ErrNotFound.
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.UserMembership, error)
	// Upsert replaces the user's membership wholesale (one row per user).
	Upsert(ctx context.Context, tx Tx, m *model.UserMembership) error
}
