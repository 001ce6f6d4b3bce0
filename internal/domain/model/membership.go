package model

import (
	"time"

	"access-code-service/internal/domain"
)

// MembershipPlan is a grantable plan with an ordinal level used by the
// upgrade-mode comparison: grants must strictly exceed the user's level.
type MembershipPlan struct {
	ID        string
	PlanCode  string
	Name      string
	Level     int
	CreatedAt time.Time
}

func (p *MembershipPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewMembershipPlan validates and constructs a plan.
func NewMembershipPlan(id, planCode, name string, level int) (*MembershipPlan, error) {
	if id == "" || planCode == "" || name == "" || level < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &MembershipPlan{
		ID:        id,
		PlanCode:  planCode,
		Name:      name,
		Level:     level,
		CreatedAt: time.Now(),
	}, nil
}

type MembershipStatus string

const (
	MembershipStatusActive  MembershipStatus = "active"
	MembershipStatusExpired MembershipStatus = "expired"
)

// UserMembership is a user's single current membership assignment. A code
// redemption overwrites it wholesale; there is one row per user.
type UserMembership struct {
	UserID    string
	PlanID    string
	Status    MembershipStatus
	StartsAt  time.Time
	ExpiresAt *time.Time
	Notes     string
}
