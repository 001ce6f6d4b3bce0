package model

import "time"

// Entitlement is the durable record of what a code granted to a user,
// keyed by (UserID, SourceCodeID). A re-grant of the same code to the same
// user replaces the expiry and flags in place; it never stacks.
type Entitlement struct {
	ID                 string
	UserID             string
	SourceCodeID       string
	RoleGrant          string
	MembershipPlanCode string
	FeatureFlags       []string
	StartsAt           time.Time
	ExpiresAt          *time.Time
	IsActive           bool
}
