package model

import "time"

// Redemption records one successful redemption of a code by a user. With
// PerUserLimit set, at most one row exists per (CodeID, UserID); with an
// OrderID supplied, at most one per (CodeID, UserID, OrderID).
type Redemption struct {
	ID         string
	CodeID     string
	UserID     string
	OrderID    *string
	Metadata   map[string]any
	RedeemedAt time.Time
}
