package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type CodeType string

const (
	CodeTypeInvite CodeType = "invite"
	CodeTypePromo  CodeType = "promo"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

type GrantMode string

const (
	GrantModeFree    GrantMode = "free"
	GrantModeUpgrade GrantMode = "upgrade"
)

// Code is the redeemable unit. The plaintext is never stored; only its
// one-way hash and a masked hint survive issuance.
type Code struct {
	ID          string
	CodeHash    string
	CodeHint    string
	CodeType    CodeType
	Description string

	DiscountType  DiscountType // promo only
	DiscountValue float64      // > 0 when DiscountType set

	MembershipPlanCode string
	GrantMode          GrantMode
	GrantDurationDays  *int
	AccessExpiresAt    *time.Time
	RoleGrant          string
	FeatureFlags       []string

	ValidFrom      *time.Time
	ValidUntil     *time.Time
	MaxUses        *int
	PerUserLimit   bool
	EligibleEmail  string
	EligibleDomain string

	UsedCount int
	IsActive  bool

	StripeCouponID    string
	StripePromoCodeID string

	Metadata  map[string]any
	CreatedBy string
	CreatedAt time.Time
}

func (c *Code) IsZero() bool { return c == nil || c.ID == "" }

// GrantExpiry resolves the entitlement expiry for a redemption at `now`:
// an absolute AccessExpiresAt wins over a relative duration. Nil means the
// grant does not expire.
func (c *Code) GrantExpiry(now time.Time) *time.Time {
	if c.AccessExpiresAt != nil {
		t := *c.AccessExpiresAt
		return &t
	}
	if c.GrantDurationDays != nil && *c.GrantDurationDays > 0 {
		t := now.Add(time.Duration(*c.GrantDurationDays) * 24 * time.Hour)
		return &t
	}
	return nil
}

// NormalizeCode canonicalizes user-entered code text: trimmed, uppercased,
// with all interior whitespace removed. Dashes are preserved; they are part
// of the generated shape.
func NormalizeCode(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(s), "")
}

// HashCode returns the hex SHA-256 of the normalized plaintext. This is the
// only form ever persisted or used for lookup.
func HashCode(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// MaskCode keeps the prefix and the last four characters visible and blanks
// the rest, e.g. LTF-AB12-CD34 -> LTF-****-CD34.
func MaskCode(code string) string {
	parts := strings.Split(code, "-")
	if len(parts) < 2 {
		if len(code) <= 4 {
			return code
		}
		return strings.Repeat("*", len(code)-4) + code[len(code)-4:]
	}
	for i := 1; i < len(parts)-1; i++ {
		parts[i] = strings.Repeat("*", len(parts[i]))
	}
	return strings.Join(parts, "-")
}

// HintCode is the stored display form: prefix plus last four characters.
func HintCode(code string) string {
	parts := strings.Split(code, "-")
	last := code
	if len(last) > 4 {
		last = last[len(last)-4:]
	}
	if len(parts) >= 2 {
		return parts[0] + "-…" + last
	}
	return "…" + last
}
