package model

import (
	"strings"
	"time"

	"access-code-service/internal/domain"

	"github.com/google/uuid"
)

// User is the account a redemption targets. Role mutation happens only
// through the entitlement applier under the grant allow-list.
type User struct {
	ID        string
	Email     string
	Role      string
	CreatedAt time.Time
}

func NewUser(id, email string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	return &User{ID: id, Email: email, Role: "user", CreatedAt: time.Now()}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// Identity is the pre-verified claim a redemption request carries. Token
// verification happens at the HTTP boundary; the engine only consumes this.
type Identity struct {
	UserID string
	Email  string
}

// NormalizedEmail lower-cases and trims the claimed email.
func (i Identity) NormalizedEmail() string {
	return NormalizeEmail(i.Email)
}

// NormalizeEmail is the shared exact-match normalization for email and
// domain eligibility filters.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailDomain returns the part after '@', already normalized.
func (i Identity) EmailDomain() string {
	e := i.NormalizedEmail()
	at := strings.LastIndex(e, "@")
	if at < 0 || at == len(e)-1 {
		return ""
	}
	return e[at+1:]
}
