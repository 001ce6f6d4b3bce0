package model

import "strings"

// PrefixPolicy fixes the code prefix per code type. The prefix is always
// derived from the type; caller-supplied prefixes may only confirm it.
type PrefixPolicy struct {
	Invite string
	Promo  string
}

func DefaultPrefixPolicy() PrefixPolicy {
	return PrefixPolicy{Invite: "LTF", Promo: "CPN"}
}

func (p PrefixPolicy) For(t CodeType) string {
	if t == CodeTypePromo {
		return p.Promo
	}
	return p.Invite
}

// TypeOf maps a normalized code's prefix back to its type. Returns false for
// an unknown prefix.
func (p PrefixPolicy) TypeOf(normalized string) (CodeType, bool) {
	switch {
	case strings.HasPrefix(normalized, p.Invite+"-"), normalized == p.Invite:
		return CodeTypeInvite, true
	case strings.HasPrefix(normalized, p.Promo+"-"), normalized == p.Promo:
		return CodeTypePromo, true
	}
	return "", false
}

// GrantPolicy is the allow-list of roles a code may grant. Privileged roles
// are excluded by construction and can never arrive via a code row.
type GrantPolicy struct {
	roles map[string]struct{}
}

func NewGrantPolicy(roles []string) GrantPolicy {
	m := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			m[r] = struct{}{}
		}
	}
	return GrantPolicy{roles: m}
}

func DefaultGrantPolicy() GrantPolicy {
	return NewGrantPolicy([]string{"user", "beta", "tester", "member"})
}

func (g GrantPolicy) Allows(role string) bool {
	_, ok := g.roles[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

func (g GrantPolicy) Roles() []string {
	out := make([]string, 0, len(g.roles))
	for r := range g.roles {
		out = append(out, r)
	}
	return out
}
