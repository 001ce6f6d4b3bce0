package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"access-code-service/internal/domain"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/repository"
	"access-code-service/internal/usecase"
)

type issueRequest struct {
	CodeType  string `json:"codeType"`
	Count     int    `json:"count"`
	Prefix    string `json:"prefix"`
	GroupSize int    `json:"groupSize"`
	Groups    int    `json:"groups"`

	Description   string  `json:"description"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`

	MembershipPlanCode  string     `json:"membershipPlanCode"`
	MembershipGrantMode string     `json:"membershipGrantMode"`
	GrantDurationDays   *int       `json:"grantDurationDays"`
	AccessExpiresAt     *time.Time `json:"accessExpiresAt"`
	RoleGrant           string     `json:"roleGrant"`
	FeatureFlags        []string   `json:"featureFlags"`

	MaxUses        *int       `json:"maxUses"`
	PerUserLimit   *bool      `json:"perUserLimit"`
	ValidFrom      *time.Time `json:"validFrom"`
	ValidUntil     *time.Time `json:"validUntil"`
	EligibleEmail  string     `json:"eligibleEmail"`
	EligibleDomain string     `json:"eligibleDomain"`

	Metadata  map[string]any `json:"metadata"`
	CreatedBy string         `json:"createdBy"`
}

type issuedCodeView struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Mask string `json:"mask"`
	Hint string `json:"hint"`
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	res, err := s.issuance.Issue(r.Context(), &usecase.IssueRequest{
		CodeType:           model.CodeType(req.CodeType),
		Count:              req.Count,
		Prefix:             req.Prefix,
		GroupSize:          req.GroupSize,
		Groups:             req.Groups,
		Description:        req.Description,
		DiscountType:       model.DiscountType(req.DiscountType),
		DiscountValue:      req.DiscountValue,
		MembershipPlanCode: req.MembershipPlanCode,
		GrantMode:          model.GrantMode(req.MembershipGrantMode),
		GrantDurationDays:  req.GrantDurationDays,
		AccessExpiresAt:    req.AccessExpiresAt,
		RoleGrant:          req.RoleGrant,
		FeatureFlags:       req.FeatureFlags,
		MaxUses:            req.MaxUses,
		PerUserLimit:       req.PerUserLimit,
		ValidFrom:          req.ValidFrom,
		ValidUntil:         req.ValidUntil,
		EligibleEmail:      req.EligibleEmail,
		EligibleDomain:     req.EligibleDomain,
		Metadata:           req.Metadata,
		CreatedBy:          req.CreatedBy,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	codes := make([]issuedCodeView, 0, len(res.Codes))
	for _, c := range res.Codes {
		codes = append(codes, issuedCodeView{ID: c.ID, Code: c.Code, Mask: c.Mask, Hint: c.Hint})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Codes generated successfully.",
		"data":    map[string]any{"count": res.Count, "codes": codes},
	})
}

// codeView is the listing shape: every Code field except hash and plaintext.
type codeView struct {
	ID                  string         `json:"id"`
	CodeHint            string         `json:"codeHint"`
	CodeType            string         `json:"codeType"`
	Description         string         `json:"description,omitempty"`
	DiscountType        string         `json:"discountType,omitempty"`
	DiscountValue       float64        `json:"discountValue,omitempty"`
	MembershipPlanCode  string         `json:"membershipPlanCode,omitempty"`
	MembershipGrantMode string         `json:"membershipGrantMode,omitempty"`
	GrantDurationDays   *int           `json:"grantDurationDays,omitempty"`
	AccessExpiresAt     *time.Time     `json:"accessExpiresAt,omitempty"`
	RoleGrant           string         `json:"roleGrant,omitempty"`
	FeatureFlags        []string       `json:"featureFlags"`
	ValidFrom           *time.Time     `json:"validFrom,omitempty"`
	ValidUntil          *time.Time     `json:"validUntil,omitempty"`
	MaxUses             *int           `json:"maxUses,omitempty"`
	PerUserLimit        bool           `json:"perUserLimit"`
	EligibleEmail       string         `json:"eligibleEmail,omitempty"`
	EligibleDomain      string         `json:"eligibleDomain,omitempty"`
	UsedCount           int            `json:"usedCount"`
	IsActive            bool           `json:"isActive"`
	StripeCouponID      string         `json:"stripeCouponId,omitempty"`
	StripePromoCodeID   string         `json:"stripePromoCodeId,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	CreatedBy           string         `json:"createdBy,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.CodeListFilter{}
	if t := q.Get("type"); t == string(model.CodeTypeInvite) || t == string(model.CodeTypePromo) {
		filter.CodeType = model.CodeType(t)
	}
	if a := q.Get("active"); a != "" {
		active := a == "true"
		filter.IsActive = &active
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	codes, err := s.issuance.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]codeView, 0, len(codes))
	for _, c := range codes {
		views = append(views, codeView{
			ID:                  c.ID,
			CodeHint:            c.CodeHint,
			CodeType:            string(c.CodeType),
			Description:         c.Description,
			DiscountType:        string(c.DiscountType),
			DiscountValue:       c.DiscountValue,
			MembershipPlanCode:  c.MembershipPlanCode,
			MembershipGrantMode: string(c.GrantMode),
			GrantDurationDays:   c.GrantDurationDays,
			AccessExpiresAt:     c.AccessExpiresAt,
			RoleGrant:           c.RoleGrant,
			FeatureFlags:        c.FeatureFlags,
			ValidFrom:           c.ValidFrom,
			ValidUntil:          c.ValidUntil,
			MaxUses:             c.MaxUses,
			PerUserLimit:        c.PerUserLimit,
			EligibleEmail:       c.EligibleEmail,
			EligibleDomain:      c.EligibleDomain,
			UsedCount:           c.UsedCount,
			IsActive:            c.IsActive,
			StripeCouponID:      c.StripeCouponID,
			StripePromoCodeID:   c.StripePromoCodeID,
			Metadata:            c.Metadata,
			CreatedBy:           c.CreatedBy,
			CreatedAt:           c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Codes retrieved successfully.",
		"data":    map[string]any{"count": len(views), "codes": views},
	})
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		IsActive *bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsActive == nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := s.issuance.SetActive(r.Context(), id, *body.IsActive); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Code updated."})
}

type redeemRequest struct {
	Code     string         `json:"code"`
	OrderID  string         `json:"orderId"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}
	if s.limiter != nil && !s.limiter.Allow(r.Context(), identity.UserID) {
		s.writeError(w, domain.ErrRateLimited)
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	res, err := s.redemption.Redeem(r.Context(), req.Code, identity, req.OrderID, req.Metadata)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Code redeemed successfully.",
		"data": map[string]any{
			"codeType":            res.CodeType,
			"discountType":        res.DiscountType,
			"discountValue":       res.DiscountValue,
			"membershipPlanCode":  res.MembershipPlanCode,
			"roleGrant":           res.RoleGrant,
			"featureFlags":        res.FeatureFlags,
			"accessExpiresAt":     res.AccessExpiresAt,
			"externalPromotionId": res.ExternalPromotionID,
		},
	})
}

type entitlementView struct {
	ID                 string     `json:"id"`
	SourceCodeID       string     `json:"sourceCodeId"`
	RoleGrant          string     `json:"roleGrant,omitempty"`
	MembershipPlanCode string     `json:"membershipPlanCode,omitempty"`
	FeatureFlags       []string   `json:"featureFlags"`
	StartsAt           time.Time  `json:"startsAt"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

func (s *Server) handleListEntitlements(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	ents, err := s.entitlements.ListActive(r.Context(), identity.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]entitlementView, 0, len(ents))
	for _, e := range ents {
		views = append(views, entitlementView{
			ID:                 e.ID,
			SourceCodeID:       e.SourceCodeID,
			RoleGrant:          e.RoleGrant,
			MembershipPlanCode: e.MembershipPlanCode,
			FeatureFlags:       e.FeatureFlags,
			StartsAt:           e.StartsAt,
			ExpiresAt:          e.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Entitlements retrieved successfully.",
		"data":    map[string]any{"count": len(views), "entitlements": views},
	})
}

type validateRequest struct {
	Code     string `json:"code"`
	Email    string `json:"email"`
	CodeType string `json:"codeType"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	terms, err := s.redemption.Validate(r.Context(), req.Code, req.Email, model.CodeType(req.CodeType))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Code valid.",
		"data": map[string]any{
			"id":                  terms.ID,
			"codeType":            terms.CodeType,
			"description":         terms.Description,
			"discountType":        terms.DiscountType,
			"discountValue":       terms.DiscountValue,
			"membershipPlanCode":  terms.MembershipPlanCode,
			"roleGrant":           terms.RoleGrant,
			"featureFlags":        terms.FeatureFlags,
			"membershipGrantMode": terms.GrantMode,
			"grantDurationDays":   terms.GrantDurationDays,
			"accessExpiresAt":     terms.AccessExpiresAt,
			"externalPromotionId": terms.ExternalPromoID,
		},
	})
}

var eligibilityMessages = map[domain.EligibilityReason]string{
	domain.ReasonInactive:          "Invalid or expired code.",
	domain.ReasonNotYetValid:       "Code not active yet.",
	domain.ReasonExpired:           "Code expired.",
	domain.ReasonUsageLimitReached: "Usage limit reached.",
	domain.ReasonEmailNotEligible:  "Email not eligible for this code.",
	domain.ReasonDomainNotEligible: "Domain not eligible for this code.",
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var eligibility *domain.EligibilityError
	var conflict *domain.ConflictError
	var provider *domain.ExternalProviderError

	switch {
	case errors.As(err, &validation):
		writeMessage(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, domain.ErrCodeNotFound), errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Invalid or expired code.")
	case errors.As(err, &eligibility):
		status := http.StatusBadRequest
		switch eligibility.Reason {
		case domain.ReasonInactive:
			// indistinguishable from an unknown code on purpose
			status = http.StatusNotFound
		case domain.ReasonEmailNotEligible, domain.ReasonDomainNotEligible:
			status = http.StatusForbidden
		}
		writeMessage(w, status, eligibilityMessages[eligibility.Reason])
	case errors.As(err, &conflict):
		writeMessage(w, http.StatusConflict, conflict.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeMessage(w, http.StatusTooManyRequests, "Too many attempts. Try again shortly.")
	case errors.Is(err, domain.ErrBatchExhausted):
		writeMessage(w, http.StatusInternalServerError, "Failed to generate requested number of codes.")
	case errors.As(err, &provider):
		writeMessage(w, http.StatusBadGateway, "Coupon provider unavailable.")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
