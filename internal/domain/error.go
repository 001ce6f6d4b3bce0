package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrCodeNotFound       = errors.New("code not found")
	ErrBatchExhausted     = errors.New("could not generate requested number of codes")
	ErrRateLimited        = errors.New("too many redemption attempts")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// EligibilityReason identifies which ordered eligibility check rejected a
// redemption attempt. The set is closed. Checks 1-5 surface as
// EligibilityError; the duplicate checks surface as ConflictError carrying
// the matching reason.
type EligibilityReason string

const (
	ReasonInactive            EligibilityReason = "code_inactive"
	ReasonNotYetValid         EligibilityReason = "code_not_yet_valid"
	ReasonExpired             EligibilityReason = "code_expired"
	ReasonUsageLimitReached   EligibilityReason = "usage_limit_reached"
	ReasonEmailNotEligible    EligibilityReason = "email_not_eligible"
	ReasonDomainNotEligible   EligibilityReason = "domain_not_eligible"
	ReasonAlreadyRedeemed     EligibilityReason = "already_redeemed"
	ReasonOrderAlreadyApplied EligibilityReason = "order_already_redeemed"
)

// EligibilityError is returned when a code exists but the attempt fails one
// of the static eligibility checks. Never retried. Duplicate redemptions are
// a ConflictError, not an EligibilityError.
type EligibilityError struct {
	Reason EligibilityReason
}

func (e *EligibilityError) Error() string { return "not eligible: " + string(e.Reason) }

func NewEligibilityError(reason EligibilityReason) *EligibilityError {
	return &EligibilityError{Reason: reason}
}

// ValidationError reports malformed or contradictory caller input. Surfaced
// verbatim; never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// ConflictError marks duplicate-redemption and plan-level conflicts so the
// caller can render "already redeemed" distinctly from generic ineligibility.
// Reason carries the rejecting check's code for metrics labels; it is empty
// for conflicts that do not map to an eligibility check.
type ConflictError struct {
	Reason EligibilityReason
	Msg    string
}

func (e *ConflictError) Error() string { return e.Msg }

var (
	ErrAlreadyRedeemed      = &ConflictError{Reason: ReasonAlreadyRedeemed, Msg: "code already redeemed"}
	ErrOrderAlreadyRedeemed = &ConflictError{Reason: ReasonOrderAlreadyApplied, Msg: "code already redeemed for this order"}
	ErrPlanLevelNotExceeded = &ConflictError{Msg: "user already has this plan or higher"}
)

// ExternalProviderError wraps a failure from the coupon provider. The
// issuance attempt that hit it is abandoned; the batch may continue.
type ExternalProviderError struct {
	Provider string
	Err      error
}

func (e *ExternalProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ExternalProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a transaction or lock failure. Always rolled back in
// full and surfaced to the caller as a generic retryable failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }
