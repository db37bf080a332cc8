// Package errors defines the error taxonomy shared by the launchpad
// services. Every failure surfaced to a caller carries a Code so clients can
// distinguish "fix your input" (validation, authorization, eligibility) from
// "try again later" (rpc, database, timeout) from "the ledger said no"
// (ledger rejections, expected under purchase races).
package errors

import (
	"fmt"
)

// Code classifies an error.
type Code string

const (
	// CodeValidation marks caller-fixable input errors. Never retryable.
	CodeValidation Code = "VALIDATION"

	// CodeAuthorization marks creator-only actions attempted by another
	// caller. Never retryable.
	CodeAuthorization Code = "AUTHORIZATION"

	// CodeEligibility marks purchase pre-checks that failed (not
	// whitelisted, cap exceeded, supply exhausted, phase not active).
	CodeEligibility Code = "ELIGIBILITY"

	// CodeLedger marks transactions rejected or reverted on-chain. Expected
	// under races; resubmission is the caller's decision.
	CodeLedger Code = "LEDGER"

	// CodeDatabase marks catalog store failures.
	CodeDatabase Code = "DATABASE"

	// CodeRPC marks ledger node communication failures.
	CodeRPC Code = "RPC"

	// CodeTimeout marks deadline expiries waiting on external systems.
	CodeTimeout Code = "TIMEOUT"

	// CodePinning marks metadata pinning failures, including rate limits.
	CodePinning Code = "PINNING"

	// CodeInternal marks bugs and invariant violations.
	CodeInternal Code = "INTERNAL"
)

// Error is the concrete error type used across the services.
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error for logging.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Retryable reports whether retrying the same operation can succeed without
// the caller changing anything.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeRPC, CodeTimeout, CodeDatabase, CodePinning:
		return true
	default:
		return false
	}
}
