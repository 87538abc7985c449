package domainerrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeMissingClaims      Code = "missing_claims"
	CodeInvalidTransition  Code = "invalid_transition"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		// Preserve the original domain code, update message
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// MissingClaimsError reports required claim keys absent from an attestation
// request. Callers must not retry without supplying the named claims.
type MissingClaimsError struct {
	EventType string
	Missing   []string
}

// NewMissingClaims builds a MissingClaimsError with the missing keys sorted
// for stable messages.
func NewMissingClaims(eventType string, missing []string) error {
	keys := make([]string, len(missing))
	copy(keys, missing)
	sort.Strings(keys)
	return &MissingClaimsError{EventType: eventType, Missing: keys}
}

func (e *MissingClaimsError) Error() string {
	return fmt.Sprintf("attestation type %s missing required claims: %s",
		e.EventType, strings.Join(e.Missing, ", "))
}

// Is lets errors.Is match any MissingClaimsError and lets HasCode-style
// matching work through the generic domain error code.
func (e *MissingClaimsError) Is(target error) bool {
	if _, ok := target.(*MissingClaimsError); ok {
		return true
	}
	t, ok := target.(*Error)
	return ok && t.Code == CodeMissingClaims
}

