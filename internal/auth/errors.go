// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors. Every error returned by this package wraps exactly one of
// these, so callers classify failures with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed or mismatched input.
	ErrValidation = errors.New("validation failed")

	// ErrAuthentication is returned for an unknown email, a wrong password,
	// or a missing session. The three cases are indistinguishable on purpose.
	ErrAuthentication = errors.New("authentication failed")

	// ErrTokenExpired is returned when a token exists but is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrConflict is returned when a unique attribute is already taken.
	ErrConflict = errors.New("conflict")
)

// ValidationError carries field-level messages for a rejected input.
// It unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError with a single field message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Field returns the message for a field, or "" if the field was accepted.
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}
