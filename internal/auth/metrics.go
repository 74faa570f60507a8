// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// Service operation names, used as metric labels.
const (
	OpAuthenticate   = "authenticate"
	OpSignup         = "signup"
	OpLogin          = "login"
	OpLogout         = "logout"
	OpCurrentUser    = "current_user"
	OpRequestReset   = "request_reset"
	OpPerformReset   = "perform_reset"
	OpChangePassword = "change_password"
)

// Operation outcomes, used as metric labels.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalidInput    = "invalid_input"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeNotFound        = "not_found"
	OutcomeExpired         = "expired"
	OutcomeConflict        = "conflict"
	OutcomeError           = "error"
)

// MetricsRecorder observes the outcome of every Service operation.
type MetricsRecorder interface {
	RecordOperation(operation, outcome string)
	RecordTokenIssued(typ TokenType)
	RecordRehash()
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(string, string) {}
func (noopMetrics) RecordTokenIssued(TokenType)     {}
func (noopMetrics) RecordRehash()                   {}

// Outcome classifies err into one of the Outcome labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return OutcomeInvalidInput
	case errors.Is(err, ErrAuthentication):
		return OutcomeUnauthenticated
	case errors.Is(err, ErrTokenExpired):
		return OutcomeExpired
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
