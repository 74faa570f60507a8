// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/holomush/authkit/internal/auth"
	"github.com/holomush/authkit/pkg/errutil"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request. Code is one of the auth Outcome
// labels; Fields is set for validation failures.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

const (
	msgInvalidInput    = "invalid input"
	msgUnauthenticated = "authentication required"
	msgBadCredentials  = "invalid email or password"
	msgEmailTaken      = "email is already registered"
	msgResetLinkBad    = "reset password link is invalid or it has expired"
	msgInternal        = "internal error"
)

func writeError(c *gin.Context, status int, code, message string, fields map[string]string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{
		Code:    code,
		Message: message,
		Fields:  fields,
	}})
}

// statusFor maps an auth sentinel to an HTTP status.
func statusFor(err error) int {
	switch auth.Outcome(err) {
	case auth.OutcomeInvalidInput:
		return http.StatusBadRequest
	case auth.OutcomeUnauthenticated:
		return http.StatusUnauthorized
	case auth.OutcomeNotFound:
		return http.StatusNotFound
	case auth.OutcomeExpired:
		return http.StatusGone
	case auth.OutcomeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an error response. Infrastructure failures
// are logged and reported without detail.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := auth.Outcome(err)

	var message string
	var fields map[string]string
	switch status {
	case http.StatusBadRequest:
		message = msgInvalidInput
		var ve *auth.ValidationError
		if errors.As(err, &ve) {
			fields = ve.Fields
		}
	case http.StatusUnauthorized:
		message = msgUnauthenticated
	case http.StatusConflict:
		message = msgEmailTaken
	case http.StatusNotFound, http.StatusGone:
		message = "not found"
	default:
		message = msgInternal
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			append([]any{"route", c.FullPath()}, errutil.Attrs(err)...)...)
	}
	writeError(c, status, code, message, fields)
}
