// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/holomush/authkit/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SessionResponse is returned by signup and login.
type SessionResponse struct {
	User    *auth.PublicUser   `json:"user"`
	Session *auth.SessionGrant `json:"session"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	User *auth.PublicUser `json:"user"`
}

// MessageResponse carries a human-readable acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ForgotPasswordMessage is returned for every well-formed forgot-password
// request, whether or not the email belongs to an account.
const ForgotPasswordMessage = "If an account exists for that email, a reset link has been sent."

const currentUserKey = "authkit.current_user"

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, auth.OutcomeInvalidInput, "malformed request body", nil)
		return false
	}
	return true
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if !bind(c, &req) {
		return
	}
	user, grant, err := h.svc.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setSessionCookie(c, grant)
	c.JSON(http.StatusCreated, SessionResponse{User: user, Session: grant})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if !bind(c, &req) {
		return
	}
	user, grant, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthentication) {
			writeError(c, http.StatusUnauthorized, auth.OutcomeUnauthenticated, msgBadCredentials, nil)
			return
		}
		h.respondError(c, err)
		return
	}
	h.setSessionCookie(c, grant)
	c.JSON(http.StatusOK, SessionResponse{User: user, Session: grant})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), sessionToken(c)); err != nil {
		h.respondError(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, UserResponse{User: currentUser(c)})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, MessageResponse{Message: ForgotPasswordMessage})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.svc.PerformPasswordReset(c.Request.Context(), req.Token, req.Password, req.PasswordConfirmation)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNotFound), errors.Is(err, auth.ErrTokenExpired):
			writeError(c, statusFor(err), auth.Outcome(err), msgResetLinkBad, nil)
		default:
			h.respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, UserResponse{User: user})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bind(c, &req) {
		return
	}
	user := currentUser(c)
	if err := h.svc.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrAuthentication) {
			writeError(c, http.StatusUnauthorized, auth.OutcomeUnauthenticated, "current password is incorrect", nil)
			return
		}
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requireSession resolves the session token to a user or aborts with 401.
func (h *Handler) requireSession(c *gin.Context) {
	token := sessionToken(c)
	if token == "" {
		writeError(c, http.StatusUnauthorized, auth.OutcomeUnauthenticated, msgUnauthenticated, nil)
		return
	}
	user, err := h.svc.CurrentUser(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			// Session outlived its user.
			writeError(c, http.StatusUnauthorized, auth.OutcomeUnauthenticated, msgUnauthenticated, nil)
			return
		}
		h.respondError(c, err)
		return
	}
	c.Set(currentUserKey, user)
	c.Next()
}

func currentUser(c *gin.Context) *auth.PublicUser {
	user, _ := c.MustGet(currentUserKey).(*auth.PublicUser)
	return user
}

// sessionToken reads the bearer token, falling back to the session cookie.
func sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	token, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return token
}

func (h *Handler) setSessionCookie(c *gin.Context, grant *auth.SessionGrant) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    grant.Token,
		Path:     "/",
		Expires:  grant.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
