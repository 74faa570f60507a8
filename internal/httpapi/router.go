// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the account operations as a JSON HTTP API.
//
// Sessions are carried either as a bearer token in the Authorization header
// or in the session cookie set by signup and login.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/holomush/authkit/internal/auth"
)

// SessionCookie is the name of the cookie holding the session token.
const SessionCookie = "authkit_session"

// Service is the part of auth.Service the API calls.
type Service interface {
	Signup(ctx context.Context, email, password string) (*auth.PublicUser, *auth.SessionGrant, error)
	Login(ctx context.Context, email, password string) (*auth.PublicUser, *auth.SessionGrant, error)
	Logout(ctx context.Context, sessionToken string) error
	CurrentUser(ctx context.Context, sessionToken string) (*auth.PublicUser, error)
	RequestPasswordReset(ctx context.Context, email string) error
	PerformPasswordReset(ctx context.Context, token, newPassword, confirmation string) (*auth.PublicUser, error)
	ChangePassword(ctx context.Context, userID ulid.ULID, currentPassword, newPassword string) error
}

var _ Service = (*auth.Service)(nil)

// RequestRecorder counts API responses.
type RequestRecorder interface {
	RecordHTTPRequest(route string, code int)
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for access and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRequestRecorder sets the recorder for per-route response counts.
func WithRequestRecorder(rec RequestRecorder) Option {
	return func(h *Handler) {
		if rec != nil {
			h.recorder = rec
		}
	}
}

// WithSecureCookies marks the session cookie Secure, for deployments
// served over HTTPS.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) {
		h.secureCookies = secure
	}
}

// Handler serves the API.
type Handler struct {
	svc           Service
	logger        *slog.Logger
	recorder      RequestRecorder
	secureCookies bool
	engine        *gin.Engine
}

type noopRecorder struct{}

func (noopRecorder) RecordHTTPRequest(string, int) {}

// New creates a Handler for svc.
func New(svc Service, opts ...Option) *Handler {
	h := &Handler{
		svc:      svc,
		logger:   slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		requestid.New(),
		gin.CustomRecoveryWithWriter(io.Discard, h.recover),
		h.accessLog,
	)
	engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not_found", "no such route", nil)
	})

	v1 := engine.Group("/v1")
	v1.POST("/signup", h.signup)
	v1.POST("/login", h.login)
	v1.POST("/logout", h.logout)
	v1.POST("/password/forgot", h.forgotPassword)
	v1.POST("/password/reset", h.resetPassword)

	authed := v1.Group("", h.requireSession)
	authed.GET("/me", h.me)
	authed.POST("/password/change", h.changePassword)

	h.engine = engine
	return h
}

// ServeHTTP implements http.Handler without tracing. Use HTTPHandler to
// serve real traffic.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

// HTTPHandler returns the API wrapped in OpenTelemetry instrumentation, so
// the trace context of incoming requests reaches the logs.
func (h *Handler) HTTPHandler() http.Handler {
	return otelhttp.NewHandler(h.engine, "authkit.api")
}

// NewServer returns an http.Server serving the instrumented API on addr.
func (h *Handler) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func (h *Handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	h.recorder.RecordHTTPRequest(route, status)

	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(c.Request.Context(), level, "http request",
		"method", c.Request.Method,
		"route", route,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestid.Get(c))
}

func (h *Handler) recover(c *gin.Context, recovered any) {
	h.logger.ErrorContext(c.Request.Context(), "panic in http handler",
		"route", c.FullPath(),
		"panic", recovered)
	writeError(c, http.StatusInternalServerError, auth.OutcomeError, "internal error", nil)
}
