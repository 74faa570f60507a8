// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionTTL is the default session lifetime.
const SessionTTL = 24 * time.Hour

// Session is a persisted login session. Only the SHA-256 of the session
// token is stored.
type Session struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Role      Role
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpiredAt reports whether the session is expired at now.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionGrant is handed to the caller when a session is created.
// Token is the only copy of the plaintext session token.
type SessionGrant struct {
	Token     string    `json:"token"`
	SessionID ulid.ULID `json:"session_id"`
	UserID    ulid.ULID `json:"user_id"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore creates and revokes login sessions.
type SessionStore interface {
	// Create opens a session for a user.
	Create(ctx context.Context, userID ulid.ULID, role Role) (*SessionGrant, error)

	// Revoke ends the session identified by token. Unknown tokens are not an error.
	Revoke(ctx context.Context, token string) error

	// Lookup resolves a live session.
	// Returns an error wrapping ErrAuthentication if the token is unknown or expired.
	Lookup(ctx context.Context, token string) (*Session, error)

	// RevokeAllForUser ends every session of a user.
	RevokeAllForUser(ctx context.Context, userID ulid.ULID) error
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns an error wrapping ErrNotFound if absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByTokenHash removes a session. Removing an absent session is not an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteByUser removes every session of a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteExpired removes sessions whose expiry is at or before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionManager implements SessionStore over a SessionRepository.
type SessionManager struct {
	repo     SessionRepository
	ttl      time.Duration
	now      func() time.Time
	generate TokenGenerator
	logger   *slog.Logger
}

var _ SessionStore = (*SessionManager)(nil)

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionTTL sets the lifetime of new sessions.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSessionClock overrides the manager's time source.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// WithSessionLogger sets the logger used for best-effort cleanup failures.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(repo SessionRepository, opts ...SessionOption) (*SessionManager, error) {
	if repo == nil {
		return nil, oops.Errorf("session repository is required")
	}
	m := &SessionManager{
		repo:     repo,
		ttl:      SessionTTL,
		now:      time.Now,
		generate: GenerateToken,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create opens a session for a user.
func (m *SessionManager) Create(ctx context.Context, userID ulid.ULID, role Role) (*SessionGrant, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if !role.Valid() {
		return nil, oops.Code("SESSION_INVALID_ROLE").With("role", string(role)).Errorf("unknown role %q", role)
	}

	token, hash, err := m.generate()
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").With("operation", "generate session token").Wrap(err)
	}

	now := m.now()
	session := &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		Role:      role,
		TokenHash: hash,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.repo.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return &SessionGrant{
		Token:     token,
		SessionID: session.ID,
		UserID:    userID,
		Role:      role,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Revoke ends a session. Empty and unknown tokens are accepted.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.repo.DeleteByTokenHash(ctx, HashToken(token)); err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").With("operation", "delete session").Wrap(err)
	}
	return nil
}

// Lookup resolves a live session. An expired session is deleted.
func (m *SessionManager) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("AUTH_SESSION_INVALID").Wrap(ErrAuthentication)
	}
	hash := HashToken(token)

	session, err := m.repo.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_SESSION_INVALID").Wrap(ErrAuthentication)
		}
		return nil, oops.Code("SESSION_LOOKUP_FAILED").With("operation", "get session").Wrap(err)
	}

	if !VerifyTokenHash(token, session.TokenHash) {
		return nil, oops.Code("AUTH_SESSION_INVALID").Wrap(ErrAuthentication)
	}

	if session.IsExpiredAt(m.now()) {
		if delErr := m.repo.DeleteByTokenHash(ctx, hash); delErr != nil {
			m.logger.WarnContext(ctx, "failed to delete expired session",
				"session_id", session.ID.String(),
				"error", delErr.Error())
		}
		return nil, oops.Code("AUTH_SESSION_INVALID").
			With("session_id", session.ID.String()).
			Wrap(ErrAuthentication)
	}
	return session, nil
}

// RevokeAllForUser ends every session of a user.
func (m *SessionManager) RevokeAllForUser(ctx context.Context, userID ulid.ULID) error {
	if _, err := m.repo.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "delete user sessions").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// Prune deletes every expired session and returns how many were removed.
func (m *SessionManager) Prune(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").Wrap(err)
	}
	return n, nil
}
