// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authkit/internal/notify"
)

// DefaultResetURL is the page reset links point at when none is configured.
const DefaultResetURL = "http://localhost:3000/reset-password"

// TokenLifecycle is the part of TokenIssuer the Service depends on.
type TokenLifecycle interface {
	Issue(ctx context.Context, userID ulid.ULID, typ TokenType, sentTo string, ttl time.Duration) (string, error)
	VerifyAndConsume(ctx context.Context, plaintext string, typ TokenType) (*User, error)
	Revoke(ctx context.Context, userID ulid.ULID, typ TokenType) (int64, error)
}

var _ TokenLifecycle = (*TokenIssuer)(nil)

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Users    UserRepository
	Tokens   TokenLifecycle
	Sessions SessionStore
	Hasher   PasswordHasher
	Notifier notify.Notifier

	// ResetURL is the page the reset link opens; the token is appended as
	// the "token" query parameter. Defaults to DefaultResetURL.
	ResetURL string
	// ResetTTL is the lifetime of reset tokens. Defaults to ResetTokenTTL.
	ResetTTL time.Duration

	Logger  *slog.Logger
	Metrics MetricsRecorder
}

// Service provides the account operations.
type Service struct {
	users    UserRepository
	tokens   TokenLifecycle
	sessions SessionStore
	hasher   PasswordHasher
	notifier notify.Notifier
	resetURL *url.URL
	resetTTL time.Duration
	logger   *slog.Logger
	metrics  MetricsRecorder

	// dummyHash is verified against when a user doesn't exist, so unknown
	// emails cost the same as wrong passwords. It is produced by the
	// configured hasher and matches no password anyone knows.
	dummyHash string
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if cfg.Tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if cfg.Sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if cfg.Hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if cfg.Notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}

	rawURL := cfg.ResetURL
	if rawURL == "" {
		rawURL = DefaultResetURL
	}
	resetURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("reset_url", rawURL).Wrap(err)
	}
	if resetURL.Scheme == "" || resetURL.Host == "" {
		return nil, oops.Code("CONFIG_INVALID").With("reset_url", rawURL).Errorf("reset URL must be absolute")
	}

	ttl := cfg.ResetTTL
	if ttl == 0 {
		ttl = ResetTokenTTL
	}
	if ttl < 0 {
		return nil, oops.Code("CONFIG_INVALID").With("reset_ttl", ttl.String()).Errorf("reset TTL must be positive")
	}

	secret, _, err := GenerateToken()
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").With("operation", "generate dummy password").Wrap(err)
	}
	dummyHash, err := cfg.Hasher.Hash(secret)
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").With("operation", "hash dummy password").Wrap(err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics MetricsRecorder = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &Service{
		users:     cfg.Users,
		tokens:    cfg.Tokens,
		sessions:  cfg.Sessions,
		hasher:    cfg.Hasher,
		notifier:  cfg.Notifier,
		resetURL:  resetURL,
		resetTTL:  ttl,
		logger:    logger,
		metrics:   metrics,
		dummyHash: dummyHash,
	}, nil
}

func errInvalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrapf(ErrAuthentication, "invalid email or password")
}

// Authenticate checks an email and password.
// Unknown emails and wrong passwords return the same AuthenticationError.
// A digest produced with outdated parameters is replaced on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (_ *PublicUser, err error) {
	defer func() { s.metrics.RecordOperation(OpAuthenticate, Outcome(err)) }()

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return user.public(), nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*User, error) {
	normalized, err := validateLogin(email, password)
	if err != nil {
		return nil, err
	}

	user, lookupErr := s.users.GetByEmail(ctx, normalized)
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
		//nolint:errcheck // result discarded, only the elapsed time matters
		s.hasher.Verify(s.dummyHash, password)
		return nil, errInvalidCredentials()
	}

	result, err := s.hasher.Verify(user.HashedPassword, password)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	switch result {
	case VerifyValid:
	case VerifyValidNeedsRehash:
		s.rehash(ctx, user, password)
	default:
		return nil, errInvalidCredentials()
	}
	return user, nil
}

// rehash stores a current-parameters digest. Failure leaves the old digest
// in place and does not fail the login.
func (s *Service) rehash(ctx context.Context, user *User, password string) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password rehash failed",
			"operation", "hash_password",
			"user_id", user.ID.String(),
			"error", err.Error())
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		s.logger.WarnContext(ctx, "best-effort password rehash failed",
			"operation", "update_password",
			"user_id", user.ID.String(),
			"error", err.Error())
		return
	}
	user.HashedPassword = digest
	s.metrics.RecordRehash()
}

// Signup creates a user with role "user" and opens a session for it.
func (s *Service) Signup(ctx context.Context, email, password string) (_ *PublicUser, _ *SessionGrant, err error) {
	defer func() { s.metrics.RecordOperation(OpSignup, Outcome(err)) }()

	user, err := s.createUser(ctx, email, password, RoleUser)
	if err != nil {
		return nil, nil, err
	}

	grant, err := s.sessions.Create(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, oops.Code("SIGNUP_FAILED").
			With("operation", "create session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return user.public(), grant, nil
}

// CreateUser creates a user with the given role without opening a session.
func (s *Service) CreateUser(ctx context.Context, email, password string, role Role) (_ *PublicUser, err error) {
	defer func() { s.metrics.RecordOperation(OpSignup, Outcome(err)) }()

	user, err := s.createUser(ctx, email, password, role)
	if err != nil {
		return nil, err
	}
	return user.public(), nil
}

func (s *Service) createUser(ctx context.Context, email, password string, role Role) (*User, error) {
	normalized, trimmed, err := validateSignup(email, password)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, validationFailed(NewValidationError("role", "must be user or admin"))
	}

	digest, err := s.hasher.Hash(trimmed)
	if err != nil {
		return nil, oops.Code("SIGNUP_FAILED").With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(normalized, digest, role)
	if err != nil {
		return nil, oops.Code("SIGNUP_FAILED").With("operation", "new user").Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("AUTH_EMAIL_TAKEN").
				With("field", "email").
				Wrapf(ErrConflict, "this email is already being used")
		}
		return nil, oops.Code("SIGNUP_FAILED").With("operation", "create user").Wrap(err)
	}
	return user, nil
}

// Login authenticates and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (_ *PublicUser, _ *SessionGrant, err error) {
	defer func() { s.metrics.RecordOperation(OpLogin, Outcome(err)) }()

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	grant, err := s.sessions.Create(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "create session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return user.public(), grant, nil
}

// Logout revokes a session. Unknown or empty tokens succeed.
func (s *Service) Logout(ctx context.Context, sessionToken string) (err error) {
	defer func() { s.metrics.RecordOperation(OpLogout, Outcome(err)) }()

	return s.sessions.Revoke(ctx, sessionToken)
}

// CurrentUser resolves the user behind a session token.
func (s *Service) CurrentUser(ctx context.Context, sessionToken string) (_ *PublicUser, err error) {
	defer func() { s.metrics.RecordOperation(OpCurrentUser, Outcome(err)) }()

	session, err := s.sessions.Lookup(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("USER_NOT_FOUND").With("user_id", session.UserID.String()).Wrap(ErrNotFound)
		}
		return nil, oops.Code("CURRENT_USER_FAILED").With("operation", "get user by id").Wrap(err)
	}
	return user.public(), nil
}

// RequestPasswordReset issues a reset token for the account with email and
// sends the reset link. An unknown email is not an error and issues nothing.
// Delivery failure is logged, not returned.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.RecordOperation(OpRequestReset, Outcome(err)) }()

	normalized, err := validateEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := s.tokens.Issue(ctx, user.ID, TokenResetPassword, user.Email, s.resetTTL)
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	s.metrics.RecordTokenIssued(TokenResetPassword)

	msg := notify.ResetPasswordMessage(user.Email, s.resetLink(token))
	if sendErr := s.notifier.Send(ctx, msg); sendErr != nil {
		s.logger.WarnContext(ctx, "best-effort reset notification failed",
			"operation", "send_notification",
			"user_id", user.ID.String(),
			"error", sendErr.Error())
	}
	return nil
}

func (s *Service) resetLink(token string) string {
	u := *s.resetURL
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// PerformPasswordReset redeems a reset token and sets a new password.
// Input is validated before the token is touched, so a mismatched
// confirmation leaves the token usable. Token errors are returned unchanged.
// Remaining reset tokens and all sessions of the user are revoked afterwards.
func (s *Service) PerformPasswordReset(ctx context.Context, token, newPassword, confirmation string) (_ *PublicUser, err error) {
	defer func() { s.metrics.RecordOperation(OpPerformReset, Outcome(err)) }()

	token, password, err := validateReset(token, newPassword, confirmation)
	if err != nil {
		return nil, err
	}

	user, err := s.tokens.VerifyAndConsume(ctx, token, TokenResetPassword)
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("RESET_PASSWORD_FAILED").With("operation", "hash password").Wrap(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		return nil, oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	user.HashedPassword = digest

	if _, revokeErr := s.tokens.Revoke(ctx, user.ID, TokenResetPassword); revokeErr != nil {
		s.logger.WarnContext(ctx, "best-effort reset cleanup failed",
			"operation", "delete_tokens",
			"user_id", user.ID.String(),
			"error", revokeErr.Error())
	}
	if revokeErr := s.sessions.RevokeAllForUser(ctx, user.ID); revokeErr != nil {
		s.logger.WarnContext(ctx, "best-effort reset cleanup failed",
			"operation", "revoke_sessions",
			"user_id", user.ID.String(),
			"error", revokeErr.Error())
	}
	return user.public(), nil
}

// ChangePassword replaces the password of userID after checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, currentPassword, newPassword string) (err error) {
	defer func() { s.metrics.RecordOperation(OpChangePassword, Outcome(err)) }()

	password, err := validateChangePassword(currentPassword, newPassword)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("USER_NOT_FOUND").With("user_id", userID.String()).Wrap(ErrNotFound)
		}
		return oops.Code("CHANGE_PASSWORD_FAILED").With("operation", "get user by id").Wrap(err)
	}

	if _, err := s.authenticate(ctx, user.Email, currentPassword); err != nil {
		return err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("CHANGE_PASSWORD_FAILED").With("operation", "hash password").Wrap(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		return oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return nil
}
