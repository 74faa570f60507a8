// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenGenerator returns a plaintext token and its stored hash.
type TokenGenerator func() (token, hash string, err error)

// TokenIssuer issues and redeems single-use tokens.
type TokenIssuer struct {
	tokens   TokenRepository
	users    UserRepository
	now      func() time.Time
	generate TokenGenerator
}

// IssuerOption configures a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock overrides the issuer's time source.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) {
		i.now = now
	}
}

// WithTokenGenerator overrides how plaintext tokens are produced.
func WithTokenGenerator(gen TokenGenerator) IssuerOption {
	return func(i *TokenIssuer) {
		i.generate = gen
	}
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(tokens TokenRepository, users UserRepository, opts ...IssuerOption) (*TokenIssuer, error) {
	if tokens == nil {
		return nil, oops.Errorf("token repository is required")
	}
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	i := &TokenIssuer{
		tokens:   tokens,
		users:    users,
		now:      time.Now,
		generate: GenerateToken,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue creates a token of the given type for a user and returns its plaintext.
// Every earlier token of the same user and type stops being valid.
// The plaintext is not retrievable again.
func (i *TokenIssuer) Issue(ctx context.Context, userID ulid.ULID, typ TokenType, sentTo string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", oops.Code("AUTH_VALIDATION_FAILED").
			With("ttl", ttl.String()).
			Wrap(NewValidationError("ttl", "must be positive"))
	}
	if userID.Compare(ulid.ULID{}) == 0 {
		return "", oops.Code("AUTH_VALIDATION_FAILED").Wrap(NewValidationError("user_id", "cannot be zero"))
	}
	if typ == "" {
		return "", oops.Code("AUTH_VALIDATION_FAILED").Wrap(NewValidationError("type", "is required"))
	}

	plaintext, hash, err := i.generate()
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").With("operation", "generate token").Wrap(err)
	}

	now := i.now()
	token := &Token{
		ID:          ulid.Make(),
		UserID:      userID,
		Type:        typ,
		HashedToken: hash,
		SentTo:      sentTo,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	if err := i.tokens.Create(ctx, token); err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").
			With("operation", "create token").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return plaintext, nil
}

// VerifyAndConsume redeems a plaintext token and returns its owner.
// The token is removed whatever the outcome once it has been found, so an
// expired token is burned and a second redemption reports ErrNotFound.
func (i *TokenIssuer) VerifyAndConsume(ctx context.Context, plaintext string, typ TokenType) (*User, error) {
	if plaintext == "" {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(ErrNotFound)
	}
	hash := HashToken(plaintext)

	token, err := i.tokens.Consume(ctx, hash, typ)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("TOKEN_NOT_FOUND").With("type", string(typ)).Wrap(ErrNotFound)
		}
		return nil, oops.Code("TOKEN_CONSUME_FAILED").With("operation", "consume token").Wrap(err)
	}

	if !VerifyTokenHash(plaintext, token.HashedToken) {
		return nil, oops.Code("TOKEN_NOT_FOUND").With("type", string(typ)).Wrap(ErrNotFound)
	}

	if token.IsExpiredAt(i.now()) {
		return nil, oops.Code("TOKEN_EXPIRED").
			With("token_id", token.ID.String()).
			With("expired_at", token.ExpiresAt).
			Wrap(ErrTokenExpired)
	}

	user, err := i.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("USER_NOT_FOUND").With("user_id", token.UserID.String()).Wrap(ErrNotFound)
		}
		return nil, oops.Code("TOKEN_CONSUME_FAILED").With("operation", "get token owner").Wrap(err)
	}
	return user, nil
}

// Revoke deletes every token of a user and type.
func (i *TokenIssuer) Revoke(ctx context.Context, userID ulid.ULID, typ TokenType) (int64, error) {
	n, err := i.tokens.DeleteFor(ctx, userID, typ)
	if err != nil {
		return 0, oops.Code("TOKEN_REVOKE_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return n, nil
}

// Count returns how many tokens a user holds.
func (i *TokenIssuer) Count(ctx context.Context, userID ulid.ULID) (int, error) {
	n, err := i.tokens.CountFor(ctx, userID)
	if err != nil {
		return 0, oops.Code("TOKEN_COUNT_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return n, nil
}

// Prune deletes every expired token and returns how many were removed.
func (i *TokenIssuer) Prune(ctx context.Context) (int64, error) {
	n, err := i.tokens.DeleteExpired(ctx, i.now())
	if err != nil {
		return 0, oops.Code("TOKEN_PRUNE_FAILED").Wrap(err)
	}
	return n, nil
}
