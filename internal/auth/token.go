// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenBytes is the entropy of every opaque token: 32 bytes = 64 hex chars.
const TokenBytes = 32

// ResetTokenTTL is the default lifetime of a password reset token.
const ResetTokenTTL = 4 * time.Hour

// TokenType distinguishes token purposes sharing one table.
type TokenType string

// TokenResetPassword is the only token type issued today.
const TokenResetPassword TokenType = "RESET_PASSWORD"

// Token is a persisted single-use token. Only the SHA-256 of the plaintext
// is stored.
type Token struct {
	ID          ulid.ULID
	UserID      ulid.ULID
	Type        TokenType
	HashedToken string
	SentTo      string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IsExpiredAt reports whether the token is expired at now.
// A token whose expiry equals now is expired.
func (t *Token) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// GenerateToken creates a random hex token and its hash.
// Returns (plaintext, sha256_hex, error).
func GenerateToken() (token, hash string, err error) {
	b := make([]byte, TokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	token = hex.EncodeToString(b)
	return token, HashToken(token), nil
}

// HashToken returns the lowercase hex SHA-256 of a plaintext token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyTokenHash checks a plaintext token against a stored hash in constant time.
func VerifyTokenHash(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}

// TokenRepository manages token persistence.
type TokenRepository interface {
	// GetByHash retrieves a token by hash and type.
	// Returns an error wrapping ErrNotFound if absent.
	GetByHash(ctx context.Context, hash string, typ TokenType) (*Token, error)

	// Create deletes every token of the same user and type, then stores token,
	// both in one transaction.
	Create(ctx context.Context, token *Token) error

	// Consume atomically removes and returns the token with the given hash
	// and type. Of two concurrent callers at most one receives the row.
	// Returns an error wrapping ErrNotFound if absent.
	Consume(ctx context.Context, hash string, typ TokenType) (*Token, error)

	// Delete removes a token by ID. Deleting an absent token is not an error.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteFor removes every token of a user and type.
	DeleteFor(ctx context.Context, userID ulid.ULID, typ TokenType) (int64, error)

	// CountFor returns the number of tokens of any type held by a user.
	CountFor(ctx context.Context, userID ulid.ULID) (int, error)

	// DeleteExpired removes tokens whose expiry is at or before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
