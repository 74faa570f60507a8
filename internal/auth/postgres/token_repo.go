// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authkit/internal/auth"
)

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool Pool
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

const tokenColumns = `id, user_id, type, hashed_token, sent_to, expires_at, created_at`

// GetByHash retrieves a token by hash and type.
func (r *TokenRepository) GetByHash(ctx context.Context, hash string, typ auth.TokenType) (*auth.Token, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+` FROM tokens WHERE hashed_token = $1 AND type = $2
	`, hash, string(typ))
	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Create supersedes the user's tokens of the same type and stores token,
// in one transaction. The owning user row is locked first so concurrent
// issues for one user run one after the other.
func (r *TokenRepository) Create(ctx context.Context, token *auth.Token) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		locked, err := tx.Exec(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, token.UserID.String())
		if err != nil {
			return oops.Code("TOKEN_CREATE_FAILED").
				With("operation", "lock user").
				With("user_id", token.UserID.String()).
				Wrap(err)
		}
		if locked.RowsAffected() == 0 {
			return oops.Code("USER_NOT_FOUND").With("user_id", token.UserID.String()).Wrap(auth.ErrNotFound)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM tokens WHERE user_id = $1 AND type = $2`,
			token.UserID.String(), string(token.Type)); err != nil {
			return oops.Code("TOKEN_CREATE_FAILED").
				With("operation", "delete superseded tokens").
				With("user_id", token.UserID.String()).
				Wrap(err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO tokens (`+tokenColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, token.ID.String(), token.UserID.String(), string(token.Type), token.HashedToken,
			token.SentTo, token.ExpiresAt, token.CreatedAt)
		switch {
		case err == nil:
			return nil
		case pgCode(err) == pgerrcode.ForeignKeyViolation:
			return oops.Code("USER_NOT_FOUND").With("user_id", token.UserID.String()).Wrap(auth.ErrNotFound)
		default:
			return oops.Code("TOKEN_CREATE_FAILED").
				With("operation", "insert token").
				With("user_id", token.UserID.String()).
				Wrap(err)
		}
	})
}

// Consume deletes and returns the matching token in a single statement,
// so concurrent callers race on the row lock and only one gets it back.
func (r *TokenRepository) Consume(ctx context.Context, hash string, typ auth.TokenType) (*auth.Token, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM tokens WHERE hashed_token = $1 AND type = $2
		RETURNING `+tokenColumns, hash, string(typ))
	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Delete removes a token by ID.
func (r *TokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM tokens WHERE id = $1`, id.String()); err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "delete token").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// DeleteFor removes every token of a user and type.
func (r *TokenRepository) DeleteFor(ctx context.Context, userID ulid.ULID, typ auth.TokenType) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM tokens WHERE user_id = $1 AND type = $2`,
		userID.String(), string(typ))
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "delete tokens by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// CountFor returns the number of tokens held by a user.
func (r *TokenRepository) CountFor(ctx context.Context, userID ulid.ULID) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tokens WHERE user_id = $1`,
		userID.String()).Scan(&n); err != nil {
		return 0, oops.Code("TOKEN_COUNT_FAILED").
			With("operation", "count tokens").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return n, nil
}

// DeleteExpired removes tokens expiring at or before the given time.
func (r *TokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM tokens WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*auth.Token, error) {
	var (
		idStr, userIDStr, typ, hashed, sentTo string
		expiresAt, createdAt                  time.Time
	)
	if err := row.Scan(&idStr, &userIDStr, &typ, &hashed, &sentTo, &expiresAt, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("TOKEN_SCAN_FAILED").With("operation", "scan token").Wrap(err)
	}
	id, err := parseID(idStr, "token_id")
	if err != nil {
		return nil, err
	}
	userID, err := parseID(userIDStr, "user_id")
	if err != nil {
		return nil, err
	}
	return &auth.Token{
		ID:          id,
		UserID:      userID,
		Type:        auth.TokenType(typ),
		HashedToken: hashed,
		SentTo:      sentTo,
		ExpiresAt:   expiresAt,
		CreatedAt:   createdAt,
	}, nil
}

var _ auth.TokenRepository = (*TokenRepository)(nil)
