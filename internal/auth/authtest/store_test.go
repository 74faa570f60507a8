// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authtest_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkit/internal/auth"
	"github.com/holomush/authkit/internal/auth/authtest"
	"github.com/holomush/authkit/pkg/errutil"
)

func newToken(userID ulid.ULID, plaintext string) *auth.Token {
	now := time.Now()
	return &auth.Token{
		ID:          ulid.Make(),
		UserID:      userID,
		Type:        auth.TokenResetPassword,
		HashedToken: auth.HashToken(plaintext),
		SentTo:      "mallory@example.com",
		ExpiresAt:   now.Add(time.Hour),
		CreatedAt:   now,
	}
}

func createUser(t *testing.T, store *authtest.Store, email string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(email, "$argon2id$stub", auth.RoleUser)
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func TestTokenRepo_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("supersedes earlier tokens of the same type", func(t *testing.T) {
		store := authtest.NewStore()
		user := createUser(t, store, "mallory@example.com")
		require.NoError(t, store.Tokens().Create(ctx, newToken(user.ID, "first")))
		require.NoError(t, store.Tokens().Create(ctx, newToken(user.ID, "second")))

		tokens := store.TokensFor(user.ID)
		require.Len(t, tokens, 1)
		assert.Equal(t, auth.HashToken("second"), tokens[0].HashedToken)
	})

	t.Run("duplicate hash leaves existing tokens untouched", func(t *testing.T) {
		store := authtest.NewStore()
		owner := createUser(t, store, "owner@example.com")
		other := createUser(t, store, "other@example.com")
		require.NoError(t, store.Tokens().Create(ctx, newToken(owner.ID, "shared")))
		require.NoError(t, store.Tokens().Create(ctx, newToken(other.ID, "others")))

		err := store.Tokens().Create(ctx, newToken(other.ID, "shared"))
		errutil.AssertErrorCode(t, err, "TOKEN_CREATE_FAILED")

		tokens := store.TokensFor(other.ID)
		require.Len(t, tokens, 1, "failed create must not supersede")
		assert.Equal(t, auth.HashToken("others"), tokens[0].HashedToken)
		assert.Len(t, store.TokensFor(owner.ID), 1)
	})

	t.Run("unknown user", func(t *testing.T) {
		store := authtest.NewStore()
		err := store.Tokens().Create(ctx, newToken(ulid.Make(), "orphan"))
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})
}
