// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkit/internal/auth"
	"github.com/holomush/authkit/pkg/errutil"
)

const (
	cliEmail    = "cli@example.com"
	cliPassword = "a long enough password"
)

func (h *harness) createUser(t *testing.T) ulid.ULID {
	t.Helper()
	out := h.mustRun(t, "user", "create", "--email", cliEmail, "--password", cliPassword)
	id, err := ulid.Parse(extract(t, `Created user (\S+) `, out))
	require.NoError(t, err)
	return id
}

func (h *harness) login(t *testing.T, password string) string {
	t.Helper()
	out := h.mustRun(t, "login", "--email", cliEmail, "--password", password)
	return extract(t, `Session token: (\S+)`, out)
}

func TestUserCreate(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "user", "create", "--email", " CLI@Example.com ", "--password", cliPassword, "--role", "admin")
	assert.Contains(t, out, "<cli@example.com> with role admin")
	assert.Empty(t, h.store.SessionsFor(ulid.MustParse(extract(t, `Created user (\S+) `, out))), "create does not open a session")
}

func TestUserCreate_Errors(t *testing.T) {
	h := newHarness(t)
	h.createUser(t)

	_, err := h.run(t, "user", "create", "--email", cliEmail, "--password", cliPassword)
	assert.ErrorIs(t, err, auth.ErrConflict)

	_, err = h.run(t, "user", "create", "--email", "other@example.com", "--password", "short")
	assert.ErrorIs(t, err, auth.ErrValidation)

	_, err = h.run(t, "user", "create", "--email", "other@example.com", "--password", cliPassword, "--role", "root")
	require.Error(t, err)

	_, err = h.run(t, "user", "create", "--email", "other@example.com")
	require.Error(t, err, "password flag is required")
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)
	id := h.createUser(t)

	token := h.login(t, cliPassword)
	assert.Len(t, h.store.SessionsFor(id), 1)
	assert.NotContains(t, h.logs.String(), token, "session tokens are not logged")

	out := h.mustRun(t, "whoami", "--token", token)
	assert.Contains(t, out, id.String())
	assert.Contains(t, out, "role=user")

	out = h.mustRun(t, "logout", "--token", token)
	assert.Contains(t, out, "Session revoked")
	assert.Empty(t, h.store.SessionsFor(id))

	_, err := h.run(t, "whoami", "--token", token)
	assert.ErrorIs(t, err, auth.ErrAuthentication)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t)
	h.createUser(t)

	_, err := h.run(t, "login", "--email", cliEmail, "--password", "definitely wrong")
	assert.ErrorIs(t, err, auth.ErrAuthentication)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
}

func TestResetRequestAndPerform(t *testing.T) {
	h := newHarness(t)
	id := h.createUser(t)
	oldToken := h.login(t, cliPassword)

	out := h.mustRun(t, "reset", "request", "--email", cliEmail)
	assert.Contains(t, out, "reset link has been sent")
	msg, ok := h.notifier.Last()
	require.True(t, ok)
	assert.Equal(t, cliEmail, msg.To)

	link, err := url.Parse(msg.Link)
	require.NoError(t, err)
	resetToken := link.Query().Get("token")
	require.NotEmpty(t, resetToken)
	assert.Len(t, h.store.TokensFor(id), 1)

	out = h.mustRun(t, "tokens", "count", "--user-id", id.String())
	assert.Equal(t, "1\n", out)

	newPassword := "the replacement password"
	out = h.mustRun(t, "reset", "perform", "--token", resetToken, "--password", newPassword, "--confirm", newPassword)
	assert.Contains(t, out, "Password reset for cli@example.com")
	assert.Empty(t, h.store.TokensFor(id))

	_, err = h.run(t, "whoami", "--token", oldToken)
	assert.ErrorIs(t, err, auth.ErrAuthentication, "reset signs out existing sessions")

	h.login(t, newPassword)

	_, err = h.run(t, "reset", "perform", "--token", resetToken, "--password", newPassword, "--confirm", newPassword)
	assert.ErrorIs(t, err, auth.ErrNotFound, "reset tokens are single use")
}

func TestResetRequest_UnknownEmail(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "reset", "request", "--email", "nobody@example.com")
	assert.Contains(t, out, "reset link has been sent")
	assert.Empty(t, h.notifier.Messages())
}

func TestResetPerform_Mismatch(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "reset", "perform", "--token", "abc", "--password", "first password!", "--confirm", "second password!")
	var ve *auth.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("passwordConfirmation"))
}

func TestPasswordChange(t *testing.T) {
	h := newHarness(t)
	id := h.createUser(t)

	_, err := h.run(t, "password", "change", "--user-id", id.String(), "--current", "not the password", "--new", "a new long password")
	assert.ErrorIs(t, err, auth.ErrAuthentication)

	out := h.mustRun(t, "password", "change", "--user-id", id.String(), "--current", cliPassword, "--new", "a new long password")
	assert.Contains(t, out, "Password changed")
	h.login(t, "a new long password")

	_, err = h.run(t, "password", "change", "--user-id", "not-a-ulid", "--current", cliPassword, "--new", "a new long password")
	errutil.AssertErrorCode(t, err, "INVALID_USER_ID")
}

func TestTokensPrune(t *testing.T) {
	h := newHarness(t)
	id := h.createUser(t)
	h.store.PutToken(&auth.Token{
		ID:          ulid.Make(),
		UserID:      id,
		Type:        auth.TokenResetPassword,
		HashedToken: auth.HashToken("stale"),
		SentTo:      cliEmail,
		ExpiresAt:   time.Now().Add(-time.Minute),
		CreatedAt:   time.Now().Add(-time.Hour),
	})

	out := h.mustRun(t, "tokens", "prune")
	assert.Equal(t, "Deleted 1 expired token(s)\n", out)
	assert.Empty(t, h.store.TokensFor(id))
}

func TestTokensCount_InvalidUserID(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "tokens", "count", "--user-id", "nope")
	errutil.AssertErrorCode(t, err, "INVALID_USER_ID")
}

func TestSessionsPruneAndRevoke(t *testing.T) {
	h := newHarness(t)
	id := h.createUser(t)
	h.login(t, cliPassword)
	h.login(t, cliPassword)

	out := h.mustRun(t, "sessions", "prune")
	assert.Equal(t, "Deleted 0 expired session(s)\n", out)

	out = h.mustRun(t, "sessions", "revoke", "--user-id", id.String())
	assert.Contains(t, out, "Revoked all sessions")
	assert.Empty(t, h.store.SessionsFor(id))
}

func TestBackendFailureSurfaces(t *testing.T) {
	h := newHarness(t)
	h.store.Fail("tokens.DeleteExpired", errors.New("disk full"))

	_, err := h.run(t, "tokens", "prune")
	errutil.AssertErrorCode(t, err, "TOKEN_PRUNE_FAILED")
}
