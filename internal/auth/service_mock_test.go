// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkit/internal/auth"
	"github.com/holomush/authkit/internal/auth/mocks"
	"github.com/holomush/authkit/internal/notify"
	"github.com/holomush/authkit/pkg/errutil"
)

// mockDummyHash is what the mocked hasher returns for the unknown-user
// digest computed at construction.
const mockDummyHash = "$argon2id$v=19$m=1024,t=1,p=1$ZHVtbXk$ZHVtbXk"

type mockDeps struct {
	users    *mocks.MockUserRepository
	tokens   *mocks.MockTokenLifecycle
	sessions *mocks.MockSessionStore
	hasher   *mocks.MockPasswordHasher
	notifier *mocks.MockNotifier
	metrics  *mocks.MockMetricsRecorder
	svc      *auth.Service
}

func newMockDeps(t *testing.T) *mockDeps {
	t.Helper()
	d := &mockDeps{
		users:    mocks.NewMockUserRepository(t),
		tokens:   mocks.NewMockTokenLifecycle(t),
		sessions: mocks.NewMockSessionStore(t),
		hasher:   mocks.NewMockPasswordHasher(t),
		notifier: mocks.NewMockNotifier(t),
		metrics:  mocks.NewMockMetricsRecorder(t),
	}
	d.hasher.On("Hash", mock.AnythingOfType("string")).Return(mockDummyHash, nil).Once()
	svc, err := auth.NewService(auth.ServiceConfig{
		Users:    d.users,
		Tokens:   d.tokens,
		Sessions: d.sessions,
		Hasher:   d.hasher,
		Notifier: d.notifier,
		ResetURL: "https://app.example.com/reset",
		ResetTTL: 30 * time.Minute,
		Metrics:  d.metrics,
	})
	require.NoError(t, err)
	d.svc = svc
	return d
}

func TestService_Authenticate_VerifiesDummyHashForUnknownUser(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)

	d.users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, auth.ErrNotFound)
	d.hasher.On("Verify", mockDummyHash, "some-password").Return(auth.VerifyInvalid, nil).Once()
	d.metrics.On("RecordOperation", auth.OpAuthenticate, auth.OutcomeUnauthenticated).Once()

	_, err := d.svc.Authenticate(ctx, "ghost@example.com", "some-password")
	require.ErrorIs(t, err, auth.ErrAuthentication)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
}

func TestNewService_DummyHashFailure(t *testing.T) {
	hasher := mocks.NewMockPasswordHasher(t)
	hasher.On("Hash", mock.AnythingOfType("string")).Return("", errors.New("out of memory")).Once()

	svc, err := auth.NewService(auth.ServiceConfig{
		Users:    mocks.NewMockUserRepository(t),
		Tokens:   mocks.NewMockTokenLifecycle(t),
		Sessions: mocks.NewMockSessionStore(t),
		Hasher:   hasher,
		Notifier: mocks.NewMockNotifier(t),
	})
	require.Error(t, err)
	assert.Nil(t, svc)
	errutil.AssertErrorCode(t, err, "SERVICE_INIT_FAILED")
	errutil.AssertErrorContext(t, err, "operation", "hash dummy password")
}

func TestService_Authenticate_LookupFailure(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)

	d.users.On("GetByEmail", ctx, "user@example.com").Return(nil, errors.New("pool exhausted"))
	d.metrics.On("RecordOperation", auth.OpAuthenticate, auth.OutcomeError).Once()

	_, err := d.svc.Authenticate(ctx, "user@example.com", "some-password")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrAuthentication)
	errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
}

func TestService_Authenticate_CorruptDigest(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)
	user := &auth.User{ID: ulid.Make(), Email: "user@example.com", HashedPassword: "garbage", Role: auth.RoleUser}

	d.users.On("GetByEmail", ctx, "user@example.com").Return(user, nil)
	d.hasher.On("Verify", "garbage", "some-password").Return(auth.VerifyInvalid, errors.New("invalid hash format"))
	d.metrics.On("RecordOperation", auth.OpAuthenticate, auth.OutcomeError).Once()

	_, err := d.svc.Authenticate(ctx, "user@example.com", "some-password")
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "operation", "verify password")
}

func TestService_Authenticate_RecordsRehash(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)
	user := &auth.User{ID: ulid.Make(), Email: "user@example.com", HashedPassword: "$2a$old", Role: auth.RoleUser}

	d.users.On("GetByEmail", ctx, "user@example.com").Return(user, nil)
	d.hasher.On("Verify", "$2a$old", "some-password").Return(auth.VerifyValidNeedsRehash, nil)
	d.hasher.On("Hash", "some-password").Return("$argon2id$new", nil)
	d.users.On("UpdatePassword", ctx, user.ID, "$argon2id$new").Return(nil)
	d.metrics.On("RecordRehash").Once()
	d.metrics.On("RecordOperation", auth.OpAuthenticate, auth.OutcomeSuccess).Once()

	got, err := d.svc.Authenticate(ctx, "user@example.com", "some-password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestService_RequestPasswordReset_IssuesAndNotifies(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)
	user := &auth.User{ID: ulid.Make(), Email: "user@example.com", Role: auth.RoleUser}

	d.users.On("GetByEmail", ctx, "user@example.com").Return(user, nil)
	d.tokens.On("Issue", ctx, user.ID, auth.TokenResetPassword, "user@example.com", 30*time.Minute).Return("tok123", nil)
	d.notifier.On("Send", ctx, mock.MatchedBy(func(msg notify.Message) bool {
		return msg.To == "user@example.com" &&
			msg.Link == "https://app.example.com/reset?token=tok123" &&
			strings.Contains(msg.Body, msg.Link)
	})).Return(nil)
	d.metrics.On("RecordTokenIssued", auth.TokenResetPassword).Once()
	d.metrics.On("RecordOperation", auth.OpRequestReset, auth.OutcomeSuccess).Once()

	require.NoError(t, d.svc.RequestPasswordReset(ctx, "User@Example.com"))
}

func TestService_RequestPasswordReset_UnknownEmailIssuesNothing(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)

	d.users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, auth.ErrNotFound)
	d.metrics.On("RecordOperation", auth.OpRequestReset, auth.OutcomeSuccess).Once()

	require.NoError(t, d.svc.RequestPasswordReset(ctx, "ghost@example.com"))
	d.tokens.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestService_PerformPasswordReset_ValidatesBeforeConsuming(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)
	d.metrics.On("RecordOperation", auth.OpPerformReset, auth.OutcomeInvalidInput).Once()

	_, err := d.svc.PerformPasswordReset(ctx, "tok", "abc1234567", "xyz7654321")
	require.ErrorIs(t, err, auth.ErrValidation)
	d.tokens.AssertNotCalled(t, "VerifyAndConsume", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_PerformPasswordReset_PropagatesTokenErrors(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name    string
		err     error
		outcome string
	}{
		{"not found", auth.ErrNotFound, auth.OutcomeNotFound},
		{"expired", auth.ErrTokenExpired, auth.OutcomeExpired},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := newMockDeps(t)
			d.tokens.On("VerifyAndConsume", ctx, "tok", auth.TokenResetPassword).Return(nil, tc.err)
			d.metrics.On("RecordOperation", auth.OpPerformReset, tc.outcome).Once()

			_, err := d.svc.PerformPasswordReset(ctx, "tok", "new-password-1", "new-password-1")
			assert.Same(t, tc.err, err)
		})
	}
}

func TestService_PerformPasswordReset_UpdateFailure(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)
	user := &auth.User{ID: ulid.Make(), Email: "user@example.com", Role: auth.RoleUser}

	d.tokens.On("VerifyAndConsume", ctx, "tok", auth.TokenResetPassword).Return(user, nil)
	d.hasher.On("Hash", "new-password-1").Return("$argon2id$new", nil)
	d.users.On("UpdatePassword", ctx, user.ID, "$argon2id$new").Return(errors.New("constraint violation"))
	d.metrics.On("RecordOperation", auth.OpPerformReset, auth.OutcomeError).Once()

	_, err := d.svc.PerformPasswordReset(ctx, "tok", "new-password-1", "new-password-1")
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "operation", "update password")
	d.sessions.AssertNotCalled(t, "RevokeAllForUser", mock.Anything, mock.Anything)
}

func TestService_Login_SessionFailure(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)
	user := &auth.User{ID: ulid.Make(), Email: "user@example.com", HashedPassword: "$argon2id$x", Role: auth.RoleUser}

	d.users.On("GetByEmail", ctx, "user@example.com").Return(user, nil)
	d.hasher.On("Verify", "$argon2id$x", "some-password").Return(auth.VerifyValid, nil)
	d.sessions.On("Create", ctx, user.ID, auth.RoleUser).Return(nil, errors.New("no space"))
	d.metrics.On("RecordOperation", auth.OpLogin, auth.OutcomeError).Once()

	_, grant, err := d.svc.Login(ctx, "user@example.com", "some-password")
	require.Error(t, err)
	assert.Nil(t, grant)
	errutil.AssertErrorContext(t, err, "operation", "create session")
}

func TestService_CurrentUser_VanishedUser(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)
	session := &auth.Session{ID: ulid.Make(), UserID: ulid.Make(), Role: auth.RoleUser}

	d.sessions.On("Lookup", ctx, "tok").Return(session, nil)
	d.users.On("GetByID", ctx, session.UserID).Return(nil, auth.ErrNotFound)
	d.metrics.On("RecordOperation", auth.OpCurrentUser, auth.OutcomeNotFound).Once()

	_, err := d.svc.CurrentUser(ctx, "tok")
	require.ErrorIs(t, err, auth.ErrNotFound)
	errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
}

func TestService_Logout_Propagates(t *testing.T) {
	ctx := context.Background()
	d := newMockDeps(t)
	d.sessions.On("Revoke", ctx, "tok").Return(errors.New("timeout"))
	d.metrics.On("RecordOperation", auth.OpLogout, auth.OutcomeError).Once()

	require.Error(t, d.svc.Logout(ctx, "tok"))
}
