// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/authkit/internal/auth"
)

// MockTokenLifecycle is a mock type for the TokenLifecycle type
type MockTokenLifecycle struct {
	mock.Mock
}

// Issue provides a mock function with given fields: ctx, userID, typ, sentTo, ttl
func (_m *MockTokenLifecycle) Issue(ctx context.Context, userID ulid.ULID, typ auth.TokenType, sentTo string, ttl time.Duration) (string, error) {
	ret := _m.Called(ctx, userID, typ, sentTo, ttl)

	if len(ret) == 0 {
		panic("no return value specified for Issue")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, auth.TokenType, string, time.Duration) (string, error)); ok {
		return rf(ctx, userID, typ, sentTo, ttl)
	}
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, auth.TokenType, string, time.Duration) string); ok {
		r0 = rf(ctx, userID, typ, sentTo, ttl)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, ulid.ULID, auth.TokenType, string, time.Duration) error); ok {
		r1 = rf(ctx, userID, typ, sentTo, ttl)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Revoke provides a mock function with given fields: ctx, userID, typ
func (_m *MockTokenLifecycle) Revoke(ctx context.Context, userID ulid.ULID, typ auth.TokenType) (int64, error) {
	ret := _m.Called(ctx, userID, typ)

	if len(ret) == 0 {
		panic("no return value specified for Revoke")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, auth.TokenType) (int64, error)); ok {
		return rf(ctx, userID, typ)
	}
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, auth.TokenType) int64); ok {
		r0 = rf(ctx, userID, typ)
	} else {
		r0 = ret.Get(0).(int64)
	}

	if rf, ok := ret.Get(1).(func(context.Context, ulid.ULID, auth.TokenType) error); ok {
		r1 = rf(ctx, userID, typ)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// VerifyAndConsume provides a mock function with given fields: ctx, plaintext, typ
func (_m *MockTokenLifecycle) VerifyAndConsume(ctx context.Context, plaintext string, typ auth.TokenType) (*auth.User, error) {
	ret := _m.Called(ctx, plaintext, typ)

	if len(ret) == 0 {
		panic("no return value specified for VerifyAndConsume")
	}

	var r0 *auth.User
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.TokenType) (*auth.User, error)); ok {
		return rf(ctx, plaintext, typ)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.TokenType) *auth.User); ok {
		r0 = rf(ctx, plaintext, typ)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*auth.User)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, auth.TokenType) error); ok {
		r1 = rf(ctx, plaintext, typ)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTokenLifecycle creates a new instance of MockTokenLifecycle. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTokenLifecycle(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTokenLifecycle {
	mock := &MockTokenLifecycle{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
