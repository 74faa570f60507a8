// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/authkit/internal/auth"
)

// MockSessionStore is a mock type for the SessionStore type
type MockSessionStore struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, userID, role
func (_m *MockSessionStore) Create(ctx context.Context, userID ulid.ULID, role auth.Role) (*auth.SessionGrant, error) {
	ret := _m.Called(ctx, userID, role)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	var r0 *auth.SessionGrant
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, auth.Role) (*auth.SessionGrant, error)); ok {
		return rf(ctx, userID, role)
	}
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, auth.Role) *auth.SessionGrant); ok {
		r0 = rf(ctx, userID, role)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*auth.SessionGrant)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, ulid.ULID, auth.Role) error); ok {
		r1 = rf(ctx, userID, role)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Lookup provides a mock function with given fields: ctx, token
func (_m *MockSessionStore) Lookup(ctx context.Context, token string) (*auth.Session, error) {
	ret := _m.Called(ctx, token)

	if len(ret) == 0 {
		panic("no return value specified for Lookup")
	}

	var r0 *auth.Session
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*auth.Session, error)); ok {
		return rf(ctx, token)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *auth.Session); ok {
		r0 = rf(ctx, token)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*auth.Session)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, token)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Revoke provides a mock function with given fields: ctx, token
func (_m *MockSessionStore) Revoke(ctx context.Context, token string) error {
	ret := _m.Called(ctx, token)

	if len(ret) == 0 {
		panic("no return value specified for Revoke")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, token)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// RevokeAllForUser provides a mock function with given fields: ctx, userID
func (_m *MockSessionStore) RevokeAllForUser(ctx context.Context, userID ulid.ULID) error {
	ret := _m.Called(ctx, userID)

	if len(ret) == 0 {
		panic("no return value specified for RevokeAllForUser")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) error); ok {
		r0 = rf(ctx, userID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockSessionStore creates a new instance of MockSessionStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockSessionStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionStore {
	mock := &MockSessionStore{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
