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

// MockTokenRepository is a mock type for the TokenRepository type
type MockTokenRepository struct {
	mock.Mock
}

// Consume provides a mock function with given fields: ctx, hash, typ
func (_m *MockTokenRepository) Consume(ctx context.Context, hash string, typ auth.TokenType) (*auth.Token, error) {
	ret := _m.Called(ctx, hash, typ)

	if len(ret) == 0 {
		panic("no return value specified for Consume")
	}

	var r0 *auth.Token
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.TokenType) (*auth.Token, error)); ok {
		return rf(ctx, hash, typ)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.TokenType) *auth.Token); ok {
		r0 = rf(ctx, hash, typ)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*auth.Token)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, auth.TokenType) error); ok {
		r1 = rf(ctx, hash, typ)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CountFor provides a mock function with given fields: ctx, userID
func (_m *MockTokenRepository) CountFor(ctx context.Context, userID ulid.ULID) (int, error) {
	ret := _m.Called(ctx, userID)

	if len(ret) == 0 {
		panic("no return value specified for CountFor")
	}

	var r0 int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) (int, error)); ok {
		return rf(ctx, userID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) int); ok {
		r0 = rf(ctx, userID)
	} else {
		r0 = ret.Get(0).(int)
	}

	if rf, ok := ret.Get(1).(func(context.Context, ulid.ULID) error); ok {
		r1 = rf(ctx, userID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Create provides a mock function with given fields: ctx, token
func (_m *MockTokenRepository) Create(ctx context.Context, token *auth.Token) error {
	ret := _m.Called(ctx, token)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *auth.Token) error); ok {
		r0 = rf(ctx, token)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Delete provides a mock function with given fields: ctx, id
func (_m *MockTokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for Delete")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) error); ok {
		r0 = rf(ctx, id)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// DeleteExpired provides a mock function with given fields: ctx, before
func (_m *MockTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ret := _m.Called(ctx, before)

	if len(ret) == 0 {
		panic("no return value specified for DeleteExpired")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) (int64, error)); ok {
		return rf(ctx, before)
	}
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) int64); ok {
		r0 = rf(ctx, before)
	} else {
		r0 = ret.Get(0).(int64)
	}

	if rf, ok := ret.Get(1).(func(context.Context, time.Time) error); ok {
		r1 = rf(ctx, before)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DeleteFor provides a mock function with given fields: ctx, userID, typ
func (_m *MockTokenRepository) DeleteFor(ctx context.Context, userID ulid.ULID, typ auth.TokenType) (int64, error) {
	ret := _m.Called(ctx, userID, typ)

	if len(ret) == 0 {
		panic("no return value specified for DeleteFor")
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

// GetByHash provides a mock function with given fields: ctx, hash, typ
func (_m *MockTokenRepository) GetByHash(ctx context.Context, hash string, typ auth.TokenType) (*auth.Token, error) {
	ret := _m.Called(ctx, hash, typ)

	if len(ret) == 0 {
		panic("no return value specified for GetByHash")
	}

	var r0 *auth.Token
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.TokenType) (*auth.Token, error)); ok {
		return rf(ctx, hash, typ)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.TokenType) *auth.Token); ok {
		r0 = rf(ctx, hash, typ)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*auth.Token)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, auth.TokenType) error); ok {
		r1 = rf(ctx, hash, typ)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTokenRepository creates a new instance of MockTokenRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTokenRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTokenRepository {
	mock := &MockTokenRepository{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
