// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/holomush/authkit/internal/auth"
)

// MockPasswordHasher is a mock type for the PasswordHasher type
type MockPasswordHasher struct {
	mock.Mock
}

// Hash provides a mock function with given fields: password
func (_m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := _m.Called(password)

	if len(ret) == 0 {
		panic("no return value specified for Hash")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(string) (string, error)); ok {
		return rf(password)
	}
	if rf, ok := ret.Get(0).(func(string) string); ok {
		r0 = rf(password)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(string) error); ok {
		r1 = rf(password)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Verify provides a mock function with given fields: encoded, password
func (_m *MockPasswordHasher) Verify(encoded string, password string) (auth.VerifyResult, error) {
	ret := _m.Called(encoded, password)

	if len(ret) == 0 {
		panic("no return value specified for Verify")
	}

	var r0 auth.VerifyResult
	var r1 error
	if rf, ok := ret.Get(0).(func(string, string) (auth.VerifyResult, error)); ok {
		return rf(encoded, password)
	}
	if rf, ok := ret.Get(0).(func(string, string) auth.VerifyResult); ok {
		r0 = rf(encoded, password)
	} else {
		r0 = ret.Get(0).(auth.VerifyResult)
	}

	if rf, ok := ret.Get(1).(func(string, string) error); ok {
		r1 = rf(encoded, password)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockPasswordHasher creates a new instance of MockPasswordHasher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPasswordHasher {
	mock := &MockPasswordHasher{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
