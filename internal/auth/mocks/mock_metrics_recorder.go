// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/holomush/authkit/internal/auth"
)

// MockMetricsRecorder is a mock type for the MetricsRecorder type
type MockMetricsRecorder struct {
	mock.Mock
}

// RecordOperation provides a mock function with given fields: operation, outcome
func (_m *MockMetricsRecorder) RecordOperation(operation string, outcome string) {
	_m.Called(operation, outcome)
}

// RecordRehash provides a mock function with given fields: 
func (_m *MockMetricsRecorder) RecordRehash() {
	_m.Called()
}

// RecordTokenIssued provides a mock function with given fields: typ
func (_m *MockMetricsRecorder) RecordTokenIssued(typ auth.TokenType) {
	_m.Called(typ)
}

// NewMockMetricsRecorder creates a new instance of MockMetricsRecorder. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockMetricsRecorder(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMetricsRecorder {
	mock := &MockMetricsRecorder{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
