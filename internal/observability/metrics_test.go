// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/authkit/internal/auth"
	"github.com/holomush/authkit/internal/observability"
)

func TestMetrics_RecordOperation(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	m.RecordOperation(auth.OpSignup, auth.OutcomeSuccess)
	m.RecordOperation(auth.OpSignup, auth.OutcomeConflict)
	m.RecordOperation(auth.OpSignup, auth.OutcomeConflict)

	assert.InDelta(t, 1, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(auth.OpSignup, auth.OutcomeSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(auth.OpSignup, auth.OutcomeConflict)), 0)
}

func TestMetrics_RecordTokenIssuedAndRehash(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	m.RecordTokenIssued(auth.TokenResetPassword)
	m.RecordRehash()
	m.RecordRehash()

	expected := `
# HELP authkit_tokens_issued_total Single-use tokens issued by type
# TYPE authkit_tokens_issued_total counter
authkit_tokens_issued_total{type="RESET_PASSWORD"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(m.TokensIssuedTotal, strings.NewReader(expected)))
	assert.InDelta(t, 2, testutil.ToFloat64(m.RehashesTotal), 0)
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	m.RecordHTTPRequest("/v1/login", 200)
	m.RecordHTTPRequest("/v1/login", 401)

	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/v1/login", "401")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPRequestsTotal))
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	assert.Panics(t, func() { observability.NewMetrics(reg) })
}
