// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/authkit/internal/auth"
)

// Metrics holds the authkit Prometheus collectors.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	TokensIssuedTotal *prometheus.CounterVec
	RehashesTotal     prometheus.Counter
	HTTPRequestsTotal *prometheus.CounterVec
}

var _ auth.MetricsRecorder = (*Metrics)(nil)

// NewMetrics creates the authkit metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authkit_operations_total",
				Help: "Authentication operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authkit_tokens_issued_total",
				Help: "Single-use tokens issued by type",
			},
			[]string{"type"},
		),
		RehashesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authkit_password_rehashes_total",
				Help: "Stored password hashes upgraded to current parameters on login",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authkit_http_requests_total",
				Help: "HTTP API requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
	reg.MustRegister(m.OperationsTotal, m.TokensIssuedTotal, m.RehashesTotal, m.HTTPRequestsTotal)
	return m
}

// RecordOperation implements auth.MetricsRecorder.
func (m *Metrics) RecordOperation(operation, outcome string) {
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordTokenIssued implements auth.MetricsRecorder.
func (m *Metrics) RecordTokenIssued(typ auth.TokenType) {
	m.TokensIssuedTotal.WithLabelValues(string(typ)).Inc()
}

// RecordRehash implements auth.MetricsRecorder.
func (m *Metrics) RecordRehash() {
	m.RehashesTotal.Inc()
}

// RecordHTTPRequest counts one HTTP API response.
func (m *Metrics) RecordHTTPRequest(route string, code int) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
