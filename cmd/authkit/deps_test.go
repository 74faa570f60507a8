// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkit/internal/config"
	"github.com/holomush/authkit/internal/notify"
	"github.com/holomush/authkit/pkg/errutil"
)

func TestDeps_WithDefaults(t *testing.T) {
	var nilDeps *Deps
	d := nilDeps.withDefaults()
	assert.NotNil(t, d.BackendFactory)
	assert.NotNil(t, d.NotifierFactory)
	assert.NotNil(t, d.MigratorFactory)
	assert.NotNil(t, d.ObservabilityServerFactory)
	assert.NotNil(t, d.LogWriter)

	custom := &notify.Recorder{}
	d = (&Deps{NotifierFactory: func(*config.Config, *slog.Logger) (notify.Notifier, error) {
		return custom, nil
	}}).withDefaults()
	n, err := d.NotifierFactory(nil, nil)
	require.NoError(t, err)
	assert.Same(t, custom, n, "explicit factories are kept")
}

func TestPostgresBackend_RequiresDatabaseURL(t *testing.T) {
	_, err := postgresBackend(context.Background(), &config.Config{})
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestPostgresBackend_InvalidDatabaseURL(t *testing.T) {
	_, err := postgresBackend(context.Background(), &config.Config{DatabaseURL: "postgres://%zz"})
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}

func TestNewNotifier(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.NotifierConfig
		want    any
		wantErr string
	}{
		{
			name: "log",
			cfg:  config.NotifierConfig{Kind: config.NotifierLog},
			want: &notify.LogNotifier{},
		},
		{
			name: "smtp",
			cfg: config.NotifierConfig{Kind: config.NotifierSMTP, SMTP: config.SMTPConfig{
				Host: "smtp.example.com", Port: 587, From: "noreply@example.com",
			}},
			want: &notify.SMTPNotifier{},
		},
		{
			name: "allowlist wraps the channel",
			cfg:  config.NotifierConfig{Kind: config.NotifierLog, Allow: []string{"*@example.com"}},
			want: &notify.FilterNotifier{},
		},
		{
			name:    "smtp without host",
			cfg:     config.NotifierConfig{Kind: config.NotifierSMTP, SMTP: config.SMTPConfig{From: "noreply@example.com"}},
			wantErr: "NOTIFY_CONFIG_INVALID",
		},
		{
			name:    "bad allow pattern",
			cfg:     config.NotifierConfig{Kind: config.NotifierLog, Allow: []string{"[oops"}},
			wantErr: "NOTIFY_CONFIG_INVALID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := newNotifier(&config.Config{Notifier: tt.cfg}, slog.New(slog.DiscardHandler))
			if tt.wantErr != "" {
				errutil.AssertErrorCode(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, n)
		})
	}
}

func TestSetupLogging(t *testing.T) {
	h := newHarness(t)
	cfg := &config.Config{Log: config.LogConfig{Format: "json", Level: "warn"}}

	logger, err := setupLogging(cfg, h.logs)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, h.logs.String(), "hidden")
	assert.Contains(t, h.logs.String(), `"service":"authkit"`)

	_, err = setupLogging(&config.Config{Log: config.LogConfig{Format: "json", Level: "chatty"}}, h.logs)
	errutil.AssertErrorCode(t, err, "LOG_LEVEL_INVALID")
}
