// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkit/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestCode(t *testing.T) {
	assert.Equal(t, "TOKEN_EXPIRED", errutil.Code(oops.Code("TOKEN_EXPIRED").Errorf("expired")))
	assert.Equal(t, "TOKEN_EXPIRED", errutil.Code(fmt.Errorf("wrapped: %w", oops.Code("TOKEN_EXPIRED").Errorf("expired"))))
	assert.Empty(t, errutil.Code(errors.New("plain")))
	assert.Empty(t, errutil.Code(oops.Errorf("no code")))
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("RESET_REQUEST_FAILED").
		With("operation", "issue token").
		Errorf("insert failed")

	errutil.LogError(logger, "reset request failed", err)

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "reset request failed", entry["msg"])
	assert.Equal(t, "RESET_REQUEST_FAILED", entry["code"])
	assert.Equal(t, map[string]any{"operation": "issue token"}, entry["context"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("standard error"))

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "standard error", entry["error"])
	assert.NotContains(t, entry, "code")
}

func TestLogWarnContext_KeepsExtraAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogWarnContext(context.Background(), logger, "prune skipped",
		oops.Code("TOKEN_PRUNE_FAILED").Errorf("locked"), "table", "tokens")

	entry := decode(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "tokens", entry["table"])
	assert.Equal(t, "TOKEN_PRUNE_FAILED", entry["code"])
}
