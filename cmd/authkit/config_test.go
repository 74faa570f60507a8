// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkit/internal/config"
	"github.com/holomush/authkit/pkg/errutil"
)

func TestConfigSchema(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "config", "schema")

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "config", "show",
		"--notifier=smtp",
		"--smtp-host=smtp.example.com",
		"--smtp-from=noreply@example.com",
		"--smtp-password=hunter2",
		"--reset-ttl=30m",
	)

	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "ttl: 30m0s")
	assert.Contains(t, out, "host: smtp.example.com")
}

func TestConfigShow_InvalidConfig(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "config", "show", "--log-format=xml")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestConfigInit_WritesLoadableFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out := h.mustRun(t, "config", "init", "--output="+path,
		"--database-url=postgres://secret@localhost/authkit",
		"--session-ttl=2h",
		"--notify-allow=*@example.com",
	)
	assert.Contains(t, out, "Wrote "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret@localhost", "database URL is not written")

	fs := pflag.NewFlagSet("reload", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))
	cfg, err := config.Load(fs, path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"*@example.com"}, cfg.Notifier.Allow)
}

func TestConfigInit_DefaultPath(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "config", "init")

	path := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "authkit", "config.yaml")
	assert.Contains(t, out, path)
	assert.Equal(t, path, config.DefaultPath())
}

func TestConfigInit_KeepsExistingFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: text\n"), 0o600))

	_, err := h.run(t, "config", "init", "--output="+path)
	errutil.AssertErrorCode(t, err, "CONFIG_EXISTS")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log:\n  format: text\n", string(data))

	h.mustRun(t, "config", "init", "--output="+path, "--force")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session:")
}

func TestRenderConfig_LeavesEmptyPasswordAlone(t *testing.T) {
	data, err := renderConfig(&config.Config{})
	require.NoError(t, err)
	assert.NotContains(t, string(data), redacted)
}
