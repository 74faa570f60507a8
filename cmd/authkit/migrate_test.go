// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkit/pkg/errutil"
)

type fakeMigrator struct {
	version uint
	dirty   bool
	pending []uint
	upErr   error
	ups     int
	downs   int
	forced  []int
	closed  bool
}

func (m *fakeMigrator) Up() error {
	m.ups++
	if m.upErr != nil {
		return m.upErr
	}
	if len(m.pending) > 0 {
		m.version = m.pending[len(m.pending)-1]
		m.pending = nil
	}
	return nil
}

func (m *fakeMigrator) Down() error {
	m.downs++
	m.version = 0
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *fakeMigrator) Force(v int) error {
	m.forced = append(m.forced, v)
	m.version = uint(v) //nolint:gosec // parseForceVersion rejects negatives
	m.dirty = false
	return nil
}

func (m *fakeMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

const testDSN = "--database-url=postgres://test@localhost/authkit"

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "surrounding whitespace is trimmed", input: "  42 ", wantVersion: 42},
		{name: "non-numeric", input: "abc", wantErr: true},
		{name: "trailing garbage", input: "3abc", wantErr: true},
		{name: "float", input: "1.5", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "migrate", "up")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Zero(t, h.migrator.ups)
}

func TestMigrate_Up(t *testing.T) {
	h := newHarness(t)
	h.migrator.pending = []uint{1, 2}

	out := h.mustRun(t, "migrate", "up", testDSN)
	assert.Contains(t, out, "Applying 2 migration(s)")
	assert.Contains(t, out, "Migrations completed successfully")
	assert.Equal(t, 1, h.migrator.ups)
	assert.True(t, h.migrator.closed)

	out = h.mustRun(t, "migrate", "up", testDSN)
	assert.Contains(t, out, "Schema is up to date")
	assert.Equal(t, 1, h.migrator.ups, "nothing pending, nothing run")
}

func TestMigrate_UpFailure(t *testing.T) {
	h := newHarness(t)
	h.migrator.pending = []uint{1}
	h.migrator.upErr = oops.Code("MIGRATION_UP_FAILED").Wrap(errors.New("syntax error"))

	_, err := h.run(t, "migrate", "up", testDSN)
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
	assert.True(t, h.migrator.closed, "migrator is closed on failure")
}

func TestMigrate_Down(t *testing.T) {
	h := newHarness(t)
	h.migrator.version = 2

	out := h.mustRun(t, "migrate", "down", testDSN)
	assert.Contains(t, out, "rolled back")
	assert.Equal(t, 1, h.migrator.downs)
}

func TestMigrate_Version(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "migrate", "version", testDSN)
	assert.Contains(t, out, "No migrations applied")

	h.migrator.version = 1
	h.migrator.dirty = true
	h.migrator.pending = []uint{2}
	out = h.mustRun(t, "migrate", "version", testDSN)
	assert.Contains(t, out, "Version 1 (000001_create_users), dirty")
	assert.Contains(t, out, "1 pending migration(s)")
}

func TestMigrate_Force(t *testing.T) {
	h := newHarness(t)
	h.migrator.dirty = true

	out := h.mustRun(t, "migrate", "force", "2", testDSN)
	assert.Contains(t, out, "Schema version forced to 2")
	assert.Equal(t, []int{2}, h.migrator.forced)

	_, err := h.run(t, "migrate", "force", "latest", testDSN)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}
