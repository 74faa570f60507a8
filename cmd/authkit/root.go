// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/authkit/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authkit CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "authkit",
		Short: "authkit - accounts, sessions and password resets",
		Long: `authkit manages user accounts backed by PostgreSQL: signup and login
with argon2id password hashing, server-side sessions, and single-use
password reset tokens delivered by email.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/authkit/config.yaml if present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewUserCmd(deps))
	cmd.AddCommand(NewLoginCmd(deps))
	cmd.AddCommand(NewLogoutCmd(deps))
	cmd.AddCommand(NewWhoamiCmd(deps))
	cmd.AddCommand(NewPasswordCmd(deps))
	cmd.AddCommand(NewResetCmd(deps))
	cmd.AddCommand(NewTokensCmd(deps))
	cmd.AddCommand(NewSessionsCmd(deps))
	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewConfigCmd(deps))

	return cmd
}
