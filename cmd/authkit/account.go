// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authkit/internal/auth"
)

// withApp wires an app for cmd, runs fn and releases the app.
func withApp(cmd *cobra.Command, deps *Deps, fn func(*app) error) error {
	a, err := newApp(cmd, deps, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

// NewUserCmd creates the user command.
func NewUserCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var email, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long: `Create a user account without opening a session. The email is lowercased
and trimmed; the password must be 10 to 100 characters after trimming.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(a *app) error {
				user, err := a.svc.CreateUser(cmd.Context(), email, password, auth.Role(role))
				if err != nil {
					return err
				}
				cmd.Printf("Created user %s <%s> with role %s\n", user.ID, user.Email, user.Role)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "email address")
	create.Flags().StringVar(&password, "password", "", "password")
	create.Flags().StringVar(&role, "role", string(auth.RoleUser), "role (user or admin)")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")
	cmd.AddCommand(create)

	return cmd
}

// NewLoginCmd creates the login command.
func NewLoginCmd(deps *Deps) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and print a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(a *app) error {
				user, grant, err := a.svc.Login(cmd.Context(), email, password)
				if err != nil {
					return err
				}
				cmd.Printf("Logged in as %s (%s)\n", user.Email, user.Role)
				cmd.Printf("Session token: %s\n", grant.Token)
				cmd.Printf("Expires: %s\n", grant.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd(deps *Deps) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(a *app) error {
				if err := a.svc.Logout(cmd.Context(), token); err != nil {
					return err
				}
				cmd.Println("Session revoked")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "session token")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd(deps *Deps) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the user behind a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(a *app) error {
				user, err := a.svc.CurrentUser(cmd.Context(), token)
				if err != nil {
					return err
				}
				cmd.Printf("%s <%s> role=%s created=%s\n",
					user.ID, user.Email, user.Role, user.CreatedAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "session token")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

// NewPasswordCmd creates the password command.
func NewPasswordCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change passwords",
	}

	var userID, current, newPassword string
	change := &cobra.Command{
		Use:   "change",
		Short: "Change a user's password after checking the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseUserID(userID)
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(a *app) error {
				if err := a.svc.ChangePassword(cmd.Context(), id, current, newPassword); err != nil {
					return err
				}
				cmd.Println("Password changed")
				return nil
			})
		},
	}
	change.Flags().StringVar(&userID, "user-id", "", "user ID (ULID)")
	change.Flags().StringVar(&current, "current", "", "current password")
	change.Flags().StringVar(&newPassword, "new", "", "new password")
	_ = change.MarkFlagRequired("user-id")
	_ = change.MarkFlagRequired("current")
	_ = change.MarkFlagRequired("new")
	cmd.AddCommand(change)

	return cmd
}

// NewResetCmd creates the reset command.
func NewResetCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Request and perform password resets",
	}

	var email string
	request := &cobra.Command{
		Use:   "request",
		Short: "Send a password reset link",
		Long: `Issue a reset token for the account and send the link through the
configured notifier. Unknown emails are accepted silently.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(a *app) error {
				if err := a.svc.RequestPasswordReset(cmd.Context(), email); err != nil {
					return err
				}
				cmd.Println("If the account exists, a reset link has been sent")
				return nil
			})
		},
	}
	request.Flags().StringVar(&email, "email", "", "email address")
	_ = request.MarkFlagRequired("email")
	cmd.AddCommand(request)

	var token, password, confirm string
	perform := &cobra.Command{
		Use:   "perform",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(a *app) error {
				user, err := a.svc.PerformPasswordReset(cmd.Context(), token, password, confirm)
				if err != nil {
					return err
				}
				cmd.Printf("Password reset for %s; existing sessions were signed out\n", user.Email)
				return nil
			})
		},
	}
	perform.Flags().StringVar(&token, "token", "", "reset token from the link")
	perform.Flags().StringVar(&password, "password", "", "new password")
	perform.Flags().StringVar(&confirm, "confirm", "", "new password again")
	_ = perform.MarkFlagRequired("token")
	_ = perform.MarkFlagRequired("password")
	_ = perform.MarkFlagRequired("confirm")
	cmd.AddCommand(perform)

	return cmd
}

// NewTokensCmd creates the tokens command.
func NewTokensCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain single-use tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(a *app) error {
				n, err := a.issuer.Prune(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("Deleted %d expired token(s)\n", n)
				return nil
			})
		},
	})

	var userID string
	count := &cobra.Command{
		Use:   "count",
		Short: "Count the tokens held by a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseUserID(userID)
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(a *app) error {
				n, err := a.issuer.Count(cmd.Context(), id)
				if err != nil {
					return err
				}
				cmd.Printf("%d\n", n)
				return nil
			})
		},
	}
	count.Flags().StringVar(&userID, "user-id", "", "user ID (ULID)")
	_ = count.MarkFlagRequired("user-id")
	cmd.AddCommand(count)

	return cmd
}

// NewSessionsCmd creates the sessions command.
func NewSessionsCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain login sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(a *app) error {
				n, err := a.sessions.Prune(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("Deleted %d expired session(s)\n", n)
				return nil
			})
		},
	})

	var userID string
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Sign a user out everywhere",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseUserID(userID)
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(a *app) error {
				if err := a.sessions.RevokeAllForUser(cmd.Context(), id); err != nil {
					return err
				}
				cmd.Printf("Revoked all sessions of %s\n", id)
				return nil
			})
		},
	}
	revoke.Flags().StringVar(&userID, "user-id", "", "user ID (ULID)")
	_ = revoke.MarkFlagRequired("user-id")
	cmd.AddCommand(revoke)

	return cmd
}

func parseUserID(raw string) (ulid.ULID, error) {
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code("INVALID_USER_ID").With("user_id", raw).Wrap(err)
	}
	return id, nil
}
