// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authkit/internal/auth"
	"github.com/holomush/authkit/internal/auth/postgres"
	"github.com/holomush/authkit/internal/config"
	"github.com/holomush/authkit/internal/logging"
	"github.com/holomush/authkit/internal/notify"
	"github.com/holomush/authkit/internal/observability"
	"github.com/holomush/authkit/internal/store"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// BackendFactory opens the repositories behind the service.
	// Default: a pgx pool from store.Connect with the postgres repositories.
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// NotifierFactory builds the channel reset links are sent through.
	// Default: newNotifier
	NotifierFactory func(cfg *config.Config, logger *slog.Logger) (notify.Notifier, error)

	// MigratorFactory opens a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// LogWriter receives log output. Default: os.Stderr
	LogWriter io.Writer
}

// Backend is the storage a Service runs on.
type Backend struct {
	Users    auth.UserRepository
	Tokens   auth.TokenRepository
	Sessions auth.SessionRepository
	// Ping reports whether the storage is reachable. Nil means always.
	Ping func(ctx context.Context) error
	// Close releases the storage. Nil means nothing to release.
	Close func()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *Deps) withDefaults() *Deps {
	out := &Deps{}
	if d != nil {
		*out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = postgresBackend
	}
	if out.NotifierFactory == nil {
		out.NotifierFactory = newNotifier
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, observability.WithLogger(logger))
		}
	}
	if out.LogWriter == nil {
		out.LogWriter = os.Stderr
	}
	return out
}

func postgresBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	pool, err := store.Connect(ctx, cfg.DatabaseURL, store.DefaultConnectOptions)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return &Backend{
		Users:    postgres.NewUserRepository(pool),
		Tokens:   postgres.NewTokenRepository(pool),
		Sessions: postgres.NewSessionRepository(pool),
		Ping:     pool.Ping,
		Close:    pool.Close,
	}, nil
}

// newNotifier builds the configured notifier, wrapped in the recipient
// allowlist when one is set.
func newNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, error) {
	var n notify.Notifier
	switch cfg.Notifier.Kind {
	case config.NotifierSMTP:
		smtpNotifier, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Notifier.SMTP.Host,
			Port:     cfg.Notifier.SMTP.Port,
			Username: cfg.Notifier.SMTP.Username,
			Password: cfg.Notifier.SMTP.Password,
			From:     cfg.Notifier.SMTP.From,
		})
		if err != nil {
			return nil, err
		}
		n = smtpNotifier
	default:
		n = notify.NewLogNotifier(logger)
	}

	if len(cfg.Notifier.Allow) == 0 {
		return n, nil
	}
	return notify.NewFilterNotifier(n, cfg.Notifier.Allow, logger)
}

// loadConfig reads the configuration for cmd from its flags and the config
// file named by --config, or the default file when --config is not set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(cmd.Flags(), path)
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup("authkit", version, cfg.Log.Format, level, w)
	slog.SetDefault(logger)
	return logger, nil
}

// app is a fully wired service and the resources behind it.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  *Backend
	issuer   *auth.TokenIssuer
	sessions *auth.SessionManager
	svc      *auth.Service
}

// appOptions tweak newApp for a particular command.
type appOptions struct {
	metrics auth.MetricsRecorder
}

// newApp loads configuration, sets up logging and wires the service.
// The caller must call close.
func newApp(cmd *cobra.Command, deps *Deps, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := setupLogging(cfg, deps.LogWriter)
	if err != nil {
		return nil, err
	}
	return openApp(cmd.Context(), deps, cfg, logger, opts)
}

// openApp opens the backend for cfg and wires the service on it.
func openApp(ctx context.Context, deps *Deps, cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, backend: backend}

	if err := a.wire(deps, opts); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(deps *Deps, opts appOptions) error {
	var err error
	a.issuer, err = auth.NewTokenIssuer(a.backend.Tokens, a.backend.Users)
	if err != nil {
		return err
	}
	a.sessions, err = auth.NewSessionManager(a.backend.Sessions,
		auth.WithSessionTTL(a.cfg.Session.TTL),
		auth.WithSessionLogger(a.logger))
	if err != nil {
		return err
	}

	notifier, err := deps.NotifierFactory(a.cfg, a.logger)
	if err != nil {
		return err
	}

	a.svc, err = auth.NewService(auth.ServiceConfig{
		Users:    a.backend.Users,
		Tokens:   a.issuer,
		Sessions: a.sessions,
		Hasher: auth.NewArgon2idHasherWithParams(auth.HasherParams{
			Time:    a.cfg.Hasher.Time,
			Memory:  a.cfg.Hasher.MemoryKiB,
			Threads: a.cfg.Hasher.Threads,
		}),
		Notifier: notifier,
		ResetURL: a.cfg.Reset.URL,
		ResetTTL: a.cfg.Reset.TTL,
		Logger:   a.logger,
		Metrics:  opts.metrics,
	})
	return err
}

// ready reports whether the backend answers a ping.
func (a *app) ready(ctx context.Context) bool {
	if a.backend.Ping == nil {
		return true
	}
	return a.backend.Ping(ctx) == nil
}

func (a *app) close() {
	if a.backend != nil && a.backend.Close != nil {
		a.backend.Close()
	}
}

