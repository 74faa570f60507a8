// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/holomush/authkit/internal/auth"
	"github.com/holomush/authkit/internal/httpapi"
	authtls "github.com/holomush/authkit/internal/tls"
	"github.com/holomush/authkit/internal/xdg"
	"github.com/holomush/authkit/pkg/errutil"
)

// Default values for serve command flags.
const (
	defaultPruneInterval   = time.Hour
	defaultShutdownTimeout = 10 * time.Second
)

// serveConfig holds configuration for the serve command.
type serveConfig struct {
	secureCookies   bool
	tlsCert         string
	tlsKey          string
	devTLS          bool
	pruneInterval   time.Duration
	shutdownTimeout time.Duration
}

// NewServeCmd creates the serve command.
func NewServeCmd(deps *Deps) *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the JSON account API (signup, login, logout, current user and the
password endpoints), plus Prometheus metrics and health probes on the
metrics address. Expired tokens and sessions are pruned periodically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, deps, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.secureCookies, "secure-cookies", false, "mark the session cookie Secure (serve behind HTTPS)")
	cmd.Flags().StringVar(&cfg.tlsCert, "tls-cert", "", "serve HTTPS with this certificate file")
	cmd.Flags().StringVar(&cfg.tlsKey, "tls-key", "", "private key for --tls-cert")
	cmd.Flags().BoolVar(&cfg.devTLS, "dev-tls", false, "serve HTTPS with a generated development certificate")
	cmd.Flags().DurationVar(&cfg.pruneInterval, "prune-interval", defaultPruneInterval, "how often to delete expired tokens and sessions (0 = never)")
	cmd.Flags().DurationVar(&cfg.shutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "grace period for in-flight requests on shutdown")

	return cmd
}

func runServe(cmd *cobra.Command, deps *Deps, sc *serveConfig) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	certFile, keyFile, err := sc.certificates(cfg.Server.HTTPAddr)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg, deps.LogWriter)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	var a *app
	var obsServer ObservabilityServer
	var metrics auth.MetricsRecorder
	if cfg.Server.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Server.MetricsAddr, func(probeCtx context.Context) bool {
			if a == nil {
				return false
			}
			return a.ready(probeCtx)
		}, logger)
		metrics = obsServer.Metrics()
	}

	a, err = openApp(ctx, deps, cfg, logger, appOptions{metrics: metrics})
	if err != nil {
		return err
	}
	defer a.close()

	apiOpts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithSecureCookies(sc.secureCookies || certFile != ""),
	}
	if obsServer != nil {
		apiOpts = append(apiOpts, httpapi.WithRequestRecorder(obsServer.Metrics()))
	}
	api := httpapi.New(a.svc, apiOpts...)

	listener, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.HTTPAddr).Wrap(err)
	}
	srv := api.NewServer(cfg.Server.HTTPAddr)

	apiErrCh := make(chan error, 1)
	go func() {
		defer close(apiErrCh)
		var serveErr error
		if certFile != "" {
			serveErr = srv.ServeTLS(listener, certFile, keyFile)
		} else {
			serveErr = srv.Serve(listener)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrCh <- serveErr
		}
	}()
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	if obsServer != nil {
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), sc.shutdownTimeout)
			defer shutdownCancel()
			if stopErr := srv.Shutdown(shutdownCtx); stopErr != nil {
				slog.Warn("failed to stop API server during cleanup", "error", stopErr)
			}
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Server.MetricsAddr).Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		cmd.Printf("Metrics and health on %s\n", obsServer.Addr())
	}

	if sc.pruneInterval > 0 {
		go runPruner(ctx, a, sc.pruneInterval)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Printf("Listening on %s\n", listener.Addr())
	slog.Info("authkit API ready",
		"http_addr", listener.Addr().String(),
		"metrics_addr", cfg.Server.MetricsAddr,
		"tls", certFile != "",
		"notifier", cfg.Notifier.Kind)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), sc.shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping API server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// certificates returns the certificate and key to serve HTTPS with, or
// empty paths for plain HTTP.
func (sc *serveConfig) certificates(httpAddr string) (certFile, keyFile string, err error) {
	switch {
	case sc.devTLS && sc.tlsCert != "":
		return "", "", oops.Code("TLS_CONFIG_INVALID").Errorf("--dev-tls and --tls-cert are mutually exclusive")
	case sc.devTLS:
		return authtls.EnsureServerCert(filepath.Join(xdg.ConfigDir(), "certs"), listenHosts(httpAddr))
	case (sc.tlsCert == "") != (sc.tlsKey == ""):
		return "", "", oops.Code("TLS_CONFIG_INVALID").Errorf("--tls-cert and --tls-key must be given together")
	default:
		return sc.tlsCert, sc.tlsKey, nil
	}
}

// listenHosts returns the host of addr for the development certificate,
// or nothing when addr listens on every interface.
func listenHosts(addr string) []string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		return nil
	}
	return []string{host}
}

// runPruner deletes expired tokens and sessions every interval until ctx
// is done.
func runPruner(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOnce(ctx, a)
		}
	}
}

func pruneOnce(ctx context.Context, a *app) {
	tokens, err := a.issuer.Prune(ctx)
	if err != nil {
		errutil.LogWarnContext(ctx, a.logger, "prune expired tokens failed", err)
	}
	sessions, err := a.sessions.Prune(ctx)
	if err != nil {
		errutil.LogWarnContext(ctx, a.logger, "prune expired sessions failed", err)
	}
	if tokens > 0 || sessions > 0 {
		a.logger.InfoContext(ctx, "pruned expired credentials",
			"tokens", tokens,
			"sessions", sessions)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
