// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authkit configuration from flags and an optional
// YAML file.
//
// Precedence, lowest first: flag defaults, the config file, flags set on
// the command line. The file is checked against the generated JSON Schema
// before it is merged, so unknown keys are rejected instead of ignored.
package config

import (
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/authkit/internal/xdg"
)

// Defaults.
const (
	DefaultLogFormat   = "json"
	DefaultLogLevel    = "info"
	DefaultResetURL    = "http://localhost:3000/reset-password"
	DefaultResetTTL    = 4 * time.Hour
	DefaultSessionTTL  = 24 * time.Hour
	DefaultNotifier    = NotifierLog
	DefaultSMTPPort    = 587
	DefaultHTTPAddr    = "127.0.0.1:8080"
	DefaultMetricsAddr = "127.0.0.1:9100"
)

// Notifier kinds.
const (
	NotifierLog  = "log"
	NotifierSMTP = "smtp"
)

// Config is the complete authkit configuration.
type Config struct {
	DatabaseURL string         `koanf:"database_url" json:"database_url,omitempty" jsonschema:"description=PostgreSQL connection URL"`
	Log         LogConfig      `koanf:"log" json:"log,omitempty"`
	Reset       ResetConfig    `koanf:"reset" json:"reset,omitempty"`
	Session     SessionConfig  `koanf:"session" json:"session,omitempty"`
	Hasher      HasherConfig   `koanf:"hasher" json:"hasher,omitempty"`
	Notifier    NotifierConfig `koanf:"notifier" json:"notifier,omitempty"`
	Server      ServerConfig   `koanf:"server" json:"server,omitempty"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// ResetConfig controls password reset links.
type ResetConfig struct {
	URL string        `koanf:"url" json:"url,omitempty" jsonschema:"description=Page the reset link opens"`
	TTL time.Duration `koanf:"ttl" json:"ttl,omitempty" jsonschema:"description=Reset token lifetime"`
}

// SessionConfig controls login sessions.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl" json:"ttl,omitempty" jsonschema:"description=Session lifetime"`
}

// HasherConfig holds argon2id cost parameters. Zero values use the
// library defaults.
type HasherConfig struct {
	Time      uint32 `koanf:"time" json:"time,omitempty" jsonschema:"minimum=0"`
	MemoryKiB uint32 `koanf:"memory_kib" json:"memory_kib,omitempty" jsonschema:"minimum=0"`
	Threads   uint8  `koanf:"threads" json:"threads,omitempty" jsonschema:"minimum=0,maximum=255"`
}

// NotifierConfig selects how reset links are delivered.
type NotifierConfig struct {
	Kind string `koanf:"kind" json:"kind,omitempty" jsonschema:"enum=log,enum=smtp"`
	// Allow restricts delivery to recipients matching one of these glob
	// patterns. Empty allows everyone.
	Allow []string   `koanf:"allow" json:"allow,omitempty"`
	SMTP  SMTPConfig `koanf:"smtp" json:"smtp,omitempty"`
}

// SMTPConfig configures the SMTP notifier.
type SMTPConfig struct {
	Host     string `koanf:"host" json:"host,omitempty"`
	Port     int    `koanf:"port" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"password,omitempty"`
	From     string `koanf:"from" json:"from,omitempty"`
}

// ServerConfig holds listen addresses for the serve command.
type ServerConfig struct {
	HTTPAddr    string `koanf:"http_addr" json:"http_addr,omitempty"`
	MetricsAddr string `koanf:"metrics_addr" json:"metrics_addr,omitempty" jsonschema:"description=Metrics and health address; empty disables"`
}

// flagKeys maps flag names to config keys. Flags not listed here are not
// configuration (e.g. --config itself).
var flagKeys = map[string]string{
	"database-url":   "database_url",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"reset-url":      "reset.url",
	"reset-ttl":      "reset.ttl",
	"session-ttl":    "session.ttl",
	"hasher-time":    "hasher.time",
	"hasher-memory":  "hasher.memory_kib",
	"hasher-threads": "hasher.threads",
	"notifier":       "notifier.kind",
	"notify-allow":   "notifier.allow",
	"smtp-host":      "notifier.smtp.host",
	"smtp-port":      "notifier.smtp.port",
	"smtp-username":  "notifier.smtp.username",
	"smtp-password":  "notifier.smtp.password",
	"smtp-from":      "notifier.smtp.from",
	"http-addr":      "server.http_addr",
	"metrics-addr":   "server.metrics_addr",
}

// RegisterFlags adds every configuration flag to fs with its default.
// The database URL defaults to $DATABASE_URL.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL (default $DATABASE_URL)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.String("reset-url", DefaultResetURL, "page password reset links point at")
	fs.Duration("reset-ttl", DefaultResetTTL, "password reset token lifetime")
	fs.Duration("session-ttl", DefaultSessionTTL, "session lifetime")
	fs.Uint32("hasher-time", 0, "argon2id iterations (0 = default)")
	fs.Uint32("hasher-memory", 0, "argon2id memory in KiB (0 = default)")
	fs.Uint8("hasher-threads", 0, "argon2id parallelism (0 = default)")
	fs.String("notifier", DefaultNotifier, "notification channel (log or smtp)")
	fs.StringSlice("notify-allow", nil, "only deliver to recipients matching these glob patterns")
	fs.String("smtp-host", "", "SMTP server host")
	fs.Int("smtp-port", DefaultSMTPPort, "SMTP server port")
	fs.String("smtp-username", "", "SMTP username")
	fs.String("smtp-password", "", "SMTP password")
	fs.String("smtp-from", "", "sender address for outgoing mail")
	fs.String("http-addr", DefaultHTTPAddr, "HTTP API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
}

// Load builds a Config from fs and, if path is non-empty, the YAML file at
// path. fs must have been prepared with RegisterFlags and parsed.
func Load(fs *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateFile(data); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
	}

	flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(flags, nil); err != nil {
		return nil, oops.Code("CONFIG_READ_FAILED").With("operation", "load flags").Wrap(err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPath returns the config file used when --config is not given:
// $XDG_CONFIG_HOME/authkit/config.yaml if it exists, otherwise "".
func DefaultPath() string {
	path := xdg.ConfigFile()
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Validate checks the settings every command depends on. The database URL
// is checked separately with RequireDatabase, since some commands don't
// need one.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Log),
		validation.Field(&c.Reset),
		validation.Field(&c.Session),
		validation.Field(&c.Notifier),
	)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}

// RequireDatabase returns an error if no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database_url").
			Errorf("database URL is required: set --database-url, DATABASE_URL or database_url in the config file")
	}
	return nil
}

// Validate implements validation.Validatable.
func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Format, validation.Required, validation.In("json", "text")),
		validation.Field(&c.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}

// Validate implements validation.Validatable.
func (c ResetConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}

// Validate implements validation.Validatable.
func (c SessionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}

// Validate implements validation.Validatable.
func (c NotifierConfig) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&c.Kind, validation.Required, validation.In(NotifierLog, NotifierSMTP)),
	}
	if c.Kind == NotifierSMTP {
		fields = append(fields, validation.Field(&c.SMTP))
	}
	return validation.ValidateStruct(&c, fields...)
}

// Validate implements validation.Validatable.
func (c SMTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.From, validation.Required),
	)
}
