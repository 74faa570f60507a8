// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/authkit/internal/config"
	"github.com/holomush/authkit/internal/xdg"
)

const redacted = "********"

// NewConfigCmd creates the config command.
func NewConfigCmd(_ *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long:  `Print the configuration after merging defaults, the config file and flags. Secrets are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := renderConfig(cfg)
			if err != nil {
				return err
			}
			cmd.Print(string(data))
			return nil
		},
	})

	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current settings",
		Long: `Write the effective configuration to a YAML file, by default
XDG_CONFIG_HOME/authkit/config.yaml. Existing files are kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = xdg.ConfigFile()
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := writeConfig(path, cfg, force); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "output", "", "file to write (default: XDG_CONFIG_HOME/authkit/config.yaml)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

// renderConfig marshals cfg as YAML with secrets masked.
func renderConfig(cfg *config.Config) ([]byte, error) {
	masked := *cfg
	if masked.Notifier.SMTP.Password != "" {
		masked.Notifier.SMTP.Password = redacted
	}
	data, err := yaml.Marshal(toFileConfig(&masked))
	if err != nil {
		return nil, oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	return data, nil
}

// writeConfig writes cfg to path without the database URL, which usually
// carries credentials and belongs in DATABASE_URL.
func writeConfig(path string, cfg *config.Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return oops.Code("CONFIG_EXISTS").With("path", path).Errorf("%s already exists; use --force to overwrite", path)
	}
	out := *cfg
	out.DatabaseURL = ""
	data, err := yaml.Marshal(toFileConfig(&out))
	if err != nil {
		return oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// fileConfig mirrors config.Config with YAML tags and durations as strings,
// so the output round-trips through config.Load.
type fileConfig struct {
	DatabaseURL string `yaml:"database_url,omitempty"`
	Log         struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
	} `yaml:"log"`
	Reset struct {
		URL string `yaml:"url"`
		TTL string `yaml:"ttl"`
	} `yaml:"reset"`
	Session struct {
		TTL string `yaml:"ttl"`
	} `yaml:"session"`
	Hasher struct {
		Time      uint32 `yaml:"time,omitempty"`
		MemoryKiB uint32 `yaml:"memory_kib,omitempty"`
		Threads   uint8  `yaml:"threads,omitempty"`
	} `yaml:"hasher,omitempty"`
	Notifier struct {
		Kind  string   `yaml:"kind"`
		Allow []string `yaml:"allow,omitempty"`
		SMTP  struct {
			Host     string `yaml:"host,omitempty"`
			Port     int    `yaml:"port,omitempty"`
			Username string `yaml:"username,omitempty"`
			Password string `yaml:"password,omitempty"`
			From     string `yaml:"from,omitempty"`
		} `yaml:"smtp,omitempty"`
	} `yaml:"notifier"`
	Server struct {
		HTTPAddr    string `yaml:"http_addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`
}

func toFileConfig(cfg *config.Config) *fileConfig {
	var f fileConfig
	f.DatabaseURL = cfg.DatabaseURL
	f.Log.Format = cfg.Log.Format
	f.Log.Level = cfg.Log.Level
	f.Reset.URL = cfg.Reset.URL
	f.Reset.TTL = cfg.Reset.TTL.String()
	f.Session.TTL = cfg.Session.TTL.String()
	f.Hasher.Time = cfg.Hasher.Time
	f.Hasher.MemoryKiB = cfg.Hasher.MemoryKiB
	f.Hasher.Threads = cfg.Hasher.Threads
	f.Notifier.Kind = cfg.Notifier.Kind
	f.Notifier.Allow = cfg.Notifier.Allow
	f.Notifier.SMTP.Host = cfg.Notifier.SMTP.Host
	f.Notifier.SMTP.Port = cfg.Notifier.SMTP.Port
	f.Notifier.SMTP.Username = cfg.Notifier.SMTP.Username
	f.Notifier.SMTP.Password = cfg.Notifier.SMTP.Password
	f.Notifier.SMTP.From = cfg.Notifier.SMTP.From
	f.Server.HTTPAddr = cfg.Server.HTTPAddr
	f.Server.MetricsAddr = cfg.Server.MetricsAddr
	return &f
}
