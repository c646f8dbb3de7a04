// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the eda-transcribe CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/eda-transcribe/internal/httputil"
	"github.com/pdiddy/eda-transcribe/internal/logging"
	"github.com/pdiddy/eda-transcribe/internal/secrets"
	"github.com/pdiddy/eda-transcribe/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the effective configuration, populated before any subcommand runs.
	cfg = types.DefaultConfig()

	// logger is built from the log section of cfg.
	logger = slog.New(slog.DiscardHandler)
)

// rootCmd is the base command for the eda-transcribe CLI.
var rootCmd = &cobra.Command{
	Use:   "eda-transcribe",
	Short: "Resolve Emily Dickinson Archive transcriptions from IIIF manifests",
	Long: `eda-transcribe finds Emily Dickinson Archive transcriptions attached as
HTML annotations to the canvases of IIIF manifests. It groups them by
edition, merges editions split across several annotations, and can keep
the results in a local full-text archive.

Windows come from a viewer state snapshot (--state), a single manifest
(--manifest), or the workspace.windows list of the config file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := logging.NewFromConfig(c.Log, os.Stderr)
		if err != nil {
			return err
		}
		logger = l
		httputil.Logger = l

		s, err := secrets.Load(".secrets/", l)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			l.Debug("loaded secrets", "keys", s.Keys())
		}
		if c.Fetch.Token == "" {
			c.Fetch.Token = s.Get(secrets.ManifestToken)
		}

		cfg = c
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./eda-transcribe.yaml or ~/.config/eda-transcribe/eda-transcribe.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	setDefaults(types.DefaultConfig())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("eda-transcribe")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "eda-transcribe"))
		}
	}

	viper.SetEnvPrefix("EDA_TRANSCRIBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults(d types.Config) {
	viper.SetDefault("resolver.body_format", d.Resolver.BodyFormat)
	viper.SetDefault("resolver.exhibit", d.Resolver.Exhibit)
	viper.SetDefault("fetch.timeout", d.Fetch.Timeout)
	viper.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	viper.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	viper.SetDefault("fetch.requests_per_second", d.Fetch.RequestsPerSecond)
	viper.SetDefault("fetch.cache_ttl", d.Fetch.CacheTTL)
	viper.SetDefault("fetch.token", "")
	viper.SetDefault("archive.data_dir", d.Archive.DataDir)
	viper.SetDefault("archive.max_results", d.Archive.MaxResults)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
}

// loadConfig reads the effective configuration from viper.
func loadConfig() (types.Config, error) {
	c := types.Config{
		Resolver: types.ResolverConfig{
			BodyFormat: viper.GetString("resolver.body_format"),
			Exhibit:    viper.GetString("resolver.exhibit"),
		},
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fetch.timeout"),
				UserAgent: viper.GetString("fetch.user_agent"),
			},
			MaxRetries:        viper.GetInt("fetch.max_retries"),
			RequestsPerSecond: viper.GetFloat64("fetch.requests_per_second"),
			CacheTTL:          viper.GetDuration("fetch.cache_ttl"),
			Token:             viper.GetString("fetch.token"),
		},
		Archive: types.ArchiveConfig{
			DataDir:    viper.GetString("archive.data_dir"),
			MaxResults: viper.GetInt("archive.max_results"),
		},
		Log: types.LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}
	if err := viper.UnmarshalKey("workspace.windows", &c.Workspace.Windows); err != nil {
		return c, fmt.Errorf("reading workspace.windows: %w", err)
	}
	return c, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
