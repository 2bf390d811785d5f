// Package commands wires the packseal CLI: configuration, logging, metrics,
// audit, and the seal/unseal operations over the cipher core.
package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/packseal/packseal/internal/audit"
	"github.com/packseal/packseal/internal/config"
	"github.com/packseal/packseal/internal/metrics"
	"github.com/packseal/packseal/internal/provider"
)

// app carries the shared state built once in the root PersistentPreRunE.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	provider provider.Provider
	metrics  *metrics.Metrics
	audit    audit.Logger
	password string
}

// NewRootCommand creates the root command with common configuration.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:     "packseal [flags] command [flags]",
		Short:   "Password-based package sealing",
		Long:    "Seals text and binary streams with a password-derived AES-256-CBC key.\nPackages sealed here unseal on any runtime speaking the same protocol.",
		Version: version,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", os.Getenv("PACKSEAL_CONFIG"), "Path to the YAML configuration file")
	root.PersistentFlags().StringP("provider", "p", "", "Crypto provider (native or webcrypto)")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Int("chunk-size", 0, "Stream chunk size in bytes")

	root.AddCommand(
		NewSaltCommand(a),
		NewFingerprintCommand(a),
		NewEncryptCommand(a),
		NewDecryptCommand(a),
		NewListCommand(a),
	)

	return root
}

// init loads configuration, applies flag overrides, and builds the shared
// dependencies.
func (a *app) init(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		cfg.Provider = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetInt("chunk-size"); v > 0 {
		cfg.ChunkSize = v
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	prov, err := provider.Get(cfg.Provider)
	if err != nil {
		return err
	}

	password, err := cfg.ResolvePassword()
	if err != nil {
		return err
	}

	var auditWriter audit.EventWriter
	if cfg.Audit.Enabled && cfg.Audit.File != "" {
		f, err := os.OpenFile(cfg.Audit.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open audit file: %w", err)
		}
		auditWriter = audit.NewJSONWriter(f)
	}

	a.cfg = cfg
	a.logger = logger
	a.provider = prov
	a.password = password
	a.metrics = metrics.NewMetrics()
	a.audit = audit.NewLogger(cfg.Audit.MaxEvents, auditWriter)

	if cfg.Metrics.Enabled {
		a.metrics.StartSystemMetricsCollector(5 * time.Second)
		// Long batch runs expose progress counters while in flight.
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, metrics.Handler()); err != nil {
				logger.WithError(err).Warn("Metrics listener stopped")
			}
		}()
	}

	return nil
}

// requirePassword fails commands that cannot run without the caller secret.
func (a *app) requirePassword() error {
	if a.password == "" {
		return fmt.Errorf("no password configured (set PACKSEAL_PASSWORD, password, or password_file)")
	}
	return nil
}

// Execute runs the CLI.
func Execute(version string) {
	root := NewRootCommand(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
