// Package config loads the CLI configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/packseal/packseal/internal/provider"
	"github.com/packseal/packseal/internal/stream"
)

// Config holds the complete application configuration.
type Config struct {
	LogLevel     string        `yaml:"log_level"`
	Provider     string        `yaml:"provider"`
	Password     string        `yaml:"password"`
	PasswordFile string        `yaml:"password_file"`
	ChunkSize    int           `yaml:"chunk_size"`
	Metrics      MetricsConfig `yaml:"metrics"`
	Audit        AuditConfig   `yaml:"audit"`
	Remote       RemoteConfig  `yaml:"remote"`
}

// AuditConfig holds audit logging configuration.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	File      string `yaml:"file"`       // JSON lines destination; empty keeps events in memory
	MaxEvents int    `yaml:"max_events"` // Max events to keep in memory
}

// MetricsConfig holds the optional prometheus endpoint settings.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// RemoteConfig holds the S3-compatible package store settings.
type RemoteConfig struct {
	Endpoint     string `yaml:"endpoint"` // Leave empty for AWS default, or set for any S3-compatible endpoint
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// LoadConfig loads configuration from a file and environment variables.
// A missing file is not an error; defaults and the environment apply.
func LoadConfig(path string) (*Config, error) {
	config := &Config{
		LogLevel:  "info",
		Provider:  provider.NameNative,
		ChunkSize: stream.DefaultBufferSize,
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
		Audit: AuditConfig{
			Enabled:   false,
			MaxEvents: 10000,
		},
		Remote: RemoteConfig{
			Region: "us-east-1",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromEnv loads configuration values from environment variables.
func loadFromEnv(config *Config) {
	if v := os.Getenv("PACKSEAL_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("PACKSEAL_PROVIDER"); v != "" {
		config.Provider = v
	}
	if v := os.Getenv("PACKSEAL_PASSWORD"); v != "" {
		config.Password = v
	}
	if v := os.Getenv("PACKSEAL_PASSWORD_FILE"); v != "" {
		config.PasswordFile = v
	}
	if v := os.Getenv("PACKSEAL_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.ChunkSize = n
		}
	}
	if v := os.Getenv("PACKSEAL_AUDIT_ENABLED"); v != "" {
		config.Audit.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PACKSEAL_AUDIT_FILE"); v != "" {
		config.Audit.File = v
	}
	if v := os.Getenv("PACKSEAL_METRICS_ENABLED"); v != "" {
		config.Metrics.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PACKSEAL_METRICS_LISTEN_ADDR"); v != "" {
		config.Metrics.ListenAddr = v
	}
	if v := os.Getenv("PACKSEAL_REMOTE_ENDPOINT"); v != "" {
		config.Remote.Endpoint = v
	}
	if v := os.Getenv("PACKSEAL_REMOTE_REGION"); v != "" {
		config.Remote.Region = v
	}
	if v := os.Getenv("PACKSEAL_REMOTE_BUCKET"); v != "" {
		config.Remote.Bucket = v
	}
	if v := os.Getenv("PACKSEAL_REMOTE_PREFIX"); v != "" {
		config.Remote.Prefix = v
	}
	if v := os.Getenv("PACKSEAL_REMOTE_ACCESS_KEY"); v != "" {
		config.Remote.AccessKey = v
	}
	if v := os.Getenv("PACKSEAL_REMOTE_SECRET_KEY"); v != "" {
		config.Remote.SecretKey = v
	}
	if v := os.Getenv("PACKSEAL_REMOTE_USE_PATH_STYLE"); v != "" {
		config.Remote.UsePathStyle = v == "true" || v == "1"
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if _, err := provider.Get(c.Provider); err != nil {
		return err
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative, got %d", c.ChunkSize)
	}
	if c.Password != "" && c.PasswordFile != "" {
		return fmt.Errorf("password and password_file are mutually exclusive")
	}
	if c.Remote.Endpoint != "" && c.Remote.Bucket == "" {
		return fmt.Errorf("remote.bucket is required when remote.endpoint is set")
	}
	return nil
}

// ResolvePassword returns the password from config, password file, or an
// empty string when neither is set.
func (c *Config) ResolvePassword() (string, error) {
	if c.Password != "" {
		return c.Password, nil
	}
	if c.PasswordFile != "" {
		data, err := os.ReadFile(c.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", nil
}
