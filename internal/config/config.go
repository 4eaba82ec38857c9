// ABOUTME: Configuration loading and parsing for coven-bot
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when a field is left empty.
const (
	DefaultWebhookPath     = "/webhook"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultHandleTimeout   = 2 * time.Minute
	DefaultDedupeTTL       = 10 * time.Minute
	DefaultDedupeSize      = 10000
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "COVEN_BOT_CONFIG"

// Config represents the complete coven-bot configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Messenger MessengerConfig `yaml:"messenger" toml:"messenger"`
	Webhook   WebhookConfig   `yaml:"webhook" toml:"webhook"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr" toml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"-" toml:"-"`

	ShutdownTimeoutRaw string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // public HTTPS so the platform can reach the webhook
}

// MessengerConfig holds the page credentials and Graph API settings
type MessengerConfig struct {
	PageToken       string  `yaml:"page_token" toml:"page_token"`
	AppSecret       string  `yaml:"app_secret" toml:"app_secret"`
	VerifyToken     string  `yaml:"verify_token" toml:"verify_token"`
	APIVersion      string  `yaml:"api_version" toml:"api_version"`
	GraphURL        string  `yaml:"graph_url" toml:"graph_url"`
	RateLimit       float64 `yaml:"rate_limit" toml:"rate_limit"` // requests per second, 0 = unlimited
	Burst           int     `yaml:"burst" toml:"burst"`
	BroadcastEchoes bool    `yaml:"broadcast_echoes" toml:"broadcast_echoes"`
	GreetingText    string  `yaml:"greeting_text" toml:"greeting_text"`
}

// WebhookConfig holds webhook intake settings
type WebhookConfig struct {
	Path          string        `yaml:"path" toml:"path"`
	HandleTimeout time.Duration `yaml:"-" toml:"-"`
	Dedupe        DedupeConfig  `yaml:"dedupe" toml:"dedupe"`

	HandleTimeoutRaw string `yaml:"handle_timeout" toml:"handle_timeout"`
}

// DedupeConfig holds redelivery filtering settings
type DedupeConfig struct {
	Enabled bool          `yaml:"enabled" toml:"enabled"`
	TTL     time.Duration `yaml:"-" toml:"-"`
	MaxSize int           `yaml:"max_size" toml:"max_size"`

	TTLRaw string `yaml:"ttl" toml:"ttl"`
}

// DatabaseConfig holds ledger database configuration. An empty path
// disables the ledger.
type DatabaseConfig struct {
	Path      string        `yaml:"path" toml:"path"`
	Retention time.Duration `yaml:"-" toml:"-"`

	RetentionRaw string `yaml:"retention" toml:"retention"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultPath returns the config file location: $COVEN_BOT_CONFIG, else
// $XDG_CONFIG_HOME/coven-bot/config.yaml, else ~/.config/coven-bot/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "coven-bot", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "coven-bot", "config.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Webhook.Path == "" {
		c.Webhook.Path = DefaultWebhookPath
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Webhook.HandleTimeout == 0 {
		c.Webhook.HandleTimeout = DefaultHandleTimeout
	}
	if c.Webhook.Dedupe.TTL == 0 {
		c.Webhook.Dedupe.TTL = DefaultDedupeTTL
	}
	if c.Webhook.Dedupe.MaxSize == 0 {
		c.Webhook.Dedupe.MaxSize = DefaultDedupeSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Messenger.PageToken == "" {
		return fmt.Errorf("messenger.page_token is required")
	}
	if c.Messenger.VerifyToken == "" {
		return fmt.Errorf("messenger.verify_token is required")
	}
	if c.Messenger.RateLimit < 0 {
		return fmt.Errorf("messenger.rate_limit must not be negative")
	}

	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path must start with /")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout},
		{"webhook.handle_timeout", cfg.Webhook.HandleTimeoutRaw, &cfg.Webhook.HandleTimeout},
		{"webhook.dedupe.ttl", cfg.Webhook.Dedupe.TTLRaw, &cfg.Webhook.Dedupe.TTL},
		{"database.retention", cfg.Database.RetentionRaw, &cfg.Database.Retention},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
