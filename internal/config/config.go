// Package config handles configuration management with validation
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App         AppConfig         `yaml:"app"`
	System      SystemConfig      `yaml:"system"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Slack       SlackConfig       `yaml:"slack"`
	Deeplink    DeeplinkConfig    `yaml:"deeplink"`
	Vault       VaultConfig       `yaml:"vault"`
	Storage     StorageConfig     `yaml:"storage"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// AppConfig contains HTTP API settings
type AppConfig struct {
	Name        string `yaml:"name"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	FrontendURL string `yaml:"frontend_url"`
}

// SystemConfig contains logging settings
type SystemConfig struct {
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
}

// TelegramConfig contains bot delivery settings. Empty token disables the channel.
type TelegramConfig struct {
	BotToken      Secret `yaml:"bot_token"`
	ChatID        string `yaml:"chat_id"`
	APIURL        string `yaml:"api_url"`
	WebhookSecret Secret `yaml:"webhook_secret"`
}

// SlackConfig contains operator webhook settings. Empty URL disables the channel.
type SlackConfig struct {
	WebhookURL Secret `yaml:"webhook_url"`
}

// DeeplinkConfig holds the HMAC secret for protect links
type DeeplinkConfig struct {
	Secret Secret `yaml:"secret"`
}

// VaultConfig describes the deployed SafetyVault contract
type VaultConfig struct {
	ContractID string `yaml:"contract_id"`
	Version    string `yaml:"version"`
	Network    string `yaml:"network"`
}

// StorageConfig configures the SQLite receipt log
type StorageConfig struct {
	Path    string `yaml:"path"`
	WALMode bool   `yaml:"wal_mode"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
	// StdoutTraces and StdoutLogs pretty-print every span and log record
	StdoutTraces bool `yaml:"stdout_traces"`
	StdoutLogs   bool `yaml:"stdout_logs"`
	// ResourceAttributes are added to every exported signal
	ResourceAttributes map[string]string `yaml:"resource_attributes"`
}

// RateLimitConfig limits the write endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// ConcurrencyConfig contains worker pool settings
type ConcurrencyConfig struct {
	AlertPoolSize   int `yaml:"alert_pool_size"`
	AlertPoolBuffer int `yaml:"alert_pool_buffer"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errs []string

	for _, check := range []func() error{
		c.validateAppConfig,
		c.validateSystemConfig,
		c.validateTelegramConfig,
		c.validateStorageConfig,
		c.validateTelemetryConfig,
		c.validateRateLimitConfig,
		c.validateConcurrencyConfig,
	} {
		if err := check(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

func (c *Config) validateAppConfig() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return ValidationError{Field: "app.port", Value: c.App.Port, Message: "must be between 1 and 65535"}
	}
	if c.App.FrontendURL != "" {
		if u, err := url.Parse(c.App.FrontendURL); err != nil || u.Scheme == "" || u.Host == "" {
			return ValidationError{Field: "app.frontend_url", Value: c.App.FrontendURL, Message: "must be an absolute URL"}
		}
	}
	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

func (c *Config) validateTelegramConfig() error {
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return ValidationError{Field: "telegram.chat_id", Message: "required when bot_token is set"}
	}
	return nil
}

func (c *Config) validateStorageConfig() error {
	if c.Storage.Path == "" {
		return ValidationError{Field: "storage.path", Message: "must not be empty"}
	}
	return nil
}

func (c *Config) validateTelemetryConfig() error {
	if c.Telemetry.EnableMetrics && (c.Telemetry.MetricsPort <= 0 || c.Telemetry.MetricsPort > 65535) {
		return ValidationError{Field: "telemetry.metrics_port", Value: c.Telemetry.MetricsPort, Message: "must be between 1 and 65535"}
	}
	if c.Telemetry.EnableMetrics && c.Telemetry.MetricsPort == c.App.Port {
		return ValidationError{Field: "telemetry.metrics_port", Value: c.Telemetry.MetricsPort, Message: "must differ from app.port"}
	}
	return nil
}

func (c *Config) validateRateLimitConfig() error {
	if c.RateLimit.RequestsPerSecond < 0 {
		return ValidationError{Field: "rate_limit.requests_per_second", Value: c.RateLimit.RequestsPerSecond, Message: "must not be negative"}
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		return ValidationError{Field: "rate_limit.burst", Value: c.RateLimit.Burst, Message: "must be at least 1"}
	}
	return nil
}

func (c *Config) validateConcurrencyConfig() error {
	if c.Concurrency.AlertPoolSize < 1 || c.Concurrency.AlertPoolSize > 100 {
		return ValidationError{Field: "concurrency.alert_pool_size", Value: c.Concurrency.AlertPoolSize, Message: "must be between 1 and 100"}
	}
	if c.Concurrency.AlertPoolBuffer < 1 || c.Concurrency.AlertPoolBuffer > 10000 {
		return ValidationError{Field: "concurrency.alert_pool_buffer", Value: c.Concurrency.AlertPoolBuffer, Message: "must be between 1 and 10000"}
	}
	return nil
}

// Addr returns the API listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// String returns a YAML rendering with secrets redacted
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns the configuration used when a key is absent
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "blendguard-backend",
			Host:        "0.0.0.0",
			Port:        5001,
			FrontendURL: "http://localhost:3000",
		},
		System: SystemConfig{
			LogLevel:      "INFO",
			LogMaxSizeMB:  100,
			LogMaxBackups: 5,
			LogMaxAgeDays: 30,
		},
		Telegram: TelegramConfig{
			APIURL: "https://api.telegram.org",
		},
		Vault: VaultConfig{
			Version: "v1.0",
			Network: "testnet",
		},
		Storage: StorageConfig{
			Path:    "./data/blendguard.db",
			WALMode: true,
		},
		Telemetry: TelemetryConfig{
			MetricsPort:   9090,
			EnableMetrics: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Concurrency: ConcurrencyConfig{
			AlertPoolSize:   4,
			AlertPoolBuffer: 256,
		},
	}
}
