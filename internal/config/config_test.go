package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestExpandEnvVars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "expand single env var",
			input:    "bot_token: ${TEST_TELEGRAM_TOKEN}",
			envVars:  map[string]string{"TEST_TELEGRAM_TOKEN": "123:abc"},
			expected: "bot_token: 123:abc",
		},
		{
			name:     "missing env var returns empty string",
			input:    "secret: ${MISSING_DEEPLINK_SECRET}",
			envVars:  map[string]string{},
			expected: "secret: ",
		},
		{
			name:     "mixed static and env vars",
			input:    "port: 5001\nsecret: ${TEST_SECRET}",
			envVars:  map[string]string{"TEST_SECRET": "s3cr3t"},
			expected: "port: 5001\nsecret: s3cr3t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestLoadConfigWithEnvVars(t *testing.T) {
	t.Setenv("TEST_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TEST_DEEPLINK_SECRET", "deeplink-secret")

	path := writeConfig(t, `app:
  port: 8080
  frontend_url: "https://guard.example"
system:
  log_level: DEBUG
telegram:
  bot_token: "${TEST_TELEGRAM_TOKEN}"
  chat_id: "42"
deeplink:
  secret: "${TEST_DEEPLINK_SECRET}"
vault:
  contract_id: "CABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
storage:
  path: "/tmp/receipts.db"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "https://guard.example", cfg.App.FrontendURL)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken.Value())
	assert.Equal(t, "deeplink-secret", cfg.Deeplink.Secret.Value())
	assert.Equal(t, "/tmp/receipts.db", cfg.Storage.Path)

	// untouched keys keep defaults
	assert.Equal(t, "blendguard-backend", cfg.App.Name)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIURL)
	assert.Equal(t, 4, cfg.Concurrency.AlertPoolSize)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadConfig(writeConfig(t, "app: [not a map"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = LoadConfig(writeConfig(t, "system:\n  log_level: LOUD\n"))
	assert.ErrorContains(t, err, "system.log_level")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.App.Port = 0 }, "app.port"},
		{"relative frontend", func(c *Config) { c.App.FrontendURL = "/protect" }, "app.frontend_url"},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "t" }, "telegram.chat_id"},
		{"empty storage", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"metrics port clash", func(c *Config) { c.Telemetry.MetricsPort = c.App.Port }, "telemetry.metrics_port"},
		{"negative rate", func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }, "rate_limit.requests_per_second"},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }, "rate_limit.burst"},
		{"pool too big", func(c *Config) { c.Concurrency.AlertPoolSize = 1000 }, "concurrency.alert_pool_size"},
	}

	require.NoError(t, DefaultConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestSecretRedaction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telegram.BotToken = "123:very-secret"
	cfg.Telegram.ChatID = "42"
	cfg.Deeplink.Secret = "hmac-secret"

	rendered := cfg.String()
	assert.NotContains(t, rendered, "very-secret")
	assert.NotContains(t, rendered, "hmac-secret")
	assert.Contains(t, rendered, "[REDACTED]")

	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", cfg.Deeplink.Secret))
	assert.Equal(t, `"[REDACTED]"`, fmt.Sprintf("%#v", cfg.Deeplink.Secret))

	data, err := json.Marshal(cfg.Telegram)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "very-secret")

	assert.Equal(t, "", Secret("").String())
}

func TestLoadConfig_TelemetrySwitches(t *testing.T) {
	path := writeConfig(t, `telemetry:
  metrics_port: 9191
  enable_metrics: false
  stdout_traces: true
  resource_attributes:
    region: eu-west-1
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Telemetry.EnableMetrics)
	assert.True(t, cfg.Telemetry.StdoutTraces)
	assert.False(t, cfg.Telemetry.StdoutLogs)
	assert.Equal(t, "eu-west-1", cfg.Telemetry.ResourceAttributes["region"])
}
