package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"blendguard/internal/config"
)

// Config is an alias for the project's main configuration struct
type Config = config.Config

// LoadConfig delegates to the project's config loader and runs pre-flight checks
func LoadConfig(path string) (*Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := checkPreFlight(cfg); err != nil {
		return nil, fmt.Errorf("pre-flight checks failed: %w", err)
	}

	return cfg, nil
}

// checkPreFlight performs environment checks beyond schema validation
func checkPreFlight(cfg *Config) error {
	// The bot hands out protect links, which cannot be signed without a secret
	if cfg.Telegram.BotToken != "" && cfg.Deeplink.Secret == "" {
		return fmt.Errorf("deeplink.secret is required when telegram.bot_token is set")
	}

	dir := filepath.Dir(cfg.Storage.Path)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// created on open
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("storage directory %s is not a directory", dir)
	}
	return nil
}
