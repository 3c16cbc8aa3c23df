package bootstrap

import (
	"blendguard/internal/core"
	"blendguard/pkg/logging"
)

// InitLogger builds the zap logger from the system section
func InitLogger(cfg *Config) (core.ILogger, error) {
	var file *logging.FileOptions
	if cfg.System.LogFile != "" {
		file = &logging.FileOptions{
			Path:       cfg.System.LogFile,
			MaxSizeMB:  cfg.System.LogMaxSizeMB,
			MaxBackups: cfg.System.LogMaxBackups,
			MaxAgeDays: cfg.System.LogMaxAgeDays,
			Compress:   true,
		}
	}

	zl, err := logging.NewZapLoggerWithFile(cfg.System.LogLevel, file)
	if err != nil {
		return nil, err
	}

	return zl.WithField("service", cfg.App.Name), nil
}
