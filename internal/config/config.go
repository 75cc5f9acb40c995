package config

import (
	"fmt"
	"os"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"

	"github.com/avolkoff/pixbatch/internal/helpers"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr               string `mapstructure:"addr"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec"`
	ReadTimeoutSec     int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec    int    `mapstructure:"write_timeout_sec"`
}

// LimitsConfig holds the upload ceilings checked before any processing.
type LimitsConfig struct {
	MaxFileCount    int `mapstructure:"max_file_count"`
	MaxTotalSizeMB  int `mapstructure:"max_total_size_mb"`
	MaxPixelPerAxis int `mapstructure:"max_pixel_per_axis"`
}

type ProcessingConfig struct {
	// Workers bounds the pool; 0 means runtime.NumCPU().
	Workers          int      `mapstructure:"workers"`
	DefaultQuality   int      `mapstructure:"default_quality"`
	MinQuality       int      `mapstructure:"min_quality"`
	WebTargetSizeKB  int      `mapstructure:"web_target_size_kb"`
	BatchTTLMin      int      `mapstructure:"batch_ttl_min"`
	SupportedFormats []string `mapstructure:"supported_formats"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load(path string) (*Config, error) {
	cfg := config.New()

	configPath := path
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		} else if _, err := os.Stat("/app/config.yaml"); err == nil {
			configPath = "/app/config.yaml"
		} else {
			return nil, fmt.Errorf("config.yaml not found")
		}
	}

	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = ""
	}

	if err := cfg.Load(configPath, envPath, "APP"); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appConfig := &Config{}
	if err := cfg.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// List values do not round-trip through a single env var, so the formats
	// override is a comma-separated string.
	if env := os.Getenv("APP_PROCESSING_SUPPORTED_FORMATS"); env != "" {
		appConfig.Processing.SupportedFormats = helpers.SplitAndTrim(env, ",")
	}

	if err := validateConfig(appConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	zlog.Logger.Info().
		Str("addr", appConfig.Server.Addr).
		Int("max_file_count", appConfig.Limits.MaxFileCount).
		Int("max_total_size_mb", appConfig.Limits.MaxTotalSizeMB).
		Int("max_pixel_per_axis", appConfig.Limits.MaxPixelPerAxis).
		Int("workers", appConfig.Processing.Workers).
		Msg("Config loaded successfully via wbf")

	return appConfig, nil
}

func validateConfig(cfg *Config) error {
	// Server
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("server.shutdown_timeout_sec must be positive")
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		return fmt.Errorf("server.read_timeout_sec must be positive")
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		return fmt.Errorf("server.write_timeout_sec must be positive")
	}

	// Limits
	if cfg.Limits.MaxFileCount <= 0 {
		return fmt.Errorf("limits.max_file_count must be positive")
	}
	if cfg.Limits.MaxTotalSizeMB <= 0 {
		return fmt.Errorf("limits.max_total_size_mb must be positive")
	}
	if cfg.Limits.MaxPixelPerAxis <= 0 {
		return fmt.Errorf("limits.max_pixel_per_axis must be positive")
	}

	// Processing
	if cfg.Processing.Workers < 0 {
		return fmt.Errorf("processing.workers must be non-negative")
	}
	if cfg.Processing.DefaultQuality <= 0 || cfg.Processing.DefaultQuality > 100 {
		return fmt.Errorf("processing.default_quality must be in 1-100")
	}
	if cfg.Processing.MinQuality <= 0 || cfg.Processing.MinQuality > cfg.Processing.DefaultQuality {
		return fmt.Errorf("processing.min_quality must be in 1-%d", cfg.Processing.DefaultQuality)
	}
	if cfg.Processing.WebTargetSizeKB <= 0 {
		return fmt.Errorf("processing.web_target_size_kb must be positive")
	}
	if cfg.Processing.BatchTTLMin <= 0 {
		return fmt.Errorf("processing.batch_ttl_min must be positive")
	}
	if len(cfg.Processing.SupportedFormats) == 0 {
		return fmt.Errorf("processing.supported_formats must contain at least one format")
	}

	if cfg.Logging.Level == "" {
		return fmt.Errorf("logging.level is required")
	}

	return nil
}
