// Package config loads eblextract settings from defaults, an optional YAML file and flags.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/jchantrell/eblextract/internal/game"
	"github.com/spf13/viper"
)

type Config struct {
	Game               string `mapstructure:"game"`
	Platform           string `mapstructure:"platform"`
	AssetsDir          string `mapstructure:"assets_dir"`
	Output             string `mapstructure:"output"`
	Workers            int    `mapstructure:"workers"`
	SkipUnknownFiles   bool   `mapstructure:"skip_unknown_files"`
	LowercaseFileNames bool   `mapstructure:"lowercase_file_names"`
	StrictNames        bool   `mapstructure:"strict_names"`
	DecompressDCX      bool   `mapstructure:"decompress_dcx"`
	Manifest           string `mapstructure:"manifest"`
	LogLevel           string `mapstructure:"log_level"`
	LogFormat          string `mapstructure:"log_format"`
}

// Load reads configuration from cfgFile, or from eblextract.yaml in the
// home or working directory when cfgFile is empty. A missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("output", "extracted")
	v.SetDefault("workers", 0)
	v.SetDefault("skip_unknown_files", false)
	v.SetDefault("lowercase_file_names", false)
	v.SetDefault("strict_names", false)
	v.SetDefault("decompress_dcx", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName("eblextract")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that can be checked without knowing the command being run.
func (c *Config) Validate() error {
	if c.Game != "" {
		if _, err := game.ParseGame(c.Game); err != nil {
			return fmt.Errorf("invalid game configuration: %w", err)
		}
	}
	if c.Platform != "" {
		if _, err := game.ParsePlatform(c.Platform); err != nil {
			return fmt.Errorf("invalid platform configuration: %w", err)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level '%s': supported levels are debug, info, warn, error", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format '%s': supported formats are text, json", c.LogFormat)
	}
	return nil
}

// Title resolves the configured game and platform. Both must be set.
func (c *Config) Title() (game.Game, game.Platform, error) {
	if c.Game == "" {
		return game.GameNone, game.PlatformNone, fmt.Errorf("no game configured: set --game or game in the config file")
	}
	if c.Platform == "" {
		return game.GameNone, game.PlatformNone, fmt.Errorf("no platform configured: set --platform or platform in the config file")
	}

	g, err := game.ParseGame(c.Game)
	if err != nil {
		return game.GameNone, game.PlatformNone, err
	}
	p, err := game.ParsePlatform(c.Platform)
	if err != nil {
		return game.GameNone, game.PlatformNone, err
	}
	return g, p, nil
}
