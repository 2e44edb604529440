package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from files and environment
// variables.
type Config struct {
	Env             string        `mapstructure:"env"`             // local, dev, prod
	APIBaseURL      string        `mapstructure:"api_base_url"`    // verse/progress REST API
	TokenPath       string        `mapstructure:"token_path"`      // bearer session token file
	SessionTimeout  time.Duration `mapstructure:"session_timeout"` // inactivity before forced expiry
	WarningWindow   time.Duration `mapstructure:"warning_window"`  // countdown warning before expiry
	Debounce        time.Duration `mapstructure:"debounce"`        // word-progress dispatcher debounce
	BatchSize       int           `mapstructure:"batch_size"`      // word-progress batch size
	RefreshMinGap   time.Duration `mapstructure:"refresh_min_gap"` // points refresh rate limit
	MasteryCacheTTL time.Duration `mapstructure:"mastery_cache_ttl"`
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if dir, err := defaultConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}

	v.SetDefault("env", "local")
	v.SetDefault("api_base_url", "http://localhost:8080/api")
	v.SetDefault("session_timeout", "3h")
	v.SetDefault("warning_window", "2m")
	v.SetDefault("debounce", "1000ms")
	v.SetDefault("batch_size", 10)
	v.SetDefault("refresh_min_gap", "5000ms")
	v.SetDefault("mastery_cache_ttl", "5m")

	v.SetEnvPrefix("VERSEKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if cfg.TokenPath == "" {
		dir, err := defaultConfigDir()
		if err != nil {
			return nil, err
		}
		cfg.TokenPath = filepath.Join(dir, "session.token")
	}

	return &cfg, nil
}

// defaultConfigDir resolves $XDG_CONFIG_HOME/versekeep, falling back to
// ~/.config/versekeep.
func defaultConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "versekeep"), nil
}
