package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Poll     PollConfig     `mapstructure:"poll"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Github   GithubConfig   `mapstructure:"github"`
}

type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	WSURL          string `mapstructure:"ws_url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type PollConfig struct {
	IntervalMs int `mapstructure:"interval_ms"`
}

type AnalysisConfig struct {
	DefaultDepth    string `mapstructure:"default_depth"`
	IncludePatterns bool   `mapstructure:"include_patterns"`
	IncludeInsights bool   `mapstructure:"include_insights"`
}

type GithubConfig struct {
	SyncOnStart bool `mapstructure:"sync_on_start"`
}

// Timeout returns the HTTP client timeout, defaulting to 30s.
func (c *APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval returns the fallback poll interval, defaulting to 2s.
func (c *PollConfig) PollInterval() time.Duration {
	if c.IntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func Load(configPath string) (*Config, error) {
	// Prefer config.local.yaml next to the given file (holds real tokens,
	// not committed).
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// Environment variables override file values.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
