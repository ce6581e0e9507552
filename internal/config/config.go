// Package config handles configuration loading and management for council.
// It supports XDG config paths, a project-level override, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for council.
type Config struct {
	Browser  BrowserConfig  `mapstructure:"browser"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	TUI      TUIConfig      `mapstructure:"tui"`
}

// BrowserConfig holds settings for reaching the automated browser.
type BrowserConfig struct {
	// DebugURL is the base URL of the browser's remote debugging endpoint.
	DebugURL string `mapstructure:"debug_url"`
}

// TimeoutsConfig holds the pipeline deadlines and intervals.
type TimeoutsConfig struct {
	// Council is the shared deadline for all council agents' responses.
	Council time.Duration `mapstructure:"council"`
	// Judge is the deadline for the judge's response. It should be longer
	// than the council deadline since the judge reads every answer.
	Judge time.Duration `mapstructure:"judge"`
	// PollInterval is the delay between completion polls.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// Settle is how long to wait after attaching to a tab before trusting
	// the absence of a usable channel.
	Settle time.Duration `mapstructure:"settle"`
	// Rediscover is the delay before the single discovery re-attempt.
	Rediscover time.Duration `mapstructure:"rediscover"`
}

// DeliveryConfig holds prompt injection settings.
type DeliveryConfig struct {
	// MaxAttempts is the number of delivery attempts per agent.
	MaxAttempts int `mapstructure:"max_attempts"`
	// Backoff is the fixed delay between failed delivery attempts.
	Backoff time.Duration `mapstructure:"backoff"`
	// InitDelayStep scales the pre-attempt initialization wait: attempt N
	// waits N times this value before invoking the adapter.
	InitDelayStep time.Duration `mapstructure:"init_delay_step"`
	// InterAgentDelay is enforced between successive council deliveries.
	InterAgentDelay time.Duration `mapstructure:"inter_agent_delay"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, a project override, and
// environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (COUNCIL_* )
//  2. Project config (.council.yaml in the current directory)
//  3. User config (~/.config/council/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project-level override
	if _, err := os.Stat(".council.yaml"); err == nil {
		project := viper.New()
		project.SetConfigFile(".council.yaml")
		if err := project.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(project.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("COUNCIL")
	v.AutomaticEnv()
	v.BindEnv("browser.debug_url", "COUNCIL_BROWSER_URL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Timeouts.Judge <= c.Timeouts.Council {
		return fmt.Errorf("judge deadline (%s) must be longer than council deadline (%s)",
			c.Timeouts.Judge, c.Timeouts.Council)
	}
	if c.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("delivery max_attempts must be at least 1, got %d", c.Delivery.MaxAttempts)
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures built-in default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("browser.debug_url", "http://127.0.0.1:9222")

	v.SetDefault("timeouts.council", 120*time.Second)
	v.SetDefault("timeouts.judge", 180*time.Second)
	v.SetDefault("timeouts.poll_interval", 2*time.Second)
	v.SetDefault("timeouts.settle", 2*time.Second)
	v.SetDefault("timeouts.rediscover", 3*time.Second)

	v.SetDefault("delivery.max_attempts", 3)
	v.SetDefault("delivery.backoff", 2*time.Second)
	v.SetDefault("delivery.init_delay_step", 500*time.Millisecond)
	v.SetDefault("delivery.inter_agent_delay", 1500*time.Millisecond)

	v.SetDefault("tui.refresh_rate", 250*time.Millisecond)
}

// getUserConfigDir returns the XDG config directory for council.
func getUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "council")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".council"
	}
	return filepath.Join(home, ".config", "council")
}
