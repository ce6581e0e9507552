package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shayc/council/internal/config"
	"github.com/shayc/council/internal/state"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify council configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/council/config.yaml
Project-specific overrides can be placed in .council.yaml

The last_council, last_judge, and judge_isolation keys are persisted
preferences rather than file config and are routed to the preference
store. Example:

  council config last_council chatgpt,claude,gemini
  council config last_judge grok`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
			return nil
		case 1:
			return displayConfigKey(cfg, args[0])
		default:
			return setConfigKey(args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("browser.debug_url: %s\n", cfg.Browser.DebugURL)
	fmt.Printf("timeouts.council: %s\n", cfg.Timeouts.Council)
	fmt.Printf("timeouts.judge: %s\n", cfg.Timeouts.Judge)
	fmt.Printf("timeouts.poll_interval: %s\n", cfg.Timeouts.PollInterval)
	fmt.Printf("timeouts.settle: %s\n", cfg.Timeouts.Settle)
	fmt.Printf("timeouts.rediscover: %s\n", cfg.Timeouts.Rediscover)
	fmt.Printf("delivery.max_attempts: %d\n", cfg.Delivery.MaxAttempts)
	fmt.Printf("delivery.backoff: %s\n", cfg.Delivery.Backoff)
	fmt.Printf("delivery.init_delay_step: %s\n", cfg.Delivery.InitDelayStep)
	fmt.Printf("delivery.inter_agent_delay: %s\n", cfg.Delivery.InterAgentDelay)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)

	if store, err := state.OpenDefault(); err == nil {
		defer store.Close()
		if council, err := store.LastCouncil(); err == nil {
			fmt.Printf("last_council: %s\n", strings.Join(council, ","))
		}
		if judge, err := store.LastJudge(); err == nil {
			fmt.Printf("last_judge: %s\n", judge)
		}
		if iso, err := store.JudgeIsolation(); err == nil {
			fmt.Printf("judge_isolation: %t\n", iso)
		}
	}
}

// preferenceKey reports whether the key lives in the preference store
// instead of the config file.
func preferenceKey(key string) bool {
	switch key {
	case "last_council", "last_judge", "judge_isolation":
		return true
	}
	return false
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) error {
	if preferenceKey(key) {
		store, err := state.OpenDefault()
		if err != nil {
			return err
		}
		defer store.Close()
		switch key {
		case "last_council":
			council, err := store.LastCouncil()
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(council, ","))
		case "last_judge":
			judge, err := store.LastJudge()
			if err != nil {
				return err
			}
			fmt.Println(judge)
		case "judge_isolation":
			iso, err := store.JudgeIsolation()
			if err != nil {
				return err
			}
			fmt.Println(iso)
		}
		return nil
	}

	switch key {
	case "browser.debug_url":
		fmt.Println(cfg.Browser.DebugURL)
	case "timeouts.council":
		fmt.Println(cfg.Timeouts.Council)
	case "timeouts.judge":
		fmt.Println(cfg.Timeouts.Judge)
	case "timeouts.poll_interval":
		fmt.Println(cfg.Timeouts.PollInterval)
	case "timeouts.settle":
		fmt.Println(cfg.Timeouts.Settle)
	case "timeouts.rediscover":
		fmt.Println(cfg.Timeouts.Rediscover)
	case "delivery.max_attempts":
		fmt.Println(cfg.Delivery.MaxAttempts)
	case "delivery.backoff":
		fmt.Println(cfg.Delivery.Backoff)
	case "delivery.init_delay_step":
		fmt.Println(cfg.Delivery.InitDelayStep)
	case "delivery.inter_agent_delay":
		fmt.Println(cfg.Delivery.InterAgentDelay)
	case "tui.refresh_rate":
		fmt.Println(cfg.TUI.RefreshRate)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// setConfigKey writes one value to the user config file, or to the
// preference store for preference keys.
func setConfigKey(key, value string) error {
	if preferenceKey(key) {
		return setPreference(key, value)
	}

	parsed, err := parseConfigValue(key, value)
	if err != nil {
		return err
	}

	path := config.GetUserConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	_ = v.ReadInConfig() // a missing file just starts empty
	v.Set(key, parsed)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Re-validate so a bad value is caught now, not on the next run.
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("value written but configuration is now invalid: %w", err)
	}
	fmt.Printf("%s: %v\n", key, parsed)
	return nil
}

// setPreference validates and persists one preference-store key.
func setPreference(key, value string) error {
	store, err := state.OpenDefault()
	if err != nil {
		return err
	}
	defer store.Close()

	agents, err := config.LoadAgents()
	if err != nil {
		return err
	}

	switch key {
	case "last_council":
		ids := strings.Split(value, ",")
		if len(ids) < 2 || len(ids) > 4 {
			return fmt.Errorf("last_council wants 2-4 comma-separated agent IDs, got %d", len(ids))
		}
		for _, id := range ids {
			if _, err := config.FindAgent(agents, id); err != nil {
				return err
			}
		}
		if err := store.SetLastCouncil(ids); err != nil {
			return err
		}
	case "last_judge":
		if _, err := config.FindAgent(agents, value); err != nil {
			return err
		}
		if err := store.SetLastJudge(value); err != nil {
			return err
		}
	case "judge_isolation":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("judge_isolation wants true or false, got %q", value)
		}
		if err := store.SetJudgeIsolation(on); err != nil {
			return err
		}
	}
	fmt.Printf("%s: %s\n", key, value)
	return nil
}

// parseConfigValue converts the raw string per the key's type.
func parseConfigValue(key, value string) (interface{}, error) {
	switch key {
	case "browser.debug_url":
		return value, nil
	case "delivery.max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s wants an integer, got %q", key, value)
		}
		return n, nil
	case "timeouts.council", "timeouts.judge", "timeouts.poll_interval",
		"timeouts.settle", "timeouts.rediscover",
		"delivery.backoff", "delivery.init_delay_step", "delivery.inter_agent_delay",
		"tui.refresh_rate":
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("%s wants a duration like 90s, got %q", key, value)
		}
		return d.String(), nil
	default:
		return nil, fmt.Errorf("unknown config key %q", key)
	}
}
