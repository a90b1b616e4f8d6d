// Package config loads and validates koan's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied after parse when the file leaves a value unset.
const (
	DefaultInterval           = 2 * time.Minute
	DefaultContemplative      = 0.1
	DefaultPauseCooldown      = time.Hour
	DefaultInterruptGrace     = 10 * time.Second
	DefaultSessionTokenBudget = 2_000_000
	DefaultExecutorTimeout    = 30 * time.Minute
	DefaultIntakeMaxAge       = 24 * time.Hour
	DefaultPollBase           = 30 * time.Second
	DefaultPollCap            = 10 * time.Minute
	DefaultRecurrenceHour     = 9
)

// Load reads and parses a koan configuration from the given YAML file path.
// After parsing, it applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./koan.yaml, ~/.koan/config.yaml.
func LoadDefault() (*Config, error) {
	candidates := []string{"koan.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".koan", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no koan config found (searched: %v)", candidates)
}

// applyDefaults fills in home directory and unset tunables.
func applyDefaults(cfg *Config) {
	if cfg.Home == "" {
		if env := os.Getenv("KOAN_HOME"); env != "" {
			cfg.Home = env
		} else if home, err := os.UserHomeDir(); err == nil {
			cfg.Home = filepath.Join(home, ".koan")
		} else {
			cfg.Home = ".koan"
		}
	}
	if cfg.Executor.Command == "" {
		cfg.Executor.Command = os.Getenv("KOAN_EXECUTOR")
	}
	if cfg.Executor.Command == "" {
		cfg.Executor.Command = "claude"
	}
	if cfg.Loop.ContemplativeChance == 0 {
		cfg.Loop.ContemplativeChance = DefaultContemplative
	}
	if cfg.Loop.SessionTokenBudget == 0 {
		cfg.Loop.SessionTokenBudget = DefaultSessionTokenBudget
	}
	if cfg.Loop.RecurrenceHour == 0 {
		cfg.Loop.RecurrenceHour = DefaultRecurrenceHour
	}
	if cfg.Intake.AckMarker == "" {
		cfg.Intake.AckMarker = "eyes"
	}
}

// Duration helpers: each returns the configured value or its default when
// the field is empty or unparseable.

func (c *LoopConfig) IntervalDuration() time.Duration {
	return parseDuration(c.Interval, DefaultInterval)
}

func (c *LoopConfig) PauseCooldownDuration() time.Duration {
	return parseDuration(c.PauseCooldown, DefaultPauseCooldown)
}

func (c *LoopConfig) InterruptGraceDuration() time.Duration {
	return parseDuration(c.InterruptGrace, DefaultInterruptGrace)
}

func (c *IntakeConfig) MaxAgeDuration() time.Duration {
	return parseDuration(c.MaxAge, DefaultIntakeMaxAge)
}

func (c *IntakeConfig) PollBaseDuration() time.Duration {
	return parseDuration(c.PollBase, DefaultPollBase)
}

func (c *IntakeConfig) PollCapDuration() time.Duration {
	return parseDuration(c.PollCap, DefaultPollCap)
}

func (c *ExecutorConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, DefaultExecutorTimeout)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// State file locations, all under Home.

func (c *Config) QueuePath() string        { return filepath.Join(c.Home, "missions.md") }
func (c *Config) UsagePath() string        { return filepath.Join(c.Home, "usage.txt") }
func (c *Config) PauseMarkerPath() string  { return filepath.Join(c.Home, "paused") }
func (c *Config) PauseRecordPath() string  { return filepath.Join(c.Home, "pause.json") }
func (c *Config) StopMarkerPath() string   { return filepath.Join(c.Home, "stop") }
func (c *Config) ResumeSignalPath() string { return filepath.Join(c.Home, "resume") }
func (c *Config) DBPath() string           { return filepath.Join(c.Home, "koan.db") }
