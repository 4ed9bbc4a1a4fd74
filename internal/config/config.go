package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	instance *Config
	once     sync.Once
)

// Config is the YAML configuration shared by every binary
type Config struct {
	Eklima struct {
		BaseURL        string        `yaml:"base_url"`
		Timeout        time.Duration `yaml:"timeout"`
		TimeSerieType  string        `yaml:"timeserie_type"`
		CircuitBreaker struct {
			MaxFailures uint32        `yaml:"max_failures"`
			OpenTimeout time.Duration `yaml:"open_timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"eklima"`
	Query struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"query"`
	Collect struct {
		Stations     []string      `yaml:"stations"`
		Elements     []string      `yaml:"elements"`
		Hours        []int         `yaml:"hours"`
		BackfillDays int           `yaml:"backfill_days"`
		Interval     time.Duration `yaml:"interval"`
	} `yaml:"collect"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Stream   string `yaml:"stream"`
	} `yaml:"redis"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log LogConfig `yaml:"log"`
}

// LogConfig selects the log handler. Env "dev" gets colored text output,
// anything else JSON.
type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// SlogLevel parses Level, defaulting to info
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q (allowed: debug, info, warn, error)", l.Level)
	}
}

// Load reads the YAML file at configPath once. A .env file in the working
// directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		if envErr := godotenv.Load(); envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
			err = fmt.Errorf("failed to load .env: %w", envErr)
			return
		}

		instance = &Config{}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file %s: %w", configPath, readErr)
			return
		}

		if parseErr := yaml.Unmarshal(data, instance); parseErr != nil {
			err = fmt.Errorf("failed to parse config: %w", parseErr)
			return
		}

		instance.applyDefaults()

		if validateErr := instance.validate(); validateErr != nil {
			err = validateErr
			return
		}
	})

	return instance, err
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

// Location resolves query.timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Query.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Query.Timezone)
}

func (c *Config) applyDefaults() {
	if c.Eklima.Timeout == 0 {
		c.Eklima.Timeout = 60 * time.Second
	}
	if c.Eklima.TimeSerieType == "" {
		c.Eklima.TimeSerieType = "2"
	}
	if c.Eklima.CircuitBreaker.MaxFailures > 0 && c.Eklima.CircuitBreaker.OpenTimeout == 0 {
		c.Eklima.CircuitBreaker.OpenTimeout = 30 * time.Second
	}
	if c.Collect.BackfillDays == 0 {
		c.Collect.BackfillDays = 7
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
}

// ValidateCollect checks what only the collector needs. Load leaves it out so
// that a config without a collect plan still serves the CLI and the server.
func (c *Config) ValidateCollect() error {
	if len(c.Collect.Elements) == 0 {
		return fmt.Errorf("collect.elements cannot be empty")
	}
	return nil
}

func (c *Config) validate() error {
	for _, h := range c.Collect.Hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("collect.hours: %d is not an hour of day", h)
		}
	}
	if c.Collect.BackfillDays < 0 {
		return fmt.Errorf("collect.backfill_days cannot be negative")
	}
	if c.Collect.Interval < 0 {
		return fmt.Errorf("collect.interval cannot be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("query.timezone: %w", err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}
