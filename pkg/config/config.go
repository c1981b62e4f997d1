package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration. Secrets and addresses come
// from CLI flags / environment (see cmd/feedgram); this file covers the
// rest: schedule, feed fetching, delivery and dedup storage.
type Config struct {
	Server struct {
		Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
		WebhookPath string        `yaml:"webhook_path" json:"webhook_path" jsonschema:"default=/webhook,description=Path receiving bot platform updates"`
	} `yaml:"server" json:"server" jsonschema:"description=Webhook server configuration"`

	Schedule struct {
		Spec     string `yaml:"spec" json:"spec" jsonschema:"default=0 10-20 * * 1-5,description=Cron expression for feed checks"`
		Timezone string `yaml:"timezone" json:"timezone" jsonschema:"default=Europe/Moscow,description=Timezone the cron expression is evaluated in"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Feed check schedule"`

	Feed struct {
		Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Feed fetch timeout"`
		Limit     int           `yaml:"limit" json:"limit" jsonschema:"default=3,minimum=1,description=Most-recent entries examined per cycle"`
		UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Feedgram/1.0,description=User agent for feed requests"`
	} `yaml:"feed" json:"feed" jsonschema:"description=Feed fetching configuration"`

	Dedup struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"description=SQLite DSN for the sent-items store; empty keeps dedup in memory"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=2,description=Maximum number of open connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"dedup" json:"dedup" jsonschema:"description=Dedup store configuration"`
}

// Load reads configuration from a YAML file. An empty path returns the
// defaults, so running without a config file is fine.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// expand environment variables
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.setDefaults()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// setDefaults fills in zero values
func (c *Config) setDefaults() {
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Server.WebhookPath == "" {
		c.Server.WebhookPath = "/webhook"
	}

	if c.Schedule.Spec == "" {
		c.Schedule.Spec = "0 10-20 * * 1-5" // hourly, business hours, weekdays
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Europe/Moscow"
	}

	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 30 * time.Second
	}
	if c.Feed.Limit == 0 {
		c.Feed.Limit = 3
	}
	if c.Feed.UserAgent == "" {
		c.Feed.UserAgent = "Feedgram/1.0"
	}

	if c.Dedup.MaxOpenConns == 0 {
		c.Dedup.MaxOpenConns = 2
	}
	if c.Dedup.ConnMaxLifetime == 0 {
		c.Dedup.ConnMaxLifetime = 3600
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if !strings.HasPrefix(cfg.Server.WebhookPath, "/") {
		return fmt.Errorf("server.webhook_path must start with /")
	}

	if cfg.Feed.Limit < 1 {
		return fmt.Errorf("feed.limit must be at least 1")
	}
	if cfg.Feed.Timeout < time.Second {
		return fmt.Errorf("feed timeout must be at least 1 second")
	}

	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone is invalid: %w", err)
	}

	return nil
}

// Location returns the timezone the schedule runs in. Load has already
// validated it, so errors here mean tzdata changed under us.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// GetServerConfig returns webhook server configuration
func (c *Config) GetServerConfig() (path string, timeout time.Duration) {
	return c.Server.WebhookPath, c.Server.Timeout
}
