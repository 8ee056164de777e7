package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all propsweep configuration.
type Config struct {
	Name string `yaml:"name"`

	// Remote listing API
	API APIConfig `yaml:"api"`

	// Retrying fetcher policy
	Retry RetryConfig `yaml:"retry"`

	// Strategy catalog and aggregator settings
	Sweep SweepConfig `yaml:"sweep"`

	// Reconciliation report
	Report ReportConfig `yaml:"report"`

	// Entity export and run history
	Export ExportConfig `yaml:"export"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the transport to the listing API.
type APIConfig struct {
	BaseURL     string `yaml:"base_url"`
	Token       string `yaml:"token"`
	GraphQLPath string `yaml:"graphql_path"` // empty disables the alternate protocol
	Timeout     string `yaml:"timeout"`
	UserAgent   string `yaml:"user_agent"`
	HTTP2       bool   `yaml:"http2"`

	// Path used for the pre-flight credential check.
	PreflightPath string `yaml:"preflight_path"`
}

// ReportConfig configures the reconciliation report.
type ReportConfig struct {
	Expected int    `yaml:"expected"` // 0 = no expectation declared
	DOCXPath string `yaml:"docx_path"`
}

// ExportConfig configures entity export and run history.
type ExportConfig struct {
	Dir       string   `yaml:"dir"`
	Formats   []string `yaml:"formats"` // json, csv
	History   bool     `yaml:"history"`
	HistoryDB string   `yaml:"history_db"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "propsweep",

		API: APIConfig{
			BaseURL:       "https://api.example-pms.com/v1",
			GraphQLPath:   "/graphql",
			Timeout:       "30s",
			UserAgent:     "propsweep/1.0",
			HTTP2:         true,
			PreflightPath: "/me",
		},

		Retry: RetryConfig{
			MaxAttempts:    8,
			MinThrottle:    "250ms",
			BackoffStep:    "2s",
			BackoffCeiling: "30s",
			AttemptTimeout: "45s",
		},

		Sweep: DefaultSweepConfig(),

		Export: ExportConfig{
			Dir:       "out",
			Formats:   []string{"json", "csv"},
			History:   true,
			HistoryDB: ".propsweep/history.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   ".propsweep/logs/propsweep.log",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults plus environment when there is no file
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if token := os.Getenv("PROPSWEEP_API_TOKEN"); token != "" {
		c.API.Token = token
	}
	if u := os.Getenv("PROPSWEEP_BASE_URL"); u != "" {
		c.API.BaseURL = u
	}
	if v := os.Getenv("PROPSWEEP_EXPECTED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Report.Expected = n
		}
	}
	if path := os.Getenv("PROPSWEEP_HISTORY_DB"); path != "" {
		c.Export.HistoryDB = path
	}
	if level := os.Getenv("PROPSWEEP_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetAPITimeout returns the per-request HTTP timeout.
func (c *Config) GetAPITimeout() time.Duration {
	return parseDuration(c.API.Timeout, 30*time.Second)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url not configured (set PROPSWEEP_BASE_URL)")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}
	if c.API.Token == "" {
		return fmt.Errorf("API token not configured (set PROPSWEEP_API_TOKEN or api.token)")
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	if err := c.Sweep.Validate(); err != nil {
		return err
	}
	if c.Report.Expected < 0 {
		return fmt.Errorf("report.expected must be >= 0")
	}
	for _, f := range c.Export.Formats {
		if f != "json" && f != "csv" {
			return fmt.Errorf("invalid export format: %s (valid: json, csv)", f)
		}
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
