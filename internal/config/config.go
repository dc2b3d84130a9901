// Package config loads and validates the pipeline configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Paths      PathsConfig      `yaml:"paths"`
	Generation GenerationConfig `yaml:"generation"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Daemon     DaemonConfig     `yaml:"daemon"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig holds site-wide metadata used by the builder.
type SiteConfig struct {
	BaseURL     string `yaml:"base_url"`
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
}

// PathsConfig holds file and directory locations for all persisted artifacts.
type PathsConfig struct {
	Catalog    string `yaml:"catalog"`              // topic catalog (errors.yaml)
	Discovered string `yaml:"discovered,omitempty"` // discovered topics appended by the discover stage
	Content    string `yaml:"content"`              // article store root
	Output     string `yaml:"output"`               // built site root
	State      string `yaml:"state"`                // generation state file
	Events     string `yaml:"events,omitempty"`     // sqlite run-event log; empty disables it
}

// GenerationConfig controls the external generation service and retry behavior.
type GenerationConfig struct {
	Models            []string         `yaml:"models,omitempty"`      // candidate list, first reachable wins
	APIKeyEnv         string           `yaml:"api_key_env,omitempty"` // env var holding the API key
	CallTimeout       time.Duration    `yaml:"call_timeout"`
	MaxRetries        int              `yaml:"max_retries"` // retries after the first attempt
	Backoff           RetryBackoffMode `yaml:"backoff"`
	BackoffInitial    time.Duration    `yaml:"backoff_initial"`
	BackoffMax        time.Duration    `yaml:"backoff_max"`
	RateLimitWait     time.Duration    `yaml:"rate_limit_wait"`     // flat wait after an explicit rate-limit signal
	InterRequestDelay time.Duration    `yaml:"inter_request_delay"` // minimum spacing between outbound calls
	TargetWordsMin    int              `yaml:"target_words_min"`
	TargetWordsMax    int              `yaml:"target_words_max"`
	MaxPerRun         int              `yaml:"max_per_run"` // 0 = unbounded
	BatchSize         int              `yaml:"batch_size"`  // articles generated between batch pauses; -1 disables
	BatchPause        time.Duration    `yaml:"batch_pause"` // cool-down after each full batch
}

// DiscoveryConfig controls LLM-driven topic discovery.
type DiscoveryConfig struct {
	Enabled      bool `yaml:"enabled"`
	TopicsPerRun int  `yaml:"topics_per_run"`
}

// DaemonConfig controls unattended scheduled runs.
type DaemonConfig struct {
	Interval     time.Duration `yaml:"interval"`
	WatchCatalog bool          `yaml:"watch_catalog"`
	MetricsAddr  string        `yaml:"metrics_addr,omitempty"` // Prometheus /metrics listener; empty disables it
}

// LoggingConfig controls process-wide log output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if present; existing process env always wins.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
