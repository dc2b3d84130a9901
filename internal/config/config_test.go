package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
site:
  base_url: https://example.com
  title: Example
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "config/errors.yaml", cfg.Paths.Catalog)
	assert.Equal(t, "content", cfg.Paths.Content)
	assert.Equal(t, "site", cfg.Paths.Output)
	assert.Equal(t, DefaultModels, cfg.Generation.Models)
	assert.Equal(t, DefaultMaxRetries, cfg.Generation.MaxRetries)
	assert.Equal(t, RetryBackoffExponential, cfg.Generation.Backoff)
	assert.Equal(t, DefaultInterRequestDelay, cfg.Generation.InterRequestDelay)
	assert.Equal(t, DefaultTargetWordsMin, cfg.Generation.TargetWordsMin)
	assert.Equal(t, DefaultTargetWordsMax, cfg.Generation.TargetWordsMax)
	assert.Equal(t, DefaultBatchSize, cfg.Generation.BatchSize)
	assert.Equal(t, DefaultBatchPause, cfg.Generation.BatchPause)
	assert.Equal(t, 2*time.Hour, cfg.Daemon.Interval)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_BASE_URL", "https://errors.example.org")
	path := writeConfig(t, `
site:
  base_url: ${TEST_BASE_URL}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://errors.example.org", cfg.Site.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "site: [not a mapping")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Site.BaseURL = "https://example.com"
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"relative base url", func(c *Config) { c.Site.BaseURL = "example.com/errors" }, true},
		{"output equals content", func(c *Config) { c.Paths.Output = c.Paths.Content }, true},
		{"negative retries", func(c *Config) { c.Generation.MaxRetries = -1 }, true},
		{"unknown backoff", func(c *Config) { c.Generation.Backoff = "quadratic" }, true},
		{"inverted word range", func(c *Config) {
			c.Generation.TargetWordsMin = 2000
			c.Generation.TargetWordsMax = 1000
		}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := base()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeRetryBackoff(t *testing.T) {
	assert.Equal(t, RetryBackoffFixed, NormalizeRetryBackoff(" Fixed "))
	assert.Equal(t, RetryBackoffLinear, NormalizeRetryBackoff("linear"))
	assert.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff("EXPONENTIAL"))
	assert.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("bogus"))
}

func TestNormalizeLogLevelAndFormat(t *testing.T) {
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel("DEBUG"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("unknown"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("json"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat("???"))
}
