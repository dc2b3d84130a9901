package config

import "time"

// Default generation parameters. The model candidate list is probed in order
// at startup; the first reachable model is used for the whole run. Retry and
// spacing defaults are sized for the generation service's free tier
// (15 requests/minute): 15s between articles leaves headroom for retries
// inside the same minute window, and the flat 65s rate-limit wait guarantees
// the next attempt lands in a fresh quota window.
const (
	DefaultAPIKeyEnv         = "GEMINI_API_KEY"
	DefaultCallTimeout       = 2 * time.Minute
	DefaultMaxRetries        = 4 // 5 attempts total
	DefaultBackoffInitial    = 4 * time.Second
	DefaultBackoffMax        = 60 * time.Second
	DefaultRateLimitWait     = 65 * time.Second
	DefaultInterRequestDelay = 15 * time.Second
	DefaultTargetWordsMin    = 900
	DefaultTargetWordsMax    = 1200
	DefaultBatchSize         = 10
	DefaultBatchPause        = 70 * time.Second
)

// DefaultModels lists generation model candidates in preference order.
// Later entries are available to all API keys including brand-new free tier.
var DefaultModels = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Error Fix Engine"
	}
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = "https://errorfix.dev"
	}

	if c.Paths.Catalog == "" {
		c.Paths.Catalog = "config/errors.yaml"
	}
	if c.Paths.Content == "" {
		c.Paths.Content = "content"
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "site"
	}
	if c.Paths.State == "" {
		c.Paths.State = "content/generated.yaml"
	}

	g := &c.Generation
	if len(g.Models) == 0 {
		g.Models = append(g.Models, DefaultModels...)
	}
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = DefaultAPIKeyEnv
	}
	if g.CallTimeout <= 0 {
		g.CallTimeout = DefaultCallTimeout
	}
	if g.MaxRetries == 0 {
		g.MaxRetries = DefaultMaxRetries
	}
	if g.Backoff == "" {
		g.Backoff = RetryBackoffExponential
	}
	if g.BackoffInitial <= 0 {
		g.BackoffInitial = DefaultBackoffInitial
	}
	if g.BackoffMax <= 0 {
		g.BackoffMax = DefaultBackoffMax
	}
	if g.RateLimitWait <= 0 {
		g.RateLimitWait = DefaultRateLimitWait
	}
	if g.InterRequestDelay <= 0 {
		g.InterRequestDelay = DefaultInterRequestDelay
	}
	if g.TargetWordsMin <= 0 {
		g.TargetWordsMin = DefaultTargetWordsMin
	}
	if g.TargetWordsMax <= 0 {
		g.TargetWordsMax = DefaultTargetWordsMax
	}
	if g.BatchSize == 0 {
		g.BatchSize = DefaultBatchSize
	}
	if g.BatchPause <= 0 {
		g.BatchPause = DefaultBatchPause
	}

	if c.Discovery.TopicsPerRun <= 0 {
		c.Discovery.TopicsPerRun = 30
	}

	if c.Daemon.Interval <= 0 {
		c.Daemon.Interval = 2 * time.Hour
	}

	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
}
