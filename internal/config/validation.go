package config

import (
	"net/url"
	"strings"

	pipeerrors "github.com/Sachin-Mamoru/error-fix-engine/internal/errors"
)

// Validate checks invariants that defaults cannot repair. It assumes
// ApplyDefaults has already run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Site.BaseURL) == "" {
		return pipeerrors.ConfigRequired("site.base_url")
	}
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return pipeerrors.ValidationFailed("site.base_url", "must be an absolute URL")
	}

	if c.Paths.Catalog == "" {
		return pipeerrors.ConfigRequired("paths.catalog")
	}
	if c.Paths.Output == c.Paths.Content {
		return pipeerrors.ValidationFailed("paths.output", "must differ from paths.content")
	}

	g := c.Generation
	if g.MaxRetries < 0 {
		return pipeerrors.ValidationFailed("generation.max_retries", "cannot be negative")
	}
	if NormalizeRetryBackoff(string(g.Backoff)) == "" {
		return pipeerrors.ValidationFailed("generation.backoff", "must be fixed, linear or exponential")
	}
	if g.TargetWordsMin > g.TargetWordsMax {
		return pipeerrors.ValidationFailed("generation.target_words_min", "cannot exceed target_words_max")
	}

	return nil
}
