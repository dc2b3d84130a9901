// Package retry provides the backoff policy used for transient generation
// failures. Delays are computed as pure values; the caller owns the sleep, so
// tests can drive retries without real time passing.
package retry

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/config"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // maximum retry attempts after the first failure
	Jitter     float64                 // fraction of the delay randomized, in [0,1]
}

// DefaultPolicy returns the default policy (exponential, 4s initial, 60s cap,
// 4 retries, half-jitter).
func DefaultPolicy() Policy {
	return Policy{
		Mode:       config.RetryBackoffExponential,
		Initial:    config.DefaultBackoffInitial,
		Max:        config.DefaultBackoffMax,
		MaxRetries: config.DefaultMaxRetries,
		Jitter:     0.5,
	}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	if mode != "" {
		switch mode {
		case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
			p.Mode = mode
		default:
			// unknown -> keep default
		}
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the deterministic backoff delay for the given retry attempt
// number (1-based: first retry => 1), before jitter.
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 { // overflow guard for large attempt counts
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// JitteredDelay returns Delay randomized around its base value: the result is
// uniform in [d*(1-Jitter/2), d*(1+Jitter/2)], then clamped to Max. Max is a
// hard bound on any single wait, so jitter may only spread delays below it.
// randFloat must yield values in [0,1); pass nil to use math/rand.
func (p Policy) JitteredDelay(retryCount int, randFloat func() float64) time.Duration {
	d := p.Delay(retryCount)
	if d == 0 || p.Jitter <= 0 {
		return d
	}
	if randFloat == nil {
		randFloat = rand.Float64
	}
	j := p.Jitter
	if j > 1 {
		j = 1
	}
	span := float64(d) * j
	out := time.Duration(float64(d) - span/2 + randFloat()*span)
	if out > p.Max {
		return p.Max
	}
	return out
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("jitter must be within [0,1]")
	}
	return nil
}
