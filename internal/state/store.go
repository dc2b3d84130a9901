// Package state persists which topics have been generated and with what
// content fingerprint. The store is the source of truth for reconciliation:
// a slug present here with fingerprint F implies a matching article exists in
// the article store, because records are only written after the article write
// is durable.
package state

import "time"

// Record is the stored outcome of one successful generation.
type Record struct {
	Fingerprint string    `yaml:"fingerprint" json:"fingerprint"`
	GeneratedAt time.Time `yaml:"generated_at" json:"generated_at"`
}

// Store is the generation-state store. Implementations must make Put durable
// before returning: the generator relies on that ordering guarantee.
type Store interface {
	Get(slug string) (Record, bool)
	Put(slug string, rec Record) error
	Len() int
	Slugs() []string
}
