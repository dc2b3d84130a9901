package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// fingerprintFields is the canonical serialization of the generation-relevant
// subset of a topic. Category and tags only affect site presentation, never
// the generated article, so they are excluded: editing them must not trigger
// regeneration.
type fingerprintFields struct {
	Tool        string   `json:"tool"`
	ErrorCode   string   `json:"error_code"`
	ErrorName   string   `json:"error_name"`
	Description string   `json:"description"`
	Context     string   `json:"context"`
	Related     []string `json:"related"`
}

// Fingerprint returns a deterministic hash over the topic fields that feed
// the generation prompt. A stored article whose fingerprint differs from the
// catalog's current value is considered stale.
func Fingerprint(t Topic) string {
	f := fingerprintFields{
		Tool:        t.Tool,
		ErrorCode:   t.ErrorCode,
		ErrorName:   t.ErrorName,
		Description: t.Description,
		Context:     t.Context,
		Related:     t.Related,
	}
	if f.Related == nil {
		f.Related = []string{}
	}

	// json.Marshal of a struct emits fields in declaration order; combined
	// with the fixed field set this keeps the hash stable across runs.
	data, err := json.Marshal(f)
	if err != nil {
		// Marshaling a plain struct of strings cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
