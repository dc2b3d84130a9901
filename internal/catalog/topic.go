// Package catalog loads the declarative topic catalog that drives article
// generation. Topics are immutable once loaded for a given run.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Topic is one error definition from the catalog.
type Topic struct {
	Tool        string   `yaml:"tool"`
	ErrorCode   string   `yaml:"error_code,omitempty"`
	ErrorName   string   `yaml:"error_name"`
	Description string   `yaml:"description,omitempty"`
	Context     string   `yaml:"context,omitempty"`
	Category    string   `yaml:"category,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Related     []string `yaml:"related,omitempty"`

	// Slug is derived at load time and is the stable identifier for the
	// topic, its article and its page.
	Slug string `yaml:"-"`
}

// DeriveSlug computes a topic's stable identifier without loading it through
// the catalog. Discovery uses it to de-duplicate suggestions before they are
// written to the discovered file.
func DeriveSlug(t Topic) string {
	return t.deriveSlug()
}

// deriveSlug computes the stable identifier: tool plus error code when one
// exists, otherwise tool plus error name.
func (t Topic) deriveSlug() string {
	base := t.ErrorCode
	if base == "" {
		base = t.ErrorName
	}
	return Slugify(t.Tool + "-" + base)
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases the input, folds diacritics to their base letters and
// collapses every non-alphanumeric run into a single hyphen.
func Slugify(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
