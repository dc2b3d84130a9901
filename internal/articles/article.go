// Package articles stores generated articles, one markdown file per slug with
// a YAML frontmatter block carrying the article metadata. The generator is
// the only writer; the site builder is the only reader.
package articles

import (
	"strings"
	"time"
)

// Article is the generated content for one topic.
type Article struct {
	Slug        string    `yaml:"-"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Tool        string    `yaml:"tool,omitempty"`
	WordCount   int       `yaml:"word_count"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Fingerprint string    `yaml:"fingerprint"`

	// Body is the raw markdown as returned by the generation service.
	Body string `yaml:"-"`
}

// CountWords returns the whitespace-separated word count of s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
