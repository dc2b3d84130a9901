package catalog

import (
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	pipeerrors "github.com/Sachin-Mamoru/error-fix-engine/internal/errors"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/logfields"
)

type catalogFile struct {
	Errors []Topic `yaml:"errors"`
}

// Load parses the catalog file and, when discoveredPath is non-empty and
// exists, appends discovered topics after the curated ones. Catalog order is
// preserved; it determines work-list order downstream.
//
// A malformed entry is fatal: the reconciler must only ever see valid topics.
// Duplicate slugs keep the first occurrence.
func Load(path, discoveredPath string) ([]Topic, error) {
	topics, err := loadFile(path, true)
	if err != nil {
		return nil, err
	}

	if discoveredPath != "" {
		discovered, err := loadFile(discoveredPath, false)
		if err != nil {
			return nil, err
		}
		topics = append(topics, discovered...)
	}

	seen := make(map[string]bool, len(topics))
	out := topics[:0]
	for _, t := range topics {
		if seen[t.Slug] {
			slog.Warn("Duplicate catalog slug, keeping first occurrence", logfields.Slug(t.Slug))
			continue
		}
		seen[t.Slug] = true
		out = append(out, t)
	}

	slog.Info("Topic catalog loaded", slog.Int("topics", len(out)), logfields.Path(path))
	return out, nil
}

// loadFile reads one catalog file. When required is false a missing file is
// treated as empty (the discovered file does not exist until the first
// discovery run).
func loadFile(path string, required bool) ([]Topic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if !required {
				return nil, nil
			}
			return nil, pipeerrors.CatalogNotFound(path)
		}
		return nil, pipeerrors.CatalogMalformed(path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, pipeerrors.CatalogMalformed(path, err)
	}

	for i := range file.Errors {
		t := &file.Errors[i]
		if strings.TrimSpace(t.Tool) == "" {
			return nil, pipeerrors.CatalogEntryInvalid(i, "tool is required")
		}
		if strings.TrimSpace(t.ErrorName) == "" {
			return nil, pipeerrors.CatalogEntryInvalid(i, "error_name is required")
		}
		t.Slug = t.deriveSlug()
		if t.Slug == "" {
			return nil, pipeerrors.CatalogEntryInvalid(i, "entry produces an empty slug")
		}
	}

	return file.Errors, nil
}
