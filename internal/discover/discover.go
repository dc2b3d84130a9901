// Package discover asks the generation service for new error topics and
// appends them to the discovered catalog file. Discovery only ever grows the
// catalog; the curated file is never written.
package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/catalog"
	pipeerrors "github.com/Sachin-Mamoru/error-fix-engine/internal/errors"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/llm"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/logfields"
)

// categories is the rotating hint wheel: each run focuses the request on one
// area so consecutive runs spread across the tooling landscape instead of
// re-suggesting the same popular errors.
var categories = []string{
	"containerization and orchestration (Docker, Kubernetes, Helm)",
	"version control (Git, GitHub, GitLab CI)",
	"JavaScript tooling (Node.js, npm, yarn, webpack, vite)",
	"Python tooling (pip, venv, pytest, Django, Flask)",
	"databases (PostgreSQL, MySQL, MongoDB, Redis)",
	"cloud CLIs and IaC (AWS CLI, terraform, gcloud, azure)",
	"build systems and compilers (make, gcc, gradle, maven, cargo)",
	"web servers and networking (nginx, curl, TLS, DNS)",
}

// Discoverer runs one discovery pass.
type Discoverer struct {
	Client       llm.Client
	TopicsPerRun int

	Now func() time.Time
}

func (d *Discoverer) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// discoveredTopic mirrors the service's response schema.
type discoveredTopic struct {
	Tool        string   `json:"tool"`
	ErrorCode   string   `json:"error_code"`
	ErrorName   string   `json:"error_name"`
	Description string   `json:"description"`
	Context     string   `json:"context"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// Discover requests new topics and returns the ones not already present in
// existing (matched by derived slug). The result is not persisted; callers
// pass it to Append.
func (d *Discoverer) Discover(ctx context.Context, existing []catalog.Topic) ([]catalog.Topic, error) {
	category := categories[d.now().YearDay()%len(categories)]
	prompt := buildDiscoveryPrompt(category, d.TopicsPerRun, existing)

	raw, err := d.Client.Generate(ctx, prompt)
	if err != nil {
		return nil, pipeerrors.GenerationFailed("discovery", err)
	}
	parsed, err := parseTopicList(raw)
	if err != nil {
		return nil, pipeerrors.GenerationFailed("discovery", err)
	}

	known := make(map[string]bool, len(existing))
	for _, t := range existing {
		known[t.Slug] = true
	}

	var fresh []catalog.Topic
	for _, dt := range parsed {
		if strings.TrimSpace(dt.Tool) == "" || strings.TrimSpace(dt.ErrorName) == "" {
			continue
		}
		topic := catalog.Topic{
			Tool:        dt.Tool,
			ErrorCode:   dt.ErrorCode,
			ErrorName:   dt.ErrorName,
			Description: dt.Description,
			Context:     dt.Context,
			Category:    dt.Category,
			Tags:        dt.Tags,
		}
		topic.Slug = catalog.DeriveSlug(topic)
		if topic.Slug == "" || known[topic.Slug] {
			continue
		}
		known[topic.Slug] = true
		fresh = append(fresh, topic)
	}

	slog.Info("Discovery run finished", slog.String("category", category),
		slog.Int("suggested", len(parsed)), slog.Int("new", len(fresh)))
	return fresh, nil
}

// parseTopicList extracts the JSON array from the response body. The service
// frequently wraps JSON in Markdown code fences or leads with prose, so the
// parser cuts from the first '[' to the last ']'.
func parseTopicList(raw string) ([]discoveredTopic, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}
	var out []discoveredTopic
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("parse topic list: %w", err)
	}
	return out, nil
}

func buildDiscoveryPrompt(category string, count int, existing []catalog.Topic) string {
	names := make([]string, 0, len(existing))
	for _, t := range existing {
		names = append(names, t.ErrorName)
	}
	return fmt.Sprintf(`List %d real, commonly searched developer errors in the area of %s.

Respond with ONLY a JSON array. Each element must be an object with keys:
"tool", "error_code" (empty string if none), "error_name", "description",
"context", "category", "tags" (array of strings).

Rules:
- Real errors engineers actually hit and search for, not invented ones.
- error_name is the message as it appears on screen, trimmed to one line.
- description is one plain sentence for a search result snippet.
- Exclude anything already covered: %s
`, count, category, strings.Join(names, "; "))
}

// Append merges fresh topics into the discovered catalog file, creating it if
// needed. Topics already present in the file (by slug) are skipped. Returns
// the number of topics actually written.
func Append(path string, fresh []catalog.Topic) (int, error) {
	var file struct {
		Errors []catalog.Topic `yaml:"errors"`
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return 0, pipeerrors.CatalogMalformed(path, err)
		}
	case os.IsNotExist(err):
		// first discovery run
	default:
		return 0, pipeerrors.CatalogMalformed(path, err)
	}

	present := make(map[string]bool, len(file.Errors))
	for _, t := range file.Errors {
		present[catalog.DeriveSlug(t)] = true
	}

	added := 0
	for _, t := range fresh {
		if present[t.Slug] {
			continue
		}
		present[t.Slug] = true
		file.Errors = append(file.Errors, t)
		added++
	}
	if added == 0 {
		return 0, nil
	}

	out, err := yaml.Marshal(&file)
	if err != nil {
		return 0, pipeerrors.StateWriteError(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, pipeerrors.StateWriteError(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return 0, pipeerrors.StateWriteError(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, pipeerrors.StateWriteError(err)
	}
	slog.Info("Discovered topics appended", logfields.Path(path), slog.Int("added", added))
	return added, nil
}
