package articles

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	articlesSubdir = "errors"
	delimiter      = "---\n"
)

// FSStore keeps one markdown file per slug under <root>/errors/<slug>.md.
// Writes go through a temp file and rename, so a reader never observes a
// partially written article.
type FSStore struct {
	root string
}

// NewFSStore creates the store rooted at the content directory.
func NewFSStore(root string) (*FSStore, error) {
	dir := filepath.Join(root, articlesSubdir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create article directory %s: %w", dir, err)
	}
	return &FSStore{root: root}, nil
}

// Path returns the file path an article for slug is (or would be) stored at.
func (s *FSStore) Path(slug string) string {
	return filepath.Join(s.root, articlesSubdir, slug+".md")
}

// Put durably writes the article for its slug, replacing any previous
// version. The write is atomic per slug.
func (s *FSStore) Put(a Article) error {
	if a.Slug == "" {
		return fmt.Errorf("article slug is empty")
	}

	front, err := yaml.Marshal(&a)
	if err != nil {
		return fmt.Errorf("marshal article frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.Write(front)
	buf.WriteString(delimiter)
	buf.WriteString("\n")
	buf.WriteString(a.Body)
	if !strings.HasSuffix(a.Body, "\n") {
		buf.WriteString("\n")
	}

	path := s.Path(a.Slug)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write article temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace article file: %w", err)
	}
	return nil
}

// Get loads the article for slug. The boolean is false when no article
// exists.
func (s *FSStore) Get(slug string) (Article, bool, error) {
	data, err := os.ReadFile(s.Path(slug))
	if err != nil {
		if os.IsNotExist(err) {
			return Article{}, false, nil
		}
		return Article{}, false, fmt.Errorf("read article %s: %w", slug, err)
	}

	a, err := parse(data)
	if err != nil {
		return Article{}, false, fmt.Errorf("parse article %s: %w", slug, err)
	}
	a.Slug = slug
	return a, true, nil
}

// Exists reports whether an article file is present for slug.
func (s *FSStore) Exists(slug string) bool {
	_, err := os.Stat(s.Path(slug))
	return err == nil
}

// List loads every stored article, sorted by slug for deterministic builds.
func (s *FSStore) List() ([]Article, error) {
	dir := filepath.Join(s.root, articlesSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read article directory: %w", err)
	}

	var slugs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(name, ".md"))
	}
	sort.Strings(slugs)

	out := make([]Article, 0, len(slugs))
	for _, slug := range slugs {
		a, ok, err := s.Get(slug)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func parse(data []byte) (Article, error) {
	text := string(data)
	if !strings.HasPrefix(text, delimiter) {
		return Article{}, fmt.Errorf("missing frontmatter delimiter")
	}
	rest := text[len(delimiter):]
	end := strings.Index(rest, delimiter)
	if end < 0 {
		return Article{}, fmt.Errorf("unterminated frontmatter block")
	}

	var a Article
	if err := yaml.Unmarshal([]byte(rest[:end]), &a); err != nil {
		return Article{}, fmt.Errorf("unmarshal frontmatter: %w", err)
	}
	a.Body = strings.TrimPrefix(rest[end+len(delimiter):], "\n")
	return a, nil
}
