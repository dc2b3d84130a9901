package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

type stateFile struct {
	Generated map[string]Record `yaml:"generated"`
}

// FileStore implements Store backed by a single YAML file. Every Put rewrites
// the file through a temp-file rename so an interrupted process never leaves
// a truncated state file behind.
type FileStore struct {
	path    string
	mu      sync.RWMutex
	records map[string]Record
}

// NewFileStore loads existing state from path, or starts empty when the file
// does not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, records: make(map[string]Record)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var file stateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	if file.Generated != nil {
		fs.records = file.Generated
	}
	return fs, nil
}

func (fs *FileStore) Get(slug string) (Record, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	rec, ok := fs.records[slug]
	return rec, ok
}

// Put records a successful generation and persists the whole file atomically.
func (fs *FileStore) Put(slug string, rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.records[slug] = rec
	return fs.saveLocked()
}

func (fs *FileStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.records)
}

// Slugs returns all recorded slugs in sorted order.
func (fs *FileStore) Slugs() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]string, 0, len(fs.records))
	for slug := range fs.records {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

func (fs *FileStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(stateFile{Generated: fs.records})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
