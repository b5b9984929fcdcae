// Package audit provides the append-only audit log store: one JSON object
// per line, created on first write. The core depends on nothing beyond
// "append a mapping".
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
)

// Store appends audit entries.
type Store interface {
	Append(entry map[string]any) error
}

// FileStore writes newline-delimited JSON to a single file, serializing
// appends so concurrent runs never interleave partial lines.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store writing to path. The file and its parent
// directory are created on first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append implements Store.
func (s *FileStore) Append(entry map[string]any) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "audit: marshal entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "audit: create log dir")
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "audit: open log file")
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return eris.Wrap(err, "audit: write entry")
	}
	return nil
}

// Nop discards entries; used by tests and dry runs.
type Nop struct{}

// Append implements Store.
func (Nop) Append(map[string]any) error { return nil }
