package notes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/kart-io/los-insight/pkg/utils/json"
)

// FileStore keeps every note in one JSON object file. The file is loaded
// fully on open and rewritten fully on every Put.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	notes map[string]string
}

// NewFileStore loads path. A missing file is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, notes: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("notes: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.notes); err != nil {
		return nil, fmt.Errorf("notes: decode %s: %w", path, err)
	}
	// 文件内容为 null 时解码结果是 nil map
	if s.notes == nil {
		s.notes = make(map[string]string)
	}
	return s, nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, patientID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notes[patientID], nil
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, patientID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.notes)
	next[patientID] = text
	if err := s.flush(next); err != nil {
		return err
	}
	s.notes = next
	return nil
}

// All implements Store.
func (s *FileStore) All(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.notes), nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// flush 先写临时文件再 rename，避免写入中途崩溃留下半个文件
func (s *FileStore) flush(notes map[string]string) error {
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return fmt.Errorf("notes: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("notes: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("notes: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("notes: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("notes: replace %s: %w", s.path, err)
	}
	return nil
}
