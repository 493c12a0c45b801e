package storefront

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Slot keys.
const (
	KeyAuthToken    = "authToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyCart         = "cart"
)

// Slots is a small persistent key-value store for the session.
type Slots interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(keys ...string) error
}

// FileSlots keeps every slot in one JSON object on disk.
type FileSlots struct {
	mu   sync.Mutex
	path string
}

// NewFileSlots returns slots backed by the file at path.
func NewFileSlots(path string) *FileSlots {
	return &FileSlots{path: path}
}

// DefaultSlotsPath is $XDG_CONFIG_HOME/bookshop/session.json, or the
// platform equivalent.
func DefaultSlotsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(dir, "bookshop", "session.json"), nil
}

func (f *FileSlots) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (f *FileSlots) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load()
	if err != nil {
		return err
	}
	m[key] = value
	return f.save(m)
}

func (f *FileSlots) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(m, k)
	}
	return f.save(m)
}

func (f *FileSlots) load() (map[string]string, error) {
	m := make(map[string]string)
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slots: %w", err)
	}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	return m, nil
}

// save replaces the file atomically.
func (f *FileSlots) save(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create slots dir: %w", err)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write slots: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("write slots: %w", err)
	}
	return nil
}

// MemorySlots is an in-process Slots.
type MemorySlots struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{m: make(map[string]string)}
}

func (s *MemorySlots) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemorySlots) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemorySlots) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
	return nil
}
