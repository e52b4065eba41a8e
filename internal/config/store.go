package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileSystem abstracts file operations for testability.
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

// osFileSystem implements FileSystem on the real OS.
type osFileSystem struct{}

func (osFileSystem) UserHomeDir() (string, error) { return os.UserHomeDir() }
func (osFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
func (osFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}
func (osFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Store loads the configuration and persists updates. Persistent writes
// serialize on the store's mutex.
type Store struct {
	fs FileSystem

	mu  sync.Mutex
	cfg *Config
}

// NewStore creates a production Store using the real filesystem.
func NewStore() *Store {
	return &Store{fs: osFileSystem{}}
}

// NewStoreWithFS creates a Store with a custom filesystem.
func NewStoreWithFS(fs FileSystem) *Store {
	return &Store{fs: fs}
}

// Load reads ~/.config/aide/config.json merged over defaults. A missing
// file or home directory yields the defaults; a malformed or invalid
// file is an error.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := DefaultConfig()

	path, err := s.path()
	if err != nil {
		s.cfg = cfg
		return cfg, nil
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.cfg = cfg
			return cfg, nil
		}
		return nil, err
	}

	// Unmarshal over the defaults so present keys overwrite them, even
	// with explicit zero values, while missing keys keep their defaults.
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s.cfg = cfg
	return cfg, nil
}

// AddTrustedPath appends a trusted path and persists the configuration.
// Duplicate entries are ignored.
func (s *Store) AddTrustedPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg == nil {
		s.cfg = DefaultConfig()
	}
	if slices.Contains(s.cfg.TrustedPaths, path) {
		return nil
	}
	s.cfg.TrustedPaths = append(s.cfg.TrustedPaths, path)
	return s.save()
}

// save writes the current configuration back. Callers hold s.mu.
func (s *Store) save() error {
	path, err := s.path()
	if err != nil {
		return fmt.Errorf("locating config file: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := s.fs.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (s *Store) path() (string, error) {
	home, err := s.fs.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", ConfigDir, ConfigFile), nil
}
