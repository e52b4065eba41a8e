package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFS struct {
	mu    sync.Mutex
	home  string
	files map[string][]byte

	homeErr error
	readErr error
}

func newFakeFS() *fakeFS {
	return &fakeFS{home: "/home/dev", files: make(map[string][]byte)}
}

func (f *fakeFS) UserHomeDir() (string, error) {
	if f.homeErr != nil {
		return "", f.homeErr
	}
	return f.home, nil
}

func (f *fakeFS) ReadFile(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	data, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (f *fakeFS) WriteFile(path string, data []byte, _ os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
	return nil
}

func (f *fakeFS) MkdirAll(string, os.FileMode) error { return nil }

func configPath(home string) string {
	return filepath.Join(home, ".config", ConfigDir, ConfigFile)
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	store := NewStoreWithFS(newFakeFS())

	cfg, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	fs := newFakeFS()
	fs.files[configPath(fs.home)] = []byte(`{"model": "gemini-2.5-pro", "auto_fix": false}`)
	store := NewStoreWithFS(fs)

	cfg, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	assert.False(t, cfg.AutoFix, "explicit false overrides the default")
	assert.Equal(t, 3, cfg.MaxFixAttempts, "missing keys keep defaults")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	fs := newFakeFS()
	fs.files[configPath(fs.home)] = []byte(`{model:`)
	store := NewStoreWithFS(fs)

	_, err := store.Load()

	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	fs := newFakeFS()
	fs.files[configPath(fs.home)] = []byte(`{"max_fix_attempts": 0}`)
	store := NewStoreWithFS(fs)

	_, err := store.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_fix_attempts")
}

func TestAddTrustedPathPersists(t *testing.T) {
	fs := newFakeFS()
	store := NewStoreWithFS(fs)
	_, err := store.Load()
	require.NoError(t, err)

	require.NoError(t, store.AddTrustedPath("/srv/shared"))

	written := fs.files[configPath(fs.home)]
	require.NotEmpty(t, written)
	assert.Contains(t, string(written), "/srv/shared")

	// Reload sees the persisted entry.
	cfg, err := NewStoreWithFS(fs).Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.TrustedPaths, "/srv/shared")
}

func TestAddTrustedPathDeduplicates(t *testing.T) {
	fs := newFakeFS()
	store := NewStoreWithFS(fs)
	_, err := store.Load()
	require.NoError(t, err)

	require.NoError(t, store.AddTrustedPath("/srv/shared"))
	require.NoError(t, store.AddTrustedPath("/srv/shared"))

	cfg, err := NewStoreWithFS(fs).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/shared"}, cfg.TrustedPaths)
}

func TestConcurrentAddTrustedPath(t *testing.T) {
	fs := newFakeFS()
	store := NewStoreWithFS(fs)
	_, err := store.Load()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, store.AddTrustedPath(filepath.Join("/srv", string(rune('a'+n)))))
		}(i)
	}
	wg.Wait()

	cfg, err := NewStoreWithFS(fs).Load()
	require.NoError(t, err)
	assert.Len(t, cfg.TrustedPaths, 8)
}

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}
