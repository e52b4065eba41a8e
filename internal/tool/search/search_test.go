package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aide-agent/aide/internal/tool/errutil"
	"github.com/aide-agent/aide/internal/tool/path"
)

func fixtureWorkspace(t *testing.T) *path.Resolver {
	t.Helper()
	root, err := path.CanonicalizeRoot(t.TempDir())
	require.NoError(t, err)

	files := map[string]string{
		".gitignore":    "vendor/\n",
		"main.go":       "package main\n\nfunc main() {\n\thandleRequest()\n}\n",
		"handler.go":    "package main\n\nfunc handleRequest() {}\n",
		"README.md":       "Run handleRequest to start.\n",
		"vendor/dep.go":   "func handleRequest() { panic(\"vendored\") }\n",
		"cmd/tool/run.go": "package tool\n\nfunc handleRequest() {}\n",
	}
	for rel, content := range files {
		abs := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	return path.NewResolver(root)
}

func TestSearchFindsMatchesWithLineNumbers(t *testing.T) {
	tool := NewTool(fixtureWorkspace(t))

	out, err := tool.Execute(context.Background(), map[string]any{"pattern": "handleRequest"})

	require.NoError(t, err)
	assert.Contains(t, out, "main.go:4:")
	assert.Contains(t, out, "handler.go:3:")
	assert.Contains(t, out, "README.md:1:")
	assert.NotContains(t, out, "vendor", "gitignored files are not searched")
}

func TestSearchGlobFilter(t *testing.T) {
	tool := NewTool(fixtureWorkspace(t))

	out, err := tool.Execute(context.Background(), map[string]any{
		"pattern": "handleRequest", "glob": "*.go",
	})

	require.NoError(t, err)
	assert.Contains(t, out, "main.go")
	assert.NotContains(t, out, "README.md")
}

func TestSearchBareGlobMatchesNestedFiles(t *testing.T) {
	tool := NewTool(fixtureWorkspace(t))

	out, err := tool.Execute(context.Background(), map[string]any{
		"pattern": "handleRequest", "glob": "*.go",
	})

	require.NoError(t, err)
	assert.Contains(t, out, "cmd/tool/run.go", "bare globs match the file name at any depth")
}

func TestSearchDoublestarGlobSpansDirectories(t *testing.T) {
	tool := NewTool(fixtureWorkspace(t))

	out, err := tool.Execute(context.Background(), map[string]any{
		"pattern": "handleRequest", "glob": "cmd/**/*.go",
	})

	require.NoError(t, err)
	assert.Contains(t, out, "cmd/tool/run.go")
	assert.NotContains(t, out, "main.go")
	assert.NotContains(t, out, "handler.go")
}

func TestSearchInvalidGlob(t *testing.T) {
	tool := NewTool(fixtureWorkspace(t))

	_, err := tool.Execute(context.Background(), map[string]any{
		"pattern": "handleRequest", "glob": "[unclosed",
	})

	assert.ErrorIs(t, err, errutil.ErrInvalidPattern)
}

func TestSearchRegexPattern(t *testing.T) {
	tool := NewTool(fixtureWorkspace(t))

	out, err := tool.Execute(context.Background(), map[string]any{"pattern": `func \w+\(`})

	require.NoError(t, err)
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "handler.go")
}

func TestSearchNoMatches(t *testing.T) {
	tool := NewTool(fixtureWorkspace(t))

	out, err := tool.Execute(context.Background(), map[string]any{"pattern": "nonexistent_symbol"})

	require.NoError(t, err)
	assert.Equal(t, "No matches found.", out)
}

func TestSearchInvalidPattern(t *testing.T) {
	tool := NewTool(fixtureWorkspace(t))

	_, err := tool.Execute(context.Background(), map[string]any{"pattern": "([unclosed"})

	assert.ErrorIs(t, err, errutil.ErrInvalidPattern)
}

func TestSearchSkipsBinaryFiles(t *testing.T) {
	resolver := fixtureWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(resolver.Root(), "blob.bin"),
		[]byte{'h', 'a', 'n', 'd', 'l', 'e', 0x00, 0x01}, 0o644))
	tool := NewTool(resolver)

	out, err := tool.Execute(context.Background(), map[string]any{"pattern": "handle"})

	require.NoError(t, err)
	assert.NotContains(t, out, "blob.bin")
}
