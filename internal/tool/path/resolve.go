// Package path resolves tool-supplied paths against the workspace root.
package path

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver resolves paths relative to a canonical workspace root.
type Resolver struct {
	root string
}

// NewResolver creates a resolver for an already-canonicalized root.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the workspace root.
func (r *Resolver) Root() string {
	return r.root
}

// CanonicalizeRoot makes a workspace root absolute and resolves its
// symlinks. The root must exist and be a directory.
func CanonicalizeRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving workspace root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving workspace root %s: %w", abs, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("resolving workspace root %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace root %s is not a directory", resolved)
	}
	return resolved, nil
}

// Abs resolves a tool-supplied path to absolute. Relative paths resolve
// against the workspace root; the result is cleaned but not required to
// stay inside the root, the permission gate owns that decision.
func (r *Resolver) Abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(r.root, path))
}

// Rel renders a path for display: workspace-relative with forward slashes
// when inside the root, absolute otherwise.
func (r *Resolver) Rel(abs string) string {
	if abs == r.root {
		return "."
	}
	if strings.HasPrefix(abs, r.root+string(filepath.Separator)) {
		rel, err := filepath.Rel(r.root, abs)
		if err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return abs
}

// Within reports whether abs sits at or below the workspace root.
func (r *Resolver) Within(abs string) bool {
	return abs == r.root || strings.HasPrefix(abs, r.root+string(filepath.Separator))
}
