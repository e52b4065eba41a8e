package permission

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// TrustedPaths holds the user-configured paths outside the workspace that
// tools may touch without prompting. Patterns support tilde expansion and
// doublestar globs; literal entries match themselves and their
// descendants.
type TrustedPaths struct {
	home string

	mu       sync.RWMutex
	patterns []string
}

// NewTrustedPaths builds the matcher from config entries. home is the
// user's home directory for tilde expansion.
func NewTrustedPaths(home string, patterns []string) *TrustedPaths {
	expanded := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		expanded = append(expanded, expandTilde(home, p))
	}
	return &TrustedPaths{home: home, patterns: expanded}
}

// Add registers another trusted pattern for the rest of the session.
func (t *TrustedPaths) Add(pattern string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.patterns = append(t.patterns, expandTilde(t.home, pattern))
}

// Match reports whether the canonical path is covered by a trusted entry.
func (t *TrustedPaths) Match(canonical string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, pattern := range t.patterns {
		if isGlob(pattern) {
			if ok, err := doublestar.Match(pattern, canonical); err == nil && ok {
				return true
			}
			continue
		}
		if isWithin(canonicalize(pattern), canonical) {
			return true
		}
	}
	return false
}

func expandTilde(home, pattern string) string {
	if pattern == "~" {
		return home
	}
	if strings.HasPrefix(pattern, "~/") {
		return filepath.Join(home, pattern[2:])
	}
	return pattern
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// canonicalize makes a path absolute, cleans it and resolves symlinks.
// When the path itself does not exist yet the nearest existing ancestor
// is resolved instead, so a pending write inside a symlinked directory
// still canonicalizes to its real location.
func canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}

	dir, base := filepath.Split(filepath.Clean(abs))
	var tail []string
	for {
		tail = append([]string{base}, tail...)
		dir = filepath.Clean(dir)
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...)
		}
		if dir == string(filepath.Separator) || dir == "." {
			break
		}
		dir, base = filepath.Split(dir)
	}
	return filepath.Clean(abs)
}

// isWithin reports whether path sits at or below root. Both arguments
// must already be canonical.
func isWithin(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
