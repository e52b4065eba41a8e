// Package directory implements the list_files tool.
package directory

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreMatcher answers whether a workspace-relative path is covered by
// the root .gitignore. A missing .gitignore yields a matcher that never
// ignores.
type IgnoreMatcher struct {
	matcher gitignore.Matcher
}

// NewIgnoreMatcher loads .gitignore from the workspace root.
func NewIgnoreMatcher(root string) *IgnoreMatcher {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return &IgnoreMatcher{}
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &IgnoreMatcher{matcher: gitignore.NewMatcher(patterns)}
}

// ShouldIgnore reports whether the relative path matches an ignore
// pattern. The .git directory is always ignored.
func (m *IgnoreMatcher) ShouldIgnore(rel string, isDir bool) bool {
	segments := splitPath(rel)
	if len(segments) > 0 && segments[0] == ".git" {
		return true
	}
	if m.matcher == nil {
		return false
	}
	return m.matcher.Match(segments, isDir)
}

func splitPath(rel string) []string {
	var segments []string
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
