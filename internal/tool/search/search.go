// Package search implements the search_content tool.
package search

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/tool"
	"github.com/aide-agent/aide/internal/tool/directory"
	"github.com/aide-agent/aide/internal/tool/errutil"
	"github.com/aide-agent/aide/internal/tool/path"
)

const (
	// maxMatches caps the result set per search.
	maxMatches = 200

	// maxLineLength truncates pathological lines in the output.
	maxLineLength = 250

	// binaryProbeSize is how much of each file is sniffed for null bytes
	// before matching.
	binaryProbeSize = 8000
)

// Tool searches file contents under the workspace with a regular
// expression, honoring .gitignore.
type Tool struct {
	resolver *path.Resolver
}

// NewTool creates the search_content tool.
func NewTool(resolver *path.Resolver) *Tool {
	return &Tool{resolver: resolver}
}

type searchRequest struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
	Glob    string `json:"glob"`
}

func (t *Tool) Name() string { return "search_content" }

func (t *Tool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        "search_content",
		Description: "Search file contents with a Go regular expression. Returns file:line matches.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"pattern": {Type: tool.TypeString, Description: "Regular expression to search for"},
				"path":    {Type: tool.TypeString, Description: "Directory to search, default workspace root"},
				"glob":    {Type: tool.TypeString, Description: "Glob filter, e.g. *.go or cmd/**/*.go"},
			},
			Required: []string{"pattern"},
		},
	}
}

func (t *Tool) Access(args map[string]any) tool.Access {
	target := t.resolver.Root()
	if p, ok := args["path"].(string); ok && p != "" {
		target = t.resolver.Abs(p)
	}
	return tool.Access{Op: permission.OpRead, Path: target}
}

func (t *Tool) Execute(ctx context.Context, args map[string]any) (string, error) {
	var req searchRequest
	if err := tool.DecodeArgs(args, &req); err != nil {
		return "", err
	}
	if req.Pattern == "" {
		return "", fmt.Errorf("%w: pattern must not be empty", errutil.ErrInvalidPattern)
	}
	re, err := regexp.Compile(req.Pattern)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errutil.ErrInvalidPattern, err)
	}
	if req.Glob != "" && !doublestar.ValidatePattern(req.Glob) {
		return "", fmt.Errorf("%w: bad glob %q", errutil.ErrInvalidPattern, req.Glob)
	}

	if req.Path == "" {
		req.Path = "."
	}
	abs := t.resolver.Abs(req.Path)
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", errutil.ErrFileMissing, abs)
		}
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}

	ignore := directory.NewIgnoreMatcher(t.resolver.Root())
	var matches []string
	truncated := false

	walk := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel := t.resolver.Rel(p)
		if ignore.ShouldIgnore(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if req.Glob != "" && !matchGlob(req.Glob, rel, d.Name()) {
			return nil
		}

		hits, err := searchFile(p, rel, re)
		if err != nil {
			// Unreadable files are skipped, not fatal.
			return nil
		}
		matches = append(matches, hits...)
		if len(matches) >= maxMatches {
			matches = matches[:maxMatches]
			truncated = true
			return filepath.SkipAll
		}
		return nil
	}

	if err := filepath.WalkDir(abs, walk); err != nil {
		return "", fmt.Errorf("searching %s: %w", abs, err)
	}

	if len(matches) == 0 {
		return "No matches found.", nil
	}
	out := strings.Join(matches, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (truncated at %d matches)", maxMatches)
	}
	return out, nil
}

// matchGlob applies the glob filter. Patterns with a path separator
// match the workspace-relative path, so `cmd/**/*.go` works; bare
// patterns like `*.go` match the file name wherever it sits.
func matchGlob(glob, rel, base string) bool {
	target := base
	if strings.Contains(glob, "/") {
		target = rel
	}
	ok, err := doublestar.Match(glob, target)
	return err == nil && ok
}

func searchFile(abs, rel string, re *regexp.Regexp) ([]string, error) {
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	probe := make([]byte, binaryProbeSize)
	n, _ := f.Read(probe)
	for i := range n {
		if probe[i] == 0 {
			return nil, nil
		}
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}

	var hits []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "..."
		}
		hits = append(hits, fmt.Sprintf("%s:%d: %s", rel, lineNo, line))
	}
	return hits, scanner.Err()
}
