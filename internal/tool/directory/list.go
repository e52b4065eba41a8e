package directory

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/tool"
	"github.com/aide-agent/aide/internal/tool/errutil"
	"github.com/aide-agent/aide/internal/tool/path"
)

// maxListResults caps a single listing so a model cannot drown itself in
// a node_modules tree that slipped past .gitignore.
const maxListResults = 1000

// ListTool lists workspace files, honoring .gitignore.
type ListTool struct {
	resolver *path.Resolver
}

// NewListTool creates the list_files tool.
func NewListTool(resolver *path.Resolver) *ListTool {
	return &ListTool{resolver: resolver}
}

type listRequest struct {
	Path           string `json:"path"`
	Recursive      bool   `json:"recursive"`
	IncludeIgnored bool   `json:"include_ignored"`
}

func (t *ListTool) Name() string { return "list_files" }

func (t *ListTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        "list_files",
		Description: "List files and directories. Entries matching .gitignore are skipped unless include_ignored is set.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":            {Type: tool.TypeString, Description: "Directory to list, default workspace root"},
				"recursive":       {Type: tool.TypeBoolean, Description: "Descend into subdirectories"},
				"include_ignored": {Type: tool.TypeBoolean, Description: "Include gitignored entries"},
			},
		},
	}
}

func (t *ListTool) Access(args map[string]any) tool.Access {
	target := t.resolver.Root()
	if p, ok := args["path"].(string); ok && p != "" {
		target = t.resolver.Abs(p)
	}
	return tool.Access{Op: permission.OpRead, Path: target}
}

func (t *ListTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	var req listRequest
	if err := tool.DecodeArgs(args, &req); err != nil {
		return "", err
	}
	if req.Path == "" {
		req.Path = "."
	}

	abs := t.resolver.Abs(req.Path)
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", errutil.ErrFileMissing, abs)
		}
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}

	ignore := NewIgnoreMatcher(t.resolver.Root())
	var entries []string
	truncated := false

	walk := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p == abs {
			return nil
		}
		rel := t.resolver.Rel(p)
		if !req.IncludeIgnored && ignore.ShouldIgnore(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if len(entries) >= maxListResults {
			truncated = true
			return filepath.SkipAll
		}
		if d.IsDir() {
			entries = append(entries, rel+"/")
			if !req.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		entries = append(entries, rel)
		return nil
	}

	if err := filepath.WalkDir(abs, walk); err != nil {
		return "", fmt.Errorf("listing %s: %w", abs, err)
	}

	sort.Strings(entries)
	out := strings.Join(entries, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (truncated at %d entries)", maxListResults)
	}
	if out == "" {
		out = "(empty)"
	}
	return out, nil
}
