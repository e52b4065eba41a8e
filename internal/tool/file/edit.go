package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/tool"
	"github.com/aide-agent/aide/internal/tool/errutil"
	"github.com/aide-agent/aide/internal/tool/path"
)

// EditTool replaces an exact snippet in an existing file. The occurrence
// count must match what the model expects, so a stale snippet cannot
// silently edit the wrong place.
type EditTool struct {
	resolver *path.Resolver
	maxSize  int64
}

// NewEditTool creates the edit_file tool.
func NewEditTool(resolver *path.Resolver, maxSize int64) *EditTool {
	return &EditTool{resolver: resolver, maxSize: maxSize}
}

type editRequest struct {
	Path                 string `json:"path"`
	Before               string `json:"before"`
	After                string `json:"after"`
	ExpectedReplacements int    `json:"expected_replacements"`
}

func (t *EditTool) Name() string { return "edit_file" }

func (t *EditTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        "edit_file",
		Description: "Edit an existing file by replacing an exact snippet.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":                  {Type: tool.TypeString, Description: "Path to the file"},
				"before":                {Type: tool.TypeString, Description: "Exact text to find"},
				"after":                 {Type: tool.TypeString, Description: "Replacement text"},
				"expected_replacements": {Type: tool.TypeInteger, Description: "How many occurrences must exist, default 1"},
			},
			Required: []string{"path", "before", "after"},
		},
	}
}

func (t *EditTool) Access(args map[string]any) tool.Access {
	return tool.Access{Op: permission.OpWrite, Path: argPath(t.resolver, args)}
}

func (t *EditTool) Execute(_ context.Context, args map[string]any) (string, error) {
	var req editRequest
	if err := tool.DecodeArgs(args, &req); err != nil {
		return "", err
	}
	if req.Before == "" {
		return "", fmt.Errorf("%w: before must not be empty", errutil.ErrSnippetNotFound)
	}
	expected := req.ExpectedReplacements
	if expected == 0 {
		expected = 1
	}

	abs := t.resolver.Abs(req.Path)
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", errutil.ErrFileMissing, abs)
		}
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.Size() > t.maxSize {
		return "", fmt.Errorf("%w: %s", errutil.ErrTooLarge, abs)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", abs, err)
	}
	if isBinaryContent(data) {
		return "", fmt.Errorf("%w: %s", errutil.ErrBinaryFile, abs)
	}
	before := string(data)

	count := strings.Count(before, req.Before)
	if count == 0 {
		return "", fmt.Errorf("%w: %s", errutil.ErrSnippetNotFound, abs)
	}
	if count != expected {
		return "", fmt.Errorf("%w: expected %d, found %d in %s",
			errutil.ErrExpectedReplacementsMismatch, expected, count, abs)
	}

	after := strings.ReplaceAll(before, req.Before, req.After)
	if err := writeFileAtomic(abs, []byte(after), info.Mode().Perm()); err != nil {
		return "", err
	}

	rel := t.resolver.Rel(abs)
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: rel,
		ToFile:   rel,
		Context:  3,
	})
	if err != nil {
		diff = ""
	}
	return fmt.Sprintf("Edited %s (%d replacement%s)\n%s", rel, count, pluralS(count), diff), nil
}

func pluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
