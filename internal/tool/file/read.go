package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/tool"
	"github.com/aide-agent/aide/internal/tool/errutil"
	"github.com/aide-agent/aide/internal/tool/path"
)

// ReadTool reads text files from the workspace, paginated by line.
type ReadTool struct {
	resolver *path.Resolver
	maxSize  int64
}

// NewReadTool creates the read_file tool.
func NewReadTool(resolver *path.Resolver, maxSize int64) *ReadTool {
	return &ReadTool{resolver: resolver, maxSize: maxSize}
}

type readRequest struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

func (t *ReadTool) Name() string { return "read_file" }

func (t *ReadTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        "read_file",
		Description: "Read a text file. Returns the whole file, or a line range when offset/limit are given.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":   {Type: tool.TypeString, Description: "Path to the file, relative to the workspace or absolute"},
				"offset": {Type: tool.TypeInteger, Description: "First line to return, 0-based"},
				"limit":  {Type: tool.TypeInteger, Description: "Maximum number of lines to return"},
			},
			Required: []string{"path"},
		},
	}
}

func (t *ReadTool) Access(args map[string]any) tool.Access {
	return tool.Access{Op: permission.OpRead, Path: argPath(t.resolver, args)}
}

func (t *ReadTool) Execute(_ context.Context, args map[string]any) (string, error) {
	var req readRequest
	if err := tool.DecodeArgs(args, &req); err != nil {
		return "", err
	}
	if req.Offset < 0 {
		return "", errutil.ErrInvalidOffset
	}
	if req.Limit < 0 {
		return "", errutil.ErrInvalidLimit
	}

	abs := t.resolver.Abs(req.Path)
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", errutil.ErrFileMissing, abs)
		}
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", errutil.ErrIsDirectory, abs)
	}
	if info.Size() > t.maxSize {
		return "", fmt.Errorf("%w: %s (size %d, limit %d)", errutil.ErrTooLarge, abs, info.Size(), t.maxSize)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", abs, err)
	}
	if isBinaryContent(data) {
		return "", fmt.Errorf("%w: %s", errutil.ErrBinaryFile, abs)
	}

	content := string(data)
	if req.Offset == 0 && req.Limit == 0 {
		return content, nil
	}

	lines := strings.Split(content, "\n")
	if req.Offset >= len(lines) {
		return "", nil
	}
	end := len(lines)
	if req.Limit > 0 && req.Offset+req.Limit < end {
		end = req.Offset + req.Limit
	}
	page := strings.Join(lines[req.Offset:end], "\n")
	if end < len(lines) {
		page += fmt.Sprintf("\n... (%d more lines)", len(lines)-end)
	}
	return page, nil
}

// argPath pulls the path argument out of a raw map for gating, before
// full decoding happens.
func argPath(resolver *path.Resolver, args map[string]any) string {
	if p, ok := args["path"].(string); ok && p != "" {
		return resolver.Abs(p)
	}
	return resolver.Root()
}
