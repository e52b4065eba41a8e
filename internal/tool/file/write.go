package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/tool"
	"github.com/aide-agent/aide/internal/tool/errutil"
	"github.com/aide-agent/aide/internal/tool/path"
)

// WriteTool creates new files. Overwriting goes through edit_file so the
// model cannot clobber content it has not read.
type WriteTool struct {
	resolver *path.Resolver
	maxSize  int64
}

// NewWriteTool creates the write_file tool.
func NewWriteTool(resolver *path.Resolver, maxSize int64) *WriteTool {
	return &WriteTool{resolver: resolver, maxSize: maxSize}
}

type writeRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *WriteTool) Name() string { return "write_file" }

func (t *WriteTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        "write_file",
		Description: "Create a new file with the given content. Fails if the file already exists.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":    {Type: tool.TypeString, Description: "Path for the new file"},
				"content": {Type: tool.TypeString, Description: "File content"},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *WriteTool) Access(args map[string]any) tool.Access {
	return tool.Access{Op: permission.OpWrite, Path: argPath(t.resolver, args)}
}

func (t *WriteTool) Execute(_ context.Context, args map[string]any) (string, error) {
	var req writeRequest
	if err := tool.DecodeArgs(args, &req); err != nil {
		return "", err
	}

	abs := t.resolver.Abs(req.Path)
	if _, err := os.Stat(abs); err == nil {
		return "", fmt.Errorf("%w: %s", errutil.ErrFileExists, abs)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}

	data := []byte(req.Content)
	if isBinaryContent(data) {
		return "", fmt.Errorf("%w: %s", errutil.ErrBinaryFile, abs)
	}
	if int64(len(data)) > t.maxSize {
		return "", fmt.Errorf("%w: %s (size %d, limit %d)", errutil.ErrTooLarge, abs, len(data), t.maxSize)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("creating parent directories for %s: %w", abs, err)
	}
	if err := writeFileAtomic(abs, data, 0o644); err != nil {
		return "", err
	}

	return fmt.Sprintf("Created %s (%d bytes)", t.resolver.Rel(abs), len(data)), nil
}
