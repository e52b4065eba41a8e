// Package shell implements the shell tool: workspace-rooted command
// execution with timeout and bounded output.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/tool"
	"github.com/aide-agent/aide/internal/tool/errutil"
	"github.com/aide-agent/aide/internal/tool/path"
)

const (
	// defaultTimeout bounds commands that specify none.
	defaultTimeout = 120 * time.Second

	// maxOutputBytes caps combined output fed back to the model.
	maxOutputBytes = 64 * 1024
)

// Tool runs commands with the workspace (or a subdirectory) as working
// directory. Policy is not enforced here; the runner gates dispatch.
type Tool struct {
	resolver *path.Resolver
}

// NewTool creates the shell tool.
func NewTool(resolver *path.Resolver) *Tool {
	return &Tool{resolver: resolver}
}

type shellRequest struct {
	Command        string            `json:"command"`
	WorkingDir     string            `json:"working_dir"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	Env            map[string]string `json:"env"`
}

func (t *Tool) Name() string { return "shell" }

func (t *Tool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        "shell",
		Description: "Run a shell command in the workspace. Output is truncated past 64KB.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"command":         {Type: tool.TypeString, Description: "Command line to run via sh -c"},
				"working_dir":     {Type: tool.TypeString, Description: "Working directory, default workspace root"},
				"timeout_seconds": {Type: tool.TypeInteger, Description: "Timeout, default 120"},
				"env":             {Type: tool.TypeObject, Description: "Extra environment variables"},
			},
			Required: []string{"command"},
		},
	}
}

func (t *Tool) Access(args map[string]any) tool.Access {
	target := t.resolver.Root()
	if wd, ok := args["working_dir"].(string); ok && wd != "" {
		target = t.resolver.Abs(wd)
	}
	return tool.Access{Op: permission.OpExecute, Path: target}
}

func (t *Tool) Execute(ctx context.Context, args map[string]any) (string, error) {
	var req shellRequest
	if err := tool.DecodeArgs(args, &req); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Command) == "" {
		return "", errutil.ErrEmptyCommand
	}
	if req.TimeoutSeconds < 0 {
		return "", fmt.Errorf("timeout_seconds must be >= 0, got %d", req.TimeoutSeconds)
	}

	wd := t.resolver.Root()
	if req.WorkingDir != "" {
		wd = t.resolver.Abs(req.WorkingDir)
		info, err := os.Stat(wd)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("working directory %s does not exist", wd)
		}
	}

	timeout := defaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", req.Command)
	cmd.Dir = wd
	cmd.Env = os.Environ()
	for k, v := range req.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := truncate(buf.String())

	if runCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w after %s: %s", errutil.ErrShellTimeout, timeout, req.Command)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("command exited with code %d: %s", exitErr.ExitCode(), output)
		}
		return "", fmt.Errorf("running %q: %w", req.Command, err)
	}
	return output, nil
}

// Run satisfies the recovery engine's command runner, so fixes reuse the
// same bounded execution path as the shell tool.
func (t *Tool) Run(ctx context.Context, name string, cmdArgs ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, cmdArgs...)
	cmd.Dir = t.resolver.Root()
	cmd.Env = os.Environ()

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return truncate(buf.String()), err
}

func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "\n... (output truncated)"
}
