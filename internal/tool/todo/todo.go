// Package todo gives the model a scratchpad task list for multi-step
// work. The list lives in memory for the session; writes replace it
// wholesale.
package todo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/tool"
	"github.com/aide-agent/aide/internal/tool/errutil"
)

// Status is the lifecycle state of one item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// marker renders the checklist glyph for a status.
func (s Status) marker() string {
	switch s {
	case StatusInProgress:
		return "[~]"
	case StatusCompleted:
		return "[x]"
	case StatusCancelled:
		return "[-]"
	default:
		return "[ ]"
	}
}

// Item is one task on the list.
type Item struct {
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// Store holds the session's todo list. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items []Item
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Items returns a copy of the current list.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Replace swaps the whole list.
func (s *Store) Replace(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]Item, len(items))
	copy(s.items, items)
}

// ReadTool lists the current todos.
type ReadTool struct {
	store *Store
}

// NewReadTool creates the read side over a shared store.
func NewReadTool(store *Store) *ReadTool {
	return &ReadTool{store: store}
}

func (t *ReadTool) Name() string { return "read_todos" }

func (t *ReadTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        t.Name(),
		Description: "Read the current todo list.",
		Parameters:  &tool.Schema{Type: tool.TypeObject},
	}
}

func (t *ReadTool) Access(map[string]any) tool.Access {
	return tool.Access{Op: permission.OpRead}
}

func (t *ReadTool) Execute(context.Context, map[string]any) (string, error) {
	items := t.store.Items()
	if len(items) == 0 {
		return "No todos.", nil
	}
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s %s\n", item.Status.marker(), item.Description)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// WriteTool replaces the todo list.
type WriteTool struct {
	store *Store
}

// NewWriteTool creates the write side over a shared store.
func NewWriteTool(store *Store) *WriteTool {
	return &WriteTool{store: store}
}

func (t *WriteTool) Name() string { return "write_todos" }

func (t *WriteTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        t.Name(),
		Description: "Replace the todo list. Pass the full list, including unchanged items.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"todos": {
					Type:        tool.TypeArray,
					Description: "The complete todo list.",
					Items: &tool.Schema{
						Type: tool.TypeObject,
						Properties: map[string]*tool.Schema{
							"description": {Type: tool.TypeString, Description: "What the task is."},
							"status": {
								Type: tool.TypeString,
								Enum: []string{
									string(StatusPending), string(StatusInProgress),
									string(StatusCompleted), string(StatusCancelled),
								},
							},
						},
						Required: []string{"description", "status"},
					},
				},
			},
			Required: []string{"todos"},
		},
	}
}

// The list is in-memory state, not a filesystem mutation, so nothing
// beyond the always-allowed workspace read needs clearing.
func (t *WriteTool) Access(map[string]any) tool.Access {
	return tool.Access{Op: permission.OpRead}
}

type writeRequest struct {
	Todos []Item `json:"todos"`
}

func (t *WriteTool) Execute(_ context.Context, args map[string]any) (string, error) {
	var req writeRequest
	if err := tool.DecodeArgs(args, &req); err != nil {
		return "", err
	}
	for i, item := range req.Todos {
		if item.Description == "" {
			return "", fmt.Errorf("todo %d: %w", i, errutil.ErrEmptyDescription)
		}
		if !item.Status.valid() {
			return "", fmt.Errorf("todo %d: %w: %q", i, errutil.ErrInvalidStatus, item.Status)
		}
	}
	t.store.Replace(req.Todos)

	plural := "s"
	if len(req.Todos) == 1 {
		plural = ""
	}
	return fmt.Sprintf("Updated todo list (%d item%s)", len(req.Todos), plural), nil
}
