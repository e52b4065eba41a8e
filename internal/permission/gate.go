// Package permission implements the gate every filesystem and shell
// operation passes before dispatch. Reads are always allowed; mutations
// consult trusted paths, the session cache, then the user. The default
// on any failure to decide is deny.
package permission

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Operation is what the tool wants to do with a path.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpExecute
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Decision is the user's answer to a permission prompt.
type Decision int

const (
	// AllowOnce permits this operation only; nothing is cached.
	AllowOnce Decision = iota

	// DenyOnce rejects this operation only; nothing is cached.
	DenyOnce

	// AllowAlways permits and caches (path, operation) for the session,
	// and persists the path as trusted.
	AllowAlways

	// DenyAlways rejects and caches the denial for the session.
	DenyAlways
)

// Request is what a prompt shows the user.
type Request struct {
	Path      string
	Operation Operation

	// Detail is tool-provided context, e.g. the shell command text.
	Detail string
}

// Prompter asks the user to decide a request.
type Prompter interface {
	Ask(ctx context.Context, req Request) (Decision, error)
}

// TrustStore persists always-allowed paths across sessions.
type TrustStore interface {
	AddTrustedPath(path string) error
}

// DeniedError reports a rejected operation. Its text carries the
// "permission denied" signature the error categorizer keys on.
type DeniedError struct {
	Path      string
	Operation Operation
	Reason    string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s %s (%s)", e.Operation, e.Path, e.Reason)
}

type sessionKey struct {
	path string
	op   Operation
}

// Gate decides whether operations proceed.
type Gate struct {
	workspace string
	trusted   *TrustedPaths
	prompter  Prompter
	store     TrustStore
	log       *zap.Logger

	mu      sync.RWMutex
	session map[sessionKey]bool // true allows, false denies

	// promptMu serializes prompts so concurrent checks on the same key
	// cannot both reach the user before one answer lands in the cache.
	promptMu sync.Mutex
}

// NewGate creates a gate rooted at the canonicalized workspace path.
// store may be nil when trusted paths should not persist.
func NewGate(workspace string, trusted *TrustedPaths, prompter Prompter, store TrustStore, log *zap.Logger) *Gate {
	return &Gate{
		workspace: canonicalize(workspace),
		trusted:   trusted,
		prompter:  prompter,
		store:     store,
		log:       log,
		session:   make(map[sessionKey]bool),
	}
}

// Check decides one operation on one path. A nil return allows it. Paths
// are canonicalized before any rule applies, so `../` traversal and
// symlinks cannot dodge the workspace boundary.
func (g *Gate) Check(ctx context.Context, path string, op Operation) error {
	if path == "" {
		path = g.workspace
	}
	canonical := canonicalize(path)

	// Reads never touch trust state. Only mutations are decided.
	if op == OpRead {
		return nil
	}

	if g.trusted != nil && g.trusted.Match(canonical) {
		g.log.Debug("allowed by trusted path",
			zap.String("path", canonical),
			zap.Stringer("op", op),
		)
		return nil
	}

	key := sessionKey{path: canonical, op: op}
	g.mu.RLock()
	allowed, cached := g.session[key]
	g.mu.RUnlock()
	if cached {
		if allowed {
			return nil
		}
		return &DeniedError{Path: canonical, Operation: op, Reason: "denied earlier this session"}
	}

	return g.prompt(ctx, canonical, op, path)
}

func (g *Gate) prompt(ctx context.Context, canonical string, op Operation, original string) error {
	if g.prompter == nil {
		return &DeniedError{Path: canonical, Operation: op, Reason: "no prompt available"}
	}

	g.promptMu.Lock()
	defer g.promptMu.Unlock()

	// A concurrent check may have answered while we waited for the lock.
	key := sessionKey{path: canonical, op: op}
	g.mu.RLock()
	allowed, cached := g.session[key]
	g.mu.RUnlock()
	if cached {
		if allowed {
			return nil
		}
		return &DeniedError{Path: canonical, Operation: op, Reason: "denied earlier this session"}
	}

	detail := ""
	if original != canonical {
		detail = fmt.Sprintf("requested as %s", original)
	}
	decision, err := g.prompter.Ask(ctx, Request{Path: canonical, Operation: op, Detail: detail})
	if err != nil {
		return &DeniedError{Path: canonical, Operation: op, Reason: fmt.Sprintf("prompt failed: %v", err)}
	}

	switch decision {
	case AllowOnce:
		return nil
	case DenyOnce:
		return &DeniedError{Path: canonical, Operation: op, Reason: "denied by user"}
	case AllowAlways:
		g.mu.Lock()
		g.session[sessionKey{path: canonical, op: op}] = true
		g.mu.Unlock()
		if g.trusted != nil {
			g.trusted.Add(canonical)
		}
		if g.store != nil {
			if err := g.store.AddTrustedPath(canonical); err != nil {
				g.log.Warn("failed to persist trusted path",
					zap.String("path", canonical), zap.Error(err))
			}
		}
		return nil
	case DenyAlways:
		g.mu.Lock()
		g.session[sessionKey{path: canonical, op: op}] = false
		g.mu.Unlock()
		return &DeniedError{Path: canonical, Operation: op, Reason: "denied by user for this session"}
	default:
		return &DeniedError{Path: canonical, Operation: op, Reason: fmt.Sprintf("unrecognized decision %d", decision)}
	}
}
