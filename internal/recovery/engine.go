// Package recovery implements the self-healing engine: given a
// categorized Code or Resource failure it diagnoses the error, applies a
// fix through the gated file-mutation path, verifies the fix with a
// generated guard test, and re-runs the original tool call. Attempts are
// bounded and an identical diagnosis signature across a fix aborts the
// cycle immediately.
package recovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aide-agent/aide/internal/chat"
	"github.com/aide-agent/aide/internal/executor"
)

// defaultMaxFixAttempts bounds the number of fix cycles per failing call.
const defaultMaxFixAttempts = 3

// FixStatus is the terminal status of one AttemptFix run.
type FixStatus int

const (
	// Fixed means a remedy landed, the guard test passed and the original
	// call succeeded on re-run.
	Fixed FixStatus = iota

	// Failed means the attempt budget or the remedy classes ran out.
	Failed

	// Aborted means the loop guard fired: the diagnosis signature after a
	// fix was byte-identical to the one before it.
	Aborted
)

func (s FixStatus) String() string {
	switch s {
	case Fixed:
		return "fixed"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// FixAttempt records one fix cycle.
type FixAttempt struct {
	Class          RemedyClass
	Targeted       string // signature of the diagnosis this cycle targeted
	Description    string // what the applied patch did
	TestGenerated  bool
	TestPassed     bool
	RetrySucceeded bool
	Err            string
}

// FixOutcome is the result of AttemptFix.
type FixOutcome struct {
	Status   FixStatus
	Attempts []FixAttempt

	// Output is the original call's output when Status is Fixed.
	Output string

	// Summary is a human-readable account of what was tried, for
	// surfacing when the engine gives up.
	Summary string
}

// AppliedFix is a landed patch with its rollback.
type AppliedFix struct {
	Description string
	Rollback    func() error
}

// Fixer applies a remedy for a diagnosis. Implementations must route all
// file mutation through the same gated write path as ordinary tool
// writes.
type Fixer interface {
	Apply(ctx context.Context, diag Diagnosis) (*AppliedFix, error)
}

// Verifier generates and runs the guard test for a diagnosis. generated
// reports whether a test was produced; passed whether it ran clean.
type Verifier interface {
	Verify(ctx context.Context, diag Diagnosis) (generated, passed bool, err error)
}

// Retrier re-runs the original tool call after a verified fix.
type Retrier interface {
	Execute(ctx context.Context, call chat.ToolCall) executor.Outcome
}

// Engine drives the diagnose-fix-verify-retry cycle.
type Engine struct {
	fixer       Fixer
	verifier    Verifier
	retrier     Retrier
	log         *zap.Logger
	maxAttempts int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxAttempts overrides the per-call fix budget.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) { e.maxAttempts = n }
}

// NewEngine creates a recovery engine.
func NewEngine(fixer Fixer, verifier Verifier, retrier Retrier, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		fixer:       fixer,
		verifier:    verifier,
		retrier:     retrier,
		log:         log,
		maxAttempts: defaultMaxFixAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AttemptFix tries to resolve a Code or Resource failure without user
// interaction. A rejected remedy class is never retried; classes rotate
// until the budget or the rotation is exhausted. An identical diagnosis
// signature across a fix aborts immediately regardless of remaining
// budget.
func (e *Engine) AttemptFix(ctx context.Context, cerr *executor.CategorizedError, call chat.ToolCall) FixOutcome {
	if !cerr.AutoFixable() {
		return FixOutcome{
			Status:  Failed,
			Summary: fmt.Sprintf("%s errors are not auto-fixable", cerr.Category),
		}
	}

	diag := Diagnose(cerr)
	tried := make(map[RemedyClass]bool)
	var attempts []FixAttempt

	for len(attempts) < e.maxAttempts {
		if ctx.Err() != nil {
			break
		}

		class := diag.Class
		if tried[class] {
			next, ok := nextClass(tried)
			if !ok {
				break
			}
			class = next
		}
		tried[class] = true

		cycle := Diagnosis{Class: class, Symbol: diag.Symbol, File: diag.File, Message: diag.Message}
		attempt := FixAttempt{Class: class, Targeted: cycle.Signature()}
		e.log.Debug("attempting fix",
			zap.String("call_id", call.ID),
			zap.String("remedy", string(class)),
			zap.String("signature", cycle.Signature()),
		)

		applied, err := e.fixer.Apply(ctx, cycle)
		if err != nil {
			attempt.Err = fmt.Sprintf("apply failed: %v", err)
			attempts = append(attempts, attempt)
			continue
		}
		attempt.Description = applied.Description

		generated, passed, err := e.verifier.Verify(ctx, cycle)
		attempt.TestGenerated = generated
		attempt.TestPassed = passed
		if err != nil || !passed {
			// Rejected fix: roll it back and move to the next remedy class.
			if applied.Rollback != nil {
				if rbErr := applied.Rollback(); rbErr != nil {
					e.log.Warn("rollback failed", zap.String("call_id", call.ID), zap.Error(rbErr))
				}
			}
			if err != nil {
				attempt.Err = fmt.Sprintf("guard test error: %v", err)
			} else {
				attempt.Err = "guard test failed"
			}
			attempts = append(attempts, attempt)
			continue
		}

		out := e.retrier.Execute(ctx, call)
		if out.OK() {
			attempt.RetrySucceeded = true
			attempts = append(attempts, attempt)
			return FixOutcome{
				Status:   Fixed,
				Attempts: attempts,
				Output:   out.Output,
				Summary:  fmt.Sprintf("fixed %s with remedy %s", describeSymbol(diag), class),
			}
		}

		attempt.Err = "original call still failing: " + out.Err.Message
		attempts = append(attempts, attempt)

		after := Diagnose(out.Err)
		if after.Signature() == diag.Signature() {
			e.log.Debug("identical diagnosis after fix, aborting",
				zap.String("call_id", call.ID),
				zap.String("signature", diag.Signature()),
			)
			return FixOutcome{
				Status:   Aborted,
				Attempts: attempts,
				Summary: fmt.Sprintf("aborted: %s reproduced unchanged after remedy %s (tried %d %s)",
					describeSymbol(diag), class, len(attempts), plural(len(attempts))),
			}
		}
		diag = after
	}

	return FixOutcome{
		Status:   Failed,
		Attempts: attempts,
		Summary: fmt.Sprintf("tried %d %s, none resolved %s",
			len(attempts), plural(len(attempts)), describeSymbol(diag)),
	}
}

func plural(n int) string {
	if n == 1 {
		return "remedy"
	}
	return "remedies"
}
