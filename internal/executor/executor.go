// Package executor runs one tool call to completion, categorizing
// failures and retrying transient network errors transparently. The
// state machine only ever sees the terminal result.
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aide-agent/aide/internal/chat"
)

// maxNetworkRetries bounds the supervisor's own retry loop. The schedule
// is 1s, 2s, 3s; only transient network failures qualify.
const maxNetworkRetries = 3

// retryDelay returns the wait before the n-th retry (1-based).
func retryDelay(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Invoker is the handle to the actual tool implementations, injected by
// the caller.
type Invoker interface {
	// Invoke runs the named tool with the given arguments and returns its
	// textual output.
	Invoke(ctx context.Context, name string, input map[string]any) (string, error)
}

// Outcome is the terminal result of one supervised execution.
type Outcome struct {
	Call     chat.ToolCall
	Output   string
	Err      *CategorizedError
	Duration time.Duration
	Retries  int
}

// OK reports whether the execution succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Supervisor executes tool calls against an injected Invoker. One call
// per Execute invocation; fan-out across calls belongs to the caller.
type Supervisor struct {
	invoker Invoker
	log     *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithSleep replaces the retry delay function, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Supervisor) { s.sleep = sleep }
}

// WithClock replaces the duration clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// New creates a Supervisor around the given tool implementations.
func New(invoker Invoker, log *zap.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		invoker: invoker,
		log:     log,
		sleep:   sleepContext,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs one tool call to a terminal result. Transient network
// failures are retried here, invisibly to the state machine; every other
// failure is categorized once and returned.
func (s *Supervisor) Execute(ctx context.Context, call chat.ToolCall) Outcome {
	start := s.now()
	retries := 0

	for {
		output, err := s.invoker.Invoke(ctx, call.Name, call.Input)
		if err == nil {
			return Outcome{
				Call:     call,
				Output:   output,
				Duration: s.now().Sub(start),
				Retries:  retries,
			}
		}

		cerr := Categorize(err.Error())
		if cerr.Retriable() && retries < maxNetworkRetries && ctx.Err() == nil {
			retries++
			s.log.Debug("retrying transient tool failure",
				zap.String("tool", call.Name),
				zap.String("call_id", call.ID),
				zap.Int("retry", retries),
				zap.String("error", cerr.Message),
			)
			if serr := s.sleep(ctx, retryDelay(retries)); serr != nil {
				// Cancelled mid-backoff; surface the last failure.
				return Outcome{Call: call, Err: cerr, Duration: s.now().Sub(start), Retries: retries}
			}
			continue
		}

		s.log.Debug("tool failed",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.Stringer("category", cerr.Category),
			zap.Int("retries", retries),
		)
		return Outcome{
			Call:     call,
			Err:      cerr,
			Duration: s.now().Sub(start),
			Retries:  retries,
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
