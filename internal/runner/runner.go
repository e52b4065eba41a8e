// Package runner drives the agent loop: it reads user input, feeds
// events through the state machine, and executes the actions the machine
// returns. Tool calls fan out concurrently; everything re-enters the
// machine as events through one serialized channel.
package runner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aide-agent/aide/internal/agent"
	"github.com/aide-agent/aide/internal/chat"
	"github.com/aide-agent/aide/internal/executor"
	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/provider"
	"github.com/aide-agent/aide/internal/recovery"
	"github.com/aide-agent/aide/internal/tool"
)

// Console is the user-facing surface the runner talks to.
type Console interface {
	ReadLine(ctx context.Context) (string, error)
	ShowText(text string)
	ShowError(msg string)
	ShowWarning(msg string)
}

// Hooks runs after every tool batch, before the conversation goes back
// to the model. Proceed false returns control to the user instead.
type Hooks interface {
	Run(ctx context.Context, toolNames []string) (proceed bool, warning string, err error)
}

// NoopHooks always proceeds.
type NoopHooks struct{}

func (NoopHooks) Run(context.Context, []string) (bool, string, error) { return true, "", nil }

// Clock abstracts timer scheduling so tests control retry delays.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Runner owns the loop around one Machine.
type Runner struct {
	machine  *agent.Machine
	provider provider.Provider
	registry *tool.Registry
	sup      *executor.Supervisor
	gate     *permission.Gate
	engine   *recovery.Engine // nil disables auto-fix
	hooks    Hooks
	console  Console
	clock    Clock
	log      *zap.Logger

	events chan agent.Event
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock injects a fake clock.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithHooks replaces the post-tool hooks.
func WithHooks(h Hooks) Option {
	return func(r *Runner) { r.hooks = h }
}

// WithRecovery enables the recovery engine for auto-fixable failures.
func WithRecovery(e *recovery.Engine) Option {
	return func(r *Runner) { r.engine = e }
}

// New creates a runner.
func New(
	machine *agent.Machine,
	prov provider.Provider,
	registry *tool.Registry,
	sup *executor.Supervisor,
	gate *permission.Gate,
	console Console,
	log *zap.Logger,
	opts ...Option,
) *Runner {
	r := &Runner{
		machine:  machine,
		provider: prov,
		registry: registry,
		sup:      sup,
		gate:     gate,
		hooks:    NoopHooks{},
		console:  console,
		clock:    realClock{},
		log:      log,
		events:   make(chan agent.Event),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the loop until the machine terminates or the context is
// cancelled. In-flight goroutines drain before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)
	defer func() {
		cancel()
		_ = group.Wait()
	}()

	// The machine starts waiting for input; prime the loop.
	r.execute(groupCtx, group, agent.RequestInput{})

	for {
		var ev agent.Event
		select {
		case <-runCtx.Done():
			// Deliver the shutdown so the machine lands in its terminal
			// state even on external cancellation.
			_, _ = r.machine.HandleEvent(agent.ShutdownRequestedEvent{})
			return runCtx.Err()
		case ev = <-r.events:
		}

		from := r.machine.State().Name()
		action, err := r.machine.HandleEvent(ev)
		if err != nil {
			var invalid *agent.InvalidEventError
			if errors.As(err, &invalid) {
				r.log.Warn("event rejected",
					zap.String("state", invalid.State),
					zap.String("event", invalid.Event),
				)
				continue
			}
			return err
		}
		r.log.Debug("transition",
			zap.String("from", from),
			zap.String("to", r.machine.State().Name()),
			zap.String("event", ev.Name()),
			zap.String("action", action.Name()),
		)

		if _, done := action.(agent.Terminate); done {
			return nil
		}
		r.execute(groupCtx, group, action)
	}
}

// post delivers an event unless the run is over.
func (r *Runner) post(ctx context.Context, ev agent.Event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}

// execute performs one action, spawning goroutines for anything that
// blocks.
func (r *Runner) execute(ctx context.Context, group *errgroup.Group, action agent.Action) {
	switch a := action.(type) {
	case agent.NoOp:

	case agent.ShowText:
		r.console.ShowText(a.Text)
		r.followUp(ctx, group)

	case agent.ShowError:
		r.console.ShowError(a.Text)
		r.followUp(ctx, group)

	case agent.ShowWarning:
		r.console.ShowWarning(a.Text)
		r.followUp(ctx, group)

	case agent.RequestInput:
		group.Go(func() error {
			line, err := r.console.ReadLine(ctx)
			if err != nil {
				r.post(ctx, agent.ShutdownRequestedEvent{})
				return nil
			}
			r.post(ctx, agent.UserInputEvent{Text: line})
			return nil
		})

	case agent.SendModelRequest:
		group.Go(func() error {
			resp, err := r.provider.Generate(ctx, a.Conversation, r.registry.Declarations())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.post(ctx, agent.ModelFailedEvent{Reason: err.Error()})
				return nil
			}
			r.post(ctx, agent.ModelCompletedEvent{Response: *resp})
			return nil
		})

	case agent.DispatchTools:
		for _, call := range a.Calls {
			group.Go(func() error {
				r.post(ctx, agent.ToolStartedEvent{CallID: call.ID})
				r.post(ctx, agent.ToolCompletedEvent{
					CallID: call.ID,
					Result: r.runTool(ctx, call),
				})
				return nil
			})
		}

	case agent.ScheduleRetry:
		group.Go(func() error {
			select {
			case <-r.clock.After(a.Delay):
				r.post(ctx, agent.RetryTimerFiredEvent{})
			case <-ctx.Done():
			}
			return nil
		})

	case agent.RunHooks:
		group.Go(func() error {
			proceed, warning, err := r.hooks.Run(ctx, a.ToolNames)
			if err != nil {
				// A broken hook must not wedge the loop; surface it and
				// move on.
				proceed = true
				warning = "hooks failed: " + err.Error()
			}
			r.post(ctx, agent.HooksCompletedEvent{Proceed: proceed, Warning: warning})
			return nil
		})
	}
}

// followUp resumes the loop after a display action, which the machine
// treats as the end of its part of the turn. Waiting states read input;
// a pending model call is issued here.
func (r *Runner) followUp(ctx context.Context, group *errgroup.Group) {
	switch st := r.machine.State().(type) {
	case agent.WaitingForUserInput:
		r.execute(ctx, group, agent.RequestInput{})
	case agent.CallingModel:
		r.execute(ctx, group, agent.SendModelRequest{Conversation: st.Conversation})
	}
}

// runTool gates, executes and, when enabled, auto-fixes one call.
func (r *Runner) runTool(ctx context.Context, call chat.ToolCall) agent.ToolResult {
	if t, ok := r.registry.Get(call.Name); ok {
		access := t.Access(call.Input)
		if err := r.gate.Check(ctx, access.Path, access.Op); err != nil {
			r.log.Debug("dispatch blocked",
				zap.String("call_id", call.ID),
				zap.String("tool", call.Name),
				zap.Error(err),
			)
			return agent.ToolResult{Err: err.Error()}
		}
	}

	out := r.sup.Execute(ctx, call)
	if out.OK() {
		return agent.ToolResult{Output: out.Output}
	}

	if r.engine != nil && out.Err.AutoFixable() {
		fix := r.engine.AttemptFix(ctx, out.Err, call)
		switch fix.Status {
		case recovery.Fixed:
			return agent.ToolResult{Output: fix.Output}
		default:
			return agent.ToolResult{Err: out.Err.Message + "; " + fix.Summary}
		}
	}
	return agent.ToolResult{Err: out.Err.Message}
}
