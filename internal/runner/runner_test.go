package runner

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/aide-agent/aide/internal/agent"
	"github.com/aide-agent/aide/internal/chat"
	"github.com/aide-agent/aide/internal/executor"
	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/recovery"
	"github.com/aide-agent/aide/internal/tool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeConsole serves scripted input lines and records everything shown.
// Once the lines run out, ReadLine reports EOF and the loop shuts down.
type fakeConsole struct {
	mu       sync.Mutex
	lines    []string
	texts    []string
	errsSeen []string
	warns    []string
}

func (c *fakeConsole) ReadLine(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return "", io.EOF
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, nil
}

func (c *fakeConsole) ShowText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
}

func (c *fakeConsole) ShowError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errsSeen = append(c.errsSeen, msg)
}

func (c *fakeConsole) ShowWarning(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warns = append(c.warns, msg)
}

func (c *fakeConsole) shown() (texts, errs, warns []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...),
		append([]string(nil), c.errsSeen...),
		append([]string(nil), c.warns...)
}

type providerStep struct {
	resp *chat.ModelResponse
	err  error
}

// fakeProvider pops one scripted step per Generate call and records the
// conversation it was given.
type fakeProvider struct {
	mu            sync.Mutex
	steps         []providerStep
	conversations [][]chat.Message
}

func (p *fakeProvider) Generate(_ context.Context, messages []chat.Message, _ []tool.Declaration) (*chat.ModelResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversations = append(p.conversations, append([]chat.Message(nil), messages...))
	if len(p.steps) == 0 {
		return nil, errors.New("no scripted response left")
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	return step.resp, step.err
}

func (p *fakeProvider) calls() [][]chat.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]chat.Message(nil), p.conversations...)
}

// stubTool is a registry entry with a canned Access and Execute.
type stubTool struct {
	name    string
	op      permission.Operation
	path    string
	execute func(ctx context.Context, args map[string]any) (string, error)

	mu    sync.Mutex
	calls int
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Declaration() tool.Declaration {
	return tool.Declaration{Name: s.name, Description: "stub", Parameters: &tool.Schema{Type: tool.TypeObject}}
}

func (s *stubTool) Access(map[string]any) tool.Access {
	return tool.Access{Op: s.op, Path: s.path}
}

func (s *stubTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.execute(ctx, args)
}

func (s *stubTool) executeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type decideAlways struct{ d permission.Decision }

func (p decideAlways) Ask(context.Context, permission.Request) (permission.Decision, error) {
	return p.d, nil
}

type nopStore struct{}

func (nopStore) AddTrustedPath(string) error { return nil }

// fakeClock hands out one shared, pre-buffered channel so tests fire
// retry timers without waiting.
type fakeClock struct{ ch chan time.Time }

func newFakeClock(fires int) *fakeClock {
	c := &fakeClock{ch: make(chan time.Time, fires)}
	for i := 0; i < fires; i++ {
		c.ch <- time.Now()
	}
	return c
}

func (c *fakeClock) After(time.Duration) <-chan time.Time { return c.ch }

func textResponse(text string) *chat.ModelResponse {
	return &chat.ModelResponse{
		Content:    []chat.ContentBlock{chat.TextBlock{Text: text}},
		StopReason: "end_turn",
	}
}

func toolResponse(id, name string, input map[string]any) *chat.ModelResponse {
	return &chat.ModelResponse{
		Content:    []chat.ContentBlock{chat.ToolUseBlock{ID: id, Name: name, Input: input}},
		StopReason: "tool_use",
	}
}

func newTestRunner(t *testing.T, console Console, prov *fakeProvider, decision permission.Decision, tools []tool.Tool, opts ...Option) *Runner {
	t.Helper()
	log := zap.NewNop()

	registry := tool.NewRegistry()
	for _, tl := range tools {
		registry.Register(tl)
	}

	sup := executor.New(registry, log, executor.WithSleep(func(context.Context, time.Duration) error { return nil }))
	gate := permission.NewGate(t.TempDir(),
		permission.NewTrustedPaths("", nil),
		decideAlways{d: decision},
		nopStore{},
		log,
	)

	return New(agent.NewMachine(), prov, registry, sup, gate, console, log, opts...)
}

func runToCompletion(t *testing.T, r *Runner) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not terminate")
	}
}

func TestTextTurnThenShutdown(t *testing.T) {
	console := &fakeConsole{lines: []string{"hello"}}
	prov := &fakeProvider{steps: []providerStep{{resp: textResponse("hi there")}}}

	runToCompletion(t, newTestRunner(t, console, prov, permission.AllowOnce, nil))

	texts, _, _ := console.shown()
	assert.Equal(t, []string{"hi there"}, texts)
	calls := prov.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "hello", calls[0][len(calls[0])-1].Text())
}

func TestToolDispatchFeedsResultBack(t *testing.T) {
	echo := &stubTool{
		name: "echo",
		op:   permission.OpRead,
		execute: func(_ context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	}
	console := &fakeConsole{lines: []string{"run the tool"}}
	prov := &fakeProvider{steps: []providerStep{
		{resp: toolResponse("call-1", "echo", map[string]any{"text": "pong"})},
		{resp: textResponse("done")},
	}}

	runToCompletion(t, newTestRunner(t, console, prov, permission.AllowOnce, []tool.Tool{echo}))

	assert.Equal(t, 1, echo.executeCount())
	calls := prov.calls()
	require.Len(t, calls, 2)

	// user, assistant(tool_use), tool result
	last := calls[1][len(calls[1])-1]
	require.Equal(t, chat.RoleTool, last.Role)
	result, ok := last.Content[0].(chat.ToolResultBlock)
	require.True(t, ok)
	assert.Equal(t, "call-1", result.ToolUseID)
	assert.Equal(t, "pong", result.Content)
	assert.False(t, result.IsError)
}

func TestDeniedToolNeverExecutes(t *testing.T) {
	writer := &stubTool{
		name: "write_file",
		op:   permission.OpWrite,
		path: "/etc/hosts",
		execute: func(context.Context, map[string]any) (string, error) {
			return "should not run", nil
		},
	}
	console := &fakeConsole{lines: []string{"overwrite it"}}
	prov := &fakeProvider{steps: []providerStep{
		{resp: toolResponse("call-1", "write_file", map[string]any{})},
		{resp: textResponse("understood")},
	}}

	runToCompletion(t, newTestRunner(t, console, prov, permission.DenyOnce, []tool.Tool{writer}))

	assert.Equal(t, 0, writer.executeCount())
	calls := prov.calls()
	require.Len(t, calls, 2)

	last := calls[1][len(calls[1])-1]
	result, ok := last.Content[0].(chat.ToolResultBlock)
	require.True(t, ok)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "permission denied")
}

func TestModelFailureRetriesThroughClock(t *testing.T) {
	console := &fakeConsole{lines: []string{"hello"}}
	prov := &fakeProvider{steps: []providerStep{
		{err: errors.New("connection reset")},
		{resp: textResponse("recovered")},
	}}

	r := newTestRunner(t, console, prov, permission.AllowOnce, nil, WithClock(newFakeClock(1)))
	runToCompletion(t, r)

	texts, errs, _ := console.shown()
	assert.Equal(t, []string{"recovered"}, texts)
	assert.Empty(t, errs)
	assert.Len(t, prov.calls(), 2)
}

func TestModelFailureExhaustsAttempts(t *testing.T) {
	console := &fakeConsole{lines: []string{"hello"}}
	prov := &fakeProvider{steps: []providerStep{
		{err: errors.New("boom")},
		{err: errors.New("boom")},
		{err: errors.New("boom")},
	}}

	r := newTestRunner(t, console, prov, permission.AllowOnce, nil, WithClock(newFakeClock(2)))
	runToCompletion(t, r)

	_, errs, _ := console.shown()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "after 3 attempts")
	assert.Contains(t, errs[0], "boom")
	assert.Len(t, prov.calls(), 3)
}

// blockingHooks returns control to the user instead of the model.
type blockingHooks struct{ warning string }

func (h blockingHooks) Run(context.Context, []string) (bool, string, error) {
	return false, h.warning, nil
}

func TestHooksCanReturnControlToUser(t *testing.T) {
	echo := &stubTool{
		name:    "echo",
		op:      permission.OpRead,
		execute: func(context.Context, map[string]any) (string, error) { return "ok", nil },
	}
	console := &fakeConsole{lines: []string{"go"}}
	prov := &fakeProvider{steps: []providerStep{
		{resp: toolResponse("call-1", "echo", map[string]any{})},
	}}

	r := newTestRunner(t, console, prov, permission.AllowOnce, []tool.Tool{echo},
		WithHooks(blockingHooks{warning: "stop here"}))
	runToCompletion(t, r)

	_, _, warns := console.shown()
	assert.Equal(t, []string{"stop here"}, warns)
	// The staged tool results never went back to the model.
	assert.Len(t, prov.calls(), 1)
}

type failingHooks struct{}

func (failingHooks) Run(context.Context, []string) (bool, string, error) {
	return false, "", errors.New("hook binary missing")
}

func TestBrokenHooksProceedWithWarning(t *testing.T) {
	echo := &stubTool{
		name:    "echo",
		op:      permission.OpRead,
		execute: func(context.Context, map[string]any) (string, error) { return "ok", nil },
	}
	console := &fakeConsole{lines: []string{"go"}}
	prov := &fakeProvider{steps: []providerStep{
		{resp: toolResponse("call-1", "echo", map[string]any{})},
		{resp: textResponse("done")},
	}}

	r := newTestRunner(t, console, prov, permission.AllowOnce, []tool.Tool{echo},
		WithHooks(failingHooks{}))
	runToCompletion(t, r)

	_, _, warns := console.shown()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "hook binary missing")
	assert.Len(t, prov.calls(), 2)
}

// Recovery doubles: a fixer that always lands, a verifier that always
// passes, a retrier that replays the call successfully.
type landingFixer struct{}

func (landingFixer) Apply(context.Context, recovery.Diagnosis) (*recovery.AppliedFix, error) {
	return &recovery.AppliedFix{Description: "patched", Rollback: func() error { return nil }}, nil
}

type passingVerifier struct{}

func (passingVerifier) Verify(context.Context, recovery.Diagnosis) (bool, bool, error) {
	return true, true, nil
}

type replayRetrier struct{ output string }

func (r replayRetrier) Execute(_ context.Context, call chat.ToolCall) executor.Outcome {
	return executor.Outcome{Call: call, Output: r.output}
}

func TestAutoFixTurnsFailureIntoSuccess(t *testing.T) {
	broken := &stubTool{
		name: "build",
		op:   permission.OpRead,
		execute: func(context.Context, map[string]any) (string, error) {
			return "", errors.New("main.go:3:2: undefined: uuid.New")
		},
	}
	console := &fakeConsole{lines: []string{"build it"}}
	prov := &fakeProvider{steps: []providerStep{
		{resp: toolResponse("call-1", "build", map[string]any{})},
		{resp: textResponse("built")},
	}}

	engine := recovery.NewEngine(landingFixer{}, passingVerifier{}, replayRetrier{output: "build ok"}, zap.NewNop())
	r := newTestRunner(t, console, prov, permission.AllowOnce, []tool.Tool{broken},
		WithRecovery(engine))
	runToCompletion(t, r)

	calls := prov.calls()
	require.Len(t, calls, 2)
	last := calls[1][len(calls[1])-1]
	result, ok := last.Content[0].(chat.ToolResultBlock)
	require.True(t, ok)
	assert.False(t, result.IsError)
	assert.Equal(t, "build ok", result.Content)
}

func TestFailedFixSurfacesBothErrors(t *testing.T) {
	broken := &stubTool{
		name: "build",
		op:   permission.OpRead,
		execute: func(context.Context, map[string]any) (string, error) {
			return "", errors.New("main.go:3:2: undefined: uuid.New")
		},
	}
	console := &fakeConsole{lines: []string{"build it"}}
	prov := &fakeProvider{steps: []providerStep{
		{resp: toolResponse("call-1", "build", map[string]any{})},
		{resp: textResponse("noted")},
	}}

	// Verifier that never passes exhausts the remedy rotation.
	engine := recovery.NewEngine(landingFixer{}, neverVerifier{}, replayRetrier{}, zap.NewNop(),
		recovery.WithMaxAttempts(1))
	r := newTestRunner(t, console, prov, permission.AllowOnce, []tool.Tool{broken},
		WithRecovery(engine))
	runToCompletion(t, r)

	calls := prov.calls()
	require.Len(t, calls, 2)
	last := calls[1][len(calls[1])-1]
	result, ok := last.Content[0].(chat.ToolResultBlock)
	require.True(t, ok)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "undefined: uuid.New")
}

type neverVerifier struct{}

func (neverVerifier) Verify(context.Context, recovery.Diagnosis) (bool, bool, error) {
	return true, false, nil
}

func TestParallelToolCallsAllComplete(t *testing.T) {
	var mu sync.Mutex
	ran := map[string]bool{}
	mk := func(name string) *stubTool {
		return &stubTool{
			name: name,
			op:   permission.OpRead,
			execute: func(context.Context, map[string]any) (string, error) {
				mu.Lock()
				ran[name] = true
				mu.Unlock()
				return name + " done", nil
			},
		}
	}
	a, b, c := mk("alpha"), mk("beta"), mk("gamma")

	console := &fakeConsole{lines: []string{"fan out"}}
	prov := &fakeProvider{steps: []providerStep{
		{resp: &chat.ModelResponse{
			Content: []chat.ContentBlock{
				chat.ToolUseBlock{ID: "c1", Name: "alpha", Input: map[string]any{}},
				chat.ToolUseBlock{ID: "c2", Name: "beta", Input: map[string]any{}},
				chat.ToolUseBlock{ID: "c3", Name: "gamma", Input: map[string]any{}},
			},
			StopReason: "tool_use",
		}},
		{resp: textResponse("all done")},
	}}

	runToCompletion(t, newTestRunner(t, console, prov, permission.AllowOnce, []tool.Tool{a, b, c}))

	mu.Lock()
	assert.Len(t, ran, 3)
	mu.Unlock()

	// Results arrive in the model's call order regardless of completion
	// order.
	calls := prov.calls()
	require.Len(t, calls, 2)
	conv := calls[1]
	tail := conv[len(conv)-3:]
	ids := make([]string, 0, 3)
	for _, msg := range tail {
		result, ok := msg.Content[0].(chat.ToolResultBlock)
		require.True(t, ok)
		ids = append(ids, result.ToolUseID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)
}

// blockingConsole sits in ReadLine until the context is cancelled, as a
// real terminal read would.
type blockingConsole struct{ fakeConsole }

func (c *blockingConsole) ReadLine(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCancelledContextStopsTheLoop(t *testing.T) {
	prov := &fakeProvider{}
	r := newTestRunner(t, &blockingConsole{}, prov, permission.AllowOnce, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop on cancellation")
	}
}

func TestUnknownToolReportsError(t *testing.T) {
	console := &fakeConsole{lines: []string{"go"}}
	prov := &fakeProvider{steps: []providerStep{
		{resp: toolResponse("call-1", "no_such_tool", map[string]any{})},
		{resp: textResponse("noted")},
	}}

	runToCompletion(t, newTestRunner(t, console, prov, permission.AllowOnce, nil))

	calls := prov.calls()
	require.Len(t, calls, 2)
	last := calls[1][len(calls[1])-1]
	result, ok := last.Content[0].(chat.ToolResultBlock)
	require.True(t, ok)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "no_such_tool")
}
