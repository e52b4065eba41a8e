package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aide-agent/aide/internal/chat"
)

// scriptedInvoker returns one scripted response per invocation.
type scriptedInvoker struct {
	responses []error
	outputs   []string
	calls     int
}

func (s *scriptedInvoker) Invoke(_ context.Context, _ string, _ map[string]any) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	if s.responses[i] != nil {
		return "", s.responses[i]
	}
	if i < len(s.outputs) {
		return s.outputs[i], nil
	}
	return "", nil
}

func newTestSupervisor(t *testing.T, inv Invoker, slept *[]time.Duration) *Supervisor {
	t.Helper()
	return New(inv, zaptest.NewLogger(t), WithSleep(func(_ context.Context, d time.Duration) error {
		if slept != nil {
			*slept = append(*slept, d)
		}
		return nil
	}))
}

func TestExecuteSuccess(t *testing.T) {
	inv := &scriptedInvoker{responses: []error{nil}, outputs: []string{"listing"}}
	s := newTestSupervisor(t, inv, nil)

	out := s.Execute(context.Background(), chat.ToolCall{ID: "call_1", Name: "list_files"})
	require.True(t, out.OK())
	assert.Equal(t, "listing", out.Output)
	assert.Equal(t, 0, out.Retries)
}

func TestExecuteRetriesTransientNetwork(t *testing.T) {
	inv := &scriptedInvoker{
		responses: []error{
			errors.New("dial tcp: connection refused"),
			errors.New("dial tcp: connection refused"),
			nil,
		},
		outputs: []string{"", "", "fetched"},
	}
	var slept []time.Duration
	s := newTestSupervisor(t, inv, &slept)

	out := s.Execute(context.Background(), chat.ToolCall{ID: "call_1", Name: "shell"})
	require.True(t, out.OK())
	assert.Equal(t, "fetched", out.Output)
	assert.Equal(t, 2, out.Retries)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, slept)
}

func TestExecuteExhaustsNetworkRetries(t *testing.T) {
	inv := &scriptedInvoker{responses: []error{errors.New("connection refused")}}
	var slept []time.Duration
	s := newTestSupervisor(t, inv, &slept)

	out := s.Execute(context.Background(), chat.ToolCall{ID: "call_1", Name: "shell"})
	require.False(t, out.OK())
	assert.Equal(t, CategoryNetwork, out.Err.Category)
	assert.Equal(t, maxNetworkRetries, out.Retries)
	// Backoff schedule observed in full: 1s, 2s, 3s.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}, slept)
	// Initial attempt plus three retries.
	assert.Equal(t, maxNetworkRetries+1, inv.calls)
}

func TestExecuteDoesNotRetryPermission(t *testing.T) {
	inv := &scriptedInvoker{responses: []error{errors.New("open '/etc/hosts': permission denied")}}
	s := newTestSupervisor(t, inv, nil)

	out := s.Execute(context.Background(), chat.ToolCall{ID: "call_1", Name: "write_file"})
	require.False(t, out.OK())
	assert.Equal(t, CategoryPermission, out.Err.Category)
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, 0, out.Retries)
}

func TestExecuteDoesNotRetryCode(t *testing.T) {
	inv := &scriptedInvoker{responses: []error{errors.New("main.go:3:8: undefined: uuid.New")}}
	s := newTestSupervisor(t, inv, nil)

	out := s.Execute(context.Background(), chat.ToolCall{ID: "call_1", Name: "shell"})
	require.False(t, out.OK())
	assert.Equal(t, CategoryCode, out.Err.Category)
	assert.True(t, out.Err.AutoFixable())
	assert.Equal(t, 1, inv.calls)
}

func TestExecuteStopsRetryingWhenCancelled(t *testing.T) {
	inv := &scriptedInvoker{responses: []error{errors.New("connection refused")}}
	s := New(inv, zaptest.NewLogger(t), WithSleep(func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}))

	out := s.Execute(context.Background(), chat.ToolCall{ID: "call_1", Name: "shell"})
	require.False(t, out.OK())
	assert.Equal(t, 1, out.Retries)
	assert.Equal(t, 1, inv.calls)
}
