package agent

import (
	"github.com/aide-agent/aide/internal/chat"
)

// Event is the interface for all inputs to the state machine. The runner
// produces events; the machine consumes them via type switch.
type Event interface {
	isEvent()

	// Name returns the event name for logging and diagnostics.
	Name() string
}

// UserInputEvent carries a submitted user message.
type UserInputEvent struct {
	Text string
}

func (UserInputEvent) isEvent()     {}
func (UserInputEvent) Name() string { return "UserInput" }

// ModelCompletedEvent carries a successful model response.
type ModelCompletedEvent struct {
	Response chat.ModelResponse
}

func (ModelCompletedEvent) isEvent()     {}
func (ModelCompletedEvent) Name() string { return "ModelCompleted" }

// ModelFailedEvent reports a failed model request.
type ModelFailedEvent struct {
	Reason string
}

func (ModelFailedEvent) isEvent()     {}
func (ModelFailedEvent) Name() string { return "ModelFailed" }

// ToolStartedEvent reports that the runner dispatched a tool call to the
// supervisor.
type ToolStartedEvent struct {
	CallID string
}

func (ToolStartedEvent) isEvent()     {}
func (ToolStartedEvent) Name() string { return "ToolStarted" }

// ToolCompletedEvent carries the terminal result of one tool call.
type ToolCompletedEvent struct {
	CallID string
	Result ToolResult
}

func (ToolCompletedEvent) isEvent()     {}
func (ToolCompletedEvent) Name() string { return "ToolCompleted" }

// HooksCompletedEvent reports the outcome of the post-tool hooks. Proceed
// false stops the loop and returns control to the user.
type HooksCompletedEvent struct {
	Proceed bool
	Warning string
}

func (HooksCompletedEvent) isEvent()     {}
func (HooksCompletedEvent) Name() string { return "HooksCompleted" }

// RetryTimerFiredEvent reports that a scheduled retry delay has elapsed.
type RetryTimerFiredEvent struct{}

func (RetryTimerFiredEvent) isEvent()     {}
func (RetryTimerFiredEvent) Name() string { return "RetryTimerFired" }

// ShutdownRequestedEvent asks the machine to terminate. Accepted from
// every state.
type ShutdownRequestedEvent struct{}

func (ShutdownRequestedEvent) isEvent()     {}
func (ShutdownRequestedEvent) Name() string { return "ShutdownRequested" }
