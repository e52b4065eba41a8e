package agent

import (
	"github.com/aide-agent/aide/internal/chat"
)

// State is the interface for all machine states. Exactly one state is
// active at a time; the active state owns the conversation value and
// transitions consume it into the successor state.
type State interface {
	isState()

	// Name returns the state name for logging and diagnostics.
	Name() string
}

// WaitingForUserInput is the idle state: the conversation is complete up
// to the last assistant turn and the runner is reading user input.
type WaitingForUserInput struct {
	Conversation []chat.Message
}

func (WaitingForUserInput) isState()     {}
func (WaitingForUserInput) Name() string { return "WaitingForUserInput" }

// CallingModel means a model request is in flight. Attempt counts the
// current try, zero-based; it never exceeds the machine's attempt cap.
type CallingModel struct {
	Conversation []chat.Message
	Attempt      int
}

func (CallingModel) isState()     {}
func (CallingModel) Name() string { return "CallingModel" }

// ProcessingModelResponse is the transient state between a completed model
// request and its routing decision. The machine resolves it internally
// within a single HandleEvent call; no external event is valid here.
type ProcessingModelResponse struct {
	Conversation []chat.Message
	Response     chat.ModelResponse
}

func (ProcessingModelResponse) isState()     {}
func (ProcessingModelResponse) Name() string { return "ProcessingModelResponse" }

// ToolPhase is the lifecycle phase of one tool call.
type ToolPhase int

const (
	ToolPending ToolPhase = iota
	ToolRunning
	ToolCompleted
)

// ToolResult is the terminal outcome of one tool call as the machine sees
// it. Err is the already-categorized failure text; empty means success.
type ToolResult struct {
	Output string
	Err    string
}

// Failed reports whether the result carries an error.
func (r ToolResult) Failed() bool { return r.Err != "" }

// ToolExecution tracks one tool call through Pending, Running and Completed.
type ToolExecution struct {
	CallID   string
	ToolName string
	Phase    ToolPhase
	Result   ToolResult
}

// ExecutingTools means one or more tool calls from the last model turn are
// being executed by the runner. Statuses is the only place concurrent tool
// progress is recorded; Order preserves the model's call order for
// building result messages.
type ExecutingTools struct {
	Conversation []chat.Message
	Order        []string
	Statuses     map[string]ToolExecution
}

func (ExecutingTools) isState()     {}
func (ExecutingTools) Name() string { return "ExecutingTools" }

// allCompleted reports whether every tracked tool call has a terminal status.
func (s ExecutingTools) allCompleted() bool {
	for _, exec := range s.Statuses {
		if exec.Phase != ToolCompleted {
			return false
		}
	}
	return true
}

// RunningHooks is the post-tool hook point: every tool call has completed
// and the runner is executing its quality gates before the results are
// appended and the next model call goes out.
type RunningHooks struct {
	Conversation   []chat.Message
	PendingResults []chat.Message
	ToolNames      []string
}

func (RunningHooks) isState()     {}
func (RunningHooks) Name() string { return "RunningHooks" }

// Errored holds a failed model call while its retry timer runs. Attempt is
// the number of the try that will go out when the timer fires.
type Errored struct {
	Conversation []chat.Message
	Cause        string
	Attempt      int
}

func (Errored) isState()     {}
func (Errored) Name() string { return "Errored" }

// ShuttingDown is terminal: the machine emits no further actions.
type ShuttingDown struct{}

func (ShuttingDown) isState()     {}
func (ShuttingDown) Name() string { return "ShuttingDown" }

// Conversation returns the conversation held by a state, or nil for
// states without one.
func Conversation(s State) []chat.Message {
	switch st := s.(type) {
	case WaitingForUserInput:
		return st.Conversation
	case CallingModel:
		return st.Conversation
	case ProcessingModelResponse:
		return st.Conversation
	case ExecutingTools:
		return st.Conversation
	case RunningHooks:
		return st.Conversation
	case Errored:
		return st.Conversation
	default:
		return nil
	}
}
