package agent

import (
	"time"

	"github.com/aide-agent/aide/internal/chat"
)

// Action is the interface for all outputs of the state machine. The
// machine only describes work; the runner executes it.
type Action interface {
	isAction()

	// Name returns the action name for logging and diagnostics.
	Name() string
}

// SendModelRequest asks the runner to send the conversation to the model
// backend.
type SendModelRequest struct {
	Conversation []chat.Message
}

func (SendModelRequest) isAction()    {}
func (SendModelRequest) Name() string { return "SendModelRequest" }

// DispatchTools asks the runner to execute the given tool calls. Calls
// are independent and may run concurrently.
type DispatchTools struct {
	Calls []chat.ToolCall
}

func (DispatchTools) isAction()    {}
func (DispatchTools) Name() string { return "DispatchTools" }

// ShowText asks the runner to display assistant text to the user.
type ShowText struct {
	Text string
}

func (ShowText) isAction()    {}
func (ShowText) Name() string { return "ShowText" }

// ShowError asks the runner to display an error to the user.
type ShowError struct {
	Text string
}

func (ShowError) isAction()    {}
func (ShowError) Name() string { return "ShowError" }

// ShowWarning asks the runner to display a non-blocking warning.
type ShowWarning struct {
	Text string
}

func (ShowWarning) isAction()    {}
func (ShowWarning) Name() string { return "ShowWarning" }

// RequestInput asks the runner to prompt for the next user message.
type RequestInput struct{}

func (RequestInput) isAction()    {}
func (RequestInput) Name() string { return "RequestInput" }

// ScheduleRetry asks the runner to wait the given delay and then deliver
// RetryTimerFired. The machine never sleeps itself.
type ScheduleRetry struct {
	Delay time.Duration
}

func (ScheduleRetry) isAction()    {}
func (ScheduleRetry) Name() string { return "ScheduleRetry" }

// RunHooks asks the runner to execute the post-tool hooks for the named
// tools and deliver HooksCompleted.
type RunHooks struct {
	ToolNames []string
}

func (RunHooks) isAction()    {}
func (RunHooks) Name() string { return "RunHooks" }

// NoOp means no runner work is needed; wait for the next event.
type NoOp struct{}

func (NoOp) isAction()    {}
func (NoOp) Name() string { return "NoOp" }

// Terminate asks the runner to stop delivering events and shut down.
type Terminate struct{}

func (Terminate) isAction()    {}
func (Terminate) Name() string { return "Terminate" }
