package agent

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/aide-agent/aide/internal/chat"
)

// defaultModelAttempts is the total number of model tries per request,
// including the first. Once exhausted the failure is surfaced and the
// machine returns to WaitingForUserInput.
const defaultModelAttempts = 3

// backoff returns the retry delay after the given zero-based attempt.
func backoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * time.Second
}

// Machine holds the current state and applies events to it. It performs
// no I/O of its own: every transition is a pure function call and all
// blocking work happens in the runner, re-entering as events.
type Machine struct {
	state       State
	maxAttempts int
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithMaxModelAttempts overrides the per-request model attempt cap.
// Values below one are ignored.
func WithMaxModelAttempts(n int) MachineOption {
	return func(m *Machine) {
		if n >= 1 {
			m.maxAttempts = n
		}
	}
}

// NewMachine returns a machine in WaitingForUserInput with an empty
// conversation.
func NewMachine(opts ...MachineOption) *Machine {
	return NewMachineAt(WaitingForUserInput{}, opts...)
}

// NewMachineAt returns a machine seeded with the given state.
func NewMachineAt(s State, opts ...MachineOption) *Machine {
	m := &Machine{state: s, maxAttempts: defaultModelAttempts}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// HandleEvent applies one event. On success the machine adopts the new
// state and returns the action the runner must perform. An
// *InvalidEventError leaves the state unchanged.
func (m *Machine) HandleEvent(ev Event) (Action, error) {
	next, action, err := transition(m.state, ev, m.maxAttempts)
	if err != nil {
		return nil, err
	}
	m.state = next
	return action, nil
}

// Transition is the deterministic transition function (State, Event) ->
// (State, Action) with the default model attempt cap. It is total over
// reachable combinations; unreachable combinations return
// *InvalidEventError with the state unchanged.
func Transition(s State, ev Event) (State, Action, error) {
	return transition(s, ev, defaultModelAttempts)
}

func transition(s State, ev Event, maxAttempts int) (State, Action, error) {
	// Shutdown wins from every state.
	if _, ok := ev.(ShutdownRequestedEvent); ok {
		if _, done := s.(ShuttingDown); done {
			return s, NoOp{}, nil
		}
		return ShuttingDown{}, Terminate{}, nil
	}

	switch st := s.(type) {
	case WaitingForUserInput:
		if input, ok := ev.(UserInputEvent); ok {
			conv := append(slices.Clone(st.Conversation), chat.UserMessage(input.Text))
			return CallingModel{Conversation: conv, Attempt: 0}, SendModelRequest{Conversation: conv}, nil
		}

	case CallingModel:
		switch e := ev.(type) {
		case ModelCompletedEvent:
			return processResponse(ProcessingModelResponse{
				Conversation: st.Conversation,
				Response:     e.Response,
			})
		case ModelFailedEvent:
			next := st.Attempt + 1
			if next < maxAttempts {
				return Errored{Conversation: st.Conversation, Cause: e.Reason, Attempt: next},
					ScheduleRetry{Delay: backoff(st.Attempt)}, nil
			}
			return WaitingForUserInput{Conversation: st.Conversation},
				ShowError{Text: fmt.Sprintf("model request failed after %d attempts: %s", maxAttempts, e.Reason)}, nil
		}

	case Errored:
		if _, ok := ev.(RetryTimerFiredEvent); ok {
			return CallingModel{Conversation: st.Conversation, Attempt: st.Attempt},
				SendModelRequest{Conversation: st.Conversation}, nil
		}

	case ExecutingTools:
		switch e := ev.(type) {
		case ToolStartedEvent:
			exec, ok := st.Statuses[e.CallID]
			if !ok {
				return s, nil, &InvalidEventError{State: s.Name(), Event: ev.Name()}
			}
			if exec.Phase != ToolPending {
				return s, NoOp{}, nil
			}
			statuses := maps.Clone(st.Statuses)
			exec.Phase = ToolRunning
			statuses[e.CallID] = exec
			return ExecutingTools{Conversation: st.Conversation, Order: st.Order, Statuses: statuses}, NoOp{}, nil

		case ToolCompletedEvent:
			exec, ok := st.Statuses[e.CallID]
			if !ok {
				return s, nil, &InvalidEventError{State: s.Name(), Event: ev.Name()}
			}
			// Duplicate delivery for a completed call is a no-op.
			if exec.Phase == ToolCompleted {
				return s, NoOp{}, nil
			}
			statuses := maps.Clone(st.Statuses)
			exec.Phase = ToolCompleted
			exec.Result = e.Result
			statuses[e.CallID] = exec

			next := ExecutingTools{Conversation: st.Conversation, Order: st.Order, Statuses: statuses}
			if !next.allCompleted() {
				return next, NoOp{}, nil
			}

			// Every call has a terminal status: stage the tool-result
			// messages in the model's call order and hand off to hooks.
			pending := make([]chat.Message, 0, len(next.Order))
			names := make([]string, 0, len(next.Order))
			for _, id := range next.Order {
				done := statuses[id]
				if done.Result.Failed() {
					pending = append(pending, chat.ToolErrorMessage(id, "Error: "+done.Result.Err))
				} else {
					pending = append(pending, chat.ToolResultMessage(id, done.Result.Output))
				}
				names = append(names, done.ToolName)
			}
			return RunningHooks{Conversation: st.Conversation, PendingResults: pending, ToolNames: names},
				RunHooks{ToolNames: names}, nil
		}

	case RunningHooks:
		if e, ok := ev.(HooksCompletedEvent); ok {
			if e.Proceed {
				conv := append(slices.Clone(st.Conversation), st.PendingResults...)
				next := CallingModel{Conversation: conv, Attempt: 0}
				if e.Warning != "" {
					// The runner shows the warning and then issues the
					// model request itself.
					return next, ShowWarning{Text: e.Warning}, nil
				}
				return next, SendModelRequest{Conversation: conv}, nil
			}
			next := WaitingForUserInput{Conversation: st.Conversation}
			if e.Warning != "" {
				return next, ShowWarning{Text: e.Warning}, nil
			}
			return next, RequestInput{}, nil
		}

	case ProcessingModelResponse:
		// Transient: resolved inside the HandleEvent that produced it.

	case ShuttingDown:
		// Terminal: no further actions.
	}

	return s, nil, &InvalidEventError{State: s.Name(), Event: ev.Name()}
}

// processResponse routes a completed model response: tool calls go to
// ExecutingTools, plain text returns to WaitingForUserInput.
func processResponse(st ProcessingModelResponse) (State, Action, error) {
	var text string
	var calls []chat.ToolCall
	for _, block := range st.Response.Content {
		switch b := block.(type) {
		case chat.TextBlock:
			text += b.Text
		case chat.ToolUseBlock:
			calls = append(calls, chat.ToolCall{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}

	conv := append(slices.Clone(st.Conversation), chat.AssistantMessage(st.Response.Content))

	if len(calls) > 0 {
		order := make([]string, 0, len(calls))
		statuses := make(map[string]ToolExecution, len(calls))
		for _, call := range calls {
			order = append(order, call.ID)
			statuses[call.ID] = ToolExecution{CallID: call.ID, ToolName: call.Name, Phase: ToolPending}
		}
		return ExecutingTools{Conversation: conv, Order: order, Statuses: statuses},
			DispatchTools{Calls: calls}, nil
	}

	next := WaitingForUserInput{Conversation: conv}
	if text != "" {
		return next, ShowText{Text: text}, nil
	}
	return next, RequestInput{}, nil
}
