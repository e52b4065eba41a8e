package agent

import "fmt"

// InvalidEventError reports an event that is not valid for the current
// state. It indicates the runner and machine have diverged; the machine's
// state is left unchanged.
type InvalidEventError struct {
	State string
	Event string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("event %s is not valid in state %s", e.Event, e.State)
}
