package workflow

import "fmt"

// TaskState is the lifecycle state of a task. State is set by the external
// executor; the optimizer never transitions tasks and the monitor only
// observes them.
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateRunning   TaskState = "running"
	StateCompleted TaskState = "completed"
	StateFailed    TaskState = "failed"
	StatePaused    TaskState = "paused"
	StateCancelled TaskState = "cancelled"
)

// Terminal reports whether the state admits no further transitions
// (failed is terminal only once the retry budget is spent; see Transition).
func (s TaskState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// transitions lists the legal state transitions. Any non-terminal state may
// additionally move to cancelled.
var transitions = map[TaskState][]TaskState{
	StatePending: {StateRunning},
	StateRunning: {StateCompleted, StateFailed, StatePaused},
	StatePaused:  {StateRunning},
	StateFailed:  {StatePending}, // retry re-enters pending
}

// CanTransition reports whether a task may move from one state to another.
// cancelled is reachable from every non-terminal state.
func CanTransition(from, to TaskState) bool {
	if to == StateCancelled {
		return !from.Terminal() && from != StateCancelled
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a state change to the task, enforcing the lifecycle
// machine and the retry budget on failed -> pending.
func (t *Task) Transition(to TaskState) error {
	if !CanTransition(t.State, to) {
		return fmt.Errorf("illegal task state transition %q -> %q for task %q", t.State, to, t.ID)
	}
	if t.State == StateFailed && to == StatePending && !t.RetriesLeft() {
		return fmt.Errorf("task %q has no retry attempts left (%d/%d)", t.ID, t.Attempts, t.MaxAttempts)
	}
	if to == StateRunning && t.State == StatePending {
		t.Attempts++
	}
	t.State = to
	return nil
}
