package workflow

import (
	"time"

	"github.com/google/uuid"
)

// RetryPolicy controls re-dispatch of failed tasks.
type RetryPolicy struct {
	MaxRetries    int     `json:"max_retries"`
	BackoffFactor float64 `json:"backoff_factor"`
}

// Workflow is an ordered collection of interdependent tasks plus the
// policies that govern their execution. Immutable once scheduling begins,
// except for task state updates made by the external executor.
type Workflow struct {
	ID                     string      `json:"id"`
	Name                   string      `json:"name"`
	Tasks                  []*Task     `json:"tasks"`
	TimeoutMinutes         int         `json:"timeout_minutes,omitempty"`
	MaxParallel            int         `json:"max_parallel,omitempty"`
	Retry                  RetryPolicy `json:"retry,omitempty"`
	SuccessRatio           float64     `json:"success_ratio,omitempty"` // Minimum completion ratio for success
	AbortOnCriticalFailure bool        `json:"abort_on_critical_failure,omitempty"`
	CreatedAt              time.Time   `json:"created_at,omitempty"`
}

// New creates a workflow with the given name and tasks, assigning a fresh
// UUID and defaulting each task's state to pending.
func New(name string, tasks []*Task) *Workflow {
	wf := &Workflow{
		ID:        uuid.NewString(),
		Name:      name,
		Tasks:     tasks,
		CreatedAt: time.Now().UTC(),
	}
	for _, t := range wf.Tasks {
		if t.State == "" {
			t.State = StatePending
		}
		if t.Priority == "" {
			t.Priority = PriorityMedium
		}
	}
	return wf
}

// Task returns the task with the given ID, or nil.
func (w *Workflow) Task(id string) *Task {
	for _, t := range w.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Clone deep-copies the workflow and all its tasks.
func (w *Workflow) Clone() *Workflow {
	cp := *w
	cp.Tasks = make([]*Task, 0, len(w.Tasks))
	for _, t := range w.Tasks {
		cp.Tasks = append(cp.Tasks, CloneTask(t))
	}
	return &cp
}

// Progress returns the fraction of tasks in the completed state, in [0, 1].
// An empty workflow reports 1 (nothing left to do).
func (w *Workflow) Progress() float64 {
	if len(w.Tasks) == 0 {
		return 1
	}
	done := 0
	for _, t := range w.Tasks {
		if t.State == StateCompleted {
			done++
		}
	}
	return float64(done) / float64(len(w.Tasks))
}
