package workflow

import "time"

// Capability identifies a kind of work an agent can perform and a task can
// require (e.g. "research", "codegen", "review").
type Capability string

// Priority orders tasks from least to most important.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
	PriorityUrgent   Priority = "urgent"
)

var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
	PriorityUrgent:   4,
}

// Rank returns the ordinal position of the priority (low=0 .. urgent=4).
// Unknown priorities rank below low.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return -1
}

// Task is a unit of work in a workflow.
type Task struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Capability      Capability   `json:"capability"`           // Required agent capability or type
	DependsOn       []string     `json:"depends_on,omitempty"` // Predecessor task IDs
	EstimateMinutes int          `json:"estimate_minutes"`     // Caller-supplied duration estimate, >= 0
	Priority        Priority     `json:"priority,omitempty"`
	Deadline        *time.Time   `json:"deadline,omitempty"`
	Requirements    []Capability `json:"requirements,omitempty"` // Additional required capabilities
	MaxAttempts     int          `json:"max_attempts,omitempty"`
	Attempts        int          `json:"attempts,omitempty"`
	State           TaskState    `json:"state,omitempty"`
	StartedAt       *time.Time   `json:"started_at,omitempty"` // Set by the executor, read by the monitor
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}

// CloneTask returns a deep copy of the task.
func CloneTask(t *Task) *Task {
	if t == nil {
		return nil
	}

	cp := *t
	if t.DependsOn != nil {
		cp.DependsOn = append([]string(nil), t.DependsOn...)
	}
	if t.Requirements != nil {
		cp.Requirements = append([]Capability(nil), t.Requirements...)
	}
	if t.Deadline != nil {
		d := *t.Deadline
		cp.Deadline = &d
	}
	if t.StartedAt != nil {
		s := *t.StartedAt
		cp.StartedAt = &s
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		cp.CompletedAt = &c
	}
	return &cp
}

// RequiredCapabilities returns the task's capability requirement set:
// the owning Capability plus any extra Requirements, without duplicates.
func (t *Task) RequiredCapabilities() []Capability {
	caps := make([]Capability, 0, len(t.Requirements)+1)
	seen := make(map[Capability]bool, len(t.Requirements)+1)

	if t.Capability != "" {
		caps = append(caps, t.Capability)
		seen[t.Capability] = true
	}
	for _, c := range t.Requirements {
		if !seen[c] {
			caps = append(caps, c)
			seen[c] = true
		}
	}
	return caps
}

// RetriesLeft reports whether the task's retry budget allows another attempt.
func (t *Task) RetriesLeft() bool {
	return t.Attempts < t.MaxAttempts
}
