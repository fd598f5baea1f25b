package workflow

import "time"

// ScheduleEntry is a single task assignment in an emitted schedule.
// Offsets are minutes from the (hypothetical) workflow start. Immutable
// after emission.
type ScheduleEntry struct {
	TaskID          string   `json:"task_id"`
	AgentID         string   `json:"agent_id"`
	StartMinute     int      `json:"start_minute"`
	EndMinute       int      `json:"end_minute"`
	DurationMinutes int      `json:"duration_minutes"`
	Priority        Priority `json:"priority"`
	DependenciesMet bool     `json:"dependencies_met"`
}

// Bottleneck describes a structural or resource condition likely to
// constrain throughput, identified heuristically.
type Bottleneck struct {
	Kind        BottleneckKind `json:"kind"`
	Subject     string         `json:"subject"` // Task or agent ID
	Description string         `json:"description"`
}

// BottleneckKind tags the rule that produced a bottleneck finding.
type BottleneckKind string

const (
	BottleneckAgentCapacity  BottleneckKind = "agent_capacity"
	BottleneckHighDependency BottleneckKind = "high_dependency"
	BottleneckLongDuration   BottleneckKind = "long_duration"
)

// Result is the outcome of a single optimization pass.
type Result struct {
	ID                string             `json:"id"`
	WorkflowID        string             `json:"workflow_id"`
	Entries           []ScheduleEntry    `json:"entries"`
	CompletionMinutes int                `json:"completion_minutes"`
	Utilization       map[string]float64 `json:"utilization"` // agent ID -> [0, 1]
	CriticalPath      []string           `json:"critical_path"`
	Bottlenecks       []Bottleneck       `json:"bottlenecks"`
	Score             float64            `json:"score"` // [0, 1]
	Recommendations   []string           `json:"recommendations"`
	Warnings          []string           `json:"warnings"` // e.g. unassignable tasks
	GeneratedAt       time.Time          `json:"generated_at"`
}

// Entry returns the schedule entry for the given task, or nil.
func (r *Result) Entry(taskID string) *ScheduleEntry {
	for i := range r.Entries {
		if r.Entries[i].TaskID == taskID {
			return &r.Entries[i]
		}
	}
	return nil
}
