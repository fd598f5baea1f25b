package events

import "time"

// Topic routes events to subscribers.
type Topic string

const (
	TopicDispatch = Topic("dispatch")
	TopicMonitor  = Topic("monitor")
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskID() string
}

// Event type constants
const (
	EventTypeEntryStarted     = "entry.started"
	EventTypeEntryCompleted   = "entry.completed"
	EventTypeEntryFailed      = "entry.failed"
	EventTypeScheduleProgress = "schedule.progress"
	EventTypeTaskStuck        = "task.stuck"
	EventTypeTaskBlocked      = "task.blocked"
)

// EntryStartedEvent is published when a schedule entry is handed to an
// executor.
type EntryStartedEvent struct {
	ID        string // task ID
	AgentID   string
	Attempt   int
	Timestamp time.Time
}

func (e EntryStartedEvent) EventType() string { return EventTypeEntryStarted }
func (e EntryStartedEvent) TaskID() string    { return e.ID }

// EntryCompletedEvent is published when an executor reports success.
type EntryCompletedEvent struct {
	ID        string
	AgentID   string
	Duration  time.Duration
	Timestamp time.Time
}

func (e EntryCompletedEvent) EventType() string { return EventTypeEntryCompleted }
func (e EntryCompletedEvent) TaskID() string    { return e.ID }

// EntryFailedEvent is published when an entry exhausts its retry budget.
type EntryFailedEvent struct {
	ID        string
	AgentID   string
	Err       error
	Attempts  int
	Timestamp time.Time
}

func (e EntryFailedEvent) EventType() string { return EventTypeEntryFailed }
func (e EntryFailedEvent) TaskID() string    { return e.ID }

// ScheduleProgressEvent reports dispatch progress across a whole schedule.
type ScheduleProgressEvent struct {
	WorkflowID string
	Total      int
	Completed  int
	Failed     int
	Timestamp  time.Time
}

func (e ScheduleProgressEvent) EventType() string { return EventTypeScheduleProgress }
func (e ScheduleProgressEvent) TaskID() string    { return "" }

// TaskStuckEvent is published by monitoring when a running task exceeds its
// estimate by the stuck factor.
type TaskStuckEvent struct {
	ID             string
	ElapsedMinutes float64
	Timestamp      time.Time
}

func (e TaskStuckEvent) EventType() string { return EventTypeTaskStuck }
func (e TaskStuckEvent) TaskID() string    { return e.ID }

// TaskBlockedEvent is published by monitoring when a pending task has
// incomplete predecessors.
type TaskBlockedEvent struct {
	ID        string
	BlockedBy []string
	Timestamp time.Time
}

func (e TaskBlockedEvent) EventType() string { return EventTypeTaskBlocked }
func (e TaskBlockedEvent) TaskID() string    { return e.ID }
