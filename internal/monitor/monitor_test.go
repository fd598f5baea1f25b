package monitor

import (
	"testing"
	"time"

	"github.com/dkalosis/flowplan/internal/workflow"
)

func TestSnapshotStuckDetection(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	started := func(minsAgo int) *time.Time {
		ts := now.Add(-time.Duration(minsAgo) * time.Minute)
		return &ts
	}

	tests := []struct {
		name      string
		task      *workflow.Task
		wantStuck bool
	}{
		{
			name:      "well past estimate",
			task:      &workflow.Task{ID: "T", State: workflow.StateRunning, EstimateMinutes: 10, StartedAt: started(16)},
			wantStuck: true,
		},
		{
			name:      "exactly at threshold is not stuck",
			task:      &workflow.Task{ID: "T", State: workflow.StateRunning, EstimateMinutes: 10, StartedAt: started(15)},
			wantStuck: false,
		},
		{
			name:      "within estimate",
			task:      &workflow.Task{ID: "T", State: workflow.StateRunning, EstimateMinutes: 10, StartedAt: started(5)},
			wantStuck: false,
		},
		{
			name:      "missing start timestamp excluded",
			task:      &workflow.Task{ID: "T", State: workflow.StateRunning, EstimateMinutes: 10},
			wantStuck: false,
		},
		{
			name:      "zero estimate excluded",
			task:      &workflow.Task{ID: "T", State: workflow.StateRunning, StartedAt: started(300)},
			wantStuck: false,
		},
		{
			name:      "completed task ignored",
			task:      &workflow.Task{ID: "T", State: workflow.StateCompleted, EstimateMinutes: 10, StartedAt: started(100)},
			wantStuck: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := &workflow.Workflow{ID: "wf", Tasks: []*workflow.Task{tt.task}}
			report := Snapshot(wf, now)
			if got := len(report.StuckTasks) == 1; got != tt.wantStuck {
				t.Errorf("stuck = %v, want %v (report: %+v)", got, tt.wantStuck, report.StuckTasks)
			}
		})
	}
}

func TestSnapshotBlockedDetection(t *testing.T) {
	wf := &workflow.Workflow{ID: "wf", Tasks: []*workflow.Task{
		{ID: "A", State: workflow.StateCompleted},
		{ID: "B", State: workflow.StateFailed},
		{ID: "C", State: workflow.StateRunning},
		{ID: "D", State: workflow.StatePending, DependsOn: []string{"A"}},
		{ID: "E", State: workflow.StatePending, DependsOn: []string{"A", "B", "C"}},
	}}

	report := Snapshot(wf, time.Now())

	if len(report.BlockedTasks) != 1 {
		t.Fatalf("blocked = %+v, want only E", report.BlockedTasks)
	}
	blocked := report.BlockedTasks[0]
	if blocked.TaskID != "E" {
		t.Errorf("blocked task = %s, want E", blocked.TaskID)
	}
	// The blocker set names incomplete predecessors only
	if len(blocked.BlockedBy) != 2 || blocked.BlockedBy[0] != "B" || blocked.BlockedBy[1] != "C" {
		t.Errorf("blockers = %v, want [B C]", blocked.BlockedBy)
	}
}

func TestSnapshotProgress(t *testing.T) {
	wf := &workflow.Workflow{ID: "wf", Tasks: []*workflow.Task{
		{ID: "A", State: workflow.StateCompleted},
		{ID: "B", State: workflow.StateCompleted},
		{ID: "C", State: workflow.StateRunning},
		{ID: "D", State: workflow.StatePending},
	}}

	report := Snapshot(wf, time.Now())
	if report.ProgressPercentage != 50 {
		t.Errorf("progress = %v, want 50", report.ProgressPercentage)
	}
	if report.WorkflowID != "wf" {
		t.Errorf("workflow ID = %s", report.WorkflowID)
	}
}

// TestSnapshotReadOnly: monitoring never mutates the snapshot.
func TestSnapshotReadOnly(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	wf := &workflow.Workflow{ID: "wf", Tasks: []*workflow.Task{
		{ID: "A", State: workflow.StateRunning, EstimateMinutes: 1, StartedAt: &start},
		{ID: "B", State: workflow.StatePending, DependsOn: []string{"A"}},
	}}

	Snapshot(wf, time.Now())

	if wf.Tasks[0].State != workflow.StateRunning || wf.Tasks[1].State != workflow.StatePending {
		t.Error("snapshot mutated task state")
	}
}
