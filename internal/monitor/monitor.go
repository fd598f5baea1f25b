// Package monitor provides read-only triage of a live workflow snapshot:
// tasks running far past their estimate and tasks blocked on unmet
// dependencies. It never mutates task state and never triggers remediation;
// reassignment and escalation belong to the coordination layer that owns
// the workflow.
package monitor

import (
	"time"

	"github.com/dkalosis/flowplan/internal/workflow"
)

// stuckFactor: a running task is stuck once its elapsed time exceeds this
// multiple of its estimate.
const stuckFactor = 1.5

// StuckTask is a running task that has exceeded its estimate by the stuck
// factor.
type StuckTask struct {
	TaskID          string  `json:"task_id"`
	ElapsedMinutes  float64 `json:"elapsed_minutes"`
	EstimateMinutes int     `json:"estimate_minutes"`
}

// BlockedTask is a pending task with at least one incomplete predecessor.
type BlockedTask struct {
	TaskID    string   `json:"task_id"`
	BlockedBy []string `json:"blocked_by"`
}

// Report is the outcome of one monitoring pass.
type Report struct {
	WorkflowID         string        `json:"workflow_id"`
	ProgressPercentage float64       `json:"progress_percentage"`
	StuckTasks         []StuckTask   `json:"stuck_tasks"`
	BlockedTasks       []BlockedTask `json:"blocked_tasks"`
	CheckedAt          time.Time     `json:"checked_at"`
}

// Snapshot inspects a live workflow at the given instant. The snapshot is
// a read of an eventually-consistent external source: task states may be
// updated concurrently by an executor, and two consecutive calls need not
// see a consistent delta. A running task with no start timestamp has
// unknown elapsed time and is excluded from stuck detection rather than
// treated as an error.
func Snapshot(wf *workflow.Workflow, now time.Time) Report {
	report := Report{
		WorkflowID:         wf.ID,
		ProgressPercentage: wf.Progress() * 100,
		StuckTasks:         []StuckTask{},
		BlockedTasks:       []BlockedTask{},
		CheckedAt:          now,
	}

	states := make(map[string]workflow.TaskState, len(wf.Tasks))
	for _, t := range wf.Tasks {
		states[t.ID] = t.State
	}

	for _, t := range wf.Tasks {
		switch t.State {
		case workflow.StateRunning:
			if t.StartedAt == nil {
				continue // unknown duration
			}
			elapsed := now.Sub(*t.StartedAt).Minutes()
			if t.EstimateMinutes > 0 && elapsed > stuckFactor*float64(t.EstimateMinutes) {
				report.StuckTasks = append(report.StuckTasks, StuckTask{
					TaskID:          t.ID,
					ElapsedMinutes:  elapsed,
					EstimateMinutes: t.EstimateMinutes,
				})
			}

		case workflow.StatePending, "":
			var blockers []string
			for _, depID := range t.DependsOn {
				if states[depID] != workflow.StateCompleted {
					blockers = append(blockers, depID)
				}
			}
			if len(blockers) > 0 {
				report.BlockedTasks = append(report.BlockedTasks, BlockedTask{
					TaskID:    t.ID,
					BlockedBy: blockers,
				})
			}
		}
	}

	return report
}
