// Package dispatch walks an emitted schedule and hands each entry to a
// caller-supplied executor, in dependency order with bounded concurrency.
// The engine decides what runs where and when; this package only carries
// those decisions out against an external executor, with per-agent slot
// limits, retry, and circuit breaking.
package dispatch

import (
	"context"

	"github.com/dkalosis/flowplan/internal/workflow"
)

// Executor performs the actual work of a scheduled task on the named agent.
// Implementations live outside this module (an HTTP dispatcher, a process
// spawner); dispatch only sequences the calls.
type Executor interface {
	Run(ctx context.Context, task *workflow.Task, agentID string) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *workflow.Task, agentID string) error

// Run implements Executor.
func (f ExecutorFunc) Run(ctx context.Context, task *workflow.Task, agentID string) error {
	return f(ctx, task, agentID)
}
