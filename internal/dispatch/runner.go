package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dkalosis/flowplan/internal/events"
	"github.com/dkalosis/flowplan/internal/workflow"
)

// EntryResult is the outcome of dispatching one schedule entry.
type EntryResult struct {
	TaskID   string
	AgentID  string
	Attempts int
	Err      error
	Skipped  bool // predecessor failed; entry never dispatched
}

// RunnerConfig configures a schedule dispatch runner.
type RunnerConfig struct {
	Executor Executor         // Required: performs the actual work
	Limit    int              // Max concurrent dispatches (default 4)
	Retry    RetryConfig      // Backoff settings for failed executor calls
	Breakers *BreakerRegistry // Per-agent-type circuit breakers (created if nil)
	Bus      *events.Bus      // Optional: dispatch events published here
}

// Runner dispatches a schedule's entries to an executor in dependency
// waves: an entry runs only after every predecessor's entry completed.
// Entries whose predecessors failed are skipped, never dispatched.
type Runner struct {
	cfg        RunnerConfig
	slots      *SlotManager
	agentTypes map[string]string // agent ID -> type, for breaker lookup

	mu        sync.Mutex
	completed map[string]bool
	failed    map[string]bool
	results   []EntryResult
}

// NewRunner creates a Runner for the given agent pool. The pool is only
// used to size per-agent slots; agents themselves are not mutated.
func NewRunner(cfg RunnerConfig, agents []*workflow.AgentResource) *Runner {
	if cfg.Limit <= 0 {
		cfg.Limit = 4
	}
	if cfg.Breakers == nil {
		cfg.Breakers = NewBreakerRegistry(0, 0)
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	types := make(map[string]string, len(agents))
	for _, a := range agents {
		types[a.ID] = a.Type
	}
	return &Runner{
		cfg:        cfg,
		slots:      NewSlotManager(agents),
		agentTypes: types,
		completed:  make(map[string]bool),
		failed:     make(map[string]bool),
	}
}

// Run dispatches every entry of the result against the workflow's tasks.
// Returns once all entries completed, failed, or were skipped, or when the
// context is cancelled.
func (r *Runner) Run(ctx context.Context, wf *workflow.Workflow, result *workflow.Result) ([]EntryResult, error) {
	if r.cfg.Executor == nil {
		return nil, fmt.Errorf("dispatch runner requires an executor")
	}

	pending := make([]workflow.ScheduleEntry, len(result.Entries))
	copy(pending, result.Entries)

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return r.snapshot(), err
		}

		ready, blocked := r.partition(wf, pending)

		// Nothing dispatchable and nothing running: the remainder is
		// blocked on failed predecessors.
		if len(ready) == 0 {
			for _, e := range blocked {
				log.Printf("WARNING: skipping task %q: a predecessor failed", e.TaskID)
				r.record(EntryResult{TaskID: e.TaskID, AgentID: e.AgentID, Skipped: true})
			}
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Limit)
		for _, entry := range ready {
			e := entry
			g.Go(func() error {
				return r.dispatch(gctx, wf, e)
			})
		}
		if err := g.Wait(); err != nil {
			if ctx.Err() != nil {
				return r.snapshot(), ctx.Err()
			}
			return r.snapshot(), err
		}

		pending = blocked
		r.publishProgress(result)
	}

	return r.snapshot(), nil
}

// partition splits pending entries into those whose predecessors have all
// completed and the rest. Entries doomed by a failed predecessor stay in
// the second group until no progress is possible.
func (r *Runner) partition(wf *workflow.Workflow, pending []workflow.ScheduleEntry) (ready, blocked []workflow.ScheduleEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range pending {
		task := wf.Task(e.TaskID)
		if task == nil {
			continue
		}
		ok := true
		for _, depID := range task.DependsOn {
			if !r.completed[depID] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, e)
		} else {
			blocked = append(blocked, e)
		}
	}
	return ready, blocked
}

func (r *Runner) dispatch(ctx context.Context, wf *workflow.Workflow, entry workflow.ScheduleEntry) error {
	task := wf.Task(entry.TaskID)
	if task == nil {
		return fmt.Errorf("schedule entry references unknown task %q", entry.TaskID)
	}

	if err := r.slots.Acquire(ctx, entry.AgentID); err != nil {
		return err
	}
	defer r.slots.Release(entry.AgentID)

	r.publish(events.TopicDispatch, events.EntryStartedEvent{
		ID:        task.ID,
		AgentID:   entry.AgentID,
		Attempt:   task.Attempts + 1,
		Timestamp: time.Now(),
	})

	agentType := r.agentTypes[entry.AgentID]
	if agentType == "" {
		agentType = entry.AgentID
	}

	started := time.Now()
	cb := r.cfg.Breakers.Get(agentType)
	attempts, err := runWithRetry(ctx, r.cfg.Executor, task, entry.AgentID, cb, r.cfg.Retry)

	r.mu.Lock()
	if err != nil {
		r.failed[task.ID] = true
	} else {
		r.completed[task.ID] = true
	}
	r.results = append(r.results, EntryResult{
		TaskID:   task.ID,
		AgentID:  entry.AgentID,
		Attempts: attempts,
		Err:      err,
	})
	r.mu.Unlock()

	if err != nil {
		log.Printf("ERROR: task %q failed on agent %q after %d attempt(s): %v", task.ID, entry.AgentID, attempts, err)
		r.publish(events.TopicDispatch, events.EntryFailedEvent{
			ID:        task.ID,
			AgentID:   entry.AgentID,
			Err:       err,
			Attempts:  attempts,
			Timestamp: time.Now(),
		})
		// Failure is recorded, not propagated: the wave continues and
		// dependents are skipped later.
		return nil
	}

	r.publish(events.TopicDispatch, events.EntryCompletedEvent{
		ID:        task.ID,
		AgentID:   entry.AgentID,
		Duration:  time.Since(started),
		Timestamp: time.Now(),
	})
	return nil
}

func (r *Runner) record(res EntryResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *Runner) snapshot() []EntryResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EntryResult, len(r.results))
	copy(out, r.results)
	return out
}

func (r *Runner) publish(topic events.Topic, ev events.Event) {
	if r.cfg.Bus != nil {
		r.cfg.Bus.Publish(topic, ev)
	}
}

func (r *Runner) publishProgress(result *workflow.Result) {
	if r.cfg.Bus == nil {
		return
	}
	r.mu.Lock()
	completed, failed := len(r.completed), len(r.failed)
	r.mu.Unlock()

	r.cfg.Bus.Publish(events.TopicDispatch, events.ScheduleProgressEvent{
		WorkflowID: result.WorkflowID,
		Total:      len(result.Entries),
		Completed:  completed,
		Failed:     failed,
		Timestamp:  time.Now(),
	})
}
