package engine

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dkalosis/flowplan/internal/workflow"
)

// Options tunes an Optimizer. Zero values fall back to defaults.
type Options struct {
	// ParallelLimit caps concurrent dispatch; it does not constrain the
	// greedy schedule itself (agent capacity does), but is echoed into
	// workflows that leave MaxParallel unset.
	ParallelLimit int

	// ReferenceWindowMinutes normalizes the time component of the
	// optimization score. Default 1440 (24 hours).
	ReferenceWindowMinutes int
}

// DefaultReferenceWindowMinutes is the 24-hour normalization window for the
// time score.
const DefaultReferenceWindowMinutes = 24 * 60

// Optimizer computes resource-aware schedules for workflows. Every call is
// a synchronous, side-effect-free function of its inputs: the agent pool is
// cloned on entry and the caller's workflow and agents are never mutated.
// Safe for concurrent use.
type Optimizer struct {
	opts Options
}

// NewOptimizer creates an Optimizer with the given options.
func NewOptimizer(opts Options) *Optimizer {
	if opts.ReferenceWindowMinutes <= 0 {
		opts.ReferenceWindowMinutes = DefaultReferenceWindowMinutes
	}
	return &Optimizer{opts: opts}
}

// BuildSchedule runs the full optimization pass: graph build, critical path
// and bottleneck analysis, agent matching, schedule construction, metrics
// and recommendations. Structural problems (cycle, unknown or duplicate
// task ID) fail the call with a typed error and no partial result; a task
// with no eligible agent is omitted and recorded as a warning instead.
// Degenerate input (no tasks, no agents) yields a well-formed zeroed
// result.
func (o *Optimizer) BuildSchedule(wf *workflow.Workflow, agents []*workflow.AgentResource) (*workflow.Result, error) {
	result := &workflow.Result{
		ID:              uuid.NewString(),
		WorkflowID:      wf.ID,
		Entries:         []workflow.ScheduleEntry{},
		Utilization:     map[string]float64{},
		CriticalPath:    []string{},
		Bottlenecks:     []workflow.Bottleneck{},
		Recommendations: []string{},
		Warnings:        []string{},
		GeneratedAt:     time.Now().UTC(),
	}

	if len(wf.Tasks) == 0 {
		result.Score = optimizationScore(0, nil, 0, o.opts.ReferenceWindowMinutes)
		return result, nil
	}

	g, err := BuildGraph(wf)
	if err != nil {
		return nil, err
	}

	// Critical-path analysis and bottleneck detection read the same graph
	// and are independent, so they run concurrently.
	var (
		analysis    *pathAnalysis
		bottlenecks []workflow.Bottleneck
	)
	var grp errgroup.Group
	grp.Go(func() error {
		analysis = analyzeCriticalPath(g)
		return nil
	})
	grp.Go(func() error {
		bottlenecks = detectBottlenecks(wf, agents)
		return nil
	})
	_ = grp.Wait()

	arena := newAgentArena(agents)
	entries, warnings := buildSchedule(g, arena)

	completion := completionMinutes(entries, wf)
	util := utilization(entries, completion)

	result.Entries = entries
	result.CompletionMinutes = completion
	result.Utilization = util
	result.CriticalPath = analysis.criticalPath
	result.Bottlenecks = bottlenecks
	result.Score = optimizationScore(completion, util, len(bottlenecks), o.opts.ReferenceWindowMinutes)
	result.Recommendations = recommend(recommendationInput{
		wf:           wf,
		entries:      entries,
		util:         util,
		bottlenecks:  bottlenecks,
		criticalPath: analysis.criticalPath,
	})
	if warnings != nil {
		result.Warnings = warnings
	}

	return result, nil
}

// AnalyzeCriticalPath returns the IDs of tasks on the workflow's critical
// path, in topological order. Structural errors are fatal, as in
// BuildSchedule.
func (o *Optimizer) AnalyzeCriticalPath(wf *workflow.Workflow) ([]string, error) {
	if len(wf.Tasks) == 0 {
		return []string{}, nil
	}
	g, err := BuildGraph(wf)
	if err != nil {
		return nil, err
	}
	return analyzeCriticalPath(g).criticalPath, nil
}

// DetectBottlenecks returns up to five advisory bottleneck findings for the
// workflow against the given agent pool. The graph is validated first so a
// structurally broken workflow fails here the same way it fails in
// BuildSchedule.
func (o *Optimizer) DetectBottlenecks(wf *workflow.Workflow, agents []*workflow.AgentResource) ([]workflow.Bottleneck, error) {
	if len(wf.Tasks) == 0 {
		return []workflow.Bottleneck{}, nil
	}
	if _, err := BuildGraph(wf); err != nil {
		return nil, err
	}
	return detectBottlenecks(wf, agents), nil
}
