package engine

import (
	"fmt"

	"github.com/dkalosis/flowplan/internal/workflow"
)

const maxBottlenecks = 5

// bottleneckRule is one independent triage check. Rules are evaluated in
// declaration order (highest-signal first) and their findings appended
// until the cap is reached; there is no cross-rule scoring.
type bottleneckRule struct {
	kind  workflow.BottleneckKind
	check func(wf *workflow.Workflow, agents []*workflow.AgentResource) []workflow.Bottleneck
}

var bottleneckRules = []bottleneckRule{
	{workflow.BottleneckAgentCapacity, saturatedAgents},
	{workflow.BottleneckHighDependency, highFanIn},
	{workflow.BottleneckLongDuration, durationOutliers},
}

// detectBottlenecks runs each rule in order and returns at most
// maxBottlenecks findings. Advisory only: callers use this alongside the
// critical path, not in place of it.
func detectBottlenecks(wf *workflow.Workflow, agents []*workflow.AgentResource) []workflow.Bottleneck {
	found := []workflow.Bottleneck{}
	for _, rule := range bottleneckRules {
		for _, b := range rule.check(wf, agents) {
			if len(found) >= maxBottlenecks {
				return found
			}
			found = append(found, b)
		}
	}
	return found
}

// saturatedAgents flags agents with less than one free slot that a pending
// task still requires.
func saturatedAgents(wf *workflow.Workflow, agents []*workflow.AgentResource) []workflow.Bottleneck {
	var out []workflow.Bottleneck
	for _, a := range agents {
		if a.RemainingCapacity() >= 1 {
			continue
		}
		if !agentStillRequired(wf, a) {
			continue
		}
		out = append(out, workflow.Bottleneck{
			Kind:    workflow.BottleneckAgentCapacity,
			Subject: a.ID,
			Description: fmt.Sprintf("agent %q is at capacity (%d/%d) but pending tasks still require it",
				a.ID, a.CurrentLoad, a.MaxCapacity),
		})
	}
	return out
}

func agentStillRequired(wf *workflow.Workflow, a *workflow.AgentResource) bool {
	for _, t := range wf.Tasks {
		if t.State != "" && t.State != workflow.StatePending {
			continue
		}
		if a.HasCapability(t.Capability) {
			return true
		}
	}
	return false
}

// highFanIn flags tasks blocked on more than three predecessors.
func highFanIn(wf *workflow.Workflow, _ []*workflow.AgentResource) []workflow.Bottleneck {
	var out []workflow.Bottleneck
	for _, t := range wf.Tasks {
		if len(t.DependsOn) > 3 {
			out = append(out, workflow.Bottleneck{
				Kind:    workflow.BottleneckHighDependency,
				Subject: t.ID,
				Description: fmt.Sprintf("task %q waits on %d dependencies, increasing blocking risk",
					t.ID, len(t.DependsOn)),
			})
		}
	}
	return out
}

// durationOutliers flags tasks estimated at more than twice the workflow
// mean.
func durationOutliers(wf *workflow.Workflow, _ []*workflow.AgentResource) []workflow.Bottleneck {
	if len(wf.Tasks) == 0 {
		return nil
	}
	total := 0
	for _, t := range wf.Tasks {
		total += t.EstimateMinutes
	}
	mean := float64(total) / float64(len(wf.Tasks))
	if mean <= 0 {
		return nil
	}

	var out []workflow.Bottleneck
	for _, t := range wf.Tasks {
		if float64(t.EstimateMinutes) > 2*mean {
			out = append(out, workflow.Bottleneck{
				Kind:    workflow.BottleneckLongDuration,
				Subject: t.ID,
				Description: fmt.Sprintf("task %q estimate (%d min) is more than twice the workflow mean (%.1f min)",
					t.ID, t.EstimateMinutes, mean),
			})
		}
	}
	return out
}
