package engine

// pathAnalysis holds the earliest-start computation over a dependency
// graph.
type pathAnalysis struct {
	earliestStart     map[string]int // taskID -> earliest start minute
	completionMinutes int
	criticalPath      []string // tasks on a maximal chain, topological order
}

// analyzeCriticalPath computes earliest-start times in topological order,
// then backtracks from every task finishing at the overall completion time
// through the predecessors that determined its start. The union of those
// chains is the critical path, reported in topological order; a workflow
// may have several parallel critical paths and all of them are included.
//
// The graph is validated acyclic at build time, so no defensive re-check is
// performed here.
func analyzeCriticalPath(g *Graph) *pathAnalysis {
	a := &pathAnalysis{
		earliestStart: make(map[string]int, g.Len()),
	}

	for _, id := range g.Order() {
		task := g.Task(id)
		start := 0
		for _, depID := range task.DependsOn {
			depFinish := a.earliestStart[depID] + g.Task(depID).EstimateMinutes
			if depFinish > start {
				start = depFinish
			}
		}
		a.earliestStart[id] = start

		if finish := start + task.EstimateMinutes; finish > a.completionMinutes {
			a.completionMinutes = finish
		}
	}

	// Seed with every task finishing at the completion time, then pull in
	// each critical task's binding predecessors (those whose finish equals
	// the task's earliest start).
	critical := make(map[string]bool, g.Len())
	var mark func(id string)
	mark = func(id string) {
		if critical[id] {
			return
		}
		critical[id] = true
		start := a.earliestStart[id]
		for _, depID := range g.Task(id).DependsOn {
			if a.earliestStart[depID]+g.Task(depID).EstimateMinutes == start {
				mark(depID)
			}
		}
	}
	for _, id := range g.Order() {
		if a.earliestStart[id]+g.Task(id).EstimateMinutes == a.completionMinutes {
			mark(id)
		}
	}

	for _, id := range g.Order() {
		if critical[id] {
			a.criticalPath = append(a.criticalPath, id)
		}
	}

	return a
}
