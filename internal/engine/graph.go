package engine

import (
	"github.com/gammazero/toposort"

	"github.com/dkalosis/flowplan/internal/workflow"
)

// Graph is the directed dependency graph of a workflow, keyed by task ID
// with edges pointing from predecessor to dependent. Built once per
// optimization pass; a pure transformation of the task list.
type Graph struct {
	tasks      map[string]*workflow.Task
	ids        []string            // task IDs in input order, for deterministic traversal
	dependents map[string][]string // taskID -> tasks that depend on it
	order      []string            // topological order, fixed at build time
}

// BuildGraph converts a task list into a validated dependency graph.
// Acyclicity is checked here, once, before any downstream component runs;
// every consumer of the returned Graph may assume a DAG. Returns a
// structural error (DuplicateTaskError, UnknownDependencyError,
// CyclicDependencyError) on invalid input.
func BuildGraph(wf *workflow.Workflow) (*Graph, error) {
	g := &Graph{
		tasks:      make(map[string]*workflow.Task, len(wf.Tasks)),
		dependents: make(map[string][]string),
	}

	for _, t := range wf.Tasks {
		if _, exists := g.tasks[t.ID]; exists {
			return nil, &DuplicateTaskError{TaskID: t.ID}
		}
		g.tasks[t.ID] = t
		g.ids = append(g.ids, t.ID)
	}

	// Verify all predecessors exist before building edges
	for _, t := range wf.Tasks {
		for _, depID := range t.DependsOn {
			if _, exists := g.tasks[depID]; !exists {
				return nil, &UnknownDependencyError{TaskID: t.ID, DependsOn: depID}
			}
			g.dependents[depID] = append(g.dependents[depID], t.ID)
		}
	}

	order, err := g.sort()
	if err != nil {
		return nil, err
	}
	g.order = order

	return g, nil
}

// sort validates acyclicity via gammazero/toposort, then derives the
// topological order itself with Kahn's algorithm walked over the
// input-order id slice. Toposort's own output is unusable for ordering:
// it iterates a map internally, so ties between independent tasks come
// back in a different order per run, and everything downstream of the
// order must be reproducible for identical inputs.
func (g *Graph) sort() ([]string, error) {
	var edges []toposort.Edge
	for _, taskID := range g.ids {
		task := g.tasks[taskID]
		if len(task.DependsOn) == 0 {
			// No dependencies: edge from nil keeps the node in the sort
			edges = append(edges, toposort.Edge{nil, taskID})
		} else {
			for _, depID := range task.DependsOn {
				edges = append(edges, toposort.Edge{depID, taskID})
			}
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return nil, &CyclicDependencyError{Detail: err.Error()}
	}

	// Repeated passes over g.ids, emitting every ready task in input
	// order; ties always resolve to input position.
	indegree := make(map[string]int, len(g.ids))
	for _, taskID := range g.ids {
		indegree[taskID] = len(g.tasks[taskID].DependsOn)
	}

	order := make([]string, 0, len(g.ids))
	placed := make(map[string]bool, len(g.ids))
	for len(order) < len(g.ids) {
		progressed := false
		for _, taskID := range g.ids {
			if placed[taskID] || indegree[taskID] > 0 {
				continue
			}
			placed[taskID] = true
			order = append(order, taskID)
			for _, depID := range g.dependents[taskID] {
				indegree[depID]--
			}
			progressed = true
		}
		if !progressed {
			break
		}
	}

	if len(order) != len(g.tasks) {
		missing := []string{}
		for _, taskID := range g.ids {
			if !placed[taskID] {
				missing = append(missing, taskID)
			}
		}
		return nil, incompleteOrderError(missing)
	}

	return order, nil
}

// Order returns task IDs in topological order. Stable for the lifetime of
// the graph.
func (g *Graph) Order() []string {
	return g.order
}

// Task returns the task with the given ID, or nil.
func (g *Graph) Task(id string) *workflow.Task {
	return g.tasks[id]
}

// Dependents returns the IDs of tasks that directly depend on the given
// task.
func (g *Graph) Dependents(id string) []string {
	return g.dependents[id]
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.tasks)
}
