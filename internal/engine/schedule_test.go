package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/dkalosis/flowplan/internal/workflow"
)

func buildFor(t *testing.T, wf *workflow.Workflow, agents []*workflow.AgentResource) ([]workflow.ScheduleEntry, []string) {
	t.Helper()
	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}
	return buildSchedule(g, newAgentArena(agents))
}

func TestScheduleRespectsDependencies(t *testing.T) {
	wf := wfWith(
		&workflow.Task{ID: "A", Capability: "build", EstimateMinutes: 2},
		&workflow.Task{ID: "B", Capability: "build", EstimateMinutes: 3, DependsOn: []string{"A"}},
		&workflow.Task{ID: "C", Capability: "build", EstimateMinutes: 5, DependsOn: []string{"A"}},
		&workflow.Task{ID: "D", Capability: "build", EstimateMinutes: 1, DependsOn: []string{"B", "C"}},
	)
	agents := []*workflow.AgentResource{
		{ID: "ag-1", Type: "build", MaxCapacity: 2, SuccessRate: 0.9},
		{ID: "ag-2", Type: "build", MaxCapacity: 2, SuccessRate: 0.9},
	}

	entries, warnings := buildFor(t, wf, agents)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(entries) != 4 {
		t.Fatalf("scheduled %d entries, want 4", len(entries))
	}

	assertDependencyOrdering(t, wf, entries)

	for _, e := range entries {
		if !e.DependenciesMet {
			t.Errorf("entry %s should have dependencies met", e.TaskID)
		}
	}
}

// TestScheduleSortedByStart verifies presentation order.
func TestScheduleSortedByStart(t *testing.T) {
	wf := wfWith(
		&workflow.Task{ID: "A", Capability: "build", EstimateMinutes: 10},
		&workflow.Task{ID: "B", Capability: "build", EstimateMinutes: 1},
		&workflow.Task{ID: "C", Capability: "build", EstimateMinutes: 1, DependsOn: []string{"A"}},
	)
	agents := []*workflow.AgentResource{
		{ID: "ag-1", Type: "build", MaxCapacity: 3, SuccessRate: 1},
		{ID: "ag-2", Type: "build", MaxCapacity: 3, SuccessRate: 1},
	}

	entries, _ := buildFor(t, wf, agents)
	for i := 1; i < len(entries); i++ {
		if entries[i].StartMinute < entries[i-1].StartMinute {
			t.Errorf("entries not sorted by start: %v", entries)
		}
	}
}

// TestSingleOverloadedAgent: three tasks, one capacity-1 agent. One starts
// immediately, the others queue sequentially behind it; none are dropped.
func TestSingleOverloadedAgent(t *testing.T) {
	wf := wfWith(
		&workflow.Task{ID: "A", Capability: "build", EstimateMinutes: 10},
		&workflow.Task{ID: "B", Capability: "build", EstimateMinutes: 10},
		&workflow.Task{ID: "C", Capability: "build", EstimateMinutes: 10},
	)
	agents := []*workflow.AgentResource{
		{ID: "solo", Type: "build", MaxCapacity: 1, SuccessRate: 1},
	}

	entries, warnings := buildFor(t, wf, agents)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(entries) != 3 {
		t.Fatalf("scheduled %d entries, want all 3", len(entries))
	}

	wantStarts := []int{0, 10, 20}
	for i, e := range entries {
		if e.StartMinute != wantStarts[i] {
			t.Errorf("entry %d starts at %d, want %d", i, e.StartMinute, wantStarts[i])
		}
		if e.AgentID != "solo" {
			t.Errorf("entry %d assigned to %q", i, e.AgentID)
		}
	}
}

// TestNoEligibleAgent: the task is omitted with a warning; the call still
// succeeds.
func TestNoEligibleAgent(t *testing.T) {
	wf := wfWith(
		&workflow.Task{ID: "A", Capability: "X", EstimateMinutes: 10},
	)
	agents := []*workflow.AgentResource{
		{ID: "ag-1", Type: "build", MaxCapacity: 1, SuccessRate: 1},
	}

	entries, warnings := buildFor(t, wf, agents)
	if len(entries) != 0 {
		t.Errorf("expected empty schedule, got %v", entries)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "no eligible agent") {
		t.Errorf("expected one no-eligible-agent warning, got %v", warnings)
	}
}

// TestDependentOfOmittedTask still schedules but flags dependencies unmet.
func TestDependentOfOmittedTask(t *testing.T) {
	wf := wfWith(
		&workflow.Task{ID: "A", Capability: "X", EstimateMinutes: 10},
		&workflow.Task{ID: "B", Capability: "build", EstimateMinutes: 5, DependsOn: []string{"A"}},
	)
	agents := []*workflow.AgentResource{
		{ID: "ag-1", Type: "build", MaxCapacity: 1, SuccessRate: 1},
	}

	entries, warnings := buildFor(t, wf, agents)
	if len(entries) != 1 || entries[0].TaskID != "B" {
		t.Fatalf("expected only B scheduled, got %v", entries)
	}
	if entries[0].DependenciesMet {
		t.Error("B's dependencies are not met and should be flagged")
	}
	if len(warnings) != 1 {
		t.Errorf("expected one warning, got %v", warnings)
	}
}

// TestRandomDAGProperties generates random DAGs of up to 50 nodes and
// checks the two scheduling invariants: every entry starts at or after all
// its predecessors' ends, and per-agent concurrency never exceeds one
// committed entry at a time (the timeline serialization that enforces
// capacity).
func TestRandomDAGProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		n := 2 + rng.Intn(49)
		tasks := make([]*workflow.Task, 0, n)
		for i := 0; i < n; i++ {
			task := &workflow.Task{
				ID:              fmt.Sprintf("t%02d", i),
				Capability:      "work",
				EstimateMinutes: 1 + rng.Intn(30),
			}
			// Edges only from lower to higher index keep the graph acyclic
			for j := 0; j < i; j++ {
				if rng.Float64() < 0.15 {
					task.DependsOn = append(task.DependsOn, fmt.Sprintf("t%02d", j))
				}
			}
			tasks = append(tasks, task)
		}

		agents := []*workflow.AgentResource{}
		for i := 0; i < 1+rng.Intn(5); i++ {
			agents = append(agents, &workflow.AgentResource{
				ID:          fmt.Sprintf("ag%d", i),
				Type:        "work",
				MaxCapacity: 1 + rng.Intn(3),
				SuccessRate: rng.Float64(),
			})
		}

		wf := &workflow.Workflow{ID: fmt.Sprintf("wf-%d", round), Tasks: tasks}
		entries, warnings := buildFor(t, wf, agents)

		if len(entries) != n {
			t.Fatalf("round %d: scheduled %d of %d tasks (warnings: %v)", round, len(entries), n, warnings)
		}

		assertDependencyOrdering(t, wf, entries)
		assertNoAgentOverlap(t, entries)
	}
}

func assertDependencyOrdering(t *testing.T, wf *workflow.Workflow, entries []workflow.ScheduleEntry) {
	t.Helper()
	ends := make(map[string]int, len(entries))
	for _, e := range entries {
		ends[e.TaskID] = e.EndMinute
	}
	for _, e := range entries {
		task := wf.Task(e.TaskID)
		for _, depID := range task.DependsOn {
			if end, ok := ends[depID]; ok && e.StartMinute < end {
				t.Errorf("task %s starts at %d before its dependency %s ends at %d", e.TaskID, e.StartMinute, depID, end)
			}
		}
	}
}

func assertNoAgentOverlap(t *testing.T, entries []workflow.ScheduleEntry) {
	t.Helper()
	byAgent := make(map[string][]workflow.ScheduleEntry)
	for _, e := range entries {
		byAgent[e.AgentID] = append(byAgent[e.AgentID], e)
	}
	for agentID, list := range byAgent {
		for i := range list {
			for j := i + 1; j < len(list); j++ {
				a, b := list[i], list[j]
				if a.StartMinute < b.EndMinute && b.StartMinute < a.EndMinute &&
					a.DurationMinutes > 0 && b.DurationMinutes > 0 {
					t.Errorf("agent %s has overlapping entries %s %v and %s %v", agentID,
						a.TaskID, [2]int{a.StartMinute, a.EndMinute},
						b.TaskID, [2]int{b.StartMinute, b.EndMinute})
				}
			}
		}
	}
}
