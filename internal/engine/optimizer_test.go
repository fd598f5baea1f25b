package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/dkalosis/flowplan/internal/workflow"
)

func testPool() []*workflow.AgentResource {
	return []*workflow.AgentResource{
		{ID: "ag-1", Type: "build", MaxCapacity: 2, SuccessRate: 0.9, AvgTaskMinutes: 20},
		{ID: "ag-2", Type: "build", MaxCapacity: 2, SuccessRate: 0.8, AvgTaskMinutes: 15},
		{ID: "ag-3", Type: "review", MaxCapacity: 1, SuccessRate: 0.95, AvgTaskMinutes: 30},
	}
}

func TestBuildScheduleEmptyWorkflow(t *testing.T) {
	opt := NewOptimizer(Options{})
	result, err := opt.BuildSchedule(&workflow.Workflow{ID: "wf-empty"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CompletionMinutes != 0 {
		t.Errorf("completion = %d, want 0", result.CompletionMinutes)
	}
	if len(result.Entries) != 0 || len(result.Bottlenecks) != 0 {
		t.Errorf("expected empty schedule and bottlenecks, got %+v", result)
	}
	if math.IsNaN(result.Score) {
		t.Error("score must be defined for an empty workflow")
	}
	if result.Score < 0 || result.Score > 1 {
		t.Errorf("score %v out of [0,1]", result.Score)
	}
}

func TestBuildScheduleCycleFails(t *testing.T) {
	opt := NewOptimizer(Options{})
	result, err := opt.BuildSchedule(wfWith(
		&workflow.Task{ID: "A", DependsOn: []string{"B"}},
		&workflow.Task{ID: "B", DependsOn: []string{"A"}},
	), testPool())

	if result != nil {
		t.Error("a cyclic workflow must never yield a schedule")
	}
	var cycErr *CyclicDependencyError
	if !errors.As(err, &cycErr) {
		t.Errorf("expected CyclicDependencyError, got %v", err)
	}
}

func TestBuildScheduleDeterminism(t *testing.T) {
	wf := wfWith(
		&workflow.Task{ID: "A", Capability: "build", EstimateMinutes: 10},
		&workflow.Task{ID: "B", Capability: "build", EstimateMinutes: 20, DependsOn: []string{"A"}},
		&workflow.Task{ID: "C", Capability: "build", EstimateMinutes: 15, DependsOn: []string{"A"}},
		&workflow.Task{ID: "D", Capability: "review", EstimateMinutes: 5, DependsOn: []string{"B", "C"}},
		&workflow.Task{ID: "E", Capability: "build", EstimateMinutes: 8},
	)

	opt := NewOptimizer(Options{})
	first, err := opt.BuildSchedule(wf, testPool())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		next, err := opt.BuildSchedule(wf, testPool())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first.Entries, next.Entries) {
			t.Fatalf("run %d produced different entries:\n%v\nvs\n%v", i, first.Entries, next.Entries)
		}
		if !reflect.DeepEqual(first.CriticalPath, next.CriticalPath) {
			t.Fatalf("run %d produced a different critical path: %v vs %v", i, first.CriticalPath, next.CriticalPath)
		}
	}
}

func TestBuildScheduleBounds(t *testing.T) {
	wf := wfWith(
		&workflow.Task{ID: "A", Capability: "build", EstimateMinutes: 30},
		&workflow.Task{ID: "B", Capability: "review", EstimateMinutes: 45, DependsOn: []string{"A"}},
	)

	opt := NewOptimizer(Options{ReferenceWindowMinutes: 8 * 60})
	result, err := opt.BuildSchedule(wf, testPool())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score < 0 || result.Score > 1 {
		t.Errorf("score %v out of [0,1]", result.Score)
	}
	for agentID, u := range result.Utilization {
		if u < 0 || u > 1 {
			t.Errorf("utilization of %s = %v out of [0,1]", agentID, u)
		}
	}
	if result.CompletionMinutes != 75 {
		t.Errorf("completion = %d, want 75", result.CompletionMinutes)
	}
}

func TestBuildScheduleNoEligibleAgentWarns(t *testing.T) {
	wf := wfWith(
		&workflow.Task{ID: "A", Capability: "X", EstimateMinutes: 10},
	)

	opt := NewOptimizer(Options{})
	result, err := opt.BuildSchedule(wf, testPool())
	if err != nil {
		t.Fatalf("partial schedules must not error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected no entries, got %v", result.Entries)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", result.Warnings)
	}
	// Defensive completion fallback: sum of estimates
	if result.CompletionMinutes != 10 {
		t.Errorf("completion fallback = %d, want 10", result.CompletionMinutes)
	}
}

func TestAnalyzeCriticalPath(t *testing.T) {
	opt := NewOptimizer(Options{})

	path, err := opt.AnalyzeCriticalPath(wfWith(
		&workflow.Task{ID: "A", EstimateMinutes: 2},
		&workflow.Task{ID: "B", EstimateMinutes: 3, DependsOn: []string{"A"}},
		&workflow.Task{ID: "C", EstimateMinutes: 5, DependsOn: []string{"A"}},
		&workflow.Task{ID: "D", EstimateMinutes: 1, DependsOn: []string{"B", "C"}},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(path, []string{"A", "C", "D"}) {
		t.Errorf("critical path = %v, want [A C D]", path)
	}

	empty, err := opt.AnalyzeCriticalPath(&workflow.Workflow{ID: "wf-empty"})
	if err != nil || len(empty) != 0 {
		t.Errorf("empty workflow: path=%v err=%v", empty, err)
	}
}

func TestDetectBottlenecksOperation(t *testing.T) {
	opt := NewOptimizer(Options{})

	got, err := opt.DetectBottlenecks(wfWith(
		&workflow.Task{ID: "A", Capability: "build", EstimateMinutes: 10},
	), []*workflow.AgentResource{
		{ID: "ag-1", Type: "build", CurrentLoad: 1, MaxCapacity: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Kind != workflow.BottleneckAgentCapacity {
		t.Errorf("expected one capacity bottleneck, got %v", got)
	}

	_, err = opt.DetectBottlenecks(wfWith(
		&workflow.Task{ID: "A", DependsOn: []string{"A"}},
	), nil)
	if err == nil {
		t.Error("a structurally broken workflow must fail bottleneck detection too")
	}
}
