package engine

import (
	"testing"

	"github.com/dkalosis/flowplan/internal/workflow"
)

func TestDetectBottlenecks(t *testing.T) {
	tests := []struct {
		name      string
		wf        *workflow.Workflow
		agents    []*workflow.AgentResource
		wantKinds []workflow.BottleneckKind
	}{
		{
			name: "saturated agent still required",
			wf: wfWith(
				&workflow.Task{ID: "A", Capability: "build", EstimateMinutes: 10},
			),
			agents: []*workflow.AgentResource{
				{ID: "ag-1", Type: "build", CurrentLoad: 2, MaxCapacity: 2},
			},
			wantKinds: []workflow.BottleneckKind{workflow.BottleneckAgentCapacity},
		},
		{
			name: "saturated agent nobody needs",
			wf: wfWith(
				&workflow.Task{ID: "A", Capability: "build", EstimateMinutes: 10},
			),
			agents: []*workflow.AgentResource{
				{ID: "ag-1", Type: "review", CurrentLoad: 2, MaxCapacity: 2},
			},
			wantKinds: nil,
		},
		{
			name: "high fan-in",
			wf: wfWith(
				&workflow.Task{ID: "A", EstimateMinutes: 5},
				&workflow.Task{ID: "B", EstimateMinutes: 5},
				&workflow.Task{ID: "C", EstimateMinutes: 5},
				&workflow.Task{ID: "D", EstimateMinutes: 5},
				&workflow.Task{ID: "E", EstimateMinutes: 5, DependsOn: []string{"A", "B", "C", "D"}},
			),
			wantKinds: []workflow.BottleneckKind{workflow.BottleneckHighDependency},
		},
		{
			name: "duration outlier",
			wf: wfWith(
				&workflow.Task{ID: "A", EstimateMinutes: 10},
				&workflow.Task{ID: "B", EstimateMinutes: 10},
				&workflow.Task{ID: "C", EstimateMinutes: 100},
			),
			wantKinds: []workflow.BottleneckKind{workflow.BottleneckLongDuration},
		},
		{
			name:      "empty workflow",
			wf:        wfWith(),
			wantKinds: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectBottlenecks(tt.wf, tt.agents)
			if len(got) != len(tt.wantKinds) {
				t.Fatalf("got %d bottlenecks (%v), want %d", len(got), got, len(tt.wantKinds))
			}
			for i, b := range got {
				if b.Kind != tt.wantKinds[i] {
					t.Errorf("bottleneck %d kind = %s, want %s", i, b.Kind, tt.wantKinds[i])
				}
			}
		})
	}
}

// TestBottleneckCap verifies at most five findings are returned, capacity
// findings first.
func TestBottleneckCap(t *testing.T) {
	var agents []*workflow.AgentResource
	wf := &workflow.Workflow{ID: "wf-cap"}
	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		agents = append(agents, &workflow.AgentResource{
			ID: "ag-" + id, Type: "build", CurrentLoad: 1, MaxCapacity: 1,
		})
		wf.Tasks = append(wf.Tasks, &workflow.Task{ID: "t-" + id, Capability: "build", EstimateMinutes: 10})
	}

	got := detectBottlenecks(wf, agents)
	if len(got) != maxBottlenecks {
		t.Fatalf("got %d bottlenecks, want cap of %d", len(got), maxBottlenecks)
	}
	for _, b := range got {
		if b.Kind != workflow.BottleneckAgentCapacity {
			t.Errorf("expected only capacity findings before the cap, got %s", b.Kind)
		}
	}
}
