package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/dkalosis/flowplan/internal/workflow"
)

func TestSlotManagerAcquireRelease(t *testing.T) {
	m := NewSlotManager([]*workflow.AgentResource{
		{ID: "ag-1", MaxCapacity: 2},
	})
	ctx := context.Background()

	if err := m.Acquire(ctx, "ag-1"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := m.Acquire(ctx, "ag-1"); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if got := m.InUse("ag-1"); got != 2 {
		t.Errorf("expected 2 slots in use, got %d", got)
	}

	// Third acquire must block until a slot frees
	blockedCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := m.Acquire(blockedCtx, "ag-1"); err == nil {
		t.Error("expected acquire beyond capacity to block until timeout")
	}

	m.Release("ag-1")
	if err := m.Acquire(ctx, "ag-1"); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestSlotManagerUnknownAgent(t *testing.T) {
	m := NewSlotManager(nil)
	if err := m.Acquire(context.Background(), "ghost"); err == nil {
		t.Error("expected error for unregistered agent")
	}
	// Release on an unknown agent is a no-op
	m.Release("ghost")
}

func TestSlotManagerPreLoadedAgentGetsOneSlot(t *testing.T) {
	m := NewSlotManager([]*workflow.AgentResource{
		{ID: "busy", MaxCapacity: 2, CurrentLoad: 2},
	})
	ctx := context.Background()

	if err := m.Acquire(ctx, "busy"); err != nil {
		t.Fatalf("pre-loaded agent should still offer one slot: %v", err)
	}

	blockedCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := m.Acquire(blockedCtx, "busy"); err == nil {
		t.Error("expected second acquire to block")
	}
}

func TestSlotManagerReleaseWithoutAcquire(t *testing.T) {
	m := NewSlotManager([]*workflow.AgentResource{
		{ID: "ag-1", MaxCapacity: 1},
	})
	m.Release("ag-1")
	if got := m.InUse("ag-1"); got != 0 {
		t.Errorf("expected 0 slots in use after spurious release, got %d", got)
	}
}
