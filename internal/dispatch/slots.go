package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkalosis/flowplan/internal/workflow"
)

// SlotManager enforces per-agent concurrency during dispatch: an agent
// never runs more concurrent entries than its declared capacity. Uses a
// keyed semaphore pattern, one buffered channel per agent sized to its
// remaining capacity.
type SlotManager struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewSlotManager builds a slot manager for the given agent pool. Agents
// with no remaining capacity get a single slot so pre-loaded agents can
// still drain queued work one entry at a time.
func NewSlotManager(agents []*workflow.AgentResource) *SlotManager {
	m := &SlotManager{slots: make(map[string]chan struct{}, len(agents))}
	for _, a := range agents {
		n := a.RemainingCapacity()
		if n < 1 {
			n = 1
		}
		m.slots[a.ID] = make(chan struct{}, n)
	}
	return m
}

// Acquire takes one slot on the agent, blocking until a slot frees or the
// context is cancelled. Unknown agents are an error: the schedule named an
// agent the caller did not supply.
func (m *SlotManager) Acquire(ctx context.Context, agentID string) error {
	m.mu.Lock()
	slot, exists := m.slots[agentID]
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("no slots registered for agent %q", agentID)
	}

	select {
	case slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees one slot on the agent.
func (m *SlotManager) Release(agentID string) {
	m.mu.Lock()
	slot, exists := m.slots[agentID]
	m.mu.Unlock()

	if !exists {
		return
	}
	select {
	case <-slot:
	default:
		// Release without a matching acquire; nothing to free.
	}
}

// InUse returns the number of occupied slots for the agent.
func (m *SlotManager) InUse(agentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slot, exists := m.slots[agentID]; exists {
		return len(slot)
	}
	return 0
}
