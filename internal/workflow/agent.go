package workflow

// Availability describes whether an agent can accept work right now.
type Availability string

const (
	AgentAvailable Availability = "available"
	AgentBusy      Availability = "busy"
	AgentOffline   Availability = "offline"
)

// AgentResource is a worker agent as supplied by the caller for a single
// optimization pass. The engine holds no persistent agent registry; callers
// own agent lifecycle and provide a fresh pool on every call.
type AgentResource struct {
	ID             string       `json:"id"`
	Type           string       `json:"type"`
	CurrentLoad    int          `json:"current_load"` // Assigned-not-completed tasks
	MaxCapacity    int          `json:"max_capacity"`
	AvgTaskMinutes float64      `json:"avg_task_minutes"` // Historical mean task duration
	SuccessRate    float64      `json:"success_rate"`     // Historical, in [0, 1]
	Capabilities   []Capability `json:"capabilities,omitempty"`
	Availability   Availability `json:"availability,omitempty"`
}

// Clone returns a deep copy of the agent.
func (a *AgentResource) Clone() *AgentResource {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Capabilities != nil {
		cp.Capabilities = append([]Capability(nil), a.Capabilities...)
	}
	return &cp
}

// CloneAgents deep-copies an agent pool. The optimizer works exclusively on
// such a copy so the caller's agents are never mutated.
func CloneAgents(agents []*AgentResource) []*AgentResource {
	out := make([]*AgentResource, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.Clone())
	}
	return out
}

// HasCapability reports whether the agent declares the capability, either
// explicitly or via its type.
func (a *AgentResource) HasCapability(c Capability) bool {
	if c == "" {
		return true
	}
	if Capability(a.Type) == c {
		return true
	}
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// RemainingCapacity returns the number of additional tasks the agent can
// hold concurrently.
func (a *AgentResource) RemainingCapacity() int {
	return a.MaxCapacity - a.CurrentLoad
}
