package engine

import (
	"github.com/dkalosis/flowplan/internal/workflow"
)

// Matcher score weights.
const (
	weightSuccessRate = 0.4
	weightIdleShare   = 0.3
	weightSpeed       = 0.3
)

// schedAgent is the scheduler's private working record for one agent.
// All mutation during matching and scheduling happens here; the caller's
// AgentResource is cloned on entry and never handed back.
type schedAgent struct {
	agent    *workflow.AgentResource
	assigned int // tasks committed to this agent during this pass
	busy     int // minutes of committed work
	nextFree int // minute the agent is next idle
}

// agentArena is the working copy of the agent pool, indexed by ID, scoped
// to a single optimization call.
type agentArena struct {
	agents []*schedAgent
	byID   map[string]*schedAgent
}

func newAgentArena(pool []*workflow.AgentResource) *agentArena {
	ar := &agentArena{byID: make(map[string]*schedAgent, len(pool))}
	for _, a := range workflow.CloneAgents(pool) {
		sa := &schedAgent{agent: a}
		ar.agents = append(ar.agents, sa)
		ar.byID[a.ID] = sa
	}
	return ar
}

// matchAgent selects the best eligible agent for the task, or nil if none
// is eligible. Eligibility: the agent declares every required capability,
// is not offline, and has at least one capacity slot free of its
// pre-existing load. Committed tasks of this pass are serialized on the
// agent's timeline rather than consuming slots, so a lightly loaded agent
// can queue several tasks back to back.
//
// Score is success_rate*0.4 + idle share*0.3 + speed factor*0.3. Ties
// break toward the lowest committed load, then pool order; the whole pass
// is deterministic. Greedy: each decision commits without backtracking.
func (ar *agentArena) matchAgent(task *workflow.Task) *schedAgent {
	var best *schedAgent
	bestScore := -1.0

	for _, sa := range ar.agents {
		if !sa.eligible(task) {
			continue
		}
		score := sa.score(task)
		switch {
		case score > bestScore:
			best, bestScore = sa, score
		case score == bestScore && best != nil && sa.committedLoad() < best.committedLoad():
			best = sa
		}
	}
	return best
}

func (sa *schedAgent) eligible(task *workflow.Task) bool {
	if sa.agent.Availability == workflow.AgentOffline {
		return false
	}
	if sa.agent.RemainingCapacity() <= 0 {
		return false
	}
	for _, c := range task.RequiredCapabilities() {
		if !sa.agent.HasCapability(c) {
			return false
		}
	}
	return true
}

// committedLoad is the agent's load as the greedy pass sees it: historical
// load plus tasks committed so far.
func (sa *schedAgent) committedLoad() int {
	return sa.agent.CurrentLoad + sa.assigned
}

func (sa *schedAgent) score(task *workflow.Task) float64 {
	idle := 0.0
	if sa.agent.MaxCapacity > 0 {
		idle = 1 - float64(sa.committedLoad())/float64(sa.agent.MaxCapacity)
		if idle < 0 {
			idle = 0
		}
	}

	speed := 0.0
	if sa.agent.AvgTaskMinutes > 0 {
		speed = float64(task.EstimateMinutes) / sa.agent.AvgTaskMinutes
		if speed > 1 {
			speed = 1
		}
	}

	return sa.agent.SuccessRate*weightSuccessRate + idle*weightIdleShare + speed*weightSpeed
}
