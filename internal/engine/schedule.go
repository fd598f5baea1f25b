package engine

import (
	"fmt"
	"sort"

	"github.com/dkalosis/flowplan/internal/workflow"
)

// buildSchedule walks tasks in topological order, matching each to an agent
// and reserving a slot on that agent's timeline. For each task the start is
// max(dependency ready time, agent ready time); the agent's next-free time
// advances to the task's end. Entries come back sorted by start offset.
//
// Tasks with no eligible agent are omitted and reported as warnings; their
// dependents are still scheduled against whatever predecessor entries exist,
// with DependenciesMet set false. A single deterministic greedy pass, sized
// for a few hundred tasks — not an RCPSP solver.
func buildSchedule(g *Graph, arena *agentArena) (entries []workflow.ScheduleEntry, warnings []string) {
	entries = []workflow.ScheduleEntry{}
	endOffsets := make(map[string]int, g.Len()) // taskID -> committed end minute

	for _, id := range g.Order() {
		task := g.Task(id)

		depReady := 0
		depsMet := true
		for _, depID := range task.DependsOn {
			end, scheduled := endOffsets[depID]
			if !scheduled {
				depsMet = false
				continue
			}
			if end > depReady {
				depReady = end
			}
		}

		sa := arena.matchAgent(task)
		if sa == nil {
			warnings = append(warnings, fmt.Sprintf("no eligible agent for task %q (capability %q); task omitted from schedule", task.ID, task.Capability))
			continue
		}

		start := depReady
		if sa.nextFree > start {
			start = sa.nextFree
		}
		end := start + task.EstimateMinutes

		entries = append(entries, workflow.ScheduleEntry{
			TaskID:          task.ID,
			AgentID:         sa.agent.ID,
			StartMinute:     start,
			EndMinute:       end,
			DurationMinutes: task.EstimateMinutes,
			Priority:        task.Priority,
			DependenciesMet: depsMet,
		})

		endOffsets[task.ID] = end
		sa.nextFree = end
		sa.assigned++
		sa.busy += task.EstimateMinutes
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartMinute < entries[j].StartMinute
	})

	return entries, warnings
}
