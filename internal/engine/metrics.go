package engine

import (
	"fmt"

	"github.com/dkalosis/flowplan/internal/workflow"
)

// Optimization score weights.
const (
	weightTimeScore       = 0.4
	weightResourceScore   = 0.3
	weightBottleneckScore = 0.3
)

const maxRecommendations = 5

// completionMinutes returns the schedule's makespan: the maximum end offset
// across entries, or the sum of all task estimates when the schedule is
// empty (so a degenerate pass still reports a defined figure).
func completionMinutes(entries []workflow.ScheduleEntry, wf *workflow.Workflow) int {
	if len(entries) == 0 {
		total := 0
		for _, t := range wf.Tasks {
			total += t.EstimateMinutes
		}
		return total
	}
	max := 0
	for _, e := range entries {
		if e.EndMinute > max {
			max = e.EndMinute
		}
	}
	return max
}

// utilization maps each assigned agent to the fraction of the makespan it
// spends on scheduled work, clamped to [0, 1].
func utilization(entries []workflow.ScheduleEntry, completion int) map[string]float64 {
	util := make(map[string]float64)
	if completion <= 0 {
		return util
	}
	busy := make(map[string]int)
	for _, e := range entries {
		busy[e.AgentID] += e.DurationMinutes
	}
	for agentID, minutes := range busy {
		u := float64(minutes) / float64(completion)
		if u > 1 {
			u = 1
		}
		util[agentID] = u
	}
	return util
}

// optimizationScore combines time, resource, and bottleneck components into
// a single [0, 1] figure. Completion time normalizes against the reference
// window (default 24h); resource quality rewards high, even utilization.
func optimizationScore(completion int, util map[string]float64, bottleneckCount, referenceWindow int) float64 {
	if referenceWindow <= 0 {
		referenceWindow = 24 * 60
	}

	timeScore := 1 - float64(completion)/float64(referenceWindow)
	if timeScore < 0 {
		timeScore = 0
	}

	resourceScore := 0.0
	if len(util) > 0 {
		mean := 0.0
		for _, u := range util {
			mean += u
		}
		mean /= float64(len(util))

		variance := 0.0
		for _, u := range util {
			d := u - mean
			variance += d * d
		}
		variance /= float64(len(util))

		resourceScore = mean * (1 - variance)
	}

	bottleneckScore := 1 - float64(bottleneckCount)/10
	if bottleneckScore < 0 {
		bottleneckScore = 0
	}

	score := timeScore*weightTimeScore + resourceScore*weightResourceScore + bottleneckScore*weightBottleneckScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// recommendationInput bundles everything the recommendation rules inspect.
type recommendationInput struct {
	wf           *workflow.Workflow
	entries      []workflow.ScheduleEntry
	util         map[string]float64
	bottlenecks  []workflow.Bottleneck
	criticalPath []string
}

// recommendationRule is one independent check producing at most one
// suggestion. Rules run in declaration order and results are capped; there
// is no cross-rule ranking.
type recommendationRule func(in recommendationInput) (string, bool)

var recommendationRules = []recommendationRule{
	recommendLowUtilization,
	recommendHighUtilization,
	recommendBottlenecks,
	recommendUnevenDistribution,
	recommendSequentialStructure,
	recommendDelayedPriorities,
}

// recommend evaluates every rule in order and returns at most
// maxRecommendations suggestions.
func recommend(in recommendationInput) []string {
	recs := []string{}
	for _, rule := range recommendationRules {
		if msg, ok := rule(in); ok {
			recs = append(recs, msg)
			if len(recs) >= maxRecommendations {
				break
			}
		}
	}
	return recs
}

func averageUtilization(util map[string]float64) float64 {
	if len(util) == 0 {
		return 0
	}
	sum := 0.0
	for _, u := range util {
		sum += u
	}
	return sum / float64(len(util))
}

func recommendLowUtilization(in recommendationInput) (string, bool) {
	if len(in.util) == 0 {
		return "", false
	}
	avg := averageUtilization(in.util)
	if avg < 0.3 {
		return fmt.Sprintf("average agent utilization is low (%.0f%%); fewer agents could handle this workflow", avg*100), true
	}
	return "", false
}

func recommendHighUtilization(in recommendationInput) (string, bool) {
	avg := averageUtilization(in.util)
	if avg > 0.85 {
		return fmt.Sprintf("average agent utilization is high (%.0f%%); adding agents would reduce queueing", avg*100), true
	}
	return "", false
}

func recommendBottlenecks(in recommendationInput) (string, bool) {
	if len(in.bottlenecks) > 0 {
		return fmt.Sprintf("%d unresolved bottleneck(s) detected; address agent capacity and long-running tasks first", len(in.bottlenecks)), true
	}
	return "", false
}

func recommendUnevenDistribution(in recommendationInput) (string, bool) {
	if len(in.util) < 2 {
		return "", false
	}
	counts := make(map[string]int)
	for _, e := range in.entries {
		counts[e.AgentID]++
	}
	for agentID, n := range counts {
		if n*2 > len(in.entries) {
			return fmt.Sprintf("agent %q holds %d of %d scheduled tasks; rebalancing would reduce queueing on it", agentID, n, len(in.entries)), true
		}
	}
	return "", false
}

func recommendSequentialStructure(in recommendationInput) (string, bool) {
	if len(in.wf.Tasks) >= 2 && len(in.criticalPath)*2 > len(in.wf.Tasks) {
		return fmt.Sprintf("%d of %d tasks sit on the critical path; restructuring dependencies would add parallelism", len(in.criticalPath), len(in.wf.Tasks)), true
	}
	return "", false
}

// recommendDelayedPriorities flags high-priority tasks whose start was
// pushed past their dependency-ready time by agent contention.
func recommendDelayedPriorities(in recommendationInput) (string, bool) {
	ends := make(map[string]int, len(in.entries))
	for _, e := range in.entries {
		ends[e.TaskID] = e.EndMinute
	}

	delayed := 0
	for _, e := range in.entries {
		if e.Priority.Rank() < workflow.PriorityHigh.Rank() {
			continue
		}
		task := in.wf.Task(e.TaskID)
		if task == nil {
			continue
		}
		depReady := 0
		for _, depID := range task.DependsOn {
			if end, ok := ends[depID]; ok && end > depReady {
				depReady = end
			}
		}
		if e.StartMinute > depReady {
			delayed++
		}
	}
	if delayed > 0 {
		return fmt.Sprintf("%d high-priority task(s) are delayed by agent contention; dedicate capacity to them", delayed), true
	}
	return "", false
}
