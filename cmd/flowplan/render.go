package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dkalosis/flowplan/internal/dispatch"
	"github.com/dkalosis/flowplan/internal/events"
	"github.com/dkalosis/flowplan/internal/history"
	"github.com/dkalosis/flowplan/internal/monitor"
	"github.com/dkalosis/flowplan/internal/workflow"
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	styleHeader = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	styleGood = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green")).
			Bold(true)

	styleWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow")).
			Bold(true)

	styleBad = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Bold(true)

	styleDim = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func renderResult(r *workflow.Result) string {
	var b strings.Builder

	title := fmt.Sprintf("Schedule for workflow %s", r.WorkflowID)
	b.WriteString(styleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(styleDim.Render(strings.Repeat("=", lipgloss.Width(title)+2)))
	b.WriteString("\n\n")

	b.WriteString(styleHeader.Render(fmt.Sprintf("%-18s %-14s %8s %8s %8s  %s", "TASK", "AGENT", "START", "END", "DUR", "PRIORITY")))
	b.WriteString("\n")
	for _, e := range r.Entries {
		line := fmt.Sprintf("%-18s %-14s %7dm %7dm %7dm  %s", e.TaskID, e.AgentID, e.StartMinute, e.EndMinute, e.DurationMinutes, e.Priority)
		if !e.DependenciesMet {
			line += styleWarn.Render("  (deps incomplete)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Completion: %s   Score: %s\n",
		styleGood.Render(fmt.Sprintf("%d min", r.CompletionMinutes)),
		scoreStyle(r.Score).Render(fmt.Sprintf("%.2f", r.Score))))
	b.WriteString(fmt.Sprintf("Critical path: %s\n", strings.Join(r.CriticalPath, " -> ")))

	if len(r.Utilization) > 0 {
		b.WriteString("\nUtilization:\n")
		agentIDs := make([]string, 0, len(r.Utilization))
		for id := range r.Utilization {
			agentIDs = append(agentIDs, id)
		}
		sort.Strings(agentIDs)
		for _, id := range agentIDs {
			b.WriteString(fmt.Sprintf("  %-14s %5.1f%%\n", id, r.Utilization[id]*100))
		}
	}

	for _, bn := range r.Bottlenecks {
		b.WriteString(styleWarn.Render(fmt.Sprintf("bottleneck [%s]: ", bn.Kind)))
		b.WriteString(bn.Description)
		b.WriteString("\n")
	}
	for _, rec := range r.Recommendations {
		b.WriteString(styleDim.Render("recommend: "))
		b.WriteString(rec)
		b.WriteString("\n")
	}
	for _, w := range r.Warnings {
		b.WriteString(styleBad.Render("warning: "))
		b.WriteString(w)
		b.WriteString("\n")
	}

	return b.String()
}

func renderReport(rep monitor.Report) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render(fmt.Sprintf("Workflow %s", rep.WorkflowID)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Progress: %s\n", styleGood.Render(fmt.Sprintf("%.1f%%", rep.ProgressPercentage))))

	if len(rep.StuckTasks) == 0 && len(rep.BlockedTasks) == 0 {
		b.WriteString(styleDim.Render("No stuck or blocked tasks.\n"))
		return b.String()
	}

	for _, s := range rep.StuckTasks {
		b.WriteString(styleBad.Render(fmt.Sprintf("stuck: %s", s.TaskID)))
		b.WriteString(fmt.Sprintf(" running %.0f min against a %d min estimate\n", s.ElapsedMinutes, s.EstimateMinutes))
	}
	for _, bl := range rep.BlockedTasks {
		b.WriteString(styleWarn.Render(fmt.Sprintf("blocked: %s", bl.TaskID)))
		b.WriteString(fmt.Sprintf(" waiting on %s\n", strings.Join(bl.BlockedBy, ", ")))
	}

	return b.String()
}

func renderSummaries(sums []history.Summary) string {
	var b strings.Builder

	b.WriteString(styleHeader.Render(fmt.Sprintf("%-38s %-20s %8s %6s %8s  %s", "RESULT", "WORKFLOW", "MINUTES", "SCORE", "ENTRIES", "GENERATED")))
	b.WriteString("\n")
	for _, s := range sums {
		b.WriteString(fmt.Sprintf("%-38s %-20s %8d %6.2f %8d  %s\n",
			s.ID, s.WorkflowID, s.CompletionMinutes, s.Score, s.EntryCount, s.GeneratedAt.Format("2006-01-02 15:04")))
	}
	return b.String()
}

func renderEvent(ev events.Event) string {
	switch e := ev.(type) {
	case events.EntryStartedEvent:
		return fmt.Sprintf("%s %s on %s\n", styleDim.Render("start:"), e.ID, e.AgentID)
	case events.EntryCompletedEvent:
		return fmt.Sprintf("%s %s in %s\n", styleGood.Render("done: "), e.ID, e.Duration.Round(time.Millisecond))
	case events.EntryFailedEvent:
		return fmt.Sprintf("%s %s after %d attempt(s): %v\n", styleBad.Render("fail: "), e.ID, e.Attempts, e.Err)
	case events.ScheduleProgressEvent:
		return styleDim.Render(fmt.Sprintf("progress: %d/%d completed, %d failed\n", e.Completed, e.Total, e.Failed))
	}
	return ""
}

func renderDispatch(results []dispatch.EntryResult) string {
	completed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Err != nil:
			failed++
		default:
			completed++
		}
	}
	return fmt.Sprintf("\nDispatch finished: %s, %s, %s\n",
		styleGood.Render(fmt.Sprintf("%d completed", completed)),
		styleBad.Render(fmt.Sprintf("%d failed", failed)),
		styleWarn.Render(fmt.Sprintf("%d skipped", skipped)))
}

func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.7:
		return styleGood
	case score >= 0.4:
		return styleWarn
	default:
		return styleBad
	}
}
