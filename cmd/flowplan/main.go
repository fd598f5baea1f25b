package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkalosis/flowplan/internal/config"
	"github.com/dkalosis/flowplan/internal/dispatch"
	"github.com/dkalosis/flowplan/internal/engine"
	"github.com/dkalosis/flowplan/internal/events"
	"github.com/dkalosis/flowplan/internal/history"
	"github.com/dkalosis/flowplan/internal/monitor"
	"github.com/dkalosis/flowplan/internal/workflow"
)

const usage = `Usage: flowplan <command> [flags]

Commands:
  plan     -workflow FILE -agents FILE [-no-archive]   optimize a workflow and print the schedule
  run      -workflow FILE -agents FILE [-minute DUR]   plan and simulate dispatching the schedule
  monitor  -workflow FILE                              triage a live workflow snapshot
  history  [-limit N]                                  list archived optimization results
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "plan":
		err = runPlan(ctx, cfg, os.Args[2:])
	case "run":
		err = runDispatch(ctx, cfg, os.Args[2:])
	case "monitor":
		err = runMonitor(os.Args[2:])
	case "history":
		err = runHistory(ctx, cfg, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runPlan(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	workflowPath := fs.String("workflow", "", "path to workflow definition JSON")
	agentsPath := fs.String("agents", "", "path to agent pool JSON")
	noArchive := fs.Bool("no-archive", false, "skip archiving the result")
	fs.Parse(args)

	if *workflowPath == "" || *agentsPath == "" {
		return fmt.Errorf("plan requires -workflow and -agents")
	}

	wf, err := loadWorkflow(*workflowPath)
	if err != nil {
		return err
	}
	agents, err := loadAgents(*agentsPath)
	if err != nil {
		return err
	}

	opt := engine.NewOptimizer(engine.Options{
		ParallelLimit:          cfg.Engine.ParallelLimit,
		ReferenceWindowMinutes: cfg.Engine.ReferenceWindowMinutes,
	})
	result, err := opt.BuildSchedule(wf, agents)
	if err != nil {
		return fmt.Errorf("optimizing workflow %q: %w", wf.ID, err)
	}

	fmt.Print(renderResult(result))

	if !*noArchive && cfg.History.Path != "" {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()
		if err := store.Save(ctx, result); err != nil {
			return fmt.Errorf("archiving result: %w", err)
		}
	}

	return nil
}

// runDispatch plans the workflow and then walks the schedule through the
// dispatch runner against a simulated executor: each task sleeps its
// estimate with minutes compressed to the -minute duration. Dispatch
// events stream to stdout as they happen.
func runDispatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	workflowPath := fs.String("workflow", "", "path to workflow definition JSON")
	agentsPath := fs.String("agents", "", "path to agent pool JSON")
	minuteScale := fs.Duration("minute", 100*time.Millisecond, "wall-clock duration of one simulated minute")
	fs.Parse(args)

	if *workflowPath == "" || *agentsPath == "" {
		return fmt.Errorf("run requires -workflow and -agents")
	}

	wf, err := loadWorkflow(*workflowPath)
	if err != nil {
		return err
	}
	agents, err := loadAgents(*agentsPath)
	if err != nil {
		return err
	}

	opt := engine.NewOptimizer(engine.Options{
		ParallelLimit:          cfg.Engine.ParallelLimit,
		ReferenceWindowMinutes: cfg.Engine.ReferenceWindowMinutes,
	})
	result, err := opt.BuildSchedule(wf, agents)
	if err != nil {
		return fmt.Errorf("optimizing workflow %q: %w", wf.ID, err)
	}
	fmt.Print(renderResult(result))
	fmt.Println()

	bus := events.NewBus()
	ch := bus.Subscribe(events.TopicDispatch, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			fmt.Print(renderEvent(ev))
		}
	}()

	exec := dispatch.ExecutorFunc(func(ctx context.Context, task *workflow.Task, agentID string) error {
		select {
		case <-time.After(time.Duration(task.EstimateMinutes) * *minuteScale):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	runner := dispatch.NewRunner(dispatch.RunnerConfig{
		Executor: exec,
		Limit:    cfg.Engine.ParallelLimit,
		Retry:    retryFromConfig(cfg.Dispatch),
		Breakers: dispatch.NewBreakerRegistry(cfg.Dispatch.BreakerFailures, time.Duration(cfg.Dispatch.BreakerCooldownSecs)*time.Second),
		Bus:      bus,
	}, agents)

	results, runErr := runner.Run(ctx, wf, result)
	bus.Close()
	<-done
	if runErr != nil {
		return fmt.Errorf("dispatching workflow %q: %w", wf.ID, runErr)
	}

	fmt.Print(renderDispatch(results))
	return nil
}

func retryFromConfig(d config.DispatchConfig) dispatch.RetryConfig {
	return dispatch.RetryConfig{
		InitialInterval:     time.Duration(d.RetryInitialMs) * time.Millisecond,
		MaxInterval:         time.Duration(d.RetryMaxMs) * time.Millisecond,
		MaxElapsedTime:      time.Duration(d.RetryMaxElapsedMs) * time.Millisecond,
		Multiplier:          d.RetryMultiplier,
		RandomizationFactor: 0.5,
	}
}

func runMonitor(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	workflowPath := fs.String("workflow", "", "path to live workflow snapshot JSON")
	fs.Parse(args)

	if *workflowPath == "" {
		return fmt.Errorf("monitor requires -workflow")
	}

	wf, err := loadWorkflow(*workflowPath)
	if err != nil {
		return err
	}

	fmt.Print(renderReport(monitor.Snapshot(wf, time.Now().UTC())))
	return nil
}

func runHistory(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum results to list")
	fs.Parse(args)

	if cfg.History.Path == "" {
		return fmt.Errorf("no history path configured")
	}

	store, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	sums, err := store.List(ctx, *limit)
	if err != nil {
		return err
	}
	fmt.Print(renderSummaries(sums))
	return nil
}

func loadWorkflow(path string) (*workflow.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow %s: %w", path, err)
	}
	var wf workflow.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parsing workflow %s: %w", path, err)
	}
	if wf.ID == "" {
		loaded := workflow.New(wf.Name, wf.Tasks)
		loaded.TimeoutMinutes = wf.TimeoutMinutes
		loaded.MaxParallel = wf.MaxParallel
		loaded.Retry = wf.Retry
		loaded.SuccessRatio = wf.SuccessRatio
		loaded.AbortOnCriticalFailure = wf.AbortOnCriticalFailure
		return loaded, nil
	}
	return &wf, nil
}

func loadAgents(path string) ([]*workflow.AgentResource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agents %s: %w", path, err)
	}
	var agents []*workflow.AgentResource
	if err := json.Unmarshal(data, &agents); err != nil {
		return nil, fmt.Errorf("parsing agents %s: %w", path, err)
	}
	return agents, nil
}
