package dispatch

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/dkalosis/flowplan/internal/workflow"
)

// RetryConfig configures exponential backoff retry behavior for executor
// calls.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial retry interval (default 100ms)
	MaxInterval         time.Duration // Maximum retry interval (default 10s)
	MaxElapsedTime      time.Duration // Maximum total retry time (default 2min)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// BreakerRegistry manages per-agent-type circuit breakers, so a class of
// agents that keeps failing stops receiving dispatches for a cooldown
// period instead of burning every task's retry budget against it.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker

	failures int
	cooldown time.Duration
}

// NewBreakerRegistry creates a registry. failures is the consecutive-error
// trip threshold (default 5); cooldown the open duration (default 30s).
func NewBreakerRegistry(failures int, cooldown time.Duration) *BreakerRegistry {
	if failures <= 0 {
		failures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &BreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		failures: failures,
		cooldown: cooldown,
	}
}

// Get returns the circuit breaker for the given agent type, creating it on
// first access.
func (r *BreakerRegistry) Get(agentType string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[agentType]; ok {
		return cb
	}

	threshold := uint32(r.failures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        agentType,
		MaxRequests: 3, // Probes allowed in half-open state
		Interval:    0, // Don't clear counts automatically
		Timeout:     r.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %q: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// Don't count caller cancellation as an agent failure
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return false
		},
	})

	r.breakers[agentType] = cb
	return cb
}

// runWithRetry executes one schedule entry through the agent type's circuit
// breaker with exponential backoff. The task's retry budget caps the number
// of attempts; with no budget declared, a single attempt is made. Returns
// the number of attempts made alongside the final error.
func runWithRetry(ctx context.Context, exec Executor, task *workflow.Task, agentID string, cb *gobreaker.CircuitBreaker, retryCfg RetryConfig) (int, error) {
	attempts := 0

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		attempts++
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, exec.Run(ctx, task, agentID)
		})
		if err == nil {
			return nil
		}

		// Open circuit: retrying immediately cannot help.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = retryCfg.InitialInterval
	expo.MaxInterval = retryCfg.MaxInterval
	expo.MaxElapsedTime = retryCfg.MaxElapsedTime
	expo.Multiplier = retryCfg.Multiplier
	expo.RandomizationFactor = retryCfg.RandomizationFactor

	budget := uint64(0)
	if task.MaxAttempts > task.Attempts+1 {
		budget = uint64(task.MaxAttempts - task.Attempts - 1)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(expo, budget), ctx))
	return attempts, err
}
