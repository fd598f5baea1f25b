package config

// EngineConfig tunes the optimization pass.
type EngineConfig struct {
	ParallelLimit          int `json:"parallel_limit"`           // Cap on concurrent dispatch
	ReferenceWindowMinutes int `json:"reference_window_minutes"` // Time-score normalization window
}

// DispatchConfig tunes the schedule dispatch runner.
type DispatchConfig struct {
	RetryInitialMs      int     `json:"retry_initial_ms"`     // First retry interval
	RetryMaxMs          int     `json:"retry_max_ms"`         // Retry interval ceiling
	RetryMaxElapsedMs   int     `json:"retry_max_elapsed_ms"` // Total retry time budget
	RetryMultiplier     float64 `json:"retry_multiplier"`
	BreakerFailures     int     `json:"breaker_failures"`      // Consecutive failures before the breaker opens
	BreakerCooldownSecs int     `json:"breaker_cooldown_secs"` // Open duration before half-open probing
}

// HistoryConfig locates the optimization result archive.
type HistoryConfig struct {
	Path string `json:"path"` // SQLite database path; empty disables archiving
}

// Config is the top-level configuration.
type Config struct {
	Engine   EngineConfig   `json:"engine"`
	Dispatch DispatchConfig `json:"dispatch"`
	History  HistoryConfig  `json:"history"`
}
