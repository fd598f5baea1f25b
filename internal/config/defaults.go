package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	historyPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyPath = filepath.Join(home, ".flowplan", "history.db")
	}

	return &Config{
		Engine: EngineConfig{
			ParallelLimit:          4,
			ReferenceWindowMinutes: 24 * 60,
		},
		Dispatch: DispatchConfig{
			RetryInitialMs:      100,
			RetryMaxMs:          10_000,
			RetryMaxElapsedMs:   120_000,
			RetryMultiplier:     2.0,
			BreakerFailures:     5,
			BreakerCooldownSecs: 30,
		},
		History: HistoryConfig{
			Path: historyPath,
		},
	}
}
