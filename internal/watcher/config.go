package watcher

import "time"

type WatcherConfig struct {
	Enabled bool `json:"enabled"`
	// Root is the directory Patterns and IgnorePatterns are relative to.
	Root           string        `json:"root"`
	Patterns       []string      `json:"patterns"`
	DebounceWindow time.Duration `json:"debounce_window"`
	// MaxBatchSize flushes early once this many distinct paths are pending.
	// Zero means a burst is only flushed after the quiet period.
	MaxBatchSize   int      `json:"max_batch_size"`
	IgnorePatterns []string `json:"ignore_patterns"`
	ExcludeFiles   []string `json:"exclude_files"`
	WatchHidden    bool     `json:"watch_hidden"`
}

func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Enabled:        true,
		Root:           ".",
		DebounceWindow: 2 * time.Second,
		MaxBatchSize:   0,
		IgnorePatterns: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/.idea/**",
			"**/*.log",
		},
		WatchHidden: false,
	}
}
