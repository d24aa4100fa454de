package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	GridPath string

	// JobDate anchors date-token expansion. Empty means the wall clock.
	JobDate      string
	Placeholders map[string]string

	LogFormat string
	LogLevel  string

	// Workers overrides the engine block's worker count when positive.
	Workers int

	// Visualize renders the graph as text instead of executing it.
	Visualize bool
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
