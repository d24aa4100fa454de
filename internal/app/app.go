package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/rulegridgo/internal/binding"
	"github.com/vk/rulegridgo/internal/config"
	"github.com/vk/rulegridgo/internal/ctxlog"
)

// App encapsulates one session's dependencies and lifecycle.
type App struct {
	outW   io.Writer
	logW   io.Writer
	logger *slog.Logger
	config *Config
	build  *config.Build
	store  binding.Store
	job    binding.Job
}

// New constructs a fully initialized App: the logger is built, the job date
// is resolved, the grid is loaded and translated against it, and the graph
// is validated. A nil store falls back to an empty in-memory one so grids
// without external bindings just run.
func New(outW, logW io.Writer, appConfig *Config, store binding.Store) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	job, err := resolveJob(appConfig)
	if err != nil {
		return nil, err
	}

	loader := config.NewLoader()
	merged, err := loader.Load(ctx, appConfig.GridPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	build, err := loader.Build(merged, job)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule graph: %w", err)
	}
	logger.Debug("Configuration translated into rule graph.", "nodes", build.Graph.Len())

	if ok, errs := build.Graph.Validate(); !ok {
		return nil, fmt.Errorf("invalid rule graph: %w", errors.Join(errs...))
	}
	logger.Debug("Graph validation passed.")

	if store == nil {
		store = binding.NewMemoryStore()
	}

	return &App{
		outW:   outW,
		logW:   logW,
		logger: logger,
		config: appConfig,
		build:  build,
		store:  store,
		job:    job,
	}, nil
}

// Build exposes the translated configuration. This is primarily for testing.
func (a *App) Build() *config.Build {
	return a.build
}
