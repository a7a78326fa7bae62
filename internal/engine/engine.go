// Package engine orchestrates the cube pipeline: discovery, validation,
// dependency resolution, and handing ordered files to the external
// execution engine with failure propagation along dependencies.
package engine

import (
	"log/slog"

	"github.com/cubestack/cubist/internal/exec"
	"github.com/cubestack/cubist/internal/resolver"
	"github.com/cubestack/cubist/internal/state"
	"github.com/cubestack/cubist/internal/validate"
)

// Config holds engine configuration.
type Config struct {
	// CubesDir is the root directory of cube files.
	CubesDir string
	// StatePath is the path of the persisted execution order.
	StatePath string
	// EngineCommand is the external engine command line.
	EngineCommand string
	// Runner overrides the engine runner; when nil, a process runner is
	// built from EngineCommand.
	Runner exec.Runner
	// Logger is the structured logger (optional, discards when nil).
	Logger *slog.Logger
}

// Engine drives a full cubist run. All work is synchronous and
// sequential: one file at a time, per category.
type Engine struct {
	cubesDir  string
	validator *validate.Validator
	store     state.Store
	resolver  *resolver.Resolver
	runner    exec.Runner
	logger    *slog.Logger
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	statePath := cfg.StatePath
	if statePath == "" {
		statePath = state.DefaultPath
	}
	store := state.NewFileStore(statePath)

	runner := cfg.Runner
	if runner == nil {
		runner = exec.NewProcess(cfg.EngineCommand)
	}

	logger.Debug("initializing engine", "cubes_dir", cfg.CubesDir, "state_path", statePath)

	return &Engine{
		cubesDir:  cfg.CubesDir,
		validator: validate.New(),
		store:     store,
		resolver:  resolver.New(store, logger),
		runner:    runner,
		logger:    logger,
	}
}

// Store returns the execution order store.
func (e *Engine) Store() state.Store { return e.store }

// Resolver returns the dependency resolver.
func (e *Engine) Resolver() *resolver.Resolver { return e.resolver }

// Validator returns the cube file validator.
func (e *Engine) Validator() *validate.Validator { return e.validator }
