package commands

import (
	"log/slog"
	"os"

	"github.com/cubestack/cubist/internal/cli/config"
	"github.com/cubestack/cubist/internal/cli/output"
	"github.com/cubestack/cubist/internal/engine"
	"github.com/spf13/cobra"
)

// Context keys shared with the cli package.
type (
	// ConfigKey stores the loaded *config.Config.
	ConfigKey struct{}
	// RendererKey stores the *output.Renderer.
	RendererKey struct{}
	// LoggerKey stores the *slog.Logger.
	LoggerKey struct{}
)

// CommandContext bundles what every command needs.
type CommandContext struct {
	Cfg      *config.Config
	Renderer *output.Renderer
	Logger   *slog.Logger
}

// NewCommandContext extracts config, renderer, and logger from the
// command's context, falling back to safe defaults.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()

	cfg, ok := ctx.Value(ConfigKey{}).(*config.Config)
	if !ok {
		cfg = &config.Config{
			CubesDir:    config.DefaultCubesDir,
			StatePath:   config.DefaultStateFile,
			Environment: config.DefaultEnv,
		}
	}

	renderer, ok := ctx.Value(RendererKey{}).(*output.Renderer)
	if !ok {
		renderer = output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
	}

	logger, ok := ctx.Value(LoggerKey{}).(*slog.Logger)
	if !ok {
		logger = slog.New(slog.DiscardHandler)
	}

	return &CommandContext{Cfg: cfg, Renderer: renderer, Logger: logger}
}

// CreateEngine builds an engine from the configuration.
func CreateEngine(c *CommandContext) *engine.Engine {
	return engine.New(engine.Config{
		CubesDir:      c.Cfg.CubesDir,
		StatePath:     c.Cfg.StatePath,
		EngineCommand: c.Cfg.EngineCommand,
		Logger:        c.Logger,
	})
}
