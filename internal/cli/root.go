// Package cli provides the command-line interface for cubist.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cubestack/cubist/internal/cli/commands"
	"github.com/cubestack/cubist/internal/cli/config"
	"github.com/cubestack/cubist/internal/cli/output"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cubist",
		Short: "Cubist - declarative schema pipeline",
		Long: `Cubist validates cube schema files, resolves their foreign key
dependencies into an execution order, and hands the ordered files to the
external schema engine.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))

			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

			ctx := context.WithValue(cmd.Context(), commands.ConfigKey{}, cfg)
			ctx = context.WithValue(ctx, commands.RendererKey{}, renderer)
			ctx = context.WithValue(ctx, commands.LoggerKey{}, logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if used := config.FileUsed(); used != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", used)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./cubist.yaml)")
	rootCmd.PersistentFlags().String("cubes-dir", "", "Path to cubes directory")
	rootCmd.PersistentFlags().String("state", "", "Path to the execution order file")
	rootCmd.PersistentFlags().String("engine", "", "External schema engine command")
	rootCmd.PersistentFlags().String("environment", "", "Environment name")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewOrderCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewListCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
