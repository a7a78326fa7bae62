package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cubestack/cubist/internal/engine"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate, order, and execute all cube files",
		Long: `Run the full pipeline through the external schema engine.

Tables are processed first, then seeders, then triggers. Each file is
validated, dependency-ordered, and handed to the engine; a failed table
causes every table depending on it to be skipped.`,
		Example: `  # Run with the engine command from cubist.yaml
  cubist run

  # Override the engine command
  cubist run --engine "cube-engine --apply"`,
		RunE: runRun,
	}
	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	c := NewCommandContext(cmd)

	if c.Cfg.EngineCommand == "" {
		return fmt.Errorf("no engine command configured (set engine_cmd in cubist.yaml or pass --engine)")
	}

	eng := CreateEngine(c)
	start := time.Now()

	report, err := eng.Run(cmd.Context())
	if report != nil {
		renderReport(c, report)
	}
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	c.Renderer.Printf("\nCompleted in %s\n", time.Since(start).Round(time.Millisecond))
	if !report.OK() {
		return fmt.Errorf("%d table(s) did not complete", len(report.Failed))
	}
	return nil
}

func renderReport(c *CommandContext, report *engine.Report) {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		detail := ""
		if len(res.Errors) > 0 {
			detail = res.Errors[0].Message
			if len(res.Errors) > 1 {
				detail += " (+" + strconv.Itoa(len(res.Errors)-1) + " more)"
			}
		}
		rows = append(rows, []string{
			res.Table,
			string(res.Category),
			filepath.Base(res.Path),
			string(res.Status),
			detail,
		})
	}

	c.Renderer.Table([]string{"Table", "Category", "File", "Status", "Detail"}, rows)
	if report.Cyclic {
		c.Renderer.Errorf("dependency cycle detected; order was forced to completion")
	}
	_ = c.Renderer.Encode(report)
}
