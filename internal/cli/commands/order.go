package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cubestack/cubist/internal/cube"
	"github.com/cubestack/cubist/internal/deps"
	"github.com/spf13/cobra"
)

// OrderOptions holds options for the order command.
type OrderOptions struct {
	Category    string // table or seeder
	CyclesFatal bool   // Treat dependency cycles as an error
}

// NewOrderCommand creates the order command.
func NewOrderCommand() *cobra.Command {
	opts := &OrderOptions{}
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Resolve and show the execution order",
		Long: `Compute the dependency-respecting execution order of cube files.

Foreign key references are extracted from each file, a dependency graph
is built, and the resulting order is persisted for later runs. Cycles do
not fail the command by default; every table still appears exactly once.`,
		Example: `  # Show the table execution order
  cubist order

  # Order seeder files instead
  cubist order --category seeder

  # Fail when the dependency graph has a cycle
  cubist order --cycles-fatal`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOrder(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "table", "File category to order (table|seeder)")
	cmd.Flags().BoolVar(&opts.CyclesFatal, "cycles-fatal", false, "Treat dependency cycles as an error")

	return cmd
}

func runOrder(cmd *cobra.Command, opts *OrderOptions) error {
	c := NewCommandContext(cmd)

	category := cube.Category(opts.Category)
	if category != cube.CategoryTable && category != cube.CategorySeeder {
		return fmt.Errorf("unknown category %q (want table or seeder)", opts.Category)
	}

	paths, err := cube.Discover(c.Cfg.CubesDir, category)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		c.Renderer.Printf("No %s files found under %s\n", opts.Category, c.Cfg.CubesDir)
		return nil
	}

	eng := CreateEngine(c)
	result, files, err := eng.Resolver().ResolvePaths(paths, category)
	if err != nil {
		return err
	}

	names := result.Order.Tables
	if category == cube.CategorySeeder {
		names = result.Order.Seeders
	}

	byName := make(map[string]*cube.File, len(files))
	for _, f := range files {
		if _, ok := byName[f.Name]; !ok {
			byName[f.Name] = f
		}
	}

	rows := make([][]string, 0, len(names))
	for i, name := range names {
		depList := ""
		if f, ok := byName[name]; ok {
			depList = strings.Join(deps.Extract(f.Content), ", ")
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), name, depList})
	}

	c.Renderer.Table([]string{"#", "Table", "Depends on"}, rows)
	if result.Cyclic {
		c.Renderer.Errorf("dependency cycle detected: %s", strings.Join(result.Unresolved, ", "))
	}
	c.Renderer.Printf("\nOrder saved to %s\n", c.Cfg.StatePath)
	if err := c.Renderer.Encode(result.Order); err != nil {
		return err
	}

	if result.Cyclic && opts.CyclesFatal {
		return fmt.Errorf("dependency cycle: %s", strings.Join(result.Unresolved, ", "))
	}
	return nil
}
