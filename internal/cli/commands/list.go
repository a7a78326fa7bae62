package commands

import (
	"path/filepath"
	"strings"

	"github.com/cubestack/cubist/internal/cube"
	"github.com/cubestack/cubist/internal/deps"
	"github.com/cubestack/cubist/internal/state"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered cube files",
		Long: `List all cube files with their category, declared table name, and
extracted dependencies. When a previously computed execution order
exists, files are listed in that order.`,
		RunE: runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	c := NewCommandContext(cmd)

	paths, err := cube.Discover(c.Cfg.CubesDir, "")
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		c.Renderer.Printf("No cube files found under %s\n", c.Cfg.CubesDir)
		return nil
	}

	files := make([]*cube.File, 0, len(paths))
	for _, path := range paths {
		f, readErr := cube.Read(path)
		if readErr != nil {
			f = &cube.File{Path: path, Name: cube.FallbackName(path), Category: cube.CategoryOf(path)}
		}
		files = append(files, f)
	}

	// Follow the stored order when one exists
	store := state.NewFileStore(c.Cfg.StatePath)
	if order, loadErr := store.Load(); loadErr == nil && order != nil {
		files = state.Reorder(order, files)
	}

	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{
			f.Name,
			string(f.Category),
			f.Database,
			filepath.Base(f.Path),
			strings.Join(deps.Extract(f.Content), ", "),
		})
	}

	c.Renderer.Table([]string{"Table", "Category", "Database", "File", "Depends on"}, rows)
	c.Renderer.Printf("\n%d cube files\n", len(files))
	return c.Renderer.Encode(files)
}
