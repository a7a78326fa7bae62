package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cubestack/cubist/internal/cube"
	"github.com/cubestack/cubist/internal/validate"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Path  string // File or directory path, defaults to the cubes dir
	Watch bool   // Re-validate on file changes
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate cube files",
		Long: `Check cube files against the schema language rules.

Every file is scanned line by line for unknown annotations, invalid
types and options, malformed properties, and structural problems.
Findings are reported per file with line numbers.`,
		Example: `  # Validate all cube files
  cubist validate

  # Validate one file
  cubist validate cubes/01_users.table.cube

  # Re-validate whenever files change
  cubist validate --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Path = args[0]
			}
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-validate on file changes")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions) error {
	c := NewCommandContext(cmd)

	target := opts.Path
	if target == "" {
		target = c.Cfg.CubesDir
	}

	if opts.Watch {
		return watchValidate(cmd, c, target)
	}

	failures, err := validateOnce(c, target)
	if err != nil {
		return err
	}
	if failures > 0 {
		return fmt.Errorf("%d file(s) failed validation", failures)
	}
	return nil
}

// validateOnce validates the target path and renders results.
// Returns the number of invalid files.
func validateOnce(c *CommandContext, target string) (int, error) {
	paths, err := collectCubeFiles(target)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		c.Renderer.Printf("No cube files found under %s\n", target)
		return 0, nil
	}

	v := validate.New()
	failures := 0
	var rows [][]string
	var all []validate.Error

	for _, path := range paths {
		result := v.ValidateFile(path)
		if result.IsValid() {
			continue
		}
		failures++
		for _, e := range result.Errors {
			all = append(all, e)
			rows = append(rows, []string{e.Item, filepath.Base(e.File), strconv.Itoa(e.Line), e.Message})
		}
	}

	if failures == 0 {
		c.Renderer.Successf("All %d cube files are valid", len(paths))
		return 0, c.Renderer.Encode(map[string]any{"valid": true, "files": len(paths)})
	}

	c.Renderer.Table([]string{"Item", "File", "Line", "Error"}, rows)
	c.Renderer.Printf("\n%d of %d files failed validation\n", failures, len(paths))
	return failures, c.Renderer.Encode(map[string]any{"valid": false, "errors": all})
}

// collectCubeFiles expands a file or directory target into a sorted list
// of cube file paths.
func collectCubeFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", target, err)
	}
	if !info.IsDir() {
		return []string{target}, nil
	}
	return cube.Discover(target, "")
}

// watchValidate re-runs validation whenever a cube file changes.
func watchValidate(cmd *cobra.Command, c *CommandContext, target string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the target and its subdirectories
	err = filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}

	c.Renderer.Printf("Watching %s for changes (Ctrl-C to stop)\n\n", target)
	if _, err := validateOnce(c, target); err != nil {
		return err
	}

	// Debounce rapid editor events
	var pending <-chan time.Time

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !cube.IsCubeFile(event.Name) {
				continue
			}
			pending = time.After(200 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "error", err)
		case <-pending:
			pending = nil
			c.Renderer.Printf("\nChange detected, re-validating...\n")
			if _, err := validateOnce(c, target); err != nil {
				c.Renderer.Errorf("validation error: %v", err)
			}
		}
	}
}
