package engine

// run.go - execution orchestration and failure propagation

import (
	"context"
	"fmt"

	"github.com/cubestack/cubist/internal/cube"
	"github.com/cubestack/cubist/internal/deps"
	"github.com/cubestack/cubist/internal/exec"
	"github.com/cubestack/cubist/internal/resolver"
	"github.com/cubestack/cubist/internal/validate"
)

// FileStatus classifies the outcome for one cube file.
type FileStatus string

// Per-file outcomes.
const (
	StatusOK      FileStatus = "ok"
	StatusInvalid FileStatus = "invalid"
	StatusSkipped FileStatus = "skipped"
	StatusFailed  FileStatus = "failed"
)

// FileResult is the outcome of processing one cube file.
type FileResult struct {
	Path     string           `json:"path"`
	Table    string           `json:"table"`
	Category cube.Category    `json:"category"`
	Status   FileStatus       `json:"status"`
	Errors   []validate.Error `json:"errors,omitempty"`
}

// Report aggregates a full run.
type Report struct {
	Results []FileResult `json:"results"`
	// Failed lists every table name in the failed set at run end.
	Failed []string `json:"failed,omitempty"`
	// Cyclic is set when any category's dependency graph had a cycle.
	Cyclic bool `json:"cyclic,omitempty"`
}

// OK reports whether every file completed successfully.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.Status != StatusOK {
			return false
		}
	}
	return true
}

// failedSet tracks table names that failed during one run. It only grows:
// validation failures, unmet dependencies, and execution failures all add
// to it, and it is discarded when the run ends.
type failedSet map[string]bool

func (s failedSet) add(name string)      { s[name] = true }
func (s failedSet) has(name string) bool { return s[name] }

func (s failedSet) names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	return out
}

// firstFailedDep returns the first dependency present in the failed set.
func (s failedSet) firstFailedDep(dependencies []string) (string, bool) {
	for _, dep := range dependencies {
		if s[dep] {
			return dep, true
		}
	}
	return "", false
}

// categoryInstructions maps a category to the engine instructions applied
// per file, in order.
func categoryInstructions(category cube.Category) []exec.Instruction {
	switch category {
	case cube.CategorySeeder:
		return []exec.Instruction{exec.InstructionRunSeeder}
	case cube.CategoryTrigger:
		return []exec.Instruction{exec.InstructionRunTrigger}
	default:
		return []exec.Instruction{
			exec.InstructionParseTable,
			exec.InstructionGenerate,
			exec.InstructionExecute,
		}
	}
}

// Run executes the full pipeline: tables, then seeders, then triggers.
// Each category is discovered, dependency-ordered (triggers keep their
// scan order), and processed file by file. A transport-level engine
// failure aborts the remaining sequence; everything else is recorded and
// the run continues.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	failed := make(failedSet)

	for _, category := range []cube.Category{cube.CategoryTable, cube.CategorySeeder, cube.CategoryTrigger} {
		if err := e.runCategory(ctx, category, failed, report); err != nil {
			report.Failed = failed.names()
			return report, err
		}
	}

	report.Failed = failed.names()
	e.logger.Info("run finished", "files", len(report.Results), "failed", len(report.Failed))
	return report, nil
}

// runCategory processes every file of one category in dependency order.
func (e *Engine) runCategory(ctx context.Context, category cube.Category, failed failedSet, report *Report) error {
	paths, err := cube.Discover(e.cubesDir, category)
	if err != nil {
		return fmt.Errorf("failed to discover %s files: %w", category, err)
	}
	if len(paths) == 0 {
		return nil
	}

	e.logger.Debug("processing category", "category", string(category), "files", len(paths))

	files := make([]*cube.File, 0, len(paths))
	if category == cube.CategoryTrigger {
		// Triggers keep their scan order; they have no dependency graph
		for _, path := range paths {
			f, readErr := cube.Read(path)
			if readErr != nil {
				f = &cube.File{Path: path, Name: cube.FallbackName(path), Category: category}
			}
			files = append(files, f)
		}
	} else {
		result, resolved, resolveErr := e.resolver.ResolvePaths(paths, category)
		if resolveErr != nil {
			return resolveErr
		}
		if result.Cyclic {
			report.Cyclic = true
		}
		files = orderFiles(resolved, orderedNames(result, category))
	}

	for _, f := range files {
		res, runErr := e.runFile(ctx, f, failed)
		report.Results = append(report.Results, res)
		if runErr != nil {
			return runErr
		}
	}
	return nil
}

// orderedNames picks the populated sequence from a resolution result.
func orderedNames(result *resolver.Result, category cube.Category) []string {
	if category == cube.CategorySeeder {
		return result.Order.Seeders
	}
	return result.Order.Tables
}

// orderFiles sequences files by resolved table name, appending files whose
// name is missing from the order in their original relative order.
func orderFiles(files []*cube.File, names []string) []*cube.File {
	byName := make(map[string]*cube.File, len(files))
	for _, f := range files {
		if _, ok := byName[f.Name]; !ok {
			byName[f.Name] = f
		}
	}

	ordered := make([]*cube.File, 0, len(files))
	placed := make(map[string]bool, len(files))
	for _, name := range names {
		if f, ok := byName[name]; ok && !placed[name] {
			ordered = append(ordered, f)
			placed[name] = true
		}
	}
	for _, f := range files {
		if !placed[f.Name] {
			ordered = append(ordered, f)
			placed[f.Name] = true
		}
	}
	return ordered
}

// runFile validates one file, applies dependency skip propagation, and
// hands it to the engine. Ordering of the three steps is fixed: the skip
// check happens strictly after validation and before any engine call.
func (e *Engine) runFile(ctx context.Context, f *cube.File, failed failedSet) (FileResult, error) {
	res := FileResult{Path: f.Path, Table: f.Name, Category: f.Category}

	vr := e.validator.ValidateFile(f.Path)
	if !vr.IsValid() {
		e.logger.Debug("validation failed", "table", f.Name, "errors", len(vr.Errors))
		failed.add(f.Name)
		res.Status = StatusInvalid
		res.Errors = vr.Errors
		return res, nil
	}

	if dep, hit := failed.firstFailedDep(deps.Extract(f.Content)); hit {
		e.logger.Debug("skipping table, dependency failed", "table", f.Name, "dependency", dep)
		failed.add(f.Name)
		res.Status = StatusSkipped
		res.Errors = []validate.Error{{
			Item:    f.Name,
			Message: fmt.Sprintf("Skipped: dependency \"%s\" failed", dep),
			File:    f.Path,
			Line:    deps.FindReferenceLine(f.Content, dep),
		}}
		return res, nil
	}

	for _, instruction := range categoryInstructions(f.Category) {
		resp, err := e.runner.Apply(ctx, exec.Request{
			Instruction: instruction,
			Table:       f.Name,
			Database:    f.Database,
			Path:        f.Path,
		})
		if err != nil {
			// Transport failure: the engine itself is unusable, halt the run
			res.Status = StatusFailed
			failed.add(f.Name)
			return res, fmt.Errorf("engine unavailable for %s: %w", f.Name, err)
		}
		if !resp.OK() {
			e.logger.Debug("engine rejected instruction",
				"table", f.Name, "instruction", string(instruction), "status", resp.Status)
			failed.add(f.Name)
			res.Status = StatusFailed
			res.Errors = []validate.Error{{
				Item:    f.Name,
				Message: fmt.Sprintf("Engine %s failed (status %d): %s", instruction, resp.Status, resp.Payload),
				File:    f.Path,
				Line:    1,
			}}
			return res, nil
		}
	}

	res.Status = StatusOK
	return res, nil
}
