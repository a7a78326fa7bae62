// Package resolver turns a set of cube files into a persisted execution
// order. It extracts foreign key references, builds the dependency graph,
// sorts it, and saves the result so later runs can reorder consistently.
package resolver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cubestack/cubist/internal/cube"
	"github.com/cubestack/cubist/internal/dag"
	"github.com/cubestack/cubist/internal/deps"
	"github.com/cubestack/cubist/internal/state"
)

// Resolver computes and persists execution orders.
type Resolver struct {
	store  state.Store
	logger *slog.Logger
}

// New creates a resolver. A nil logger discards output.
func New(store state.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{store: store, logger: logger}
}

// Result carries the computed order and its cycle status.
type Result struct {
	Order *state.ExecutionOrder
	// Cyclic is set when the graph contained a cycle. The order is still
	// complete (every table appears exactly once); Unresolved names the
	// cycle members.
	Cyclic     bool
	Unresolved []string
}

// Resolve computes the execution order for the given files and persists
// it. The category decides whether the tables or the seeders sequence is
// populated; a single call never populates both. Table names that appear
// in more than one file keep the first declaration; later duplicates are
// logged and ignored.
func (r *Resolver) Resolve(files []*cube.File, category cube.Category) (*Result, error) {
	graph := dag.NewGraph()

	for _, f := range files {
		name := f.Name
		if name == "" {
			name = cube.FallbackName(f.Path)
		}
		if graph.HasNode(name) {
			r.logger.Warn("duplicate table name, keeping first declaration",
				"table", name, "path", f.Path)
			continue
		}
		graph.AddNode(name)

		for _, dep := range deps.Extract(f.Content) {
			graph.AddDependency(name, dep)
		}
	}

	sorted := graph.Sort()
	if sorted.Cyclic {
		r.logger.Warn("dependency cycle detected, completing order anyway",
			"unresolved", sorted.Unresolved)
	}

	order := &state.ExecutionOrder{Timestamp: time.Now()}
	if category == cube.CategorySeeder {
		order.Seeders = sorted.Tables
	} else {
		order.Tables = sorted.Tables
	}

	if err := r.store.Save(order); err != nil {
		return nil, fmt.Errorf("failed to persist execution order: %w", err)
	}

	r.logger.Debug("resolved execution order",
		"category", string(category), "count", len(sorted.Tables), "cyclic", sorted.Cyclic)

	return &Result{
		Order:      order,
		Cyclic:     sorted.Cyclic,
		Unresolved: sorted.Unresolved,
	}, nil
}

// ResolvePaths reads the given files and resolves them. Unreadable files
// participate with their fallback name and no dependencies, so ordering
// still covers them and validation remains the place their error surfaces.
func (r *Resolver) ResolvePaths(paths []string, category cube.Category) (*Result, []*cube.File, error) {
	files := make([]*cube.File, 0, len(paths))
	for _, path := range paths {
		f, err := cube.Read(path)
		if err != nil {
			r.logger.Debug("unreadable cube file during resolution", "path", path, "error", err)
			f = &cube.File{Path: path, Name: cube.FallbackName(path), Category: cube.CategoryOf(path)}
		}
		files = append(files, f)
	}

	result, err := r.Resolve(files, category)
	if err != nil {
		return nil, nil, err
	}
	return result, files, nil
}
