// Package dag provides the dependency graph and ordering for cube tables.
// Ordering is deterministic: nodes are ranked by Kahn's algorithm in the
// order they were first added, never alphabetically. A cyclic graph still
// yields a complete order (unprocessed nodes are appended last), with the
// cycle surfaced through a status flag instead of an error.
package dag

// Graph is a directed dependency graph over table names. An edge runs
// from a dependency to the table that references it.
type Graph struct {
	// order is the encounter order of node insertion.
	order []string
	nodes map[string]bool
	// dependents maps a name to the tables that reference it.
	// The source side of an edge may be a name that is not a node;
	// such edges are ignored for in-degree purposes.
	dependents map[string][]string
	// deps maps a table to its referenced names.
	deps map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[string]bool),
		dependents: make(map[string][]string),
		deps:       make(map[string][]string),
	}
}

// AddNode registers a table. Adding an existing node is a no-op, so the
// first encounter fixes a node's position in the ordering.
func (g *Graph) AddNode(name string) {
	if g.nodes[name] {
		return
	}
	g.nodes[name] = true
	g.order = append(g.order, name)
}

// HasNode reports whether a table is known to the graph.
func (g *Graph) HasNode(name string) bool { return g.nodes[name] }

// AddDependency records that table references dep. Neither side needs to
// be a known node yet; unresolved sources simply never contribute to
// in-degrees.
func (g *Graph) AddDependency(table, dep string) {
	g.deps[table] = append(g.deps[table], dep)
	g.dependents[dep] = append(g.dependents[dep], table)
}

// Dependencies returns the recorded references of a table.
func (g *Graph) Dependencies(table string) []string {
	return g.deps[table]
}

// Dependents returns the tables that reference the given name.
func (g *Graph) Dependents(name string) []string {
	return g.dependents[name]
}

// NodeCount returns the number of known tables.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Order is the result of sorting the graph.
type Order struct {
	// Tables is the complete dependency-respecting sequence. Every known
	// table appears exactly once, even when the graph is cyclic.
	Tables []string
	// Cyclic reports whether a cycle prevented a strict topological
	// order. The members of the cycle are appended to Tables in their
	// encounter order.
	Cyclic bool
	// Unresolved lists the tables that were part of a cycle.
	Unresolved []string
}

// Sort computes the execution order with Kahn's algorithm. The in-degree
// of a table counts only references whose source is itself a known node;
// external references do not block ordering. The ready queue is seeded
// and drained in encounter order for deterministic output.
func (g *Graph) Sort() Order {
	indegree := make(map[string]int, len(g.nodes))
	for _, name := range g.order {
		count := 0
		for _, dep := range g.deps[name] {
			if g.nodes[dep] {
				count++
			}
		}
		indegree[name] = count
	}

	var queue []string
	for _, name := range g.order {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	result := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, name)
		done[name] = true

		for _, dependent := range g.dependents[name] {
			if !g.nodes[dependent] || done[dependent] {
				continue
			}
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	order := Order{Tables: result}
	if len(result) < len(g.order) {
		// Cycle: force completion so every table still appears once
		order.Cyclic = true
		for _, name := range g.order {
			if !done[name] {
				order.Tables = append(order.Tables, name)
				order.Unresolved = append(order.Unresolved, name)
			}
		}
	}

	return order
}
