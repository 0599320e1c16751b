package compiler

import (
	"fmt"
	"strings"
)

// Cycle is a set of queries that reach each other through their sources
// or sequence arguments. No query in a cycle can be built.
type Cycle struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeCycles finds queries that depend on themselves.
//
// The algorithm:
//  1. Build a query -> referenced queries graph from sources and arguments
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// Cycles are reported in declaration order of their first query.
func AnalyzeCycles(prog *Program) []Cycle {
	if prog == nil || len(prog.Queries) == 0 {
		return []Cycle{}
	}

	graph := buildDependencyGraph(prog)
	order := make([]string, len(prog.Queries))
	for i, q := range prog.Queries {
		order[i] = q.Name
	}

	cycles := []Cycle{}
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	return cycles
}

// dependencyGraph maps a query name to the queries it reads.
type dependencyGraph map[string][]string

func buildDependencyGraph(prog *Program) dependencyGraph {
	graph := make(dependencyGraph)
	for _, q := range prog.Queries {
		graph[q.Name] = []string{}
		for _, ref := range references(q) {
			if prog.Query(ref) != nil {
				graph[q.Name] = append(graph[q.Name], ref)
			}
		}
	}
	return graph
}

// references lists the names a query mentions as a source or as a
// sequence argument, including "p => name" lambda bodies.
func references(q *Query) []string {
	refs := []string{q.Source}
	for _, op := range q.Ops {
		for _, arg := range op.Args {
			arg = strings.TrimSpace(arg)
			if _, body, ok := strings.Cut(arg, "=>"); ok {
				arg = strings.TrimSpace(body)
			}
			refs = append(refs, arg)
		}
	}
	return refs
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's
// algorithm, visiting roots in the given order.
//
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToCycle(scc []string, graph dependencyGraph) Cycle {
	if len(scc) == 1 {
		name := scc[0]
		return Cycle{
			Path:    []string{name, name},
			Message: fmt.Sprintf("query %s reads itself", name),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("queries depend on each other: %s", strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath follows edges inside the SCC from its first
// member until it returns there.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
