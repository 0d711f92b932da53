package passes

import (
	"fmt"
	"strings"

	"github.com/roach88/loom/internal/ir"
)

// CheckGeneratorCycles rejects instantiation cycles in the generator tree.
// Child registration refuses self-adoption and ancestors, so construction
// cannot build a ring, but a restored snapshot links children straight from
// records and can encode one; code generation and every traversal-based
// pass require an acyclic tree, so a cycle is a hard error, reported with
// the definition-name path around the ring.
func CheckGeneratorCycles(top *ir.Generator) error {
	if top == nil {
		return ir.NewUserError("cannot check an empty generator")
	}
	sccs := generatorSCCs(top)
	for _, scc := range sccs {
		if len(scc) <= 1 {
			continue
		}
		path := reconstructCyclePath(scc)
		nodes := make([]ir.Node, len(scc))
		for i, g := range scc {
			nodes[i] = g
		}
		return ir.NewGeneratorError(fmt.Sprintf(
			"generator instantiation cycle: %s", strings.Join(path, " -> ")), nodes...)
	}
	return nil
}

// generatorSCCs finds strongly connected components over the child relation
// using Tarjan's algorithm. A component with more than one member is a
// cycle; single-member components are ordinary generators, since a
// generator cannot be its own child.
func generatorSCCs(top *ir.Generator) [][]*ir.Generator {
	var (
		index   = 0
		stack   []*ir.Generator
		indices = make(map[*ir.Generator]int)
		lowlink = make(map[*ir.Generator]int)
		onStack = make(map[*ir.Generator]bool)
		sccs    [][]*ir.Generator
	)

	var strongConnect func(*ir.Generator)
	strongConnect = func(v *ir.Generator) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range v.Children() {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []*ir.Generator
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

	strongConnect(top)
	return sccs
}

// reconstructCyclePath walks the child edges inside one component until it
// returns to the starting generator, yielding a readable A -> B -> A trail.
func reconstructCyclePath(scc []*ir.Generator) []string {
	members := make(map[*ir.Generator]bool, len(scc))
	for _, g := range scc {
		members[g] = true
	}

	// Tarjan pops the component root last, and the root is the first
	// member the traversal from the top reached, so starting there keeps
	// the reported rotation stable and readable.
	start := scc[len(scc)-1]
	current := start
	path := []string{current.Name()}
	visited := make(map[*ir.Generator]bool)

	for {
		visited[current] = true
		var next *ir.Generator
		for _, child := range current.Children() {
			if members[child] && (!visited[child] || child == start) {
				next = child
				break
			}
		}
		if next == nil {
			break
		}
		path = append(path, next.Name())
		if next == start {
			break
		}
		current = next
	}
	return path
}
