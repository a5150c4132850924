package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jowpereira/LOS/internal/ir"
)

// Cycle describes sets and parameters whose definitions depend on each
// other, so no binding order exists.
type Cycle struct {
	Path    []string `json:"path"` // ["set:A", "param:c", "set:A"]
	Message string   `json:"message"`
	Pos     ir.Pos   `json:"pos"`
}

// BindingOrder returns the order in which sets and parameters must be
// bound so that each is bound after everything its definition reads.
//
// The algorithm:
//  1. Build a node → dependency graph (filtered sets read their source
//     set and whatever their condition references; parameters read their
//     index sets)
//  2. Run Tarjan's algorithm; SCCs come out dependencies-first
//  3. Any SCC with more than one node, or a self-loop, is a Cycle
func BindingOrder(m *ir.Model) ([]string, []Cycle) {
	g := buildDependencyGraph(m)
	sccs := tarjanSCC(g)

	var order []string
	var cycles []Cycle
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			cycles = append(cycles, sccToCycle(scc, g))
			continue
		}
		order = append(order, scc[0])
	}
	return order, cycles
}

func setNode(name string) string   { return "set:" + name }
func paramNode(name string) string { return "param:" + name }

// dependencyGraph keeps insertion order so results are deterministic.
type dependencyGraph struct {
	nodes []string
	edges map[string][]string
	pos   map[string]ir.Pos
}

func (g *dependencyGraph) add(node string, pos ir.Pos) {
	if _, ok := g.edges[node]; ok {
		return
	}
	g.nodes = append(g.nodes, node)
	g.edges[node] = []string{}
	g.pos[node] = pos
}

func (g *dependencyGraph) dependOn(node, dep string) {
	if _, ok := g.edges[dep]; !ok {
		return
	}
	if !slices.Contains(g.edges[node], dep) {
		g.edges[node] = append(g.edges[node], dep)
	}
}

func buildDependencyGraph(m *ir.Model) *dependencyGraph {
	g := &dependencyGraph{edges: make(map[string][]string), pos: make(map[string]ir.Pos)}
	for _, s := range m.Sets {
		g.add(setNode(s.Name), s.Pos)
	}
	for _, p := range m.Params {
		g.add(paramNode(p.Name), p.Pos)
	}

	for _, s := range m.Sets {
		if s.Filter == nil {
			continue
		}
		node := setNode(s.Name)
		g.dependOn(node, setNode(s.Filter.Of))
		for _, dep := range exprDependencies(s.Filter.Cond) {
			g.dependOn(node, dep)
		}
	}
	for _, p := range m.Params {
		for _, idx := range p.Index {
			g.dependOn(paramNode(p.Name), setNode(idx))
		}
	}
	return g
}

// exprDependencies lists the set and parameter nodes e reads.
func exprDependencies(e ir.Expr) []string {
	var deps []string
	ir.Walk(e, func(n ir.Expr) bool {
		switch x := n.(type) {
		case *ir.ParamRef:
			deps = append(deps, paramNode(x.Name))
		case *ir.Membership:
			deps = append(deps, setNode(x.Set))
		case *ir.Aggregate:
			for _, it := range x.Iters {
				deps = append(deps, setNode(it.Set))
			}
		}
		return true
	})
	return deps
}

func hasSelfLoop(node string, g *dependencyGraph) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// A component is emitted only after every component it can reach.
func tarjanSCC(g *dependencyGraph) [][]string {
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

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

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
			// Report members in declaration order.
			slices.SortFunc(scc, func(a, b string) int {
				return slices.Index(g.nodes, a) - slices.Index(g.nodes, b)
			})
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToCycle(scc []string, g *dependencyGraph) Cycle {
	path := reconstructCyclePath(scc, g)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("declarations depend on each other: %s", strings.Join(path, " -> ")),
		Pos:     g.pos[scc[0]],
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, g *dependencyGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}
	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range g.edges[current] {
			if w == start {
				return append(path, start)
			}
			if inSCC[w] && !visited[w] && next == "" {
				next = w
			}
		}
		if next == "" {
			return path
		}
		visited[next] = true
		path = append(path, next)
		current = next
	}
}
