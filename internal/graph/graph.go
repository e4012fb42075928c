// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graph computes strongly connected components and a dependency
// ordering over the call graph of a translation unit: which entity calls
// which, collapsed into SCCs and ordered so that every dependency is
// scheduled before its dependents.
package graph

import "sort"

// Graph is an adjacency list keyed by node name. Edge direction is
// "caller depends on callee": Graph["f"] = ["g", "h"] means f calls g and h.
type Graph map[string][]string

// New builds a Graph from a set of nodes and, for each node, the names of
// the nodes it directly depends on. Dependencies outside nodes are dropped
// (they refer to entities this translation unit doesn't own, e.g. libc).
// Adjacency lists are sorted so iteration order is deterministic.
func New(nodes []string, deps map[string][]string) Graph {
	own := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		own[n] = true
	}
	g := make(Graph, len(nodes))
	for _, n := range nodes {
		var edges []string
		for _, d := range deps[n] {
			if own[d] && d != n {
				edges = append(edges, d)
			}
		}
		sort.Strings(edges)
		g[n] = edges
	}
	return g
}

// Inverse returns the reverse graph: if g has an edge a->b, Inverse(g) has
// b->a, i.e. for each node, the nodes that depend on it.
func Inverse(g Graph) Graph {
	inv := make(Graph, len(g))
	for n := range g {
		if _, ok := inv[n]; !ok {
			inv[n] = nil
		}
	}
	for n, edges := range g {
		for _, d := range edges {
			inv[d] = append(inv[d], n)
		}
	}
	for n := range inv {
		sort.Strings(inv[n])
	}
	return inv
}

// SCC is one strongly connected component: a set of mutually (directly or
// transitively) dependent nodes. Singleton, non-self-referential nodes
// yield an SCC of length 1.
type SCC struct {
	Nodes []string
}

// Len reports the number of members, a convenience for the common
// len(scc.Nodes) == 1 check that distinguishes ordinary entities from
// genuine mutual-recursion groups.
func (s SCC) Len() int { return len(s.Nodes) }

// tarjan holds the working state of Tarjan's strongly-connected-components
// algorithm over g.
type tarjan struct {
	g        Graph
	index    int
	indices  map[string]int
	lowlink  map[string]int
	onStack  map[string]bool
	stack    []string
	sccs     []SCC
}

// SCCs computes the strongly connected components of g via Tarjan's
// algorithm. Nodes are visited in sorted order so the result is
// deterministic across runs for the same graph.
func SCCs(g Graph) []SCC {
	t := &tarjan{
		g:       g,
		indices: make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if _, visited := t.indices[n]; !visited {
			t.strongConnect(n)
		}
	}
	return t.sccs
}

func (t *tarjan) strongConnect(v string) {
	t.indices[v] = t.index
	t.lowlink[v] = t.index
	t.index++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g[v] {
		if _, visited := t.indices[w]; !visited {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.indices[w] < t.lowlink[v] {
				t.lowlink[v] = t.indices[w]
			}
		}
	}

	if t.lowlink[v] == t.indices[v] {
		var component []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		sort.Strings(component)
		t.sccs = append(t.sccs, SCC{Nodes: component})
	}
}

// PostOrder returns the SCCs of g ordered so that every SCC appears after
// all SCCs it depends on (dependency-before-dependent). inv is Inverse(g);
// it is accepted to keep the two-graph call shape, but the order is
// computed from g alone and inv is not read.
//
// This mirrors the two-pass "compute SCCs, then order them" shape the
// original translator uses: Tarjan already yields components in reverse
// topological order (each component is closed out only once everything it
// can reach has been), so the condensation graph (one node per SCC) built
// here is for collapsing the inter-SCC edges, not for reordering.
func PostOrder(g Graph, inv Graph) []SCC {
	sccs := SCCs(g)

	owner := make(map[string]int, len(g))
	for i, scc := range sccs {
		for _, n := range scc.Nodes {
			owner[n] = i
		}
	}

	// condensation: edges between distinct SCCs, deduped.
	condEdges := make([]map[int]bool, len(sccs))
	for i := range condEdges {
		condEdges[i] = make(map[int]bool)
	}
	for n, edges := range g {
		for _, d := range edges {
			if owner[n] != owner[d] {
				condEdges[owner[n]][owner[d]] = true
			}
		}
	}

	visited := make([]bool, len(sccs))
	var order []SCC
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		deps := make([]int, 0, len(condEdges[i]))
		for d := range condEdges[i] {
			deps = append(deps, d)
		}
		sort.Ints(deps)
		for _, d := range deps {
			visit(d)
		}
		order = append(order, sccs[i])
	}
	for i := range sccs {
		visit(i)
	}
	return order
}
