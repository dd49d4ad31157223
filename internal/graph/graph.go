// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graph builds the output->input dependency graph and validates it
// for cycles, generalizing the teacher's State/PrimaryTargetsErrorMessage
// (state.go, graph.go, nobuild) onto the edge-list-plus-toposort model
// original_source/src/validation/build_graph.rs implements with petgraph.
package graph

import (
	"github.com/sasha-s/go-deadlock"

	"github.com/maruel/turtle/internal/ir"
	"github.com/maruel/turtle/internal/turtleerr"
)

// BuildGraph is the output->input adjacency validated for cycles before a
// run and again by the runner after each dynamic-dependency file is
// ingested. It is guarded by mu because dynamic-dependency
// ingestion mutates it concurrently with builds already underway for
// unrelated outputs; per SPEC_FULL.md §11 this lock is independent of (and
// held far more briefly than) the runner's command-execution semaphore.
type BuildGraph struct {
	mu deadlock.Mutex

	// edges[output] lists every path output directly depends on (inputs,
	// order-only inputs, and for a secondary output, its primary output).
	edges map[ir.Path][]ir.Path

	// primary maps every output (primary or secondary) to its build's
	// primary (outputs[0]).
	primary map[ir.Path]ir.Path
}

// New constructs a BuildGraph from a compiled Configuration.
func New(cfg *ir.Configuration) *BuildGraph {
	g := &BuildGraph{
		edges:   map[ir.Path][]ir.Path{},
		primary: map[ir.Path]ir.Path{},
	}
	seen := map[*ir.Build]bool{}
	for _, b := range cfg.Outputs {
		if seen[b] {
			continue
		}
		seen[b] = true
		primary := b.Primary()
		g.addNode(primary)
		g.primary[primary] = primary
		for _, in := range b.Inputs {
			g.addEdge(primary, in)
		}
		for _, in := range b.OrderOnlyInputs {
			g.addEdge(primary, in)
		}
		for _, secondary := range b.AllOutputs()[1:] {
			g.addNode(secondary)
			g.primary[secondary] = primary
			g.addEdge(secondary, primary)
		}
	}
	return g
}

func (g *BuildGraph) addNode(p ir.Path) {
	if _, ok := g.edges[p]; !ok {
		g.edges[p] = nil
	}
}

func (g *BuildGraph) addEdge(output, input ir.Path) {
	g.addNode(output)
	g.addNode(input)
	g.edges[output] = append(g.edges[output], input)
}

// Validate runs a topological sort over the current graph; on failure it
// reports the strongly connected component containing the offending node,
// matching original_source's toposort-then-kosaraju_scc fallback.
func (g *BuildGraph) Validate() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.validateLocked()
}

func (g *BuildGraph) validateLocked() error {
	if cycleNode, ok := g.toposortFails(); ok {
		comp := g.sccContaining(cycleNode)
		return &turtleerr.CircularBuildDependencyErr{Paths: comp}
	}
	return nil
}

// ValidateDynamic adds edges discovered from a dyndep file (each dynamic
// build's implicit inputs become edges from the owning primary output) and
// re-validates, matching original_source's validate_dynamic.
func (g *BuildGraph) ValidateDynamic(dyn *ir.DynamicConfiguration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for output, db := range dyn.Outputs {
		primary, ok := g.primary[output]
		if !ok {
			return &turtleerr.DynamicDependencyNotFoundErr{Build: output}
		}
		for _, in := range db.ImplicitInputs {
			g.addEdge(primary, in)
		}
	}
	return g.validateLocked()
}

// toposortFails reports whether the graph currently has a cycle, and if so
// one node known to participate in it (Kahn's algorithm: after removing
// every zero-indegree node repeatedly, any node left over is on a cycle or
// is an input of one; a node on the cycle is then found among them).
func (g *BuildGraph) toposortFails() (ir.Path, bool) {
	indegree := map[ir.Path]int{}
	for n := range g.edges {
		indegree[n] = 0
	}
	for _, ins := range g.edges {
		for _, in := range ins {
			indegree[in]++
		}
	}
	var queue []ir.Path
	for n, d := range indegree {
		if d == 0 {
			queue = append(queue, n)
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		visited++
		for _, in := range g.edges[n] {
			indegree[in]--
			if indegree[in] == 0 {
				queue = append(queue, in)
			}
		}
	}
	if visited == len(g.edges) {
		return "", false
	}
	for n, d := range indegree {
		if d > 0 {
			// Every leftover node still has a leftover dependent, so walking
			// from dependent to dependent must revisit a node; that node is
			// on a cycle.
			for seen := map[ir.Path]bool{}; !seen[n]; {
				seen[n] = true
			search:
				for m, ins := range g.edges {
					for _, in := range ins {
						if in == n && indegree[m] > 0 {
							n = m
							break search
						}
					}
				}
			}
			return n, true
		}
	}
	for n := range g.edges {
		return n, true
	}
	return "", true
}

// sccContaining returns the strongly connected component containing start,
// via Tarjan's algorithm restricted to the reachable subgraph; a
// self-dependency (output depending directly on itself) yields the
// single-element component {start}, per the resolved Open Question in
// SPEC_FULL.md §13.
func (g *BuildGraph) sccContaining(start ir.Path) []ir.Path {
	index := map[ir.Path]int{}
	low := map[ir.Path]int{}
	onStack := map[ir.Path]bool{}
	var stack []ir.Path
	counter := 0
	var components [][]ir.Path

	var strongconnect func(v ir.Path)
	strongconnect = func(v ir.Path) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, ok := index[w]; !ok {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if index[w] < low[v] {
					low[v] = index[w]
				}
			}
		}

		if low[v] == index[v] {
			var comp []ir.Path
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			components = append(components, comp)
		}
	}
	strongconnect(start)

	for _, comp := range components {
		for _, n := range comp {
			if n == start {
				return comp
			}
		}
	}
	return []ir.Path{start}
}

// Dependencies returns a copy of the direct dependencies recorded for
// output. The runner does not call it; it schedules from each Build's own
// input lists.
func (g *BuildGraph) Dependencies(output ir.Path) []ir.Path {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ir.Path{}, g.edges[output]...)
}
