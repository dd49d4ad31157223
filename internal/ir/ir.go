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

// Package ir holds the intermediate representation the compiler produces:
// Rule, Build, Configuration and DynamicConfiguration, generalizing the
// teacher's Rule/Edge/State (eval_env.go, graph.go, state.go) into the
// value-typed, shared-ownership shape spec.md §3 requires.
package ir

import (
	"hash/fnv"
	"sort"
)

// Path is an interned filesystem target name. Equality is byte-wise, so a
// plain Go string suffices; no separate interning table is needed.
type Path = string

// Rule is an interpolated command template, immutable after compilation.
type Rule struct {
	Name        string
	Command     string
	Description string
}

// Build is the unit of scheduling: one instance of a rule (or no rule, for
// a phony alias) with concrete inputs and outputs.
type Build struct {
	// ID is a stable hash of outputs ∪ implicit_outputs, used as the
	// database key. It depends only on outputs, so rewriting the build file
	// without renaming outputs preserves cached hashes.
	ID uint64

	Outputs         []Path
	ImplicitOutputs []Path

	// Rule is nil for a phony build.
	Rule *Rule

	// Inputs holds explicit and implicit inputs already merged, in
	// declaration order (explicit first).
	Inputs []Path

	// ExplicitInputCount is the number of leading entries of Inputs that are
	// explicit (vs. implicit); used to compute $in, which reflects explicit
	// inputs only.
	ExplicitInputCount int

	OrderOnlyInputs []Path

	// DynamicModule is the path to a dyndep file produced by this build or
	// another, read after dependencies complete. Empty if none.
	DynamicModule Path
}

// Primary returns the build's designated primary output (outputs[0]).
func (b *Build) Primary() Path {
	return b.Outputs[0]
}

// ExplicitInputs returns the inputs that fed $in during interpolation.
func (b *Build) ExplicitInputs() []Path {
	return b.Inputs[:b.ExplicitInputCount]
}

// AllOutputs returns outputs ∪ implicit_outputs, outputs first.
func (b *Build) AllOutputs() []Path {
	all := make([]Path, 0, len(b.Outputs)+len(b.ImplicitOutputs))
	all = append(all, b.Outputs...)
	all = append(all, b.ImplicitOutputs...)
	return all
}

// BuildID computes the stable content-independent id of a build from its
// full output set. Sorting is not applied: output order is significant
// (outputs[0] is the primary), but the id must be stable across re-runs of
// the same build file, so it is seeded deterministically over the ordered
// slice.
func BuildID(allOutputs []Path) uint64 {
	h := fnv.New64a()
	for _, o := range allOutputs {
		_, _ = h.Write([]byte(o))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// Configuration is the compiler's output: every output and implicit_output
// resolves to the same Build value, plus the set of default outputs to
// build when none are named on the command line.
type Configuration struct {
	Outputs        map[Path]*Build
	DefaultOutputs []Path

	// BuildDirectory is the module-level "builddir" binding, if any.
	BuildDirectory string

	// SourceMap records output -> origin marker (the "srcdep" binding) for
	// error attribution, recorded uniformly for outputs and implicit
	// outputs per the resolved Open Question in SPEC_FULL.md.
	SourceMap map[Path]string
}

// NewConfiguration returns an empty Configuration.
func NewConfiguration() *Configuration {
	return &Configuration{
		Outputs:   map[Path]*Build{},
		SourceMap: map[Path]string{},
	}
}

// DefaultsOrAll returns DefaultOutputs if non-empty, else every output key
// in sorted (lexical, not declaration) order, matching "all outputs if none
// were declared".
func (c *Configuration) DefaultsOrAll() []Path {
	if len(c.DefaultOutputs) > 0 {
		return c.DefaultOutputs
	}
	all := make([]Path, 0, len(c.Outputs))
	for o := range c.Outputs {
		all = append(all, o)
	}
	sort.Strings(all)
	return all
}

// DynamicBuild is one entry of a DynamicConfiguration: the extra implicit
// inputs discovered for a given primary output.
type DynamicBuild struct {
	ImplicitInputs []Path
}

// DynamicConfiguration is produced by parsing a dynamic-module file: a
// degenerate build-file subset of "build OUT: dyndep | IMPLICIT_INPUTS..."
// entries.
type DynamicConfiguration struct {
	Outputs map[Path]*DynamicBuild
}

// BuildHash is the two-tier staleness hash stored per build id.
type BuildHash struct {
	TimestampHash uint64
	ContentHash   uint64
}
