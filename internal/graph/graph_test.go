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

package graph

import (
	"testing"

	"github.com/maruel/turtle/internal/ir"
	"github.com/maruel/turtle/internal/turtleerr"
)

func build(outputs []string, inputs []string) *ir.Build {
	return &ir.Build{
		Outputs: outputs,
		Rule:    &ir.Rule{Command: "x"},
		Inputs:  inputs,
	}
}

func TestAcyclicGraphValidates(t *testing.T) {
	cfg := ir.NewConfiguration()
	a := build([]string{"a"}, []string{"b"})
	b := build([]string{"b"}, nil)
	cfg.Outputs["a"] = a
	cfg.Outputs["b"] = b
	g := New(cfg)
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestSimpleCycleDetected(t *testing.T) {
	cfg := ir.NewConfiguration()
	a := build([]string{"a"}, []string{"b"})
	b := build([]string{"b"}, []string{"a"})
	cfg.Outputs["a"] = a
	cfg.Outputs["b"] = b
	g := New(cfg)
	err := g.Validate()
	var cyc *turtleerr.CircularBuildDependencyErr
	if !asCycle(err, &cyc) {
		t.Fatalf("got %v, want CircularBuildDependencyErr", err)
	}
	if len(cyc.Paths) != 2 {
		t.Fatalf("expected a 2-node cycle, got %v", cyc.Paths)
	}
}

func TestSelfDependencyYieldsSingleElementCycle(t *testing.T) {
	cfg := ir.NewConfiguration()
	a := build([]string{"a"}, []string{"a"})
	cfg.Outputs["a"] = a
	g := New(cfg)
	err := g.Validate()
	var cyc *turtleerr.CircularBuildDependencyErr
	if !asCycle(err, &cyc) {
		t.Fatalf("got %v, want CircularBuildDependencyErr", err)
	}
	if len(cyc.Paths) != 1 || cyc.Paths[0] != "a" {
		t.Fatalf("expected single-element self-loop path, got %v", cyc.Paths)
	}
}

func TestSecondaryOutputAliasesToPrimary(t *testing.T) {
	cfg := ir.NewConfiguration()
	b := &ir.Build{Outputs: []string{"p"}, ImplicitOutputs: []string{"s"}, Rule: &ir.Rule{Command: "x"}}
	cfg.Outputs["p"] = b
	cfg.Outputs["s"] = b
	g := New(cfg)
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	deps := g.Dependencies("s")
	if len(deps) != 1 || deps[0] != "p" {
		t.Fatalf("expected secondary output to depend on its primary, got %v", deps)
	}
}

func TestValidateDynamicAddsEdgesAndDetectsNewCycle(t *testing.T) {
	cfg := ir.NewConfiguration()
	a := build([]string{"a"}, nil)
	b := build([]string{"b"}, nil)
	cfg.Outputs["a"] = a
	cfg.Outputs["b"] = b
	g := New(cfg)
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	dyn := &ir.DynamicConfiguration{Outputs: map[ir.Path]*ir.DynamicBuild{
		"a": {ImplicitInputs: []ir.Path{"b"}},
		"b": {ImplicitInputs: []ir.Path{"a"}},
	}}
	err := g.ValidateDynamic(dyn)
	var cyc *turtleerr.CircularBuildDependencyErr
	if !asCycle(err, &cyc) {
		t.Fatalf("got %v, want CircularBuildDependencyErr after dynamic ingestion", err)
	}
}

func TestValidateDynamicUnknownOutput(t *testing.T) {
	cfg := ir.NewConfiguration()
	cfg.Outputs["a"] = build([]string{"a"}, nil)
	g := New(cfg)
	dyn := &ir.DynamicConfiguration{Outputs: map[ir.Path]*ir.DynamicBuild{
		"missing": {ImplicitInputs: []ir.Path{"a"}},
	}}
	err := g.ValidateDynamic(dyn)
	if _, ok := err.(*turtleerr.DynamicDependencyNotFoundErr); !ok {
		t.Fatalf("got %v, want DynamicDependencyNotFoundErr", err)
	}
}

func asCycle(err error, target **turtleerr.CircularBuildDependencyErr) bool {
	e, ok := err.(*turtleerr.CircularBuildDependencyErr)
	if ok {
		*target = e
	}
	return ok
}
