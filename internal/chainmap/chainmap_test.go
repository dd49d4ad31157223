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

package chainmap

import "testing"

func TestGetInsert(t *testing.T) {
	c := New[string]()
	c.Insert("x", "42")
	if v, ok := c.Get("x"); !ok || v != "42" {
		t.Fatalf("got %q, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss")
	}
}

func TestForkDoesNotMutateParent(t *testing.T) {
	parent := New[string]()
	parent.Insert("x", "42")

	child := parent.Fork()
	child.Insert("x", "13")
	child.Insert("y", "1")

	if v, _ := parent.Get("x"); v != "42" {
		t.Fatalf("parent.x mutated: got %q", v)
	}
	if _, ok := parent.Get("y"); ok {
		t.Fatalf("parent saw child-only key y")
	}
	if v, _ := child.Get("x"); v != "13" {
		t.Fatalf("child.x = %q, want 13 (shadowing)", v)
	}
}

func TestForkShadowsAcrossMultipleLevels(t *testing.T) {
	root := New[string]()
	root.Insert("a", "root")
	mid := root.Fork()
	leaf := mid.Fork()

	if v, _ := leaf.Get("a"); v != "root" {
		t.Fatalf("leaf.a = %q, want root (inherited)", v)
	}
	mid.Insert("a", "mid")
	if v, _ := leaf.Get("a"); v != "mid" {
		t.Fatalf("leaf.a = %q, want mid (leaf shares mid's layer, so a write to mid after the fork is visible)", v)
	}
}

func TestLayerOnlyLocal(t *testing.T) {
	root := New[string]()
	root.Insert("a", "1")
	child := root.Fork()
	child.Insert("b", "2")
	layer := child.Layer()
	if _, ok := layer["a"]; ok {
		t.Fatalf("Layer() leaked ancestor key")
	}
	if layer["b"] != "2" {
		t.Fatalf("Layer() missing local key")
	}
}
