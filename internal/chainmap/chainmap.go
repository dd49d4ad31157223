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

// Package chainmap implements the layered scope the compiler uses for
// variables and rules: an ordered stack of maps with copy-on-write forking,
// generalizing the teacher's BindingEnv parent-pointer chain (eval_env.go)
// to an explicit stack so submodule/build forks never need to mutate an
// ancestor.
package chainmap

// ChainMap is an ordered stack of key->value layers. Lookups walk newest to
// oldest; writes always land in the newest layer.
type ChainMap[V any] struct {
	layers []map[string]V
}

// New returns a ChainMap with a single, empty root layer.
func New[V any]() *ChainMap[V] {
	return &ChainMap[V]{layers: []map[string]V{{}}}
}

// Get consults layers from newest to oldest and returns the first hit.
func (c *ChainMap[V]) Get(key string) (V, bool) {
	for i := len(c.layers) - 1; i >= 0; i-- {
		if v, ok := c.layers[i][key]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Insert writes into the newest layer only.
func (c *ChainMap[V]) Insert(key string, v V) {
	c.layers[len(c.layers)-1][key] = v
}

// Fork pushes a new empty top layer and returns a child view whose writes
// do not mutate ancestors. The child shares the parent's layer maps by
// reference but owns its own slice header and a fresh top layer, so writes
// to the child land only in that new layer, while later writes to the
// parent's top layer stay visible through the child.
func (c *ChainMap[V]) Fork() *ChainMap[V] {
	forked := make([]map[string]V, len(c.layers), len(c.layers)+1)
	copy(forked, c.layers)
	forked = append(forked, map[string]V{})
	return &ChainMap[V]{layers: forked}
}

// Layer returns a read-only view of the newest layer, for callers that
// need to enumerate only locally-defined keys.
func (c *ChainMap[V]) Layer() map[string]V {
	return c.layers[len(c.layers)-1]
}
