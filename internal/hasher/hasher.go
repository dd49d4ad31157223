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

// Package hasher computes the two-tier staleness hash (timestamp_hash,
// content_hash) described by spec.md §4.5, generalizing the teacher's
// RecomputeDirty/RecomputeOutputDirty (graph.go, nobuild) from mtime
// comparison onto the hash-then-compare model original_source/src/run/hash.rs
// implements directly.
package hasher

import (
	"hash/fnv"
	"math/rand"

	"github.com/maruel/turtle/internal/ir"
	"github.com/maruel/turtle/internal/ports"
	"github.com/maruel/turtle/internal/turtleerr"
)

// Lookup resolves the BuildHash already stored for another build, keyed by
// ir.Build.ID, used to fold a phony input's staleness into its dependents.
type Lookup func(buildID uint64) (ir.BuildHash, bool)

// Classify splits a build's merged inputs (never order-only: those affect
// scheduling order but are excluded from the hash per spec.md §4.5) plus any
// dynamic implicit inputs into file inputs and phony inputs. A name present
// in the output map whose owning build has no rule is phony; anything else
// (including names absent from the map entirely) is a file input.
func Classify(cfg *ir.Configuration, inputs, dynamicInputs []ir.Path) (files, phony []ir.Path) {
	all := make([]ir.Path, 0, len(inputs)+len(dynamicInputs))
	all = append(all, inputs...)
	all = append(all, dynamicInputs...)
	for _, name := range all {
		if b, ok := cfg.Outputs[name]; ok && b.Rule == nil {
			phony = append(phony, name)
			continue
		}
		files = append(files, name)
	}
	return files, phony
}

// TimestampHash computes the cheap, mtime-based staleness hash for b.
func TimestampHash(cfg *ir.Configuration, fs ports.FileSystem, lookup Lookup, b *ir.Build, files, phony []ir.Path) (uint64, error) {
	if h, ok := fallback(b, files, phony); ok {
		return h, nil
	}
	h := fnv.New64a()
	hashCommand(h, b)
	for _, f := range files {
		t, exists, err := fs.ModifiedTime(f)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, &turtleerr.InputNotFoundErr{Name: f}
		}
		writeUint64(h, uint64(t.UnixNano()))
	}
	for _, p := range phony {
		bh, err := resolvePhony(cfg, lookup, p)
		if err != nil {
			return 0, err
		}
		writeUint64(h, bh.TimestampHash)
	}
	return h.Sum64(), nil
}

// ContentHash computes the expensive, content-based staleness hash for b.
func ContentHash(cfg *ir.Configuration, fs ports.FileSystem, lookup Lookup, b *ir.Build, files, phony []ir.Path) (uint64, error) {
	if h, ok := fallback(b, files, phony); ok {
		return h, nil
	}
	h := fnv.New64a()
	hashCommand(h, b)
	for _, f := range files {
		data, err := fs.ReadFile(f)
		if err != nil {
			return 0, err
		}
		_, _ = h.Write(data)
		_, _ = h.Write([]byte{0})
	}
	for _, p := range phony {
		bh, err := resolvePhony(cfg, lookup, p)
		if err != nil {
			return 0, err
		}
		writeUint64(h, bh.ContentHash)
	}
	return h.Sum64(), nil
}

// fallback implements the documented Open Question decision: a build with
// no rule (phony) and zero inputs of either kind gets a fresh random hash on
// every invocation, so it is always considered dirty and its dependents are
// always re-evaluated. This matches
// original_source/src/run/hash.rs:calculate_fallback_hash, including that
// the draw is independent per call (the timestamp and content tiers do not
// share one random value).
func fallback(b *ir.Build, files, phony []ir.Path) (uint64, bool) {
	if b.Rule == nil && len(files) == 0 && len(phony) == 0 {
		return rand.Uint64(), true
	}
	return 0, false
}

func resolvePhony(cfg *ir.Configuration, lookup Lookup, name ir.Path) (ir.BuildHash, error) {
	owner, ok := cfg.Outputs[name]
	if !ok {
		return ir.BuildHash{}, &turtleerr.InputNotFoundErr{Name: name}
	}
	bh, ok := lookup(owner.ID)
	if !ok {
		return ir.BuildHash{}, &turtleerr.InputNotFoundErr{Name: name}
	}
	return bh, nil
}

func hashCommand(h interface{ Write([]byte) (int, error) }, b *ir.Build) {
	if b.Rule != nil {
		_, _ = h.Write([]byte(b.Rule.Command))
	}
	_, _ = h.Write([]byte{0})
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	_, _ = h.Write(buf[:])
}
