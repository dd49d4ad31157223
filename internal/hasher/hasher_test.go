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

package hasher

import (
	"testing"
	"time"

	"github.com/maruel/turtle/internal/ir"
	"github.com/maruel/turtle/internal/ports"
)

func noLookup(uint64) (ir.BuildHash, bool) { return ir.BuildHash{}, false }

func TestClassifySplitsFileAndPhony(t *testing.T) {
	cfg := ir.NewConfiguration()
	cfg.Outputs["alias"] = &ir.Build{Outputs: []string{"alias"}}
	files, phony := Classify(cfg, []ir.Path{"a.c", "alias"}, nil)
	if len(files) != 1 || files[0] != "a.c" {
		t.Fatalf("files = %v", files)
	}
	if len(phony) != 1 || phony[0] != "alias" {
		t.Fatalf("phony = %v", phony)
	}
}

func TestTimestampHashChangesWithMtime(t *testing.T) {
	cfg := ir.NewConfiguration()
	b := &ir.Build{Rule: &ir.Rule{Command: "cc"}}
	fs := ports.NewMemFileSystem()
	fs.Write("a.c", []byte("x"), time.Unix(1, 0))
	files, phony := Classify(cfg, []ir.Path{"a.c"}, nil)

	h1, err := TimestampHash(cfg, fs, noLookup, b, files, phony)
	if err != nil {
		t.Fatal(err)
	}
	fs.Write("a.c", []byte("x"), time.Unix(2, 0))
	h2, err := TimestampHash(cfg, fs, noLookup, b, files, phony)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("expected timestamp hash to change with mtime")
	}
}

func TestContentHashStableAcrossMtime(t *testing.T) {
	cfg := ir.NewConfiguration()
	b := &ir.Build{Rule: &ir.Rule{Command: "cc"}}
	fs := ports.NewMemFileSystem()
	fs.Write("a.c", []byte("same"), time.Unix(1, 0))
	files, phony := Classify(cfg, []ir.Path{"a.c"}, nil)

	h1, err := ContentHash(cfg, fs, noLookup, b, files, phony)
	if err != nil {
		t.Fatal(err)
	}
	fs.Write("a.c", []byte("same"), time.Unix(99, 0))
	h2, err := ContentHash(cfg, fs, noLookup, b, files, phony)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("content hash must not depend on mtime")
	}
}

func TestZeroInputPhonyBuildIsRandomEachTime(t *testing.T) {
	cfg := ir.NewConfiguration()
	b := &ir.Build{}
	fs := ports.NewMemFileSystem()
	h1, err := TimestampHash(cfg, fs, noLookup, b, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := TimestampHash(cfg, fs, noLookup, b, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("expected independent random draws for a zero-input phony build (birthday collision astronomically unlikely)")
	}
}

func TestPhonyInputFoldsOwnerHash(t *testing.T) {
	cfg := ir.NewConfiguration()
	owner := &ir.Build{ID: 7}
	cfg.Outputs["alias"] = owner
	b := &ir.Build{Rule: &ir.Rule{Command: "cc"}}
	fs := ports.NewMemFileSystem()

	lookup := func(id uint64) (ir.BuildHash, bool) {
		if id == 7 {
			return ir.BuildHash{TimestampHash: 111, ContentHash: 222}, true
		}
		return ir.BuildHash{}, false
	}
	files, phony := Classify(cfg, []ir.Path{"alias"}, nil)
	h1, err := TimestampHash(cfg, fs, lookup, b, files, phony)
	if err != nil {
		t.Fatal(err)
	}
	lookup2 := func(id uint64) (ir.BuildHash, bool) {
		return ir.BuildHash{TimestampHash: 999, ContentHash: 222}, true
	}
	h2, err := TimestampHash(cfg, fs, lookup2, b, files, phony)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("expected hash to change when the phony owner's timestamp hash changes")
	}
}
