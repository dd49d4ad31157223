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

package manifest

import (
	"testing"
	"time"

	"github.com/maruel/turtle/internal/compiler"
	"github.com/maruel/turtle/internal/ports"
)

func TestLoadResolvesRelativeIncludeAndSubninja(t *testing.T) {
	fs := ports.NewMemFileSystem()
	// "link" is shared via include (inlining semantics), so the root build
	// statement can see it; the subninja'd file's own build is independent.
	fs.Write("build.ninja", []byte("include sub/defs.ninja\nsubninja sub/lib.ninja\nbuild out: link a.o\n"), time.Time{})
	fs.Write("sub/defs.ninja", []byte("rule link\n  command = ld $in -o $out\n"), time.Time{})
	fs.Write("sub/lib.ninja", []byte("build liba.o: link b.o\n"), time.Time{})

	in, err := Load(fs, "build.ninja")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"build.ninja", "sub/defs.ninja", "sub/lib.ninja"} {
		if _, ok := in.Modules[want]; !ok {
			t.Fatalf("module %q not resolved: %+v", want, in.Modules)
		}
	}
	cfg, err := compiler.Compile("build.ninja", in)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Outputs["out"] == nil {
		t.Fatalf("build statement referencing included rule did not compile: %+v", cfg.Outputs)
	}
	if cfg.Outputs["liba.o"] == nil {
		t.Fatalf("subninja'd build statement did not compile: %+v", cfg.Outputs)
	}
}
