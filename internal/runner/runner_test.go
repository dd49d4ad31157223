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

package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maruel/turtle/internal/graph"
	"github.com/maruel/turtle/internal/hashdb"
	"github.com/maruel/turtle/internal/ir"
	"github.com/maruel/turtle/internal/ports"
)

func newTestDB(t *testing.T) *hashdb.Database {
	t.Helper()
	dir := t.TempDir()
	db, err := hashdb.Open(filepath.Join(dir, "hashes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunCompilesOncePerBuild(t *testing.T) {
	cfg := ir.NewConfiguration()
	b := &ir.Build{Outputs: []string{"out.o"}, Rule: &ir.Rule{Command: "cc"}, Inputs: []string{"in.c"}}
	b.ID = ir.BuildID(b.AllOutputs())
	cfg.Outputs["out.o"] = b

	fs := ports.NewMemFileSystem()
	fs.Write("in.c", []byte("int main(){}"), time.Unix(1, 0))
	cmd := ports.NewMemCommandRunner()
	cmd.Results["cc"] = ports.CommandResult{ExitCode: 0}

	// The command itself does not create the output in this in-memory
	// double, so simulate the side effect directly.
	fs.Write("out.o", []byte("binary"), time.Unix(2, 0))

	g := graph.New(cfg)
	require.NoError(t, g.Validate())

	r := New(Env{Config: cfg, Graph: g, DB: newTestDB(t), FS: fs, Cmd: cmd, Console: ports.NewMemConsole()}, Options{}, 2)
	require.NoError(t, r.Run(context.Background(), []ir.Path{"out.o"}))
	require.Equal(t, []string{"cc"}, cmd.CallsSorted())

	// Re-running against the same (unchanged) inputs/outputs must not
	// invoke the command a second time: the stored hash matches.
	r2 := New(Env{Config: cfg, Graph: g, DB: reuseDB(t, r), FS: fs, Cmd: cmd, Console: ports.NewMemConsole()}, Options{}, 2)
	require.NoError(t, r2.Run(context.Background(), []ir.Path{"out.o"}))
	require.Equal(t, []string{"cc"}, cmd.CallsSorted(), "command must not re-run when nothing changed")
}

func reuseDB(t *testing.T, r *Runner) *hashdb.Database {
	t.Helper()
	return r.env.DB
}

func TestRunMissingLeafInputFails(t *testing.T) {
	cfg := ir.NewConfiguration()
	b := &ir.Build{Outputs: []string{"out"}, Rule: &ir.Rule{Command: "x"}, Inputs: []string{"missing.c"}}
	b.ID = ir.BuildID(b.AllOutputs())
	cfg.Outputs["out"] = b
	fs := ports.NewMemFileSystem()
	g := graph.New(cfg)
	require.NoError(t, g.Validate())

	r := New(Env{Config: cfg, Graph: g, DB: newTestDB(t), FS: fs, Cmd: ports.NewMemCommandRunner(), Console: ports.NewMemConsole()}, Options{}, 1)
	err := r.Run(context.Background(), []ir.Path{"out"})
	require.Error(t, err)
}

func TestRunFailingCommandPropagates(t *testing.T) {
	cfg := ir.NewConfiguration()
	b := &ir.Build{Outputs: []string{"out"}, Rule: &ir.Rule{Command: "false"}}
	b.ID = ir.BuildID(b.AllOutputs())
	cfg.Outputs["out"] = b
	fs := ports.NewMemFileSystem()
	cmd := ports.NewMemCommandRunner()
	cmd.Results["false"] = ports.CommandResult{ExitCode: 1}
	g := graph.New(cfg)
	require.NoError(t, g.Validate())

	r := New(Env{Config: cfg, Graph: g, DB: newTestDB(t), FS: fs, Cmd: cmd, Console: ports.NewMemConsole()}, Options{}, 1)
	err := r.Run(context.Background(), []ir.Path{"out"})
	require.Error(t, err)
}

func TestRunUsesRealFileSystemForTempDirOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("hi"), 0o644))

	cfg := ir.NewConfiguration()
	b := &ir.Build{Outputs: []string{out}, Rule: &ir.Rule{Command: "cp " + in + " " + out}, Inputs: []string{in}}
	b.ID = ir.BuildID(b.AllOutputs())
	cfg.Outputs[out] = b
	g := graph.New(cfg)
	require.NoError(t, g.Validate())

	r := New(Env{
		Config:  cfg,
		Graph:   g,
		DB:      newTestDB(t),
		FS:      ports.RealFileSystem{},
		Cmd:     ports.RealCommandRunner{},
		Console: ports.NewMemConsole(),
	}, Options{}, 1)
	require.NoError(t, r.Run(context.Background(), []ir.Path{out}))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "hi", string(got))
}
