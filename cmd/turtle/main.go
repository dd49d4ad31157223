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

// Command turtle is the CLI entry point: argv -> compile -> validate -> run,
// plus the auxiliary `-t` tools, per spec.md §6.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/maruel/turtle/internal/compiler"
	"github.com/maruel/turtle/internal/diag"
	"github.com/maruel/turtle/internal/graph"
	"github.com/maruel/turtle/internal/hashdb"
	"github.com/maruel/turtle/internal/ir"
	"github.com/maruel/turtle/internal/manifest"
	"github.com/maruel/turtle/internal/ports"
	"github.com/maruel/turtle/internal/runner"
	"github.com/maruel/turtle/internal/turtleerr"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := flag.NewFlagSet("turtle", flag.ContinueOnError)
	buildFile := fs.String("f", "build.ninja", "root build file")
	chdir := fs.String("C", "", "change to DIR before reading anything")
	jobs := fs.Int("j", 0, "max concurrent commands (0 = CPU count)")
	logPrefix := fs.String("log-prefix", "", "prepend S to error lines")
	quiet := fs.Bool("quiet", false, "suppress the build-failed message")
	debug := fs.Bool("debug", os.Getenv("TURTLE_DEBUG") != "", "verbose command traces")
	profile := fs.Bool("profile", os.Getenv("TURTLE_PROFILE") != "", "per-command timing lines")
	tool := fs.String("t", "", "auxiliary tool: clean-dead, rules")
	if err := fs.Parse(argv); err != nil {
		return 1
	}

	diag.LogPrefix = *logPrefix
	if *debug {
		diag.EnableDebug()
	}
	if *profile {
		diag.EnableProfile()
	}

	if *chdir != "" {
		if err := os.Chdir(*chdir); err != nil {
			diag.Errorf("%s", err)
			return 1
		}
	}

	realFS := ports.RealFileSystem{}
	in, err := manifest.Load(realFS, *buildFile)
	if err != nil {
		report(err)
		return 1
	}
	cfg, err := compiler.Compile(*buildFile, in)
	if err != nil {
		report(err)
		return 1
	}

	switch *tool {
	case "rules":
		return runRules(cfg)
	case "clean-dead", "":
		// Both need the hash database opened below.
	default:
		diag.Errorf("unknown tool '%s'", *tool)
		return 1
	}

	dbPath := filepath.Join(dbDir(cfg, *buildFile), ".turtle_hashes.db")
	db, err := hashdb.Open(dbPath)
	if err != nil {
		report(err)
		return 1
	}
	defer db.Close()

	if *tool == "clean-dead" {
		return runCleanDead(cfg, db, realFS)
	}

	g := graph.New(cfg)
	if err := g.Validate(); err != nil {
		report(err)
		return 1
	}

	targets, err := runner.Targets(cfg, fs.Args())
	if err != nil {
		report(err)
		return 1
	}

	jobLimit := *jobs
	if jobLimit <= 0 {
		jobLimit = runtime.NumCPU()
	}

	env := runner.Env{
		Config:  cfg,
		Graph:   g,
		DB:      db,
		FS:      realFS,
		Cmd:     ports.RealCommandRunner{},
		Console: ports.NewRealConsole(),
	}
	r := runner.New(env, runner.Options{JobLimit: jobLimit, Quiet: *quiet}, jobLimit)
	if err := r.Run(context.Background(), targets); err != nil {
		if !*quiet {
			report(attributeSource(cfg, err))
		}
		return 1
	}
	return 0
}

// dbDir resolves where the hash database lives: builddir if declared, else
// the directory of the root build file, per spec.md §6.
func dbDir(cfg *ir.Configuration, buildFile string) string {
	if cfg.BuildDirectory != "" {
		return cfg.BuildDirectory
	}
	dir := filepath.Dir(buildFile)
	if dir == "" {
		return "."
	}
	return dir
}

// attributeSource resolves an error's offending output, if any, through
// Configuration.SourceMap before it is printed, matching spec.md §7's
// "source attribution via source_map".
func attributeSource(cfg *ir.Configuration, err error) error {
	var name string
	switch e := err.(type) {
	case *turtleerr.BuildErr:
		return attributeSource(cfg, e.Cause)
	case *turtleerr.InputNotFoundErr:
		name = e.Name
	case *turtleerr.DynamicDependencyNotFoundErr:
		name = e.Build
	}
	if name == "" {
		return err
	}
	if origin, ok := cfg.SourceMap[name]; ok {
		return fmt.Errorf("%w (from %s)", err, origin)
	}
	return err
}

func report(err error) {
	diag.Errorf("%s", err)
}

func runRules(cfg *ir.Configuration) int {
	seen := map[*ir.Rule]bool{}
	for _, b := range cfg.Outputs {
		if b.Rule == nil || seen[b.Rule] {
			continue
		}
		seen[b.Rule] = true
		if b.Rule.Description != "" {
			fmt.Printf("%s: %s\n", b.Rule.Description, b.Rule.Command)
		} else {
			fmt.Println(b.Rule.Command)
		}
	}
	return 0
}

// runCleanDead removes outputs (and their database records) from builds the
// database remembers but the current configuration no longer declares,
// matching spec.md's `-t clean-dead` tool. An output of such a build that the
// current configuration still declares is kept. Build.ID alone can't tell us
// which paths to remove, so this relies on hashdb.Database also retaining the
// output set each id was last recorded with. Removal is best-effort: a
// failure is logged as a warning and does not stop the tool.
func runCleanDead(cfg *ir.Configuration, db *hashdb.Database, fs ports.FileSystem) int {
	live := map[uint64]bool{}
	for _, b := range cfg.Outputs {
		live[b.ID] = true
	}
	removed := 0
	err := db.ForgetIfStale(
		func(id uint64) bool { return live[id] },
		func(path string) {
			if _, declared := cfg.Outputs[path]; declared {
				return
			}
			if err := fs.Remove(path); err == nil {
				removed++
				diag.Infof("removed stale output %s", path)
			} else {
				diag.Warningf("%s", err)
			}
		},
	)
	if err != nil {
		report(err)
		return 1
	}
	diag.Infof("clean-dead: removed %d stale output(s)", removed)
	return 0
}
