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

// Package runner is the async scheduler described by spec.md §4.6 and §5:
// memoized per-build futures, a semaphore bounding only command execution,
// dynamic-dependency ingestion mid-build, and cooperative failure
// propagation with an explicit database flush. Generalizes the teacher's
// Builder (build.go, nobuild) from its synchronous ready-queue model onto
// the goroutine-per-build, errgroup-rooted model
// original_source/src/run.rs implements over tokio.
package runner

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/maruel/turtle/internal/diag"
	"github.com/maruel/turtle/internal/dyndep"
	"github.com/maruel/turtle/internal/graph"
	"github.com/maruel/turtle/internal/hashdb"
	"github.com/maruel/turtle/internal/hasher"
	"github.com/maruel/turtle/internal/ir"
	"github.com/maruel/turtle/internal/ports"
	"github.com/maruel/turtle/internal/turtleerr"
)

// Options configures one run() invocation.
type Options struct {
	// JobLimit bounds concurrent command execution. Zero means "use the
	// host CPU count", matching spec.md §4.6.
	JobLimit int
	Quiet    bool
}

// Env bundles the ports and compiled state one run() needs, generalizing
// original_source/src/run/context.rs's Context.
type Env struct {
	Config  *ir.Configuration
	Graph   *graph.BuildGraph
	DB      *hashdb.Database
	FS      ports.FileSystem
	Cmd     ports.CommandRunner
	Console ports.Console
}

// future is the shared, memoized result of triggering one build.
type future struct {
	once sync.Once
	err  error
}

// Runner executes a validated configuration to bring its default (or
// explicitly requested) outputs up to date.
type Runner struct {
	opts Options
	env  Env
	sem *semaphore.Weighted

	mu      deadlock.Mutex // guards futures; independent of e.Graph's own lock
	futures map[uint64]*future

	consoleMu deadlock.Mutex
}

// New constructs a Runner bound to e, with concurrent commands capped at
// jobLimit, or at opts.JobLimit when jobLimit is zero or less, or at the
// host CPU count when both are.
func New(e Env, opts Options, jobLimit int) *Runner {
	if jobLimit <= 0 {
		jobLimit = opts.JobLimit
	}
	if jobLimit <= 0 {
		jobLimit = runtime.NumCPU()
	}
	return &Runner{
		opts:    opts,
		env:     e,
		sem:     semaphore.NewWeighted(int64(jobLimit)),
		futures: map[uint64]*future{},
	}
}

// Run realizes every output in targets concurrently, per spec.md §4.6's
// "recursively realizes each requested default output as a shared future".
// On the first failure it returns a *turtleerr.BuildErr wrapping the
// underlying cause, after flushing the database.
func (r *Runner) Run(ctx context.Context, targets []ir.Path) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			return r.trigger(gctx, t)
		})
	}
	err := g.Wait()
	if flushErr := r.env.DB.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if err != nil {
		return &turtleerr.BuildErr{Cause: err}
	}
	return nil
}

// trigger atomically inserts (or reuses) the shared future for name and
// awaits it. A name absent from the output map is a leaf: it merely needs
// to exist on disk.
func (r *Runner) trigger(ctx context.Context, name ir.Path) error {
	b, isBuild := r.env.Config.Outputs[name]
	if !isBuild {
		return r.awaitLeaf(name)
	}
	f := r.getOrCreateFuture(b.ID)
	f.once.Do(func() {
		f.err = r.execute(ctx, b)
	})
	return f.err
}

func (r *Runner) getOrCreateFuture(id uint64) *future {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.futures[id]; ok {
		return f
	}
	f := &future{}
	r.futures[id] = f
	return f
}

func (r *Runner) awaitLeaf(name ir.Path) error {
	_, exists, err := r.env.FS.ModifiedTime(name)
	if err != nil {
		return err
	}
	if !exists {
		return &turtleerr.InputNotFoundErr{Name: name}
	}
	return nil
}

// execute runs the full per-build procedure of spec.md §4.6 steps 1-6.
func (r *Runner) execute(ctx context.Context, b *ir.Build) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, in := range b.Inputs {
		in := in
		g.Go(func() error { return r.trigger(gctx, in) })
	}
	for _, in := range b.OrderOnlyInputs {
		in := in
		g.Go(func() error { return r.trigger(gctx, in) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var dynamicInputs []ir.Path
	if b.DynamicModule != "" {
		ins, err := r.ingestDynamic(b)
		if err != nil {
			return err
		}
		dynamicInputs = ins
		dg, dgctx := errgroup.WithContext(ctx)
		for _, in := range dynamicInputs {
			in := in
			dg.Go(func() error { return r.trigger(dgctx, in) })
		}
		if err := dg.Wait(); err != nil {
			return err
		}
	}

	files, phony := hasher.Classify(r.env.Config, b.Inputs, dynamicInputs)
	lookup := func(id uint64) (ir.BuildHash, bool) {
		bh, ok, err := r.env.DB.Get(id)
		if err != nil || !ok {
			return ir.BuildHash{}, false
		}
		return bh, true
	}

	outputsExist, err := r.allOutputsExist(b)
	if err != nil {
		return err
	}

	tsHash, err := hasher.TimestampHash(r.env.Config, r.env.FS, lookup, b, files, phony)
	if err != nil {
		return err
	}
	stored, haveStored, err := r.env.DB.Get(b.ID)
	if err != nil {
		return err
	}
	fields := logrus.Fields{"build_id": b.ID, "rule": ruleName(b)}
	if outputsExist && haveStored && tsHash == stored.TimestampHash {
		diag.WithFields(fields).Debugf("explain: %s unchanged (timestamp hash match)", b.Primary())
		return nil
	}

	contentHash, err := hasher.ContentHash(r.env.Config, r.env.FS, lookup, b, files, phony)
	if err != nil {
		return err
	}
	if outputsExist && haveStored && contentHash == stored.ContentHash {
		diag.WithFields(fields).Debugf("explain: %s unchanged (content hash match)", b.Primary())
		return nil
	}

	if b.Rule != nil {
		if err := r.runCommand(ctx, b, fields); err != nil {
			return err
		}
	}
	return r.env.DB.Record(b.ID, ir.BuildHash{TimestampHash: tsHash, ContentHash: contentHash}, b.AllOutputs())
}

func (r *Runner) allOutputsExist(b *ir.Build) (bool, error) {
	for _, o := range b.AllOutputs() {
		_, exists, err := r.env.FS.ModifiedTime(o)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

func (r *Runner) ingestDynamic(b *ir.Build) ([]ir.Path, error) {
	text, err := r.env.FS.ReadFileToString(b.DynamicModule)
	if err != nil {
		return nil, err
	}
	dynCfg, err := dyndep.Parse(b.DynamicModule, text)
	if err != nil {
		return nil, err
	}
	if err := r.env.Graph.ValidateDynamic(dynCfg); err != nil {
		return nil, err
	}
	db, ok := dynCfg.Outputs[b.Primary()]
	if !ok {
		return nil, &turtleerr.DynamicDependencyNotFoundErr{Build: b.Primary()}
	}
	return db.ImplicitInputs, nil
}

func (r *Runner) runCommand(ctx context.Context, b *ir.Build, fields logrus.Fields) error {
	for _, o := range b.AllOutputs() {
		if err := r.env.FS.CreateDirectory(filepath.Dir(o)); err != nil {
			return err
		}
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.sem.Release(1)

	start := time.Now()
	if b.Rule.Description != "" {
		r.writeStderr([]byte(b.Rule.Description + "\n"))
	}
	diag.WithFields(fields).Debugf("explain: running: %s", b.Rule.Command)
	res, err := r.env.Cmd.Run(ctx, b.Rule.Command)
	if err != nil {
		return err
	}
	if diag.Profiling() {
		diag.WithFields(fields).Infof("profile: %s took %s", b.Primary(), time.Since(start))
	}

	r.consoleMu.Lock()
	if len(res.Stdout) > 0 {
		r.env.Console.WriteStdout(res.Stdout)
	}
	if len(res.Stderr) > 0 {
		r.env.Console.WriteStderr(res.Stderr)
	}
	r.consoleMu.Unlock()

	if res.ExitCode != 0 {
		return &turtleerr.CommandExitErr{Command: b.Rule.Command, Code: res.ExitCode}
	}
	return nil
}

func (r *Runner) writeStderr(b []byte) {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	r.env.Console.WriteStderr(b)
}

// ruleName returns the rule name for b's structured log fields, or "phony"
// when the build has no rule (spec.md's phony-build concept has no name of
// its own).
func ruleName(b *ir.Build) string {
	if b.Rule == nil {
		return "phony"
	}
	return b.Rule.Name
}

// Targets returns the CLI-requested output names, or the declared defaults
// (all outputs if none were declared) when no name is given, surfacing
// DefaultOutputNotFoundErr for any of them that no build produces.
func Targets(cfg *ir.Configuration, names []ir.Path) ([]ir.Path, error) {
	if len(names) == 0 {
		names = cfg.DefaultsOrAll()
	}
	for _, n := range names {
		if _, ok := cfg.Outputs[n]; !ok {
			return nil, &turtleerr.DefaultOutputNotFoundErr{Name: n}
		}
	}
	return names, nil
}
