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

// Package turtleerr holds the error taxonomy shared by every core
// subsystem, so the CLI can dispatch on kind without parsing messages.
package turtleerr

import "fmt"

// ParseErr reports bad build-file syntax.
type ParseErr struct {
	File string
	Line int
	Msg  string
}

func (e *ParseErr) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// ModuleNotFoundErr is returned by the compiler when an include/subninja
// statement references a module that was not provided.
type ModuleNotFoundErr struct {
	Path string
}

func (e *ModuleNotFoundErr) Error() string {
	return fmt.Sprintf("module not found: %s", e.Path)
}

// RuleNotFoundErr is returned by the compiler when a build statement names
// a rule (other than the reserved "phony") absent from scope.
type RuleNotFoundErr struct {
	Name string
}

func (e *RuleNotFoundErr) Error() string {
	return fmt.Sprintf("rule not found: %s", e.Name)
}

// CircularBuildDependencyErr reports a cycle discovered either statically
// (BuildGraph validation) or after dynamic-edge ingestion.
type CircularBuildDependencyErr struct {
	Paths []string
}

func (e *CircularBuildDependencyErr) Error() string {
	s := "dependency cycle:"
	for _, p := range e.Paths {
		s += " " + p + " ->"
	}
	if len(e.Paths) > 0 {
		s += " " + e.Paths[0]
	}
	return s
}

// DefaultOutputNotFoundErr reports a requested target (a declared default
// or a name given on the command line) that no build produces.
type DefaultOutputNotFoundErr struct {
	Name string
}

func (e *DefaultOutputNotFoundErr) Error() string {
	return fmt.Sprintf("unknown default target '%s'", e.Name)
}

// InputNotFoundErr reports an input that cannot be used: a file input that
// does not exist on disk, or a phony input whose owning build is missing or
// has no database entry, so its staleness cannot be determined.
type InputNotFoundErr struct {
	Name string
}

func (e *InputNotFoundErr) Error() string {
	return fmt.Sprintf("input not found: %s", e.Name)
}

// DynamicDependencyNotFoundErr reports a build whose primary output is
// absent from the output table of its own dynamic-module file, or a
// dynamic-module entry naming an output that no build declares.
type DynamicDependencyNotFoundErr struct {
	Build string
}

func (e *DynamicDependencyNotFoundErr) Error() string {
	return fmt.Sprintf("dyndep file did not mention output '%s'", e.Build)
}

// CommandExitErr reports a rule's command exiting non-zero.
type CommandExitErr struct {
	Command string
	Code    int
}

func (e *CommandExitErr) Error() string {
	return fmt.Sprintf("command exited with code %d: %s", e.Code, e.Command)
}

// IoErr wraps a file-system or subprocess I/O failure with its operation
// and path attached, per spec.
type IoErr struct {
	Op   string
	Path string
	Err  error
}

func (e *IoErr) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *IoErr) Unwrap() error {
	return e.Err
}

// BuildErr marks an error that ended a run: Runner.Run wraps whatever
// failure stopped it (a command exit, a missing input, a dynamic-dependency
// error, or a database flush error) in a BuildErr, with Cause holding it.
type BuildErr struct {
	Cause error
}

func (e *BuildErr) Error() string {
	return e.Cause.Error()
}

func (e *BuildErr) Unwrap() error {
	return e.Cause
}
