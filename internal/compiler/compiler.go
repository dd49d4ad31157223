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

// Package compiler turns a mapping of parsed modules into an ir.Configuration,
// resolving lexical scope across includes and submodules the way the
// teacher's BindingEnv (eval_env.go) resolves variables against a parent
// pointer, generalized onto chainmap.ChainMap so forks never mutate an
// ancestor.
package compiler

import (
	"strings"

	"github.com/maruel/turtle/internal/ast"
	"github.com/maruel/turtle/internal/chainmap"
	"github.com/maruel/turtle/internal/ir"
	"github.com/maruel/turtle/internal/turtleerr"
)

// reserved rule name denoting a phony build (a grouping alias).
const phonyRule = "phony"

// Reserved variable names, per spec.md §4.2.
const (
	varIn       = "in"
	varOut      = "out"
	varBuildDir = "builddir"
	varDynDep   = "dyndep"
	varSrcDep   = "srcdep"
)

// Input is everything the Compiler needs: every parsed module, and how each
// module resolves the relative paths named by its own include/subninja
// statements to other keys of Modules.
type Input struct {
	Modules map[string]*ast.Module
	// Resolve[modulePath][rawPath] = resolved module path into Modules.
	Resolve map[string]map[string]string
}

type frame struct {
	vars  *chainmap.ChainMap[string]
	rules *chainmap.ChainMap[*ir.Rule]
}

type compiler struct {
	in  Input
	cfg *ir.Configuration
}

// Compile compiles the module rooted at rootPath into a Configuration.
func Compile(rootPath string, in Input) (*ir.Configuration, error) {
	c := &compiler{in: in, cfg: ir.NewConfiguration()}
	root := frame{vars: chainmap.New[string](), rules: chainmap.New[*ir.Rule]()}
	if err := c.compileModule(rootPath, root); err != nil {
		return nil, err
	}
	if bd, ok := root.vars.Get(varBuildDir); ok {
		c.cfg.BuildDirectory = bd
	}
	return c.cfg, nil
}

func (c *compiler) resolve(modulePath, raw string) (string, error) {
	m, ok := c.in.Resolve[modulePath]
	if !ok {
		return "", &turtleerr.ModuleNotFoundErr{Path: raw}
	}
	resolved, ok := m[raw]
	if !ok {
		return "", &turtleerr.ModuleNotFoundErr{Path: raw}
	}
	if _, ok := c.in.Modules[resolved]; !ok {
		return "", &turtleerr.ModuleNotFoundErr{Path: resolved}
	}
	return resolved, nil
}

func (c *compiler) compileModule(modulePath string, f frame) error {
	mod, ok := c.in.Modules[modulePath]
	if !ok {
		return &turtleerr.ModuleNotFoundErr{Path: modulePath}
	}
	for _, st := range mod.Statements {
		if err := c.compileStatement(modulePath, f, st); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileStatement(modulePath string, f frame, st ast.Statement) error {
	switch s := st.(type) {
	case *ast.VarDef:
		f.vars.Insert(s.Name, interpolate(s.Value, f.vars))
		return nil

	case *ast.RuleDef:
		f.rules.Insert(s.Name, &ir.Rule{
			Name:        s.Name,
			Command:     s.Bindings["command"],
			Description: s.Bindings["description"],
		})
		return nil

	case *ast.BuildDef:
		return c.compileBuild(modulePath, f, s)

	case *ast.DefaultDef:
		for _, raw := range s.Outputs {
			c.cfg.DefaultOutputs = append(c.cfg.DefaultOutputs, interpolate(raw, f.vars))
		}
		return nil

	case *ast.Include:
		resolved, err := c.resolve(modulePath, s.Path)
		if err != nil {
			return err
		}
		// No fork: inlining semantics.
		return c.compileModule(resolved, f)

	case *ast.Submodule:
		resolved, err := c.resolve(modulePath, s.Path)
		if err != nil {
			return err
		}
		child := frame{vars: f.vars.Fork(), rules: f.rules.Fork()}
		return c.compileModule(resolved, child)

	default:
		return nil
	}
}

func (c *compiler) compileBuild(modulePath string, f frame, s *ast.BuildDef) error {
	build := f.vars.Fork()

	outputs := interpolateAll(s.Outputs, f.vars)
	implicitOutputs := interpolateAll(s.ImplicitOutputs, f.vars)
	explicitInputs := interpolateAll(s.Inputs, f.vars)
	implicitInputs := interpolateAll(s.ImplicitInputs, f.vars)
	orderOnly := interpolateAll(s.OrderOnlyInputs, f.vars)

	build.Insert(varIn, strings.Join(explicitInputs, " "))
	build.Insert(varOut, strings.Join(outputs, " "))
	for name, raw := range s.Bindings {
		build.Insert(name, interpolate(raw, build))
	}

	b := &ir.Build{
		Outputs:            outputs,
		ImplicitOutputs:    implicitOutputs,
		Inputs:             append(append([]ir.Path{}, explicitInputs...), implicitInputs...),
		ExplicitInputCount: len(explicitInputs),
		OrderOnlyInputs:    orderOnly,
	}

	if s.RuleName == phonyRule {
		b.Rule = nil
	} else {
		rule, ok := f.rules.Get(s.RuleName)
		if !ok {
			return &turtleerr.RuleNotFoundErr{Name: s.RuleName}
		}
		b.Rule = &ir.Rule{
			Name:        rule.Name,
			Command:     interpolate(rule.Command, build),
			Description: interpolate(rule.Description, build),
		}
	}

	if dd, ok := build.Get(varDynDep); ok && dd != "" {
		b.DynamicModule = dd
	}

	b.ID = ir.BuildID(b.AllOutputs())

	all := b.AllOutputs()
	for _, o := range all {
		c.cfg.Outputs[o] = b
	}
	if sd, ok := build.Get(varSrcDep); ok && sd != "" {
		// Recorded for outputs ∪ implicit_outputs uniformly, per the Open
		// Question decision in SPEC_FULL.md.
		for _, o := range all {
			c.cfg.SourceMap[o] = sd
		}
	}
	return nil
}

func interpolateAll(raws []string, vars *chainmap.ChainMap[string]) []ir.Path {
	out := make([]ir.Path, 0, len(raws))
	for _, r := range raws {
		out = append(out, interpolate(r, vars))
	}
	return out
}

// interpolate performs the single left-to-right pass described in
// spec.md §4.2: "$$" yields "$", "$NAME" looks up NAME in scope (empty
// string if absent), and anything else passes through unchanged.
func interpolate(template string, vars *chainmap.ChainMap[string]) string {
	if !strings.ContainsRune(template, '$') {
		return template
	}
	var b strings.Builder
	b.Grow(len(template))
	for i := 0; i < len(template); i++ {
		ch := template[i]
		if ch != '$' {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(template) && template[i+1] == '$' {
			b.WriteByte('$')
			i++
			continue
		}
		j := i + 1
		start := j
		for j < len(template) && isNameByte(template[j], j == start) {
			j++
		}
		if j == start {
			// Not a valid name: "$" passes through unchanged.
			b.WriteByte('$')
			continue
		}
		name := template[start:j]
		if v, ok := vars.Get(name); ok {
			b.WriteString(v)
		}
		i = j - 1
	}
	return b.String()
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return !first
	default:
		return false
	}
}
