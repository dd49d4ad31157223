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

// Package ast holds the narrow shape of the build-file AST the Compiler
// consumes (spec.md §6: "the lexer/parser that produces the AST" is an
// external collaborator). Concrete production of this tree from text lives
// in package manifest; the compiler only ever imports this package.
package ast

// Statement is any one top-level or rule/build-body line.
type Statement interface {
	isStatement()
}

// VarDef is a top-level or build-scoped "NAME = VALUE" line. Value is the
// raw, uninterpolated template (it may still contain $NAME / $$ tokens).
type VarDef struct {
	Name  string
	Value string
}

func (*VarDef) isStatement() {}

// RuleDef declares a command template under a name. Bindings holds raw
// templates keyed by binding name ("command", "description", ...).
type RuleDef struct {
	Name     string
	Bindings map[string]string
}

func (*RuleDef) isStatement() {}

// BuildDef is one "build OUTS: RULE INS | IMPL || ORDER" statement. All
// path lists hold raw, uninterpolated templates; RuleName is the literal
// rule token ("phony" is reserved and denotes no rule).
type BuildDef struct {
	Outputs         []string
	ImplicitOutputs []string
	RuleName        string
	Inputs          []string
	ImplicitInputs  []string
	OrderOnlyInputs []string
	// Bindings holds the statement's own indented "NAME = VALUE" lines,
	// evaluated in a scope forked from the enclosing module's variables.
	Bindings map[string]string
}

func (*BuildDef) isStatement() {}

// DefaultDef is a "default OUTS" statement.
type DefaultDef struct {
	Outputs []string
}

func (*DefaultDef) isStatement() {}

// Include is an "include PATH" statement: compiled into the *current*
// scope (no fork), semantically equivalent to inlining.
type Include struct {
	Path string
}

func (*Include) isStatement() {}

// Submodule is a "subninja PATH" statement: compiled into a scope forked
// from the including module's scope.
type Submodule struct {
	Path string
}

func (*Submodule) isStatement() {}

// Module is one parsed build file: an ordered list of statements.
type Module struct {
	Statements []Statement
}
