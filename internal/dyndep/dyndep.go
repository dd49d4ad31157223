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

// Package dyndep parses the degenerate build-file subset a dynamic
// dependency file is restricted to: only "build OUT: dyndep | IMPLICIT..."
// entries, per spec.md §6. Grounded in the teacher's DyndepParser
// (dyndep_parser.go, nobuild) but trimmed to the one statement shape the
// format allows.
package dyndep

import (
	"strings"

	"github.com/maruel/turtle/internal/ast"
	"github.com/maruel/turtle/internal/ir"
	"github.com/maruel/turtle/internal/manifest"
	"github.com/maruel/turtle/internal/turtleerr"
)

const dyndepRule = "dyndep"

// Parse reads a dynamic dependency file's text into a DynamicConfiguration.
// Variable interpolation inside paths is not supported: the format carries
// no rule/var definitions to interpolate against, so every token is taken
// literally, matching the teacher's DyndepParser which never evaluates its
// own EvalString values either.
func Parse(path, text string) (*ir.DynamicConfiguration, error) {
	mod, err := manifest.ParseModule(path, text)
	if err != nil {
		return nil, err
	}
	cfg := &ir.DynamicConfiguration{Outputs: map[ir.Path]*ir.DynamicBuild{}}
	for _, st := range mod.Statements {
		bd, ok := st.(*ast.BuildDef)
		if !ok {
			return nil, &turtleerr.ParseErr{File: path, Msg: "dynamic dependency files may only contain build statements"}
		}
		if strings.TrimSpace(bd.RuleName) != dyndepRule {
			return nil, &turtleerr.ParseErr{File: path, Msg: "dynamic dependency file entries must use the reserved 'dyndep' rule"}
		}
		db := &ir.DynamicBuild{ImplicitInputs: append([]ir.Path{}, bd.ImplicitInputs...)}
		for _, out := range bd.Outputs {
			cfg.Outputs[out] = db
		}
	}
	return cfg, nil
}
