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
	"path/filepath"

	"github.com/maruel/turtle/internal/ast"
	"github.com/maruel/turtle/internal/compiler"
	"github.com/maruel/turtle/internal/ports"
)

// Load reads rootPath and every build file it transitively includes or
// pulls in via subninja, producing the compiler.Input the Compile pass
// consumes. Each resolved file is parsed at most once; relative
// include/subninja paths are resolved against the directory of the
// referencing file, matching the teacher's ManifestParser::Load.
func Load(fs ports.FileSystem, rootPath string) (compiler.Input, error) {
	in := compiler.Input{
		Modules: map[string]*ast.Module{},
		Resolve: map[string]map[string]string{},
	}
	if err := loadOne(fs, in, rootPath); err != nil {
		return compiler.Input{}, err
	}
	return in, nil
}

func loadOne(fs ports.FileSystem, in compiler.Input, path string) error {
	if _, ok := in.Modules[path]; ok {
		return nil
	}
	text, err := fs.ReadFileToString(path)
	if err != nil {
		return err
	}
	mod, err := ParseModule(path, text)
	if err != nil {
		return err
	}
	in.Modules[path] = mod
	resolve := map[string]string{}
	in.Resolve[path] = resolve
	dir := filepath.Dir(path)

	for _, st := range mod.Statements {
		var raw string
		switch s := st.(type) {
		case *ast.Include:
			raw = s.Path
		case *ast.Submodule:
			raw = s.Path
		default:
			continue
		}
		resolved := raw
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(dir, resolved)
		}
		resolve[raw] = resolved
		if err := loadOne(fs, in, resolved); err != nil {
			return err
		}
	}
	return nil
}
