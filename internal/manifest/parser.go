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

// Package manifest is the external collaborator spec.md §6 calls out as
// "the lexer/parser that produces the AST": it turns raw build-file text
// into an *ast.Module, grounded in the teacher's statement-dispatch loop
// (manifest_parser_serial.go) and token set (lexer.go), simplified because
// this compiler interpolates variables after parsing rather than during
// lexing (ast holds raw, uninterpolated templates throughout).
//
// Known simplification: unlike the teacher, a trailing "$" line-continuation
// is not supported — every statement must fit on one physical line. This
// format detail is outside spec.md's core subsystems (§1 lists the
// lexer/parser itself as an external collaborator), so the simpler grammar
// is accepted rather than reproducing re2c's continuation handling by hand.
package manifest

import (
	"fmt"
	"strings"

	"github.com/maruel/turtle/internal/ast"
	"github.com/maruel/turtle/internal/turtleerr"
)

type lineParser struct {
	path  string
	lines []string
	pos   int
}

// ParseModule parses one build file's text into an *ast.Module.
func ParseModule(path, text string) (*ast.Module, error) {
	p := &lineParser{path: path, lines: splitLines(text)}
	mod := &ast.Module{}
	for {
		raw, indent, ok := p.peek()
		if !ok {
			break
		}
		if indent {
			return nil, p.errf("unexpected indentation")
		}
		p.pos++
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		st, err := p.parseStatement(line)
		if err != nil {
			return nil, err
		}
		if st != nil {
			mod.Statements = append(mod.Statements, st)
		}
	}
	return mod, nil
}

// peek returns the next non-comment, non-blank physical line (trimmed of
// its trailing newline only) and whether it is indented, without
// consuming it. Fully blank lines and whole-line comments are skipped
// transparently.
func (p *lineParser) peek() (string, bool, bool) {
	for p.pos < len(p.lines) {
		raw := p.lines[p.pos]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			p.pos++
			continue
		}
		indented := len(raw) > 0 && (raw[0] == ' ' || raw[0] == '\t')
		return raw, indented, true
	}
	return "", false, false
}

func (p *lineParser) errf(format string, args ...interface{}) error {
	return &turtleerr.ParseErr{File: p.path, Line: p.pos + 1, Msg: fmt.Sprintf(format, args...)}
}

func (p *lineParser) parseStatement(line string) (ast.Statement, error) {
	keyword, rest := splitKeyword(line)
	switch keyword {
	case "rule":
		return p.parseRule(strings.TrimSpace(rest))
	case "build":
		return p.parseBuild(rest)
	case "default":
		return p.parseDefault(rest)
	case "include":
		return &ast.Include{Path: strings.TrimSpace(rest)}, nil
	case "subninja":
		return &ast.Submodule{Path: strings.TrimSpace(rest)}, nil
	default:
		name, value, ok := splitAssignment(line)
		if !ok {
			return nil, p.errf("unrecognized statement %q", line)
		}
		return &ast.VarDef{Name: name, Value: value}, nil
	}
}

func (p *lineParser) parseRule(name string) (ast.Statement, error) {
	if name == "" {
		return nil, p.errf("rule statement missing a name")
	}
	rd := &ast.RuleDef{Name: name, Bindings: map[string]string{}}
	for {
		_, indented, ok := p.peek()
		if !ok || !indented {
			break
		}
		raw := p.lines[p.pos]
		p.pos++
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitAssignment(line)
		if !ok {
			return nil, p.errf("malformed rule binding %q", line)
		}
		rd.Bindings[key] = value
	}
	return rd, nil
}

func (p *lineParser) parseBuild(rest string) (ast.Statement, error) {
	toks := tokenizeWords(rest)
	bd := &ast.BuildDef{Bindings: map[string]string{}}

	i := 0
	for i < len(toks) && toks[i].kind == tokWord {
		bd.Outputs = append(bd.Outputs, toks[i].text)
		i++
	}
	if i < len(toks) && toks[i].kind == tokPipe {
		i++
		for i < len(toks) && toks[i].kind == tokWord {
			bd.ImplicitOutputs = append(bd.ImplicitOutputs, toks[i].text)
			i++
		}
	}
	if i >= len(toks) || toks[i].kind != tokColon {
		return nil, p.errf("build statement missing ':'")
	}
	i++
	if i >= len(toks) || toks[i].kind != tokWord {
		return nil, p.errf("build statement missing a rule name")
	}
	bd.RuleName = toks[i].text
	i++
	for i < len(toks) && toks[i].kind == tokWord {
		bd.Inputs = append(bd.Inputs, toks[i].text)
		i++
	}
	if i < len(toks) && toks[i].kind == tokPipe {
		i++
		for i < len(toks) && toks[i].kind == tokWord {
			bd.ImplicitInputs = append(bd.ImplicitInputs, toks[i].text)
			i++
		}
	}
	if i < len(toks) && toks[i].kind == tokPipe2 {
		i++
		for i < len(toks) && toks[i].kind == tokWord {
			bd.OrderOnlyInputs = append(bd.OrderOnlyInputs, toks[i].text)
			i++
		}
	}
	if i != len(toks) {
		return nil, p.errf("unexpected token in build statement")
	}

	for {
		_, indented, ok := p.peek()
		if !ok || !indented {
			break
		}
		raw := p.lines[p.pos]
		p.pos++
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitAssignment(line)
		if !ok {
			return nil, p.errf("malformed build binding %q", line)
		}
		bd.Bindings[key] = value
	}
	return bd, nil
}

func (p *lineParser) parseDefault(rest string) (ast.Statement, error) {
	toks := tokenizeWords(rest)
	dd := &ast.DefaultDef{}
	for _, t := range toks {
		if t.kind != tokWord {
			return nil, p.errf("unexpected punctuation in default statement")
		}
		dd.Outputs = append(dd.Outputs, t.text)
	}
	if len(dd.Outputs) == 0 {
		return nil, p.errf("default statement names no outputs")
	}
	return dd, nil
}

// splitKeyword splits a line's leading bare word (if any) from the rest,
// used to recognize the five reserved leading keywords. A line starting
// with a reserved word followed directly by '=' (e.g. "rule=1") is not a
// keyword line; splitAssignment handles that case instead.
func splitKeyword(line string) (string, string) {
	for _, kw := range []string{"rule", "build", "default", "include", "subninja"} {
		if line == kw {
			return kw, ""
		}
		if strings.HasPrefix(line, kw+" ") || strings.HasPrefix(line, kw+"\t") {
			return kw, line[len(kw):]
		}
	}
	return "", line
}

// splitAssignment splits "NAME = VALUE", trimming surrounding whitespace
// from both sides. NAME must be a bare identifier; VALUE is the raw,
// uninterpolated remainder of the line.
func splitAssignment(line string) (string, string, bool) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", false
	}
	name := strings.TrimSpace(line[:idx])
	if name == "" || !isIdent(name) {
		return "", "", false
	}
	value := strings.TrimSpace(line[idx+1:])
	return name, value, true
}

func isIdent(s string) bool {
	for i, r := range s {
		if i == 0 && !isNameStart(r) {
			return false
		}
		if i > 0 && !isNameByte(r) {
			return false
		}
	}
	return len(s) > 0
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
