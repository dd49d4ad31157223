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

import "strings"

// token is one lexical unit of a "build" or "default" statement's path
// list. kind is one of the tokenKind constants; text holds the literal
// value for a word token (already resolved for the "$ " and "$:" escapes;
// "$NAME" and "$$" are deliberately left untouched for the compiler's own
// interpolation pass).
type token struct {
	kind tokenKind
	text string
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokColon
	tokPipe
	tokPipe2
)

// tokenizeWords splits one logical line into path/punctuation tokens the
// way the teacher's Lexer (lexer.go, re2c-generated) tokenizes a build
// statement's path list, but operating directly on already-joined line
// text rather than re-scanning a byte stream with generated states.
func tokenizeWords(line string) []token {
	var toks []token
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			toks = append(toks, token{kind: tokWord, text: word.String()})
			word.Reset()
		}
	}
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '$' && i+1 < len(runes) && runes[i+1] == '$':
			word.WriteString("$$")
			i++
		case c == '$' && i+1 < len(runes) && runes[i+1] == ' ':
			word.WriteByte(' ')
			i++
		case c == '$' && i+1 < len(runes) && runes[i+1] == ':':
			word.WriteByte(':')
			i++
		case c == '$' && i+1 < len(runes) && isNameStart(runes[i+1]):
			word.WriteByte('$')
			j := i + 1
			for j < len(runes) && isNameByte(runes[j]) {
				word.WriteRune(runes[j])
				j++
			}
			i = j - 1
		case c == '$':
			word.WriteByte('$')
		case c == ' ' || c == '\t':
			flush()
		case c == ':':
			flush()
			toks = append(toks, token{kind: tokColon})
		case c == '|':
			flush()
			if i+1 < len(runes) && runes[i+1] == '|' {
				toks = append(toks, token{kind: tokPipe2})
				i++
			} else {
				toks = append(toks, token{kind: tokPipe})
			}
		default:
			word.WriteRune(c)
		}
	}
	flush()
	return toks
}

func isNameStart(c rune) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isNameByte(c rune) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
