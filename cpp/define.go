// Copyright 2025 EngFlow Inc. All rights reserved.
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

package cpp

import (
	"github.com/EngFlow/cpp/internal/source"
	"github.com/EngFlow/cpp/token"
)

// handleDefine parses a #define directive: name, optional parameter list
// with optional trailing "...", then a replacement list until NL; install.
func (p *Preprocessor) handleDefine() {
	name := p.expectDirectiveIdent("directive:define")
	if name == "" {
		p.skipRestOfLine()
		return
	}
	if name == "defined" {
		p.errorf("directive:define", "%q is reserved and cannot be used as a macro name", name)
		p.skipRestOfLine()
		return
	}

	next := p.nextRaw() // deliberately not skipping whitespace: "NAME(" vs "NAME (" distinguishes function-like
	functionLike := next.Kind == token.Kind('(')
	var params []string
	variadic := false
	if functionLike {
		var ok bool
		params, variadic, ok = p.parseMacroParams()
		if !ok {
			p.skipRestOfLine()
			return
		}
	} else {
		p.unreadRaw(next)
	}

	body, ok := p.parseReplacementList(params, variadic, functionLike)
	if !ok {
		return
	}

	p.macros[name] = &source.Macro{
		Name: name, FunctionLike: functionLike, Params: params, Variadic: variadic, Body: body,
	}
}

// parseMacroParams scans a comma-separated identifier list up to ')',
// already past the opening '('.
func (p *Preprocessor) parseMacroParams() ([]string, bool, bool) {
	var params []string

	if t := p.nextRawNonLayout(); t.Kind == token.Kind(')') {
		return params, false, true
	} else {
		return p.parseMacroParamsFrom(t, params)
	}
}

func (p *Preprocessor) parseMacroParamsFrom(t token.Token, params []string) ([]string, bool, bool) {
	for {
		switch {
		case t.Kind == token.ELLIPSIS:
			if closing := p.nextRawNonLayout(); closing.Kind != token.Kind(')') {
				p.errorf("directive:define", "expected ')' after '...' in macro parameter list, got %q", closing.Text)
				return nil, false, false
			}
			return params, true, true
		case t.Kind == token.IDENT:
			params = append(params, t.Text)
		default:
			p.errorf("directive:define", "unexpected token %q in macro parameter list", t.Text)
			return nil, false, false
		}

		sep := p.nextRawNonLayout()
		switch sep.Kind {
		case token.Kind(')'):
			return params, false, true
		case token.Kind(','):
			t = p.nextRawNonLayout()
		default:
			p.errorf("directive:define", "expected ',' or ')' in macro parameter list, got %q", sep.Text)
			return nil, false, false
		}
	}
}

// parseReplacementList reads tokens to end-of-line, trims/coalesces layout,
// and rewrites parameter identifiers to M_ARG, "#param" to M_STRING, and
// "##" to a prefix M_PASTE marker.
func (p *Preprocessor) parseReplacementList(params []string, variadic, functionLike bool) ([]token.Token, bool) {
	paramIndex := func(name string) (int, bool) {
		for i, pname := range params {
			if pname == name {
				return i, true
			}
		}
		if variadic && name == "__VA_ARGS__" {
			return len(params), true
		}
		return 0, false
	}

	var raw []token.Token
	for {
		t := p.nextRaw()
		if t.Kind == token.NL || t.Kind == token.EOF {
			break
		}
		raw = append(raw, t)
	}
	raw = normalizeReplacementLayout(raw)

	var out []token.Token
	for i := 0; i < len(raw); i++ {
		t := raw[i]
		switch {
		case t.Kind == token.Kind('#') && functionLike:
			j := i + 1
			if j < len(raw) && raw[j].Kind == token.WHITESPACE {
				j++
			}
			if j < len(raw) && raw[j].Kind == token.IDENT {
				if idx, ok := paramIndex(raw[j].Text); ok {
					out = append(out, token.Token{Kind: token.M_STRING, Value: token.Value{Arg: idx}})
					i = j
					continue
				}
			}
			out = append(out, t)

		case t.Kind == token.HASHHASH:
			for len(out) > 0 && out[len(out)-1].Kind == token.WHITESPACE {
				out = out[:len(out)-1]
			}
			if len(out) == 0 {
				p.errorf("directive:define", "'##' cannot appear at the start of a macro replacement list")
				return nil, false
			}
			last := out[len(out)-1]
			out = out[:len(out)-1]
			out = append(out, token.Token{Kind: token.M_PASTE}, last)
			for i+1 < len(raw) && raw[i+1].Kind == token.WHITESPACE {
				i++
			}

		case t.Kind == token.IDENT:
			if idx, ok := paramIndex(t.Text); ok {
				out = append(out, token.Token{Kind: token.M_ARG, Value: token.Value{Arg: idx}})
			} else {
				out = append(out, t)
			}

		default:
			out = append(out, t)
		}
	}

	if len(out) > 0 && out[len(out)-1].Kind == token.M_PASTE {
		p.errorf("directive:define", "'##' cannot appear at the end of a macro replacement list")
		return nil, false
	}
	return out, true
}

// normalizeReplacementLayout trims leading/trailing whitespace and comments
// and coalesces every remaining internal layout run to a single space
// token.
func normalizeReplacementLayout(raw []token.Token) []token.Token {
	start, end := 0, len(raw)
	for start < end && isLayoutToken(raw[start]) {
		start++
	}
	for end > start && isLayoutToken(raw[end-1]) {
		end--
	}
	raw = raw[start:end]

	var out []token.Token
	prevLayout := false
	for _, t := range raw {
		if isLayoutToken(t) {
			if !prevLayout {
				out = append(out, token.New(token.WHITESPACE, " ", t.Line, t.Column))
			}
			prevLayout = true
			continue
		}
		prevLayout = false
		out = append(out, t)
	}
	return out
}

func isLayoutToken(t token.Token) bool {
	switch t.Kind {
	case token.WHITESPACE, token.CCOMMENT, token.CPPCOMMENT:
		return true
	}
	return false
}
