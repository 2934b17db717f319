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

import "github.com/EngFlow/cpp/token"

// exprReader adapts Preprocessor state to expr.Reader: it macro-expands the
// token stream exactly like nextExpanded, except that the
// identifier "defined" (and the four "has_*" built-ins) and the identifier
// naming their operand are read raw, never macro-expanded.
type exprReader struct {
	p *Preprocessor

	unread   []token.Token
	rawNext  bool
	atEnd    bool
	endToken token.Token
}

// Next returns the next token of the #if/#elif expression. Once the end of
// the logical line (NL or EOF) is reached, that token is pushed back onto
// the driver's raw stream so the caller's subsequent skipRestOfLine still
// finds it, and every further call just replays it.
func (r *exprReader) Next() token.Token {
	if n := len(r.unread); n > 0 {
		t := r.unread[n-1]
		r.unread = r.unread[:n-1]
		return t
	}
	if r.atEnd {
		return r.endToken
	}
	for {
		t := r.p.nextRaw()
		switch t.Kind {
		case token.WHITESPACE, token.CCOMMENT, token.CPPCOMMENT:
			continue
		case token.NL, token.EOF:
			r.atEnd = true
			r.endToken = t
			r.p.unreadRaw(t)
			return t
		case token.IDENT:
			if r.rawNext {
				r.rawNext = false
				return t
			}
			if isCondBuiltin(t.Text) {
				r.rawNext = true
				return t
			}
			if r.p.expandIdent(t) {
				continue
			}
			return t
		default:
			return t
		}
	}
}

func isCondBuiltin(name string) bool {
	switch name {
	case "defined", "__has_include", "__has_include_next", "__has_feature", "__has_attribute":
		return true
	}
	return false
}

func (r *exprReader) Unread(t token.Token) { r.unread = append(r.unread, t) }

func (r *exprReader) Defined(name string) bool {
	_, ok := r.p.macros[name]
	return ok
}

func (r *exprReader) HasFeature(name string) bool {
	switch name {
	case "c_digraphs":
		return r.p.cfg.features.Has(DIGRAPHS)
	default:
		return false
	}
}

// HasAttribute is the always-0 fallback: this driver has no attribute
// registry to consult, so __has_attribute degrades to "never present"
// rather than being rejected as unknown.
func (r *exprReader) HasAttribute(name string) bool { return false }

func (r *exprReader) HasInclude(spec string, quoted, isNext bool) bool {
	vf, _ := r.p.resolveInclude(spec, quoted, isNext)
	return vf != nil
}

func (r *exprReader) WarnUndefinedIdent(name string) {
	if r.p.cfg.warnings.Has(UNDEF) {
		r.p.warnf("directive:if", "%q is not defined, evaluates to 0", name)
	}
}

func (r *exprReader) Errorf(format string, args ...any) {
	r.p.errorf("directive:if", format, args...)
}
