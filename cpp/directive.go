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
	"strconv"

	"github.com/EngFlow/cpp/internal/expr"
	"github.com/EngFlow/cpp/internal/source"
	"github.com/EngFlow/cpp/token"
)

// currentFileSource walks up from the stack top to the nearest real file
// source, since #line must renumber the enclosing file even while a macro
// or fixed-token playback source is on top.
func (p *Preprocessor) currentFileSource() *source.LexerFileSource {
	for s := p.top; s != nil; s = s.Parent() {
		if fs, ok := s.(*source.LexerFileSource); ok {
			return fs
		}
	}
	return nil
}

// inactiveStep implements the inactive-mode scan: everything is
// swallowed except the conditional-stack directives themselves, whitespace
// and comments pass through (coalesced to a single space so line/column
// bookkeeping in any surviving line markers stays correct), and EOF pops.
func (p *Preprocessor) inactiveStep() (token.Token, bool) {
	t := p.nextRaw()
	switch {
	case t.Kind == token.EOF:
		p.popSource()
		return token.Token{}, true
	case t.Kind == token.WHITESPACE || t.Kind == token.NL:
		return t, false
	case t.Kind == token.CCOMMENT || t.Kind == token.CPPCOMMENT:
		// KEEPALLCOMMENTS additionally preserves comments found inside a dead
		// #if branch; plain KEEPCOMMENTS only affects the active path.
		if p.cfg.features.Has(KEEPALLCOMMENTS) {
			return t, false
		}
		return token.New(token.WHITESPACE, " ", t.Line, t.Column), false
	case t.Kind == token.HASH && atLineStart(t):
		name := p.peekDirectiveName()
		switch name {
		case "if", "ifdef", "ifndef", "elif", "else", "endif":
			p.dispatchActiveDirective()
		default:
			p.skipRestOfLine()
		}
		return token.Token{}, true
	default:
		return token.Token{}, true
	}
}

// peekDirectiveName reads the directive keyword following a line-leading
// HASH without consuming anything beyond it (layout tokens are consumed,
// since they carry no meaning here).
func (p *Preprocessor) peekDirectiveName() string {
	t := p.nextRawNonLayout()
	if t.Kind != token.IDENT {
		p.unreadRaw(t)
		return ""
	}
	p.unreadRaw(t)
	return t.Text
}

// dispatchActiveDirective implements the full directive table, invoked
// whenever a HASH is seen at the start of a logical line while
// the preprocessor is in active (or re-entering-conditional) mode.
func (p *Preprocessor) dispatchActiveDirective() {
	name := p.nextRawNonLayout()
	if name.Kind == token.NL || name.Kind == token.EOF {
		// A bare '#' on its own line is a legal null directive.
		return
	}
	if name.Kind != token.IDENT {
		p.errorf("directive", "expected a directive name after '#', got %q", name.Text)
		p.skipRestOfLine()
		return
	}

	p.debugf("directive #%s", name.Text)
	switch name.Text {
	case "define":
		p.handleDefine()
	case "undef":
		p.handleUndef()
	case "include":
		p.handleInclude(false, false)
	case "include_next":
		if !p.cfg.features.Has(INCLUDENEXT) {
			p.warnf("directive", "unknown directive %q", name.Text)
			p.skipRestOfLine()
			return
		}
		p.handleInclude(true, false)
	case "import":
		p.handleInclude(false, true)
	case "if":
		p.handleIf()
	case "ifdef":
		p.handleIfdefIfndef(true)
	case "ifndef":
		p.handleIfdefIfndef(false)
	case "elif":
		p.handleElif()
	case "else":
		p.handleElse()
	case "endif":
		p.handleEndif()
	case "line":
		p.handleLine()
	case "pragma":
		p.handlePragma()
	case "warning":
		p.warnf("directive:warning", "%s", p.restOfLineText())
	case "error":
		p.errorf("directive:error", "%s", p.restOfLineText())
	default:
		p.warnf("directive", "unknown directive %q", name.Text)
		p.skipRestOfLine()
	}
}

// handleUndef implements #undef, plus the extra rule that undefining a
// builtin is a non-fatal warning rather than a silent no-op, and that
// "defined" itself cannot be undefined.
func (p *Preprocessor) handleUndef() {
	name := p.expectDirectiveIdent("directive:undef")
	if name == "" {
		p.skipRestOfLine()
		return
	}
	if name == "defined" {
		p.errorf("directive:undef", "%q cannot be undefined", name)
		p.skipRestOfLine()
		return
	}
	m, ok := p.macros[name]
	if !ok {
		p.skipRestOfLine()
		return
	}
	if m.Builtin {
		p.warnf("directive:undef", "undefining builtin macro %q", name)
	}
	delete(p.macros, name)
	p.skipRestOfLine()
}

// handleIf implements #if: evaluate a constant expression and push a new
// conditional frame.
func (p *Preprocessor) handleIf() {
	cond := p.evalCondExpr()
	p.cond.Push(cond != 0)
	p.skipRestOfLine()
}

func (p *Preprocessor) handleIfdefIfndef(wantDefined bool) {
	name := p.expectDirectiveIdent("directive:ifdef")
	_, defined := p.macros[name]
	if name == "" {
		defined = false
	}
	p.cond.Push(defined == wantDefined)
	p.skipRestOfLine()
}

func (p *Preprocessor) handleElif() {
	if p.cond.Depth() <= 1 {
		p.errorf("directive:elif", "#elif without matching #if")
		p.skipRestOfLine()
		return
	}
	cond := p.evalCondExpr()
	if !p.cond.Elif(cond != 0) {
		p.errorf("directive:elif", "#elif after #else")
	}
	p.skipRestOfLine()
}

func (p *Preprocessor) handleElse() {
	if p.cond.Depth() <= 1 {
		p.errorf("directive:else", "#else without matching #if")
		p.skipRestOfLine()
		return
	}
	if !p.cond.Else() {
		p.errorf("directive:else", "#else after #else")
	}
	p.checkEndifLabel("else")
	p.skipRestOfLine()
}

func (p *Preprocessor) handleEndif() {
	if p.cond.Depth() <= 1 {
		p.errorf("directive:endif", "#endif without matching #if")
		p.skipRestOfLine()
		return
	}
	p.cond.Pop()
	p.checkEndifLabel("endif")
	p.skipRestOfLine()
}

// checkEndifLabel implements the ENDIF_LABELS warning: trailing
// non-whitespace text after #else/#endif is suspicious and, when the
// warning is enabled, reported.
func (p *Preprocessor) checkEndifLabel(which string) {
	if !p.cfg.warnings.Has(ENDIF_LABELS) {
		return
	}
	t := p.nextRawNonLayout()
	if t.Kind != token.NL && t.Kind != token.EOF {
		p.warnf("directive:"+which, "extra tokens after #%s", which)
	}
	p.unreadRaw(t)
}

// evalCondExpr evaluates the constant expression following #if/#elif
// against the source's expr.Reader adapter.
func (p *Preprocessor) evalCondExpr() int64 {
	r := &exprReader{p: p}
	return expr.Eval(r)
}

// handleLine implements #line: re-numbers the current file source and
// optionally renames it.
func (p *Preprocessor) handleLine() {
	numTok := p.nextExpandedNonLayout()
	n, err := strconv.ParseInt(numTok.Text, 10, 64)
	if numTok.Kind != token.INTEGER || err != nil {
		p.errorf("directive:line", "expected a line number, got %q", numTok.Text)
		p.skipRestOfLine()
		return
	}

	// The override is set before anything past the number is read, so the
	// directive's trailing newline has not been consumed yet.
	fs := p.currentFileSource()
	if fs != nil {
		fs.SetLineOverride(int(n))
	}
	nt := p.nextExpandedNonLayout()
	if nt.Kind == token.STRING {
		if fs != nil {
			fs.SetPathOverride(nt.Value.Str)
		}
	} else {
		p.unreadRaw(nt)
	}
	p.skipRestOfLine()
}

// handlePragma implements #pragma: the directive name and raw remainder of
// the line are handed to the configured pragma hook.
func (p *Preprocessor) handlePragma() {
	name := p.nextRawNonLayout()
	var rest []token.Token
	for {
		t := p.nextRaw()
		if t.Kind == token.NL || t.Kind == token.EOF {
			break
		}
		rest = append(rest, t)
	}
	if p.cfg.pragmaHandler != nil {
		p.cfg.pragmaHandler(p, name.Text, rest)
	}
}

// defaultPragmaHandler is the fallback pragma hook: any pragma not
// otherwise handled produces a warning.
func defaultPragmaHandler(p *Preprocessor, name string, rest []token.Token) {
	p.warnf("directive:pragma", "unknown pragma %q", name)
}

// expectDirectiveIdent reads the next non-layout token and requires it to be
// an identifier, reporting sender as the error's source on mismatch.
func (p *Preprocessor) expectDirectiveIdent(sender string) string {
	t := p.nextRawNonLayout()
	if t.Kind != token.IDENT {
		p.errorf(sender, "expected an identifier, got %q", t.Text)
		return ""
	}
	return t.Text
}

// nextExpandedNonLayout pulls the next macro-expanded, non-whitespace token.
func (p *Preprocessor) nextExpandedNonLayout() token.Token {
	for {
		t := p.nextExpanded()
		switch t.Kind {
		case token.WHITESPACE, token.CCOMMENT, token.CPPCOMMENT:
			continue
		default:
			return t
		}
	}
}

// skipRestOfLine discards raw tokens through the next NL or EOF, used after
// every directive to enforce "rest of line is consumed" uniformly.
func (p *Preprocessor) skipRestOfLine() {
	for {
		t := p.nextRaw()
		if t.Kind == token.NL || t.Kind == token.EOF {
			return
		}
	}
}

// restOfLineText concatenates the raw text of the remainder of the current
// line, used by #warning/#error.
func (p *Preprocessor) restOfLineText() string {
	var sb []byte
	for {
		t := p.nextRaw()
		if t.Kind == token.NL || t.Kind == token.EOF {
			break
		}
		sb = append(sb, t.Text...)
	}
	return string(sb)
}
