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

package source

import (
	"log"
	"strings"

	"github.com/EngFlow/cpp/internal/lexer"
	"github.com/EngFlow/cpp/token"
)

// MacroTokenSource replays a Macro's replacement list against a fixed set of
// Arguments, performing M_ARG substitution, M_STRING stringification, and
// M_PASTE token-pasting. The control-flow shape — peek-driven dispatch over
// a small closed set of marker kinds, with a re-lex step for paste — is
// adapted from the replacement-list walk in google-gapid's GLSL
// preprocessor (processMacro / token-pasting loop in preprocessorImpl.go).
type MacroTokenSource struct {
	Base
	macro *Macro
	args  []*Argument

	body []token.Token
	pos  int

	// sub plays back the tokens of an M_ARG's expansion, or the tokens
	// produced by re-lexing a paste, ahead of resuming body.
	sub    []token.Token
	subPos int

	warn func(msg string)
}

// NewMacroTokenSource builds an auto-pop Source over macro's replacement
// list, with args supplying one Argument per parameter (already
// pre-expanded). warn receives non-fatal diagnostics (e.g. a trailing
// "##"); it may be nil.
func NewMacroTokenSource(parent Source, macro *Macro, args []*Argument, warn func(string)) *MacroTokenSource {
	if warn == nil {
		warn = func(string) {}
	}
	return &MacroTokenSource{
		Base:  NewBase(parent, true),
		macro: macro,
		args:  args,
		body:  macro.Body,
		warn:  warn,
	}
}

func (s *MacroTokenSource) Macro() *Macro { return s.macro }
func (s *MacroTokenSource) Name() string  { return s.macro.Name }
func (s *MacroTokenSource) Path() string  { return s.macro.Name }
func (s *MacroTokenSource) Line() int     { return -1 }
func (s *MacroTokenSource) Column() int   { return -1 }
func (s *MacroTokenSource) Close() error  { return nil }

// Token implements Source. It drains any active sub-iterator (an argument's
// expansion, or a re-lexed paste result) before resuming the replacement
// list.
func (s *MacroTokenSource) Token() token.Token {
	if s.subPos < len(s.sub) {
		t := s.sub[s.subPos]
		s.subPos++
		return t
	}
	if s.pos >= len(s.body) {
		return token.Eof
	}

	t := s.body[s.pos]
	s.pos++

	switch t.Kind {
	case token.M_ARG:
		arg := s.argAt(t.Value.Arg)
		s.sub = arg.Expanded()
		s.subPos = 0
		return s.Token()
	case token.M_STRING:
		return s.stringify(s.argAt(t.Value.Arg))
	case token.M_PASTE:
		return s.paste()
	default:
		return t
	}
}

// argAt resolves an M_ARG/M_STRING/M_PASTE operand index into its Argument.
// The replacement list parser (cpp.parseReplacementList) only ever emits an
// index that finishArgs has already sized args to match, so an out-of-range
// index here means the driver built an inconsistent Macro, not a user error.
func (s *MacroTokenSource) argAt(i int) *Argument {
	if i < 0 || i >= len(s.args) {
		log.Panicf("cpp: macro %q replacement list references argument %d, have %d", s.macro.Name, i, len(s.args))
	}
	return s.args[i]
}

// stringify implements "#" (M_STRING): convert an argument's raw tokens to
// a STRING token, with escaping for \\ and \".
func (s *MacroTokenSource) stringify(arg *Argument) token.Token {
	raw := arg.Raw()
	start, end := 0, len(raw)
	for start < end && isLayout(raw[start].Kind) {
		start++
	}
	for end > start && isLayout(raw[end-1].Kind) {
		end--
	}

	var text strings.Builder
	needSpace := false
	for i := start; i < end; i++ {
		t := raw[i]
		if isLayout(t.Kind) {
			needSpace = true
			continue
		}
		if needSpace && text.Len() > 0 {
			text.WriteByte(' ')
		}
		needSpace = false
		text.WriteString(t.Text)
	}

	var quoted strings.Builder
	quoted.WriteByte('"')
	for _, r := range text.String() {
		if r == '\\' || r == '"' {
			quoted.WriteByte('\\')
		}
		quoted.WriteRune(r)
	}
	quoted.WriteByte('"')

	tok := token.NewSynthetic(token.STRING, quoted.String())
	tok.Value = token.Value{Str: text.String()}
	return tok
}

// paste implements "##" (M_PASTE), resolving a possibly-chained sequence of
// operands and re-lexing their
// concatenation. A paste with no following operand warns and reproduces the
// marker's own text literally.
func (s *MacroTokenSource) paste() token.Token {
	left, pos, ok := s.resolvePasteOperand(s.pos)
	if !ok {
		s.warn("'##' cannot appear at the end of a macro expansion")
		return token.NewSynthetic(token.HASHHASH, "##")
	}
	right, pos, ok := s.resolvePasteOperand(pos)
	if !ok {
		s.warn("'##' cannot appear at the end of a macro expansion")
		s.pos = pos
		return token.NewSynthetic(token.HASHHASH, "##")
	}
	s.pos = pos
	return s.relex(left + right)
}

// resolvePasteOperand resolves a single paste operand at pos, which may
// itself be a nested M_PASTE (chaining a further two operands, per
// "a##b##c" → "PASTE a PASTE b c"). Comments/whitespace ahead of the operand
// are skipped.
func (s *MacroTokenSource) resolvePasteOperand(pos int) (string, int, bool) {
	for pos < len(s.body) && isLayout(s.body[pos].Kind) {
		pos++
	}
	if pos >= len(s.body) {
		return "", pos, false
	}

	t := s.body[pos]
	switch t.Kind {
	case token.M_PASTE:
		left, pos2, ok := s.resolvePasteOperand(pos + 1)
		if !ok {
			return "", pos2, false
		}
		right, pos3, ok := s.resolvePasteOperand(pos2)
		if !ok {
			return "", pos3, false
		}
		return left + right, pos3, true
	case token.M_ARG:
		return RawText(s.argAt(t.Value.Arg).Raw()), pos + 1, true
	default:
		return t.Text, pos + 1, true
	}
}

// relex feeds the concatenation of two paste operands through a fresh
// LexerSource and delivers the produced tokens in place: the
// first is returned now, any remainder queued as the sub-iterator.
func (s *MacroTokenSource) relex(text string) token.Token {
	lx := lexer.NewSourceFromString("<paste>", text)
	var toks []token.Token
	for {
		t := lx.Token()
		if t.Kind == token.EOF {
			break
		}
		if t.Kind == token.WHITESPACE || t.Kind == token.NL {
			continue
		}
		t.Line, t.Column = -1, -1
		toks = append(toks, t)
	}
	if len(toks) == 0 {
		return s.Token()
	}
	first := toks[0]
	if len(toks) > 1 {
		s.sub = toks[1:]
		s.subPos = 0
	}
	return first
}
