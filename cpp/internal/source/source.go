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

// Package source implements the pull-based Source stack: a polymorphic
// variant over file-backed lexing, fixed in-memory token playback, and
// macro-replacement playback, sharing a common header of parent link /
// auto-pop flag / active flag rather than a deep inheritance tree, per
// gazelle_cc's preference for small, flat value types (`cppConfig`,
// `ifEntry`-shaped state in its parser).
package source

import (
	"strings"

	"github.com/EngFlow/cpp/internal/lexer"
	"github.com/EngFlow/cpp/token"
)

// Source is a single entry of the driver's pull-based token-source stack.
// Popped sources are never reused.
type Source interface {
	// Token returns the next token from this source alone; EOF signals the
	// driver should pop (if AutoPop) or switch to inactive handling.
	Token() token.Token
	Parent() Source
	AutoPop() bool
	Active() bool
	SetActive(bool)
	Name() string
	Path() string
	Line() int
	Column() int
	Close() error
}

// Base is the shared header every Source embeds.
type Base struct {
	parent  Source
	autoPop bool
	active  bool
}

// NewBase builds a Base with active=true, the state every freshly pushed
// Source starts in.
func NewBase(parent Source, autoPop bool) Base {
	return Base{parent: parent, autoPop: autoPop, active: true}
}

func (b *Base) Parent() Source   { return b.parent }
func (b *Base) AutoPop() bool    { return b.autoPop }
func (b *Base) Active() bool     { return b.active }
func (b *Base) SetActive(v bool) { b.active = v }

// LexerFileSource adapts a lexer.LexerSource (a file, or an #include'd
// file) to the Source interface.
type LexerFileSource struct {
	Base
	lex  *lexer.LexerSource
	path string

	// lineDelta/pathOverride implement #line: the reported line number
	// becomes lex.Line()+lineDelta, and the reported path is pathOverride
	// once set.
	lineDelta    int
	pathOverride string
	hasOverride  bool

	// foundDirIndex records which entry of the #include search-path list
	// resolved this file, -1 for top-level inputs with no such list. Used by
	// #include_next to resume searching past this point.
	foundDirIndex int
}

// NewLexerFileSource wraps lex, identified by path for diagnostics and line
// markers.
func NewLexerFileSource(parent Source, autoPop bool, path string, lex *lexer.LexerSource) *LexerFileSource {
	return &LexerFileSource{Base: NewBase(parent, autoPop), lex: lex, path: path, foundDirIndex: -1}
}

func (s *LexerFileSource) FoundDirIndex() int      { return s.foundDirIndex }
func (s *LexerFileSource) SetFoundDirIndex(i int)  { s.foundDirIndex = i }

func (s *LexerFileSource) Lexer() *lexer.LexerSource { return s.lex }
func (s *LexerFileSource) Token() token.Token        { return s.lex.Token() }
func (s *LexerFileSource) Name() string              { return s.lex.Name() }
func (s *LexerFileSource) Close() error              { return s.lex.Close() }

func (s *LexerFileSource) Path() string {
	if s.hasOverride {
		return s.pathOverride
	}
	return s.path
}

func (s *LexerFileSource) Line() int   { return s.lex.Line() + s.lineDelta }
func (s *LexerFileSource) Column() int { return s.lex.Column() }

// SetLineOverride makes the line reported for the line following the #line
// directive equal to n: the underlying lexer keeps counting physical
// lines, so the override is tracked as a delta from its current count. It
// is always called before the directive's own trailing newline is
// consumed, so the delta must account for that one line of lag.
func (s *LexerFileSource) SetLineOverride(n int) {
	s.lineDelta = n - s.lex.Line() - 1
}

// SetPathOverride makes Path() (and therefore line-marker/diagnostic
// output) report name instead of the source's original path.
func (s *LexerFileSource) SetPathOverride(name string) {
	s.pathOverride = name
	s.hasOverride = true
}

// FixedTokenSource plays back an in-memory token list: used for
// macro-argument pre-expansion (non-auto-pop) and for the three
// pseudo-macros __LINE__/__FILE__/__COUNTER__ (auto-pop).
type FixedTokenSource struct {
	Base
	name   string
	tokens []token.Token
	pos    int
}

// NewFixedTokenSource builds a playback source over tokens, named name for
// diagnostics.
func NewFixedTokenSource(parent Source, autoPop bool, name string, tokens []token.Token) *FixedTokenSource {
	return &FixedTokenSource{Base: NewBase(parent, autoPop), name: name, tokens: tokens}
}

func (s *FixedTokenSource) Token() token.Token {
	if s.pos >= len(s.tokens) {
		return token.Eof
	}
	t := s.tokens[s.pos]
	s.pos++
	return t
}

func (s *FixedTokenSource) Name() string { return s.name }
func (s *FixedTokenSource) Path() string { return s.name }
func (s *FixedTokenSource) Line() int    { return -1 }
func (s *FixedTokenSource) Column() int  { return -1 }
func (s *FixedTokenSource) Close() error { return nil }

// isLayout reports whether a token kind carries no semantic text of its own
// for stringification/pasting purposes: comments among operands are
// skipped.
func isLayout(k token.Kind) bool {
	switch k {
	case token.WHITESPACE, token.CCOMMENT, token.CPPCOMMENT, token.NL:
		return true
	}
	return false
}

// EscapePath renders path the way a line marker's "<escaped-path>" does:
// doubling '\' and '"' and converting '\n'/'\r' to the two-character
// escapes.
func EscapePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
