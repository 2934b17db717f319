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

package lexer

import "github.com/EngFlow/cpp/token"

// lexPunctuatorOrDigraph scans a punctuator token. A '#' at the very start
// of a logical line always becomes HASH; otherwise punctuators (and, when
// enabled, digraphs) are matched by longest-match.
func (s *LexerSource) lexPunctuatorOrDigraph(first rune, line, col int) token.Token {
	atStart := s.atLineStart

	if first == '#' && atStart {
		tok := token.New(token.HASH, "#", line, col)
		s.markAfterToken(tok.Kind)
		return tok
	}

	if s.digraphs {
		if tok, ok := s.tryDigraph(first, line, col, atStart); ok {
			s.markAfterToken(tok.Kind)
			return tok
		}
	}

	tok := s.lexPunctuator(first, line, col)
	s.markAfterToken(tok.Kind)
	return tok
}

// tryDigraph maps <: :> <% %> %: %:%: to their canonical punctuator, per
// the DIGRAPHS feature. A matched digraph still produces a token whose
// Text is the canonical spelling.
func (s *LexerSource) tryDigraph(first rune, line, col int, atStart bool) (token.Token, bool) {
	switch first {
	case '<':
		r, l2, c2, ok := s.nextRune()
		switch {
		case ok && r == ':':
			return token.New(token.Kind('['), "[", line, col), true
		case ok && r == '%':
			return token.New(token.Kind('{'), "{", line, col), true
		case ok:
			s.unread(r, l2, c2)
		}
	case ':':
		r, l2, c2, ok := s.nextRune()
		if ok && r == '>' {
			return token.New(token.Kind(']'), "]", line, col), true
		} else if ok {
			s.unread(r, l2, c2)
		}
	case '%':
		r, l2, c2, ok := s.nextRune()
		switch {
		case ok && r == '>':
			return token.New(token.Kind('}'), "}", line, col), true
		case ok && r == ':':
			if s.tryDigraphHashHash() {
				return token.New(token.HASHHASH, "##", line, col), true
			}
			if atStart {
				return token.New(token.HASH, "#", line, col), true
			}
			return token.New(token.Kind('#'), "#", line, col), true
		case ok:
			s.unread(r, l2, c2)
		}
	}
	return token.Token{}, false
}

// tryDigraphHashHash looks for a second "%:" following an already-consumed
// "%:", i.e. the 4-character "%:%:" digraph for "##".
func (s *LexerSource) tryDigraphHashHash() bool {
	r2, l2, c2, ok2 := s.nextRune()
	if !ok2 {
		return false
	}
	if r2 != '%' {
		s.unread(r2, l2, c2)
		return false
	}
	r3, l3, c3, ok3 := s.nextRune()
	if ok3 && r3 == ':' {
		return true
	}
	if ok3 {
		s.unread(r3, l3, c3)
	}
	s.unread(r2, l2, c2)
	return false
}

// lexPunctuator performs the ordinary (non-digraph) longest-match scan
// against the multi-character punctuator table, falling back to the
// single-character ASCII Kind.
func (s *LexerSource) lexPunctuator(first rune, line, col int) token.Token {
	type seen struct {
		r         rune
		line, col int
	}
	lookahead := []seen{{first, line, col}}
	for i := 0; i < 2; i++ {
		r, l2, c2, ok := s.nextRune()
		if !ok {
			break
		}
		lookahead = append(lookahead, seen{r, l2, c2})
	}

	runes := make([]rune, len(lookahead))
	for i, sr := range lookahead {
		runes[i] = sr.r
	}

	for l := len(runes); l >= 1; l-- {
		candidate := string(runes[:l])
		if l == 1 {
			for i := len(lookahead) - 1; i >= 1; i-- {
				s.unread(lookahead[i].r, lookahead[i].line, lookahead[i].col)
			}
			return token.New(token.Kind(first), candidate, line, col)
		}
		for _, p := range token.Punctuators {
			if p.Text == candidate {
				for i := len(lookahead) - 1; i >= l; i-- {
					s.unread(lookahead[i].r, lookahead[i].line, lookahead[i].col)
				}
				return token.New(p.Kind, p.Text, line, col)
			}
		}
	}
	return token.New(token.Kind(first), string(first), line, col)
}
