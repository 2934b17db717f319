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

import (
	"strconv"
	"strings"

	"github.com/EngFlow/cpp/token"
)

// simpleEscapes maps the single-character character-constant escapes to
// their decoded byte value.
var simpleEscapes = map[rune]byte{
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
	'\\': '\\', '\'': '\'', '"': '"',
}

// decodeEscape is called with the cursor positioned immediately after a
// backslash. It consumes the escape sequence and returns its decoded byte
// plus the raw text consumed (excluding the leading backslash).
func (s *LexerSource) decodeEscape(line, col int) (value byte, raw string, ok bool) {
	r, l2, c2, got := s.nextRune()
	if !got {
		return 0, "", false
	}

	if v, known := simpleEscapes[r]; known {
		return v, string(r), true
	}

	if r >= '0' && r <= '7' {
		var b strings.Builder
		b.WriteRune(r)
		for i := 0; i < 2; i++ {
			r2, l3, c3, ok2 := s.nextRune()
			if !ok2 || r2 < '0' || r2 > '7' {
				if ok2 {
					s.unread(r2, l3, c3)
				}
				break
			}
			b.WriteRune(r2)
		}
		v, _ := strconv.ParseUint(b.String(), 8, 8)
		return byte(v), b.String(), true
	}

	if r == 'x' {
		var b strings.Builder
		for i := 0; i < 2; i++ {
			r2, l3, c3, ok2 := s.nextRune()
			if !ok2 || !isHexDigit(r2) {
				if ok2 {
					s.unread(r2, l3, c3)
				}
				break
			}
			b.WriteRune(r2)
		}
		if b.Len() == 0 {
			s.warn(line, col, "\\x used with no following hex digits")
			return 'x', "x", true
		}
		v, _ := strconv.ParseUint(b.String(), 16, 8)
		return byte(v), "x" + b.String(), true
	}

	// Unknown escape: warn and pass the character through unescaped.
	s.warn(l2-1, c2, "unknown escape sequence \\"+string(r))
	return byte(r), string(r), true
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (s *LexerSource) lexChar(line, col int) token.Token {
	s.atLineStart = false
	var raw strings.Builder
	raw.WriteByte('\'')
	var decoded []byte

	for {
		r, _, _, ok := s.nextRune()
		if !ok || r == '\n' {
			return token.Token{Kind: token.INVALID, Text: raw.String(), Line: line, Column: col,
				Value: token.Value{Reason: "unterminated character constant"}}
		}
		if r == '\'' {
			raw.WriteByte('\'')
			break
		}
		if r == '\\' {
			raw.WriteByte('\\')
			v, rawEsc, ok := s.decodeEscape(line, col)
			if !ok {
				return token.Token{Kind: token.INVALID, Text: raw.String(), Line: line, Column: col,
					Value: token.Value{Reason: "unterminated character constant"}}
			}
			raw.WriteString(rawEsc)
			decoded = append(decoded, v)
			continue
		}
		raw.WriteRune(r)
		decoded = append(decoded, []byte(string(r))...)
	}

	if len(decoded) == 0 {
		return token.Token{Kind: token.INVALID, Text: raw.String(), Line: line, Column: col,
			Value: token.Value{Reason: "empty character constant"}}
	}

	return token.Token{Kind: token.CHAR, Text: raw.String(), Line: line, Column: col,
		Value: token.Value{Int: int64(decoded[0]), Str: string(decoded)}}
}

func (s *LexerSource) lexString(line, col int) token.Token {
	var raw strings.Builder
	raw.WriteByte('"')
	var decoded strings.Builder

	for {
		r, _, _, ok := s.nextRune()
		if !ok || r == '\n' {
			tok := token.Token{Kind: token.INVALID, Text: raw.String(), Line: line, Column: col,
				Value: token.Value{Reason: "unterminated string literal"}}
			s.markAfterToken(tok.Kind)
			return tok
		}
		if r == '"' {
			raw.WriteByte('"')
			break
		}
		if r == '\\' {
			raw.WriteByte('\\')
			v, rawEsc, ok := s.decodeEscape(line, col)
			if !ok {
				tok := token.Token{Kind: token.INVALID, Text: raw.String(), Line: line, Column: col,
					Value: token.Value{Reason: "unterminated string literal"}}
				s.markAfterToken(tok.Kind)
				return tok
			}
			raw.WriteString(rawEsc)
			decoded.WriteByte(v)
			continue
		}
		raw.WriteRune(r)
		decoded.WriteRune(r)
	}

	tok := token.Token{Kind: token.STRING, Text: raw.String(), Line: line, Column: col,
		Value: token.Value{Str: decoded.String()}}
	s.markAfterToken(tok.Kind)
	return tok
}

// lexQuotedHeader scans a '"..."' header-name token while inInclude is set:
// like lexHeader, no escape processing — the value is the raw bytes between
// the quotes, backslashes included literally.
func (s *LexerSource) lexQuotedHeader(line, col int) token.Token {
	var raw strings.Builder
	raw.WriteByte('"')
	for {
		r, _, _, ok := s.nextRune()
		if !ok || r == '\n' {
			tok := token.Token{Kind: token.INVALID, Text: raw.String(), Line: line, Column: col,
				Value: token.Value{Reason: "unterminated header name"}}
			s.markAfterToken(tok.Kind)
			return tok
		}
		raw.WriteRune(r)
		if r == '"' {
			break
		}
	}
	text := raw.String()
	tok := token.Token{Kind: token.STRING, Text: text, Line: line, Column: col,
		Value: token.Value{Str: text[1 : len(text)-1]}}
	s.markAfterToken(tok.Kind)
	return tok
}

// lexHeader scans a '<...>' header-name token. Only called when inInclude
// is set: no escape processing, raw text kept verbatim including the
// angle brackets.
func (s *LexerSource) lexHeader(line, col int) token.Token {
	var raw strings.Builder
	raw.WriteByte('<')
	for {
		r, _, _, ok := s.nextRune()
		if !ok || r == '\n' {
			tok := token.Token{Kind: token.INVALID, Text: raw.String(), Line: line, Column: col,
				Value: token.Value{Reason: "unterminated header name"}}
			s.markAfterToken(tok.Kind)
			return tok
		}
		raw.WriteRune(r)
		if r == '>' {
			break
		}
	}
	text := raw.String()
	tok := token.Token{Kind: token.HEADER, Text: text, Line: line, Column: col,
		Value: token.Value{Str: text[1 : len(text)-1]}}
	s.markAfterToken(tok.Kind)
	return tok
}
