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
	"testing"

	"github.com/EngFlow/cpp/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokens(t *testing.T, text string) []token.Token {
	t.Helper()
	s := NewSourceFromString("<test>", text)
	var out []token.Token
	for {
		tok := s.Token()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexIdentifier(t *testing.T) {
	toks := tokens(t, "foo_Bar$1")
	require.Len(t, toks, 2)
	assert.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, "foo_Bar$1", toks[0].Text)
	assert.Equal(t, token.EOF, toks[1].Kind)
}

func TestLexDecimalInteger(t *testing.T) {
	toks := tokens(t, "12345")
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, token.INTEGER, toks[0].Kind)
	assert.EqualValues(t, 12345, toks[0].Value.Int)
}

func TestLexHexInteger(t *testing.T) {
	toks := tokens(t, "0xFF")
	assert.Equal(t, token.INTEGER, toks[0].Kind)
	assert.EqualValues(t, 255, toks[0].Value.Int)
}

func TestLexOctalInteger(t *testing.T) {
	toks := tokens(t, "017")
	assert.Equal(t, token.INTEGER, toks[0].Kind)
	assert.EqualValues(t, 15, toks[0].Value.Int)
}

func TestLexIntegerWithSuffix(t *testing.T) {
	toks := tokens(t, "10UL")
	assert.Equal(t, token.INTEGER, toks[0].Kind)
	assert.EqualValues(t, 10, toks[0].Value.Int)
}

func TestLexIntegerBadSuffixIsInvalid(t *testing.T) {
	toks := tokens(t, "10qq")
	assert.Equal(t, token.INVALID, toks[0].Kind)
}

func TestLexCharConstant(t *testing.T) {
	toks := tokens(t, `'a'`)
	require.Equal(t, token.CHAR, toks[0].Kind)
	assert.EqualValues(t, 'a', toks[0].Value.Int)
}

func TestLexCharEscape(t *testing.T) {
	toks := tokens(t, `'\n'`)
	require.Equal(t, token.CHAR, toks[0].Kind)
	assert.EqualValues(t, '\n', toks[0].Value.Int)
}

func TestLexCharOctalEscape(t *testing.T) {
	toks := tokens(t, `'\101'`) // 'A'
	require.Equal(t, token.CHAR, toks[0].Kind)
	assert.EqualValues(t, 'A', toks[0].Value.Int)
}

func TestLexCharHexEscape(t *testing.T) {
	toks := tokens(t, `'\x41'`) // 'A'
	require.Equal(t, token.CHAR, toks[0].Kind)
	assert.EqualValues(t, 'A', toks[0].Value.Int)
}

func TestLexEmptyCharIsInvalid(t *testing.T) {
	toks := tokens(t, `''`)
	assert.Equal(t, token.INVALID, toks[0].Kind)
}

func TestLexUnterminatedCharIsInvalid(t *testing.T) {
	toks := tokens(t, "'a")
	assert.Equal(t, token.INVALID, toks[0].Kind)
}

func TestLexStringLiteral(t *testing.T) {
	toks := tokens(t, `"hi\nthere"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "hi\nthere", toks[0].Value.Str)
}

func TestLexUnterminatedStringIsInvalid(t *testing.T) {
	toks := tokens(t, `"hi`)
	assert.Equal(t, token.INVALID, toks[0].Kind)
}

func TestLexHeaderAngled(t *testing.T) {
	s := NewSourceFromString("<test>", "<foo/bar.h>")
	s.SetInInclude(true)
	tok := s.Token()
	require.Equal(t, token.HEADER, tok.Kind)
	assert.Equal(t, "foo/bar.h", tok.Value.Str)
}

func TestLexHeaderQuotedNoEscapeProcessing(t *testing.T) {
	s := NewSourceFromString("<test>", `"foo\bar.h"`)
	s.SetInInclude(true)
	tok := s.Token()
	require.Equal(t, token.STRING, tok.Kind)
	assert.Equal(t, `foo\bar.h`, tok.Value.Str)
}

func TestLexWhitespaceRun(t *testing.T) {
	toks := tokens(t, "   \t  x")
	require.Len(t, toks, 3)
	assert.Equal(t, token.WHITESPACE, toks[0].Kind)
	assert.Equal(t, "   \t  ", toks[0].Text)
}

func TestLexNewlineCollapsesRunAtLineStart(t *testing.T) {
	toks := tokens(t, "\n\n\nx")
	require.Len(t, toks, 3)
	assert.Equal(t, token.NL, toks[0].Kind)
	assert.Equal(t, "\n\n\n", toks[0].Text)
}

func TestLexNewlineDoesNotCollapseMidLine(t *testing.T) {
	toks := tokens(t, "x\n\ny")
	require.Len(t, toks, 5)
	assert.Equal(t, []token.Kind{token.IDENT, token.NL, token.NL, token.IDENT}, kinds(toks[:4]))
}

func TestLexBlockComment(t *testing.T) {
	toks := tokens(t, "/* hi */x")
	require.Len(t, toks, 3)
	assert.Equal(t, token.CCOMMENT, toks[0].Kind)
	assert.Equal(t, "/* hi */", toks[0].Text)
}

func TestLexUnterminatedBlockCommentIsInvalid(t *testing.T) {
	toks := tokens(t, "/* hi")
	assert.Equal(t, token.INVALID, toks[0].Kind)
}

func TestLexLineComment(t *testing.T) {
	toks := tokens(t, "// hi\nx")
	require.Len(t, toks, 4)
	assert.Equal(t, token.CPPCOMMENT, toks[0].Kind)
	assert.Equal(t, "// hi", toks[0].Text)
}

func TestLexHashAtLineStartIsHash(t *testing.T) {
	toks := tokens(t, "#define")
	assert.Equal(t, token.HASH, toks[0].Kind)
}

func TestLexHashNotAtLineStartIsPunctuator(t *testing.T) {
	toks := tokens(t, "x#y")
	require.Len(t, toks, 4)
	assert.Equal(t, token.Kind('#'), toks[1].Kind)
}

func TestLexHashHashOutsideLineStart(t *testing.T) {
	toks := tokens(t, "a##b")
	require.Len(t, toks, 4)
	assert.Equal(t, []token.Kind{token.IDENT, token.HASHHASH, token.IDENT, token.EOF}, kinds(toks))
}

func TestLexMultiCharPunctuatorLongestMatch(t *testing.T) {
	toks := tokens(t, "<<=")
	assert.Equal(t, token.SHL_EQ, toks[0].Kind)
	assert.Equal(t, "<<=", toks[0].Text)
}

func TestLexPunctuatorPrefersLongerOverShorter(t *testing.T) {
	toks := tokens(t, "->")
	assert.Equal(t, token.ARROW, toks[0].Kind)
	toks = tokens(t, "-=")
	assert.Equal(t, token.MINUS_EQ, toks[0].Kind)
	toks = tokens(t, "-")
	assert.Equal(t, token.Kind('-'), toks[0].Kind)
}

func TestLexDigraphs(t *testing.T) {
	s := NewSourceFromString("<test>", "<: :> <% %> %: %:%:")
	s.SetDigraphs(true)

	want := []token.Kind{token.Kind('['), token.Kind(']'), token.Kind('{'), token.Kind('}'), token.Kind('#'), token.HASHHASH}
	var got []token.Kind
	for {
		tok := s.Token()
		if tok.Kind == token.WHITESPACE {
			continue
		}
		if tok.Kind == token.EOF {
			break
		}
		got = append(got, tok.Kind)
	}
	assert.Equal(t, want, got)
}

func TestLexDigraphsDisabledByDefault(t *testing.T) {
	toks := tokens(t, "<:")
	assert.Equal(t, token.Kind('<'), toks[0].Kind)
	assert.Equal(t, token.Kind(':'), toks[1].Kind)
}

func TestLexEOFRepeats(t *testing.T) {
	s := NewSourceFromString("<test>", "")
	assert.Equal(t, token.EOF, s.Token().Kind)
	assert.Equal(t, token.EOF, s.Token().Kind)
}

func TestLexUnknownEscapeWarnsAndPassesThrough(t *testing.T) {
	var msgs []string
	s := NewSourceFromString("<test>", `'\q'`)
	s.SetWarnFunc(func(line, col int, msg string) { msgs = append(msgs, msg) })
	tok := s.Token()
	require.Equal(t, token.CHAR, tok.Kind)
	assert.EqualValues(t, 'q', tok.Value.Int)
	assert.NotEmpty(t, msgs)
}

func TestLexIdentifierSkipsIgnorableFormatChars(t *testing.T) {
	// U+200B ZERO WIDTH SPACE is Cf (format) and is silently dropped inside
	// an identifier.
	toks := tokens(t, "fo​o")
	require.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, "foo", toks[0].Text)
}
