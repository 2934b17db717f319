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

package cpp_test

import (
	"strings"
	"testing"

	"github.com/EngFlow/cpp"
	"github.com/EngFlow/cpp/internal/lexer"
	"github.com/EngFlow/cpp/listener"
	"github.com/EngFlow/cpp/token"
	"github.com/EngFlow/cpp/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains every token from p, returning them verbatim (whitespace
// and newlines included).
func collect(t *testing.T, p *cpp.Preprocessor) []token.Token {
	t.Helper()
	var out []token.Token
	for {
		tok := p.Token()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

// significant drops WHITESPACE tokens, keeping everything else (including
// NL, which the driver forwards even out of a dead #if branch to keep line
// counts stable).
func significant(toks []token.Token) []token.Token {
	var out []token.Token
	for _, t := range toks {
		if t.Kind == token.WHITESPACE {
			continue
		}
		out = append(out, t)
	}
	return out
}

// content strips WHITESPACE and NL, leaving only the tokens that carry
// actual text.
func content(toks []token.Token) []token.Token {
	var out []token.Token
	for _, t := range toks {
		if t.Kind == token.WHITESPACE || t.Kind == token.NL || t.Kind == token.EOF {
			continue
		}
		out = append(out, t)
	}
	return out
}

func kindsOf(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func newPP(t *testing.T, src string, opts ...cpp.Option) *cpp.Preprocessor {
	t.Helper()
	p := cpp.New(vfs.NewOSFileSystem(), listener.Discard{}, opts...)
	p.AddInput("<test>", strings.NewReader(src))
	return p
}

// Scenario 1: an object-like macro expands to its full replacement list.
func TestScenarioObjectLikeMacro(t *testing.T) {
	p := newPP(t, "#define X 1+2\nX\n")
	toks := significant(collect(t, p))
	require.Len(t, toks, 5)
	assert.Equal(t, []token.Kind{token.INTEGER, token.Kind('+'), token.INTEGER, token.NL, token.EOF}, kindsOf(toks))
	assert.EqualValues(t, 1, toks[0].Value.Int)
	assert.EqualValues(t, 2, toks[2].Value.Int)
}

// Scenario 2: the # operator stringifies the raw (unexpanded) argument
// text, collapsing internal whitespace runs to a single space.
func TestScenarioStringification(t *testing.T) {
	p := newPP(t, "#define S(x) #x\nS(a   b)\n")
	toks := significant(collect(t, p))
	require.Len(t, toks, 3)
	require.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "a b", toks[0].Value.Str)
	assert.Equal(t, token.NL, toks[1].Kind)
}

// Scenario 3: ## pastes adjacent operands into a single re-lexed token.
func TestScenarioTokenPaste(t *testing.T) {
	p := newPP(t, "#define P(a,b) a##b\nP(foo, 42)\n")
	toks := significant(collect(t, p))
	require.Len(t, toks, 3)
	require.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, "foo42", toks[0].Text)
}

// Scenario 4: a function-like variadic macro splits named arguments from
// __VA_ARGS__ at the right comma, including commas nested inside the
// trailing variadic tail. This is the direct regression test for the
// argument-counting fix in parseArgs/finishArgs.
func TestScenarioVariadicMacro(t *testing.T) {
	p := newPP(t, `#define LOG(fmt, ...) f(fmt, __VA_ARGS__)`+"\n"+`LOG("x", 1, 2)`+"\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 8)
	assert.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, "f", toks[0].Text)
	assert.Equal(t, token.Kind('('), toks[1].Kind)
	require.Equal(t, token.STRING, toks[2].Kind)
	assert.Equal(t, "x", toks[2].Value.Str)
	assert.Equal(t, token.Kind(','), toks[3].Kind)
	require.Equal(t, token.INTEGER, toks[4].Kind)
	assert.EqualValues(t, 1, toks[4].Value.Int)
	assert.Equal(t, token.Kind(','), toks[5].Kind)
	require.Equal(t, token.INTEGER, toks[6].Kind)
	assert.EqualValues(t, 2, toks[6].Value.Int)
	assert.Equal(t, token.Kind(')'), toks[7].Kind)
}

// A variadic macro with no named parameters at all (the "LOG(...)" shape)
// must still split every top-level comma inside __VA_ARGS__ correctly, and
// an invocation supplying zero variadic arguments must not error.
func TestVariadicMacroNoNamedParams(t *testing.T) {
	p := newPP(t, "#define LOG(...) f(__VA_ARGS__)\nLOG(1,2,3)\nLOG()\n")
	toks := content(collect(t, p))
	// f ( 1 , 2 , 3 )   f ( )
	require.Len(t, toks, 11)
	assert.Equal(t, []token.Kind{
		token.IDENT, token.Kind('('), token.INTEGER, token.Kind(','), token.INTEGER, token.Kind(','), token.INTEGER, token.Kind(')'),
		token.IDENT, token.Kind('('), token.Kind(')'),
	}, kindsOf(toks))
}

// Scenario 5: a false #if branch is skipped entirely and #else activates
// the alternate branch.
func TestScenarioConditional(t *testing.T) {
	p := newPP(t, "#if 1+1==2\nA\n#else\nB\n#endif\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 1)
	assert.Equal(t, "A", toks[0].Text)
}

// Scenario 6: a macro cannot expand itself recursively; the self-reference
// is forwarded as a literal identifier.
func TestScenarioRecursionGuard(t *testing.T) {
	p := newPP(t, "#define M M+1\nM\n")
	toks := significant(collect(t, p))
	require.Len(t, toks, 5)
	assert.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, "M", toks[0].Text)
	assert.Equal(t, token.Kind('+'), toks[1].Kind)
	assert.EqualValues(t, 1, toks[2].Value.Int)
}

// Scenario 7: defined() correctly distinguishes defined from undefined
// names inside a logical && expression.
func TestScenarioDefined(t *testing.T) {
	p := newPP(t, "#define Y\n#if defined(Y) && !defined(Z)\nok\n#endif\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 1)
	assert.Equal(t, "ok", toks[0].Text)
}

func TestIfdefIfndef(t *testing.T) {
	p := newPP(t, "#define Y\n#ifdef Y\na\n#endif\n#ifndef Y\nb\n#endif\n#ifndef Z\nc\n#endif\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 2)
	assert.Equal(t, "a", toks[0].Text)
	assert.Equal(t, "c", toks[1].Text)
}

func TestElifChain(t *testing.T) {
	p := newPP(t, "#if 0\na\n#elif 0\nb\n#elif 1\nc\n#else\nd\n#endif\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 1)
	assert.Equal(t, "c", toks[0].Text)
}

func TestUndefRemovesMacro(t *testing.T) {
	p := newPP(t, "#define X 1\n#undef X\nX\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 1)
	assert.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, "X", toks[0].Text)
}

func TestUndefBuiltinWarns(t *testing.T) {
	c := &listener.Collector{}
	p := cpp.New(vfs.NewOSFileSystem(), c)
	p.AddInput("<test>", strings.NewReader("#undef __LINE__\n"))
	collect(t, p)
	assert.Len(t, c.Warnings, 1)
}

func TestBuiltinCounterIncreasesEachUse(t *testing.T) {
	p := newPP(t, "__COUNTER__ __COUNTER__ __COUNTER__\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 3)
	assert.EqualValues(t, 0, toks[0].Value.Int)
	assert.EqualValues(t, 1, toks[1].Value.Int)
	assert.EqualValues(t, 2, toks[2].Value.Int)
}

func TestBuiltinFile(t *testing.T) {
	p := newPP(t, "__FILE__\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 1)
	assert.Equal(t, "<test>", toks[0].Value.Str)
}

// A function-like macro whose own body invokes itself must not expand
// infinitely: the self-reference is forwarded literally, and its argument
// is still fully expanded on its own merits.
func TestFunctionLikeMacroSelfInvocationStops(t *testing.T) {
	p := newPP(t, "#define F(x) F(x)\nF(1)\n")
	toks := content(collect(t, p))
	texts := make([]string, len(toks))
	for i, tk := range toks {
		texts[i] = tk.Text
	}
	assert.Equal(t, []string{"F", "(", "1", ")"}, texts)
}

func TestBuiltinLineNumberWithoutOverride(t *testing.T) {
	p := newPP(t, "__LINE__\n__LINE__\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 2)
	assert.EqualValues(t, 1, toks[0].Value.Int)
	assert.EqualValues(t, 2, toks[1].Value.Int)
}

func TestLineDirectiveRenumbers(t *testing.T) {
	p := newPP(t, "#line 100 \"other.c\"\n__LINE__\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 1)
	assert.EqualValues(t, 100, toks[0].Value.Int)
}

func TestLineMarkersEmittedWhenEnabled(t *testing.T) {
	p := newPP(t, "a\n", cpp.WithFeatures(cpp.LINEMARKERS))
	toks := collect(t, p)
	require.NotEmpty(t, toks)
	assert.Equal(t, token.P_LINE, toks[0].Kind)
}

func TestLineMarkersAbsentByDefault(t *testing.T) {
	p := newPP(t, "a\n")
	toks := collect(t, p)
	for _, tk := range toks {
		assert.NotEqual(t, token.P_LINE, tk.Kind)
	}
}

func TestDigraphsFeatureGate(t *testing.T) {
	p := newPP(t, "<: :>\n")
	toks := content(collect(t, p))
	require.Len(t, toks, 4)
	assert.Equal(t, []token.Kind{token.Kind('<'), token.Kind(':'), token.Kind(':'), token.Kind('>')}, kindsOf(toks))

	p = newPP(t, "<: :>\n", cpp.WithFeatures(cpp.DIGRAPHS))
	toks = content(collect(t, p))
	require.Len(t, toks, 2)
	assert.Equal(t, token.Kind('['), toks[0].Kind)
	assert.Equal(t, token.Kind(']'), toks[1].Kind)
}

func TestKeepCommentsOnActivePath(t *testing.T) {
	p := newPP(t, "a /* c */ b\n")
	toks := content(collect(t, p))
	assert.Len(t, toks, 2) // comment dropped by default

	p = newPP(t, "a /* c */ b\n", cpp.WithFeatures(cpp.KEEPCOMMENTS))
	toks = significant(collect(t, p))
	var sawComment bool
	for _, tk := range toks {
		if tk.Kind == token.CCOMMENT {
			sawComment = true
		}
	}
	assert.True(t, sawComment)
}

func TestKeepAllCommentsPreservesCommentsInDeadBranch(t *testing.T) {
	p := newPP(t, "#if 0\n/* dead */\n#endif\n", cpp.WithFeatures(cpp.KEEPCOMMENTS))
	toks := collect(t, p)
	for _, tk := range toks {
		assert.NotEqual(t, token.CCOMMENT, tk.Kind)
	}

	p = newPP(t, "#if 0\n/* dead */\n#endif\n", cpp.WithFeatures(cpp.KEEPALLCOMMENTS))
	toks = collect(t, p)
	var sawComment bool
	for _, tk := range toks {
		if tk.Kind == token.CCOMMENT {
			sawComment = true
		}
	}
	assert.True(t, sawComment)
}

func TestIncludeNextGatedByFeature(t *testing.T) {
	c := &listener.Collector{}
	p := cpp.New(vfs.NewOSFileSystem(), c)
	p.AddInput("<test>", strings.NewReader("#include_next <x.h>\n"))
	collect(t, p)
	require.Len(t, c.Warnings, 1)
	assert.Contains(t, c.Warnings[0].Message, "unknown directive")
}

func TestErrorWarningDirectives(t *testing.T) {
	c := &listener.Collector{}
	p := cpp.New(vfs.NewOSFileSystem(), c)
	p.AddInput("<test>", strings.NewReader("#warning be careful\n#error boom\n"))
	collect(t, p)
	require.Len(t, c.Warnings, 1)
	require.Len(t, c.Errors, 1)
	assert.Contains(t, c.Warnings[0].Message, "be careful")
	assert.Contains(t, c.Errors[0].Message, "boom")
}

func TestErrorWarningPromotionFeature(t *testing.T) {
	c := &listener.Collector{}
	p := cpp.New(vfs.NewOSFileSystem(), c, cpp.WithWarnings(cpp.ERROR))
	p.AddInput("<test>", strings.NewReader("#warning be careful\n"))
	collect(t, p)
	assert.Empty(t, c.Warnings)
	require.Len(t, c.Errors, 1)
}

func TestEndifLabelsWarning(t *testing.T) {
	c := &listener.Collector{}
	p := cpp.New(vfs.NewOSFileSystem(), c, cpp.WithWarnings(cpp.ENDIF_LABELS))
	p.AddInput("<test>", strings.NewReader("#if 1\n#endif EXTRA\n"))
	collect(t, p)
	require.Len(t, c.Warnings, 1)
}

// memVFS is a flat in-memory VirtualFileSystem used to test #include
// resolution without touching the real filesystem.
type memVFS struct {
	files map[string]string
}

func (m *memVFS) GetFile(dir, name string) (vfs.VirtualFile, error) {
	path := name
	if dir != "" && !strings.HasPrefix(name, "/") {
		path = dir + "/" + name
	}
	path = strings.TrimPrefix(path, "/")
	if _, ok := m.files[path]; !ok {
		return nil, notFoundErr(path)
	}
	return &memFile{m: m, path: path}, nil
}

type notFoundErr string

func (e notFoundErr) Error() string { return "no such file: " + string(e) }

type memFile struct {
	m    *memVFS
	path string
}

func (f *memFile) IsFile() bool { _, ok := f.m.files[f.path]; return ok }
func (f *memFile) Path() string { return f.path }
func (f *memFile) Name() string {
	if i := strings.LastIndexByte(f.path, '/'); i >= 0 {
		return f.path[i+1:]
	}
	return f.path
}
func (f *memFile) Parent() (vfs.VirtualFile, bool) {
	i := strings.LastIndexByte(f.path, '/')
	if i < 0 {
		return nil, false
	}
	return &memFile{m: f.m, path: f.path[:i]}, true
}
func (f *memFile) Child(name string) (vfs.VirtualFile, error) { return f.m.GetFile(f.path, name) }
func (f *memFile) OpenAsSource() (*lexer.LexerSource, error) {
	return lexer.NewSourceFromString(f.path, f.m.files[f.path]), nil
}

func TestIncludeResolvesAndExpandsHeader(t *testing.T) {
	mv := &memVFS{files: map[string]string{
		"inc/greet.h": "#define GREETING hi\n",
	}}
	p := cpp.New(mv, listener.Discard{}, cpp.WithSystemIncludePaths("inc"))
	p.AddInput("<test>", strings.NewReader("#include <greet.h>\nGREETING\n"))
	toks := content(collect(t, p))
	require.Len(t, toks, 1)
	assert.Equal(t, "hi", toks[0].Text)
}

func TestImportDedupsRepeatedInclude(t *testing.T) {
	mv := &memVFS{files: map[string]string{
		"once.h": "X\n",
	}}
	p := cpp.New(mv, listener.Discard{}, cpp.WithSystemIncludePaths(""))
	p.AddInput("<test>", strings.NewReader("#import <once.h>\n#import <once.h>\n"))
	toks := content(collect(t, p))
	require.Len(t, toks, 1)
	assert.Equal(t, "X", toks[0].Text)
}

func TestIncludeNotFoundReportsError(t *testing.T) {
	c := &listener.Collector{}
	mv := &memVFS{files: map[string]string{}}
	p := cpp.New(mv, c, cpp.WithSystemIncludePaths(""))
	p.AddInput("<test>", strings.NewReader("#include <missing.h>\n"))
	collect(t, p)
	require.Len(t, c.Errors, 1)
}

func TestMultipleTopLevelInputsProcessedInOrder(t *testing.T) {
	p := cpp.New(vfs.NewOSFileSystem(), listener.Discard{})
	p.AddInput("a", strings.NewReader("A\n"))
	p.AddInput("b", strings.NewReader("B\n"))
	toks := content(collect(t, p))
	require.Len(t, toks, 2)
	assert.Equal(t, "A", toks[0].Text)
	assert.Equal(t, "B", toks[1].Text)
}

func TestNoListenerPanicsOnWarning(t *testing.T) {
	p := cpp.New(vfs.NewOSFileSystem(), nil)
	p.AddInput("<test>", strings.NewReader("#pragma something\n"))
	assert.Panics(t, func() { collect(t, p) })
}

func TestClosePopsEveryStackedSource(t *testing.T) {
	p := newPP(t, "#define X 1\nX\n")
	p.Token() // pushes the input's file source onto the stack
	require.NoError(t, p.Close())
	assert.Equal(t, token.EOF, p.Token().Kind)
}
