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

	"github.com/EngFlow/cpp/internal/source"
	"github.com/EngFlow/cpp/token"
)

// expandIdent is macro invocation's entry point: it looks ident.Text up in
// the macro table and, if eligible, pushes the appropriate replacement
// Source and returns true (the caller should re-pull rather than emit
// ident). It returns false when ident must be forwarded literally: unknown
// name, recursion guard, or a function-like macro with no following '('.
func (p *Preprocessor) expandIdent(ident token.Token) bool {
	m, ok := p.macros[ident.Text]
	if !ok || p.isExpanding(ident.Text) {
		return false
	}

	if m.Builtin {
		p.pushBuiltinExpansion(m, ident)
		return true
	}

	if !m.FunctionLike {
		p.pushSource(source.NewMacroTokenSource(p.top, m, nil, p.macroDiagFunc()))
		return true
	}

	if !p.peekParenForCall() {
		return false
	}

	args, ok := p.parseArgs(m)
	if !ok {
		// Reported already; the invocation is abandoned — nothing further is
		// emitted for it.
		return true
	}
	for _, a := range args {
		p.expandArgument(a)
	}
	p.pushSource(source.NewMacroTokenSource(p.top, m, args, p.macroDiagFunc()))
	return true
}

// peekParenForCall peeks past whitespace/comments/newlines for '('; if
// absent, it un-reads everything and the identifier is emitted literally.
func (p *Preprocessor) peekParenForCall() bool {
	var skipped []token.Token
	for {
		t := p.nextRaw()
		switch t.Kind {
		case token.WHITESPACE, token.CCOMMENT, token.CPPCOMMENT, token.NL:
			skipped = append(skipped, t)
			continue
		case token.Kind('('):
			return true
		default:
			p.unreadRaw(t)
			for i := len(skipped) - 1; i >= 0; i-- {
				p.unreadRaw(skipped[i])
			}
			return false
		}
	}
}

// parseArgs scans actual-argument tokens by paren depth, splitting on
// top-level commas (absorbing them into the trailing variadic argument
// once it has started), already past the opening '('.
func (p *Preprocessor) parseArgs(m *source.Macro) ([]*source.Argument, bool) {
	var args [][]token.Token
	var current []token.Token
	depth := 0

	for {
		t := p.nextRaw()
		switch {
		case t.Kind == token.EOF:
			p.errorf("directive:macro", "unterminated argument list invoking macro %q", m.Name)
			return nil, false
		case t.Kind == token.Kind('('):
			depth++
			current = append(current, t)
		case t.Kind == token.Kind(')'):
			if depth == 0 {
				args = append(args, current)
				return p.finishArgs(m, args)
			}
			depth--
			current = append(current, t)
		// Once Arity() named arguments have already been split off, any
		// further top-level comma belongs to the trailing variadic argument
		// rather than starting a new one.
		case t.Kind == token.Kind(',') && depth == 0 && !(m.Variadic && len(args) >= m.Arity()):
			args = append(args, current)
			current = nil
		default:
			current = append(current, t)
		}
	}
}

func (p *Preprocessor) finishArgs(m *source.Macro, args [][]token.Token) ([]*source.Argument, bool) {
	if m.Arity() == 0 && !m.Variadic && len(args) == 1 && len(args[0]) == 0 {
		args = nil
	}

	if m.Variadic {
		switch {
		case len(args) == m.Arity():
			// No comma ever started the variadic portion: it's empty.
			args = append(args, nil)
		case len(args) == m.Arity()+1:
			// ok: the trailing element is the (possibly empty) __VA_ARGS__.
		default:
			p.errorf("directive:macro", "too few arguments for macro %q", m.Name)
			return nil, false
		}
	} else if len(args) != m.Arity() {
		p.errorf("directive:macro", "argument count mismatch invoking macro %q: expected %d, got %d",
			m.Name, m.Arity(), len(args))
		return nil, false
	}

	out := make([]*source.Argument, len(args))
	for i, raw := range args {
		out[i] = source.NewArgument(raw)
	}
	return out, true
}

// expandArgument pre-expands a macro argument: a non-auto-pop
// FixedTokenSource is pushed over arg's raw tokens and drained through the
// ordinary expansion path, so nested macros mentioned in the argument are
// expanded before the caller's M_ARG substitution uses it.
func (p *Preprocessor) expandArgument(arg *source.Argument) {
	savedTop := p.top
	fts := source.NewFixedTokenSource(savedTop, false, "<macro argument>", arg.Raw())
	p.top = fts

	var out []token.Token
	for {
		t := p.nextExpanded()
		if t.Kind == token.EOF {
			break
		}
		out = append(out, t)
	}
	p.top = savedTop
	arg.SetExpanded(out)
}

// pushBuiltinExpansion synthesizes the single-token FixedTokenSource for
// __LINE__/__FILE__/__COUNTER__.
func (p *Preprocessor) pushBuiltinExpansion(m *source.Macro, ident token.Token) {
	var t token.Token
	switch m.Name {
	case "__LINE__":
		// Report the enclosing file's current (possibly #line-overridden)
		// line, not the raw token's physical line: a macro body referencing
		// __LINE__ has no line of its own (MacroTokenSource.Line() is -1).
		// The fallback converts the token's 0-indexed line to a 1-based one.
		line := int64(ident.Line) + 1
		if fs := p.currentFileSource(); fs != nil {
			line = int64(fs.Line())
		}
		t = token.NewSynthetic(token.INTEGER, strconv.FormatInt(line, 10))
		t.Value = token.Value{Int: line}
	case "__FILE__":
		name := "<unknown>"
		if fs := p.currentFileSource(); fs != nil {
			name = fs.Path()
		} else if p.top != nil {
			name = p.top.Name()
		}
		t = token.NewSynthetic(token.STRING, `"`+source.EscapePath(name)+`"`)
		t.Value = token.Value{Str: name}
	case "__COUNTER__":
		v := p.counter
		p.counter++
		t = token.NewSynthetic(token.INTEGER, strconv.FormatInt(v, 10))
		t.Value = token.Value{Int: v}
	}
	p.pushSource(source.NewFixedTokenSource(p.top, true, m.Name, []token.Token{t}))
}

func (p *Preprocessor) macroDiagFunc() func(string) {
	return func(msg string) { p.warnf("macro", "%s", msg) }
}
