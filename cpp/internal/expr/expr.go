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

// Package expr implements the #if/#elif constant-expression evaluator: a
// precedence-climbing parser over an already-expanded token stream,
// generalized from the boolean-only defined()/platform-macro AST of
// gazelle_cc's language/internal/cc/parser/expr.go (Expr/Value/Eval/Resolve)
// into a full signed-64-bit C constant-expression grammar.
package expr

import "github.com/EngFlow/cpp/token"

// Reader supplies the already-macro-expanded, non-whitespace token stream an
// expression is parsed from, plus the handful of operations that need
// driver-level state (the macro table, feature set, include resolution)
// rather than pure syntax.
type Reader interface {
	// Next returns the next token. The identifier "defined" must not have
	// been macro-expanded by the caller: the primitive token stream excepts
	// it from expansion so it can be recognized here.
	Next() token.Token
	// Unread pushes t back so the next Next() returns it again. The parser
	// never needs more than one token of pushback.
	Unread(t token.Token)

	Defined(name string) bool
	HasInclude(spec string, quoted bool, isNext bool) bool
	HasFeature(name string) bool
	HasAttribute(name string) bool

	// WarnUndefinedIdent is called for any identifier in the expression that
	// isn't one of the above special forms: any other identifier evaluates to
	// 0, optionally warning under the UNDEF flag.
	WarnUndefinedIdent(name string)
	// Errorf reports a non-fatal evaluation error: missing ')', division by
	// zero, bad operator token. Evaluation continues with a result of 0 for
	// the offending (sub)expression.
	Errorf(format string, args ...any)
}

// Eval parses and evaluates one constant-expression, stopping at the first
// token Next() returns that cannot continue the expression (the caller is
// expected to have arranged for the stream to end at NL/EOF).
func Eval(r Reader) int64 {
	p := &parser{r: r}
	return p.parseExpr()
}

type parser struct {
	r        Reader
	unread   *token.Token
	hasUnread bool
}

func (p *parser) next() token.Token {
	if p.hasUnread {
		p.hasUnread = false
		t := *p.unread
		return t
	}
	return p.r.Next()
}

func (p *parser) peek() token.Token {
	t := p.next()
	p.pushback(t)
	return t
}

func (p *parser) pushback(t token.Token) {
	p.unread = &t
	p.hasUnread = true
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// precedence maps a binary operator's Kind to its precedence (higher binds
// tighter); the zero value means "not a binary operator".
func precedence(k token.Kind) (int, bool) {
	switch k {
	case token.Kind('/'), token.Kind('%'), token.Kind('*'):
		return 11, true
	case token.Kind('+'), token.Kind('-'):
		return 10, true
	case token.SHL, token.SHR:
		return 9, true
	case token.Kind('<'), token.Kind('>'), token.LE, token.GE:
		return 8, true
	case token.EQ_EQ, token.NE:
		return 7, true
	case token.Kind('&'):
		return 6, true
	case token.Kind('^'):
		return 5, true
	case token.Kind('|'):
		return 4, true
	case token.AMP_AMP:
		return 3, true
	case token.PIPE_PIPE:
		return 2, true
	default:
		return 0, false
	}
}

func (p *parser) parseExpr() int64 {
	return p.parseTernary()
}

// parseTernary handles "?:" (precedence 1, right-associative), consuming
// the explicit ":".
func (p *parser) parseTernary() int64 {
	cond := p.parseBinary(2)
	t := p.next()
	if t.Kind != token.Kind('?') {
		p.pushback(t)
		return cond
	}
	thenVal := p.parseExpr()
	colon := p.next()
	if colon.Kind != token.Kind(':') {
		p.r.Errorf("expected ':' in '?:' expression, got %s", colon.Kind)
		p.pushback(colon)
	}
	elseVal := p.parseExpr()
	if cond != 0 {
		return thenVal
	}
	return elseVal
}

// parseBinary implements precedence climbing for every left-associative
// binary operator at or above minPrec.
func (p *parser) parseBinary(minPrec int) int64 {
	left := p.parseUnary()
	for {
		t := p.next()
		prec, isBinary := precedence(t.Kind)
		if !isBinary || prec < minPrec {
			p.pushback(t)
			return left
		}
		right := p.parseBinary(prec + 1)
		left = p.apply(t.Kind, left, right)
	}
}

func (p *parser) apply(op token.Kind, l, r int64) int64 {
	switch op {
	case token.Kind('/'):
		if r == 0 {
			p.r.Errorf("division by zero")
			return 0
		}
		return l / r
	case token.Kind('%'):
		if r == 0 {
			p.r.Errorf("modulus by zero")
			return 0
		}
		return l % r
	case token.Kind('*'):
		return l * r
	case token.Kind('+'):
		return l + r
	case token.Kind('-'):
		return l - r
	case token.SHL:
		return l << uint(r)
	case token.SHR:
		return l >> uint(r)
	case token.Kind('<'):
		return boolToInt(l < r)
	case token.Kind('>'):
		return boolToInt(l > r)
	case token.LE:
		return boolToInt(l <= r)
	case token.GE:
		return boolToInt(l >= r)
	case token.EQ_EQ:
		return boolToInt(l == r)
	case token.NE:
		return boolToInt(l != r)
	case token.Kind('&'):
		return l & r
	case token.Kind('^'):
		return l ^ r
	case token.Kind('|'):
		return l | r
	case token.AMP_AMP:
		return boolToInt(l != 0 && r != 0)
	case token.PIPE_PIPE:
		return boolToInt(l != 0 || r != 0)
	default:
		p.r.Errorf("unknown operator %s", op)
		return 0
	}
}

// parseUnary handles prefix ~ ! - + (all at the top precedence).
func (p *parser) parseUnary() int64 {
	t := p.next()
	switch t.Kind {
	case token.Kind('~'):
		return ^p.parseUnary()
	case token.Kind('!'):
		return boolToInt(p.parseUnary() == 0)
	case token.Kind('-'):
		return -p.parseUnary()
	case token.Kind('+'):
		return p.parseUnary()
	default:
		p.pushback(t)
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() int64 {
	t := p.next()
	switch t.Kind {
	case token.Kind('('):
		v := p.parseExpr()
		closing := p.next()
		if closing.Kind != token.Kind(')') {
			p.r.Errorf("expected ')', got %s", closing.Kind)
			p.pushback(closing)
		}
		return v
	case token.INTEGER, token.CHAR:
		return t.Value.Int
	case token.IDENT:
		return p.parseIdentPrimary(t.Text)
	default:
		p.r.Errorf("unexpected token %q in expression", t.Text)
		return 0
	}
}

func (p *parser) parseIdentPrimary(name string) int64 {
	switch name {
	case "defined":
		return boolToInt(p.parseDefined())
	case "__has_include":
		return boolToInt(p.parseHasInclude(false))
	case "__has_include_next":
		return boolToInt(p.parseHasInclude(true))
	case "__has_feature":
		return boolToInt(p.parseParenIdent(p.r.HasFeature))
	case "__has_attribute":
		return boolToInt(p.parseParenIdent(p.r.HasAttribute))
	default:
		p.r.WarnUndefinedIdent(name)
		return 0
	}
}

// parseDefined consumes "defined(NAME)" or "defined NAME".
func (p *parser) parseDefined() bool {
	t := p.next()
	paren := t.Kind == token.Kind('(')
	if paren {
		t = p.next()
	}
	if t.Kind != token.IDENT {
		p.r.Errorf("expected identifier after 'defined', got %q", t.Text)
		return false
	}
	name := t.Text
	if paren {
		closing := p.next()
		if closing.Kind != token.Kind(')') {
			p.r.Errorf("expected ')' after 'defined(%s'", name)
			p.pushback(closing)
		}
	}
	return p.r.Defined(name)
}

// parseParenIdent consumes "NAME(IDENT)" and calls fn with IDENT's text,
// used for __has_feature/__has_attribute.
func (p *parser) parseParenIdent(fn func(string) bool) bool {
	if open := p.next(); open.Kind != token.Kind('(') {
		p.r.Errorf("expected '(' after built-in, got %q", open.Text)
		p.pushback(open)
		return false
	}
	ident := p.next()
	if ident.Kind != token.IDENT {
		p.r.Errorf("expected identifier, got %q", ident.Text)
		return false
	}
	if closing := p.next(); closing.Kind != token.Kind(')') {
		p.r.Errorf("expected ')', got %q", closing.Text)
		p.pushback(closing)
	}
	return fn(ident.Text)
}

// parseHasInclude consumes "__has_include(<spec>)" / "__has_include(\"spec\")"
// (and the *_next variant), reconstructing the header-name text from raw
// token spellings since the operand is not lexed in header-name mode here.
func (p *parser) parseHasInclude(isNext bool) bool {
	if open := p.next(); open.Kind != token.Kind('(') {
		p.r.Errorf("expected '(' after __has_include, got %q", open.Text)
		p.pushback(open)
		return false
	}

	first := p.next()
	if first.Kind == token.STRING || first.Kind == token.HEADER {
		spec := first.Value.Str
		quoted := first.Kind == token.STRING
		if closing := p.next(); closing.Kind != token.Kind(')') {
			p.r.Errorf("expected ')' after __has_include operand")
			p.pushback(closing)
		}
		return p.r.HasInclude(spec, quoted, isNext)
	}

	if first.Kind != token.Kind('<') {
		p.r.Errorf("expected header-name in __has_include, got %q", first.Text)
		return false
	}
	var spec string
	for {
		t := p.next()
		if t.Kind == token.Kind('>') || t.Kind == token.EOF {
			break
		}
		spec += t.Text
	}
	if closing := p.next(); closing.Kind != token.Kind(')') {
		p.r.Errorf("expected ')' after __has_include operand")
		p.pushback(closing)
	}
	return p.r.HasInclude(spec, false, isNext)
}
