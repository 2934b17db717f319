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

// Package cpp is the public preprocessor driver: it owns the macro table,
// the conditional state stack, and the source stack, and exposes a
// pull-based Token() entry point. Its shape — a functional-options
// constructor building an immutable config plus small bitset fields toggled
// like gazelle_cc's groupingMode/groupsCycleHandlingMode — follows that
// repo's own conventions (language/cc/config.go).
package cpp

import (
	"fmt"
	"io"
	"log"

	"github.com/EngFlow/cpp/internal/lexer"
	"github.com/EngFlow/cpp/internal/source"
	"github.com/EngFlow/cpp/listener"
	"github.com/EngFlow/cpp/token"
	"github.com/EngFlow/cpp/vfs"
)

// Preprocessor is the top-level streaming engine.
type Preprocessor struct {
	vfs vfs.VirtualFileSystem
	lst listener.Listener
	cfg config

	macros map[string]*source.Macro
	cond   *source.CondStack

	top source.Source

	pending  []pendingInput
	imported map[string]bool

	counter int64

	// emitQueue holds tokens (line markers) queued ahead of the normal
	// source-stack pull.
	emitQueue []token.Token
	// rawPushback is the driver-level one-or-more-token lookahead buffer
	// (e.g. peeking past whitespace/comments/newlines for a call's opening
	// paren).
	rawPushback []token.Token

	closed bool
}

type pendingInput struct {
	path string
	lex  *lexer.LexerSource
}

// New builds a Preprocessor reading files through vfsys and reporting
// diagnostics through lst. lst may be nil: any warning or error then
// terminates preprocessing via panic instead of being reported.
func New(vfsys vfs.VirtualFileSystem, lst listener.Listener, opts ...Option) *Preprocessor {
	cfg := config{pragmaHandler: defaultPragmaHandler}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Preprocessor{
		vfs: vfsys,
		lst: lst,
		cfg: cfg,
		macros: map[string]*source.Macro{
			"__LINE__":    {Name: "__LINE__", Builtin: true},
			"__FILE__":    {Name: "__FILE__", Builtin: true},
			"__COUNTER__": {Name: "__COUNTER__", Builtin: true},
		},
		cond:     source.NewCondStack(),
		imported: map[string]bool{},
	}
}

// AddInput queues name/r as the next top-level input once the current
// source stack is exhausted.
func (p *Preprocessor) AddInput(name string, r io.Reader) {
	p.pending = append(p.pending, pendingInput{path: name, lex: lexer.NewSource(name, r)})
}

// AddFile resolves path through the configured VirtualFileSystem and queues
// it as the next top-level input.
func (p *Preprocessor) AddFile(path string) error {
	f, err := p.vfs.GetFile("", path)
	if err != nil {
		return err
	}
	lx, err := f.OpenAsSource()
	if err != nil {
		return err
	}
	p.pending = append(p.pending, pendingInput{path: f.Path(), lex: lx})
	return nil
}

// Token returns the next preprocessing token. EOF is returned repeatedly
// once every pending input is exhausted.
func (p *Preprocessor) Token() token.Token {
	for {
		if n := len(p.emitQueue); n > 0 {
			t := p.emitQueue[0]
			p.emitQueue = p.emitQueue[1:]
			return t
		}

		if p.top == nil {
			if !p.advanceInput() {
				return token.Eof
			}
			continue
		}

		if !p.cond.Active() {
			t, swallowed := p.inactiveStep()
			if swallowed {
				continue
			}
			return t
		}

		t := p.nextRaw()
		switch {
		case t.Kind == token.EOF:
			p.popSource()
			continue
		case t.Kind == token.IDENT:
			if p.expandIdent(t) {
				continue
			}
			return t
		case t.Kind == token.HASH && atLineStart(t):
			p.dispatchActiveDirective()
			continue
		case !p.keepsComments() && (t.Kind == token.CCOMMENT || t.Kind == token.CPPCOMMENT):
			continue
		case t.Kind == token.INVALID:
			// Lex-level errors always surface as INVALID tokens; under
			// CSYNTAX they are additionally routed through the listener.
			if p.cfg.features.Has(CSYNTAX) {
				p.warnf("lex", "%s: %q", t.Value.Reason, t.Text)
			}
			return t
		default:
			return t
		}
	}
}

// keepsComments reports whether comment tokens should be forwarded on the
// active path: either KEEPCOMMENTS or its stronger sibling KEEPALLCOMMENTS
// enables this.
func (p *Preprocessor) keepsComments() bool {
	return p.cfg.features.Has(KEEPCOMMENTS) || p.cfg.features.Has(KEEPALLCOMMENTS)
}

// atLineStart reports whether t is a HASH token that began a logical line
// (the lexer only ever emits HASH in that position).
func atLineStart(t token.Token) bool { return t.Kind == token.HASH }

// Close releases every source on the stack plus every unconsumed pending
// input, top-to-bottom.
func (p *Preprocessor) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	for p.top != nil {
		cur := p.top
		p.top = cur.Parent()
		_ = cur.Close()
	}
	for _, in := range p.pending {
		_ = in.lex.Close()
	}
	p.pending = nil
	return nil
}

// advanceInput dequeues the next pending top-level input, pushing it as a
// file source and emitting a "new file" line marker if enabled.
func (p *Preprocessor) advanceInput() bool {
	if len(p.pending) == 0 {
		return false
	}
	in := p.pending[0]
	p.pending = p.pending[1:]
	in.lex.SetDigraphs(p.cfg.features.Has(DIGRAPHS))
	fs := source.NewLexerFileSource(nil, true, in.path, in.lex)
	p.pushFileSource(fs, flagNewFile)
	return true
}

// nextRaw returns the next token straight from the current source stack,
// without consulting the macro table, cascading through auto-pop sources on
// EOF: an auto-pop source that reaches EOF is popped and the stack below it
// is consulted in turn.
func (p *Preprocessor) nextRaw() token.Token {
	if n := len(p.rawPushback); n > 0 {
		t := p.rawPushback[n-1]
		p.rawPushback = p.rawPushback[:n-1]
		return t
	}
	for {
		if p.top == nil {
			return token.Eof
		}
		t := p.top.Token()
		if t.Kind != token.EOF {
			return t
		}
		if !p.top.AutoPop() {
			return token.Eof
		}
		p.popSource()
	}
}

// unreadRaw pushes t back for the next nextRaw call.
func (p *Preprocessor) unreadRaw(t token.Token) {
	p.rawPushback = append(p.rawPushback, t)
}

// nextRawNonLayout skips WHITESPACE/comment tokens, returning the next
// significant one.
func (p *Preprocessor) nextRawNonLayout() token.Token {
	for {
		t := p.nextRaw()
		switch t.Kind {
		case token.WHITESPACE, token.CCOMMENT, token.CPPCOMMENT:
			continue
		default:
			return t
		}
	}
}

// nextExpanded is the macro-expanding, whitespace-opaque primitive used to
// build the constant-expression token stream: it pulls from nextRaw,
// expanding any identifier that resolves to a macro not already on the
// recursion-guard stack.
func (p *Preprocessor) nextExpanded() token.Token {
	for {
		t := p.nextRaw()
		if t.Kind != token.IDENT {
			return t
		}
		if !p.expandIdent(t) {
			return t
		}
	}
}

// isExpanding implements the recursion guard: true if a MacroTokenSource for
// name is already on the active source chain. Argument pre-expansion runs
// against a FixedTokenSource pushed before the invoking macro's own
// MacroTokenSource exists, so a macro name mentioned inside one of its own
// arguments is never blocked by this walk — that exception falls out of the
// ordering rather than needing a separate flag.
func (p *Preprocessor) isExpanding(name string) bool {
	for s := p.top; s != nil; s = s.Parent() {
		if mts, ok := s.(*source.MacroTokenSource); ok && mts.Macro().Name == name {
			return true
		}
	}
	return false
}

// pushSource installs s as the new stack top, notifying the listener of a
// push (file sources) or suspend (macro/fixed playback sources).
func (p *Preprocessor) pushSource(s source.Source) {
	p.debugf("push source %q (autopop=%v)", s.Name(), s.AutoPop())
	p.top = s
	if p.lst == nil {
		return
	}
	if _, isFile := s.(*source.LexerFileSource); isFile {
		p.lst.HandleSourceChange(s.Name(), listener.EventPush)
	} else {
		p.lst.HandleSourceChange(s.Name(), listener.EventSuspend)
	}
}

// popSource pops the current stack top, closing it and notifying the
// listener of a pop (file sources) or resume (macro/fixed playback sources).
// Returning to a file source after popping a file source queues a
// "return to file" line marker.
func (p *Preprocessor) popSource() {
	cur := p.top
	if cur == nil {
		return
	}
	p.top = cur.Parent()
	_, wasFile := cur.(*source.LexerFileSource)
	_ = cur.Close()
	if p.lst != nil {
		if wasFile {
			p.lst.HandleSourceChange(cur.Name(), listener.EventPop)
		} else {
			p.lst.HandleSourceChange(cur.Name(), listener.EventResume)
		}
	}
	if wasFile {
		if fs, ok := p.top.(*source.LexerFileSource); ok {
			p.queueLineMarker(fs, flagReturnToFile)
		}
	}
}

// debugf traces driver activity under the DEBUG feature, following
// gazelle_cc's plain log.Printf-for-diagnosable-state style rather than
// reaching for a structured-logging library that repo itself never imports.
func (p *Preprocessor) debugf(format string, args ...any) {
	if p.cfg.features.Has(DEBUG) {
		log.Printf("cpp: "+format, args...)
	}
}

// diag builds a Diagnostic anchored at the current source position.
func (p *Preprocessor) diag(sender, msg string) listener.Diagnostic {
	name, line, col := "<no source>", -1, -1
	if p.top != nil {
		name, line, col = p.top.Name(), p.top.Line(), p.top.Column()
	}
	return listener.Diagnostic{Source: name, Line: line, Column: col, Sender: sender, Message: msg}
}

// warnf reports a non-fatal diagnostic. With no listener registered this
// panics instead, terminating preprocessing.
func (p *Preprocessor) warnf(sender, format string, args ...any) {
	d := p.diag(sender, fmt.Sprintf(format, args...))
	if p.lst == nil {
		panic(&d)
	}
	if p.cfg.warnings.Has(ERROR) {
		p.lst.HandleError(d)
		return
	}
	p.lst.HandleWarning(d)
}

// errorf reports a fatal-to-the-construct diagnostic: the enclosing
// directive/expression/invocation is abandoned but preprocessing continues.
func (p *Preprocessor) errorf(sender, format string, args ...any) {
	d := p.diag(sender, fmt.Sprintf(format, args...))
	if p.lst == nil {
		panic(&d)
	}
	p.lst.HandleError(d)
}
