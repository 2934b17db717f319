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

import "github.com/EngFlow/cpp/token"

// Macro is a stored macro definition: a name, an optional parameter list
// (its presence marks the macro function-like), a variadic flag, and a
// replacement list that may contain M_ARG/M_STRING/M_PASTE markers
// produced by the define-directive parser.
type Macro struct {
	Name         string
	FunctionLike bool
	Params       []string // does not include the synthetic "__VA_ARGS__" slot
	Variadic     bool
	Body         []token.Token

	// Builtin is set for __LINE__/__FILE__/__COUNTER__: these carry no Body
	// and are expanded specially by the driver.
	Builtin bool
}

// Arity returns the number of real parameters, not counting a variadic
// trailing __VA_ARGS__ slot.
func (m *Macro) Arity() int { return len(m.Params) }

// Argument is one actual-parameter token list captured at a macro call
// site: the raw tokens plus a lazily computed, cached expansion.
type Argument struct {
	raw      []token.Token
	expanded []token.Token
	cached   bool
}

// NewArgument wraps the raw tokens captured between delimiting commas/parens.
func NewArgument(raw []token.Token) *Argument {
	return &Argument{raw: raw}
}

// Raw returns the argument's unexpanded tokens, the form stringification
// (M_STRING) must use.
func (a *Argument) Raw() []token.Token { return a.raw }

// Expanded returns the cached expansion. Call SetExpanded before relying on
// this; it returns nil until then.
func (a *Argument) Expanded() []token.Token { return a.expanded }

// Cached reports whether SetExpanded has been called yet.
func (a *Argument) Cached() bool { return a.cached }

// SetExpanded installs the pre-expanded token list. Every M_ARG(i)
// reference during the ensuing replacement-list walk reuses this same
// slice.
func (a *Argument) SetExpanded(tokens []token.Token) {
	a.expanded = tokens
	a.cached = true
}

// RawText concatenates an argument's raw token text verbatim, skipping
// whitespace/comments, for use as one operand of a "##" token paste.
func RawText(tokens []token.Token) string {
	n := 0
	for _, t := range tokens {
		if !isLayout(t.Kind) {
			n += len(t.Text)
		}
	}
	buf := make([]byte, 0, n)
	for _, t := range tokens {
		if isLayout(t.Kind) {
			continue
		}
		buf = append(buf, t.Text...)
	}
	return string(buf)
}
