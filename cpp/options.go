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

import "github.com/EngFlow/cpp/token"

// Feature is a bitset of optional lexer/driver behaviours. The
// closed-constant-set-compared-by-bitmask shape mirrors gazelle_cc's own
// small enum-like config fields (groupingMode/groupsCycleHandlingMode in
// language/cc/config.go).
type Feature uint32

const (
	DIGRAPHS Feature = 1 << iota
	LINEMARKERS
	INCLUDENEXT
	KEEPCOMMENTS
	KEEPALLCOMMENTS
	DEBUG
	CSYNTAX
)

// Has reports whether every bit in f is set.
func (fs Feature) Has(f Feature) bool { return fs&f == f }

// Warning is a bitset of diagnostic-promotion/extra-warning toggles.
type Warning uint32

const (
	// ERROR promotes every warning call to an error call.
	ERROR Warning = 1 << iota
	ENDIF_LABELS
	UNDEF
)

// Has reports whether every bit in w is set.
func (ws Warning) Has(w Warning) bool { return ws&w == w }

// Option configures a Preprocessor at construction, following the teacher's
// functional-options pattern used for cppConfig.
type Option func(*config)

type config struct {
	features Feature
	warnings Warning

	quotePaths     []string
	systemPaths    []string
	frameworkPaths []string

	pragmaHandler func(p *Preprocessor, name string, rest []token.Token)
}

// WithFeatures enables the given Feature bits in addition to any already set.
func WithFeatures(f Feature) Option {
	return func(c *config) { c.features |= f }
}

// WithWarnings enables the given Warning bits in addition to any already set.
func WithWarnings(w Warning) Option {
	return func(c *config) { c.warnings |= w }
}

// WithQuoteIncludePaths sets the directories searched for a quoted
// #include "..." after the including file's own directory.
func WithQuoteIncludePaths(paths ...string) Option {
	return func(c *config) { c.quotePaths = append(c.quotePaths, paths...) }
}

// WithSystemIncludePaths sets the directories searched for #include <...>
// and, after quote paths are exhausted, for #include "...".
func WithSystemIncludePaths(paths ...string) Option {
	return func(c *config) { c.systemPaths = append(c.systemPaths, paths...) }
}

// WithFrameworkPaths sets the directories searched for Objective-C style
// #include <Foo/Bar.h> framework headers.
func WithFrameworkPaths(paths ...string) Option {
	return func(c *config) { c.frameworkPaths = append(c.frameworkPaths, paths...) }
}

// WithPragmaHandler overrides the default "warn Unknown pragma" hook.
func WithPragmaHandler(h func(p *Preprocessor, name string, rest []token.Token)) Option {
	return func(c *config) { c.pragmaHandler = h }
}
