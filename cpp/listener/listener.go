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

// Package listener defines the diagnostic-reporting collaborator: the
// preprocessor never formats or prints a message itself, it hands a
// Diagnostic to whatever Listener the caller registered.
package listener

import "fmt"

// SourceEvent names a push/pop/suspend/resume transition on the source
// stack.
type SourceEvent string

const (
	EventPush    SourceEvent = "push"
	EventPop     SourceEvent = "pop"
	EventSuspend SourceEvent = "suspend"
	EventResume  SourceEvent = "resume"
)

// Diagnostic is a single warning or error. Its shape and Error() formatting
// are modeled directly on flosch-pongo2's error.go Error type
// (Filename/Line/Column/Token/Sender/ErrorMsg), adapted to Sender naming
// ("directive:include", "lex", ...). Line/Column are those of the source on
// top of the stack when the diagnostic is raised: for a file source Line is
// 1-based and Column 0-based; macro-expansion and fixed-token playback
// sources report Line -1, and Line/Column are -1 when no source is open.
type Diagnostic struct {
	Source  string // source name, e.g. the file path
	Line    int
	Column  int
	Sender  string // e.g. "lex", "directive:define", "directive:if", "macro"
	Message string
}

func (d *Diagnostic) Error() string {
	s := "[cpp"
	if d.Sender != "" {
		s += " (" + d.Sender + ")"
	}
	if d.Source != "" {
		s += " in " + d.Source
	}
	if d.Line >= 0 {
		s += fmt.Sprintf(" | line %d col %d", d.Line, d.Column)
	}
	s += "] " + d.Message
	return s
}

// Listener receives every diagnostic and source-stack transition the driver
// produces. If a Preprocessor has no Listener registered, any call to
// HandleWarning/HandleError is instead surfaced as a panic.
type Listener interface {
	HandleWarning(d Diagnostic)
	HandleError(d Diagnostic)
	HandleSourceChange(source string, event SourceEvent)
}

// Discard is a Listener that drops every warning, error, and source-change
// notification. Useful in tests that only care about the token stream.
type Discard struct{}

func (Discard) HandleWarning(Diagnostic)              {}
func (Discard) HandleError(Diagnostic)                {}
func (Discard) HandleSourceChange(string, SourceEvent) {}

// Collector is a Listener that records every diagnostic it receives, for
// tests and for callers that want to batch-report at the end of a run.
type Collector struct {
	Warnings []Diagnostic
	Errors   []Diagnostic
}

func (c *Collector) HandleWarning(d Diagnostic) { c.Warnings = append(c.Warnings, d) }
func (c *Collector) HandleError(d Diagnostic)   { c.Errors = append(c.Errors, d) }
func (c *Collector) HandleSourceChange(string, SourceEvent) {}
