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

// CondState is one entry of the conditional stack: parent-active records
// whether an enclosing #if branch is already dead, active whether the
// current branch's own condition held, saw-else whether a #else has
// already been consumed at this level.
type CondState struct {
	ParentActive bool
	Active       bool
	SawElse      bool

	// matched tracks whether any branch at this level (the #if/#ifdef
	// itself, or an earlier #elif) has already been taken, so a later
	// #elif/#else at the same level stays inactive even if its own
	// condition would hold. Required to implement #elif chaining correctly.
	matched bool
}

// CondStack is the nested #if/#ifdef/#ifndef stack, named and shaped after
// gazelle_cc's parser.conditionStack (parser.go: pushCondition/popCondition),
// generalised from its static DNF bookkeeping to live active/inactive state.
type CondStack struct {
	stack []CondState
}

// NewCondStack returns a stack with its required floor entry: parent-active
// = active = true.
func NewCondStack() *CondStack {
	return &CondStack{stack: []CondState{{ParentActive: true, Active: true, matched: true}}}
}

// Top returns the innermost conditional state.
func (c *CondStack) Top() CondState { return c.stack[len(c.stack)-1] }

// Active reports whether the current position is live, driving whether
// tokens are forwarded or swallowed.
func (c *CondStack) Active() bool { return c.Top().Active }

// Depth is the number of stack entries: the floor entry plus one per
// unmatched #if/#ifdef/#ifndef level, so it is always ≥ 1 and equals 1 when
// no conditional is open.
func (c *CondStack) Depth() int { return len(c.stack) }

// Push enters a new #if/#ifdef/#ifndef level whose own condition evaluated
// to cond.
func (c *CondStack) Push(cond bool) {
	parentActive := c.Top().ParentActive && c.Top().Active
	active := parentActive && cond
	c.stack = append(c.stack, CondState{ParentActive: parentActive, Active: active, matched: active})
}

// Pop leaves the current level for #endif. ok is false if the stack would
// drop below its required floor entry.
func (c *CondStack) Pop() (ok bool) {
	if len(c.stack) <= 1 {
		return false
	}
	c.stack = c.stack[:len(c.stack)-1]
	return true
}

// Elif evaluates a #elif's condition against the current level. ok is false
// if a #else was already seen at this level: the same stray-directive rule
// that applies to a repeated #else applies to a #elif following #else.
func (c *CondStack) Elif(cond bool) (ok bool) {
	top := &c.stack[len(c.stack)-1]
	if top.SawElse {
		return false
	}
	switch {
	case !top.ParentActive:
		top.Active = false
	case top.matched:
		top.Active = false
	default:
		top.Active = cond
		if cond {
			top.matched = true
		}
	}
	return true
}

// Else flips the current level's active bit for #else. ok is false if one
// was already seen at this level.
func (c *CondStack) Else() (ok bool) {
	top := &c.stack[len(c.stack)-1]
	if top.SawElse {
		return false
	}
	top.SawElse = true
	switch {
	case !top.ParentActive:
		top.Active = false
	case top.matched:
		top.Active = false
	default:
		top.Active = true
		top.matched = true
	}
	return true
}

// PushInactive pushes an always-inactive level whose #else/#elif never
// toggle liveness. The driver does not call it: a conditional met inside a
// dead branch goes through Push, which already yields an inactive level
// whose #else/#elif stay inactive because its parent is not live.
func (c *CondStack) PushInactive() {
	c.stack = append(c.stack, CondState{ParentActive: false, Active: false, matched: true})
}
