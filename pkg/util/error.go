// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"fmt"
	"strings"

	"github.com/flightops/groundsim/pkg/log"
)

// ErrorLogger accumulates validation errors while tracking a path
// (pushed/popped by callers) so each message can report where in a
// nested structure (layout nodes, edges, parameter sections) it
// occurred. It lets LayoutInvalid/ParamInvalid report every problem
// found in one pass instead of stopping at the first one.
type ErrorLogger struct {
	hierarchy []string
	errors    []string
}

// Push records that validation has descended into the named element.
func (e *ErrorLogger) Push(s string) {
	e.hierarchy = append(e.hierarchy, s)
}

// Pop undoes the last Push.
func (e *ErrorLogger) Pop() {
	e.hierarchy = e.hierarchy[:len(e.hierarchy)-1]
}

// ErrorString records a formatted error message at the current path.
func (e *ErrorLogger) ErrorString(s string, args ...interface{}) {
	e.errors = append(e.errors, e.prefix()+fmt.Sprintf(s, args...))
}

// Error records an existing error value at the current path.
func (e *ErrorLogger) Error(err error) {
	e.errors = append(e.errors, e.prefix()+err.Error())
}

func (e *ErrorLogger) prefix() string {
	if len(e.hierarchy) == 0 {
		return ""
	}
	return strings.Join(e.hierarchy, " / ") + ": "
}

// HaveErrors reports whether any errors have been recorded.
func (e *ErrorLogger) HaveErrors() bool {
	return e != nil && len(e.errors) > 0
}

// Errors returns the accumulated error messages in the order recorded.
func (e *ErrorLogger) Errors() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.errors...)
}

// PrintErrors logs each accumulated error at Error level.
func (e *ErrorLogger) PrintErrors(lg *log.Logger) {
	if lg == nil {
		return
	}
	for _, err := range e.errors {
		lg.Errorf("%s", err)
	}
}

// String joins the accumulated errors with newlines.
func (e *ErrorLogger) String() string {
	return strings.Join(e.errors, "\n")
}

// CurrentDepth returns how many elements are on the hierarchy stack;
// callers use it to assert Push/Pop calls are balanced.
func (e *ErrorLogger) CurrentDepth() int {
	if e == nil {
		return 0
	}
	return len(e.hierarchy)
}
