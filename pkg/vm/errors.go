// Package vm - error handling with stack traces
package vm

import (
	"fmt"
	"strings"
)

// StackFrame captures one active call at the moment a runtime error was
// raised: which function was executing and at what source line.
type StackFrame struct {
	Name       string // function name, or "" for top-level code
	SourceLine int    // source line the faulting instruction maps to
}

// RuntimeError is what a failed Interpret call reports: the message
// reported at the point of failure, plus the call stack active at that
// moment, innermost frame first.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

// Error formats the message followed by one "[line L] in <name>" line per
// active frame, matching the crash report crux prints to stderr.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range e.StackTrace {
		b.WriteByte('\n')
		if f.Name == "" {
			fmt.Fprintf(&b, "[line %d] in script", f.SourceLine)
		} else {
			fmt.Fprintf(&b, "[line %d] in %s()", f.SourceLine, f.Name)
		}
	}
	return b.String()
}

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}
