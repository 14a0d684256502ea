// errors.go: structured errors for every pipeline stage, plus the
// caret-snippet renderer the CLI and LSP use to show them against source.
//
// Taxonomy: lexical errors travel as ILLEGAL tokens and surface through the
// parser; parse errors accumulate into an ErrorList; runtime errors are
// fail-fast singletons; compile errors are the joined parse list. Every
// error carries a message; parse and runtime errors carry a position.
package weft

import (
	"fmt"
	"strings"
)

// ParseError is one parse-stage diagnostic at a source position.
type ParseError struct {
	Msg string
	Pos Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("PARSE ERROR at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// ErrorList is the accumulated result of a failed parse: every diagnostic
// from the recovery loop, in source order. It implements error with one
// message per line, which is also the compile-failure form.
type ErrorList []*ParseError

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// RuntimeError aborts evaluation at the failing node.
type RuntimeError struct {
	Msg  string
	Line int
	Col  int
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("RUNTIME ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

func rtErr(pos Position, format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...), Line: pos.Line, Col: pos.Column}
}

// WrapErrorWithSource returns an error whose message is a caret-annotated
// snippet of src for the recognized error types (ParseError, RuntimeError,
// and ErrorList, where each list entry gets its own snippet). Other errors
// are returned unchanged. name labels the source ("" omits the label).
func WrapErrorWithSource(err error, name, src string) error {
	switch e := err.(type) {
	case *ParseError:
		return fmt.Errorf("%s", snippet(src, "PARSE ERROR", name, e.Pos.Line, e.Pos.Column, e.Msg))
	case *RuntimeError:
		return fmt.Errorf("%s", snippet(src, "RUNTIME ERROR", name, e.Line, e.Col, e.Msg))
	case ErrorList:
		parts := make([]string, len(e))
		for i, pe := range e {
			parts[i] = snippet(src, "PARSE ERROR", name, pe.Pos.Line, pe.Pos.Column, pe.Msg)
		}
		return fmt.Errorf("%s", strings.Join(parts, "\n"))
	default:
		return err
	}
}

// snippet builds a Python-like context block with a header and a caret
// under the 1-based column. At most one line of context is shown on either
// side; out-of-range coordinates are clamped so rendering never fails.
func snippet(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
