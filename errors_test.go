// errors_test.go
package weft

import (
	"errors"
	"strings"
	"testing"
)

func mustContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Fatalf("expected output to contain %q\n--- output ---\n%s", sub, s)
	}
}

func Test_ErrorWrap_Parse_ShowsCaretAndContext(t *testing.T) {
	src := `let x = 1
f(1`
	_, errs := Parse(src)
	if errs == nil {
		t.Fatalf("expected parse error, got nil")
	}
	msg := WrapErrorWithSource(errs, "", src).Error()

	mustContain(t, msg, "PARSE ERROR at 2:4")
	mustContain(t, msg, "expected ')' after arguments")
	mustContain(t, msg, "   1 | let x = 1")
	mustContain(t, msg, "   2 | f(1")
	mustContain(t, msg, "     |    ^")
}

func Test_ErrorWrap_Runtime_ShowsSurroundingLines(t *testing.T) {
	src := "let a = 1\nnosuch\nlet b = 2"
	_, err := Interpret(src)
	if err == nil {
		t.Fatalf("expected runtime error, got nil")
	}
	msg := WrapErrorWithSource(err, "script.weft", src).Error()

	mustContain(t, msg, "RUNTIME ERROR in script.weft at 2:1")
	mustContain(t, msg, "undefined variable: nosuch")
	mustContain(t, msg, "   1 | let a = 1")
	mustContain(t, msg, "   2 | nosuch")
	mustContain(t, msg, "     | ^")
	mustContain(t, msg, "   3 | let b = 2")
}

func Test_ErrorWrap_List_OneSnippetPerDiagnostic(t *testing.T) {
	src := "let = 1\nlet = 2"
	_, errs := Parse(src)
	if errs == nil {
		t.Fatalf("expected parse errors, got nil")
	}
	msg := WrapErrorWithSource(errs, "", src).Error()

	if n := strings.Count(msg, "PARSE ERROR at"); n != 2 {
		t.Fatalf("want one snippet per diagnostic, got %d\n--- output ---\n%s", n, msg)
	}
	mustContain(t, msg, "PARSE ERROR at 1:5")
	mustContain(t, msg, "PARSE ERROR at 2:5")
}

func Test_ErrorWrap_UnknownErrorsPassThrough(t *testing.T) {
	plain := errors.New("something else")
	if got := WrapErrorWithSource(plain, "x", "src"); got != plain {
		t.Fatalf("unrecognized errors must pass through unchanged, got %v", got)
	}
}

func Test_ErrorWrap_OutOfRangePositionsClamp(t *testing.T) {
	// A stale position must never make rendering fail.
	err := &RuntimeError{Msg: "boom", Line: 99, Col: 50}
	msg := WrapErrorWithSource(err, "", "only line").Error()
	mustContain(t, msg, "boom")
	mustContain(t, msg, "   1 | only line")
}

func Test_Errors_RuntimePositionFollowsFailingNode(t *testing.T) {
	// The division is on line 2, so the error must point there.
	src := "let d = 0\n10 / d"
	_, err := Interpret(src)
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if re.Line != 2 {
		t.Fatalf("error should report line 2, got %d:%d", re.Line, re.Col)
	}
	mustContain(t, re.Error(), "RUNTIME ERROR at 2:")
	mustContain(t, re.Error(), "division by zero")
}
