// value_test.go
package weft

import (
	"reflect"
	"testing"
)

func Test_Value_DisplayForms(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Null, "null"},
		{Bool(true), "true"},
		{Num(3), "3"},
		{Num(0.5), "0.5"},
		{Num(-2.5), "-2.5"},
		{Str("hi"), `"hi"`},
		{Arr([]Value{Num(1), Str("a"), Null}), `[1, "a", null]`},
		{BuiltinVal(&Builtin{Name: "print"}), "<builtin print>"},
		{FuncVal(&Closure{}), "<function>"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Fatalf("want %s, got %s", c.want, got)
		}
	}
}

func Test_Value_RecordDisplayKeepsInsertionOrder(t *testing.T) {
	r := NewRec()
	r.Set("b", Num(2))
	r.Set("a", Num(1))
	r.Set("b", Num(3)) // rebind keeps position
	if got := Rec(r).String(); got != "{b: 3, a: 1}" {
		t.Fatalf("want {b: 3, a: 1}, got %s", got)
	}
	if got := Rec(NewRec()).String(); got != "{}" {
		t.Fatalf("want {}, got %s", got)
	}
}

func Test_Value_QuoteStringEscapeSet(t *testing.T) {
	if got := quoteString("a\nb\tc\\d\"e"); got != `"a\nb\tc\\d\"e"` {
		t.Fatalf("wrong escaping: %s", got)
	}
	// Everything outside the escape set passes through, including unicode.
	if got := quoteString("é漢'"); got != `"é漢'"` {
		t.Fatalf("wrong escaping: %s", got)
	}
}

func Test_Value_FormatNumberShortestForm(t *testing.T) {
	cases := map[float64]string{
		3:        "3",
		0.1:      "0.1",
		-7:       "-7",
		3.14:     "3.14",
		1e6:      "1000000",
		0.000001: "0.000001",
	}
	for f, want := range cases {
		if got := formatNumber(f); got != want {
			t.Fatalf("formatNumber(%v): want %s, got %s", f, want, got)
		}
	}
}

func Test_Value_TypeNames(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Null, "null"},
		{Bool(false), "bool"},
		{Num(0), "number"},
		{Str(""), "string"},
		{Arr(nil), "array"},
		{Rec(NewRec()), "record"},
		{FuncVal(&Closure{}), "function"},
		{BuiltinVal(&Builtin{}), "builtin"},
	}
	for _, c := range cases {
		if got := c.v.TypeName(); got != c.want {
			t.Fatalf("want %s, got %s", c.want, got)
		}
	}
}

func Test_Value_EqualityIgnoresRecordKeyOrder(t *testing.T) {
	a := NewRec()
	a.Set("x", Num(1))
	a.Set("y", Num(2))
	b := NewRec()
	b.Set("y", Num(2))
	b.Set("x", Num(1))
	if !valuesEqual(Rec(a), Rec(b)) {
		t.Fatalf("records with the same entries must be equal regardless of order")
	}
	b.Set("z", Null)
	if valuesEqual(Rec(a), Rec(b)) {
		t.Fatalf("records with different key sets must not be equal")
	}
}

func Test_Value_ArticleForTypeNames(t *testing.T) {
	if got := an("array"); got != "an array" {
		t.Fatalf("got %q", got)
	}
	if got := an("number"); got != "a number" {
		t.Fatalf("got %q", got)
	}
}

// --- environments -----------------------------------------------------------

func Test_Env_LookupWalksParents(t *testing.T) {
	outer := NewEnv(nil)
	outer.Define("a", Num(1))
	inner := NewEnv(outer)
	if v, ok := inner.Get("a"); !ok || v.Data.(float64) != 1 {
		t.Fatalf("inner frame should see outer binding")
	}
	inner.Define("a", Num(2))
	if v, _ := inner.Get("a"); v.Data.(float64) != 2 {
		t.Fatalf("inner binding should shadow outer")
	}
	if v, _ := outer.Get("a"); v.Data.(float64) != 1 {
		t.Fatalf("shadowing must not disturb the outer frame")
	}
	if _, ok := outer.Get("missing"); ok {
		t.Fatalf("lookup of an unbound name must fail")
	}
}

func Test_Env_NamesNearestFirstSortedWithinFrame(t *testing.T) {
	outer := NewEnv(nil)
	outer.Define("zz", Null)
	outer.Define("aa", Null)
	inner := NewEnv(outer)
	inner.Define("mm", Null)
	inner.Define("bb", Null)
	want := []string{"bb", "mm", "aa", "zz"}
	if got := inner.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func Test_Env_NamesSkipsShadowedDuplicates(t *testing.T) {
	outer := NewEnv(nil)
	outer.Define("x", Num(1))
	inner := NewEnv(outer)
	inner.Define("x", Num(2))
	if got := inner.Names(); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("want [x], got %v", got)
	}
}

// --- suggestions ------------------------------------------------------------

func Test_Suggest_FindsTruncatedTypo(t *testing.T) {
	if got := suggest("totl", []string{"total", "len", "str"}); got != "total" {
		t.Fatalf("want total, got %q", got)
	}
}

func Test_Suggest_FindsOverlongTypo(t *testing.T) {
	// "lenn" is not a subsequence of "len", but "len" is one of "lenn".
	if got := suggest("lenn", []string{"len", "num", "type"}); got != "len" {
		t.Fatalf("want len, got %q", got)
	}
}

func Test_Suggest_ShortNamesNeverSuggest(t *testing.T) {
	if got := suggest("a", []string{"ab", "abc"}); got != "" {
		t.Fatalf("one-letter names must not suggest, got %q", got)
	}
}

func Test_Suggest_NoCandidateNoSuggestion(t *testing.T) {
	if got := suggest("zzzz", []string{"print", "len"}); got != "" {
		t.Fatalf("want no suggestion, got %q", got)
	}
}
