// format_test.go
package weft

import "testing"

// --- helpers ---------------------------------------------------------------

func fmtSrc(t *testing.T, src string) string {
	t.Helper()
	got, err := Format(src)
	if err != nil {
		t.Fatalf("unexpected format error: %v\nsource:\n%s", err, src)
	}
	return got
}

func wantFmt(t *testing.T, src, want string) {
	t.Helper()
	if got := fmtSrc(t, src); got != want {
		t.Fatalf("\nsource:\n%s\nwant:\n%s\ngot:\n%s", src, want, got)
	}
}

// --- normalization ----------------------------------------------------------

func Test_Format_NormalizesSpacing(t *testing.T) {
	wantFmt(t, `1+2*3`, "1 + 2 * 3\n")
	wantFmt(t, `let   x=1`, "let x = 1\n")
	wantFmt(t, `f( 1,2 )`, "f(1, 2)\n")
	wantFmt(t, `[1,2,  3]`, "[1, 2, 3]\n")
}

func Test_Format_NormalizesNumbers(t *testing.T) {
	wantFmt(t, `let x = 3.0`, "let x = 3\n")
	wantFmt(t, `let y = 0.50`, "let y = 0.5\n")
}

func Test_Format_DiscardsComments(t *testing.T) {
	wantFmt(t, "1 // note\n// whole-line note\n2", "1\n2\n")
}

func Test_Format_CollapsesBlankLines(t *testing.T) {
	wantFmt(t, "1\n\n\n2", "1\n2\n")
}

// --- parenthesization -------------------------------------------------------

func Test_Format_Parens_KeepsMeaningfulGrouping(t *testing.T) {
	wantFmt(t, `(1 + 2) * 3`, "(1 + 2) * 3\n")
	// The left side of a band re-groups on re-parse, so its parentheses stay.
	wantFmt(t, `(a - b) - c`, "(a - b) - c\n")
}

func Test_Format_Parens_DropsRedundantGrouping(t *testing.T) {
	// The grammar already groups these the same way without parentheses.
	wantFmt(t, `1 + (2 * 3)`, "1 + 2 * 3\n")
	wantFmt(t, `a - (b - c)`, "a - b - c\n")
	wantFmt(t, `(1)`, "1\n")
	wantFmt(t, `((x))`, "x\n")
}

func Test_Format_Parens_LambdaIfMatchAsOperands(t *testing.T) {
	wantFmt(t, `(fn(x) => x)(1)`, "(fn(x) => x)(1)\n")
	wantFmt(t, `1 + (if c then 2 else 3)`, "1 + (if c then 2 else 3)\n")
	wantFmt(t, `-(a + b)`, "-(a + b)\n")
	wantFmt(t, `-a`, "-a\n")
}

func Test_Format_Pipes_PreservedNotDesugared(t *testing.T) {
	wantFmt(t, `a|>f()`, "a |> f()\n")
	wantFmt(t, `a |> f() |> g()`, "a |> f() |> g()\n")
	wantFmt(t, `(a |> f()) |> g()`, "(a |> f()) |> g()\n")
}

// --- composite forms --------------------------------------------------------

func Test_Format_Records_AndArrays(t *testing.T) {
	wantFmt(t, `{a:1,"k v":2}`, "{ a: 1, \"k v\": 2 }\n")
	wantFmt(t, `{}`, "{}\n")
	wantFmt(t, `[[1],[]]`, "[[1], []]\n")
}

func Test_Format_Blocks_Indented(t *testing.T) {
	wantFmt(t, "let b = { let a = 2\na }", "let b = {\n  let a = 2\n  a\n}\n")
}

func Test_Format_Modules_Indented(t *testing.T) {
	src := "module m {\nexport let a = 1\nlet b = 2\nexport b\n}"
	want := "module m {\n  export let a = 1\n  let b = 2\n  export b\n}\n"
	wantFmt(t, src, want)
}

func Test_Format_NestedModules_IndentTwice(t *testing.T) {
	wantFmt(t, "module a {\nmodule b {\nlet x = 1\n}\n}",
		"module a {\n  module b {\n    let x = 1\n  }\n}\n")
}

func Test_Format_Match_SingleLineArms(t *testing.T) {
	wantFmt(t, `match x with {1->"one",_->2}`, "match x with { 1 -> \"one\", _ -> 2 }\n")
	wantFmt(t, `match p with {[a,1]->a,{x,y:2}->x}`,
		"match p with { [a, 1] -> a, { x, y: 2 } -> x }\n")
}

func Test_Format_Templates_BothForms(t *testing.T) {
	wantFmt(t, `"a{{x}}b"`, "\"a{{ x }}b\"\n")
	wantFmt(t, `{{1+2}}`, "{{ 1 + 2 }}\n")
	wantFmt(t, `"tab\there{{ x }}"`, "\"tab\\there{{ x }}\"\n")
}

func Test_Format_Strings_ReescapeExactly(t *testing.T) {
	wantFmt(t, `"say \"hi\"\n"`, "\"say \\\"hi\\\"\\n\"\n")
}

func Test_Format_DeclarativeStatements(t *testing.T) {
	wantFmt(t, "type Point = { x: num, y: num }", "type Point = { x: num, y: num }\n")
	wantFmt(t, "import geo", "import geo\n")
	wantFmt(t, "const k = 1", "const k = 1\n")
}

// --- fixed-point properties -------------------------------------------------

var formatCorpus = []string{
	"let a = 1 + 2 * 3",
	"let f = fn(x, y) => if x < y then x else y",
	"a |> f() |> g(1)",
	"(a |> f()) |> g()",
	"let r = { a: [1, 2], b: { c: null } }",
	"let b = { let inner = 2\ninner * 2 }",
	"module m {\nexport let x = 1\n}",
	`"hi {{ name }}, you have {{ n }} items"`,
	`match v with { [x] -> x, 1 -> "one", _ -> null }`,
	"-(a + b) * !c",
	"const k = (fn(x) => x)(41) + 1",
	"export let visible = true",
	"type T = { tag: str }",
	"let t = type(v)",
	"import other\nother.thing[0].name",
}

func Test_Format_Idempotent(t *testing.T) {
	for _, src := range formatCorpus {
		once := fmtSrc(t, src)
		twice := fmtSrc(t, once)
		if once != twice {
			t.Fatalf("format not a fixed point\nsource:\n%s\nonce:\n%s\ntwice:\n%s", src, once, twice)
		}
	}
}

func Test_Format_PreservesMeaning(t *testing.T) {
	for _, src := range formatCorpus {
		before := Dump(mustParse(t, src))
		after := Dump(mustParse(t, fmtSrc(t, src)))
		if before != after {
			t.Fatalf("formatting changed the tree\nsource:\n%s\nbefore:\n%s\nafter:\n%s", src, before, after)
		}
	}
}

func Test_Format_ParseErrorsSurface(t *testing.T) {
	_, err := Format("let = 1")
	if err == nil {
		t.Fatalf("expected parse errors")
	}
	if _, ok := err.(ErrorList); !ok {
		t.Fatalf("expected ErrorList, got %T: %v", err, err)
	}
}
