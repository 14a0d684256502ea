// lexer_test.go
package weft

import (
	"reflect"
	"strings"
	"testing"
)

func toks(t *testing.T, src string) []Token {
	t.Helper()
	ts := Tokenize(src)
	if len(ts) == 0 || ts[len(ts)-1].Type != EOF {
		t.Fatalf("token stream must end with exactly one EOF: %v", ts)
	}
	return ts
}

func typesWithoutEOF(tokens []Token) []TokenType {
	end := len(tokens) - 1
	out := make([]TokenType, 0, end)
	for i := 0; i < end; i++ {
		out = append(out, tokens[i].Type)
	}
	return out
}

func wantTypes(t *testing.T, src string, want []TokenType) []Token {
	t.Helper()
	got := toks(t, src)
	gotTypes := typesWithoutEOF(got)
	if !reflect.DeepEqual(gotTypes, want) {
		t.Fatalf("\nsource:\n%s\nwant types:\n%v\ngot types:\n%v\n", src, want, gotTypes)
	}
	return got
}

func Test_Lexer_Statements_LetBinding(t *testing.T) {
	got := wantTypes(t, `let a = 3`, []TokenType{LET, IDENT, ASSIGN, NUMBER})
	if got[1].Lexeme != "a" || got[3].Lexeme != "3" {
		t.Fatalf("unexpected lexemes: %q %q", got[1].Lexeme, got[3].Lexeme)
	}
}

func Test_Lexer_Operators_MultiChar(t *testing.T) {
	wantTypes(t, `== != <= >= && || -> => |>`, []TokenType{
		EQ, NEQ, LESS_EQ, GREATER_EQ, AND, OR, ARROW, FATARROW, PIPE,
	})
}

func Test_Lexer_Operators_SingleChar(t *testing.T) {
	wantTypes(t, `+ - * / % ! = < > . , : ( ) [ ]`, []TokenType{
		PLUS, MINUS, STAR, SLASH, PERCENT, BANG, ASSIGN, LESS, GREATER,
		DOT, COMMA, COLON, LPAREN, RPAREN, LBRACKET, RBRACKET,
	})
}

func Test_Lexer_Keywords_VsIdentifiers(t *testing.T) {
	wantTypes(t, `let const fn if then else match with type module import export letter`, []TokenType{
		LET, CONST, FN, IF, THEN, ELSE, MATCH, WITH, TYPE, MODULE, IMPORT, EXPORT, IDENT,
	})
}

func Test_Lexer_Literals_BoolAndNull(t *testing.T) {
	got := wantTypes(t, `true false null`, []TokenType{BOOLEAN, BOOLEAN, NULL})
	if got[0].Lexeme != "true" || got[1].Lexeme != "false" {
		t.Fatalf("boolean lexemes wrong: %q %q", got[0].Lexeme, got[1].Lexeme)
	}
}

func Test_Lexer_Numbers_IntegerAndDecimal(t *testing.T) {
	got := wantTypes(t, `0 42 3.14`, []TokenType{NUMBER, NUMBER, NUMBER})
	if got[0].Lexeme != "0" || got[1].Lexeme != "42" || got[2].Lexeme != "3.14" {
		t.Fatalf("number lexemes wrong: %v", got)
	}
	// A trailing dot is not part of the number.
	wantTypes(t, `1.`, []TokenType{NUMBER, DOT})
}

func Test_Lexer_Newlines_AreTokens(t *testing.T) {
	wantTypes(t, "let x = 1\nx", []TokenType{
		LET, IDENT, ASSIGN, NUMBER, NEWLINE, IDENT,
	})
	wantTypes(t, "a\n\nb", []TokenType{IDENT, NEWLINE, NEWLINE, IDENT})
}

func Test_Lexer_Comments_SkippedToLineEnd(t *testing.T) {
	wantTypes(t, "1 // the rest is ignored == |>\n2", []TokenType{
		NUMBER, NEWLINE, NUMBER,
	})
}

func Test_Lexer_Strings_EscapeSubstitution(t *testing.T) {
	got := wantTypes(t, `"ab\ncd"`, []TokenType{STRING})
	if got[0].Lexeme != "ab\ncd" {
		t.Fatalf("escape not substituted: %q", got[0].Lexeme)
	}
	got = wantTypes(t, `"a\tb\\c\"d"`, []TokenType{STRING})
	if got[0].Lexeme != "a\tb\\c\"d" {
		t.Fatalf("escape set wrong: %q", got[0].Lexeme)
	}
}

func Test_Lexer_Strings_UnknownEscapeIsIllegal(t *testing.T) {
	got := wantTypes(t, `"a\qb"`, []TokenType{ILLEGAL, IDENT, ILLEGAL})
	if !strings.Contains(got[0].Lexeme, `unknown escape '\q'`) {
		t.Fatalf("wrong diagnostic: %q", got[0].Lexeme)
	}
}

func Test_Lexer_Strings_UnterminatedIsIllegal(t *testing.T) {
	got := toks(t, `"abc`)
	if got[0].Type != ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %v", got[0].Type)
	}
	if !strings.Contains(got[0].Lexeme, "unterminated string literal") {
		t.Fatalf("wrong diagnostic: %q", got[0].Lexeme)
	}
}

func Test_Lexer_Strings_NewlineTerminatesWithError(t *testing.T) {
	got := wantTypes(t, "\"ab\ncd\"", []TokenType{ILLEGAL, IDENT, ILLEGAL})
	if !strings.Contains(got[0].Lexeme, "unterminated string literal") {
		t.Fatalf("wrong diagnostic: %q", got[0].Lexeme)
	}
}

func Test_Lexer_Illegal_StrayAmpersandAndPipe(t *testing.T) {
	got := wantTypes(t, `a & b`, []TokenType{IDENT, ILLEGAL, IDENT})
	if !strings.Contains(got[1].Lexeme, "unexpected character") {
		t.Fatalf("wrong diagnostic: %q", got[1].Lexeme)
	}
	wantTypes(t, `a | b`, []TokenType{IDENT, ILLEGAL, IDENT})
}

func Test_Lexer_Template_SplitsStringIntoParts(t *testing.T) {
	got := wantTypes(t, `"a{{ x }}b"`, []TokenType{
		STRING, TMPL_OPEN, IDENT, TMPL_CLOSE, STRING,
	})
	if got[0].Lexeme != "a" || got[4].Lexeme != "b" {
		t.Fatalf("text parts wrong: %q %q", got[0].Lexeme, got[4].Lexeme)
	}
}

func Test_Lexer_Template_EmptyTextPartsKept(t *testing.T) {
	// The empty leading/trailing parts keep string templates distinguishable
	// from adjacent plain string literals.
	got := wantTypes(t, `"{{ x }}"`, []TokenType{
		STRING, TMPL_OPEN, IDENT, TMPL_CLOSE, STRING,
	})
	if got[0].Lexeme != "" || got[4].Lexeme != "" {
		t.Fatalf("empty text parts expected: %q %q", got[0].Lexeme, got[4].Lexeme)
	}
}

func Test_Lexer_Template_MultipleInterpolations(t *testing.T) {
	wantTypes(t, `"x={{ x }}, y={{ y }}!"`, []TokenType{
		STRING, TMPL_OPEN, IDENT, TMPL_CLOSE,
		STRING, TMPL_OPEN, IDENT, TMPL_CLOSE, STRING,
	})
}

func Test_Lexer_Template_SingleBracesInsideInterpolation(t *testing.T) {
	// Single braces nest inside an interpolation without closing it; only
	// }} at nesting depth zero ends the region.
	wantTypes(t, `"v={{ { a: 1 } }}"`, []TokenType{
		STRING, TMPL_OPEN, LBRACE, IDENT, COLON, NUMBER, RBRACE, TMPL_CLOSE, STRING,
	})
}

func Test_Lexer_Template_BareCodeForm(t *testing.T) {
	wantTypes(t, `{{ 2 + 2 }}`, []TokenType{
		TMPL_OPEN, NUMBER, PLUS, NUMBER, TMPL_CLOSE,
	})
}

func Test_Lexer_Template_UnterminatedInterpolation(t *testing.T) {
	got := toks(t, `"a{{ x`)
	var saw bool
	for _, tok := range got {
		if tok.Type == ILLEGAL && strings.Contains(tok.Lexeme, "unterminated template interpolation") {
			saw = true
		}
	}
	if !saw {
		t.Fatalf("expected an unterminated-interpolation diagnostic: %v", got)
	}
}

func Test_Lexer_Braces_CodeModeStaysOrdinary(t *testing.T) {
	// With a space between them, two braces are block delimiters.
	wantTypes(t, `{ }`, []TokenType{LBRACE, RBRACE})
	wantTypes(t, `{ a: 1 }`, []TokenType{LBRACE, IDENT, COLON, NUMBER, RBRACE})
}

func Test_Lexer_Positions_OneBasedLinesAndColumns(t *testing.T) {
	got := toks(t, "let x = 1\nlet y = 2")
	first := got[0]
	if first.Start.Line != 1 || first.Start.Column != 1 || first.Start.Offset != 0 {
		t.Fatalf("first token start wrong: %+v", first.Start)
	}
	// "let" spans offsets [0,3).
	if first.End.Offset != 3 {
		t.Fatalf("first token end offset wrong: %+v", first.End)
	}
	var second Token
	for i, tok := range got {
		if tok.Type == NEWLINE && i+1 < len(got) {
			second = got[i+1]
			break
		}
	}
	if second.Type != LET || second.Start.Line != 2 || second.Start.Column != 1 {
		t.Fatalf("token after newline should be LET at 2:1, got %+v", second)
	}
}

func Test_Lexer_Positions_MonotonicOffsets(t *testing.T) {
	src := "let a = \"x{{ 1 + 2 }}y\"\nlet b = { a: [1, 2] }\nb"
	got := toks(t, src)
	prev := -1
	for i, tok := range got {
		if tok.End.Offset < tok.Start.Offset {
			t.Fatalf("token %d (%v) has end before start: %+v %+v", i, tok.Type, tok.Start, tok.End)
		}
		if tok.Start.Offset < prev {
			t.Fatalf("token %d (%v) starts before predecessor ends: %d < %d", i, tok.Type, tok.Start.Offset, prev)
		}
		prev = tok.End.Offset
	}
}

func Test_Lexer_Total_NeverFailsOnGarbage(t *testing.T) {
	for _, src := range []string{"@#~`", "\"", "{{", "}}", "\x00", "é € 漢"} {
		ts := Tokenize(src)
		if len(ts) == 0 || ts[len(ts)-1].Type != EOF {
			t.Fatalf("scan of %q must still end in EOF: %v", src, ts)
		}
	}
}
