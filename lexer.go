// lexer.go: scanner from raw source text to the token stream.
//
// The scan is total: malformed input (unterminated strings, stray
// characters) becomes an ILLEGAL token in place and scanning resumes at the
// next character, so the stream always terminates with exactly one EOF.
//
// Template interpolation is the context-sensitive part. "{{" and "}}" are
// recognized ahead of the single-brace tokens, and inside an interpolation
// the lexer tracks ordinary brace depth so that record/block braces nest:
// "}}" only closes the interpolation when no single brace is open. A string
// literal containing interpolations lexes to the fixed shape
//
//	STRING (TMPL_OPEN expr-tokens TMPL_CLOSE STRING)+
//
// with empty text parts kept, which is what lets the parser reassemble a
// template without ambiguity against adjacent string literals.
package weft

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type lexer struct {
	src  string
	cur  int // byte index
	line int // 1-based
	col  int // 1-based, counts bytes within the line
	toks []Token

	startPos Position // start of the token being scanned

	// Interpolation stack: one entry per open "{{", holding the count of
	// ordinary "{" braces opened inside it.
	tmpl []int
}

// Tokenize scans source into an ordered token sequence terminated by one
// EOF token. It never fails; lexical errors appear as ILLEGAL tokens whose
// Lexeme is the diagnostic message.
func Tokenize(source string) []Token {
	l := &lexer{src: source, line: 1, col: 1}
	for {
		l.skipSpace()
		l.mark()
		if l.atEnd() {
			l.add(EOF, "")
			return l.toks
		}
		l.scanCode()
	}
}

// ----- cursor helpers -----

func (l *lexer) atEnd() bool { return l.cur >= len(l.src) }

func (l *lexer) pos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.cur}
}

func (l *lexer) mark() { l.startPos = l.pos() }

func (l *lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *lexer) peekAt(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *lexer) advance() byte {
	if l.atEnd() {
		return 0
	}
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *lexer) add(tt TokenType, lexeme string) {
	l.toks = append(l.toks, Token{Type: tt, Lexeme: lexeme, Start: l.startPos, End: l.pos()})
}

// addAt emits a token with an explicit start position (used for string
// parts, whose text begins before the point of emission).
func (l *lexer) addAt(tt TokenType, lexeme string, start Position) {
	l.toks = append(l.toks, Token{Type: tt, Lexeme: lexeme, Start: start, End: l.pos()})
}

// skipSpace consumes spaces, tabs, carriage returns and //-comments.
// Newlines are tokens, not whitespace.
func (l *lexer) skipSpace() {
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\t', '\r':
			l.advance()
		case '/':
			if l.peekAt(1) != '/' {
				return
			}
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

// ----- main scanner -----

// scanCode scans one construct starting at the current position and appends
// its token(s). Strings may append several tokens (template parts).
func (l *lexer) scanCode() {
	ch := l.advance()

	switch ch {
	case '\n':
		l.add(NEWLINE, "\n")
		return
	case '+':
		l.add(PLUS, "+")
		return
	case '*':
		l.add(STAR, "*")
		return
	case '/':
		l.add(SLASH, "/")
		return
	case '%':
		l.add(PERCENT, "%")
		return
	case '.':
		l.add(DOT, ".")
		return
	case ',':
		l.add(COMMA, ",")
		return
	case ':':
		l.add(COLON, ":")
		return
	case '(':
		l.add(LPAREN, "(")
		return
	case ')':
		l.add(RPAREN, ")")
		return
	case '[':
		l.add(LBRACKET, "[")
		return
	case ']':
		l.add(RBRACKET, "]")
		return
	case '{':
		if l.peek() == '{' {
			l.advance()
			l.add(TMPL_OPEN, "{{")
			l.tmpl = append(l.tmpl, 0)
			return
		}
		l.add(LBRACE, "{")
		if n := len(l.tmpl); n > 0 {
			l.tmpl[n-1]++
		}
		return
	case '}':
		if l.peek() == '}' && l.tmplDepth() == 0 {
			l.advance()
			l.add(TMPL_CLOSE, "}}")
			if n := len(l.tmpl); n > 0 {
				l.tmpl = l.tmpl[:n-1]
			}
			return
		}
		l.add(RBRACE, "}")
		if n := len(l.tmpl); n > 0 && l.tmpl[n-1] > 0 {
			l.tmpl[n-1]--
		}
		return
	case '-':
		if l.peek() == '>' {
			l.advance()
			l.add(ARROW, "->")
			return
		}
		l.add(MINUS, "-")
		return
	case '=':
		switch l.peek() {
		case '=':
			l.advance()
			l.add(EQ, "==")
		case '>':
			l.advance()
			l.add(FATARROW, "=>")
		default:
			l.add(ASSIGN, "=")
		}
		return
	case '!':
		if l.peek() == '=' {
			l.advance()
			l.add(NEQ, "!=")
			return
		}
		l.add(BANG, "!")
		return
	case '<':
		if l.peek() == '=' {
			l.advance()
			l.add(LESS_EQ, "<=")
			return
		}
		l.add(LESS, "<")
		return
	case '>':
		if l.peek() == '=' {
			l.advance()
			l.add(GREATER_EQ, ">=")
			return
		}
		l.add(GREATER, ">")
		return
	case '&':
		if l.peek() == '&' {
			l.advance()
			l.add(AND, "&&")
			return
		}
		l.add(ILLEGAL, "unexpected character: '&'")
		return
	case '|':
		switch l.peek() {
		case '|':
			l.advance()
			l.add(OR, "||")
		case '>':
			l.advance()
			l.add(PIPE, "|>")
		default:
			l.add(ILLEGAL, "unexpected character: '|'")
		}
		return
	case '"':
		l.scanString()
		return
	}

	if isDigit(ch) {
		l.scanNumber()
		return
	}
	if isAlpha(ch) {
		l.scanIdent()
		return
	}

	// Unrecognized byte; decode a full rune so multi-byte characters
	// produce one error, not one per byte.
	r := rune(ch)
	if r >= utf8.RuneSelf {
		r, _ = utf8.DecodeRuneInString(l.src[l.cur-1:])
		for !l.atEnd() && !utf8.RuneStart(l.src[l.cur]) {
			l.advance()
		}
	}
	l.add(ILLEGAL, fmt.Sprintf("unexpected character: %q", r))
}

// tmplDepth is the single-brace depth of the innermost open interpolation,
// or 0 when no interpolation is open (so "}}" closes or is a stray pair).
func (l *lexer) tmplDepth() int {
	if n := len(l.tmpl); n > 0 {
		return l.tmpl[n-1]
	}
	return 0
}

// scanNumber continues after the first digit: a digit run, optionally one
// '.' followed by at least one digit.
func (l *lexer) scanNumber() {
	start := l.startPos.Offset
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	l.add(NUMBER, l.src[start:l.cur])
}

// scanIdent continues after the first letter; the result is checked against
// the keyword set, then against the literal words true/false/null.
func (l *lexer) scanIdent() {
	start := l.startPos.Offset
	for isAlphaNum(l.peek()) {
		l.advance()
	}
	word := l.src[start:l.cur]
	switch {
	case word == "true" || word == "false":
		l.add(BOOLEAN, word)
	case word == "null":
		l.add(NULL, word)
	default:
		if tt, ok := keywords[word]; ok {
			l.add(tt, word)
			return
		}
		l.add(IDENT, word)
	}
}

// scanString is entered after the opening quote. It emits the cooked text as
// a STRING token; when a "{{" appears inside, it emits the text so far,
// delegates the interpolation to code scanning, and resumes with the next
// text part. A raw newline or EOF before the closing quote is an
// unterminated-string error, and an escape outside \n \t \\ \" is an
// unknown-escape error.
func (l *lexer) scanString() {
	partStart := l.startPos // includes the opening quote
	var text strings.Builder

	for {
		if l.atEnd() || l.peek() == '\n' {
			l.addAt(ILLEGAL, "unterminated string literal", partStart)
			// The newline that ended the literal is consumed with it, not emitted.
			if l.peek() == '\n' {
				l.advance()
			}
			return
		}
		if l.peek() == '{' && l.peekAt(1) == '{' {
			l.addAt(STRING, text.String(), partStart)
			text.Reset()
			l.mark()
			l.scanCode() // consumes "{{", emits TMPL_OPEN, pushes
			if !l.scanInterpolation() {
				return
			}
			partStart = l.pos()
			continue
		}
		ch := l.advance()
		switch ch {
		case '"':
			l.addAt(STRING, text.String(), partStart)
			return
		case '\\':
			if l.atEnd() {
				l.addAt(ILLEGAL, "unterminated string literal", partStart)
				return
			}
			esc := l.advance()
			switch esc {
			case 'n':
				text.WriteByte('\n')
			case 't':
				text.WriteByte('\t')
			case '\\':
				text.WriteByte('\\')
			case '"':
				text.WriteByte('"')
			default:
				l.addAt(ILLEGAL, fmt.Sprintf("unknown escape '\\%c' in string literal", esc), partStart)
				return
			}
		default:
			text.WriteByte(ch)
		}
	}
}

// scanInterpolation lexes code tokens until the interpolation opened by the
// caller closes (its TMPL_CLOSE pops the stack), then reports true so string
// scanning can resume. EOF first is an unterminated interpolation.
func (l *lexer) scanInterpolation() bool {
	level := len(l.tmpl)
	for len(l.tmpl) >= level {
		l.skipSpace()
		l.mark()
		if l.atEnd() {
			l.add(ILLEGAL, "unterminated template interpolation")
			return false
		}
		l.scanCode()
	}
	return true
}
