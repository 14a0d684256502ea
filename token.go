// token.go: token kinds, source positions, and the fixed keyword set.
package weft

// Position is a location in source text. Line and Column are 1-based;
// Offset is the 0-based byte index from the start of the scan.
type Position struct {
	Line   int
	Column int
	Offset int
}

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF     TokenType = iota
	ILLEGAL           // lexical error; Lexeme carries the diagnostic message
	NEWLINE

	// Literals & identifiers
	IDENT
	STRING // Lexeme holds the cooked value (escapes substituted)
	NUMBER
	BOOLEAN
	NULL

	// Keywords
	LET
	CONST
	FN
	IF
	THEN
	ELSE
	MATCH
	WITH
	TYPE
	MODULE
	IMPORT
	EXPORT

	// Operators
	PLUS    // "+"
	MINUS   // "-"
	STAR    // "*"
	SLASH   // "/"
	PERCENT // "%"
	BANG    // "!"
	ASSIGN  // "="
	EQ      // "=="
	NEQ     // "!="
	LESS
	LESS_EQ
	GREATER
	GREATER_EQ
	AND // "&&"
	OR  // "||"
	ARROW    // "->"
	FATARROW // "=>"
	PIPE     // "|>"

	// Punctuation
	DOT
	COMMA
	COLON
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LBRACE
	RBRACE

	// Template-interpolation delimiters, distinct from the single braces.
	TMPL_OPEN  // "{{"
	TMPL_CLOSE // "}}"
)

// Token is a classified, positioned lexical unit. End.Offset is the byte
// just past the token, so End >= Start always and offsets grow
// monotonically across a scan.
type Token struct {
	Type   TokenType
	Lexeme string
	Start  Position
	End    Position
}

// keywords map; identifiers are checked against it after a maximal scan.
// true/false/null are literal tokens, not keywords.
var keywords = map[string]TokenType{
	"let":    LET,
	"const":  CONST,
	"fn":     FN,
	"if":     IF,
	"then":   THEN,
	"else":   ELSE,
	"match":  MATCH,
	"with":   WITH,
	"type":   TYPE,
	"module": MODULE,
	"import": IMPORT,
	"export": EXPORT,
}

var tokenNames = map[TokenType]string{
	EOF:        "end of input",
	ILLEGAL:    "lexical error",
	NEWLINE:    "newline",
	IDENT:      "identifier",
	STRING:     "string literal",
	NUMBER:     "number literal",
	BOOLEAN:    "boolean literal",
	NULL:       "null",
	LET:        "'let'",
	CONST:      "'const'",
	FN:         "'fn'",
	IF:         "'if'",
	THEN:       "'then'",
	ELSE:       "'else'",
	MATCH:      "'match'",
	WITH:       "'with'",
	TYPE:       "'type'",
	MODULE:     "'module'",
	IMPORT:     "'import'",
	EXPORT:     "'export'",
	PLUS:       "'+'",
	MINUS:      "'-'",
	STAR:       "'*'",
	SLASH:      "'/'",
	PERCENT:    "'%'",
	BANG:       "'!'",
	ASSIGN:     "'='",
	EQ:         "'=='",
	NEQ:        "'!='",
	LESS:       "'<'",
	LESS_EQ:    "'<='",
	GREATER:    "'>'",
	GREATER_EQ: "'>='",
	AND:        "'&&'",
	OR:         "'||'",
	ARROW:      "'->'",
	FATARROW:   "'=>'",
	PIPE:       "'|>'",
	DOT:        "'.'",
	COMMA:      "','",
	COLON:      "':'",
	LPAREN:     "'('",
	RPAREN:     "')'",
	LBRACKET:   "'['",
	RBRACKET:   "']'",
	LBRACE:     "'{'",
	RBRACE:     "'}'",
	TMPL_OPEN:  "'{{'",
	TMPL_CLOSE: "'}}'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "unknown token"
}

// opText is the source spelling of an operator token type, used by the
// formatter and the code generator.
var opText = map[TokenType]string{
	PLUS:       "+",
	MINUS:      "-",
	STAR:       "*",
	SLASH:      "/",
	PERCENT:    "%",
	BANG:       "!",
	EQ:         "==",
	NEQ:        "!=",
	LESS:       "<",
	LESS_EQ:    "<=",
	GREATER:    ">",
	GREATER_EQ: ">=",
	AND:        "&&",
	OR:         "||",
	PIPE:       "|>",
}
