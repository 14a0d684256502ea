// parser.go: Pratt parser from the token stream to the syntax tree.
//
// Expressions parse by precedence climbing over the lbp table below; every
// binary band is right-associative (the right-hand side recurses with bp-1),
// so a - b - c parses as a - (b - c). Pipe sits at the bottom of the table
// and is rewritten away by the desugaring pass before Parse returns.
//
// Errors never unwind the whole parse: the statement loop records the
// diagnostic, skips exactly one token, and retries, so a single pass
// surfaces every independent error. ILLEGAL tokens from the lexer surface
// here the same way, carrying their scan-time message.
package weft

import (
	"fmt"
	"strconv"
)

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

// Parse parses source into a program with pipes already desugared, or the
// complete list of parse errors. Exactly one of the results is non-nil.
func Parse(source string) (*Program, ErrorList) {
	prog, errs := parseSource(source)
	if errs != nil {
		return nil, errs
	}
	desugarProgram(prog)
	return prog, nil
}

//// END_OF_PUBLIC

// parseSource builds the raw tree, pipe nodes intact. The formatter uses it
// directly so |> chains print back as written.
func parseSource(source string) (*Program, ErrorList) {
	p := &parser{toks: Tokenize(source)}
	stmts := p.program(false)
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return &Program{Stmts: stmts}, nil
}

type parser struct {
	toks []Token
	i    int
	errs ErrorList
}

// ----- token basics -----

func (p *parser) cur() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *parser) prev() Token { return p.toks[p.i-1] }

func (p *parser) atEnd() bool { return p.cur().Type == EOF }

func (p *parser) next() {
	if p.i < len(p.toks)-1 {
		p.i++
	}
}

func (p *parser) match(tt ...TokenType) bool {
	for _, t := range tt {
		if p.cur().Type == t {
			p.next()
			return true
		}
	}
	return false
}

func (p *parser) expect(tt TokenType, msg string) (Token, error) {
	if p.match(tt) {
		return p.prev(), nil
	}
	return Token{}, p.fail(msg)
}

// fail builds a ParseError at the current token. ILLEGAL tokens win with
// their own scan-time message so lexical diagnostics are not masked.
func (p *parser) fail(msg string) *ParseError {
	tok := p.cur()
	if tok.Type == ILLEGAL {
		return &ParseError{Msg: tok.Lexeme, Pos: tok.Start}
	}
	return &ParseError{Msg: fmt.Sprintf("%s, found %s", msg, tok.Type), Pos: tok.Start}
}

func (p *parser) skipNewlines() {
	for p.cur().Type == NEWLINE {
		p.next()
	}
}

// recover records the diagnostic, skips the offending token, and lets the
// statement loop retry from the next one.
func (p *parser) recover(err error) {
	if pe, ok := err.(*ParseError); ok {
		p.errs = append(p.errs, pe)
	} else {
		p.errs = append(p.errs, &ParseError{Msg: err.Error(), Pos: p.cur().Start})
	}
	if !p.atEnd() {
		p.next()
	}
}

// ----- statements -----

// program parses statements until EOF, or until an unconsumed '}' when
// inBraces is set (block and module bodies).
func (p *parser) program(inBraces bool) []Stmt {
	var stmts []Stmt
	for {
		p.skipNewlines()
		if p.atEnd() || (inBraces && p.cur().Type == RBRACE) {
			return stmts
		}
		st, err := p.statement()
		if err != nil {
			p.recover(err)
			continue
		}
		stmts = append(stmts, st)
		if t := p.cur(); t.Type != NEWLINE && t.Type != EOF && !(inBraces && t.Type == RBRACE) {
			p.recover(p.fail("expected newline after statement"))
		}
	}
}

func (p *parser) statement() (Stmt, error) {
	switch p.cur().Type {
	case LET:
		return p.binding(false, false)
	case CONST:
		return p.binding(true, false)
	case TYPE:
		// Contextual keyword: a declaration only as 'type Name = ...';
		// any other continuation reads the builtin as an expression.
		if p.peekAt(1).Type == IDENT && p.peekAt(2).Type == ASSIGN {
			return p.typeDecl()
		}
	case MODULE:
		return p.moduleDecl()
	case IMPORT:
		return p.importDecl()
	case EXPORT:
		return p.exportDecl()
	}
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{base: base{start: e.Pos()}, E: e}, nil
}

func (p *parser) binding(isConst, exported bool) (Stmt, error) {
	kw := p.cur()
	p.next()
	name, err := p.expect(IDENT, fmt.Sprintf("expected identifier after '%s'", kw.Lexeme))
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN, "expected '=' after binding name"); err != nil {
		return nil, err
	}
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	if isConst {
		return &Const{base: at(kw), Name: name.Lexeme, Value: val, Exported: exported}, nil
	}
	return &Let{base: at(kw), Name: name.Lexeme, Value: val, Exported: exported}, nil
}

func (p *parser) typeDecl() (Stmt, error) {
	kw := p.cur()
	p.next()
	name, err := p.expect(IDENT, "expected identifier after 'type'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN, "expected '=' after type name"); err != nil {
		return nil, err
	}
	te, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &TypeDecl{base: at(kw), Name: name.Lexeme, Type: te}, nil
}

func (p *parser) moduleDecl() (Stmt, error) {
	kw := p.cur()
	p.next()
	name, err := p.expect(IDENT, "expected identifier after 'module'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACE, "expected '{' after module name"); err != nil {
		return nil, err
	}
	body := p.program(true)
	if _, err := p.expect(RBRACE, "expected '}' to close module body"); err != nil {
		return nil, err
	}
	return &ModuleDecl{base: at(kw), Name: name.Lexeme, Body: body}, nil
}

func (p *parser) importDecl() (Stmt, error) {
	kw := p.cur()
	p.next()
	name, err := p.expect(IDENT, "expected identifier after 'import'")
	if err != nil {
		return nil, err
	}
	return &Import{base: at(kw), Name: name.Lexeme}, nil
}

func (p *parser) exportDecl() (Stmt, error) {
	kw := p.cur()
	p.next()
	switch p.cur().Type {
	case LET:
		return p.binding(false, true)
	case CONST:
		return p.binding(true, true)
	case IDENT:
		name := p.cur()
		p.next()
		return &Export{base: at(kw), Name: name.Lexeme}, nil
	default:
		return nil, p.fail("expected binding or identifier after 'export'")
	}
}

// ----- expressions -----

// lbp is the binding-power table. Pipe is lowest so a |> f() |> g() groups
// right-leaning before desugaring resolves the chain.
func lbp(t TokenType) (int, bool) {
	switch t {
	case PIPE:
		return 10, true
	case OR:
		return 20, true
	case AND:
		return 30, true
	case EQ, NEQ:
		return 40, true
	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		return 50, true
	case PLUS, MINUS:
		return 60, true
	case STAR, SLASH, PERCENT:
		return 70, true
	}
	return 0, false
}

const unaryBP = 80

func (p *parser) expression() (Expr, error) { return p.parseExpr(0) }

func (p *parser) parseExpr(minBP int) (Expr, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		op := p.cur()
		bp, ok := lbp(op.Type)
		if !ok || bp <= minBP {
			return left, nil
		}
		p.next()
		right, err := p.parseExpr(bp - 1) // same band binds right
		if err != nil {
			return nil, err
		}
		if op.Type == PIPE {
			left = &Pipe{base: at(op), Left: left, Right: right}
		} else {
			left = &Binary{base: at(op), Op: op.Type, Left: left, Right: right}
		}
	}
}

func (p *parser) prefix() (Expr, error) {
	tok := p.cur()
	if tok.Type == MINUS || tok.Type == BANG {
		p.next()
		operand, err := p.parseExpr(unaryBP)
		if err != nil {
			return nil, err
		}
		return &Unary{base: at(tok), Op: tok.Type, Operand: operand}, nil
	}
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	return p.postfix(e)
}

// postfix chains calls, field reads, and index reads, which bind tightest.
func (p *parser) postfix(e Expr) (Expr, error) {
	for {
		switch p.cur().Type {
		case LPAREN:
			p.next()
			var args []Expr
			for p.cur().Type != RPAREN {
				a, err := p.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if !p.match(COMMA) {
					break
				}
			}
			if _, err := p.expect(RPAREN, "expected ')' after arguments"); err != nil {
				return nil, err
			}
			e = &Call{base: base{start: e.Pos()}, Callee: e, Args: args}
		case DOT:
			p.next()
			name, err := p.expect(IDENT, "expected field name after '.'")
			if err != nil {
				return nil, err
			}
			e = &Field{base: base{start: e.Pos()}, Obj: e, Name: name.Lexeme}
		case LBRACKET:
			p.next()
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBRACKET, "expected ']' after index"); err != nil {
				return nil, err
			}
			e = &Index{base: base{start: e.Pos()}, Coll: e, Key: key}
		default:
			return e, nil
		}
	}
}

func (p *parser) primary() (Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case NUMBER:
		p.next()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, &ParseError{Msg: "malformed number literal", Pos: tok.Start}
		}
		return &NumberLit{base: at(tok), Value: v}, nil
	case STRING:
		p.next()
		if p.cur().Type == TMPL_OPEN {
			return p.template(tok)
		}
		return &StringLit{base: at(tok), Value: tok.Lexeme}, nil
	case TMPL_OPEN:
		return p.bareTemplate()
	case BOOLEAN:
		p.next()
		return &BoolLit{base: at(tok), Value: tok.Lexeme == "true"}, nil
	case NULL:
		p.next()
		return &NullLit{base: at(tok)}, nil
	case IDENT, TYPE:
		p.next()
		return &Ident{base: at(tok), Name: tok.Lexeme}, nil
	case LPAREN:
		p.next()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "expected ')' to close grouping"); err != nil {
			return nil, err
		}
		return e, nil
	case LBRACKET:
		return p.arrayLit()
	case LBRACE:
		if p.recordAhead() {
			return p.recordLit()
		}
		return p.blockExpr()
	case FN:
		return p.lambda()
	case IF:
		return p.conditional()
	case MATCH:
		return p.matchExpr()
	case ILLEGAL:
		return nil, &ParseError{Msg: tok.Lexeme, Pos: tok.Start}
	}
	return nil, &ParseError{Msg: fmt.Sprintf("unexpected %s", tok.Type), Pos: tok.Start}
}

// template assembles a string template from the lexer's fixed shape:
// STRING (TMPL_OPEN expr TMPL_CLOSE STRING)+, first part already consumed.
// Empty text parts are dropped from the node.
func (p *parser) template(first Token) (Expr, error) {
	var parts []TemplatePart
	if first.Lexeme != "" {
		parts = append(parts, TemplatePart{Text: first.Lexeme})
	}
	for p.cur().Type == TMPL_OPEN {
		p.next()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TMPL_CLOSE, "expected '}}' to close interpolation"); err != nil {
			return nil, err
		}
		parts = append(parts, TemplatePart{Expr: e})
		text, err := p.expect(STRING, "expected string text after interpolation")
		if err != nil {
			return nil, err
		}
		if text.Lexeme != "" {
			parts = append(parts, TemplatePart{Text: text.Lexeme})
		}
	}
	return &Template{base: at(first), Parts: parts}, nil
}

// bareTemplate is the code-position form {{ expr }}: a one-part template,
// so the expression's stringified value is the result.
func (p *parser) bareTemplate() (Expr, error) {
	open := p.cur()
	p.next()
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TMPL_CLOSE, "expected '}}' to close interpolation"); err != nil {
		return nil, err
	}
	return &Template{base: at(open), Parts: []TemplatePart{{Expr: e}}}, nil
}

func (p *parser) arrayLit() (Expr, error) {
	open := p.cur()
	p.next()
	var elems []Expr
	for p.cur().Type != RBRACKET {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.expect(RBRACKET, "expected ']' to close array"); err != nil {
		return nil, err
	}
	return &ArrayLit{base: at(open), Elems: elems}, nil
}

// recordAhead distinguishes a record literal from a block: '{' directly
// followed by '}' is the empty record, and a field name with ':' after it
// starts a record; anything else is a block.
func (p *parser) recordAhead() bool {
	one := p.peekAt(1)
	if one.Type == RBRACE {
		return true
	}
	if one.Type == IDENT || one.Type == STRING {
		return p.peekAt(2).Type == COLON
	}
	return false
}

func (p *parser) peekAt(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) recordLit() (Expr, error) {
	open := p.cur()
	p.next()
	var fields []RecordField
	for p.cur().Type != RBRACE {
		var name string
		switch p.cur().Type {
		case IDENT, STRING:
			name = p.cur().Lexeme
			p.next()
		default:
			return nil, p.fail("expected field name in record")
		}
		if _, err := p.expect(COLON, "expected ':' after field name"); err != nil {
			return nil, err
		}
		v, err := p.expression()
		if err != nil {
			return nil, err
		}
		fields = append(fields, RecordField{Name: name, Value: v})
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.expect(RBRACE, "expected '}' to close record"); err != nil {
		return nil, err
	}
	return &RecordLit{base: at(open), Fields: fields}, nil
}

func (p *parser) blockExpr() (Expr, error) {
	open := p.cur()
	p.next()
	stmts := p.program(true)
	if _, err := p.expect(RBRACE, "expected '}' to close block"); err != nil {
		return nil, err
	}
	return &Block{base: at(open), Stmts: stmts}, nil
}

func (p *parser) lambda() (Expr, error) {
	kw := p.cur()
	p.next()
	if _, err := p.expect(LPAREN, "expected '(' after 'fn'"); err != nil {
		return nil, err
	}
	var params []string
	for p.cur().Type != RPAREN {
		name, err := p.expect(IDENT, "expected parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, name.Lexeme)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.expect(RPAREN, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	if _, err := p.expect(FATARROW, "expected '=>' after parameters"); err != nil {
		return nil, err
	}
	body, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &Lambda{base: at(kw), Params: params, Body: body}, nil
}

func (p *parser) conditional() (Expr, error) {
	kw := p.cur()
	p.next()
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(THEN, "expected 'then' after condition"); err != nil {
		return nil, err
	}
	thenE, err := p.expression()
	if err != nil {
		return nil, err
	}
	var elseE Expr
	if p.match(ELSE) {
		elseE, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	return &If{base: at(kw), Cond: cond, Then: thenE, Else: elseE}, nil
}

func (p *parser) matchExpr() (Expr, error) {
	kw := p.cur()
	p.next()
	subj, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(WITH, "expected 'with' after match subject"); err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACE, "expected '{' to open match arms"); err != nil {
		return nil, err
	}
	var arms []MatchArm
	for p.cur().Type != RBRACE {
		pat, err := p.pattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(ARROW, "expected '->' after pattern"); err != nil {
			return nil, err
		}
		body, err := p.expression()
		if err != nil {
			return nil, err
		}
		arms = append(arms, MatchArm{Pat: pat, Body: body})
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.expect(RBRACE, "expected '}' to close match arms"); err != nil {
		return nil, err
	}
	return &Match{base: at(kw), Subject: subj, Arms: arms}, nil
}

func (p *parser) pattern() (Pattern, error) {
	tok := p.cur()
	switch tok.Type {
	case IDENT:
		p.next()
		if tok.Lexeme == "_" {
			return &WildcardPat{base: at(tok)}, nil
		}
		return &IdentPat{base: at(tok), Name: tok.Lexeme}, nil
	case NUMBER:
		p.next()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, &ParseError{Msg: "malformed number literal", Pos: tok.Start}
		}
		return &LiteralPat{base: at(tok), Value: &NumberLit{base: at(tok), Value: v}}, nil
	case STRING:
		p.next()
		return &LiteralPat{base: at(tok), Value: &StringLit{base: at(tok), Value: tok.Lexeme}}, nil
	case BOOLEAN:
		p.next()
		return &LiteralPat{base: at(tok), Value: &BoolLit{base: at(tok), Value: tok.Lexeme == "true"}}, nil
	case NULL:
		p.next()
		return &LiteralPat{base: at(tok), Value: &NullLit{base: at(tok)}}, nil
	case LBRACKET:
		p.next()
		var elems []Pattern
		for p.cur().Type != RBRACKET {
			el, err := p.pattern()
			if err != nil {
				return nil, err
			}
			elems = append(elems, el)
			if !p.match(COMMA) {
				break
			}
		}
		if _, err := p.expect(RBRACKET, "expected ']' to close array pattern"); err != nil {
			return nil, err
		}
		return &ArrayPat{base: at(tok), Elems: elems}, nil
	case LBRACE:
		p.next()
		var fields []RecordPatField
		for p.cur().Type != RBRACE {
			name, err := p.expect(IDENT, "expected field name in record pattern")
			if err != nil {
				return nil, err
			}
			f := RecordPatField{Name: name.Lexeme}
			if p.match(COLON) {
				sub, err := p.pattern()
				if err != nil {
					return nil, err
				}
				f.Pat = sub
			}
			fields = append(fields, f)
			if !p.match(COMMA) {
				break
			}
		}
		if _, err := p.expect(RBRACE, "expected '}' to close record pattern"); err != nil {
			return nil, err
		}
		return &RecordPat{base: at(tok), Fields: fields}, nil
	}
	return nil, p.fail("expected pattern")
}
