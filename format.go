// format.go: canonical source formatter.
//
// Format prints the raw parse tree, so pipe chains come back as written
// instead of as their desugared calls. Parentheses are reconstructed from
// precedence: a child prints bare exactly when re-parsing would rebuild the
// same tree, which makes the output a fixed point of Format. Redundant
// parentheses that restate the grammar's own grouping are dropped.
//
// Comments are not preserved; the lexer discards them.
package weft

import "strings"

/* ---------- small writer with indentation ---------- */

type out struct {
	b     *strings.Builder
	depth int
}

func (o *out) write(s string) { o.b.WriteString(s) }
func (o *out) nl()            { o.b.WriteByte('\n') }
func (o *out) pad() {
	for i := 0; i < o.depth; i++ {
		o.b.WriteString("  ")
	}
}
func (o *out) line(s string) { o.pad(); o.b.WriteString(s) }

/* ---------- source -> canonical source ---------- */

// Format parses source and returns its canonical form, or the parse
// errors. Formatting already-canonical source returns it unchanged.
func Format(source string) (string, error) {
	prog, errs := parseSource(source)
	if errs != nil {
		return "", errs
	}
	var b strings.Builder
	p := &pp{out: out{b: &b}}
	p.printProgram(prog)
	return b.String(), nil
}

type pp struct {
	out out
}

func (p *pp) write(s string) { p.out.write(s) }
func (p *pp) nl()            { p.out.nl() }
func (p *pp) pad()           { p.out.pad() }

func (p *pp) printProgram(prog *Program) {
	for _, st := range prog.Stmts {
		p.printStmt(st)
		p.nl()
	}
}

func (p *pp) printStmt(st Stmt) {
	switch s := st.(type) {
	case *Let:
		p.pad()
		if s.Exported {
			p.write("export ")
		}
		p.write("let " + s.Name + " = ")
		p.printExpr(s.Value, 0)
	case *Const:
		p.pad()
		if s.Exported {
			p.write("export ")
		}
		p.write("const " + s.Name + " = ")
		p.printExpr(s.Value, 0)
	case *ExprStmt:
		p.pad()
		p.printExpr(s.E, 0)
	case *TypeDecl:
		p.pad()
		p.write("type " + s.Name + " = ")
		p.printExpr(s.Type, 0)
	case *ModuleDecl:
		p.pad()
		p.write("module " + s.Name + " {")
		p.nl()
		p.out.depth++
		for _, inner := range s.Body {
			p.printStmt(inner)
			p.nl()
		}
		p.out.depth--
		p.pad()
		p.write("}")
	case *Import:
		p.pad()
		p.write("import " + s.Name)
	case *Export:
		p.pad()
		p.write("export " + s.Name)
	}
}

// exprBP mirrors the parser's binding powers. Lambda, if, and match claim
// everything to their right, so as operands they always need wrapping.
func exprBP(e Expr) int {
	switch x := e.(type) {
	case *Pipe:
		return 10
	case *Binary:
		bp, _ := lbp(x.Op)
		return bp
	case *Unary:
		return unaryBP
	case *Call, *Field, *Index:
		return 90
	case *Lambda, *If, *Match:
		return 0
	}
	return 100
}

// printExpr wraps e in parentheses when its binding power is too weak for
// the position it appears in.
func (p *pp) printExpr(e Expr, minBP int) {
	if exprBP(e) < minBP {
		p.write("(")
		p.printExprInner(e)
		p.write(")")
		return
	}
	p.printExprInner(e)
}

func (p *pp) printExprInner(e Expr) {
	switch x := e.(type) {
	case *NullLit:
		p.write("null")
	case *BoolLit:
		if x.Value {
			p.write("true")
		} else {
			p.write("false")
		}
	case *NumberLit:
		p.write(formatNumber(x.Value))
	case *StringLit:
		p.write(quoteString(x.Value))
	case *Ident:
		p.write(x.Name)
	case *Binary:
		bp, _ := lbp(x.Op)
		p.printExpr(x.Left, bp+1) // left child at the same band re-groups, so parenthesize it
		p.write(" " + opText[x.Op] + " ")
		p.printExpr(x.Right, bp)
	case *Pipe:
		p.printExpr(x.Left, 11)
		p.write(" |> ")
		p.printExpr(x.Right, 10)
	case *Unary:
		p.write(opText[x.Op])
		p.printExpr(x.Operand, unaryBP+1)
	case *Call:
		p.printExpr(x.Callee, 90)
		p.write("(")
		for i, a := range x.Args {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(a, 0)
		}
		p.write(")")
	case *Lambda:
		p.write("fn(")
		p.write(strings.Join(x.Params, ", "))
		p.write(") => ")
		p.printExpr(x.Body, 0)
	case *If:
		p.write("if ")
		p.printExpr(x.Cond, 0)
		p.write(" then ")
		p.printExpr(x.Then, 0)
		if x.Else != nil {
			p.write(" else ")
			p.printExpr(x.Else, 0)
		}
	case *Match:
		p.write("match ")
		p.printExpr(x.Subject, 0)
		p.write(" with {")
		for i, arm := range x.Arms {
			if i > 0 {
				p.write(",")
			}
			p.write(" ")
			p.printPattern(arm.Pat)
			p.write(" -> ")
			p.printExpr(arm.Body, 0)
		}
		if len(x.Arms) > 0 {
			p.write(" ")
		}
		p.write("}")
	case *Block:
		p.write("{")
		p.nl()
		p.out.depth++
		for _, st := range x.Stmts {
			p.printStmt(st)
			p.nl()
		}
		p.out.depth--
		p.pad()
		p.write("}")
	case *ArrayLit:
		p.write("[")
		for i, el := range x.Elems {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(el, 0)
		}
		p.write("]")
	case *RecordLit:
		if len(x.Fields) == 0 {
			p.write("{}")
			return
		}
		p.write("{ ")
		for i, f := range x.Fields {
			if i > 0 {
				p.write(", ")
			}
			p.write(recordKey(f.Name) + ": ")
			p.printExpr(f.Value, 0)
		}
		p.write(" }")
	case *Field:
		p.printExpr(x.Obj, 90)
		p.write("." + x.Name)
	case *Index:
		p.printExpr(x.Coll, 90)
		p.write("[")
		p.printExpr(x.Key, 0)
		p.write("]")
	case *Template:
		p.printTemplate(x)
	}
}

func (p *pp) printPattern(pat Pattern) {
	switch x := pat.(type) {
	case *WildcardPat:
		p.write("_")
	case *IdentPat:
		p.write(x.Name)
	case *LiteralPat:
		p.printExpr(x.Value, 0)
	case *ArrayPat:
		p.write("[")
		for i, el := range x.Elems {
			if i > 0 {
				p.write(", ")
			}
			p.printPattern(el)
		}
		p.write("]")
	case *RecordPat:
		if len(x.Fields) == 0 {
			p.write("{}")
			return
		}
		p.write("{ ")
		for i, f := range x.Fields {
			if i > 0 {
				p.write(", ")
			}
			p.write(f.Name)
			if f.Pat != nil {
				p.write(": ")
				p.printPattern(f.Pat)
			}
		}
		p.write(" }")
	}
}

// printTemplate renders a one-part expression template in the bare code
// form and everything else as a string literal with inline interpolations.
func (p *pp) printTemplate(t *Template) {
	if len(t.Parts) == 1 && t.Parts[0].Expr != nil {
		p.write("{{ ")
		p.printExpr(t.Parts[0].Expr, 0)
		p.write(" }}")
		return
	}
	p.write("\"")
	for _, part := range t.Parts {
		if part.Expr == nil {
			p.write(stringBody(part.Text))
			continue
		}
		p.write("{{ ")
		p.printExpr(part.Expr, 0)
		p.write(" }}")
	}
	p.write("\"")
}

// stringBody escapes text for the inside of a string literal.
func stringBody(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func recordKey(name string) string {
	if isIdentText(name) {
		return name
	}
	return quoteString(name)
}
