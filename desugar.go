// desugar.go: pipe elimination. Runs between the grammar and every
// consumer of the tree, so no Pipe node survives Parse.
//
// The parser groups pipe chains right-leaning like every other operator.
// That grouping is wrong for pipes, where values flow left to right, so the
// rewrite first reassociates l |> (a |> b) into (l |> a) |> b and then turns
// each step into a call: the left value becomes the first argument when the
// right side is already a call, and the sole argument otherwise.
//
//	a |> f() |> g()   becomes   g(f(a))
//	x |> f(y)         becomes   f(x, y)
//	x |> f            becomes   f(x)
package weft

func desugarProgram(p *Program) {
	for i, st := range p.Stmts {
		p.Stmts[i] = desugarStmt(st)
	}
}

func desugarStmt(st Stmt) Stmt {
	switch s := st.(type) {
	case *Let:
		s.Value = desugarExpr(s.Value)
	case *Const:
		s.Value = desugarExpr(s.Value)
	case *ExprStmt:
		s.E = desugarExpr(s.E)
	case *TypeDecl:
		s.Type = desugarExpr(s.Type)
	case *ModuleDecl:
		for i, inner := range s.Body {
			s.Body[i] = desugarStmt(inner)
		}
	}
	return st
}

func desugarExpr(e Expr) Expr {
	switch x := e.(type) {
	case *Pipe:
		if r, ok := x.Right.(*Pipe); ok {
			inner := &Pipe{base: x.base, Left: x.Left, Right: r.Left}
			return desugarExpr(&Pipe{base: r.base, Left: inner, Right: r.Right})
		}
		left := desugarExpr(x.Left)
		right := desugarExpr(x.Right)
		if call, ok := right.(*Call); ok {
			call.Args = append([]Expr{left}, call.Args...)
			call.base = base{start: left.Pos()}
			return call
		}
		return &Call{base: base{start: left.Pos()}, Callee: right, Args: []Expr{left}}
	case *Binary:
		x.Left = desugarExpr(x.Left)
		x.Right = desugarExpr(x.Right)
	case *Unary:
		x.Operand = desugarExpr(x.Operand)
	case *Call:
		x.Callee = desugarExpr(x.Callee)
		for i, a := range x.Args {
			x.Args[i] = desugarExpr(a)
		}
	case *Lambda:
		x.Body = desugarExpr(x.Body)
	case *If:
		x.Cond = desugarExpr(x.Cond)
		x.Then = desugarExpr(x.Then)
		if x.Else != nil {
			x.Else = desugarExpr(x.Else)
		}
	case *Match:
		x.Subject = desugarExpr(x.Subject)
		for i := range x.Arms {
			x.Arms[i].Body = desugarExpr(x.Arms[i].Body)
		}
	case *Block:
		for i, st := range x.Stmts {
			x.Stmts[i] = desugarStmt(st)
		}
	case *ArrayLit:
		for i, el := range x.Elems {
			x.Elems[i] = desugarExpr(el)
		}
	case *RecordLit:
		for i := range x.Fields {
			x.Fields[i].Value = desugarExpr(x.Fields[i].Value)
		}
	case *Field:
		x.Obj = desugarExpr(x.Obj)
	case *Index:
		x.Coll = desugarExpr(x.Coll)
		x.Key = desugarExpr(x.Key)
	case *Template:
		for i := range x.Parts {
			if x.Parts[i].Expr != nil {
				x.Parts[i].Expr = desugarExpr(x.Parts[i].Expr)
			}
		}
	}
	return e
}
