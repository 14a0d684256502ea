// ast.go: the Weft syntax tree.
//
// The tree is a closed set of tagged variants: sealed Node/Expr/Stmt/Pattern
// interfaces whose unexported discriminator methods keep the set closed, so
// every consumer (interpreter, compiler, formatter) dispatches over all
// variants with a type switch and nothing outside this file can add one.
// Each node records the source position it started at.
package weft

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is anything in the tree.
type Node interface {
	Pos() Position
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Pattern is a match-arm pattern node. Patterns parse but never evaluate;
// see Match.
type Pattern interface {
	Node
	patternNode()
}

// base carries the start position every node records.
type base struct {
	start Position
}

func (b base) Pos() Position { return b.start }

func at(t Token) base { return base{start: t.Start} }

// Program is the root: an ordered statement list.
type Program struct {
	Stmts []Stmt
}

func (p *Program) Pos() Position {
	if len(p.Stmts) > 0 {
		return p.Stmts[0].Pos()
	}
	return Position{Line: 1, Column: 1}
}

// ----- expressions -----

type NullLit struct{ base }

type BoolLit struct {
	base
	Value bool
}

type NumberLit struct {
	base
	Value float64
}

type StringLit struct {
	base
	Value string
}

// Ident is a reference to a name, resolved against the environment chain.
type Ident struct {
	base
	Name string
}

// Binary is a binary operation. Op is the operator's token type; every
// operator band parses right-associatively, so a - b - c arrives here as
// a - (b - c).
type Binary struct {
	base
	Op    TokenType
	Left  Expr
	Right Expr
}

type Unary struct {
	base
	Op      TokenType
	Operand Expr
}

type Call struct {
	base
	Callee Expr
	Args   []Expr
}

// Lambda is fn(params) => body. The closure it evaluates to captures the
// defining environment.
type Lambda struct {
	base
	Params []string
	Body   Expr
}

// If is the conditional expression; Else is nil when absent, in which case
// the expression's value is null on a false condition.
type If struct {
	base
	Cond Expr
	Then Expr
	Else Expr
}

// Match is declared in the grammar but not executable: the interpreter
// refuses it and the compiler emits a placeholder. Arms are kept so tooling
// can still format and inspect them.
type Match struct {
	base
	Subject Expr
	Arms    []MatchArm
}

// MatchArm is one "pattern -> body" arm.
type MatchArm struct {
	Pat  Pattern
	Body Expr
}

// Block is a braced statement list; its value is the last statement's value
// (null when empty). It evaluates in one child scope.
type Block struct {
	base
	Stmts []Stmt
}

type ArrayLit struct {
	base
	Elems []Expr
}

// RecordLit is an ordered list of name/value pairs. Insertion order is
// significant for output, not for lookup.
type RecordLit struct {
	base
	Fields []RecordField
}

type RecordField struct {
	Name  string
	Value Expr
}

// Field is obj.name access.
type Field struct {
	base
	Obj  Expr
	Name string
}

// Index is coll[key] access on arrays and strings.
type Index struct {
	base
	Coll Expr
	Key  Expr
}

// Pipe is left |> right. It exists only between the grammar phase and the
// desugaring pass; trees returned by Parse never contain one.
type Pipe struct {
	base
	Left  Expr
	Right Expr
}

// Template is a string template. A part holds literal text when Expr is
// nil, otherwise an embedded expression whose stringified value is spliced
// in.
type Template struct {
	base
	Parts []TemplatePart
}

type TemplatePart struct {
	Text string
	Expr Expr
}

func (*NullLit) exprNode()   {}
func (*BoolLit) exprNode()   {}
func (*NumberLit) exprNode() {}
func (*StringLit) exprNode() {}
func (*Ident) exprNode()     {}
func (*Binary) exprNode()    {}
func (*Unary) exprNode()     {}
func (*Call) exprNode()      {}
func (*Lambda) exprNode()    {}
func (*If) exprNode()        {}
func (*Match) exprNode()     {}
func (*Block) exprNode()     {}
func (*ArrayLit) exprNode()  {}
func (*RecordLit) exprNode() {}
func (*Field) exprNode()     {}
func (*Index) exprNode()     {}
func (*Pipe) exprNode()      {}
func (*Template) exprNode()  {}

// ----- patterns -----

type WildcardPat struct{ base }

type IdentPat struct {
	base
	Name string
}

// LiteralPat wraps a literal expression node (null, bool, number, string).
type LiteralPat struct {
	base
	Value Expr
}

type ArrayPat struct {
	base
	Elems []Pattern
}

// RecordPat destructures record fields; a nil Pat is the shorthand form
// that binds the field name itself.
type RecordPat struct {
	base
	Fields []RecordPatField
}

type RecordPatField struct {
	Name string
	Pat  Pattern
}

func (*WildcardPat) patternNode() {}
func (*IdentPat) patternNode()    {}
func (*LiteralPat) patternNode()  {}
func (*ArrayPat) patternNode()    {}
func (*RecordPat) patternNode()   {}

// ----- statements -----

// Let introduces or overwrites one name in the current environment.
// Exported marks an "export let" form, which module evaluation collects.
type Let struct {
	base
	Name     string
	Value    Expr
	Exported bool
}

// Const is identical to Let at this layer; the keyword is kept for output.
type Const struct {
	base
	Name     string
	Value    Expr
	Exported bool
}

type ExprStmt struct {
	base
	E Expr
}

// TypeDecl carries a name and a type expression and has zero runtime
// effect.
type TypeDecl struct {
	base
	Name string
	Type Expr
}

// ModuleDecl evaluates its body in a fresh child scope; exported bindings
// are collected into a record bound to Name, everything else is discarded.
type ModuleDecl struct {
	base
	Name string
	Body []Stmt
}

// Import is informational only; cross-file resolution is out of scope.
type Import struct {
	base
	Name string
}

// Export marks a name as exported without binding anything itself.
type Export struct {
	base
	Name string
}

func (*Let) stmtNode()        {}
func (*Const) stmtNode()      {}
func (*ExprStmt) stmtNode()   {}
func (*TypeDecl) stmtNode()   {}
func (*ModuleDecl) stmtNode() {}
func (*Import) stmtNode()     {}
func (*Export) stmtNode()     {}

// ----- debug dump -----

// Dump returns a compact parenthesized rendering of a tree, one statement
// per line for programs. Tests and the "weft ast" command use it.
func Dump(n Node) string {
	switch x := n.(type) {
	case *Program:
		lines := make([]string, len(x.Stmts))
		for i, s := range x.Stmts {
			lines[i] = Dump(s)
		}
		return strings.Join(lines, "\n")

	case *NullLit:
		return "null"
	case *BoolLit:
		return strconv.FormatBool(x.Value)
	case *NumberLit:
		return strconv.FormatFloat(x.Value, 'f', -1, 64)
	case *StringLit:
		return strconv.Quote(x.Value)
	case *Ident:
		return x.Name
	case *Binary:
		return "(" + opText[x.Op] + " " + Dump(x.Left) + " " + Dump(x.Right) + ")"
	case *Unary:
		return "(" + opText[x.Op] + " " + Dump(x.Operand) + ")"
	case *Call:
		parts := []string{"call", Dump(x.Callee)}
		for _, a := range x.Args {
			parts = append(parts, Dump(a))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *Lambda:
		return "(fn (" + strings.Join(x.Params, " ") + ") " + Dump(x.Body) + ")"
	case *If:
		if x.Else == nil {
			return "(if " + Dump(x.Cond) + " " + Dump(x.Then) + ")"
		}
		return "(if " + Dump(x.Cond) + " " + Dump(x.Then) + " " + Dump(x.Else) + ")"
	case *Match:
		parts := []string{"match", Dump(x.Subject)}
		for _, a := range x.Arms {
			parts = append(parts, "(arm "+Dump(a.Pat)+" "+Dump(a.Body)+")")
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *Block:
		parts := []string{"block"}
		for _, s := range x.Stmts {
			parts = append(parts, Dump(s))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *ArrayLit:
		parts := []string{"array"}
		for _, e := range x.Elems {
			parts = append(parts, Dump(e))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *RecordLit:
		parts := []string{"record"}
		for _, f := range x.Fields {
			parts = append(parts, "("+f.Name+" "+Dump(f.Value)+")")
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *Field:
		return "(get " + Dump(x.Obj) + " " + x.Name + ")"
	case *Index:
		return "(idx " + Dump(x.Coll) + " " + Dump(x.Key) + ")"
	case *Pipe:
		return "(|> " + Dump(x.Left) + " " + Dump(x.Right) + ")"
	case *Template:
		parts := []string{"template"}
		for _, p := range x.Parts {
			if p.Expr != nil {
				parts = append(parts, Dump(p.Expr))
			} else {
				parts = append(parts, strconv.Quote(p.Text))
			}
		}
		return "(" + strings.Join(parts, " ") + ")"

	case *WildcardPat:
		return "_"
	case *IdentPat:
		return x.Name
	case *LiteralPat:
		return Dump(x.Value)
	case *ArrayPat:
		parts := []string{"parr"}
		for _, p := range x.Elems {
			parts = append(parts, Dump(p))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *RecordPat:
		parts := []string{"prec"}
		for _, f := range x.Fields {
			if f.Pat == nil {
				parts = append(parts, f.Name)
			} else {
				parts = append(parts, "("+f.Name+" "+Dump(f.Pat)+")")
			}
		}
		return "(" + strings.Join(parts, " ") + ")"

	case *Let:
		return exportedPrefix(x.Exported) + "(let " + x.Name + " " + Dump(x.Value) + ")"
	case *Const:
		return exportedPrefix(x.Exported) + "(const " + x.Name + " " + Dump(x.Value) + ")"
	case *ExprStmt:
		return Dump(x.E)
	case *TypeDecl:
		return "(type " + x.Name + " " + Dump(x.Type) + ")"
	case *ModuleDecl:
		parts := []string{"module", x.Name}
		for _, s := range x.Body {
			parts = append(parts, Dump(s))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *Import:
		return "(import " + x.Name + ")"
	case *Export:
		return "(export " + x.Name + ")"
	}
	return fmt.Sprintf("<?%T>", n)
}

func exportedPrefix(exported bool) string {
	if exported {
		return "export "
	}
	return ""
}
