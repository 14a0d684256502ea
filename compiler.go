// compiler.go: lowers parsed programs to JavaScript source text.
//
// The output is a fixed header (tool identity, optional strict-mode
// directive), a small preamble binding the builtin equivalents, then one
// generated line per top-level statement in source order. Operators map
// one-to-one onto their JavaScript spellings with equality strict (===),
// so numeric edge behavior follows the target language. Identifiers that
// collide with a JavaScript reserved word are renamed with a fixed prefix,
// and the rename applies everywhere an identifier is emitted: bindings,
// parameters, field names, record keys.
//
// Rebinding a name in the same scope re-emits as plain assignment, since a
// second let for the same name is a syntax error in the target. The
// preamble names are pre-declared so a program that rebinds print simply
// overwrites it.
package weft

import (
	"strconv"
	"strings"
	"unicode"
)

// CompileOptions configures code generation. The zero value emits a
// non-strict es2020 program; Compile(nil) applies DefaultCompileOptions.
type CompileOptions struct {
	// Profile names the emission dialect. Empty means "es2020".
	Profile string
	// Minify is accepted for interface compatibility and ignored: output
	// keeps its whitespace and structure regardless.
	Minify bool
	// SourceMap is accepted for interface compatibility and ignored: no
	// map is emitted.
	SourceMap bool
	// Strict controls only whether the "use strict" directive is emitted.
	Strict bool
}

// DefaultCompileOptions is the configuration used when Compile receives
// nil options: the es2020 profile with the strict directive on.
func DefaultCompileOptions() *CompileOptions {
	return &CompileOptions{Profile: "es2020", Strict: true}
}

// Compile lowers source to JavaScript text. Parse failures abort
// compilation and surface every accumulated diagnostic as one error;
// codegen itself cannot fail once parsing succeeds.
func Compile(source string, opts *CompileOptions) (string, error) {
	if opts == nil {
		opts = DefaultCompileOptions()
	}
	prog, errs := Parse(source)
	if errs != nil {
		return "", errs
	}
	profile := opts.Profile
	if profile == "" {
		profile = "es2020"
	}
	var b strings.Builder
	g := &codegen{out: out{b: &b}}
	g.program(prog, profile, opts.Strict)
	return b.String(), nil
}

//// END_OF_PUBLIC

// escapePrefix renames identifiers that collide with a reserved word.
const escapePrefix = "_w_"

// jsReserved covers ECMAScript reserved words, the strict-mode additions,
// and the two names assignment may not target in strict mode.
var jsReserved = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true,
	"class": true, "const": true, "continue": true, "debugger": true,
	"default": true, "delete": true, "do": true, "else": true,
	"enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true,
	"implements": true, "import": true, "in": true, "instanceof": true,
	"interface": true, "let": true, "new": true, "null": true,
	"package": true, "private": true, "protected": true, "public": true,
	"return": true, "static": true, "super": true, "switch": true,
	"this": true, "throw": true, "true": true, "try": true,
	"typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true,
	"arguments": true, "eval": true,
}

func escapeIdent(name string) string {
	if jsReserved[name] {
		return escapePrefix + name
	}
	return name
}

// propertyKey emits a record key: identifier keys go through the reserved
// word rename, anything else becomes a quoted string key.
func propertyKey(name string) string {
	if isIdentText(name) {
		return escapeIdent(name)
	}
	return quoteString(name)
}

func isIdentText(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if unicode.IsLetter(r) || r == '_' || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// jsPreamble binds the builtin equivalents. Everything is let-bound so a
// program rebinding one of these names compiles to plain assignment.
const jsPreamble = `let __str = (v) => {
  if (v === null) return "null";
  if (typeof v === "string") return v;
  if (Array.isArray(v)) return "[" + v.map(__show).join(", ") + "]";
  if (typeof v === "function") return "<function>";
  if (typeof v === "object") return "{" + Object.keys(v).map((k) => k + ": " + __show(v[k])).join(", ") + "}";
  return String(v);
};
let __show = (v) => typeof v === "string" ? JSON.stringify(v) : __str(v);
let print = (...xs) => { console.log(xs.map(__str).join(" ")); return null; };
let len = (v) => typeof v === "string" ? [...v].length : Array.isArray(v) ? v.length : Object.keys(v).length;
let str = (v) => __str(v);
let num = (v) => typeof v === "number" ? v : typeof v === "boolean" ? (v ? 1 : 0) : Number(String(v).trim());
let type = (v) => v === null ? "null" : Array.isArray(v) ? "array" : typeof v === "function" ? "function" : typeof v === "object" ? "record" : typeof v === "boolean" ? "bool" : typeof v;
`

var preambleNames = []string{"__str", "__show", "print", "len", "str", "num", "type"}

type codegen struct {
	out    out
	scopes []map[string]bool // names already declared, per emission scope
}

func (g *codegen) pushScope() { g.scopes = append(g.scopes, map[string]bool{}) }
func (g *codegen) popScope()  { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *codegen) declare(name string) { g.scopes[len(g.scopes)-1][name] = true }

// declared reports whether name is bound in the innermost scope only;
// outer bindings shadow with a fresh let, same-scope rebinds assign.
func (g *codegen) declared(name string) bool { return g.scopes[len(g.scopes)-1][name] }

func (g *codegen) program(p *Program, profile string, strict bool) {
	g.out.write("// Generated by weft v" + Version + " (" + profile + " profile)\n")
	if strict {
		g.out.write("\"use strict\";\n")
	}
	g.out.write(jsPreamble)
	g.pushScope()
	for _, name := range preambleNames {
		g.declare(name)
	}
	for _, st := range p.Stmts {
		g.stmt(st)
	}
	g.popScope()
}

func (g *codegen) stmt(st Stmt) {
	switch s := st.(type) {
	case *Let:
		g.binding(s.Name, s.Value)
	case *Const:
		g.binding(s.Name, s.Value)
	case *ExprStmt:
		g.out.pad()
		g.expr(s.E)
		g.out.write(";\n")
	case *TypeDecl:
		g.out.line("// type: " + s.Name)
		g.out.nl()
	case *ModuleDecl:
		g.module(s)
	case *Import:
		g.out.line("// import: " + s.Name)
		g.out.nl()
	case *Export:
		g.out.line("// export: " + s.Name)
		g.out.nl()
	}
}

func (g *codegen) binding(name string, val Expr) {
	g.out.pad()
	id := escapeIdent(name)
	if g.declared(name) {
		g.out.write(id + " = ")
	} else {
		g.declare(name)
		g.out.write("let " + id + " = ")
	}
	g.expr(val)
	g.out.write(";\n")
}

// module compiles to an immediately-invoked closure returning the record
// of exported bindings, bound to the module's name.
func (g *codegen) module(m *ModuleDecl) {
	g.out.pad()
	id := escapeIdent(m.Name)
	if g.declared(m.Name) {
		g.out.write(id + " = (() => {\n")
	} else {
		g.declare(m.Name)
		g.out.write("let " + id + " = (() => {\n")
	}
	g.pushScope()
	g.out.depth++
	var exports []string
	for _, st := range m.Body {
		g.stmt(st)
		switch s := st.(type) {
		case *Let:
			if s.Exported {
				exports = appendName(exports, s.Name)
			}
		case *Const:
			if s.Exported {
				exports = appendName(exports, s.Name)
			}
		case *Export:
			exports = appendName(exports, s.Name)
		}
	}
	g.out.pad()
	if len(exports) == 0 {
		g.out.write("return {};\n")
	} else {
		g.out.write("return { ")
		for i, name := range exports {
			if i > 0 {
				g.out.write(", ")
			}
			g.out.write(propertyKey(name) + ": " + escapeIdent(name))
		}
		g.out.write(" };\n")
	}
	g.out.depth--
	g.popScope()
	g.out.pad()
	g.out.write("})();\n")
}

func appendName(xs []string, s string) []string {
	for _, x := range xs {
		if x == s {
			return xs
		}
	}
	return append(xs, s)
}

func (g *codegen) expr(e Expr) {
	switch x := e.(type) {
	case *NullLit:
		g.out.write("null")
	case *BoolLit:
		g.out.write(strconv.FormatBool(x.Value))
	case *NumberLit:
		g.out.write(formatNumber(x.Value))
	case *StringLit:
		g.out.write(quoteString(x.Value))
	case *Ident:
		g.out.write(escapeIdent(x.Name))
	case *Binary:
		g.out.write("(")
		g.expr(x.Left)
		g.out.write(" " + jsBinOp(x.Op) + " ")
		g.expr(x.Right)
		g.out.write(")")
	case *Unary:
		g.out.write("(" + opText[x.Op])
		g.expr(x.Operand)
		g.out.write(")")
	case *Call:
		g.expr(x.Callee)
		g.out.write("(")
		for i, a := range x.Args {
			if i > 0 {
				g.out.write(", ")
			}
			g.expr(a)
		}
		g.out.write(")")
	case *Lambda:
		g.out.write("((")
		for i, p := range x.Params {
			if i > 0 {
				g.out.write(", ")
			}
			g.out.write(escapeIdent(p))
		}
		g.out.write(") => ")
		g.expr(x.Body)
		g.out.write(")")
	case *If:
		g.out.write("(")
		g.expr(x.Cond)
		g.out.write(" ? ")
		g.expr(x.Then)
		g.out.write(" : ")
		if x.Else != nil {
			g.expr(x.Else)
		} else {
			g.out.write("null")
		}
		g.out.write(")")
	case *Match:
		g.out.write("(null /* match not implemented */)")
	case *Block:
		g.block(x)
	case *ArrayLit:
		g.out.write("[")
		for i, el := range x.Elems {
			if i > 0 {
				g.out.write(", ")
			}
			g.expr(el)
		}
		g.out.write("]")
	case *RecordLit:
		if len(x.Fields) == 0 {
			g.out.write("({})")
			return
		}
		g.out.write("({ ")
		for i, f := range x.Fields {
			if i > 0 {
				g.out.write(", ")
			}
			g.out.write(propertyKey(f.Name) + ": ")
			g.expr(f.Value)
		}
		g.out.write(" })")
	case *Field:
		if _, isNum := x.Obj.(*NumberLit); isNum {
			g.out.write("(")
			g.expr(x.Obj)
			g.out.write(")")
		} else {
			g.expr(x.Obj)
		}
		g.out.write("." + escapeIdent(x.Name))
	case *Index:
		g.expr(x.Coll)
		g.out.write("[")
		g.expr(x.Key)
		g.out.write("]")
	case *Template:
		g.out.write("`")
		for _, part := range x.Parts {
			if part.Expr == nil {
				g.out.write(templateText(part.Text))
				continue
			}
			g.out.write("${")
			g.expr(part.Expr)
			g.out.write("}")
		}
		g.out.write("`")
	case *Pipe:
		// Parse desugars pipes; this only fires on hand-built trees.
		g.expr(desugarExpr(x))
	}
}

// block compiles to an immediately-invoked closure whose return value is
// the last statement's value, null for the declarative forms and for an
// empty body.
func (g *codegen) block(x *Block) {
	g.out.write("(() => {\n")
	g.pushScope()
	g.out.depth++
	if len(x.Stmts) == 0 {
		g.out.line("return null;")
		g.out.nl()
	}
	for i, st := range x.Stmts {
		if i < len(x.Stmts)-1 {
			g.stmt(st)
			continue
		}
		switch s := st.(type) {
		case *ExprStmt:
			g.out.pad()
			g.out.write("return ")
			g.expr(s.E)
			g.out.write(";\n")
		case *Let:
			g.stmt(st)
			g.out.line("return " + escapeIdent(s.Name) + ";")
			g.out.nl()
		case *Const:
			g.stmt(st)
			g.out.line("return " + escapeIdent(s.Name) + ";")
			g.out.nl()
		case *ModuleDecl:
			g.stmt(st)
			g.out.line("return " + escapeIdent(s.Name) + ";")
			g.out.nl()
		default:
			g.stmt(st)
			g.out.line("return null;")
			g.out.nl()
		}
	}
	g.out.depth--
	g.popScope()
	g.out.pad()
	g.out.write("})()")
}

func jsBinOp(op TokenType) string {
	switch op {
	case EQ:
		return "==="
	case NEQ:
		return "!=="
	}
	return opText[op]
}

// templateText escapes cooked text for a template literal body.
func templateText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '`':
			b.WriteString("\\`")
		case '$':
			b.WriteString(`\$`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
