// interp.go: the tree-walking evaluator.
//
// OVERVIEW
// ========
// An Interp evaluates parsed programs against a persistent global frame, the
// way a REPL expects: bindings made by one InterpretPersistent call are
// visible to the next. Interpret and Eval instead run in a throwaway child
// of the globals, so one-shot runs cannot pollute later ones.
//
// Every run rebuilds the core frame of builtins from the current Out writer
// and rehangs the globals onto it, so changing Out between runs redirects
// print without rebuilding the Interp, and no builtin state is shared
// between runs.
//
// Evaluation is fail-fast: the first runtime error aborts the run and
// surfaces as a *RuntimeError carrying the 1-based source position of the
// failing expression. There is no exception handling in the language and no
// panic/recover discipline in the evaluator; every eval path returns
// (Value, error) explicitly.
//
// SCOPING
// -------
// Environments form a lexical chain: core (builtins) <- globals <- run
// frames <- function frames. let and const bind in the current frame and
// shadow outer bindings. Functions capture their defining environment by
// reference, which is what makes let rec-style self reference work: the
// closure sees the binding its own let completes.
//
// An Interp is not safe for concurrent use. Create one per goroutine.
package weft

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
)

// maxCallDepth bounds user-level call nesting so runaway recursion surfaces
// as a runtime error instead of exhausting the Go stack.
const maxCallDepth = 5000

// Interp evaluates programs. The zero value is not ready; use NewInterp.
type Interp struct {
	// Out receives print output. When nil, os.Stdout is used. The writer
	// is re-read at the start of every run.
	Out io.Writer

	globals *Env
	depth   int
}

// NewInterp returns an interpreter with empty persistent globals.
func NewInterp() *Interp {
	return &Interp{globals: NewEnv(nil)}
}

// Interpret parses and evaluates source in a fresh child of the globals.
// Bindings made by the program are discarded afterwards. The result is the
// value of the last statement, or Null for an empty program.
func (ip *Interp) Interpret(source string) (Value, error) {
	prog, errs := Parse(source)
	if errs != nil {
		return Null, errs
	}
	return ip.run(prog, NewEnv(ip.prepareGlobals()))
}

// InterpretPersistent parses and evaluates source directly in the globals,
// REPL-style: bindings persist into later calls.
func (ip *Interp) InterpretPersistent(source string) (Value, error) {
	prog, errs := Parse(source)
	if errs != nil {
		return Null, errs
	}
	return ip.run(prog, ip.prepareGlobals())
}

// Eval evaluates a pre-parsed program in a fresh child of the globals.
// Pipe nodes are desugared first, so hand-built trees behave like parsed
// ones.
func (ip *Interp) Eval(prog *Program) (Value, error) {
	desugarProgram(prog)
	return ip.run(prog, NewEnv(ip.prepareGlobals()))
}

// GlobalNames lists the persistent global bindings in sorted order. Core
// builtins are not included; they live in a frame below the globals.
func (ip *Interp) GlobalNames() []string {
	names := make([]string, 0, len(ip.globals.table))
	for name := range ip.globals.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Interpret runs source in a one-shot interpreter printing to stdout.
// Callers that need a custom writer or persistent state use NewInterp.
func Interpret(source string) (Value, error) {
	return NewInterp().Interpret(source)
}

//// END_OF_PUBLIC

// prepareGlobals rebuilds the core frame from the current writer and
// rehangs the persistent globals onto it.
func (ip *Interp) prepareGlobals() *Env {
	ip.globals.parent = newCoreEnv(ip.writer())
	return ip.globals
}

func (ip *Interp) writer() io.Writer {
	if ip.Out != nil {
		return ip.Out
	}
	return os.Stdout
}

func (ip *Interp) run(prog *Program, env *Env) (Value, error) {
	ip.depth = 0
	return ip.evalStmts(prog.Stmts, env)
}

func (ip *Interp) evalStmts(stmts []Stmt, env *Env) (Value, error) {
	result := Null
	for _, st := range stmts {
		v, err := ip.evalStmt(st, env)
		if err != nil {
			return Null, err
		}
		result = v
	}
	return result, nil
}

// evalStmt yields the statement's value: the bound value for let and const,
// the exports record for module, null for the declarative forms.
func (ip *Interp) evalStmt(st Stmt, env *Env) (Value, error) {
	switch s := st.(type) {
	case *Let:
		v, err := ip.evalExpr(s.Value, env)
		if err != nil {
			return Null, err
		}
		env.Define(s.Name, v)
		return v, nil
	case *Const:
		v, err := ip.evalExpr(s.Value, env)
		if err != nil {
			return Null, err
		}
		env.Define(s.Name, v)
		return v, nil
	case *ExprStmt:
		return ip.evalExpr(s.E, env)
	case *TypeDecl:
		// Types are erased at runtime.
		return Null, nil
	case *ModuleDecl:
		return ip.evalModule(s, env)
	case *Import:
		return Null, nil
	case *Export:
		if _, ok := env.Get(s.Name); !ok {
			return Null, ip.undefined(s.Pos(), s.Name, env)
		}
		return Null, nil
	}
	return Null, rtErr(st.Pos(), "unsupported statement")
}

// evalModule runs the body in a child frame and collects the exported
// bindings, in export order, into a record bound to the module's name in
// the enclosing scope. Unexported bindings stay private to the body.
func (ip *Interp) evalModule(m *ModuleDecl, env *Env) (Value, error) {
	inner := NewEnv(env)
	exports := NewRec()
	for _, st := range m.Body {
		if _, err := ip.evalStmt(st, inner); err != nil {
			return Null, err
		}
		switch s := st.(type) {
		case *Let:
			if s.Exported {
				v, _ := inner.Get(s.Name)
				exports.Set(s.Name, v)
			}
		case *Const:
			if s.Exported {
				v, _ := inner.Get(s.Name)
				exports.Set(s.Name, v)
			}
		case *Export:
			v, _ := inner.Get(s.Name)
			exports.Set(s.Name, v)
		}
	}
	rec := Rec(exports)
	env.Define(m.Name, rec)
	return rec, nil
}

func (ip *Interp) evalExpr(e Expr, env *Env) (Value, error) {
	switch x := e.(type) {
	case *NullLit:
		return Null, nil
	case *BoolLit:
		return Bool(x.Value), nil
	case *NumberLit:
		return Num(x.Value), nil
	case *StringLit:
		return Str(x.Value), nil
	case *Ident:
		v, ok := env.Get(x.Name)
		if !ok {
			return Null, ip.undefined(x.Pos(), x.Name, env)
		}
		return v, nil
	case *Binary:
		if x.Op == AND || x.Op == OR {
			return ip.evalLogic(x, env)
		}
		l, err := ip.evalExpr(x.Left, env)
		if err != nil {
			return Null, err
		}
		r, err := ip.evalExpr(x.Right, env)
		if err != nil {
			return Null, err
		}
		return ip.binaryOp(x, l, r)
	case *Unary:
		return ip.evalUnary(x, env)
	case *Call:
		callee, err := ip.evalExpr(x.Callee, env)
		if err != nil {
			return Null, err
		}
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			if args[i], err = ip.evalExpr(a, env); err != nil {
				return Null, err
			}
		}
		return ip.apply(x.Pos(), callee, args)
	case *Lambda:
		return FuncVal(&Closure{Params: x.Params, Body: x.Body, Env: env}), nil
	case *If:
		cond, err := ip.evalExpr(x.Cond, env)
		if err != nil {
			return Null, err
		}
		if cond.Tag != VTBool {
			return Null, rtErr(x.Pos(), "if condition must be a boolean, found %s", cond.TypeName())
		}
		if cond.Data.(bool) {
			return ip.evalExpr(x.Then, env)
		}
		if x.Else == nil {
			return Null, nil
		}
		return ip.evalExpr(x.Else, env)
	case *Match:
		return Null, rtErr(x.Pos(), "match expressions are not implemented yet")
	case *Block:
		return ip.evalStmts(x.Stmts, NewEnv(env))
	case *ArrayLit:
		elems := make([]Value, len(x.Elems))
		for i, el := range x.Elems {
			v, err := ip.evalExpr(el, env)
			if err != nil {
				return Null, err
			}
			elems[i] = v
		}
		return Arr(elems), nil
	case *RecordLit:
		rec := NewRec()
		for _, f := range x.Fields {
			v, err := ip.evalExpr(f.Value, env)
			if err != nil {
				return Null, err
			}
			rec.Set(f.Name, v)
		}
		return Rec(rec), nil
	case *Field:
		obj, err := ip.evalExpr(x.Obj, env)
		if err != nil {
			return Null, err
		}
		if obj.Tag != VTRec {
			return Null, rtErr(x.Pos(), "cannot read field '%s' of %s", x.Name, an(obj.TypeName()))
		}
		v, ok := obj.Data.(*RecObject).Get(x.Name)
		if !ok {
			return Null, rtErr(x.Pos(), "record has no field '%s'", x.Name)
		}
		return v, nil
	case *Index:
		return ip.evalIndex(x, env)
	case *Template:
		var b strings.Builder
		for _, part := range x.Parts {
			if part.Expr == nil {
				b.WriteString(part.Text)
				continue
			}
			v, err := ip.evalExpr(part.Expr, env)
			if err != nil {
				return Null, err
			}
			switch v.Tag {
			case VTNull, VTBool, VTNum, VTStr:
				b.WriteString(formatValue(v))
			default:
				return Null, rtErr(part.Expr.Pos(), "cannot interpolate %s into a string template", an(v.TypeName()))
			}
		}
		return Str(b.String()), nil
	}
	return Null, rtErr(e.Pos(), "unsupported expression")
}

// apply dispatches a call. Closures get a strict arity check and a fresh
// frame under their captured environment; builtin failures are stamped with
// the call site.
func (ip *Interp) apply(pos Position, callee Value, args []Value) (Value, error) {
	switch callee.Tag {
	case VTFunc:
		fn := callee.Data.(*Closure)
		if len(args) != len(fn.Params) {
			return Null, rtErr(pos, "function expects %d arguments, found %d", len(fn.Params), len(args))
		}
		if ip.depth >= maxCallDepth {
			return Null, rtErr(pos, "maximum call depth exceeded")
		}
		ip.depth++
		defer func() { ip.depth-- }()
		frame := NewEnv(fn.Env)
		for i, p := range fn.Params {
			frame.Define(p, args[i])
		}
		return ip.evalExpr(fn.Body, frame)
	case VTBuiltin:
		v, err := callee.Data.(*Builtin).Fn(args)
		if err != nil {
			return Null, rtErr(pos, "%s", err.Error())
		}
		return v, nil
	}
	return Null, rtErr(pos, "cannot call %s", an(callee.TypeName()))
}

func (ip *Interp) evalLogic(x *Binary, env *Env) (Value, error) {
	op := opText[x.Op]
	l, err := ip.evalExpr(x.Left, env)
	if err != nil {
		return Null, err
	}
	if l.Tag != VTBool {
		return Null, rtErr(x.Pos(), "'%s' expects boolean operands, found %s", op, l.TypeName())
	}
	if x.Op == AND && !l.Data.(bool) {
		return Bool(false), nil
	}
	if x.Op == OR && l.Data.(bool) {
		return Bool(true), nil
	}
	r, err := ip.evalExpr(x.Right, env)
	if err != nil {
		return Null, err
	}
	if r.Tag != VTBool {
		return Null, rtErr(x.Pos(), "'%s' expects boolean operands, found %s", op, r.TypeName())
	}
	return r, nil
}

func (ip *Interp) evalUnary(x *Unary, env *Env) (Value, error) {
	v, err := ip.evalExpr(x.Operand, env)
	if err != nil {
		return Null, err
	}
	switch x.Op {
	case MINUS:
		if v.Tag != VTNum {
			return Null, rtErr(x.Pos(), "unary '-' expects a number, found %s", v.TypeName())
		}
		return Num(-v.Data.(float64)), nil
	case BANG:
		if v.Tag != VTBool {
			return Null, rtErr(x.Pos(), "'!' expects a boolean, found %s", v.TypeName())
		}
		return Bool(!v.Data.(bool)), nil
	}
	return Null, rtErr(x.Pos(), "unsupported unary operator")
}

func (ip *Interp) binaryOp(x *Binary, l, r Value) (Value, error) {
	op := opText[x.Op]
	switch x.Op {
	case EQ:
		return Bool(valuesEqual(l, r)), nil
	case NEQ:
		return Bool(!valuesEqual(l, r)), nil
	case PLUS:
		if l.Tag == VTNum && r.Tag == VTNum {
			return Num(l.Data.(float64) + r.Data.(float64)), nil
		}
		if l.Tag == VTStr && r.Tag == VTStr {
			return Str(l.Data.(string) + r.Data.(string)), nil
		}
		return Null, rtErr(x.Pos(), "'%s' expects two numbers or two strings, found %s and %s", op, l.TypeName(), r.TypeName())
	case MINUS, STAR, SLASH, PERCENT:
		if l.Tag != VTNum || r.Tag != VTNum {
			return Null, rtErr(x.Pos(), "'%s' expects two numbers, found %s and %s", op, l.TypeName(), r.TypeName())
		}
		a, b := l.Data.(float64), r.Data.(float64)
		switch x.Op {
		case MINUS:
			return Num(a - b), nil
		case STAR:
			return Num(a * b), nil
		case SLASH:
			if b == 0 {
				return Null, rtErr(x.Pos(), "division by zero")
			}
			return Num(a / b), nil
		default:
			if b == 0 {
				return Null, rtErr(x.Pos(), "modulo by zero")
			}
			return Num(math.Mod(a, b)), nil
		}
	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		if l.Tag == VTNum && r.Tag == VTNum {
			return orderResult(x.Op, compareFloats(l.Data.(float64), r.Data.(float64))), nil
		}
		if l.Tag == VTStr && r.Tag == VTStr {
			return orderResult(x.Op, strings.Compare(l.Data.(string), r.Data.(string))), nil
		}
		return Null, rtErr(x.Pos(), "'%s' expects two numbers or two strings, found %s and %s", op, l.TypeName(), r.TypeName())
	}
	return Null, rtErr(x.Pos(), "unsupported operator '%s'", op)
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderResult(op TokenType, cmp int) Value {
	switch op {
	case LESS:
		return Bool(cmp < 0)
	case LESS_EQ:
		return Bool(cmp <= 0)
	case GREATER:
		return Bool(cmp > 0)
	default:
		return Bool(cmp >= 0)
	}
}

func (ip *Interp) evalIndex(x *Index, env *Env) (Value, error) {
	coll, err := ip.evalExpr(x.Coll, env)
	if err != nil {
		return Null, err
	}
	key, err := ip.evalExpr(x.Key, env)
	if err != nil {
		return Null, err
	}
	switch coll.Tag {
	case VTArr:
		xs := coll.Data.([]Value)
		i, err := wantIndex(x.Pos(), key)
		if err != nil {
			return Null, err
		}
		if i < 0 || i >= len(xs) {
			return Null, rtErr(x.Pos(), "array index %d out of range (length %d)", i, len(xs))
		}
		return xs[i], nil
	case VTStr:
		runes := []rune(coll.Data.(string))
		i, err := wantIndex(x.Pos(), key)
		if err != nil {
			return Null, err
		}
		if i < 0 || i >= len(runes) {
			return Null, rtErr(x.Pos(), "string index %d out of range (length %d)", i, len(runes))
		}
		return Str(string(runes[i])), nil
	case VTRec:
		if key.Tag != VTStr {
			return Null, rtErr(x.Pos(), "record index must be a string, found %s", key.TypeName())
		}
		name := key.Data.(string)
		v, ok := coll.Data.(*RecObject).Get(name)
		if !ok {
			return Null, rtErr(x.Pos(), "record has no field '%s'", name)
		}
		return v, nil
	}
	return Null, rtErr(x.Pos(), "cannot index %s", an(coll.TypeName()))
}

func wantIndex(pos Position, key Value) (int, error) {
	if key.Tag != VTNum {
		return 0, rtErr(pos, "index must be a number, found %s", key.TypeName())
	}
	f := key.Data.(float64)
	if f != math.Trunc(f) {
		return 0, rtErr(pos, "index must be an integer, found %s", formatNumber(f))
	}
	return int(f), nil
}

func (ip *Interp) undefined(pos Position, name string, env *Env) *RuntimeError {
	msg := "undefined variable: " + name
	if s := suggest(name, env.Names()); s != "" {
		msg += fmt.Sprintf(" (did you mean '%s'?)", s)
	}
	return rtErr(pos, "%s", msg)
}
