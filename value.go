// value.go: the runtime value model.
//
// Value is a tagged sum over the seven kinds a program can produce. The tag
// determines the dynamic type of Data. Records preserve insertion order via
// RecObject.Keys, and order is significant for display but not for equality.
// Functions and builtins compare by identity; everything else compares
// structurally.
package weft

import (
	"sort"
	"strconv"
	"strings"
)

// ValueTag enumerates the runtime kinds a Value may hold.
type ValueTag int

const (
	VTNull    ValueTag = iota // null (no payload)
	VTBool                    // bool
	VTNum                     // float64
	VTStr                     // string
	VTArr                     // []Value
	VTRec                     // *RecObject (ordered record)
	VTFunc                    // *Closure (user-defined function)
	VTBuiltin                 // *Builtin (host function)
)

// Value is the universal runtime carrier. Data holds the Go value matching
// Tag; when Tag is VTNull, Data is nil.
type Value struct {
	Tag  ValueTag
	Data any
}

// Null is the singleton null Value.
var Null = Value{Tag: VTNull}

// Primitive constructors.
func Bool(b bool) Value         { return Value{Tag: VTBool, Data: b} }
func Num(f float64) Value       { return Value{Tag: VTNum, Data: f} }
func Str(s string) Value        { return Value{Tag: VTStr, Data: s} }
func Arr(xs []Value) Value      { return Value{Tag: VTArr, Data: xs} }
func Rec(r *RecObject) Value    { return Value{Tag: VTRec, Data: r} }
func FuncVal(f *Closure) Value  { return Value{Tag: VTFunc, Data: f} }
func BuiltinVal(b *Builtin) Value { return Value{Tag: VTBuiltin, Data: b} }

// TypeName is the name reported by the type builtin and used in runtime
// error messages.
func (v Value) TypeName() string {
	switch v.Tag {
	case VTNull:
		return "null"
	case VTBool:
		return "bool"
	case VTNum:
		return "number"
	case VTStr:
		return "string"
	case VTArr:
		return "array"
	case VTRec:
		return "record"
	case VTFunc:
		return "function"
	case VTBuiltin:
		return "builtin"
	}
	return "unknown"
}

// String renders the display form: strings keep their quotes and escapes so
// values nested in arrays and records read back unambiguously.
func (v Value) String() string { return displayValue(v) }

// an prefixes a type name with its indefinite article for error messages.
func an(typeName string) string {
	switch typeName[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + typeName
	}
	return "a " + typeName
}

// RecObject is an ordered record. Entries is the key/value storage; Keys is
// the insertion order and holds each key exactly once.
type RecObject struct {
	Entries map[string]Value
	Keys    []string
}

func NewRec() *RecObject {
	return &RecObject{Entries: make(map[string]Value)}
}

// Set binds name to v, appending name to Keys when it is new. Rebinding an
// existing key keeps its original position.
func (r *RecObject) Set(name string, v Value) {
	if _, ok := r.Entries[name]; !ok {
		r.Keys = append(r.Keys, name)
	}
	r.Entries[name] = v
}

func (r *RecObject) Get(name string) (Value, bool) {
	v, ok := r.Entries[name]
	return v, ok
}

// Closure is a user function: parameter names, the body expression, and the
// lexical environment captured at the fn site.
type Closure struct {
	Params []string
	Body   Expr
	Env    *Env
}

// Builtin is a host function value. Fn validates its own arguments and
// reports failures as plain errors; the evaluator attaches the call site.
type Builtin struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

// ----- environments -----

// Env is a lexical frame with a parent link. Lookups walk parent-ward.
// The language has no assignment, so frames only ever gain bindings.
type Env struct {
	parent *Env
	table  map[string]Value
}

// NewEnv creates a frame with the given parent, which may be nil.
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, table: make(map[string]Value)}
}

// Define binds name in this frame, shadowing any outer binding.
func (e *Env) Define(name string, v Value) {
	e.table[name] = v
}

// Get retrieves the nearest visible binding for name.
func (e *Env) Get(name string) (Value, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.table[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Names lists every visible binding, nearest frame first and sorted within
// each frame so suggestion output is deterministic.
func (e *Env) Names() []string {
	seen := make(map[string]bool)
	var out []string
	for s := e; s != nil; s = s.parent {
		frame := make([]string, 0, len(s.table))
		for k := range s.table {
			if !seen[k] {
				seen[k] = true
				frame = append(frame, k)
			}
		}
		sort.Strings(frame)
		out = append(out, frame...)
	}
	return out
}

// ----- rendering -----

// formatValue is the str builtin's rendering: a bare string for VTStr, the
// display form for everything else.
func formatValue(v Value) string {
	if v.Tag == VTStr {
		return v.Data.(string)
	}
	return displayValue(v)
}

func displayValue(v Value) string {
	switch v.Tag {
	case VTNull:
		return "null"
	case VTBool:
		return strconv.FormatBool(v.Data.(bool))
	case VTNum:
		return formatNumber(v.Data.(float64))
	case VTStr:
		return quoteString(v.Data.(string))
	case VTArr:
		var b strings.Builder
		b.WriteByte('[')
		for i, el := range v.Data.([]Value) {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(displayValue(el))
		}
		b.WriteByte(']')
		return b.String()
	case VTRec:
		r := v.Data.(*RecObject)
		if len(r.Keys) == 0 {
			return "{}"
		}
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range r.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(displayValue(r.Entries[k]))
		}
		b.WriteByte('}')
		return b.String()
	case VTFunc:
		return "<function>"
	case VTBuiltin:
		return "<builtin " + v.Data.(*Builtin).Name + ">"
	}
	return "<unknown>"
}

// formatNumber prints the shortest fixed-notation form that reads back as
// the same float64, so 3.0 prints as "3" and 0.1 as "0.1".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// quoteString renders s as a source literal using the language's escape set.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
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
	b.WriteByte('"')
	return b.String()
}

// ----- equality -----

// valuesEqual implements == and pattern-literal comparison: structural for
// arrays and records (record key order is not significant), identity for
// functions and builtins.
func valuesEqual(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case VTNull:
		return true
	case VTBool:
		return a.Data.(bool) == b.Data.(bool)
	case VTNum:
		return a.Data.(float64) == b.Data.(float64)
	case VTStr:
		return a.Data.(string) == b.Data.(string)
	case VTArr:
		x, y := a.Data.([]Value), b.Data.([]Value)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valuesEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case VTRec:
		x, y := a.Data.(*RecObject), b.Data.(*RecObject)
		if len(x.Keys) != len(y.Keys) {
			return false
		}
		for _, k := range x.Keys {
			yv, ok := y.Entries[k]
			if !ok || !valuesEqual(x.Entries[k], yv) {
				return false
			}
		}
		return true
	case VTFunc, VTBuiltin:
		return a.Data == b.Data
	}
	return false
}
