// builtins.go: host functions available to every program.
//
// Each run gets a freshly built core frame so a print bound to one writer
// can never leak into another run, and nothing a program does can disturb
// later runs.
package weft

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

// newCoreEnv builds the core frame: print, len, str, num, and type.
// print writes through out.
func newCoreEnv(out io.Writer) *Env {
	core := NewEnv(nil)
	bind := func(name string, fn func(args []Value) (Value, error)) {
		core.Define(name, BuiltinVal(&Builtin{Name: name, Fn: fn}))
	}

	bind("print", func(args []Value) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = formatValue(a)
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
		return Null, nil
	})

	bind("len", func(args []Value) (Value, error) {
		v, err := oneArg("len", args)
		if err != nil {
			return Value{}, err
		}
		switch v.Tag {
		case VTStr:
			return Num(float64(utf8.RuneCountInString(v.Data.(string)))), nil
		case VTArr:
			return Num(float64(len(v.Data.([]Value)))), nil
		case VTRec:
			return Num(float64(len(v.Data.(*RecObject).Keys))), nil
		}
		return Value{}, fmt.Errorf("len expects a string, array, or record, found %s", v.TypeName())
	})

	bind("str", func(args []Value) (Value, error) {
		v, err := oneArg("str", args)
		if err != nil {
			return Value{}, err
		}
		return Str(formatValue(v)), nil
	})

	bind("num", func(args []Value) (Value, error) {
		v, err := oneArg("num", args)
		if err != nil {
			return Value{}, err
		}
		switch v.Tag {
		case VTNum:
			return v, nil
		case VTBool:
			if v.Data.(bool) {
				return Num(1), nil
			}
			return Num(0), nil
		case VTStr:
			s := strings.TrimSpace(v.Data.(string))
			f, err := strconv.ParseFloat(s, 64)
			// ParseFloat admits "nan" and "inf" spellings; the language
			// has no non-finite numbers to hold them.
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return Value{}, fmt.Errorf("num cannot convert %q to a number", v.Data.(string))
			}
			return Num(f), nil
		}
		return Value{}, fmt.Errorf("num expects a number, string, or bool, found %s", v.TypeName())
	})

	bind("type", func(args []Value) (Value, error) {
		v, err := oneArg("type", args)
		if err != nil {
			return Value{}, err
		}
		return Str(v.TypeName()), nil
	})

	return core
}

func oneArg(name string, args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("%s expects exactly 1 argument, found %d", name, len(args))
	}
	return args[0], nil
}

// suggest proposes the closest visible name for an undefined-variable
// diagnostic. It tries the unknown name as a pattern over the candidates
// first, then the candidates as patterns over the name, which catches both
// truncated and overlong typos. One-letter names never get a suggestion.
func suggest(name string, candidates []string) string {
	if len(name) < 2 {
		return ""
	}
	if m := fuzzy.Find(name, candidates); len(m) > 0 {
		return m[0].Str
	}
	best, bestScore := "", -1
	for _, c := range candidates {
		if len(c) < 2 {
			continue
		}
		if m := fuzzy.Find(c, []string{name}); len(m) > 0 && m[0].Score > bestScore {
			best, bestScore = c, m[0].Score
		}
	}
	return best
}
