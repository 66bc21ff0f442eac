// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
	"math"
	"sort"
)

// NumpyNamespace is the name under which MathFunctions are also exposed (np.exp).
const NumpyNamespace = "np"

type builtin struct {
	arity int // exact argument count
	f     func(a []float64) float64
}

var builtins = map[string]builtin{
	"exp":   {1, func(a []float64) float64 { return math.Exp(a[0]) }},
	"log":   {1, func(a []float64) float64 { return math.Log(a[0]) }},
	"log1p": {1, func(a []float64) float64 { return math.Log1p(a[0]) }},
	"sqrt":  {1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"abs":   {1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"floor": {1, func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":  {1, func(a []float64) float64 { return math.Ceil(a[0]) }},
	"isnan": {1, func(a []float64) float64 { return truth(math.IsNaN(a[0])) }},
	"nan_to_num": {1, func(a []float64) float64 {
		switch {
		case math.IsNaN(a[0]):
			return 0
		case math.IsInf(a[0], 1):
			return math.MaxFloat64
		case math.IsInf(a[0], -1):
			return -math.MaxFloat64
		}
		return a[0]
	}},
	"power":   {2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"minimum": {2, func(a []float64) float64 { return math.Min(a[0], a[1]) }},
	"maximum": {2, func(a []float64) float64 { return math.Max(a[0], a[1]) }},
	"where": {3, func(a []float64) float64 {
		if a[0] != 0 {
			return a[1]
		}
		return a[2]
	}},
	"clip": {3, func(a []float64) float64 { return math.Min(math.Max(a[0], a[1]), a[2]) }},
}

// FunctionNames lists the available math functions in sorted order.
func FunctionNames() []string {
	out := make([]string, 0, len(builtins))
	for k := range builtins {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// MathFunctions returns the named elementwise functions, each bound at top
// level and inside the np namespace. With no names, every function is
// included.
//
// Errors: ErrSpec for unknown names.
func MathFunctions(names ...string) (SymbolTable, error) {
	if len(names) == 0 {
		names = FunctionNames()
	}
	np := make(SymbolTable, len(names))
	for _, name := range names {
		b, ok := builtins[name]
		if !ok {
			return nil, fmt.Errorf("math function %q: %w", name, ErrSpec)
		}
		np[name] = Function(b.call(name))
	}
	out := make(SymbolTable, len(np)+1)
	for k, v := range np {
		out[k] = v
	}
	out[NumpyNamespace] = NamespaceOf(np)

	return out, nil
}

func (b builtin) call(name string) Func {
	return func(args []Value) (Value, error) {
		if len(args) != b.arity {
			return Value{}, evalErrorf("%s() takes %d arguments, got %d", name, b.arity, len(args))
		}
		v, err := zip(args, b.f)
		if err != nil {
			return Value{}, fmt.Errorf("%s(): %w", name, err)
		}

		return v, nil
	}
}
