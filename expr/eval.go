// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

func (n *numberNode) eval(Symbols) (Value, error) { return Scalar(n.v), nil }

func (n *stringNode) eval(Symbols) (Value, error) {
	return Value{}, evalErrorf("string %q is only valid as an index key", n.s)
}

func (n *identNode) eval(s Symbols) (Value, error) {
	v, ok := s.Lookup(n.name)
	if !ok {
		return Value{}, fmt.Errorf("symbol %q: %w", n.name, ErrUnboundSymbol)
	}

	return v, nil
}

func (n *memberNode) eval(s Symbols) (Value, error) {
	x, err := n.x.eval(s)
	if err != nil {
		return Value{}, err
	}
	if x.kind != KindNamespace {
		return Value{}, evalErrorf("member %q of a %s", n.name, x.kind)
	}

	return x.ns.Member(n.name)
}

func (n *indexNode) eval(s Symbols) (Value, error) {
	x, err := n.x.eval(s)
	if err != nil {
		return Value{}, err
	}
	key, ok := n.key.(*stringNode)
	if !ok {
		return Value{}, evalErrorf("index keys must be string literals")
	}
	if x.kind != KindNamespace {
		return Value{}, evalErrorf("index [%q] of a %s", key.s, x.kind)
	}

	return x.ns.Member(key.s)
}

func (n *callNode) eval(s Symbols) (Value, error) {
	fn, err := n.fn.eval(s)
	if err != nil {
		return Value{}, err
	}
	if fn.kind != KindFunction {
		return Value{}, evalErrorf("call of a %s", fn.kind)
	}
	args := make([]Value, len(n.args))
	for i, a := range n.args {
		if args[i], err = a.eval(s); err != nil {
			return Value{}, err
		}
	}

	return fn.fn(args)
}

func (n *unaryNode) eval(s Symbols) (Value, error) {
	x, err := n.x.eval(s)
	if err != nil {
		return Value{}, err
	}
	switch n.op {
	case "+":
		return zip([]Value{x}, func(a []float64) float64 { return a[0] })
	case "-":
		return zip([]Value{x}, func(a []float64) float64 { return -a[0] })
	default: // "~"
		return zip([]Value{x}, func(a []float64) float64 { return truth(a[0] == 0) })
	}
}

func (n *binaryNode) eval(s Symbols) (Value, error) {
	l, err := n.l.eval(s)
	if err != nil {
		return Value{}, err
	}
	r, err := n.r.eval(s)
	if err != nil {
		return Value{}, err
	}
	if v, ok := fastArith(n.op, l, r); ok {
		return v, nil
	}
	f, ok := binaryFuncs[n.op]
	if !ok {
		return Value{}, evalErrorf("unknown operator %q", n.op)
	}

	return zip([]Value{l, r}, func(a []float64) float64 { return f(a[0], a[1]) })
}

func truth(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

var binaryFuncs = map[string]func(a, b float64) float64{
	"+":  func(a, b float64) float64 { return a + b },
	"-":  func(a, b float64) float64 { return a - b },
	"*":  func(a, b float64) float64 { return a * b },
	"/":  func(a, b float64) float64 { return a / b },
	"//": func(a, b float64) float64 { return math.Floor(a / b) },
	"%":  func(a, b float64) float64 { return a - b*math.Floor(a/b) },
	"**": math.Pow,
	"<":  func(a, b float64) float64 { return truth(a < b) },
	"<=": func(a, b float64) float64 { return truth(a <= b) },
	">":  func(a, b float64) float64 { return truth(a > b) },
	">=": func(a, b float64) float64 { return truth(a >= b) },
	"==": func(a, b float64) float64 { return truth(a == b) },
	"!=": func(a, b float64) float64 { return truth(a != b) },
	"&":  func(a, b float64) float64 { return truth(a != 0 && b != 0) },
	"|":  func(a, b float64) float64 { return truth(a != 0 || b != 0) },
}

// fastArith handles + - * / on equal-length vectors and scalar/vector pairs with gonum kernels.
func fastArith(op string, l, r Value) (Value, bool) {
	if !l.numeric() || !r.numeric() || (l.kind == KindScalar && r.kind == KindScalar) {
		return Value{}, false
	}
	switch {
	case l.kind == KindVector && r.kind == KindVector:
		if len(l.v) != len(r.v) {
			return Value{}, false // zip reports the mismatch
		}
		dst := make([]float64, len(l.v))
		switch op {
		case "+":
			floats.AddTo(dst, l.v, r.v)
		case "-":
			floats.SubTo(dst, l.v, r.v)
		case "*":
			floats.MulTo(dst, l.v, r.v)
		case "/":
			floats.DivTo(dst, l.v, r.v)
		default:
			return Value{}, false
		}
		return Vector(dst), true
	case l.kind == KindVector && (op == "*" || op == "+"):
		dst := make([]float64, len(l.v))
		if op == "*" {
			floats.ScaleTo(dst, r.s, l.v)
		} else {
			copy(dst, l.v)
			floats.AddConst(r.s, dst)
		}
		return Vector(dst), true
	case r.kind == KindVector && (op == "*" || op == "+"):
		return fastArith(op, r, l)
	}

	return Value{}, false
}

// zip applies f elementwise over scalars and equal-length vectors.
//
// Errors: ErrEvaluation for non-numeric arguments or vector length mismatch.
func zip(args []Value, f func(a []float64) float64) (Value, error) {
	n := -1
	for i, a := range args {
		if !a.numeric() {
			return Value{}, evalErrorf("argument %d is a %s, want scalar or vector", i, a.kind)
		}
		if a.kind == KindVector {
			if n >= 0 && len(a.v) != n {
				return Value{}, evalErrorf("vector length mismatch %d vs %d", n, len(a.v))
			}
			n = len(a.v)
		}
	}
	buf := make([]float64, len(args))
	if n < 0 {
		for i, a := range args {
			buf[i] = a.s
		}
		return Scalar(f(buf)), nil
	}
	out := make([]float64, n)
	for k := range out {
		for i, a := range args {
			buf[i] = a.at(k)
		}
		out[k] = f(buf)
	}

	return Vector(out), nil
}
