// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
	"slices"
)

// Kind tags a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindScalar
	KindVector
	KindFunction
	KindNamespace
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector"
	case KindFunction:
		return "function"
	case KindNamespace:
		return "namespace"
	default:
		return "invalid"
	}
}

// Func is a callable value. Arguments are already evaluated.
type Func func(args []Value) (Value, error)

// Namespace resolves member and index access (ns.name, ns['name']).
type Namespace interface {
	Member(name string) (Value, error)
}

// Value is the tagged union produced by evaluation.
type Value struct {
	kind Kind
	s    float64
	v    []float64
	fn   Func
	ns   Namespace
}

// Scalar wraps a float64.
func Scalar(x float64) Value { return Value{kind: KindScalar, s: x} }

// Vector wraps v without copying; vectors are treated as immutable.
func Vector(v []float64) Value { return Value{kind: KindVector, v: v} }

// Function wraps a callable.
func Function(fn Func) Value { return Value{kind: KindFunction, fn: fn} }

// NamespaceOf wraps a namespace.
func NamespaceOf(ns Namespace) Value { return Value{kind: KindNamespace, ns: ns} }

// Kind returns the tag.
func (v Value) Kind() Kind { return v.kind }

// Float returns the scalar payload.
func (v Value) Float() (float64, bool) { return v.s, v.kind == KindScalar }

// Floats returns the vector payload (shared).
func (v Value) Floats() ([]float64, bool) { return v.v, v.kind == KindVector }

// numeric reports whether v is a scalar or a vector.
func (v Value) numeric() bool { return v.kind == KindScalar || v.kind == KindVector }

// at returns element i, broadcasting scalars.
func (v Value) at(i int) float64 {
	if v.kind == KindScalar {
		return v.s
	}

	return v.v[i]
}

// Materialize returns v as a new vector of length n, broadcasting scalars.
// The result never shares memory with v.
//
// Errors: ErrEvaluation for non-numeric values and vectors of another length.
func (v Value) Materialize(n int) ([]float64, error) {
	switch v.kind {
	case KindScalar:
		out := make([]float64, n)
		for i := range out {
			out[i] = v.s
		}
		return out, nil
	case KindVector:
		if len(v.v) != n {
			return nil, evalErrorf("vector of length %d, want %d", len(v.v), n)
		}
		return slices.Clone(v.v), nil
	default:
		return nil, evalErrorf("%s value is not numeric", v.kind)
	}
}

// String renders a short description for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		return fmt.Sprintf("%g", v.s)
	case KindVector:
		return fmt.Sprintf("vector[%d]", len(v.v))
	default:
		return v.kind.String()
	}
}
