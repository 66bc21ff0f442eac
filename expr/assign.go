// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"

	"github.com/katalvlaran/lvtdm/frame"
	"gonum.org/v1/gonum/floats"
)

// DataFrameNamespace is the name of the namespace over OD columns and targets.
const DataFrameNamespace = "df"

// scope holds the targets evaluated so far and resolves names in order:
// targets, OD columns, df, caller symbols.
type scope struct {
	od      *frame.Frame
	targets map[string]Value
	outer   Symbols
}

func (s *scope) Lookup(name string) (Value, bool) {
	if v, ok := s.targets[name]; ok {
		return v, true
	}
	if s.od.Has(name) && !s.od.IsLabel(name) {
		col, _ := s.od.Floats(name)
		return Vector(col), true
	}
	if name == DataFrameNamespace {
		return NamespaceOf(s), true
	}
	if s.outer == nil {
		return Value{}, false
	}

	return s.outer.Lookup(name)
}

// Member implements Namespace for df.<column>: OD columns and targets only.
func (s *scope) Member(name string) (Value, error) {
	if v, ok := s.targets[name]; ok {
		return v, nil
	}
	if s.od.Has(name) && !s.od.IsLabel(name) {
		col, _ := s.od.Floats(name)
		return Vector(col), nil
	}

	return Value{}, fmt.Errorf("df column %q: %w", name, ErrUnboundSymbol)
}

// Assign evaluates every rule of spec in order over the rows of od.
//
// Stage 1 (Prepare): an empty scope over od and symbols.
// Stage 2 (Execute): rule k sees targets 0..k-1; scalar results broadcast to
// od.Len() rows, vector results must have exactly od.Len() entries.
// Stage 3 (Trace): when traceRows is non-empty the trace holds the od
// columns and every target at exactly those rows; otherwise it is nil.
//
// Errors: *RuleError (ErrUnboundSymbol, ErrEvaluation, namespace errors).
//
// Complexity: O(rules * od.Len()) plus namespace loads.
func Assign(spec *Spec, od *frame.Frame, symbols Symbols, traceRows []int) (*frame.Frame, *frame.Frame, error) {
	n := od.Len()
	sc := &scope{od: od, targets: make(map[string]Value, spec.Len()), outer: symbols}
	result := frame.New(n)

	for _, r := range spec.rules {
		v, err := r.expr.Eval(sc)
		if err != nil {
			return nil, nil, &RuleError{Target: r.Target, Expression: r.Expression, Err: err}
		}
		col, err := v.Materialize(n)
		if err != nil {
			return nil, nil, &RuleError{Target: r.Target, Expression: r.Expression, Err: err}
		}
		sc.targets[r.Target] = Vector(col)
		if err = result.SetFloats(r.Target, col); err != nil {
			return nil, nil, &RuleError{Target: r.Target, Expression: r.Expression, Err: err}
		}
	}
	if len(traceRows) == 0 {
		return result, nil, nil
	}

	trace, err := traceFrame(od, result, traceRows)
	if err != nil {
		return nil, nil, err
	}

	return result, trace, nil
}

// traceFrame selects rows of od's columns followed by the result columns.
func traceFrame(od, result *frame.Frame, rows []int) (*frame.Frame, error) {
	left, err := od.Select(rows)
	if err != nil {
		return nil, err
	}
	right, err := result.Select(rows)
	if err != nil {
		return nil, err
	}
	for _, name := range right.Names() {
		col, _ := right.Floats(name)
		if err = left.SetFloats(name, col); err != nil {
			return nil, err
		}
	}

	return left, nil
}

// ApplyCoefficients multiplies every target column of values by the
// segment's coefficient for that rule. Coefficients are scalar expressions
// evaluated against symbols. The result holds one column per target.
//
// Errors:
//   - ErrSpec when segment is not declared.
//   - ErrUnknownTarget when values lacks a target column.
//   - *RuleError when a coefficient does not evaluate to a scalar.
func ApplyCoefficients(values *frame.Frame, spec *Spec, symbols Symbols, segment string) (*frame.Frame, error) {
	if !spec.HasSegment(segment) {
		return nil, fmt.Errorf("segment %q: %w", segment, ErrSpec)
	}
	if symbols == nil {
		symbols = SymbolTable{}
	}
	out := frame.New(values.Len())
	for _, r := range spec.rules {
		col, err := values.Floats(r.Target)
		if err != nil {
			return nil, fmt.Errorf("target %q: %v: %w", r.Target, err, ErrUnknownTarget)
		}
		cv, err := r.coefs[segment].Eval(symbols)
		if err != nil {
			return nil, &RuleError{Target: r.Target, Expression: r.Coefficients[segment], Err: err}
		}
		c, ok := cv.Float()
		if !ok {
			return nil, &RuleError{Target: r.Target, Expression: r.Coefficients[segment],
				Err: evalErrorf("coefficient is a %s, want scalar", cv.Kind())}
		}
		dst := make([]float64, len(col))
		floats.ScaleTo(dst, c, col)
		if err = out.SetFloats(r.Target, dst); err != nil {
			return nil, err
		}
	}

	return out, nil
}
