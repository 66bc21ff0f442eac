// SPDX-License-Identifier: MIT

package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnboundSymbol indicates an identifier not found in any scope.
	ErrUnboundSymbol = errors.New("expr: unbound symbol")

	// ErrEvaluation indicates a type or shape error while evaluating an expression.
	ErrEvaluation = errors.New("expr: evaluation error")

	// ErrSyntax indicates an expression that does not parse.
	ErrSyntax = errors.New("expr: syntax error")

	// ErrUnknownTarget indicates a coefficient refers to a target absent from the evaluated table.
	ErrUnknownTarget = errors.New("expr: unknown target")

	// ErrSpec indicates an invalid rule set (bad target names, duplicates, segment mismatch).
	ErrSpec = errors.New("expr: invalid spec")
)

// RuleError reports the rule that failed and the cause.
type RuleError struct {
	Target     string // rule target
	Expression string // raw expression text
	Err        error  // cause
}

// Error implements error.
func (e *RuleError) Error() string {
	return fmt.Sprintf("expr: rule %q (%s): %v", e.Target, e.Expression, e.Err)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *RuleError) Unwrap() error { return e.Err }

// evalErrorf formats an ErrEvaluation with context.
func evalErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrEvaluation)
}
