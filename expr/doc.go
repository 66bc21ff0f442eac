// SPDX-License-Identifier: MIT

// Package expr evaluates the utility specification of a destination choice
// model: an ordered list of rules, each binding a target name to the value
// of a small arithmetic expression, plus per-segment coefficients.
//
// Values are tagged: Scalar, Vector (one entry per OD row), Function, or
// Namespace (an indexable container such as skims['DIST'] or dest_zone.size).
// Arithmetic broadcasts scalars over vectors; two vectors must have equal
// length.
//
// Grammar, lowest precedence first:
//
//	or   : '|' 'or'
//	and  : '&' 'and'
//	not  : '~' 'not'            (prefix)
//	cmp  : < <= > >= == !=
//	add  : + -
//	mul  : * / // %
//	unary: - +                  (prefix)
//	pow  : **                   (right associative; -x**2 == -(x**2))
//	post : call f(a, b), member a.b, index a['b']
//	atom : number, 'string', identifier, ( expr ), True, False
//
// Comparisons and logical operators yield 1 or 0; any non-zero value is
// true. A leading '@' on an expression is ignored.
//
// Assignment:
//
//	Assign evaluates rules strictly in order. Each target joins the scope
//	as soon as it is evaluated, so later rules see earlier targets; a target
//	shadows an outer symbol of the same name. Name resolution order is:
//	targets, OD columns, caller symbols. The OD table and the targets so
//	far are also reachable as the df namespace (df.orig, df['dist']).
//
// Errors:
//
//	Evaluation failures are *RuleError values naming the rule target; match
//	the cause with errors.Is against ErrUnboundSymbol, ErrEvaluation or
//	ErrSyntax. Failures of namespaces (for example an unknown skim key)
//	are passed through unchanged inside the RuleError.
package expr
