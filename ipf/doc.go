// SPDX-License-Identifier: MIT

// Package ipf balances a weight column of a table against marginal targets
// by iterative proportional fitting (raking) over any number of dimensions.
//
// An aggregate is a target set over a list of dimension columns. Each
// iteration rescales the weights once per aggregate, in order, so that the
// rows of every group sum to the group's target:
//
//	factor[g] = target[g] / current[g]      (current[g] == 0: factor 1)
//
// After each full pass the convergence statistic is the largest relative
// deviation of any group from its target (|current/target - 1|, or
// |current| for a zero target). The run stops when:
//
//   - statistic <= Closure                              (Converged)
//   - |statistic - previous| < ConvergenceRate          (Converged and Stalled)
//   - MaxIteration passes were made                     (not converged)
//
// ConvergenceRate == 0 disables stall detection.
//
// Targets: Targets(series) pins groups to given values; groups missing from
// the series are left alone, and series keys that match no rows are
// ignored. HoldCurrent() pins every group to its sum in the input table,
// which keeps that margin fixed while other aggregates move.
//
// NaN weights are skipped when summing and stay NaN, so a degenerate
// row does not poison the rest of its groups.
//
// Keys: a multi-dimensional group key is Key(v1, v2, ...) of the rendered
// cell values (numbers through frame.FormatKey).
package ipf
