// SPDX-License-Identifier: MIT

// Package balance adjusts the distributed trips table so that zone trip
// totals match external targets.
//
// The wide trips table (orig, dest, one column per segment) is melted into
// long rows (orig, dest, segment, trips) and raked with package ipf against
// one aggregate per level, destination first and origin second:
//
//	no targets          hold the existing [level, segment] sums
//	Total: column       1-D targets on [level] from a zone column
//	Segments: seg->col  2-D targets on [level, segment] from zone columns
//
// When raking does not converge the unbalanced table is kept and the
// iteration log is returned as a diagnostic table. AcceptUnconverged keeps
// the raked table instead.
package balance
