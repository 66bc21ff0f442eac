// SPDX-License-Identifier: MIT

// Package logit distributes origin trip totals over destinations with a
// multinomial logit model.
//
// For every segment:
//
//	Stage 1: values   = expr.Assign(spec, od, symbols)           (shared)
//	Stage 2: weighted = expr.ApplyCoefficients(values, segment)
//	Stage 3: U        = exp(sum over weighted columns)
//	Stage 4: S[o]     = sum of U over rows with origin o
//	Stage 5: P        = U / S[orig]
//	Stage 6: trips    = P * total[orig]
//
// An origin whose utilities sum to zero yields NaN probabilities and NaN
// trips for all its rows. This is reported, not repaired.
//
// Segments are independent and run in parallel on a bounded worker pool;
// results are merged into the trips table in segment order, so the output
// does not depend on scheduling.
package logit
