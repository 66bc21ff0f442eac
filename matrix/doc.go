// SPDX-License-Identifier: MIT

// Package matrix provides the dense, row-major float64 storage used as the
// in-memory backing of skim matrices.
//
// What:
//
//   - Dense: a contiguous r×c buffer addressed as i*c + j.
//   - Safe accessors: At/Set return sentinel errors instead of panicking.
//   - Induced: copy-based extraction of an arbitrary row/column selection,
//     the primitive behind "read only the mapped offsets" in skim sources.
//   - A numeric policy (NaN/Inf rejection in Set) controlled by options.
//
// Why:
//
//   - Skim matrices are square zone×zone tables; a flat slice keeps the
//     row-major flattening of an OD vector a straight copy.
//   - Travel-time skims legitimately carry +Inf ("unreachable") and NaN
//     ("not computed") cells, so the numeric policy is opt-in per matrix.
//
// Complexity quicksheet:
//
//   - NewDense: O(r*c); At/Set: O(1); Clone: O(r*c); Induced: O(r'*c'); Row: O(c).
//
// Errors (sentinels, match with errors.Is):
//
//   - ErrInvalidDimensions, ErrOutOfRange, ErrNonSquare, ErrNaNInf,
//     ErrDimensionMismatch, ErrNilMatrix.
package matrix
