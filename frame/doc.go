// SPDX-License-Identifier: MIT

// Package frame implements the columnar table shared by every step of the
// trip distribution model: the OD index, the evaluated utilities, the
// wide trips table and the long balancing table are all Frames.
//
// A Frame has a fixed row count and an ordered set of named columns. A
// column is either numeric ([]float64) or a label column ([]string); both
// kinds share one name space. Column order is insertion order, and
// replacing a column keeps its position.
//
// Grouping keys:
//
//	Keys(name) renders any column as strings (labels verbatim, numbers
//	through FormatKey) so that balancing and rollups can group on mixed
//	dimensions with a single map type.
//
// Frames are not safe for concurrent mutation; concurrent readers are fine.
package frame
