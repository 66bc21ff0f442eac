// SPDX-License-Identifier: MIT

package frame

import "errors"

var (
	// ErrUnknownColumn is returned when a named column does not exist.
	ErrUnknownColumn = errors.New("frame: unknown column")

	// ErrLengthMismatch is returned when a column length differs from Len().
	ErrLengthMismatch = errors.New("frame: column length mismatch")

	// ErrColumnKind is returned when a numeric column is requested as labels or vice versa.
	ErrColumnKind = errors.New("frame: wrong column kind")

	// ErrRowOutOfRange is returned by Select for indices outside [0, Len).
	ErrRowOutOfRange = errors.New("frame: row out of range")
)
