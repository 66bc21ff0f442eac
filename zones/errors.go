// SPDX-License-Identifier: MIT

package zones

import "errors"

var (
	// ErrDuplicateZone indicates the same zone ID was listed twice.
	ErrDuplicateZone = errors.New("zones: duplicate zone id")

	// ErrEmptyTable indicates a zone table without zones.
	ErrEmptyTable = errors.New("zones: empty zone table")

	// ErrUnknownZone indicates a lookup of a zone ID not in the table.
	ErrUnknownZone = errors.New("zones: unknown zone id")

	// ErrUnknownColumn indicates a missing attribute column.
	ErrUnknownColumn = errors.New("zones: unknown column")

	// ErrLengthMismatch indicates an attribute column with the wrong number of values.
	ErrLengthMismatch = errors.New("zones: column length mismatch")

	// ErrZoneMismatch indicates zone tables that do not share the same index.
	ErrZoneMismatch = errors.New("zones: zone tables do not share the same index")
)
