// SPDX-License-Identifier: MIT

package sink

import "errors"

var (
	// ErrInvalidName indicates an empty table or trace name.
	ErrInvalidName = errors.New("sink: invalid table name")

	// ErrNilFrame indicates a nil frame passed for writing.
	ErrNilFrame = errors.New("sink: nil frame")
)
