// SPDX-License-Identifier: MIT

package config

import "errors"

var (
	// ErrConfiguration indicates an invalid or incomplete settings file.
	ErrConfiguration = errors.New("config: invalid configuration")

	// ErrMalformedCSV indicates a CSV input that does not have the expected shape.
	ErrMalformedCSV = errors.New("config: malformed csv")

	// ErrReadOnly is returned by writes to a file opened for reading.
	ErrReadOnly = errors.New("config: read-only file")
)
