// SPDX-License-Identifier: MIT

package pipeline

import "errors"

var (
	// ErrUnknownStep indicates a model name with no registered step.
	ErrUnknownStep = errors.New("pipeline: unknown step")

	// ErrMissingTable indicates a step input that no earlier step registered.
	ErrMissingTable = errors.New("pipeline: missing table")

	// ErrNoOutputRoot indicates SQLite output without a host output directory.
	ErrNoOutputRoot = errors.New("pipeline: sqlite output needs an output root")
)
