// SPDX-License-Identifier: MIT

package skim

import "errors"

var (
	// ErrMatrixNotFound indicates the provider has no skim container under the requested name.
	ErrMatrixNotFound = errors.New("skim: matrix not found")

	// ErrShapeMismatch indicates a non-square container or skims of differing shapes.
	ErrShapeMismatch = errors.New("skim: shape mismatch")

	// ErrAmbiguousMapping indicates more than one declared zone mapping.
	ErrAmbiguousMapping = errors.New("skim: ambiguous zone mapping")

	// ErrUnknownSkimKey indicates a Fetch of a key the container does not hold.
	ErrUnknownSkimKey = errors.New("skim: unknown skim key")

	// ErrUnmappedZone indicates a zone ID with no valid offset under the chosen strategy.
	ErrUnmappedZone = errors.New("skim: zone has no matrix offset")

	// ErrUnknownMapping indicates a request for a mapping name the container does not declare.
	ErrUnknownMapping = errors.New("skim: unknown mapping")

	// ErrNoOffsetMap indicates Fetch before BuildOffsetMap.
	ErrNoOffsetMap = errors.New("skim: offset map not built")

	// ErrReleased indicates use of a handle after Release.
	ErrReleased = errors.New("skim: handle released")
)
