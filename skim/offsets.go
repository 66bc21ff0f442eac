// SPDX-License-Identifier: MIT

package skim

import (
	"fmt"
	"slices"
)

// Strategy names the rule used to translate zone IDs into matrix offsets.
type Strategy int

const (
	// StrategyExplicit uses the single zone mapping declared by the container.
	StrategyExplicit Strategy = iota + 1
	// StrategyIdentity uses zone order as offset order (matrix size == zone count).
	StrategyIdentity
	// StrategySequential treats zone IDs as 1-based offsets (offset = id - 1).
	StrategySequential
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case StrategyExplicit:
		return "explicit"
	case StrategyIdentity:
		return "identity"
	case StrategySequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// OffsetMap translates zone IDs (in model zone order) to matrix offsets.
type OffsetMap struct {
	strategy Strategy
	mapping  string // name of the explicit mapping, if any
	offsets  []int  // offsets[i] is the matrix offset of the i-th model zone
}

// Strategy reports which rule produced the map.
func (m *OffsetMap) Strategy() Strategy { return m.strategy }

// MappingName returns the explicit mapping name, or "".
func (m *OffsetMap) MappingName() string { return m.mapping }

// Offsets returns a copy of the per-zone offsets.
func (m *OffsetMap) Offsets() []int { return slices.Clone(m.offsets) }

// buildOffsetMap chooses and applies a strategy.
//
// Implementation:
//   - Stage 1: more than one declared mapping is ambiguous.
//   - Stage 2: one mapping -> explicit positions of each zone ID in it.
//   - Stage 3: size == zone count -> identity; otherwise id - 1.
//   - Stage 4: every offset must fall into [0, size).
//
// Complexity: O(n + size).
func buildOffsetMap(src Source, size int, zoneIDs []int) (*OffsetMap, error) {
	names := src.Mappings()
	if len(names) > 1 {
		return nil, fmt.Errorf("mappings %v: %w", names, ErrAmbiguousMapping)
	}

	m := &OffsetMap{offsets: make([]int, len(zoneIDs))}
	switch {
	case len(names) == 1:
		m.strategy, m.mapping = StrategyExplicit, names[0]
		ids, err := src.Mapping(names[0])
		if err != nil {
			return nil, err
		}
		pos := make(map[int]int, len(ids))
		for off, id := range ids {
			if _, dup := pos[id]; !dup {
				pos[id] = off
			}
		}
		for i, id := range zoneIDs {
			off, ok := pos[id]
			if !ok {
				return nil, fmt.Errorf("zone %d not in mapping %q: %w", id, names[0], ErrUnmappedZone)
			}
			m.offsets[i] = off
		}
	case size == len(zoneIDs):
		m.strategy = StrategyIdentity
		for i := range zoneIDs {
			m.offsets[i] = i
		}
	default:
		m.strategy = StrategySequential
		for i, id := range zoneIDs {
			m.offsets[i] = id - 1
		}
	}

	for i, off := range m.offsets {
		if off < 0 || off >= size {
			return nil, fmt.Errorf("zone %d -> offset %d outside [0,%d) (%s): %w",
				zoneIDs[i], off, size, m.strategy, ErrUnmappedZone)
		}
	}

	return m, nil
}
