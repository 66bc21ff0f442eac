// SPDX-License-Identifier: MIT

package skim

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvtdm/matrix"
)

// MemorySource is an in-memory skim container backed by matrix.Dense.
type MemorySource struct {
	rows, cols int
	keys       []string
	skims      map[string]*matrix.Dense
	names      []string
	mappings   map[string][]int
	closed     bool
}

// NewMemorySource returns an empty rows×cols container.
func NewMemorySource(rows, cols int) *MemorySource {
	return &MemorySource{rows: rows, cols: cols, skims: make(map[string]*matrix.Dense), mappings: make(map[string][]int)}
}

// AddSkim stores m under key. m must match the container shape.
func (s *MemorySource) AddSkim(key string, m *matrix.Dense) error {
	if err := matrix.ValidateNotNil(m); err != nil {
		return fmt.Errorf("skim %q: %w", key, err)
	}
	if r, c := m.Shape(); r != s.rows || c != s.cols {
		return fmt.Errorf("skim %q is %dx%d, container is %dx%d: %w", key, r, c, s.rows, s.cols, ErrShapeMismatch)
	}
	if _, ok := s.skims[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.skims[key] = m

	return nil
}

// AddMapping declares a zone mapping: ids[offset] is the zone at that matrix offset.
func (s *MemorySource) AddMapping(name string, ids []int) error {
	if len(ids) != s.rows {
		return fmt.Errorf("mapping %q has %d entries, matrix has %d rows: %w", name, len(ids), s.rows, ErrShapeMismatch)
	}
	if _, ok := s.mappings[name]; !ok {
		s.names = append(s.names, name)
	}
	s.mappings[name] = slices.Clone(ids)

	return nil
}

// Shape implements Source.
func (s *MemorySource) Shape() (int, int) { return s.rows, s.cols }

// Keys implements Source.
func (s *MemorySource) Keys() []string { return slices.Clone(s.keys) }

// Mappings implements Source.
func (s *MemorySource) Mappings() []string { return slices.Clone(s.names) }

// Mapping implements Source.
func (s *MemorySource) Mapping(name string) ([]int, error) {
	ids, ok := s.mappings[name]
	if !ok {
		return nil, fmt.Errorf("mapping %q: %w", name, ErrUnknownMapping)
	}

	return slices.Clone(ids), nil
}

// ReadSubmatrix implements Source via matrix.Dense.Induced.
func (s *MemorySource) ReadSubmatrix(key string, offsets []int) ([]float64, error) {
	m, ok := s.skims[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, ErrUnknownSkimKey)
	}
	sub, err := m.Induced(offsets, offsets)
	if err != nil {
		return nil, err
	}

	return sub.RawData(), nil
}

// Close implements Source.
func (s *MemorySource) Close() error {
	s.closed = true

	return nil
}

// Closed reports whether Close was called.
func (s *MemorySource) Closed() bool { return s.closed }
