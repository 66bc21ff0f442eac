// SPDX-License-Identifier: MIT

package skim

import (
	"fmt"
	"io"
	"sync"

	"github.com/ctessum/cdf"
)

// NetCDFSource reads skims from a NetCDF classic file.
//
// Layout:
//   - every 2-D variable is a skim; all must share one shape;
//   - every 1-D variable whose length equals the row count is a zone mapping.
type NetCDFSource struct {
	mu       sync.Mutex // cdf readers share the underlying ReaderAt offsets table
	f        *cdf.File
	closer   io.Closer
	rows     int
	cols     int
	keys     []string
	mappings []string
}

// OpenNetCDF parses the header of rw. closer, if non-nil, is closed by Close.
//
// Errors: ErrShapeMismatch (no skims or skims of differing shapes), cdf parse errors.
func OpenNetCDF(rw cdf.ReaderWriterAt, closer io.Closer) (*NetCDFSource, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("netcdf open: %w", err)
	}
	s := &NetCDFSource{f: f, closer: closer}

	var ones []string
	for _, v := range f.Header.Variables() {
		lens := f.Header.Lengths(v)
		switch len(lens) {
		case 2:
			if len(s.keys) == 0 {
				s.rows, s.cols = lens[0], lens[1]
			} else if lens[0] != s.rows || lens[1] != s.cols {
				return nil, fmt.Errorf("netcdf variable %q is %dx%d, expected %dx%d: %w",
					v, lens[0], lens[1], s.rows, s.cols, ErrShapeMismatch)
			}
			s.keys = append(s.keys, v)
		case 1:
			ones = append(ones, v)
		}
	}
	if len(s.keys) == 0 {
		return nil, fmt.Errorf("netcdf file has no 2-D variables: %w", ErrShapeMismatch)
	}
	for _, v := range ones {
		if f.Header.Lengths(v)[0] == s.rows {
			s.mappings = append(s.mappings, v)
		}
	}

	return s, nil
}

// Shape implements Source.
func (s *NetCDFSource) Shape() (int, int) { return s.rows, s.cols }

// Keys implements Source.
func (s *NetCDFSource) Keys() []string { return append([]string(nil), s.keys...) }

// Mappings implements Source.
func (s *NetCDFSource) Mappings() []string { return append([]string(nil), s.mappings...) }

// Mapping implements Source.
func (s *NetCDFSource) Mapping(name string) ([]int, error) {
	found := false
	for _, m := range s.mappings {
		found = found || m == name
	}
	if !found {
		return nil, fmt.Errorf("mapping %q: %w", name, ErrUnknownMapping)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	vals, err := s.read(name, []int{0}, []int{s.rows}, s.rows)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(vals))
	for i, v := range vals {
		ids[i] = int(v)
	}

	return ids, nil
}

// ReadSubmatrix implements Source. Only the rows at offsets are read from
// the file; columns are picked out of each row in offset order.
//
// Complexity: O(len(offsets) * cols) reads, O(len(offsets)²) output.
func (s *NetCDFSource) ReadSubmatrix(key string, offsets []int) ([]float64, error) {
	known := false
	for _, k := range s.keys {
		known = known || k == key
	}
	if !known {
		return nil, fmt.Errorf("key %q: %w", key, ErrUnknownSkimKey)
	}
	n := len(offsets)
	out := make([]float64, n*n)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range offsets {
		if r < 0 || r >= s.rows {
			return nil, fmt.Errorf("key %q row offset %d: %w", key, r, ErrUnmappedZone)
		}
		row, err := s.read(key, []int{r, 0}, []int{r + 1, s.cols}, s.cols)
		if err != nil {
			return nil, err
		}
		for j, c := range offsets {
			if c < 0 || c >= s.cols {
				return nil, fmt.Errorf("key %q col offset %d: %w", key, c, ErrUnmappedZone)
			}
			out[i*n+j] = row[c]
		}
	}

	return out, nil
}

// read pulls n values of variable v in [begin, end) and widens them to float64.
func (s *NetCDFSource) read(v string, begin, end []int, n int) ([]float64, error) {
	r := s.f.Reader(v, begin, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("netcdf read %q: %w", v, err)
	}
	out := make([]float64, n)
	switch b := buf.(type) {
	case []float64:
		copy(out, b)
	case []float32:
		for i, x := range b {
			out[i] = float64(x)
		}
	case []int32:
		for i, x := range b {
			out[i] = float64(x)
		}
	case []int16:
		for i, x := range b {
			out[i] = float64(x)
		}
	case []int8:
		for i, x := range b {
			out[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("netcdf variable %q has unsupported type %T", v, buf)
	}

	return out, nil
}

// Close implements Source.
func (s *NetCDFSource) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}
