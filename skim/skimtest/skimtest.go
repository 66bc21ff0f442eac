// SPDX-License-Identifier: MIT

// Package skimtest provides fixtures for code that consumes skims: an
// in-memory io.ReaderAt/io.WriterAt buffer, a NetCDF writer for square
// skim files and a Source wrapper that counts reads.
package skimtest

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ctessum/cdf"
	"github.com/katalvlaran/lvtdm/skim"
)

// Buffer is a growable byte slice implementing io.ReaderAt and io.WriterAt.
type Buffer struct {
	mu sync.Mutex
	b  []byte
}

// NewBuffer returns a buffer over a copy of b.
func NewBuffer(b []byte) *Buffer { return &Buffer{b: append([]byte(nil), b...)} }

// Bytes returns a copy of the contents.
func (x *Buffer) Bytes() []byte {
	x.mu.Lock()
	defer x.mu.Unlock()

	return append([]byte(nil), x.b...)
}

// ReadAt implements io.ReaderAt.
func (x *Buffer) ReadAt(p []byte, off int64) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if off >= int64(len(x.b)) {
		return 0, io.EOF
	}
	n := copy(p, x.b[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// WriteAt implements io.WriterAt.
func (x *Buffer) WriteAt(p []byte, off int64) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if end := int(off) + len(p); end > len(x.b) {
		x.b = append(x.b, make([]byte, end-len(x.b))...)
	}

	return copy(x.b[off:], p), nil
}

// WriteNetCDF writes size×size skims (row-major data per key) and 1-D
// int32 zone mappings into w.
func WriteNetCDF(w cdf.ReaderWriterAt, size int, skims map[string][]float64, mappings map[string][]int) error {
	h := cdf.NewHeader([]string{"otaz", "dtaz"}, []int{size, size})
	keys := sortedKeys(skims)
	for _, k := range keys {
		h.AddVariable(k, []string{"otaz", "dtaz"}, []float64{0})
	}
	names := sortedKeys(mappings)
	for _, m := range names {
		h.AddVariable(m, []string{"otaz"}, []int32{0})
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("create netcdf: %w", err)
	}
	for _, k := range keys {
		if len(skims[k]) != size*size {
			return fmt.Errorf("skim %q has %d values, want %d", k, len(skims[k]), size*size)
		}
		if _, err = f.Writer(k, nil, nil).Write(skims[k]); err != nil {
			return fmt.Errorf("write %q: %w", k, err)
		}
	}
	for _, m := range names {
		ids := make([]int32, len(mappings[m]))
		for i, v := range mappings[m] {
			ids[i] = int32(v)
		}
		if _, err = f.Writer(m, nil, nil).Write(ids); err != nil {
			return fmt.Errorf("write %q: %w", m, err)
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// CountingSource wraps a Source and counts ReadSubmatrix calls per key.
type CountingSource struct {
	skim.Source
	mu    sync.Mutex
	reads map[string]int
}

// Count wraps src.
func Count(src skim.Source) *CountingSource {
	return &CountingSource{Source: src, reads: make(map[string]int)}
}

// ReadSubmatrix implements skim.Source.
func (c *CountingSource) ReadSubmatrix(key string, offsets []int) ([]float64, error) {
	c.mu.Lock()
	c.reads[key]++
	c.mu.Unlock()

	return c.Source.ReadSubmatrix(key, offsets)
}

// Reads returns the number of reads of key.
func (c *CountingSource) Reads(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reads[key]
}
