// SPDX-License-Identifier: MIT

package frame

import (
	"fmt"
	"slices"
	"strconv"
)

// Frame is an ordered set of equally long named columns.
type Frame struct {
	n      int                  // row count
	names  []string             // column order
	floats map[string][]float64 // numeric columns
	labels map[string][]string  // label columns
}

// New returns an empty Frame with n rows and no columns.
func New(n int) *Frame {
	if n < 0 {
		n = 0
	}

	return &Frame{n: n, floats: make(map[string][]float64), labels: make(map[string][]string)}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Names returns a copy of the column names in order.
func (f *Frame) Names() []string { return slices.Clone(f.names) }

// Has reports whether a column (of either kind) exists.
func (f *Frame) Has(name string) bool {
	_, okF := f.floats[name]
	_, okL := f.labels[name]

	return okF || okL
}

// IsLabel reports whether name is a label column.
func (f *Frame) IsLabel(name string) bool {
	_, ok := f.labels[name]

	return ok
}

// Floats returns the numeric column by name. The slice is shared; callers
// that mutate it must Clone the frame first.
func (f *Frame) Floats(name string) ([]float64, error) {
	if v, ok := f.floats[name]; ok {
		return v, nil
	}
	if _, ok := f.labels[name]; ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrColumnKind)
	}

	return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
}

// Labels returns the label column by name (shared slice).
func (f *Frame) Labels(name string) ([]string, error) {
	if v, ok := f.labels[name]; ok {
		return v, nil
	}
	if _, ok := f.floats[name]; ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrColumnKind)
	}

	return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
}

// SetFloats adds or replaces a numeric column. The frame takes ownership of values.
func (f *Frame) SetFloats(name string, values []float64) error {
	if len(values) != f.n {
		return fmt.Errorf("column %q: len %d want %d: %w", name, len(values), f.n, ErrLengthMismatch)
	}
	if !f.Has(name) {
		f.names = append(f.names, name)
	}
	delete(f.labels, name)
	f.floats[name] = values

	return nil
}

// SetLabels adds or replaces a label column. The frame takes ownership of values.
func (f *Frame) SetLabels(name string, values []string) error {
	if len(values) != f.n {
		return fmt.Errorf("column %q: len %d want %d: %w", name, len(values), f.n, ErrLengthMismatch)
	}
	if !f.Has(name) {
		f.names = append(f.names, name)
	}
	delete(f.floats, name)
	f.labels[name] = values

	return nil
}

// Drop removes the named columns; unknown names are ignored.
func (f *Frame) Drop(names ...string) {
	for _, name := range names {
		if !f.Has(name) {
			continue
		}
		delete(f.floats, name)
		delete(f.labels, name)
		f.names = slices.DeleteFunc(f.names, func(s string) bool { return s == name })
	}
}

// Keys renders the column as grouping keys.
func (f *Frame) Keys(name string) ([]string, error) {
	if v, ok := f.labels[name]; ok {
		return v, nil
	}
	v, ok := f.floats[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
	}
	out := make([]string, len(v))
	for i, x := range v {
		out[i] = FormatKey(x)
	}

	return out, nil
}

// Select returns a new frame holding the given rows (in the given order) of the given columns.
// With no columns named, every column is kept.
//
// Complexity: O(len(rows) * columns).
func (f *Frame) Select(rows []int, columns ...string) (*Frame, error) {
	for _, r := range rows {
		if r < 0 || r >= f.n {
			return nil, fmt.Errorf("row %d: %w", r, ErrRowOutOfRange)
		}
	}
	if len(columns) == 0 {
		columns = f.names
	}
	out := New(len(rows))
	for _, name := range columns {
		if v, ok := f.floats[name]; ok {
			col := make([]float64, len(rows))
			for i, r := range rows {
				col[i] = v[r]
			}
			_ = out.SetFloats(name, col) // length fixed by construction
			continue
		}
		if v, ok := f.labels[name]; ok {
			col := make([]string, len(rows))
			for i, r := range rows {
				col[i] = v[r]
			}
			_ = out.SetLabels(name, col)
			continue
		}

		return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
	}

	return out, nil
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := New(f.n)
	for _, name := range f.names {
		if v, ok := f.floats[name]; ok {
			_ = out.SetFloats(name, slices.Clone(v))
		} else {
			_ = out.SetLabels(name, slices.Clone(f.labels[name]))
		}
	}

	return out
}

// Cell renders row i of the named column as text.
func (f *Frame) Cell(name string, i int) (string, error) {
	if i < 0 || i >= f.n {
		return "", fmt.Errorf("row %d: %w", i, ErrRowOutOfRange)
	}
	if v, ok := f.labels[name]; ok {
		return v[i], nil
	}
	if v, ok := f.floats[name]; ok {
		return strconv.FormatFloat(v[i], 'g', -1, 64), nil
	}

	return "", fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
}

// FormatKey renders a numeric cell as a grouping key; integral values print without a fraction.
func FormatKey(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
