// SPDX-License-Identifier: MIT

package zones

import (
	"fmt"
	"slices"
)

// ID identifies a zone. IDs are unique within a Table but need not be contiguous.
type ID int

// Table is an ordered set of zones with named numeric attributes.
type Table struct {
	ids   []ID
	index map[ID]int // ID -> position in ids
	names []string
	cols  map[string][]float64
}

// NewTable builds a table over ids in the given order.
//
// Errors: ErrEmptyTable, ErrDuplicateZone.
func NewTable(ids []ID) (*Table, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table{ids: slices.Clone(ids), index: make(map[ID]int, len(ids)), cols: make(map[string][]float64)}
	for i, id := range ids {
		if _, dup := t.index[id]; dup {
			return nil, fmt.Errorf("zone %d: %w", id, ErrDuplicateZone)
		}
		t.index[id] = i
	}

	return t, nil
}

// Len returns the number of zones.
func (t *Table) Len() int { return len(t.ids) }

// IDs returns a copy of the zone IDs in table order.
func (t *Table) IDs() []ID { return slices.Clone(t.ids) }

// Ints returns the zone IDs as plain ints, in table order.
func (t *Table) Ints() []int {
	out := make([]int, len(t.ids))
	for i, id := range t.ids {
		out[i] = int(id)
	}

	return out
}

// Position returns the table position of id.
func (t *Table) Position(id ID) (int, bool) {
	i, ok := t.index[id]

	return i, ok
}

// Columns returns the attribute names in insertion order.
func (t *Table) Columns() []string { return slices.Clone(t.names) }

// AddColumn adds or replaces an attribute column (one value per zone, table order).
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != len(t.ids) {
		return fmt.Errorf("column %q: len %d want %d: %w", name, len(values), len(t.ids), ErrLengthMismatch)
	}
	if _, ok := t.cols[name]; !ok {
		t.names = append(t.names, name)
	}
	t.cols[name] = slices.Clone(values)

	return nil
}

// Column returns the attribute column (shared slice).
func (t *Table) Column(name string) ([]float64, error) {
	v, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
	}

	return v, nil
}

// Value returns one attribute of one zone.
func (t *Table) Value(id ID, name string) (float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return 0, err
	}
	i, ok := t.index[id]
	if !ok {
		return 0, fmt.Errorf("zone %d: %w", id, ErrUnknownZone)
	}

	return col[i], nil
}

// ValueMap returns the attribute keyed by zone ID.
func (t *Table) ValueMap(name string) (map[ID]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make(map[ID]float64, len(t.ids))
	for i, id := range t.ids {
		out[id] = col[i]
	}

	return out, nil
}

// Merge combines zone tables that share the same zone index (same IDs in
// the same order). Columns of later tables replace same-named earlier ones.
//
// Errors: ErrEmptyTable (no tables), ErrZoneMismatch.
func Merge(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, ErrEmptyTable
	}
	out, err := NewTable(tables[0].ids)
	if err != nil {
		return nil, err
	}
	for k, t := range tables {
		if !slices.Equal(t.ids, out.ids) {
			return nil, fmt.Errorf("table %d: %w", k, ErrZoneMismatch)
		}
		for _, name := range t.names {
			_ = out.AddColumn(name, t.cols[name]) // lengths agree by index equality
		}
	}

	return out, nil
}
