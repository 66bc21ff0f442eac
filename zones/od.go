// SPDX-License-Identifier: MIT

package zones

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvtdm/frame"
)

// OD index column names.
const (
	OrigColumn = "orig"
	DestColumn = "dest"
)

// ODIndex returns the cartesian product of the zones as a frame with
// columns orig and dest. Row k is (ids[k / n], ids[k % n]).
//
// Complexity: O(n²).
func (t *Table) ODIndex() *frame.Frame {
	n := len(t.ids)
	orig := make([]float64, 0, n*n)
	dest := make([]float64, 0, n*n)
	for _, o := range t.ids {
		for _, d := range t.ids {
			orig = append(orig, float64(o))
			dest = append(dest, float64(d))
		}
	}
	od := frame.New(n * n)
	_ = od.SetFloats(OrigColumn, orig)
	_ = od.SetFloats(DestColumn, dest)

	return od
}

// Broadcast repeats zone attributes along the OD rows, keyed by the zone
// ID found in od's key column (OrigColumn or DestColumn).
//
// Errors: ErrUnknownColumn, ErrUnknownZone (naming the zone and row).
func (t *Table) Broadcast(od *frame.Frame, key string, columns []string) (map[string][]float64, error) {
	ids, err := od.Floats(key)
	if err != nil {
		return nil, err
	}
	pos := make([]int, len(ids))
	for r, v := range ids {
		i, ok := t.index[ID(v)]
		if !ok {
			return nil, fmt.Errorf("%s zone %v at row %d: %w", key, v, r, ErrUnknownZone)
		}
		pos[r] = i
	}
	out := make(map[string][]float64, len(columns))
	for _, name := range columns {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		vec := make([]float64, len(pos))
		for r, i := range pos {
			vec[r] = col[i]
		}
		out[name] = vec
	}

	return out, nil
}

// Summary rolls the numeric OD columns up to origins. The result has one
// row per distinct origin, in first-appearance order, with the orig column
// followed by the sums of every numeric column other than orig and dest.
// NaN cells count as missing and are skipped.
//
// Complexity: O(rows * columns).
func Summary(od *frame.Frame) (*frame.Frame, error) {
	orig, err := od.Floats(OrigColumn)
	if err != nil {
		return nil, err
	}
	group := make([]int, len(orig))
	seen := make(map[float64]int)
	var keys []float64
	for r, o := range orig {
		g, ok := seen[o]
		if !ok {
			g = len(keys)
			seen[o] = g
			keys = append(keys, o)
		}
		group[r] = g
	}

	out := frame.New(len(keys))
	if err = out.SetFloats(OrigColumn, keys); err != nil {
		return nil, err
	}
	for _, name := range od.Names() {
		if name == OrigColumn || name == DestColumn || od.IsLabel(name) {
			continue
		}
		col, _ := od.Floats(name)
		sums := make([]float64, len(keys))
		for r, v := range col {
			if !math.IsNaN(v) {
				sums[group[r]] += v
			}
		}
		if err = out.SetFloats(name, sums); err != nil {
			return nil, err
		}
	}

	return out, nil
}
