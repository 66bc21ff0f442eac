// SPDX-License-Identifier: MIT

package ipf

import (
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/lvtdm/frame"
)

// grouping is one aggregate resolved against the table rows.
type grouping struct {
	dims   []string
	row    []int     // row -> group index
	keys   []string  // group index -> key
	target []float64 // group index -> target
	has    []bool    // group index -> target present
}

// GroupSums returns the sums of weight per group of dims.
func GroupSums(tbl *frame.Frame, weight string, dims []string) (Series, error) {
	w, err := tbl.Floats(weight)
	if err != nil {
		return nil, fmt.Errorf("weight column %q: %v: %w", weight, err, ErrConfiguration)
	}
	g, err := group(tbl, dims)
	if err != nil {
		return nil, err
	}
	sums := g.sums(w)
	out := make(Series, len(g.keys))
	for i, k := range g.keys {
		out[k] = sums[i]
	}

	return out, nil
}

// group assigns each row to a group of dims, groups in first-appearance order.
func group(tbl *frame.Frame, dims []string) (*grouping, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("empty dimension list: %w", ErrConfiguration)
	}
	cols := make([][]string, len(dims))
	for i, d := range dims {
		k, err := tbl.Keys(d)
		if err != nil {
			return nil, fmt.Errorf("dimension %q: %v: %w", d, err, ErrConfiguration)
		}
		cols[i] = k
	}
	g := &grouping{dims: dims, row: make([]int, tbl.Len())}
	index := make(map[string]int)
	parts := make([]string, len(dims))
	for r := range g.row {
		for i := range cols {
			parts[i] = cols[i][r]
		}
		key := Key(parts...)
		gi, ok := index[key]
		if !ok {
			gi = len(g.keys)
			index[key] = gi
			g.keys = append(g.keys, key)
		}
		g.row[r] = gi
	}

	return g, nil
}

func (g *grouping) sums(w []float64) []float64 {
	s := make([]float64, len(g.keys))
	for r, gi := range g.row {
		if !math.IsNaN(w[r]) {
			s[gi] += w[r]
		}
	}

	return s
}

// deviation returns the largest relative deviation of a targeted group.
func (g *grouping) deviation(w []float64) float64 {
	var worst float64
	for gi, cur := range g.sums(w) {
		if !g.has[gi] {
			continue
		}
		var d float64
		if t := g.target[gi]; t != 0 {
			d = math.Abs(cur/t - 1)
		} else {
			d = math.Abs(cur)
		}
		if d > worst || math.IsNaN(d) {
			worst = d
		}
	}

	return worst
}

// Balance rakes the weight column of tbl toward the aggregates.
//
// Stage 1 (Validate): aggregates and dimensions pair up one to one, columns
// exist, cfg is sane.
// Stage 2 (Prepare): resolve every aggregate to row groups and targets;
// HoldCurrent targets are read from the input table.
// Stage 3 (Execute): rescale per aggregate, record the statistic after each
// pass, stop on closure, stall or MaxIteration.
//
// tbl is not modified. The result table is a clone with the new weights.
//
// Errors: ErrConfiguration naming the offending input.
//
// Complexity: O(iterations * aggregates * rows).
func Balance(tbl *frame.Frame, weight string, aggregates []Aggregate, dimensions [][]string, cfg Config) (*Result, error) {
	if len(aggregates) == 0 {
		return nil, fmt.Errorf("no aggregates: %w", ErrConfiguration)
	}
	if len(aggregates) != len(dimensions) {
		return nil, fmt.Errorf("%d aggregates but %d dimension lists: %w", len(aggregates), len(dimensions), ErrConfiguration)
	}
	if cfg.MaxIteration <= 0 {
		return nil, fmt.Errorf("max iteration %d: %w", cfg.MaxIteration, ErrConfiguration)
	}
	if cfg.Closure < 0 || cfg.ConvergenceRate < 0 || math.IsNaN(cfg.Closure) || math.IsNaN(cfg.ConvergenceRate) {
		return nil, fmt.Errorf("closure %g, convergence rate %g: %w", cfg.Closure, cfg.ConvergenceRate, ErrConfiguration)
	}
	if tbl.IsLabel(weight) || !tbl.Has(weight) {
		return nil, fmt.Errorf("weight column %q: %w", weight, ErrConfiguration)
	}
	orig, _ := tbl.Floats(weight)
	w := slices.Clone(orig)

	groups := make([]*grouping, len(aggregates))
	for k, agg := range aggregates {
		g, err := group(tbl, dimensions[k])
		if err != nil {
			return nil, fmt.Errorf("aggregate %d: %w", k, err)
		}
		g.target = make([]float64, len(g.keys))
		g.has = make([]bool, len(g.keys))
		if agg.hold {
			copy(g.target, g.sums(w))
			for i := range g.has {
				g.has[i] = true
			}
		} else {
			for i, key := range g.keys {
				g.target[i], g.has[i] = agg.targets[key]
			}
		}
		groups[k] = g
	}

	res := &Result{}
	prev := math.NaN()
	for it := 1; it <= cfg.MaxIteration; it++ {
		for _, g := range groups {
			factors := g.sums(w)
			for gi, cur := range factors {
				if g.has[gi] && cur != 0 {
					factors[gi] = g.target[gi] / cur
				} else {
					factors[gi] = 1
				}
			}
			for r, gi := range g.row {
				w[r] *= factors[gi]
			}
		}

		var stat float64
		for _, g := range groups {
			if d := g.deviation(w); d > stat || math.IsNaN(d) {
				stat = d
			}
		}
		res.Iterations = append(res.Iterations, Iteration{Index: it, Statistic: stat})

		if stat <= cfg.Closure {
			res.Converged = true
			break
		}
		if cfg.ConvergenceRate > 0 && it > 1 && math.Abs(stat-prev) < cfg.ConvergenceRate {
			res.Converged = true
			res.Stalled = true
			break
		}
		prev = stat
	}

	out := tbl.Clone()
	if err := out.SetFloats(weight, w); err != nil {
		return nil, err
	}
	res.Table = out

	return res, nil
}
