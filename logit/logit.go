// SPDX-License-Identifier: MIT

package logit

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/lvtdm/expr"
	"github.com/katalvlaran/lvtdm/frame"
	"github.com/katalvlaran/lvtdm/zones"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"
)

// ErrMissingSegment indicates a segment without coefficients in the spec or
// without a trip total column in the zone table.
var ErrMissingSegment = errors.New("logit: missing segment")

// Trace column names.
const (
	UtilityColumn     = "utility"
	SumUtilityColumn  = "sum_utility"
	ProbabilityColumn = "probability"
)

// Segment binds a spec coefficient column to a zone trip total column.
type Segment struct {
	Name        string // coefficient column in the spec, output column in Trips
	TripsColumn string // zone attribute holding trips produced per origin
}

// Result is the output of Distribute.
type Result struct {
	Trips       *frame.Frame            // orig, dest, one column per segment
	Values      *frame.Frame            // evaluated rule targets
	AssignTrace *frame.Frame            // Assign trace, nil when not tracing
	Traces      map[string]*frame.Frame // per-segment trace, keyed by segment name
}

type segmentOutput struct {
	trips []float64
	trace *frame.Frame
}

// Distribute evaluates spec over od once, then distributes each segment's
// origin totals over destinations.
//
// Stage 1 (Validate): every segment must be declared in spec and have a
// trips column in zt.
// Stage 2 (Assign): shared target values.
// Stage 3 (Fan-out): segments in parallel, at most Options.workers at a time.
// Stage 4 (Merge): one trips column per segment, in the given order.
//
// Errors: ErrMissingSegment, *expr.RuleError, zones.ErrUnknownZone.
//
// Complexity: O(rules*n + segments*rules*n) for n OD rows.
func Distribute(ctx context.Context, od *frame.Frame, spec *expr.Spec, symbols expr.Symbols,
	segments []Segment, zt *zones.Table, opts ...Option) (*Result, error) {
	o := gatherOptions(opts...)

	totals := make([]map[zones.ID]float64, len(segments))
	for i, seg := range segments {
		if !spec.HasSegment(seg.Name) {
			return nil, fmt.Errorf("segment %q has no coefficients: %w", seg.Name, ErrMissingSegment)
		}
		m, err := zt.ValueMap(seg.TripsColumn)
		if err != nil {
			return nil, fmt.Errorf("segment %q trips column %q: %v: %w", seg.Name, seg.TripsColumn, err, ErrMissingSegment)
		}
		totals[i] = m
	}
	orig, err := od.Floats(zones.OrigColumn)
	if err != nil {
		return nil, err
	}

	values, assignTrace, err := expr.Assign(spec, od, symbols, o.traceRows)
	if err != nil {
		return nil, err
	}

	outputs := make([]segmentOutput, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			klog.V(1).InfoS("distributing segment", "segment", seg.Name)
			out, err := distributeSegment(od, orig, values, spec, symbols, seg, totals[i], o.traceRows)
			if err != nil {
				return fmt.Errorf("segment %q: %w", seg.Name, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	trips, err := od.Select(allRows(od.Len()), zones.OrigColumn, zones.DestColumn)
	if err != nil {
		return nil, err
	}
	res := &Result{Trips: trips, Values: values, AssignTrace: assignTrace}
	for i, seg := range segments {
		if err = trips.SetFloats(seg.Name, outputs[i].trips); err != nil {
			return nil, err
		}
		if outputs[i].trace != nil {
			if res.Traces == nil {
				res.Traces = make(map[string]*frame.Frame)
			}
			res.Traces[seg.Name] = outputs[i].trace
		}
	}

	return res, nil
}

// distributeSegment runs Stages 3-6 of the package doc for one segment.
func distributeSegment(od *frame.Frame, orig []float64, values *frame.Frame, spec *expr.Spec, symbols expr.Symbols,
	seg Segment, totals map[zones.ID]float64, traceRows []int) (segmentOutput, error) {
	weighted, err := expr.ApplyCoefficients(values, spec, symbols, seg.Name)
	if err != nil {
		return segmentOutput{}, err
	}

	n := od.Len()
	util := make([]float64, n)
	for _, name := range weighted.Names() {
		col, _ := weighted.Floats(name)
		floats.Add(util, col)
	}
	for i, u := range util {
		util[i] = math.Exp(u)
	}

	sums := make(map[float64]float64)
	for i, u := range util {
		sums[orig[i]] += u
	}
	sumUtil := make([]float64, n)
	prob := make([]float64, n)
	trips := make([]float64, n)
	for i, u := range util {
		total, ok := totals[zones.ID(orig[i])]
		if !ok {
			return segmentOutput{}, fmt.Errorf("origin %v: %w", orig[i], zones.ErrUnknownZone)
		}
		sumUtil[i] = sums[orig[i]]
		prob[i] = u / sumUtil[i] // 0/0 -> NaN for origins without utility
		trips[i] = prob[i] * total
	}

	out := segmentOutput{trips: trips}
	if len(traceRows) == 0 {
		return out, nil
	}
	tr, err := od.Select(traceRows, zones.OrigColumn, zones.DestColumn)
	if err != nil {
		return segmentOutput{}, err
	}
	wt, err := weighted.Select(traceRows)
	if err != nil {
		return segmentOutput{}, err
	}
	for _, name := range wt.Names() {
		col, _ := wt.Floats(name)
		_ = tr.SetFloats(name, col)
	}
	for _, c := range []struct {
		name string
		v    []float64
	}{{UtilityColumn, util}, {SumUtilityColumn, sumUtil}, {ProbabilityColumn, prob}} {
		col := make([]float64, len(traceRows))
		for k, r := range traceRows {
			col[k] = c.v[r]
		}
		_ = tr.SetFloats(c.name, col)
	}
	out.trace = tr

	return out, nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	return rows
}
