// SPDX-License-Identifier: MIT

package balance

import (
	"errors"
	"fmt"
	"sort"

	"github.com/katalvlaran/lvtdm/frame"
	"github.com/katalvlaran/lvtdm/ipf"
	"github.com/katalvlaran/lvtdm/zones"
	"k8s.io/klog/v2"
)

// Long table column names.
const (
	SegmentColumn = "segment"
	TripsColumn   = "trips"
)

// DefaultClosure is the closure used by the balancing step, looser than ipf.DefaultClosure.
const DefaultClosure = 1e-3

// ErrConfiguration indicates invalid balancing settings.
var ErrConfiguration = errors.New("balance: invalid configuration")

// Targets names the zone columns holding trip targets for one level.
// Set either Total or Segments, not both. A nil *Targets holds current sums.
type Targets struct {
	Total    string            // zone column of all-segment totals
	Segments map[string]string // segment -> zone column
}

// Config controls the balancing step.
type Config struct {
	Dest              *Targets
	Orig              *Targets
	IPF               ipf.Config
	AcceptUnconverged bool
}

// DefaultConfig holds both levels at their current sums with the step defaults.
func DefaultConfig() Config {
	cfg := ipf.DefaultConfig()
	cfg.Closure = DefaultClosure

	return Config{IPF: cfg}
}

// Outcome is the result of Trips.
type Outcome struct {
	Trips    *frame.Frame // balanced table, or the input when balancing failed
	Balanced bool
	Result   *ipf.Result
	Info     *frame.Frame // iteration log when not balanced, nil otherwise
}

// Trips balances the wide trips table.
//
// Stage 1 (Melt): wide -> long.
// Stage 2 (Aggregates): dest then orig, per Config.
// Stage 3 (Execute): ipf.Balance on the trips column.
// Stage 4 (Pivot): long -> wide, same OD row order as the input.
//
// Errors: ErrConfiguration, ipf.ErrConfiguration, zones errors for missing columns.
func Trips(trips *frame.Frame, segments []string, zt *zones.Table, cfg Config) (*Outcome, error) {
	long, err := Melt(trips, segments)
	if err != nil {
		return nil, err
	}

	levels := []struct {
		name    string
		targets *Targets
	}{{zones.DestColumn, cfg.Dest}, {zones.OrigColumn, cfg.Orig}}
	var aggs []ipf.Aggregate
	var dims [][]string
	for _, lv := range levels {
		agg, d, err := aggregate(lv.name, lv.targets, segments, zt)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
		dims = append(dims, d)
	}

	res, err := ipf.Balance(long, TripsColumn, aggs, dims, cfg.IPF)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Result: res, Balanced: res.Converged}
	if !res.Converged {
		last := res.Iterations[len(res.Iterations)-1]
		klog.Warningf("trip balancing did not converge after %d iterations (statistic %g, stalled %t)",
			len(res.Iterations), last.Statistic, res.Stalled)
		out.Info = res.Log()
		if !cfg.AcceptUnconverged {
			out.Trips = trips
			return out, nil
		}
		out.Balanced = true
	} else {
		klog.InfoS("trip balancing converged", "iterations", len(res.Iterations),
			"statistic", res.Iterations[len(res.Iterations)-1].Statistic, "stalled", res.Stalled)
	}

	wide, err := Pivot(res.Table, trips, segments)
	if err != nil {
		return nil, err
	}
	out.Trips = wide

	return out, nil
}

// aggregate builds the target of one level.
func aggregate(level string, t *Targets, segments []string, zt *zones.Table) (ipf.Aggregate, []string, error) {
	if t == nil || (t.Total == "" && len(t.Segments) == 0) {
		klog.InfoS("no trip targets, holding existing sums", "level", level)
		return ipf.HoldCurrent(), []string{level, SegmentColumn}, nil
	}
	if t.Total != "" && len(t.Segments) > 0 {
		return ipf.Aggregate{}, nil, fmt.Errorf("%s targets set both total and segments: %w", level, ErrConfiguration)
	}

	ids := zt.IDs()
	if t.Total != "" {
		col, err := zt.Column(t.Total)
		if err != nil {
			return ipf.Aggregate{}, nil, fmt.Errorf("%s total targets: %w", level, err)
		}
		s := make(ipf.Series, len(ids))
		for i, id := range ids {
			s[ipf.Key(frame.FormatKey(float64(id)))] = col[i]
		}
		klog.InfoS("using total trip targets", "level", level, "column", t.Total)
		return ipf.Targets(s), []string{level}, nil
	}

	known := make(map[string]bool, len(segments))
	for _, s := range segments {
		known[s] = true
	}
	names := make([]string, 0, len(t.Segments))
	for seg := range t.Segments {
		names = append(names, seg)
	}
	sort.Strings(names)
	s := make(ipf.Series, len(ids)*len(names))
	for _, seg := range names {
		if !known[seg] {
			return ipf.Aggregate{}, nil, fmt.Errorf("%s targets for unknown segment %q: %w", level, seg, ErrConfiguration)
		}
		col, err := zt.Column(t.Segments[seg])
		if err != nil {
			return ipf.Aggregate{}, nil, fmt.Errorf("%s targets segment %q: %w", level, seg, err)
		}
		for i, id := range ids {
			s[ipf.Key(frame.FormatKey(float64(id)), seg)] = col[i]
		}
	}
	klog.InfoS("using segment trip targets", "level", level, "segments", names)

	return ipf.Targets(s), []string{level, SegmentColumn}, nil
}

// Melt turns the wide trips table into long rows, segment-major: row
// s*n + i holds OD row i of segment s.
func Melt(trips *frame.Frame, segments []string) (*frame.Frame, error) {
	orig, err := trips.Floats(zones.OrigColumn)
	if err != nil {
		return nil, err
	}
	dest, err := trips.Floats(zones.DestColumn)
	if err != nil {
		return nil, err
	}
	n := trips.Len()
	o := make([]float64, 0, n*len(segments))
	d := make([]float64, 0, n*len(segments))
	seg := make([]string, 0, n*len(segments))
	w := make([]float64, 0, n*len(segments))
	for _, s := range segments {
		col, err := trips.Floats(s)
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", s, err)
		}
		o = append(o, orig...)
		d = append(d, dest...)
		w = append(w, col...)
		for range col {
			seg = append(seg, s)
		}
	}

	long := frame.New(len(w))
	for _, err := range []error{
		long.SetFloats(zones.OrigColumn, o),
		long.SetFloats(zones.DestColumn, d),
		long.SetLabels(SegmentColumn, seg),
		long.SetFloats(TripsColumn, w),
	} {
		if err != nil {
			return nil, err
		}
	}

	return long, nil
}

// Pivot is the inverse of Melt: it copies like (keeping its OD columns and
// column order) and replaces the segment columns with the long trips values.
func Pivot(long, like *frame.Frame, segments []string) (*frame.Frame, error) {
	n := like.Len()
	if long.Len() != n*len(segments) {
		return nil, fmt.Errorf("long table has %d rows, want %d: %w", long.Len(), n*len(segments), frame.ErrLengthMismatch)
	}
	w, err := long.Floats(TripsColumn)
	if err != nil {
		return nil, err
	}
	out := like.Clone()
	for k, s := range segments {
		col := make([]float64, n)
		copy(col, w[k*n:(k+1)*n])
		if err = out.SetFloats(s, col); err != nil {
			return nil, err
		}
	}

	return out, nil
}
