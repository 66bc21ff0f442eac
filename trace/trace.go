// SPDX-License-Identifier: MIT

// Package trace selects the OD rows whose intermediate values are written
// out for inspection.
//
// A selector names an origin, a destination, or both. It is read from the
// trace_od setting, which may be a two-element list [o, d] or a mapping
// {o: .., d: ..}. A malformed setting is logged and disables tracing; it
// never fails the run.
package trace

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvtdm/frame"
	"github.com/katalvlaran/lvtdm/zones"
	"k8s.io/klog/v2"
)

// Selector filters OD rows by origin and/or destination.
type Selector struct {
	Orig *zones.ID
	Dest *zones.ID
}

// OD returns a selector for one origin-destination pair.
func OD(o, d zones.ID) *Selector { return &Selector{Orig: &o, Dest: &d} }

// Origin returns a selector for every row leaving o.
func Origin(o zones.ID) *Selector { return &Selector{Orig: &o} }

// Destination returns a selector for every row arriving at d.
func Destination(d zones.ID) *Selector { return &Selector{Dest: &d} }

// Parse reads a decoded trace_od setting. nil input means "no tracing".
// Anything it cannot interpret is logged as a warning and yields nil.
func Parse(raw interface{}) *Selector {
	if raw == nil {
		return nil
	}
	s, err := parse(raw)
	if err != nil {
		klog.Warningf("ignoring trace_od %v: %v", raw, err)
		return nil
	}

	return s
}

func parse(raw interface{}) (*Selector, error) {
	switch v := raw.(type) {
	case []interface{}:
		if len(v) != 2 {
			return nil, fmt.Errorf("want [o, d], got %d elements", len(v))
		}
		o, err := zoneOf(v[0])
		if err != nil {
			return nil, err
		}
		d, err := zoneOf(v[1])
		if err != nil {
			return nil, err
		}
		return OD(o, d), nil
	case map[string]interface{}:
		s := &Selector{}
		for k, x := range v {
			id, err := zoneOf(x)
			if err != nil {
				return nil, err
			}
			switch k {
			case "o":
				s.Orig = &id
			case "d":
				s.Dest = &id
			default:
				return nil, fmt.Errorf("unknown key %q", k)
			}
		}
		if s.Orig == nil && s.Dest == nil {
			return nil, fmt.Errorf("neither o nor d given")
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", raw)
	}
}

func zoneOf(x interface{}) (zones.ID, error) {
	switch v := x.(type) {
	case int:
		return zones.ID(v), nil
	case int64:
		return zones.ID(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("zone %v is not an integer", v)
		}
		return zones.ID(v), nil
	default:
		return 0, fmt.Errorf("zone %v has type %T", x, x)
	}
}

// Rows returns the matching row indexes of od, in order. A nil selector
// returns nil.
func (s *Selector) Rows(od *frame.Frame) []int {
	if s == nil {
		return nil
	}
	orig, errO := od.Floats(zones.OrigColumn)
	dest, errD := od.Floats(zones.DestColumn)
	if errO != nil || errD != nil {
		klog.Warningf("trace: OD table lacks %s/%s columns", zones.OrigColumn, zones.DestColumn)
		return nil
	}
	var rows []int
	for i := range orig {
		if s.Orig != nil && zones.ID(orig[i]) != *s.Orig {
			continue
		}
		if s.Dest != nil && zones.ID(dest[i]) != *s.Dest {
			continue
		}
		rows = append(rows, i)
	}

	return rows
}

// String implements fmt.Stringer.
func (s *Selector) String() string {
	if s == nil {
		return "none"
	}
	o, d := "*", "*"
	if s.Orig != nil {
		o = fmt.Sprint(*s.Orig)
	}
	if s.Dest != nil {
		d = fmt.Sprint(*s.Dest)
	}

	return o + "->" + d
}
