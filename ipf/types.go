// SPDX-License-Identifier: MIT

package ipf

import (
	"errors"
	"strings"

	"github.com/katalvlaran/lvtdm/frame"
)

// ErrConfiguration indicates invalid Balance inputs.
var ErrConfiguration = errors.New("ipf: invalid configuration")

// Defaults.
const (
	DefaultMaxIteration    = 50
	DefaultClosure         = 1e-4
	DefaultConvergenceRate = 1e-6
)

// keySep joins the parts of a multi-dimensional key.
const keySep = "\x1f"

// Key joins group values into a Series key.
func Key(parts ...string) string { return strings.Join(parts, keySep) }

// Series maps group keys to target totals.
type Series map[string]float64

// Aggregate is a target specification for one dimension list.
type Aggregate struct {
	hold    bool
	targets Series
}

// HoldCurrent pins every group to its sum in the input table.
func HoldCurrent() Aggregate { return Aggregate{hold: true} }

// Targets pins the groups present in s.
func Targets(s Series) Aggregate { return Aggregate{targets: s} }

// IsHold reports whether the aggregate holds current sums.
func (a Aggregate) IsHold() bool { return a.hold }

// Config controls termination.
type Config struct {
	MaxIteration    int     // > 0
	Closure         float64 // >= 0
	ConvergenceRate float64 // >= 0, 0 disables stall detection
}

// DefaultConfig returns {50, 1e-4, 1e-6}.
func DefaultConfig() Config {
	return Config{MaxIteration: DefaultMaxIteration, Closure: DefaultClosure, ConvergenceRate: DefaultConvergenceRate}
}

// Iteration is one entry of the convergence log.
type Iteration struct {
	Index     int     // 1-based pass number
	Statistic float64 // max relative deviation after the pass
}

// Result is the output of Balance.
type Result struct {
	Table      *frame.Frame // copy of the input with the balanced weight column
	Converged  bool
	Stalled    bool
	Iterations []Iteration
}

// Log renders the iteration log as a table with columns iteration and statistic.
func (r *Result) Log() *frame.Frame {
	n := len(r.Iterations)
	idx := make([]float64, n)
	stat := make([]float64, n)
	for i, it := range r.Iterations {
		idx[i] = float64(it.Index)
		stat[i] = it.Statistic
	}
	f := frame.New(n)
	_ = f.SetFloats("iteration", idx)
	_ = f.SetFloats("statistic", stat)

	return f
}
