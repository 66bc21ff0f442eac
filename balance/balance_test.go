package balance_test

import (
	"testing"

	"github.com/katalvlaran/lvtdm/balance"
	"github.com/katalvlaran/lvtdm/frame"
	"github.com/katalvlaran/lvtdm/ipf"
	"github.com/katalvlaran/lvtdm/zones"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var segments = []string{"a", "b"}

// fixture: two zones; segment a has 1 trip per OD pair, segment b has 2.
func fixture(t *testing.T) (*frame.Frame, *zones.Table) {
	t.Helper()
	zt, err := zones.NewTable([]zones.ID{1, 2})
	require.NoError(t, err)
	require.NoError(t, zt.AddColumn("dest_total", []float64{4, 8}))
	require.NoError(t, zt.AddColumn("a_attr", []float64{1, 3}))
	require.NoError(t, zt.AddColumn("b_attr", []float64{2, 6}))
	require.NoError(t, zt.AddColumn("huge", []float64{100, 100}))

	trips := zt.ODIndex()
	require.NoError(t, trips.SetFloats("a", []float64{1, 1, 1, 1}))
	require.NoError(t, trips.SetFloats("b", []float64{2, 2, 2, 2}))

	return trips, zt
}

// sumBy returns the sum of col grouped by the zone in key (1 or 2).
func sumBy(t *testing.T, f *frame.Frame, key, col string) map[float64]float64 {
	t.Helper()
	k, err := f.Floats(key)
	require.NoError(t, err)
	v, err := f.Floats(col)
	require.NoError(t, err)
	out := map[float64]float64{}
	for i := range k {
		out[k[i]] += v[i]
	}

	return out
}

func TestMeltPivot(t *testing.T) {
	t.Parallel()
	trips, _ := fixture(t)

	long, err := balance.Melt(trips, segments)
	require.NoError(t, err)
	require.Equal(t, 8, long.Len())
	seg, err := long.Labels(balance.SegmentColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "a", "a", "b", "b", "b", "b"}, seg)

	wide, err := balance.Pivot(long, trips, segments)
	require.NoError(t, err)
	assert.Equal(t, trips.Names(), wide.Names())
	b, _ := wide.Floats("b")
	assert.Equal(t, []float64{2, 2, 2, 2}, b)

	_, err = balance.Melt(trips, []string{"zz"})
	require.ErrorIs(t, err, frame.ErrUnknownColumn)
}

func TestTotalDestTargets(t *testing.T) {
	t.Parallel()
	trips, zt := fixture(t)
	cfg := balance.DefaultConfig()
	cfg.Dest = &balance.Targets{Total: "dest_total"}

	out, err := balance.Trips(trips, segments, zt, cfg)
	require.NoError(t, err)
	require.True(t, out.Balanced)
	assert.Nil(t, out.Info)

	long, err := balance.Melt(out.Trips, segments)
	require.NoError(t, err)
	dest := sumBy(t, long, zones.DestColumn, balance.TripsColumn)
	assert.InEpsilon(t, 4.0, dest[1], 1e-3)
	assert.InEpsilon(t, 8.0, dest[2], 1e-3)

	// Origins are held at their per-segment sums.
	for _, s := range segments {
		before := sumBy(t, trips, zones.OrigColumn, s)
		after := sumBy(t, out.Trips, zones.OrigColumn, s)
		for o, v := range before {
			assert.InEpsilon(t, v, after[o], 1e-3, "segment %s origin %v", s, o)
		}
	}
}

func TestSegmentDestTargets(t *testing.T) {
	t.Parallel()
	trips, zt := fixture(t)
	cfg := balance.DefaultConfig()
	cfg.Dest = &balance.Targets{Segments: map[string]string{"a": "a_attr", "b": "b_attr"}}

	out, err := balance.Trips(trips, segments, zt, cfg)
	require.NoError(t, err)
	require.True(t, out.Balanced)

	a := sumBy(t, out.Trips, zones.DestColumn, "a")
	b := sumBy(t, out.Trips, zones.DestColumn, "b")
	assert.InEpsilon(t, 1.0, a[1], 1e-3)
	assert.InEpsilon(t, 3.0, a[2], 1e-3)
	assert.InEpsilon(t, 2.0, b[1], 1e-3)
	assert.InEpsilon(t, 6.0, b[2], 1e-3)
}

func TestUnconvergedKeepsInput(t *testing.T) {
	t.Parallel()
	trips, zt := fixture(t)
	cfg := balance.Config{
		Dest: &balance.Targets{Total: "huge"}, // contradicts the held origin sums
		IPF:  ipf.Config{MaxIteration: 5, Closure: 1e-3},
	}

	out, err := balance.Trips(trips, segments, zt, cfg)
	require.NoError(t, err)
	assert.False(t, out.Balanced)
	assert.Same(t, trips, out.Trips)
	require.NotNil(t, out.Info)
	assert.Equal(t, 5, out.Info.Len())

	cfg.AcceptUnconverged = true
	out, err = balance.Trips(trips, segments, zt, cfg)
	require.NoError(t, err)
	assert.True(t, out.Balanced)
	assert.NotSame(t, trips, out.Trips)
	assert.NotNil(t, out.Info)
}

func TestStalledBalanceReplacesTrips(t *testing.T) {
	t.Parallel()
	trips, zt := fixture(t)
	cfg := balance.Config{
		Dest: &balance.Targets{Total: "huge"},
		IPF:  ipf.Config{MaxIteration: 50, Closure: 1e-3, ConvergenceRate: ipf.DefaultConvergenceRate},
	}

	out, err := balance.Trips(trips, segments, zt, cfg)
	require.NoError(t, err)
	require.True(t, out.Result.Stalled)
	assert.True(t, out.Result.Converged)
	assert.Less(t, len(out.Result.Iterations), 50)
	last := out.Result.Iterations[len(out.Result.Iterations)-1]
	assert.Greater(t, last.Statistic, cfg.IPF.Closure)

	// The stalled balance is accepted in place of the input.
	assert.True(t, out.Balanced)
	assert.NotSame(t, trips, out.Trips)
	assert.Nil(t, out.Info)
	after := sumBy(t, out.Trips, zones.OrigColumn, "a")
	assert.InEpsilon(t, 2.0, after[1], 1e-9)
}

func TestTargetConfigurationErrors(t *testing.T) {
	t.Parallel()
	trips, zt := fixture(t)

	cfg := balance.DefaultConfig()
	cfg.Dest = &balance.Targets{Total: "dest_total", Segments: map[string]string{"a": "a_attr"}}
	_, err := balance.Trips(trips, segments, zt, cfg)
	require.ErrorIs(t, err, balance.ErrConfiguration)

	cfg.Dest = &balance.Targets{Segments: map[string]string{"zz": "a_attr"}}
	_, err = balance.Trips(trips, segments, zt, cfg)
	require.ErrorIs(t, err, balance.ErrConfiguration)

	cfg.Dest = nil
	cfg.Orig = &balance.Targets{Total: "nope"}
	_, err = balance.Trips(trips, segments, zt, cfg)
	require.ErrorIs(t, err, zones.ErrUnknownColumn)

	cfg.Orig = nil
	cfg.IPF.MaxIteration = 0
	_, err = balance.Trips(trips, segments, zt, cfg)
	require.ErrorIs(t, err, ipf.ErrConfiguration)
}
