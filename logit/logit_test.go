package logit_test

import (
	"context"
	"math"
	"testing"

	"github.com/katalvlaran/lvtdm/expr"
	"github.com/katalvlaran/lvtdm/logit"
	"github.com/katalvlaran/lvtdm/zones"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture: zones 10, 20, 30 with hbw totals 10, 20, 30 and nhb totals 1, 2, 3.
func fixture(t *testing.T) *zones.Table {
	t.Helper()
	zt, err := zones.NewTable([]zones.ID{10, 20, 30})
	require.NoError(t, err)
	require.NoError(t, zt.AddColumn("hbw_trips", []float64{10, 20, 30}))
	require.NoError(t, zt.AddColumn("nhb_trips", []float64{1, 2, 3}))

	return zt
}

func mustSpec(t *testing.T, rules []expr.Rule, segs ...string) *expr.Spec {
	t.Helper()
	spec, err := expr.NewSpec(rules, segs)
	require.NoError(t, err)

	return spec
}

func symbols(t *testing.T, extra expr.SymbolTable) expr.Symbols {
	t.Helper()
	fns, err := expr.MathFunctions()
	require.NoError(t, err)

	return expr.Chain(extra, fns)
}

var segments = []logit.Segment{{Name: "hbw", TripsColumn: "hbw_trips"}, {Name: "nhb", TripsColumn: "nhb_trips"}}

func TestUniformSplit(t *testing.T) {
	t.Parallel()
	zt := fixture(t)
	spec := mustSpec(t, []expr.Rule{{Target: "dist", Expression: "orig + dest",
		Coefficients: map[string]string{"hbw": "0", "nhb": "0"}}}, "hbw", "nhb")

	res, err := logit.Distribute(context.Background(), zt.ODIndex(), spec, symbols(t, nil), segments, zt)
	require.NoError(t, err)
	assert.Equal(t, []string{"orig", "dest", "hbw", "nhb"}, res.Trips.Names())

	hbw, err := res.Trips.Floats("hbw")
	require.NoError(t, err)
	want := []float64{10.0 / 3, 10.0 / 3, 10.0 / 3, 20.0 / 3, 20.0 / 3, 20.0 / 3, 10, 10, 10}
	assert.InDeltaSlice(t, want, hbw, 1e-12)
	assert.Nil(t, res.Traces)
}

func TestMassConservationAndNormalization(t *testing.T) {
	t.Parallel()
	zt := fixture(t)
	od := zt.ODIndex()
	dist := []float64{1, 4, 9, 4, 1, 2.5, 9, 2.5, 1}
	spec := mustSpec(t, []expr.Rule{
		{Target: "dist", Expression: "@skims['DIST']", Coefficients: map[string]string{"hbw": "-0.3", "nhb": "k_nhb"}},
		{Target: "size", Expression: "log(dest_zone.size)", Coefficients: map[string]string{"hbw": "1", "nhb": "1"}},
	}, "hbw", "nhb")
	syms := symbols(t, expr.SymbolTable{
		"skims":     expr.NamespaceOf(expr.Columns{"DIST": dist}),
		"dest_zone": expr.NamespaceOf(expr.Columns{"size": {1, 2, 3, 1, 2, 3, 1, 2, 3}}),
		"k_nhb":     expr.Scalar(-1.2),
	})

	res, err := logit.Distribute(context.Background(), od, spec, syms, segments, zt,
		logit.WithWorkers(1), logit.WithTrace([]int{0, 1, 2}))
	require.NoError(t, err)

	for _, seg := range segments {
		trips, err := res.Trips.Floats(seg.Name)
		require.NoError(t, err)
		totals, err := zt.Column(seg.TripsColumn)
		require.NoError(t, err)
		for o := 0; o < 3; o++ {
			var sum float64
			for d := 0; d < 3; d++ {
				sum += trips[o*3+d]
			}
			assert.InEpsilon(t, totals[o], sum, 1e-9, "segment %s origin %d", seg.Name, o)
		}

		tr := res.Traces[seg.Name]
		require.NotNil(t, tr)
		assert.Equal(t, []string{"orig", "dest", "dist", "size", logit.UtilityColumn, logit.SumUtilityColumn, logit.ProbabilityColumn}, tr.Names())
		probs, err := tr.Floats(logit.ProbabilityColumn)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, probs[0]+probs[1]+probs[2], 1e-12)
	}
	require.NotNil(t, res.AssignTrace)
	assert.Equal(t, 3, res.AssignTrace.Len())
}

func TestZeroUtilityOriginYieldsNaN(t *testing.T) {
	t.Parallel()
	zt := fixture(t)
	spec := mustSpec(t, []expr.Rule{{Target: "blocked", Expression: "where(orig == 20, -1/0, 0)",
		Coefficients: map[string]string{"hbw": "1"}}}, "hbw")

	res, err := logit.Distribute(context.Background(), zt.ODIndex(), spec, symbols(t, nil), segments[:1], zt)
	require.NoError(t, err)
	hbw, err := res.Trips.Floats("hbw")
	require.NoError(t, err)
	for i, v := range hbw {
		if i >= 3 && i < 6 {
			assert.True(t, math.IsNaN(v), "row %d", i)
		} else {
			assert.False(t, math.IsNaN(v), "row %d", i)
		}
	}
}

func TestMissingSegment(t *testing.T) {
	t.Parallel()
	zt := fixture(t)
	spec := mustSpec(t, nil, "hbw")

	_, err := logit.Distribute(context.Background(), zt.ODIndex(), spec, nil,
		[]logit.Segment{{Name: "nhb", TripsColumn: "nhb_trips"}}, zt)
	require.ErrorIs(t, err, logit.ErrMissingSegment)

	_, err = logit.Distribute(context.Background(), zt.ODIndex(), spec, nil,
		[]logit.Segment{{Name: "hbw", TripsColumn: "nope"}}, zt)
	require.ErrorIs(t, err, logit.ErrMissingSegment)
}

func TestParallelMatchesSerial(t *testing.T) {
	t.Parallel()
	zt := fixture(t)
	spec := mustSpec(t, []expr.Rule{{Target: "d", Expression: "dest / orig",
		Coefficients: map[string]string{"hbw": "0.7", "nhb": "-0.2"}}}, "hbw", "nhb")

	serial, err := logit.Distribute(context.Background(), zt.ODIndex(), spec, nil, segments, zt, logit.WithWorkers(1))
	require.NoError(t, err)
	parallel, err := logit.Distribute(context.Background(), zt.ODIndex(), spec, nil, segments, zt, logit.WithWorkers(8))
	require.NoError(t, err)
	for _, seg := range segments {
		a, _ := serial.Trips.Floats(seg.Name)
		b, _ := parallel.Trips.Floats(seg.Name)
		assert.Equal(t, a, b)
	}

	assert.Panics(t, func() { logit.WithWorkers(0) })
}
