package zones_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/lvtdm/frame"
	"github.com/katalvlaran/lvtdm/zones"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, ids ...zones.ID) *zones.Table {
	t.Helper()
	tbl, err := zones.NewTable(ids)
	require.NoError(t, err)

	return tbl
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	t.Parallel()
	_, err := zones.NewTable([]zones.ID{1, 2, 1})
	require.ErrorIs(t, err, zones.ErrDuplicateZone)
	_, err = zones.NewTable(nil)
	require.ErrorIs(t, err, zones.ErrEmptyTable)
}

func TestODIndexOrder(t *testing.T) {
	t.Parallel()
	od := mustTable(t, 10, 20, 30).ODIndex()
	require.Equal(t, 9, od.Len())

	orig, err := od.Floats(zones.OrigColumn)
	require.NoError(t, err)
	dest, err := od.Floats(zones.DestColumn)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10, 10, 20, 20, 20, 30, 30, 30}, orig) // slowest
	assert.Equal(t, []float64{10, 20, 30, 10, 20, 30, 10, 20, 30}, dest) // fastest
}

func TestBroadcast(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t, 10, 20)
	require.NoError(t, tbl.AddColumn("size", []float64{1, 5}))
	od := tbl.ODIndex()

	dst, err := tbl.Broadcast(od, zones.DestColumn, []string{"size"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 5, 1, 5}, dst["size"])

	org, err := tbl.Broadcast(od, zones.OrigColumn, []string{"size"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 5, 5}, org["size"])

	_, err = tbl.Broadcast(od, zones.OrigColumn, []string{"nope"})
	require.ErrorIs(t, err, zones.ErrUnknownColumn)

	other := mustTable(t, 10)
	_, err = other.Broadcast(od, zones.DestColumn, nil)
	require.ErrorIs(t, err, zones.ErrUnknownZone)
}

func TestValueMapAndMerge(t *testing.T) {
	t.Parallel()
	a := mustTable(t, 1, 2)
	require.NoError(t, a.AddColumn("hbw", []float64{3, 4}))
	b := mustTable(t, 1, 2)
	require.NoError(t, b.AddColumn("size", []float64{7, 8}))

	m, err := zones.Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"hbw", "size"}, m.Columns())
	vm, err := m.ValueMap("size")
	require.NoError(t, err)
	assert.Equal(t, map[zones.ID]float64{1: 7, 2: 8}, vm)

	v, err := m.Value(2, "hbw")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	_, err = zones.Merge(a, mustTable(t, 2, 1))
	require.ErrorIs(t, err, zones.ErrZoneMismatch)
	require.ErrorIs(t, a.AddColumn("x", []float64{1}), zones.ErrLengthMismatch)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	od := mustTable(t, 1, 2).ODIndex()
	require.NoError(t, od.SetFloats("hbw", []float64{1, 2, math.NaN(), 4}))
	require.NoError(t, od.SetLabels("tag", []string{"a", "b", "c", "d"}))

	s, err := zones.Summary(od)
	require.NoError(t, err)
	assert.Equal(t, []string{zones.OrigColumn, "hbw"}, s.Names())
	hbw, err := s.Floats("hbw")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, hbw)

	_, err = zones.Summary(frame.New(1))
	require.Error(t, err)
}
