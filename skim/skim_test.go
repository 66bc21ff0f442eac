package skim_test

import (
	"sync"
	"testing"

	"github.com/katalvlaran/lvtdm/matrix"
	"github.com/katalvlaran/lvtdm/skim"
	"github.com/katalvlaran/lvtdm/skim/skimtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqDense returns an n×n matrix whose cell (i,j) holds 10*i + j.
func seqDense(t *testing.T, n int) *matrix.Dense {
	t.Helper()
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = float64(10*i + j)
		}
	}
	m, err := matrix.NewDenseFrom(n, n, data)
	require.NoError(t, err)

	return m
}

func memSource(t *testing.T, n int, keys ...string) *skim.MemorySource {
	t.Helper()
	src := skim.NewMemorySource(n, n)
	for _, k := range keys {
		require.NoError(t, src.AddSkim(k, seqDense(t, n)))
	}

	return src
}

func open(t *testing.T, src skim.Source) *skim.Handle {
	t.Helper()
	h, err := skim.Open("skims", skim.Catalog{"skims": src})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Release() })

	return h
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()
	_, err := skim.Open("missing", skim.Catalog{})
	require.ErrorIs(t, err, skim.ErrMatrixNotFound)

	rect := skim.NewMemorySource(2, 3)
	_, err = skim.Open("rect", skim.Catalog{"rect": rect})
	require.ErrorIs(t, err, skim.ErrShapeMismatch)
	assert.True(t, rect.Closed())

	require.ErrorIs(t, memSource(t, 2).AddSkim("x", seqDense(t, 3)), skim.ErrShapeMismatch)
}

func TestOffsetMapSelection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		size     int
		mappings map[string][]int
		zones    []int
		strategy skim.Strategy
		offsets  []int
		err      error
	}{
		{name: "identity when sizes match", size: 3, zones: []int{10, 20, 30},
			strategy: skim.StrategyIdentity, offsets: []int{0, 1, 2}},
		{name: "one-based fallback", size: 3, zones: []int{1, 3},
			strategy: skim.StrategySequential, offsets: []int{0, 2}},
		{name: "explicit mapping", size: 3, mappings: map[string][]int{"taz": {30, 10, 20}}, zones: []int{10, 20, 30},
			strategy: skim.StrategyExplicit, offsets: []int{1, 2, 0}},
		{name: "ambiguous", size: 3, mappings: map[string][]int{"a": {1, 2, 3}, "b": {1, 2, 3}}, zones: []int{1, 2, 3},
			err: skim.ErrAmbiguousMapping},
		{name: "fallback out of range", size: 3, zones: []int{1, 4},
			err: skim.ErrUnmappedZone},
		{name: "zone absent from mapping", size: 3, mappings: map[string][]int{"taz": {1, 2, 3}}, zones: []int{1, 9},
			err: skim.ErrUnmappedZone},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			src := memSource(t, tc.size, "DIST")
			for name, ids := range tc.mappings {
				require.NoError(t, src.AddMapping(name, ids))
			}
			m, err := open(t, src).BuildOffsetMap(tc.zones)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.strategy, m.Strategy())
			assert.Equal(t, tc.offsets, m.Offsets())
		})
	}
}

func TestFetchReadsMappedSubmatrixOnce(t *testing.T) {
	t.Parallel()
	src := skimtest.Count(memSource(t, 3, "DIST", "TIME"))
	h := open(t, src)

	_, err := h.Fetch("DIST")
	require.ErrorIs(t, err, skim.ErrNoOffsetMap)

	_, err = h.BuildOffsetMap([]int{1, 3}) // sequential: offsets 0, 2
	require.NoError(t, err)

	v1, err := h.Fetch("DIST")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 20, 22}, v1)

	v2, err := h.Fetch("DIST")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, src.Reads("DIST"))
	assert.Equal(t, 0, src.Reads("TIME"))

	_, err = h.Fetch("COST")
	require.ErrorIs(t, err, skim.ErrUnknownSkimKey)
}

func TestConcurrentFetchAtMostOnce(t *testing.T) {
	t.Parallel()
	src := skimtest.Count(memSource(t, 4, "DIST"))
	h := open(t, src)
	_, err := h.BuildOffsetMap([]int{1, 2, 3, 4})
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := h.Fetch("DIST")
			if err == nil && len(v) != 16 {
				t.Errorf("unexpected length %d", len(v))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.Reads("DIST"))
}

// gatedSource blocks ReadSubmatrix until release is closed.
type gatedSource struct {
	*skim.MemorySource
	started chan struct{}
	release chan struct{}
}

func (g *gatedSource) ReadSubmatrix(key string, offsets []int) ([]float64, error) {
	g.started <- struct{}{}
	<-g.release

	return g.MemorySource.ReadSubmatrix(key, offsets)
}

func TestRebuildDuringFetchIsNotCached(t *testing.T) {
	t.Parallel()
	src := &gatedSource{
		MemorySource: memSource(t, 3, "DIST"),
		started:      make(chan struct{}, 2),
		release:      make(chan struct{}),
	}
	h := open(t, src)
	_, err := h.BuildOffsetMap([]int{1, 2, 3}) // identity
	require.NoError(t, err)

	type fetched struct {
		v   []float64
		err error
	}
	done := make(chan fetched, 1)
	go func() {
		v, err := h.Fetch("DIST")
		done <- fetched{v, err}
	}()
	<-src.started

	_, err = h.BuildOffsetMap([]int{1, 3}) // sequential: offsets 0, 2
	require.NoError(t, err)
	close(src.release)

	old := <-done
	require.NoError(t, old.err)
	assert.Len(t, old.v, 9)

	v, err := h.Fetch("DIST")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 20, 22}, v)
}

func TestReleaseClosesAndIsIdempotent(t *testing.T) {
	t.Parallel()
	src := memSource(t, 2, "DIST", "UNUSED")
	h, err := skim.Open("skims", skim.Catalog{"skims": src})
	require.NoError(t, err)
	_, err = h.BuildOffsetMap([]int{1, 2})
	require.NoError(t, err)
	_, err = h.Fetch("DIST")
	require.NoError(t, err)

	require.NoError(t, h.Release())
	require.NoError(t, h.Release())
	assert.True(t, src.Closed())

	_, err = h.Fetch("DIST")
	require.ErrorIs(t, err, skim.ErrReleased)
}

func TestNetCDFSource(t *testing.T) {
	t.Parallel()
	buf := &skimtest.Buffer{}
	dist := []float64{
		0, 1, 2,
		10, 11, 12,
		20, 21, 22,
	}
	require.NoError(t, skimtest.WriteNetCDF(buf, 3, map[string][]float64{"DIST": dist}, map[string][]int{"taz": {7, 8, 9}}))

	src, err := skim.OpenNetCDF(buf, nil)
	require.NoError(t, err)
	rows, cols := src.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, []string{"DIST"}, src.Keys())
	assert.Equal(t, []string{"taz"}, src.Mappings())

	h := open(t, src)
	m, err := h.BuildOffsetMap([]int{9, 7})
	require.NoError(t, err)
	assert.Equal(t, skim.StrategyExplicit, m.Strategy())

	v, err := h.Fetch("DIST")
	require.NoError(t, err)
	assert.Equal(t, []float64{22, 20, 2, 0}, v)
}
