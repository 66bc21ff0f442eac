package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvtdm/config"
	"github.com/katalvlaran/lvtdm/frame"
	"github.com/katalvlaran/lvtdm/matrix"
	"github.com/katalvlaran/lvtdm/pipeline"
	"github.com/katalvlaran/lvtdm/sink"
	"github.com/katalvlaran/lvtdm/skim"
	"github.com/katalvlaran/lvtdm/skim/skimtest"
)

const settingsYAML = `
models: [destination_choice, balance_trips, write_tables]
trace_od: [3, 1]
zone_files: [zones.csv]
destination_choice:
  spec_file_name: spec.csv
  aggregate_od_matrices:
    skims: skims.nc
  math_functions: [exp]
  orig_zone_trips:
    work: work_trips
balance_trips:
  dest_zone_trip_targets:
    total: dest_total
`

func write(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
}

// fixture is a three-zone model with equal distances everywhere, so every
// origin splits its trips evenly across destinations.
func fixture(t *testing.T, settings string, output billy.Filesystem, root string) *pipeline.Pipeline {
	t.Helper()
	configs, data := memfs.New(), memfs.New()
	write(t, configs, config.DefaultSettingsFile, settings)
	write(t, configs, "spec.csv", "description,target,expression,work\ndistance,dist,skims['DIST'],-0.5\n")
	write(t, data, "zones.csv", "zone,work_trips,dest_total\n1,10,30\n2,20,20\n3,30,10\n")

	buf := skimtest.NewBuffer(nil)
	dist := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}
	require.NoError(t, skimtest.WriteNetCDF(buf, 3, map[string][]float64{"DIST": dist, "TIME": dist}, nil))
	require.NoError(t, util.WriteFile(data, "skims.nc", buf.Bytes(), 0o644))

	s, err := config.LoadSettings(configs, config.DefaultSettingsFile)
	require.NoError(t, err)
	p, err := pipeline.New(pipeline.Dirs{Configs: configs, Data: data, Output: output, OutputRoot: root}, s)
	require.NoError(t, err)

	return p
}

func sums(t *testing.T, f *frame.Frame, key, col string) map[float64]float64 {
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

func TestEndToEnd(t *testing.T) {
	t.Parallel()
	output := memfs.New()
	p := fixture(t, settingsYAML, output, "")
	ctx := context.Background()

	require.NoError(t, p.Run(ctx, []string{config.SectionDestinationChoice}))
	trips, ok := p.Table(pipeline.TripsTable)
	require.True(t, ok)
	work, err := trips.Floats("work")
	require.NoError(t, err)
	for _, r := range []int{6, 7, 8} { // origin 3
		assert.InDelta(t, 10.0, work[r], 1e-9)
	}
	produced := sums(t, trips, "orig", "work")
	assert.InDelta(t, 10.0, produced[1], 1e-9)
	assert.InDelta(t, 20.0, produced[2], 1e-9)
	assert.InDelta(t, 30.0, produced[3], 1e-9)

	summary, ok := p.Table(pipeline.ZoneSummaryTable)
	require.True(t, ok)
	dist, err := summary.Floats("dist")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 3}, dist)

	require.NoError(t, p.Run(ctx, []string{config.SectionBalanceTrips, config.SectionWriteTables}))
	balanced, _ := p.Table(pipeline.TripsTable)
	dest := sums(t, balanced, "dest", "work")
	assert.InEpsilon(t, 30.0, dest[1], 1e-3)
	assert.InEpsilon(t, 20.0, dest[2], 1e-3)
	assert.InEpsilon(t, 10.0, dest[3], 1e-3)
	orig := sums(t, balanced, "orig", "work")
	assert.InEpsilon(t, 30.0, orig[3], 1e-3)
	_, ok = p.Table(pipeline.BalancingInfoTable)
	assert.False(t, ok)

	assert.Equal(t, []string{"zones", "od_table", "zone_summary", "trips"}, p.Tables())
	for _, name := range []string{
		"final_zones.csv", "final_od_table.csv", "final_zone_summary.csv", "final_trips.csv",
		"trace.od_table.csv", "trace.segment_od_work.csv", "trace.trips_unbalanced.csv", "trace.trips_balanced.csv",
	} {
		_, err := output.Stat(name)
		assert.NoError(t, err, name)
	}
	got, err := util.ReadFile(output, "trace.trips_unbalanced.csv")
	require.NoError(t, err)
	assert.Contains(t, string(got), "orig,dest,work\n3,1,")
}

func TestSQLiteOutput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := fixture(t, settingsYAML+"output:\n  sqlite: runs.db\n  tables: [trips]\n", osfs.New(dir), dir)
	require.NoError(t, p.Run(context.Background(), nil))

	store, err := sink.OpenSQLite(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer store.Close()
	var models string
	require.NoError(t, store.DB().QueryRow(`SELECT models FROM runs`).Scan(&models))
	assert.Equal(t, "destination_choice,balance_trips,write_tables", models)
	var n int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM "trips"`).Scan(&n))
	assert.Equal(t, 9, n)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	p := fixture(t, settingsYAML, memfs.New(), "")

	require.ErrorIs(t, p.Run(context.Background(), []string{"destination_choice", "nope"}), pipeline.ErrUnknownStep)
	_, ok := p.Table(pipeline.TripsTable)
	assert.False(t, ok, "no step runs when one is unknown")

	require.ErrorIs(t, p.Run(context.Background(), []string{config.SectionBalanceTrips}), pipeline.ErrMissingTable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Run(ctx, nil), context.Canceled)

	withSQLite := fixture(t, settingsYAML+"output:\n  sqlite: runs.db\n", memfs.New(), "")
	require.ErrorIs(t, withSQLite.Run(context.Background(), []string{config.SectionWriteTables}), pipeline.ErrNoOutputRoot)
}

func TestSkimProviderReleased(t *testing.T) {
	t.Parallel()
	configs, data := memfs.New(), memfs.New()
	write(t, configs, config.DefaultSettingsFile, settingsYAML)
	write(t, configs, "spec.csv", "description,target,expression,work\ndistance,dist,skims['DIST'],-0.5\n")
	write(t, data, "zones.csv", "work_trips,dest_total\n10,30\n20,20\n30,10\n")
	s, err := config.LoadSettings(configs, config.DefaultSettingsFile)
	require.NoError(t, err)

	mem := skim.NewMemorySource(3, 3)
	ones, err := matrix.NewDenseFrom(3, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	require.NoError(t, mem.AddSkim("DIST", ones))
	require.NoError(t, mem.AddSkim("TIME", ones))
	counted := skimtest.Count(mem)

	p, err := pipeline.New(pipeline.Dirs{Configs: configs, Data: data, Output: memfs.New()}, s,
		pipeline.WithSkimProvider(skim.Catalog{"skims": counted}))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background(), []string{config.SectionDestinationChoice}))
	assert.Equal(t, 1, counted.Reads("DIST"))
	assert.Zero(t, counted.Reads("TIME"))
	assert.True(t, mem.Closed())

	q, err := pipeline.New(pipeline.Dirs{Configs: configs, Data: data, Output: memfs.New()}, s,
		pipeline.WithSkimProvider(skim.Catalog{}))
	require.NoError(t, err)
	require.ErrorIs(t, q.Run(context.Background(), nil), skim.ErrMatrixNotFound)
}
