package config_test

import (
	"math"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvtdm/config"
	"github.com/katalvlaran/lvtdm/expr"
	"github.com/katalvlaran/lvtdm/logit"
	"github.com/katalvlaran/lvtdm/skim"
	"github.com/katalvlaran/lvtdm/skim/skimtest"
	"github.com/katalvlaran/lvtdm/trace"
	"github.com/katalvlaran/lvtdm/zones"
)

func write(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
}

const settingsYAML = `
models: [destination_choice, balance_trips, write_tables]
trace_od: {o: 2}
zone_files: [zones.csv, attractions.csv]
destination_choice:
  spec_file_name: destination_choice.csv
  aggregate_od_matrices:
    skims: skims.nc
  constants:
    walk_speed: 3
  math_functions: [exp, log]
  dest_zone: [employment]
  orig_zone_trips:
    work: work_trips
    shop: shop_trips
    school: school_trips
balance_trips:
  dest_zone_trip_targets:
    total: dest_total
  max_iterations: 20
  balance_closure: 0.01
output:
  sqlite: run.db
`

func TestLoadSettings(t *testing.T) {
	t.Parallel()
	fs := memfs.New()
	write(t, fs, "settings.yaml", settingsYAML)

	s, err := config.LoadSettings(fs, "settings.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"destination_choice", "balance_trips", "write_tables"}, s.Models)
	assert.True(t, s.Runs(config.SectionBalanceTrips))
	assert.Equal(t, []logit.Segment{
		{Name: "work", TripsColumn: "work_trips"},
		{Name: "shop", TripsColumn: "shop_trips"},
		{Name: "school", TripsColumn: "school_trips"},
	}, []logit.Segment(s.DestinationChoice.OrigZoneTrips))
	assert.Equal(t, []string{"work", "shop", "school"}, s.DestinationChoice.OrigZoneTrips.Names())
	assert.Equal(t, map[string]float64{"walk_speed": 3}, s.DestinationChoice.Constants)
	assert.Equal(t, config.DefaultTablePrefix, s.Output.Prefix)
	assert.Equal(t, "run.db", s.Output.SQLite)
	assert.Equal(t, "2->*", trace.Parse(s.TraceOD).String())

	cfg, err := s.BalanceTrips.Config()
	require.NoError(t, err)
	require.NotNil(t, cfg.Dest)
	assert.Equal(t, "dest_total", cfg.Dest.Total)
	assert.Nil(t, cfg.Orig)
	assert.Equal(t, 20, cfg.IPF.MaxIteration)
	assert.Equal(t, 0.01, cfg.IPF.Closure)
}

func TestLoadSettingsErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":          ``,
		"unknown key":    "models: [write_tables]\nzone_files: [z.csv]\nbogus: 1\n",
		"no models":      "zone_files: [z.csv]\n",
		"no zone files":  "models: [write_tables]\n",
		"no spec file":   "models: [destination_choice]\nzone_files: [z.csv]\n",
		"segments list":  "models: [write_tables]\nzone_files: [z.csv]\ndestination_choice:\n  orig_zone_trips: [a, b]\n",
		"total and more": "models: [balance_trips]\nzone_files: [z.csv]\nbalance_trips:\n  dest_zone_trip_targets: {total: t, work: w}\n",
		"negative":       "models: [balance_trips]\nzone_files: [z.csv]\nbalance_trips:\n  balance_closure: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fs := memfs.New()
			write(t, fs, "settings.yaml", body)
			_, err := config.LoadSettings(fs, "settings.yaml")
			require.ErrorIs(t, err, config.ErrConfiguration)
		})
	}
}

func TestBalanceTripsSegmentTargets(t *testing.T) {
	t.Parallel()
	rate := 0.0
	bt := config.BalanceTrips{
		OrigTargets:     map[string]string{"work": "work_prod"},
		ConvergenceRate: &rate,
	}
	cfg, err := bt.Config()
	require.NoError(t, err)
	assert.Nil(t, cfg.Dest)
	require.NotNil(t, cfg.Orig)
	assert.Equal(t, map[string]string{"work": "work_prod"}, cfg.Orig.Segments)
	assert.Equal(t, 50, cfg.IPF.MaxIteration)
	assert.Equal(t, 1e-3, cfg.IPF.Closure)
	assert.Zero(t, cfg.IPF.ConvergenceRate)
}

func TestLoadZones(t *testing.T) {
	t.Parallel()
	fs := memfs.New()
	write(t, fs, "zones.csv", "# zone attributes\nzone,name,households\n10,north,100\n20,south,\n30,east,300\n")
	write(t, fs, "attractions.csv", "zone,employment\n10,5\n20,6\n30,7\n")

	zt, err := config.LoadZones(fs, []string{"zones.csv", "attractions.csv"})
	require.NoError(t, err)
	assert.Equal(t, []zones.ID{10, 20, 30}, zt.IDs())
	assert.Equal(t, []string{"households", "employment"}, zt.Columns()) // name is not numeric

	hh, err := zt.Column("households")
	require.NoError(t, err)
	assert.Equal(t, 100.0, hh[0])
	assert.True(t, math.IsNaN(hh[1]))

	write(t, fs, "implicit.csv", "employment\n5\n6\n7\n")
	zt, err = config.LoadZones(fs, []string{"implicit.csv"})
	require.NoError(t, err)
	assert.Equal(t, []zones.ID{1, 2, 3}, zt.IDs())

	_, err = config.LoadZones(fs, []string{"zones.csv", "implicit.csv"})
	require.ErrorIs(t, err, zones.ErrZoneMismatch)

	write(t, fs, "bad.csv", "zone,x\n1.5,1\n")
	_, err = config.LoadZones(fs, []string{"bad.csv"})
	require.ErrorIs(t, err, config.ErrMalformedCSV)
}

func TestLoadSpec(t *testing.T) {
	t.Parallel()
	fs := memfs.New()
	write(t, fs, "spec.csv", `target,description,expression,work,shop
# distance decay
dist,distance,skims['DIST'],-0.1,-0.2
size,"log of jobs",log(dest_zone.employment),1,
`)

	spec, err := config.LoadSpec(fs, "spec.csv", []string{"work", "shop"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dist", "size"}, spec.Targets())
	rules := spec.Rules()
	assert.Equal(t, "log of jobs", rules[1].Description)
	assert.Equal(t, "-0.2", rules[0].Coefficients["shop"])

	_, err = config.LoadSpec(fs, "spec.csv", []string{"work"})
	require.ErrorIs(t, err, config.ErrMalformedCSV)

	write(t, fs, "dup.csv", "description,target,expression,work\na,x,1,1\nb,x,2,1\n")
	_, err = config.LoadSpec(fs, "dup.csv", []string{"work"})
	require.ErrorIs(t, err, expr.ErrSpec)
}

func TestLoadTrips(t *testing.T) {
	t.Parallel()
	fs := memfs.New()
	write(t, fs, "trips.csv", "orig,dest,work\n1,1,2.5\n1,2,3\n")

	f, err := config.LoadTrips(fs, "trips.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"orig", "dest", "work"}, f.Names())
	w, _ := f.Floats("work")
	assert.Equal(t, []float64{2.5, 3}, w)

	write(t, fs, "nodest.csv", "orig,work\n1,2\n")
	_, err = config.LoadTrips(fs, "nodest.csv")
	require.ErrorIs(t, err, config.ErrMalformedCSV)

	write(t, fs, "text.csv", "orig,dest,work\n1,1,many\n")
	_, err = config.LoadTrips(fs, "text.csv")
	require.ErrorIs(t, err, config.ErrMalformedCSV)
}

func TestSkimCatalog(t *testing.T) {
	t.Parallel()
	buf := skimtest.NewBuffer(nil)
	require.NoError(t, skimtest.WriteNetCDF(buf, 2, map[string][]float64{"DIST": {0, 1, 2, 3}}, nil))
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "skims.nc", buf.Bytes(), 0o644))

	cat := config.NewSkimCatalog(fs, map[string]string{"skims": "skims.nc", "gone": "missing.nc"})
	assert.Equal(t, []string{"gone", "skims"}, cat.Names())

	h, err := skim.Open("skims", cat)
	require.NoError(t, err)
	_, err = h.BuildOffsetMap([]int{1, 2})
	require.NoError(t, err)
	v, err := h.Fetch("DIST")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, v)
	require.NoError(t, h.Release())

	_, err = skim.Open("gone", cat)
	require.ErrorIs(t, err, skim.ErrMatrixNotFound)
	_, err = skim.Open("other", cat)
	require.ErrorIs(t, err, skim.ErrMatrixNotFound)
}
