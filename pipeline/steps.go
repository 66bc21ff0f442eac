// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"k8s.io/klog/v2"

	"github.com/katalvlaran/lvtdm/balance"
	"github.com/katalvlaran/lvtdm/config"
	"github.com/katalvlaran/lvtdm/expr"
	"github.com/katalvlaran/lvtdm/frame"
	"github.com/katalvlaran/lvtdm/logit"
	"github.com/katalvlaran/lvtdm/sink"
	"github.com/katalvlaran/lvtdm/skim"
	"github.com/katalvlaran/lvtdm/zones"
)

// Expression namespaces of the zone attributes broadcast along OD rows.
const (
	DestZoneNamespace = "dest_zone"
	OrigZoneNamespace = "orig_zone"
)

// destinationChoice builds the OD table and distributes trips.
//
// Stage 1 (Symbols): constants, math functions, one namespace per skim
// file, dest_zone and orig_zone attribute broadcasts.
// Stage 2 (Distribute): logit.Distribute over the OD index.
// Stage 3 (Register): od_table, zone_summary, trips; traces are written.
func destinationChoice(ctx context.Context, p *Pipeline) (err error) {
	dc := p.settings.DestinationChoice
	od := p.zones.ODIndex()

	constants := expr.Constants(dc.Constants)
	funcs, err := expr.MathFunctions(dc.MathFunctions...)
	if err != nil {
		return err
	}
	local := expr.SymbolTable{}

	ids := p.zones.Ints()
	for _, name := range slices.Sorted(maps.Keys(dc.Skims)) {
		var h *skim.Handle
		if h, err = skim.Open(name, p.provider); err != nil {
			return err
		}
		defer func() {
			if rerr := h.Release(); rerr != nil {
				klog.ErrorS(rerr, "releasing skims", "matrix", h.Name())
				if err == nil {
					err = rerr
				}
			}
		}()
		var m *skim.OffsetMap
		if m, err = h.BuildOffsetMap(ids); err != nil {
			return err
		}
		klog.InfoS("mapped skim zones", "matrix", name, "strategy", m.Strategy().String(), "mapping", m.MappingName())
		local[name] = expr.NamespaceOf(expr.Loader(h.Fetch))
	}

	for _, zc := range []struct {
		namespace string
		key       string
		columns   []string
	}{{DestZoneNamespace, zones.DestColumn, dc.DestZone}, {OrigZoneNamespace, zones.OrigColumn, dc.OrigZone}} {
		var cols map[string][]float64
		if cols, err = p.zones.Broadcast(od, zc.key, zc.columns); err != nil {
			return fmt.Errorf("%s: %w", zc.namespace, err)
		}
		local[zc.namespace] = expr.NamespaceOf(expr.Columns(cols))
	}
	symbols := expr.Chain(local, constants, funcs)

	segments := []logit.Segment(dc.OrigZoneTrips)
	var spec *expr.Spec
	if spec, err = config.LoadSpec(p.dirs.Configs, dc.SpecFileName, dc.OrigZoneTrips.Names()); err != nil {
		return err
	}

	opts := []logit.Option{logit.WithTrace(p.traceRows(od))}
	if dc.Workers > 0 {
		opts = append(opts, logit.WithWorkers(dc.Workers))
	}
	var res *logit.Result
	if res, err = logit.Distribute(ctx, od, spec, symbols, segments, p.zones, opts...); err != nil {
		return err
	}

	odTable := od.Clone()
	for _, name := range res.Values.Names() {
		col, _ := res.Values.Floats(name)
		if err = odTable.SetFloats(name, col); err != nil {
			return err
		}
	}
	var summary *frame.Frame
	if summary, err = zones.Summary(odTable); err != nil {
		return err
	}
	p.register(ODTable, odTable)
	p.register(ZoneSummaryTable, summary)
	p.register(TripsTable, res.Trips)

	p.writeTrace(ODTable, res.AssignTrace)
	for _, seg := range segments {
		p.writeTrace("segment_od_"+seg.Name, res.Traces[seg.Name])
	}

	return nil
}

// balanceTrips rakes the trips table, or the configured input table,
// toward the zone targets.
func balanceTrips(_ context.Context, p *Pipeline) error {
	bt := p.settings.BalanceTrips
	cfg, err := bt.Config()
	if err != nil {
		return err
	}

	var trips *frame.Frame
	if bt.InputTable != "" {
		klog.InfoS("using input table for balancing", "file", bt.InputTable)
		if trips, err = config.LoadTrips(p.dirs.Data, bt.InputTable); err != nil {
			return err
		}
	} else {
		var ok bool
		if trips, ok = p.tables[TripsTable]; !ok {
			return fmt.Errorf("table %q: %w", TripsTable, ErrMissingTable)
		}
	}
	var segments []string
	for _, name := range trips.Names() {
		if name != zones.OrigColumn && name != zones.DestColumn {
			segments = append(segments, name)
		}
	}

	rows := p.traceRows(trips)
	if len(rows) > 0 {
		sel, _ := trips.Select(rows)
		p.writeTrace("trips_unbalanced", sel)
	}

	out, err := balance.Trips(trips, segments, p.zones, cfg)
	if err != nil {
		return err
	}
	p.register(TripsTable, out.Trips)
	if out.Info != nil {
		p.register(BalancingInfoTable, out.Info)
	}
	if len(rows) > 0 {
		sel, _ := out.Trips.Select(rows)
		p.writeTrace("trips_balanced", sel)
	}

	return nil
}

// writeTables writes the selected tables as CSV and, when configured, to SQLite.
func writeTables(_ context.Context, p *Pipeline) error {
	out := p.settings.Output
	names := out.Tables
	if len(names) == 0 {
		names = p.Tables()
	}
	for _, name := range names {
		if _, ok := p.tables[name]; !ok {
			return fmt.Errorf("table %q: %w", name, ErrMissingTable)
		}
	}

	writers := []sink.TableWriter{p.csv}
	if out.SQLite != "" {
		if p.dirs.OutputRoot == "" {
			return ErrNoOutputRoot
		}
		store, err := sink.OpenSQLite(filepath.Join(p.dirs.OutputRoot, out.SQLite))
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.BeginRun(append(slices.Clone(p.models), config.SectionWriteTables))
		if err != nil {
			return err
		}
		writers = append(writers, run)
	}

	for _, name := range names {
		for _, w := range writers {
			if err := w.WriteTable(name, p.tables[name]); err != nil {
				return err
			}
		}
	}
	klog.InfoS("wrote tables", "tables", names, "sqlite", out.SQLite != "")

	return nil
}
