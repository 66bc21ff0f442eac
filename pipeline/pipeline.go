// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-git/go-billy/v5"
	"k8s.io/klog/v2"

	"github.com/katalvlaran/lvtdm/config"
	"github.com/katalvlaran/lvtdm/frame"
	"github.com/katalvlaran/lvtdm/sink"
	"github.com/katalvlaran/lvtdm/skim"
	"github.com/katalvlaran/lvtdm/trace"
	"github.com/katalvlaran/lvtdm/zones"
)

// Registered table names.
const (
	ZonesTable         = "zones"
	ODTable            = "od_table"
	ZoneSummaryTable   = "zone_summary"
	TripsTable         = "trips"
	BalancingInfoTable = "trips_balancing_info"
)

// Dirs are the filesystems of a run.
type Dirs struct {
	Configs billy.Filesystem // settings and spec files
	Data    billy.Filesystem // zone files, skims, input tables
	Output  billy.Filesystem // CSV tables and traces

	// OutputRoot is the host path of Output, used for the SQLite database.
	OutputRoot string
}

type step func(ctx context.Context, p *Pipeline) error

var steps = map[string]step{
	config.SectionDestinationChoice: destinationChoice,
	config.SectionBalanceTrips:      balanceTrips,
	config.SectionWriteTables:       writeTables,
}

// Steps lists the known step names in sorted order.
func Steps() []string {
	out := make([]string, 0, len(steps))
	for k := range steps {
		out = append(out, k)
	}
	slices.Sort(out)

	return out
}

// Pipeline holds the state of one model run.
type Pipeline struct {
	dirs     Dirs
	settings *config.Settings
	provider skim.Provider
	trace    *trace.Selector
	csv      *sink.CSVWriter

	zones  *zones.Table
	tables map[string]*frame.Frame
	order  []string
	models []string // steps run so far
}

// New loads the zone table and prepares a run.
//
// Errors: config loader errors for the zone files.
func New(dirs Dirs, settings *config.Settings, opts ...Option) (*Pipeline, error) {
	o := gatherOptions(opts...)
	zt, err := config.LoadZones(dirs.Data, settings.ZoneFiles)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		dirs:     dirs,
		settings: settings,
		provider: o.provider,
		trace:    trace.Parse(settings.TraceOD),
		csv:      sink.NewCSVWriter(dirs.Output, settings.Output.Prefix),
		zones:    zt,
		tables:   make(map[string]*frame.Frame),
	}
	if p.provider == nil {
		p.provider = config.NewSkimCatalog(dirs.Data, settings.DestinationChoice.Skims)
	}
	p.register(ZonesTable, zoneFrame(zt))
	klog.InfoS("prepared pipeline", "zones", zt.Len(), "trace", p.trace.String())

	return p, nil
}

// Run executes models in order; nil models runs the settings' models.
//
// Errors: ErrUnknownStep (checked before any step runs), ctx errors, step errors
// wrapped with the step name.
func (p *Pipeline) Run(ctx context.Context, models []string) error {
	if models == nil {
		models = p.settings.Models
	}
	for _, name := range models {
		if _, ok := steps[name]; !ok {
			return fmt.Errorf("step %q: %w", name, ErrUnknownStep)
		}
	}
	for _, name := range models {
		if err := ctx.Err(); err != nil {
			return err
		}
		klog.InfoS("running step", "step", name)
		if err := steps[name](ctx, p); err != nil {
			return fmt.Errorf("step %q: %w", name, err)
		}
		p.models = append(p.models, name)
		klog.InfoS("finished step", "step", name)
	}

	return nil
}

// Table returns a registered table.
func (p *Pipeline) Table(name string) (*frame.Frame, bool) {
	f, ok := p.tables[name]

	return f, ok
}

// Tables lists the registered tables in first-registration order.
func (p *Pipeline) Tables() []string { return slices.Clone(p.order) }

// Zones returns the zone table.
func (p *Pipeline) Zones() *zones.Table { return p.zones }

// register adds or replaces a table.
func (p *Pipeline) register(name string, f *frame.Frame) {
	if _, ok := p.tables[name]; !ok {
		p.order = append(p.order, name)
	}
	p.tables[name] = f
	klog.V(1).InfoS("registered table", "table", name, "rows", f.Len(), "columns", len(f.Names()))
}

// writeTrace writes a trace table; failures are logged, not returned.
func (p *Pipeline) writeTrace(name string, f *frame.Frame) {
	if f == nil {
		return
	}
	if err := p.csv.WriteTrace(name, f); err != nil {
		klog.ErrorS(err, "writing trace table", "trace", name)
	}
}

// traceRows selects the traced rows of f, nil when not tracing.
func (p *Pipeline) traceRows(f *frame.Frame) []int {
	rows := p.trace.Rows(f)
	if p.trace != nil && len(rows) == 0 {
		klog.Warningf("trace_od %s matches no rows", p.trace)
	}

	return rows
}

// zoneFrame renders the zone table with its IDs in a "zone" column.
func zoneFrame(zt *zones.Table) *frame.Frame {
	f := frame.New(zt.Len())
	ids := make([]float64, zt.Len())
	for i, id := range zt.IDs() {
		ids[i] = float64(id)
	}
	_ = f.SetFloats(config.ZoneColumn, ids)
	for _, name := range zt.Columns() {
		col, _ := zt.Column(name)
		_ = f.SetFloats(name, slices.Clone(col))
	}

	return f
}
