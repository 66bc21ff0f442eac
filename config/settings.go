// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"

	"github.com/go-git/go-billy/v5"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/katalvlaran/lvtdm/balance"
	"github.com/katalvlaran/lvtdm/logit"
)

// Section names double as the step names listed under models.
const (
	SectionDestinationChoice = "destination_choice"
	SectionBalanceTrips      = "balance_trips"
	SectionWriteTables       = "write_tables"
)

// DefaultSettingsFile is the settings file name looked up in the configs root.
const DefaultSettingsFile = "settings.yaml"

// DefaultTablePrefix prefixes the CSV names written by write_tables.
const DefaultTablePrefix = "final_"

// totalKey selects aggregate targets in a trip target mapping.
const totalKey = "total"

// Settings is the decoded settings file.
type Settings struct {
	Models            []string          `yaml:"models"`
	TraceOD           interface{}       `yaml:"trace_od"`
	ZoneFiles         []string          `yaml:"zone_files"`
	DestinationChoice DestinationChoice `yaml:"destination_choice"`
	BalanceTrips      BalanceTrips      `yaml:"balance_trips"`
	Output            Output            `yaml:"output"`
}

// DestinationChoice configures the destination_choice step.
type DestinationChoice struct {
	SpecFileName  string             `yaml:"spec_file_name"`
	Skims         map[string]string  `yaml:"aggregate_od_matrices"` // expression name -> NetCDF file
	Constants     map[string]float64 `yaml:"constants"`
	MathFunctions []string           `yaml:"math_functions"`
	DestZone      []string           `yaml:"dest_zone"`
	OrigZone      []string           `yaml:"orig_zone"`
	OrigZoneTrips Segments           `yaml:"orig_zone_trips"`
	Workers       int                `yaml:"workers"` // 0: one per CPU
}

// BalanceTrips configures the balance_trips step.
type BalanceTrips struct {
	DestTargets       map[string]string `yaml:"dest_zone_trip_targets"`
	OrigTargets       map[string]string `yaml:"orig_zone_trip_targets"`
	MaxIterations     int               `yaml:"max_iterations"`
	Closure           *float64          `yaml:"balance_closure"`
	ConvergenceRate   *float64          `yaml:"convergence_rate"`
	InputTable        string            `yaml:"input_table"`
	AcceptUnconverged bool              `yaml:"accept_unconverged"`
}

// Output configures write_tables.
type Output struct {
	Tables []string `yaml:"tables"` // empty: every registered table
	Prefix string   `yaml:"prefix"`
	SQLite string   `yaml:"sqlite"` // database file in the output root; empty disables
}

// Segments is the ordered segment -> zone trips column mapping of
// orig_zone_trips. YAML mapping order is kept.
type Segments []logit.Segment

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Segments) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: orig_zone_trips must map segment to zone column: %w", value.Line, ErrConfiguration)
	}
	out := make(Segments, 0, len(value.Content)/2)
	seen := make(map[string]bool, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: segment %q needs a zone column name: %w", v.Line, k.Value, ErrConfiguration)
		}
		if seen[k.Value] {
			return fmt.Errorf("line %d: duplicate segment %q: %w", k.Line, k.Value, ErrConfiguration)
		}
		seen[k.Value] = true
		out = append(out, logit.Segment{Name: k.Value, TripsColumn: v.Value})
	}
	*s = out

	return nil
}

// Names returns the segment names in order.
func (s Segments) Names() []string {
	out := make([]string, len(s))
	for i, seg := range s {
		out[i] = seg.Name
	}

	return out
}

// LoadSettings reads and validates the settings file at path.
//
// Unknown keys are rejected. Defaults are filled in for the output prefix.
//
// Errors: ErrConfiguration for decode and validation problems, fs errors.
func LoadSettings(fs billy.Filesystem, path string) (*Settings, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings %q: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var s Settings
	if err = dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("settings %q is empty: %w", path, ErrConfiguration)
		}
		if errors.Is(err, ErrConfiguration) {
			return nil, fmt.Errorf("settings %q: %w", path, err)
		}
		return nil, fmt.Errorf("settings %q: %v: %w", path, err, ErrConfiguration)
	}
	if s.Output.Prefix == "" {
		s.Output.Prefix = DefaultTablePrefix
	}
	if err = s.Validate(); err != nil {
		return nil, fmt.Errorf("settings %q: %w", path, err)
	}
	klog.InfoS("loaded settings", "file", path, "models", s.Models)

	return &s, nil
}

// Runs reports whether step is listed under models.
func (s *Settings) Runs(step string) bool { return slices.Contains(s.Models, step) }

// Validate checks the sections of the steps listed under models.
//
// Errors: ErrConfiguration naming the field.
func (s *Settings) Validate() error {
	if len(s.Models) == 0 {
		return fmt.Errorf("models: no steps listed: %w", ErrConfiguration)
	}
	if len(s.ZoneFiles) == 0 {
		return fmt.Errorf("zone_files: no zone files listed: %w", ErrConfiguration)
	}
	if s.Runs(SectionDestinationChoice) {
		dc := s.DestinationChoice
		switch {
		case dc.SpecFileName == "":
			return fmt.Errorf("destination_choice.spec_file_name: missing: %w", ErrConfiguration)
		case len(dc.Skims) == 0:
			return fmt.Errorf("destination_choice.aggregate_od_matrices: no skims listed: %w", ErrConfiguration)
		case len(dc.OrigZoneTrips) == 0:
			return fmt.Errorf("destination_choice.orig_zone_trips: no segments listed: %w", ErrConfiguration)
		case dc.Workers < 0:
			return fmt.Errorf("destination_choice.workers: %d: %w", dc.Workers, ErrConfiguration)
		}
	}
	if s.Runs(SectionBalanceTrips) {
		bt := s.BalanceTrips
		if bt.MaxIterations < 0 {
			return fmt.Errorf("balance_trips.max_iterations: %d: %w", bt.MaxIterations, ErrConfiguration)
		}
		if bad(bt.Closure) {
			return fmt.Errorf("balance_trips.balance_closure: %g: %w", *bt.Closure, ErrConfiguration)
		}
		if bad(bt.ConvergenceRate) {
			return fmt.Errorf("balance_trips.convergence_rate: %g: %w", *bt.ConvergenceRate, ErrConfiguration)
		}
		if _, err := bt.Config(); err != nil {
			return err
		}
	}

	return nil
}

func bad(v *float64) bool { return v != nil && (*v < 0 || math.IsNaN(*v)) }

// Config converts the section to a balance.Config, filling defaults.
//
// A target mapping with a "total" key selects aggregate targets and must
// have no other keys; otherwise it maps segments to zone columns.
//
// Errors: ErrConfiguration.
func (b BalanceTrips) Config() (balance.Config, error) {
	cfg := balance.DefaultConfig()
	var err error
	if cfg.Dest, err = targets("dest_zone_trip_targets", b.DestTargets); err != nil {
		return balance.Config{}, err
	}
	if cfg.Orig, err = targets("orig_zone_trip_targets", b.OrigTargets); err != nil {
		return balance.Config{}, err
	}
	if b.MaxIterations > 0 {
		cfg.IPF.MaxIteration = b.MaxIterations
	}
	if b.Closure != nil {
		cfg.IPF.Closure = *b.Closure
	}
	if b.ConvergenceRate != nil {
		cfg.IPF.ConvergenceRate = *b.ConvergenceRate
	}
	cfg.AcceptUnconverged = b.AcceptUnconverged

	return cfg, nil
}

func targets(field string, m map[string]string) (*balance.Targets, error) {
	if len(m) == 0 {
		return nil, nil
	}
	if total, ok := m[totalKey]; ok {
		if len(m) > 1 {
			return nil, fmt.Errorf("balance_trips.%s: %q cannot be combined with segment targets: %w", field, totalKey, ErrConfiguration)
		}
		return &balance.Targets{Total: total}, nil
	}

	return &balance.Targets{Segments: maps.Clone(m)}, nil
}
