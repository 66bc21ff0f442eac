// SPDX-License-Identifier: MIT

package config

import (
	"encoding/csv"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
	"k8s.io/klog/v2"

	"github.com/katalvlaran/lvtdm/expr"
	"github.com/katalvlaran/lvtdm/frame"
	"github.com/katalvlaran/lvtdm/zones"
)

// ZoneColumn names the zone ID column of a zone attribute file.
const ZoneColumn = "zone"

// Spec file fixed columns, ahead of one coefficient column per segment.
const (
	DescriptionColumn = "description"
	TargetColumn      = "target"
	ExpressionColumn  = "expression"
)

// readCSV returns the trimmed header and the data records of path.
func readCSV(fs billy.Filesystem, path string) ([]string, [][]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %q: %v: %w", path, err, ErrMalformedCSV)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%q has no header: %w", path, ErrMalformedCSV)
	}
	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	return header, records[1:], nil
}

// parseCell reads a numeric cell. Blank cells are NaN.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}

	return strconv.ParseFloat(s, 64)
}

// numericColumn parses column j of records, reporting the first bad row.
func numericColumn(records [][]string, j int) ([]float64, int, error) {
	out := make([]float64, len(records))
	for i, rec := range records {
		v, err := parseCell(rec[j])
		if err != nil {
			return nil, i, err
		}
		out[i] = v
	}

	return out, -1, nil
}

func zoneID(s string) (zones.ID, error) {
	v, err := parseCell(s)
	if err != nil || math.IsNaN(v) || v != math.Trunc(v) {
		return 0, fmt.Errorf("zone id %q is not an integer", s)
	}

	return zones.ID(v), nil
}

// LoadZones reads the zone attribute files and merges them into one table.
//
// Each file is indexed by its "zone" column, or by 1-based row number when
// it has none. Columns that are not numeric throughout are skipped. All files
// must list the same zones in the same order.
//
// Errors: ErrMalformedCSV, zones.ErrZoneMismatch, zones.ErrDuplicateZone, fs errors.
func LoadZones(fs billy.Filesystem, paths []string) (*zones.Table, error) {
	tables := make([]*zones.Table, 0, len(paths))
	for _, path := range paths {
		t, err := loadZoneFile(fs, path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	zt, err := zones.Merge(tables...)
	if err != nil {
		return nil, fmt.Errorf("zone files %v: %w", paths, err)
	}
	klog.InfoS("built zone table", "zones", zt.Len(), "columns", zt.Columns())

	return zt, nil
}

func loadZoneFile(fs billy.Filesystem, path string) (*zones.Table, error) {
	header, records, err := readCSV(fs, path)
	if err != nil {
		return nil, err
	}
	zoneCol := slices.Index(header, ZoneColumn)
	ids := make([]zones.ID, len(records))
	for i, rec := range records {
		if zoneCol < 0 {
			ids[i] = zones.ID(i + 1)
			continue
		}
		if ids[i], err = zoneID(rec[zoneCol]); err != nil {
			return nil, fmt.Errorf("%q row %d: %v: %w", path, i+1, err, ErrMalformedCSV)
		}
	}
	t, err := zones.NewTable(ids)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	for j, name := range header {
		if j == zoneCol {
			continue
		}
		col, row, err := numericColumn(records, j)
		if err != nil {
			klog.V(1).InfoS("skipping non-numeric zone column", "file", path, "column", name, "row", row+1)
			continue
		}
		if err = t.AddColumn(name, col); err != nil {
			return nil, fmt.Errorf("%q: %w", path, err)
		}
	}
	klog.V(1).InfoS("read zone file", "file", path, "zones", t.Len(), "implicitIDs", zoneCol < 0)

	return t, nil
}

// LoadSpec reads the utility spec CSV. The header must hold exactly
// description, target, expression and one column per segment, in any order.
//
// Errors: ErrMalformedCSV for a bad header, expr.ErrSpec and *expr.RuleError
// from compilation, fs errors.
func LoadSpec(fs billy.Filesystem, path string, segments []string) (*expr.Spec, error) {
	header, records, err := readCSV(fs, path)
	if err != nil {
		return nil, err
	}
	want := append([]string{DescriptionColumn, TargetColumn, ExpressionColumn}, segments...)
	got := slices.Clone(header)
	sort.Strings(got)
	sorted := slices.Clone(want)
	sort.Strings(sorted)
	if !slices.Equal(got, sorted) {
		return nil, fmt.Errorf("spec file %q requires header %v, got %v: %w", path, want, header, ErrMalformedCSV)
	}

	col := make(map[string]int, len(header))
	for j, name := range header {
		col[name] = j
	}
	rules := make([]expr.Rule, len(records))
	for i, rec := range records {
		coefs := make(map[string]string, len(segments))
		for _, s := range segments {
			coefs[s] = rec[col[s]]
		}
		rules[i] = expr.Rule{
			Description:  rec[col[DescriptionColumn]],
			Target:       rec[col[TargetColumn]],
			Expression:   rec[col[ExpressionColumn]],
			Coefficients: coefs,
		}
	}
	spec, err := expr.NewSpec(rules, segments)
	if err != nil {
		return nil, fmt.Errorf("spec file %q: %w", path, err)
	}
	klog.InfoS("read spec file", "file", path, "rules", spec.Len(), "segments", segments)

	return spec, nil
}

// LoadTrips reads a wide trips table (orig, dest, one column per segment).
// Every column must be numeric.
//
// Errors: ErrMalformedCSV, fs errors.
func LoadTrips(fs billy.Filesystem, path string) (*frame.Frame, error) {
	header, records, err := readCSV(fs, path)
	if err != nil {
		return nil, err
	}
	for _, need := range []string{zones.OrigColumn, zones.DestColumn} {
		if !slices.Contains(header, need) {
			return nil, fmt.Errorf("trips file %q lacks column %q: %w", path, need, ErrMalformedCSV)
		}
	}
	f := frame.New(len(records))
	for j, name := range header {
		col, row, err := numericColumn(records, j)
		if err != nil {
			return nil, fmt.Errorf("trips file %q column %q row %d: %v: %w", path, name, row+1, err, ErrMalformedCSV)
		}
		if err = f.SetFloats(name, col); err != nil {
			return nil, fmt.Errorf("trips file %q: %w", path, err)
		}
	}
	klog.InfoS("read trips table", "file", path, "rows", f.Len())

	return f, nil
}
