// SPDX-License-Identifier: MIT

package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"k8s.io/klog/v2"

	"github.com/katalvlaran/lvtdm/frame"
)

// TracePrefix prefixes trace file names.
const TracePrefix = "trace."

// TableWriter persists named tables.
type TableWriter interface {
	WriteTable(name string, f *frame.Frame) error
}

// CSVWriter writes frames as CSV files into a filesystem.
type CSVWriter struct {
	fs     billy.Filesystem
	prefix string
}

// NewCSVWriter writes final tables as <prefix><name>.csv into fs.
func NewCSVWriter(fs billy.Filesystem, prefix string) *CSVWriter {
	return &CSVWriter{fs: fs, prefix: prefix}
}

// WriteTable implements TableWriter.
func (w *CSVWriter) WriteTable(name string, f *frame.Frame) error {
	return w.write(w.prefix+name+".csv", name, f)
}

// WriteTrace writes a trace table as trace.<name>.csv.
func (w *CSVWriter) WriteTrace(name string, f *frame.Frame) error {
	return w.write(TracePrefix+name+".csv", name, f)
}

func (w *CSVWriter) write(path, name string, f *frame.Frame) error {
	if name == "" {
		return ErrInvalidName
	}
	if f == nil {
		return fmt.Errorf("table %q: %w", name, ErrNilFrame)
	}
	out, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err = WriteCSV(out, f); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	klog.V(1).InfoS("wrote csv table", "file", path, "rows", f.Len())

	return nil
}

// WriteCSV writes f with a header row, one record per frame row.
func WriteCSV(out io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(out)
	names := f.Names()
	if err := cw.Write(names); err != nil {
		return err
	}

	cols := make([]func(int) string, len(names))
	for j, name := range names {
		if f.IsLabel(name) {
			v, _ := f.Labels(name)
			cols[j] = func(i int) string { return v[i] }
			continue
		}
		v, _ := f.Floats(name)
		cols[j] = func(i int) string { return formatFloat(v[i]) }
	}
	rec := make([]string, len(names))
	for i := 0; i < f.Len(); i++ {
		for j := range cols {
			rec[j] = cols[j](i)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()

	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}

	return strconv.FormatFloat(v, 'g', -1, 64)
}
