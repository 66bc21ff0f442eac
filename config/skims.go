// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
	"k8s.io/klog/v2"

	"github.com/katalvlaran/lvtdm/skim"
)

// SkimCatalog is a skim.Provider over NetCDF files in a data filesystem.
// Each Source call opens the file anew; the returned source owns it.
type SkimCatalog struct {
	fs    billy.Filesystem
	files map[string]string // name -> path
}

// NewSkimCatalog maps expression names to NetCDF file paths in fs.
func NewSkimCatalog(fs billy.Filesystem, files map[string]string) *SkimCatalog {
	c := &SkimCatalog{fs: fs, files: make(map[string]string, len(files))}
	for k, v := range files {
		c.files[k] = v
	}

	return c
}

// Names returns the catalog names in sorted order.
func (c *SkimCatalog) Names() []string {
	out := make([]string, 0, len(c.files))
	for k := range c.files {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// Source implements skim.Provider.
//
// Errors: skim.ErrMatrixNotFound for unknown names and missing files,
// NetCDF header errors otherwise.
func (c *SkimCatalog) Source(name string) (skim.Source, error) {
	path, ok := c.files[name]
	if !ok {
		return nil, fmt.Errorf("matrix %q: %w", name, skim.ErrMatrixNotFound)
	}
	f, err := c.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("matrix %q file %q: %w", name, path, skim.ErrMatrixNotFound)
		}
		return nil, fmt.Errorf("matrix %q file %q: %w", name, path, err)
	}
	src, err := skim.OpenNetCDF(readOnlyFile{f}, f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("matrix %q file %q: %w", name, path, err)
	}
	rows, cols := src.Shape()
	klog.InfoS("opened skim file", "matrix", name, "file", path, "shape", fmt.Sprintf("%dx%d", rows, cols), "skims", len(src.Keys()))

	return src, nil
}

// readOnlyFile satisfies cdf.ReaderWriterAt for files opened for reading.
type readOnlyFile struct{ billy.File }

func (readOnlyFile) WriteAt([]byte, int64) (int, error) { return 0, ErrReadOnly }
