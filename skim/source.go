// SPDX-License-Identifier: MIT

package skim

import (
	"fmt"
	"sort"
)

// Source is an opened skim container.
//
// Implementations must be safe for concurrent ReadSubmatrix calls on
// distinct keys; Handle never reads the same key twice.
type Source interface {
	// Shape returns the matrix dimensions shared by every skim.
	Shape() (rows, cols int)
	// Keys lists the skim keys in a stable order.
	Keys() []string
	// Mappings lists the declared zone mappings (zero, one or many).
	Mappings() []string
	// Mapping returns the zone ID stored at each matrix offset.
	Mapping(name string) ([]int, error)
	// ReadSubmatrix returns m[offsets, :][:, offsets] flattened row-major.
	ReadSubmatrix(key string, offsets []int) ([]float64, error)
	// Close releases the container.
	Close() error
}

// Provider resolves a container name to an opened Source.
type Provider interface {
	Source(name string) (Source, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(name string) (Source, error)

// Source implements Provider.
func (f ProviderFunc) Source(name string) (Source, error) { return f(name) }

// Catalog is a Provider over already opened sources.
type Catalog map[string]Source

// Source implements Provider.
func (c Catalog) Source(name string) (Source, error) {
	s, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("matrix %q: %w", name, ErrMatrixNotFound)
	}

	return s, nil
}

// Names returns the catalog names in sorted order.
func (c Catalog) Names() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}
