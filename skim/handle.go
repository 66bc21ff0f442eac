// SPDX-License-Identifier: MIT

package skim

import (
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

// Handle is an opened skim matrix with its offset map and per-key cache.
// All methods are safe for concurrent use.
type Handle struct {
	name string
	src  Source
	size int
	keys map[string]struct{}

	mu       sync.RWMutex
	offsets  *OffsetMap
	cache    map[string][]float64
	gen      uint64 // bumped whenever cache is replaced
	released bool

	group singleflight.Group
}

// Open attaches to the container called name.
//
// Errors:
//   - ErrMatrixNotFound (from the provider).
//   - ErrShapeMismatch when the container is not square; the source is closed.
func Open(name string, provider Provider) (*Handle, error) {
	src, err := provider.Source(name)
	if err != nil {
		return nil, err
	}
	rows, cols := src.Shape()
	if rows != cols {
		_ = src.Close()
		return nil, fmt.Errorf("matrix %q is %dx%d: %w", name, rows, cols, ErrShapeMismatch)
	}
	keys := make(map[string]struct{})
	for _, k := range src.Keys() {
		keys[k] = struct{}{}
	}
	klog.V(2).InfoS("opened skim matrix", "matrix", name, "size", rows, "keys", len(keys))

	return &Handle{name: name, src: src, size: rows, keys: keys, cache: make(map[string][]float64)}, nil
}

// Name returns the container name.
func (h *Handle) Name() string { return h.name }

// Size returns the matrix dimension.
func (h *Handle) Size() int { return h.size }

// Keys returns the skim keys in the source's order.
func (h *Handle) Keys() []string { return h.src.Keys() }

// BuildOffsetMap fixes the zone order used by every later Fetch. Calling it
// again with a different zone list drops the cache; a read already in flight
// finishes with the old order and is not cached.
//
// Errors: ErrAmbiguousMapping, ErrUnmappedZone, ErrReleased.
func (h *Handle) BuildOffsetMap(zoneIDs []int) (*OffsetMap, error) {
	m, err := buildOffsetMap(h.src, h.size, zoneIDs)
	if err != nil {
		return nil, fmt.Errorf("matrix %q: %w", h.name, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, fmt.Errorf("matrix %q: %w", h.name, ErrReleased)
	}
	if h.offsets == nil || !slices.Equal(h.offsets.offsets, m.offsets) {
		h.cache = make(map[string][]float64)
		h.gen++
	}
	h.offsets = m
	klog.V(2).InfoS("built skim offset map", "matrix", h.name, "strategy", m.strategy.String(), "zones", len(zoneIDs))

	return m, nil
}

// Fetch returns the skim as an OD vector of length n² in the offset map's
// zone order (orig slowest). The first call per key reads the source; later
// calls return the cached vector. The vector is shared and must not be mutated.
//
// Errors: ErrUnknownSkimKey, ErrNoOffsetMap, ErrReleased, source read errors.
func (h *Handle) Fetch(key string) ([]float64, error) {
	if _, ok := h.keys[key]; !ok {
		return nil, fmt.Errorf("matrix %q key %q: %w", h.name, key, ErrUnknownSkimKey)
	}
	v, ok, gen, err := h.cached(key)
	if err != nil || ok {
		return v, err
	}

	// Flights are per offset generation so a caller never joins a read made
	// with an older zone order.
	flight := fmt.Sprintf("%d/%s", gen, key)
	res, err, _ := h.group.Do(flight, func() (interface{}, error) {
		// Re-check under the flight: a previous flight may have filled the cache.
		if v, ok, _, err := h.cached(key); err != nil || ok {
			return v, err
		}
		h.mu.RLock()
		offsets, started := h.offsets.offsets, h.gen
		h.mu.RUnlock()

		data, err := h.src.ReadSubmatrix(key, offsets)
		if err != nil {
			return nil, fmt.Errorf("matrix %q key %q: %w", h.name, key, err)
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.released {
			return nil, fmt.Errorf("matrix %q: %w", h.name, ErrReleased)
		}
		if h.gen == started {
			h.cache[key] = data
		}

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return res.([]float64), nil
}

// cached reports a cache hit with the current offset generation, or the
// state error that forbids reading.
func (h *Handle) cached(key string) ([]float64, bool, uint64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.released {
		return nil, false, 0, fmt.Errorf("matrix %q: %w", h.name, ErrReleased)
	}
	if h.offsets == nil {
		return nil, false, 0, fmt.Errorf("matrix %q: %w", h.name, ErrNoOffsetMap)
	}
	v, ok := h.cache[key]

	return v, ok, h.gen, nil
}

// Warm fetches every key in keys, stopping at the first error.
func (h *Handle) Warm(keys ...string) error {
	for _, k := range keys {
		if _, err := h.Fetch(k); err != nil {
			return err
		}
	}

	return nil
}

// Release logs the keys that were never fetched, drops the cache and closes
// the source. Release is idempotent; the first call returns the close error.
func (h *Handle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	var unused []string
	for _, k := range h.src.Keys() {
		if _, ok := h.cache[k]; !ok {
			unused = append(unused, k)
		}
	}
	h.cache = nil
	h.mu.Unlock()

	for _, k := range unused {
		klog.InfoS("skim never used", "matrix", h.name, "key", k)
	}
	if err := h.src.Close(); err != nil {
		return fmt.Errorf("matrix %q close: %w", h.name, err)
	}

	return nil
}
