// SPDX-License-Identifier: MIT

// Package skim gives the model access to skim matrices: square zone×zone
// tables of travel impedance (distance, time, cost) stored in a container
// with one named matrix per key.
//
// Lifecycle:
//
//	h, err := skim.Open("skims", provider) // Stage 1: attach, check the shape
//	_, err = h.BuildOffsetMap(zoneIDs)     // Stage 2: zone ID -> matrix offset
//	v, err := h.Fetch("DIST")              // Stage 3: OD vector, cached per key
//	err = h.Release()                      // Stage 4: log unused keys, close
//
// Offset mapping strategies, in priority order:
//
//   - Explicit: the container declares exactly one zone mapping; offsets are
//     the positions of each zone ID in it. Two or more declared mappings are
//     ambiguous and rejected.
//   - Identity: the matrix size equals the zone count; zone order is offset order.
//   - Sequential: zone IDs are assumed 1-based and contiguous; offset = id - 1.
//
// Fetch reads only the mapped rows and columns, flattens them row-major
// (orig slowest), and caches the vector. Concurrent fetches of one key
// trigger at most one read. Returned vectors are shared; treat them as
// read-only.
//
// Sources:
//
//   - MemorySource: matrix.Dense per key, used by tests and small models.
//   - NetCDFSource: a NetCDF classic file; 2-D variables are skims and
//     1-D variables along the first dimension are zone mappings.
package skim
