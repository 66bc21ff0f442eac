// SPDX-License-Identifier: MIT

// Package zones holds the zone table (ordered zone IDs plus attribute
// columns) and the helpers that derive OD-shaped data from it:
//
//   - ODIndex: the full cartesian product of zones, orig varying slowest.
//   - Broadcast: zone attributes repeated along the OD index, so that an
//     expression can read dest_zone.size or orig_zone['parking'] as an
//     OD-length vector.
//   - Summary: the origin rollup of OD columns.
//   - Merge: combination of several zone files that share one index.
//
// Zone order is part of the contract. Every OD vector in the model is laid
// out in the order of Table.IDs().
package zones
