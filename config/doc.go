// SPDX-License-Identifier: MIT

// Package config loads a model run: the YAML settings file and the CSV and
// NetCDF inputs it names.
//
// Every loader reads through a billy.Filesystem, so a run can be served from
// the host (osfs) or from memory (memfs). Two roots are involved:
//
//	configs/  settings.yaml and the utility spec CSV
//	data/     zone attribute CSVs, NetCDF skims, the optional balancing input table
//
// CSV files have a header row and may carry "#" comment lines. A zone file
// without a "zone" column gets 1-based zone IDs in row order.
package config
