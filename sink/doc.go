// SPDX-License-Identifier: MIT

// Package sink persists frames produced by a model run.
//
//   - CSVWriter writes one CSV file per table through a billy.Filesystem.
//     Final tables are named <prefix><table>.csv, traces trace.<name>.csv.
//   - SQLiteStore keeps every run in one SQLite database. Each run gets a
//     row in the runs table and its tables are written to same-named SQLite
//     tables keyed by run_id. Columns missing from an existing table are added.
//
// Missing numbers (NaN) are written as empty CSV cells and SQL NULLs.
package sink
