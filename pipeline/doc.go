// SPDX-License-Identifier: MIT

// Package pipeline runs the model steps named in the settings, in order,
// over a shared registry of tables.
//
// Steps:
//
//	destination_choice  evaluate the utility spec over the OD table and
//	                    distribute origin trips per segment (tables od_table,
//	                    zone_summary, trips)
//	balance_trips       rake trips toward zone targets (table trips, and
//	                    trips_balancing_info when raking does not converge)
//	write_tables        write registered tables as CSV, and to SQLite when
//	                    output.sqlite is set
//
// The zone table is loaded by New and registered as "zones". Trace tables
// are written to the output filesystem as soon as a step produces them.
// Skim files are opened at the start of destination_choice and released
// when it returns, on every path. The context is checked between steps.
package pipeline
