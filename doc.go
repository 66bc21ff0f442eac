// SPDX-License-Identifier: MIT

// Package lvtdm is a trip distribution model: it spreads the trips produced
// in each zone over destination zones by logit choice on utilities computed
// from skims and zone attributes, then rakes the result toward zone targets.
//
// Packages, bottom up:
//
//	matrix/    dense float64 storage backing in-memory skims
//	frame/     columnar OD tables (numeric and label columns)
//	zones/     zone table, OD index, attribute broadcasts, origin summary
//	skim/      skim access: offset mapping, cached OD vectors, NetCDF files
//	expr/      utility expressions: parser, evaluator, rule specs
//	trace/     OD trace selection
//	logit/     destination choice distribution per segment
//	ipf/       iterative proportional fitting over N dimensions
//	balance/   trip balancing against zone trip targets
//	config/    YAML settings and CSV/NetCDF input loaders
//	sink/      CSV and SQLite table output
//	pipeline/  step orchestration for a model run
//
// The lvtdm command (cmd/lvtdm) runs a model from a configs and a data
// directory into an output directory.
package lvtdm
