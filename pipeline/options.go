// SPDX-License-Identifier: MIT

package pipeline

import "github.com/katalvlaran/lvtdm/skim"

// Options configures a Pipeline.
type Options struct {
	provider skim.Provider
}

// Option mutates Options.
type Option func(*Options)

// WithSkimProvider serves skims from p instead of the NetCDF files listed
// under aggregate_od_matrices.
func WithSkimProvider(p skim.Provider) Option {
	if p == nil {
		panic("pipeline: WithSkimProvider requires a provider")
	}

	return func(o *Options) { o.provider = p }
}

func gatherOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
