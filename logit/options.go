// SPDX-License-Identifier: MIT

package logit

import "runtime"

// DefaultWorkers bounds the number of segments evaluated concurrently.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Options configures Distribute.
type Options struct {
	workers   int
	traceRows []int
}

// Option mutates Options.
type Option func(*Options)

// WithWorkers bounds segment parallelism. Panics if n < 1.
func WithWorkers(n int) Option {
	if n < 1 {
		panic("logit: WithWorkers requires n >= 1")
	}

	return func(o *Options) { o.workers = n }
}

// WithTrace records per-segment traces for the given OD rows.
func WithTrace(rows []int) Option {
	return func(o *Options) { o.traceRows = rows }
}

func gatherOptions(opts ...Option) Options {
	o := Options{workers: DefaultWorkers}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
