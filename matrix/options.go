// SPDX-License-Identifier: MIT

// Package matrix: functional configuration of the numeric policy.
//
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors.
//
// Notes:
//   - Strict validation rejects NaN and ±Inf in Set and NewDenseFrom.
//   - Skim ingestion usually runs with WithNoValidateNaNInf, because +Inf
//     marks unreachable pairs and NaN marks cells the assignment never filled.
package matrix

// DefaultValidateNaNInf toggles strict finite-value validation on ingestion and Set.
const DefaultValidateNaNInf = true

// Options holds the resolved configuration of a Dense constructor call.
type Options struct {
	validateNaNInf bool // reject NaN/Inf when true
}

// Option mutates Options.
type Option func(*Options)

// defaultOptions returns the zero-config policy.
func defaultOptions() Options {
	return Options{validateNaNInf: DefaultValidateNaNInf}
}

// gatherOptions folds opts over the defaults in call order (last write wins).
func gatherOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

// WithValidateNaNInf enables strict rejection of NaN/Inf values.
func WithValidateNaNInf() Option {
	return func(o *Options) { o.validateNaNInf = true }
}

// WithNoValidateNaNInf accepts any float64 value, including NaN and ±Inf.
func WithNoValidateNaNInf() Option {
	return func(o *Options) { o.validateNaNInf = false }
}
