// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Rule is one row of a utility specification.
type Rule struct {
	Description  string
	Target       string
	Expression   string
	Coefficients map[string]string // segment -> coefficient expression
}

type compiledRule struct {
	Rule
	expr  *Expr
	coefs map[string]*Expr
}

// Spec is a validated, compiled rule list.
type Spec struct {
	rules    []compiledRule
	segments []string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reserved = map[string]bool{"and": true, "or": true, "not": true, "True": true, "False": true}

// NewSpec validates and compiles rules.
//
// Stage 1 (Normalize): trim every text field.
// Stage 2 (Validate): identifier targets, unique targets, coefficient keys
// equal to segments exactly.
// Stage 3 (Compile): parse expressions and coefficients. A blank
// coefficient means 0.
//
// Errors:
//   - ErrSpec for structural problems (naming the rule or segment).
//   - *RuleError wrapping ErrSyntax for expressions that do not parse.
func NewSpec(rules []Rule, segments []string) (*Spec, error) {
	segs := make([]string, len(segments))
	for i, s := range segments {
		segs[i] = strings.TrimSpace(s)
	}
	want := slices.Clone(segs)
	sort.Strings(want)
	if len(slices.Compact(slices.Clone(want))) != len(want) {
		return nil, fmt.Errorf("duplicate segment in %v: %w", segments, ErrSpec)
	}

	out := &Spec{segments: segs, rules: make([]compiledRule, 0, len(rules))}
	seen := make(map[string]bool, len(rules))
	for k, r := range rules {
		cr := compiledRule{Rule: Rule{
			Description: strings.TrimSpace(r.Description),
			Target:      strings.TrimSpace(r.Target),
			Expression:  strings.TrimSpace(r.Expression),
		}, coefs: make(map[string]*Expr, len(r.Coefficients))}

		if !identRe.MatchString(cr.Target) || reserved[cr.Target] {
			return nil, fmt.Errorf("rule %d: target %q is not an identifier: %w", k, cr.Target, ErrSpec)
		}
		if seen[cr.Target] {
			return nil, fmt.Errorf("rule %d: duplicate target %q: %w", k, cr.Target, ErrSpec)
		}
		seen[cr.Target] = true

		got := make([]string, 0, len(r.Coefficients))
		cr.Coefficients = make(map[string]string, len(r.Coefficients))
		for seg, c := range r.Coefficients {
			seg, c = strings.TrimSpace(seg), strings.TrimSpace(c)
			got = append(got, seg)
			if c == "" {
				c = "0"
			}
			cr.Coefficients[seg] = c
		}
		sort.Strings(got)
		if !slices.Equal(got, want) {
			return nil, fmt.Errorf("rule %q: coefficient segments %v, want %v: %w", cr.Target, got, want, ErrSpec)
		}

		var err error
		if cr.expr, err = Parse(cr.Expression); err != nil {
			return nil, &RuleError{Target: cr.Target, Expression: cr.Expression, Err: err}
		}
		for seg, c := range cr.Coefficients {
			if cr.coefs[seg], err = Parse(c); err != nil {
				return nil, &RuleError{Target: cr.Target, Expression: c, Err: fmt.Errorf("segment %q: %w", seg, err)}
			}
		}
		out.rules = append(out.rules, cr)
	}

	return out, nil
}

// Len returns the number of rules.
func (s *Spec) Len() int { return len(s.rules) }

// Segments returns the segment names in declaration order.
func (s *Spec) Segments() []string { return slices.Clone(s.segments) }

// HasSegment reports whether name is a declared segment.
func (s *Spec) HasSegment(name string) bool { return slices.Contains(s.segments, name) }

// Targets returns the rule targets in evaluation order.
func (s *Spec) Targets() []string {
	out := make([]string, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Target
	}

	return out
}

// Rules returns copies of the normalized rules.
func (s *Spec) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Rule
		out[i].Coefficients = make(map[string]string, len(r.Coefficients))
		for k, v := range r.Coefficients {
			out[i].Coefficients[k] = v
		}
	}

	return out
}
