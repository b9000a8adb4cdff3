package config

import (
	"fmt"
	"regexp"
	"strings"
)

// HeaderRule is an operator-supplied expectation about a response header.
// A rule either checks that a header is present, or that its value contains
// an unanchored match of a regular expression.
//
// Design decision: Rules are parsed and compiled once at startup rather than
// passing raw strings through the verifier. A bad pattern is a startup error,
// not something discovered mid-crawl.
type HeaderRule struct {
	// Name is the lower-cased header name the rule targets.
	Name string

	// Pattern is the compiled value expectation. Nil means the rule only
	// checks for the header's presence.
	Pattern *regexp.Regexp

	// RawPattern is the pattern source as supplied by the operator.
	// Empty for presence-only rules.
	RawPattern string
}

// ParseHeaderRule parses the CLI form of a header rule:
//
//	name            presence-only check
//	name:pattern    regexp value check (unanchored)
//
// The header name is lower-cased. Everything after the first colon is the
// pattern, so patterns may themselves contain colons.
func ParseHeaderRule(s string) (HeaderRule, error) {
	name, rawPattern, hasPattern := strings.Cut(s, ":")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return HeaderRule{}, fmt.Errorf("%w: empty header name in %q", ErrInvalidHeaderRule, s)
	}

	rule := HeaderRule{Name: name}
	if !hasPattern {
		return rule, nil
	}

	pattern, err := regexp.Compile(rawPattern)
	if err != nil {
		return HeaderRule{}, fmt.Errorf("%w: bad pattern for %q: %v", ErrInvalidHeaderRule, name, err)
	}

	rule.Pattern = pattern
	rule.RawPattern = rawPattern
	return rule, nil
}

// ParseHeaderRules parses a list of CLI rule strings, preserving order.
func ParseHeaderRules(specs []string) ([]HeaderRule, error) {
	rules := make([]HeaderRule, 0, len(specs))
	for _, s := range specs {
		rule, err := ParseHeaderRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// PresenceOnly reports whether the rule checks presence without a pattern.
func (r HeaderRule) PresenceOnly() bool {
	return r.Pattern == nil
}

// ExpectedPattern returns the raw pattern source, or nil for presence-only
// rules. This is the value stored in a record's verification partitions.
func (r HeaderRule) ExpectedPattern() *string {
	if r.Pattern == nil {
		return nil
	}
	p := r.RawPattern
	return &p
}
