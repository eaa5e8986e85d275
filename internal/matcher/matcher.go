// Package matcher provides pattern matching for merge-policy predicates:
// noise-package detection (substring patterns) and excluded-namespace
// detection (prefix patterns), with glob support for configured rules.
package matcher

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PatternType represents the kind of pattern matching to use.
type PatternType int

const (
	// Substring matches when the pattern occurs anywhere in the input.
	Substring PatternType = iota
	// Prefix matches when the input starts with the pattern.
	Prefix
	// Glob uses shell-style glob patterns (*, ?, []).
	Glob
)

// String returns a string representation of the PatternType.
func (pt PatternType) String() string {
	switch pt {
	case Substring:
		return "substring"
	case Prefix:
		return "prefix"
	case Glob:
		return "glob"
	default:
		return "unknown"
	}
}

// Matcher is the interface for a single compiled pattern.
type Matcher interface {
	// Match checks if the input matches the pattern.
	Match(input string) bool
	// Pattern returns the original pattern string.
	Pattern() string
	// Type returns the pattern type being used.
	Type() PatternType
}

// matcher is the concrete implementation of the Matcher interface.
type matcher struct {
	pattern         string
	patternType     PatternType
	caseInsensitive bool
}

// Options configures matcher behavior.
type Options struct {
	// CaseInsensitive makes matching case-insensitive.
	CaseInsensitive bool
}

// New creates a new Matcher with the specified pattern and type.
func New(patternType PatternType, pattern string, opts ...*Options) (Matcher, error) {
	m := &matcher{
		pattern:     pattern,
		patternType: patternType,
	}
	if len(opts) > 0 && opts[0] != nil {
		m.caseInsensitive = opts[0].CaseInsensitive
	}

	if patternType == Glob {
		// Validate the glob pattern up front
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
	}
	return m, nil
}

// MustNew creates a new Matcher and panics if there's an error.
func MustNew(patternType PatternType, pattern string, opts ...*Options) Matcher {
	m, err := New(patternType, pattern, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Match checks if the input matches the pattern.
func (m *matcher) Match(input string) bool {
	pattern := m.pattern
	if m.caseInsensitive {
		pattern = strings.ToLower(pattern)
		input = strings.ToLower(input)
	}

	switch m.patternType {
	case Substring:
		return strings.Contains(input, pattern)
	case Prefix:
		return strings.HasPrefix(input, pattern)
	case Glob:
		matched, _ := filepath.Match(pattern, input)
		return matched
	default:
		return false
	}
}

// Pattern returns the original pattern string.
func (m *matcher) Pattern() string {
	return m.pattern
}

// Type returns the pattern type being used.
func (m *matcher) Type() PatternType {
	return m.patternType
}

// MultiMatcher handles multiple patterns simultaneously; it matches when
// any one of its patterns matches.
type MultiMatcher struct {
	matchers []Matcher
}

// NewMultiMatcher creates a matcher with multiple patterns of one type.
func NewMultiMatcher(patterns []string, patternType PatternType, opts ...*Options) (*MultiMatcher, error) {
	mm := &MultiMatcher{
		matchers: make([]Matcher, 0, len(patterns)),
	}
	for _, pattern := range patterns {
		m, err := New(patternType, pattern, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create matcher for pattern %q: %w", pattern, err)
		}
		mm.matchers = append(mm.matchers, m)
	}
	return mm, nil
}

// Match returns true if any pattern matches.
func (mm *MultiMatcher) Match(input string) bool {
	for _, m := range mm.matchers {
		if m.Match(input) {
			return true
		}
	}
	return false
}

// MatchAny returns true if any of the inputs match any pattern.
func (mm *MultiMatcher) MatchAny(inputs ...string) bool {
	for _, input := range inputs {
		if mm.Match(input) {
			return true
		}
	}
	return false
}

// Patterns returns the original pattern strings.
func (mm *MultiMatcher) Patterns() []string {
	out := make([]string, len(mm.matchers))
	for i, m := range mm.matchers {
		out[i] = m.Pattern()
	}
	return out
}
