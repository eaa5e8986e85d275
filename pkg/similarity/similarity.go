// Package similarity provides the two pure string-similarity functions
// the classifier is built on: a fast, coarse trigram coefficient used
// as a candidate pre-filter, and an exact normalized edit distance used
// for final scoring. Neither depends on any storage engine.
package similarity

import "strings"

// Trigram returns the trigram-overlap coefficient between a and b in
// [0, 1]. Strings are lower-cased and padded before trigram extraction,
// matching the behavior of common trigram indexes, so the result is a
// cheap approximation suitable only for filtering candidates.
//
// When both strings are empty the similarity is 0, not 1: empty input
// must never produce a spurious perfect score.
func Trigram(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}

	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for t := range ta {
		if tb[t] {
			common++
		}
	}
	union := len(ta) + len(tb) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

// trigrams extracts the set of character trigrams from s, padded with
// two leading and one trailing space.
func trigrams(s string) map[string]bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	padded := "  " + s + " "
	runes := []rune(padded)
	set := make(map[string]bool, len(runes))
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}
	return set
}

// NormalizedLevenshtein returns 1 − editDistance(a, b) / max(len(a), len(b)).
// The result is in [0, 1]; identical strings score 1. When both strings
// are empty the similarity is defined as 0.
func NormalizedLevenshtein(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein(ra, rb)
	return 1 - float64(dist)/float64(maxLen)
}

// levenshtein computes the edit distance between two rune slices with a
// two-row dynamic program.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
