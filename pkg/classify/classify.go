// Package classify performs cross-source identity resolution: every
// package record in a reconciliation unit is labeled exact, fuzzy, or
// unique depending on how many other sources report an equivalent
// package. Classification is a pure function of the unit's packages;
// persistence belongs to the caller.
package classify

import (
	"sort"
	"strings"

	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/sbom"
	"github.com/sbommeld/sbommeld/pkg/similarity"
)

func errOutOfRange(field string, v float64) error {
	return errors.NewValidationError(field, v, "must be between 0 and 1")
}

// Default thresholds. The trigram thresholds gate which cross-source
// pairs are worth scoring exactly; the overall threshold is the final
// acceptance bar on the averaged edit-distance similarity.
const (
	DefaultNameThreshold    = 0.7
	DefaultVersionThreshold = 0.5
	DefaultOverallThreshold = 0.8
	DefaultCandidateLimit   = 1000
)

// Classifier resolves package identity across sources.
type Classifier struct {
	nameThreshold    float64
	versionThreshold float64
	overallThreshold float64
	candidateLimit   int
	caseSensitive    bool
}

// Option configures a Classifier.
type Option func(*Classifier) error

// WithNameThreshold sets the trigram pre-filter threshold for names.
func WithNameThreshold(t float64) Option {
	return func(c *Classifier) error {
		if t < 0 || t > 1 {
			return errOutOfRange("name threshold", t)
		}
		c.nameThreshold = t
		return nil
	}
}

// WithVersionThreshold sets the trigram pre-filter threshold for versions.
func WithVersionThreshold(t float64) Option {
	return func(c *Classifier) error {
		if t < 0 || t > 1 {
			return errOutOfRange("version threshold", t)
		}
		c.versionThreshold = t
		return nil
	}
}

// WithOverallThreshold sets the acceptance threshold on the averaged
// name/version similarity of a candidate pair.
func WithOverallThreshold(t float64) Option {
	return func(c *Classifier) error {
		if t < 0 || t > 1 {
			return errOutOfRange("overall threshold", t)
		}
		c.overallThreshold = t
		return nil
	}
}

// WithCandidateLimit caps how many pre-filtered candidates are scored
// per record. Zero or negative disables the cap.
func WithCandidateLimit(n int) Option {
	return func(c *Classifier) error {
		c.candidateLimit = n
		return nil
	}
}

// WithCaseSensitive controls whether the exact stage compares names and
// versions byte-for-byte (the default) or case-folded.
func WithCaseSensitive(v bool) Option {
	return func(c *Classifier) error {
		c.caseSensitive = v
		return nil
	}
}

// New returns a Classifier with the given options applied over defaults.
func New(opts ...Option) (*Classifier, error) {
	c := &Classifier{
		nameThreshold:    DefaultNameThreshold,
		versionThreshold: DefaultVersionThreshold,
		overallThreshold: DefaultOverallThreshold,
		candidateLimit:   DefaultCandidateLimit,
		caseSensitive:    true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// record is one package plus its precomputed comparison identity.
type record struct {
	key     sbom.Key
	name    string // folded when case-insensitive
	version string
}

// Classify labels every package record in the unit. Exact resolution
// runs first; records it does not claim go through fuzzy resolution,
// and whatever remains is unique. The result covers every distinct
// (source, name, version) key in the input.
func (c *Classifier) Classify(pkgs []sbom.Package) sbom.Classification {
	result := make(sbom.Classification, len(pkgs))

	records := make([]record, 0, len(pkgs))
	sources := make(map[string]bool)
	seen := make(map[sbom.Key]bool, len(pkgs))
	for _, p := range pkgs {
		key := sbom.KeyOf(p)
		if seen[key] {
			continue
		}
		seen[key] = true

		// A blank name carries no identity to resolve against.
		if strings.TrimSpace(p.Name) == "" {
			result[key] = sbom.Match{Status: sbom.MatchUnique, Occurrences: 1}
			continue
		}

		name, version := p.Name, p.Version
		if !c.caseSensitive {
			name = strings.ToLower(name)
			version = strings.ToLower(version)
		}
		records = append(records, record{key: key, name: name, version: version})
		sources[key.Source] = true
	}

	remaining := c.classifyExact(records, result)
	if len(sources) >= 2 {
		remaining = c.classifyFuzzy(remaining, result)
	}
	for _, r := range remaining {
		result[r.key] = sbom.Match{Status: sbom.MatchUnique, Occurrences: 1}
	}
	return result
}

// classifyExact groups records by comparison identity and marks every
// group reported by two or more distinct sources as exact. Returns the
// records no exact group claimed.
func (c *Classifier) classifyExact(records []record, result sbom.Classification) []record {
	type identity struct{ name, version string }
	groups := make(map[identity][]int, len(records))
	for i, r := range records {
		id := identity{r.name, r.version}
		groups[id] = append(groups[id], i)
	}

	claimed := make([]bool, len(records))
	for _, members := range groups {
		srcs := make(map[string]bool, len(members))
		for _, i := range members {
			srcs[records[i].key.Source] = true
		}
		if len(srcs) < 2 {
			continue
		}
		for _, i := range members {
			claimed[i] = true
			result[records[i].key] = sbom.Match{
				Status:      sbom.MatchExact,
				Occurrences: len(srcs),
				Score:       1,
			}
		}
	}

	remaining := records[:0:0]
	for i, r := range records {
		if !claimed[i] {
			remaining = append(remaining, r)
		}
	}
	return remaining
}

// candidate is a cross-source pair that survived the trigram pre-filter.
type candidate struct {
	other   int
	trigram float64
}

// classifyFuzzy scores each remaining record against records from other
// sources. Pairs pass a coarse trigram pre-filter on name and version,
// then the best candidates are scored with normalized edit distance;
// a pair whose averaged similarity clears the overall threshold makes
// both sides fuzzy. Returns the records left for unique classification.
func (c *Classifier) classifyFuzzy(records []record, result sbom.Classification) []record {
	partnerSources := make([]map[string]bool, len(records))
	bestScore := make([]float64, len(records))

	for i, r := range records {
		candidates := make([]candidate, 0, 16)
		for j, o := range records {
			if j == i || o.key.Source == r.key.Source {
				continue
			}
			nameSim := similarity.Trigram(r.name, o.name)
			if nameSim <= c.nameThreshold {
				continue
			}
			if similarity.Trigram(r.version, o.version) <= c.versionThreshold {
				continue
			}
			candidates = append(candidates, candidate{other: j, trigram: nameSim})
		}

		// Score only the strongest pre-filter survivors.
		if c.candidateLimit > 0 && len(candidates) > c.candidateLimit {
			sort.Slice(candidates, func(a, b int) bool {
				return candidates[a].trigram > candidates[b].trigram
			})
			candidates = candidates[:c.candidateLimit]
		}

		for _, cand := range candidates {
			o := records[cand.other]
			score := (similarity.NormalizedLevenshtein(r.name, o.name) +
				similarity.NormalizedLevenshtein(r.version, o.version)) / 2
			if score <= c.overallThreshold {
				continue
			}
			if partnerSources[i] == nil {
				partnerSources[i] = make(map[string]bool, 2)
			}
			partnerSources[i][o.key.Source] = true
			if score > bestScore[i] {
				bestScore[i] = score
			}
		}
	}

	remaining := records[:0:0]
	for i, r := range records {
		if partnerSources[i] == nil {
			remaining = append(remaining, r)
			continue
		}
		result[r.key] = sbom.Match{
			Status:      sbom.MatchFuzzy,
			Occurrences: len(partnerSources[i]) + 1,
			Score:       bestScore[i],
		}
	}
	return remaining
}
