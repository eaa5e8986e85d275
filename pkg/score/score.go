// Package score computes the per-source agreement score: a descriptive
// signal ranking how much each source agrees with the rest of the unit.
// Scores never influence merge selection.
package score

import "github.com/sbommeld/sbommeld/pkg/sbom"

// SourceBreakdown is the per-source classification census with its
// derived agreement score.
type SourceBreakdown struct {
	Total  int     `json:"total"`
	Exact  int     `json:"exact"`
	Fuzzy  int     `json:"fuzzy"`
	Unique int     `json:"unique"`
	Score  float64 `json:"score"`
}

// Analysis is the full unit census: per-source breakdowns plus the
// unit-wide totals.
type Analysis struct {
	Sources map[string]SourceBreakdown `json:"sources"`
	Total   int                        `json:"total"`
	Exact   int                        `json:"exact"`
	Fuzzy   int                        `json:"fuzzy"`
	Unique  int                        `json:"unique"`
}

// Analyze tallies a classification into per-source breakdowns and
// computes each source's agreement score. Exact matches count fully,
// fuzzy matches at half weight, and unique packages apply a penalty.
// A source with zero packages scores 0, and scores never go negative.
func Analyze(c sbom.Classification) Analysis {
	a := Analysis{Sources: make(map[string]SourceBreakdown)}
	for key, match := range c {
		b := a.Sources[key.Source]
		b.Total++
		a.Total++
		switch match.Status {
		case sbom.MatchExact:
			b.Exact++
			a.Exact++
		case sbom.MatchFuzzy:
			b.Fuzzy++
			a.Fuzzy++
		default:
			b.Unique++
			a.Unique++
		}
		a.Sources[key.Source] = b
	}
	for source, b := range a.Sources {
		b.Score = agreement(b)
		a.Sources[source] = b
	}
	return a
}

// Scores returns just the per-source agreement scores.
func Scores(c sbom.Classification) map[string]float64 {
	a := Analyze(c)
	scores := make(map[string]float64, len(a.Sources))
	for source, b := range a.Sources {
		scores[source] = b.Score
	}
	return scores
}

func agreement(b SourceBreakdown) float64 {
	if b.Total == 0 {
		return 0
	}
	total := float64(b.Total)
	s := (float64(b.Exact)+0.5*float64(b.Fuzzy))/total*100 - float64(b.Unique)/total*10
	if s < 0 {
		return 0
	}
	return s
}
