// Package sbom defines the canonical package and dependency record model
// shared by the normalizer, classifier, merge engine, and scorer, plus
// the CycloneDX-shaped canonical output document.
package sbom

import "strings"

// MatchStatus is the three-way cross-source identity classification of a
// package within one reconciliation unit.
type MatchStatus string

const (
	// MatchExact means the same (name, version) was reported by at
	// least two distinct sources.
	MatchExact MatchStatus = "exact"
	// MatchFuzzy means the package scored above the similarity
	// threshold against a package from another source.
	MatchFuzzy MatchStatus = "fuzzy"
	// MatchUnique means no other source reported an equivalent package.
	MatchUnique MatchStatus = "unique"
)

// Rank orders statuses by confidence: exact > fuzzy > unique.
// Merge selection iterates packages in descending rank.
func (s MatchStatus) Rank() int {
	switch s {
	case MatchExact:
		return 3
	case MatchFuzzy:
		return 2
	case MatchUnique:
		return 1
	default:
		return 0
	}
}

// RelationshipType is the normalized dependency relationship category.
type RelationshipType string

const (
	// RelFunctional is a runtime dependency.
	RelFunctional RelationshipType = "functional"
	// RelBuild is a build-time dependency.
	RelBuild RelationshipType = "build"
	// RelDev is a development-only dependency.
	RelDev RelationshipType = "dev"
	// RelOptional is an optional dependency.
	RelOptional RelationshipType = "optional"
)

// ComponentTypeLibrary is the default component type for packages whose
// source document does not state a purpose.
const ComponentTypeLibrary = "library"

// Package is one component record contributed by one source document.
// A Package is always scoped to exactly one (unit, source) pair.
// Uniqueness within a source is by (Name, Version, LocalRef); it is not
// enforced globally.
type Package struct {
	// Name is the package name. Never empty: normalization discards
	// records whose name is empty after trimming.
	Name string `json:"name"`
	// Version may be empty when the source did not report one.
	Version string `json:"version"`
	// PURL is the canonical package-url identifier, if reported.
	PURL string `json:"purl,omitempty"`
	// CPE is the platform identifier string, if reported.
	CPE string `json:"cpe,omitempty"`
	// Licenses holds license identifiers in source order, deduplicated.
	Licenses []string `json:"licenses,omitempty"`
	// Type is the component type; defaults to "library".
	Type string `json:"type"`
	// Description is free text from the source document.
	Description string `json:"description,omitempty"`
	// Source names the scanner or platform that produced this record.
	Source string `json:"source"`
	// LocalRef is the identifier used for this record within its source
	// document. Dependency edges resolve through it.
	LocalRef string `json:"local_ref"`
	// Primary marks the root component the source document describes.
	Primary bool `json:"primary,omitempty"`
}

// Dependency is a directed "depends on" edge scoped to one source
// document. Both refs are source-local and must be translated through
// the merge engine's ref table before they mean anything globally.
type Dependency struct {
	Source       string           `json:"source"`
	ParentRef    string           `json:"parent_ref"`
	ChildRef     string           `json:"child_ref"`
	OriginalType string           `json:"original_type,omitempty"`
	Type         RelationshipType `json:"type"`
}

// Key identifies one package record within a classification map.
type Key struct {
	Source  string `json:"source"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Match is the derived classification for one package record.
type Match struct {
	Status MatchStatus `json:"status"`
	// Occurrences is the number of distinct sources reporting an
	// equivalent package. 1 for unique, >= 2 otherwise.
	Occurrences int `json:"occurrences"`
	// Score is the best overall similarity score for fuzzy entries,
	// kept for reporting only. 1 for exact, 0 for unique.
	Score float64 `json:"score,omitempty"`
}

// Classification maps every (source, name, version) in a reconciliation
// unit to its match result.
type Classification map[Key]Match

// KeyOf returns the classification key for a package.
func KeyOf(p Package) Key {
	return Key{Source: p.Source, Name: p.Name, Version: p.Version}
}

// NameVersion returns the "name@version" identity string used as a
// bom-ref fallback when a package has no PURL.
func (p Package) NameVersion() string {
	return p.Name + "@" + p.Version
}

// Valid reports whether the package satisfies the model invariant:
// a non-empty name after trimming.
func (p Package) Valid() bool {
	return strings.TrimSpace(p.Name) != ""
}
