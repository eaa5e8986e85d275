// Package merge implements the deterministic merge engine: it consumes a
// unit's classified packages and dependency edges, applies the inclusion
// policy in two passes, remaps every edge through the source-ref →
// bom-ref table, and assembles the canonical CycloneDX document with the
// primary component restored into metadata.
package merge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/github/go-spdx/v2/spdxexp"
	"github.com/google/uuid"

	"github.com/sbommeld/sbommeld/internal/matcher"
	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/logging"
	"github.com/sbommeld/sbommeld/pkg/sbom"
)

// DefaultNoisePatterns match CI/workflow-pipeline packages that scanners
// pick up from repository automation rather than the artifact itself.
var DefaultNoisePatterns = []string{"actions/", "github/", ".github/", "workflow/", "action-"}

// DefaultExcludedNamespaces are identifier prefixes of platform-internal
// ecosystems whose packages are never selectable, primary or not.
var DefaultExcludedNamespaces = []string{"pkg:bdio"}

// Property names stamped on components and document metadata.
const (
	PropMatchStatus      = "sbommeld:match_status"
	PropOccurrenceCount  = "sbommeld:occurrence_count"
	PropSource           = "sbommeld:source"
	PropTotalComponents  = "sbommeld:total_components"
	PropExactMatches     = "sbommeld:exact_matches"
	PropFuzzyMatches     = "sbommeld:fuzzy_matches"
	PropUniqueIncluded   = "sbommeld:unique_included"
	PropDroppedEdges     = "sbommeld:dropped_edges"
	PropIncludeAllUnique = "sbommeld:include_all_unique"
	PropExcludeNoise     = "sbommeld:exclude_noise"
	PropMergeType        = "sbommeld:merge_type"
)

// Policy controls which classified packages make it into the canonical
// document. Policy never changes classification, only inclusion.
type Policy struct {
	// IncludeAllUnique admits unique-status packages.
	IncludeAllUnique bool
	// ExcludeNoise drops unique packages whose name matches a
	// CI/workflow noise pattern.
	ExcludeNoise bool
	// Selections, when non-nil, switches unique inclusion to
	// user-selected mode: a unique package is admitted iff its
	// name@version identity is listed under its source. Exact and
	// fuzzy selection is unaffected.
	Selections map[string][]string
}

// userSelected reports whether the policy is in selections mode.
func (p Policy) userSelected() bool { return p.Selections != nil }

// Merger assembles canonical documents. Construct with New; the zero
// value has no predicates wired.
type Merger struct {
	noise      *matcher.MultiMatcher
	namespaces *matcher.MultiMatcher
	now        func() time.Time
	tool       sbom.Tool
}

// Option configures a Merger.
type Option func(*Merger) error

// WithNoisePatterns replaces the CI/workflow noise substrings.
func WithNoisePatterns(patterns []string) Option {
	return func(m *Merger) error {
		mm, err := matcher.NewMultiMatcher(patterns, matcher.Substring, &matcher.Options{CaseInsensitive: true})
		if err != nil {
			return err
		}
		m.noise = mm
		return nil
	}
}

// WithExcludedNamespaces replaces the identifier prefixes that make a
// package unselectable.
func WithExcludedNamespaces(prefixes []string) Option {
	return func(m *Merger) error {
		mm, err := matcher.NewMultiMatcher(prefixes, matcher.Prefix, nil)
		if err != nil {
			return err
		}
		m.namespaces = mm
		return nil
	}
}

// WithClock overrides the timestamp source. Tests use this to pin
// metadata timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) error {
		m.now = now
		return nil
	}
}

// WithTool overrides the tool identity recorded in metadata.
func WithTool(tool sbom.Tool) Option {
	return func(m *Merger) error {
		m.tool = tool
		return nil
	}
}

// New returns a Merger with default noise patterns and excluded
// namespaces, adjusted by the given options.
func New(opts ...Option) (*Merger, error) {
	m := &Merger{
		now:  time.Now,
		tool: sbom.Tool{Vendor: "sbommeld", Name: "sbommeld", Version: "dev"},
	}
	defaults := []Option{
		WithNoisePatterns(DefaultNoisePatterns),
		WithExcludedNamespaces(DefaultExcludedNamespaces),
	}
	for _, opt := range append(defaults, opts...) {
		if opt == nil {
			continue
		}
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// classified is one package joined with its match result, the unit the
// selection passes iterate over.
type classified struct {
	sbom.Package
	match sbom.Match
}

// refKey addresses one source-local identifier in the translation table.
type refKey struct {
	source   string
	localRef string
}

// Merge applies the policy to the unit's classified packages and
// assembles the canonical document. The classification must cover the
// packages; records missing from it are treated as unique.
func (m *Merger) Merge(unit string, pkgs []sbom.Package, deps []sbom.Dependency, c sbom.Classification, policy Policy) (*sbom.Document, error) {
	if len(pkgs) == 0 {
		return nil, errors.NewMergeError(unit, "no packages stored for unit", errors.ErrNoPackages)
	}

	ordered := m.order(pkgs, c)

	// Pass 1: primary capture. The first primary in selection order is
	// included regardless of status or policy, unless it belongs to an
	// excluded namespace. At most one primary per merge.
	selected := make([]classified, 0, len(ordered))
	identityRef := make(map[string]string, len(ordered))
	refs := make(map[refKey]string, len(ordered))
	taken := make(map[int]bool, 1)
	primaryIdx := -1
	for i, r := range ordered {
		if !r.Primary || m.excludedNamespace(r.Package) {
			continue
		}
		selected = m.include(selected, r, identityRef, refs)
		taken[i] = true
		primaryIdx = 0
		break
	}

	// Pass 2: general selection over the same ordering.
	for i, r := range ordered {
		if taken[i] || m.excludedNamespace(r.Package) {
			continue
		}
		if !m.admit(r, policy) {
			continue
		}
		selected = m.include(selected, r, identityRef, refs)
	}

	if len(selected) == 0 {
		return nil, errors.NewMergeError(unit, "policy selected zero components", errors.ErrEmptyResult)
	}

	dependencies, dropped := reconcileEdges(deps, refs)
	if dropped > 0 {
		logging.Debug().
			Str("unit", unit).
			Int("dropped", dropped).
			Msg("Dropped dependency edges with unselected endpoints")
	}

	doc := m.assemble(selected, dependencies, policy, dropped, primaryIdx)
	return doc, nil
}

// order joins packages with their classification and sorts them by the
// deterministic selection key: match status rank descending, occurrence
// count descending, then name, version, source, local ref.
func (m *Merger) order(pkgs []sbom.Package, c sbom.Classification) []classified {
	ordered := make([]classified, 0, len(pkgs))
	for _, p := range pkgs {
		match, ok := c[sbom.KeyOf(p)]
		if !ok {
			match = sbom.Match{Status: sbom.MatchUnique, Occurrences: 1}
		}
		ordered = append(ordered, classified{Package: p, match: match})
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if ra, rb := a.match.Status.Rank(), b.match.Status.Rank(); ra != rb {
			return ra > rb
		}
		if a.match.Occurrences != b.match.Occurrences {
			return a.match.Occurrences > b.match.Occurrences
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.LocalRef < b.LocalRef
	})
	return ordered
}

// admit applies the pass-2 policy rules to one record.
func (m *Merger) admit(r classified, policy Policy) bool {
	switch r.match.Status {
	case sbom.MatchExact:
		return true
	case sbom.MatchFuzzy:
		return r.match.Occurrences >= 2
	default:
		if policy.userSelected() {
			return selectedUnique(policy.Selections, r.Package)
		}
		if !policy.IncludeAllUnique {
			return false
		}
		if policy.ExcludeNoise && m.noise.Match(r.Name) {
			return false
		}
		return true
	}
}

// selectedUnique reports whether the package's name@version identity is
// listed under its source in the selections map.
func selectedUnique(selections map[string][]string, p sbom.Package) bool {
	for _, id := range selections[p.Source] {
		if id == p.NameVersion() {
			return true
		}
	}
	return false
}

// include registers a record in the translation table and, when its
// (name, version) identity has not been emitted yet, appends it to the
// selected set. Duplicate identities still get a ref entry so every
// source's local ref resolves during edge translation.
func (m *Merger) include(selected []classified, r classified, identityRef map[string]string, refs map[refKey]string) []classified {
	identity := r.NameVersion()
	ref, dup := identityRef[identity]
	if !dup {
		ref = BOMRef(r.Package)
		identityRef[identity] = ref
		selected = append(selected, r)
	}
	if r.LocalRef != "" {
		refs[refKey{source: r.Source, localRef: r.LocalRef}] = ref
	}
	return selected
}

// excludedNamespace reports whether the package's identifier places it
// in an unsupported, platform-internal ecosystem.
func (m *Merger) excludedNamespace(p sbom.Package) bool {
	return m.namespaces.MatchAny(p.PURL, p.LocalRef)
}

// BOMRef synthesizes the canonical reference for a package: its purl,
// prefixed with the "pkg:" scheme only when missing, else name@version.
func BOMRef(p sbom.Package) string {
	if p.PURL == "" {
		return p.NameVersion()
	}
	if strings.HasPrefix(p.PURL, "pkg:") {
		return p.PURL
	}
	return "pkg:" + p.PURL
}

// reconcileEdges translates every stored edge through the ref table,
// drops edges with unresolved endpoints, deduplicates, and consolidates
// by parent with sorted child lists.
func reconcileEdges(deps []sbom.Dependency, refs map[refKey]string) ([]sbom.DocumentDependency, int) {
	type edge struct{ parent, child string }
	seen := make(map[edge]bool, len(deps))
	children := make(map[string][]string)
	dropped := 0
	for _, d := range deps {
		parent, pok := refs[refKey{source: d.Source, localRef: d.ParentRef}]
		child, cok := refs[refKey{source: d.Source, localRef: d.ChildRef}]
		if !pok || !cok {
			dropped++
			continue
		}
		e := edge{parent, child}
		if seen[e] {
			continue
		}
		seen[e] = true
		children[parent] = append(children[parent], child)
	}

	parents := make([]string, 0, len(children))
	for parent := range children {
		parents = append(parents, parent)
	}
	sort.Strings(parents)

	out := make([]sbom.DocumentDependency, 0, len(parents))
	for _, parent := range parents {
		kids := children[parent]
		sort.Strings(kids)
		out = append(out, sbom.DocumentDependency{Ref: parent, DependsOn: kids})
	}
	return out, dropped
}

// assemble builds the output document from the selected set.
func (m *Merger) assemble(selected []classified, dependencies []sbom.DocumentDependency, policy Policy, dropped, primaryIdx int) *sbom.Document {
	components := make([]sbom.Component, len(selected))
	exact, fuzzy, unique := 0, 0, 0
	for i, r := range selected {
		components[i] = component(r)
		switch r.match.Status {
		case sbom.MatchExact:
			exact++
		case sbom.MatchFuzzy:
			fuzzy++
		default:
			unique++
		}
	}

	props := []sbom.Property{
		{Name: PropTotalComponents, Value: fmt.Sprintf("%d", len(components))},
		{Name: PropExactMatches, Value: fmt.Sprintf("%d", exact)},
		{Name: PropFuzzyMatches, Value: fmt.Sprintf("%d", fuzzy)},
		{Name: PropUniqueIncluded, Value: fmt.Sprintf("%d", unique)},
		{Name: PropDroppedEdges, Value: fmt.Sprintf("%d", dropped)},
		{Name: PropIncludeAllUnique, Value: fmt.Sprintf("%t", policy.IncludeAllUnique)},
		{Name: PropExcludeNoise, Value: fmt.Sprintf("%t", policy.ExcludeNoise)},
	}
	if policy.userSelected() {
		props = append(props, sbom.Property{Name: PropMergeType, Value: "user-selected"})
	}

	metadata := sbom.Metadata{
		Timestamp:  m.now().UTC().Format(time.RFC3339),
		Tools:      []sbom.Tool{m.tool},
		Properties: props,
	}
	if primaryIdx >= 0 {
		// Full copy, not a reference: viewers read metadata.component
		// without resolving into the components list.
		primary := components[primaryIdx]
		metadata.Component = &primary
	}

	return &sbom.Document{
		BOMFormat:    sbom.BOMFormat,
		SpecVersion:  sbom.SpecVersion,
		Version:      1,
		SerialNumber: "urn:uuid:" + uuid.NewString(),
		Metadata:     metadata,
		Components:   components,
		Dependencies: dependencies,
	}
}

// component converts one selected record into its canonical entry.
func component(r classified) sbom.Component {
	return sbom.Component{
		BOMRef:      BOMRef(r.Package),
		Type:        componentType(r.Type),
		Name:        r.Name,
		Version:     r.Version,
		PURL:        r.PURL,
		CPE:         r.CPE,
		Description: r.Description,
		Licenses:    licenses(r.Licenses),
		Properties: []sbom.Property{
			{Name: PropMatchStatus, Value: string(r.match.Status)},
			{Name: PropOccurrenceCount, Value: fmt.Sprintf("%d", r.match.Occurrences)},
			{Name: PropSource, Value: r.Source},
		},
	}
}

func componentType(t string) string {
	if t == "" {
		return sbom.ComponentTypeLibrary
	}
	return t
}

// licenses converts identifier strings to license choices. Recognized
// SPDX identifiers and LicenseRef- references become structured IDs;
// everything else is preserved as free-text name.
func licenses(ids []string) []sbom.LicenseChoice {
	if len(ids) == 0 {
		return nil
	}
	choices := make([]sbom.LicenseChoice, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(id, "LicenseRef-") {
			choices = append(choices, sbom.LicenseChoice{License: sbom.License{ID: id}})
			continue
		}
		if valid, _ := spdxexp.ValidateLicenses([]string{id}); valid {
			choices = append(choices, sbom.LicenseChoice{License: sbom.License{ID: id}})
			continue
		}
		choices = append(choices, sbom.LicenseChoice{License: sbom.License{Name: id}})
	}
	return choices
}
