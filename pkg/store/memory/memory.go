// Package memory provides an in-memory Store implementation used by
// tests and the CLI. All data is copied on the way in and out so callers
// can never alias internal state.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/sbom"
	"github.com/sbommeld/sbommeld/pkg/store"
)

// unitData holds everything stored for one reconciliation unit.
type unitData struct {
	packages        map[string][]sbom.Package    // keyed by source
	dependencies    map[string][]sbom.Dependency // keyed by source
	classification  sbom.Classification
	hasClass        bool
	document        *sbom.Document
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu    sync.RWMutex
	units map[string]*unitData
}

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{units: make(map[string]*unitData)}
}

// unit returns the data bucket for a unit, creating it if needed.
// Caller must hold the write lock.
func (s *Store) unit(id string) *unitData {
	u, ok := s.units[id]
	if !ok {
		u = &unitData{
			packages:     make(map[string][]sbom.Package),
			dependencies: make(map[string][]sbom.Dependency),
		}
		s.units[id] = u
	}
	return u
}

// SavePackages replaces the stored packages for (unit, source).
func (s *Store) SavePackages(ctx context.Context, unit, source string, pkgs []sbom.Package) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unit(unit).packages[source] = copyPackages(pkgs)
	return nil
}

// SaveDependencies replaces the stored edges for (unit, source).
func (s *Store) SaveDependencies(ctx context.Context, unit, source string, deps []sbom.Dependency) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unit(unit).dependencies[source] = append([]sbom.Dependency(nil), deps...)
	return nil
}

// Packages returns all stored packages for the unit, ordered by source
// name so repeated reads are stable.
func (s *Store) Packages(ctx context.Context, unit string) ([]sbom.Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[unit]
	if !ok {
		return nil, nil
	}
	var out []sbom.Package
	for _, source := range sortedKeys(u.packages) {
		out = append(out, copyPackages(u.packages[source])...)
	}
	return out, nil
}

// Dependencies returns all stored edges for the unit, ordered by source.
func (s *Store) Dependencies(ctx context.Context, unit string) ([]sbom.Dependency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[unit]
	if !ok {
		return nil, nil
	}
	var out []sbom.Dependency
	for _, source := range sortedKeys(u.dependencies) {
		out = append(out, u.dependencies[source]...)
	}
	return out, nil
}

// SaveClassification replaces the unit's classification.
func (s *Store) SaveClassification(ctx context.Context, unit string, c sbom.Classification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.unit(unit)
	u.classification = copyClassification(c)
	u.hasClass = true
	return nil
}

// Classification returns the unit's classification, or ErrNotFound when
// it has not been computed.
func (s *Store) Classification(ctx context.Context, unit string) (sbom.Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[unit]
	if !ok || !u.hasClass {
		return nil, errors.NewNotFoundError("classification", unit)
	}
	return copyClassification(u.classification), nil
}

// SaveDocument caches the unit's merged document.
func (s *Store) SaveDocument(ctx context.Context, unit string, doc *sbom.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unit(unit).document = copyDocument(doc)
	return nil
}

// Document returns the cached merged document, or ErrNotFound.
func (s *Store) Document(ctx context.Context, unit string) (*sbom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[unit]
	if !ok || u.document == nil {
		return nil, errors.NewNotFoundError("merged document", unit)
	}
	return copyDocument(u.document), nil
}

// Sources lists the source names with stored packages for the unit.
func (s *Store) Sources(ctx context.Context, unit string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[unit]
	if !ok {
		return nil, nil
	}
	return sortedKeys(u.packages), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyPackages(pkgs []sbom.Package) []sbom.Package {
	out := make([]sbom.Package, len(pkgs))
	for i, p := range pkgs {
		p.Licenses = append([]string(nil), p.Licenses...)
		out[i] = p
	}
	return out
}

func copyClassification(c sbom.Classification) sbom.Classification {
	out := make(sbom.Classification, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func copyDocument(doc *sbom.Document) *sbom.Document {
	if doc == nil {
		return nil
	}
	out := *doc
	out.Components = make([]sbom.Component, len(doc.Components))
	for i, comp := range doc.Components {
		comp.Licenses = append([]sbom.LicenseChoice(nil), comp.Licenses...)
		comp.Properties = append([]sbom.Property(nil), comp.Properties...)
		out.Components[i] = comp
	}
	out.Dependencies = make([]sbom.DocumentDependency, len(doc.Dependencies))
	for i, d := range doc.Dependencies {
		d.DependsOn = append([]string(nil), d.DependsOn...)
		out.Dependencies[i] = d
	}
	out.Metadata.Tools = append([]sbom.Tool(nil), doc.Metadata.Tools...)
	out.Metadata.Properties = append([]sbom.Property(nil), doc.Metadata.Properties...)
	if doc.Metadata.Component != nil {
		comp := *doc.Metadata.Component
		comp.Licenses = append([]sbom.LicenseChoice(nil), comp.Licenses...)
		comp.Properties = append([]sbom.Property(nil), comp.Properties...)
		out.Metadata.Component = &comp
	}
	return &out
}
