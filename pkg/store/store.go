// Package store defines the storage collaborator boundary for the merge
// engine. The engine only needs these operations; the mechanics behind
// them (database, cache, memory) are an implementation concern.
package store

import (
	"context"

	"github.com/sbommeld/sbommeld/pkg/sbom"
)

// Store persists normalized packages, dependency edges, classification
// results, and merged documents per reconciliation unit.
// Implementations must be safe for concurrent use.
type Store interface {
	// SavePackages replaces the stored packages for (unit, source).
	SavePackages(ctx context.Context, unit, source string, pkgs []sbom.Package) error

	// SaveDependencies replaces the stored edges for (unit, source).
	SaveDependencies(ctx context.Context, unit, source string, deps []sbom.Dependency) error

	// Packages returns all stored packages for the unit, across sources.
	Packages(ctx context.Context, unit string) ([]sbom.Package, error)

	// Dependencies returns all stored edges for the unit, across sources.
	Dependencies(ctx context.Context, unit string) ([]sbom.Dependency, error)

	// SaveClassification replaces the unit's classification.
	SaveClassification(ctx context.Context, unit string, c sbom.Classification) error

	// Classification returns the unit's classification, or ErrNotFound
	// when it has not been computed.
	Classification(ctx context.Context, unit string) (sbom.Classification, error)

	// SaveDocument caches the unit's merged document.
	SaveDocument(ctx context.Context, unit string, doc *sbom.Document) error

	// Document returns the cached merged document, or ErrNotFound when
	// no merge has been persisted for the unit.
	Document(ctx context.Context, unit string) (*sbom.Document, error)

	// Sources lists the source names with stored packages for the unit.
	Sources(ctx context.Context, unit string) ([]string, error)
}
