// Package sbommeld reconciles SBOM documents from multiple scanners into
// one canonical component-and-dependency graph. The Client wires the
// format normalizer, similarity classifier, merge engine, and agreement
// scorer around a storage collaborator, and enforces the pipeline order:
// normalize per source, classify over the complete unit, then merge.
package sbommeld

import (
	"context"

	"github.com/google/uuid"

	"github.com/sbommeld/sbommeld/pkg/classify"
	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/logging"
	"github.com/sbommeld/sbommeld/pkg/merge"
	"github.com/sbommeld/sbommeld/pkg/normalize"
	"github.com/sbommeld/sbommeld/pkg/sbom"
	"github.com/sbommeld/sbommeld/pkg/score"
	"github.com/sbommeld/sbommeld/pkg/store"
	"github.com/sbommeld/sbommeld/pkg/store/memory"
)

// Client is the façade over the reconciliation pipeline. Construct with
// New; a zero Client is not usable.
type Client struct {
	store      store.Store
	classifier *classify.Classifier
	merger     *merge.Merger
}

// New returns a Client backed by an in-memory store unless an option
// substitutes another one.
func New(opts ...Option) (*Client, error) {
	c := &Client{store: memory.New()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	var err error
	if c.classifier == nil {
		if c.classifier, err = classify.New(); err != nil {
			return nil, err
		}
	}
	if c.merger == nil {
		if c.merger, err = merge.New(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewUnitID mints an identifier for a new reconciliation unit.
func NewUnitID() string {
	return uuid.NewString()
}

// Ingest normalizes one raw source document and persists its packages
// and dependency edges under (unit, source). Pass an empty format to
// auto-detect. A failure here is scoped to the source: other sources of
// the unit are unaffected.
func (c *Client) Ingest(ctx context.Context, unit, source string, data []byte, format normalize.Format) (int, int, error) {
	log := logging.Ctx(ctx).With().Str("unit", unit).Str("source", source).Logger()

	if format == "" {
		detected, err := normalize.Detect(data)
		if err != nil {
			return 0, 0, errors.WrapSource(source, unit, err)
		}
		format = detected
	}

	pkgs, deps, err := normalize.Normalize(data, format, source)
	if err != nil {
		return 0, 0, errors.WrapSource(source, unit, err)
	}
	if err := c.store.SavePackages(ctx, unit, source, pkgs); err != nil {
		return 0, 0, errors.WrapSource(source, unit, err)
	}
	if err := c.store.SaveDependencies(ctx, unit, source, deps); err != nil {
		return 0, 0, errors.WrapSource(source, unit, err)
	}

	log.Info().
		Str("format", string(format)).
		Int("packages", len(pkgs)).
		Int("dependencies", len(deps)).
		Msg("Ingested source document")
	return len(pkgs), len(deps), nil
}

// Classify computes and persists the identity classification for every
// package stored in the unit. The classification must be recomputed
// after any source changes; Classify always runs fresh.
func (c *Client) Classify(ctx context.Context, unit string) (sbom.Classification, error) {
	pkgs, err := c.store.Packages(ctx, unit)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, errors.ErrNoPackages
	}

	classification := c.classifier.Classify(pkgs)
	if err := c.store.SaveClassification(ctx, unit, classification); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Str("unit", unit).
		Int("packages", len(pkgs)).
		Msg("Classified unit")
	return classification, nil
}

// Merge produces the canonical document for the unit under the given
// policy and persists it, replacing any cached document. If the unit has
// not been classified yet, classification runs first as a blocking step.
func (c *Client) Merge(ctx context.Context, unit string, policy merge.Policy) (*sbom.Document, error) {
	pkgs, err := c.store.Packages(ctx, unit)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, errors.ErrNoPackages
	}

	classification, err := c.store.Classification(ctx, unit)
	if errors.IsNotFound(err) {
		classification, err = c.Classify(ctx, unit)
	}
	if err != nil {
		return nil, err
	}

	deps, err := c.store.Dependencies(ctx, unit)
	if err != nil {
		return nil, err
	}

	doc, err := c.merger.Merge(unit, pkgs, deps, classification, policy)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveDocument(ctx, unit, doc); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("unit", unit).
		Int("components", len(doc.Components)).
		Int("dependencies", len(doc.Dependencies)).
		Msg("Merged unit")
	return doc, nil
}

// MergedDocument returns the unit's cached canonical document, running a
// merge only when no document is cached or forceRegenerate is set. The
// cache is keyed by unit alone, so callers switching policy flags must
// pass forceRegenerate to avoid serving a stale policy's output.
func (c *Client) MergedDocument(ctx context.Context, unit string, policy merge.Policy, forceRegenerate bool) (*sbom.Document, error) {
	if !forceRegenerate {
		doc, err := c.store.Document(ctx, unit)
		if err == nil {
			return doc, nil
		}
		if !errors.IsNotFound(err) {
			return nil, err
		}
	}
	return c.Merge(ctx, unit, policy)
}

// Scores returns the per-source agreement scores for the unit,
// classifying first if needed.
func (c *Client) Scores(ctx context.Context, unit string) (map[string]float64, error) {
	a, err := c.Analysis(ctx, unit)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(a.Sources))
	for source, b := range a.Sources {
		scores[source] = b.Score
	}
	return scores, nil
}

// Analysis returns the full per-source classification census for the
// unit, classifying first if needed.
func (c *Client) Analysis(ctx context.Context, unit string) (score.Analysis, error) {
	classification, err := c.store.Classification(ctx, unit)
	if errors.IsNotFound(err) {
		classification, err = c.Classify(ctx, unit)
	}
	if err != nil {
		return score.Analysis{}, err
	}
	return score.Analyze(classification), nil
}

// Graph returns the visualization graph of the unit's cached canonical
// document.
func (c *Client) Graph(ctx context.Context, unit string) (*sbom.Graph, error) {
	doc, err := c.store.Document(ctx, unit)
	if err != nil {
		return nil, err
	}
	return sbom.ExtractGraph(doc), nil
}

// Store exposes the underlying storage collaborator.
func (c *Client) Store() store.Store {
	return c.store
}
