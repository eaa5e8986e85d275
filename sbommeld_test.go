package sbommeld

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/merge"
	"github.com/sbommeld/sbommeld/pkg/normalize"
	"github.com/sbommeld/sbommeld/pkg/sbom"
)

func cdxFixture(root string, components ...string) []byte {
	comps := ""
	for i, nv := range components {
		if i > 0 {
			comps += ","
		}
		name, version := nv, ""
		for j := 0; j < len(nv); j++ {
			if nv[j] == '@' {
				name, version = nv[:j], nv[j+1:]
				break
			}
		}
		comps += fmt.Sprintf(`{"type": "library", "name": %q, "version": %q}`, name, version)
	}
	return []byte(fmt.Sprintf(`{
	  "bomFormat": "CycloneDX",
	  "metadata": {"component": {"bom-ref": "root", "type": "application", "name": %q, "version": "1.0"}},
	  "components": [%s],
	  "dependencies": []
	}`, root, comps))
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	client, err := New()
	require.NoError(t, err)
	unit := NewUnitID()

	np, nd, err := client.Ingest(ctx, unit, "trivy", cdxFixture("app", "lodash@4.17.21", "express@4.18.2"), "")
	require.NoError(t, err)
	assert.Equal(t, 3, np)
	assert.Equal(t, 0, nd)

	_, _, err = client.Ingest(ctx, unit, "syft", cdxFixture("app", "lodash@4.17.21", "only-syft@1.0"), "")
	require.NoError(t, err)

	classification, err := client.Classify(ctx, unit)
	require.NoError(t, err)
	assert.Equal(t, sbom.MatchExact,
		classification[sbom.Key{Source: "trivy", Name: "lodash", Version: "4.17.21"}].Status)
	assert.Equal(t, sbom.MatchUnique,
		classification[sbom.Key{Source: "trivy", Name: "express", Version: "4.18.2"}].Status)

	doc, err := client.Merge(ctx, unit, merge.Policy{IncludeAllUnique: true})
	require.NoError(t, err)
	require.NotNil(t, doc.Metadata.Component)
	assert.Equal(t, "app", doc.Metadata.Component.Name)

	names := map[string]bool{}
	for _, comp := range doc.Components {
		names[comp.Name] = true
	}
	assert.True(t, names["lodash"])
	assert.True(t, names["express"])
	assert.True(t, names["only-syft"])

	scores, err := client.Scores(ctx, unit)
	require.NoError(t, err)
	assert.Greater(t, scores["trivy"], 0.0)
	assert.Greater(t, scores["syft"], 0.0)
}

func TestIngestBadDocumentIsolated(t *testing.T) {
	ctx := context.Background()
	client, err := New()
	require.NoError(t, err)
	unit := NewUnitID()

	_, _, err = client.Ingest(ctx, unit, "broken", []byte(`{"bomFormat": "CycloneDX"}`), "")
	require.Error(t, err)
	var srcErr *errors.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "broken", srcErr.Source)

	// The failed source must not poison the unit.
	_, _, err = client.Ingest(ctx, unit, "trivy", cdxFixture("app", "lodash@4.17.21"), "")
	require.NoError(t, err)
	_, err = client.Classify(ctx, unit)
	require.NoError(t, err)
}

func TestIngestFormatOverride(t *testing.T) {
	ctx := context.Background()
	client, err := New()
	require.NoError(t, err)

	_, _, err = client.Ingest(ctx, NewUnitID(), "trivy", cdxFixture("app"), normalize.FormatSPDX)
	assert.Error(t, err, "forcing the wrong format surfaces a source-scoped error")
}

func TestClassifyEmptyUnit(t *testing.T) {
	client, err := New()
	require.NoError(t, err)

	_, err = client.Classify(context.Background(), NewUnitID())
	assert.True(t, errors.IsNoPackages(err))

	_, err = client.Merge(context.Background(), NewUnitID(), merge.Policy{})
	assert.True(t, errors.IsNoPackages(err))
}

func TestMergeClassifiesFirst(t *testing.T) {
	ctx := context.Background()
	client, err := New()
	require.NoError(t, err)
	unit := NewUnitID()

	_, _, err = client.Ingest(ctx, unit, "trivy", cdxFixture("app", "a@1"), "")
	require.NoError(t, err)
	_, _, err = client.Ingest(ctx, unit, "syft", cdxFixture("app", "a@1"), "")
	require.NoError(t, err)

	// No explicit Classify call: Merge must classify as a blocking step.
	doc, err := client.Merge(ctx, unit, merge.Policy{})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Components)

	_, err = client.Store().Classification(ctx, unit)
	assert.NoError(t, err, "classification persisted by the implicit run")
}

func TestMergedDocumentCache(t *testing.T) {
	ctx := context.Background()
	client, err := New()
	require.NoError(t, err)
	unit := NewUnitID()

	_, _, err = client.Ingest(ctx, unit, "trivy", cdxFixture("app", "a@1"), "")
	require.NoError(t, err)
	_, _, err = client.Ingest(ctx, unit, "syft", cdxFixture("app", "a@1"), "")
	require.NoError(t, err)

	first, err := client.MergedDocument(ctx, unit, merge.Policy{}, false)
	require.NoError(t, err)

	// Without force, the cached document is served even under a
	// different policy.
	cached, err := client.MergedDocument(ctx, unit, merge.Policy{IncludeAllUnique: true}, false)
	require.NoError(t, err)
	assert.Equal(t, first.SerialNumber, cached.SerialNumber)

	regenerated, err := client.MergedDocument(ctx, unit, merge.Policy{IncludeAllUnique: true}, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.SerialNumber, regenerated.SerialNumber)
}

func TestGraph(t *testing.T) {
	ctx := context.Background()
	client, err := New()
	require.NoError(t, err)
	unit := NewUnitID()

	_, _, err = client.Ingest(ctx, unit, "trivy", cdxFixture("app", "a@1"), "")
	require.NoError(t, err)
	_, _, err = client.Ingest(ctx, unit, "syft", cdxFixture("app", "a@1"), "")
	require.NoError(t, err)
	_, err = client.Merge(ctx, unit, merge.Policy{})
	require.NoError(t, err)

	g, err := client.Graph(ctx, unit)
	require.NoError(t, err)
	assert.Equal(t, len(g.Nodes), g.Meta.TotalNodes)
	assert.NotZero(t, g.Meta.TotalNodes)

	_, err = client.Graph(ctx, NewUnitID())
	assert.True(t, errors.IsNotFound(err))
}
