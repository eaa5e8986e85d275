package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/sbom"
)

const spdxDoc = `{
  "SPDXID": "SPDXRef-DOCUMENT",
  "spdxVersion": "SPDX-2.3",
  "name": "example-repo",
  "packages": [
    {
      "SPDXID": "SPDXRef-Package-root",
      "name": "example-repo",
      "versionInfo": "1.2.0",
      "licenseConcluded": "NOASSERTION",
      "licenseDeclared": "MIT",
      "primaryPackagePurpose": "APPLICATION"
    },
    {
      "SPDXID": "SPDXRef-Package-lodash",
      "name": "lodash",
      "versionInfo": "4.17.21",
      "licenseConcluded": "MIT",
      "licenseDeclared": "MIT",
      "externalRefs": [
        {"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:npm/lodash@4.17.21"},
        {"referenceCategory": "SECURITY", "referenceType": "cpe23Type", "referenceLocator": "cpe:2.3:a:lodash:lodash:4.17.21:*:*:*:*:*:*:*"}
      ]
    },
    {
      "SPDXID": "SPDXRef-Package-empty",
      "name": "   ",
      "versionInfo": "0.0.1"
    },
    {
      "SPDXID": "SPDXRef-Package-tsc",
      "name": "typescript",
      "versionInfo": "5.4.5",
      "licenseConcluded": "Apache-2.0"
    }
  ],
  "relationships": [
    {"spdxElementId": "SPDXRef-DOCUMENT", "relatedSpdxElement": "SPDXRef-Package-root", "relationshipType": "DESCRIBES"},
    {"spdxElementId": "SPDXRef-Package-root", "relatedSpdxElement": "SPDXRef-Package-lodash", "relationshipType": "DEPENDS_ON"},
    {"spdxElementId": "SPDXRef-Package-tsc", "relatedSpdxElement": "SPDXRef-Package-root", "relationshipType": "DEV_DEPENDENCY_OF"},
    {"spdxElementId": "SPDXRef-Package-root", "relatedSpdxElement": "SPDXRef-Package-empty", "relationshipType": "DEPENDS_ON"},
    {"spdxElementId": "SPDXRef-Package-root", "relatedSpdxElement": "SPDXRef-Package-lodash", "relationshipType": "CONTAINS"}
  ]
}`

func TestNormalizeSPDX(t *testing.T) {
	packages, deps, err := Normalize([]byte(spdxDoc), FormatSPDX, "ghas")
	require.NoError(t, err)

	// The empty-named package is discarded entirely.
	require.Len(t, packages, 3)

	byName := map[string]sbom.Package{}
	for _, p := range packages {
		assert.Equal(t, "ghas", p.Source)
		byName[p.Name] = p
	}

	root := byName["example-repo"]
	assert.True(t, root.Primary)
	assert.Equal(t, "application", root.Type)
	assert.Equal(t, []string{"MIT"}, root.Licenses, "NOASSERTION skipped, declared kept")

	lodash := byName["lodash"]
	assert.False(t, lodash.Primary)
	assert.Equal(t, "pkg:npm/lodash@4.17.21", lodash.PURL)
	assert.Contains(t, lodash.CPE, "cpe:2.3:a:lodash")
	assert.Equal(t, []string{"MIT"}, lodash.Licenses, "concluded and declared deduplicated")
	assert.Equal(t, "library", lodash.Type, "missing purpose defaults to library")

	// DEPENDS_ON keeps direction; DEV_DEPENDENCY_OF inverts it. The
	// edge to the discarded package and the CONTAINS edge are dropped.
	require.Len(t, deps, 2)
	assert.Equal(t, sbom.Dependency{
		Source: "ghas", ParentRef: "SPDXRef-Package-root", ChildRef: "SPDXRef-Package-lodash",
		OriginalType: "DEPENDS_ON", Type: sbom.RelFunctional,
	}, deps[0])
	assert.Equal(t, sbom.Dependency{
		Source: "ghas", ParentRef: "SPDXRef-Package-root", ChildRef: "SPDXRef-Package-tsc",
		OriginalType: "DEV_DEPENDENCY_OF", Type: sbom.RelDev,
	}, deps[1])
}

func TestNormalizeSPDXMissingPackages(t *testing.T) {
	_, _, err := Normalize([]byte(`{"SPDXID": "SPDXRef-DOCUMENT", "name": "x"}`), FormatSPDX, "ghas")
	assert.True(t, errors.IsValidationError(err))
}

func TestNormalizeSPDXUnresolvablePrimary(t *testing.T) {
	doc := `{
	  "SPDXID": "SPDXRef-DOCUMENT",
	  "packages": [{"SPDXID": "SPDXRef-a", "name": "a"}],
	  "relationships": [
	    {"spdxElementId": "SPDXRef-DOCUMENT", "relatedSpdxElement": "SPDXRef-missing", "relationshipType": "DESCRIBES"}
	  ]
	}`
	_, _, err := Normalize([]byte(doc), FormatSPDX, "ghas")
	assert.True(t, errors.IsValidationError(err))
}

func TestNormalizeSPDXDocumentDescribesFallback(t *testing.T) {
	doc := `{
	  "SPDXID": "SPDXRef-DOCUMENT",
	  "documentDescribes": ["SPDXRef-a"],
	  "packages": [{"SPDXID": "SPDXRef-a", "name": "a", "versionInfo": "1.0"}]
	}`
	packages, _, err := Normalize([]byte(doc), FormatSPDX, "uploaded")
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.True(t, packages[0].Primary)
}

const cdxDoc = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.5",
  "metadata": {
    "component": {"bom-ref": "root-app", "type": "application", "name": "example-repo", "version": "1.2.0"}
  },
  "components": [
    {
      "bom-ref": "pkg:npm/lodash@4.17.21",
      "type": "library",
      "name": "lodash",
      "version": "4.17.21",
      "purl": "pkg:npm/lodash@4.17.21",
      "licenses": [{"license": {"id": "MIT"}}]
    },
    {
      "type": "library",
      "name": "left-pad",
      "version": "1.3.0",
      "licenses": [{"expression": "WTFPL OR MIT"}],
      "externalReferences": [{"type": "cpe23Type", "url": "cpe:2.3:a:left-pad:left-pad:1.3.0:*:*:*:*:*:*:*"}]
    },
    {"type": "library", "name": "", "version": "9.9.9"}
  ],
  "dependencies": [
    {"ref": "root-app", "dependsOn": ["pkg:npm/lodash@4.17.21", "left-pad@1.3.0", "ghost-ref"]},
    {"ref": "ghost-ref", "dependsOn": ["pkg:npm/lodash@4.17.21"]}
  ]
}`

func TestNormalizeCycloneDX(t *testing.T) {
	packages, deps, err := Normalize([]byte(cdxDoc), FormatCycloneDX, "trivy")
	require.NoError(t, err)

	// Two named components plus the metadata root carried in; the
	// empty-named component is discarded.
	require.Len(t, packages, 3)

	byName := map[string]sbom.Package{}
	for _, p := range packages {
		byName[p.Name] = p
	}

	root := byName["example-repo"]
	assert.True(t, root.Primary)
	assert.Equal(t, "root-app", root.LocalRef)
	assert.Equal(t, "application", root.Type)

	assert.Equal(t, "pkg:npm/lodash@4.17.21", byName["lodash"].LocalRef)
	assert.Equal(t, []string{"MIT"}, byName["lodash"].Licenses)

	leftPad := byName["left-pad"]
	assert.Equal(t, "left-pad@1.3.0", leftPad.LocalRef, "no bom-ref or purl falls back to name@version")
	assert.Equal(t, []string{"WTFPL OR MIT"}, leftPad.Licenses)
	assert.Contains(t, leftPad.CPE, "cpe:2.3:a:left-pad")

	// Edges touching ghost-ref are dropped; the rest expand with the
	// relationship type fixed to functional.
	require.Len(t, deps, 2)
	for _, d := range deps {
		assert.Equal(t, "root-app", d.ParentRef)
		assert.Equal(t, sbom.RelFunctional, d.Type)
	}
}

func TestNormalizeCycloneDXDeclaredRootInComponents(t *testing.T) {
	doc := `{
	  "bomFormat": "CycloneDX",
	  "metadata": {"component": {"bom-ref": "r", "type": "application", "name": "app", "version": "1"}},
	  "components": [{"bom-ref": "r", "type": "application", "name": "app", "version": "1"}]
	}`
	packages, _, err := Normalize([]byte(doc), FormatCycloneDX, "syft")
	require.NoError(t, err)
	require.Len(t, packages, 1, "root present in components must not be duplicated")
	assert.True(t, packages[0].Primary)
}

func TestNormalizeCycloneDXMissingComponents(t *testing.T) {
	_, _, err := Normalize([]byte(`{"bomFormat": "CycloneDX"}`), FormatCycloneDX, "trivy")
	assert.True(t, errors.IsValidationError(err))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Format
		wantErr bool
	}{
		{name: "cyclonedx", data: `{"bomFormat": "CycloneDX"}`, want: FormatCycloneDX},
		{name: "spdx", data: `{"spdxVersion": "SPDX-2.3"}`, want: FormatSPDX},
		{name: "spdx by id", data: `{"SPDXID": "SPDXRef-DOCUMENT"}`, want: FormatSPDX},
		{name: "unknown", data: `{"foo": 1}`, wantErr: true},
		{name: "invalid json", data: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidPURL(t *testing.T) {
	assert.True(t, ValidPURL("pkg:npm/lodash@4.17.21"))
	assert.True(t, ValidPURL("pkg:golang/github.com/spf13/cobra@v1.9.1"))
	assert.False(t, ValidPURL("lodash@4.17.21"))
	assert.False(t, ValidPURL(""))
}
