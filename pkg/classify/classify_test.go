package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbommeld/sbommeld/pkg/sbom"
)

func pkg(source, name, version string) sbom.Package {
	return sbom.Package{Name: name, Version: version, Source: source, LocalRef: name + "@" + version}
}

func key(source, name, version string) sbom.Key {
	return sbom.Key{Source: source, Name: name, Version: version}
}

func TestClassifyExact(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	result := c.Classify([]sbom.Package{
		pkg("trivy", "left-pad", "1.3.0"),
		pkg("syft", "left-pad", "1.3.0"),
		pkg("cdxgen", "left-pad", "1.3.0"),
		pkg("trivy", "express", "4.18.2"),
	})

	for _, src := range []string{"trivy", "syft", "cdxgen"} {
		m := result[key(src, "left-pad", "1.3.0")]
		assert.Equal(t, sbom.MatchExact, m.Status)
		assert.Equal(t, 3, m.Occurrences)
	}
	assert.Equal(t, sbom.MatchUnique, result[key("trivy", "express", "4.18.2")].Status)
}

func TestClassifyFuzzy(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	result := c.Classify([]sbom.Package{
		pkg("trivy", "lodash", "4.17.21"),
		pkg("blackduck", "Lodash", "4.17.21"),
	})

	for _, k := range []sbom.Key{
		key("trivy", "lodash", "4.17.21"),
		key("blackduck", "Lodash", "4.17.21"),
	} {
		m := result[k]
		assert.Equal(t, sbom.MatchFuzzy, m.Status, "%v", k)
		assert.Equal(t, 2, m.Occurrences)
		assert.Greater(t, m.Score, 0.8)
	}
}

func TestClassifyCaseInsensitiveExact(t *testing.T) {
	c, err := New(WithCaseSensitive(false))
	require.NoError(t, err)

	result := c.Classify([]sbom.Package{
		pkg("trivy", "lodash", "4.17.21"),
		pkg("blackduck", "Lodash", "4.17.21"),
	})

	assert.Equal(t, sbom.MatchExact, result[key("trivy", "lodash", "4.17.21")].Status)
	assert.Equal(t, sbom.MatchExact, result[key("blackduck", "Lodash", "4.17.21")].Status)
}

func TestClassifySingleSourceIsAllUnique(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	result := c.Classify([]sbom.Package{
		pkg("trivy", "lodash", "4.17.21"),
		pkg("trivy", "lodash", "4.17.20"),
		pkg("trivy", "express", "4.18.2"),
	})

	require.Len(t, result, 3)
	for k, m := range result {
		assert.Equal(t, sbom.MatchUnique, m.Status, "%v", k)
		assert.Equal(t, 1, m.Occurrences)
	}
}

func TestClassifySameSourceNeverMatches(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// Near-identical names within one source must not become fuzzy.
	result := c.Classify([]sbom.Package{
		pkg("trivy", "lodash", "4.17.21"),
		pkg("trivy", "lodashh", "4.17.21"),
		pkg("syft", "totally-different", "0.1.0"),
	})

	assert.Equal(t, sbom.MatchUnique, result[key("trivy", "lodash", "4.17.21")].Status)
	assert.Equal(t, sbom.MatchUnique, result[key("trivy", "lodashh", "4.17.21")].Status)
}

func TestClassifyDissimilarStaysUnique(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	result := c.Classify([]sbom.Package{
		pkg("trivy", "lodash", "4.17.21"),
		pkg("syft", "express", "4.18.2"),
	})

	assert.Equal(t, sbom.MatchUnique, result[key("trivy", "lodash", "4.17.21")].Status)
	assert.Equal(t, sbom.MatchUnique, result[key("syft", "express", "4.18.2")].Status)
}

func TestClassifyVersionMismatchBlocksFuzzy(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// Same name, unrelated versions: the version pre-filter rejects the pair.
	result := c.Classify([]sbom.Package{
		pkg("trivy", "lodash", "4.17.21"),
		pkg("syft", "lodash", "9.9.9"),
	})

	assert.Equal(t, sbom.MatchUnique, result[key("trivy", "lodash", "4.17.21")].Status)
	assert.Equal(t, sbom.MatchUnique, result[key("syft", "lodash", "9.9.9")].Status)
}

func TestClassifyEmptyNameIsUnique(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	result := c.Classify([]sbom.Package{
		{Name: "  ", Version: "1.0", Source: "trivy"},
		pkg("syft", "lodash", "4.17.21"),
	})

	assert.Equal(t, sbom.MatchUnique, result[sbom.Key{Source: "trivy", Name: "  ", Version: "1.0"}].Status)
}

func TestClassifyEveryInputKeyed(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	pkgs := []sbom.Package{
		pkg("trivy", "a", "1"),
		pkg("syft", "a", "1"),
		pkg("cdxgen", "b", "2"),
		pkg("trivy", "a", "1"), // duplicate record, same key
	}
	result := c.Classify(pkgs)

	require.Len(t, result, 3)
	for _, p := range pkgs {
		_, ok := result[sbom.KeyOf(p)]
		assert.True(t, ok, "%v missing from classification", sbom.KeyOf(p))
	}
}

func TestNewRejectsBadThreshold(t *testing.T) {
	_, err := New(WithOverallThreshold(1.5))
	assert.Error(t, err)
	_, err = New(WithNameThreshold(-0.1))
	assert.Error(t, err)
}
