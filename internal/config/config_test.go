package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 0.8, cfg.Matching.OverallThreshold)
	assert.True(t, cfg.Matching.CaseSensitive)
	assert.False(t, cfg.Policy.IncludeAllUnique)
	assert.Contains(t, cfg.Policy.NoisePatterns, "actions/")
	assert.Equal(t, []string{"pkg:bdio"}, cfg.Policy.ExcludedNamespaces)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("matching.overall_threshold", 0.9)
	v.Set("policy.include_all_unique", true)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Matching.OverallThreshold)
	assert.True(t, cfg.Policy.IncludeAllUnique)
	assert.Equal(t, 1000, cfg.Matching.CandidateLimit, "untouched values keep defaults")
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
include_all_unique: true
exclude_noise: true
selections:
  trivy:
    - picked@1.0
`), 0o600))

	p, err := LoadPolicyFile(path)
	require.NoError(t, err)

	assert.True(t, p.IncludeAllUnique)
	assert.True(t, p.ExcludeNoise)
	assert.Equal(t, []string{"picked@1.0"}, p.Selections["trivy"])
	assert.Contains(t, p.NoisePatterns, "actions/", "unset fields keep defaults")

	mp := p.MergePolicy()
	assert.True(t, mp.IncludeAllUnique)
	assert.NotNil(t, mp.Selections)
}

func TestLoadPolicyFileErrors(t *testing.T) {
	_, err := LoadPolicyFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o600))
	_, err = LoadPolicyFile(path)
	assert.Error(t, err)
}
