// Package config holds the runtime configuration for the engine:
// matching thresholds, default merge policy, and the pattern lists the
// policy predicates are built from. Values come from viper (flags, env,
// config file) with a YAML policy-file loader for per-merge overrides.
package config

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"

	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/merge"
)

// Matching configures the classifier.
type Matching struct {
	NameThreshold    float64 `mapstructure:"name_threshold" yaml:"name_threshold"`
	VersionThreshold float64 `mapstructure:"version_threshold" yaml:"version_threshold"`
	OverallThreshold float64 `mapstructure:"overall_threshold" yaml:"overall_threshold"`
	CandidateLimit   int     `mapstructure:"candidate_limit" yaml:"candidate_limit"`
	CaseSensitive    bool    `mapstructure:"case_sensitive" yaml:"case_sensitive"`
}

// Policy configures the default merge policy and its predicates.
type Policy struct {
	IncludeAllUnique   bool                `mapstructure:"include_all_unique" yaml:"include_all_unique"`
	ExcludeNoise       bool                `mapstructure:"exclude_noise" yaml:"exclude_noise"`
	NoisePatterns      []string            `mapstructure:"noise_patterns" yaml:"noise_patterns"`
	ExcludedNamespaces []string            `mapstructure:"excluded_namespaces" yaml:"excluded_namespaces"`
	Selections         map[string][]string `mapstructure:"selections" yaml:"selections"`
}

// Config is the full engine configuration.
type Config struct {
	Matching Matching `mapstructure:"matching" yaml:"matching"`
	Policy   Policy   `mapstructure:"policy" yaml:"policy"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Matching: Matching{
			NameThreshold:    0.7,
			VersionThreshold: 0.5,
			OverallThreshold: 0.8,
			CandidateLimit:   1000,
			CaseSensitive:    true,
		},
		Policy: Policy{
			NoisePatterns:      merge.DefaultNoisePatterns,
			ExcludedNamespaces: merge.DefaultExcludedNamespaces,
		},
	}
}

// SetDefaults registers the built-in values on a viper instance so
// flags, env vars, and config files can override them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("matching.name_threshold", d.Matching.NameThreshold)
	v.SetDefault("matching.version_threshold", d.Matching.VersionThreshold)
	v.SetDefault("matching.overall_threshold", d.Matching.OverallThreshold)
	v.SetDefault("matching.candidate_limit", d.Matching.CandidateLimit)
	v.SetDefault("matching.case_sensitive", d.Matching.CaseSensitive)
	v.SetDefault("policy.include_all_unique", d.Policy.IncludeAllUnique)
	v.SetDefault("policy.exclude_noise", d.Policy.ExcludeNoise)
	v.SetDefault("policy.noise_patterns", d.Policy.NoisePatterns)
	v.SetDefault("policy.excluded_namespaces", d.Policy.ExcludedNamespaces)
}

// Load unmarshals the effective viper state into a Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.WrapParse("config", "", err)
	}
	return cfg, nil
}

// LoadPolicyFile reads a YAML merge-policy file, applying its values
// over the built-in policy defaults.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, err
	}
	p := Default().Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, errors.WrapParse("yaml", path, err)
	}
	return p, nil
}

// MergePolicy converts the config policy to the engine's policy value.
func (p Policy) MergePolicy() merge.Policy {
	return merge.Policy{
		IncludeAllUnique: p.IncludeAllUnique,
		ExcludeNoise:     p.ExcludeNoise,
		Selections:       p.Selections,
	}
}
