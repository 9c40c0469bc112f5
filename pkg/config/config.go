// Package config loads instrumentation settings from YAML files, for hosts
// that prefer declarative configuration over wiring the builder in code.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reqlife/reqlife/pkg/httpmetrics"
)

// GroupPattern reports several route patterns under one endpoint label.
type GroupPattern struct {
	// Label is the endpoint label reported for matching routes.
	Label string `yaml:"label"`
	// Patterns are the matched route templates or paths (doublestar globs
	// or verbatim templates).
	Patterns []string `yaml:"patterns"`
}

// Config is the YAML-facing instrumentation configuration.
type Config struct {
	// Prefix renames the metric families (default "reqlife").
	Prefix string `yaml:"prefix,omitempty"`

	// EndpointLabel selects how endpoints are reported: "template"
	// (default) or "exact".
	EndpointLabel string `yaml:"endpointLabel,omitempty"`

	// IgnorePatterns lists routes that produce no metrics at all.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// GroupPatterns rewrites matching routes onto shared labels.
	GroupPatterns []GroupPattern `yaml:"groupPatterns,omitempty"`

	// DurationBuckets overrides the latency histogram buckets (seconds).
	DurationBuckets []float64 `yaml:"durationBuckets,omitempty"`

	// SizeBuckets overrides the body size histogram buckets (bytes).
	SizeBuckets []float64 `yaml:"sizeBuckets,omitempty"`

	// BodySize toggles the response body size histogram. Defaults to true.
	BodySize *bool `yaml:"bodySize,omitempty"`
}

// LoadFromFile reads and validates a Config from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.EndpointLabel {
	case "", "template", "exact":
	default:
		return fmt.Errorf("unknown endpointLabel %q (want \"template\" or \"exact\")", c.EndpointLabel)
	}
	for i, g := range c.GroupPatterns {
		if g.Label == "" {
			return fmt.Errorf("groupPatterns[%d]: label must not be empty", i)
		}
		if len(g.Patterns) == 0 {
			return fmt.Errorf("groupPatterns[%d] (%s): patterns must not be empty", i, g.Label)
		}
	}
	for i, b := range c.DurationBuckets {
		if i > 0 && b <= c.DurationBuckets[i-1] {
			return fmt.Errorf("durationBuckets must be strictly increasing")
		}
	}
	return nil
}

// Builder translates the configuration into an httpmetrics.Builder.
func (c *Config) Builder() *httpmetrics.Builder {
	b := httpmetrics.NewBuilder().
		WithPrefix(c.Prefix).
		WithIgnorePatterns(c.IgnorePatterns...)
	if c.EndpointLabel == "exact" {
		b = b.WithExactEndpointLabels()
	}
	for _, g := range c.GroupPatterns {
		b = b.WithGroupPatterns(g.Label, g.Patterns...)
	}
	if c.DurationBuckets != nil {
		b = b.WithDurationBuckets(c.DurationBuckets)
	}
	if c.SizeBuckets != nil {
		b = b.WithSizeBuckets(c.SizeBuckets)
	}
	if c.BodySize != nil && !*c.BodySize {
		b = b.WithoutBodySize()
	}
	return b
}
