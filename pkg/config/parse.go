package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseConfigYAML parses a Config from YAML bytes, applies defaults and validates it.
// This is used for APIs where config is provided as payload (not via filesystem).
func ParseConfigYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ParseConfigYAMLString parses a Config from a YAML string and validates it.
func ParseConfigYAMLString(yamlText string) (*Config, error) {
	return ParseConfigYAML([]byte(yamlText))
}

// ParseSearchYAML parses just the search section, e.g. from an API request body.
func ParseSearchYAML(data []byte) (*Search, error) {
	var search Search
	if err := yaml.Unmarshal(data, &search); err != nil {
		return nil, fmt.Errorf("failed to parse search yaml: %w", err)
	}
	applySearchDefaults(&search)
	if err := validateSearch(&search); err != nil {
		return nil, fmt.Errorf("invalid search: %w", err)
	}
	return &search, nil
}

// MarshalYAML renders cfg back to YAML
func MarshalYAML(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// NormalizeSearch applies defaults to a search decoded from another format
// (e.g. JSON) and validates it
func NormalizeSearch(s *Search) error {
	applySearchDefaults(s)
	if err := validateSearch(s); err != nil {
		return fmt.Errorf("invalid search: %w", err)
	}
	return nil
}

// NormalizeScorer applies defaults to a scorer and validates it
func NormalizeScorer(s *Scorer) error {
	if s.Objective == "" {
		s.Objective = ObjectiveFigureOfMerit
	}
	if err := validateScorer(s); err != nil {
		return fmt.Errorf("invalid scorer: %w", err)
	}
	return nil
}
