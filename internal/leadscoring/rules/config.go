package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// RoleTier awards Points when any of Terms occurs in a lead's role.
type RoleTier struct {
	Tier   string   `yaml:"tier"`
	Points int      `yaml:"points"`
	Terms  []string `yaml:"terms"`
}

// Config is the rule vocabulary and point table.
type Config struct {
	Role     []RoleTier `yaml:"role"`
	Industry struct {
		ExactMatch int `yaml:"exact_match"`
		Other      int `yaml:"other"`
	} `yaml:"industry"`
	Completeness struct {
		Points int `yaml:"points"`
	} `yaml:"completeness"`
}

// DefaultConfig returns the embedded rule table.
func DefaultConfig() Config {
	cfg, err := Parse(defaultRulesYAML)
	if err != nil {
		panic("rules: embedded rules.yaml is invalid: " + err.Error())
	}
	return cfg
}

// LoadFile reads a rule table from path. An empty path yields the defaults.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML rule table.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode rules: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects negative weights and empty tiers.
func (c Config) Validate() error {
	for i, t := range c.Role {
		if t.Points < 0 {
			return fmt.Errorf("rules: role tier %d (%s) has negative points", i, t.Tier)
		}
		if len(t.Terms) == 0 {
			return fmt.Errorf("rules: role tier %d (%s) has no terms", i, t.Tier)
		}
	}
	if c.Industry.ExactMatch < 0 || c.Industry.Other < 0 {
		return fmt.Errorf("rules: industry points must not be negative")
	}
	if c.Completeness.Points < 0 {
		return fmt.Errorf("rules: completeness points must not be negative")
	}
	return nil
}
