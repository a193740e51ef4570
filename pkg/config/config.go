// Package config loads evaluator and test-run configuration from an optional
// YAML file plus environment overrides. Profiles control how hard the
// property tests push; capture settings control exemplar artifacts.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Synavera-Discorporated/trust-model/pkg/trust"
)

// Environment overrides. They win over file values so CI can switch profiles
// without editing config.
const (
	EnvProfile      = "TRUST_PROFILE"
	EnvExemplars    = "TRUST_EXEMPLARS"
	EnvExemplarsDir = "TRUST_EXEMPLARS_DIR"
)

// Profile bounds the property-test workload.
type Profile struct {
	Name               string `yaml:"name"`
	MinSuccessfulTests int    `yaml:"min_successful_tests"`
	MaxShrinkCount     int    `yaml:"max_shrink_count"`
	Derandomize        bool   `yaml:"derandomize"`
}

// Built-in profiles. ci is small and derandomized for reproducible pipeline
// runs; deep and stress widen the search for scheduled jobs.
var profiles = map[string]Profile{
	"ci":     {Name: "ci", MinSuccessfulTests: 50, MaxShrinkCount: 500, Derandomize: true},
	"deep":   {Name: "deep", MinSuccessfulTests: 500, MaxShrinkCount: 1000},
	"stress": {Name: "stress", MinSuccessfulTests: 2000, MaxShrinkCount: 5000},
}

// Capture controls exemplar artifact output.
type Capture struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Config is the full runtime configuration.
type Config struct {
	Profile     Profile `yaml:"profile"`
	Capture     Capture `yaml:"capture"`
	BaseTimeUTC string  `yaml:"base_time_utc"`
}

// Default returns the ci-profile configuration with capture disabled.
func Default() *Config {
	return &Config{
		Profile:     profiles["ci"],
		Capture:     Capture{Dir: "exemplars"},
		BaseTimeUTC: trust.DefaultBaseTimeUTC,
	}
}

// ProfileByName resolves a built-in profile.
func ProfileByName(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("config: unknown profile %q", name)
	}
	return p, nil
}

// Load reads configuration from an optional YAML file and applies environment
// overrides. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if cfg.Profile.Name != "" && cfg.Profile.MinSuccessfulTests == 0 {
			// Name-only profile reference resolves to the built-in values.
			p, err := ProfileByName(cfg.Profile.Name)
			if err != nil {
				return nil, err
			}
			cfg.Profile = p
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.BaseTimeUTC == "" {
		cfg.BaseTimeUTC = trust.DefaultBaseTimeUTC
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if name := os.Getenv(EnvProfile); name != "" {
		p, err := ProfileByName(name)
		if err != nil {
			return err
		}
		c.Profile = p
	}
	switch os.Getenv(EnvExemplars) {
	case "":
	case "0", "false", "no", "off":
		c.Capture.Enabled = false
	default:
		c.Capture.Enabled = true
	}
	if dir := os.Getenv(EnvExemplarsDir); dir != "" {
		c.Capture.Dir = dir
	}
	return nil
}
