package maincmd

import (
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds the ambient knobs the VM and GC accept, sourced from
// environment variables by default and optionally overridden by a YAML file
// named with --config.
type Config struct {
	MaxSteps       int  `env:"EMBER_MAX_STEPS" yaml:"max_steps"`
	StressGC       bool `env:"EMBER_STRESS_GC" yaml:"stress_gc"`
	HeapGrowFactor int  `env:"EMBER_HEAP_GROW_FACTOR" yaml:"heap_grow_factor"`
}

// LoadConfig reads environment variables into a Config, then, if path is
// non-empty, unmarshals the YAML file at path over it (file values win).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
