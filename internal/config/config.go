// Package config loads the YAML-encoded engine-parameters file into a
// uow.Params record.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/exelixi/internal/uow"
)

// EngineConfig is the top-level shape of the parameters file: the UoW name
// to instantiate and its parameters.
type EngineConfig struct {
	UoWName string     `yaml:"uow_name"`
	Params  uow.Params `yaml:"params"`
}

// Load reads and parses an EngineConfig from path.
func Load(path string) (EngineConfig, error) {
	var cfg EngineConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.UoWName == "" {
		return cfg, fmt.Errorf("config: %s: uow_name is required", path)
	}
	return cfg, nil
}

// Default returns the reference GA parameters (ported from the original
// FeatureFactory defaults), used when no parameters file is supplied.
func Default() EngineConfig {
	return EngineConfig{
		UoWName: "ga-target-sum",
		Params: uow.Params{
			NPop:            23,
			NGen:            10,
			SelectionRate:   0.2,
			MutationRate:    0.02,
			HistGranularity: 3,
			TermLimit:       5.0e-3,
		},
	}
}
