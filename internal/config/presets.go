package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/rapidrate/internal/rating"
)

// PresetFile is the YAML layout of a presets file:
//
//	presets:
//	  emotions:
//	    items: [joy, anger, fear]
//	    logCommits: true
//	    submitTimeout: 30
type PresetFile struct {
	Presets map[string]rating.Params `yaml:"presets"`
}

// LoadPresets reads named parameter sets. An empty path yields no presets.
// Every preset must carry a valid item set.
func LoadPresets(path string) (map[string]rating.Params, error) {
	if path == "" {
		return map[string]rating.Params{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(b)
}

func ParsePresets(b []byte) (map[string]rating.Params, error) {
	var f PresetFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if f.Presets == nil {
		f.Presets = map[string]rating.Params{}
	}
	for name, p := range f.Presets {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return f.Presets, nil
}
