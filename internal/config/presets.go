package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CollectionPresets maps a short collection name (e.g. "boombox") to
// the full collection_info parameter map a caller would otherwise have
// to repeat on every export request.
type CollectionPresets struct {
	Collections map[string]map[string]any `yaml:"collections"`
}

// LoadCollectionPresets reads a marcout.yaml presets file, mirroring
// the teacher's JSON providers-config loader but for YAML, since
// collection presets are operator-authored and benefit from comments.
func LoadCollectionPresets(filePath string) (*CollectionPresets, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read collection presets: %w", err)
	}
	var presets CollectionPresets
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("parse collection presets: %w", err)
	}
	return &presets, nil
}

// Resolve returns the named preset's parameter map, or false if no
// preset with that name exists.
func (p *CollectionPresets) Resolve(name string) (map[string]any, bool) {
	if p == nil {
		return nil, false
	}
	params, ok := p.Collections[name]
	return params, ok
}
