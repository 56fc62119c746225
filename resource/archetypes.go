package resource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/enemyai/game/ai"
)

// ArchetypeFile is the on-disk layout of an archetype roster.
type ArchetypeFile struct {
	// ReplaceDefaults drops the built-in roster instead of merging into it.
	ReplaceDefaults bool                   `yaml:"replace_defaults"`
	Archetypes      []*ai.ArchetypeProfile `yaml:"archetypes"`
}

// LoadArchetypes reads archetype profiles from a YAML file. Profiles override
// built-in ones with the same id and new ids are appended. An empty path
// returns the built-in roster.
func LoadArchetypes(path string) ([]*ai.ArchetypeProfile, error) {
	if path == "" {
		return ai.DefaultArchetypes(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes: %w", err)
	}
	profiles, err := ParseArchetypes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return profiles, nil
}

// ParseArchetypes decodes and validates an ArchetypeFile document.
func ParseArchetypes(data []byte) ([]*ai.ArchetypeProfile, error) {
	var f ArchetypeFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse archetypes: %w", err)
	}

	seen := make(map[string]bool, len(f.Archetypes))
	for _, p := range f.Archetypes {
		if p == nil {
			return nil, fmt.Errorf("parse archetypes: empty entry")
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("archetype %q: defined twice", p.ID)
		}
		seen[p.ID] = true
	}

	if f.ReplaceDefaults {
		return f.Archetypes, nil
	}
	out := ai.DefaultArchetypes()
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.ID] = i
	}
	for _, p := range f.Archetypes {
		if i, ok := index[p.ID]; ok {
			out[i] = p
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
