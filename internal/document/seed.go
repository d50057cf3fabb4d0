package document

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML shape of a document seed.
type seedFile struct {
	Name    string       `yaml:"name"`
	Objects []seedObject `yaml:"objects"`
}

type seedObject struct {
	Name   string             `yaml:"name"`
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params"`
}

// LoadSeed builds a document from a YAML seed file so runs can start from
// a known model state.
func LoadSeed(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document seed: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse document seed: %w", err)
	}

	name := seed.Name
	if name == "" {
		name = "Unnamed"
	}
	doc := New(name)
	for _, so := range seed.Objects {
		if err := doc.AddObject(Object{Name: so.Name, Type: so.Type, Params: so.Params}); err != nil {
			return nil, fmt.Errorf("invalid seed object: %w", err)
		}
	}
	return doc, nil
}
