package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Gate is one entry of the gate reference-data file. This data is maintained
// by site administration, not by the server.
type Gate struct {
	ID     string `yaml:"id"`
	NameEN string `yaml:"name_en"`
	NameAR string `yaml:"name_ar"`
}

type gatesFile struct {
	Gates []Gate `yaml:"gates"`
}

// LoadGates parses the YAML gate reference file:
//
//	gates:
//	  - id: gate-north
//	    name_en: North Gate
//	    name_ar: البوابة الشمالية
func LoadGates(path string) ([]Gate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gates file: %w", err)
	}

	var f gatesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse gates file %s: %w", path, err)
	}

	for i, g := range f.Gates {
		if g.ID == "" {
			return nil, fmt.Errorf("gates file %s: entry %d has no id", path, i)
		}
	}
	return f.Gates, nil
}
