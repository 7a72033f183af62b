package access

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseSchema decodes a YAML tier table and validates it.
func ParseSchema(data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("failed to parse tier configuration: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// LoadSchema reads a tier table from path. An empty path yields
// DefaultSchema.
func LoadSchema(path string) (Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read tier file: %w", err)
	}
	return ParseSchema(data)
}

// LoadPolicy is LoadSchema followed by NewPolicy.
func LoadPolicy(path string) (*Policy, error) {
	s, err := LoadSchema(path)
	if err != nil {
		return nil, err
	}
	return NewPolicy(s)
}
