package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leoprotocol/leoscore/internal/model"
)

// File is the on-disk YAML layout of a pattern catalog.
type File struct {
	Patterns []model.Pattern `json:"patterns" yaml:"patterns"`
}

// ReadFile parses a YAML catalog file into raw pattern records.
// Unknown fields are rejected so that typos fail at load time.
func ReadFile(path string) ([]model.Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) ([]model.Pattern, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return f.Patterns, nil
}

// LoadFile loads a catalog snapshot from a YAML file.
// Empty path returns the built-in catalog. A missing explicit file is an error.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	patterns, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Load(patterns)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

// Marshal renders patterns as a YAML catalog document.
func Marshal(patterns []model.Pattern) ([]byte, error) {
	data, err := yaml.Marshal(File{Patterns: patterns})
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	return data, nil
}
