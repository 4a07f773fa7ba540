package modules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ManifestName is the stem of the optional index file that sits next to
// the unit definitions and is never treated as a unit.
const ManifestName = "index"

// Definition is the content of one unit file, e.g.
//
//	description: Group files by folder
//	panels:
//	  - FileClassifier
type Definition struct {
	// Name overrides the identifier; it defaults to the selected panel type.
	Name        string   `yaml:"name,omitempty" toml:"name,omitempty"`
	Description string   `yaml:"description,omitempty" toml:"description,omitempty"`
	Panels      []string `yaml:"panels" toml:"panels"`
}

// IsDefinitionFile reports whether name follows the unit file convention.
func IsDefinitionFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".toml":
	default:
		return false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return !strings.EqualFold(stem, ManifestName)
}

// ReadDefinition loads a unit file, picking the decoder by extension.
// Unknown fields are rejected.
func ReadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the units directory listing
	if err != nil {
		return Definition{}, err
	}
	return DecodeDefinition(filepath.Ext(path), data)
}

// DecodeDefinition decodes data written in the format named by ext.
// An empty document yields an empty definition.
func DecodeDefinition(ext string, data []byte) (Definition, error) {
	var def Definition
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
			return Definition{}, fmt.Errorf("parse yaml: %w", err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return Definition{}, fmt.Errorf("unsupported unit file extension %q", ext)
	}
	def.Name = strings.TrimSpace(def.Name)
	return def, nil
}

// Encode renders def in the format named by ext.
func (d Definition) Encode(ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Marshal(d)
	case ".toml":
		return toml.Marshal(d)
	default:
		return nil, fmt.Errorf("unsupported unit file extension %q", ext)
	}
}
