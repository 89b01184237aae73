package gridview

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/grid.schema.json
var configSchema []byte

// Config file formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidationError lists every schema violation found in a grid config
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid grid config: " + strings.Join(e.Problems, "; ")
}

// FormatOf picks the config format from a file extension
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

func decodeDocument(data []byte, format string) (interface{}, error) {
	var doc interface{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	return doc, nil
}

// ValidateConfig checks a grid config document against the embedded schema.
// Schema violations come back as *ValidationError.
func ValidateConfig(data []byte, format string) error {
	doc, err := decodeDocument(data, format)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(configSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, desc := range result.Errors() {
		verr.Problems = append(verr.Problems, desc.String())
	}
	return verr
}

// ParseConfig validates and decodes a grid config
func ParseConfig(data []byte, format string) (*Config, error) {
	if err := ValidateConfig(data, format); err != nil {
		return nil, err
	}

	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode json config: %w", err)
		}
	}
	return &cfg, nil
}

// LoadConfig reads a JSON or YAML grid config from disk
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}
