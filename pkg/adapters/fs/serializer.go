package fs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/docket/pkg/core"
)

// Serializer reads and writes the field map of a document file.
type Serializer interface {
	// Ext returns the file extension, including the dot.
	Ext() string
	Parse(data []byte) (core.Fields, error)
	Serialize(fields core.Fields) ([]byte, error)
}

// DefaultSerializers returns the serializers selectable by Config.Format.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": JSONSerializer{},
		".yaml": YAMLSerializer{},
		".yml":  YAMLSerializer{ext: ".yml"},
	}
}

// --- JSON Serializer ---

// JSONSerializer stores documents as indented JSON objects.
type JSONSerializer struct{}

func (JSONSerializer) Ext() string { return ".json" }

func (JSONSerializer) Parse(data []byte) (core.Fields, error) {
	var fields core.Fields
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if fields == nil {
		fields = core.Fields{}
	}
	return normalizeFields(fields), nil
}

func (JSONSerializer) Serialize(fields core.Fields) ([]byte, error) {
	if fields == nil {
		fields = core.Fields{}
	}
	return json.MarshalIndent(fields, "", "  ")
}

// --- YAML Serializer ---

// YAMLSerializer stores documents as YAML mappings.
type YAMLSerializer struct {
	ext string
}

func (s YAMLSerializer) Ext() string {
	if s.ext == "" {
		return ".yaml"
	}
	return s.ext
}

func (YAMLSerializer) Parse(data []byte) (core.Fields, error) {
	var fields map[string]any
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if fields == nil {
		return core.Fields{}, nil
	}
	return normalizeFields(core.Fields(fields)), nil
}

func (YAMLSerializer) Serialize(fields core.Fields) ([]byte, error) {
	if fields == nil {
		fields = core.Fields{}
	}
	return yaml.Marshal(map[string]any(fields))
}

// normalizeFields converts every value of fields with normalizeValue.
func normalizeFields(fields core.Fields) core.Fields {
	out := make(core.Fields, len(fields))
	for k, v := range fields {
		out[k] = normalizeValue(v)
	}
	return out
}
