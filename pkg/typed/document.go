package typed

import (
	"bytes"
	"encoding/json"

	"github.com/aretw0/docket/pkg/core"
)

// Document is an untyped entity: its fields are kept in a map.
// It is useful for tools that do not know the schema of a collection.
type Document struct {
	ID     string
	Fields core.Fields
}

// GetID returns the document identifier.
func (d *Document) GetID() string { return d.ID }

// SetID sets the document identifier.
func (d *Document) SetID(id string) { d.ID = id }

// MarshalJSON encodes the fields only.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.Fields)
}

// UnmarshalJSON decodes the fields, keeping the identifier. Integral numbers
// decode as int64.
func (d *Document) UnmarshalJSON(data []byte) error {
	var fields core.Fields
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return err
	}
	if fields != nil {
		normalize(fields)
	}
	d.Fields = fields
	return nil
}
