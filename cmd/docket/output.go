package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/docket/pkg/core"
	"github.com/aretw0/docket/pkg/typed"
)

// record is one line of command output.
type record struct {
	Type     string      `json:"type,omitempty"`
	ID       string      `json:"id"`
	Exists   *bool       `json:"exists,omitempty"`
	Data     core.Fields `json:"data,omitempty"`
	OldIndex *int        `json:"old_index,omitempty"`
	NewIndex *int        `json:"new_index,omitempty"`
}

// printer writes records as JSON lines.
type printer struct {
	enc *json.Encoder
}

func newPrinter(w io.Writer) *printer {
	return &printer{enc: json.NewEncoder(w)}
}

func (p *printer) document(doc *typed.Document) error {
	return p.enc.Encode(record{ID: doc.ID, Data: doc.Fields})
}

// missing reports a document that does not exist.
func (p *printer) missing(id string) error {
	no := false
	return p.enc.Encode(record{ID: id, Exists: &no})
}

func (p *printer) exists(id string, ok bool) error {
	return p.enc.Encode(record{ID: id, Exists: &ok})
}

func (p *printer) change(c typed.Change[typed.Document, *typed.Document]) error {
	r := record{Type: string(c.Type), ID: c.ID, OldIndex: &c.OldIndex, NewIndex: &c.NewIndex}
	if c.Data != nil {
		r.Data = c.Data.Fields
	}
	return p.enc.Encode(r)
}

// parseFields decodes a YAML or JSON mapping given on the command line.
func parseFields(s string) (core.Fields, error) {
	// Decoded as a plain map so nested mappings stay map[string]any.
	var fields map[string]any
	if err := yaml.Unmarshal([]byte(s), &fields); err != nil {
		return nil, fmt.Errorf("invalid fields %q: %w", s, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("fields must be a mapping, got %q", s)
	}
	return core.Fields(fields), nil
}

// parseValue decodes a scalar or a flow collection, so that 42 is a number,
// true a bool and [a, b] a list. Anything else stays a string.
func parseValue(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	return v
}

// parseValues splits a comma separated cursor into positional values.
func parseValues(s string) []any {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	values := make([]any, 0, len(parts))
	for _, p := range parts {
		values = append(values, parseValue(strings.TrimSpace(p)))
	}
	return values
}

// parseFilter reads "field op value", e.g. "age >= 18" or "tags array-contains go".
func parseFilter(s string) (core.Filter, error) {
	parts := strings.Fields(s)
	if len(parts) < 3 {
		return core.Filter{}, fmt.Errorf("filter %q must be \"field op value\"", s)
	}
	op, err := core.ParseOperator(parts[1])
	if err != nil {
		return core.Filter{}, err
	}
	// The value may contain spaces, e.g. a flow list.
	value := strings.TrimSpace(s)
	value = strings.TrimSpace(strings.TrimPrefix(value, parts[0]))
	value = strings.TrimSpace(strings.TrimPrefix(value, parts[1]))
	return core.Where(parts[0], op, parseValue(value)), nil
}

// parseSort reads "field" or "field:desc".
func parseSort(s string) (core.Sort, error) {
	field, dir, _ := strings.Cut(s, ":")
	if field == "" {
		return core.Sort{}, fmt.Errorf("empty order field in %q", s)
	}
	switch strings.ToLower(dir) {
	case "", "asc":
		return core.OrderAsc(field), nil
	case "desc":
		return core.OrderDesc(field), nil
	default:
		return core.Sort{}, fmt.Errorf("order direction must be asc or desc, got %q", dir)
	}
}
