package typed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/docket/pkg/core"
)

// toFields converts an entity into the field map written to the store.
// Field names follow the json tags of T; the identifier is never a field.
func toFields[T any, PT core.Model[T]](item PT) (core.Fields, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed data: %w", err)
	}

	var fields core.Fields
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to convert typed data to map: %w", err)
	}
	if fields == nil {
		fields = core.Fields{}
	}
	return normalize(fields).(core.Fields), nil
}

// fromSnapshot decodes a snapshot into a new entity and injects its identifier.
func fromSnapshot[T any, PT core.Model[T]](snap *core.Snapshot) (PT, error) {
	item := PT(new(T))
	if len(snap.Fields) > 0 {
		data, err := json.Marshal(snap.Fields)
		if err != nil {
			return nil, fmt.Errorf("fields marshal failed for %s: %w", snap.ID, err)
		}
		if err := json.Unmarshal(data, item); err != nil {
			return nil, fmt.Errorf("unmarshal of %s to target type failed: %w", snap.ID, err)
		}
	}
	item.SetID(snap.ID)
	return item, nil
}

// normalize turns json.Number values into int64 or float64 so drivers receive
// native numbers.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case core.Fields:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}
