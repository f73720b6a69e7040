package fs

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/docket/pkg/core"
)

// normalizeValue maps decoded and caller supplied values onto the small set of
// kinds the query engine compares: nil, bool, int64, float64, time.Time,
// string, []byte, []any and map[string]any.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, bool, int64, float64, string, []byte, time.Time:
		return v
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return uint64ToNumber(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return uint64ToNumber(t)
	case float32:
		return float64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	case core.Fields:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeValue(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeValue(e)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = normalizeValue(e)
		}
		return l
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		l := make([]any, rv.Len())
		for i := range l {
			l[i] = normalizeValue(rv.Index(i).Interface())
		}
		return l
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = normalizeValue(iter.Value().Interface())
		}
		return m
	case reflect.String:
		return rv.String()
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface())
	}
	return v
}

func uint64ToNumber(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// Type ranks, lowest first. Values of different ranks never compare equal.
const (
	rankNull = iota
	rankBool
	rankNumber
	rankTime
	rankString
	rankBytes
	rankArray
	rankMap
	rankOther
)

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case int64, float64:
		return rankNumber
	case time.Time:
		return rankTime
	case string:
		return rankString
	case []byte:
		return rankBytes
	case []any:
		return rankArray
	case map[string]any:
		return rankMap
	}
	return rankOther
}

// compareValues orders two normalized values: by rank first, then by value.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}

	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmpInt64(x, y)
		}
		return cmpFloat(float64(x), b.(float64))
	case float64:
		if y, ok := b.(int64); ok {
			return cmpFloat(x, float64(y))
		}
		return cmpFloat(x, b.(float64))
	case time.Time:
		return x.Compare(b.(time.Time))
	case string:
		return strings.Compare(x, b.(string))
	case []byte:
		return bytes.Compare(x, b.([]byte))
	case []any:
		y := b.([]any)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := compareValues(x[i], y[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(x), len(y))
	case map[string]any:
		return compareMaps(x, b.(map[string]any))
	}
	return 0
}

func compareMaps(a, b map[string]any) int {
	ka, kb := sortedKeys(a), sortedKeys(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := strings.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
		if c := compareValues(a[ka[i]], b[kb[i]]); c != 0 {
			return c
		}
	}
	return cmpInt(len(ka), len(kb))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpFloat sorts NaN before every other number.
func cmpFloat(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return -1
	case math.IsNaN(b):
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func equalValues(a, b any) bool {
	return rank(a) == rank(b) && compareValues(a, b) == 0
}

// lookup resolves a dotted field path inside fields.
func lookup(fields core.Fields, path string) (any, bool) {
	var current any = map[string]any(fields)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// matches evaluates one filter against a document. Documents that lack the
// field never match, including for != and not-in.
func matches(fields core.Fields, f core.Filter) bool {
	got, ok := lookup(fields, f.Field)
	if !ok {
		return false
	}
	want := normalizeValue(f.Value)

	switch f.Op {
	case core.OpEqual:
		return equalValues(got, want)
	case core.OpNotEqual:
		return got != nil && !equalValues(got, want)
	case core.OpLess, core.OpLessOrEqual, core.OpGreater, core.OpGreaterOrEqual:
		if rank(got) != rank(want) {
			return false
		}
		c := compareValues(got, want)
		switch f.Op {
		case core.OpLess:
			return c < 0
		case core.OpLessOrEqual:
			return c <= 0
		case core.OpGreater:
			return c > 0
		default:
			return c >= 0
		}
	case core.OpArrayContains:
		arr, ok := got.([]any)
		return ok && containsValue(arr, want)
	case core.OpArrayContainsAny:
		arr, ok := got.([]any)
		candidates, isList := want.([]any)
		if !ok || !isList {
			return false
		}
		for _, c := range candidates {
			if containsValue(arr, c) {
				return true
			}
		}
		return false
	case core.OpIn:
		candidates, isList := want.([]any)
		return isList && containsValue(candidates, got)
	case core.OpNotIn:
		candidates, isList := want.([]any)
		return isList && got != nil && !containsValue(candidates, got)
	}
	return false
}

func containsValue(list []any, v any) bool {
	for _, e := range list {
		if equalValues(e, v) {
			return true
		}
	}
	return false
}
