package core

import "fmt"

// Operator is a filter comparison understood by the store query language.
type Operator string

const (
	OpLess             Operator = "<"
	OpLessOrEqual      Operator = "<="
	OpEqual            Operator = "=="
	OpGreater          Operator = ">"
	OpGreaterOrEqual   Operator = ">="
	OpNotEqual         Operator = "!="
	OpArrayContains    Operator = "array-contains"
	OpArrayContainsAny Operator = "array-contains-any"
	OpIn               Operator = "in"
	OpNotIn            Operator = "not-in"
)

// Operators lists every supported operator.
var Operators = []Operator{
	OpLess, OpLessOrEqual, OpEqual, OpGreater, OpGreaterOrEqual, OpNotEqual,
	OpArrayContains, OpArrayContainsAny, OpIn, OpNotIn,
}

// ParseOperator returns the Operator spelled s.
func ParseOperator(s string) (Operator, error) {
	for _, op := range Operators {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Filter is a single predicate. Field, operator and value are passed to the
// store as-is; checking that they make sense together is the caller's job.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Sort orders results by one field.
type Sort struct {
	Field     string
	Direction Direction
}

// Where builds a Filter.
func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// OrderAsc builds an ascending Sort.
func OrderAsc(field string) Sort { return Sort{Field: field, Direction: Asc} }

// OrderDesc builds a descending Sort.
func OrderDesc(field string) Sort { return Sort{Field: field, Direction: Desc} }

// FetchOptions declares filters, ordering, pagination cursors and a limit.
//
// Cursor values are positional against OrderBy and are ignored when OrderBy
// is empty. Several cursors may be combined; the store resolves them.
type FetchOptions struct {
	Where      []Filter
	OrderBy    []Sort
	Limit      int
	StartAt    []any
	StartAfter []any
	EndAt      []any
	EndBefore  []any
}
