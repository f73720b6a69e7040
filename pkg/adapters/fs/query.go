package fs

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/aretw0/docket/pkg/core"
)

// cursor is a position in the ordering of a query.
type cursor struct {
	values    []any
	inclusive bool
}

// query is an immutable query over one collection, evaluated in memory.
type query struct {
	col     *collectionRef
	filters []core.Filter
	orders  []core.Sort
	start   *cursor
	end     *cursor
	limit   int
}

func (q query) clone() query {
	q.filters = slices.Clone(q.filters)
	q.orders = slices.Clone(q.orders)
	return q
}

func (q query) Where(field string, op core.Operator, value any) core.Query {
	n := q.clone()
	n.filters = append(n.filters, core.Filter{Field: field, Op: op, Value: value})
	return n
}

func (q query) OrderBy(field string, dir core.Direction) core.Query {
	n := q.clone()
	n.orders = append(n.orders, core.Sort{Field: field, Direction: dir})
	return n
}

// StartAt and StartAfter share the start position: the last call wins.
func (q query) StartAt(values ...any) core.Query {
	n := q.clone()
	n.start = &cursor{values: values, inclusive: true}
	return n
}

func (q query) StartAfter(values ...any) core.Query {
	n := q.clone()
	n.start = &cursor{values: values}
	return n
}

// EndAt and EndBefore share the end position: the last call wins.
func (q query) EndAt(values ...any) core.Query {
	n := q.clone()
	n.end = &cursor{values: values, inclusive: true}
	return n
}

func (q query) EndBefore(values ...any) core.Query {
	n := q.clone()
	n.end = &cursor{values: values}
	return n
}

func (q query) Limit(n int) core.Query {
	c := q.clone()
	c.limit = n
	return c
}

func (q query) Documents(ctx context.Context) ([]*core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := q.col.readAll()
	if err != nil {
		return nil, err
	}
	return q.apply(docs), nil
}

func (q query) Snapshots(ctx context.Context) core.QuerySnapshotIterator {
	return newQueryIterator(ctx, q)
}

// apply filters, orders, positions and limits docs.
//
// Documents missing an ordered field are excluded, as are documents missing
// a filtered field. Ties are broken by identifier.
func (q query) apply(docs []*core.Snapshot) []*core.Snapshot {
	out := make([]*core.Snapshot, 0, len(docs))
	for _, d := range docs {
		if q.accepts(d) {
			out = append(out, d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return q.compareDocs(out[i], out[j]) < 0
	})

	if q.start != nil {
		out = slices.DeleteFunc(out, func(d *core.Snapshot) bool {
			c := q.compareCursor(d, q.start.values)
			return c < 0 || (c == 0 && !q.start.inclusive)
		})
	}
	if q.end != nil {
		out = slices.DeleteFunc(out, func(d *core.Snapshot) bool {
			c := q.compareCursor(d, q.end.values)
			return c > 0 || (c == 0 && !q.end.inclusive)
		})
	}

	if q.limit > 0 && len(out) > q.limit {
		out = out[:q.limit]
	}
	return out
}

func (q query) accepts(d *core.Snapshot) bool {
	for _, f := range q.filters {
		if !matches(d.Fields, f) {
			return false
		}
	}
	for _, o := range q.orders {
		if _, ok := lookup(d.Fields, o.Field); !ok {
			return false
		}
	}
	return true
}

func (q query) compareDocs(a, b *core.Snapshot) int {
	for _, o := range q.orders {
		va, _ := lookup(a.Fields, o.Field)
		vb, _ := lookup(b.Fields, o.Field)
		if c := directed(compareValues(va, vb), o.Direction); c != 0 {
			return c
		}
	}
	return directed(strings.Compare(a.ID, b.ID), q.lastDirection())
}

// compareCursor compares a document with cursor values taken positionally
// against the ordering. A value past the last ordered field is compared with
// the document identifier.
func (q query) compareCursor(d *core.Snapshot, values []any) int {
	for i, v := range values {
		if i >= len(q.orders) {
			id, _ := v.(string)
			return directed(strings.Compare(d.ID, id), q.lastDirection())
		}
		o := q.orders[i]
		got, _ := lookup(d.Fields, o.Field)
		if c := directed(compareValues(got, normalizeValue(v)), o.Direction); c != 0 {
			return c
		}
	}
	return 0
}

func (q query) lastDirection() core.Direction {
	if len(q.orders) == 0 {
		return core.Asc
	}
	return q.orders[len(q.orders)-1].Direction
}

func directed(c int, dir core.Direction) int {
	if dir == core.Desc {
		return -c
	}
	return c
}
