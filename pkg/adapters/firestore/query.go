package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/aretw0/docket/pkg/core"
)

// query wraps firestore.Query, which is already an immutable value.
type query struct {
	client *Client
	q      firestore.Query
	err    error
}

func (q query) with(next firestore.Query) core.Query {
	return query{client: q.client, q: next, err: q.err}
}

func (q query) Where(field string, op core.Operator, value any) core.Query {
	return q.with(q.q.Where(field, string(op), value))
}

func (q query) OrderBy(field string, dir core.Direction) core.Query {
	return q.with(q.q.OrderBy(field, toDirection(dir)))
}

func (q query) StartAt(values ...any) core.Query    { return q.with(q.q.StartAt(values...)) }
func (q query) StartAfter(values ...any) core.Query { return q.with(q.q.StartAfter(values...)) }
func (q query) EndAt(values ...any) core.Query      { return q.with(q.q.EndAt(values...)) }
func (q query) EndBefore(values ...any) core.Query  { return q.with(q.q.EndBefore(values...)) }
func (q query) Limit(n int) core.Query              { return q.with(q.q.Limit(n)) }

func (q query) Documents(ctx context.Context) ([]*core.Snapshot, error) {
	if q.err != nil {
		return nil, q.err
	}
	docs, err := q.q.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return toSnapshots(docs), nil
}

func (q query) Snapshots(ctx context.Context) core.QuerySnapshotIterator {
	if q.err != nil {
		return failedQueryIterator{err: q.err}
	}
	return &queryIterator{ctx: ctx, it: q.q.Snapshots(ctx)}
}

func toDirection(dir core.Direction) firestore.Direction {
	if dir == core.Desc {
		return firestore.Desc
	}
	return firestore.Asc
}
