package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/aretw0/docket/pkg/core"
)

type docIterator struct {
	ctx context.Context
	it  *firestore.DocumentSnapshotIterator
}

// Next returns the current state of the document, including a snapshot with
// Exists false once it is deleted.
func (d *docIterator) Next() (*core.Snapshot, error) {
	ds, err := d.it.Next()
	if err != nil {
		return nil, mapError(d.ctx, err)
	}
	return toSnapshot(ds), nil
}

func (d *docIterator) Stop() { d.it.Stop() }

type queryIterator struct {
	ctx context.Context
	it  *firestore.QuerySnapshotIterator
}

func (q *queryIterator) Next() (*core.QuerySnapshot, error) {
	qs, err := q.it.Next()
	if err != nil {
		return nil, mapError(q.ctx, err)
	}
	docs, err := qs.Documents.GetAll()
	if err != nil {
		return nil, mapError(q.ctx, err)
	}

	changes := make([]core.DocumentChange, 0, len(qs.Changes))
	for _, c := range qs.Changes {
		changes = append(changes, core.DocumentChange{
			Type:     changeType(c.Kind),
			Doc:      toSnapshot(c.Doc),
			OldIndex: c.OldIndex,
			NewIndex: c.NewIndex,
		})
	}
	return &core.QuerySnapshot{
		Documents: toSnapshots(docs),
		Changes:   changes,
		ReadTime:  qs.ReadTime,
	}, nil
}

func (q *queryIterator) Stop() { q.it.Stop() }

// failedQueryIterator and failedDocIterator report an error detected before
// listening started.
type failedQueryIterator struct{ err error }

func (f failedQueryIterator) Next() (*core.QuerySnapshot, error) { return nil, f.err }
func (f failedQueryIterator) Stop()                              {}

type failedDocIterator struct{ err error }

func (f failedDocIterator) Next() (*core.Snapshot, error) { return nil, f.err }
func (f failedDocIterator) Stop()                         {}

var (
	_ core.DocumentSnapshotIterator = (*docIterator)(nil)
	_ core.DocumentSnapshotIterator = failedDocIterator{}
	_ core.QuerySnapshotIterator    = (*queryIterator)(nil)
	_ core.QuerySnapshotIterator    = failedQueryIterator{}
)
