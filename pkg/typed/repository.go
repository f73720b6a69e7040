package typed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/docket/pkg/core"
)

// Repository gives typed access to the documents of one collection.
// Store errors are returned unchanged.
type Repository[T any, PT core.Model[T]] struct {
	path   string
	col    core.CollectionRef
	logger *slog.Logger
}

// Change is a typed document change envelope.
// Data is nil when a watched document does not exist.
type Change[T any, PT core.Model[T]] struct {
	Type     core.ChangeType
	ID       string
	Data     PT
	OldIndex int
	NewIndex int
}

func (c Change[T, PT]) String() string {
	return fmt.Sprintf("%s %s", c.Type, c.ID)
}

// Path returns the collection path the repository is bound to.
func (r *Repository[T, PT]) Path() string {
	return r.path
}

// Ref exposes the underlying collection for queries the options cannot express.
func (r *Repository[T, PT]) Ref() core.CollectionRef {
	return r.col
}

// Add writes item and returns a copy carrying the resolved identifier.
// Without id the store generates one; with id the document at id is created
// or replaced.
func (r *Repository[T, PT]) Add(ctx context.Context, item PT, id ...string) (PT, error) {
	if item == nil {
		return nil, errors.New("cannot add a nil item")
	}
	fields, err := toFields[T, PT](item)
	if err != nil {
		return nil, err
	}

	var docID string
	if len(id) > 0 && id[0] != "" {
		docID = id[0]
		if err := r.col.Doc(docID).Set(ctx, fields); err != nil {
			return nil, err
		}
	} else {
		docID, err = r.col.Add(ctx, fields)
		if err != nil {
			return nil, err
		}
	}
	r.logger.Debug("document added", "id", docID)

	added := PT(new(T))
	*added = *item
	added.SetID(docID)
	return added, nil
}

// Delete removes the document id. Deleting a missing document is not an error
// unless the store says otherwise.
func (r *Repository[T, PT]) Delete(ctx context.Context, id string) error {
	if err := r.col.Doc(id).Delete(ctx); err != nil {
		return err
	}
	r.logger.Debug("document deleted", "id", id)
	return nil
}

// Update merges the fields of item into the stored document identified by
// item's identifier. Only fields present in item's JSON encoding are written,
// so optional fields should be tagged omitempty. The store rejects updates of
// missing documents.
func (r *Repository[T, PT]) Update(ctx context.Context, item PT) error {
	if item == nil || item.GetID() == "" {
		return core.ErrMissingID
	}
	fields, err := toFields[T, PT](item)
	if err != nil {
		return err
	}
	return r.UpdateFields(ctx, item.GetID(), fields)
}

// UpdateFields merges fields into the document id, including zero values.
func (r *Repository[T, PT]) UpdateFields(ctx context.Context, id string, fields core.Fields) error {
	if id == "" {
		return core.ErrMissingID
	}
	if err := r.col.Doc(id).Update(ctx, fields); err != nil {
		return err
	}
	r.logger.Debug("document updated", "id", id, "fields", len(fields))
	return nil
}

// Exists reports whether the document id exists, with a single lookup.
func (r *Repository[T, PT]) Exists(ctx context.Context, id string) (bool, error) {
	snap, err := r.col.Doc(id).Get(ctx)
	if err != nil {
		return false, err
	}
	return snap.Exists, nil
}

// Find reads the document id once. It returns nil and no error when the
// document does not exist.
func (r *Repository[T, PT]) Find(ctx context.Context, id string) (PT, error) {
	snap, err := r.col.Doc(id).Get(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, nil
	}
	return fromSnapshot[T, PT](snap)
}

// List runs the query described by opts once.
func (r *Repository[T, PT]) List(ctx context.Context, opts *core.FetchOptions) ([]PT, error) {
	snaps, err := r.query(opts).Documents(ctx)
	if err != nil {
		return nil, err
	}
	return decodeAll[T, PT](snaps)
}

// Get streams the current value of the document id, with its identifier set,
// every time it changes. A nil value means the document does not exist.
func (r *Repository[T, PT]) Get(ctx context.Context, id string) *Stream[PT] {
	return openStream(ctx, r.logger, "doc:"+id, func(ctx context.Context) source[PT] {
		it := r.col.Doc(id).Snapshots(ctx)
		return source[PT]{
			next: func() (PT, bool, error) {
				snap, err := it.Next()
				if err != nil {
					return nil, false, err
				}
				if !snap.Exists {
					return nil, true, nil
				}
				item, err := fromSnapshot[T, PT](snap)
				if err != nil {
					return nil, false, err
				}
				return item, true, nil
			},
			stop: it.Stop,
		}
	})
}

// GetSnapshot streams change envelopes of the document id. The first state of
// an existing document is reported as added, later states as modified, and a
// missing document as removed.
func (r *Repository[T, PT]) GetSnapshot(ctx context.Context, id string) *Stream[Change[T, PT]] {
	return openStream(ctx, r.logger, "doc-changes:"+id, func(ctx context.Context) source[Change[T, PT]] {
		it := r.col.Doc(id).Snapshots(ctx)
		existed := false
		return source[Change[T, PT]]{
			next: func() (Change[T, PT], bool, error) {
				snap, err := it.Next()
				if err != nil {
					return Change[T, PT]{}, false, err
				}
				change := Change[T, PT]{ID: snap.ID}
				switch {
				case snap.Exists && !existed:
					change.Type = core.ChangeAdded
					change.OldIndex = -1
				case snap.Exists:
					change.Type = core.ChangeModified
				default:
					change.Type = core.ChangeRemoved
					change.NewIndex = -1
				}
				existed = snap.Exists
				if snap.Exists {
					if change.Data, err = fromSnapshot[T, PT](snap); err != nil {
						return Change[T, PT]{}, false, err
					}
				}
				return change, true, nil
			},
			stop: it.Stop,
		}
	})
}

// Fetch streams the full result of the query described by opts every time it changes.
func (r *Repository[T, PT]) Fetch(ctx context.Context, opts *core.FetchOptions) *Stream[[]PT] {
	return openStream(ctx, r.logger, "query", func(ctx context.Context) source[[]PT] {
		it := r.query(opts).Snapshots(ctx)
		return source[[]PT]{
			next: func() ([]PT, bool, error) {
				qs, err := it.Next()
				if err != nil {
					return nil, false, err
				}
				items, err := decodeAll[T, PT](qs.Documents)
				if err != nil {
					return nil, false, err
				}
				return items, true, nil
			},
			stop: it.Stop,
		}
	})
}

// FetchSnapshots streams the per-document changes of the query described by
// opts. When kinds are given only those change types are delivered; batches
// left empty by the filter are skipped.
func (r *Repository[T, PT]) FetchSnapshots(ctx context.Context, opts *core.FetchOptions, kinds ...core.ChangeType) *Stream[[]Change[T, PT]] {
	return openStream(ctx, r.logger, "query-changes", func(ctx context.Context) source[[]Change[T, PT]] {
		it := r.query(opts).Snapshots(ctx)
		return source[[]Change[T, PT]]{
			next: func() ([]Change[T, PT], bool, error) {
				qs, err := it.Next()
				if err != nil {
					return nil, false, err
				}
				changes := make([]Change[T, PT], 0, len(qs.Changes))
				for _, dc := range qs.Changes {
					if !wanted(dc.Type, kinds) {
						continue
					}
					data, err := fromSnapshot[T, PT](dc.Doc)
					if err != nil {
						return nil, false, err
					}
					changes = append(changes, Change[T, PT]{
						Type:     dc.Type,
						ID:       dc.Doc.ID,
						Data:     data,
						OldIndex: dc.OldIndex,
						NewIndex: dc.NewIndex,
					})
				}
				return changes, len(changes) > 0, nil
			},
			stop: it.Stop,
		}
	})
}

func (r *Repository[T, PT]) query(opts *core.FetchOptions) core.Query {
	if q, ok := applyOptions(opts, r.col); ok {
		return q
	}
	return r.col
}

func wanted(t core.ChangeType, kinds []core.ChangeType) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == t {
			return true
		}
	}
	return false
}

func decodeAll[T any, PT core.Model[T]](snaps []*core.Snapshot) ([]PT, error) {
	result := make([]PT, 0, len(snaps))
	for _, s := range snaps {
		item, err := fromSnapshot[T, PT](s)
		if err != nil {
			return nil, fmt.Errorf("failed to process document %s: %w", s.ID, err)
		}
		result = append(result, item)
	}
	return result, nil
}
