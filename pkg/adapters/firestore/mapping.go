package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aretw0/docket/pkg/core"
)

// mapError adds the core sentinels to Firestore errors. The original error
// stays in the chain, so status.Code and errors.Is keep working on it.
func mapError(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, iterator.Done):
		return core.ErrStopped
	}

	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %w", core.ErrNotFound, err)
	case codes.Canceled, codes.DeadlineExceeded:
		if ctx != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			return errors.Join(err, ctx.Err())
		}
	}
	return err
}

func changeType(kind firestore.DocumentChangeKind) core.ChangeType {
	switch kind {
	case firestore.DocumentAdded:
		return core.ChangeAdded
	case firestore.DocumentRemoved:
		return core.ChangeRemoved
	default:
		return core.ChangeModified
	}
}

func toSnapshot(ds *firestore.DocumentSnapshot) *core.Snapshot {
	if ds == nil {
		return nil
	}
	snap := &core.Snapshot{Exists: ds.Exists(), UpdateTime: ds.UpdateTime}
	if ds.Ref != nil {
		snap.ID = ds.Ref.ID
	}
	if snap.Exists {
		snap.Fields = core.Fields(ds.Data())
	}
	return snap
}

func toSnapshots(docs []*firestore.DocumentSnapshot) []*core.Snapshot {
	out := make([]*core.Snapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, toSnapshot(d))
	}
	return out
}

// toUpdates turns a field map into Firestore updates. Keys are field paths,
// so dotted keys address nested fields. The order is stable for logging and tests.
func toUpdates(fields core.Fields) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	return updates
}
