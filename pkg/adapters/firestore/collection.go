package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aretw0/docket/pkg/core"
)

type collectionRef struct {
	query
	client *Client
	ref    *firestore.CollectionRef
	path   string
	err    error
}

func (c *collectionRef) Path() string { return c.path }

func (c *collectionRef) Add(ctx context.Context, fields core.Fields) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if err := c.client.checkWritable(); err != nil {
		return "", err
	}
	doc, _, err := c.ref.Add(ctx, map[string]any(fields))
	if err != nil {
		return "", mapError(ctx, err)
	}
	c.client.logger().Debug("document written", "collection", c.path, "id", doc.ID)
	return doc.ID, nil
}

func (c *collectionRef) Doc(id string) core.DocumentRef {
	d := &documentRef{col: c, id: id, err: c.err}
	if d.err != nil {
		return d
	}
	if id == "" {
		d.err = fmt.Errorf("%w: empty document id", core.ErrInvalidPath)
		return d
	}
	d.ref = c.ref.Doc(id)
	if d.ref == nil {
		d.err = fmt.Errorf("%w: document id %q", core.ErrInvalidPath, id)
	}
	return d
}

type documentRef struct {
	col *collectionRef
	ref *firestore.DocumentRef
	id  string
	err error
}

func (d *documentRef) ID() string { return d.id }

func (d *documentRef) Set(ctx context.Context, fields core.Fields) error {
	if d.err != nil {
		return d.err
	}
	if err := d.col.client.checkWritable(); err != nil {
		return err
	}
	if fields == nil {
		fields = core.Fields{}
	}
	if _, err := d.ref.Set(ctx, map[string]any(fields)); err != nil {
		return mapError(ctx, err)
	}
	d.col.client.logger().Debug("document written", "collection", d.col.path, "id", d.id)
	return nil
}

func (d *documentRef) Update(ctx context.Context, fields core.Fields) error {
	if d.err != nil {
		return d.err
	}
	if err := d.col.client.checkWritable(); err != nil {
		return err
	}
	if len(fields) == 0 {
		// Firestore rejects empty updates; the document must still exist.
		snap, err := d.Get(ctx)
		if err != nil {
			return err
		}
		if !snap.Exists {
			return fmt.Errorf("%w: %s/%s", core.ErrNotFound, d.col.path, d.id)
		}
		return nil
	}
	if _, err := d.ref.Update(ctx, toUpdates(fields)); err != nil {
		return mapError(ctx, err)
	}
	d.col.client.logger().Debug("document updated", "collection", d.col.path, "id", d.id)
	return nil
}

func (d *documentRef) Delete(ctx context.Context) error {
	if d.err != nil {
		return d.err
	}
	if err := d.col.client.checkWritable(); err != nil {
		return err
	}
	if _, err := d.ref.Delete(ctx); err != nil {
		return mapError(ctx, err)
	}
	d.col.client.logger().Debug("document deleted", "collection", d.col.path, "id", d.id)
	return nil
}

func (d *documentRef) Get(ctx context.Context) (*core.Snapshot, error) {
	if d.err != nil {
		return nil, d.err
	}
	ds, err := d.ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return &core.Snapshot{ID: d.id}, nil
	}
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return toSnapshot(ds), nil
}

func (d *documentRef) Snapshots(ctx context.Context) core.DocumentSnapshotIterator {
	if d.err != nil {
		return failedDocIterator{err: d.err}
	}
	return &docIterator{ctx: ctx, it: d.ref.Snapshots(ctx)}
}

var (
	_ core.CollectionRef = (*collectionRef)(nil)
	_ core.DocumentRef   = (*documentRef)(nil)
)
