package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/docket/pkg/core"
)

var (
	_ core.Client                   = (*Store)(nil)
	_ core.CollectionRef            = (*collectionRef)(nil)
	_ core.DocumentRef              = (*documentRef)(nil)
	_ core.QuerySnapshotIterator    = (*queryIterator)(nil)
	_ core.DocumentSnapshotIterator = (*docIterator)(nil)
)

type collectionRef struct {
	query
	store *Store
	path  string
	dir   string
	err   error // invalid path
}

func (c *collectionRef) Path() string { return c.path }

// Add writes fields under a newly generated identifier.
func (c *collectionRef) Add(ctx context.Context, fields core.Fields) (string, error) {
	id := newID()
	if err := c.Doc(id).Set(ctx, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (c *collectionRef) Doc(id string) core.DocumentRef {
	d := &documentRef{col: c, id: id, err: c.err}
	if d.err == nil {
		if err := validateSegment(id); err != nil {
			d.err = fmt.Errorf("%w: document id %q: %v", core.ErrInvalidPath, id, err)
		}
	}
	return d
}

// readAll loads every document of the collection, sorted by identifier.
func (c *collectionRef) readAll() ([]*core.Snapshot, error) {
	if c.err != nil {
		return nil, c.err
	}
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", c.path, err)
	}

	docs := make([]*core.Snapshot, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := c.store.docID(e.Name())
		if !ok {
			continue
		}
		snap, err := c.readDoc(id)
		if err != nil {
			return nil, err
		}
		// Removed between ReadDir and the read.
		if !snap.Exists {
			continue
		}
		docs = append(docs, snap)
	}
	return docs, nil
}

func (c *collectionRef) filename(id string) string {
	return filepath.Join(c.dir, id+c.store.serializer.Ext())
}

func (c *collectionRef) readDoc(id string) (*core.Snapshot, error) {
	name := c.filename(id)
	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return &core.Snapshot{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s/%s: %w", c.path, id, err)
	}
	fields, err := c.store.serializer.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s/%s: %w", c.path, id, err)
	}

	snap := &core.Snapshot{ID: id, Exists: true, Fields: fields}
	if info, err := os.Stat(name); err == nil {
		snap.UpdateTime = info.ModTime()
	}
	return snap, nil
}

func (c *collectionRef) writeDoc(id string, fields core.Fields) error {
	data, err := c.store.serializer.Serialize(normalizeFields(fields))
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := writeFileAtomic(c.filename(id), data, 0644); err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", c.path, id, err)
	}
	return nil
}

type documentRef struct {
	col *collectionRef
	id  string
	err error
}

func (d *documentRef) ID() string { return d.id }

func (d *documentRef) Set(ctx context.Context, fields core.Fields) error {
	if d.err != nil {
		return d.err
	}
	if err := d.col.store.checkWritable(); err != nil {
		return err
	}
	d.col.store.writeMu.Lock()
	defer d.col.store.writeMu.Unlock()

	if err := d.col.writeDoc(d.id, fields); err != nil {
		return err
	}
	d.col.store.config.Logger.Debug("document written", "collection", d.col.path, "id", d.id)
	return nil
}

// Update merges fields into the stored document. Dotted keys address nested
// fields. It fails with core.ErrNotFound when the document does not exist.
func (d *documentRef) Update(ctx context.Context, fields core.Fields) error {
	if d.err != nil {
		return d.err
	}
	if err := d.col.store.checkWritable(); err != nil {
		return err
	}
	d.col.store.writeMu.Lock()
	defer d.col.store.writeMu.Unlock()

	current, err := d.col.readDoc(d.id)
	if err != nil {
		return err
	}
	if !current.Exists {
		return fmt.Errorf("%w: %s/%s", core.ErrNotFound, d.col.path, d.id)
	}

	merged := current.Fields
	if merged == nil {
		merged = core.Fields{}
	}
	for key, value := range fields {
		setPath(merged, key, normalizeValue(value))
	}
	if err := d.col.writeDoc(d.id, merged); err != nil {
		return err
	}
	d.col.store.config.Logger.Debug("document updated", "collection", d.col.path, "id", d.id)
	return nil
}

func (d *documentRef) Delete(ctx context.Context) error {
	if d.err != nil {
		return d.err
	}
	if err := d.col.store.checkWritable(); err != nil {
		return err
	}
	d.col.store.writeMu.Lock()
	defer d.col.store.writeMu.Unlock()

	if err := removeFile(d.col.filename(d.id)); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", d.col.path, d.id, err)
	}
	d.col.store.config.Logger.Debug("document deleted", "collection", d.col.path, "id", d.id)
	return nil
}

func (d *documentRef) Get(ctx context.Context) (*core.Snapshot, error) {
	if d.err != nil {
		return nil, d.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.col.readDoc(d.id)
}

func (d *documentRef) Snapshots(ctx context.Context) core.DocumentSnapshotIterator {
	return newDocIterator(ctx, d)
}

// setPath assigns value at a dotted path, creating intermediate maps.
func setPath(fields core.Fields, path string, value any) {
	parts := strings.Split(path, ".")
	m := map[string]any(fields)
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}
