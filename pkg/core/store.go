package core

import (
	"context"
	"time"
)

// Client is the document-database client a repository delegates to.
// A single Client is shared by every repository of a factory; it must be
// safe for concurrent use.
type Client interface {
	// Collection returns a reference to the collection at path.
	Collection(path string) CollectionRef

	// Close releases the client.
	Close() error
}

// CollectionRef addresses a collection. Used as a Query it matches every
// document of the collection.
type CollectionRef interface {
	Query

	// Path returns the collection path.
	Path() string

	// Add creates a document with a store-generated identifier.
	Add(ctx context.Context, fields Fields) (string, error)

	// Doc returns a reference to the document id in this collection.
	Doc(id string) DocumentRef
}

// DocumentRef addresses a single document.
type DocumentRef interface {
	ID() string

	// Set creates or replaces the document.
	Set(ctx context.Context, fields Fields) error

	// Update merges fields into an existing document. It fails if the
	// document does not exist.
	Update(ctx context.Context, fields Fields) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context) error

	// Get reads the document once. A missing document yields a Snapshot
	// with Exists false and a nil error.
	Get(ctx context.Context) (*Snapshot, error)

	// Snapshots listens to the document until the iterator is stopped or ctx ends.
	Snapshots(ctx context.Context) DocumentSnapshotIterator
}

// Query is an immutable query builder: every method returns a new Query.
type Query interface {
	Where(field string, op Operator, value any) Query
	OrderBy(field string, dir Direction) Query
	StartAt(values ...any) Query
	StartAfter(values ...any) Query
	EndAt(values ...any) Query
	EndBefore(values ...any) Query
	Limit(n int) Query

	// Documents runs the query once.
	Documents(ctx context.Context) ([]*Snapshot, error)

	// Snapshots listens to the query until the iterator is stopped or ctx ends.
	Snapshots(ctx context.Context) QuerySnapshotIterator
}

// Snapshot is the state of one document at a point in time.
type Snapshot struct {
	ID         string
	Exists     bool
	Fields     Fields
	UpdateTime time.Time
}

// DocumentChange describes how one document changed between two query snapshots.
// OldIndex is -1 for added documents and NewIndex is -1 for removed ones.
type DocumentChange struct {
	Type     ChangeType
	Doc      *Snapshot
	OldIndex int
	NewIndex int
}

// QuerySnapshot is the full result of a live query plus the changes since the
// previous snapshot. The first snapshot reports every document as added.
type QuerySnapshot struct {
	Documents []*Snapshot
	Changes   []DocumentChange
	ReadTime  time.Time
}

// DocumentSnapshotIterator yields the successive states of one document.
type DocumentSnapshotIterator interface {
	// Next blocks until the next state. It returns ErrStopped after Stop.
	Next() (*Snapshot, error)
	Stop()
}

// QuerySnapshotIterator yields the successive results of a live query.
type QuerySnapshotIterator interface {
	// Next blocks until the next snapshot. It returns ErrStopped after Stop.
	Next() (*QuerySnapshot, error)
	Stop()
}
