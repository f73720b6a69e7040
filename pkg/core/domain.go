// Package core defines the storage-agnostic contracts of Docket: the entity
// constraint, the declarative fetch options and the store driver interfaces
// that adapters (Firestore, filesystem) implement.
package core

// Fields is the field map exchanged with store drivers.
type Fields map[string]any

// Identifiable is implemented by entities that carry an optional document identifier.
// The identifier is empty before creation and set after creation or retrieval.
type Identifiable interface {
	GetID() string
	SetID(id string)
}

// Model constrains a pointer to an entity type T that is Identifiable.
// It lets repositories allocate a T and still call its pointer methods.
type Model[T any] interface {
	*T
	Identifiable
}

// Base is an embeddable identifier holder.
// The identifier is the document key, never a stored field.
type Base struct {
	ID string `json:"-" yaml:"-"`
}

// GetID returns the document identifier.
func (b *Base) GetID() string { return b.ID }

// SetID sets the document identifier.
func (b *Base) SetID(id string) { b.ID = id }

// ChangeType is the kind of a document change reported by a live listener.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// String returns the change kind as spelled on the wire.
func (c ChangeType) String() string { return string(c) }

// ParseChangeType parses "added", "modified" or "removed".
func ParseChangeType(s string) (ChangeType, bool) {
	switch ChangeType(s) {
	case ChangeAdded, ChangeModified, ChangeRemoved:
		return ChangeType(s), true
	}
	return "", false
}
