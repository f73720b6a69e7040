package core

import "errors"

// Errors reported by store drivers. Repositories pass them through untouched.
var (
	ErrNotFound    = errors.New("document not found")
	ErrStopped     = errors.New("iterator stopped")
	ErrReadOnly    = errors.New("store is in read-only mode")
	ErrInvalidPath = errors.New("invalid collection path")
)

// ErrMissingID is returned when an operation needs an identifier the entity does not carry.
var ErrMissingID = errors.New("document identifier is empty")
