package docket

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/docket/internal/platform"
	"github.com/aretw0/docket/pkg/core"
	"github.com/aretw0/docket/pkg/typed"
)

// --- Types ---

// Factory is a public alias for the repository factory.
type Factory = typed.Factory

// Repository is a public alias for the typed repository.
type Repository[T any, PT core.Model[T]] = typed.Repository[T, PT]

// Stream is a public alias for a live value stream.
type Stream[V any] = typed.Stream[V]

// Change is a public alias for a typed document change.
type Change[T any, PT core.Model[T]] = typed.Change[T, PT]

// Document is a public alias for the untyped entity.
type Document = typed.Document

// Base is an embeddable identifier holder for entities.
type Base = core.Base

// FetchOptions declares filters, ordering, cursors and a limit.
type FetchOptions = core.FetchOptions

// Fields is the field map exchanged with the store.
type Fields = core.Fields

// --- Configuration ---

// Option defines a functional option for configuring Docket.
type Option = platform.Option

// WithLogger sets the logger shared by the store and the repositories.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithClient injects an already configured store client.
func WithClient(client core.Client) Option {
	return platform.WithClient(client)
}

// WithAdapter selects the store adapter for URIs without a scheme.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithReadOnly rejects every write with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithMustExist makes the fs adapter fail when its root directory is missing.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithDevSafety re-roots fs stores into a temporary directory under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithFormat sets the document file format of the fs adapter.
func WithFormat(format string) Option {
	return platform.WithFormat(format)
}

// WithIgnore adds file name patterns the fs adapter never reads as documents.
func WithIgnore(patterns ...string) Option {
	return platform.WithIgnore(patterns...)
}

// WithDebounce sets the quiet period of fs live listeners.
func WithDebounce(d time.Duration) Option {
	return platform.WithDebounce(d)
}

// WithWatcherErrorHandler registers a callback for fs watcher errors.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithCredentialsFile authenticates the Firestore adapter with a key file.
func WithCredentialsFile(path string) Option {
	return platform.WithCredentialsFile(path)
}

// WithDatabase selects a named Firestore database.
func WithDatabase(name string) Option {
	return platform.WithDatabase(name)
}

// WithEmulatorHost points the Firestore adapter at a local emulator.
func WithEmulatorHost(host string) Option {
	return platform.WithEmulatorHost(host)
}

// --- Factory ---

// Open connects to the store described by uri and returns a repository factory.
func Open(ctx context.Context, uri string, opts ...Option) (*Factory, error) {
	return platform.Open(ctx, uri, opts...)
}

// Connect opens the raw store client described by uri.
func Connect(ctx context.Context, uri string, opts ...Option) (core.Client, error) {
	return platform.Connect(ctx, uri, opts...)
}

// NewFactory builds a factory over an existing client.
func NewFactory(client core.Client, logger *slog.Logger) *Factory {
	return typed.NewFactory(client, logger)
}

// Create returns a repository bound to collectionPath.
func Create[T any, PT core.Model[T]](f *Factory, collectionPath string) *Repository[T, PT] {
	return typed.Create[T, PT](f, collectionPath)
}

// --- Query helpers ---

// Where builds a filter.
func Where(field string, op core.Operator, value any) core.Filter {
	return core.Where(field, op, value)
}

// OrderAsc builds an ascending sort.
func OrderAsc(field string) core.Sort { return core.OrderAsc(field) }

// OrderDesc builds a descending sort.
func OrderDesc(field string) core.Sort { return core.OrderDesc(field) }

// --- Utils ---

// FindRoot looks upwards from startDir for the directory holding docket.yaml.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
