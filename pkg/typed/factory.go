package typed

import (
	"log/slog"

	"github.com/aretw0/docket/pkg/core"
)

// Factory builds repositories that share one store client.
type Factory struct {
	client core.Client
	logger *slog.Logger
}

// NewFactory returns a Factory over client. A nil logger discards logs.
func NewFactory(client core.Client, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Factory{client: client, logger: logger}
}

// Client returns the shared store client.
func (f *Factory) Client() core.Client {
	return f.client
}

// Close closes the shared client. Repositories created by f stop working.
func (f *Factory) Close() error {
	return f.client.Close()
}

// Create returns a new repository bound to collectionPath.
// The path is passed to the client as is.
//
//	notes := typed.Create[Note](factory, "users/alice/notes")
func Create[T any, PT core.Model[T]](f *Factory, collectionPath string) *Repository[T, PT] {
	return &Repository[T, PT]{
		path:   collectionPath,
		col:    f.client.Collection(collectionPath),
		logger: f.logger.With("collection", collectionPath),
	}
}
