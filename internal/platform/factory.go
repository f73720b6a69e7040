package platform

import (
	"context"

	"github.com/aretw0/docket/pkg/typed"
)

// Open connects to the store described by uri and returns a repository
// factory sharing that connection.
//
//	factory, err := platform.Open(ctx, "firestore://my-project", platform.WithLogger(logger))
func Open(ctx context.Context, uri string, opts ...Option) (*typed.Factory, error) {
	o := defaultOptions().apply(opts)

	client, err := Connect(ctx, uri, opts...)
	if err != nil {
		return nil, err
	}
	return typed.NewFactory(client, o.logger), nil
}
