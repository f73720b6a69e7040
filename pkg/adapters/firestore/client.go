// Package firestore implements the Docket store contract on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/aretw0/introspection"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/aretw0/docket/pkg/core"
)

// Config holds the connection settings of the Firestore client.
type Config struct {
	ProjectID       string
	Database        string // Defaults to the "(default)" database.
	CredentialsFile string
	EmulatorHost    string // host:port of a local emulator; disables authentication.
	ReadOnly        bool
	Logger          *slog.Logger
	Options         []option.ClientOption
}

// Client adapts a *firestore.Client to core.Client.
type Client struct {
	fs     *firestore.Client
	config Config
	owned  bool
}

// New connects to Firestore.
func New(ctx context.Context, config Config) (*Client, error) {
	if config.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	if config.Database == "" {
		config.Database = firestore.DefaultDatabaseID
	}

	opts := append([]option.ClientOption{}, config.Options...)
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.EmulatorHost != "" {
		opts = append(opts,
			option.WithEndpoint(config.EmulatorHost),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	fc, err := firestore.NewClientWithDatabase(ctx, config.ProjectID, config.Database, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: failed to create client: %w", err)
	}
	c := Wrap(fc, config)
	c.owned = true
	c.logger().Debug("firestore client created", "project", config.ProjectID, "database", config.Database, "emulator", config.EmulatorHost != "")
	return c, nil
}

// Wrap adapts an existing client. Close does not close a wrapped client.
func Wrap(fc *firestore.Client, config Config) *Client {
	return &Client{fs: fc, config: config}
}

// Firestore returns the underlying client.
func (c *Client) Firestore() *firestore.Client { return c.fs }

func (c *Client) Collection(path string) core.CollectionRef {
	ref := c.fs.Collection(path)
	col := &collectionRef{client: c, ref: ref, path: path}
	if ref == nil {
		col.err = fmt.Errorf("%w: %q", core.ErrInvalidPath, path)
		col.query = query{client: c, err: col.err}
		return col
	}
	col.query = query{client: c, q: ref.Query}
	return col
}

func (c *Client) Close() error {
	if !c.owned {
		return nil
	}
	return c.fs.Close()
}

func (c *Client) logger() *slog.Logger {
	if c.config.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.config.Logger
}

func (c *Client) checkWritable() error {
	if c.config.ReadOnly {
		return core.ErrReadOnly
	}
	return nil
}

// ClientState exposes connection settings for observability.
type ClientState struct {
	ProjectID string `json:"project_id"`
	Database  string `json:"database"`
	Emulator  string `json:"emulator,omitempty"`
	ReadOnly  bool   `json:"read_only"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	return ClientState{
		ProjectID: c.config.ProjectID,
		Database:  c.config.Database,
		Emulator:  c.config.EmulatorHost,
		ReadOnly:  c.config.ReadOnly,
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string { return "firestore" }

var (
	_ core.Client                  = (*Client)(nil)
	_ introspection.Introspectable = (*Client)(nil)
	_ introspection.Component      = (*Client)(nil)
)
