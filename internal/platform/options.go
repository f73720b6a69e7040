package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/docket/pkg/core"
)

// options holds the internal configuration used to open a store.
type options struct {
	client       core.Client
	logger       *slog.Logger
	adapter      string
	readOnly     bool
	mustExist    bool
	devSafety    bool
	format       string
	ignore       []string
	debounce     time.Duration
	errorHandler func(error)

	credentialsFile string
	database        string
	emulatorHost    string
}

// Option defines a functional option for configuring Docket.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: AdapterFS,
	}
}

func (o *options) apply(opts []Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// WithLogger sets the logger shared by the store and the repositories.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClient injects an already configured store client (e.g. a fake in tests).
// If provided, the URI and the adapter settings are ignored.
func WithClient(client core.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithAdapter selects the store adapter ("fs" or "firestore") for URIs
// without a scheme. Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithReadOnly rejects every write with core.ErrReadOnly.
// The fs adapter also refuses to create its root directory.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithMustExist makes the fs adapter fail when its root directory is missing.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithDevSafety re-roots fs stores into a temporary directory when the process
// runs through `go run` or `go test`, so that experiments never touch real data.
// Read-only stores are never re-rooted.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithFormat sets the document file format of the fs adapter: "json" (default) or "yaml".
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithIgnore adds doublestar patterns of file names the fs adapter never reads as documents.
func WithIgnore(patterns ...string) Option {
	return func(o *options) {
		o.ignore = append(o.ignore, patterns...)
	}
}

// WithDebounce sets how long the fs adapter waits for file activity to settle
// before live listeners re-read.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithWatcherErrorHandler registers a callback for errors raised while the fs
// adapter watches directories (e.g. permission denied), which are otherwise
// only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithCredentialsFile authenticates the Firestore adapter with a service account key file.
func WithCredentialsFile(path string) Option {
	return func(o *options) {
		o.credentialsFile = path
	}
}

// WithDatabase selects a named Firestore database. The URI may name it too.
func WithDatabase(name string) Option {
	return func(o *options) {
		o.database = name
	}
}

// WithEmulatorHost points the Firestore adapter at a local emulator (host:port).
func WithEmulatorHost(host string) Option {
	return func(o *options) {
		o.emulatorHost = host
	}
}
