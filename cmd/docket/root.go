package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/docket"
	"github.com/aretw0/docket/internal/platform"
	"github.com/aretw0/docket/pkg/typed"
)

// app carries the global flags and the resolved configuration of one invocation.
type app struct {
	configPath string
	store      string
	collection string
	format     string
	readOnly   bool
	verbose    bool

	cfg    Config
	logger *slog.Logger
}

// newRootCmd builds the command tree. Each call returns independent state.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "docket",
		Short: "Typed document collections on Firestore or the local filesystem",
		Long: `Docket reads, writes, queries and watches one collection of a document store.
The store is a URI: firestore://<project>[/<database>] for Cloud Firestore,
or file://<dir> (or a plain directory) for JSON/YAML files on disk.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: docket.yaml in the current directory or above)")
	flags.StringVar(&a.store, "store", "", "Store URI (overrides the config file)")
	flags.StringVarP(&a.collection, "collection", "c", "", "Collection path, e.g. users or users/alice/notes")
	flags.StringVar(&a.format, "format", "", "Document file format of the fs adapter (json or yaml)")
	flags.BoolVar(&a.readOnly, "read-only", false, "Reject writes")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(
		newAddCmd(a),
		newGetCmd(a),
		newExistsCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newFetchCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// setup configures logging and merges the config file with the flags.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	path := a.configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			if root, err := platform.FindRoot(wd); err == nil {
				path = filepath.Join(root, platform.ConfigFileName)
			}
		}
	}
	if path != "" {
		cfg, err := loadConfig(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
		// Relative fs stores are relative to the config file.
		if a.store == "" && a.cfg.Store != "" && !strings.Contains(a.cfg.Store, "://") && !filepath.IsAbs(a.cfg.Store) {
			a.cfg.Store = filepath.Join(filepath.Dir(path), a.cfg.Store)
		}
	}

	level := slog.LevelInfo
	switch strings.ToLower(a.cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) options() []docket.Option {
	format := a.format
	if format == "" {
		format = a.cfg.FS.Format
	}
	opts := []docket.Option{
		docket.WithLogger(a.logger),
		docket.WithReadOnly(a.readOnly || a.cfg.ReadOnly),
		docket.WithFormat(format),
		docket.WithIgnore(a.cfg.FS.Ignore...),
		docket.WithWatcherErrorHandler(func(err error) {
			a.logger.Warn("watcher error", "error", err)
		}),
	}
	if a.cfg.FS.DebounceMS > 0 {
		opts = append(opts, docket.WithDebounce(time.Duration(a.cfg.FS.DebounceMS)*time.Millisecond))
	}
	if fc := a.cfg.Firestore; fc != (FirestoreConfig{}) {
		opts = append(opts,
			docket.WithCredentialsFile(fc.CredentialsFile),
			docket.WithDatabase(fc.Database),
			docket.WithEmulatorHost(fc.EmulatorHost),
		)
	}
	return opts
}

// documents opens the store and returns an untyped repository over the
// selected collection. The caller must close the factory.
func (a *app) documents(ctx context.Context) (*typed.Repository[typed.Document, *typed.Document], *typed.Factory, error) {
	uri := a.store
	if uri == "" {
		uri = a.cfg.Store
	}
	if uri == "" {
		return nil, nil, errors.New("no store: pass --store or set store in docket.yaml")
	}
	collection := a.collection
	if collection == "" {
		collection = a.cfg.Collection
	}
	if collection == "" {
		return nil, nil, errors.New("no collection: pass --collection or set collection in docket.yaml")
	}

	factory, err := docket.Open(ctx, uri, a.options()...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return typed.Create[typed.Document](factory, collection), factory, nil
}
