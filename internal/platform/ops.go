package platform

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aretw0/docket/pkg/adapters/firestore"
	"github.com/aretw0/docket/pkg/adapters/fs"
	"github.com/aretw0/docket/pkg/core"
)

// Adapter names.
const (
	AdapterFS        = "fs"
	AdapterFirestore = "firestore"
)

// Target is a parsed store URI.
type Target struct {
	Adapter  string
	Path     string // fs root directory
	Project  string // Firestore project id
	Database string // Firestore database id, empty for the default
}

// ParseURI splits a store URI into its adapter and location.
//
//	firestore://my-project            Firestore, default database
//	firestore://my-project/orders-db  Firestore, named database
//	file:///var/lib/docket            fs adapter
//	./data                            fs adapter (or the fallback adapter)
func ParseURI(uri, fallback string) (Target, error) {
	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		if fallback == AdapterFirestore {
			project, database, _ := strings.Cut(uri, "/")
			return firestoreTarget(project, database)
		}
		return Target{Adapter: AdapterFS, Path: uri}, nil
	}

	switch scheme {
	case "file":
		u, err := url.Parse(uri)
		if err != nil {
			return Target{}, fmt.Errorf("invalid store uri %q: %w", uri, err)
		}
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			// file://relative/dir
			path = u.Host + u.Path
		}
		return Target{Adapter: AdapterFS, Path: path}, nil
	case AdapterFirestore:
		project, database, _ := strings.Cut(strings.Trim(rest, "/"), "/")
		return firestoreTarget(project, database)
	default:
		return Target{}, fmt.Errorf("unknown store scheme: %s", scheme)
	}
}

func firestoreTarget(project, database string) (Target, error) {
	if project == "" {
		return Target{}, fmt.Errorf("firestore uri needs a project id")
	}
	return Target{Adapter: AdapterFirestore, Project: project, Database: database}, nil
}

// Connect opens the store client described by uri.
func Connect(ctx context.Context, uri string, opts ...Option) (core.Client, error) {
	o := defaultOptions().apply(opts)

	// 1. Check for injected client
	if o.client != nil {
		return o.client, nil
	}

	// 2. Initialize based on Adapter
	target, err := ParseURI(uri, o.adapter)
	if err != nil {
		return nil, err
	}

	switch target.Adapter {
	case AdapterFS:
		return connectFS(ctx, target.Path, o)
	case AdapterFirestore:
		return connectFirestore(ctx, target, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", target.Adapter)
	}
}

// connectFS handles the initialization logic for the filesystem adapter.
func connectFS(ctx context.Context, path string, o *options) (core.Client, error) {
	useTemp := o.devSafety && !o.readOnly && IsDevRun()
	resolved := ResolveStorePath(path, useTemp)
	if useTemp {
		o.logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", path, "resolved_path", resolved)
	}

	store, err := fs.NewStore(fs.Config{
		Path:         resolved,
		Format:       o.format,
		ReadOnly:     o.readOnly,
		MustExist:    o.mustExist,
		Ignore:       o.ignore,
		Debounce:     o.debounce,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	o.logger.Debug("store opened", "adapter", AdapterFS, "path", resolved)
	return store, nil
}

func connectFirestore(ctx context.Context, target Target, o *options) (core.Client, error) {
	database := target.Database
	if o.database != "" {
		database = o.database
	}
	emulator := o.emulatorHost
	if emulator == "" {
		emulator = os.Getenv("FIRESTORE_EMULATOR_HOST")
	}

	client, err := firestore.New(ctx, firestore.Config{
		ProjectID:       target.Project,
		Database:        database,
		CredentialsFile: o.credentialsFile,
		EmulatorHost:    emulator,
		ReadOnly:        o.readOnly,
		Logger:          o.logger,
	})
	if err != nil {
		return nil, err
	}
	o.logger.Debug("store opened", "adapter", AdapterFirestore, "project", target.Project)
	return client, nil
}
