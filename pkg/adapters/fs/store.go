// Package fs implements the Docket store contract on the local filesystem.
//
// A collection path such as "users/alice/notes" maps to the directory
// <root>/users/alice/notes and every document to one file named after its
// identifier (<id>.json by default). Live listeners are driven by fsnotify.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/docket/pkg/core"
)

// DefaultIgnore lists the file name patterns that are never treated as documents.
var DefaultIgnore = []string{".*", TempFilePrefix + "*"}

// Config holds the configuration for the filesystem store.
type Config struct {
	Path         string
	Format       string        // File extension of documents: ".json" (default), ".yaml" or ".yml".
	ReadOnly     bool          // Reject writes with core.ErrReadOnly and never create directories.
	MustExist    bool          // Fail Initialize when Path is missing instead of creating it.
	Ignore       []string      // Extra doublestar patterns matched against file names.
	Debounce     time.Duration // Quiet period before a listener re-reads; defaults to 50ms.
	Logger       *slog.Logger
	ErrorHandler func(error) // Receives non fatal watcher errors.
}

// Store is a document store rooted at a directory.
// It implements core.Client.
type Store struct {
	Path       string
	config     Config
	serializer Serializer
	ignore     []string

	writeMu sync.Mutex // serializes read-modify-write updates

	mu        sync.RWMutex
	listeners int
	closed    bool
}

// NewStore creates a filesystem store. Call Initialize before use.
func NewStore(config Config) (*Store, error) {
	if config.Format == "" {
		config.Format = ".json"
	}
	if !strings.HasPrefix(config.Format, ".") {
		config.Format = "." + config.Format
	}
	serializer, ok := DefaultSerializers()[config.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported document format: %s", config.Format)
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	ignore := append(append([]string{}, DefaultIgnore...), config.Ignore...)
	for _, p := range ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern: %q", p)
		}
	}

	return &Store{
		Path:       config.Path,
		config:     config,
		serializer: serializer,
		ignore:     ignore,
	}, nil
}

// Initialize makes sure the root directory exists.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist || s.config.ReadOnly {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
		return nil
	}
	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// Collection returns a reference to the collection at path. Invalid paths
// are reported by the operations of the returned reference.
func (s *Store) Collection(path string) core.CollectionRef {
	segments, err := splitCollectionPath(path)
	ref := &collectionRef{store: s, path: path, err: err}
	if err == nil {
		ref.dir = filepath.Join(append([]string{s.Path}, segments...)...)
	}
	ref.query = query{col: ref}
	return ref
}

// Close marks the store closed. Running listeners keep their own resources
// until they are stopped.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) checkWritable() error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("store is closed")
	}
	return nil
}

// ignored reports whether a file name inside a collection directory is not a document.
func (s *Store) ignored(name string) bool {
	for _, p := range s.ignore {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// docID returns the identifier stored in a file name, or false when the file
// is not a document of this store.
func (s *Store) docID(name string) (string, bool) {
	if s.ignored(name) || filepath.Ext(name) != s.serializer.Ext() {
		return "", false
	}
	return strings.TrimSuffix(name, s.serializer.Ext()), true
}

func (s *Store) trackListener(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners += delta
}

// splitCollectionPath validates a slash separated collection path. Like the
// hosted document databases, a collection path has an odd number of segments.
func splitCollectionPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", core.ErrInvalidPath)
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments)%2 == 0 {
		return nil, fmt.Errorf("%w: %q has an even number of segments", core.ErrInvalidPath, path)
	}
	for _, seg := range segments {
		if err := validateSegment(seg); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", core.ErrInvalidPath, path, err)
		}
	}
	return segments, nil
}

func validateSegment(seg string) error {
	switch {
	case seg == "":
		return errors.New("empty segment")
	case seg == "." || seg == "..":
		return fmt.Errorf("segment %q is reserved", seg)
	case strings.HasPrefix(seg, "."):
		return fmt.Errorf("segment %q starts with a dot", seg)
	case strings.ContainsAny(seg, `/\`):
		return fmt.Errorf("segment %q contains a separator", seg)
	}
	return nil
}
