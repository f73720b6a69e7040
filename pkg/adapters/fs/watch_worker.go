package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/docket/pkg/core"
)

// watchWorker watches one collection directory and signals, after a quiet
// period, that its documents may have changed.
type watchWorker struct {
	*worker.BaseWorker
	store   *Store
	dir     string
	notify  chan struct{}
	failed  chan error
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func newWatchWorker(store *Store, dir string) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		store:      store,
		dir:        dir,
		notify:     make(chan struct{}, 1),
		failed:     make(chan error, 1),
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.watcher = watcher
	if err := w.watchPath(); err != nil {
		_ = watcher.Close()
		return err
	}
	w.store.trackListener(1)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	if err := w.StartFunc(runCtx, w.run); err != nil {
		cancel()
		_ = watcher.Close()
		w.store.trackListener(-1)
		return err
	}
	return nil
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"dir":               w.dir,
		}
	})
}

// watchPath adds every existing directory from the store root down to the
// collection directory, so that the collection is noticed once created.
func (w *watchWorker) watchPath() error {
	rel, err := filepath.Rel(w.store.Path, w.dir)
	if err != nil {
		return fmt.Errorf("failed to resolve collection directory: %w", err)
	}
	current := w.store.Path
	if err := w.add(current); err != nil {
		return err
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		if err := w.add(current); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (w *watchWorker) add(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return nil
}

// relevant reports whether an event can change the documents of the collection.
func (w *watchWorker) relevant(event fsnotify.Event) bool {
	dir := filepath.Dir(event.Name)
	if dir == w.dir {
		_, ok := w.store.docID(filepath.Base(event.Name))
		return ok
	}
	// A directory on the way to the collection appeared or vanished.
	return event.Name == w.dir || strings.HasPrefix(w.dir, event.Name+string(filepath.Separator))
}

func (w *watchWorker) signal() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *watchWorker) handleWatcherError(err error) {
	w.store.config.Logger.Error("fsnotify error", "dir", w.dir, "error", err)
	if w.store.config.ErrorHandler != nil {
		w.store.config.ErrorHandler(err)
	}
}

// run is the main event loop for the watcher worker.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.store.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.store.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.store.config.Logger.Error("watcher panic", "error", err)
			}
		}
		if err != nil {
			w.failed <- err
		}
	}()
	defer w.store.trackListener(-1)
	defer w.watcher.Close()

	timer := time.NewTimer(w.store.config.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			w.signal()

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			w.store.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) && filepath.Dir(event.Name) != w.dir {
				// Directories created below a watched parent are not watched yet.
				if err := w.watchPath(); err != nil {
					w.handleWatcherError(err)
				}
			}
			timer.Reset(w.store.config.Debounce)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			w.handleWatcherError(wErr)
		}
	}
}

// listener re-evaluates a read each time its watcher signals. It is shared by
// the document and the query iterators.
type listener struct {
	ctx     context.Context
	cancel  context.CancelFunc
	worker  *watchWorker
	err     error
	started bool // the initial snapshot was delivered

	stopped  atomic.Bool
	stopOnce sync.Once
}

func newListener(ctx context.Context, col *collectionRef) *listener {
	l := &listener{}
	l.ctx, l.cancel = context.WithCancel(ctx)
	if col.err != nil {
		l.err = col.err
		return l
	}
	l.worker = newWatchWorker(col.store, col.dir)
	if err := l.worker.Start(l.ctx); err != nil {
		l.worker = nil
		l.err = fmt.Errorf("failed to start listener on %s: %w", col.path, err)
	}
	return l
}

// check reports why the listener can no longer deliver.
func (l *listener) check() error {
	if l.stopped.Load() {
		return core.ErrStopped
	}
	return l.err
}

// wait blocks until the next read is due.
func (l *listener) wait() error {
	if err := l.check(); err != nil {
		return err
	}
	select {
	case <-l.worker.notify:
		return nil
	case err := <-l.worker.failed:
		l.err = err
		return err
	case <-l.ctx.Done():
		if l.stopped.Load() {
			return core.ErrStopped
		}
		return l.ctx.Err()
	}
}

func (l *listener) stop() {
	l.stopOnce.Do(func() {
		l.stopped.Store(true)
		l.cancel()
		if l.worker != nil {
			_ = l.worker.Stop(context.Background())
		}
	})
}

// queryIterator yields a snapshot of the query result each time it changes.
type queryIterator struct {
	*listener
	q    query
	prev []*core.Snapshot
}

// newQueryIterator reads the initial result before returning, once the
// watcher runs, so that every later write is reported as a change.
func newQueryIterator(ctx context.Context, q query) *queryIterator {
	it := &queryIterator{listener: newListener(ctx, q.col), q: q}
	if it.err == nil {
		it.prev, it.err = q.Documents(it.ctx)
	}
	return it
}

func (it *queryIterator) Next() (*core.QuerySnapshot, error) {
	if !it.started {
		if err := it.check(); err != nil {
			return nil, err
		}
		it.started = true
		return &core.QuerySnapshot{Documents: it.prev, Changes: diff(nil, it.prev), ReadTime: time.Now()}, nil
	}
	for {
		if err := it.wait(); err != nil {
			return nil, err
		}
		docs, err := it.q.Documents(it.ctx)
		if err != nil {
			if it.stopped.Load() {
				return nil, core.ErrStopped
			}
			return nil, err
		}
		changes := diff(it.prev, docs)
		it.prev = docs
		if len(changes) > 0 {
			return &core.QuerySnapshot{Documents: docs, Changes: changes, ReadTime: time.Now()}, nil
		}
	}
}

func (it *queryIterator) Stop() { it.stop() }

// docIterator yields the state of one document each time it changes.
type docIterator struct {
	*listener
	doc  *documentRef
	prev *core.Snapshot
}

func newDocIterator(ctx context.Context, d *documentRef) *docIterator {
	it := &docIterator{listener: newListener(ctx, d.col), doc: d}
	if d.err != nil && it.err == nil {
		it.err = d.err
	}
	if it.err == nil {
		it.prev, it.err = d.Get(it.ctx)
	}
	return it
}

func (it *docIterator) Next() (*core.Snapshot, error) {
	if !it.started {
		if err := it.check(); err != nil {
			return nil, err
		}
		it.started = true
		return it.prev, nil
	}
	for {
		if err := it.wait(); err != nil {
			return nil, err
		}
		snap, err := it.doc.Get(it.ctx)
		if err != nil {
			if it.stopped.Load() {
				return nil, core.ErrStopped
			}
			return nil, err
		}
		changed := snap.Exists != it.prev.Exists || !reflect.DeepEqual(snap.Fields, it.prev.Fields)
		it.prev = snap
		if changed {
			return snap, nil
		}
	}
}

func (it *docIterator) Stop() { it.stop() }

// diff describes how prev became next: removals first, then additions, then
// modifications. Indices are positions in prev and next respectively.
func diff(prev, next []*core.Snapshot) []core.DocumentChange {
	oldIndex := make(map[string]int, len(prev))
	for i, d := range prev {
		oldIndex[d.ID] = i
	}
	newIndex := make(map[string]int, len(next))
	for i, d := range next {
		newIndex[d.ID] = i
	}

	var changes []core.DocumentChange
	for i, d := range prev {
		if _, ok := newIndex[d.ID]; !ok {
			changes = append(changes, core.DocumentChange{Type: core.ChangeRemoved, Doc: d, OldIndex: i, NewIndex: -1})
		}
	}
	for i, d := range next {
		if _, ok := oldIndex[d.ID]; !ok {
			changes = append(changes, core.DocumentChange{Type: core.ChangeAdded, Doc: d, OldIndex: -1, NewIndex: i})
		}
	}
	for i, d := range next {
		j, ok := oldIndex[d.ID]
		if !ok {
			continue
		}
		// A document that only moved because of other changes is not modified.
		if !reflect.DeepEqual(prev[j].Fields, d.Fields) {
			changes = append(changes, core.DocumentChange{Type: core.ChangeModified, Doc: d, OldIndex: j, NewIndex: i})
		}
	}
	return changes
}
