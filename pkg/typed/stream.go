package typed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/docket/pkg/core"
)

// Stream is a live, push-based sequence of values produced by a store listener.
//
// Values are delivered on C without buffering. The stream ends when Close is
// called, when the context it was opened with is cancelled, or when the store
// reports an error; C is then closed and Err reports the failure, if any.
type Stream[V any] struct {
	c      chan V
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// C returns the channel the values are delivered on.
func (s *Stream[V]) C() <-chan V { return s.c }

// Done is closed once the listener has been released.
func (s *Stream[V]) Done() <-chan struct{} { return s.done }

// Err returns the store error that ended the stream, or nil if it was closed
// by the caller.
func (s *Stream[V]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close unsubscribes and waits until the underlying listener is released.
// It is safe to call more than once.
func (s *Stream[V]) Close() {
	s.cancel()
	<-s.done
}

func (s *Stream[V]) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// source pulls the next value from a store iterator. A false keep result
// drops the value without ending the stream.
type source[V any] struct {
	next func() (value V, keep bool, err error)
	stop func()
}

// openStream starts the listener produced by open and pumps its values into a
// new Stream until it ends.
func openStream[V any](ctx context.Context, logger *slog.Logger, name string, open func(ctx context.Context) source[V]) *Stream[V] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[V]{
		c:      make(chan V),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	src := open(ctx)
	logger.Debug("subscription opened", "listener", name)

	lifecycle.Go(ctx, func(context.Context) error {
		defer close(s.done)
		defer close(s.c)
		defer src.stop()

		for {
			v, keep, err := src.next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, core.ErrStopped) {
					logger.Debug("subscription closed", "listener", name)
					return nil
				}
				logger.Error("subscription failed", "listener", name, "error", err)
				s.fail(err)
				cancel()
				return err
			}
			if !keep {
				continue
			}
			select {
			case s.c <- v:
			case <-ctx.Done():
				logger.Debug("subscription closed", "listener", name)
				return nil
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		s.fail(fmt.Errorf("listener %s panic: %w", name, err))
		logger.Error("subscription panic", "listener", name, "error", err)
	}))

	return s
}
