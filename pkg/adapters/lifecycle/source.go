package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/docket/pkg/core"
	"github.com/aretw0/docket/pkg/typed"
)

type changeSource[T any, PT core.Model[T]] struct {
	stream *typed.Stream[[]typed.Change[T, PT]]
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits one event per document change.
// It bridges a repository change stream (Repository.FetchSnapshots) to the
// generic lifecycle Event interface. The source owns the stream and closes it
// when its context ends.
func NewSource[T any, PT core.Model[T]](stream *typed.Stream[[]typed.Change[T, PT]]) lifecycle.Source {
	return &changeSource[T, PT]{
		stream: stream,
		out:    make(chan lifecycle.Event),
	}
}

func (s *changeSource[T, PT]) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *changeSource[T, PT]) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		defer s.stream.Close()
		for {
			select {
			case <-ctx.Done():
				return nil
			case batch, ok := <-s.stream.C():
				if !ok {
					return s.stream.Err()
				}
				// typed.Change implements lifecycle.Event (has String())
				for _, change := range batch {
					select {
					case s.out <- change:
					case <-ctx.Done():
						return nil
					}
				}
			}
		}
	})
	return nil
}
