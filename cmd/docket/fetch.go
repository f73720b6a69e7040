package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/docket/pkg/core"
	"github.com/aretw0/docket/pkg/typed"
)

// queryFlags are the flags shared by fetch and watch.
type queryFlags struct {
	where      []string
	order      []string
	limit      int
	startAt    string
	startAfter string
	endAt      string
	endBefore  string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayVar(&q.where, "where", nil, `Filter "field op value", repeatable (ops: < <= == > >= != in not-in array-contains array-contains-any)`)
	f.StringArrayVar(&q.order, "order", nil, "Sort field, optionally field:desc, repeatable")
	f.IntVar(&q.limit, "limit", 0, "Maximum number of documents (0 for all)")
	f.StringVar(&q.startAt, "start-at", "", "Cursor: comma separated order values to start at")
	f.StringVar(&q.startAfter, "start-after", "", "Cursor: comma separated order values to start after")
	f.StringVar(&q.endAt, "end-at", "", "Cursor: comma separated order values to end at")
	f.StringVar(&q.endBefore, "end-before", "", "Cursor: comma separated order values to end before")
}

func (q *queryFlags) options() (*core.FetchOptions, error) {
	if q.limit < 0 {
		return nil, fmt.Errorf("limit must not be negative")
	}
	opts := &core.FetchOptions{
		Limit:      q.limit,
		StartAt:    parseValues(q.startAt),
		StartAfter: parseValues(q.startAfter),
		EndAt:      parseValues(q.endAt),
		EndBefore:  parseValues(q.endBefore),
	}
	for _, w := range q.where {
		filter, err := parseFilter(w)
		if err != nil {
			return nil, err
		}
		opts.Where = append(opts.Where, filter)
	}
	for _, o := range q.order {
		sort, err := parseSort(o)
		if err != nil {
			return nil, err
		}
		opts.OrderBy = append(opts.OrderBy, sort)
	}
	return opts, nil
}

func newFetchCmd(a *app) *cobra.Command {
	var (
		q     queryFlags
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Query documents",
		Long: `Print the documents matching a query, one JSON line each.
With --watch the full result is printed again, after an empty line, every time it changes.`,
		Example: `  docket fetch -c users --where "age >= 18" --order age:desc --limit 10
  docket fetch -c users --order name --start-after Ada`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := q.options()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			repo, factory, err := a.documents(ctx)
			if err != nil {
				return err
			}
			defer factory.Close()
			out := newPrinter(cmd.OutOrStdout())

			emit := func(docs []*typed.Document) error {
				for _, doc := range docs {
					if err := out.document(doc); err != nil {
						return err
					}
				}
				return nil
			}

			if !watch {
				docs, err := repo.List(ctx, opts)
				if err != nil {
					return fmt.Errorf("failed to fetch documents: %w", err)
				}
				return emit(docs)
			}

			ctx, stop := interruptible(ctx)
			defer stop()
			first := true
			return drain(repo.Fetch(ctx, opts), func(docs []*typed.Document) error {
				if !first {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				first = false
				return emit(docs)
			})
		},
	}
	q.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep printing the result as it changes")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		q     queryFlags
		kinds []string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream document changes of a query",
		Long: `Print one JSON line per document change until interrupted. The first batch
reports every matching document as added.`,
		Example: `  docket watch -c orders --where "status == open" --kind added --kind removed`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := q.options()
			if err != nil {
				return err
			}
			types := make([]core.ChangeType, 0, len(kinds))
			for _, k := range kinds {
				t, ok := core.ParseChangeType(k)
				if !ok {
					return fmt.Errorf("kind must be added, modified or removed, got %q", k)
				}
				types = append(types, t)
			}

			ctx, stop := interruptible(cmd.Context())
			defer stop()
			repo, factory, err := a.documents(ctx)
			if err != nil {
				return err
			}
			defer factory.Close()
			out := newPrinter(cmd.OutOrStdout())

			return drain(repo.FetchSnapshots(ctx, opts, types...), func(batch []typed.Change[typed.Document, *typed.Document]) error {
				for _, c := range batch {
					if err := out.change(c); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	q.register(cmd)
	cmd.Flags().StringArrayVar(&kinds, "kind", nil, "Only report this change kind (added, modified, removed), repeatable")
	return cmd
}

// interruptible ends ctx on SIGINT or SIGTERM.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// drain hands every value of s to fn until the stream ends. An interrupted
// stream is not an error.
func drain[V any](s *typed.Stream[V], fn func(V) error) error {
	defer s.Close()
	for v := range s.C() {
		if err := fn(v); err != nil {
			return err
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("listener failed: %w", err)
	}
	return nil
}
