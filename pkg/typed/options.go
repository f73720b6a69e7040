package typed

import "github.com/aretw0/docket/pkg/core"

// applyOptions translates opts into query builder calls on base.
//
// Clauses are registered in the order the store requires: filters, then
// ordering with its cursors, then the limit. Cursors are attached only when
// at least one ordering was applied, otherwise they are dropped. It reports
// false when opts add nothing, in which case base should be used as is.
func applyOptions(opts *core.FetchOptions, base core.Query) (core.Query, bool) {
	if opts == nil {
		return nil, false
	}

	var q core.Query
	current := func() core.Query {
		if q == nil {
			return base
		}
		return q
	}

	for _, f := range opts.Where {
		q = current().Where(f.Field, f.Op, f.Value)
	}

	sorted := false
	for _, s := range opts.OrderBy {
		q = current().OrderBy(s.Field, s.Direction)
		sorted = true
	}

	if sorted {
		if len(opts.StartAt) > 0 {
			q = q.StartAt(opts.StartAt...)
		}
		if len(opts.StartAfter) > 0 {
			q = q.StartAfter(opts.StartAfter...)
		}
		if len(opts.EndAt) > 0 {
			q = q.EndAt(opts.EndAt...)
		}
		if len(opts.EndBefore) > 0 {
			q = q.EndBefore(opts.EndBefore...)
		}
	}

	if opts.Limit > 0 {
		q = current().Limit(opts.Limit)
	}

	return q, q != nil
}
