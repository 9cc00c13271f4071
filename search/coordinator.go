package search

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Query pairs a report title with the provider search text.
type Query struct {
	Title string
	Text  string
}

// Run executes every query concurrently, at most queryWorkers at a time, and
// aggregates their results by title. A failed query logs and contributes an
// empty list; it never aborts the run. Duplicate titles overwrite.
func Run(ctx context.Context, queries []Query, queryWorkers int, opts Options) Report {
	s := New(opts)
	o := &s.opts

	report := make(Report, len(queries))

	limit := queryWorkers
	if limit < 1 || limit > len(queries) {
		limit = len(queries)
	}
	if limit < 1 {
		limit = 1
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(limit)

	for _, q := range queries {
		g.Go(func() error {
			results, err := s.Run(ctx, q.Text)
			if err != nil {
				o.Logger.Error("query failed", "title", q.Title, "err", err)
				o.emit(Event{Type: EventError, Query: q.Text, Err: err})
				// Failed queries still finish; progress consumers rely on
				// exactly one done event per query.
				o.emit(Event{Type: EventDone, Query: q.Text})
				results = nil
			} else {
				o.Logger.Info("query complete", "title", q.Title, "found", len(results))
			}
			if results == nil {
				results = []Result{}
			}

			mu.Lock()
			report[q.Title] = results
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report
}
