package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"charm.land/log/v2"
	"golang.org/x/sync/semaphore"

	"github.com/howtotalktogirlsatparties/dod-spend/cache"
	"github.com/howtotalktogirlsatparties/dod-spend/fetch"
	"github.com/howtotalktogirlsatparties/dod-spend/pdf"
)

// Options wires a Searcher's collaborators. The Gate bounds simultaneous
// network operations across every searcher sharing it; goroutines themselves
// are unbounded, only network occupancy is budgeted.
type Options struct {
	Provider   Provider
	Session    *fetch.Session
	Cache      cache.Store
	Validator  *pdf.Validator
	MaxResults int
	Gate       *semaphore.Weighted
	OnEvent    func(Event) // optional progress callback
	Logger     *log.Logger
}

func (o *Options) emit(e Event) {
	if o.OnEvent != nil {
		o.OnEvent(e)
	}
}

// Searcher turns one text query into validated PDF links.
type Searcher struct {
	opts Options
}

func New(opts Options) *Searcher {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if opts.Gate == nil {
		opts.Gate = semaphore.NewWeighted(8)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Searcher{opts: opts}
}

// Run asks the provider for candidates and processes them concurrently.
// Per-URL failures are isolated and absorbed; only a provider failure
// surfaces as an error, and the caller decides whether that aborts anything.
func (s *Searcher) Run(ctx context.Context, query string) ([]Result, error) {
	o := &s.opts

	o.emit(Event{Type: EventQuery, Query: query})
	candidates, err := o.Provider.Search(ctx, query, o.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	o.emit(Event{Type: EventCandidates, Query: query, Count: len(candidates)})

	store := NewResultStore()
	var wg sync.WaitGroup
	for _, candidate := range candidates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.process(ctx, query, candidate, store)
		}()
	}
	wg.Wait()

	results := store.Results()
	o.emit(Event{Type: EventDone, Query: query, Count: len(results)})
	return results, nil
}

// process classifies one candidate: already processed, direct PDF, or HTML
// page to scrape. The cache claim makes the URL ours; losers return without
// any network traffic.
func (s *Searcher) process(ctx context.Context, query, candidate string, store *ResultStore) {
	o := &s.opts

	if !o.Cache.Add(candidate) {
		o.emit(Event{Type: EventCached, Query: query, URL: candidate})
		return
	}

	if pdf.HasPDFPath(candidate) {
		s.validate(ctx, query, candidate, SourceDirect, "", store)
		return
	}

	links := s.scrapePage(ctx, query, candidate)

	var wg sync.WaitGroup
	for _, link := range links {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !o.Cache.Add(link) {
				o.emit(Event{Type: EventCached, Query: query, URL: link})
				return
			}
			s.validate(ctx, query, link, SourceScraped, candidate, store)
		}()
	}
	wg.Wait()
}

// validate runs the PDF check under a gate slot and records hits.
func (s *Searcher) validate(ctx context.Context, query, url string, source Source, referrer string, store *ResultStore) {
	o := &s.opts

	o.emit(Event{Type: EventFetch, Query: query, URL: url})
	if err := o.Gate.Acquire(ctx, 1); err != nil {
		o.emit(Event{Type: EventError, Query: query, URL: url, Err: err})
		return
	}
	meta, ok := o.Validator.IsPDF(ctx, url)
	o.Gate.Release(1)

	if !ok {
		o.emit(Event{Type: EventMiss, Query: query, URL: url})
		return
	}

	store.Add(Result{URL: url, Source: source, Referrer: referrer, Meta: meta})
	o.emit(Event{Type: EventFound, Query: query, URL: url, Referrer: referrer})
}

// scrapePage fetches an HTML candidate and extracts its PDF links. The gate
// slot is released before the extracted links are validated, so a page
// cannot starve its own children.
func (s *Searcher) scrapePage(ctx context.Context, query, pageURL string) []string {
	o := &s.opts

	o.emit(Event{Type: EventFetch, Query: query, URL: pageURL})
	if err := o.Gate.Acquire(ctx, 1); err != nil {
		o.emit(Event{Type: EventError, Query: query, URL: pageURL, Err: err})
		return nil
	}
	defer o.Gate.Release(1)

	resp, err := o.Session.Get(ctx, pageURL)
	if err != nil {
		o.Logger.Debug("page fetch failed", "url", pageURL, "err", err)
		o.emit(Event{Type: EventError, Query: query, URL: pageURL, Err: err})
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		o.Logger.Debug("page rejected", "url", pageURL, "status", resp.StatusCode)
		o.emit(Event{Type: EventError, Query: query, URL: pageURL,
			Err: fmt.Errorf("status %d", resp.StatusCode)})
		return nil
	}

	// Resolve against the final URL so redirected pages keep their links.
	base := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}

	links := pdf.ExtractLinks(base, resp.Body)
	o.emit(Event{Type: EventPage, Query: query, URL: pageURL, Count: len(links)})
	return links
}
