package search

import (
	"context"
	"errors"
	"testing"

	"github.com/howtotalktogirlsatparties/dod-spend/cache"
)

func TestCoordinatorIsolatesFailedQueries(t *testing.T) {
	srv := newCrawlServer(t)
	provider := &stubProvider{
		urls: map[string][]string{"fy2024 budget": {srv.URL + "/doc.pdf"}},
		fail: map[string]error{"fy2025 budget": errors.New("upstream down")},
	}

	report := Run(context.Background(), []Query{
		{Title: "FY 2024", Text: "fy2024 budget"},
		{Title: "FY 2025", Text: "fy2025 budget"},
	}, 2, newTestOptions(provider, cache.NewMemoryStore()))

	if len(report) != 2 {
		t.Fatalf("report has %d entries, want 2", len(report))
	}
	failed, ok := report["FY 2025"]
	if !ok {
		t.Fatal("failed query missing from report")
	}
	if failed == nil {
		t.Error("failed query maps to nil, want empty slice")
	}
	if len(failed) != 0 {
		t.Errorf("failed query has %d results, want 0", len(failed))
	}
	if got := len(report["FY 2024"]); got != 1 {
		t.Errorf("healthy query has %d results, want 1", got)
	}
}

func TestCoordinatorSharesCacheAcrossQueries(t *testing.T) {
	srv := newCrawlServer(t)
	shared := srv.URL + "/doc.pdf"
	provider := &stubProvider{urls: map[string][]string{
		"fy2024 budget": {shared},
		"fy2025 budget": {shared},
	}}
	store := newCountingStore()

	report := Run(context.Background(), []Query{
		{Title: "FY 2024", Text: "fy2024 budget"},
		{Title: "FY 2025", Text: "fy2025 budget"},
	}, 2, newTestOptions(provider, store))

	if got := report.Total(); got != 1 {
		t.Errorf("total results = %d, want 1 for a shared url", got)
	}
	if n := store.claimCount(shared); n != 1 {
		t.Errorf("shared url claimed %d times, want 1", n)
	}
	if n := srv.hitCount("/doc.pdf"); n != 1 {
		t.Errorf("shared url saw %d requests, want 1", n)
	}
}

func TestCoordinatorEmptyQueries(t *testing.T) {
	report := Run(context.Background(), nil, 4, newTestOptions(&stubProvider{}, cache.NewMemoryStore()))
	if report == nil {
		t.Fatal("report is nil, want empty map")
	}
	if len(report) != 0 {
		t.Fatalf("report has %d entries, want 0", len(report))
	}
}

func TestReportTotal(t *testing.T) {
	r := Report{
		"a": {{URL: "http://x.test/1.pdf"}, {URL: "http://x.test/2.pdf"}},
		"b": {},
		"c": {{URL: "http://x.test/3.pdf"}},
	}
	if got := r.Total(); got != 3 {
		t.Errorf("Total() = %d, want 3", got)
	}
}
