package search

import "sync"

// Source says how a PDF link entered the pipeline.
type Source string

const (
	SourceDirect  Source = "direct"  // provider result whose path was already .pdf
	SourceScraped Source = "scraped" // extracted from a result page's hyperlinks
)

// Result is one validated PDF link.
type Result struct {
	URL      string            `json:"url"`
	Source   Source            `json:"source"`
	Referrer string            `json:"referrer,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Report maps query titles to their validated results. Inner lists carry no
// ordering guarantee; sort at the presentation boundary.
type Report map[string][]Result

// Total returns the number of results across all queries.
func (r Report) Total() int {
	n := 0
	for _, results := range r {
		n += len(results)
	}
	return n
}

// ResultStore is a thread-safe collection of results, deduplicated by URL.
type ResultStore struct {
	mu      sync.Mutex
	results []Result
	seen    map[string]bool
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		seen: make(map[string]bool),
	}
}

// Add records r unless its URL is already present.
func (rs *ResultStore) Add(r Result) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.seen[r.URL] {
		return
	}
	rs.seen[r.URL] = true
	rs.results = append(rs.results, r)
}

func (rs *ResultStore) Count() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.results)
}

func (rs *ResultStore) Results() []Result {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]Result, len(rs.results))
	copy(out, rs.results)
	return out
}
