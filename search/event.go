package search

// EventType tags pipeline progress events.
type EventType string

const (
	EventQuery      EventType = "query"      // provider call issued
	EventCandidates EventType = "candidates" // provider returned a batch
	EventFetch      EventType = "fetch"      // network work started for a URL
	EventCached     EventType = "cached"     // URL skipped, already processed
	EventPage       EventType = "page"       // HTML page fetched and scraped
	EventFound      EventType = "found"      // validated PDF recorded
	EventMiss       EventType = "miss"       // candidate failed validation
	EventError      EventType = "error"      // isolated failure
	EventDone       EventType = "done"       // query finished
)

// Event is emitted as the pipeline progresses, for logging and the TUI.
type Event struct {
	Type     EventType
	Query    string // the search text
	URL      string
	Referrer string // page the URL was scraped from, for scraped links
	Count    int    // batch/total sizes for candidates, page, done
	Err      error  // only for error events
}
