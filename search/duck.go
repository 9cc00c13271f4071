package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"charm.land/log/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/howtotalktogirlsatparties/dod-spend/fetch"
)

const duckEndpoint = "https://html.duckduckgo.com/html/"

// DuckProvider scrapes the DuckDuckGo HTML interface. Its requests go
// through the shared session, so provider traffic obeys the same rate limit
// and retry policy as the crawl itself.
type DuckProvider struct {
	session  *fetch.Session
	endpoint string
	logger   *log.Logger
}

func NewDuckProvider(session *fetch.Session, logger *log.Logger) *DuckProvider {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &DuckProvider{session: session, endpoint: duckEndpoint, logger: logger}
}

func (d *DuckProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	resp, err := d.session.Get(ctx, d.endpoint+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo search: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: parse results: %w", err)
	}

	var urls []string
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		if link := unwrapDuckRedirect(href); link != "" {
			urls = append(urls, link)
		}
		return len(urls) < limit
	})

	d.logger.Debug("duckduckgo search done", "query", query, "results", len(urls))
	return urls, nil
}

// unwrapDuckRedirect extracts the destination from DuckDuckGo's /l/?uddg=
// redirect links. Plain absolute links pass through unchanged.
func unwrapDuckRedirect(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if u.Path == "/l" || strings.HasPrefix(u.Path, "/l/") {
		return u.Query().Get("uddg")
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}
