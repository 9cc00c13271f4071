// Package pdf finds and validates links to PDF documents.
package pdf

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HasPDFPath reports whether the URL's path component ends in ".pdf",
// case-insensitively. Query strings and fragments are ignored, so
// "/doc.pdf?dl=1" matches and "/dl?file=doc.pdf" does not.
func HasPDFPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

// ExtractLinks parses an HTML document and returns every hyperlink target
// that resolves to an http(s) URL with a ".pdf" path, absolute and
// deduplicated, in first-seen order. Parsing is lenient: malformed or
// non-HTML input yields an empty result, never an error.
func ExtractLinks(baseURL string, r io.Reader) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}

		u, err := url.Parse(href)
		if err != nil {
			return
		}

		resolved := base.ResolveReference(u)
		resolved.Fragment = ""
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !strings.HasSuffix(strings.ToLower(resolved.Path), ".pdf") {
			return
		}

		link := resolved.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return links
}
