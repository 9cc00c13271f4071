package pdf

import (
	"strings"
	"testing"
)

func TestExtractLinksResolvesAndFilters(t *testing.T) {
	html := `<html><body>
		<a href="report.pdf">annual report</a>
		<a href="/files/Budget.PDF">budget</a>
		<a href="https://other.test/x.pdf?dl=1">offsite</a>
		<a href="summary.pdf#page=2">summary</a>
		<a href="page.html">another page</a>
		<a href="ftp://files.test/doc.pdf">ftp</a>
		<a href="mailto:contact@a.test">mail</a>
		<a href="javascript:void(0)">js</a>
		<a href="#section">fragment</a>
		<a href="report.pdf">duplicate</a>
	</body></html>`

	got := ExtractLinks("http://a.test/docs/page.html", strings.NewReader(html))
	want := []string{
		"http://a.test/docs/report.pdf",
		"http://a.test/files/Budget.PDF",
		"https://other.test/x.pdf?dl=1",
		"http://a.test/docs/summary.pdf",
	}

	if len(got) != len(want) {
		t.Fatalf("got %d links %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("link[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractLinksIgnoresQueryStringPDFs(t *testing.T) {
	html := `<a href="/download?file=doc.pdf">download</a>`
	if got := ExtractLinks("http://a.test/", strings.NewReader(html)); len(got) != 0 {
		t.Fatalf("got %v, want no links", got)
	}
}

func TestExtractLinksNeverPanicsOnGarbage(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"plain text", "not html at all"},
		{"unclosed tags", `<html><body><a href="x.pdf">doc<div><p>`},
		{"nested garbage", `<a <a href="y.pdf"><<>>`},
		{"binary", "\x00\x01\x02\xff\xfe\x89PNG\r\n"},
		{"truncated attr", `<a href="z.pd`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractLinks("http://a.test/", strings.NewReader(tt.input))
			for _, link := range got {
				if !HasPDFPath(link) {
					t.Errorf("returned non-pdf link %q", link)
				}
				if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
					t.Errorf("returned non-absolute link %q", link)
				}
			}
		})
	}
}

func TestExtractLinksBadBaseURL(t *testing.T) {
	html := `<a href="doc.pdf">doc</a>`
	if got := ExtractLinks("://not a url", strings.NewReader(html)); got != nil {
		t.Fatalf("got %v, want nil for unparseable base", got)
	}
}

func TestHasPDFPath(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://a.test/doc.pdf", true},
		{"http://a.test/DOC.PDF", true},
		{"http://a.test/doc.pdf?dl=1", true},
		{"http://a.test/doc.pdf#page=3", true},
		{"http://a.test/download?file=doc.pdf", false},
		{"http://a.test/page.html", false},
		{"http://a.test/pdf", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		if got := HasPDFPath(tt.url); got != tt.want {
			t.Errorf("HasPDFPath(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
