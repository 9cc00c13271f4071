// Package output writes the crawl report to files and renders it for the
// terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"charm.land/glamour/v2"

	"github.com/howtotalktogirlsatparties/dod-spend/search"
)

// WriteText writes the classic block format: a `title:` line, one URL per
// line, a blank line after each block. Titles follow the given order; URLs
// are sorted for deterministic files.
func WriteText(w io.Writer, report search.Report, order []string) error {
	for _, title := range order {
		results, ok := report[title]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s:\n", title); err != nil {
			return err
		}
		for _, r := range sortedResults(results) {
			if _, err := fmt.Fprintln(w, r.URL); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the report as indented JSON, inner lists sorted by URL.
func WriteJSON(w io.Writer, report search.Report) error {
	stable := make(search.Report, len(report))
	for title, results := range report {
		stable[title] = sortedResults(results)
	}

	data, err := json.MarshalIndent(stable, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteReport writes the report file in the requested format ("text" or
// "json").
func WriteReport(path string, report search.Report, order []string, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if format == "json" {
		err = WriteJSON(f, report)
	} else {
		err = WriteText(f, report, order)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Markdown builds a markdown rendition of the report for glamour.
func Markdown(report search.Report, order []string) string {
	var b strings.Builder
	b.WriteString("# PDF Search Report\n")

	for _, title := range order {
		results, ok := report[title]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", title)

		if len(results) == 0 {
			b.WriteString("_No PDFs found._\n")
			continue
		}
		for i, r := range sortedResults(results) {
			fmt.Fprintf(&b, "%d. <%s>\n", i+1, r.URL)
			if r.Referrer != "" {
				fmt.Fprintf(&b, "   - via <%s>\n", r.Referrer)
			}
		}
	}
	return b.String()
}

// RenderTerminal renders the report to w using glamour.
func RenderTerminal(w io.Writer, report search.Report, order []string, wordWrap int) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	rendered, err := renderer.Render(Markdown(report, order))
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err = io.WriteString(w, rendered)
	return err
}

func sortedResults(results []search.Result) []search.Result {
	out := make([]search.Result, len(results))
	copy(out, results)
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
