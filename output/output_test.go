package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/howtotalktogirlsatparties/dod-spend/search"
)

func testReport() (search.Report, []string) {
	report := search.Report{
		"FY 2024 DoD Budget PDFs": {
			{URL: "https://b.mil/budget.pdf", Source: search.SourceDirect},
			{URL: "https://a.mil/overview.pdf", Source: search.SourceScraped, Referrer: "https://a.mil/docs"},
		},
		"FY 2025 DoD Budget PDFs": {},
	}
	order := []string{"FY 2024 DoD Budget PDFs", "FY 2025 DoD Budget PDFs"}
	return report, order
}

func TestWriteTextBlockFormat(t *testing.T) {
	report, order := testReport()

	var buf bytes.Buffer
	if err := WriteText(&buf, report, order); err != nil {
		t.Fatalf("write text: %v", err)
	}

	want := "FY 2024 DoD Budget PDFs:\n" +
		"https://a.mil/overview.pdf\n" +
		"https://b.mil/budget.pdf\n" +
		"\n" +
		"FY 2025 DoD Budget PDFs:\n" +
		"\n"
	if got := buf.String(); got != want {
		t.Errorf("text output mismatch\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriteTextSkipsUnknownTitles(t *testing.T) {
	report, _ := testReport()

	var buf bytes.Buffer
	if err := WriteText(&buf, report, []string{"nonexistent"}); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("got output %q for a title not in the report", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	report, _ := testReport()

	var buf bytes.Buffer
	if err := WriteJSON(&buf, report); err != nil {
		t.Fatalf("write json: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "{\n  \"") {
		t.Errorf("output is not two-space indented: %q", buf.String()[:20])
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("output missing trailing newline")
	}

	var parsed search.Report
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	results := parsed["FY 2024 DoD Budget PDFs"]
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].URL != "https://a.mil/overview.pdf" {
		t.Errorf("results not sorted by URL: first is %q", results[0].URL)
	}
	if results[1].Source != search.SourceDirect {
		t.Errorf("source lost in round trip: %q", results[1].Source)
	}
}

func TestMarkdown(t *testing.T) {
	report, order := testReport()

	md := Markdown(report, order)

	for _, want := range []string{
		"# PDF Search Report",
		"## FY 2024 DoD Budget PDFs",
		"1. <https://a.mil/overview.pdf>",
		"   - via <https://a.mil/docs>",
		"2. <https://b.mil/budget.pdf>",
		"## FY 2025 DoD Budget PDFs",
		"_No PDFs found._",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestWriteReportFile(t *testing.T) {
	report, order := testReport()
	path := filepath.Join(t.TempDir(), "report.txt")

	if err := WriteReport(path, report, order, "text"); err != nil {
		t.Fatalf("write report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "FY 2024 DoD Budget PDFs:\n") {
		t.Errorf("unexpected file contents:\n%s", data)
	}
}

func TestWriteReportJSONFormat(t *testing.T) {
	report, order := testReport()
	path := filepath.Join(t.TempDir(), "report.json")

	if err := WriteReport(path, report, order, "json"); err != nil {
		t.Fatalf("write report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var parsed search.Report
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("report file is not valid JSON: %v", err)
	}
}

func TestRenderTerminal(t *testing.T) {
	report, order := testReport()

	var buf bytes.Buffer
	if err := RenderTerminal(&buf, report, order, 80); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("rendered report is empty")
	}
}
