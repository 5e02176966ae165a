package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alpha1e0/kiwi/internal/intake"
	"github.com/alpha1e0/kiwi/internal/issue"
	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/storage"
)

func sampleReport() Report {
	issues := []model.Issue{
		{
			ID:         "PY_CMD_INJECT_0001",
			Name:       "command injection",
			Scope:      "python",
			Severity:   model.High,
			Confidence: model.Medium,
			References: []string{"https://cwe.mitre.org/data/definitions/78.html"},
			Pattern:    `os\.system`,
			Filename:   "/src/app/run.py",
			Line:       9,
			Context: []model.ContextLine{
				{Line: 8, Text: "cmd = request.args['c']"},
				{Line: 9, Text: "os.system(cmd)  "},
				{Line: 10, Text: "token = 'abcdefghijklmnopqrstuvwxyz'"},
			},
		},
		{
			ID:         issue.SensitiveFileID,
			Name:       issue.SensitiveFileName,
			Severity:   model.Low,
			Confidence: model.Low,
			Pattern:    "id_rsa",
			Filename:   "/src/keys/id_rsa",
		},
	}
	return Report{
		Root:        "/src",
		Status:      "success",
		Files:       2,
		Issues:      issues,
		Statistics:  issue.Summarize(issues),
		Scopes:      intake.ScopeStats{"python": 10},
		GeneratedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		DurationMS:  42,
	}
}

func TestRenderText_Layout(t *testing.T) {
	out := RenderText(sampleReport())
	for _, want := range []string{
		"Kiwi. Security tool for auditing source code.",
		"Scanning </src> at ",
		strings.Repeat("-", 80) + "\nFound security issues as follows:",
		"[PY_CMD_INJECT_0001:command injection]",
		`<Match:os\.system> <Severity:High> <Confidence:Medium>`,
		"@/src/app/run.py",
		" 8- cmd = request.args['c']",
		" 9: os.system(cmd)\n",
		"10- token",
		"[SENSITIVE_FILE:Sensitive file]",
		"Statistics information:",
		"High: 1",
		"Low: 1",
		"python: 10",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in text report:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatal("plain text report must not carry colour codes")
	}
}

func TestConsole_Colour(t *testing.T) {
	var plain, coloured strings.Builder
	if err := Console(&plain, sampleReport(), false); err != nil {
		t.Fatal(err)
	}
	if err := Console(&coloured, sampleReport(), true); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatal("expected no colour codes when colour is off")
	}
	if !strings.Contains(coloured.String(), "\x1b[") {
		t.Fatal("expected colour codes when colour is on")
	}
}

func TestRenderJSON(t *testing.T) {
	b, err := RenderJSON(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	var back struct {
		Root       string         `json:"root"`
		Issues     []model.Issue  `json:"issues"`
		Statistics []issue.Bucket `json:"statistics"`
		Scopes     map[string]int `json:"scopes"`
	}
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Root != "/src" || len(back.Issues) != 2 || back.Issues[0].Severity != model.High {
		t.Fatalf("unexpected json report: %+v", back)
	}
	if len(back.Statistics) != 4 || back.Statistics[0].Severity != model.High {
		t.Fatalf("expected ordered statistics, got %+v", back.Statistics)
	}
	if strings.Contains(string(b), "link_base") || strings.Contains(string(b), "LinkBase") {
		t.Fatal("link base must not be serialized")
	}
}

func TestRenderHTML(t *testing.T) {
	r := sampleReport()
	r.Issues[0].Context[1].Text = "os.system(\"<b>\" + cmd) " + strings.Repeat("x", 200)
	out := RenderHTML(r)

	if !strings.Contains(out, "&lt;b&gt;") || strings.Contains(out, "\"<b>\"") {
		t.Fatal("expected context to be escaped")
	}
	if !strings.Contains(out, "......") {
		t.Fatal("expected long context line to be truncated")
	}
	if !strings.Contains(out, "<code>app/run.py:9</code>") {
		t.Fatalf("expected relative location without link base")
	}

	r.LinkBase = "http://grok.local/xref/"
	out = RenderHTML(r)
	if !strings.Contains(out, `href="http://grok.local/xref/src/app/run.py#9"`) {
		t.Fatalf("expected OpenGrok link in html:\n%s", out)
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown(sampleReport())
	for _, want := range []string{"# Kiwi Security Scan", "### [HIGH] PY_CMD_INJECT_0001", "`app/run.py:9`", "| python | 10 |"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in markdown:\n%s", want, out)
		}
	}
	if got := RenderMarkdown(Report{}); !strings.Contains(got, "No issues found.") {
		t.Fatalf("expected empty marker, got:\n%s", got)
	}
}

func TestRenderSARIF(t *testing.T) {
	b, err := RenderSARIF(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	var log sarifLog
	if err := json.Unmarshal(b, &log); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != "kiwi" || len(run.Tool.Driver.Rules) != 2 {
		t.Fatalf("unexpected driver: %+v", run.Tool.Driver)
	}
	if run.Tool.Driver.Rules[0].HelpURI == "" {
		t.Fatal("expected helpUri from references")
	}
	first := run.Results[0]
	if first.Level != "error" || first.Locations[0].PhysicalLocation.Region.StartLine != 9 {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if first.Locations[0].PhysicalLocation.ArtifactLocation.URI != "app/run.py" {
		t.Fatalf("unexpected uri %q", first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	}
	second := run.Results[1]
	if second.Level != "note" || second.Locations[0].PhysicalLocation.Region != nil {
		t.Fatalf("sensitive file result should be a note without region: %+v", second)
	}
}

func TestRedacted(t *testing.T) {
	r := sampleReport()
	red := r.Redacted()
	if strings.Contains(red.Issues[0].Context[2].Text, "abcdefghijklmnopqrstuvwxyz") {
		t.Fatalf("expected token redacted, got %q", red.Issues[0].Context[2].Text)
	}
	if !strings.Contains(r.Issues[0].Context[2].Text, "abcdefghijklmnopqrstuvwxyz") {
		t.Fatal("Redacted must not modify the original report")
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"out.txt":      FormatText,
		"out.JSON":     FormatJSON,
		"out.htm":      FormatHTML,
		"out.html":     FormatHTML,
		"out.md":       FormatMarkdown,
		"out.sarif":    FormatSARIF,
		"out.db":       FormatDatabase,
		"out.whatever": FormatText,
		"noext":        FormatText,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Fatalf("FormatFor(%q)=%s want %s", path, got, want)
		}
	}
}

func TestWrite_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport()
	for _, name := range []string{"r.txt", "r.json", "r.html", "r.md", "r.sarif"} {
		path := filepath.Join(dir, name)
		if err := Write(path, r); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
		b, err := os.ReadFile(path)
		if err != nil || len(b) == 0 {
			t.Fatalf("expected %s to be written: %v", name, err)
		}
	}
	b, _ := os.ReadFile(filepath.Join(dir, "r.json"))
	if !json.Valid(b) {
		t.Fatal("json report is not valid json")
	}
}

func TestWrite_Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiwi.db")
	if err := Write(path, sampleReport()); err != nil {
		t.Fatalf("Write db: %v", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	records, err := db.Issues()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	scans, err := db.Scans()
	if err != nil || len(scans) != 1 || scans[0].TotalLines != 10 {
		t.Fatalf("unexpected scans %+v err=%v", scans, err)
	}
}

func TestSanitizeInline(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  plain  ", "plain"},
		{"two\nlines\tand tab", "two lines and tab"},
		{"bell\x07 and del\x7f", "bell and del"},
		{strings.Repeat("é", 310), strings.Repeat("é", 300) + "..."},
	}
	for _, tt := range tests {
		if got := sanitizeInline(tt.in); got != tt.want {
			t.Fatalf("sanitizeInline(%q)=%q want %q", tt.in, got, tt.want)
		}
	}
}
