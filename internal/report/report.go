package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alpha1e0/kiwi/internal/analyzer"
	"github.com/alpha1e0/kiwi/internal/intake"
	"github.com/alpha1e0/kiwi/internal/issue"
	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/redact"
)

const ruleWidth = 80

// Report is everything a renderer needs from one scan.
type Report struct {
	Root        string            `json:"root"`
	Status      string            `json:"status"`
	Files       int               `json:"files"`
	Issues      []model.Issue     `json:"issues"`
	Statistics  issue.Statistics  `json:"statistics"`
	Scopes      intake.ScopeStats `json:"scopes"`
	Warnings    []string          `json:"warnings,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
	DurationMS  int64             `json:"duration_ms"`

	// LinkBase, when set, turns HTML file names into links below it
	// (for example an OpenGrok xref root).
	LinkBase string `json:"-"`
}

func FromResult(res analyzer.Result) Report {
	issues := res.Issues
	if issues == nil {
		issues = []model.Issue{}
	}
	return Report{
		Root:        res.Root,
		Status:      res.Status,
		Files:       res.Files,
		Issues:      issues,
		Statistics:  res.Statistics,
		Scopes:      res.Scopes,
		Warnings:    res.Warnings,
		GeneratedAt: res.CompletedAt,
		DurationMS:  res.Duration().Milliseconds(),
	}
}

// Redacted returns a copy with secrets masked in context lines and warnings.
func (r Report) Redacted() Report {
	out := r
	out.Warnings = redact.Strings(r.Warnings)
	out.Issues = make([]model.Issue, 0, len(r.Issues))
	for _, i := range r.Issues {
		if len(i.Context) > 0 {
			ctx := make([]model.ContextLine, len(i.Context))
			for n, l := range i.Context {
				ctx[n] = model.ContextLine{Line: l.Line, Text: redact.Text(l.Text)}
			}
			i.Context = ctx
		}
		out.Issues = append(out.Issues, i)
	}
	return out
}

// displayPath shows filename relative to the scan root when it lies below it.
func (r Report) displayPath(filename string) string {
	if r.Root == "" {
		return filename
	}
	rel, err := filepath.Rel(r.Root, filename)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return filename
	}
	return filepath.ToSlash(rel)
}

func banner() string {
	edge := "+" + strings.Repeat("-", ruleWidth-2) + "+\n"
	return edge +
		centered("Kiwi. Security tool for auditing source code.") +
		centered("https://github.com/alpha1e0/kiwi") +
		edge
}

func centered(s string) string {
	inner := ruleWidth - 2
	pad := inner - len(s)
	if pad < 0 {
		pad = 0
	}
	left := pad / 2
	return fmt.Sprintf("|%s%s%s|\n", strings.Repeat(" ", left), s, strings.Repeat(" ", pad-left))
}

// contextLines renders a window with the matched line marked by ": " and
// the rest by "- ", numbers right-aligned to the widest.
func contextLines(i model.Issue) []string {
	if len(i.Context) == 0 {
		return nil
	}
	width := len(fmt.Sprint(i.Context[len(i.Context)-1].Line))
	out := make([]string, 0, len(i.Context))
	for _, l := range i.Context {
		sep := "- "
		if l.Line == i.Line {
			sep = ": "
		}
		out = append(out, fmt.Sprintf("%*d%s%s", width, l.Line, sep, strings.TrimRight(l.Text, " \t\r\n")))
	}
	return out
}
