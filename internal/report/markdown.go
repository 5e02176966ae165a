package report

import (
	"bytes"
	"fmt"
	"strings"
)

func RenderMarkdown(r Report) string {
	var b bytes.Buffer

	b.WriteString("# Kiwi Security Scan\n\n")
	b.WriteString("## Summary\n\n")
	b.WriteString(fmt.Sprintf("- Root: `%s`\n", sanitizeInline(r.Root)))
	b.WriteString(fmt.Sprintf("- Generated: `%s`\n", r.GeneratedAt.Local().Format(timeLayout)))
	b.WriteString(fmt.Sprintf("- Status: `%s`, files: %d, duration: %d ms\n", r.Status, r.Files, r.DurationMS))
	b.WriteString(fmt.Sprintf("- Total issues: **%d**\n", len(r.Issues)))
	parts := make([]string, 0, len(r.Statistics))
	for _, bucket := range r.Statistics {
		parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(bucket.Severity.String()), bucket.Count))
	}
	b.WriteString("- Severity: " + strings.Join(parts, ", ") + "\n\n")

	if len(r.Scopes) > 0 {
		b.WriteString("## Scopes\n\n| Scope | Lines |\n|---|---|\n")
		for _, scope := range r.Scopes.Scopes() {
			b.WriteString(fmt.Sprintf("| %s | %d |\n", scope, r.Scopes[scope]))
		}
		b.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + sanitizeInline(w) + "\n")
		}
		b.WriteString("\n")
	}

	if len(r.Issues) == 0 {
		b.WriteString("## Issues\n\nNo issues found.\n")
		return b.String()
	}

	b.WriteString("## Issues\n\n")
	for _, i := range r.Issues {
		b.WriteString(fmt.Sprintf("### [%s] %s: %s\n\n", strings.ToUpper(i.Severity.String()), i.ID, sanitizeInline(i.Name)))
		loc := r.displayPath(i.Filename)
		if i.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, i.Line)
		}
		b.WriteString(fmt.Sprintf("- Location: `%s`\n", loc))
		b.WriteString(fmt.Sprintf("- Confidence: %s\n", i.Confidence))
		b.WriteString(fmt.Sprintf("- Pattern: `%s`\n", strings.ReplaceAll(i.Pattern, "`", "'")))
		for _, ref := range i.References {
			b.WriteString(fmt.Sprintf("- Reference: %s\n", ref))
		}
		if lines := contextLines(i); len(lines) > 0 {
			b.WriteString("\n```\n" + strings.Join(lines, "\n") + "\n```\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
