package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/alpha1e0/kiwi/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

func RenderText(r Report) string {
	var b bytes.Buffer
	writeText(&b, r, palette{})
	return b.String()
}

// Console writes the text report to w, coloured when colour is true.
func Console(w io.Writer, r Report, colour bool) error {
	p := palette{}
	if colour {
		p = newPalette()
	}
	var b bytes.Buffer
	writeText(&b, r, p)
	_, err := w.Write(b.Bytes())
	return err
}

type palette struct {
	red, green, yellow, blue func(a ...interface{}) string
}

func newPalette() palette {
	mk := func(attr color.Attribute) func(a ...interface{}) string {
		c := color.New(attr)
		c.EnableColor()
		return c.SprintFunc()
	}
	return palette{
		red:    mk(color.FgRed),
		green:  mk(color.FgGreen),
		yellow: mk(color.FgYellow),
		blue:   mk(color.FgBlue),
	}
}

func paint(fn func(a ...interface{}) string, s string) string {
	if fn == nil {
		return s
	}
	return fn(s)
}

func writeText(b *bytes.Buffer, r Report, p palette) {
	coloured := p.red != nil
	if !coloured {
		b.WriteString(banner())
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "Scanning <%s> at %s\n\n\n", paint(p.red, r.Root), paint(p.red, r.GeneratedAt.Local().Format(timeLayout)))

	b.WriteString(paint(p.yellow, strings.Repeat("-", ruleWidth)+"\nFound security issues as follows:\n\n"))
	for _, i := range r.Issues {
		fmt.Fprintf(b, "[%s:%s]\n", paint(p.red, i.ID), paint(p.green, i.Name))
		fmt.Fprintf(b, "<Match:%s> <Severity:%s> <Confidence:%s>\n", paint(p.yellow, i.Pattern), i.Severity, i.Confidence)
		fmt.Fprintf(b, "@%s\n", paint(p.blue, i.Filename))
		for _, line := range contextLines(i) {
			if coloured && isMatchLine(line, i) {
				line = paint(p.yellow, line)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n\n")
	b.WriteString(paint(p.yellow, strings.Repeat("-", ruleWidth)+"\nStatistics information:\n"))
	for _, bucket := range r.Statistics {
		fmt.Fprintf(b, "%s: %d\n", bucket.Severity, bucket.Count)
	}
	if len(r.Scopes) > 0 {
		b.WriteString("\nScanned lines by scope:\n")
		for _, scope := range r.Scopes.Scopes() {
			fmt.Fprintf(b, "%s: %d\n", scope, r.Scopes[scope])
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + sanitizeInline(w) + "\n")
		}
	}
}

func isMatchLine(rendered string, i model.Issue) bool {
	return strings.HasPrefix(strings.TrimLeft(rendered, " "), fmt.Sprintf("%d: ", i.Line))
}

const maxInlineLen = 300

// sanitizeInline flattens s to one printable line for headers and lists.
func sanitizeInline(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r < 0x20 || r == 0x7f || r == utf8.RuneError:
		default:
			b.WriteRune(r)
		}
	}
	out := []rune(strings.TrimSpace(b.String()))
	if len(out) > maxInlineLen {
		return string(out[:maxInlineLen]) + "..."
	}
	return string(out)
}
