package source

import (
	"strings"

	"github.com/alpha1e0/kiwi/internal/model"
)

// MatchContext records one regex occurrence and the lines around it.
type MatchContext struct {
	Filename string
	Scope    string
	Line     int
	Pattern  string
	Lines    []model.ContextLine

	matchIdx int
	text     string
}

func NewMatchContext(filename string, pattern string, line int, lines []model.ContextLine) *MatchContext {
	mc := &MatchContext{
		Filename: filename,
		Line:     line,
		Pattern:  pattern,
		Lines:    lines,
		matchIdx: -1,
	}
	texts := make([]string, 0, len(lines))
	for i, l := range lines {
		if l.Line == line {
			mc.matchIdx = i
		}
		texts = append(texts, l.Text)
	}
	mc.text = strings.Join(texts, "\n")
	return mc
}

// MatchLine is the text of the matched line.
func (mc *MatchContext) MatchLine() string {
	if mc.matchIdx < 0 {
		return ""
	}
	return mc.Lines[mc.matchIdx].Text
}

// Text is the whole window joined by newlines.
func (mc *MatchContext) Text() string { return mc.text }

func (mc *MatchContext) Contains(keyword string) bool {
	return mc.matchIdx >= 0 && strings.Contains(mc.MatchLine(), keyword)
}

func (mc *MatchContext) ContextContains(keyword string) bool {
	return strings.Contains(mc.text, keyword)
}

// ContextLines narrows the window to radius lines either side of the match.
// The returned slice is a copy.
func (mc *MatchContext) ContextLines(radius int) []model.ContextLine {
	if mc.matchIdx < 0 {
		return nil
	}
	if radius < 0 {
		radius = 0
	}
	first := max(mc.matchIdx-radius, 0)
	last := min(mc.matchIdx+radius+1, len(mc.Lines))
	out := make([]model.ContextLine, last-first)
	copy(out, mc.Lines[first:last])
	return out
}
