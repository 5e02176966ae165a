// Package source loads project files, indexes their lines and runs
// compiled patterns over them.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/alpha1e0/kiwi/internal/model"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileRead     = errors.New("file read error")
)

const (
	EncodingUTF8 = "utf-8"
	EncodingGBK  = "gbk"
)

type span struct {
	start int
	end   int
}

// File is one decoded source file with its line-offset index.
type File struct {
	filename    string
	scope       string
	content     string
	encoding    string
	undecodable bool
	lines       []span
}

// Load reads filename and decodes it. Content that is neither valid UTF-8
// nor GBK loads as an empty file flagged Undecodable.
func Load(filename string, scope string) (*File, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filename)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFileRead, filename, err)
	}

	content, encoding, ok := decode(raw)
	if !ok {
		f := New(filename, scope, "")
		f.undecodable = true
		f.encoding = ""
		return f, nil
	}
	f := New(filename, scope, content)
	f.encoding = encoding
	return f, nil
}

// New wraps in-memory content.
func New(filename string, scope string, content string) *File {
	return &File{
		filename: filename,
		scope:    scope,
		content:  content,
		encoding: EncodingUTF8,
		lines:    indexLines(content),
	}
}

func decode(raw []byte) (string, string, bool) {
	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8, true
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), simplifiedchinese.GBK.NewDecoder()))
	if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", "", false
	}
	return string(decoded), EncodingGBK, true
}

// indexLines partitions content into [start,end) spans. Every span but the
// last includes its newline; a trailing newline does not open a new line.
func indexLines(content string) []span {
	if content == "" {
		return nil
	}
	out := make([]span, 0, strings.Count(content, "\n")+1)
	start := 0
	for start < len(content) {
		idx := strings.IndexByte(content[start:], '\n')
		if idx < 0 {
			out = append(out, span{start: start, end: len(content)})
			break
		}
		end := start + idx + 1
		out = append(out, span{start: start, end: end})
		start = end
	}
	return out
}

func (f *File) Filename() string  { return f.filename }
func (f *File) Scope() string     { return f.scope }
func (f *File) Content() string   { return f.content }
func (f *File) Encoding() string  { return f.encoding }
func (f *File) Undecodable() bool { return f.undecodable }
func (f *File) LineCount() int    { return len(f.lines) }

// Line returns the text of the 1-based line n without its line terminator.
func (f *File) Line(n int) (string, bool) {
	if n < 1 || n > len(f.lines) {
		return "", false
	}
	s := f.lines[n-1]
	text := f.content[s.start:s.end]
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	return text, true
}

// ContextLines returns up to 2*radius+1 lines centred on lineno, clipped to
// the file. An out-of-range lineno yields nil.
func (f *File) ContextLines(lineno int, radius int) []model.ContextLine {
	if lineno < 1 || lineno > len(f.lines) {
		return nil
	}
	if radius < 0 {
		radius = 0
	}
	first := max(lineno-radius, 1)
	last := min(lineno+radius, len(f.lines))
	out := make([]model.ContextLine, 0, last-first+1)
	for n := first; n <= last; n++ {
		text, _ := f.Line(n)
		out = append(out, model.ContextLine{Line: n, Text: text})
	}
	return out
}

// lineAt maps a byte offset to its 1-based line.
func (f *File) lineAt(offset int) int {
	if len(f.lines) == 0 || offset < 0 {
		return 0
	}
	idx := sort.Search(len(f.lines), func(i int) bool {
		return f.lines[i].end > offset
	})
	if idx == len(f.lines) {
		// Empty match at end of content.
		idx = len(f.lines) - 1
	}
	return idx + 1
}

// Match runs every pattern over the content and returns one MatchContext per
// non-overlapping occurrence, in pattern order then offset order.
func (f *File) Match(patterns []*regexp.Regexp, radius int) []*MatchContext {
	if len(f.lines) == 0 {
		return nil
	}
	var out []*MatchContext
	for _, re := range patterns {
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(f.content, -1) {
			lineno := f.lineAt(loc[0])
			if lineno == 0 {
				continue
			}
			mc := NewMatchContext(f.filename, re.String(), lineno, f.ContextLines(lineno, radius))
			mc.Scope = f.scope
			out = append(out, mc)
		}
	}
	return out
}
