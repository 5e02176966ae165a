package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alpha1e0/kiwi/internal/safefile"
	"github.com/alpha1e0/kiwi/internal/storage"
)

// Format names an output renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatSARIF    Format = "sarif"
	FormatDatabase Format = "db"
)

// FormatFor picks the renderer from a file extension. Unknown extensions
// fall back to text.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".html", ".htm":
		return FormatHTML
	case ".md":
		return FormatMarkdown
	case ".sarif":
		return FormatSARIF
	case ".db":
		return FormatDatabase
	default:
		return FormatText
	}
}

func Render(f Format, r Report) ([]byte, error) {
	switch f {
	case FormatJSON:
		return RenderJSON(r)
	case FormatHTML:
		return []byte(RenderHTML(r)), nil
	case FormatMarkdown:
		return []byte(RenderMarkdown(r)), nil
	case FormatSARIF:
		return RenderSARIF(r)
	case FormatText:
		return []byte(RenderText(r)), nil
	default:
		return nil, fmt.Errorf("format %q cannot be rendered to bytes", f)
	}
}

// Write renders r to path in the format its extension implies. A .db path
// records the scan in the report database instead.
func Write(path string, r Report) error {
	format := FormatFor(path)
	if format == FormatDatabase {
		return writeDatabase(path, r)
	}
	return writeRendered(path, format, r)
}

func writeRendered(path string, f Format, r Report) error {
	b, err := Render(f, r)
	if err != nil {
		return err
	}
	if err := safefile.WriteFile(path, b); err != nil {
		return fmt.Errorf("write %s report: %w", f, err)
	}
	return nil
}

func writeDatabase(path string, r Report) error {
	db, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.RecordScan(r.Root, r.Scopes); err != nil {
		return err
	}
	if _, err := db.SaveIssues(r.Issues); err != nil {
		return err
	}
	return nil
}
