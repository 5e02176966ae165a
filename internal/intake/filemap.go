package intake

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// HeaderLen is how much of a file content sniffing reads.
const HeaderLen = 1024

// ScopePattern maps a regex to a scope name.
type ScopePattern struct {
	Pattern *regexp.Regexp
	Scope   string
}

// FileMap holds the ordered classification tables. Extension patterns are
// tested against the slash-separated relative path, metainfo patterns
// against the file header. The first match wins.
type FileMap struct {
	Extensions []ScopePattern
	Metainfos  []ScopePattern
}

type rawScopePattern struct {
	Pattern string `yaml:"pattern"`
	Scope   string `yaml:"scope"`
}

type rawFileMap struct {
	Extensions []rawScopePattern `yaml:"extensions"`
	Metainfos  []rawScopePattern `yaml:"metainfos"`
}

var defaultFileMap = rawFileMap{
	Extensions: []rawScopePattern{
		{Pattern: `(?i)\.py[w]?$`, Scope: "python"},
		{Pattern: `(?i)\.(php[345]?|phtml|inc)$`, Scope: "php"},
		{Pattern: `(?i)\.(js|jsx|mjs|cjs|ts|tsx)$`, Scope: "javascript"},
		{Pattern: `(?i)\.(java|jsp|jspx)$`, Scope: "java"},
		{Pattern: `\.go$`, Scope: "go"},
		{Pattern: `(?i)\.(sh|bash|zsh|ksh)$`, Scope: "shell"},
		{Pattern: `(?i)\.(c|h|cc|cpp|cxx|hpp)$`, Scope: "c"},
		{Pattern: `(?i)\.rb$`, Scope: "ruby"},
	},
	Metainfos: []rawScopePattern{
		{Pattern: `^#!.*\bpython[0-9.]*\b`, Scope: "python"},
		{Pattern: `^#!.*\bphp\b`, Scope: "php"},
		{Pattern: `^\s*<\?php`, Scope: "php"},
		{Pattern: `^#!.*\bnode\b`, Scope: "javascript"},
		{Pattern: `^#!.*\b(ba|z|k)?sh\b`, Scope: "shell"},
		{Pattern: `^#!.*\bruby\b`, Scope: "ruby"},
	},
}

func DefaultFileMap() *FileMap {
	fm, err := compileFileMap(defaultFileMap)
	if err != nil {
		panic(err)
	}
	return fm
}

// LoadFileMap reads a YAML classification table:
//
//	extensions: [{pattern: '\.py$', scope: python}]
//	metainfos:  [{pattern: '^#!.*python', scope: python}]
func LoadFileMap(path string) (*FileMap, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read file map %s: %v", ErrConfiguration, path, err)
	}
	var raw rawFileMap
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse file map %s: %v", ErrConfiguration, path, err)
	}
	return compileFileMap(raw)
}

func compileFileMap(raw rawFileMap) (*FileMap, error) {
	ext, err := compileScopePatterns("extensions", raw.Extensions)
	if err != nil {
		return nil, err
	}
	meta, err := compileScopePatterns("metainfos", raw.Metainfos)
	if err != nil {
		return nil, err
	}
	return &FileMap{Extensions: ext, Metainfos: meta}, nil
}

func compileScopePatterns(table string, raw []rawScopePattern) ([]ScopePattern, error) {
	out := make([]ScopePattern, 0, len(raw))
	for i, r := range raw {
		scope := strings.TrimSpace(r.Scope)
		if scope == "" {
			return nil, fmt.Errorf("%w: %s[%d]: scope is required", ErrConfiguration, table, i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrConfiguration, table, i, err)
		}
		out = append(out, ScopePattern{Pattern: re, Scope: scope})
	}
	return out, nil
}

// Classify returns the scope for rel, consulting header only when no
// extension pattern matches and header is non-nil.
func (m *FileMap) Classify(rel string, header []byte) string {
	if m == nil {
		return ""
	}
	for _, p := range m.Extensions {
		if p.Pattern.MatchString(rel) {
			return p.Scope
		}
	}
	if len(header) == 0 {
		return ""
	}
	for _, p := range m.Metainfos {
		if p.Pattern.Match(header) {
			return p.Scope
		}
	}
	return ""
}

// ByExtension reports whether rel is classified without reading content.
func (m *FileMap) ByExtension(rel string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, p := range m.Extensions {
		if p.Pattern.MatchString(rel) {
			return p.Scope, true
		}
	}
	return "", false
}
