package intake

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is consulted at the scan root when ignore rules are on.
const IgnoreFileName = ".gitignore"

// IgnoreRules is a compiled .gitignore. The last matching pattern wins.
type IgnoreRules struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	negated bool
	dirOnly bool
	regex   *regexp.Regexp
	source  string
}

// LoadIgnoreFile parses path. A missing file yields nil rules and no error.
func LoadIgnoreFile(path string) (*IgnoreRules, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ParseIgnorePatterns(lines), nil
}

// ParseIgnorePatterns compiles gitignore lines. Lines that do not compile
// are dropped.
func ParseIgnorePatterns(lines []string) *IgnoreRules {
	rules := &IgnoreRules{}
	for _, raw := range lines {
		line := strings.TrimRight(raw, " \t\r")
		line = strings.TrimLeft(line, " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p := ignorePattern{source: line}
		switch {
		case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
			line = line[1:]
		case strings.HasPrefix(line, "!"):
			p.negated = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		if line == "" {
			continue
		}

		re, err := regexp.Compile(ignoreGlobToRegex(line))
		if err != nil {
			continue
		}
		p.regex = re
		rules.patterns = append(rules.patterns, p)
	}
	return rules
}

// ShouldIgnore reports whether relPath is excluded. A nil receiver ignores
// nothing.
func (r *IgnoreRules) ShouldIgnore(relPath string, isDir bool) bool {
	if r == nil || len(r.patterns) == 0 {
		return false
	}
	relPath = strings.Trim(filepath.ToSlash(strings.TrimSpace(relPath)), "/")
	if relPath == "" {
		return false
	}

	ignored := false
	for _, p := range r.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if p.regex.MatchString(relPath) {
			ignored = !p.negated
		}
	}
	return ignored
}

func (r *IgnoreRules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.patterns)
}

// indexRune is the rune offset of c in r, or -1.
func indexRune(r []rune, c rune) int {
	for i, x := range r {
		if x == c {
			return i
		}
	}
	return -1
}

// ignoreGlobToRegex converts one gitignore glob to an anchored regex.
// Patterns without an inner slash match a basename at any depth; a leading
// slash anchors to the root.
func ignoreGlobToRegex(glob string) string {
	glob = filepath.ToSlash(glob)
	anchored := strings.HasPrefix(glob, "/") || strings.Contains(strings.TrimPrefix(glob, "/"), "/")
	glob = strings.TrimPrefix(glob, "/")

	var b strings.Builder
	b.WriteString("^")
	if !anchored {
		b.WriteString("(?:.*/)?")
	}

	r := []rune(glob)
	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '*':
			if i+1 < len(r) && r[i+1] == '*' {
				if i+2 < len(r) && r[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := indexRune(r[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := string(r[i+1 : i+1+end])
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 1
		case '.', '+', '(', ')', '{', '}', '^', '$', '|', '\\', ']':
			b.WriteString(`\`)
			b.WriteRune(r[i])
		default:
			b.WriteRune(r[i])
		}
	}
	b.WriteString("$")
	return b.String()
}
