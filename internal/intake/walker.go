package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"github.com/alpha1e0/kiwi/internal/logging"
	"github.com/alpha1e0/kiwi/internal/source"
)

var vcsDirNames = map[string]struct{}{
	".git": {}, ".svn": {}, ".hg": {}, "CVS": {},
}

// IsVCSDir reports whether a directory name belongs to version control
// metadata, which is never scanned.
func IsVCSDir(name string) bool {
	_, ok := vcsDirNames[name]
	return ok
}

type Options struct {
	// Extensions, when non-empty, is a whitelist of filename suffixes.
	Extensions       []string
	IgnoreExtensions []string
	// Excludes skips any path containing one of these substrings.
	Excludes          []string
	RespectIgnoreFile bool
	SniffContent      bool
	FileMap           *FileMap
	Sensitive         []*regexp.Regexp
	Logger            *zap.SugaredLogger
}

// ClassifiedFile is one file that survived the skip rules. Source is nil
// when the file has no scope or could not be read.
type ClassifiedFile struct {
	Path      string
	Rel       string
	Scope     string
	Source    *source.File
	Sensitive string
}

// ScopeStats maps scope to cumulative line count.
type ScopeStats map[string]int

// Scopes returns the scope names sorted.
func (s ScopeStats) Scopes() []string {
	out := make([]string, 0, len(s))
	for scope := range s {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

func (s ScopeStats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Walker traverses one root. Stats are fresh per Walker.
type Walker struct {
	root       string
	opts       Options
	extensions []string
	igexts     []string
	log        *zap.SugaredLogger

	ignoreOnce sync.Once
	ignore     *IgnoreRules

	mu       sync.Mutex
	stats    ScopeStats
	warnings []string
}

func NewWalker(root string, opts Options) (*Walker, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: scan root is required", ErrConfiguration)
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot find directory %s: %v", ErrConfiguration, root, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrConfiguration, root)
	}

	if opts.FileMap == nil {
		opts.FileMap = DefaultFileMap()
	}
	if opts.Sensitive == nil {
		opts.Sensitive = DefaultSensitivePatterns()
	}
	return &Walker{
		root:       filepath.Clean(root),
		opts:       opts,
		extensions: normalizeExts(opts.Extensions),
		igexts:     normalizeExts(opts.IgnoreExtensions),
		log:        logging.Or(opts.Logger),
		stats:      ScopeStats{},
	}, nil
}

func (w *Walker) Root() string { return w.root }

// Stats returns a snapshot of the per-scope line counts.
func (w *Walker) Stats() ScopeStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(ScopeStats, len(w.stats))
	for k, v := range w.stats {
		out[k] = v
	}
	return out
}

func (w *Walker) Warnings() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.warnings...)
}

func (w *Walker) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	w.mu.Lock()
	w.warnings = append(w.warnings, msg)
	w.mu.Unlock()
	w.log.Warn(msg)
}

func (w *Walker) ignoreRules() *IgnoreRules {
	w.ignoreOnce.Do(func() {
		if !w.opts.RespectIgnoreFile {
			return
		}
		rules, err := LoadIgnoreFile(filepath.Join(w.root, IgnoreFileName))
		if err != nil {
			w.warn("read %s: %v", IgnoreFileName, err)
			return
		}
		w.ignore = rules
	})
	return w.ignore
}

// Walk visits files in lexical order and calls fn for each one that is not
// skipped. An error from fn stops the walk and is returned.
func (w *Walker) Walk(ctx context.Context, fn func(ClassifiedFile) error) error {
	ignore := w.ignoreRules()
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == w.root {
				return fmt.Errorf("%w: read root %s: %v", ErrConfiguration, w.root, walkErr)
			}
			w.warn("read %s: %v", path, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == w.root {
			return nil
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			if IsVCSDir(d.Name()) {
				return filepath.SkipDir
			}
			if w.excluded(rel) || ignore.ShouldIgnore(rel, true) {
				w.log.Debugw("skip directory", "path", rel)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if w.excluded(rel) || ignore.ShouldIgnore(rel, false) || !w.extensionAllowed(d.Name()) {
			return nil
		}

		cf, ok := w.classify(path, rel)
		if !ok {
			return nil
		}
		return fn(cf)
	})
}

// classify never drops a sensitive file: an unreadable one is still
// yielded, without a Source.
func (w *Walker) classify(path, rel string) (ClassifiedFile, bool) {
	cf := ClassifiedFile{Path: path, Rel: rel}
	if pattern, hit := matchSensitive(w.opts.Sensitive, rel); hit {
		cf.Sensitive = pattern
	}

	scope, byExt := w.opts.FileMap.ByExtension(rel)
	if !byExt && w.opts.SniffContent {
		header, err := readHeader(path)
		if err != nil {
			w.warn("read %s: %v", path, err)
			return cf, cf.Sensitive != ""
		}
		if !isBinary(header) {
			scope = w.opts.FileMap.Classify(rel, header)
		}
	}
	cf.Scope = scope

	if scope == "" {
		return cf, true
	}

	src, err := source.Load(path, scope)
	if err != nil {
		w.warn("load %s: %v", path, err)
		return cf, cf.Sensitive != ""
	}
	if src.Undecodable() {
		w.warn("%s: content is neither UTF-8 nor GBK, no matches possible", path)
	}
	cf.Source = src

	w.mu.Lock()
	w.stats[scope] += src.LineCount()
	w.mu.Unlock()
	return cf, true
}

func (w *Walker) excluded(rel string) bool {
	for _, kw := range w.opts.Excludes {
		if kw != "" && strings.Contains(rel, kw) {
			return true
		}
	}
	return false
}

func (w *Walker) extensionAllowed(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range w.igexts {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	if len(w.extensions) == 0 {
		return true
	}
	for _, ext := range w.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func normalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, HeaderLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

// isBinary reports whether the header carries a known binary signature.
func isBinary(header []byte) bool {
	if len(header) == 0 {
		return false
	}
	switch {
	case filetype.IsImage(header), filetype.IsVideo(header), filetype.IsAudio(header),
		filetype.IsArchive(header), filetype.IsFont(header), filetype.IsApplication(header),
		filetype.IsDocument(header):
		return true
	}
	return false
}
