package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alpha1e0/kiwi/internal/analyzer"
	"github.com/alpha1e0/kiwi/internal/config"
	"github.com/alpha1e0/kiwi/internal/intake"
	"github.com/alpha1e0/kiwi/internal/logging"
	"github.com/alpha1e0/kiwi/internal/progress"
	"github.com/alpha1e0/kiwi/internal/report"
	"github.com/alpha1e0/kiwi/internal/tui"
	"github.com/alpha1e0/kiwi/internal/watch"
)

type scanFlags struct {
	featureDir  string
	featureIDs  []string
	extensions  []string
	igexts      []string
	excludes    []string
	showContext int
	evalContext int
	outputs     []string
	verbose     bool
	workers     int
	timeout     time.Duration
	noGitignore bool
	noSniff     bool
	tui         bool
	redact      bool
	watch       bool
}

func newScanCmd(configPath *string) *cobra.Command {
	var f scanFlags
	c := &cobra.Command{
		Use:   "scan <dir|zip>",
		Short: "Scan a source tree (or zip archive) for security issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			applyScanFlags(cmd, &cfg, f)
			return runScan(cmd, cfg, f, args[0])
		},
	}

	fl := c.Flags()
	fl.StringVarP(&f.featureDir, "feature-dir", "f", "", "Directory of *.feature rule files (replaces the builtin rules)")
	fl.StringSliceVarP(&f.featureIDs, "feature-ids", "i", nil, "Only run these feature IDs; @file reads IDs from a file")
	fl.StringSliceVarP(&f.extensions, "extensions", "e", nil, "Only scan files with these extensions")
	fl.StringSliceVar(&f.igexts, "igexts", nil, "Skip files with these extensions")
	fl.StringSliceVar(&f.excludes, "excludes", nil, "Skip paths containing any of these strings")
	fl.IntVarP(&f.showContext, "sctx", "c", analyzer.DefaultReportContext, "Context lines shown around each issue")
	fl.IntVar(&f.evalContext, "ectx", analyzer.DefaultEvalContext, "Context lines given to evaluators")
	fl.StringSliceVarP(&f.outputs, "outputs", "o", nil, "Report files; format by extension: .txt .html .json .md .sarif .db")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "Verbose logging and progress on stderr")
	fl.IntVarP(&f.workers, "workers", "w", 1, "Files scanned in parallel")
	fl.DurationVar(&f.timeout, "timeout", 0, "Stop the scan after this long (0 = no limit)")
	fl.BoolVar(&f.noGitignore, "no-gitignore", false, "Do not honour .gitignore files")
	fl.BoolVar(&f.noSniff, "no-sniff", false, "Do not sniff file headers for scope")
	fl.BoolVar(&f.tui, "tui", false, "Show an interactive progress view (terminal only)")
	fl.BoolVar(&f.redact, "redact", false, "Mask secrets in reported context lines")
	fl.BoolVar(&f.watch, "watch", false, "Rescan whenever files change")
	return c
}

// applyScanFlags lets explicitly set flags override loaded config.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config, f scanFlags) {
	changed := cmd.Flags().Changed
	if changed("feature-ids") {
		cfg.FeatureIDs = f.featureIDs
	}
	if changed("extensions") {
		cfg.Extensions = f.extensions
	}
	if changed("igexts") {
		cfg.IgnoreExtensions = f.igexts
	}
	if changed("excludes") {
		cfg.Excludes = f.excludes
	}
	if changed("sctx") {
		cfg.ShowContext = f.showContext
	}
	if changed("ectx") {
		cfg.EvalContext = f.evalContext
	}
	if changed("outputs") {
		cfg.Outputs = f.outputs
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("no-gitignore") {
		cfg.RespectGitignore = !f.noGitignore
	}
	if changed("no-sniff") {
		cfg.SniffContent = !f.noSniff
	}
	if changed("redact") {
		cfg.Redact = f.redact
	}
}

func runScan(cmd *cobra.Command, cfg config.Config, f scanFlags, target string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := target
	if intake.IsArchive(target) {
		if f.watch {
			return errors.New("--watch needs a directory, not an archive")
		}
		staged, cleanup, err := stageArchive(ctx, target, log)
		if err != nil {
			return err
		}
		defer cleanup()
		root = staged
	}

	ruleFiles, err := loadRuleFiles(cfg, f.featureDir)
	if err != nil {
		return err
	}
	ids, err := expandIDs(cfg.FeatureIDs)
	if err != nil {
		return err
	}
	fileMap, sensitive, err := walkerTables(cfg)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	useTUI := f.tui && isTerminal(stdout)

	var (
		sink   progress.Sink = progress.NoopSink{}
		events chan progress.Event
	)
	switch {
	case useTUI:
		events = make(chan progress.Event, 256)
		sink = progress.NewChannelSink(events)
	case cfg.Verbose:
		sink = progress.NewPlainSink(stderr)
	}

	a, err := analyzer.New(analyzer.Options{
		RuleFiles: ruleFiles,
		OnlyIDs:   ids,
		Walker: intake.Options{
			Extensions:        cfg.Extensions,
			IgnoreExtensions:  cfg.IgnoreExtensions,
			Excludes:          cfg.Excludes,
			RespectIgnoreFile: cfg.RespectGitignore,
			SniffContent:      cfg.SniffContent,
			FileMap:           fileMap,
			Sensitive:         sensitive,
		},
		EvalContext:   cfg.EvalContext,
		ReportContext: reportContext(cfg.ShowContext),
		Workers:       cfg.Workers,
		Timeout:       cfg.Timeout,
		Sink:          sink,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	log.Debugw("scan configured", "root", root, "features", a.Registry().Len(), "workers", a.Workers(), "config", cfg.Sources)

	s := &scanSession{
		analyzer: a,
		cfg:      cfg,
		root:     root,
		stdout:   stdout,
		stderr:   stderr,
		console:  !useTUI,
		colour:   isTerminal(stdout) && !color.NoColor,
		sink:     sink,
		log:      log,
	}

	if !useTUI {
		if err := s.once(ctx); err != nil {
			return err
		}
		if !f.watch {
			return nil
		}
		fmt.Fprintf(stderr, "watching %s for changes (ctrl+c to stop)\n", root)
		return watch.RunWith(ctx, root, watch.Options{Debounce: cfg.WatchDebounce, Logger: log}, s.rerun)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		defer close(events)
		err := s.once(ctx)
		if err == nil && f.watch {
			err = watch.RunWith(ctx, root, watch.Options{Debounce: cfg.WatchDebounce, Logger: log}, s.rerun)
		}
		done <- err
	}()
	if err := tui.Run(tui.Options{Events: events, Watching: f.watch}); err != nil {
		cancel()
		<-done
		return err
	}
	cancel()
	if err := <-done; err != nil {
		return err
	}
	if s.last != nil {
		return report.Console(stdout, *s.last, s.colour)
	}
	return nil
}

// scanSession runs the analyzer and writes every configured output.
type scanSession struct {
	analyzer *analyzer.Analyzer
	cfg      config.Config
	root     string
	stdout   io.Writer
	stderr   io.Writer
	console  bool
	colour   bool
	sink     progress.Sink
	log      *zap.SugaredLogger
	last     *report.Report
}

func (s *scanSession) once(ctx context.Context) error {
	res, err := s.analyzer.Run(ctx, s.root)
	if err != nil {
		return err
	}
	rep := report.FromResult(res)
	rep.LinkBase = s.cfg.OpenGrokBase
	if s.cfg.Redact {
		rep = rep.Redacted()
	}
	s.last = &rep

	if s.console {
		if err := report.Console(s.stdout, rep, s.colour); err != nil {
			return err
		}
	}
	for _, out := range s.cfg.Outputs {
		out = strings.TrimSpace(out)
		if out == "" {
			continue
		}
		if err := report.Write(out, rep); err != nil {
			return err
		}
		if s.console {
			fmt.Fprintf(s.stderr, "report written: %s\n", filepath.Clean(out))
		}
	}
	return nil
}

func (s *scanSession) rerun(ctx context.Context, changed []string) error {
	for _, c := range changed {
		s.sink.Emit(progress.Event{Type: progress.EventWatchTrigger, File: c})
	}
	s.log.Infow("rescanning", "changed", len(changed))
	return s.once(ctx)
}

func stageArchive(ctx context.Context, archive string, log *zap.SugaredLogger) (string, func(), error) {
	dir, err := os.MkdirTemp("", "kiwi-archive-*")
	if err != nil {
		return "", nil, fmt.Errorf("stage archive: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	n, err := intake.ExtractArchive(ctx, archive, dir, intake.DefaultArchiveLimits())
	if err != nil {
		cleanup()
		return "", nil, err
	}
	log.Debugw("archive staged", "archive", archive, "files", n, "dir", dir)
	return dir, cleanup, nil
}

// reportContext maps the user's --sctx onto analyzer semantics, where zero
// means "default" and negative means "matched line only".
func reportContext(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
