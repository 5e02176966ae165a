package analyzer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/alpha1e0/kiwi/internal/feature"
	"github.com/alpha1e0/kiwi/internal/feature/evals"
	"github.com/alpha1e0/kiwi/internal/intake"
	"github.com/alpha1e0/kiwi/internal/issue"
	"github.com/alpha1e0/kiwi/internal/logging"
	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/progress"
)

const (
	DefaultEvalContext   = 10
	DefaultReportContext = 2
)

const (
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
	StatusTimeout   = "timeout"
)

type Options struct {
	// RuleFiles defaults to feature.Builtins() when nil.
	RuleFiles []feature.RuleFile
	// Evaluators defaults to the builtin evaluator set when nil.
	Evaluators *feature.Evaluators
	OnlyIDs    []string

	Walker intake.Options

	EvalContext int
	// ReportContext is the context radius kept on issues. Zero selects
	// the default; a negative value keeps only the matched line.
	ReportContext int
	Workers       int
	Timeout       time.Duration

	Sink   progress.Sink
	Logger *zap.SugaredLogger
}

type Result struct {
	Root        string
	Status      string
	Issues      []model.Issue
	Statistics  issue.Statistics
	Scopes      intake.ScopeStats
	Files       int
	Scanned     int
	Warnings    []string
	StartedAt   time.Time
	CompletedAt time.Time
}

func (r Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Analyzer runs the feature registry over directory trees. It is safe to
// call Run repeatedly; each run gets its own issue store and statistics.
type Analyzer struct {
	opts     Options
	registry *feature.Registry
	log      *zap.SugaredLogger
}

// New loads and compiles the rule set. Any configuration problem is
// returned here, before a scan starts.
func New(opts Options) (*Analyzer, error) {
	if opts.RuleFiles == nil {
		opts.RuleFiles = feature.Builtins()
	}
	if opts.Evaluators == nil {
		opts.Evaluators = feature.NewEvaluators()
		if err := evals.Register(opts.Evaluators); err != nil {
			return nil, fmt.Errorf("register evaluators: %w", err)
		}
	}
	if opts.EvalContext <= 0 {
		opts.EvalContext = DefaultEvalContext
	}
	switch {
	case opts.ReportContext == 0:
		opts.ReportContext = DefaultReportContext
	case opts.ReportContext < 0:
		opts.ReportContext = 0
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if n := runtime.NumCPU(); opts.Workers > n {
		opts.Workers = n
	}
	if opts.Sink == nil {
		opts.Sink = progress.NoopSink{}
	}
	log := logging.Or(opts.Logger)

	reg, err := feature.Load(opts.RuleFiles, opts.Evaluators, feature.LoadOptions{OnlyIDs: opts.OnlyIDs})
	if err != nil {
		return nil, err
	}
	log.Debugw("features loaded", "count", reg.Len(), "scopes", reg.Scopes())

	opts.Walker.Logger = log
	return &Analyzer{opts: opts, registry: reg, log: log}, nil
}

func (a *Analyzer) Registry() *feature.Registry { return a.registry }

func (a *Analyzer) Workers() int { return a.opts.Workers }

// Run scans root. Only configuration errors are returned; everything else
// is a warning on the Result. A cancelled or timed out run returns what was
// committed so far with a matching Status.
func (a *Analyzer) Run(ctx context.Context, root string) (Result, error) {
	started := time.Now().UTC()
	walker, err := intake.NewWalker(root, a.opts.Walker)
	if err != nil {
		return Result{}, err
	}
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	s := &scan{
		analyzer: a,
		store:    issue.NewStore(),
	}
	a.opts.Sink.Emit(progress.Event{Type: progress.EventRunStarted, At: started, Root: walker.Root()})
	a.log.Infow("scan started", "root", walker.Root(), "workers", a.opts.Workers)

	var walkErr error
	if a.opts.Workers == 1 {
		walkErr = s.sequential(ctx, walker)
	} else {
		walkErr = s.parallel(ctx, walker)
	}

	res := Result{
		Root:      walker.Root(),
		Status:    StatusSuccess,
		Scopes:    walker.Stats(),
		Files:     s.files,
		Scanned:   s.scanned,
		StartedAt: started,
	}
	switch {
	case walkErr == nil:
	case errors.Is(walkErr, context.DeadlineExceeded):
		res.Status = StatusTimeout
		s.warn("scan timed out after %s; results are partial", a.opts.Timeout)
	case errors.Is(walkErr, context.Canceled):
		res.Status = StatusCancelled
		s.warn("scan cancelled; results are partial")
	case errors.Is(walkErr, intake.ErrConfiguration):
		return Result{}, walkErr
	default:
		s.warn("walk %s: %v", walker.Root(), walkErr)
	}

	res.Issues = s.store.Issues()
	res.Statistics = s.store.Statistics()
	res.Warnings = append(walker.Warnings(), s.warningsSnapshot()...)
	res.CompletedAt = time.Now().UTC()

	a.opts.Sink.Emit(progress.Event{
		Type:       progress.EventRunFinished,
		At:         res.CompletedAt,
		Root:       res.Root,
		Status:     res.Status,
		FileCount:  res.Files,
		IssueCount: len(res.Issues),
		DurationMS: res.Duration().Milliseconds(),
	})
	a.log.Infow("scan finished", "status", res.Status, "files", res.Files, "issues", len(res.Issues))
	return res, nil
}
