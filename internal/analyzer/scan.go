package analyzer

import (
	"context"
	"fmt"
	"sync"

	"github.com/alpha1e0/kiwi/internal/feature"
	"github.com/alpha1e0/kiwi/internal/intake"
	"github.com/alpha1e0/kiwi/internal/issue"
	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/progress"
)

// batch collects the findings of one file until it is committed.
type batch struct {
	path      string
	scope     string
	sensitive string
	issues    []model.Issue
}

func (b *batch) Add(i model.Issue) { b.issues = append(b.issues, i) }

// commit hands the batch to the store: the sensitive-file finding first,
// then feature matches in registry order.
func (b *batch) commit(store *issue.Store) {
	if b == nil {
		return
	}
	if b.sensitive != "" {
		store.AddSensitiveFile(b.path, b.scope, b.sensitive)
	}
	store.AddAll(b.issues)
}

type scan struct {
	analyzer *Analyzer
	store    *issue.Store

	mu       sync.Mutex
	warnings []string
	files    int
	scanned  int
}

func (s *scan) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.mu.Lock()
	s.warnings = append(s.warnings, msg)
	s.mu.Unlock()
	s.analyzer.log.Warn(msg)
	s.analyzer.opts.Sink.Emit(progress.Event{Type: progress.EventRunWarning, Message: msg})
}

func (s *scan) warningsSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

func (s *scan) count(cf intake.ClassifiedFile) {
	s.mu.Lock()
	s.files++
	if cf.Source != nil {
		s.scanned++
	}
	s.mu.Unlock()
}

func (s *scan) sequential(ctx context.Context, w *intake.Walker) error {
	return w.Walk(ctx, func(cf intake.ClassifiedFile) error {
		s.count(cf)
		s.file(cf).commit(s.store)
		return nil
	})
}

// parallel matches files on a bounded pool. Batches are committed in walk
// order, so the issue list matches a sequential run.
func (s *scan) parallel(ctx context.Context, w *intake.Walker) error {
	sem := make(chan struct{}, s.analyzer.opts.Workers)
	c := &committer{store: s.store, pending: map[int]*batch{}}
	var wg sync.WaitGroup

	seq := 0
	err := w.Walk(ctx, func(cf intake.ClassifiedFile) error {
		s.count(cf)
		idx := seq
		seq++

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			c.done(idx, nil)
			return ctx.Err()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			c.done(idx, s.file(cf))
		}()
		return nil
	})
	wg.Wait()
	return err
}

type committer struct {
	mu      sync.Mutex
	store   *issue.Store
	next    int
	pending map[int]*batch
}

// done is called exactly once per sequence number; b is nil for a file
// that was never scheduled.
func (c *committer) done(seq int, b *batch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[seq] = b
	for {
		ready, ok := c.pending[c.next]
		if !ok {
			return
		}
		delete(c.pending, c.next)
		ready.commit(c.store)
		c.next++
	}
}

// file matches one classified file against the features of its scope.
func (s *scan) file(cf intake.ClassifiedFile) *batch {
	out := &batch{path: cf.Path, scope: cf.Scope, sensitive: cf.Sensitive}
	if cf.Sensitive != "" {
		s.analyzer.opts.Sink.Emit(progress.Event{Type: progress.EventSensitive, File: cf.Rel, Scope: cf.Scope})
	}
	if cf.Source == nil {
		return out
	}

	features := s.analyzer.registry.ForScope(cf.Scope)
	if len(features) == 0 {
		s.analyzer.log.Debugw("no features for scope", "file", cf.Rel, "scope", cf.Scope)
	}
	for _, f := range features {
		s.match(f, cf, out)
	}
	s.analyzer.opts.Sink.Emit(progress.Event{
		Type:       progress.EventFileScanned,
		File:       cf.Rel,
		Scope:      cf.Scope,
		IssueCount: len(out.issues),
	})
	return out
}

func (s *scan) match(f *feature.Feature, cf intake.ClassifiedFile, out *batch) {
	opts := s.analyzer.opts
	for _, mc := range cf.Source.Match(f.Patterns, opts.EvalContext) {
		if _, err := f.Evaluate(mc, opts.ReportContext, out); err != nil {
			s.warn("feature %s on %s:%d: %v", f.ID, cf.Rel, mc.Line, err)
		}
	}
}
