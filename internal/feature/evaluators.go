package feature

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/source"
)

// Evaluator confirms or rejects a regex match. Implementations must be pure:
// the same feature and context always yield the same verdict.
type Evaluator interface {
	Evaluate(f *Feature, mc *source.MatchContext) (severity model.Level, confidence model.Level, ok bool)
}

type EvaluatorFunc func(f *Feature, mc *source.MatchContext) (model.Level, model.Level, bool)

func (fn EvaluatorFunc) Evaluate(f *Feature, mc *source.MatchContext) (model.Level, model.Level, bool) {
	return fn(f, mc)
}

// Evaluators maps names used in rule definitions to evaluator code.
type Evaluators struct {
	mu    sync.RWMutex
	funcs map[string]Evaluator
}

func NewEvaluators() *Evaluators {
	return &Evaluators{funcs: map[string]Evaluator{}}
}

func (r *Evaluators) Register(name string, e Evaluator) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("evaluator name is required")
	}
	if e == nil {
		return fmt.Errorf("evaluator %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("evaluator %q already registered", name)
	}
	r.funcs[name] = e
	return nil
}

func (r *Evaluators) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[name]
	return ok
}

func (r *Evaluators) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run invokes the named evaluator. A panic inside it is recovered and
// reported as ErrEvaluatorFailed.
func (r *Evaluators) Run(name string, f *Feature, mc *source.MatchContext) (severity model.Level, confidence model.Level, ok bool, err error) {
	if r == nil {
		return 0, 0, false, fmt.Errorf("%w: %q", ErrEvaluatorNotFound, name)
	}
	r.mu.RLock()
	e, found := r.funcs[name]
	r.mu.RUnlock()
	if !found {
		return 0, 0, false, fmt.Errorf("%w: %q", ErrEvaluatorNotFound, name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			severity, confidence, ok = 0, 0, false
			err = fmt.Errorf("%w: %s panicked on %s:%d: %v", ErrEvaluatorFailed, name, mc.Filename, mc.Line, rec)
		}
	}()

	severity, confidence, ok = e.Evaluate(f, mc)
	if !ok {
		return 0, 0, false, nil
	}
	if !severity.Valid() || !confidence.Valid() {
		return 0, 0, false, fmt.Errorf("%w: %s returned invalid levels (%d, %d)", ErrEvaluatorFailed, name, int(severity), int(confidence))
	}
	return severity, confidence, true, nil
}
