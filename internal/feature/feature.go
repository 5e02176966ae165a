package feature

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/source"
)

// Recorder receives accepted issues.
type Recorder interface {
	Add(model.Issue)
}

// Feature is a compiled, immutable rule.
type Feature struct {
	ID         string
	Name       string
	Scopes     []string
	Patterns   []*regexp.Regexp
	Severity   model.Level
	Confidence model.Level
	Evaluator  string
	References []string

	evaluators *Evaluators
}

// New compiles def. Missing levels default to Info severity and Low
// confidence; a named evaluator must already be registered.
func New(def Definition, scopes []string, evaluators *Evaluators) (*Feature, error) {
	id := strings.TrimSpace(def.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: feature ID is required", ErrConfiguration)
	}

	f := &Feature{
		ID:         id,
		Name:       strings.TrimSpace(def.Name),
		Scopes:     append([]string(nil), scopes...),
		Severity:   model.Info,
		Confidence: model.Low,
		Evaluator:  strings.TrimSpace(def.Evaluate),
		References: append([]string(nil), def.References...),
		evaluators: evaluators,
	}
	if f.Name == "" {
		f.Name = id
	}

	if strings.TrimSpace(def.Severity) != "" {
		lvl, err := model.ParseLevel(def.Severity)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %s severity: %v", ErrConfiguration, id, err)
		}
		f.Severity = lvl
	}
	if strings.TrimSpace(def.Confidence) != "" {
		lvl, err := model.ParseLevel(def.Confidence)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %s confidence: %v", ErrConfiguration, id, err)
		}
		f.Confidence = lvl
	}

	for idx, pattern := range def.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %s pattern %d: %v", ErrConfiguration, id, idx+1, err)
		}
		f.Patterns = append(f.Patterns, re)
	}

	if f.Evaluator != "" {
		if evaluators == nil || !evaluators.Has(f.Evaluator) {
			return nil, fmt.Errorf("%w: %w: feature %s references %q", ErrConfiguration, ErrEvaluatorNotFound, id, f.Evaluator)
		}
	}
	return f, nil
}

// Judge decides whether mc is a real issue and at which levels.
func (f *Feature) Judge(mc *source.MatchContext) (model.Level, model.Level, bool, error) {
	if f.Evaluator == "" {
		return f.Severity, f.Confidence, true, nil
	}
	return f.evaluators.Run(f.Evaluator, f, mc)
}

// Evaluate judges mc and, on acceptance, records an issue carrying radius
// lines of context. An evaluator failure counts as a rejection and is
// returned so the caller can log it.
func (f *Feature) Evaluate(mc *source.MatchContext, radius int, rec Recorder) (bool, error) {
	severity, confidence, ok, err := f.Judge(mc)
	if err != nil || !ok {
		return false, err
	}
	if rec != nil {
		rec.Add(model.Issue{
			ID:         f.ID,
			Name:       f.Name,
			Scope:      mc.Scope,
			Severity:   severity,
			Confidence: confidence,
			References: append([]string(nil), f.References...),
			Pattern:    mc.Pattern,
			Filename:   mc.Filename,
			Line:       mc.Line,
			Context:    mc.ContextLines(radius),
		})
	}
	return true, nil
}
