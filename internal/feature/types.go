package feature

import "errors"

var (
	ErrConfiguration     = errors.New("feature configuration error")
	ErrEvaluatorNotFound = errors.New("evaluator not found")
	ErrEvaluatorFailed   = errors.New("evaluator failed")
)

// Definition is one rule as written in a .feature file.
type Definition struct {
	ID         string   `yaml:"ID" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Patterns   []string `yaml:"patterns" json:"patterns"`
	Severity   string   `yaml:"severity,omitempty" json:"severity,omitempty"`
	Confidence string   `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	Evaluate   string   `yaml:"evaluate,omitempty" json:"evaluate,omitempty"`
	References []string `yaml:"references,omitempty" json:"references,omitempty"`
}

// RuleFile groups definitions that share a scope list.
type RuleFile struct {
	Name     string       `yaml:"-" json:"-"`
	Scopes   []string     `yaml:"scopes" json:"scopes"`
	Features []Definition `yaml:"features" json:"features"`
}
