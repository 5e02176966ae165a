package issue

import (
	"sync"

	"github.com/alpha1e0/kiwi/internal/model"
)

const (
	SensitiveFileID   = "SENSITIVE_FILE"
	SensitiveFileName = "Sensitive file"
)

// Store collects issues for one scan. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	issues []model.Issue
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Add(issue model.Issue) {
	s.mu.Lock()
	s.issues = append(s.issues, issue)
	s.mu.Unlock()
}

// AddAll appends a batch under one lock so the batch stays contiguous.
func (s *Store) AddAll(batch []model.Issue) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	s.issues = append(s.issues, batch...)
	s.mu.Unlock()
}

// AddSensitiveFile records a file whose path alone is a finding.
func (s *Store) AddSensitiveFile(filename, scope, pattern string) {
	s.Add(SensitiveFile(filename, scope, pattern))
}

// SensitiveFile builds the issue AddSensitiveFile records.
func SensitiveFile(filename, scope, pattern string) model.Issue {
	return model.Issue{
		ID:         SensitiveFileID,
		Name:       SensitiveFileName,
		Scope:      scope,
		Severity:   model.Low,
		Confidence: model.Low,
		Pattern:    pattern,
		Filename:   filename,
		Line:       0,
	}
}

// Issues returns a copy in insertion order.
func (s *Store) Issues() []model.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Issue(nil), s.issues...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issues)
}

func (s *Store) SensitiveFiles() []model.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Issue
	for _, issue := range s.issues {
		if issue.ID == SensitiveFileID {
			out = append(out, issue)
		}
	}
	return out
}

func (s *Store) Statistics() Statistics {
	return Summarize(s.Issues())
}
