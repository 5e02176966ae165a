package evals

import "github.com/alpha1e0/kiwi/internal/source"

func newSource(scope, content string) *source.File {
	return source.New("sample", scope, content)
}
