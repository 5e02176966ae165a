package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alpha1e0/kiwi/internal/progress"
)

type Options struct {
	Events <-chan progress.Event
	// Watching keeps the view open between runs until the user quits.
	Watching bool
}

// Run blocks until the event channel closes, the final run finishes, or
// the user quits.
func Run(opts Options) error {
	if opts.Events == nil {
		return fmt.Errorf("tui events channel is required")
	}
	m := newModel(opts.Events, opts.Watching)
	m.plain = noColorEnabled()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
