package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alpha1e0/kiwi/internal/progress"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

const maxEventLines = 12

type scopeState struct {
	Scope  string
	Files  int
	Issues int
}

type eventLine struct {
	Severity string
	Text     string
}

type eventMsg struct {
	event progress.Event
	ok    bool
}

type uiModel struct {
	events <-chan progress.Event

	root       string
	runStatus  string
	startedAt  time.Time
	finishedAt time.Time
	files      int
	issues     int
	sensitive  int
	warnings   int
	lastFile   string
	runs       int

	showDetails bool
	watching    bool
	plain       bool
	done        bool

	scopes   map[string]scopeState
	logLines []eventLine
	tick     int
}

func newModel(events <-chan progress.Event, watching bool) uiModel {
	return uiModel{
		events:      events,
		runStatus:   "pending",
		scopes:      make(map[string]scopeState),
		showDetails: true,
		watching:    watching,
		logLines:    make([]eventLine, 0, maxEventLines),
	}
}

func waitForEvent(ch <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{event: ev, ok: ok}
	}
}

type tickMsg time.Time

func nextTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), nextTick())
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "d":
			m.showDetails = !m.showDetails
		case "q", "ctrl+c":
			if m.done || m.watching {
				return m, tea.Quit
			}
		}
		return m, nil
	case eventMsg:
		if !msg.ok {
			m.done = true
			return m, tea.Quit
		}
		m.applyEvent(msg.event)
		if m.done && !m.watching {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case tickMsg:
		m.tick++
		if m.done && !m.watching {
			return m, nil
		}
		return m, nextTick()
	default:
		return m, nil
	}
}

func (m uiModel) View() string {
	var b strings.Builder

	b.WriteString(m.render(titleStyle, "Kiwi Security Scan"))
	b.WriteString("\n")
	if m.runStatus == "running" {
		b.WriteString(fmt.Sprintf("Active: %s %s\n", m.render(runningStyle, m.runningFrame()), valueOrDash(m.lastFile)))
	}
	b.WriteString(fmt.Sprintf("Root: %s\n", valueOrDash(m.root)))
	b.WriteString(fmt.Sprintf("Status: %s\n", m.render(styleStatus(m.runStatus), strings.ToUpper(valueOrDash(m.runStatus)))))
	if m.watching {
		b.WriteString(fmt.Sprintf("Runs: %d\n", m.runs))
	}
	b.WriteString(fmt.Sprintf("Files: %d  Issues: %d  Sensitive: %d  Warnings: %d\n", m.files, m.issues, m.sensitive, m.warnings))
	b.WriteString(fmt.Sprintf("Elapsed: %s\n", m.elapsedString()))
	b.WriteString("\n")

	b.WriteString(m.render(headerStyle, fmt.Sprintf("%-16s %-8s %-8s", "Scope", "Files", "Issues")))
	b.WriteString("\n")
	for _, scope := range m.orderedScopes() {
		s := m.scopes[scope]
		line := fmt.Sprintf("%-16s %-8d %-8d", scope, s.Files, s.Issues)
		style := idleStyle
		if s.Issues > 0 {
			style = warnStyle
		}
		b.WriteString(m.render(style, line))
		b.WriteString("\n")
	}

	if m.showDetails {
		b.WriteString("\n")
		b.WriteString(m.render(headerStyle, "Recent Events"))
		b.WriteString("\n")
		if len(m.logLines) == 0 {
			b.WriteString(m.render(idleStyle, "No events yet."))
			b.WriteString("\n")
		} else {
			for _, line := range m.logLines {
				b.WriteString(m.render(styleSeverity(line.Severity), line.Text))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	switch {
	case m.watching:
		b.WriteString(m.render(helpStyle, "watching for changes, q to stop, d toggle details"))
	case m.done:
		b.WriteString(m.render(helpStyle, "Press q to close"))
	default:
		b.WriteString(m.render(helpStyle, "d toggle details"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *uiModel) applyEvent(e progress.Event) {
	switch e.Type {
	case progress.EventRunStarted:
		m.root = firstNonEmpty(e.Root, m.root)
		m.runStatus = "running"
		m.startedAt = e.At
		m.finishedAt = time.Time{}
		m.files, m.issues, m.sensitive, m.warnings = 0, 0, 0, 0
		m.scopes = make(map[string]scopeState)
		m.done = false
		m.runs++
		m.appendEventLine(e, "info", fmt.Sprintf("scan of %s started", valueOrDash(e.Root)))
	case progress.EventWatchTrigger:
		m.appendEventLine(e, "info", fmt.Sprintf("change detected: %s", valueOrDash(e.File)))
	case progress.EventRunWarning:
		m.warnings++
		m.appendEventLine(e, "warning", fmt.Sprintf("warning: %s", firstNonEmpty(e.Message, e.Error)))
	case progress.EventSensitive:
		m.sensitive++
		m.appendEventLine(e, "warning", fmt.Sprintf("sensitive file %s", e.File))
	case progress.EventFileScanned:
		m.files++
		m.issues += e.IssueCount
		m.lastFile = e.File
		if e.Scope != "" {
			s := m.scopes[e.Scope]
			s.Scope = e.Scope
			s.Files++
			s.Issues += e.IssueCount
			m.scopes[e.Scope] = s
		}
		if e.IssueCount > 0 {
			m.appendEventLine(e, "error", fmt.Sprintf("%s: %d issue(s)", e.File, e.IssueCount))
		}
	case progress.EventRunFinished:
		m.runStatus = firstNonEmpty(e.Status, "success")
		m.issues = e.IssueCount
		m.files = e.FileCount
		m.finishedAt = e.At
		m.lastFile = ""
		m.done = true
		msg := fmt.Sprintf("scan finished status=%s files=%d issues=%d duration=%s", m.runStatus, e.FileCount, e.IssueCount, durationString(e.DurationMS))
		if err := strings.TrimSpace(e.Error); err != "" {
			msg += " error=" + err
		}
		m.appendEventLine(e, statusSeverity(m.runStatus), msg)
	}
}

// orderedScopes lists scopes with issues first, then by name.
func (m uiModel) orderedScopes() []string {
	out := make([]string, 0, len(m.scopes))
	for scope := range m.scopes {
		out = append(out, scope)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := m.scopes[out[i]], m.scopes[out[j]]
		if (a.Issues > 0) != (b.Issues > 0) {
			return a.Issues > 0
		}
		return out[i] < out[j]
	})
	return out
}

func (m uiModel) elapsedString() string {
	if m.startedAt.IsZero() {
		return "0s"
	}
	end := time.Now().UTC()
	if !m.finishedAt.IsZero() {
		end = m.finishedAt
	}
	return end.Sub(m.startedAt).Round(time.Millisecond).String()
}

func (m *uiModel) appendEventLine(e progress.Event, severity, text string) {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	m.logLines = append(m.logLines, eventLine{
		Severity: severity,
		Text:     fmt.Sprintf("[%s] %s", ts.Local().Format("15:04:05"), strings.TrimSpace(text)),
	})
	if len(m.logLines) > maxEventLines {
		m.logLines = m.logLines[len(m.logLines)-maxEventLines:]
	}
}

func durationString(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func valueOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

func statusSeverity(status string) string {
	switch status {
	case "success":
		return "ok"
	case "cancelled", "timeout":
		return "warning"
	default:
		return "info"
	}
}

func styleStatus(status string) lipgloss.Style {
	return styleSeverity(statusSeverity(strings.ToLower(strings.TrimSpace(status))))
}

func styleSeverity(severity string) lipgloss.Style {
	switch severity {
	case "ok":
		return okStyle
	case "warning":
		return warnStyle
	case "error":
		return errorStyle
	case "running":
		return runningStyle
	default:
		return idleStyle
	}
}

func (m uiModel) render(style lipgloss.Style, s string) string {
	if m.plain {
		return s
	}
	return style.Render(s)
}

func (m uiModel) runningFrame() string {
	frames := []string{"-", "\\", "|", "/"}
	return frames[m.tick%len(frames)]
}

func noColorEnabled() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}
