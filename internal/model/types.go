package model

import (
	"fmt"
	"strings"
)

// Level is the weighted enumeration shared by severity and confidence.
// Higher weights always outrank lower ones.
type Level int

const (
	Info   Level = 1
	Low    Level = 10
	Medium Level = 100
	High   Level = 1000
)

// Levels returns every defined level from the highest weight to the lowest.
func Levels() []Level {
	return []Level{High, Medium, Low, Info}
}

func (l Level) Valid() bool {
	switch l {
	case High, Medium, Low, Info:
		return true
	default:
		return false
	}
}

func (l Level) String() string {
	switch l {
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	case Info:
		return "Info"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel maps a level name (case-insensitive) to its weight.
func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return High, nil
	case "medium":
		return Medium, nil
	case "low":
		return Low, nil
	case "info":
		return Info, nil
	default:
		return 0, fmt.Errorf("unknown level %q (want high|medium|low|info)", raw)
	}
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ContextLine is one numbered source line of a match window.
type ContextLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Issue is a confirmed finding. Issues are never mutated once recorded.
type Issue struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Scope      string        `json:"scope,omitempty"`
	Severity   Level         `json:"severity"`
	Confidence Level         `json:"confidence"`
	References []string      `json:"references,omitempty"`
	Pattern    string        `json:"pattern"`
	Filename   string        `json:"filename"`
	Line       int           `json:"line"`
	Context    []ContextLine `json:"context,omitempty"`
}

// Status is the review mark a persisted report keeps per issue.
type Status int

const (
	StatusFalsePositive Status = 1
	StatusOld           Status = 10
	StatusNew           Status = 100
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusOld:
		return "old"
	case StatusFalsePositive:
		return "false-positive"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "new":
		return StatusNew, nil
	case "old":
		return StatusOld, nil
	case "false-positive", "falsepositive", "falsep", "fp":
		return StatusFalsePositive, nil
	default:
		return 0, fmt.Errorf("unknown status %q (want new|old|false-positive)", raw)
	}
}
