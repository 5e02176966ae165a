package progress

import "time"

type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventRunWarning   EventType = "run_warning"
	EventFileScanned  EventType = "file_scanned"
	EventSensitive    EventType = "sensitive_file"
	EventRunFinished  EventType = "run_finished"
	EventWatchTrigger EventType = "watch_triggered"
)

type Event struct {
	Type       EventType `json:"type"`
	At         time.Time `json:"at"`
	Root       string    `json:"root,omitempty"`
	File       string    `json:"file,omitempty"`
	Scope      string    `json:"scope,omitempty"`
	Status     string    `json:"status,omitempty"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	IssueCount int       `json:"issue_count,omitempty"`
	FileCount  int       `json:"file_count,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
}
