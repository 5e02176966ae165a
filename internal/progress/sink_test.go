package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestChannelSinkEmitAddsTimestampAndForwardsEvent(t *testing.T) {
	ch := make(chan Event, 1)
	sink := NewChannelSink(ch)

	sink.Emit(Event{Type: EventRunStarted, Root: "/src"})

	select {
	case got := <-ch:
		if got.Type != EventRunStarted || got.Root != "/src" {
			t.Fatalf("unexpected event %+v", got)
		}
		if got.At.IsZero() {
			t.Fatal("expected timestamp to be auto-populated")
		}
		if got.At.Location() != time.UTC {
			t.Fatalf("expected UTC timestamp location, got %q", got.At.Location())
		}
	default:
		t.Fatal("expected event to be sent to channel")
	}
}

func TestChannelSinkEmitDropsOnBackpressureWithoutBlocking(t *testing.T) {
	const ciTimeout = 5 * time.Second

	ch := make(chan Event, 1)
	ch <- Event{Type: EventFileScanned, File: "a.py"}
	sink := NewChannelSink(ch)

	done := make(chan struct{})
	go func() {
		sink.Emit(Event{Type: EventFileScanned, File: "b.py"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(ciTimeout):
		t.Fatal("expected Emit to return without blocking on full channel")
	}

	if got := <-ch; got.File != "a.py" {
		t.Fatalf("expected original buffered event to remain, got %q", got.File)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected dropped event, but received %+v", extra)
	default:
	}
}

func TestPlainSinkEmitFormatsAndSkipsQuietEvents(t *testing.T) {
	var out bytes.Buffer
	sink := NewPlainSink(&out)
	at := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

	sink.Emit(Event{Type: EventRunWarning, Error: " read x: permission denied "})
	sink.Emit(Event{Type: EventFileScanned, At: at, File: "clean.py", Scope: "python"})
	sink.Emit(Event{Type: EventFileScanned, At: at, File: "app.py", Scope: "python", IssueCount: 2})
	sink.Emit(Event{
		Type:       EventRunFinished,
		At:         at,
		Status:     "success",
		FileCount:  4,
		IssueCount: 2,
		DurationMS: 17,
	})
	sink.Emit(Event{Type: EventWatchTrigger, At: at, File: "pkg/app.py"})
	sink.Emit(Event{Type: EventType("unknown")})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected four formatted lines, got %d: %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "warning: read x: permission denied") {
		t.Fatalf("expected warning fallback message in first line, got %q", lines[0])
	}
	if lines[1] != "[03:04:05] app.py (python) issues=2" {
		t.Fatalf("unexpected file line %q", lines[1])
	}
	const wantLast = "[03:04:05] scan finished status=success files=4 issues=2 duration=17ms"
	if lines[2] != wantLast {
		t.Fatalf("unexpected run-finished format:\nwant: %q\n got: %q", wantLast, lines[2])
	}
	if lines[3] != "[03:04:05] change detected: pkg/app.py" {
		t.Fatalf("unexpected watch line %q", lines[3])
	}
}
