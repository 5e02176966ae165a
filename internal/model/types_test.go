package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestLevelsAreStrictlyOrdered(t *testing.T) {
	levels := Levels()
	if len(levels) != 4 {
		t.Fatalf("expected 4 levels, got %d", len(levels))
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] >= levels[i-1] {
			t.Fatalf("level %s (%d) must weigh less than %s (%d)", levels[i], levels[i], levels[i-1], levels[i-1])
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"High", High, false},
		{"medium", Medium, false},
		{" LOW ", Low, false},
		{"info", Info, false},
		{"critical", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIssueJSONUsesLevelNames(t *testing.T) {
	issue := Issue{
		ID:         "PY_CMD_INJECT_0001",
		Name:       "command injection",
		Severity:   High,
		Confidence: Medium,
		Pattern:    `os\.system`,
		Filename:   "app.py",
		Line:       1,
	}
	payload, err := json.Marshal(issue)
	if err != nil {
		t.Fatalf("marshal issue: %v", err)
	}
	got := string(payload)
	for _, want := range []string{`"severity":"High"`, `"confidence":"Medium"`, `"line":1`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}

	var back Issue
	if err := json.Unmarshal(payload, &back); err != nil {
		t.Fatalf("unmarshal issue: %v", err)
	}
	if back.Severity != High || back.Confidence != Medium {
		t.Fatalf("levels lost in JSON: %+v", back)
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("fp"); err != nil || s != StatusFalsePositive {
		t.Fatalf("expected false positive, got %v %v", s, err)
	}
	if _, err := ParseStatus("maybe"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestContextRoundTrip(t *testing.T) {
	lines := []ContextLine{
		{Line: 3, Text: "import subprocess"},
		{Line: 4, Text: ""},
		{Line: 5, Text: "subprocess.check_output(cmd, shell=True)  # a:b:c"},
		{Line: 6, Text: "\tprint(out)\r"},
	}
	encoded := EncodeContext(lines)
	if !strings.HasPrefix(encoded, "3:import subprocess\n4:\n5:") {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	decoded, err := DecodeContext(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, lines) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", decoded, lines)
	}
}

func TestDecodeContextEmptyAndMalformed(t *testing.T) {
	got, err := DecodeContext("")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty window, got %v %v", got, err)
	}
	if _, err := DecodeContext("12 no separator"); !errors.Is(err, ErrMalformedContext) {
		t.Fatalf("expected ErrMalformedContext, got %v", err)
	}
	if _, err := DecodeContext("x:text"); !errors.Is(err, ErrMalformedContext) {
		t.Fatalf("expected ErrMalformedContext for bad number, got %v", err)
	}
}
