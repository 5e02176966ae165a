package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedContext = errors.New("malformed context")

// EncodeContext renders a window as "lineno:text" rows joined by newlines.
func EncodeContext(lines []ContextLine) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(l.Line))
		b.WriteByte(':')
		b.WriteString(l.Text)
	}
	return b.String()
}

// DecodeContext parses the output of EncodeContext.
func DecodeContext(raw string) ([]ContextLine, error) {
	if raw == "" {
		return nil, nil
	}
	rows := strings.Split(raw, "\n")
	out := make([]ContextLine, 0, len(rows))
	for idx, row := range rows {
		num, text, ok := strings.Cut(row, ":")
		if !ok {
			return nil, fmt.Errorf("%w: row %d has no separator", ErrMalformedContext, idx+1)
		}
		n, err := strconv.Atoi(num)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: row %d has bad line number %q", ErrMalformedContext, idx+1, num)
		}
		out = append(out, ContextLine{Line: n, Text: text})
	}
	return out, nil
}
