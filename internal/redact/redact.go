// Package redact masks credentials that scanned source lines tend to carry
// before they are rendered into reports.
package redact

import "regexp"

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Order matters: key-shaped tokens go before the generic assignment rule so
// the assignment rule never sees a half-masked value.
var rules = []rule{
	{regexp.MustCompile(`-----BEGIN [A-Z0-9 ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z0-9 ]*PRIVATE KEY-----`), "[REDACTED PRIVATE KEY]"},
	{regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://[^\s:/@'"]+:)([^\s@'"]+)(@)`), "${1}[REDACTED]${3}"},
	{regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/=-]{8,}`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`\b(A3T|AKIA|ASIA|AGPA|AIDA|ANPA|ANVA|AROA|AIPA)[0-9A-Z]{16}\b`), "[REDACTED_AWS_ACCESS_KEY]"},
	{regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`), "[REDACTED_GITHUB_TOKEN]"},
	{regexp.MustCompile(`\bxox[abposr]-[A-Za-z0-9-]{10,}`), "[REDACTED_SLACK_TOKEN]"},
	{regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{30,}`), "[REDACTED_GOOGLE_KEY]"},
	{regexp.MustCompile(`\b[sr]k[-_](?:live|test|proj|svcacct)[-_][A-Za-z0-9_-]{16,}`), "[REDACTED_API_KEY]"},
	{regexp.MustCompile(`(?i)\b([a-z0-9_]*(?:api[_-]?key|secret|token|password|passwd|pwd)[a-z0-9_]*)(\s*[:=]\s*)(["']?)([A-Za-z0-9._~+/=-]{8,})(["']?)`), `${1}${2}${3}[REDACTED]${5}`},
}

// Text masks secret-looking values in one piece of text.
func Text(in string) string {
	out := in
	for _, r := range rules {
		out = r.pattern.ReplaceAllString(out, r.replacement)
	}
	return out
}

func Strings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		out = append(out, Text(item))
	}
	return out
}
