package intake

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var defaultSensitive = []string{
	`(^|/)id_(rsa|dsa|ecdsa|ed25519)$`,
	`(?i)\.(pem|key|p12|pfx|jks|keystore|kdbx|ppk)$`,
	`(^|/)\.env(\.[^/]+)?$`,
	`(^|/)\.(htpasswd|netrc|npmrc|pypirc|pgpass|git-credentials)$`,
	`(^|/)\.aws/credentials$`,
	`(?i)(^|/)(credentials|secrets?)\.(json|ya?ml|xml|ini|properties)$`,
	`(?i)\.(bak|old|swp|orig)$`,
	`(?i)\.(sql|sqlite3?|db)$`,
}

// DefaultSensitivePatterns returns the builtin sensitive filename patterns.
func DefaultSensitivePatterns() []*regexp.Regexp {
	out, err := compileSensitive(defaultSensitive)
	if err != nil {
		panic(err)
	}
	return out
}

// LoadSensitivePatterns reads a YAML file of the form `patterns: [regex, ...]`.
func LoadSensitivePatterns(path string) ([]*regexp.Regexp, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read sensitive patterns %s: %v", ErrConfiguration, path, err)
	}
	var raw struct {
		Patterns []string `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse sensitive patterns %s: %v", ErrConfiguration, path, err)
	}
	return compileSensitive(raw.Patterns)
}

func compileSensitive(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: sensitive pattern %d: %v", ErrConfiguration, i+1, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchSensitive(patterns []*regexp.Regexp, rel string) (string, bool) {
	for _, p := range patterns {
		if p.MatchString(rel) {
			return p.String(), true
		}
	}
	return "", false
}
