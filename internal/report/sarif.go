package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/version"
)

// SARIF v2.1.0, the subset code-scanning services consume.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri"`
	Version        string      `json:"version"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name,omitempty"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	HelpURI          string              `json:"helpUri,omitempty"`
	DefaultConfig    *sarifDefaultConfig `json:"defaultConfiguration,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string           `json:"ruleId"`
	Level      string           `json:"level"`
	Message    sarifMessage     `json:"message"`
	Locations  []sarifLocation  `json:"locations,omitempty"`
	Properties *sarifProperties `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int           `json:"startLine"`
	Snippet   *sarifMessage `json:"snippet,omitempty"`
}

type sarifProperties struct {
	Severity   string `json:"severity"`
	Confidence string `json:"confidence"`
	Scope      string `json:"scope,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
}

func RenderSARIF(r Report) ([]byte, error) {
	b, err := json.MarshalIndent(buildSARIF(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sarif report: %w", err)
	}
	return append(b, '\n'), nil
}

func buildSARIF(r Report) sarifLog {
	ruleIndex := map[string]int{}
	rules := []sarifRule{}
	results := []sarifResult{}

	for _, i := range r.Issues {
		if _, seen := ruleIndex[i.ID]; !seen {
			ruleIndex[i.ID] = len(rules)
			rule := sarifRule{
				ID:               i.ID,
				Name:             i.Name,
				ShortDescription: sarifMessage{Text: i.Name},
				DefaultConfig:    &sarifDefaultConfig{Level: sarifLevel(i.Severity)},
			}
			if len(i.References) > 0 {
				rule.HelpURI = i.References[0]
			}
			rules = append(rules, rule)
		}

		loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: filepath.ToSlash(r.displayPath(i.Filename))},
		}}
		if i.Line > 0 {
			region := &sarifRegion{StartLine: i.Line}
			for _, l := range i.Context {
				if l.Line == i.Line {
					region.Snippet = &sarifMessage{Text: l.Text}
				}
			}
			loc.PhysicalLocation.Region = region
		}

		results = append(results, sarifResult{
			RuleID:    i.ID,
			Level:     sarifLevel(i.Severity),
			Message:   sarifMessage{Text: i.Name},
			Locations: []sarifLocation{loc},
			Properties: &sarifProperties{
				Severity:   i.Severity.String(),
				Confidence: i.Confidence.String(),
				Scope:      i.Scope,
				Pattern:    i.Pattern,
			},
		})
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "kiwi",
					InformationURI: "https://github.com/alpha1e0/kiwi",
					Version:        version.Version,
					Rules:          rules,
				},
			},
			Results: results,
		}},
	}
}

func sarifLevel(l model.Level) string {
	switch l {
	case model.High:
		return "error"
	case model.Medium:
		return "warning"
	default:
		return "note"
	}
}
