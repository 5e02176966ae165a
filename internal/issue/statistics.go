package issue

import (
	"encoding/json"

	"github.com/alpha1e0/kiwi/internal/model"
)

// Bucket is the issue count for one severity.
type Bucket struct {
	Severity model.Level `json:"severity"`
	Count    int         `json:"count"`
}

// Statistics lists one bucket per level, High first.
type Statistics []Bucket

func Summarize(issues []model.Issue) Statistics {
	counts := map[model.Level]int{}
	for _, issue := range issues {
		counts[issue.Severity]++
	}
	levels := model.Levels()
	out := make(Statistics, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, Bucket{Severity: lvl, Count: counts[lvl]})
	}
	return out
}

func (s Statistics) Count(level model.Level) int {
	for _, b := range s {
		if b.Severity == level {
			return b.Count
		}
	}
	return 0
}

func (s Statistics) Total() int {
	total := 0
	for _, b := range s {
		total += b.Count
	}
	return total
}

// MarshalJSON renders the buckets as an ordered list of {severity, count}.
func (s Statistics) MarshalJSON() ([]byte, error) {
	if s == nil {
		s = Statistics{}
	}
	return json.Marshal([]Bucket(s))
}
