package feature

import (
	"fmt"
	"strings"
)

type LoadOptions struct {
	// OnlyIDs restricts loading to these feature IDs when non-empty.
	OnlyIDs []string
}

// Registry indexes compiled features by scope. It is read-only after Load.
type Registry struct {
	features []*Feature
	byScope  map[string][]*Feature
	scopes   []string
}

func Load(files []RuleFile, evaluators *Evaluators, opts LoadOptions) (*Registry, error) {
	allow := map[string]struct{}{}
	for _, id := range opts.OnlyIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			allow[id] = struct{}{}
		}
	}

	reg := &Registry{byScope: map[string][]*Feature{}}
	seen := map[string]string{}
	for _, file := range files {
		label := file.Name
		if label == "" {
			label = strings.Join(file.Scopes, ",")
		}
		if len(file.Scopes) == 0 {
			return nil, fmt.Errorf("%w: rule file %s declares no scopes", ErrConfiguration, label)
		}

		compiled := make([]*Feature, 0, len(file.Features))
		for _, def := range file.Features {
			if len(allow) > 0 {
				if _, ok := allow[strings.TrimSpace(def.ID)]; !ok {
					continue
				}
			}
			f, err := New(def, file.Scopes, evaluators)
			if err != nil {
				return nil, fmt.Errorf("rule file %s: %w", label, err)
			}
			if prev, dup := seen[f.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate feature ID %s in %s (first defined in %s)", ErrConfiguration, f.ID, label, prev)
			}
			seen[f.ID] = label
			compiled = append(compiled, f)
		}

		reg.features = append(reg.features, compiled...)
		for _, scope := range file.Scopes {
			scope = strings.TrimSpace(scope)
			if scope == "" {
				continue
			}
			if _, ok := reg.byScope[scope]; !ok {
				reg.scopes = append(reg.scopes, scope)
			}
			reg.byScope[scope] = append(reg.byScope[scope], compiled...)
		}
	}
	return reg, nil
}

// ForScope returns the features for scope, or nil when none are registered.
func (r *Registry) ForScope(scope string) []*Feature {
	if r == nil {
		return nil
	}
	return r.byScope[scope]
}

func (r *Registry) Scopes() []string {
	return append([]string(nil), r.scopes...)
}

func (r *Registry) Features() []*Feature {
	return append([]*Feature(nil), r.features...)
}

func (r *Registry) Len() int {
	return len(r.features)
}
