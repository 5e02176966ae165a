package feature

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const FileExt = ".feature"

// ReadFile parses one YAML rule file.
func ReadFile(path string) (RuleFile, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return RuleFile{}, fmt.Errorf("read rule file %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return RuleFile{}, fmt.Errorf("%w: refusing symlinked rule file %s", ErrConfiguration, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return RuleFile{}, fmt.Errorf("read rule file %s: %w", path, err)
	}
	return ParseRuleFile(filepath.Base(path), b)
}

func ParseRuleFile(name string, data []byte) (RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return RuleFile{}, fmt.Errorf("%w: parse rule file %s: %v", ErrConfiguration, name, err)
	}
	rf.Name = name
	return rf, nil
}

// LoadDir reads every *.feature file in dir, sorted by name.
func LoadDir(dir string) ([]RuleFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read feature dir %s: %v", ErrConfiguration, dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FileExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]RuleFile, 0, len(names))
	for _, name := range names {
		rf, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, nil
}
