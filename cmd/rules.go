package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/alpha1e0/kiwi/internal/config"
	"github.com/alpha1e0/kiwi/internal/feature"
	"github.com/alpha1e0/kiwi/internal/intake"
)

// loadRuleFiles returns the rules to scan with. An explicit feature
// directory replaces the builtins; otherwise any *.feature files under the
// data path are added to them.
func loadRuleFiles(cfg config.Config, featureDir string) ([]feature.RuleFile, error) {
	if strings.TrimSpace(featureDir) != "" {
		return feature.LoadDir(featureDir)
	}
	files := feature.Builtins()
	dir := cfg.FeatureDir()
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return files, nil
		}
		return nil, fmt.Errorf("feature dir %s: %w", dir, err)
	}
	extra, err := feature.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return append(files, extra...), nil
}

// walkerTables loads filemap.yaml and senfiles.yaml from the data path when
// present. Nil results select the builtin tables.
func walkerTables(cfg config.Config) (*intake.FileMap, []*regexp.Regexp, error) {
	var (
		fm  *intake.FileMap
		sen []*regexp.Regexp
		err error
	)
	if path := cfg.FileMapPath(); exists(path) {
		if fm, err = intake.LoadFileMap(path); err != nil {
			return nil, nil, err
		}
	}
	if path := cfg.SensitivePath(); exists(path) {
		if sen, err = intake.LoadSensitivePatterns(path); err != nil {
			return nil, nil, err
		}
	}
	return fm, sen, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandIDs accepts IDs separated by commas or whitespace. An "@path" entry
// reads more IDs from that file, one or more per line.
func expandIDs(values []string) ([]string, error) {
	var out []string
	seen := map[string]struct{}{}
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, v := range values {
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			if !strings.HasPrefix(part, "@") {
				add(part)
				continue
			}
			ids, err := readIDFile(strings.TrimPrefix(part, "@"))
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				add(id)
			}
		}
	}
	return out, nil
}

func readIDFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read feature IDs: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read feature IDs %s: %w", path, err)
	}
	return out, nil
}
