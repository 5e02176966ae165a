package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DirName        = ".kiwi"
	FileName       = "config.yaml"
	EnvPrefix      = "KIWI"
	maxConfigBytes = 1 << 20
)

// Config holds scan defaults. CLI flags override whatever is loaded here.
type Config struct {
	DataPath         string        `mapstructure:"data_path"`
	Extensions       []string      `mapstructure:"extensions"`
	IgnoreExtensions []string      `mapstructure:"ignore_extensions"`
	Excludes         []string      `mapstructure:"excludes"`
	FeatureIDs       []string      `mapstructure:"feature_ids"`
	ShowContext      int           `mapstructure:"show_context"`
	EvalContext      int           `mapstructure:"eval_context"`
	Workers          int           `mapstructure:"workers"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RespectGitignore bool          `mapstructure:"respect_gitignore"`
	SniffContent     bool          `mapstructure:"sniff_content"`
	Outputs          []string      `mapstructure:"outputs"`
	Verbose          bool          `mapstructure:"verbose"`
	Redact           bool          `mapstructure:"redact"`
	OpenGrokBase     string        `mapstructure:"opengrok_base"`
	WatchDebounce    time.Duration `mapstructure:"watch_debounce"`

	// Sources lists the config files that were merged, in order.
	Sources []string `mapstructure:"-"`
}

// FeatureDir holds user *.feature rule files.
func (c Config) FeatureDir() string { return filepath.Join(c.DataPath, "features") }

// FileMapPath is the optional scope table override.
func (c Config) FileMapPath() string { return filepath.Join(c.DataPath, "filemap.yaml") }

// SensitivePath is the optional sensitive-file pattern override.
func (c Config) SensitivePath() string { return filepath.Join(c.DataPath, "senfiles.yaml") }

func setDefaults(v *viper.Viper, home string) {
	dataPath := DirName
	if home != "" {
		dataPath = filepath.Join(home, DirName)
	}
	v.SetDefault("data_path", dataPath)
	v.SetDefault("extensions", []string{})
	v.SetDefault("ignore_extensions", []string{})
	v.SetDefault("excludes", []string{})
	v.SetDefault("feature_ids", []string{})
	v.SetDefault("show_context", 2)
	v.SetDefault("eval_context", 10)
	v.SetDefault("workers", 1)
	v.SetDefault("timeout", "0s")
	v.SetDefault("respect_gitignore", true)
	v.SetDefault("sniff_content", true)
	v.SetDefault("outputs", []string{})
	v.SetDefault("verbose", false)
	v.SetDefault("redact", false)
	v.SetDefault("opengrok_base", "")
	v.SetDefault("watch_debounce", "500ms")
}

// Load reads config from layered sources, later ones winning per key:
//  1. built-in defaults
//  2. ~/.kiwi/config.yaml (global)
//  3. ./.kiwi/config.yaml (project-local)
//  4. explicitPath, when given (must exist)
//  5. KIWI_* environment variables, e.g. KIWI_DATA_PATH
//
// Missing global/local files are silently ignored.
func Load(explicitPath string) (Config, error) {
	home, _ := os.UserHomeDir()
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, home)

	var sources []string
	layer := func(path string, required bool) error {
		data, err := readFile(path)
		if err != nil {
			if os.IsNotExist(err) && !required {
				return nil
			}
			return err
		}
		sources = append(sources, path)
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	if home != "" {
		p := filepath.Join(home, DirName, FileName)
		if err := layer(p, false); err != nil {
			return Config{}, fmt.Errorf("load global config %s: %w", p, err)
		}
	}
	if cwd, _ := os.Getwd(); cwd != "" {
		p := filepath.Join(cwd, DirName, FileName)
		if err := layer(p, false); err != nil {
			return Config{}, fmt.Errorf("load local config %s: %w", p, err)
		}
	}
	if strings.TrimSpace(explicitPath) != "" {
		if err := layer(explicitPath, true); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", explicitPath, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DataPath = expandHome(cfg.DataPath, home)
	cfg.Sources = sources
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.ShowContext < 0:
		return fmt.Errorf("show_context must be >= 0, got %d", c.ShowContext)
	case c.EvalContext < 0:
		return fmt.Errorf("eval_context must be >= 0, got %d", c.EvalContext)
	case c.Workers < 1:
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	case c.Timeout < 0:
		return fmt.Errorf("timeout must be >= 0, got %s", c.Timeout)
	case c.WatchDebounce < 0:
		return fmt.Errorf("watch_debounce must be >= 0, got %s", c.WatchDebounce)
	}
	return nil
}

// readFile refuses symlinks and files over maxConfigBytes.
func readFile(path string) ([]byte, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("refusing symlinked config file")
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("config path is not a regular file")
	}
	if info.Size() > maxConfigBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxConfigBytes)
	}
	return os.ReadFile(path)
}

func expandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
