// Package safefile places report outputs on disk without following
// symlinks planted at or above the target.
package safefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  fs.FileMode = 0o700
	filePerm fs.FileMode = 0o600
	tmpGlob              = ".kiwi-tmp-*"
)

// Target resolves path for writing. The parent directory is created when
// missing; a symlinked parent, a symlinked target or a directory at the
// target is refused. It returns the absolute target path.
func Target(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("output path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	parent := filepath.Dir(abs)
	if err := os.MkdirAll(parent, dirPerm); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	info, err := os.Lstat(parent)
	switch {
	case err != nil:
		return "", fmt.Errorf("stat output directory: %w", err)
	case info.Mode()&fs.ModeSymlink != 0:
		return "", fmt.Errorf("refusing symlinked output directory: %s", parent)
	case !info.IsDir():
		return "", fmt.Errorf("output parent is not a directory: %s", parent)
	}

	info, err = os.Lstat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return abs, nil
	case err != nil:
		return "", fmt.Errorf("stat output: %w", err)
	case info.Mode()&fs.ModeSymlink != 0:
		return "", fmt.Errorf("refusing symlinked output: %s", abs)
	case info.IsDir():
		return "", fmt.Errorf("output is a directory: %s", abs)
	}
	return abs, nil
}

// WriteFile replaces path with data, owner-readable only. Readers see
// either the old report or the complete new one.
func WriteFile(path string, data []byte) error {
	abs, err := Target(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), tmpGlob)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	name := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(name)
		}
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(filePerm)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", abs, err)
	}

	if err := os.Rename(name, abs); err != nil {
		return fmt.Errorf("replace %s: %w", abs, err)
	}
	committed = true
	return nil
}
