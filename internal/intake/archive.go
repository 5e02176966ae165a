package intake

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxCompressionRatio = 100
	dirPerm             = 0o700
	filePerm            = 0o600
)

// ArchiveLimits bound what ExtractArchive will write.
type ArchiveLimits struct {
	MaxFiles      int
	MaxBytes      int64
	MaxEntryBytes int64
}

func DefaultArchiveLimits() ArchiveLimits {
	return ArchiveLimits{
		MaxFiles:      50000,
		MaxBytes:      2 << 30,
		MaxEntryBytes: 256 << 20,
	}
}

// IsArchive reports whether path names a zip archive that can be scanned.
func IsArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// ExtractArchive unpacks the zip at zipPath into dest so it can be walked.
// Entries that escape dest, symlinks, VCS directories and suspiciously
// compressed entries are rejected before anything is written.
func ExtractArchive(ctx context.Context, zipPath, dest string, limits ArchiveLimits) (int, error) {
	if limits.MaxFiles <= 0 || limits.MaxBytes <= 0 {
		limits = DefaultArchiveLimits()
	}
	if limits.MaxEntryBytes <= 0 {
		limits.MaxEntryBytes = limits.MaxBytes
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("%w: open archive %s: %v", ErrConfiguration, zipPath, err)
	}
	defer func() { _ = r.Close() }()

	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return 0, fmt.Errorf("resolve destination: %w", err)
	}

	var projected int64
	files := 0
	for _, f := range r.File {
		name, err := cleanArchiveEntryName(f.Name)
		if err != nil {
			return 0, err
		}
		if name == "" || f.FileInfo().IsDir() || hasVCSComponent(name) {
			continue
		}
		size := f.UncompressedSize64
		if size > uint64(limits.MaxEntryBytes) {
			return 0, fmt.Errorf("archive entry %s exceeds size limit: %d > %d", name, size, limits.MaxEntryBytes)
		}
		if f.CompressedSize64 > 0 && size/f.CompressedSize64 > maxCompressionRatio {
			return 0, fmt.Errorf("archive entry %s has suspicious compression ratio %d:1", name, size/f.CompressedSize64)
		}
		files++
		projected += int64(size)
		if files > limits.MaxFiles {
			return 0, fmt.Errorf("archive file count exceeds limit: %d", limits.MaxFiles)
		}
		if projected > limits.MaxBytes {
			return 0, fmt.Errorf("archive size exceeds limit: %d > %d", projected, limits.MaxBytes)
		}
	}

	extracted := 0
	var written int64
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return extracted, err
		}
		name, _ := cleanArchiveEntryName(f.Name)
		if name == "" || hasVCSComponent(name) || f.Mode()&os.ModeSymlink != 0 {
			continue
		}
		target, err := archiveTargetPath(destAbs, name)
		if err != nil {
			return extracted, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return extracted, fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}
		n, err := extractEntry(f, target, limits.MaxBytes-written)
		if err != nil {
			return extracted, fmt.Errorf("extract %s: %w", name, err)
		}
		written += n
		extracted++
	}
	return extracted, nil
}

func extractEntry(f *zip.File, target string, budget int64) (int64, error) {
	if budget < 0 {
		return 0, fmt.Errorf("archive size budget exhausted")
	}
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return 0, err
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return 0, err
	}
	defer func() { _ = dst.Close() }()

	n, err := io.Copy(dst, &io.LimitedReader{R: rc, N: budget + 1})
	if err != nil {
		return n, err
	}
	if n > budget {
		_ = os.Remove(target)
		return n, fmt.Errorf("archive size exceeds limit while extracting")
	}
	return n, nil
}

func cleanArchiveEntryName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimPrefix(name, "./")
	if name == "" {
		return "", nil
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", fmt.Errorf("archive contains absolute path: %s", name)
	}
	clean := filepath.ToSlash(filepath.Clean(name))
	if clean == "." {
		return "", nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("archive contains unsafe relative path: %s", name)
	}
	return clean, nil
}

func archiveTargetPath(root, rel string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(rel))
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("archive path escapes destination: %s", rel)
	}
	return target, nil
}

func hasVCSComponent(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if _, ok := vcsDirNames[part]; ok {
			return true
		}
	}
	return false
}
