package region

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractZipFiltered copies every entry of the zip at zipPath whose name
// contains keyword into destDir, preserving the entry's relative path. It
// returns the destination paths written. Both CN and JP packages are
// ordinary (non-encrypted) zip archives — the Android package format —
// so this uses the standard library's archive/zip rather than the
// password-aware reader reserved for obfuscated table/media archives.
func extractZipFiltered(zipPath, destDir, keyword string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("region: open zip %s: %w", zipPath, err)
	}
	defer r.Close()

	var written []string
	for _, f := range r.File {
		if !strings.Contains(f.Name, keyword) {
			continue
		}
		if f.FileInfo().IsDir() {
			continue
		}

		outPath := filepath.Join(destDir, f.Name)
		if !isWithinDir(destDir, outPath) {
			return nil, fmt.Errorf("region: entry path escapes destination directory: %s", f.Name)
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return nil, err
		}

		if err := copyZipEntry(f, outPath); err != nil {
			return nil, err
		}
		written = append(written, outPath)
	}

	return written, nil
}

// isWithinDir reports whether path, once cleaned, is dir itself or a
// descendant of it, guarding against zip entries using ".." or an
// absolute path to escape the extraction directory.
func isWithinDir(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

func copyZipEntry(f *zip.File, outPath string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
