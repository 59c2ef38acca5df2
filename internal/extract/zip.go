// Package extract implements the four extraction paths this pipeline
// uses: password-protected zip (media and some table archives),
// flatbuffer-bytes dispatch through an injected schema registry, a SQLite
// row walker for table databases, and an AES-JSON convenience path.
//
// github.com/alexmullins/zip is used here rather than the standard
// library's archive/zip: this package reads ZipCrypto password-protected
// archives, which archive/zip has no support for at all (it's not a
// stdlib-vs-library style choice, it's a hard capability gap). Ordinary,
// unencrypted application packages are read with stdlib archive/zip
// instead, in internal/region/zip_extract.go.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexmullins/zip"

	"github.com/baassets/pipeline/internal/obfuscate"
	"github.com/baassets/pipeline/internal/schema"
)

// MediaPassword returns the password for a media archive, keyed to the
// archive's own lower-cased file name, mirroring the reference clients'
// `zip_password(file_name.lower())`.
func MediaPassword(archivePath string) []byte {
	return obfuscate.ArchivePassword(strings.ToLower(filepath.Base(archivePath)))
}

// TablePassword returns the password for a table zip archive, keyed to
// the archive's file name without lower-casing, mirroring the reference
// clients' `zip_password(path.basename(file_name))`.
func TablePassword(archivePath string) []byte {
	return obfuscate.ArchivePassword(filepath.Base(archivePath))
}

// Zip extracts every entry of the password-protected archive at
// archivePath into destDir, preserving the archive's internal layout.
// Entries ending in .bytes are routed through dispatchFlatBytes so a
// flatbuffer payload lands as a JSON sidecar instead of raw bytes; every
// other entry is written verbatim.
func Zip(archivePath, destDir string, password []byte, registry *schema.Registry) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("extract: open %s: %w", archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("extract: mkdir %s: %w", destDir, err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.IsEncrypted() {
			f.SetPassword(string(password))
		}

		if err := extractZipEntry(f, destDir, registry); err != nil {
			return fmt.Errorf("extract: %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, destDir string, registry *schema.Registry) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	name := f.Name
	if strings.HasSuffix(name, ".bytes") && registry != nil {
		decoded, decodedName, ok := dispatchFlatBytes(name, data, registry)
		if ok {
			name = decodedName
			data = decoded
		}
	}

	outPath := filepath.Join(destDir, filepath.FromSlash(name))
	if !isWithinDir(destDir, outPath) {
		return fmt.Errorf("entry path escapes destination directory: %s", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

// isWithinDir reports whether path, once cleaned, is dir itself or a
// descendant of it, guarding against zip entries using ".." or an
// absolute path to escape the extraction directory.
func isWithinDir(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
