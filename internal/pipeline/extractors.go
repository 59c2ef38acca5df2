package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/extract"
	"github.com/baassets/pipeline/internal/schema"
)

// extractMediaZip unpacks a downloaded, password-protected media archive
// into destDir/<zipname>/..., zipname being the archive's base name
// without its extension.
func extractMediaZip(rawPath, destDir string, registry *schema.Registry) error {
	zipName := strings.TrimSuffix(filepath.Base(rawPath), filepath.Ext(rawPath))
	return extract.Zip(rawPath, filepath.Join(destDir, zipName), extract.MediaPassword(rawPath), registry)
}

// extractTable decodes a downloaded table archive, flatbuffer payload, or
// AES-JSON convenience file under destDir. Only a SQLite database gets a
// per-group folder (destDir/<dbname>/<table>.json); a zip archive keeps its
// internal layout under destDir, and a standalone .bytes or AES-JSON file
// is written directly as destDir/<name>.json.
func extractTable(rawPath, destDir string, entry catalog.Entry, registry *schema.Registry) error {
	return extract.Table(rawPath, destDir, entry, registry)
}
