package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/obfuscate"
	"github.com/baassets/pipeline/internal/schema"
)

// AESTablePassphrase is the PBKDF2 passphrase for GL/CN's AES-JSON table
// convenience path, keyed the same way as the password-zip paths: off the
// entry's own path, not a fixed secret.
func AESTablePassphrase(entry catalog.Entry) string {
	return filepath.Base(entry.Path)
}

// AESJSON decrypts a base64 AES-CBC blob (rawPath's contents) with
// obfuscate.AESDecrypt and writes the resulting JSON text to destDir,
// reusing internal/obfuscate's existing PBKDF2/AES-128-CBC chain rather
// than introducing a second crypto dependency for the same primitive.
func AESJSON(rawPath, destDir string, entry catalog.Entry) error {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return fmt.Errorf("extract: read %s: %w", rawPath, err)
	}

	plaintext, err := obfuscate.AESDecrypt(strings.TrimSpace(string(raw)), AESTablePassphrase(entry))
	if err != nil {
		return fmt.Errorf("extract: aes-json %s: %w", rawPath, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(entry.Path), filepath.Ext(entry.Path)) + ".json"
	return os.WriteFile(filepath.Join(destDir, name), []byte(plaintext), 0o644)
}

// Table dispatches a downloaded table entry to the right extraction path
// by file extension: .zip is a password-protected archive (zip.go),
// .db is a SQLite database (sqlitewalk.go), .bytes is a standalone
// flatbuffer payload (flatdispatch.go), and anything else is treated as
// the AES-JSON convenience format GL/CN ship some table groups in.
func Table(rawPath, destDir string, entry catalog.Entry, registry *schema.Registry) error {
	switch strings.ToLower(filepath.Ext(rawPath)) {
	case ".zip":
		return Zip(rawPath, destDir, TablePassword(rawPath), registry)
	case ".db":
		return SQLite(rawPath, destDir, registry)
	case ".bytes":
		return standaloneFlatBytes(rawPath, destDir, registry)
	default:
		return AESJSON(rawPath, destDir, entry)
	}
}

func standaloneFlatBytes(rawPath, destDir string, registry *schema.Registry) error {
	data, err := os.ReadFile(rawPath)
	if err != nil {
		return err
	}

	decoded, name, ok := dispatchFlatBytes(filepath.Base(rawPath), data, registry)
	if !ok {
		return fmt.Errorf("extract: no schema registered for %s", filepath.Base(rawPath))
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, name), decoded, 0o644)
}
