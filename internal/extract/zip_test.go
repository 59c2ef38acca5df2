package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alexmullins/zip"
)

func TestMediaPasswordLowercasesBasename(t *testing.T) {
	got := MediaPassword("/data/Raw/Voice_Pack.ZIP")
	want := MediaPassword("/other/voice_pack.zip")
	if string(got) != string(want) {
		t.Errorf("MediaPassword is not basename-and-case-insensitive: %q vs %q", got, want)
	}
}

func TestTablePasswordDoesNotLowercase(t *testing.T) {
	upper := TablePassword("/data/Raw/CharacterTable.zip")
	lower := TablePassword("/data/Raw/charactertable.zip")
	if string(upper) == string(lower) {
		t.Error("TablePassword should be case-sensitive on the archive's basename")
	}
}

func TestZipExtractsEncryptedEntry(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.zip")
	password := string(MediaPassword(archivePath))

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	entryWriter, err := w.Encrypt("payload.txt", password)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if _, err := entryWriter.Write([]byte("inner contents")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	destDir := filepath.Join(dir, "out")
	if err := Zip(archivePath, destDir, MediaPassword(archivePath), nil); err != nil {
		t.Fatalf("Zip() failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "payload.txt"))
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if string(got) != "inner contents" {
		t.Errorf("extracted content = %q, want %q", got, "inner contents")
	}
}
