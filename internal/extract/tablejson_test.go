package extract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/obfuscate"
	"github.com/baassets/pipeline/internal/schema"
)

func TestAESJSONRoundTrip(t *testing.T) {
	entry := catalog.Entry{Path: "Sub/ItemTable.json"}
	plaintext := `{"id":1,"name":"Potion"}`

	ciphertext, err := obfuscate.AESEncrypt(plaintext, AESTablePassphrase(entry))
	if err != nil {
		t.Fatalf("AESEncrypt() error = %v", err)
	}

	dir := t.TempDir()
	rawPath := filepath.Join(dir, "ItemTable.raw")
	if err := os.WriteFile(rawPath, []byte(ciphertext), 0o644); err != nil {
		t.Fatal(err)
	}

	destDir := filepath.Join(dir, "out")
	if err := AESJSON(rawPath, destDir, entry); err != nil {
		t.Fatalf("AESJSON() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "ItemTable.json"))
	if err != nil {
		t.Fatalf("reading decrypted output: %v", err)
	}
	if string(got) != plaintext {
		t.Errorf("decrypted content = %q, want %q", got, plaintext)
	}
}

func TestTableDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	destDir := filepath.Join(dir, "out")

	entry := catalog.Entry{Path: "Sub/CharacterExcel.bytes"}
	reg := schema.NewRegistry()
	reg.Register("CharacterExcel", echoDecoder{})

	rawPath := filepath.Join(dir, "CharacterExcel.bytes")
	if err := os.WriteFile(rawPath, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Table(rawPath, destDir, entry, reg); err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	out, err := os.ReadFile(filepath.Join(destDir, "CharacterExcel.json"))
	if err != nil {
		t.Fatalf("reading dispatched output: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["bytes"] != "payload" {
		t.Errorf("decoded bytes = %v, want payload", decoded["bytes"])
	}
}

func TestTableDefaultsToAESJSONForUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	entry := catalog.Entry{Path: "Sub/SkillTable.dat"}
	plaintext := `{"skills":[]}`

	ciphertext, err := obfuscate.AESEncrypt(plaintext, AESTablePassphrase(entry))
	if err != nil {
		t.Fatalf("AESEncrypt() error = %v", err)
	}

	rawPath := filepath.Join(dir, "SkillTable.dat")
	if err := os.WriteFile(rawPath, []byte(ciphertext), 0o644); err != nil {
		t.Fatal(err)
	}

	destDir := filepath.Join(dir, "out")
	if err := Table(rawPath, destDir, entry, nil); err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "SkillTable.json"))
	if err != nil {
		t.Fatalf("reading decrypted output: %v", err)
	}
	if string(got) != plaintext {
		t.Errorf("decrypted content = %q, want %q", got, plaintext)
	}
}
