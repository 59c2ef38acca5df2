package extract

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/baassets/pipeline/internal/schema"
)

func newTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestListTablesExcludesSqliteInternalTables(t *testing.T) {
	dir := t.TempDir()
	db := newTestDB(t, filepath.Join(dir, "test.db"))

	if _, err := db.Exec(`CREATE TABLE ItemExcelTable (id INTEGER, name TEXT)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE TABLE CharacterDBSchema (id INTEGER, blob BLOB)`); err != nil {
		t.Fatal(err)
	}

	tables, err := listTables(db)
	if err != nil {
		t.Fatalf("listTables() error = %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("listTables() = %v, want 2 entries", tables)
	}
}

func TestWalkTableDecodesBlobViaRenamedSchema(t *testing.T) {
	dir := t.TempDir()
	db := newTestDB(t, filepath.Join(dir, "test.db"))

	if _, err := db.Exec(`CREATE TABLE CharacterDBSchema (id INTEGER, payload BLOB)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO CharacterDBSchema (id, payload) VALUES (1, ?)`, []byte("raw bytes")); err != nil {
		t.Fatal(err)
	}

	reg := schema.NewRegistry()
	reg.Register("CharacterExcel", echoDecoder{})

	rows, err := walkTable(db, "CharacterDBSchema", reg)
	if err != nil {
		t.Fatalf("walkTable() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("walkTable() returned %d rows, want 1", len(rows))
	}

	decoded, ok := rows[0]["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %#v, want decoded map (DBSchema->Excel rename should have resolved a decoder)", rows[0]["payload"])
	}
	if decoded["bytes"] != "raw bytes" {
		t.Errorf("decoded bytes = %v, want %q", decoded["bytes"], "raw bytes")
	}
}

func TestWalkTablePassesThroughBlobWithoutMatchingSchema(t *testing.T) {
	dir := t.TempDir()
	db := newTestDB(t, filepath.Join(dir, "test.db"))

	if _, err := db.Exec(`CREATE TABLE UnknownTable (id INTEGER, payload BLOB)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO UnknownTable (id, payload) VALUES (1, ?)`, []byte("untouched")); err != nil {
		t.Fatal(err)
	}

	reg := schema.NewRegistry()

	rows, err := walkTable(db, "UnknownTable", reg)
	if err != nil {
		t.Fatalf("walkTable() error = %v", err)
	}

	blob, ok := rows[0]["payload"].([]byte)
	if !ok || string(blob) != "untouched" {
		t.Errorf("payload = %#v, want raw bytes %q", rows[0]["payload"], "untouched")
	}
}

func TestSQLiteWritesOneJSONFilePerTable(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "CharacterData.db")
	db := newTestDB(t, dbPath)

	if _, err := db.Exec(`CREATE TABLE ItemExcelTable (id INTEGER, name TEXT)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO ItemExcelTable (id, name) VALUES (1, 'Potion')`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	destDir := filepath.Join(dir, "out")
	if err := SQLite(dbPath, destDir, schema.NewRegistry()); err != nil {
		t.Fatalf("SQLite() error = %v", err)
	}

	out, err := os.ReadFile(filepath.Join(destDir, "CharacterData", "ItemExcelTable.json"))
	if err != nil {
		t.Fatalf("reading table output: %v", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(out, &rows); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Potion" {
		t.Errorf("rows = %v, want one row with name Potion", rows)
	}
}
