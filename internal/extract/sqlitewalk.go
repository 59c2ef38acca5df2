package extract

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/baassets/pipeline/internal/schema"
)

// SQLite walks every table in the database at dbPath and writes one JSON
// file per table under destDir, decoding any BLOB column whose bytes the
// registry can resolve by the table's name (with a DBSchema->Excel
// rename, matching the reference clients' naming convention) into the
// same flatbuffer dispatch the zip path uses.
//
// modernc.org/sqlite, a pure-Go driver, is used here since cgo is
// unavailable, ruling out mattn/go-sqlite3.
func SQLite(dbPath, destDir string, registry *schema.Registry) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("extract: open sqlite %s: %w", dbPath, err)
	}
	defer db.Close()

	tables, err := listTables(db)
	if err != nil {
		return fmt.Errorf("extract: list tables: %w", err)
	}

	for _, table := range tables {
		rows, err := walkTable(db, table, registry)
		if err != nil {
			return fmt.Errorf("extract: walk table %s: %w", table, err)
		}

		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}

		dbName := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
		outDir := filepath.Join(destDir, dbName)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(outDir, table+".json"), out, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func listTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// walkTable reads every row of table and returns one map per row, keyed
// by column name. BLOB columns are decoded through the schema registry
// when a matching flatbuffer schema exists; every other column is passed
// through as-is.
func walkTable(db *sql.DB, table string, registry *schema.Registry) ([]map[string]any, error) {
	rows, err := db.Query(`SELECT * FROM "` + table + `"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	schemaName := strings.Replace(table, "DBSchema", "Excel", 1)

	var out []map[string]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = decodeCellValue(schemaName, raw[i], registry)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func decodeCellValue(schemaName string, value any, registry *schema.Registry) any {
	blob, ok := value.([]byte)
	if !ok {
		return value
	}

	decoder, ok := registry.Lookup(schemaName)
	if !ok {
		return blob
	}
	decoded, err := decoder.Decode(blob)
	if err != nil {
		return blob
	}
	return decoded
}
