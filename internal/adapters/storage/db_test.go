package storage

import (
	"database/sql"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// openTestDB creates a file-backed SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// getTableNames returns sorted table names from sqlite_master, excluding internal tables.
func getTableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// getTableSQL returns sorted CREATE statements from sqlite_master.
func getTableSQL(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT sql FROM sqlite_master WHERE name NOT LIKE 'sqlite_%' AND sql IS NOT NULL ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var sqls []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("failed to scan sql: %v", err)
		}
		sqls = append(sqls, strings.Join(strings.Fields(s), " "))
	}
	sort.Strings(sqls)
	return sqls
}

var expectedTables = []string{
	"account",
	"document",
	"outbox",
	"revoked_token",
	"schema_version",
}

// TestMigrateDB_Fresh verifies all migrations apply cleanly to an empty database.
func TestMigrateDB_Fresh(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB failed on fresh db: %v", err)
	}

	version, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != LatestSchemaVersion() {
		t.Errorf("version = %d, want %d", version, LatestSchemaVersion())
	}

	tables := getTableNames(t, db)
	if strings.Join(tables, ",") != strings.Join(expectedTables, ",") {
		t.Errorf("tables = %v, want %v", tables, expectedTables)
	}
}

// TestMigrateDB_Idempotent verifies that running MigrateDB twice changes nothing.
func TestMigrateDB_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateDB(db); err != nil {
		t.Fatalf("first MigrateDB failed: %v", err)
	}
	before := getTableSQL(t, db)
	version1, _ := SchemaVersion(db)

	if err := MigrateDB(db); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}
	version2, _ := SchemaVersion(db)
	if version1 != version2 {
		t.Errorf("version changed after idempotent run: %d -> %d", version1, version2)
	}
	after := getTableSQL(t, db)
	if strings.Join(before, "\n") != strings.Join(after, "\n") {
		t.Error("schema changed after idempotent run")
	}
}

// TestMigrateDB_DataSurvival verifies documents survive a re-run.
func TestMigrateDB_DataSurvival(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}
	_, err := db.Exec(`INSERT INTO document (collection, id, fields, created_at, updated_at)
		VALUES ('artifacts/t/profiles', 'u1', '{"role":"player"}', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB re-run failed: %v", err)
	}
	var role string
	if err := db.QueryRow(`SELECT json_extract(fields, '$.role') FROM document WHERE id = 'u1'`).Scan(&role); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if role != "player" {
		t.Errorf("role = %q, want player", role)
	}
}

// TestOpen_Memory verifies in-memory databases share one connection.
func TestOpen_Memory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB: %v", err)
	}
	if got := len(getTableNames(t, db)); got != len(expectedTables) {
		t.Errorf("got %d tables, want %d", got, len(expectedTables))
	}
}
