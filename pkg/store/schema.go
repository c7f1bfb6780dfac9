package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist. A database
// written by another schema version is rejected.
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	if err := createBlobsTable(db); err != nil {
		return fmt.Errorf("creating blobs table: %w", err)
	}

	if err := createMatchesTable(db); err != nil {
		return fmt.Errorf("creating matches table: %w", err)
	}

	if err := createProvenanceTable(db); err != nil {
		return fmt.Errorf("creating provenance table: %w", err)
	}

	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	var versions []int
	rows, err := db.Query("SELECT version FROM schema_version")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	switch {
	case len(versions) == 0:
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	case versions[0] != SchemaVersion:
		return fmt.Errorf("unsupported schema version %d (want %d)", versions[0], SchemaVersion)
	}

	return nil
}

func createBlobsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS blobs (
			id TEXT PRIMARY KEY NOT NULL,
			size INTEGER NOT NULL
		)
	`)
	return err
}

func createMatchesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			blob_id TEXT NOT NULL REFERENCES blobs(id),
			structural_id TEXT NOT NULL UNIQUE,
			class TEXT NOT NULL,
			method TEXT NOT NULL,
			descriptor TEXT NOT NULL,
			parameters_json TEXT NOT NULL,
			return_type TEXT,
			rule TEXT NOT NULL,
			save_return_value INTEGER NOT NULL DEFAULT 0,
			location TEXT
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_matches_class ON matches(class)
	`)
	return err
}

func createProvenanceTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS provenance (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			blob_id TEXT NOT NULL REFERENCES blobs(id),
			type TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			archive_path TEXT NOT NULL DEFAULT '',
			member_path TEXT NOT NULL DEFAULT '',
			UNIQUE(blob_id, type, path, archive_path, member_path)
		)
	`)
	if err != nil {
		return err
	}

	// Create index for efficient provenance lookup by blob_id
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_provenance_blob_id ON provenance(blob_id)
	`)
	return err
}
