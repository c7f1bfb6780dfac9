package store

import (
	"database/sql"
	"fmt"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	BlobsMerged      int
	MatchesMerged    int
	ProvenanceMerged int
	SourcesProcessed int
}

// Merge combines multiple scan databases into one, e.g. one per module of a
// multi-module build. Deduplication is handled via INSERT OR IGNORE on
// primary and unique keys.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	destDB, err := sql.Open(driverName, cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer destDB.Close()

	if err := CreateSchema(destDB); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	stats := &MergeStats{}

	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(destDB, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.BlobsMerged += sourceStats.BlobsMerged
		stats.MatchesMerged += sourceStats.MatchesMerged
		stats.ProvenanceMerged += sourceStats.ProvenanceMerged
		stats.SourcesProcessed++
	}

	return stats, nil
}

// mergeFrom copies data from a source database to the destination.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	sourceDB, err := sql.Open(driverName, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer sourceDB.Close()

	if err := checkSchemaVersion(sourceDB); err != nil {
		return nil, err
	}

	stats := &MergeStats{}

	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if stats.BlobsMerged, err = copyRows(tx, sourceDB,
		"SELECT id, size FROM blobs",
		"INSERT OR IGNORE INTO blobs (id, size) VALUES (?, ?)", 2); err != nil {
		return nil, fmt.Errorf("merging blobs: %w", err)
	}

	if stats.MatchesMerged, err = copyRows(tx, sourceDB, `
		SELECT blob_id, structural_id, class, method, descriptor, parameters_json,
		       return_type, rule, save_return_value, location
		FROM matches ORDER BY id
	`, `
		INSERT OR IGNORE INTO matches
		(blob_id, structural_id, class, method, descriptor, parameters_json,
		 return_type, rule, save_return_value, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, 10); err != nil {
		return nil, fmt.Errorf("merging matches: %w", err)
	}

	if stats.ProvenanceMerged, err = copyRows(tx, sourceDB,
		"SELECT blob_id, type, path, archive_path, member_path FROM provenance ORDER BY id",
		"INSERT OR IGNORE INTO provenance (blob_id, type, path, archive_path, member_path) VALUES (?, ?, ?, ?, ?)",
		5); err != nil {
		return nil, fmt.Errorf("merging provenance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return stats, nil
}

func checkSchemaVersion(db *sql.DB) error {
	var version int
	if err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}
	return nil
}

// copyRows runs query on the source and insert on the destination for each
// row, counting rows that were actually inserted.
func copyRows(tx *sql.Tx, sourceDB *sql.DB, query, insert string, columns int) (int, error) {
	rows, err := sourceDB.Query(query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	stmt, err := tx.Prepare(insert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	values := make([]any, columns)
	ptrs := make([]any, columns)
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return count, err
		}
		result, err := stmt.Exec(values...)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}
