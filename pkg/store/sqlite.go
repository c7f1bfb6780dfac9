package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/korniloval/fierix/pkg/types"
	_ "modernc.org/sqlite"
)

// driverName is the database/sql driver registered by modernc.org/sqlite.
const driverName = "sqlite"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
// Use ":memory:" for in-memory database (useful for testing).
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: scanner workers write concurrently, and each
	// ":memory:" connection would otherwise see its own database.
	db.SetMaxOpenConns(1)

	// Initialize schema
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddBlob stores a blob record.
func (s *SQLiteStore) AddBlob(id types.BlobID, size int64) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO blobs (id, size) VALUES (?, ?)", id.Hex(), size)
	if err != nil {
		return fmt.Errorf("inserting blob: %w", err)
	}
	return nil
}

// BlobExists checks if a blob has already been scanned.
func (s *SQLiteStore) BlobExists(id types.BlobID) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM blobs WHERE id = ?", id.Hex()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking blob existence: %w", err)
	}
	return count > 0, nil
}

// AddProvenance associates provenance with a blob.
func (s *SQLiteStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	var path, archivePath, memberPath string

	switch p := prov.(type) {
	case types.FileProvenance:
		path = p.FilePath
	case types.ArchiveProvenance:
		path = p.Path()
		archivePath = p.ArchivePath
		memberPath = p.MemberPath
	default:
		return fmt.Errorf("unknown provenance type: %T", prov)
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO provenance (blob_id, type, path, archive_path, member_path)
		VALUES (?, ?, ?, ?, ?)
	`,
		blobID.Hex(),
		prov.Kind(),
		path,
		archivePath,
		memberPath,
	)
	if err != nil {
		return fmt.Errorf("inserting provenance: %w", err)
	}

	return nil
}

// GetProvenance retrieves every provenance recorded for a blob.
func (s *SQLiteStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	rows, err := s.db.Query(`
		SELECT type, path, archive_path, member_path
		FROM provenance
		WHERE blob_id = ?
		ORDER BY id
	`, blobID.Hex())
	if err != nil {
		return nil, fmt.Errorf("querying provenance: %w", err)
	}
	defer rows.Close()

	provs := []types.Provenance{}
	for rows.Next() {
		var kind, path, archivePath, memberPath string
		if err := rows.Scan(&kind, &path, &archivePath, &memberPath); err != nil {
			return nil, fmt.Errorf("scanning provenance: %w", err)
		}

		switch kind {
		case "file":
			provs = append(provs, types.FileProvenance{FilePath: path})
		case "archive":
			provs = append(provs, types.ArchiveProvenance{ArchivePath: archivePath, MemberPath: memberPath})
		default:
			return nil, fmt.Errorf("unknown provenance type %q", kind)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating provenance: %w", err)
	}

	return provs, nil
}

// AddMatch stores a match record.
func (s *SQLiteStore) AddMatch(m *types.Match) error {
	paramsJSON, err := json.Marshal(m.Method.Parameters)
	if err != nil {
		return fmt.Errorf("marshaling parameters: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO matches
		(blob_id, structural_id, class, method, descriptor, parameters_json, return_type, rule, save_return_value, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.BlobID.Hex(),
		m.StructuralID,
		m.Method.Class,
		m.Method.Name,
		m.Method.Descriptor,
		string(paramsJSON),
		m.Method.ReturnType,
		m.Rule,
		m.SaveReturnValue,
		m.Location,
	)
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}

	return nil
}

const selectMatches = `
	SELECT blob_id, structural_id, class, method, descriptor, parameters_json,
	       return_type, rule, save_return_value, location
	FROM matches
`

// GetMatches retrieves matches for a blob.
func (s *SQLiteStore) GetMatches(blobID types.BlobID) ([]*types.Match, error) {
	return s.queryMatches(selectMatches+"WHERE blob_id = ? ORDER BY id", blobID.Hex())
}

// GetAllMatches retrieves all matches ordered by class and method.
func (s *SQLiteStore) GetAllMatches() ([]*types.Match, error) {
	return s.queryMatches(selectMatches + "ORDER BY class, method, descriptor, id")
}

// GetMatchesForClass retrieves matches of one class.
func (s *SQLiteStore) GetMatchesForClass(className string) ([]*types.Match, error) {
	return s.queryMatches(selectMatches+"WHERE class = ? ORDER BY method, descriptor, id", className)
}

func (s *SQLiteStore) queryMatches(query string, args ...any) ([]*types.Match, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	matches := []*types.Match{}
	for rows.Next() {
		var m types.Match
		var blobIDHex, paramsJSON string
		var returnType, location sql.NullString

		err := rows.Scan(
			&blobIDHex,
			&m.StructuralID,
			&m.Method.Class,
			&m.Method.Name,
			&m.Method.Descriptor,
			&paramsJSON,
			&returnType,
			&m.Rule,
			&m.SaveReturnValue,
			&location,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}

		blobID, err := types.ParseBlobID(blobIDHex)
		if err != nil {
			return nil, fmt.Errorf("parsing blob ID: %w", err)
		}
		m.BlobID = blobID
		m.Method.ReturnType = returnType.String
		m.Location = location.String

		if err := json.Unmarshal([]byte(paramsJSON), &m.Method.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshaling parameters: %w", err)
		}

		matches = append(matches, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}

	return matches, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
